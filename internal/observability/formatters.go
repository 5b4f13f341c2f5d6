// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/listing-customizer/internal/fetch"
	"github.com/jonathan/listing-customizer/internal/service"
	"github.com/jonathan/listing-customizer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintAttempts outputs one line per tier tried during a fetch.
func (p *Printer) PrintAttempts(attempts []fetch.Attempt) {
	if len(attempts) == 0 {
		return
	}

	var sb strings.Builder
	for _, a := range attempts {
		mark := "✗"
		switch {
		case a.ProbePassed:
			mark = "✓"
		case a.Err == nil:
			mark = "~"
		}
		sb.WriteString(fmt.Sprintf("%s %d. %-16s %6s", mark, a.Index, a.Tier, a.Duration.Round(time.Millisecond)))
		if a.Bytes > 0 {
			sb.WriteString(fmt.Sprintf("  %d bytes", a.Bytes))
		}
		sb.WriteString("\n")
		if a.Err != nil {
			sb.WriteString(fmt.Sprintf("     %s\n", a.Err))
		}
	}

	p.printBox("FETCH ATTEMPTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintListing outputs a human-readable summary of a composed listing.
func (p *Printer) PrintListing(l *types.ComposedListing) {
	if l == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Product:  %s\n", l.ProductID))
	sb.WriteString(fmt.Sprintf("Status:   %s", l.Status))
	if l.TierUsed > 0 {
		sb.WriteString(fmt.Sprintf(" (tier %d)", l.TierUsed))
	}
	if l.FromCache {
		sb.WriteString(" [cached]")
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Title:    %s\n", l.Title80))
	if l.Price != "" {
		sb.WriteString(fmt.Sprintf("Price:    %s\n", l.Price))
	}
	if l.SKU != "" {
		sb.WriteString(fmt.Sprintf("SKU:      %s\n", l.SKU))
	}
	sb.WriteString("\n")

	if len(l.Bullets) > 0 {
		sb.WriteString("Bullets:\n")
		count := min(len(l.Bullets), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", l.Bullets[i]))
		}
		if len(l.Bullets) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(l.Bullets)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	if len(l.Attributes) > 0 {
		sb.WriteString("Attributes:\n")
		keys := make([]string, 0, len(l.Attributes))
		for k := range l.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %-12s %s\n", k+":", l.Attributes[k]))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("Images:   %d scraped", len(l.ScrapedImages)))
	if extra := len(l.Images) - len(l.ScrapedImages); extra > 0 {
		sb.WriteString(fmt.Sprintf(", %d uploaded", extra))
	}

	p.printBox("LISTING", sb.String())
}

// PrintWarmResults outputs the per-reference outcome of a cache warm.
func (p *Printer) PrintWarmResults(results []service.WarmResult) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	failed := 0
	for _, r := range results {
		switch {
		case r.Err != nil && r.Status == "":
			failed++
			sb.WriteString(fmt.Sprintf("✗ %s\n    %s\n", r.Ref, r.Err))
		case r.FromCache:
			sb.WriteString(fmt.Sprintf("= %s  %s (cached)\n", r.ProductID, r.Status))
		default:
			sb.WriteString(fmt.Sprintf("✓ %s  %s\n", r.ProductID, r.Status))
		}
	}
	sb.WriteString(fmt.Sprintf("\n%d of %d references warmed", len(results)-failed, len(results)))

	p.printBox("CACHE WARM", sb.String())
}
