package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jonathan/listing-customizer/internal/observability"
	"github.com/jonathan/listing-customizer/internal/service"
	"github.com/spf13/cobra"
)

var (
	warmFile        string
	warmConcurrency int
)

var warmCmd = &cobra.Command{
	Use:   "warm [refs...]",
	Short: "Prefetch product listings into the cache",
	Long:  "Loads every reference given as an argument or listed in --file (one per line, # comments allowed) into the configured cache.",
	RunE:  runWarm,
}

func init() {
	warmCmd.Flags().StringVarP(&warmFile, "file", "f", "", "File of references, one per line (- for stdin)")
	warmCmd.Flags().IntVarP(&warmConcurrency, "concurrency", "c", service.DefaultWarmConcurrency, "Parallel fetches")
	rootCmd.AddCommand(warmCmd)
}

func runWarm(cmd *cobra.Command, args []string) error {
	refs := append([]string{}, args...)
	if warmFile != "" {
		var r io.Reader = os.Stdin
		if warmFile != "-" {
			f, err := os.Open(warmFile)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", warmFile, err)
			}
			defer func() { _ = f.Close() }()
			r = f
		}
		fromFile, err := readRefs(r)
		if err != nil {
			return err
		}
		refs = append(refs, fromFile...)
	}
	if len(refs) == 0 {
		return fmt.Errorf("no references given: pass them as arguments or with --file")
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	results, err := a.svc.Warm(cmd.Context(), refs, warmConcurrency)
	observability.NewPrinter(os.Stdout).PrintWarmResults(results)
	return err
}

// readRefs returns the non-blank, non-comment lines of r.
func readRefs(r io.Reader) ([]string, error) {
	var refs []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		refs = append(refs, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read references: %w", err)
	}
	return refs, nil
}
