package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jonathan/listing-customizer/internal/extract"
	"github.com/jonathan/listing-customizer/internal/fetch"
	"github.com/jonathan/listing-customizer/internal/listing"
	"github.com/jonathan/listing-customizer/internal/observability"
	"github.com/jonathan/listing-customizer/internal/refid"
	"github.com/jonathan/listing-customizer/internal/types"
	"github.com/spf13/cobra"
)

var (
	scrapeJSON    bool
	scrapeVerbose bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <ref>",
	Short: "Fetch and extract one product page, bypassing the cache",
	Long:  "Runs the tier escalation for a product URL or id, extracts the listing and prints it. Nothing is cached.",
	Args:  cobra.ExactArgs(1),
	RunE:  runScrape,
}

func init() {
	scrapeCmd.Flags().BoolVar(&scrapeJSON, "json", false, "Print the composed listing as JSON")
	scrapeCmd.Flags().BoolVarP(&scrapeVerbose, "verbose", "v", false, "Print every tier attempt")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ref, err := refid.NewNormalizer(cfg.Fetch.DomainMarkers).Normalize(args[0])
	if err != nil {
		return err
	}
	sourceURL := refid.ProductURL(cfg.Fetch.BaseURL, ref.CanonicalID)

	result, err := newOrchestrator(cfg, log).Fetch(cmd.Context(), sourceURL)
	printer := observability.NewPrinter(os.Stdout)
	if err != nil {
		var unavailable *fetch.UpstreamUnavailableError
		if scrapeVerbose && errors.As(err, &unavailable) {
			printer.PrintAttempts(unavailable.Attempts)
		}
		return fmt.Errorf("failed to fetch %s: %w", sourceURL, err)
	}
	if scrapeVerbose {
		printer.PrintAttempts(result.Attempts)
	}

	extracted := extract.New().Extract(result.Content)
	extracted.ProductID = ref.CanonicalID
	extracted.SourceURL = sourceURL
	extracted.TierUsed = result.TierUsed
	if result.Degraded() {
		extracted.Status = types.StatusDegraded
	}
	composed := listing.Compose(extracted, nil)

	if scrapeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(composed)
	}
	printer.PrintListing(composed)
	fmt.Println()
	fmt.Println(composed.ListingText)
	return nil
}
