package main

import (
	"fmt"

	"animalfacts/pkg/facts"
	"animalfacts/pkg/metrics"
	"animalfacts/pkg/webclient"

	"github.com/spf13/cobra"
)

var (
	baseURL    string
	outputFile string
)

var factsCmd = &cobra.Command{
	Use:   "facts",
	Short: "Scrape animal facts into a JSON file",
	Long: `Fetch the animal listing page, visit every linked detail page concurrently
and write the animals that have a class to a JSON array.

The output file is replaced on every run.`,
	Example: `  # Scrape with the defaults into ./animal_datas.json
  animalfacts facts

  # Write somewhere else
  animalfacts facts --output data/animals.json`,
	Args: cobra.NoArgs,
	RunE: runFacts,
}

func init() {
	rootCmd.AddCommand(factsCmd)

	factsCmd.Flags().StringVar(&baseURL, "base-url", "", "site to scrape (default https://a-z-animals.com)")
	factsCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output JSON file (default animal_datas.json)")
}

func runFacts(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(map[string]interface{}{
		"base-url":    baseURL,
		"output-file": outputFile,
	})
	if err != nil {
		return err
	}

	term.PrintInfo("Source", cfg.Scraper.BaseURL+cfg.Scraper.ListingPath)
	term.PrintInfo("Output", cfg.Scraper.OutputFile)

	m := metrics.New()
	client := webclient.NewClient(cfg.Scraper.RequestTimeout, cfg.Scraper.UserAgent, log)

	scraper, err := facts.NewScraper(&cfg.Scraper, client, m, log)
	if err != nil {
		return err
	}

	kept, err := scraper.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("fact scrape failed: %w", err)
	}

	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.WithError(err).Warn("Failed to write metrics")
	}

	term.PrintSuccess(fmt.Sprintf("Wrote %d records to %s", len(kept), cfg.Scraper.OutputFile))
	return nil
}
