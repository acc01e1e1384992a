package main

import (
	"fmt"

	"animalfacts/pkg/facts"
	"animalfacts/pkg/imagesearch"
	"animalfacts/pkg/images"
	"animalfacts/pkg/imaging"
	"animalfacts/pkg/metrics"
	"animalfacts/pkg/storage"
	"animalfacts/pkg/webclient"

	"github.com/spf13/cobra"
)

var (
	inputFile    string
	imageDir     string
	maxAttempts  int
	skipExisting bool
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Download and resize one image per animal",
	Long: `Read the JSON file written by 'animalfacts facts' and, for each animal, search
for a square photo, download it as <name>.<ext> and resize it to 256x256.

Animals are processed one at a time. An animal whose image cannot be fetched
after the configured number of attempts is logged and skipped.

The image search needs a Google Custom Search API key and engine ID, set with
ANIMALFACTS_SEARCH_API_KEY and ANIMALFACTS_SEARCH_ENGINE_ID or in the config file.`,
	Example: `  # Fetch images for ./animal_datas.json into ./image_resources
  animalfacts images

  # Keep images from a previous run
  animalfacts images --skip-existing --dir assets/animals`,
	Args: cobra.NoArgs,
	RunE: runImages,
}

func init() {
	rootCmd.AddCommand(imagesCmd)

	imagesCmd.Flags().StringVarP(&inputFile, "input", "i", "", "fact file to read (default animal_datas.json)")
	imagesCmd.Flags().StringVarP(&imageDir, "dir", "d", "", "directory to store images in (default image_resources)")
	imagesCmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "attempts per animal before giving up (default 3)")
	imagesCmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip animals that already have an image")
}

func runImages(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{
		"input-file":   inputFile,
		"image-dir":    imageDir,
		"max-attempts": maxAttempts,
	}
	if cmd.Flags().Changed("skip-existing") {
		flags["skip-existing"] = skipExisting
	}

	cfg, log, err := setup(flags)
	if err != nil {
		return err
	}
	if err := cfg.ValidateSearch(); err != nil {
		return err
	}

	records, err := facts.ReadCollection(cfg.Images.InputFile)
	if err != nil {
		return err
	}

	store, err := storage.NewManager(cfg.Images.OutputDirectory)
	if err != nil {
		return err
	}

	term.PrintInfo("Input", fmt.Sprintf("%s (%d animals)", cfg.Images.InputFile, len(records)))
	term.PrintInfo("Output", cfg.Images.OutputDirectory)

	m := metrics.New()
	fetcher := images.NewFetcher(
		&cfg.Images,
		imagesearch.NewGoogleProvider(&cfg.Search, &cfg.Images, m, log),
		webclient.NewClient(cfg.Scraper.RequestTimeout, cfg.Scraper.UserAgent, log),
		store,
		imaging.NewNormalizer(&cfg.Images),
		m,
		log,
	)

	summary, runErr := fetcher.Run(cmd.Context(), records)

	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.WithError(err).Warn("Failed to write metrics")
	}

	term.PrintRatio("Saved", summary.Saved, len(records))
	if summary.Skipped > 0 {
		term.PrintInfo("Skipped", fmt.Sprint(summary.Skipped))
	}
	if summary.Failed > 0 {
		term.PrintWarning(fmt.Sprintf("%d animals without an image, see the log for details", summary.Failed))
	}

	if runErr != nil {
		return fmt.Errorf("image fetch interrupted: %w", runErr)
	}
	term.PrintSuccess("Image fetch completed")
	return nil
}
