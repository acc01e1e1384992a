package images

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"animalfacts/pkg/config"
	errs "animalfacts/pkg/errors"
	"animalfacts/pkg/imagesearch"
	"animalfacts/pkg/logger"
	"animalfacts/pkg/metrics"
	"animalfacts/pkg/models"
	"animalfacts/pkg/retry"
	"animalfacts/pkg/storage"
)

// Downloader fetches the bytes behind a URL
type Downloader interface {
	Download(ctx context.Context, url string, w io.Writer) (int64, string, error)
}

// Normalizer rewrites a stored image in place
type Normalizer interface {
	Normalize(path string) (string, error)
}

// Outcome of one entity
const (
	OutcomeSaved   = "saved"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Summary counts the outcomes of a run
type Summary struct {
	Saved   int
	Failed  int
	Skipped int
}

// Fetcher resolves, downloads and normalizes one image per entity
type Fetcher struct {
	cfg        config.ImagesConfig
	provider   imagesearch.Provider
	downloader Downloader
	storage    *storage.Manager
	normalizer Normalizer
	backoff    retry.BackoffStrategy
	metrics    *metrics.Metrics
	logger     logger.Logger
}

// NewFetcher wires a Fetcher
func NewFetcher(
	cfg *config.ImagesConfig,
	provider imagesearch.Provider,
	downloader Downloader,
	store *storage.Manager,
	normalizer Normalizer,
	m *metrics.Metrics,
	log logger.Logger,
) *Fetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}

	backoff, err := retry.NewBackoff(cfg.RetryBackoff, cfg.RetryDelay)
	if err != nil {
		log.WithError(err).Warn("Falling back to default retry backoff")
		backoff = retry.DefaultConfig().Backoff
	}

	return &Fetcher{
		cfg:        *cfg,
		provider:   provider,
		downloader: downloader,
		storage:    store,
		normalizer: normalizer,
		backoff:    backoff,
		metrics:    m,
		logger:     log.WithField("component", "images"),
	}
}

// FetchOne resolves an image for name and stores it normalized. Attempt n
// asks the provider for n results and uses the first one not tried before;
// after MaxAttempts failures the last error is returned.
func (f *Fetcher) FetchOne(ctx context.Context, name string) (string, error) {
	tried := make(map[string]bool)
	log := f.logger.WithField("name", name)

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = f.cfg.MaxAttempts
	retryCfg.Backoff = f.backoff
	retryCfg.Logger = log

	return retry.DoWithResult(ctx, func(ctx context.Context, attempt int) (string, error) {
		return f.attempt(ctx, name, attempt, tried, log)
	}, retryCfg)
}

func (f *Fetcher) attempt(ctx context.Context, name string, attempt int, tried map[string]bool, log logger.Logger) (string, error) {
	f.metrics.IncAttempts()

	results, err := f.provider.Search(ctx, imagesearch.Query{
		Terms: imagesearch.BuildQuery(name, f.cfg.QuerySuffix),
		Limit: attempt,
	})
	if err != nil {
		return "", err
	}

	var candidate *imagesearch.Result
	for i := range results {
		if !tried[results[i].URL] {
			candidate = &results[i]
			break
		}
	}
	if candidate == nil {
		return "", errs.New(errs.ErrorTypeNotFound, fmt.Sprintf("no untried image for %q", name))
	}
	tried[candidate.URL] = true

	log.DebugWithFields("Downloading candidate", map[string]interface{}{
		"attempt": attempt,
		"url":     candidate.URL,
	})

	var buf bytes.Buffer
	if _, _, err := f.downloader.Download(ctx, candidate.URL, &buf); err != nil {
		return "", err
	}

	stored, err := f.storage.Save(&buf, name, extension(candidate.URL))
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeUnknown, err, "failed to store image")
	}

	format, err := f.normalizer.Normalize(stored)
	if err != nil {
		if rmErr := f.storage.Remove(stored); rmErr != nil {
			log.WithError(rmErr).Warn("Failed to remove partial image")
		}
		return "", err
	}

	// Keep the extension in line with the bytes the normalizer wrote
	if ext := formatExtension(format); ext != "" && !sameFormat(filepath.Ext(stored), ext) {
		renamed, err := f.storage.Rename(stored, name, ext)
		if err != nil {
			if rmErr := f.storage.Remove(stored); rmErr != nil {
				log.WithError(rmErr).Warn("Failed to remove partial image")
			}
			return "", errs.Wrap(errs.ErrorTypeUnknown, err, "failed to store image")
		}
		stored = renamed
	}

	return stored, nil
}

// Run processes records one at a time. Failures are logged and skipped; the
// run itself only fails when ctx is cancelled.
func (f *Fetcher) Run(ctx context.Context, records models.AnimalRecordCollection) (Summary, error) {
	var summary Summary
	start := time.Now()

	logger.LogComponentStart(f.logger, "images", map[string]interface{}{
		"entities":      len(records),
		"output":        f.storage.GetOutputDir(),
		"max_attempts":  f.cfg.MaxAttempts,
		"skip_existing": f.cfg.SkipExisting,
	})

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		switch f.process(ctx, record.Name) {
		case OutcomeSaved:
			summary.Saved++
		case OutcomeSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}

		logger.LogProgress(f.logger, "images", i+1, len(records))
	}

	elapsed := time.Since(start)
	f.metrics.SetRunDuration("images", elapsed)
	logger.LogRunSummary(f.logger, "images", map[string]interface{}{
		"saved":   summary.Saved,
		"failed":  summary.Failed,
		"skipped": summary.Skipped,
	}, elapsed)

	return summary, nil
}

func (f *Fetcher) process(ctx context.Context, name string) string {
	if f.cfg.SkipExisting {
		if existing, ok := f.storage.Existing(name); ok {
			f.logger.DebugWithFields("Image already present", map[string]interface{}{
				"name": name,
				"path": existing,
			})
			f.metrics.ObserveImage(OutcomeSkipped)
			return OutcomeSkipped
		}
	}

	stored, err := f.FetchOne(ctx, name)
	if err != nil {
		f.logger.WithError(err).ErrorWithFields("Failed to fetch image", map[string]interface{}{
			"name": name,
		})
		f.metrics.ObserveImage(OutcomeFailed)
		return OutcomeFailed
	}

	f.logger.InfoWithFields("Image saved", map[string]interface{}{
		"name": name,
		"path": stored,
	})
	f.metrics.ObserveImage(OutcomeSaved)
	return OutcomeSaved
}

// extension returns the image extension of the URL path, .jpg when the path
// has none or it is not an image extension
func extension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if !storage.IsImageExt(ext) {
		return ".jpg"
	}
	return ext
}

// formatExtension maps an encoder format name to a file extension
func formatExtension(format string) string {
	switch format {
	case "jpeg":
		return ".jpg"
	case "png", "gif", "bmp":
		return "." + format
	}
	return ""
}

func sameFormat(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == ".jpeg" {
		a = ".jpg"
	}
	return a == b
}
