package facts

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"regexp"
	"slices"
	"time"

	"animalfacts/internal/fanout"
	"animalfacts/pkg/config"
	"animalfacts/pkg/logger"
	"animalfacts/pkg/metrics"
	"animalfacts/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

// HTMLFetcher fetches and parses one HTML page
type HTMLFetcher interface {
	FetchHTML(ctx context.Context, url string) (*goquery.Document, error)
}

// Scraper runs the fact pipeline: listing page, detail pages, filter, write
type Scraper struct {
	cfg       config.ScraperConfig
	fetcher   HTMLFetcher
	base      *url.URL
	itemClass *regexp.Regexp
	labels    Labels
	metrics   *metrics.Metrics
	logger    logger.Logger
}

// NewScraper compiles the configured patterns and returns a Scraper
func NewScraper(cfg *config.ScraperConfig, fetcher HTMLFetcher, m *metrics.Metrics, log logger.Logger) (*Scraper, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	itemClass, err := regexp.Compile(cfg.ItemClassPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid item class pattern: %w", err)
	}
	typeLabel, err := regexp.Compile(cfg.TypeLabel)
	if err != nil {
		return nil, fmt.Errorf("invalid type label: %w", err)
	}
	featureLabel, err := regexp.Compile(cfg.FeatureLabel)
	if err != nil {
		return nil, fmt.Errorf("invalid feature label: %w", err)
	}

	return &Scraper{
		cfg:       *cfg,
		fetcher:   fetcher,
		base:      base,
		itemClass: itemClass,
		labels:    Labels{Type: typeLabel, Feature: featureLabel},
		metrics:   m,
		logger:    log.WithField("component", "facts"),
	}, nil
}

// ListingURL returns the absolute URL of the listing page
func (s *Scraper) ListingURL() string {
	link, err := resolve(s.base, s.cfg.ListingPath)
	if err != nil {
		return s.cfg.BaseURL + s.cfg.ListingPath
	}
	return link
}

// Listing fetches the listing page and returns its detail links. An unusable
// listing response is logged and yields an empty sequence.
func (s *Scraper) Listing(ctx context.Context) iter.Seq[string] {
	listingURL := s.ListingURL()

	start := time.Now()
	doc, err := s.fetcher.FetchHTML(ctx, listingURL)
	s.metrics.ObserveFetch("listing", err, time.Since(start))
	if err != nil {
		s.logger.WithError(err).ErrorWithFields("Failed to fetch listing page", map[string]interface{}{
			"url": listingURL,
		})
		return func(func(string) bool) {}
	}

	return ListingLinks(doc, s.base, s.itemClass)
}

// FetchRecord fetches one detail page and extracts its record. A page that
// cannot be fetched yields an empty record and the fetch error.
func (s *Scraper) FetchRecord(ctx context.Context, detailURL string) (models.AnimalRecord, error) {
	start := time.Now()
	doc, err := s.fetcher.FetchHTML(ctx, detailURL)
	s.metrics.ObserveFetch("detail", err, time.Since(start))
	if err != nil {
		return models.AnimalRecord{}, fmt.Errorf("fetch %s: %w", detailURL, err)
	}

	record := ExtractRecord(doc, s.labels, s.logger.WithField("url", detailURL))
	s.logger.InfoWithFields("Found record", map[string]interface{}{
		"name":     record.Name,
		"type":     record.Type,
		"features": record.Features,
	})
	return record, nil
}

// Scrape fetches every detail page concurrently and returns all records in
// listing order, including those with an empty Type.
func (s *Scraper) Scrape(ctx context.Context) models.AnimalRecordCollection {
	links := slices.Collect(s.Listing(ctx))
	s.logger.InfoWithFields("Listing parsed", map[string]interface{}{
		"links": len(links),
	})

	results := fanout.Gather(ctx, links, s.FetchRecord, s.logger)
	return models.AnimalRecordCollection(fanout.Values(results))
}

// Run scrapes, drops records without a Type and writes the rest to the
// configured output file.
func (s *Scraper) Run(ctx context.Context) (models.AnimalRecordCollection, error) {
	start := time.Now()
	logger.LogComponentStart(s.logger, "facts", map[string]interface{}{
		"listing": s.ListingURL(),
		"output":  s.cfg.OutputFile,
	})

	all := s.Scrape(ctx)
	kept := all.Complete()
	s.metrics.ObserveRecords(len(kept), len(all)-len(kept))

	if err := WriteCollection(s.cfg.OutputFile, kept); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	s.metrics.SetRunDuration("facts", elapsed)
	logger.LogRunSummary(s.logger, "facts", map[string]interface{}{
		"scraped": len(all),
		"kept":    len(kept),
		"output":  s.cfg.OutputFile,
	}, elapsed)

	return kept, nil
}
