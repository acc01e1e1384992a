// Package logger provides the structured logging interface used by both
// pipelines.
//
// It wraps zerolog behind a small Logger interface so components can take a
// logger as a dependency instead of reaching for process-wide state:
//
//	log, err := logger.New(&cfg.Logging)
//	if err != nil {
//	    return err
//	}
//	scraper, err := facts.NewScraper(&cfg.Scraper, client, metrics.New(), log)
//
// Every child created with WithField, WithFields or WithError carries its
// fields into each event it writes. Tests use NewTestLogger to capture and
// inspect messages, or NewNopLogger to discard them.
package logger
