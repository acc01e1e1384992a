package logger

import (
	"fmt"
	"time"
)

// LogResponse logs the outcome of an HTTP fetch at a level matching its status
func LogResponse(l Logger, method, url string, statusCode int, contentType string, duration time.Duration) {
	fields := map[string]interface{}{
		"method":       method,
		"url":          url,
		"status_code":  statusCode,
		"content_type": contentType,
		"duration":     duration,
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		l.DebugWithFields("HTTP request completed", fields)
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	default:
		l.WarnWithFields("HTTP request client error", fields)
	}
}

// LogComponentStart logs when a pipeline component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	l = l.WithField("component", component)
	if len(settings) > 0 {
		l = l.WithFields(settings)
	}
	l.Info("Component started")
}

// LogProgress logs how far a sequential run has got
func LogProgress(l Logger, operation string, done, total int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(done) / float64(total) * 100
	}

	l.InfoWithFields("Progress", map[string]interface{}{
		"operation":  operation,
		"done":       done,
		"total":      total,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	})
}

// LogRunSummary logs the counters collected for a finished run
func LogRunSummary(l Logger, operation string, counts map[string]interface{}, elapsed time.Duration) {
	fields := map[string]interface{}{
		"operation": operation,
		"elapsed":   elapsed,
	}
	for k, v := range counts {
		fields[k] = v
	}

	l.InfoWithFields("Run finished", fields)
}
