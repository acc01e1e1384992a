package webclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	errs "animalfacts/pkg/errors"
	"animalfacts/pkg/logger"

	"github.com/PuerkitoBio/goquery"
)

// Client fetches HTML pages and binary files over HTTP. It never retries;
// callers decide what a failed fetch means for them.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger
}

// NewClient creates a Client with the given per-request timeout
func NewClient(timeout time.Duration, userAgent string, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
		logger: log,
	}
}

// get issues a GET and returns the open response, whatever its status
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	for key, value := range c.headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "request failed")
	}

	logger.LogResponse(c.logger, req.Method, url, resp.StatusCode, resp.Header.Get("Content-Type"), time.Since(start))
	return resp, nil
}

// IsGoodResponse reports whether a response carries usable HTML: status 200
// and a Content-Type mentioning html.
func IsGoodResponse(resp *http.Response) bool {
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	return resp.StatusCode == http.StatusOK && strings.Contains(contentType, "html")
}

// FetchHTML fetches url and parses it as HTML. Non-200 responses, responses
// without an HTML content type and transport failures all return an error.
func (c *Client) FetchHTML(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !IsGoodResponse(resp) {
		// Drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		if resp.StatusCode != http.StatusOK {
			return nil, &errs.Error{
				Type:    errs.ErrorTypeHTTPStatus,
				Message: fmt.Sprintf("unexpected status for %s", url),
				Code:    resp.StatusCode,
			}
		}
		return nil, &errs.Error{
			Type:    errs.ErrorTypeContentType,
			Message: fmt.Sprintf("unexpected content type %q for %s", resp.Header.Get("Content-Type"), url),
			Code:    resp.StatusCode,
		}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse HTML")
	}
	doc.Url = resp.Request.URL

	return doc, nil
}

// Download streams the body of url into w and returns the number of bytes
// written along with the response Content-Type.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) (int64, string, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		typ := errs.ErrorTypeHTTPStatus
		if resp.StatusCode == http.StatusNotFound {
			typ = errs.ErrorTypeNotFound
		}
		return 0, "", &errs.Error{
			Type:    typ,
			Message: fmt.Sprintf("download of %s failed", url),
			Code:    resp.StatusCode,
		}
	}

	contentType := resp.Header.Get("Content-Type")
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, contentType, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read response body")
	}

	c.logger.DebugWithFields("download completed", map[string]interface{}{
		"url":  url,
		"size": n,
	})

	return n, contentType, nil
}
