package imagesearch

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"animalfacts/pkg/config"
	errs "animalfacts/pkg/errors"
	"animalfacts/pkg/logger"
	"animalfacts/pkg/metrics"
	"animalfacts/pkg/ratelimit"

	"github.com/go-resty/resty/v2"
)

// pageSize is the largest page the Custom Search JSON API returns
const pageSize = 10

// GoogleProvider searches images through the Google Custom Search JSON API
type GoogleProvider struct {
	http     *resty.Client
	endpoint string
	apiKey   string
	engineID string
	safe     bool
	filter   Filter
	limiter  ratelimit.Limiter
	metrics  *metrics.Metrics
	logger   logger.Logger
}

type searchResponse struct {
	Items []struct {
		Link  string `json:"link"`
		Mime  string `json:"mime"`
		Title string `json:"title"`
		Image struct {
			ContextLink string `json:"contextLink"`
			Width       int    `json:"width"`
			Height      int    `json:"height"`
		} `json:"image"`
	} `json:"items"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGoogleProvider creates a provider from the search and image settings
func NewGoogleProvider(search *config.SearchConfig, images *config.ImagesConfig, m *metrics.Metrics, log logger.Logger) *GoogleProvider {
	if log == nil {
		log = logger.NewNopLogger()
	}

	client := resty.New()
	client.SetTimeout(search.Timeout)
	client.SetHeader("Accept", "application/json")

	return &GoogleProvider{
		http:     client,
		endpoint: search.Endpoint,
		apiKey:   search.APIKey,
		engineID: search.EngineID,
		safe:     search.SafeSearch,
		filter: Filter{
			MinWidth:        images.MinWidth,
			MinHeight:       images.MinHeight,
			AspectTolerance: images.AspectTolerance,
		},
		limiter: ratelimit.New(search.RequestsPerMinute),
		metrics: m,
		logger:  log.WithField("component", "imagesearch"),
	}
}

// SetLimiter replaces the request limiter
func (p *GoogleProvider) SetLimiter(l ratelimit.Limiter) {
	p.limiter = l
}

// Search requests one page of photo results for q and returns up to
// q.Limit of those passing the size and aspect filter. No accepted result is
// a not_found error.
func (p *GoogleProvider) Search(ctx context.Context, q Query) ([]Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "rate limiter wait cancelled")
	}

	safe := "off"
	if p.safe {
		safe = "active"
	}

	var body searchResponse
	var apiErr errorResponse
	start := time.Now()

	res, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key":        p.apiKey,
			"cx":         p.engineID,
			"q":          q.Terms,
			"searchType": "image",
			"imgType":    "photo",
			"fileType":   "jpg",
			"safe":       safe,
			"num":        strconv.Itoa(pageSize),
		}).
		SetResult(&body).
		SetError(&apiErr).
		Get(p.endpoint)
	if err != nil {
		p.metrics.ObserveSearch(err)
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "image search request failed")
	}

	p.logger.DebugWithFields("Image search completed", map[string]interface{}{
		"query":       q.Terms,
		"status_code": res.StatusCode(),
		"duration":    time.Since(start),
		"items":       len(body.Items),
	})

	if res.StatusCode() != http.StatusOK {
		statusErr := &errs.Error{
			Type:    errs.ErrorTypeHTTPStatus,
			Message: fmt.Sprintf("image search failed: %s", apiErr.Error.Message),
			Code:    res.StatusCode(),
		}
		p.metrics.ObserveSearch(statusErr)
		return nil, statusErr
	}
	p.metrics.ObserveSearch(nil)

	candidates := make([]Result, 0, len(body.Items))
	for _, item := range body.Items {
		candidates = append(candidates, Result{
			URL:        item.Link,
			MIME:       item.Mime,
			Width:      item.Image.Width,
			Height:     item.Image.Height,
			Title:      item.Title,
			ContextURL: item.Image.ContextLink,
		})
	}

	results := p.filter.Apply(candidates, q.Limit)
	if len(results) == 0 {
		return nil, errs.New(errs.ErrorTypeNotFound, fmt.Sprintf("no suitable image for %q", q.Terms))
	}

	return results, nil
}
