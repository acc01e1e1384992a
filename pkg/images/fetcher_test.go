package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"animalfacts/pkg/config"
	errs "animalfacts/pkg/errors"
	"animalfacts/pkg/imagesearch"
	"animalfacts/pkg/imaging"
	"animalfacts/pkg/logger"
	"animalfacts/pkg/metrics"
	"animalfacts/pkg/models"
	"animalfacts/pkg/storage"
	"animalfacts/pkg/webclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns the first Limit entries of a fixed candidate list
type fakeProvider struct {
	mu         sync.Mutex
	candidates map[string][]string
	queries    []imagesearch.Query
	err        error
}

func (p *fakeProvider) Search(ctx context.Context, q imagesearch.Query) ([]imagesearch.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, q)

	if p.err != nil {
		return nil, p.err
	}

	var results []imagesearch.Result
	for _, u := range p.candidates[q.Terms] {
		if len(results) == q.Limit {
			break
		}
		results = append(results, imagesearch.Result{URL: u, Width: 500, Height: 500})
	}
	if len(results) == 0 {
		return nil, errs.New(errs.ErrorTypeNotFound, "no results")
	}
	return results, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	good := pngBytes(t, 600, 400)

	mux := http.NewServeMux()
	mux.HandleFunc("/good.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(good)
	})
	mux.HandleFunc("/noext", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(good)
	})
	mux.HandleFunc("/corrupt.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("definitely not a jpeg"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

type fixture struct {
	fetcher  *Fetcher
	provider *fakeProvider
	dir      string
	log      *logger.TestLogger
}

func newFixture(t *testing.T, candidates map[string][]string, mutate func(*config.ImagesConfig)) fixture {
	t.Helper()

	cfg := config.DefaultConfig().Images
	cfg.OutputDirectory = filepath.Join(t.TempDir(), "image_resources")
	cfg.QuerySuffix = ""
	cfg.RetryDelay = time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}

	store, err := storage.NewManager(cfg.OutputDirectory)
	require.NoError(t, err)

	log := logger.NewTestLogger()
	provider := &fakeProvider{candidates: candidates}
	fetcher := NewFetcher(
		&cfg,
		provider,
		webclient.NewClient(5*time.Second, "test", log),
		store,
		imaging.NewNormalizer(&cfg),
		metrics.New(),
		log,
	)

	return fixture{fetcher: fetcher, provider: provider, dir: cfg.OutputDirectory, log: log}
}

func assertSquareJPEG(t *testing.T, path string, size int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, size, cfg.Width)
	assert.Equal(t, size, cfg.Height)
}

func TestFetchOneFirstCandidate(t *testing.T) {
	server := newImageServer(t)
	fx := newFixture(t, map[string][]string{
		"Aardvark": {server.URL + "/good.png"},
	}, nil)

	path, err := fx.fetcher.FetchOne(context.Background(), "Aardvark")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fx.dir, "Aardvark.jpg"), path)
	assertSquareJPEG(t, path, 256)
	assert.NoFileExists(t, filepath.Join(fx.dir, "Aardvark.png"))

	require.Len(t, fx.provider.queries, 1)
	assert.Equal(t, 1, fx.provider.queries[0].Limit)
}

func TestFetchOneRetriesWithWiderLimit(t *testing.T) {
	server := newImageServer(t)
	fx := newFixture(t, map[string][]string{
		"Bat": {server.URL + "/corrupt.jpg", server.URL + "/missing.jpg", server.URL + "/noext"},
	}, nil)

	path, err := fx.fetcher.FetchOne(context.Background(), "Bat")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fx.dir, "Bat.jpg"), path)
	assertSquareJPEG(t, path, 256)

	limits := make([]int, 0, len(fx.provider.queries))
	for _, q := range fx.provider.queries {
		limits = append(limits, q.Limit)
	}
	assert.Equal(t, []int{1, 2, 3}, limits)
}

func TestFetchOneGivesUpAfterMaxAttempts(t *testing.T) {
	server := newImageServer(t)
	fx := newFixture(t, map[string][]string{
		"Cat": {server.URL + "/corrupt.jpg", server.URL + "/corrupt.jpg?v=2", server.URL + "/corrupt.jpg?v=3", server.URL + "/good.png"},
	}, func(cfg *config.ImagesConfig) {
		cfg.MaxAttempts = 3
	})

	_, err := fx.fetcher.FetchOne(context.Background(), "Cat")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeImage))
	assert.Len(t, fx.provider.queries, 3)

	entries, err := os.ReadDir(fx.dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial files must be removed")
}

func TestFetchOneNoResults(t *testing.T) {
	fx := newFixture(t, nil, nil)

	_, err := fx.fetcher.FetchOne(context.Background(), "Dodo")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNotFound))
	assert.Len(t, fx.provider.queries, 3)
}

func TestFetchOneNonRetryableStops(t *testing.T) {
	fx := newFixture(t, nil, nil)
	fx.provider.err = errs.New(errs.ErrorTypeParsing, "bad response")

	_, err := fx.fetcher.FetchOne(context.Background(), "Eel")
	require.Error(t, err)
	assert.Len(t, fx.provider.queries, 1)
}

func TestFetchOneForbiddenSearchStops(t *testing.T) {
	fx := newFixture(t, nil, nil)
	fx.provider.err = &errs.Error{Type: errs.ErrorTypeHTTPStatus, Code: http.StatusForbidden, Message: "API key invalid"}

	_, err := fx.fetcher.FetchOne(context.Background(), "Eel")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeHTTPStatus))
	assert.Len(t, fx.provider.queries, 1)
}

func TestFetchOneRateLimitedSearchRetries(t *testing.T) {
	fx := newFixture(t, nil, nil)
	fx.provider.err = &errs.Error{Type: errs.ErrorTypeHTTPStatus, Code: http.StatusTooManyRequests, Message: "slow down"}

	_, err := fx.fetcher.FetchOne(context.Background(), "Eel")
	require.Error(t, err)
	assert.Len(t, fx.provider.queries, 3)
}

func TestFetchOneSourceFormatKeepsExtension(t *testing.T) {
	server := newImageServer(t)
	fx := newFixture(t, map[string][]string{
		"Aardvark": {server.URL + "/good.png"},
	}, func(cfg *config.ImagesConfig) {
		cfg.Format = imaging.FormatSource
	})

	path, err := fx.fetcher.FetchOne(context.Background(), "Aardvark")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fx.dir, "Aardvark.png"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestFetchOneLinearBackoff(t *testing.T) {
	fx := newFixture(t, nil, func(cfg *config.ImagesConfig) {
		cfg.RetryBackoff = "linear"
		cfg.RetryDelay = 20 * time.Millisecond
	})

	start := time.Now()
	_, err := fx.fetcher.FetchOne(context.Background(), "Dodo")
	require.Error(t, err)
	// 20ms after the first attempt, 40ms after the second
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	assert.Len(t, fx.provider.queries, 3)
}

func TestRunContinuesPastFailures(t *testing.T) {
	server := newImageServer(t)
	fx := newFixture(t, map[string][]string{
		"Aardvark": {server.URL + "/good.png"},
		"Cat":      {server.URL + "/good.png"},
	}, nil)

	records := models.AnimalRecordCollection{
		{Name: "Aardvark", Type: "Mammal"},
		{Name: "Bat", Type: "Mammal"},
		{Name: "Cat", Type: "Mammal"},
	}

	summary, err := fx.fetcher.Run(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, Summary{Saved: 2, Failed: 1}, summary)

	assert.FileExists(t, filepath.Join(fx.dir, "Aardvark.jpg"))
	assert.FileExists(t, filepath.Join(fx.dir, "Cat.jpg"))
	assert.True(t, fx.log.HasMessage("Failed to fetch image"))
	assert.True(t, fx.log.HasMessage("Run finished"))
}

func TestRunSkipExisting(t *testing.T) {
	server := newImageServer(t)
	fx := newFixture(t, map[string][]string{
		"Aardvark": {server.URL + "/good.png"},
	}, func(cfg *config.ImagesConfig) {
		cfg.SkipExisting = true
	})

	records := models.AnimalRecordCollection{{Name: "Aardvark", Type: "Mammal"}}

	summary, err := fx.fetcher.Run(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Saved)

	summary, err = fx.fetcher.Run(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, Summary{Skipped: 1}, summary)
	assert.Len(t, fx.provider.queries, 1)
}

func TestRunCancelled(t *testing.T) {
	fx := newFixture(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.fetcher.Run(ctx, models.AnimalRecordCollection{{Name: "Aardvark"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fx.provider.queries)
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"https://img.example/a.JPG":           ".jpg",
		"https://img.example/a.png?size=big":  ".png",
		"https://img.example/photo":           ".jpg",
		"https://img.example/a.verylongext":   ".jpg",
		"://bad":                              ".jpg",
		"https://img.example/render.php?id=7": ".jpg",
		"https://img.example/Photo.ASPX":      ".jpg",
		"https://img.example/a.webp":          ".webp",
	}
	for in, want := range tests {
		assert.Equal(t, want, extension(in), in)
	}
}
