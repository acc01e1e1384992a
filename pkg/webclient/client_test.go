package webclient

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	errs "animalfacts/pkg/errors"
	"animalfacts/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/HTML; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><h1>Aardvark</h1></body></html>"))
	})
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"aardvark"}`))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/agent", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<h1>" + r.Header.Get("User-Agent") + "</h1>"))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
	})
	mux.HandleFunc("/image.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff, 0xe0})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetchHTML(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(5*time.Second, "animalfacts-test/1.0", logger.NewNopLogger())

	tests := []struct {
		name      string
		path      string
		wantTitle string
		wantType  errs.ErrorType
		wantCode  int
	}{
		{name: "html page with mixed case content type", path: "/page", wantTitle: "Aardvark"},
		{name: "non html content type", path: "/json", wantType: errs.ErrorTypeContentType, wantCode: 200},
		{name: "not found", path: "/missing", wantType: errs.ErrorTypeHTTPStatus, wantCode: 404},
		{name: "server error", path: "/broken", wantType: errs.ErrorTypeHTTPStatus, wantCode: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := client.FetchHTML(context.Background(), server.URL+tt.path)
			if tt.wantType != "" {
				require.Error(t, err)
				assert.Nil(t, doc)
				assert.True(t, errs.IsType(err, tt.wantType), "got %v", err)

				var e *errs.Error
				require.ErrorAs(t, err, &e)
				assert.Equal(t, tt.wantCode, e.Code)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, doc.Find("h1").First().Text())
		})
	}
}

func TestFetchHTMLSendsUserAgent(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(5*time.Second, "animalfacts-test/1.0", nil)

	doc, err := client.FetchHTML(context.Background(), server.URL+"/agent")
	require.NoError(t, err)
	assert.Equal(t, "animalfacts-test/1.0", doc.Find("h1").Text())
}

func TestFetchHTMLTimeout(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(20*time.Millisecond, "test", nil)

	_, err := client.FetchHTML(context.Background(), server.URL+"/slow")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNetwork))
}

func TestFetchHTMLConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	log := logger.NewTestLogger()
	client := NewClient(time.Second, "test", log)

	_, err := client.FetchHTML(context.Background(), url+"/page")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNetwork))
	assert.True(t, log.HasMessage("HTTP request failed"))
}

func TestFetchHTMLLogsClientError(t *testing.T) {
	server := newTestServer(t)
	log := logger.NewTestLogger()
	client := NewClient(time.Second, "test", log)

	_, err := client.FetchHTML(context.Background(), server.URL+"/missing")
	require.Error(t, err)

	warnings := log.GetMessagesByLevel("WARN")
	require.Len(t, warnings, 1)
	assert.Equal(t, 404, warnings[0].Fields["status_code"])
}

func TestDownload(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(time.Second, "test", nil)

	t.Run("success", func(t *testing.T) {
		var buf bytes.Buffer
		n, contentType, err := client.Download(context.Background(), server.URL+"/image.jpg", &buf)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
		assert.Equal(t, "image/jpeg", contentType)
		assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xe0}, buf.Bytes())
	})

	t.Run("not found", func(t *testing.T) {
		var buf bytes.Buffer
		_, _, err := client.Download(context.Background(), server.URL+"/nope.jpg", &buf)
		require.Error(t, err)
		assert.True(t, errs.IsType(err, errs.ErrorTypeNotFound))
		assert.Zero(t, buf.Len())
	})

	t.Run("server error", func(t *testing.T) {
		var buf bytes.Buffer
		_, _, err := client.Download(context.Background(), server.URL+"/broken", &buf)
		require.Error(t, err)
		assert.True(t, errs.IsType(err, errs.ErrorTypeHTTPStatus))
	})
}

func TestIsGoodResponse(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	assert.False(t, IsGoodResponse(resp))

	resp.Header.Set("Content-Type", "application/xhtml+xml")
	assert.True(t, IsGoodResponse(resp))

	resp.StatusCode = 204
	assert.False(t, IsGoodResponse(resp))
}
