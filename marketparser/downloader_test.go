package marketparser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/giygas/kalimati-scraper/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetcherFor(url string, maxBody int64) *Fetcher {
	return NewFetcher(&config.Config{
		SourceURL:    url,
		UserAgent:    "kalimati-scraper-test",
		MaxBodySize:  maxBody,
		FetchTimeout: 5 * time.Second,
	}, testLogger())
}

func TestFetchParsesPage(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(sampleTable))
	}))
	defer server.Close()

	f := fetcherFor(server.URL, 1<<20)
	assert.Equal(t, server.URL, f.url)

	doc, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "kalimati-scraper-test", gotUA)

	rows, err := NewExtractor(testLogger()).Extract(doc)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestFetchDecodesDeclaredCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "Café" in Latin-1
		_, _ = w.Write([]byte("<table id=\"commodityDailyPrice\"><tr><th>Item</th></tr><tr><td>Caf\xe9</td></tr></table>"))
	}))
	defer server.Close()

	doc, err := fetcherFor(server.URL, 1<<20).Fetch(context.Background())
	require.NoError(t, err)

	rows, err := NewExtractor(testLogger()).Extract(doc)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	item, _ := rows[0].Get("Item")
	assert.Equal(t, "Café", item)
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		maxBody int64
		errText string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			maxBody: 1 << 20,
			errText: "unexpected status 500",
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			maxBody: 1 << 20,
			errText: "unexpected status 404",
		},
		{
			name: "body too large",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(strings.Repeat("x", 200)))
			},
			maxBody: 100,
			errText: "exceeds 100 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			doc, err := fetcherFor(server.URL, tt.maxBody).Fetch(context.Background())
			assert.Nil(t, doc)
			require.ErrorIs(t, err, ErrFetch)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := fetcherFor(url, 1<<20).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
}

func TestFetchCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleTable))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcherFor(server.URL, 1<<20).Fetch(ctx)
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, context.Canceled)
}
