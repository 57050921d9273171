package marketparser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/giygas/kalimati-scraper/config"
	"github.com/giygas/kalimati-scraper/interfaces"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ErrFetch wraps every failure to retrieve or parse the source page.
var ErrFetch = errors.New("failed to fetch the website")

// Compile-time check to ensure Fetcher implements PageFetcher interface
var _ interfaces.PageFetcher = (*Fetcher)(nil)

// Fetcher downloads the market page and parses it into an HTML tree.
type Fetcher struct {
	url         string
	userAgent   string
	maxBodySize int64
	client      *http.Client
	logger      *slog.Logger
}

// NewFetcher creates a Fetcher for cfg.SourceURL
func NewFetcher(cfg *config.Config, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		url:         cfg.SourceURL,
		userAgent:   cfg.UserAgent,
		maxBodySize: cfg.MaxBodySize,
		client: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		logger: logger,
	}
}

// Fetch performs a single GET of the source page. There is no retry.
func (f *Fetcher) Fetch(ctx context.Context) (*html.Node, error) {
	f.logger.Info("Fetching data", "url", f.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrFetch, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	response, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, f.url, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			f.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: unexpected status %d", ErrFetch, f.url, response.StatusCode)
	}

	// Read one byte past the limit so oversized pages are detected instead of truncated
	bodyBytes, err := io.ReadAll(io.LimitReader(response.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %w", ErrFetch, err)
	}
	if int64(len(bodyBytes)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: response body exceeds %d bytes", ErrFetch, f.maxBodySize)
	}

	// The page declares its encoding in the header or a meta tag; decode to UTF-8 before parsing
	reader, err := charset.NewReader(bytes.NewReader(bodyBytes), response.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: decode charset: %w", ErrFetch, err)
	}

	doc, err := html.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %w", ErrFetch, err)
	}

	f.logger.Debug("Page downloaded and parsed without errors", "bytes", len(bodyBytes))
	return doc, nil
}
