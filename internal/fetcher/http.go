package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/maltedev/catalog-scraper/internal/observability"
)

const maxPageBytes = 8 << 20

type HTTPOptions struct {
	Timeout        time.Duration
	UserAgent      string
	AcceptLanguage string
	Client         *http.Client
}

// HTTPFetcher issues a single stateless GET per page.
type HTTPFetcher struct {
	client         *http.Client
	timeout        time.Duration
	userAgent      string
	acceptLanguage string
	logger         *slog.Logger
}

func NewHTTPFetcher(opts HTTPOptions, logger *slog.Logger) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}

	return &HTTPFetcher{
		client:         client,
		timeout:        opts.Timeout,
		userAgent:      opts.UserAgent,
		acceptLanguage: opts.AcceptLanguage,
		logger:         logger.With("component", "http_fetcher"),
	}
}

func (f *HTTPFetcher) Strategy() string {
	return StrategyHTTP
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	page, err := f.fetch(ctx, url)
	if err != nil {
		observability.PagesFetched.WithLabelValues(StrategyHTTP, "failed").Inc()
		return nil, err
	}
	observability.PagesFetched.WithLabelValues(StrategyHTTP, "ok").Inc()
	return page, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, url string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Reason: "invalid request", Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if f.acceptLanguage != "" {
		req.Header.Set("Accept-Language", f.acceptLanguage)
	}

	f.logger.Debug("fetching page", "url", url)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes+1))
	if err != nil {
		return nil, &FetchError{URL: url, Reason: "read body", Err: err}
	}
	if len(body) > maxPageBytes {
		return nil, &FetchError{URL: url, Reason: "page too large"}
	}

	return &Page{URL: url, HTML: string(body), StatusCode: resp.StatusCode}, nil
}
