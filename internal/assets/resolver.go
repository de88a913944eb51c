// Package assets downloads product images and keeps their filenames unique
// within a batch.
package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/maltedev/catalog-scraper/internal/observability"
	"github.com/maltedev/catalog-scraper/internal/siteurl"
)

const maxImageBytes = 20 << 20

// AssetFetchError is the failure of a single image. It never affects other
// images or the record that references it.
type AssetFetchError struct {
	URL      string
	Filename string
	Reason   string
	Err      error
}

func (e *AssetFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("asset %s (%s): %s: %v", e.Filename, e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("asset %s (%s): %s", e.Filename, e.URL, e.Reason)
}

func (e *AssetFetchError) Unwrap() error {
	return e.Err
}

type Options struct {
	Timeout   time.Duration
	UserAgent string
	Origin    string
	Client    *http.Client
}

type Resolver struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	origin    string
	logger    *slog.Logger
}

func NewResolver(opts Options, logger *slog.Logger) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Origin == "" {
		opts.Origin = siteurl.DefaultOrigin
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}

	return &Resolver{
		client:    client,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		origin:    opts.Origin,
		logger:    logger.With("component", "asset_resolver"),
	}
}

// Resolve downloads every planned image independently and returns one
// AssetRef per request, in plan order. Failed downloads carry an
// *AssetFetchError. There are no retries.
func (r *Resolver) Resolve(ctx context.Context, plan []models.AssetRequest) []models.AssetRef {
	refs := make([]models.AssetRef, 0, len(plan))
	seen := make(map[string]bool, len(plan))

	for _, req := range plan {
		ref := models.AssetRef{
			SourceURL: siteurl.Absolute(req.URL, r.origin, ""),
			Filename:  req.Filename,
			Role:      req.Role,
		}

		if seen[req.Filename] {
			ref.Err = &AssetFetchError{URL: ref.SourceURL, Filename: req.Filename, Reason: "duplicate filename"}
		} else {
			seen[req.Filename] = true
			ref.Data, ref.Err = r.download(ctx, ref.SourceURL, req.Filename)
		}

		if ref.Err != nil {
			observability.AssetsDownloaded.WithLabelValues("failed").Inc()
			r.logger.Warn("image download failed", "filename", req.Filename, "url", ref.SourceURL, "error", ref.Err)
		} else {
			observability.AssetsDownloaded.WithLabelValues("ok").Inc()
		}

		refs = append(refs, ref)
	}

	return refs
}

func (r *Resolver) download(ctx context.Context, url, filename string) ([]byte, error) {
	fail := func(reason string, err error) error {
		return &AssetFetchError{URL: url, Filename: filename, Reason: reason, Err: err}
	}

	if url == "" {
		return nil, fail("empty url", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fail("invalid request", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	req.Header.Set("Referer", r.origin+"/")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fail("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fail("read body", err)
	}
	if len(data) > maxImageBytes {
		return nil, fail("image too large", nil)
	}
	if len(data) == 0 {
		return nil, fail("empty body", nil)
	}

	return data, nil
}
