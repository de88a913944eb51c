// Package batch runs the fetch, extract, normalize and download pipeline over
// a list of product URLs, one URL at a time.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maltedev/catalog-scraper/internal/assets"
	"github.com/maltedev/catalog-scraper/internal/fetcher"
	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/maltedev/catalog-scraper/internal/normalize"
	"github.com/maltedev/catalog-scraper/internal/observability"
	"github.com/maltedev/catalog-scraper/internal/parser"
)

const NoticeEmptyInput = "no URLs provided"

type AssetResolver interface {
	Resolve(ctx context.Context, plan []models.AssetRequest) []models.AssetRef
}

// ProgressFunc is called after each URL with the number of URLs done so far.
type ProgressFunc func(done, total int, url string)

type Option func(*Runner)

func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

type Runner struct {
	fetcher  fetcher.Fetcher
	parser   parser.Parser
	resolver AssetResolver
	progress ProgressFunc
	logger   *slog.Logger
}

func NewRunner(f fetcher.Fetcher, p parser.Parser, resolver AssetResolver, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		fetcher:  f,
		parser:   p,
		resolver: resolver,
		logger:   logger.With("component", "batch"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ParseURLList splits newline-separated input, trimming each line and
// dropping blank ones.
func ParseURLList(input string) []string {
	var urls []string
	for _, line := range strings.Split(input, "\n") {
		if u := strings.TrimSpace(line); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Run processes urls in order and always returns a result. Failures of one
// URL or one image become warnings and never stop the batch; a cancelled ctx
// stops it before the next URL.
func (r *Runner) Run(ctx context.Context, urls []string) *models.BatchResult {
	result := models.NewBatchResult()

	var pending []string
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			pending = append(pending, u)
		}
	}
	if len(pending) == 0 {
		result.Notice = NoticeEmptyInput
		return result
	}

	start := time.Now()
	defer func() {
		observability.BatchDuration.Observe(time.Since(start).Seconds())
	}()

	r.logger.Info("batch started", "urls", len(pending), "strategy", r.fetcher.Strategy())

	names := assets.NewNameRegistry()
	filenames := make(map[string]bool)

	for i, u := range pending {
		if err := ctx.Err(); err != nil {
			for _, skipped := range pending[i:] {
				result.Warn(models.WarningError, skipped, fmt.Sprintf("batch cancelled: %v", err))
			}
			break
		}

		r.processURL(ctx, u, names, filenames, result)

		if r.progress != nil {
			r.progress(i+1, len(pending), u)
		}
	}

	r.logger.Info("batch finished",
		"records", len(result.Records),
		"assets", len(result.Assets),
		"warnings", len(result.Warnings),
		"duration", time.Since(start),
	)

	return result
}

// processURL appends to result only once the URL has been fully handled, so a
// failure part way through leaves nothing behind but its warning.
func (r *Runner) processURL(ctx context.Context, url string, names *assets.NameRegistry, filenames map[string]bool, result *models.BatchResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("url processing panicked", "url", url, "panic", rec)
			result.Warn(models.WarningError, url, fmt.Sprintf("unexpected failure: %v", rec))
		}
	}()

	page, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		r.logger.Error("failed to fetch page", "url", url, "error", err)
		kind := models.WarningError
		var fetchErr *fetcher.FetchError
		if errors.As(err, &fetchErr) {
			kind = models.WarningFetch
		}
		result.Warn(kind, url, err.Error())
		return
	}

	doc, err := parser.Parse(url, page.HTML)
	if err != nil {
		r.logger.Error("failed to parse page", "url", url, "error", err)
		result.Warn(models.WarningError, url, err.Error())
		return
	}

	raw, extractErrs := r.parser.Extract(doc)
	for _, e := range extractErrs {
		r.logger.Warn("field fell back to default", "url", url, "field", e.Field, "error", e.Cause)
		result.Warn(models.WarningExtraction, url, e.Error())
	}

	if err := normalize.Validate(raw); err != nil {
		r.logger.Warn("skipping product", "url", url, "reason", err)
		observability.ProductsSkipped.Inc()
		result.Warn(models.WarningSkip, url, err.Error())
		return
	}

	stem := names.Claim(normalize.Stem(raw.Title))
	records, plan, err := normalize.NormalizeWithStem(url, raw, stem)
	if err != nil {
		result.Warn(models.WarningError, url, err.Error())
		return
	}

	refs := r.resolver.Resolve(ctx, plan)

	result.Records = append(result.Records, records...)
	observability.RecordsEmitted.Add(float64(len(records)))

	for _, ref := range refs {
		switch {
		case !ref.OK():
			result.Warn(models.WarningAsset, ref.Filename, ref.Err.Error())
		case filenames[ref.Filename]:
			result.Warn(models.WarningAsset, ref.Filename, "duplicate filename in batch")
		default:
			filenames[ref.Filename] = true
			result.Assets = append(result.Assets, ref)
		}
	}

	r.logger.Info("product extracted",
		"url", url,
		"title", raw.Title,
		"records", len(records),
		"images", len(refs),
	)
}
