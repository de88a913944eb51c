// Package pipeline assembles a batch runner from the process configuration.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/maltedev/catalog-scraper/internal/assets"
	"github.com/maltedev/catalog-scraper/internal/batch"
	"github.com/maltedev/catalog-scraper/internal/browser"
	"github.com/maltedev/catalog-scraper/internal/config"
	"github.com/maltedev/catalog-scraper/internal/fetcher"
	"github.com/maltedev/catalog-scraper/internal/parser"
)

// Build wires fetcher, parser and asset resolver for strategy. The session
// strategy is refused up front when no credentials are configured.
func Build(cfg *config.Config, strategy string, logger *slog.Logger, opts ...batch.Option) (*batch.Runner, error) {
	if strategy == "" {
		strategy = cfg.Fetch.Strategy
	}
	if strategy == fetcher.StrategySession && !cfg.HasCredentials() {
		return nil, fetcher.ErrMissingCredentials
	}

	f, err := fetcher.New(fetcher.Options{
		Strategy: strategy,
		HTTP: fetcher.HTTPOptions{
			Timeout:        cfg.Fetch.PageTimeout,
			UserAgent:      cfg.Fetch.UserAgent,
			AcceptLanguage: cfg.Fetch.AcceptLanguage,
		},
		Session: fetcher.SessionOptions{
			Browser:          BrowserOptions(cfg),
			LoginURL:         cfg.Site.LoginURL,
			UserSelector:     cfg.Site.UserSelector,
			PasswordSelector: cfg.Site.PasswordSelector,
			User:             cfg.Site.User,
			Password:         cfg.Site.Password,
			Settle:           cfg.Fetch.Settle,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	resolver := assets.NewResolver(assets.Options{
		Timeout:   cfg.Fetch.ImageTimeout,
		UserAgent: cfg.Fetch.UserAgent,
		Origin:    cfg.Site.Origin,
	}, logger)

	return batch.NewRunner(f, parser.NewDomeggookParser(cfg.Site.Origin), resolver, logger, opts...), nil
}

func BrowserOptions(cfg *config.Config) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Browser.Headless
	opts.Timeout = cfg.Browser.Timeout
	opts.ViewportWidth = cfg.Browser.ViewportWidth
	opts.ViewportHeight = cfg.Browser.ViewportHeight
	opts.TimezoneID = cfg.Browser.TimezoneID
	opts.Locale = cfg.Browser.Locale
	opts.UserAgent = cfg.Fetch.UserAgent
	opts.AcceptLanguage = cfg.Fetch.AcceptLanguage
	return opts
}
