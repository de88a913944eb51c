package fetcher

import (
	"fmt"
	"log/slog"
)

type Options struct {
	Strategy string
	HTTP     HTTPOptions
	Session  SessionOptions
}

// New returns the fetcher for the named strategy.
func New(opts Options, logger *slog.Logger) (Fetcher, error) {
	switch opts.Strategy {
	case "", StrategyHTTP:
		return NewHTTPFetcher(opts.HTTP, logger), nil
	case StrategySession:
		return NewSessionFetcher(opts.Session, logger), nil
	default:
		return nil, fmt.Errorf("unknown fetch strategy %q", opts.Strategy)
	}
}
