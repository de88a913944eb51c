// Package fetcher retrieves product page HTML, either with a plain HTTP GET or
// through a logged-in browser session.
package fetcher

import (
	"context"
	"errors"
	"fmt"
)

const (
	StrategyHTTP    = "http"
	StrategySession = "session"
)

var ErrMissingCredentials = errors.New("missing login credentials")

// Page is raw page content as fetched.
type Page struct {
	URL        string
	HTML       string
	StatusCode int
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
	Strategy() string
}

// FetchError is any failure to obtain a page: transport, timeout, non-2xx or
// session setup.
type FetchError struct {
	URL    string
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
