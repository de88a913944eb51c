package fetcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/maltedev/catalog-scraper/internal/browser"
	"github.com/maltedev/catalog-scraper/internal/observability"
	"github.com/playwright-community/playwright-go"
)

type SessionOptions struct {
	Browser          *browser.Options
	LoginURL         string
	UserSelector     string
	PasswordSelector string
	User             string
	Password         string
	Settle           time.Duration
}

// session is one logged-in browser. Close must release every process it
// started.
type session interface {
	Login(form browser.LoginForm) error
	Render(url string, settle time.Duration) (string, error)
	Close() error
}

// SessionFetcher logs in through a real browser for every page. Each Fetch
// owns its browser from launch to teardown; nothing is shared between calls.
type SessionFetcher struct {
	opts   SessionOptions
	launch func() (session, error)
	logger *slog.Logger
}

func NewSessionFetcher(opts SessionOptions, logger *slog.Logger) *SessionFetcher {
	if opts.UserSelector == "" {
		opts.UserSelector = "#user_id"
	}
	if opts.PasswordSelector == "" {
		opts.PasswordSelector = "#user_pw"
	}
	if opts.Settle <= 0 {
		opts.Settle = 2 * time.Second
	}

	return &SessionFetcher{
		opts:   opts,
		launch: launchBrowser(opts.Browser),
		logger: logger.With("component", "session_fetcher"),
	}
}

func (f *SessionFetcher) Strategy() string {
	return StrategySession
}

func (f *SessionFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	page, err := f.fetch(ctx, url)
	if err != nil {
		observability.PagesFetched.WithLabelValues(StrategySession, "failed").Inc()
		return nil, err
	}
	observability.PagesFetched.WithLabelValues(StrategySession, "ok").Inc()
	return page, nil
}

func (f *SessionFetcher) fetch(ctx context.Context, url string) (*Page, error) {
	if f.opts.User == "" || f.opts.Password == "" {
		return nil, &FetchError{URL: url, Reason: "session setup", Err: ErrMissingCredentials}
	}
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: url, Reason: "cancelled", Err: err}
	}

	s, err := f.launch()
	if err != nil {
		return nil, &FetchError{URL: url, Reason: "launch browser", Err: err}
	}
	defer func() {
		if err := s.Close(); err != nil {
			f.logger.Warn("failed to close browser session", "url", url, "error", err)
		}
	}()

	if err := s.Login(browser.LoginForm{
		URL:              f.opts.LoginURL,
		UserSelector:     f.opts.UserSelector,
		PasswordSelector: f.opts.PasswordSelector,
		User:             f.opts.User,
		Password:         f.opts.Password,
		Settle:           f.opts.Settle,
	}); err != nil {
		return nil, &FetchError{URL: url, Reason: "login", Err: err}
	}

	html, err := s.Render(url, f.opts.Settle)
	if err != nil {
		return nil, &FetchError{URL: url, Reason: "render", Err: err}
	}

	return &Page{URL: url, HTML: html, StatusCode: 200}, nil
}

type browserSession struct {
	b    *browser.Browser
	page playwright.Page
}

func launchBrowser(opts *browser.Options) func() (session, error) {
	return func() (session, error) {
		var launchOpts *browser.Options
		if opts != nil {
			copied := *opts
			launchOpts = &copied
		}

		b, err := browser.New(launchOpts)
		if err != nil {
			return nil, err
		}
		page, err := b.NewPage()
		if err != nil {
			b.Close()
			return nil, err
		}
		return &browserSession{b: b, page: page}, nil
	}
}

func (s *browserSession) Login(form browser.LoginForm) error {
	return s.b.Login(s.page, form)
}

func (s *browserSession) Render(url string, settle time.Duration) (string, error) {
	return s.b.Render(s.page, url, settle)
}

func (s *browserSession) Close() error {
	return s.b.Close()
}
