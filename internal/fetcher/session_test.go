package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maltedev/catalog-scraper/internal/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSession struct {
	mock.Mock
}

func (m *mockSession) Login(form browser.LoginForm) error {
	return m.Called(form).Error(0)
}

func (m *mockSession) Render(url string, settle time.Duration) (string, error) {
	args := m.Called(url, settle)
	return args.String(0), args.Error(1)
}

func (m *mockSession) Close() error {
	return m.Called().Error(0)
}

func newTestSessionFetcher(s session, launchErr error) *SessionFetcher {
	f := NewSessionFetcher(SessionOptions{
		LoginURL: "https://domeggook.com/login",
		User:     "buyer",
		Password: "secret",
		Settle:   time.Millisecond,
	}, testLogger())
	f.launch = func() (session, error) {
		if launchErr != nil {
			return nil, launchErr
		}
		return s, nil
	}
	return f
}

func TestSessionFetcherSuccess(t *testing.T) {
	s := &mockSession{}
	s.On("Login", mock.MatchedBy(func(form browser.LoginForm) bool {
		return form.User == "buyer" && form.Password == "secret" &&
			form.UserSelector == "#user_id" && form.PasswordSelector == "#user_pw"
	})).Return(nil)
	s.On("Render", "https://domeggook.com/1", time.Millisecond).Return("<html>item</html>", nil)
	s.On("Close").Return(nil)

	page, err := newTestSessionFetcher(s, nil).Fetch(context.Background(), "https://domeggook.com/1")
	require.NoError(t, err)
	assert.Equal(t, "<html>item</html>", page.HTML)
	s.AssertExpectations(t)
}

func TestSessionFetcherReleasesOnLoginFailure(t *testing.T) {
	s := &mockSession{}
	s.On("Login", mock.Anything).Return(errors.New("login form not found"))
	s.On("Close").Return(nil)

	_, err := newTestSessionFetcher(s, nil).Fetch(context.Background(), "https://domeggook.com/1")

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "login", fetchErr.Reason)
	s.AssertCalled(t, "Close")
	s.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestSessionFetcherReleasesOnRenderFailure(t *testing.T) {
	s := &mockSession{}
	s.On("Login", mock.Anything).Return(nil)
	s.On("Render", mock.Anything, mock.Anything).Return("", errors.New("timeout"))
	s.On("Close").Return(errors.New("already closed"))

	_, err := newTestSessionFetcher(s, nil).Fetch(context.Background(), "https://domeggook.com/1")

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "render", fetchErr.Reason)
	s.AssertCalled(t, "Close")
}

func TestSessionFetcherLaunchFailure(t *testing.T) {
	_, err := newTestSessionFetcher(nil, errors.New("no chromium")).Fetch(context.Background(), "https://domeggook.com/1")

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "launch browser", fetchErr.Reason)
}

func TestSessionFetcherMissingCredentials(t *testing.T) {
	f := NewSessionFetcher(SessionOptions{User: "buyer"}, testLogger())
	launched := false
	f.launch = func() (session, error) {
		launched = true
		return nil, errors.New("unreachable")
	}

	_, err := f.Fetch(context.Background(), "https://domeggook.com/1")

	assert.True(t, errors.Is(err, ErrMissingCredentials))
	assert.False(t, launched)
}
