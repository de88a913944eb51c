package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/catalog-scraper/internal/database"
	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, b *database.Batch) error {
	args := m.Called(ctx, b)
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockStore) ClaimNext(ctx context.Context) (*database.Batch, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.Batch), args.Error(1)
}

func (m *MockStore) Complete(ctx context.Context, id uuid.UUID, result *models.BatchResult, event *database.OutboxEvent) error {
	return m.Called(ctx, id, result, event).Error(0)
}

func (m *MockStore) Fail(ctx context.Context, id uuid.UUID, reason string, event *database.OutboxEvent) error {
	return m.Called(ctx, id, reason, event).Error(0)
}

func (m *MockStore) Get(ctx context.Context, id uuid.UUID) (*database.Batch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.Batch), args.Error(1)
}

func (m *MockStore) List(ctx context.Context, limit int) ([]*database.Batch, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*database.Batch), args.Error(1)
}

func (m *MockStore) Assets(ctx context.Context, id uuid.UUID) ([]models.AssetRef, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AssetRef), args.Error(1)
}

type stubRunner struct {
	urls   []string
	result *models.BatchResult
}

func (s *stubRunner) Run(ctx context.Context, urls []string) *models.BatchResult {
	s.urls = urls
	return s.result
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func factoryFor(r Runner, seen *[]string) RunnerFactory {
	return func(strategy string) (Runner, error) {
		if seen != nil {
			*seen = append(*seen, strategy)
		}
		return r, nil
	}
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	m := NewManager(store, factoryFor(&stubRunner{}, nil), "", quietLogger())

	store.On("Create", ctx, mock.MatchedBy(func(b *database.Batch) bool {
		return b.Strategy == "http" && len(b.URLs) == 2 && b.URLs[1] == "https://domeggook.com/2"
	})).Return(nil)

	b, err := m.Submit(ctx, " https://domeggook.com/1 \n\n https://domeggook.com/2\n", "")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, b.ID)
	store.AssertExpectations(t)
}

func TestSubmitRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	m := NewManager(store, factoryFor(&stubRunner{}, nil), "http", quietLogger())

	_, err := m.Submit(ctx, "\n   \n", "http")
	assert.ErrorIs(t, err, ErrNoURLs)

	_, err = m.Submit(ctx, "https://domeggook.com/1", "selenium")
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestExtractRunsSynchronously(t *testing.T) {
	result := models.NewBatchResult()
	result.Records = append(result.Records, models.ProductRecord{Name: "책상"})
	runner := &stubRunner{result: result}
	var strategies []string

	m := NewManager(new(MockStore), factoryFor(runner, &strategies), "http", quietLogger())

	got, err := m.Extract(context.Background(), "https://domeggook.com/1", "SESSION")
	require.NoError(t, err)
	assert.Same(t, result, got)
	assert.Equal(t, []string{"https://domeggook.com/1"}, runner.urls)
	assert.Equal(t, []string{"session"}, strategies)
}

func TestGetWithInvalidID(t *testing.T) {
	store := new(MockStore)
	m := NewManager(store, nil, "", quietLogger())

	_, err := m.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, database.ErrBatchNotFound)

	_, err = m.Assets(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, database.ErrBatchNotFound)
}

func TestProcessNextCompletesBatch(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)

	result := models.NewBatchResult()
	result.Records = append(result.Records, models.ProductRecord{Name: "책상"})
	runner := &stubRunner{result: result}
	m := NewManager(store, factoryFor(runner, nil), "", quietLogger())

	b := &database.Batch{ID: uuid.New(), Strategy: "http", URLs: []string{"u1", "u2"}}
	store.On("ClaimNext", ctx).Return(b, nil).Once()
	store.On("Complete", ctx, b.ID, result, mock.MatchedBy(func(e *database.OutboxEvent) bool {
		var payload map[string]interface{}
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return false
		}
		return e.EventType == "BATCH_COMPLETED" && payload["records"] == float64(1)
	})).Return(nil)

	assert.True(t, m.processNext(ctx))
	assert.Equal(t, []string{"u1", "u2"}, runner.urls)
	store.AssertExpectations(t)
}

func TestProcessNextFailsBatchWhenPipelineCannotStart(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	m := NewManager(store, func(string) (Runner, error) {
		return nil, errors.New("missing credentials")
	}, "", quietLogger())

	b := &database.Batch{ID: uuid.New(), Strategy: "session", URLs: []string{"u1"}}
	store.On("ClaimNext", ctx).Return(b, nil).Once()
	store.On("Fail", mock.Anything, b.ID, "missing credentials", mock.MatchedBy(func(e *database.OutboxEvent) bool {
		return e.EventType == "BATCH_FAILED" && e.AggregateID == b.ID.String()
	})).Return(nil)

	assert.True(t, m.processNext(ctx))
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessNextWithNothingPending(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	m := NewManager(store, nil, "", quietLogger())

	store.On("ClaimNext", ctx).Return(nil, nil)
	assert.False(t, m.processNext(ctx))

	store2 := new(MockStore)
	m2 := NewManager(store2, nil, "", quietLogger())
	store2.On("ClaimNext", ctx).Return(nil, errors.New("db down"))
	assert.False(t, m2.processNext(ctx))
}

func TestStartWorkerStopsOnCancel(t *testing.T) {
	store := new(MockStore)
	m := NewManager(store, nil, "", quietLogger())
	store.On("ClaimNext", mock.Anything).Return(nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.StartWorker(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
