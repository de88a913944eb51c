package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/maltedev/catalog-scraper/internal/batch"
	"github.com/maltedev/catalog-scraper/internal/database"
	"github.com/maltedev/catalog-scraper/internal/fetcher"
	"github.com/maltedev/catalog-scraper/internal/models"
)

const listLimit = 100

var (
	ErrNoURLs          = errors.New("no URLs provided")
	ErrUnknownStrategy = errors.New("unknown fetch strategy")
)

type Store interface {
	Create(ctx context.Context, b *database.Batch) error
	ClaimNext(ctx context.Context) (*database.Batch, error)
	Complete(ctx context.Context, id uuid.UUID, result *models.BatchResult, event *database.OutboxEvent) error
	Fail(ctx context.Context, id uuid.UUID, reason string, event *database.OutboxEvent) error
	Get(ctx context.Context, id uuid.UUID) (*database.Batch, error)
	List(ctx context.Context, limit int) ([]*database.Batch, error)
	Assets(ctx context.Context, id uuid.UUID) ([]models.AssetRef, error)
}

type Runner interface {
	Run(ctx context.Context, urls []string) *models.BatchResult
}

// RunnerFactory builds the pipeline for one fetch strategy.
type RunnerFactory func(strategy string) (Runner, error)

type Manager struct {
	store           Store
	runners         RunnerFactory
	defaultStrategy string
	logger          *slog.Logger
}

func NewManager(store Store, runners RunnerFactory, defaultStrategy string, logger *slog.Logger) *Manager {
	if defaultStrategy == "" {
		defaultStrategy = fetcher.StrategyHTTP
	}
	return &Manager{
		store:           store,
		runners:         runners,
		defaultStrategy: defaultStrategy,
		logger:          logger.With("component", "job_manager"),
	}
}

// Submit queues the URLs in input (one per line) for the worker.
func (m *Manager) Submit(ctx context.Context, input, strategy string) (*database.Batch, error) {
	urls, strategy, err := m.prepare(input, strategy)
	if err != nil {
		return nil, err
	}

	b := &database.Batch{Strategy: strategy, URLs: urls}
	if err := m.store.Create(ctx, b); err != nil {
		return nil, err
	}

	m.logger.Info("batch queued", "id", b.ID, "urls", len(urls), "strategy", strategy)
	return b, nil
}

// Extract runs a batch synchronously without storing it.
func (m *Manager) Extract(ctx context.Context, input, strategy string) (*models.BatchResult, error) {
	urls, strategy, err := m.prepare(input, strategy)
	if err != nil {
		return nil, err
	}

	runner, err := m.runners(strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	return runner.Run(ctx, urls), nil
}

func (m *Manager) Get(ctx context.Context, id string) (*database.Batch, error) {
	batchID, err := uuid.Parse(id)
	if err != nil {
		return nil, database.ErrBatchNotFound
	}
	return m.store.Get(ctx, batchID)
}

func (m *Manager) List(ctx context.Context) ([]*database.Batch, error) {
	return m.store.List(ctx, listLimit)
}

func (m *Manager) Assets(ctx context.Context, id string) ([]models.AssetRef, error) {
	batchID, err := uuid.Parse(id)
	if err != nil {
		return nil, database.ErrBatchNotFound
	}
	if _, err := m.store.Get(ctx, batchID); err != nil {
		return nil, err
	}
	return m.store.Assets(ctx, batchID)
}

func (m *Manager) prepare(input, strategy string) ([]string, string, error) {
	urls := batch.ParseURLList(input)
	if len(urls) == 0 {
		return nil, "", ErrNoURLs
	}

	strategy = strings.ToLower(strings.TrimSpace(strategy))
	if strategy == "" {
		strategy = m.defaultStrategy
	}
	if strategy != fetcher.StrategyHTTP && strategy != fetcher.StrategySession {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	return urls, strategy, nil
}
