package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/maltedev/catalog-scraper/internal/database"
	"github.com/maltedev/catalog-scraper/internal/events"
)

// StartWorker processes queued batches one at a time until ctx is cancelled.
func (m *Manager) StartWorker(ctx context.Context, interval time.Duration) {
	m.logger.Info("job worker started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("job worker stopping")
			return
		case <-ticker.C:
			for m.processNext(ctx) {
				if ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// processNext claims and runs one pending batch. It reports whether a batch
// was claimed.
func (m *Manager) processNext(ctx context.Context) bool {
	b, err := m.store.ClaimNext(ctx)
	if err != nil {
		m.logger.Error("failed to claim batch", "error", err)
		return false
	}
	if b == nil {
		return false
	}

	m.logger.Info("processing batch", "id", b.ID, "urls", len(b.URLs), "strategy", b.Strategy)

	if err := m.process(ctx, b); err != nil {
		m.logger.Error("batch failed", "id", b.ID, "error", err)
		m.fail(b, err)
		return true
	}

	m.logger.Info("batch completed", "id", b.ID)
	return true
}

func (m *Manager) process(ctx context.Context, b *database.Batch) error {
	runner, err := m.runners(b.Strategy)
	if err != nil {
		return err
	}

	result := runner.Run(ctx, b.URLs)
	if err := ctx.Err(); err != nil {
		return errors.New("interrupted by shutdown")
	}

	event, err := events.BatchCompleted(b, result)
	if err != nil {
		return err
	}

	return m.store.Complete(ctx, b.ID, result, event)
}

// fail records the failure with a fresh context so it survives shutdown.
func (m *Manager) fail(b *database.Batch, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	event, err := events.BatchFailed(b, cause)
	if err != nil {
		m.logger.Error("failed to build failure event", "id", b.ID, "error", err)
	}

	if err := m.store.Fail(ctx, b.ID, cause.Error(), event); err != nil {
		m.logger.Error("failed to mark batch as failed", "id", b.ID, "error", err)
	}
}
