package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maltedev/catalog-scraper/internal/models"
)

const (
	BatchStatusPending   = "pending"
	BatchStatusRunning   = "running"
	BatchStatusCompleted = "completed"
	BatchStatusFailed    = "failed"
)

var ErrBatchNotFound = errors.New("batch not found")

// Batch is one submitted URL list and, once processed, its outcome.
type Batch struct {
	ID           uuid.UUID              `json:"id"`
	Strategy     string                 `json:"strategy"`
	URLs         []string               `json:"urls"`
	Status       string                 `json:"status"`
	RecordCount  int                    `json:"record_count"`
	WarningCount int                    `json:"warning_count"`
	AssetCount   int                    `json:"asset_count"`
	Records      []models.ProductRecord `json:"records,omitempty"`
	Warnings     []models.Warning       `json:"warnings,omitempty"`
	Notice       string                 `json:"notice,omitempty"`
	Error        string                 `json:"error,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

type BatchRepository struct {
	db     *DB
	outbox *OutboxRepository
}

func NewBatchRepository(db *DB) *BatchRepository {
	return &BatchRepository{db: db, outbox: NewOutboxRepository(db)}
}

func (r *BatchRepository) Create(ctx context.Context, b *Batch) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = BatchStatusPending
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}

	urls, err := json.Marshal(b.URLs)
	if err != nil {
		return fmt.Errorf("failed to encode urls: %w", err)
	}

	_, err = r.db.pool.Exec(ctx, `
		INSERT INTO catalog_batch (id, strategy, urls, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.Strategy, urls, b.Status, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}

	return nil
}

// ClaimNext marks the oldest pending batch as running and returns it. It
// returns nil when nothing is pending. Concurrent workers never claim the
// same batch.
func (r *BatchRepository) ClaimNext(ctx context.Context) (*Batch, error) {
	var claimed *Batch

	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		b := &Batch{}
		var urls []byte
		err := tx.QueryRow(ctx, `
			SELECT id, strategy, urls, created_at
			FROM catalog_batch
			WHERE status = $1
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED`, BatchStatusPending,
		).Scan(&b.ID, &b.Strategy, &urls, &b.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to select pending batch: %w", err)
		}

		if err := json.Unmarshal(urls, &b.URLs); err != nil {
			return fmt.Errorf("failed to decode urls: %w", err)
		}

		now := time.Now()
		if _, err := tx.Exec(ctx,
			`UPDATE catalog_batch SET status = $1, started_at = $2 WHERE id = $3`,
			BatchStatusRunning, now, b.ID); err != nil {
			return fmt.Errorf("failed to mark batch running: %w", err)
		}

		b.Status = BatchStatusRunning
		b.StartedAt = &now
		claimed = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

// Complete stores the result, its images and the completion event in one
// transaction.
func (r *BatchRepository) Complete(ctx context.Context, id uuid.UUID, result *models.BatchResult, event *OutboxEvent) error {
	records, err := json.Marshal(result.Records)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	warnings, err := json.Marshal(result.Warnings)
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE catalog_batch
			SET status = $1, record_count = $2, warning_count = $3, asset_count = $4,
			    records = $5, warnings = $6, notice = $7, completed_at = $8
			WHERE id = $9`,
			BatchStatusCompleted, len(result.Records), len(result.Warnings), len(result.Assets),
			records, warnings, result.Notice, time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to update batch: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrBatchNotFound
		}

		for i, a := range result.Assets {
			if _, err := tx.Exec(ctx, `
				INSERT INTO catalog_batch_asset (batch_id, position, filename, role, source_url, data)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				id, i, a.Filename, string(a.Role), a.SourceURL, a.Data); err != nil {
				return fmt.Errorf("failed to store asset %s: %w", a.Filename, err)
			}
		}

		if event != nil {
			return r.outbox.InsertWithTx(ctx, tx, event)
		}
		return nil
	})
}

func (r *BatchRepository) Fail(ctx context.Context, id uuid.UUID, reason string, event *OutboxEvent) error {
	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE catalog_batch SET status = $1, error = $2, completed_at = $3 WHERE id = $4`,
			BatchStatusFailed, reason, time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to update batch: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrBatchNotFound
		}

		if event != nil {
			return r.outbox.InsertWithTx(ctx, tx, event)
		}
		return nil
	})
}

func (r *BatchRepository) Get(ctx context.Context, id uuid.UUID) (*Batch, error) {
	b := &Batch{}
	var urls, records, warnings []byte

	err := r.db.pool.QueryRow(ctx, `
		SELECT id, strategy, urls, status, record_count, warning_count, asset_count,
		       records, warnings, notice, error, created_at, started_at, completed_at
		FROM catalog_batch
		WHERE id = $1`, id,
	).Scan(
		&b.ID, &b.Strategy, &urls, &b.Status, &b.RecordCount, &b.WarningCount, &b.AssetCount,
		&records, &warnings, &b.Notice, &b.Error, &b.CreatedAt, &b.StartedAt, &b.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	if err := decodeJSON(urls, &b.URLs); err != nil {
		return nil, fmt.Errorf("failed to decode urls: %w", err)
	}
	if err := decodeJSON(records, &b.Records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	if err := decodeJSON(warnings, &b.Warnings); err != nil {
		return nil, fmt.Errorf("failed to decode warnings: %w", err)
	}

	return b, nil
}

// List returns batch summaries, newest first, without records or warnings.
func (r *BatchRepository) List(ctx context.Context, limit int) ([]*Batch, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, strategy, status, record_count, warning_count, asset_count,
		       notice, error, created_at, started_at, completed_at
		FROM catalog_batch
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	batches := make([]*Batch, 0)
	for rows.Next() {
		b := &Batch{}
		if err := rows.Scan(
			&b.ID, &b.Strategy, &b.Status, &b.RecordCount, &b.WarningCount, &b.AssetCount,
			&b.Notice, &b.Error, &b.CreatedAt, &b.StartedAt, &b.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return batches, nil
}

// Assets returns the stored images of a batch in download order.
func (r *BatchRepository) Assets(ctx context.Context, id uuid.UUID) ([]models.AssetRef, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT filename, role, source_url, data
		FROM catalog_batch_asset
		WHERE batch_id = $1
		ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get assets: %w", err)
	}
	defer rows.Close()

	var assets []models.AssetRef
	for rows.Next() {
		var a models.AssetRef
		var role string
		if err := rows.Scan(&a.Filename, &role, &a.SourceURL, &a.Data); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		a.Role = models.AssetRole(role)
		assets = append(assets, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return assets, nil
}

func decodeJSON(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
