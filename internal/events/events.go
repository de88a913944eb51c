// Package events builds the batch lifecycle events that the outbox relay
// publishes to Redis.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/catalog-scraper/internal/database"
	"github.com/maltedev/catalog-scraper/internal/models"
)

type EventType string

const (
	EventTypeBatchCompleted EventType = "BATCH_COMPLETED"
	EventTypeBatchFailed    EventType = "BATCH_FAILED"

	aggregateType = "batch"
)

type BatchPayload struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	BatchID   string         `json:"batch_id"`
	Strategy  string         `json:"strategy"`
	URLs      int            `json:"urls"`
	Records   int            `json:"records"`
	Assets    int            `json:"assets"`
	Warnings  map[string]int `json:"warnings,omitempty"`
	Notice    string         `json:"notice,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func BatchCompleted(batch *database.Batch, result *models.BatchResult) (*database.OutboxEvent, error) {
	payload := newPayload(EventTypeBatchCompleted, batch)
	payload.Records = len(result.Records)
	payload.Assets = len(result.Assets)
	payload.Notice = result.Notice
	if len(result.Warnings) > 0 {
		payload.Warnings = make(map[string]int)
		for _, w := range result.Warnings {
			payload.Warnings[string(w.Kind)]++
		}
	}
	return toOutbox(payload)
}

func BatchFailed(batch *database.Batch, cause error) (*database.OutboxEvent, error) {
	payload := newPayload(EventTypeBatchFailed, batch)
	payload.Error = cause.Error()
	return toOutbox(payload)
}

func newPayload(eventType EventType, batch *database.Batch) *BatchPayload {
	return &BatchPayload{
		EventID:   uuid.New().String(),
		EventType: string(eventType),
		Timestamp: time.Now(),
		BatchID:   batch.ID.String(),
		Strategy:  batch.Strategy,
		URLs:      len(batch.URLs),
	}
}

func toOutbox(payload *BatchPayload) (*database.OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return &database.OutboxEvent{
		AggregateType: aggregateType,
		AggregateID:   payload.BatchID,
		EventType:     payload.EventType,
		Payload:       data,
		TargetStream:  database.DefaultStream,
	}, nil
}
