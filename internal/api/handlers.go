package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/maltedev/catalog-scraper/internal/database"
	"github.com/maltedev/catalog-scraper/internal/export"
	"github.com/maltedev/catalog-scraper/internal/jobs"
	"github.com/maltedev/catalog-scraper/internal/models"
)

type BatchService interface {
	Submit(ctx context.Context, input, strategy string) (*database.Batch, error)
	Extract(ctx context.Context, input, strategy string) (*models.BatchResult, error)
	Get(ctx context.Context, id string) (*database.Batch, error)
	List(ctx context.Context) ([]*database.Batch, error)
	Assets(ctx context.Context, id string) ([]models.AssetRef, error)
}

type BacklogReporter interface {
	Backlog(ctx context.Context) (database.Backlog, error)
}

type Handlers struct {
	batches BatchService
	backlog BacklogReporter
	logger  *slog.Logger
}

func NewHandlers(batches BatchService, backlog BacklogReporter, logger *slog.Logger) *Handlers {
	return &Handlers{
		batches: batches,
		backlog: backlog,
		logger:  logger.With("component", "api"),
	}
}

// BatchRequest carries newline-separated product URLs.
type BatchRequest struct {
	URLs     string `json:"urls"`
	Strategy string `json:"strategy"`
}

type CreateBatchResponse struct {
	BatchID string `json:"batch_id"`
	Status  string `json:"status"`
	URLs    int    `json:"urls"`
}

func (h *Handlers) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b, err := h.batches.Submit(r.Context(), req.URLs, req.Strategy)
	if err != nil {
		if isInputError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create batch", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create batch")
		return
	}

	h.respondJSON(w, http.StatusCreated, CreateBatchResponse{
		BatchID: b.ID.String(),
		Status:  b.Status,
		URLs:    len(b.URLs),
	})
}

func (h *Handlers) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.batches.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list batches", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list batches")
		return
	}

	h.respondJSON(w, http.StatusOK, batches)
}

func (h *Handlers) GetBatch(w http.ResponseWriter, r *http.Request) {
	b, ok := h.loadBatch(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, b)
}

func (h *Handlers) DownloadWorkbook(w http.ResponseWriter, r *http.Request) {
	b, ok := h.loadCompletedBatch(w, r)
	if !ok {
		return
	}

	setAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.WorkbookName(finishedAt(b)))
	if err := export.WriteWorkbook(w, b.Records); err != nil {
		h.logger.Error("failed to write workbook", "id", b.ID, "error", err)
	}
}

func (h *Handlers) DownloadImages(w http.ResponseWriter, r *http.Request) {
	b, ok := h.loadCompletedBatch(w, r)
	if !ok {
		return
	}

	assets, err := h.batches.Assets(r.Context(), b.ID.String())
	if err != nil {
		h.logger.Error("failed to load assets", "id", b.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load images")
		return
	}

	setAttachment(w, "application/zip", export.BundleName(finishedAt(b)))
	if err := export.WriteImageBundle(w, assets); err != nil {
		h.logger.Error("failed to write image bundle", "id", b.ID, "error", err)
	}
}

// Extract runs a batch inline and returns its records and warnings. Image
// bytes are not included.
func (h *Handlers) Extract(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.batches.Extract(r.Context(), req.URLs, req.Strategy)
	if err != nil {
		if isInputError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("extraction failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{"status": "ok"}
	status := http.StatusOK

	if h.backlog != nil {
		backlog, err := h.backlog.Backlog(r.Context())
		if err != nil {
			health["status"] = "error"
			health["message"] = "outbox unavailable"
			status = http.StatusServiceUnavailable
		} else {
			health["outbox"] = backlog
			if backlog.Pending > 1000 {
				health["status"] = "warning"
				health["message"] = "High number of pending outbox events"
			}
			if backlog.DeadLetter > 100 {
				health["status"] = "error"
				health["message"] = "High number of dead letter events"
				status = http.StatusServiceUnavailable
			}
		}
	}

	h.respondJSON(w, status, health)
}

func (h *Handlers) loadBatch(w http.ResponseWriter, r *http.Request) (*database.Batch, bool) {
	b, err := h.batches.Get(r.Context(), chi.URLParam(r, "batchID"))
	if errors.Is(err, database.ErrBatchNotFound) {
		h.respondError(w, http.StatusNotFound, "batch not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to get batch", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get batch")
		return nil, false
	}
	return b, true
}

func (h *Handlers) loadCompletedBatch(w http.ResponseWriter, r *http.Request) (*database.Batch, bool) {
	b, ok := h.loadBatch(w, r)
	if !ok {
		return nil, false
	}
	if b.Status != database.BatchStatusCompleted {
		h.respondError(w, http.StatusConflict, fmt.Sprintf("batch is %s", b.Status))
		return nil, false
	}
	return b, true
}

func isInputError(err error) bool {
	return errors.Is(err, jobs.ErrNoURLs) || errors.Is(err, jobs.ErrUnknownStrategy)
}

func finishedAt(b *database.Batch) time.Time {
	if b.CompletedAt != nil {
		return *b.CompletedAt
	}
	return b.CreatedAt
}

func setAttachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
