package handler

import (
	"net/http"
	"time"

	"tillsync/internal/apierror"
	"tillsync/internal/dto"
	"tillsync/internal/infra"
	"tillsync/internal/model"
	"tillsync/internal/repository"
	"tillsync/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SyncHandler exposes the state of the background sync machinery to the UI:
// queue depth, circuit state, pull cursors, and the failed-entry dead letter
// list with manual retry.
type SyncHandler struct {
	queue   repository.QueueRepository
	cursors repository.CursorRepository
	flusher *worker.Flusher
	puller  *worker.Puller
	cb      *infra.CircuitBreaker
}

func NewSyncHandler(queue repository.QueueRepository, cursors repository.CursorRepository, flusher *worker.Flusher, puller *worker.Puller, cb *infra.CircuitBreaker) *SyncHandler {
	return &SyncHandler{queue: queue, cursors: cursors, flusher: flusher, puller: puller, cb: cb}
}

func (h *SyncHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	resp := dto.SyncStatusResponse{
		Degraded:     h.flusher.Degraded(),
		CircuitState: h.cb.State().String(),
	}

	counts := map[string]*int64{
		model.QueuePending:  &resp.Pending,
		model.QueueInFlight: &resp.InFlight,
		model.QueueFailed:   &resp.Failed,
		model.QueueSynced:   &resp.Synced,
	}
	for status, dest := range counts {
		n, err := h.queue.CountByStatus(ctx, status)
		if err != nil {
			c.Error(err)
			return
		}
		*dest = n
	}

	cursors, err := h.cursors.List(ctx)
	if err != nil {
		c.Error(err)
		return
	}
	resp.Cursors = make([]dto.CursorStatus, 0, len(cursors))
	for _, cur := range cursors {
		resp.Cursors = append(resp.Cursors, dto.CursorStatus{
			EntityType:   cur.EntityType,
			LastSyncedAt: cur.LastSyncedAt.UTC().Format(time.RFC3339Nano),
			LastSyncedID: cur.LastSyncedID,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SyncHandler) ListFailed(c *gin.Context) {
	entries, err := h.queue.ListByStatus(c.Request.Context(), model.QueueFailed, 200)
	if err != nil {
		c.Error(err)
		return
	}
	out := make([]dto.FailedEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.FailedEntryResponse{
			ID:           e.ID.String(),
			EntityType:   e.EntityType,
			Operation:    e.Operation,
			AttemptCount: e.AttemptCount,
			LastError:    e.LastError,
			CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// RetryFailed returns a dead-lettered entry to pending with a fresh attempt
// budget. The flusher picks it up on its next tick.
func (h *SyncHandler) RetryFailed(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid queue entry id"))
		return
	}
	entry, err := h.queue.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("queue entry not found"))
		return
	}
	if entry.Status != model.QueueFailed {
		c.JSON(http.StatusConflict, apierror.New("queue entry is not in failed state"))
		return
	}
	if err := h.queue.RetryFailed(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "entry requeued"})
}

// Pull triggers an immediate catalog refresh across all reference types.
func (h *SyncHandler) Pull(c *gin.Context) {
	upserted := h.puller.PullAll(c.Request.Context())
	c.JSON(http.StatusOK, dto.PullResultResponse{Upserted: upserted})
}

// Flush runs one drain pass immediately instead of waiting for the next tick.
func (h *SyncHandler) Flush(c *gin.Context) {
	h.flusher.FlushOnce(c.Request.Context())
	pending, err := h.queue.CountByStatus(c.Request.Context(), model.QueuePending)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}
