package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"tillsync/internal/infra"
	"tillsync/internal/model"
	"tillsync/internal/repository"

	"github.com/rs/zerolog/log"
)

// Backend is the slice of the backend client the flusher needs.
type Backend interface {
	Submit(ctx context.Context, entityType string, payload []byte, idempotencyKey string) (*infra.SubmitResult, error)
}

// FlusherConfig holds the drain policy knobs.
type FlusherConfig struct {
	TickInterval     time.Duration
	BatchSize        int
	MaxAttempts      int
	BackoffBase      time.Duration
	BackoffCap       time.Duration
	BacklogThreshold int
	Retention        time.Duration
}

// DefaultFlusherConfig matches the documented defaults: 10 attempts, 2s base
// backoff capped at 5m, 7-day retention for synced entries.
func DefaultFlusherConfig() FlusherConfig {
	return FlusherConfig{
		TickInterval:     5 * time.Second,
		BatchSize:        50,
		MaxAttempts:      10,
		BackoffBase:      2 * time.Second,
		BackoffCap:       5 * time.Minute,
		BacklogThreshold: 200,
		Retention:        7 * 24 * time.Hour,
	}
}

// Flusher is the single background drain of the mutation queue. One instance
// runs per terminal and holds at most one submission in flight, so entries
// leave in exactly the order they were created — a cash movement can never
// overtake the session open that created its session.
type Flusher struct {
	queue    repository.QueueRepository
	backend  Backend
	cb       *infra.CircuitBreaker
	cfg      FlusherConfig
	degraded atomic.Bool
}

func NewFlusher(queue repository.QueueRepository, backend Backend, cb *infra.CircuitBreaker, cfg FlusherConfig) *Flusher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2 * time.Second
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 5 * time.Minute
	}
	return &Flusher{queue: queue, backend: backend, cb: cb, cfg: cfg}
}

// Degraded reports whether the pending backlog exceeds the threshold.
// Enqueues still succeed in this state; the UI shows a warning instead.
func (f *Flusher) Degraded() bool { return f.degraded.Load() }

// Recover returns entries stranded in_flight by a crash to pending. The
// attempt may have reached the backend before the process died; the
// idempotency key makes the re-send safe, so non-delivery is assumed.
func (f *Flusher) Recover(ctx context.Context) error {
	n, err := f.queue.RequeueInFlight(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Warn().Int64("count", n).Msg("flusher: requeued in-flight entries after restart")
	}
	return nil
}

// StartFlusher launches the drain loop. It respects ctx for graceful
// shutdown; a cancelled tick leaves every entry in a committed state.
func StartFlusher(ctx context.Context, f *Flusher) {
	go func() {
		ticker := time.NewTicker(f.cfg.TickInterval)
		defer ticker.Stop()

		log.Info().Dur("tick", f.cfg.TickInterval).Msg("flusher: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("flusher: shutting down")
				return
			case <-ticker.C:
				f.FlushOnce(ctx)
			}
		}
	}()
}

// FlushOnce drains as much of the queue as the backend accepts right now.
// Exposed for the manual-flush endpoint and tests.
func (f *Flusher) FlushOnce(ctx context.Context) {
	f.refreshDegraded(ctx)
	f.purgeSynced(ctx)

	// Don't hammer a downed backend
	if f.cb.State() == infra.CBOpen {
		log.Debug().Msg("flusher: circuit breaker open, skipping tick")
		return
	}

	entries, err := f.queue.ListPending(ctx, "", f.cfg.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("flusher: failed to list pending entries")
		return
	}

	now := time.Now()
	for i := range entries {
		if ctx.Err() != nil {
			return
		}
		entry := &entries[i]

		// Entries drain strictly oldest-first. A head entry still inside its
		// backoff window blocks the tick: sending a later entry first would
		// break the creation-order guarantee.
		if entry.NextAttemptAt != nil && entry.NextAttemptAt.After(now) {
			return
		}

		if !f.submit(ctx, entry) {
			return
		}
	}
}

// submit pushes one entry. Returns false when the tick should stop (backend
// unreachable or ordering would be violated by continuing).
func (f *Flusher) submit(ctx context.Context, entry *model.QueueEntry) bool {
	if err := f.queue.MarkInFlight(ctx, entry.ID); err != nil {
		log.Error().Err(err).Str("entry_id", entry.ID.String()).Msg("flusher: mark in-flight failed")
		return false
	}

	var result *infra.SubmitResult
	cbErr := f.cb.Execute(func() error {
		r, err := f.backend.Submit(ctx, entry.EntityType, entry.Payload, entry.IdempotencyKey)
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	switch {
	case cbErr == nil:
		if err := f.queue.MarkSynced(ctx, entry.ID); err != nil {
			log.Error().Err(err).Str("entry_id", entry.ID.String()).Msg("flusher: mark synced failed")
			return false
		}
		ev := log.Info().
			Str("entry_id", entry.ID.String()).
			Str("entity_type", entry.EntityType).
			Int("attempts", entry.AttemptCount+1)
		if result != nil && result.Duplicate {
			ev = ev.Bool("duplicate", true)
		}
		ev.Msg("flusher: entry synced")
		return true

	case errors.Is(cbErr, infra.ErrCircuitOpen):
		// Breaker tripped between the tick check and this call. Return the
		// entry without consuming an attempt.
		_ = f.queue.Requeue(ctx, entry.ID)
		return false

	case infra.IsTransient(cbErr):
		attempt := entry.AttemptCount + 1
		if attempt >= f.cfg.MaxAttempts {
			_ = f.queue.MarkFailed(ctx, entry.ID, cbErr.Error())
			log.Error().
				Str("entry_id", entry.ID.String()).
				Str("entity_type", entry.EntityType).
				Int("attempts", attempt).
				Msg("flusher: attempt ceiling reached, entry failed")
			// A permanently failed head no longer blocks entries behind it,
			// but the backend just timed out — stop this tick anyway.
			return false
		}
		delay := backoffDelay(attempt, f.cfg.BackoffBase, f.cfg.BackoffCap)
		_ = f.queue.MarkRetry(ctx, entry.ID, cbErr.Error(), time.Now().Add(delay))
		log.Warn().
			Str("entry_id", entry.ID.String()).
			Str("entity_type", entry.EntityType).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("flusher: transient failure, retry scheduled")
		return false

	default:
		// Permanent rejection: terminal, surfaced to the operator via
		// /v1/sync/failed, never auto-retried.
		_ = f.queue.MarkFailed(ctx, entry.ID, cbErr.Error())
		log.Error().
			Str("entry_id", entry.ID.String()).
			Str("entity_type", entry.EntityType).
			Err(cbErr).
			Msg("flusher: permanent rejection, entry failed")
		return true
	}
}

func (f *Flusher) refreshDegraded(ctx context.Context) {
	if f.cfg.BacklogThreshold <= 0 {
		return
	}
	backlog, err := f.queue.CountByStatus(ctx, model.QueuePending)
	if err != nil {
		return
	}
	was := f.degraded.Swap(backlog > int64(f.cfg.BacklogThreshold))
	if !was && backlog > int64(f.cfg.BacklogThreshold) {
		log.Warn().Int64("backlog", backlog).Msg("flusher: backlog above threshold, degraded mode on")
	} else if was && backlog <= int64(f.cfg.BacklogThreshold) {
		log.Info().Int64("backlog", backlog).Msg("flusher: backlog recovered, degraded mode off")
	}
}

func (f *Flusher) purgeSynced(ctx context.Context) {
	if f.cfg.Retention <= 0 {
		return
	}
	n, err := f.queue.PurgeSynced(ctx, time.Now().Add(-f.cfg.Retention))
	if err != nil {
		log.Error().Err(err).Msg("flusher: purge failed")
		return
	}
	if n > 0 {
		log.Debug().Int64("purged", n).Msg("flusher: purged synced entries past retention")
	}
}
