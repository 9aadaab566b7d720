package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"tillsync/internal/infra"
	"tillsync/internal/model"
	"tillsync/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// PullBackend is the slice of the backend client the puller needs.
type PullBackend interface {
	FetchPage(ctx context.Context, entityType string, since time.Time, sinceID int64, limit int) (*infra.Page, error)
}

// ErrPullInProgress is returned when a pull for the same entity type is
// already running. Different entity types pull concurrently.
var ErrPullInProgress = errors.New("pull already in progress for this entity type")

// Puller incrementally refreshes the local reference mirrors. Each page is
// upserted and its cursor advanced inside ONE transaction, so a crash mid-page
// replays that page from the previous cursor — upserts make the replay
// idempotent and the cursor can never point past uncommitted data.
type Puller struct {
	db       *gorm.DB
	catalog  repository.CatalogRepository
	cursors  repository.CursorRepository
	backend  PullBackend
	cb       *infra.CircuitBreaker
	pageSize int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPuller(db *gorm.DB, catalog repository.CatalogRepository, cursors repository.CursorRepository, backend PullBackend, cb *infra.CircuitBreaker, pageSize int) *Puller {
	if pageSize <= 0 {
		pageSize = 200
	}
	return &Puller{
		db:       db,
		catalog:  catalog,
		cursors:  cursors,
		backend:  backend,
		cb:       cb,
		pageSize: pageSize,
		locks:    make(map[string]*sync.Mutex),
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// StartPuller launches the periodic refresh loop.
func StartPuller(ctx context.Context, p *Puller, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("puller: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("puller: shutting down")
				return
			case <-ticker.C:
				p.PullAll(ctx)
			}
		}
	}()
}

// PullAll refreshes every reference entity type, returning upsert counts per
// type. Failures are logged per type and do not stop the others.
func (p *Puller) PullAll(ctx context.Context) map[string]int {
	counts := make(map[string]int, len(model.ReferenceTypes))
	for _, entityType := range model.ReferenceTypes {
		if ctx.Err() != nil {
			return counts
		}
		n, err := p.Pull(ctx, entityType)
		if err != nil {
			if !errors.Is(err, ErrPullInProgress) {
				log.Warn().Str("entity_type", entityType).Err(err).Msg("puller: pull failed")
			}
			continue
		}
		counts[entityType] = n
		if n > 0 {
			log.Info().Str("entity_type", entityType).Int("upserted", n).Msg("puller: refreshed")
		}
	}
	return counts
}

// Pull fetches every delta page for one entity type and returns the number
// of upserted records.
func (p *Puller) Pull(ctx context.Context, entityType string) (int, error) {
	lock := p.typeLock(entityType)
	if !lock.TryLock() {
		return 0, ErrPullInProgress
	}
	defer lock.Unlock()

	if p.cb != nil && p.cb.State() == infra.CBOpen {
		return 0, infra.ErrCircuitOpen
	}

	cursor, err := p.cursors.Get(ctx, entityType)
	if err != nil {
		return 0, fmt.Errorf("pull %s: read cursor: %w", entityType, err)
	}
	since, sinceID := cursor.LastSyncedAt, cursor.LastSyncedID

	total := 0
	for {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		page, err := p.fetchPage(ctx, entityType, since, sinceID)
		if err != nil {
			return total, err
		}
		if len(page.Records) == 0 {
			return total, nil
		}

		last := page.Records[len(page.Records)-1]
		err = runTx(ctx, p.db, func(tx *gorm.DB) error {
			for i := range page.Records {
				record, err := decodeRecord(entityType, &page.Records[i])
				if err != nil {
					return err
				}
				if err := p.catalog.UpsertTx(tx, record); err != nil {
					return err
				}
			}
			// Same transaction as the upserts: the watermark moves if and
			// only if the whole page committed.
			return p.cursors.AdvanceTx(tx, entityType, last.UpdatedAt, last.ID)
		})
		if err != nil {
			return total, fmt.Errorf("pull %s: commit page: %w", entityType, err)
		}

		total += len(page.Records)
		since, sinceID = last.UpdatedAt, last.ID

		if !page.HasMore {
			return total, nil
		}
	}
}

func (p *Puller) fetchPage(ctx context.Context, entityType string, since time.Time, sinceID int64) (*infra.Page, error) {
	var page *infra.Page
	fetch := func() error {
		pg, err := p.backend.FetchPage(ctx, entityType, since, sinceID, p.pageSize)
		if err != nil {
			return err
		}
		page = pg
		return nil
	}
	if p.cb == nil {
		return page, fetch()
	}
	if err := p.cb.Execute(fetch); err != nil {
		return nil, err
	}
	return page, nil
}

// decodeRecord maps one wire record onto its mirror model. The incoming
// version fully replaces the local row; a deleted record becomes a tombstone.
func decodeRecord(entityType string, rec *infra.RemoteRecord) (interface{}, error) {
	switch entityType {
	case model.RefProduct:
		var m model.Product
		if err := unmarshalData(rec, &m); err != nil {
			return nil, err
		}
		m.ID, m.Deleted, m.RemoteUpdatedAt = rec.ID, rec.Deleted, rec.UpdatedAt
		return &m, nil
	case model.RefCategory:
		var m model.Category
		if err := unmarshalData(rec, &m); err != nil {
			return nil, err
		}
		m.ID, m.Deleted, m.RemoteUpdatedAt = rec.ID, rec.Deleted, rec.UpdatedAt
		return &m, nil
	case model.RefBrand:
		var m model.Brand
		if err := unmarshalData(rec, &m); err != nil {
			return nil, err
		}
		m.ID, m.Deleted, m.RemoteUpdatedAt = rec.ID, rec.Deleted, rec.UpdatedAt
		return &m, nil
	case model.RefCustomer:
		var m model.Customer
		if err := unmarshalData(rec, &m); err != nil {
			return nil, err
		}
		m.ID, m.Deleted, m.RemoteUpdatedAt = rec.ID, rec.Deleted, rec.UpdatedAt
		return &m, nil
	default:
		return nil, fmt.Errorf("unknown reference entity type %q", entityType)
	}
}

func unmarshalData(rec *infra.RemoteRecord, into interface{}) error {
	if len(rec.Data) == 0 {
		// Deletions may omit the body; the tombstone flag is all we need.
		if rec.Deleted {
			return nil
		}
		return fmt.Errorf("record %d has no data", rec.ID)
	}
	return json.Unmarshal(rec.Data, into)
}

func (p *Puller) typeLock(entityType string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[entityType]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[entityType] = lock
	}
	return lock
}
