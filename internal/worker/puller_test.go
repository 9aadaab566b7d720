package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tillsync/internal/infra"
	"tillsync/internal/model"
	"tillsync/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Fakes ────────────────────────────────────────────────────────────────────

type fetchCall struct {
	entityType string
	since      time.Time
	sinceID    int64
}

// scriptedPullBackend serves pages per entity type in order; once the script
// is exhausted it returns empty pages.
type scriptedPullBackend struct {
	pages map[string][]infra.Page
	err   map[string]error
	calls []fetchCall
}

func newScriptedPullBackend() *scriptedPullBackend {
	return &scriptedPullBackend{
		pages: make(map[string][]infra.Page),
		err:   make(map[string]error),
	}
}

func (b *scriptedPullBackend) FetchPage(_ context.Context, entityType string, since time.Time, sinceID int64, _ int) (*infra.Page, error) {
	b.calls = append(b.calls, fetchCall{entityType: entityType, since: since, sinceID: sinceID})
	if err := b.err[entityType]; err != nil {
		return nil, err
	}
	queue := b.pages[entityType]
	if len(queue) == 0 {
		return &infra.Page{}, nil
	}
	page := queue[0]
	b.pages[entityType] = queue[1:]
	return &page, nil
}

type upsertCatalog struct {
	upserts []interface{}
	failOn  int // 1-based index of the upsert to fail; 0 = never
}

func (c *upsertCatalog) DB() *gorm.DB { return nil }

func (c *upsertCatalog) UpsertTx(_ *gorm.DB, record interface{}) error {
	if c.failOn > 0 && len(c.upserts)+1 == c.failOn {
		return errors.New("disk full")
	}
	c.upserts = append(c.upserts, record)
	return nil
}

func (c *upsertCatalog) SearchProducts(_ context.Context, _ string, _ int) ([]model.Product, error) {
	return nil, nil
}

func (c *upsertCatalog) FindProductByBarcode(_ context.Context, _ string) (*model.Product, error) {
	return nil, gorm.ErrRecordNotFound
}

func (c *upsertCatalog) FindProductByID(_ context.Context, _ int64) (*model.Product, error) {
	return nil, gorm.ErrRecordNotFound
}

func (c *upsertCatalog) ListCategories(_ context.Context) ([]model.Category, error) { return nil, nil }
func (c *upsertCatalog) ListBrands(_ context.Context) ([]model.Brand, error)        { return nil, nil }
func (c *upsertCatalog) SearchCustomers(_ context.Context, _ string, _ int) ([]model.Customer, error) {
	return nil, nil
}

var _ repository.CatalogRepository = (*upsertCatalog)(nil)

type memCursors struct {
	cursors map[string]model.SyncCursor
}

func newMemCursors() *memCursors { return &memCursors{cursors: make(map[string]model.SyncCursor)} }

func (r *memCursors) Get(_ context.Context, entityType string) (*model.SyncCursor, error) {
	c, ok := r.cursors[entityType]
	if !ok {
		return &model.SyncCursor{EntityType: entityType}, nil
	}
	return &c, nil
}

func (r *memCursors) List(_ context.Context) ([]model.SyncCursor, error) {
	out := make([]model.SyncCursor, 0, len(r.cursors))
	for _, c := range r.cursors {
		out = append(out, c)
	}
	return out, nil
}

func (r *memCursors) AdvanceTx(_ *gorm.DB, entityType string, at time.Time, id int64) error {
	r.cursors[entityType] = model.SyncCursor{EntityType: entityType, LastSyncedAt: at, LastSyncedID: id}
	return nil
}

var _ repository.CursorRepository = (*memCursors)(nil)

// ── Helpers ──────────────────────────────────────────────────────────────────

func productRecord(t *testing.T, id int64, name string, at time.Time) infra.RemoteRecord {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{
		"name":    name,
		"barcode": "779" + name,
		"price":   "9.99",
		"active":  true,
	})
	require.NoError(t, err)
	return infra.RemoteRecord{ID: id, UpdatedAt: at, Data: data}
}

func newTestPuller(backend PullBackend, catalog repository.CatalogRepository, cursors repository.CursorRepository) *Puller {
	return NewPuller(nil, catalog, cursors, backend, nil, 2)
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestPullUpsertsPagesAndAdvancesCursor(t *testing.T) {
	backend := newScriptedPullBackend()
	catalog := &upsertCatalog{}
	cursors := newMemCursors()

	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	backend.pages[model.RefProduct] = []infra.Page{
		{Records: []infra.RemoteRecord{
			productRecord(t, 1, "yerba", t1),
			productRecord(t, 2, "azucar", t1),
		}, HasMore: true},
		{Records: []infra.RemoteRecord{
			productRecord(t, 3, "cafe", t2),
		}},
	}

	p := newTestPuller(backend, catalog, cursors)
	n, err := p.Pull(context.Background(), model.RefProduct)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, catalog.upserts, 3)

	first, ok := catalog.upserts[0].(*model.Product)
	require.True(t, ok)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, "yerba", first.Name)
	assert.Equal(t, t1, first.RemoteUpdatedAt)
	assert.False(t, first.Deleted)

	cursor := cursors.cursors[model.RefProduct]
	assert.Equal(t, t2, cursor.LastSyncedAt)
	assert.Equal(t, int64(3), cursor.LastSyncedID)
}

func TestPullResumesFromCursor(t *testing.T) {
	backend := newScriptedPullBackend()
	catalog := &upsertCatalog{}
	cursors := newMemCursors()

	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	backend.pages[model.RefProduct] = []infra.Page{
		{Records: []infra.RemoteRecord{productRecord(t, 5, "yerba", t1)}},
	}

	p := newTestPuller(backend, catalog, cursors)
	_, err := p.Pull(context.Background(), model.RefProduct)
	require.NoError(t, err)

	// Second pull starts at the committed watermark, not from zero.
	n, err := p.Pull(context.Background(), model.RefProduct)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	last := backend.calls[len(backend.calls)-1]
	assert.Equal(t, t1, last.since)
	assert.Equal(t, int64(5), last.sinceID)
}

func TestPullTombstonesDeletedRecords(t *testing.T) {
	backend := newScriptedPullBackend()
	catalog := &upsertCatalog{}
	cursors := newMemCursors()

	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	backend.pages[model.RefProduct] = []infra.Page{
		{Records: []infra.RemoteRecord{
			// Deletions arrive without a body.
			{ID: 9, UpdatedAt: at, Deleted: true},
		}},
	}

	p := newTestPuller(backend, catalog, cursors)
	n, err := p.Pull(context.Background(), model.RefProduct)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	product, ok := catalog.upserts[0].(*model.Product)
	require.True(t, ok)
	assert.True(t, product.Deleted)
	assert.Equal(t, int64(9), product.ID)
}

func TestPullFailedPageLeavesCursorUntouched(t *testing.T) {
	backend := newScriptedPullBackend()
	catalog := &upsertCatalog{failOn: 2}
	cursors := newMemCursors()

	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	backend.pages[model.RefProduct] = []infra.Page{
		{Records: []infra.RemoteRecord{
			productRecord(t, 1, "yerba", t1),
			productRecord(t, 2, "azucar", t1),
		}},
	}

	p := newTestPuller(backend, catalog, cursors)
	_, err := p.Pull(context.Background(), model.RefProduct)

	require.Error(t, err)
	// The page did not commit, so the watermark must not have moved: the next
	// pull replays the same page from scratch.
	_, exists := cursors.cursors[model.RefProduct]
	assert.False(t, exists)
}

func TestPullRejectsConcurrentRunsPerType(t *testing.T) {
	p := newTestPuller(newScriptedPullBackend(), &upsertCatalog{}, newMemCursors())

	lock := p.typeLock(model.RefProduct)
	lock.Lock()
	defer lock.Unlock()

	_, err := p.Pull(context.Background(), model.RefProduct)
	assert.ErrorIs(t, err, ErrPullInProgress)

	// Other types are unaffected.
	n, err := p.Pull(context.Background(), model.RefCategory)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPullAllContinuesPastFailingType(t *testing.T) {
	backend := newScriptedPullBackend()
	catalog := &upsertCatalog{}
	cursors := newMemCursors()

	backend.err[model.RefProduct] = &infra.TransientError{Op: "fetch", Err: errors.New("timeout")}
	at := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	categoryData, err := json.Marshal(map[string]interface{}{"name": "drinks"})
	require.NoError(t, err)
	backend.pages[model.RefCategory] = []infra.Page{
		{Records: []infra.RemoteRecord{{ID: 1, UpdatedAt: at, Data: categoryData}}},
	}

	p := newTestPuller(backend, catalog, cursors)
	counts := p.PullAll(context.Background())

	_, productPulled := counts[model.RefProduct]
	assert.False(t, productPulled)
	assert.Equal(t, 1, counts[model.RefCategory])
}
