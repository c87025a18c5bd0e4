package catalog

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/menucraft/api/internal/database"
)

// Loader reads a tenant's catalog. Satisfied by *service.CatalogService.
type Loader interface {
	ListCategories(ctx context.Context, tenantID string) ([]database.Category, error)
	ListMenuItems(ctx context.Context, tenantID string, categoryID *uuid.UUID) ([]database.MenuItem, error)
}

// Publisher is told about every freshly loaded snapshot.
type Publisher interface {
	PublishSnapshot(s *Snapshot)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(s *Snapshot)

func (f PublisherFunc) PublishSnapshot(s *Snapshot) { f(s) }

// LoadError is recorded when a refresh fails. The previous snapshot, if any,
// stays in place and the load can be retried.
type LoadError struct {
	TenantID string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load catalog for %s: %v", e.TenantID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Retryable is always true; a later Load may succeed.
func (e *LoadError) Retryable() bool { return true }

type tenantState struct {
	snap    *Snapshot
	version uint64
	stale   bool
	lastErr error
	subs    map[int]chan *Snapshot
	nextSub int

	// generation advances on every invalidation. A load that began under an
	// older generation may have read pre-change rows and is not cached.
	generation uint64
}

// View caches one catalog snapshot per tenant. A snapshot is replaced only
// by an explicit Load, which Mutate and Invalidate trigger.
type View struct {
	loader    Loader
	publisher Publisher
	now       func() time.Time

	mu      sync.Mutex
	tenants map[string]*tenantState
}

// NewView creates a View. publisher may be nil.
func NewView(loader Loader, publisher Publisher) *View {
	return &View{
		loader:    loader,
		publisher: publisher,
		now:       time.Now,
		tenants:   make(map[string]*tenantState),
	}
}

// state returns the tenant's state. Caller must hold v.mu.
func (v *View) state(tenantID string) *tenantState {
	st, ok := v.tenants[tenantID]
	if !ok {
		st = &tenantState{subs: make(map[int]chan *Snapshot)}
		v.tenants[tenantID] = st
	}
	return st
}

// Load fetches categories and items and publishes a new snapshot. On
// failure the previous snapshot (possibly nil) is returned with a *LoadError.
func (v *View) Load(ctx context.Context, tenantID string) (*Snapshot, error) {
	v.mu.Lock()
	gen := v.state(tenantID).generation
	v.mu.Unlock()

	cats, err := v.loader.ListCategories(ctx, tenantID)
	if err == nil {
		var items []database.MenuItem
		items, err = v.loader.ListMenuItems(ctx, tenantID, nil)
		if err == nil {
			return v.store(tenantID, gen, cats, items), nil
		}
	}

	loadErr := &LoadError{TenantID: tenantID, Err: err}
	v.mu.Lock()
	st := v.state(tenantID)
	if gen == st.generation {
		st.lastErr = loadErr
	}
	prev := st.snap
	v.mu.Unlock()
	return prev, loadErr
}

// store caches a loaded catalog unless the tenant was invalidated after the
// load began. An outdated load is handed back to its caller uncached.
func (v *View) store(tenantID string, gen uint64, cats []database.Category, items []database.MenuItem) *Snapshot {
	v.mu.Lock()
	st := v.state(tenantID)
	if gen != st.generation {
		snap := &Snapshot{
			TenantID:   tenantID,
			Version:    st.version,
			Categories: cats,
			Items:      items,
			LoadedAt:   v.now(),
		}
		v.mu.Unlock()
		return snap
	}
	st.version++
	snap := &Snapshot{
		TenantID:   tenantID,
		Version:    st.version,
		Categories: cats,
		Items:      items,
		LoadedAt:   v.now(),
	}
	st.snap = snap
	st.stale = false
	st.lastErr = nil
	for _, ch := range st.subs {
		offer(ch, snap)
	}
	v.mu.Unlock()

	if v.publisher != nil {
		v.publisher.PublishSnapshot(snap)
	}
	return snap
}

// offer delivers snap, replacing an undelivered older snapshot.
func offer(ch chan *Snapshot, snap *Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

// Current returns the cached snapshot, loading when there is none or it was
// invalidated.
func (v *View) Current(ctx context.Context, tenantID string) (*Snapshot, error) {
	v.mu.Lock()
	st := v.state(tenantID)
	snap, stale := st.snap, st.stale
	v.mu.Unlock()

	if snap != nil && !stale {
		return snap, nil
	}
	return v.Load(ctx, tenantID)
}

// Invalidate marks the tenant's snapshot for reload on next access.
func (v *View) Invalidate(tenantID string) {
	v.mu.Lock()
	st := v.state(tenantID)
	st.stale = true
	st.generation++
	v.mu.Unlock()
}

// LastError is the error of the most recent failed load, cleared by a
// successful one.
func (v *View) LastError(tenantID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state(tenantID).lastErr
}

// Mutate runs fn and, when it succeeds, reloads and publishes the catalog.
// A failed reload leaves the snapshot invalidated and is not returned.
func (v *View) Mutate(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	v.Invalidate(tenantID)
	if _, err := v.Load(ctx, tenantID); err != nil {
		log.Printf("ERROR: refresh catalog after change: %v", err)
	}
	return nil
}

// Subscribe returns a channel receiving every new snapshot of the tenant.
// A slow reader only sees the latest one. cancel closes the channel.
func (v *View) Subscribe(tenantID string) (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)

	v.mu.Lock()
	st := v.state(tenantID)
	id := st.nextSub
	st.nextSub++
	st.subs[id] = ch
	v.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			v.mu.Lock()
			delete(st.subs, id)
			v.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
