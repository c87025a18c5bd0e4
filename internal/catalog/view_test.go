package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/menucraft/api/internal/database"
)

type fakeLoader struct {
	mu         sync.Mutex
	categories []database.Category
	items      []database.MenuItem
	err        error
	loads      int
}

func (f *fakeLoader) ListCategories(ctx context.Context, tenantID string) ([]database.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	return append([]database.Category(nil), f.categories...), nil
}

func (f *fakeLoader) ListMenuItems(ctx context.Context, tenantID string, categoryID *uuid.UUID) ([]database.MenuItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]database.MenuItem(nil), f.items...), nil
}

func (f *fakeLoader) addItem(name string, categoryID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, database.MenuItem{ID: uuid.New(), Name: name, CategoryID: categoryID})
}

func (f *fakeLoader) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func category(name string, order int32, active bool) database.Category {
	return database.Category{ID: uuid.New(), Name: name, DisplayOrder: order, IsActive: active}
}

func TestCurrent_LoadsOnceUntilInvalidated(t *testing.T) {
	loader := &fakeLoader{categories: []database.Category{category("Mains", 1, true)}}
	view := NewView(loader, nil)
	ctx := context.Background()

	first, err := view.Current(ctx, "pameer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := view.Current(ctx, "pameer")
	if first != second || loader.loads != 1 {
		t.Fatalf("expected cached snapshot, loads = %d", loader.loads)
	}

	view.Invalidate("pameer")
	third, _ := view.Current(ctx, "pameer")
	if loader.loads != 2 || third.Version != first.Version+1 {
		t.Errorf("expected reload after invalidate: loads=%d version=%d", loader.loads, third.Version)
	}
}

func TestMutate_RefreshesAndPublishes(t *testing.T) {
	mains := category("Mains", 1, true)
	loader := &fakeLoader{categories: []database.Category{mains}}

	var published []*Snapshot
	view := NewView(loader, PublisherFunc(func(s *Snapshot) { published = append(published, s) }))
	ctx := context.Background()

	if _, err := view.Current(ctx, "pameer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := view.Mutate(ctx, "pameer", func(ctx context.Context) error {
		loader.addItem("Chicken Tikka", mains.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, _ := view.Current(ctx, "pameer")
	if len(snap.Items) != 1 || snap.Items[0].Name != "Chicken Tikka" {
		t.Errorf("snapshot not refreshed: %+v", snap.Items)
	}
	if len(published) != 2 || published[1].Version != 2 {
		t.Errorf("expected 2 published snapshots, got %d", len(published))
	}
}

func TestMutate_FailedMutationDoesNotReload(t *testing.T) {
	loader := &fakeLoader{}
	view := NewView(loader, nil)
	wantErr := errors.New("validation")

	err := view.Mutate(context.Background(), "pameer", func(ctx context.Context) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected mutation error, got %v", err)
	}
	if loader.loads != 0 {
		t.Errorf("no reload expected, got %d loads", loader.loads)
	}
}

func TestLoad_FailureKeepsPreviousSnapshot(t *testing.T) {
	loader := &fakeLoader{categories: []database.Category{category("Mains", 1, true)}}
	view := NewView(loader, nil)
	ctx := context.Background()

	good, _ := view.Load(ctx, "pameer")
	loader.setErr(errors.New("connection refused"))

	snap, err := view.Load(ctx, "pameer")
	var le *LoadError
	if !errors.As(err, &le) || !le.Retryable() {
		t.Fatalf("expected retryable LoadError, got %v", err)
	}
	if snap != good {
		t.Error("previous snapshot should be returned on failure")
	}
	if view.LastError("pameer") == nil {
		t.Error("last error should be recorded")
	}

	loader.setErr(nil)
	if _, err := view.Load(ctx, "pameer"); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if view.LastError("pameer") != nil {
		t.Error("successful load should clear the error")
	}
}

func TestLoad_FailureWithoutSnapshot(t *testing.T) {
	loader := &fakeLoader{err: errors.New("down")}
	view := NewView(loader, nil)

	snap, err := view.Current(context.Background(), "pameer")
	if err == nil || snap != nil {
		t.Fatalf("expected nil snapshot and error, got %v, %v", snap, err)
	}
}

func TestSubscribe_LatestSnapshotWins(t *testing.T) {
	loader := &fakeLoader{}
	view := NewView(loader, nil)
	ctx := context.Background()

	ch, cancel := view.Subscribe("pameer")
	defer cancel()

	for i := 0; i < 3; i++ {
		if _, err := view.Load(ctx, "pameer"); err != nil {
			t.Fatalf("load: %v", err)
		}
	}

	snap := <-ch
	if snap.Version != 3 {
		t.Errorf("slow subscriber should see the latest snapshot, got version %d", snap.Version)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected extra snapshot %d", extra.Version)
	default:
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	view := NewView(&fakeLoader{}, nil)

	ch, cancel := view.Subscribe("pameer")
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	if _, err := view.Load(context.Background(), "pameer"); err != nil {
		t.Fatalf("load after cancel: %v", err)
	}
}

func TestSubscribe_TenantsAreIsolated(t *testing.T) {
	view := NewView(&fakeLoader{}, nil)

	ch, cancel := view.Subscribe("saffron")
	defer cancel()

	view.Load(context.Background(), "pameer")
	select {
	case <-ch:
		t.Fatal("saffron subscriber received a pameer snapshot")
	default:
	}
}

// gatedLoader reads its rows, then stalls the first ListMenuItems call until
// release is closed.
type gatedLoader struct {
	*fakeLoader
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func (g *gatedLoader) ListMenuItems(ctx context.Context, tenantID string, categoryID *uuid.UUID) ([]database.MenuItem, error) {
	items, err := g.fakeLoader.ListMenuItems(ctx, tenantID, categoryID)
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()
	if first {
		close(g.entered)
		<-g.release
	}
	return items, err
}

func TestLoad_SlowLoadDoesNotOverwriteMutation(t *testing.T) {
	mains := category("Mains", 1, true)
	loader := &gatedLoader{
		fakeLoader: &fakeLoader{categories: []database.Category{mains}},
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	view := NewView(loader, nil)
	ctx := context.Background()

	done := make(chan *Snapshot)
	go func() {
		snap, _ := view.Current(ctx, "pameer")
		done <- snap
	}()
	<-loader.entered

	err := view.Mutate(ctx, "pameer", func(ctx context.Context) error {
		loader.addItem("Curry", mains.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	close(loader.release)
	if slow := <-done; len(slow.Items) != 0 {
		t.Errorf("slow load should return the rows it read, got %d items", len(slow.Items))
	}

	snap, err := view.Current(ctx, "pameer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Items) != 1 || snap.Items[0].Name != "Curry" {
		t.Errorf("expected the post-change menu, got version=%d items=%d", snap.Version, len(snap.Items))
	}
	if snap.Version != 1 {
		t.Errorf("version: got %d, want 1 (outdated load must not be stored)", snap.Version)
	}
}
