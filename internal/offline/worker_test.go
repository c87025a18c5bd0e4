package offline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"
)

// mapFetcher serves fixed responses and fails for paths in down.
type mapFetcher struct {
	mu    sync.Mutex
	files map[string]Entry
	down  map[string]bool
	calls map[string]int
}

func newMapFetcher(paths ...string) *mapFetcher {
	f := &mapFetcher{files: map[string]Entry{}, down: map[string]bool{}, calls: map[string]int{}}
	for _, p := range paths {
		f.files[p] = Entry{Status: http.StatusOK, Header: http.Header{}, Body: []byte("content of " + p), Type: TypeBasic}
	}
	return f
}

func (f *mapFetcher) Fetch(ctx context.Context, p string) (Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[p]++
	if f.down[p] {
		return Entry{}, errors.New("network unreachable")
	}
	e, ok := f.files[p]
	if !ok {
		return Entry{Status: http.StatusNotFound, Type: TypeBasic}, nil
	}
	return e, nil
}

func (f *mapFetcher) setDown(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down[p] = true
}

func (f *mapFetcher) callCount(p string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[p]
}

func testManifest() Manifest {
	return Manifest{
		CacheName:   "menucraft-v2",
		Assets:      []string{"/admin.html", "/index.html", "/css/styles.css"},
		OfflinePage: "/admin.html",
	}
}

func newTestWorker(t *testing.T, fetcher Fetcher) (*Worker, *CacheStorage) {
	t.Helper()
	storage := NewCacheStorage()
	w, err := NewWorker(testManifest(), storage, fetcher, "https://pameer.example.com")
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	return w, storage
}

// =====================
// Lifecycle tests
// =====================

func TestInstall_CachesEveryAsset(t *testing.T) {
	w, storage := newTestWorker(t, newMapFetcher("/admin.html", "/index.html", "/css/styles.css"))

	if err := w.Install(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := storage.Open("menucraft-v2").Len(); n != 3 {
		t.Errorf("cached %d assets, want 3", n)
	}
	if !w.State().SkipWaiting {
		t.Error("install should skip waiting")
	}
}

func TestInstall_AllOrNothing(t *testing.T) {
	w, storage := newTestWorker(t, newMapFetcher("/admin.html", "/index.html"))

	if err := w.Install(context.Background()); err == nil {
		t.Fatal("expected error for the missing stylesheet")
	}
	if storage.Has("menucraft-v2") {
		t.Error("no cache should be created when an asset fails")
	}
	if w.State().SkipWaiting {
		t.Error("failed install must not skip waiting")
	}
}

func TestActivate_DeletesOldCaches(t *testing.T) {
	w, storage := newTestWorker(t, newMapFetcher("/admin.html", "/index.html", "/css/styles.css"))
	storage.Open("menucraft-v1").Put("/admin.html", Entry{Status: 200, Body: []byte("old")})
	storage.Open("other").Put("/x", Entry{Status: 200})
	w.Install(context.Background())

	deleted := w.Activate(context.Background())

	if len(deleted) != 2 {
		t.Errorf("deleted %v, want 2 caches", deleted)
	}
	keys := storage.Keys()
	if len(keys) != 1 || keys[0] != "menucraft-v2" {
		t.Errorf("remaining caches: %v", keys)
	}
	if !w.State().Claimed {
		t.Error("activate should claim clients")
	}
}

// =====================
// Fetch tests
// =====================

func TestFetch_CacheFirst(t *testing.T) {
	fetcher := newMapFetcher("/admin.html", "/index.html", "/css/styles.css")
	w, _ := newTestWorker(t, fetcher)
	w.Install(context.Background())

	e, src, err := w.Fetch(context.Background(), "https://pameer.example.com/index.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src != SourceCache || string(e.Body) != "content of /index.html" {
		t.Errorf("got %s from %s", e.Body, src)
	}
	if fetcher.callCount("/index.html") != 1 {
		t.Error("cached asset must not hit the network again")
	}
}

func TestFetch_MissIsCachedInBackground(t *testing.T) {
	fetcher := newMapFetcher("/admin.html", "/index.html", "/css/styles.css", "/js/app.js")
	w, storage := newTestWorker(t, fetcher)
	w.Install(context.Background())

	_, src, err := w.Fetch(context.Background(), "/js/app.js")
	if err != nil || src != SourceNetwork {
		t.Fatalf("first fetch: %s, %v", src, err)
	}
	w.Wait()

	if _, ok := storage.Open("menucraft-v2").Match("/js/app.js"); !ok {
		t.Fatal("network response should be cached")
	}
	if _, src, _ := w.Fetch(context.Background(), "/js/app.js"); src != SourceCache {
		t.Errorf("second fetch should come from cache, got %s", src)
	}
}

func TestFetch_OnlyBasic200IsCached(t *testing.T) {
	fetcher := newMapFetcher("/admin.html", "/index.html", "/css/styles.css")
	fetcher.files["/font.woff2"] = Entry{Status: http.StatusOK, Type: TypeOpaque}
	w, storage := newTestWorker(t, fetcher)
	w.Install(context.Background())

	if e, _, _ := w.Fetch(context.Background(), "/missing.js"); e.Status != http.StatusNotFound {
		t.Errorf("status: got %d", e.Status)
	}
	w.Fetch(context.Background(), "/font.woff2")
	w.Wait()

	cache := storage.Open("menucraft-v2")
	if _, ok := cache.Match("/missing.js"); ok {
		t.Error("404 must not be cached")
	}
	if _, ok := cache.Match("/font.woff2"); ok {
		t.Error("opaque response must not be cached")
	}
}

func TestFetch_OfflineFallback(t *testing.T) {
	fetcher := newMapFetcher("/admin.html", "/index.html", "/css/styles.css")
	w, _ := newTestWorker(t, fetcher)
	w.Install(context.Background())
	fetcher.setDown("/orders/live")

	e, src, err := w.Fetch(context.Background(), "/orders/live")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src != SourceOffline || string(e.Body) != "content of /admin.html" {
		t.Errorf("got %s from %s", e.Body, src)
	}
}

func TestFetch_OfflineWithoutFallback(t *testing.T) {
	fetcher := newMapFetcher()
	fetcher.setDown("/index.html")
	w, _ := newTestWorker(t, fetcher)

	if _, _, err := w.Fetch(context.Background(), "/index.html"); !errors.Is(err, ErrOffline) {
		t.Fatalf("expected ErrOffline, got %v", err)
	}
}

func TestFetch_CrossOrigin(t *testing.T) {
	fetcher := newMapFetcher("/x.js")
	w, _ := newTestWorker(t, fetcher)

	for _, u := range []string{"https://cdn.example.net/x.js", "http://pameer.example.com/x.js", "//evil.example.com/x.js"} {
		if _, _, err := w.Fetch(context.Background(), u); !errors.Is(err, ErrCrossOrigin) {
			t.Errorf("%s: expected ErrCrossOrigin, got %v", u, err)
		}
	}
	if fetcher.callCount("/x.js") != 0 {
		t.Error("cross-origin requests must not be fetched")
	}
}

// =====================
// Message tests
// =====================

func TestHandleMessage(t *testing.T) {
	w, _ := newTestWorker(t, newMapFetcher("/admin.html", "/index.html", "/css/styles.css"))

	reply, err := w.HandleMessage(Message{Type: MsgGetVersion})
	if err != nil || reply != (VersionReply{Version: "menucraft-v2"}) {
		t.Errorf("GET_VERSION: %v, %v", reply, err)
	}

	reply, _ = w.HandleMessage(Message{Type: MsgCheckUpdate})
	if reply != (UpdateReply{HasUpdate: true}) {
		t.Errorf("CHECK_UPDATE before install: %v", reply)
	}
	w.Install(context.Background())
	reply, _ = w.HandleMessage(Message{Type: MsgCheckUpdate})
	if reply != (UpdateReply{HasUpdate: false}) {
		t.Errorf("CHECK_UPDATE after install: %v", reply)
	}

	w2, _ := newTestWorker(t, newMapFetcher())
	reply, err = w2.HandleMessage(Message{Type: MsgSkipWaiting})
	if err != nil || reply != nil || !w2.State().SkipWaiting {
		t.Errorf("SKIP_WAITING: %v, %v, %+v", reply, err, w2.State())
	}

	if _, err := w.HandleMessage(Message{Type: "SYNC"}); !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("unknown: got %v", err)
	}
}

// =====================
// Manifest and fetcher tests
// =====================

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()

	m, err := LoadManifest(filepath.Join(dir, "missing.yaml"))
	if err != nil || m.CacheName != "menucraft-v2" || len(m.Assets) != 7 {
		t.Fatalf("missing file should give default: %+v, %v", m, err)
	}

	path := filepath.Join(dir, "offline.yaml")
	os.WriteFile(path, []byte("cache_name: menucraft-v3\nassets:\n  - /admin.html\n  - /menu.html\n"), 0o644)
	m, err = LoadManifest(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.CacheName != "menucraft-v3" || len(m.Assets) != 2 || m.OfflinePage != "/admin.html" {
		t.Errorf("got %+v", m)
	}

	os.WriteFile(path, []byte("cache_name: v4\nassets: [admin.html]\n"), 0o644)
	if _, err := LoadManifest(path); err == nil {
		t.Error("relative asset path should be rejected")
	}
}

func TestDefaultManifest_MatchesShippedConfigAndWebRoot(t *testing.T) {
	def := DefaultManifest()

	shipped, err := LoadManifest(filepath.Join("..", "..", "config", "offline.yaml"))
	if err != nil {
		t.Fatalf("load shipped manifest: %v", err)
	}
	if shipped.CacheName != def.CacheName || shipped.OfflinePage != def.OfflinePage {
		t.Errorf("shipped %+v, default %+v", shipped, def)
	}
	if len(shipped.Assets) != len(def.Assets) {
		t.Fatalf("assets: shipped %v, default %v", shipped.Assets, def.Assets)
	}
	for i := range def.Assets {
		if shipped.Assets[i] != def.Assets[i] {
			t.Errorf("asset %d: shipped %s, default %s", i, shipped.Assets[i], def.Assets[i])
		}
	}

	for _, a := range def.Assets {
		if _, err := os.Stat(filepath.Join("..", "..", "web", filepath.FromSlash(a))); err != nil {
			t.Errorf("default asset %s is not in web/: %v", a, err)
		}
	}
}

func TestFSFetcher(t *testing.T) {
	f := FSFetcher{FS: fstest.MapFS{
		"index.html":     {Data: []byte("<html>")},
		"css/styles.css": {Data: []byte("body{}")},
	}}
	ctx := context.Background()

	e, err := f.Fetch(ctx, "/css/styles.css?v=2")
	if err != nil || e.Status != http.StatusOK || string(e.Body) != "body{}" {
		t.Fatalf("got %+v, %v", e, err)
	}
	if ct := e.Header.Get("Content-Type"); ct == "" {
		t.Error("content type should be set")
	}

	if e, _ := f.Fetch(ctx, "/"); string(e.Body) != "<html>" {
		t.Errorf("root should serve index.html, got %q", e.Body)
	}
	if e, _ := f.Fetch(ctx, "/../../etc/passwd"); e.Status != http.StatusNotFound {
		t.Errorf("traversal: status %d", e.Status)
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/index.html" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL + "/")
	e, err := f.Fetch(context.Background(), "/index.html")
	if err != nil || e.Status != http.StatusOK || string(e.Body) != "<html>" {
		t.Fatalf("got %+v, %v", e, err)
	}
	if e, _ := f.Fetch(context.Background(), "/nope"); e.Status != http.StatusNotFound {
		t.Errorf("status: %d", e.Status)
	}

	srv.Close()
	if _, err := f.Fetch(context.Background(), "/index.html"); err == nil {
		t.Error("closed server should be a network error")
	}
}
