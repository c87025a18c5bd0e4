package handler_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/go-chi/chi/v5"
	"github.com/menucraft/api/internal/handler"
	"github.com/menucraft/api/internal/offline"
)

// switchableFetcher serves a MapFS until it is taken offline.
type switchableFetcher struct {
	mu   sync.Mutex
	fs   offline.FSFetcher
	down bool
}

func (f *switchableFetcher) Fetch(ctx context.Context, p string) (offline.Entry, error) {
	f.mu.Lock()
	down := f.down
	f.mu.Unlock()
	if down {
		return offline.Entry{}, errors.New("network unreachable")
	}
	return f.fs.Fetch(ctx, p)
}

func (f *switchableFetcher) setDown() {
	f.mu.Lock()
	f.down = true
	f.mu.Unlock()
}

func setupOfflineRouter(t *testing.T, offlinePage string) (*chi.Mux, *offline.Worker, *switchableFetcher) {
	t.Helper()
	fetcher := &switchableFetcher{fs: offline.FSFetcher{FS: fstest.MapFS{
		"admin.html":     {Data: []byte("<h1>Orders</h1>")},
		"index.html":     {Data: []byte("<h1>Menu</h1>")},
		"css/styles.css": {Data: []byte("body{}")},
		"js/menu.js":     {Data: []byte("console.log('menu')")},
	}}}
	manifest := offline.Manifest{
		CacheName:   "menucraft-test",
		Assets:      []string{"/admin.html", "/index.html", "/css/styles.css"},
		OfflinePage: offlinePage,
	}
	worker, err := offline.NewWorker(manifest, offline.NewCacheStorage(), fetcher, "https://menu.example.com")
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	if err := worker.Install(context.Background()); err != nil {
		t.Fatalf("install: %v", err)
	}
	worker.Activate(context.Background())

	h := handler.NewOfflineHandler(worker)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, worker, fetcher
}

func TestOfflineAsset_CacheFirst(t *testing.T) {
	router, worker, _ := setupOfflineRouter(t, "/admin.html")

	rr := doRequest(t, router, "GET", "/assets/css/styles.css", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if got := rr.Header().Get("X-Cache"); got != string(offline.SourceCache) {
		t.Errorf("X-Cache: got %q, want cache", got)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/css") {
		t.Errorf("Content-Type: got %q", rr.Header().Get("Content-Type"))
	}
	if rr.Body.String() != "body{}" {
		t.Errorf("body: got %q", rr.Body.String())
	}

	// Not precached: network first time, cache afterwards.
	rr = doRequest(t, router, "GET", "/assets/js/menu.js", nil)
	if got := rr.Header().Get("X-Cache"); got != string(offline.SourceNetwork) {
		t.Fatalf("first fetch X-Cache: got %q, want network", got)
	}
	worker.Wait()
	rr = doRequest(t, router, "GET", "/assets/js/menu.js", nil)
	if got := rr.Header().Get("X-Cache"); got != string(offline.SourceCache) {
		t.Errorf("second fetch X-Cache: got %q, want cache", got)
	}
}

func TestOfflineAsset_NotFoundIsPassedThrough(t *testing.T) {
	router, _, _ := setupOfflineRouter(t, "/admin.html")

	rr := doRequest(t, router, "GET", "/assets/missing.png", nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestOfflineAsset_OfflineFallback(t *testing.T) {
	router, _, fetcher := setupOfflineRouter(t, "/admin.html")
	fetcher.setDown()

	rr := doRequest(t, router, "GET", "/assets/js/menu.js", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if got := rr.Header().Get("X-Cache"); got != string(offline.SourceOffline) {
		t.Errorf("X-Cache: got %q, want offline", got)
	}
	if rr.Body.String() != "<h1>Orders</h1>" {
		t.Errorf("body: got %q, want the offline page", rr.Body.String())
	}
}

func TestOfflineAsset_UnavailableWithoutOfflinePage(t *testing.T) {
	router, _, fetcher := setupOfflineRouter(t, "")
	fetcher.setDown()

	rr := doRequest(t, router, "GET", "/assets/js/menu.js", nil)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestOfflineAsset_CrossOrigin(t *testing.T) {
	router, _, _ := setupOfflineRouter(t, "/admin.html")

	rr := doRequest(t, router, "GET", "/assets//cdn.other.com/lib.js", nil)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOfflineMessages(t *testing.T) {
	router, _, _ := setupOfflineRouter(t, "/admin.html")

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
		wantKey    string
		wantValue  interface{}
	}{
		{"skip waiting", map[string]string{"type": offline.MsgSkipWaiting}, http.StatusNoContent, "", nil},
		{"get version", map[string]string{"type": offline.MsgGetVersion}, http.StatusOK, "version", "menucraft-test"},
		{"check update", map[string]string{"type": offline.MsgCheckUpdate}, http.StatusOK, "hasUpdate", false},
		{"unknown", map[string]string{"type": "RELOAD"}, http.StatusBadRequest, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, "POST", "/sw/messages", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d; body: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantKey != "" {
				if got := decodeResponse(t, rr)[tt.wantKey]; got != tt.wantValue {
					t.Errorf("%s: got %v, want %v", tt.wantKey, got, tt.wantValue)
				}
			}
		})
	}
}
