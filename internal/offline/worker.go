package offline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
)

// Control message types.
const (
	MsgSkipWaiting = "SKIP_WAITING"
	MsgGetVersion  = "GET_VERSION"
	MsgCheckUpdate = "CHECK_UPDATE"
)

var (
	ErrCrossOrigin    = errors.New("cross-origin request is not handled")
	ErrOffline        = errors.New("asset unavailable offline")
	ErrUnknownMessage = errors.New("unknown message type")
)

// Source says where a fetched response came from.
type Source string

const (
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
	SourceOffline Source = "offline"
)

type Message struct {
	Type string `json:"type"`
}

type VersionReply struct {
	Version string `json:"version"`
}

type UpdateReply struct {
	HasUpdate bool `json:"hasUpdate"`
}

// State reports the worker's lifecycle flags.
type State struct {
	SkipWaiting bool `json:"skip_waiting"`
	Claimed     bool `json:"claimed"`
}

// Worker serves assets cache-first and keeps the precache current.
type Worker struct {
	manifest Manifest
	storage  *CacheStorage
	fetcher  Fetcher
	origin   *url.URL

	mu    sync.Mutex
	state State

	wg sync.WaitGroup
}

// NewWorker creates a Worker. origin is the site's scheme://host; absolute
// request URLs on any other origin are refused. An empty origin only
// accepts paths.
func NewWorker(m Manifest, storage *CacheStorage, fetcher Fetcher, origin string) (*Worker, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	w := &Worker{manifest: m, storage: storage, fetcher: fetcher}
	if origin != "" {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid origin %q", origin)
		}
		w.origin = u
	}
	return w, nil
}

func (w *Worker) Manifest() Manifest { return w.manifest }

// Install precaches every manifest asset. Nothing is stored unless all of
// them load with status 200.
func (w *Worker) Install(ctx context.Context) error {
	entries := make(map[string]Entry, len(w.manifest.Assets))
	for _, p := range w.manifest.Assets {
		e, err := w.fetcher.Fetch(ctx, p)
		if err != nil {
			return fmt.Errorf("precache %s: %w", p, err)
		}
		if e.Status != http.StatusOK {
			return fmt.Errorf("precache %s: status %d", p, e.Status)
		}
		entries[p] = e
	}

	cache := w.storage.Open(w.manifest.CacheName)
	for p, e := range entries {
		cache.Put(p, e)
	}

	w.mu.Lock()
	w.state.SkipWaiting = true
	w.mu.Unlock()
	return nil
}

// Activate deletes every cache but the current one and claims clients.
// It returns the deleted cache names.
func (w *Worker) Activate(ctx context.Context) []string {
	var deleted []string
	for _, name := range w.storage.Keys() {
		if name != w.manifest.CacheName && w.storage.Delete(name) {
			deleted = append(deleted, name)
		}
	}

	w.mu.Lock()
	w.state.Claimed = true
	w.mu.Unlock()
	return deleted
}

// Fetch serves rawURL from any cache, else from the network. Successful
// basic network responses are cached in the background. When the network
// fails the offline page is served instead.
func (w *Worker) Fetch(ctx context.Context, rawURL string) (Entry, Source, error) {
	key, err := w.cacheKey(rawURL)
	if err != nil {
		return Entry{}, "", err
	}

	if e, ok := w.storage.Match(key); ok {
		return e, SourceCache, nil
	}

	e, err := w.fetcher.Fetch(ctx, key)
	if err != nil {
		log.Printf("ERROR: fetch %s: %v", key, err)
		if w.manifest.OfflinePage != "" {
			if page, ok := w.storage.Match(w.manifest.OfflinePage); ok {
				return page, SourceOffline, nil
			}
		}
		return Entry{}, "", fmt.Errorf("%w: %s", ErrOffline, key)
	}

	if e.Status == http.StatusOK && e.Type == TypeBasic {
		copied := e.clone()
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.storage.Open(w.manifest.CacheName).Put(key, copied)
		}()
	}
	return e, SourceNetwork, nil
}

// Wait blocks until background cache writes finish.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// HandleMessage answers a control message. SKIP_WAITING has no reply.
func (w *Worker) HandleMessage(msg Message) (any, error) {
	switch msg.Type {
	case MsgSkipWaiting:
		w.mu.Lock()
		w.state.SkipWaiting = true
		w.mu.Unlock()
		return nil, nil
	case MsgGetVersion:
		return VersionReply{Version: w.manifest.CacheName}, nil
	case MsgCheckUpdate:
		return UpdateReply{HasUpdate: !w.storage.Has(w.manifest.CacheName)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// cacheKey reduces a same-origin URL to its path and query.
func (w *Worker) cacheKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.IsAbs() || u.Host != "" {
		if w.origin == nil || u.Scheme != w.origin.Scheme || u.Host != w.origin.Host {
			return "", ErrCrossOrigin
		}
	}
	key := u.EscapedPath()
	if key == "" {
		key = "/"
	}
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key, nil
}
