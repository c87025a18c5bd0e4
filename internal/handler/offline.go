package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/menucraft/api/internal/offline"
)

// AssetWorker defines the worker methods needed by the offline handlers.
// Satisfied by *offline.Worker.
type AssetWorker interface {
	Fetch(ctx context.Context, rawURL string) (offline.Entry, offline.Source, error)
	HandleMessage(msg offline.Message) (any, error)
}

// OfflineHandler serves static assets cache-first and answers the page's
// control messages.
type OfflineHandler struct {
	worker AssetWorker
}

// NewOfflineHandler creates a new OfflineHandler.
func NewOfflineHandler(worker AssetWorker) *OfflineHandler {
	return &OfflineHandler{worker: worker}
}

// RegisterRoutes registers offline endpoints on the given Chi router.
func (h *OfflineHandler) RegisterRoutes(r chi.Router) {
	r.Get("/assets/*", h.Asset)
	r.Post("/sw/messages", h.Message)
}

// Asset serves /assets/<path>. X-Cache reports whether the response came
// from the cache, the network or the offline fallback.
func (h *OfflineHandler) Asset(w http.ResponseWriter, r *http.Request) {
	path := "/" + chi.URLParam(r, "*")
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	entry, source, err := h.worker.Fetch(r.Context(), path)
	if err != nil {
		switch {
		case errors.Is(err, offline.ErrOffline):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "asset unavailable offline"})
		case errors.Is(err, offline.ErrCrossOrigin):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cross-origin asset"})
		default:
			writeServiceError(w, "fetch asset", err)
		}
		return
	}

	for k, vs := range entry.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("X-Cache", string(source))
	w.Header().Set("Content-Length", strconv.Itoa(len(entry.Body)))
	w.WriteHeader(entry.Status)
	w.Write(entry.Body)
}

// Message answers SKIP_WAITING, GET_VERSION and CHECK_UPDATE.
func (h *OfflineHandler) Message(w http.ResponseWriter, r *http.Request) {
	var msg offline.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	reply, err := h.worker.HandleMessage(msg)
	if err != nil {
		if errors.Is(err, offline.ErrUnknownMessage) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeServiceError(w, "handle message", err)
		return
	}
	if reply == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}
