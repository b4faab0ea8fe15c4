package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/trackbeam/beacon/internal/tracker"
)

// StateHandler exposes the tracker state API: the resolved client id,
// attribution record, ad-platform classification and effective
// configuration for the requesting browser. State is resolved from the
// request's cookies the same way signal processing resolves it.
type StateHandler struct {
	logger       *slog.Logger
	cookieSecure bool
}

// NewStateHandler creates a new StateHandler.
func NewStateHandler(logger *slog.Logger, cookieSecure bool) *StateHandler {
	return &StateHandler{logger: logger, cookieSecure: cookieSecure}
}

// ClientID handles GET /api/client-id. Resolving the id persists a
// generated one, so repeated calls return the same value.
func (h *StateHandler) ClientID(w http.ResponseWriter, r *http.Request) {
	store := NewCookieStateStore(w, r, h.cookieSecure)
	id := tracker.GetOrCreateClientID(store.AnalyticsCookie(), store)
	h.respondWithJSON(w, map[string]string{"client_id": id})
}

// Attribution handles GET /api/attribution. An optional url query
// parameter lets the caller resolve against a page URL with fresh
// parameters; otherwise the persisted record is returned.
func (h *StateHandler) Attribution(w http.ResponseWriter, r *http.Request) {
	store := NewCookieStateStore(w, r, h.cookieSecure)
	record := tracker.ResolveAttribution(r.URL.Query().Get("url"), store)
	h.respondWithJSON(w, record)
}

// AdClassification handles GET /api/ad-classification.
func (h *StateHandler) AdClassification(w http.ResponseWriter, r *http.Request) {
	store := NewCookieStateStore(w, r, h.cookieSecure)
	record := tracker.ResolveAttribution(r.URL.Query().Get("url"), store)
	h.respondWithJSON(w, tracker.ClassifyAdPlatform(record))
}

// Config handles GET /api/config, echoing the effective configuration
// for the given tracking parameters after defaulting.
func (h *StateHandler) Config(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cfg := tracker.ResolveConfig(q.Get("tracking_key"), q.Get("org"), q.Get("env"), q.Get("debug") == "true")
	h.respondWithJSON(w, map[string]any{
		"tracking_key": cfg.TrackingKey,
		"env":          cfg.Env,
		"debug":        cfg.Debug,
	})
}

func (h *StateHandler) respondWithJSON(w http.ResponseWriter, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(response)
}
