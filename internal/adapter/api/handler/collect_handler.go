package handler

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/trackbeam/beacon/internal/adapter/metrics"
	"github.com/trackbeam/beacon/internal/domain"
	"github.com/trackbeam/beacon/internal/tracker"
)

// CollectHandler receives raw interaction signals from the page snippet
// and applies them to the per-page-load tracker sessions. It always
// answers 202 for well-formed requests: a broken signal must never break
// the host page.
type CollectHandler struct {
	registry         *tracker.SessionRegistry
	emitter          *tracker.Emitter
	keys             domain.TrackingKeyRepository
	logger           *slog.Logger
	metrics          *metrics.CollectorMetrics
	maxSignalSize    int64
	scrollDebounce   time.Duration
	cookieSecure     bool
	requireKnownKeys bool
}

// NewCollectHandler creates a new CollectHandler. With requireKnownKeys
// set, signals for sessions whose tracking key fails validation are
// dropped (still 202: a misconfigured snippet must not break the page).
func NewCollectHandler(
	registry *tracker.SessionRegistry,
	emitter *tracker.Emitter,
	keys domain.TrackingKeyRepository,
	logger *slog.Logger,
	m *metrics.CollectorMetrics,
	maxSignalSize int64,
	scrollDebounce time.Duration,
	cookieSecure bool,
	requireKnownKeys bool,
) *CollectHandler {
	return &CollectHandler{
		registry:         registry,
		emitter:          emitter,
		keys:             keys,
		logger:           logger,
		metrics:          m,
		maxSignalSize:    maxSignalSize,
		scrollDebounce:   scrollDebounce,
		cookieSecure:     cookieSecure,
		requireKnownKeys: requireKnownKeys,
	}
}

// ServeHTTP processes incoming signal requests.
func (h *CollectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSignalSize)
	store := NewCookieStateStore(w, r, h.cookieSecure)
	touched := make(map[string]*tracker.Session)

	var err error
	switch r.Header.Get("Content-Type") {
	case "application/json":
		err = h.handleSingleJSON(r, store, touched)
	case "application/x-ndjson":
		err = h.handleNDJSON(r, store, touched)
	default:
		http.Error(w, "Unsupported Content-Type", http.StatusUnsupportedMediaType)
		return
	}

	// Deferred scroll evaluation has to run while the response can still
	// carry cookie writes; after that, the debouncer holds nothing that
	// could fire against this request.
	for _, session := range touched {
		session.FlushScroll(r.Context(), h.emitter, store)
	}

	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.Warn("failed to read collect request", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *CollectHandler) handleSingleJSON(r *http.Request, store *CookieStateStore, touched map[string]*tracker.Session) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}

	var sig domain.Signal
	if err := json.Unmarshal(body, &sig); err != nil {
		return err
	}

	h.apply(r, store, sig, touched)
	return nil
}

func (h *CollectHandler) handleNDJSON(r *http.Request, store *CookieStateStore, touched map[string]*tracker.Session) error {
	scanner := bufio.NewScanner(r.Body)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var sig domain.Signal
		if err := json.Unmarshal(line, &sig); err != nil {
			// A malformed line skips that signal, not the batch.
			h.logger.Warn("failed to unmarshal signal line", "error", err)
			h.metrics.SignalsTotal.WithLabelValues("unknown", "error_parse").Inc()
			continue
		}

		h.apply(r, store, sig, touched)
	}
	return scanner.Err()
}

// apply routes one signal to its page session, creating the session on
// the first signal for a page load.
func (h *CollectHandler) apply(r *http.Request, store *CookieStateStore, sig domain.Signal, touched map[string]*tracker.Session) {
	pageLoadID := sig.PageLoadID
	if pageLoadID == "" {
		// A snippet that never sent an id still gets a session, just one
		// that cannot be correlated across requests.
		pageLoadID = uuid.NewString()
	}

	session := h.registry.GetOrCreate(pageLoadID, func() *tracker.Session {
		cfg := tracker.ResolveConfig(sig.TrackingKey, sig.Org, sig.Env, sig.Debug)
		return tracker.NewSession(pageLoadID, cfg, sig.Page, store.AnalyticsCookie(), store, h.scrollDebounce, h.logger)
	})
	touched[pageLoadID] = session

	if h.requireKnownKeys && !h.knownKey(r, session.Config.TrackingKey) {
		h.metrics.SignalsTotal.WithLabelValues(sig.Type, "unknown_key").Inc()
		return
	}

	if session.Apply(r.Context(), h.emitter, store, sig) {
		h.metrics.SignalsTotal.WithLabelValues(sig.Type, "applied").Inc()
	} else {
		h.metrics.SignalsTotal.WithLabelValues(sig.Type, "dropped").Inc()
	}
}

// knownKey validates the session's tracking key against the key
// repository. Validation errors fail open: a database outage must not
// silence every deployed snippet.
func (h *CollectHandler) knownKey(r *http.Request, key string) bool {
	if h.keys == nil {
		return true
	}
	valid, err := h.keys.IsValid(r.Context(), key)
	if err != nil {
		h.logger.Warn("tracking key validation failed, accepting signal", "error", err)
		return true
	}
	return valid
}
