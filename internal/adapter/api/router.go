package api

import (
	"log/slog"
	"net/http"

	"github.com/trackbeam/beacon/internal/adapter/api/handler"
	"github.com/trackbeam/beacon/internal/adapter/api/middleware"
	"github.com/trackbeam/beacon/internal/adapter/metrics"
	"github.com/trackbeam/beacon/internal/domain"
	"github.com/trackbeam/beacon/internal/pkg/config"
	"github.com/trackbeam/beacon/internal/tracker"
)

// NewRouter creates and configures the main HTTP router for the
// collector service. The collect endpoint and the tracker state API are
// unauthenticated snippet-facing surfaces; the live feed carries read
// access and sits behind the API key check.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	keyRepo domain.TrackingKeyRepository,
	registry *tracker.SessionRegistry,
	emitter *tracker.Emitter,
	m *metrics.CollectorMetrics,
	sseBroker *handler.SSEBroker,
) http.Handler {
	mux := http.NewServeMux()

	collectHandler := handler.NewCollectHandler(registry, emitter, keyRepo, logger, m, cfg.MaxSignalSize, cfg.ScrollDebounce, cfg.CookieSecure, cfg.RequireKnownKeys)
	stateHandler := handler.NewStateHandler(logger, cfg.CookieSecure)

	authMiddleware := middleware.Auth(keyRepo, logger)

	mux.Handle("POST /collect", collectHandler)

	mux.HandleFunc("GET /api/client-id", stateHandler.ClientID)
	mux.HandleFunc("GET /api/attribution", stateHandler.Attribution)
	mux.HandleFunc("GET /api/ad-classification", stateHandler.AdClassification)
	mux.HandleFunc("GET /api/config", stateHandler.Config)

	mux.Handle("GET /events/live", authMiddleware(sseBroker))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}
