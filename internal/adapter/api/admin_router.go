package api

import (
	"log/slog"
	"net/http"

	"github.com/trackbeam/beacon/internal/adapter/api/handler"
	"github.com/trackbeam/beacon/internal/usecase"
)

// NewAdminRouter creates and configures the HTTP router for stream
// administration. The collector owns a single event stream, so the
// routes address consumer groups directly.
func NewAdminRouter(adminUseCase *usecase.AdminStreamUseCase, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	adminHandler := handler.NewAdminHandler(adminUseCase, logger)

	mux.HandleFunc("GET /health", adminHandler.HealthCheck)

	// Group Info
	mux.HandleFunc("GET /admin/groups", adminHandler.GetGroupInfo)

	// Pending Messages
	mux.HandleFunc("GET /admin/groups/{groupName}/pending", adminHandler.GetPendingSummary)
	mux.HandleFunc("GET /admin/groups/{groupName}/pending/messages", adminHandler.GetPendingMessages)

	// Stream Operations
	mux.HandleFunc("POST /admin/groups/{groupName}/claim", adminHandler.ClaimEvents)
	mux.HandleFunc("POST /admin/groups/{groupName}/ack", adminHandler.AcknowledgeMessages)
	mux.HandleFunc("POST /admin/trim", adminHandler.TrimStream)

	return mux
}
