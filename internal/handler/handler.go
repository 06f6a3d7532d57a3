package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/renzo-dev/accounts/internal/service"
	"github.com/renzo-dev/accounts/shared/config"
	"github.com/renzo-dev/accounts/shared/logger"
)

// Pinger reports backing-store health for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	auth   service.AuthService
	health Pinger
	cfg    *config.Config
}

func New(auth service.AuthService, health Pinger, cfg *config.Config) *Handler {
	return &Handler{auth, health, cfg}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("failed to encode response", "error", err)
	}
}
