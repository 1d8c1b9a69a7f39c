package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/loop2cod/madin-fee-engine/pkg/response"
)

type HealthHandler struct {
	db    *sqlx.DB
	redis *redis.Client
}

func NewHealthHandler(db *sqlx.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// Health reports liveness only; it never touches dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]interface{}{
		"status":    "ok",
		"service":   "fee-engine",
		"timestamp": time.Now(),
	})
}

// Ready reports readiness: the engine cannot take payments without both the
// ledger database and the lock store.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{
		"database": "ok",
		"redis":    "ok",
	}
	ready := true

	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = err.Error()
		ready = false
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		ready = false
	}

	if !ready {
		response.Error(w, http.StatusServiceUnavailable, "service not ready", nil)
		return
	}

	response.Success(w, map[string]interface{}{
		"status":    "ok",
		"checks":    checks,
		"timestamp": time.Now(),
	})
}
