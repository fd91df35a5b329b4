package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checked_at"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus   `json:"status"`
	Message    string         `json:"message,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CheckedAt  time.Time      `json:"checked_at"`
	DurationMs int64          `json:"duration_ms"`
}

// Pinger is any dependency the readiness check should reach, such as redis.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db      *sql.DB
	extra   map[string]Pinger
	timeout time.Duration
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db, extra: map[string]Pinger{}, timeout: 2 * time.Second}
}

// WithComponent adds a named dependency to the readiness check.
func (h *HealthHandler) WithComponent(name string, p Pinger) *HealthHandler {
	if p != nil {
		h.extra[name] = p
	}
	return h
}

// pingHandler is the liveness probe; it never touches dependencies.
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}

// healthCheckHandler is the readiness probe; it checks postgres and every extra component.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:     HealthHealthy,
		Components: map[string]CheckEntry{},
	}

	resp.Components["postgres"] = check(ctx, h.db.PingContext)

	names := make([]string, 0, len(h.extra))
	for name := range h.extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		resp.Components[name] = check(ctx, h.extra[name].Ping)
	}

	for _, entry := range resp.Components {
		if entry.Status == HealthUnhealthy {
			resp.Status = HealthUnhealthy
		}
	}
	resp.CheckedAt = time.Now()

	statusCode := http.StatusOK
	if resp.Status == HealthUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

func check(ctx context.Context, ping func(context.Context) error) CheckEntry {
	start := time.Now()
	err := ping(ctx)
	entry := CheckEntry{
		Status:     HealthHealthy,
		CheckedAt:  time.Now(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Status = HealthUnhealthy
		entry.Message = err.Error()
	}
	return entry
}
