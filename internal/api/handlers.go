package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler contains HTTP handlers for the operational REST surface.
type Handler struct {
	pool        *pgxpool.Pool
	testingMode bool
}

// NewHandler creates a new Handler with required dependencies.
func NewHandler(pool *pgxpool.Pool, testingMode bool) *Handler {
	return &Handler{pool: pool, testingMode: testingMode}
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HandleHealth returns basic health status (always returns 200 OK).
// Liveness only; database reachability is HandleReady's job.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   "adcp-sales-agent",
		Version:   "1.0.0",
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleReady returns 200 when the database is reachable, 503 otherwise.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.pool.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Not Ready", "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleResetDBPool drops and re-establishes all pooled connections.
// Refuses to act outside testing mode.
func (h *Handler) HandleResetDBPool(w http.ResponseWriter, r *http.Request) {
	if !h.testingMode {
		writeError(w, http.StatusForbidden, "Forbidden", "only available in testing mode")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "use POST")
		return
	}
	h.pool.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "pool reset"})
}

// DBState reports connection pool statistics.
type DBState struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
}

// HandleDebugDBState reports pool statistics. Refuses to act outside
// testing mode.
func (h *Handler) HandleDebugDBState(w http.ResponseWriter, r *http.Request) {
	if !h.testingMode {
		writeError(w, http.StatusForbidden, "Forbidden", "only available in testing mode")
		return
	}
	stat := h.pool.Stat()
	writeJSON(w, http.StatusOK, DBState{
		TotalConns:    stat.TotalConns(),
		IdleConns:     stat.IdleConns(),
		AcquiredConns: stat.AcquiredConns(),
		MaxConns:      stat.MaxConns(),
	})
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// writeError writes an RFC 7807 Problem Details JSON error response
func writeError(w http.ResponseWriter, status int, title, detail string) {
	problem := ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(problem)
}
