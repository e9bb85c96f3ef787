package model

import "net/http"

const (
    StatusHealthy   = "healthy"
    StatusUnhealthy = "unhealthy"

    DatabaseConnected    = "connected"
    DatabaseDisconnected = "disconnected"
)

// HealthStatus is the body of GET /api/health/.  The fields are exported
// for encoding; Status follows Database only for values built with
// NewHealthStatus, which is what the health handler uses.
type HealthStatus struct {
    Status   string `json:"status"`
    Database string `json:"database"`
    Debug    bool   `json:"debug"`
}

// NewHealthStatus reports healthy exactly when the database is connected.
func NewHealthStatus(connected, debug bool) HealthStatus {
    if connected {
        return HealthStatus{Status: StatusHealthy, Database: DatabaseConnected, Debug: debug}
    }
    return HealthStatus{Status: StatusUnhealthy, Database: DatabaseDisconnected, Debug: debug}
}

// Healthy reports whether the status is "healthy".
func (h HealthStatus) Healthy() bool { return h.Status == StatusHealthy }

// HTTPStatus is 200 for a healthy status and 503 otherwise.
func (h HealthStatus) HTTPStatus() int {
    if h.Healthy() {
        return http.StatusOK
    }
    return http.StatusServiceUnavailable
}
