package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/facts-api/internal/database"
    "github.com/iliyamo/facts-api/internal/model"
)

// Liveness answers "ok" without touching any dependency.  Load balancers use
// it to tell a running process from a healthy one.
func Liveness(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// ConnectionProber is satisfied by *database.Probe.
type ConnectionProber interface {
    EnsureConnection(ctx context.Context) error
}

// HealthHandler reports database reachability.  Debug is copied into every
// response verbatim.
type HealthHandler struct {
    Probe  ConnectionProber
    Debug  bool
    Logger *zap.Logger
}

// NewHealthHandler wires a HealthHandler.  A nil logger discards output.
func NewHealthHandler(probe ConnectionProber, debug bool, logger *zap.Logger) *HealthHandler {
    if logger == nil {
        logger = zap.NewNop()
    }
    return &HealthHandler{Probe: probe, Debug: debug, Logger: logger}
}

// Health handles GET /api/health/.  An unreachable database yields 503 with
// status "unhealthy".  Probe errors outside the connection layer are returned
// to the error handler and surface as a plain 500.
func (h *HealthHandler) Health(c echo.Context) error {
    err := h.Probe.EnsureConnection(c.Request().Context())
    if err != nil && !errors.Is(err, database.ErrUnavailable) {
        return err
    }
    if err != nil {
        h.Logger.Warn("health: database unreachable", zap.Error(err))
    }
    st := model.NewHealthStatus(err == nil, h.Debug)
    return c.JSON(st.HTTPStatus(), st)
}
