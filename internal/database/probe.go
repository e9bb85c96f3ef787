package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// ErrUnavailable marks a probe failure caused by the connection layer: the
// database could not be reached or refused the session.
var ErrUnavailable = errors.New("database unavailable")

// Pinger is the part of *sql.DB the probe needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Probe checks database reachability with a single ping and no query.
type Probe struct {
	DB      Pinger
	Timeout time.Duration // zero means no extra bound beyond ctx
}

// NewProbe returns a Probe over db bounded by timeout.
func NewProbe(db Pinger, timeout time.Duration) *Probe {
	return &Probe{DB: db, Timeout: timeout}
}

// EnsureConnection opens or reuses a pooled connection and pings it.
// Connection-layer failures are wrapped with ErrUnavailable; anything else is
// returned as is.
func (p *Probe) EnsureConnection(ctx context.Context) error {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	err := p.DB.PingContext(ctx)
	if err == nil {
		return nil
	}
	if IsConnectionError(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// IsConnectionError reports whether err comes from reaching or opening a
// session with the server.  A cancelled context is not one: the caller left.
func IsConnectionError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// Access denied, unknown database, too many connections and similar.
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr)
}
