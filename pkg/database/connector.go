package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrUnavailable is returned when no usable connection can be produced.
	ErrUnavailable = errors.New("database unavailable")
	// ErrNotConfigured is returned when no connection URL is set. It wraps ErrUnavailable.
	ErrNotConfigured = fmt.Errorf("%w: no database url configured", ErrUnavailable)
)

// Connector hands out database sessions. Callers must Close every session
// they receive.
type Connector interface {
	Open(ctx context.Context) (*Session, error)
	Configured() bool
}

// Session is a scoped database handle.
type Session struct {
	db    *gorm.DB
	close func() error
}

// NewSession wraps db; closeFn is invoked once by Close.
func NewSession(db *gorm.DB, closeFn func() error) *Session {
	return &Session{db: db, close: closeFn}
}

// DB returns the GORM handle bound to this session.
func (s *Session) DB() *gorm.DB {
	return s.db
}

// Close releases the session. Calling it more than once is a no-op.
func (s *Session) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	fn := s.close
	s.close = nil
	return fn()
}

// PerCallConnector opens a brand-new connection on every Open and closes it
// with the session. Nothing is shared between calls.
type PerCallConnector struct {
	cfg Config
}

// NewPerCallConnector creates a connector for cfg.
func NewPerCallConnector(cfg Config) *PerCallConnector {
	return &PerCallConnector{cfg: cfg}
}

// Configured reports whether a connection URL was supplied.
func (c *PerCallConnector) Configured() bool {
	return c.cfg.Configured()
}

// Open establishes a new connection. Every failure is reported as an error
// wrapping ErrUnavailable.
func (c *PerCallConnector) Open(ctx context.Context) (*Session, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	db, err := New(ctx, &c.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return NewSession(db.WithContext(ctx), sqlDB.Close), nil
}

// Ping opens and immediately closes a session.
func Ping(ctx context.Context, c Connector) error {
	sess, err := c.Open(ctx)
	if err != nil {
		return err
	}
	return sess.Close()
}
