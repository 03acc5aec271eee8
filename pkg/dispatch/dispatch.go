// Package dispatch is the outward boundary of the pipeline: it accepts a
// rendered (subject, text, html) triple and delivers it.
package dispatch

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mosajjal/alertmailer/pkg/models"
	"github.com/mosajjal/alertmailer/pkg/storage"
)

// Sender delivers one rendered notification
type Sender interface {
	Send(ctx context.Context, subject, text, html string) error
}

// SenderFunc adapts a function to Sender
type SenderFunc func(ctx context.Context, subject, text, html string) error

// Send calls f
func (f SenderFunc) Send(ctx context.Context, subject, text, html string) error {
	return f(ctx, subject, text, html)
}

// Dispatcher sends through a primary Sender and copies each notification to
// optional side paths. Only the primary decides the outcome; mirror and
// archive failures are logged and dropped.
type Dispatcher struct {
	primary        Sender
	mirrors        []Sender
	coldStorage    storage.StorageBackend
	failureStorage storage.StorageBackend
	logger         *slog.Logger
	now            func() time.Time
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithMirror adds a best-effort secondary sender
func WithMirror(s Sender) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.mirrors = append(d.mirrors, s)
		}
	}
}

// WithColdStorage archives every notification before it is sent
func WithColdStorage(b storage.StorageBackend) Option {
	return func(d *Dispatcher) { d.coldStorage = b }
}

// WithFailureStorage archives notifications the primary failed to send
func WithFailureStorage(b storage.StorageBackend) Option {
	return func(d *Dispatcher) { d.failureStorage = b }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher creates a Dispatcher around primary
func NewDispatcher(primary Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		primary: primary,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send delivers through the primary sender and returns its error unchanged
func (d *Dispatcher) Send(ctx context.Context, subject, text, html string) error {
	n := &models.Notification{
		ID:      uuid.New().String(),
		Time:    d.now(),
		Subject: subject,
		Text:    text,
		HTML:    html,
	}

	// Send to cold storage if configured
	if d.coldStorage != nil {
		if err := d.coldStorage.Store(ctx, []*models.Notification{n}); err != nil {
			d.logger.Warn("failed to archive notification", "id", n.ID, "err", err)
		}
	}

	if err := d.primary.Send(ctx, subject, text, html); err != nil {
		if d.failureStorage != nil {
			if serr := d.failureStorage.Store(ctx, []*models.Notification{n}); serr != nil {
				d.logger.Warn("failed to store undelivered notification", "id", n.ID, "err", serr)
			}
		}
		return err
	}

	for _, m := range d.mirrors {
		if err := m.Send(ctx, subject, text, html); err != nil {
			d.logger.Warn("mirror delivery failed", "id", n.ID, "err", err)
		}
	}
	return nil
}

// Close stops mirrors that hold resources and releases the archives
func (d *Dispatcher) Close() error {
	for _, m := range d.mirrors {
		if c, ok := m.(io.Closer); ok {
			if err := c.Close(); err != nil {
				return err
			}
		}
	}
	for _, b := range []storage.StorageBackend{d.coldStorage, d.failureStorage} {
		if b != nil {
			if err := b.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}
