// Package notify records user notifications as a best-effort side effect.
// Nothing here returns an error to the operation that triggered it.
package notify

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/safar/repair-orders/internal/models"
	"github.com/safar/repair-orders/internal/store"
)

// Sink persists a single notification.
type Sink interface {
	Create(ctx context.Context, n *models.Notification) error
}

// StoreSink writes notifications to the notifications table on its own
// connection, outside any caller transaction.
type StoreSink struct {
	DB *sql.DB
}

func (s StoreSink) Create(ctx context.Context, n *models.Notification) error {
	return store.CreateNotification(ctx, s.DB, n)
}

type Emitter struct {
	sink Sink
	log  zerolog.Logger
}

func NewEmitter(sink Sink, log zerolog.Logger) *Emitter {
	return &Emitter{sink: sink, log: log}
}

// Emit stores n. Failures, panics included, are logged and dropped.
func (e *Emitter) Emit(ctx context.Context, n models.Notification) {
	if e == nil || e.sink == nil {
		return
	}

	if err := e.create(ctx, &n); err != nil {
		e.log.Warn().Err(err).
			Str("type", n.Type).
			Int64("user_id", n.UserID).
			Msg("notification: failed to store (non-fatal)")
		return
	}

	e.log.Debug().
		Str("type", n.Type).
		Int64("user_id", n.UserID).
		Int64("notification_id", n.ID).
		Msg("notification: stored")
}

func (e *Emitter) EmitAll(ctx context.Context, ns []models.Notification) {
	for _, n := range ns {
		e.Emit(ctx, n)
	}
}

func (e *Emitter) create(ctx context.Context, n *models.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.sink.Create(ctx, n)
}
