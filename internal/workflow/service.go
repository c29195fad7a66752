// Package workflow coordinates stage mutations, the parts suggestion ledger
// and order status recomputation. Each operation commits its writes in one
// transaction and only then emits the notifications it produced.
package workflow

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"
	"github.com/safar/repair-orders/internal/database"
	"github.com/safar/repair-orders/internal/models"
	"github.com/safar/repair-orders/internal/notify"
	"github.com/safar/repair-orders/internal/template"
)

const defaultNotificationLimit = 50

type Service struct {
	db                *sql.DB
	emitter           *notify.Emitter
	templates         *template.Registry
	log               zerolog.Logger
	txOpts            database.TxOptions
	notificationLimit int
	now               func() time.Time
}

type Option func(*Service)

func WithTemplates(r *template.Registry) Option {
	return func(s *Service) { s.templates = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithTxRetries(n int) Option {
	return func(s *Service) { s.txOpts.MaxRetries = n }
}

func WithNotificationLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.notificationLimit = n
		}
	}
}

func NewService(db *sql.DB, emitter *notify.Emitter, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		db:                db,
		emitter:           emitter,
		log:               log,
		txOpts:            database.DefaultTxOptions(),
		notificationLimit: defaultNotificationLimit,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clock truncates to microseconds, the precision Postgres stores.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// mutate runs fn in a retrying transaction. fn appends to the outbox it is
// given; the outbox is emitted only after a successful commit, so a failed
// or retried attempt never leaks notifications.
func (s *Service) mutate(ctx context.Context, fn func(tx *sql.Tx, outbox *[]models.Notification) error) error {
	var outbox []models.Notification

	err := database.WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		outbox = outbox[:0]
		return fn(tx, &outbox)
	})
	if err != nil {
		return err
	}

	s.emitter.EmitAll(ctx, outbox)
	return nil
}

// read runs fn once in a read-only REPEATABLE READ transaction so multi-query
// reads see a single snapshot.
func (s *Service) read(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return database.WithTransaction(ctx, s.db, database.TxOptions{
		IsolationLevel: sql.LevelRepeatableRead,
		ReadOnly:       true,
	}, fn)
}
