// internal/library/implementation.go
package library

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"libraryos/internal/activity"
	"libraryos/internal/catalog"
	"libraryos/internal/circulation"
	"libraryos/internal/logging"
	"libraryos/internal/membership"
	"libraryos/internal/storage"
)

// service implements the Service interface.
type service struct {
	mu      sync.RWMutex
	store   storage.Store
	log     *logrus.Logger
	tracer  trace.Tracer
	metrics *metrics
	now     func() time.Time
	newID   func() string
	limiter *keyedLimiter
	meters  metric.MeterProvider

	users []membership.User
	creds []membership.Credential
	books []catalog.Book
	txs   []circulation.Transaction
	logs  []activity.Log
}

type Option func(*service)

// WithClock replaces the wall clock; tests use it to move time.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *service) { s.newID = newID }
}

func WithLogger(log *logrus.Logger) Option {
	return func(s *service) { s.log = log }
}

// WithAuthLimiter replaces the factory for the per-email limiters guarding
// Register and Authenticate.
func WithAuthLimiter(newLimit func() *rate.Limiter) Option {
	return func(s *service) { s.limiter = newKeyedLimiter(newLimit) }
}

// WithMeterProvider records counters on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *service) { s.meters = mp }
}

// NewService creates a library service on top of store. Call Load before
// using it.
func NewService(store storage.Store, opts ...Option) Service {
	s := &service{
		store:   store,
		log:     logging.Discard(),
		tracer:  otel.Tracer("libraryos/library"),
		meters:  otel.GetMeterProvider(),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
		limiter: newKeyedLimiter(defaultAuthLimiter),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newMetrics(s.meters)
	return s
}

// Load reads every collection from the store, seeding users and books on
// first run.
func (s *service) Load(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "library.load")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	users, hasUsers, err := storage.Load[membership.User](ctx, s.store, storage.KeyUsers)
	if err != nil {
		return s.fail(span, err, "load users")
	}
	creds, _, err := storage.Load[membership.Credential](ctx, s.store, storage.KeyCredentials)
	if err != nil {
		return s.fail(span, err, "load credentials")
	}
	books, hasBooks, err := storage.Load[catalog.Book](ctx, s.store, storage.KeyBooks)
	if err != nil {
		return s.fail(span, err, "load books")
	}
	txs, _, err := storage.Load[circulation.Transaction](ctx, s.store, storage.KeyTransactions)
	if err != nil {
		return s.fail(span, err, "load transactions")
	}
	logs, _, err := storage.Load[activity.Log](ctx, s.store, storage.KeyActivityLogs)
	if err != nil {
		return s.fail(span, err, "load activity logs")
	}

	var cs changeset
	if !hasUsers {
		if users, creds, err = seedUsers(); err != nil {
			return s.fail(span, err, "seed users")
		}
		cs.users, cs.creds = &users, &creds
	}
	if !hasBooks {
		books = seedBooks()
		cs.books = &books
	}
	if err := s.commit(ctx, cs); err != nil {
		return s.fail(span, err, "persist seed data")
	}
	s.users, s.creds, s.books, s.txs, s.logs = users, creds, books, txs, logs

	s.log.WithFields(logrus.Fields{
		"users":        len(s.users),
		"books":        len(s.books),
		"transactions": len(s.txs),
		"logs":         len(s.logs),
		"seeded":       !hasUsers || !hasBooks,
	}).Info("library loaded")
	return nil
}

// Flush writes every collection back to the store.
func (s *service) Flush(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "library.flush")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.commit(ctx, changeset{
		users: &s.users,
		creds: &s.creds,
		books: &s.books,
		txs:   &s.txs,
		logs:  &s.logs,
	})
	if err != nil {
		return s.fail(span, err, "flush")
	}
	return nil
}

// changeset names the collections a mutation replaced. Nil fields are
// untouched.
type changeset struct {
	users *[]membership.User
	creds *[]membership.Credential
	books *[]catalog.Book
	txs   *[]circulation.Transaction
	logs  *[]activity.Log
}

// commit writes the changed collections and only then swaps them in, so a
// failed write leaves memory as it was. Callers hold the write lock.
func (s *service) commit(ctx context.Context, cs changeset) error {
	if cs.users != nil {
		if err := storage.Save(ctx, s.store, storage.KeyUsers, *cs.users); err != nil {
			return err
		}
	}
	if cs.creds != nil {
		if err := storage.Save(ctx, s.store, storage.KeyCredentials, *cs.creds); err != nil {
			return err
		}
	}
	if cs.books != nil {
		if err := storage.Save(ctx, s.store, storage.KeyBooks, *cs.books); err != nil {
			return err
		}
	}
	if cs.txs != nil {
		if err := storage.Save(ctx, s.store, storage.KeyTransactions, *cs.txs); err != nil {
			return err
		}
	}
	if cs.logs != nil {
		if err := storage.Save(ctx, s.store, storage.KeyActivityLogs, *cs.logs); err != nil {
			return err
		}
	}

	if cs.users != nil {
		s.users = *cs.users
	}
	if cs.creds != nil {
		s.creds = *cs.creds
	}
	if cs.books != nil {
		s.books = *cs.books
	}
	if cs.txs != nil {
		s.txs = *cs.txs
	}
	if cs.logs != nil {
		s.logs = *cs.logs
	}
	return nil
}

// withLog returns a copy of the activity log with one more entry.
func (s *service) withLog(userID, bookID string, action activity.Action, details string, now time.Time) []activity.Log {
	return append(slices.Clone(s.logs), activity.Log{
		ID:        s.newID(),
		UserID:    userID,
		BookID:    bookID,
		Action:    action,
		Timestamp: now,
		Details:   details,
	})
}

func (s *service) fail(span trace.Span, err error, op string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.log.WithError(err).WithField("op", op).Error("library operation failed")
	return fmt.Errorf("%s: %w", op, err)
}

func (s *service) bookIndex(id string) int {
	return slices.IndexFunc(s.books, func(b catalog.Book) bool { return b.ID == id })
}

func (s *service) txIndex(id string) int {
	return slices.IndexFunc(s.txs, func(t circulation.Transaction) bool { return t.ID == id })
}
