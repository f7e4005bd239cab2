// Package persistence holds the storage-agnostic transaction runner shared by
// every store backend.
package persistence

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"cosmos-backend/application/ports"
	pkgerrors "cosmos-backend/pkg/errors"
)

// RetryObserver is notified of every storage retry.
type RetryObserver interface {
	ObserveStorageRetry(operation string)
}

// RetryConfig bounds how transient storage faults are retried.
type RetryConfig struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns the retry bounds used when none are configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     250 * time.Millisecond,
	}
}

// Transactor implements ports.Transactor on top of a ports.Store.
type Transactor struct {
	store    ports.Store
	retry    RetryConfig
	observer RetryObserver
	logger   *zap.Logger
}

// NewTransactor creates a transactor. observer may be nil.
func NewTransactor(store ports.Store, retry RetryConfig, observer RetryObserver, logger *zap.Logger) *Transactor {
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryConfig()
	}
	return &Transactor{
		store:    store,
		retry:    retry,
		observer: observer,
		logger:   logger,
	}
}

// WithinTransaction runs fn inside a fresh unit of work, committing on
// success. Retryable failures restart fn from scratch.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx ports.Repositories) error) error {
	return t.run(ctx, "transaction", func() error {
		uow := t.store.NewUnitOfWork()
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer func() {
			if rbErr := uow.Rollback(); rbErr != nil {
				t.logger.Warn("Failed to rollback transaction", zap.Error(rbErr))
			}
		}()

		if err := fn(ctx, uow); err != nil {
			return err
		}
		return uow.Commit(ctx)
	})
}

// Read runs fn against the store outside a transaction.
func (t *Transactor) Read(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	return t.run(ctx, "read", func() error {
		return fn(ctx, t.store)
	})
}

func (t *Transactor) run(ctx context.Context, operation string, attempt func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = t.retry.InitialInterval
	exp.MaxInterval = t.retry.MaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := attempt()
		if err != nil && !pkgerrors.IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(exp),
		backoff.WithMaxTries(t.retry.MaxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			t.logger.Debug("Retrying storage operation",
				zap.String("operation", operation),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
			if t.observer != nil {
				t.observer.ObserveStorageRetry(operation)
			}
		}),
	)
	return err
}
