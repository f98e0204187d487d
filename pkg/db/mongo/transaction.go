// Package mongo wraps the driver's session/transaction machinery in
// the shape the billing engine needs: an atomic read-modify-write on
// one or more document keys, retried a bounded number of times when
// concurrent writers collide.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "keiteki/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

type TransactionFunc func(ctx mongo.SessionContext) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
	ExecuteWithRetry(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client      *mongo.Client
	maxAttempts int
	backoff     time.Duration
}

func NewTransactionManager(client *mongo.Client, maxAttempts int, backoff time.Duration) TransactionManager {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &mongoTransactionManager{
		client:      client,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
}

func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	})

	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// ExecuteWithRetry runs the transaction, retrying transient write
// conflicts with linear backoff. Business errors (AppError) pass
// through immediately; exhausting the budget surfaces as
// RETRY_EXHAUSTED so the caller knows a retry of the whole operation
// is safe.
func (m *mongoTransactionManager) ExecuteWithRetry(ctx context.Context, fn TransactionFunc) error {
	var lastErr error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		lastErr = m.ExecuteTransaction(ctx, fn)
		if lastErr == nil {
			return nil
		}
		if apperrors.IsAppError(lastErr) || !isTransient(lastErr) {
			return lastErr
		}
		if attempt == m.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.backoff * time.Duration(attempt)):
		}
	}
	return apperrors.RetryExhausted(
		fmt.Sprintf("transaction still conflicting after %d attempts", m.maxAttempts),
		lastErr,
	)
}

func isTransient(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.HasErrorLabel("TransientTransactionError") ||
			cmdErr.HasErrorLabel("UnknownTransactionCommitResult")
	}
	var labeled mongo.ServerError
	if errors.As(err, &labeled) {
		return labeled.HasErrorLabel("TransientTransactionError")
	}
	return false
}
