package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate applies a row lock where the dialect supports one. SQLite has
// no FOR UPDATE; its single-writer transactions already serialize the callers.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// isRetryableTxError reports whether a transaction failed on a transient
// serialization conflict worth retrying: MySQL deadlocks (1213) and lock wait
// timeouts (1205), and sqlite busy/locked states in tests.
func isRetryableTxError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "lock wait timeout"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database table is locked"),
		strings.Contains(msg, "sqlite_busy"):
		return true
	}
	return false
}

// runInTxWithRetry executes fn in a transaction, retrying transient conflicts
// up to maxRetries with a short backoff. Semantic failures (any
// *ServiceError) are terminal and returned as-is; once retries are exhausted
// the conflict is surfaced as ErrConcurrencyConflict so the caller can decide
// whether to retry the whole request.
func runInTxWithRetry(ctx context.Context, db *gorm.DB, maxRetries int, fn func(tx *gorm.DB) error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 20 * time.Millisecond):
			}
		}

		err = db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}

		var svcErr *ServiceError
		if errors.As(err, &svcErr) {
			return svcErr
		}
		if !isRetryableTxError(err) {
			return storeUnavailable(err)
		}
	}
	return &ServiceError{Kind: KindConcurrencyConflict, Message: "transient store conflict, retry", cause: err}
}
