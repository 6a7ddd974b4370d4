package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"telegram-tap-game/internal/pkg/metrics"
)

// ErrTxConflict means a transaction kept hitting transient conflicts
// and gave up after its bounded retries. Callers should treat the
// operation as not having happened; it is safe to retry.
var ErrTxConflict = errors.New("transaction conflict after retries")

// PostgreSQL error codes treated as transient.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// withConflictRetry runs fn up to attempts times, retrying only on
// transient conflict errors. It never retries business rejections and
// never blocks beyond the context's lifetime.
func withConflictRetry(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		if err == nil || !isTransient(err) {
			return err
		}
		metrics.TxConflicts.Inc()
	}
	return fmt.Errorf("%w: %w", ErrTxConflict, err)
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}
