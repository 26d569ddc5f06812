package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mnuddindev/cookpulse/pkg/utils"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the store cares about.
const (
	CodeUniqueViolation      = "23505"
	CodeLockNotAvailable     = "55P03"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
)

// TxSettings bounds how long a transaction may wait on a row lock and how often
// a retryable failure reruns the whole transaction.
type TxSettings struct {
	LockTimeout time.Duration
	Attempts    int
	Backoff     time.Duration

	// OnRetry, when set, is called before each rerun.
	OnRetry func(attempt int, err error)
}

var (
	txMu       sync.RWMutex
	txDefaults = TxSettings{
		LockTimeout: 2 * time.Second,
		Attempts:    3,
		Backoff:     25 * time.Millisecond,
	}
)

// ConfigureTx replaces the process-wide transaction settings. Zero values keep the current ones.
// Transactions already running keep the settings they started with.
func ConfigureTx(s TxSettings) {
	txMu.Lock()
	defer txMu.Unlock()
	if s.LockTimeout > 0 {
		txDefaults.LockTimeout = s.LockTimeout
	}
	if s.Attempts > 0 {
		txDefaults.Attempts = s.Attempts
	}
	if s.Backoff > 0 {
		txDefaults.Backoff = s.Backoff
	}
	if s.OnRetry != nil {
		txDefaults.OnRetry = s.OnRetry
	}
}

func txSettings() TxSettings {
	txMu.RLock()
	defer txMu.RUnlock()
	return txDefaults
}

// Transact runs fn inside a transaction. Lock waits are capped with SET LOCAL lock_timeout;
// lock timeouts, serialization failures and deadlocks rerun fn from scratch and, once attempts
// run out, surface as a transient error. Any other failure rolls back and is translated.
func Transact(ctx context.Context, gdb *gorm.DB, fn func(tx *gorm.DB) error) error {
	s := txSettings()
	var err error
	for attempt := 1; attempt <= s.Attempts; attempt++ {
		err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if s.LockTimeout > 0 {
				stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.LockTimeout.Milliseconds())
				if err := tx.Exec(stmt).Error; err != nil {
					return err
				}
			}
			return fn(tx)
		})
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || ctx.Err() != nil {
			break
		}
		if attempt < s.Attempts {
			if s.OnRetry != nil {
				s.OnRetry(attempt, err)
			}
			select {
			case <-time.After(s.Backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return utils.Transient("try_again", ctx.Err().Error())
			}
		}
	}
	return Translate(err)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports a unique constraint failure, raw or already translated by gorm.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || pgCode(err) == CodeUniqueViolation
}

// IsRetryable reports lock timeouts, serialization failures and deadlocks.
func IsRetryable(err error) bool {
	switch pgCode(err) {
	case CodeLockNotAvailable, CodeSerializationFailure, CodeDeadlockDetected:
		return true
	}
	return false
}

// Translate maps store errors onto the application's error kinds. Errors that are
// already *utils.CustomError pass through untouched.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var appErr *utils.CustomError
	if utils.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return utils.NotFound("not_found")
	case IsUniqueViolation(err):
		return utils.Conflict("conflict")
	case IsRetryable(err):
		return utils.Transient("try_again", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return utils.Transient("try_again", err.Error())
	}
	return utils.ErrInternalServerError.WithCause(err)
}
