package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mnuddindev/cookpulse/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), Config())
	require.NoError(t, err)
	return gdb, mock
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind utils.ErrorKind
	}{
		{"record not found", gorm.ErrRecordNotFound, utils.KindNotFound},
		{"duplicated key", gorm.ErrDuplicatedKey, utils.KindConflict},
		{"raw unique violation", &pgconn.PgError{Code: CodeUniqueViolation}, utils.KindConflict},
		{"lock timeout", &pgconn.PgError{Code: CodeLockNotAvailable}, utils.KindTransient},
		{"deadlock", &pgconn.PgError{Code: CodeDeadlockDetected}, utils.KindTransient},
		{"deadline", context.DeadlineExceeded, utils.KindTransient},
		{"unknown", errors.New("boom"), utils.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, utils.IsKind(Translate(tt.err), tt.kind))
		})
	}

	assert.Nil(t, Translate(nil))
	custom := utils.NotFound("collection_not_found")
	assert.Same(t, custom, Translate(custom))
}

func TestTransactCommits(t *testing.T) {
	gdb, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE "reviews"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := Transact(context.Background(), gdb, func(tx *gorm.DB) error {
		return tx.Exec(`UPDATE "reviews" SET num_likes = num_likes + 1 WHERE id = ?`, 1).Error
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactRetriesLockTimeout(t *testing.T) {
	gdb, mock := newMock(t)
	ConfigureTx(TxSettings{Backoff: time.Millisecond})

	for i := 0; i < txSettings().Attempts; i++ {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()
	}

	calls := 0
	err := Transact(context.Background(), gdb, func(tx *gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: CodeLockNotAvailable}
	})
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindTransient))
	assert.Equal(t, txSettings().Attempts, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactDoesNotRetryConflicts(t *testing.T) {
	gdb, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	calls := 0
	err := Transact(context.Background(), gdb, func(tx *gorm.DB) error {
		calls++
		return utils.Conflict("already_reacted")
	})
	assert.Equal(t, 1, calls)
	assert.True(t, utils.IsKind(err, utils.KindConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigureTxWhileTransacting(t *testing.T) {
	before := txSettings()
	t.Cleanup(func() {
		txMu.Lock()
		txDefaults = before
		txMu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ConfigureTx(TxSettings{Attempts: 5, Backoff: time.Duration(i) * time.Millisecond})
		}()
		go func() {
			defer wg.Done()
			s := txSettings()
			assert.Equal(t, before.LockTimeout, s.LockTimeout)
		}()
	}
	wg.Wait()

	s := txSettings()
	assert.Equal(t, 5, s.Attempts)
	assert.Equal(t, before.LockTimeout, s.LockTimeout)
	assert.Positive(t, s.Backoff)
}
