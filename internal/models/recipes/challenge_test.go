package models

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/mnuddindev/cookpulse/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	participationCols = []string{"user_id", "challenge_id", "liked", "status", "completed_at", "created_at"}
	challengeCols     = []string{"id", "title", "description", "points", "starts_at", "ends_at", "created_by", "created_at"}
)

func challengeRow(id int64, points int, start, end time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(challengeCols).AddRow(id, "Sourdough week", "", points, start, end, uuid.NewString(), start)
}

func TestCompleteChallenge(t *testing.T) {
	uid := uuid.New()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	now := start.AddDate(0, 0, 2)

	t.Run("awards points once", func(t *testing.T) {
		gdb, mock := newMock(t)
		expectTx(mock)
		mock.ExpectQuery(`SELECT \* FROM "user_challenges"`).
			WillReturnRows(sqlmock.NewRows(participationCols).AddRow(uid.String(), 4, false, "participating", nil, start))
		mock.ExpectQuery(`SELECT \* FROM "challenges"`).WillReturnRows(challengeRow(4, 50, start, end))
		mock.ExpectExec(`UPDATE "user_challenges"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "users" SET "points"=points \+ \$1`).
			WithArgs(50, uid).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO "notifications"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "is_read"}).AddRow(uuid.NewString(), false))
		mock.ExpectCommit()

		res, err := CompleteChallenge(context.Background(), gdb, uid, 4, now)
		require.NoError(t, err)
		assert.Equal(t, StatusJustCompleted, res.Status)
		assert.Equal(t, 50, res.Awarded)
		assert.Equal(t, StatusCompleted, res.Participation.Status)
		require.NotNil(t, res.Participation.CompletedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second completion is a no-op", func(t *testing.T) {
		gdb, mock := newMock(t)
		expectTx(mock)
		mock.ExpectQuery(`SELECT \* FROM "user_challenges"`).
			WillReturnRows(sqlmock.NewRows(participationCols).AddRow(uid.String(), 4, false, "completed", now, start))
		mock.ExpectQuery(`SELECT \* FROM "challenges"`).WillReturnRows(challengeRow(4, 50, start, end))
		mock.ExpectCommit()

		res, err := CompleteChallenge(context.Background(), gdb, uid, 4, now)
		require.NoError(t, err)
		assert.Equal(t, StatusAlreadyCompleted, res.Status)
		assert.Zero(t, res.Awarded)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("closed challenge", func(t *testing.T) {
		gdb, mock := newMock(t)
		expectTx(mock)
		mock.ExpectQuery(`SELECT \* FROM "user_challenges"`).
			WillReturnRows(sqlmock.NewRows(participationCols).AddRow(uid.String(), 4, false, "participating", nil, start))
		mock.ExpectQuery(`SELECT \* FROM "challenges"`).WillReturnRows(challengeRow(4, 50, start, end))
		mock.ExpectRollback()

		_, err := CompleteChallenge(context.Background(), gdb, uid, 4, end.Add(time.Hour))
		assert.True(t, utils.Is(err, utils.Validation("challenge_closed")))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not participating", func(t *testing.T) {
		gdb, mock := newMock(t)
		expectTx(mock)
		mock.ExpectQuery(`SELECT \* FROM "user_challenges"`).WillReturnRows(sqlmock.NewRows(participationCols))
		mock.ExpectRollback()

		_, err := CompleteChallenge(context.Background(), gdb, uid, 4, now)
		assert.True(t, utils.Is(err, utils.Validation("not_participating")))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateChallengeRejectsBadWindow(t *testing.T) {
	gdb, mock := newMock(t)
	start := time.Now()
	_, err := CreateChallenge(context.Background(), gdb, uuid.New(), CreateChallengeRequest{
		Title: "Soups", StartsAt: start, EndsAt: start,
	})
	assert.True(t, utils.Is(err, utils.Validation("invalid_window")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChallengeOpen(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	c := Challenge{StartsAt: start, EndsAt: start.Add(24 * time.Hour)}
	assert.False(t, c.Open(start.Add(-time.Second)))
	assert.True(t, c.Open(start))
	assert.True(t, c.Open(c.EndsAt))
	assert.False(t, c.Open(c.EndsAt.Add(time.Second)))
}

func TestRankEntries(t *testing.T) {
	rows := []LeaderboardEntry{
		{Username: "ana", Points: 90},
		{Username: "bo", Points: 70},
		{Username: "cy", Points: 70},
		{Username: "di", Points: 10},
	}
	rankEntries(rows)
	var ranks []int
	for _, r := range rows {
		ranks = append(ranks, r.Rank)
	}
	assert.Equal(t, []int{1, 2, 2, 4}, ranks)
}
