package models

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mnuddindev/cookpulse/internal/db"
	"github.com/mnuddindev/cookpulse/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var collectionCols = []string{"id", "user_id", "collection_name", "recipe_ids", "created_at"}

func collectionRow(id int64, owner uuid.UUID, name, ids string) *sqlmock.Rows {
	return sqlmock.NewRows(collectionCols).AddRow(id, owner.String(), name, ids, time.Now())
}

func TestAppendUnique(t *testing.T) {
	assert.Equal(t, pq.Int64Array{1, 2, 3}, appendUnique(pq.Int64Array{1, 2}, 2, 3, 3))
	assert.Equal(t, pq.Int64Array{7}, appendUnique(nil, 7, 7))
	assert.Empty(t, appendUnique(nil))
}

func TestRemoveAll(t *testing.T) {
	out, changed := removeAll(pq.Int64Array{4, 5, 4, 6}, 4)
	assert.True(t, changed)
	assert.Equal(t, pq.Int64Array{5, 6}, out)

	out, changed = removeAll(pq.Int64Array{5, 6}, 9)
	assert.False(t, changed)
	assert.Equal(t, pq.Int64Array{5, 6}, out)
}

func TestCreateCollectionValidation(t *testing.T) {
	gdb, mock := newMock(t)
	ctx := context.Background()

	_, err := CreateCollection(ctx, gdb, uuid.Nil, "Dinners", nil)
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	_, err = CreateCollection(ctx, gdb, uuid.New(), "   ", nil)
	assert.True(t, utils.Is(err, utils.Validation("collection_name_required")))

	_, err = CreateCollection(ctx, gdb, uuid.New(), "Dinners", []int64{3, -1})
	assert.True(t, utils.Is(err, utils.Validation("invalid_recipe_id")))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddRecipeToCollection(t *testing.T) {
	owner := uuid.New()

	t.Run("appends a new id", func(t *testing.T) {
		gdb, mock := newMock(t)
		expectTx(mock)
		mock.ExpectQuery(`SELECT \* FROM "collections"`).WillReturnRows(collectionRow(1, owner, "Dinners", "{5}"))
		mock.ExpectExec(`UPDATE "collections" SET "recipe_ids"`).
			WithArgs("{5,9}", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, status, err := AddRecipeToCollection(context.Background(), gdb, 1, 9)
		require.NoError(t, err)
		assert.Equal(t, StatusAdded, status)
		assert.Equal(t, pq.Int64Array{5, 9}, c.RecipeIDs)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("present id writes nothing", func(t *testing.T) {
		gdb, mock := newMock(t)
		expectTx(mock)
		mock.ExpectQuery(`SELECT \* FROM "collections"`).WillReturnRows(collectionRow(1, owner, "Dinners", "{5,9}"))
		mock.ExpectCommit()

		c, status, err := AddRecipeToCollection(context.Background(), gdb, 1, 5)
		require.NoError(t, err)
		assert.Equal(t, StatusAlreadyPresent, status)
		assert.Equal(t, pq.Int64Array{5, 9}, c.RecipeIDs)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing collection", func(t *testing.T) {
		gdb, mock := newMock(t)
		expectTx(mock)
		mock.ExpectQuery(`SELECT \* FROM "collections"`).WillReturnRows(sqlmock.NewRows(collectionCols))
		mock.ExpectRollback()

		_, _, err := AddRecipeToCollection(context.Background(), gdb, 42, 5)
		assert.True(t, utils.Is(err, utils.NotFound("collection_not_found")))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects non-positive ids before touching the store", func(t *testing.T) {
		gdb, mock := newMock(t)
		_, _, err := AddRecipeToCollection(context.Background(), gdb, 1, 0)
		assert.True(t, utils.IsKind(err, utils.KindValidation))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRemoveRecipeFromCollection(t *testing.T) {
	owner := uuid.New()

	t.Run("drops every occurrence", func(t *testing.T) {
		gdb, mock := newMock(t)
		expectTx(mock)
		mock.ExpectQuery(`SELECT \* FROM "collections"`).WillReturnRows(collectionRow(1, owner, "Dinners", "{5,9,5}"))
		mock.ExpectExec(`UPDATE "collections" SET "recipe_ids"`).
			WithArgs("{9}", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, status, err := RemoveRecipeFromCollection(context.Background(), gdb, 1, 5)
		require.NoError(t, err)
		assert.Equal(t, StatusRemoved, status)
		assert.Equal(t, pq.Int64Array{9}, c.RecipeIDs)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent id is a no-op", func(t *testing.T) {
		gdb, mock := newMock(t)
		expectTx(mock)
		mock.ExpectQuery(`SELECT \* FROM "collections"`).WillReturnRows(collectionRow(1, owner, "Dinners", "{9}"))
		mock.ExpectCommit()

		c, status, err := RemoveRecipeFromCollection(context.Background(), gdb, 1, 5)
		require.NoError(t, err)
		assert.Equal(t, StatusRemoved, status)
		assert.Equal(t, pq.Int64Array{9}, c.RecipeIDs)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteCollectionKeepsBookmarks(t *testing.T) {
	gdb, mock := newMock(t)
	expectTx(mock)
	mock.ExpectQuery(`SELECT \* FROM "collections"`).WillReturnRows(collectionRow(3, uuid.New(), BookmarksName, "{}"))
	mock.ExpectRollback()

	err := DeleteCollection(context.Background(), gdb, 3)
	assert.True(t, utils.Is(err, utils.Validation("bookmarks_not_deletable")))
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestConcurrentAddsAgainstPostgres needs a disposable database, e.g.
// COOKPULSE_TEST_DSN="host=localhost user=postgres dbname=cookpulse_test sslmode=disable".
func TestConcurrentAddsAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("COOKPULSE_TEST_DSN")
	if dsn == "" {
		t.Skip("COOKPULSE_TEST_DSN not set")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), db.Config())
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&Collection{}))

	ctx := context.Background()
	c, err := CreateCollection(ctx, gdb, uuid.New(), "race-"+uuid.NewString(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { gdb.Delete(&Collection{}, c.ID) })

	for round := 0; round < 20; round++ {
		var g errgroup.Group
		for _, id := range []int64{5, 9} {
			g.Go(func() error {
				_, _, err := AddRecipeToCollection(ctx, gdb, c.ID, id)
				return err
			})
		}
		require.NoError(t, g.Wait())

		ids, err := ListRecipesInCollection(ctx, gdb, c.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{5, 9}, ids)

		for _, id := range []int64{5, 9} {
			_, _, err := RemoveRecipeFromCollection(ctx, gdb, c.ID, id)
			require.NoError(t, err)
		}
	}
}
