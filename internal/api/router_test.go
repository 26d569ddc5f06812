package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	v1 "github.com/mnuddindev/cookpulse/internal/api/v1"
	"github.com/mnuddindev/cookpulse/internal/auth"
	"github.com/mnuddindev/cookpulse/internal/calendar"
	"github.com/mnuddindev/cookpulse/internal/db"
	"github.com/mnuddindev/cookpulse/internal/metrics"
	"github.com/mnuddindev/cookpulse/pkg/logger"
	"github.com/mnuddindev/cookpulse/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type harness struct {
	app    *fiber.App
	mock   sqlmock.Sqlmock
	tokens *auth.TokenManager
	uid    uuid.UUID
	token  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), db.Config())
	require.NoError(t, err)

	log, err := logger.NewLogger(logger.WithOutputDir(t.TempDir()), logger.WithStdout(io.Discard))
	require.NoError(t, err)
	t.Cleanup(log.Close)

	tokens, err := auth.NewTokenManager("router-test-secret")
	require.NoError(t, err)

	v1.Setup(v1.Deps{
		DB:       gdb,
		Logger:   log,
		Tokens:   tokens,
		Calendar: calendar.NewScheduler(calendar.NewMemoryStore()),
		Metrics:  metrics.NewMetrics(),
	})
	v1.Now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { v1.Now = time.Now })

	app := fiber.New(fiber.Config{ErrorHandler: utils.HandleError})
	Register(app.Group("/api/v1"), v1.Auth)

	uid := uuid.New()
	token, _, err := tokens.GenerateAccessToken(uid.String(), uuid.NewString())
	require.NoError(t, err)
	return &harness{app: app, mock: mock, tokens: tokens, uid: uid, token: token}
}

func (h *harness) do(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	resp, raw := h.raw(t, method, path, body)
	var out map[string]interface{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (h *harness) raw(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if h.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+h.token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	h := newHarness(t)
	h.token = ""

	status, body := h.do(t, http.MethodGet, "/api/v1/collections", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.NotEmpty(t, body["error"])
}

func TestCreateCollection(t *testing.T) {
	t.Run("unknown fields are rejected", func(t *testing.T) {
		h := newHarness(t)
		status, body := h.do(t, http.MethodPost, "/api/v1/collections", `{"collectionName":"Soups","owner":"x"}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "invalid_request_body", body["error"])
	})

	t.Run("missing name fails validation", func(t *testing.T) {
		h := newHarness(t)
		status, body := h.do(t, http.MethodPost, "/api/v1/collections", `{"recipe_ids":[1]}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "validation_failed", body["error"])
		assert.Contains(t, body["details"], "collectionName is required")
	})

	t.Run("created", func(t *testing.T) {
		h := newHarness(t)
		h.mock.ExpectQuery(`INSERT INTO "collections"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

		status, body := h.do(t, http.MethodPost, "/api/v1/collections", `{"collectionName":"Soups","recipe_ids":[4,4,9]}`)
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, "created", body["message"])
		col := body["collection"].(map[string]interface{})
		assert.EqualValues(t, 7, col["id"])
		assert.Equal(t, []interface{}{4.0, 9.0}, col["recipe_ids"])
		require.NoError(t, h.mock.ExpectationsWereMet())
	})

	t.Run("duplicate name", func(t *testing.T) {
		h := newHarness(t)
		h.mock.ExpectQuery(`INSERT INTO "collections"`).WillReturnError(gorm.ErrDuplicatedKey)

		status, body := h.do(t, http.MethodPost, "/api/v1/collections", `{"collectionName":"Soups"}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "collection_exists", body["error"])
	})
}

func TestForeignCollectionIsHidden(t *testing.T) {
	h := newHarness(t)
	h.mock.ExpectQuery(`SELECT \* FROM "collections"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "collection_name", "recipe_ids", "created_at"}).
			AddRow(3, uuid.NewString(), "Theirs", "{1,2}", time.Now()))

	status, body := h.do(t, http.MethodPost, "/api/v1/collections/3/recipes/5", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "collection_not_found", body["error"])
}

func TestDeleteBookmarksCollectionIsRefused(t *testing.T) {
	h := newHarness(t)
	cols := []string{"id", "user_id", "collection_name", "recipe_ids", "created_at"}
	h.mock.ExpectQuery(`SELECT \* FROM "collections"`).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, h.uid.String(), "My Bookmarks", "{1}", time.Now()))
	h.mock.ExpectBegin()
	h.mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	h.mock.ExpectQuery(`SELECT \* FROM "collections"`).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, h.uid.String(), "My Bookmarks", "{1}", time.Now()))
	h.mock.ExpectRollback()

	status, body := h.do(t, http.MethodDelete, "/api/v1/collections/3", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "bookmarks_not_deletable", body["error"])
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestReviewFeedback(t *testing.T) {
	t.Run("is_like is required", func(t *testing.T) {
		h := newHarness(t)
		status, body := h.do(t, http.MethodPost, "/api/v1/reviews/1/feedback", `{}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "validation_failed", body["error"])
	})

	t.Run("like notifies the author", func(t *testing.T) {
		h := newHarness(t)
		author := uuid.New()
		now := time.Now()
		h.mock.ExpectBegin()
		h.mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
		h.mock.ExpectQuery(`SELECT \* FROM "reviews"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "recipe_id", "user_id", "rating", "content", "num_likes", "num_dislikes", "edited", "created_at", "updated_at"}).
				AddRow(1, 10, author.String(), 5, "yum", 0, 0, false, now, now))
		h.mock.ExpectQuery(`SELECT \* FROM "review_feedbacks"`).
			WillReturnRows(sqlmock.NewRows([]string{"review_id", "user_id", "is_like", "created_at", "updated_at"}))
		h.mock.ExpectExec(`INSERT INTO "review_feedbacks"`).WillReturnResult(sqlmock.NewResult(0, 1))
		h.mock.ExpectExec(`UPDATE "reviews" SET "num_likes"`).WillReturnResult(sqlmock.NewResult(0, 1))
		h.mock.ExpectCommit()
		h.mock.ExpectQuery(`SELECT \* FROM "notification_preferences"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "email_on_challenge", "notify_on_review_like", "created_at", "updated_at"}).
				AddRow(uuid.NewString(), author.String(), true, true, now, now))
		h.mock.ExpectQuery(`INSERT INTO "notifications"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "is_read"}).AddRow(uuid.NewString(), false))

		status, body := h.do(t, http.MethodPost, "/api/v1/reviews/1/feedback", `{"is_like":true}`)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "liked", body["message"])
		assert.Equal(t, "liked", body["state"])
		assert.EqualValues(t, 1, body["num_likes"])
		require.NoError(t, h.mock.ExpectationsWereMet())
	})
}

func TestCreateChallengeNeedsPermission(t *testing.T) {
	h := newHarness(t)
	h.mock.ExpectQuery(`SELECT \* FROM "roles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(uuid.NewString(), "member"))
	h.mock.ExpectQuery(`SELECT \* FROM "role_permissions"`).
		WillReturnRows(sqlmock.NewRows([]string{"role_id", "permission_id"}))

	status, body := h.do(t, http.MethodPost, "/api/v1/challenges",
		`{"title":"Soup week","points":10,"starts_at":"2025-03-01T00:00:00Z","ends_at":"2025-03-08T00:00:00Z"}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", body["error"])
}

func TestCalendarRoutes(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, http.MethodPost, "/api/v1/calendar/events",
		`{"date":"2025-03-03","time":"18:30","name":"Lasagna","category":"dinner","repeat":"weekly"}`)
	require.Equal(t, http.StatusCreated, status)
	events := body["events"].([]interface{})
	assert.Len(t, events, 26)
	seriesID, _ := body["series_id"].(string)
	require.NotEmpty(t, seriesID)

	status, body = h.do(t, http.MethodPost, "/api/v1/calendar/events", `{"date":"2025-03-03","name":"x","repeat":"hourly"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_recurrence_rule", body["error"])

	status, body = h.do(t, http.MethodGet, "/api/v1/calendar/events?from=2025-03-01&to=2025-03-31", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["days"], 5)

	resp, raw := h.raw(t, http.MethodGet, "/api/v1/calendar/export.ics?from=2025-03-01&to=2025-03-10", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/calendar")
	assert.Contains(t, string(raw), "SUMMARY:Lasagna")

	status, body = h.do(t, http.MethodDelete, "/api/v1/calendar/series/"+seriesID, "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 26, body["removed"])

	status, body = h.do(t, http.MethodGet, "/api/v1/calendar/events?from=2025-03-01&to=2025-03-31", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["days"])
}

func TestLoginUnknownEmail(t *testing.T) {
	h := newHarness(t)
	h.token = ""
	h.mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(sqlmock.NewRows([]string{"id", "email"}))

	status, body := h.do(t, http.MethodPost, "/api/v1/login", `{"email":"Nobody@Example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_credentials", body["error"])
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestRefreshWithoutCookie(t *testing.T) {
	h := newHarness(t)
	h.token = ""
	status, _ := h.do(t, http.MethodPost, "/api/v1/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHandlerLogsCarryRequestAndUser(t *testing.T) {
	h := newHarness(t)
	captured := &logger.Logger{
		MinLevel: logger.LevelDebug,
		Queue:    make(chan logger.LogEntry, 64),
		Quit:     make(chan struct{}),
	}
	v1.Logger = captured

	app := fiber.New(fiber.Config{ErrorHandler: utils.HandleError})
	app.Use(logger.SetupLogger(captured))
	Register(app.Group("/api/v1"), v1.Auth)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/collections", strings.NewReader(`{"collectionName":"Soups","owner":"x"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+h.token)
	req.Header.Set(fiber.HeaderXRequestID, "req-soups-1")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var parseLog *logger.LogEntry
	for len(captured.Queue) > 0 {
		e := <-captured.Queue
		if e.Message == "Failed to parse request body" {
			parseLog = &e
		}
	}
	require.NotNil(t, parseLog)
	assert.Equal(t, "req-soups-1", parseLog.RequestID)
	assert.Equal(t, h.uid.String(), parseLog.UserID)
}
