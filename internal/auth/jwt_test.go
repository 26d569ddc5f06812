package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager("test-secret-value")
	require.NoError(t, err)
	return m
}

func TestTokenRoundTrip(t *testing.T) {
	m := newManager(t)
	uid, rid := uuid.NewString(), uuid.NewString()

	tok, issued, err := m.GenerateAccessToken(uid, rid)
	require.NoError(t, err)

	claims, err := m.VerifyToken(tok, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, uid, claims.UserID)
	assert.Equal(t, rid, claims.RoleID)
	assert.Equal(t, issued.ID, claims.ID)

	_, err = m.VerifyToken(tok, KindRefresh)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestTokenRejections(t *testing.T) {
	m := newManager(t)
	tok, _, err := m.GenerateAccessToken(uuid.NewString(), uuid.NewString())
	require.NoError(t, err)

	other, err := NewTokenManager("another-secret")
	require.NoError(t, err)
	_, err = other.VerifyToken(tok, KindAccess)
	assert.Equal(t, ErrInvalidToken, err)

	_, err = m.VerifyToken("", KindAccess)
	assert.Equal(t, ErrInvalidToken, err)

	m.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = m.VerifyToken(tok, KindAccess)
	assert.Equal(t, ErrExpiredToken, err)

	_, err = NewTokenManager("short")
	assert.Error(t, err)
}

func TestRequireAuth(t *testing.T) {
	m := newManager(t)
	opt := Options{Tokens: m}
	uid := uuid.NewString()

	app := fiber.New()
	app.Get("/me", RequireAuth(opt), func(c *fiber.Ctx) error {
		id, err := UserID(c)
		if err != nil {
			return err
		}
		return c.SendString(id.String())
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	tok, _, err := m.GenerateAccessToken(uid, uuid.NewString())
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("GET", "/me", nil)
	req.AddCookie(&http.Cookie{Name: accessCookie, Value: tok})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
