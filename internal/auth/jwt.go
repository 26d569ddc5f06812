package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mnuddindev/cookpulse/pkg/utils"
)

const (
	KindAccess  = "access"
	KindRefresh = "refresh"

	issuer = "cookpulse"
)

var (
	ErrInvalidToken = utils.Unauthorized("invalid_token")
	ErrExpiredToken = utils.Unauthorized("token_expired")
)

type Claims struct {
	UserID string `json:"user_id"`
	RoleID string `json:"role_id"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 tokens.
type TokenManager struct {
	secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret string) (*TokenManager, error) {
	if len(secret) < 8 {
		return nil, errors.New("JWT secret must be at least 8 characters")
	}
	return &TokenManager{
		secret:     []byte(secret),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		now:        time.Now,
	}, nil
}

func (m *TokenManager) generate(userID, roleID, kind string, ttl time.Duration) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		UserID: userID,
		RoleID: roleID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// GenerateAccessToken issues a short-lived access token.
func (m *TokenManager) GenerateAccessToken(userID, roleID string) (string, *Claims, error) {
	return m.generate(userID, roleID, KindAccess, m.AccessTTL)
}

// GenerateRefreshToken issues a refresh token. Its id must be stored to be redeemable.
func (m *TokenManager) GenerateRefreshToken(userID, roleID string) (string, *Claims, error) {
	return m.generate(userID, roleID, KindRefresh, m.RefreshTTL)
}

// VerifyToken checks signature, expiry, issuer and kind.
func (m *TokenManager) VerifyToken(tokenString, kind string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" || claims.Kind != kind {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// remaining is how long claims stay valid.
func (m *TokenManager) remaining(claims *Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Time.Sub(m.now())
}
