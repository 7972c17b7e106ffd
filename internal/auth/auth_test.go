package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasher(t *testing.T) {
	h := NewHasher(4)

	hash, err := h.Hash("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	ok, err := h.Verify("hunter22", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Verify("hunter22", "not-a-hash")
	assert.Error(t, err)
}

func TestNewHasherClampsCost(t *testing.T) {
	assert.Equal(t, 10, NewHasher(99).cost)
	assert.Equal(t, 10, NewHasher(0).cost)
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	assert.Equal(t, time.Hour, tokens.TTL())

	raw, err := tokens.Issue("user-1")
	require.NoError(t, err)

	claims, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestTokensRejectsWrongSecret(t *testing.T) {
	raw, err := NewTokens("secret", time.Hour).Issue("user-1")
	require.NoError(t, err)

	_, err = NewTokens("other", time.Hour).Verify(raw)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestTokensRejectsExpired(t *testing.T) {
	issuer := NewTokens("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	raw, err := issuer.Issue("user-1")
	require.NoError(t, err)

	_, err = NewTokens("secret", time.Minute).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensRejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{UserID: "user-1"}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokens("secret", time.Hour).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensRejectsMissingUser(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	raw, err := tokens.Issue("")
	require.NoError(t, err)

	_, err = tokens.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, FromRequest(r))

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "cookie-token"})
	assert.Equal(t, "cookie-token", FromRequest(r))

	r.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", FromRequest(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "cookie-token", FromRequest(r))
}

func TestSessionCookie(t *testing.T) {
	c := SessionCookie("abc", 7*24*time.Hour, true)
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, 604800, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)

	cleared := SessionCookie("", time.Hour, false)
	assert.Equal(t, -1, cleared.MaxAge)
	assert.Empty(t, cleared.Value)
}
