package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-catalog-service/internal/domain"
)

func doGuardedRequest(t *testing.T, tm *TokenManager, authHeader string) (*httptest.ResponseRecorder, bool) {
	var reachedNext bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok, "claims should be in the request context")
		assert.True(t, claims.IsAdmin)
		reachedNext = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	tm.RequireAdmin(next).ServeHTTP(rec, req)
	return rec, reachedNext
}

func TestRequireAdmin_ValidToken(t *testing.T) {
	tm := newTestTokenManager(15*time.Minute, 24*time.Hour)
	pair, err := tm.IssuePair(testUser())
	require.NoError(t, err)

	rec, reached := doGuardedRequest(t, tm, "Bearer "+pair.Access)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestRequireAdmin_MissingHeader(t *testing.T) {
	tm := newTestTokenManager(15*time.Minute, 24*time.Hour)

	rec, reached := doGuardedRequest(t, tm, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestRequireAdmin_NotBearer(t *testing.T) {
	tm := newTestTokenManager(15*time.Minute, 24*time.Hour)

	rec, reached := doGuardedRequest(t, tm, "Basic dXNlcjpwYXNz")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestRequireAdmin_GarbageToken(t *testing.T) {
	tm := newTestTokenManager(15*time.Minute, 24*time.Hour)

	rec, reached := doGuardedRequest(t, tm, "Bearer garbage")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestRequireAdmin_ExpiredToken(t *testing.T) {
	tm := newTestTokenManager(-time.Minute, 24*time.Hour)
	pair, err := tm.IssuePair(testUser())
	require.NoError(t, err)

	rec, reached := doGuardedRequest(t, tm, "Bearer "+pair.Access)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestRequireAdmin_RefreshTokenRejected(t *testing.T) {
	tm := newTestTokenManager(15*time.Minute, 24*time.Hour)
	pair, err := tm.IssuePair(testUser())
	require.NoError(t, err)

	rec, reached := doGuardedRequest(t, tm, "Bearer "+pair.Refresh)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestRequireAdmin_NonAdminRejected(t *testing.T) {
	tm := newTestTokenManager(15*time.Minute, 24*time.Hour)
	pair, err := tm.IssuePair(&domain.User{ID: 7, Username: "shopper", IsAdmin: false})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Access)
	rec := httptest.NewRecorder()
	tm.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached for non-admin user")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
