package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(viper.GetString("jwt.secret_key")))
	require.NoError(t, err)
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	viper.Set("jwt.secret_key", "test-secret")
	t.Cleanup(func() { viper.Reset() })
	InitAuthMiddleware(nil)

	var gotUserID, gotWorkshopID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = r.Context().Value("userID").(string)
		gotWorkshopID, _ = r.Context().Value("workshopID").(string)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid token populates context", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			"user_id":     "staff-1",
			"workshop_id": "workshop-1",
			"exp":         time.Now().Add(time.Hour).Unix(),
		})

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		AuthMiddleware(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "staff-1", gotUserID)
		assert.Equal(t, "workshop-1", gotWorkshopID)
	})

	t.Run("missing header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		AuthMiddleware(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()
		AuthMiddleware(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			"user_id":     "staff-1",
			"workshop_id": "workshop-1",
			"exp":         time.Now().Add(-time.Hour).Unix(),
		})

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		AuthMiddleware(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token without workshop claim", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			"user_id": "staff-1",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		AuthMiddleware(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("blacklisted token rejected", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			"user_id":     "staff-1",
			"workshop_id": "workshop-1",
			"exp":         time.Now().Add(time.Hour).Unix(),
		})

		rdb, redisMock := redismock.NewClientMock()
		redisMock.ExpectExists("blacklist:" + token).SetVal(1)
		InitAuthMiddleware(rdb)
		t.Cleanup(func() { InitAuthMiddleware(nil) })

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		AuthMiddleware(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}

func TestSecurityHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	SecurityHeaders(next).ServeHTTP(w, r)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
}
