package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"racoonsmeal/internal/model"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string, expectedType string) (*model.AuthClaims, error) {
	if token != "good" || expectedType != "access" {
		return nil, model.ErrUnauthorized
	}
	return &model.AuthClaims{UserID: "u1", Username: "chef1", Type: "access"}, nil
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	protected := NewAuthMiddleware(stubValidator{}).RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(claims.Username))
	}))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, `{"detail":"Authentication credentials were not provided.","code":"not_authenticated"}`},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, `{"detail":"Authorization header must contain two space-delimited values","code":"not_authenticated"}`},
		{"bad token", "Bearer stale", http.StatusUnauthorized, `{"detail":"Given token not valid for any token type","code":"token_not_valid"}`},
		{"valid token", "Bearer good", http.StatusOK, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/profile/chef1/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.JSONEq(t, tc.body, rec.Body.String())
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
				return
			}
			assert.Equal(t, "chef1", rec.Body.String())
		})
	}
}

func TestRecoveryAndHeaders(t *testing.T) {
	t.Parallel()

	handler := SecurityHeaders(Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"A server error occurred.","code":"error"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
}

func TestLoggingSetsRequestID(t *testing.T) {
	t.Parallel()

	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "not_found", "Not found.")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/profile/ghost/", nil)
	req.Header.Set(requestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get(requestIDHeader))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)
}

func TestErrorAttrs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []any{"error_code", "not_found", "error_message", "Not found."}, errorAttrs([]byte(`{"detail":"Not found.","code":"not_found"}`)))
	assert.Equal(t, []any{"error_fields", []string{"username"}}, errorAttrs([]byte(`{"username":["taken"]}`)))
	assert.Nil(t, errorAttrs([]byte("plain text")))
}
