package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"racoonsmeal/internal/credential"
	"racoonsmeal/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *credential.MemoryStore) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := credential.NewMemoryStore()
	client := New(server.URL, store,
		WithTimeout(5*time.Second),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	return client, store
}

func seedSession(t *testing.T, store credential.Store, access string, refresh string, username string) {
	t.Helper()

	ctx := context.Background()
	if access != "" {
		require.NoError(t, store.Set(ctx, credential.KeyAccessToken, access, time.Hour))
	}
	if refresh != "" {
		require.NoError(t, store.Set(ctx, credential.KeyRefreshToken, refresh, time.Hour))
	}
	if username != "" {
		require.NoError(t, store.Set(ctx, credential.KeyUsername, username, time.Hour))
	}
}

func storedValue(t *testing.T, store credential.Store, key string) (string, bool) {
	t.Helper()

	value, ok, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	return value, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notAuthenticated(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"detail": "Given token not valid for any token type",
		"code":   "token_not_valid",
	})
}

func testProfile(username string) model.Profile {
	return model.Profile{
		ID:   "profile-" + username,
		User: model.User{ID: "user-" + username, Username: username, Email: username + "@example.com"},
		Bio:  model.DefaultBio,
	}
}
