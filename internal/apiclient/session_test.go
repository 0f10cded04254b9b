package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"racoonsmeal/internal/credential"
	"racoonsmeal/internal/model"
	"racoonsmeal/pkg/apierror"
)

func TestLoginStoresSessionAndResolvesUser(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/login/", func(w http.ResponseWriter, r *http.Request) {
		var req model.LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Username != "chef1" || req.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
			return
		}
		writeJSON(w, http.StatusOK, model.TokenPair{Access: "A", Refresh: "R"})
	})
	mux.HandleFunc("GET /api/users/profile/{username}/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer A" {
			notAuthenticated(w)
			return
		}
		writeJSON(w, http.StatusOK, testProfile(r.PathValue("username")))
	})

	client, store := newTestClient(t, mux)

	result, err := client.Login(context.Background(), "chef1", "secret")
	require.NoError(t, err)
	require.Equal(t, model.TokenPair{Access: "A", Refresh: "R"}, result.Tokens)
	require.NotNil(t, result.User)
	assert.Equal(t, "chef1", result.User.Username)

	for key, want := range map[string]string{
		credential.KeyAccessToken:  "A",
		credential.KeyRefreshToken: "R",
		credential.KeyUsername:     "chef1",
	} {
		value, ok := storedValue(t, store, key)
		require.True(t, ok, key)
		assert.Equal(t, want, value, key)
	}
}

func TestLoginRejectsIncompleteTokenPair(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/login/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access": "A"})
	})

	client, store := newTestClient(t, mux)

	_, err := client.Login(context.Background(), "chef1", "secret")
	require.ErrorIs(t, err, ErrInvalidLoginResponse)

	_, ok := storedValue(t, store, credential.KeyAccessToken)
	assert.False(t, ok)
}

func TestLoginInvalidCredentialsSurfaceUnchanged(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/login/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
	})
	mux.HandleFunc("POST /api/users/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
	})

	client, _ := newTestClient(t, mux)

	_, err := client.Login(context.Background(), "chef1", "wrong")
	require.Error(t, err)
	assert.True(t, apierror.IsStatus(err, http.StatusUnauthorized))

	var apiErr *apierror.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "No active account found with the given credentials", apiErr.Message)
	assert.Zero(t, refreshCalls.Load())
}

func TestRegisterReturnsPayloadAndFieldErrors(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/register/", func(w http.ResponseWriter, r *http.Request) {
		var req model.RegisterRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Username == "taken" {
			writeJSON(w, http.StatusBadRequest, map[string][]string{
				"username": {"A user with that username already exists."},
			})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"username": req.Username, "email": req.Email})
	})

	client, store := newTestClient(t, mux)
	ctx := context.Background()

	payload, err := client.Register(ctx, model.RegisterRequest{Username: "chef2", Email: "chef2@example.com", Password: "p4ssword!", Password2: "p4ssword!"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"chef2","email":"chef2@example.com"}`, string(payload))

	_, ok := storedValue(t, store, credential.KeyAccessToken)
	assert.False(t, ok, "register must not log in")

	_, err = client.Register(ctx, model.RegisterRequest{Username: "taken"})
	var apiErr *apierror.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
	assert.Equal(t, []string{"A user with that username already exists."}, apiErr.Fields["username"])
}

func TestCurrentUserWithoutUsername(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Zero(t, calls.Load())
}

func TestCurrentUserProvisionsMissingProfile(t *testing.T) {
	t.Parallel()

	var gets, posts atomic.Int32
	var provisioned atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users/profile/{username}/", func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		if !provisioned.Load() {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
			return
		}
		writeJSON(w, http.StatusOK, testProfile(r.PathValue("username")))
	})
	mux.HandleFunc("POST /api/users/profile/{username}/", func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		provisioned.Store(true)
		writeJSON(w, http.StatusCreated, testProfile(r.PathValue("username")))
	})

	client, store := newTestClient(t, mux)
	seedSession(t, store, "A", "R", "chef1")

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "chef1", user.Username)
	assert.EqualValues(t, 2, gets.Load())
	assert.EqualValues(t, 1, posts.Load())

	// Once the profile exists no further provisioning happens.
	_, err = client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, gets.Load())
	assert.EqualValues(t, 1, posts.Load())
}

func TestCurrentUserProvisioningFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	var gets atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users/profile/{username}/", func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	})
	mux.HandleFunc("POST /api/users/profile/{username}/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
	})

	client, store := newTestClient(t, mux)
	seedSession(t, store, "A", "R", "chef1")

	_, err := client.CurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, apierror.IsStatus(err, http.StatusNotFound), "the retried GET decides the outcome")
	assert.EqualValues(t, 2, gets.Load(), "exactly one retry")
}

func TestCurrentUserEscapesUsername(t *testing.T) {
	t.Parallel()

	var gotPath atomic.Value
	client, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.EscapedPath())
		writeJSON(w, http.StatusOK, testProfile("chef one"))
	}))
	seedSession(t, store, "A", "R", "chef one")

	_, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/api/users/profile/chef%20one/", gotPath.Load())
}

func TestLogoutClearsSession(t *testing.T) {
	t.Parallel()

	client, store := newTestClient(t, http.NotFoundHandler())
	seedSession(t, store, "A", "R", "chef1")
	client.setDefaultAuthorization("A")

	require.NoError(t, client.Logout(context.Background()))

	for _, key := range credential.Keys {
		_, ok := storedValue(t, store, key)
		assert.False(t, ok, key)
	}
	assert.Empty(t, client.DefaultAuthorization())
}
