package authstate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"racoonsmeal/internal/apiclient"
	"racoonsmeal/internal/credential"
	"racoonsmeal/internal/event"
	"racoonsmeal/internal/model"
	"racoonsmeal/pkg/apierror"
)

var chef = &model.User{ID: "u1", Username: "chef1", Email: "chef1@example.com"}

func newTestStore(t *testing.T) (*Store, *mockSessionAPI, credential.Store, *recordingNavigator) {
	t.Helper()

	api := &mockSessionAPI{}
	creds := credential.NewMemoryStore()
	nav := &recordingNavigator{}
	store := New(api, creds,
		WithNavigator(nav),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	t.Cleanup(func() { api.AssertExpectations(t) })

	return store, api, creds, nav
}

func nextEvent(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()

	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event published")
		return event.Event{}
	}
}

func TestInitializeWithoutStoredToken(t *testing.T) {
	t.Parallel()

	store, _, _, _ := newTestStore(t)
	require.True(t, store.IsLoading())

	store.Initialize(context.Background())

	assert.False(t, store.IsLoading())
	assert.False(t, store.IsAuthenticated())
}

func TestInitializeRestoresSessionOnce(t *testing.T) {
	t.Parallel()

	store, api, creds, _ := newTestStore(t)
	require.NoError(t, creds.Set(context.Background(), credential.KeyAccessToken, "A", time.Hour))
	api.On("CurrentUser", mock.Anything).Return(chef, nil).Once()

	events, unsubscribe := store.Subscribe()
	defer unsubscribe()

	store.Initialize(context.Background())
	store.Initialize(context.Background())

	assert.Equal(t, chef, store.User())
	assert.False(t, store.IsLoading())

	e := nextEvent(t, events)
	assert.Equal(t, event.TypeSessionRestored, e.Type)
	assert.Equal(t, "chef1", e.Username)
}

func TestInitializeFailureClearsSession(t *testing.T) {
	t.Parallel()

	store, api, creds, _ := newTestStore(t)
	require.NoError(t, creds.Set(context.Background(), credential.KeyAccessToken, "A", time.Hour))
	api.On("CurrentUser", mock.Anything).Return(nil, apierror.New("", "server error", "", http.StatusInternalServerError))
	api.On("Logout", mock.Anything).Return(nil).Once()

	store.Initialize(context.Background())

	assert.Nil(t, store.User())
	assert.False(t, store.IsLoading())
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		store, api, _, _ := newTestStore(t)
		api.On("Login", mock.Anything, "chef1", "secret").
			Return(&apiclient.LoginResult{Tokens: model.TokenPair{Access: "A", Refresh: "R"}, User: chef}, nil)

		events, unsubscribe := store.Subscribe()
		defer unsubscribe()

		user, err := store.Login(context.Background(), "chef1", "secret")
		require.NoError(t, err)
		assert.Equal(t, chef, user)
		assert.True(t, store.IsAuthenticated())
		assert.Equal(t, event.TypeLoggedIn, nextEvent(t, events).Type)
	})

	t.Run("failure leaves state untouched", func(t *testing.T) {
		store, api, _, _ := newTestStore(t)
		loginErr := apierror.New("", "No active account found with the given credentials", "", http.StatusUnauthorized)
		api.On("Login", mock.Anything, "chef1", "wrong").Return(nil, loginErr)

		_, err := store.Login(context.Background(), "chef1", "wrong")
		require.ErrorIs(t, err, loginErr)
		assert.False(t, store.IsAuthenticated())
	})
}

func TestRegisterLogsIn(t *testing.T) {
	t.Parallel()

	store, api, _, _ := newTestStore(t)
	in := model.RegisterRequest{Username: "chef1", Email: "chef1@example.com", Password: "secret123", Password2: "secret123"}
	api.On("Register", mock.Anything, in).Return(nil, nil)
	api.On("Login", mock.Anything, "chef1", "secret123").Return(&apiclient.LoginResult{User: chef}, nil)

	user, err := store.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "chef1", user.Username)
}

func TestRegisterFailureSkipsLogin(t *testing.T) {
	t.Parallel()

	store, api, _, _ := newTestStore(t)
	in := model.RegisterRequest{Username: "taken"}
	regErr := apierror.Validation(map[string][]string{"username": {"A user with that username already exists."}})
	api.On("Register", mock.Anything, in).Return(nil, regErr)

	_, err := store.Register(context.Background(), in)
	require.ErrorIs(t, err, regErr)
	api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogoutNavigatesToLogin(t *testing.T) {
	t.Parallel()

	store, api, _, nav := newTestStore(t)
	api.On("Login", mock.Anything, "chef1", "secret").Return(&apiclient.LoginResult{User: chef}, nil)
	api.On("Logout", mock.Anything).Return(nil)

	_, err := store.Login(context.Background(), "chef1", "secret")
	require.NoError(t, err)

	require.NoError(t, store.Logout(context.Background()))
	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, []string{PathLogin}, nav.visited())
}

func TestRefreshUserKeepsUserOnFailure(t *testing.T) {
	t.Parallel()

	store, api, _, _ := newTestStore(t)
	api.On("Login", mock.Anything, "chef1", "secret").Return(&apiclient.LoginResult{User: chef}, nil)
	api.On("CurrentUser", mock.Anything).Return(nil, errors.New("offline")).Once()
	renamed := &model.User{ID: "u1", Username: "chef1", FirstName: "Remy"}
	api.On("CurrentUser", mock.Anything).Return(renamed, nil).Once()

	_, err := store.Login(context.Background(), "chef1", "secret")
	require.NoError(t, err)

	store.RefreshUser(context.Background())
	assert.Equal(t, chef, store.User())

	store.RefreshUser(context.Background())
	assert.Equal(t, renamed, store.User())
}

func TestSessionExpiredClearsUserAndNavigates(t *testing.T) {
	t.Parallel()

	store, api, _, nav := newTestStore(t)
	api.On("Login", mock.Anything, "chef1", "secret").Return(&apiclient.LoginResult{User: chef}, nil)

	_, err := store.Login(context.Background(), "chef1", "secret")
	require.NoError(t, err)

	events, unsubscribe := store.Subscribe()
	defer unsubscribe()

	api.expire()

	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, []string{PathLogin}, nav.visited())
	e := nextEvent(t, events)
	assert.Equal(t, event.TypeSessionExpired, e.Type)
	assert.Equal(t, "chef1", e.Username)
}
