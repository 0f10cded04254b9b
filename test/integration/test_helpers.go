//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"racoonsmeal/internal/apiclient"
	"racoonsmeal/internal/app"
	"racoonsmeal/internal/authstate"
	"racoonsmeal/internal/config"
	"racoonsmeal/internal/credential"
	"racoonsmeal/internal/model"
)

const testPassword = "p4ssword!"

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		ServerPort:           "0",
		RequestTimeout:       10 * time.Second,
		ShutdownTimeout:      time.Second,
		JWTSecret:            "integration-secret",
		JWTAccessTTL:         time.Minute,
		JWTRefreshTTL:        time.Hour,
		TokenCleanupInterval: time.Hour,
		BcryptCost:           bcrypt.MinCost,
		CORSOrigins:          []string{"http://localhost:5173"},
		RateLimitRPM:         10000,
		AuthRateLimitRPM:     10000,
		MediaRoot:            t.TempDir(),
		MaxPictureSize:       1 << 20,
		PictureMaxDimension:  64,
		DBMaxConns:           4,
		DBMinConns:           1,
	}
}

func newServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()

	application, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(application.Close)

	server := httptest.NewServer(application.Handler())
	t.Cleanup(server.Close)
	return server
}

// recordingNavigator captures forced navigation.
type recordingNavigator struct {
	paths chan string
}

func newRecordingNavigator() *recordingNavigator {
	return &recordingNavigator{paths: make(chan string, 16)}
}

func (n *recordingNavigator) Navigate(path string) {
	n.paths <- path
}

type frontEnd struct {
	client      *apiclient.Client
	store       *authstate.Store
	credentials credential.Store
	navigator   *recordingNavigator
}

// newFrontEnd starts a front end the way the CLI does: the store is initialized
// from whatever the credential store already holds.
func newFrontEnd(t *testing.T, baseURL string, credentials credential.Store) *frontEnd {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := apiclient.New(baseURL, credentials, apiclient.WithTimeout(10*time.Second), apiclient.WithLogger(log))
	navigator := newRecordingNavigator()
	store := authstate.New(client, credentials, authstate.WithNavigator(navigator), authstate.WithLogger(log))
	store.Initialize(context.Background())
	require.False(t, store.IsLoading())

	return &frontEnd{client: client, store: store, credentials: credentials, navigator: navigator}
}

func (f *frontEnd) registerAndLogin(t *testing.T, username string) *model.User {
	t.Helper()

	user, err := f.store.Register(context.Background(), model.RegisterRequest{
		Username:  username,
		Email:     username + "@example.com",
		Password:  testPassword,
		Password2: testPassword,
	})
	require.NoError(t, err)
	require.NotNil(t, user)
	return user
}

func (f *frontEnd) stored(t *testing.T, key string) (string, bool) {
	t.Helper()

	value, ok, err := f.credentials.Get(context.Background(), key)
	require.NoError(t, err)
	return value, ok
}

var counterLine = regexp.MustCompile(`(?m)^racoonsmeal_token_refreshes_total\{result="success"\} (\d+)$`)

// refreshCount reads the successful refresh counter from /metrics.
func refreshCount(t *testing.T, baseURL string) int {
	t.Helper()

	resp, err := http.Get(baseURL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	match := counterLine.FindSubmatch(body)
	if match == nil {
		return 0
	}
	count, err := strconv.Atoi(string(match[1]))
	require.NoError(t, err)
	return count
}
