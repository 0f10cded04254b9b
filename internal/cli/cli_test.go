package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"racoonsmeal/internal/apiclient"
	"racoonsmeal/internal/app"
	"racoonsmeal/internal/config"
	"racoonsmeal/internal/model"
	"racoonsmeal/pkg/apierror"
)

type fakePrompter struct {
	username    string
	password    string
	profile     func(*profileForm)
	loginCalls  int
	formPrompts int
}

func (p *fakePrompter) Login(_ context.Context, username *string, password *string) error {
	p.loginCalls++
	if *username == "" {
		*username = p.username
	}
	if *password == "" {
		*password = p.password
	}
	return nil
}

func (p *fakePrompter) Register(_ context.Context, req *model.RegisterRequest) error {
	if req.Password2 == "" {
		req.Password2 = req.Password
	}
	return nil
}

func (p *fakePrompter) Profile(_ context.Context, form *profileForm) error {
	p.formPrompts++
	if p.profile != nil {
		p.profile(form)
	}
	return nil
}

type harness struct {
	apiURL   string
	credsDir string
	prompter *fakePrompter
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	application, err := app.New(context.Background(), &config.Config{
		ServerPort:           "0",
		RequestTimeout:       5 * time.Second,
		ShutdownTimeout:      time.Second,
		JWTSecret:            "cli-test-secret",
		JWTAccessTTL:         time.Minute,
		JWTRefreshTTL:        time.Hour,
		TokenCleanupInterval: time.Hour,
		BcryptCost:           bcrypt.MinCost,
		RateLimitRPM:         10000,
		AuthRateLimitRPM:     10000,
		MediaRoot:            t.TempDir(),
		MaxPictureSize:       1 << 20,
		PictureMaxDimension:  64,
	})
	require.NoError(t, err)
	t.Cleanup(application.Close)

	server := httptest.NewServer(application.Handler())
	t.Cleanup(server.Close)

	return &harness{apiURL: server.URL, credsDir: t.TempDir(), prompter: &fakePrompter{}}
}

func (h *harness) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	full := append([]string{"--api-url", h.apiURL, "--credentials", "file", "--credentials-dir", h.credsDir}, args...)
	err := Run(context.Background(), full, Streams{Out: &stdout, Err: &stderr, Prompter: h.prompter})
	return stdout.String(), stderr.String(), err
}

func (h *harness) register(t *testing.T, username string) {
	t.Helper()

	_, _, err := h.run(t, "register", "--username", username, "--email", username+"@example.com", "--password", "p4ssword!", "--password-confirm", "p4ssword!")
	require.NoError(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	stdout, stderr, err := h.run(t, "register", "--username", "chef1", "--email", "chef1@example.com", "--password", "p4ssword!")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Welcome, chef1!")
	assert.Contains(t, stderr, "Your profile is incomplete")

	stdout, _, err = h.run(t, "--json", "whoami")
	require.NoError(t, err)
	var who whoami
	require.NoError(t, json.Unmarshal([]byte(stdout), &who))
	assert.Equal(t, "chef1", who.User.Username)
	assert.Equal(t, apiclient.ProfileStatus{Exists: true, Complete: false}, who.Status)
	require.NotNil(t, who.Profile)
	assert.Empty(t, who.Profile.Followers)

	stdout, stderr, err = h.run(t, "profile", "complete", "--age", "31", "--goal", model.GoalCut, "--height", "168.5")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Profile saved")
	assert.Contains(t, stdout, "168.5 cm")
	assert.Contains(t, stderr, "Your profile is complete.")
	assert.Zero(t, h.prompter.formPrompts)

	stdout, _, err = h.run(t, "--json", "profile", "status")
	require.NoError(t, err)
	assert.JSONEq(t, `{"profile_exists":true,"profile_complete":true}`, stdout)

	stdout, stderr, err = h.run(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Logged out")
	assert.Contains(t, stderr, "racoonsmeal login")

	entries, err := os.ReadDir(h.credsDir)
	require.NoError(t, err)
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(h.credsDir, entry.Name()))
		require.NoError(t, err)
		assert.NotContains(t, string(data), "chef1")
	}

	_, _, err = h.run(t, "whoami")
	require.ErrorIs(t, err, errNotLoggedIn)
	assert.Equal(t, 3, ExitCode(err))
}

func TestLoginPromptsForMissingValues(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.register(t, "chef1")
	_, _, err := h.run(t, "logout")
	require.NoError(t, err)

	h.prompter.username = "chef1"
	h.prompter.password = "p4ssword!"
	stdout, _, err := h.run(t, "login")
	require.NoError(t, err)
	assert.Equal(t, 1, h.prompter.loginCalls)
	assert.Contains(t, stdout, "Logged in as chef1")

	stdout, _, err = h.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, stdout, "chef1@example.com")
	assert.Contains(t, stdout, "incomplete")
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.register(t, "chef1")

	_, _, err := h.run(t, "login", "-u", "chef1", "-p", "nope")
	require.Error(t, err)
	assert.True(t, apierror.IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, 3, ExitCode(err))
	assert.Contains(t, FormatError(err), "No active account found")
}

func TestRegisterReportsFieldErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.register(t, "chef1")

	_, _, err := h.run(t, "register", "-u", "chef1", "--email", "other@example.com", "-p", "p4ssword!")
	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
	assert.Contains(t, FormatError(err), "username: A user with that username already exists.")
}

func TestProfileCompletePromptsWithoutFlags(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.register(t, "chef1")
	h.prompter.profile = func(form *profileForm) {
		assert.Equal(t, model.DefaultBio, form.Bio)
		form.Age = "40"
		form.Goal = model.GoalGain
	}

	stdout, _, err := h.run(t, "--json", "profile", "complete")
	require.NoError(t, err)
	assert.Equal(t, 1, h.prompter.formPrompts)

	var profile model.Profile
	require.NoError(t, json.Unmarshal([]byte(stdout), &profile))
	assert.Equal(t, 40, profile.Age)
	assert.Equal(t, model.GoalGain, profile.Goal)
}

func TestProfileCommandsRequireLogin(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	for _, args := range [][]string{{"profile", "status"}, {"profile", "complete", "--age", "30"}, {"whoami"}} {
		_, _, err := h.run(t, args...)
		assert.ErrorIs(t, err, errNotLoggedIn, args)
	}
}

func TestMemoryCredentialsLastOneRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.register(t, "chef1")

	var stdout bytes.Buffer
	err := Run(context.Background(), []string{"--api-url", h.apiURL, "--credentials", "memory", "whoami"},
		Streams{Out: &stdout, Err: &bytes.Buffer{}, Prompter: h.prompter})
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestUnknownCredentialBackend(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), []string{"--credentials", "vault", "logout"},
		Streams{Out: &bytes.Buffer{}, Err: &bytes.Buffer{}, Prompter: &fakePrompter{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file, redis, memory")
}

func TestUnreachableBackend(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := Run(context.Background(), []string{"--api-url", url, "--credentials", "memory", "login", "-u", "chef1", "-p", "p4ssword!"},
		Streams{Out: &bytes.Buffer{}, Err: &bytes.Buffer{}, Prompter: &fakePrompter{}})
	var transportErr *apiclient.TransportError
	assert.True(t, errors.As(err, &transportErr))
}

func TestNoticeNavigator(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	nav := noticeNavigator{w: &out}
	nav.Navigate("/login")
	nav.Navigate("/complete-profile")
	nav.Navigate("/elsewhere")

	assert.Contains(t, out.String(), "racoonsmeal login")
	assert.Contains(t, out.String(), "racoonsmeal profile complete")
	assert.Equal(t, 2, bytes.Count(out.Bytes(), []byte("\n")))
}

func TestProfileFormParsing(t *testing.T) {
	t.Parallel()

	form := newProfileForm(model.DefaultProfileFields())
	fields, err := form.fields()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultProfileFields(), fields)

	form.WeightKG = "heavy"
	_, err = form.fields()
	assert.ErrorContains(t, err, "weight")
}
