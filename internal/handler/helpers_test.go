package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"racoonsmeal/internal/middleware"
	"racoonsmeal/internal/model"
	"racoonsmeal/internal/repository"
	"racoonsmeal/internal/service"
	"racoonsmeal/internal/storage"
)

const testPictureLimit = 256 << 10

type fixture struct {
	router http.Handler
	server *httptest.Server
	auth   *service.AuthService
	media  *storage.Media
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	users := repository.NewMemoryUserRepository()
	authService, err := service.NewAuthService(service.AuthConfig{
		JWTSecret:  "test-secret",
		AccessTTL:  5 * time.Minute,
		RefreshTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, users, repository.NewMemoryTokenRepository(), nil)
	require.NoError(t, err)

	media, err := storage.NewMedia(t.TempDir(), "/media")
	require.NoError(t, err)
	profileService := service.NewProfileService(repository.NewMemoryProfileRepository(), users, media, 32, nil)

	authHandler := NewAuthHandler(authService)
	profileHandler := NewProfileHandler(profileService, testPictureLimit)
	requireAuth := middleware.NewAuthMiddleware(authService).RequireAuth

	r := chi.NewRouter()
	r.Post("/api/users/register/", authHandler.Register)
	r.Post("/api/users/login/", authHandler.Login)
	r.Post("/api/users/token/refresh/", authHandler.Refresh)
	r.With(requireAuth).Get("/api/users/me/", authHandler.Me)
	r.With(requireAuth).Get("/api/users/profile/{username}/", profileHandler.Get)
	r.With(requireAuth).Post("/api/users/profile/{username}/", profileHandler.Post)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return fixture{router: r, server: server, auth: authService, media: media}
}

func (f fixture) register(t *testing.T, username string) model.TokenPair {
	t.Helper()

	_, err := f.auth.Register(context.Background(), model.RegisterRequest{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "p4ssword!",
		Password2: "p4ssword!",
	})
	require.NoError(t, err)

	pair, err := f.auth.Login(context.Background(), username, "p4ssword!")
	require.NoError(t, err)
	return pair
}

func (f fixture) do(t *testing.T, method string, path string, contentType string, body []byte, access string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, f.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func (f fixture) postJSON(t *testing.T, path string, payload any, access string) (*http.Response, []byte) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return f.do(t, http.MethodPost, path, "application/json", body, access)
}

func pngPicture(t *testing.T, w int, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, G: 80, B: 40, A: 255})
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
