package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"racoonsmeal/internal/credential"
	"racoonsmeal/internal/model"
	"racoonsmeal/pkg/apierror"
)

var (
	ErrInvalidLoginResponse = errors.New("invalid response from login server")
	ErrNotLoggedIn          = errors.New("not logged in")
)

type LoginResult struct {
	Tokens model.TokenPair
	User   *model.User
}

// ProfileStatus is what the profile-completion guard needs to know.
type ProfileStatus struct {
	Exists   bool `json:"profile_exists"`
	Complete bool `json:"profile_complete"`
}

func profilePath(username string) string {
	return fmt.Sprintf(profilePathFmt, url.PathEscape(username))
}

// Register submits a registration and returns the server payload untouched. It does
// not log the user in.
func (c *Client) Register(ctx context.Context, in model.RegisterRequest) (json.RawMessage, error) {
	req, err := newJSONRequest(http.MethodPost, registerPath, in)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	return json.RawMessage(resp.body), nil
}

// Login exchanges credentials for a token pair, persists it together with the
// username and resolves the current user.
func (c *Client) Login(ctx context.Context, username string, password string) (*LoginResult, error) {
	req, err := newJSONRequest(http.MethodPost, loginPath, model.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var tokens model.TokenPair
	if err := resp.decode(&tokens); err != nil {
		return nil, err
	}
	if tokens.Access == "" || tokens.Refresh == "" {
		return nil, ErrInvalidLoginResponse
	}

	if err := c.storeSession(ctx, tokens, username); err != nil {
		return nil, err
	}

	user, err := c.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Tokens: tokens, User: user}, nil
}

func (c *Client) storeSession(ctx context.Context, tokens model.TokenPair, username string) error {
	if err := c.credentials.Set(ctx, credential.KeyAccessToken, tokens.Access, c.ttl.Access); err != nil {
		return fmt.Errorf("persist access token: %w", err)
	}
	if err := c.credentials.Set(ctx, credential.KeyRefreshToken, tokens.Refresh, c.ttl.Refresh); err != nil {
		return fmt.Errorf("persist refresh token: %w", err)
	}
	// The profile endpoint is keyed by username, which the token does not expose.
	if err := c.credentials.Set(ctx, credential.KeyUsername, username, c.ttl.Username); err != nil {
		return fmt.Errorf("persist username: %w", err)
	}
	return nil
}

// CurrentUser returns the user embedded in the remembered user's profile. It returns
// nil without error when no username is remembered.
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	username, ok := c.RememberedUsername(ctx)
	if !ok {
		return nil, nil
	}

	profile, err := c.fetchProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	user := profile.User
	return &user, nil
}

func (c *Client) RememberedUsername(ctx context.Context) (string, bool) {
	return c.storedValue(ctx, credential.KeyUsername)
}

// Logout forgets the session locally. The backend keeps no session to invalidate.
func (c *Client) Logout(ctx context.Context) error {
	c.setDefaultAuthorization("")
	if err := credential.Clear(ctx, c.credentials); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// fetchProfile loads a profile, provisioning it once when the backend reports it missing.
func (c *Client) fetchProfile(ctx context.Context, username string) (*model.Profile, error) {
	profile, err := c.getProfile(ctx, username)
	if err == nil {
		return profile, nil
	}
	if !apierror.IsStatus(err, http.StatusNotFound) {
		return nil, err
	}

	c.provisionProfile(ctx, username)
	return c.getProfile(ctx, username)
}

func (c *Client) getProfile(ctx context.Context, username string) (*model.Profile, error) {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: profilePath(username)})
	if err != nil {
		return nil, err
	}

	var profile model.Profile
	if err := resp.decode(&profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

// provisionProfile is best effort: the backend may answer anything from 200 to 499
// depending on whether the profile already exists, and none of it is an error here.
func (c *Client) provisionProfile(ctx context.Context, username string) {
	req, err := newJSONRequest(http.MethodPost, profilePath(username), struct{}{})
	if err != nil {
		return
	}

	_, err = c.do(ctx, req)
	status := apierror.StatusOf(err)
	switch {
	case err == nil:
		c.logger.Info("provisioned missing profile", "username", username)
	case status >= 200 && status < 500:
		c.logger.Debug("profile provisioning ignored", "username", username, "status", status)
	default:
		c.logger.Warn("profile provisioning failed", "username", username, "error", err)
	}
}
