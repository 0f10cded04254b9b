package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"racoonsmeal/internal/model"
	"racoonsmeal/pkg/apierror"
)

// ProfileInput is the profile-completion form. Picture is optional.
type ProfileInput struct {
	model.ProfileFields
	Picture     io.Reader
	PictureName string
}

// Profile returns the remembered user's full profile, provisioning it when missing.
func (c *Client) Profile(ctx context.Context) (*model.Profile, error) {
	username, ok := c.RememberedUsername(ctx)
	if !ok {
		return nil, ErrNotLoggedIn
	}

	return c.fetchProfile(ctx, username)
}

// ProfileStatus reports whether the profile exists and has been completed, without
// provisioning it.
func (c *Client) ProfileStatus(ctx context.Context) (ProfileStatus, error) {
	username, ok := c.RememberedUsername(ctx)
	if !ok {
		return ProfileStatus{}, ErrNotLoggedIn
	}

	profile, err := c.getProfile(ctx, username)
	if apierror.IsStatus(err, http.StatusNotFound) {
		return ProfileStatus{}, nil
	}
	if err != nil {
		return ProfileStatus{}, err
	}

	return ProfileStatus{Exists: true, Complete: profile.IsComplete()}, nil
}

// CompleteProfile submits the completion form as multipart so a picture can ride along.
func (c *Client) CompleteProfile(ctx context.Context, in ProfileInput) (*model.Profile, error) {
	username, ok := c.RememberedUsername(ctx)
	if !ok {
		return nil, ErrNotLoggedIn
	}

	req, err := newProfileFormRequest(profilePath(username), in)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var profile model.Profile
	if err := resp.decode(&profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

func newProfileFormRequest(path string, in ProfileInput) (request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"bio", in.Bio},
		{"age", strconv.Itoa(in.Age)},
		{"gender", in.Gender},
		{"height_cm", strconv.FormatFloat(in.HeightCM, 'f', -1, 64)},
		{"weight_kg", strconv.FormatFloat(in.WeightKG, 'f', -1, 64)},
		{"activity_level", in.ActivityLevel},
		{"goal", in.Goal},
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return request{}, fmt.Errorf("write form field %s: %w", field[0], err)
		}
	}

	if in.Picture != nil {
		name := filepath.Base(in.PictureName)
		if in.PictureName == "" {
			name = "profile_picture"
		}
		part, err := writer.CreateFormFile("profile_picture", name)
		if err != nil {
			return request{}, fmt.Errorf("create picture part: %w", err)
		}
		if _, err := io.Copy(part, in.Picture); err != nil {
			return request{}, fmt.Errorf("read picture: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return request{}, fmt.Errorf("finish form: %w", err)
	}

	return request{
		method:      http.MethodPost,
		path:        path,
		body:        buf.Bytes(),
		contentType: writer.FormDataContentType(),
	}, nil
}
