package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"racoonsmeal/internal/metrics"
	"racoonsmeal/internal/model"
	"racoonsmeal/internal/repository"
	"racoonsmeal/internal/storage"
	"racoonsmeal/internal/util"
	"racoonsmeal/pkg/apierror"
)

var errProfileNotFound = apierror.New("not_found", "Not found.", "", http.StatusNotFound)

// ProfileInput is a completion form submission. Picture is optional.
type ProfileInput struct {
	Fields  model.ProfileFields
	Picture io.Reader
}

type ProfileService struct {
	profiles   repository.ProfileStore
	users      repository.UserStore
	media      *storage.Media
	metrics    *metrics.Metrics
	pictureDim int
	now        func() time.Time
}

func NewProfileService(profiles repository.ProfileStore, users repository.UserStore, media *storage.Media, pictureDim int, m *metrics.Metrics) *ProfileService {
	return &ProfileService{
		profiles:   profiles,
		users:      users,
		media:      media,
		metrics:    m,
		pictureDim: pictureDim,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the profile of username, or a 404 when the user or the profile is
// missing.
func (s *ProfileService) Get(ctx context.Context, username string) (model.Profile, error) {
	account, err := s.findAccount(ctx, username)
	if err != nil {
		return model.Profile{}, err
	}

	profile, err := s.profiles.FindByUserID(ctx, account.ID)
	if errors.Is(err, model.ErrProfileNotFound) {
		return model.Profile{}, errProfileNotFound
	}
	if err != nil {
		return model.Profile{}, err
	}

	return withOwner(profile, account), nil
}

// Provision creates a blank profile for username. created is false when the profile
// already existed, in which case the existing one is returned.
func (s *ProfileService) Provision(ctx context.Context, username string) (model.Profile, bool, error) {
	account, err := s.findAccount(ctx, username)
	if err != nil {
		return model.Profile{}, false, err
	}

	now := s.now()
	profile := model.Profile{
		ID:        uuid.NewString(),
		UserID:    account.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.profiles.Create(ctx, profile)
	if errors.Is(err, model.ErrProfileAlreadyExists) {
		existing, findErr := s.profiles.FindByUserID(ctx, account.ID)
		if findErr != nil {
			return model.Profile{}, false, findErr
		}
		return withOwner(existing, account), false, nil
	}
	if err != nil {
		return model.Profile{}, false, err
	}

	s.metrics.IncrementProfilesProvisioned()
	slog.Info("profile provisioned", "username", account.Username)
	return withOwner(profile, account), true, nil
}

// Complete validates the form and writes it onto the profile, creating the profile
// when needed.
func (s *ProfileService) Complete(ctx context.Context, username string, in ProfileInput) (model.Profile, error) {
	if fields := validateProfile(in.Fields); len(fields) > 0 {
		return model.Profile{}, apierror.Validation(fields)
	}

	account, err := s.findAccount(ctx, username)
	if err != nil {
		return model.Profile{}, err
	}

	profile, err := s.profiles.FindByUserID(ctx, account.ID)
	exists := err == nil
	if err != nil && !errors.Is(err, model.ErrProfileNotFound) {
		return model.Profile{}, err
	}
	if !exists {
		profile = model.Profile{ID: uuid.NewString(), UserID: account.ID, CreatedAt: s.now()}
	}

	profile.Bio = strings.TrimSpace(in.Fields.Bio)
	profile.Age = in.Fields.Age
	profile.Gender = in.Fields.Gender
	profile.HeightCM = in.Fields.HeightCM
	profile.WeightKG = in.Fields.WeightKG
	profile.ActivityLevel = in.Fields.ActivityLevel
	profile.Goal = in.Fields.Goal
	profile.UpdatedAt = s.now()

	if in.Picture != nil {
		url, err := s.savePicture(account.ID, in.Picture)
		if err != nil {
			return model.Profile{}, err
		}
		profile.ProfilePicture = url
	}

	if exists {
		err = s.profiles.Update(ctx, profile)
	} else {
		err = s.profiles.Create(ctx, profile)
	}
	if err != nil {
		return model.Profile{}, err
	}

	return withOwner(profile, account), nil
}

func (s *ProfileService) savePicture(userID string, picture io.Reader) (string, error) {
	url, err := s.media.Save(fmt.Sprintf("profiles/%s.jpg", userID), func(w io.Writer) error {
		return util.ScalePicture(w, picture, s.pictureDim)
	})
	if errors.Is(err, util.ErrUnsupportedImage) {
		return "", apierror.Validation(map[string][]string{
			"profile_picture": {"Upload a valid image. The file you uploaded was either not an image or a corrupted image."},
		})
	}
	if err != nil {
		return "", fmt.Errorf("save profile picture: %w", err)
	}
	return url, nil
}

func (s *ProfileService) findAccount(ctx context.Context, username string) (model.Account, error) {
	account, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.Account{}, errProfileNotFound
	}
	return account, err
}

func withOwner(profile model.Profile, account model.Account) model.Profile {
	profile.User = account.Public()
	if profile.Followers == nil {
		profile.Followers = []model.User{}
	}
	if profile.Following == nil {
		profile.Following = []model.User{}
	}
	return profile
}

func validateProfile(f model.ProfileFields) map[string][]string {
	fields := map[string][]string{}
	add := func(field string, message string) {
		fields[field] = append(fields[field], message)
	}

	if f.Age < 1 || f.Age > 120 {
		add("age", "Ensure this value is between 1 and 120.")
	}
	if f.HeightCM < 50 || f.HeightCM > 275 {
		add("height_cm", "Ensure this value is between 50 and 275.")
	}
	if f.WeightKG < 20 || f.WeightKG > 500 {
		add("weight_kg", "Ensure this value is between 20 and 500.")
	}
	checkChoice := func(field string, value string, choices []string) {
		if !slices.Contains(choices, value) {
			add(field, fmt.Sprintf("%q is not a valid choice.", value))
		}
	}
	checkChoice("gender", f.Gender, model.Genders)
	checkChoice("activity_level", f.ActivityLevel, model.ActivityLevels)
	checkChoice("goal", f.Goal, model.Goals)

	return fields
}
