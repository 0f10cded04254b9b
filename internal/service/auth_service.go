package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"racoonsmeal/internal/metrics"
	"racoonsmeal/internal/model"
	"racoonsmeal/internal/repository"
	"racoonsmeal/pkg/apierror"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	minPasswordLength = 8
	maxUsernameLength = 150
)

var (
	errNoActiveAccount = apierror.New("no_active_account", "No active account found with the given credentials", "", http.StatusUnauthorized)
	errTokenNotValid   = apierror.New("token_not_valid", "Token is invalid or expired", "", http.StatusUnauthorized)
)

type AuthConfig struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

type AuthService struct {
	users      repository.UserStore
	tokens     repository.TokenStore
	metrics    *metrics.Metrics
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	bcryptCost int
	now        func() time.Time
}

func NewAuthService(cfg AuthConfig, users repository.UserStore, tokens repository.TokenStore, m *metrics.Metrics) (*AuthService, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("jwt secret is required")
	}

	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}

	return &AuthService{
		users:      users,
		tokens:     tokens,
		metrics:    m,
		jwtSecret:  []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		bcryptCost: cost,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Register validates and stores a new account. Validation failures are reported per
// field.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	fields := validateRegistration(req)
	if len(fields) == 0 {
		exists, err := s.users.ExistsByUsername(ctx, req.Username)
		if err != nil {
			return model.User{}, err
		}
		if exists {
			fields = map[string][]string{"username": {"A user with that username already exists."}}
		}
	}
	if len(fields) > 0 {
		return model.User{}, apierror.Validation(fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	account := model.Account{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		DateOfBirth:  strings.TrimSpace(req.DateOfBirth),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, account); err != nil {
		if errors.Is(err, model.ErrUserAlreadyExists) {
			return model.User{}, apierror.Validation(map[string][]string{"username": {"A user with that username already exists."}})
		}
		return model.User{}, err
	}

	s.metrics.IncrementRegistrations()
	slog.Info("user registered", "username", account.Username, "user_id", account.ID)
	return account.Public(), nil
}

func validateRegistration(req model.RegisterRequest) map[string][]string {
	fields := map[string][]string{}
	add := func(field string, message string) {
		fields[field] = append(fields[field], message)
	}

	switch n := utf8.RuneCountInString(req.Username); {
	case n == 0:
		add("username", "This field is required.")
	case n > maxUsernameLength:
		add("username", fmt.Sprintf("Ensure this field has no more than %d characters.", maxUsernameLength))
	case strings.ContainsAny(req.Username, "/ \t\n"):
		add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}

	if req.Email == "" {
		add("email", "This field is required.")
	} else if _, err := mail.ParseAddress(req.Email); err != nil {
		add("email", "Enter a valid email address.")
	}

	if req.Password == "" {
		add("password", "This field is required.")
	} else if utf8.RuneCountInString(req.Password) < minPasswordLength {
		add("password", fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength))
	}

	if req.Password2 == "" {
		add("password2", "This field is required.")
	} else if req.Password != "" && req.Password != req.Password2 {
		add("password", "Password fields didn't match.")
	}

	if dob := strings.TrimSpace(req.DateOfBirth); dob != "" {
		if _, err := time.Parse(time.DateOnly, dob); err != nil {
			add("date_of_birth", "Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
		}
	}

	return fields
}

// Login verifies credentials and issues an access/refresh pair.
func (s *AuthService) Login(ctx context.Context, username string, password string) (model.TokenPair, error) {
	account, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, model.ErrUserNotFound) {
		s.metrics.ObserveLogin(false)
		return model.TokenPair{}, errNoActiveAccount
	}
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.metrics.ObserveLogin(false)
		return model.TokenPair{}, errNoActiveAccount
	}

	pair, err := s.issueTokenPair(ctx, account)
	if err != nil {
		return model.TokenPair{}, err
	}

	s.metrics.ObserveLogin(true)
	return pair, nil
}

// Refresh mints a new access token from a live refresh token. The refresh token
// itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.AccessToken, error) {
	claims, err := s.ValidateToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		s.metrics.ObserveRefresh(false)
		return model.AccessToken{}, errTokenNotValid
	}

	ownerID, err := s.tokens.Validate(ctx, claims.TokenID)
	if errors.Is(err, model.ErrTokenNotFound) || (err == nil && ownerID != claims.UserID) {
		s.metrics.ObserveRefresh(false)
		return model.AccessToken{}, errTokenNotValid
	}
	if err != nil {
		return model.AccessToken{}, err
	}

	account, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		s.metrics.ObserveRefresh(false)
		return model.AccessToken{}, errTokenNotValid
	}
	if err != nil {
		return model.AccessToken{}, err
	}

	access, err := s.signToken(account, tokenTypeAccess, uuid.NewString(), s.accessTTL)
	if err != nil {
		return model.AccessToken{}, err
	}

	s.metrics.ObserveRefresh(true)
	return model.AccessToken{Access: access}, nil
}

// ValidateToken parses a signed token and checks its type.
func (s *AuthService) ValidateToken(tokenString string, expectedType string) (*model.AuthClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, model.ErrUnauthorized
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, model.ErrUnauthorized
	}

	claims := &model.AuthClaims{}
	claims.Type, _ = claimsMap["typ"].(string)
	claims.UserID, _ = claimsMap["sub"].(string)
	claims.Username, _ = claimsMap["username"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)

	if expectedType != "" && claims.Type != expectedType {
		return nil, model.ErrUnauthorized
	}
	if claims.UserID == "" {
		return nil, model.ErrUnauthorized
	}

	return claims, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	account, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	return account.Public(), nil
}

// StartTokenCleanup purges expired refresh tokens every interval until ctx is done.
func (s *AuthService) StartTokenCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.cleanExpiredTokens(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanExpiredTokens(ctx)
		}
	}
}

func (s *AuthService) cleanExpiredTokens(ctx context.Context) {
	removed, err := s.tokens.CleanExpired(ctx)
	if err != nil {
		slog.Warn("refresh token cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("expired refresh tokens removed", "count", removed)
	}
}

func (s *AuthService) issueTokenPair(ctx context.Context, account model.Account) (model.TokenPair, error) {
	access, err := s.signToken(account, tokenTypeAccess, uuid.NewString(), s.accessTTL)
	if err != nil {
		return model.TokenPair{}, err
	}

	refreshID := uuid.NewString()
	refresh, err := s.signToken(account, tokenTypeRefresh, refreshID, s.refreshTTL)
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := s.tokens.Store(ctx, refreshID, account.ID, s.now().Add(s.refreshTTL)); err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *AuthService) signToken(account model.Account, tokenType string, tokenID string, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      account.ID,
		"username": account.Username,
		"typ":      tokenType,
		"jti":      tokenID,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}
