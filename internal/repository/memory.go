package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"racoonsmeal/internal/model"
)

// MemoryUserRepository is a UserStore for development servers and tests.
type MemoryUserRepository struct {
	mu       sync.RWMutex
	accounts map[string]model.Account
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{accounts: map[string]model.Account{}}
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return model.Account{}, model.ErrUserNotFound
	}
	return a, nil
}

func (r *MemoryUserRepository) FindByUsername(_ context.Context, username string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.lookup(username); ok {
		return a, nil
	}
	return model.Account{}, model.ErrUserNotFound
}

func (r *MemoryUserRepository) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.lookup(username)
	return ok, nil
}

func (r *MemoryUserRepository) Create(_ context.Context, a model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lookup(a.Username); ok {
		return model.ErrUserAlreadyExists
	}
	r.accounts[a.ID] = a
	return nil
}

func (r *MemoryUserRepository) Count(context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts), nil
}

func (r *MemoryUserRepository) lookup(username string) (model.Account, bool) {
	username = strings.TrimSpace(username)
	for _, a := range r.accounts {
		if strings.EqualFold(a.Username, username) {
			return a, true
		}
	}
	return model.Account{}, false
}

type memoryToken struct {
	userID    string
	expiresAt time.Time
}

// MemoryTokenRepository is a TokenStore for development servers and tests.
type MemoryTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]memoryToken
	now    func() time.Time
}

func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{tokens: map[string]memoryToken{}, now: time.Now}
}

func (r *MemoryTokenRepository) Store(_ context.Context, tokenID string, userID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[tokenID] = memoryToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (r *MemoryTokenRepository) Validate(_ context.Context, tokenID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[tokenID]
	if !ok || !t.expiresAt.After(r.now()) {
		return "", model.ErrTokenNotFound
	}
	return t.userID, nil
}

func (r *MemoryTokenRepository) Revoke(_ context.Context, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, tokenID)
	return nil
}

func (r *MemoryTokenRepository) RevokeAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.tokens {
		if t.userID == userID {
			delete(r.tokens, id)
		}
	}
	return nil
}

func (r *MemoryTokenRepository) CleanExpired(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	now := r.now()
	for id, t := range r.tokens {
		if !t.expiresAt.After(now) {
			delete(r.tokens, id)
			removed++
		}
	}
	return removed, nil
}

// MemoryProfileRepository is a ProfileStore for development servers and tests.
type MemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]model.Profile
}

func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{profiles: map[string]model.Profile{}}
}

func (r *MemoryProfileRepository) FindByUserID(_ context.Context, userID string) (model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return model.Profile{}, model.ErrProfileNotFound
	}
	return p, nil
}

func (r *MemoryProfileRepository) Create(_ context.Context, p model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[p.UserID]; ok {
		return model.ErrProfileAlreadyExists
	}
	r.profiles[p.UserID] = p
	return nil
}

func (r *MemoryProfileRepository) Update(_ context.Context, p model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.profiles[p.UserID]
	if !ok {
		return model.ErrProfileNotFound
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	r.profiles[p.UserID] = p
	return nil
}
