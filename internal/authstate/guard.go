package authstate

import (
	"context"
	"log/slog"
)

// ProfileGuard keeps logged-in users with an incomplete profile on the completion
// page, and users with a complete one off it.
type ProfileGuard struct {
	store  *Store
	api    SessionAPI
	logger *slog.Logger
}

func NewProfileGuard(store *Store) *ProfileGuard {
	return &ProfileGuard{store: store, api: store.api, logger: store.logger}
}

// Check returns the path the user should be redirected to, or "" to stay on
// currentPath. A redirect is also sent through the store's navigator.
func (g *ProfileGuard) Check(ctx context.Context, currentPath string) (string, error) {
	session := g.store.Snapshot()
	if session.Loading || !session.IsAuthenticated() {
		return "", nil
	}

	status, err := g.api.ProfileStatus(ctx)
	if err != nil {
		g.logger.Warn("profile status check failed", "error", err)
		return "", err
	}

	var redirect string
	switch {
	case !status.Complete && currentPath != PathCompleteProfile:
		redirect = PathCompleteProfile
	case status.Complete && currentPath == PathCompleteProfile:
		redirect = PathHome
	}

	if redirect != "" {
		g.store.navigator.Navigate(redirect)
	}
	return redirect, nil
}
