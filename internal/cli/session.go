package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"racoonsmeal/internal/apiclient"
	"racoonsmeal/internal/authstate"
	"racoonsmeal/internal/config"
	"racoonsmeal/internal/credential"
	"racoonsmeal/internal/logger"
)

// session is the client stack shared by one command invocation.
type session struct {
	cfg         *config.ClientConfig
	credentials credential.Store
	client      *apiclient.Client
	store       *authstate.Store
	guard       *authstate.ProfileGuard
	logger      *slog.Logger
}

// session builds the client stack on first use and restores any stored login.
func (c *cli) session(ctx context.Context) (*session, error) {
	if c.sess != nil {
		return c.sess, nil
	}

	cfg, err := c.loadCfg()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if c.opts.apiURL != "" {
		cfg.APIURL = strings.TrimRight(c.opts.apiURL, "/")
	}
	if c.opts.credentials != "" {
		cfg.CredentialBackend = c.opts.credentials
	}
	if c.opts.credentialsDir != "" {
		cfg.CredentialsDir = c.opts.credentialsDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if c.opts.verbose {
		level = "debug"
	}
	log := logger.New(c.streams.Err, level)

	credentials, err := credential.Open(ctx, cfg.CredentialOptions())
	if err != nil {
		return nil, fmt.Errorf("open credentials: %w", err)
	}

	client := apiclient.New(cfg.APIURL, credentials,
		apiclient.WithTimeout(cfg.RequestTimeout),
		apiclient.WithTTLs(cfg.TTLs()),
		apiclient.WithLogger(log),
	)
	store := authstate.New(client, credentials,
		authstate.WithNavigator(noticeNavigator{w: c.streams.Err}),
		authstate.WithLogger(log),
	)

	c.sess = &session{
		cfg:         cfg,
		credentials: credentials,
		client:      client,
		store:       store,
		guard:       authstate.NewProfileGuard(store),
		logger:      log,
	}

	store.Initialize(ctx)
	return c.sess, nil
}

// requireUser returns the logged-in session or errNotLoggedIn.
func (c *cli) requireUser(ctx context.Context) (*session, error) {
	sess, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	if !sess.store.IsAuthenticated() {
		return nil, errNotLoggedIn
	}
	return sess, nil
}

func (s *session) close() {
	if closer, ok := s.credentials.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn("close credential store", "error", err)
		}
	}
}
