package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"racoonsmeal/internal/apiclient"
	"racoonsmeal/internal/authstate"
	"racoonsmeal/internal/model"
	"racoonsmeal/pkg/apierror"
)

func (c *cli) loginCommand() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.streams.Prompter.Login(ctx, &username, &password); err != nil {
				return err
			}

			sess, err := c.session(ctx)
			if err != nil {
				return err
			}

			user, err := sess.store.Login(ctx, username, password)
			if err != nil {
				return err
			}

			if c.opts.jsonOutput {
				return writeJSON(c.streams.Out, user)
			}
			fmt.Fprintln(c.streams.Out, okStyle.Render("Logged in as "+displayName(user, username)))

			if _, err := sess.guard.Check(ctx, authstate.PathHome); err != nil {
				sess.logger.Debug("profile check after login failed", "error", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted when omitted)")
	return cmd
}

func (c *cli) registerCommand() *cobra.Command {
	var req model.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.streams.Prompter.Register(ctx, &req); err != nil {
				return err
			}

			sess, err := c.session(ctx)
			if err != nil {
				return err
			}

			user, err := sess.store.Register(ctx, req)
			if err != nil {
				return err
			}

			if c.opts.jsonOutput {
				return writeJSON(c.streams.Out, user)
			}
			fmt.Fprintln(c.streams.Out, okStyle.Render("Welcome, "+displayName(user, req.Username)+"!"))

			if _, err := sess.guard.Check(ctx, authstate.PathHome); err != nil {
				sess.logger.Debug("profile check after register failed", "error", err)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&req.Username, "username", "u", "", "Account username")
	flags.StringVar(&req.Email, "email", "", "Email address")
	flags.StringVarP(&req.Password, "password", "p", "", "Password (prompted when omitted)")
	flags.StringVar(&req.Password2, "password-confirm", "", "Password confirmation (prompted when omitted)")
	flags.StringVar(&req.FirstName, "first-name", "", "First name")
	flags.StringVar(&req.LastName, "last-name", "", "Last name")
	flags.StringVar(&req.DateOfBirth, "date-of-birth", "", "Date of birth (YYYY-MM-DD)")
	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.session(cmd.Context())
			if err != nil {
				return err
			}

			if err := sess.store.Logout(cmd.Context()); err != nil {
				return err
			}

			if c.opts.jsonOutput {
				return writeJSON(c.streams.Out, map[string]bool{"logged_out": true})
			}
			fmt.Fprintln(c.streams.Out, okStyle.Render("Logged out"))
			return nil
		},
	}
}

type whoami struct {
	User    *model.User             `json:"user"`
	Profile *model.Profile          `json:"profile,omitempty"`
	Status  apiclient.ProfileStatus `json:"status"`
}

func (c *cli) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and their profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.requireUser(cmd.Context())
			if err != nil {
				return err
			}

			out := whoami{User: sess.store.User()}
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				profile, err := sess.client.Profile(ctx)
				if apierror.IsStatus(err, http.StatusNotFound) {
					return nil
				}
				out.Profile = profile
				return err
			})
			g.Go(func() error {
				status, err := sess.client.ProfileStatus(ctx)
				out.Status = status
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			if c.opts.jsonOutput {
				return writeJSON(c.streams.Out, out)
			}

			fmt.Fprintln(c.streams.Out, titleStyle.Render(out.User.Username))
			fmt.Fprintln(c.streams.Out, formatUser(out.User))
			fmt.Fprintln(c.streams.Out, row("Profile:", formatStatus(out.Status)))
			if out.Profile != nil {
				fmt.Fprintln(c.streams.Out, sectionStyle.Render(formatProfile(out.Profile)))
			}
			return nil
		},
	}
}

func displayName(user *model.User, fallback string) string {
	if user != nil && user.Username != "" {
		return user.Username
	}
	return fallback
}

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errNotLoggedIn), apierror.IsStatus(err, http.StatusUnauthorized):
		return 3
	default:
		return 1
	}
}
