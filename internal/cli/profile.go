package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"racoonsmeal/internal/apiclient"
	"racoonsmeal/internal/authstate"
	"racoonsmeal/internal/model"
)

var profileFlagNames = []string{"bio", "age", "gender", "height", "weight", "activity", "goal"}

func (c *cli) profileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect or complete your profile",
	}
	cmd.AddCommand(c.profileStatusCommand(), c.profileCompleteCommand())
	return cmd
}

func (c *cli) profileStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether your profile exists and is complete",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.requireUser(cmd.Context())
			if err != nil {
				return err
			}

			status, err := sess.client.ProfileStatus(cmd.Context())
			if err != nil {
				return err
			}

			if c.opts.jsonOutput {
				return writeJSON(c.streams.Out, status)
			}
			fmt.Fprintln(c.streams.Out, row("Profile:", formatStatus(status)))
			return nil
		},
	}
}

func (c *cli) profileCompleteCommand() *cobra.Command {
	defaults := model.DefaultProfileFields()
	form := newProfileForm(defaults)
	var picture string

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Fill in your profile",
		Long: `Submit the profile completion form. Without any field flags the form is
prompted interactively, pre-filled with defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := c.requireUser(ctx)
			if err != nil {
				return err
			}

			if !anyChanged(cmd, profileFlagNames) {
				if err := c.streams.Prompter.Profile(ctx, &form); err != nil {
					return err
				}
			}

			fields, err := form.fields()
			if err != nil {
				return err
			}

			in := apiclient.ProfileInput{ProfileFields: fields}
			if picture != "" {
				file, err := os.Open(picture)
				if err != nil {
					return fmt.Errorf("open picture: %w", err)
				}
				defer file.Close()
				in.Picture = file
				in.PictureName = filepath.Base(picture)
			}

			profile, err := sess.client.CompleteProfile(ctx, in)
			if err != nil {
				return err
			}
			sess.store.RefreshUser(ctx)

			if c.opts.jsonOutput {
				return writeJSON(c.streams.Out, profile)
			}
			fmt.Fprintln(c.streams.Out, okStyle.Render("Profile saved"))
			fmt.Fprintln(c.streams.Out, sectionStyle.Render(formatProfile(profile)))

			if _, err := sess.guard.Check(ctx, authstate.PathCompleteProfile); err != nil {
				sess.logger.Debug("profile check after completion failed", "error", err)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&form.Bio, "bio", form.Bio, "Short bio")
	flags.StringVar(&form.Age, "age", form.Age, "Age in years")
	flags.StringVar(&form.Gender, "gender", form.Gender, "Gender: male or female")
	flags.StringVar(&form.HeightCM, "height", form.HeightCM, "Height in centimetres")
	flags.StringVar(&form.WeightKG, "weight", form.WeightKG, "Weight in kilograms")
	flags.StringVar(&form.ActivityLevel, "activity", form.ActivityLevel, "Activity level: sedentary, light, moderate, active or very_active")
	flags.StringVar(&form.Goal, "goal", form.Goal, "Goal: maintain, cut or gain")
	flags.StringVar(&picture, "picture", "", "Path to a profile picture")
	return cmd
}

func anyChanged(cmd *cobra.Command, names []string) bool {
	for _, name := range names {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}
