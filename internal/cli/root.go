// Package cli is the racoonsmeal command-line front-end. Commands read and drive
// the auth state store the way a browser UI would.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"racoonsmeal/internal/config"
)

// Streams are the command's terminal endpoints. A nil Prompter selects the
// interactive huh prompts.
type Streams struct {
	Out      io.Writer
	Err      io.Writer
	Prompter Prompter
}

type globalOptions struct {
	apiURL         string
	jsonOutput     bool
	credentials    string
	credentialsDir string
	verbose        bool
}

type cli struct {
	streams Streams
	opts    globalOptions
	loadCfg func() (*config.ClientConfig, error)
	sess    *session
}

// Execute runs the command line in args against the real environment.
func Execute(ctx context.Context, args []string) error {
	return Run(ctx, args, Streams{Out: os.Stdout, Err: os.Stderr})
}

// Run builds the command tree, executes args and releases any open credential
// backend.
func Run(ctx context.Context, args []string, streams Streams) error {
	if streams.Prompter == nil {
		streams.Prompter = huhPrompter{}
	}
	c := &cli{streams: streams, loadCfg: config.LoadClient}
	defer c.close()

	root := c.rootCommand()
	root.SetArgs(args)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)
	return root.ExecuteContext(ctx)
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "racoonsmeal",
		Short: "Command-line client for Racoonsmeal",
		Long: `racoonsmeal signs you in to a Racoonsmeal backend and manages your profile.

Environment Variables:
  RACOONSMEAL_API_URL          Backend API URL (default: http://localhost:8000)
  RACOONSMEAL_CREDENTIALS      Credential backend: file, redis or memory (default: file)
  RACOONSMEAL_CREDENTIALS_DIR  Directory of the file backend
  RACOONSMEAL_REDIS_URL        Redis URL of the redis backend`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.opts.apiURL, "api-url", "", "Backend API URL (overrides RACOONSMEAL_API_URL)")
	flags.BoolVar(&c.opts.jsonOutput, "json", false, "Output JSON instead of human-readable text")
	flags.StringVar(&c.opts.credentials, "credentials", "", "Credential backend: file, redis or memory")
	flags.StringVar(&c.opts.credentialsDir, "credentials-dir", "", "Directory of the file credential backend")
	flags.BoolVarP(&c.opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		c.loginCommand(),
		c.registerCommand(),
		c.logoutCommand(),
		c.whoamiCommand(),
		c.profileCommand(),
	)

	return root
}

func (c *cli) close() {
	if c.sess != nil {
		c.sess.close()
	}
}
