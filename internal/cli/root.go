package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harvest-labs/harvest/internal/branding"
	"github.com/harvest-labs/harvest/internal/config"
	"github.com/harvest-labs/harvest/internal/logging"
	"github.com/harvest-labs/harvest/internal/ui"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string

	verbosity int
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` bootstraps new projects from versioned template archives: it
unpacks the template, renames its package, creates a virtualenv, installs
dependencies, collects static files and sets up a local database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(verbosity, cmd.ErrOrStderr(), filepath.Join(config.Dir(), "logs"))
		return config.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbosity", "v", "Increase verbosity of output (repeatable)")
}

// Execute runs the root command with build info injected via ldflags. Errors
// are printed in red on the same stream as progress output.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		ui.NewPrinter(rootCmd.OutOrStdout()).Error("Error: %s", err)
	}
	return err
}
