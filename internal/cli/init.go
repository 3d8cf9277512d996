package cli

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harvest-labs/harvest/internal/bootstrap"
	"github.com/harvest-labs/harvest/internal/config"
	"github.com/harvest-labs/harvest/internal/logging"
	"github.com/harvest-labs/harvest/internal/runtime"
	"github.com/harvest-labs/harvest/internal/ui"
)

var (
	initVersion string
	initNoEnv   bool
	initNoInput bool
)

func init() {
	initCmd.Flags().StringVar(&initVersion, "harvest-version", "", "Template version to create this project from")
	initCmd.Flags().BoolVar(&initNoEnv, "no-env", false, "Set up the project in the current directory without a virtualenv")
	initCmd.Flags().BoolVar(&initNoInput, "no-input", false, "Prevent interactive prompts during setup")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init <project_name>",
	Short: "Create and set up a new project",
	Long: `Create and set up a new project from the template archive.

The project name must be a valid Python identifier that does not shadow an
existing module. Unless --no-env is given the project is created inside a new
<project_name>-env virtualenv.`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	settings, err := config.Resolve()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	printer := ui.NewPrinter(out)
	runner := runtime.NewExecRunner()
	runner.Stdout = out
	runner.Stderr = cmd.ErrOrStderr()
	runner.Trace = printer.Running

	b := bootstrap.New(settings,
		bootstrap.WithRunner(runner),
		bootstrap.WithPrompter(selectPrompter(cmd.InOrStdin(), out, initNoInput)),
		bootstrap.WithPrinter(printer),
		bootstrap.WithLogger(logging.Component("bootstrap")),
	)

	_, err = b.Run(ctx, newRequest(args[0]))
	return err
}

func newRequest(name string) bootstrap.Request {
	return bootstrap.Request{
		Name:            name,
		TemplateVersion: initVersion,
		CreateEnv:       !initNoEnv,
		AllowInput:      !initNoInput,
		Verbosity:       verbosity,
	}
}

// selectPrompter only asks questions on an interactive terminal.
func selectPrompter(in io.Reader, out io.Writer, noInput bool) ui.Prompter {
	if noInput || !ui.IsTerminal(in) {
		return ui.DefaultPrompter{}
	}
	return ui.NewConsolePrompter(in, out)
}
