package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"task-manager/internal/config"
	"task-manager/internal/tui"
)

const Version = "0.1.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskmanager",
		Short:         "Personal task manager with a pomodoro timer",
		Long:          "taskmanager serves the task API and talks to it from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	root.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newExportCmd(),
		newTasksCmd(),
		newPomodoroCmd(),
	)
	return root
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, tui.Bad.Render("✗ "+err.Error()))
		os.Exit(1)
	}
}

// loadConfig is swapped in tests.
var loadConfig = config.Load
