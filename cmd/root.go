/* cmd/root.go */

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fernwave/mobiprev/cmd/list"
	"github.com/fernwave/mobiprev/cmd/preview"
	"github.com/fernwave/mobiprev/cmd/setup"
	"github.com/fernwave/mobiprev/cmd/stop"
	"github.com/fernwave/mobiprev/pkg/logger"
	"github.com/fernwave/mobiprev/pkg/mp_cli"
	"github.com/fernwave/mobiprev/pkg/mp_err"
	"github.com/fernwave/mobiprev/pkg/mp_io"
)

// RootCmd is the base command for mobiprev.
var RootCmd = &cobra.Command{
	Use:   "mobiprev",
	Short: "Prepare and drive mobile virtual devices for web component previews",
	Long: `mobiprev validates the iOS simulator / Android emulator toolchains,
creates and boots virtual devices, and opens component previews on them.`,
	// Runs for every subcommand before required flags are validated, so
	// MOBIPREV_* env vars can satisfy flags like --platform.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return mp_cli.BindEnvFlags(cmd)
	},
	RunE: mp_cli.Wrap(func(rc *mp_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		fmt.Println("⚠️  No subcommand provided. Try `mobiprev help`.")
		return cmd.Help()
	}),
}

// RegisterCommands adds all subcommands to the root command.
func RegisterCommands() {
	for _, subCmd := range []*cobra.Command{
		setup.SetupCmd,
		preview.PreviewCmd,
		list.ListCmd,
		stop.StopCmd,
	} {
		RootCmd.AddCommand(subCmd)
	}
}

// Execute initializes and runs the root command. Expected user errors
// (unmet requirements, bad flags) exit 1 without a stack; anything else
// exits 2.
func Execute() {
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Failed to flush logs: %v\n", err)
		}
	}()

	RegisterCommands()

	if err := RootCmd.Execute(); err != nil {
		if mp_err.IsExpectedUserError(err) {
			logger.L().Warn("Completed with user error", zap.Error(err))
			os.Exit(1)
		}
		logger.L().Error("Execution error", zap.Error(err))
		os.Exit(2)
	}
}
