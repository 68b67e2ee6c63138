// cmd/setup/setup.go

package setup

import (
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/fernwave/mobiprev/pkg/config"
	"github.com/fernwave/mobiprev/pkg/execute"
	"github.com/fernwave/mobiprev/pkg/mp_cli"
	"github.com/fernwave/mobiprev/pkg/mp_io"
	"github.com/fernwave/mobiprev/pkg/platform"
)

// SetupCmd validates the platform toolchain and reports every
// requirement outcome before exiting.
var SetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Validate the device toolchain for a platform",
	Long: `Runs every environment requirement for the chosen platform concurrently
and reports each outcome. With --install-plugin the companion dev server
plugin is installed into the project when missing.`,
	RunE: mp_cli.Wrap(func(rc *mp_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		log := otelzap.Ctx(rc.Ctx)

		platformName, _ := cmd.Flags().GetString("platform")
		projectDir, _ := cmd.Flags().GetString("project-dir")
		installPlugin, _ := cmd.Flags().GetBool("install-plugin")

		p, err := platform.Parse(platformName)
		if err != nil {
			return err
		}

		cfg, err := config.Load(rc.Log)
		if err != nil {
			return err
		}
		tk, err := platform.NewToolkit(p, execute.NewRunner(rc.Log), cfg, rc.Log)
		if err != nil {
			return err
		}

		if installPlugin && projectDir != "" {
			if err := tk.Dev.EnsurePlugin(rc.Ctx, projectDir); err != nil {
				return err
			}
		}

		log.Info("Validating requirements", zap.String("platform", platformName))
		return tk.ValidateRequirements(rc.Ctx, projectDir)
	}),
}

func init() {
	mp_cli.AddStringFlag(SetupCmd, "platform", "p", "", "Target platform: ios or android", true)
	mp_cli.AddStringFlag(SetupCmd, "project-dir", "d", "", "Preview project directory", false)
	mp_cli.AddBoolFlag(SetupCmd, "install-plugin", "", false, "Install the dev server plugin when missing")
}
