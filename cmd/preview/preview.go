// cmd/preview/preview.go

package preview

import (
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/fernwave/mobiprev/pkg/config"
	"github.com/fernwave/mobiprev/pkg/device"
	"github.com/fernwave/mobiprev/pkg/execute"
	"github.com/fernwave/mobiprev/pkg/mp_cli"
	"github.com/fernwave/mobiprev/pkg/mp_io"
	"github.com/fernwave/mobiprev/pkg/platform"
)

// PreviewCmd runs the full pipeline: requirements, find-or-create,
// boot, launch.
var PreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Open a component preview on a virtual device",
	Long: `Validates the platform requirements, finds or creates the named virtual
device, boots it, and opens the component preview in the device browser
or a native preview app. A booted device is left running on failure.`,
	RunE: mp_cli.Wrap(func(rc *mp_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		log := otelzap.Ctx(rc.Ctx)

		platformName, _ := cmd.Flags().GetString("platform")
		deviceName, _ := cmd.Flags().GetString("device")
		component, _ := cmd.Flags().GetString("component")
		projectDir, _ := cmd.Flags().GetString("project-dir")
		target, _ := cmd.Flags().GetString("target")
		appID, _ := cmd.Flags().GetString("app")
		appPath, _ := cmd.Flags().GetString("app-path")
		serverPort, _ := cmd.Flags().GetInt("server-port")

		p, err := platform.Parse(platformName)
		if err != nil {
			return err
		}

		kind := device.TargetBrowser
		if target == string(device.TargetApp) {
			kind = device.TargetApp
		}

		cfg, err := config.Load(rc.Log)
		if err != nil {
			return err
		}
		tk, err := platform.NewToolkit(p, execute.NewRunner(rc.Log), cfg, rc.Log)
		if err != nil {
			return err
		}

		rc.Attributes["platform"] = platformName
		rc.Attributes["target"] = string(kind)
		log.Info("Starting preview",
			zap.String("platform", platformName),
			zap.String("device", deviceName),
			zap.String("component", component),
		)

		return tk.Preview(rc.Ctx, platform.PreviewOptions{
			DeviceName: deviceName,
			Component:  component,
			ProjectDir: projectDir,
			Target:     kind,
			AppID:      appID,
			AppPath:    appPath,
			ServerPort: serverPort,
		})
	}),
}

func init() {
	mp_cli.AddStringFlag(PreviewCmd, "platform", "p", "", "Target platform: ios or android", true)
	mp_cli.AddStringFlag(PreviewCmd, "device", "", "", "Virtual device name (created when missing)", true)
	mp_cli.AddStringFlag(PreviewCmd, "component", "c", "", "Component route to preview", true)
	mp_cli.AddStringFlag(PreviewCmd, "project-dir", "d", "", "Preview project directory", false)
	mp_cli.AddStringFlag(PreviewCmd, "target", "t", string(device.TargetBrowser), "Preview target: browser or app", false)
	mp_cli.AddStringFlag(PreviewCmd, "app", "", "", "Native preview app id (target app only)", false)
	mp_cli.AddStringFlag(PreviewCmd, "app-path", "", "", "Path to the preview app bundle/APK to install", false)
	mp_cli.AddIntFlag(PreviewCmd, "server-port", "", 0, "Dev server port (defaults to project .env or config)")
}
