// cmd/stop/stop.go

package stop

import (
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/fernwave/mobiprev/pkg/config"
	"github.com/fernwave/mobiprev/pkg/emulator"
	"github.com/fernwave/mobiprev/pkg/execute"
	"github.com/fernwave/mobiprev/pkg/mp_cli"
	"github.com/fernwave/mobiprev/pkg/mp_err"
	"github.com/fernwave/mobiprev/pkg/mp_io"
	"github.com/fernwave/mobiprev/pkg/platform"
)

// StopCmd shuts a running virtual device down. Preview never does this
// implicitly; stopping is always an explicit request.
var StopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running virtual device",
	RunE: mp_cli.Wrap(func(rc *mp_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		log := otelzap.Ctx(rc.Ctx)

		platformName, _ := cmd.Flags().GetString("platform")
		deviceName, _ := cmd.Flags().GetString("device")

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

		switch p {
		case platform.IOS:
			desc, found, err := tk.Sim.Find(rc.Ctx, deviceName)
			if err != nil {
				return err
			}
			if !found {
				return mp_err.NewExpectedError(cerr.Newf("no simulator named %q", deviceName))
			}
			if err := tk.Sim.Shutdown(rc.Ctx, desc.UDID); err != nil {
				return err
			}
		case platform.Android:
			port, err := tk.Emu.ResolvePort(rc.Ctx, deviceName, 0)
			if err != nil {
				return err
			}
			if port == 0 {
				return mp_err.NewExpectedError(cerr.Newf("no running emulator for AVD %q", deviceName))
			}
			if err := tk.Emu.Stop(rc.Ctx, emulator.SerialForPort(port)); err != nil {
				return err
			}
		}

		log.Info("Device stopped",
			zap.String("platform", platformName),
			zap.String("device", deviceName),
		)
		return nil
	}),
}

func init() {
	mp_cli.AddStringFlag(StopCmd, "platform", "p", "", "Target platform: ios or android", true)
	mp_cli.AddStringFlag(StopCmd, "device", "", "", "Virtual device name", true)
}
