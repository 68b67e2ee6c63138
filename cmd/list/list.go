// cmd/list/list.go

package list

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

// ListCmd enumerates the virtual devices known to the platform tools.
var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List virtual devices for a platform",
	RunE: mp_cli.Wrap(func(rc *mp_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		log := otelzap.Ctx(rc.Ctx)

		platformName, _ := cmd.Flags().GetString("platform")
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
			devices, err := tk.Sim.List(rc.Ctx)
			if err != nil {
				return err
			}
			for _, d := range devices {
				log.Info("Simulator",
					zap.String("name", d.Name),
					zap.String("udid", d.UDID),
					zap.String("runtime", d.Runtime),
					zap.String("state", string(d.State)),
				)
			}
			log.Info("Simulators listed", zap.Int("count", len(devices)))
		case platform.Android:
			avds, err := tk.Emu.ListAVDs(rc.Ctx)
			if err != nil {
				return err
			}
			for _, a := range avds {
				log.Info("AVD",
					zap.String("name", a.Name),
					zap.String("device", a.Device),
					zap.String("target", a.Target),
				)
			}
			log.Info("AVDs listed", zap.Int("count", len(avds)))
		}
		return nil
	}),
}

func init() {
	mp_cli.AddStringFlag(ListCmd, "platform", "p", "", "Target platform: ios or android", true)
}
