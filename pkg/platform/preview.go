// pkg/platform/preview.go

package platform

import (
	"context"

	"github.com/fernwave/mobiprev/pkg/config"
	"github.com/fernwave/mobiprev/pkg/device"
	"github.com/fernwave/mobiprev/pkg/emulator"
	"github.com/fernwave/mobiprev/pkg/mp_err"
	"github.com/fernwave/mobiprev/pkg/reqs"
	"github.com/fernwave/mobiprev/pkg/telemetry"
	"go.uber.org/zap"
)

// PreviewOptions is everything a preview run needs beyond the settings.
type PreviewOptions struct {
	DeviceName string
	Component  string
	ProjectDir string
	Target     device.TargetKind
	AppID      string
	AppPath    string
	ServerPort int // 0 means resolve from project .env / config
}

// Requirements assembles the platform's requirement set, plus the dev
// server plugin check when a project directory is known.
func (tk *Toolkit) Requirements(projectDir string) []reqs.Requirement {
	var set []reqs.Requirement
	switch tk.Platform {
	case IOS:
		set = tk.Sim.Requirements()
	case Android:
		set = tk.Emu.Requirements()
	}
	if projectDir != "" {
		set = append(set, tk.Dev.Requirement(projectDir))
	}
	return set
}

// ValidateRequirements runs the requirement set to completion and logs
// every settled outcome. An unmet set is an expected user error.
func (tk *Toolkit) ValidateRequirements(ctx context.Context, projectDir string) error {
	engine := reqs.NewEngine(tk.log)
	report := engine.ExecuteSetup(ctx, tk.Requirements(projectDir))

	for _, res := range report.Results {
		if res.Fulfilled() {
			tk.log.Info("✅ Requirement fulfilled",
				zap.String("title", res.Title),
				zap.Float64("duration_s", res.DurationSeconds),
			)
			continue
		}
		tk.log.Warn("❌ Requirement rejected",
			zap.String("title", res.Title),
			zap.String("reason", res.Message),
			zap.String("how_to_fix", res.Supplemental),
			zap.Float64("duration_s", res.DurationSeconds),
		)
	}
	tk.log.Info("Requirement validation finished",
		zap.Int("passed", report.Passed()),
		zap.Int("total", len(report.Results)),
		zap.String("platform", string(tk.Platform)),
	)

	if err := report.Err(); err != nil {
		return mp_err.NewExpectedError(err)
	}
	return nil
}

// Preview runs the full pipeline: validate requirements, find or create
// the device, boot it, and hand off to the preview target. The first
// failure aborts the rest; a booted device is left running.
func (tk *Toolkit) Preview(ctx context.Context, opts PreviewOptions) error {
	ctx, span := telemetry.Start(ctx, "preview")
	defer span.End()

	if err := tk.ValidateRequirements(ctx, opts.ProjectDir); err != nil {
		return err
	}

	spec := device.LaunchSpec{
		Kind:       opts.Target,
		Component:  opts.Component,
		ProjectDir: opts.ProjectDir,
		ServerPort: config.ResolveServerPort(tk.log, tk.cfg, opts.ProjectDir, opts.ServerPort),
		AppID:      opts.AppID,
		AppPath:    opts.AppPath,
	}

	switch tk.Platform {
	case IOS:
		return tk.previewSimulator(ctx, opts.DeviceName, spec)
	default:
		return tk.previewEmulator(ctx, opts.DeviceName, spec)
	}
}

func (tk *Toolkit) previewSimulator(ctx context.Context, name string, spec device.LaunchSpec) error {
	desc, err := tk.Sim.FindOrCreate(ctx, name)
	if err != nil {
		return err
	}
	if err := tk.Sim.Boot(ctx, desc.UDID, true); err != nil {
		return err
	}
	return tk.Sim.Launch(ctx, desc.UDID, spec)
}

func (tk *Toolkit) previewEmulator(ctx context.Context, name string, spec device.LaunchSpec) error {
	avd, err := tk.Emu.FindOrCreate(ctx, name)
	if err != nil {
		return err
	}

	port, err := tk.Emu.NextAvailablePort(ctx)
	if err != nil {
		return err
	}
	if err := tk.Emu.Start(ctx, avd.Name, port); err != nil {
		return err
	}
	// The emulator may have bound a different port than requested.
	actual, err := tk.Emu.ResolvePort(ctx, avd.Name, port)
	if err != nil {
		return err
	}
	serial := emulator.SerialForPort(actual)

	if err := tk.Emu.WaitForBoot(ctx, serial); err != nil {
		return err
	}
	return tk.Emu.Launch(ctx, serial, spec)
}
