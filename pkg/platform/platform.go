// pkg/platform/platform.go

// Package platform selects the device toolchain (iOS simulator or
// Android emulator) and wires the per-platform managers behind one
// surface the commands can drive.
package platform

import (
	cerr "github.com/cockroachdb/errors"
	"github.com/fernwave/mobiprev/pkg/config"
	"github.com/fernwave/mobiprev/pkg/devserver"
	"github.com/fernwave/mobiprev/pkg/emulator"
	"github.com/fernwave/mobiprev/pkg/execute"
	"github.com/fernwave/mobiprev/pkg/mp_err"
	"github.com/fernwave/mobiprev/pkg/simulator"
	"go.uber.org/zap"
)

// Platform names a supported device family.
type Platform string

const (
	IOS     Platform = "ios"
	Android Platform = "android"
)

// Parse validates a --platform flag value.
func Parse(s string) (Platform, error) {
	switch Platform(s) {
	case IOS:
		return IOS, nil
	case Android:
		return Android, nil
	default:
		return "", mp_err.NewExpectedError(
			cerr.Newf("unknown platform %q: expected %q or %q", s, IOS, Android))
	}
}

// Toolkit bundles the managers for one platform. Exactly one of Sim or
// Emu is set, matching Platform.
type Toolkit struct {
	Platform Platform
	Sim      *simulator.Manager
	Emu      *emulator.Manager
	Dev      *devserver.Manager

	cfg *config.Settings
	log *zap.Logger
}

// NewToolkit builds the managers for the given platform on a shared
// process runner.
func NewToolkit(p Platform, run execute.Runner, cfg *config.Settings, log *zap.Logger) (*Toolkit, error) {
	if log == nil {
		log = zap.NewNop()
	}
	tk := &Toolkit{
		Platform: p,
		Dev:      devserver.NewManager(run, cfg, log),
		cfg:      cfg,
		log:      log,
	}
	switch p {
	case IOS:
		sim, err := simulator.NewManager(run, cfg, log)
		if err != nil {
			return nil, err
		}
		tk.Sim = sim
	case Android:
		tk.Emu = emulator.NewManager(run, cfg, log)
	default:
		return nil, cerr.Newf("unknown platform %q", p)
	}
	return tk, nil
}
