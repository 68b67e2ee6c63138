// pkg/simulator/manager.go

package simulator

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/fernwave/mobiprev/pkg/config"
	"github.com/fernwave/mobiprev/pkg/device"
	"github.com/fernwave/mobiprev/pkg/execute"
	"github.com/fernwave/mobiprev/pkg/mp_err"
	"go.uber.org/zap"
)

const xcrunBin = "xcrun"

// Manager drives the simulator lifecycle. The process runner and logger
// are injected at construction; nothing here reaches for globals.
type Manager struct {
	run       execute.Runner
	cfg       *config.Settings
	log       *zap.Logger
	supported *regexp.Regexp
}

// NewManager compiles the supported-runtime pattern and returns a
// simulator manager.
func NewManager(run execute.Runner, cfg *config.Settings, log *zap.Logger) (*Manager, error) {
	supported, err := regexp.Compile(cfg.IOS.SupportedRuntimes)
	if err != nil {
		return nil, cerr.Wrapf(err, "invalid supported-runtimes pattern %q", cfg.IOS.SupportedRuntimes)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{run: run, cfg: cfg, log: log, supported: supported}, nil
}

// List enumerates available simulators on supported runtimes, newest
// runtime first.
func (m *Manager) List(ctx context.Context) ([]device.Descriptor, error) {
	out, err := m.run.Run(ctx, execute.Options{
		Command: xcrunBin,
		Args:    []string{"simctl", "list", "devices", "available", "--json"},
		Capture: true,
	})
	if err != nil {
		return nil, cerr.Wrap(err, "failed to list simulators")
	}
	return ParseDeviceList([]byte(out), m.supported)
}

// Find returns the first simulator whose name matches exactly.
func (m *Manager) Find(ctx context.Context, name string) (device.Descriptor, bool, error) {
	devices, err := m.List(ctx)
	if err != nil {
		return device.Descriptor{}, false, err
	}
	for _, d := range devices {
		if d.Name == name {
			return d, true, nil
		}
	}
	return device.Descriptor{}, false, nil
}

// Runtimes enumerates installed supported runtimes, newest-looking first.
func (m *Manager) Runtimes(ctx context.Context) ([]Runtime, error) {
	out, err := m.run.Run(ctx, execute.Options{
		Command: xcrunBin,
		Args:    []string{"simctl", "list", "runtimes", "--json"},
		Capture: true,
	})
	if err != nil {
		return nil, cerr.Wrap(err, "failed to list simulator runtimes")
	}
	return ParseRuntimeList([]byte(out), m.supported)
}

// Create creates a named simulator and returns its udid. Creation
// failures are surfaced directly, never retried.
func (m *Manager) Create(ctx context.Context, name, deviceType, runtimeIdentifier string) (string, error) {
	m.log.Info("Creating simulator",
		zap.String("name", name),
		zap.String("device_type", deviceType),
		zap.String("runtime", runtimeIdentifier),
	)
	out, err := m.run.Run(ctx, execute.Options{
		Command: xcrunBin,
		Args:    []string{"simctl", "create", name, deviceType, runtimeIdentifier},
		Capture: true,
	})
	if err != nil {
		return "", &mp_err.DeviceCreationError{Name: name, Cause: err}
	}
	return strings.TrimSpace(out), nil
}

// FindOrCreate returns the named simulator, creating it on the newest
// supported runtime when it does not exist yet.
func (m *Manager) FindOrCreate(ctx context.Context, name string) (device.Descriptor, error) {
	d, found, err := m.Find(ctx, name)
	if err != nil {
		return device.Descriptor{}, err
	}
	if found {
		return d, nil
	}

	runtimes, err := m.Runtimes(ctx)
	if err != nil {
		return device.Descriptor{}, err
	}
	if len(runtimes) == 0 {
		return device.Descriptor{}, &mp_err.UnsupportedEnvironmentError{
			Requirement: "simulator runtime",
			Detail:      "no supported iOS runtime is installed",
		}
	}

	udid, err := m.Create(ctx, name, m.cfg.IOS.DefaultDeviceType, runtimes[0].Identifier)
	if err != nil {
		return device.Descriptor{}, err
	}
	return device.Descriptor{
		Name:      name,
		UDID:      udid,
		State:     device.StateShutdown,
		Runtime:   runtimes[0].Label,
		Available: true,
	}, nil
}

// Boot boots a simulator. An already-booted device short-circuits
// immediately. When wait is set, a bounded fixed-interval poll runs
// until the device reports Booted or the budget is exhausted.
func (m *Manager) Boot(ctx context.Context, udid string, wait bool) error {
	res, err := m.run.RunResult(ctx, execute.Options{
		Command: xcrunBin,
		Args:    []string{"simctl", "boot", udid},
		Timeout: 2 * time.Minute,
	})
	if err != nil && !alreadyInState(res, "Booted") {
		return cerr.Wrapf(err, "failed to boot simulator %s", udid)
	}
	if !wait {
		return nil
	}
	return m.waitForBoot(ctx, udid)
}

// Shutdown stops a booted simulator. Stopping is an explicit operation,
// never an automatic cleanup of a failed launch.
func (m *Manager) Shutdown(ctx context.Context, udid string) error {
	res, err := m.run.RunResult(ctx, execute.Options{
		Command: xcrunBin,
		Args:    []string{"simctl", "shutdown", udid},
	})
	if err != nil && !alreadyInState(res, "Shutdown") {
		return cerr.Wrapf(err, "failed to shut down simulator %s", udid)
	}
	return nil
}

// Launch hands a booted simulator off to the preview target.
func (m *Manager) Launch(ctx context.Context, udid string, spec device.LaunchSpec) error {
	switch spec.Kind {
	case device.TargetApp:
		return m.launchApp(ctx, udid, spec)
	default:
		return m.launchBrowser(ctx, udid, spec)
	}
}

// launchBrowser opens the component preview URL in the simulator's
// system browser. The simulator shares the host loopback, so the URL
// host is plain localhost; Android addresses the host differently and
// the two must not be unified.
func (m *Manager) launchBrowser(ctx context.Context, udid string, spec device.LaunchSpec) error {
	previewURL := fmt.Sprintf("http://localhost:%d/preview/%s",
		spec.ServerPort, url.PathEscape(spec.Component))

	m.log.Info("Opening preview in simulator browser",
		zap.String("udid", udid),
		zap.String("url", previewURL),
	)
	// openurl is a short synchronous command; running it to completion
	// lets a bad udid or unavailable device surface as a launch failure.
	if _, err := m.run.Run(ctx, execute.Options{
		Command: xcrunBin,
		Args:    []string{"simctl", "openurl", udid, previewURL},
	}); err != nil {
		return &mp_err.LaunchError{Target: spec.Component, Cause: err}
	}
	return nil
}

// launchApp installs the app when a build artifact is supplied, then
// launches it with the preview arguments.
func (m *Manager) launchApp(ctx context.Context, udid string, spec device.LaunchSpec) error {
	if spec.AppPath != "" {
		if _, err := m.run.Run(ctx, execute.Options{
			Command: xcrunBin,
			Args:    []string{"simctl", "install", udid, spec.AppPath},
			Timeout: 2 * time.Minute,
		}); err != nil {
			return &mp_err.LaunchError{Target: spec.AppID, Cause: err}
		}
	}

	args := []string{"simctl", "launch", udid, spec.AppID,
		"-ComponentName", spec.Component,
		"-ProjectDir", spec.ProjectDir,
	}
	if spec.ServerPort > 0 {
		args = append(args,
			"-ServerAddress", "localhost",
			"-ServerPort", strconv.Itoa(spec.ServerPort),
		)
	}

	m.log.Info("Launching preview app in simulator",
		zap.String("udid", udid),
		zap.String("app", spec.AppID),
	)
	if _, err := m.run.Run(ctx, execute.Options{
		Command: xcrunBin,
		Args:    args,
	}); err != nil {
		return &mp_err.LaunchError{Target: spec.AppID, Cause: err}
	}
	return nil
}

// waitForBoot polls the device state at a fixed interval until it
// reports Booted or the attempt budget is exhausted. The poll timer is
// stopped on every exit path.
func (m *Manager) waitForBoot(ctx context.Context, udid string) error {
	interval := m.cfg.Boot.PollInterval
	attempts := m.cfg.Boot.MaxAttempts
	start := time.Now()

	for attempt := 1; attempt <= attempts; attempt++ {
		d, found, err := m.findByUDID(ctx, udid)
		if err != nil {
			return err
		}
		if found && d.IsBooted() {
			m.log.Info("Simulator booted",
				zap.String("udid", udid),
				zap.Int("polls", attempt),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return &mp_err.BootTimeoutError{
		Device:   udid,
		Attempts: attempts,
		Elapsed:  time.Since(start),
	}
}

func (m *Manager) findByUDID(ctx context.Context, udid string) (device.Descriptor, bool, error) {
	devices, err := m.List(ctx)
	if err != nil {
		return device.Descriptor{}, false, err
	}
	for _, d := range devices {
		if d.UDID == udid {
			return d, true, nil
		}
	}
	return device.Descriptor{}, false, nil
}

// alreadyInState detects simctl's "Unable to boot device in current
// state: Booted" family of complaints, which make boot and shutdown
// idempotent.
func alreadyInState(res execute.Result, state string) bool {
	return strings.Contains(res.Stderr, "current state: "+state)
}
