// pkg/emulator/manager.go

package emulator

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
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

// emulatorLoopbackHost is the alias under which an Android emulator
// reaches the host machine's loopback. This is NOT the same notion as
// the simulator's localhost and the two must stay separate constants.
const emulatorLoopbackHost = "10.0.2.2"

// Manager drives the emulator lifecycle. Process runner and logger are
// injected at construction.
type Manager struct {
	run     execute.Runner
	cfg     *config.Settings
	log     *zap.Logger
	sdkRoot string
}

// NewManager resolves the SDK root from ANDROID_HOME (preferred) or
// ANDROID_SDK_ROOT; an empty root falls back to PATH lookup of the
// toolchain binaries.
func NewManager(run execute.Runner, cfg *config.Settings, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	root := os.Getenv("ANDROID_HOME")
	if root == "" {
		root = os.Getenv("ANDROID_SDK_ROOT")
	}
	return &Manager{run: run, cfg: cfg, log: log, sdkRoot: root}
}

// SDKRoot returns the resolved Android SDK root, possibly empty.
func (m *Manager) SDKRoot() string { return m.sdkRoot }

func (m *Manager) sdkManagerBin() string {
	return m.tool("cmdline-tools", "latest", "bin", "sdkmanager")
}

func (m *Manager) avdManagerBin() string {
	return m.tool("cmdline-tools", "latest", "bin", "avdmanager")
}

func (m *Manager) emulatorBin() string {
	return m.tool("emulator", "emulator")
}

func (m *Manager) adbBin() string {
	return m.tool("platform-tools", "adb")
}

func (m *Manager) tool(elems ...string) string {
	if m.sdkRoot == "" {
		return elems[len(elems)-1]
	}
	return filepath.Join(append([]string{m.sdkRoot}, elems...)...)
}

// Packages lists the installed SDK components.
func (m *Manager) Packages(ctx context.Context) (*PackageCatalog, error) {
	out, err := m.run.Run(ctx, execute.Options{
		Command: m.sdkManagerBin(),
		Args:    []string{"--list"},
		Capture: true,
		Timeout: 2 * time.Minute,
	})
	if err != nil {
		return nil, cerr.Wrap(err, "failed to list SDK packages")
	}
	return ParseInstalledPackages(out)
}

// ListAVDs enumerates the persisted virtual device configurations.
func (m *Manager) ListAVDs(ctx context.Context) ([]AVD, error) {
	out, err := m.run.Run(ctx, execute.Options{
		Command: m.avdManagerBin(),
		Args:    []string{"list", "avd"},
		Capture: true,
	})
	if err != nil {
		return nil, cerr.Wrap(err, "failed to list AVDs")
	}
	return ParseAVDList(out), nil
}

// Find returns the AVD whose name matches exactly.
func (m *Manager) Find(ctx context.Context, name string) (AVD, bool, error) {
	avds, err := m.ListAVDs(ctx)
	if err != nil {
		return AVD{}, false, err
	}
	for _, a := range avds {
		if a.Name == name {
			return a, true, nil
		}
	}
	return AVD{}, false, nil
}

// Create creates a named AVD on the best matching installed system
// image. Creation failures are surfaced directly, never retried.
func (m *Manager) Create(ctx context.Context, name string) (AVD, error) {
	catalog, err := m.Packages(ctx)
	if err != nil {
		return AVD{}, err
	}
	image, ok := BestSystemImage(catalog,
		m.cfg.Android.MinAPILevel,
		m.cfg.Android.PreferredImageTag,
		m.cfg.Android.PreferredABI,
	)
	if !ok {
		return AVD{}, &mp_err.UnsupportedEnvironmentError{
			Requirement: "emulator system image",
			Detail: fmt.Sprintf("no %s/%s image at API level %d or newer is installed",
				m.cfg.Android.PreferredImageTag, m.cfg.Android.PreferredABI, m.cfg.Android.MinAPILevel),
		}
	}

	m.log.Info("Creating AVD",
		zap.String("name", name),
		zap.String("image", image.Entry.Path),
		zap.String("device", m.cfg.Android.DefaultDevice),
	)
	if _, err := m.run.Run(ctx, execute.Options{
		Command: m.avdManagerBin(),
		Args: []string{"create", "avd",
			"--name", name,
			"--package", image.Entry.Path,
			"--device", m.cfg.Android.DefaultDevice,
		},
		Timeout: 2 * time.Minute,
	}); err != nil {
		return AVD{}, &mp_err.DeviceCreationError{Name: name, Cause: err}
	}
	return AVD{Name: name, Device: m.cfg.Android.DefaultDevice}, nil
}

// FindOrCreate returns the named AVD, creating it when missing.
func (m *Manager) FindOrCreate(ctx context.Context, name string) (AVD, error) {
	avd, found, err := m.Find(ctx, name)
	if err != nil {
		return AVD{}, err
	}
	if found {
		return avd, nil
	}
	return m.Create(ctx, name)
}

// NextAvailablePort reads the currently running emulator instances and
// returns the lowest free control port in the configured range. The
// observation is made immediately before use; the remaining TOCTOU
// window is accepted as best-effort.
func (m *Manager) NextAvailablePort(ctx context.Context) (int, error) {
	used, err := m.usedPorts(ctx)
	if err != nil {
		return 0, err
	}
	return NextFreePort(used, m.cfg.Android.PortRangeStart, m.cfg.Android.PortRangeEnd)
}

// Start launches the emulator detached on the requested control port.
// The emulator may silently pick another port when the requested one is
// contended; ResolvePort afterwards reports the port actually bound.
func (m *Manager) Start(ctx context.Context, avdName string, port int) error {
	m.log.Info("Starting emulator",
		zap.String("avd", avdName),
		zap.Int("requested_port", port),
	)
	return m.run.StartDetached(ctx, execute.Options{
		Command: m.emulatorBin(),
		Args:    []string{"-avd", avdName, "-port", strconv.Itoa(port)},
	})
}

// ResolvePort asks each running emulator instance for its AVD name and
// returns the control port of the one running avdName. The
// process-reported port is trusted over the requested one; when the
// instance is not visible yet the requested port is returned as-is.
func (m *Manager) ResolvePort(ctx context.Context, avdName string, requested int) (int, error) {
	used, err := m.usedPorts(ctx)
	if err != nil {
		return requested, err
	}
	for port := range used {
		out, err := m.run.Run(ctx, execute.Options{
			Command: m.adbBin(),
			Args:    []string{"-s", SerialForPort(port), "emu", "avd", "name"},
			Capture: true,
		})
		if err != nil {
			continue
		}
		name, _, _ := strings.Cut(out, "\n")
		if strings.TrimSpace(name) == avdName {
			if port != requested {
				m.log.Info("Emulator reported a different control port",
					zap.Int("requested", requested),
					zap.Int("actual", port),
				)
			}
			return port, nil
		}
	}
	return requested, nil
}

// WaitForBoot polls sys.boot_completed at a fixed interval until the
// device reports 1 or the attempt budget is exhausted. An
// already-booted device short-circuits on the first poll.
func (m *Manager) WaitForBoot(ctx context.Context, serial string) error {
	interval := m.cfg.Boot.PollInterval
	attempts := m.cfg.Boot.MaxAttempts
	start := time.Now()

	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := m.run.Run(ctx, execute.Options{
			Command: m.adbBin(),
			Args:    []string{"-s", serial, "shell", "getprop", "sys.boot_completed"},
			Capture: true,
		})
		// adb errors while the emulator is still coming up are part of
		// the normal boot sequence; keep polling inside the budget.
		if err == nil && strings.TrimSpace(out) == "1" {
			m.log.Info("Emulator booted",
				zap.String("serial", serial),
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
		Device:   serial,
		Attempts: attempts,
		Elapsed:  time.Since(start),
	}
}

// Stop kills a running emulator instance. Stopping is an explicit
// operation, never an automatic cleanup of a failed launch.
func (m *Manager) Stop(ctx context.Context, serial string) error {
	if _, err := m.run.Run(ctx, execute.Options{
		Command: m.adbBin(),
		Args:    []string{"-s", serial, "emu", "kill"},
	}); err != nil {
		return cerr.Wrapf(err, "failed to stop emulator %s", serial)
	}
	return nil
}

// Launch hands a booted emulator off to the preview target.
func (m *Manager) Launch(ctx context.Context, serial string, spec device.LaunchSpec) error {
	switch spec.Kind {
	case device.TargetApp:
		return m.launchApp(ctx, serial, spec)
	default:
		return m.launchBrowser(ctx, serial, spec)
	}
}

// launchBrowser opens the preview URL in the emulator's browser via an
// intent. The emulator reaches the host dev server through 10.0.2.2,
// not localhost.
func (m *Manager) launchBrowser(ctx context.Context, serial string, spec device.LaunchSpec) error {
	previewURL := fmt.Sprintf("http://%s:%d/preview/%s",
		emulatorLoopbackHost, spec.ServerPort, url.PathEscape(spec.Component))

	m.log.Info("Opening preview in emulator browser",
		zap.String("serial", serial),
		zap.String("url", previewURL),
	)
	if _, err := m.run.Run(ctx, execute.Options{
		Command: m.adbBin(),
		Args: []string{"-s", serial, "shell", "am", "start",
			"-a", "android.intent.action.VIEW",
			"-d", previewURL,
		},
	}); err != nil {
		return &mp_err.LaunchError{Target: spec.Component, Cause: err}
	}
	return nil
}

// launchApp installs the app when it is not on the device yet, then
// starts its preview activity with the launch arguments as extras.
func (m *Manager) launchApp(ctx context.Context, serial string, spec device.LaunchSpec) error {
	installed, err := m.appInstalled(ctx, serial, spec.AppID)
	if err != nil {
		return err
	}
	if !installed {
		if spec.AppPath == "" {
			return &mp_err.LaunchError{
				Target: spec.AppID,
				Cause:  cerr.Newf("app %s is not installed and no APK was supplied", spec.AppID),
			}
		}
		if _, err := m.run.Run(ctx, execute.Options{
			Command: m.adbBin(),
			Args:    []string{"-s", serial, "install", "-r", spec.AppPath},
			Timeout: 5 * time.Minute,
		}); err != nil {
			return &mp_err.LaunchError{Target: spec.AppID, Cause: err}
		}
	}

	args := []string{"-s", serial, "shell", "am", "start",
		"-S", "-n", spec.AppID + "/.PreviewActivity",
		"--es", "componentName", spec.Component,
		"--es", "projectDir", spec.ProjectDir,
	}
	if spec.ServerPort > 0 {
		args = append(args,
			"--es", "serverAddress", "http://"+emulatorLoopbackHost,
			"--es", "serverPort", strconv.Itoa(spec.ServerPort),
		)
	}

	m.log.Info("Launching preview app in emulator",
		zap.String("serial", serial),
		zap.String("app", spec.AppID),
	)
	if _, err := m.run.Run(ctx, execute.Options{
		Command: m.adbBin(),
		Args:    args,
	}); err != nil {
		return &mp_err.LaunchError{Target: spec.AppID, Cause: err}
	}
	return nil
}

func (m *Manager) appInstalled(ctx context.Context, serial, appID string) (bool, error) {
	out, err := m.run.Run(ctx, execute.Options{
		Command: m.adbBin(),
		Args:    []string{"-s", serial, "shell", "pm", "list", "packages", appID},
		Capture: true,
	})
	if err != nil {
		return false, cerr.Wrapf(err, "failed to query packages on %s", serial)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "package:"+appID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Manager) usedPorts(ctx context.Context) (map[int]bool, error) {
	out, err := m.run.Run(ctx, execute.Options{
		Command: m.adbBin(),
		Args:    []string{"devices"},
		Capture: true,
	})
	if err != nil {
		return nil, cerr.Wrap(err, "failed to list adb devices")
	}
	return ParseUsedPorts(out), nil
}
