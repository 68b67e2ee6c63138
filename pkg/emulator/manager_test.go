// pkg/emulator/manager_test.go

package emulator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/fernwave/mobiprev/pkg/config"
	"github.com/fernwave/mobiprev/pkg/device"
	"github.com/fernwave/mobiprev/pkg/execute"
	"github.com/fernwave/mobiprev/pkg/mp_err"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRunner serves canned results instead of spawning processes.
type fakeRunner struct {
	mu       sync.Mutex
	handle   func(opts execute.Options) (execute.Result, error)
	detached []execute.Options
	calls    []execute.Options
}

func (f *fakeRunner) RunResult(_ context.Context, opts execute.Options) (execute.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.mu.Unlock()
	return f.handle(opts)
}

func (f *fakeRunner) Run(ctx context.Context, opts execute.Options) (string, error) {
	res, err := f.RunResult(ctx, opts)
	if err != nil {
		return res.Stdout + res.Stderr, err
	}
	if opts.Capture {
		return res.Stdout, nil
	}
	return "", nil
}

func (f *fakeRunner) StartDetached(_ context.Context, opts execute.Options) error {
	f.mu.Lock()
	f.detached = append(f.detached, opts)
	f.mu.Unlock()
	return nil
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func joinedArgs(opts execute.Options) string {
	return strings.Join(opts.Args, " ")
}

func testSettings() *config.Settings {
	s := config.Defaults()
	s.Boot.PollInterval = time.Millisecond
	s.Boot.MaxAttempts = 3
	return &s
}

func newTestManager(handle func(opts execute.Options) (execute.Result, error)) (*Manager, *fakeRunner) {
	run := &fakeRunner{handle: handle}
	m := NewManager(run, testSettings(), zap.NewNop())
	return m, run
}

const adbDevicesBusy = `List of devices attached
emulator-5554	device
emulator-5556	device
`

func TestNextAvailablePortSkipsBusy(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(func(opts execute.Options) (execute.Result, error) {
		return execute.Result{Stdout: adbDevicesBusy}, nil
	})

	port, err := m.NextAvailablePort(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5558, port)
}

func TestFindOrCreateCreatesOnBestImage(t *testing.T) {
	t.Parallel()

	m, run := newTestManager(func(opts execute.Options) (execute.Result, error) {
		switch {
		case strings.HasSuffix(opts.Command, "sdkmanager"):
			return execute.Result{Stdout: sdkListFixture}, nil
		case joinedArgs(opts) == "list avd":
			return execute.Result{Stdout: ""}, nil
		default:
			return execute.Result{}, nil
		}
	})

	avd, err := m.FindOrCreate(context.Background(), "mobiprev-avd")
	require.NoError(t, err)
	assert.Equal(t, "mobiprev-avd", avd.Name)

	var created string
	for _, call := range run.calls {
		if strings.HasPrefix(joinedArgs(call), "create avd") {
			created = joinedArgs(call)
		}
	}
	require.NotEmpty(t, created, "expected an avdmanager create call")
	assert.Contains(t, created, "--name mobiprev-avd")
	// The codename image counts as newest among installed images.
	assert.Contains(t, created, "--package system-images;android-Tiramisu;google_apis;x86_64")
	assert.Contains(t, created, "--device pixel_5")
}

func TestFindOrCreateReturnsExisting(t *testing.T) {
	t.Parallel()

	m, run := newTestManager(func(opts execute.Options) (execute.Result, error) {
		return execute.Result{Stdout: avdListFixture}, nil
	})

	avd, err := m.FindOrCreate(context.Background(), "Pixel_5_API_30")
	require.NoError(t, err)
	assert.Equal(t, "pixel_5 (Google)", avd.Device)
	assert.Equal(t, 1, run.callCount())
}

func TestCreateFailureSurfacesDirectly(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(func(opts execute.Options) (execute.Result, error) {
		if strings.HasSuffix(opts.Command, "sdkmanager") {
			return execute.Result{Stdout: sdkListFixture}, nil
		}
		return execute.Result{ExitCode: 1}, cerr.New("Error: Package path is not valid")
	})

	_, err := m.Create(context.Background(), "broken")
	require.Error(t, err)

	var creationErr *mp_err.DeviceCreationError
	require.True(t, errors.As(err, &creationErr))
	assert.Equal(t, "broken", creationErr.Name)
}

func TestStartDetachesEmulator(t *testing.T) {
	t.Parallel()

	m, run := newTestManager(func(opts execute.Options) (execute.Result, error) {
		return execute.Result{}, nil
	})

	require.NoError(t, m.Start(context.Background(), "mobiprev-avd", 5558))
	require.Len(t, run.detached, 1)
	assert.Equal(t, "-avd mobiprev-avd -port 5558", joinedArgs(run.detached[0]))
	assert.Zero(t, run.callCount())
}

func TestResolvePortTrustsProcessReport(t *testing.T) {
	t.Parallel()

	// The emulator was asked to use 5558 but actually bound 5556.
	m, _ := newTestManager(func(opts execute.Options) (execute.Result, error) {
		args := joinedArgs(opts)
		switch {
		case args == "devices":
			return execute.Result{Stdout: adbDevicesBusy}, nil
		case strings.Contains(args, "emulator-5554"):
			return execute.Result{Stdout: "other-avd\nOK\n"}, nil
		case strings.Contains(args, "emulator-5556"):
			return execute.Result{Stdout: "mobiprev-avd\nOK\n"}, nil
		default:
			return execute.Result{}, nil
		}
	})

	port, err := m.ResolvePort(context.Background(), "mobiprev-avd", 5558)
	require.NoError(t, err)
	assert.Equal(t, 5556, port)
}

func TestResolvePortFallsBackToRequested(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(func(opts execute.Options) (execute.Result, error) {
		if joinedArgs(opts) == "devices" {
			return execute.Result{Stdout: "List of devices attached\n"}, nil
		}
		return execute.Result{}, nil
	})

	port, err := m.ResolvePort(context.Background(), "mobiprev-avd", 5558)
	require.NoError(t, err)
	assert.Equal(t, 5558, port)
}

func TestWaitForBootPollsUntilComplete(t *testing.T) {
	t.Parallel()

	var polls int
	m, _ := newTestManager(func(opts execute.Options) (execute.Result, error) {
		polls++
		if polls < 3 {
			// adb is not reachable while the emulator is coming up.
			return execute.Result{ExitCode: 1}, cerr.New("device offline")
		}
		return execute.Result{Stdout: "1\n"}, nil
	})

	require.NoError(t, m.WaitForBoot(context.Background(), "emulator-5554"))
	assert.Equal(t, 3, polls)
}

func TestWaitForBootTimesOut(t *testing.T) {
	t.Parallel()

	m, run := newTestManager(func(opts execute.Options) (execute.Result, error) {
		return execute.Result{Stdout: "0\n"}, nil
	})

	err := m.WaitForBoot(context.Background(), "emulator-5554")
	require.Error(t, err)

	var timeoutErr *mp_err.BootTimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, 3, timeoutErr.Attempts)
	assert.Equal(t, 3, run.callCount())
}

func TestWaitForBootHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	m, _ := newTestManager(func(opts execute.Options) (execute.Result, error) {
		cancel()
		return execute.Result{Stdout: "0\n"}, nil
	})

	err := m.WaitForBoot(ctx, "emulator-5554")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLaunchBrowserUsesEmulatorLoopback(t *testing.T) {
	t.Parallel()

	m, run := newTestManager(func(opts execute.Options) (execute.Result, error) {
		return execute.Result{}, nil
	})

	err := m.Launch(context.Background(), "emulator-5554", device.LaunchSpec{
		Kind:       device.TargetBrowser,
		Component:  "hello-world",
		ServerPort: 3333,
	})
	require.NoError(t, err)
	require.Equal(t, 1, run.callCount())
	assert.Contains(t, joinedArgs(run.calls[0]), "android.intent.action.VIEW")
	assert.Contains(t, joinedArgs(run.calls[0]), "http://10.0.2.2:3333/preview/hello-world")
}

func TestLaunchAppInstallsWhenMissing(t *testing.T) {
	t.Parallel()

	m, run := newTestManager(func(opts execute.Options) (execute.Result, error) {
		if strings.Contains(joinedArgs(opts), "pm list packages") {
			return execute.Result{Stdout: ""}, nil
		}
		return execute.Result{}, nil
	})

	err := m.Launch(context.Background(), "emulator-5554", device.LaunchSpec{
		Kind:       device.TargetApp,
		Component:  "hello-world",
		ProjectDir: "/work/app",
		ServerPort: 3333,
		AppID:      "com.fernwave.preview",
		AppPath:    "/work/app/preview.apk",
	})
	require.NoError(t, err)
	require.Equal(t, 3, run.callCount())

	assert.Contains(t, joinedArgs(run.calls[1]), "install -r /work/app/preview.apk")

	launch := joinedArgs(run.calls[2])
	assert.Contains(t, launch, "-n com.fernwave.preview/.PreviewActivity")
	assert.Contains(t, launch, "--es componentName hello-world")
	assert.Contains(t, launch, "--es serverAddress http://10.0.2.2")
	assert.Contains(t, launch, "--es serverPort 3333")
}

func TestLaunchAppSkipsInstallWhenPresent(t *testing.T) {
	t.Parallel()

	m, run := newTestManager(func(opts execute.Options) (execute.Result, error) {
		if strings.Contains(joinedArgs(opts), "pm list packages") {
			return execute.Result{Stdout: "package:com.fernwave.preview\n"}, nil
		}
		return execute.Result{}, nil
	})

	err := m.Launch(context.Background(), "emulator-5554", device.LaunchSpec{
		Kind:      device.TargetApp,
		Component: "hello-world",
		AppID:     "com.fernwave.preview",
	})
	require.NoError(t, err)
	require.Equal(t, 2, run.callCount())
	for _, call := range run.calls {
		assert.NotContains(t, joinedArgs(call), "install")
	}
}

func TestLaunchAppMissingWithoutAPK(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(func(opts execute.Options) (execute.Result, error) {
		return execute.Result{Stdout: ""}, nil
	})

	err := m.Launch(context.Background(), "emulator-5554", device.LaunchSpec{
		Kind:      device.TargetApp,
		Component: "hello-world",
		AppID:     "com.fernwave.preview",
	})
	require.Error(t, err)

	var launchErr *mp_err.LaunchError
	require.True(t, errors.As(err, &launchErr))
	assert.Equal(t, "com.fernwave.preview", launchErr.Target)
}
