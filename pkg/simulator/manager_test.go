// pkg/simulator/manager_test.go

package simulator

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

func argsContain(opts execute.Options, sub string) bool {
	return strings.Contains(strings.Join(opts.Args, " "), sub)
}

func testSettings() *config.Settings {
	s := config.Defaults()
	s.Boot.PollInterval = time.Millisecond
	s.Boot.MaxAttempts = 3
	return &s
}

func newTestManager(t *testing.T, handle func(opts execute.Options) (execute.Result, error)) (*Manager, *fakeRunner) {
	t.Helper()
	run := &fakeRunner{handle: handle}
	m, err := NewManager(run, testSettings(), zap.NewNop())
	require.NoError(t, err)
	return m, run
}

func TestFindMatchesExactName(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, func(opts execute.Options) (execute.Result, error) {
		return execute.Result{Stdout: deviceListFixture}, nil
	})

	d, found, err := m.Find(context.Background(), "iPhone 15")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "BBBB-2222", d.UDID)

	_, found, err = m.Find(context.Background(), "iPhone")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBootAlreadyBootedShortCircuits(t *testing.T) {
	t.Parallel()

	m, run := newTestManager(t, func(opts execute.Options) (execute.Result, error) {
		if argsContain(opts, "boot") {
			return execute.Result{
				Stderr:   "An error was encountered processing the command: Unable to boot device in current state: Booted",
				ExitCode: 149,
			}, cerr.New("exit status 149")
		}
		return execute.Result{Stdout: deviceListFixture}, nil
	})

	err := m.Boot(context.Background(), "BBBB-2222", false)
	require.NoError(t, err)
	assert.Equal(t, 1, run.callCount())
}

func TestBootWaitSucceedsOnceBooted(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, func(opts execute.Options) (execute.Result, error) {
		return execute.Result{Stdout: deviceListFixture}, nil
	})

	// BBBB-2222 reports Booted in the fixture, so the first poll wins.
	err := m.Boot(context.Background(), "BBBB-2222", true)
	require.NoError(t, err)
}

func TestBootWaitTimesOutAgainstNeverBootedDevice(t *testing.T) {
	t.Parallel()

	m, run := newTestManager(t, func(opts execute.Options) (execute.Result, error) {
		return execute.Result{Stdout: deviceListFixture}, nil
	})

	// AAAA-1111 stays Shutdown forever; the poll loop must terminate
	// within its attempt budget instead of hanging.
	err := m.Boot(context.Background(), "AAAA-1111", true)
	require.Error(t, err)

	var timeout *mp_err.BootTimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, 3, timeout.Attempts)

	// One boot call plus at most MaxAttempts polls.
	assert.LessOrEqual(t, run.callCount(), 1+3)
}

func TestBootWaitHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	m, _ := newTestManager(t, func(opts execute.Options) (execute.Result, error) {
		return execute.Result{Stdout: deviceListFixture}, nil
	})
	cancel()

	err := m.Boot(ctx, "AAAA-1111", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFindOrCreateCreatesWhenMissing(t *testing.T) {
	t.Parallel()

	m, run := newTestManager(t, func(opts execute.Options) (execute.Result, error) {
		switch {
		case argsContain(opts, "list devices"):
			return execute.Result{Stdout: `{"devices": {}}`}, nil
		case argsContain(opts, "list runtimes"):
			return execute.Result{Stdout: runtimeListFixture}, nil
		case argsContain(opts, "create"):
			return execute.Result{Stdout: "EEEE-5555\n"}, nil
		default:
			return execute.Result{}, cerr.Newf("unexpected command: %v", opts.Args)
		}
	})

	d, err := m.FindOrCreate(context.Background(), "mobiprev-sim")
	require.NoError(t, err)
	assert.Equal(t, "EEEE-5555", d.UDID)
	assert.Equal(t, "iOS 17.5", d.Runtime)
	assert.Equal(t, device.StateShutdown, d.State)

	var createCall *execute.Options
	for i := range run.calls {
		if argsContain(run.calls[i], "create") {
			createCall = &run.calls[i]
		}
	}
	require.NotNil(t, createCall)
	// Created on the newest supported runtime with the default profile.
	assert.Contains(t, createCall.Args, "com.apple.CoreSimulator.SimRuntime.iOS-17-5")
	assert.Contains(t, createCall.Args, "iPhone 15")
}

func TestFindOrCreateSurfacesCreationFailure(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, func(opts execute.Options) (execute.Result, error) {
		switch {
		case argsContain(opts, "list devices"):
			return execute.Result{Stdout: `{"devices": {}}`}, nil
		case argsContain(opts, "list runtimes"):
			return execute.Result{Stdout: runtimeListFixture}, nil
		default:
			return execute.Result{Stderr: "Invalid device type"}, cerr.New("exit status 161")
		}
	})

	_, err := m.FindOrCreate(context.Background(), "mobiprev-sim")
	require.Error(t, err)

	var creation *mp_err.DeviceCreationError
	assert.True(t, errors.As(err, &creation))
}

func TestLaunchBrowserUsesLocalhost(t *testing.T) {
	t.Parallel()

	m, run := newTestManager(t, func(opts execute.Options) (execute.Result, error) {
		return execute.Result{}, nil
	})

	err := m.Launch(context.Background(), "BBBB-2222", device.LaunchSpec{
		Kind:       device.TargetBrowser,
		Component:  "hello-world",
		ServerPort: 3333,
	})
	require.NoError(t, err)

	require.Len(t, run.calls, 1)
	assert.Contains(t, run.calls[0].Args, "openurl")
	assert.Contains(t, run.calls[0].Args, "http://localhost:3333/preview/hello-world")
	assert.Empty(t, run.detached)
}

func TestLaunchBrowserFailureIsLaunchError(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, func(opts execute.Options) (execute.Result, error) {
		return execute.Result{
			Stderr:   "Invalid device: BBBB-2222",
			ExitCode: 164,
		}, cerr.New("exit status 164")
	})

	err := m.Launch(context.Background(), "BBBB-2222", device.LaunchSpec{
		Kind:       device.TargetBrowser,
		Component:  "hello-world",
		ServerPort: 3333,
	})
	require.Error(t, err)

	var launchErr *mp_err.LaunchError
	require.True(t, errors.As(err, &launchErr))
	assert.Equal(t, "hello-world", launchErr.Target)
}

func TestLaunchAppInstallsThenLaunches(t *testing.T) {
	t.Parallel()

	m, run := newTestManager(t, func(opts execute.Options) (execute.Result, error) {
		return execute.Result{}, nil
	})

	err := m.Launch(context.Background(), "BBBB-2222", device.LaunchSpec{
		Kind:       device.TargetApp,
		Component:  "hello-world",
		ProjectDir: "/tmp/project",
		ServerPort: 3333,
		AppID:      "com.example.preview",
		AppPath:    "/tmp/Preview.app",
	})
	require.NoError(t, err)

	require.Len(t, run.calls, 2)
	assert.Contains(t, run.calls[0].Args, "install")
	assert.Contains(t, run.calls[1].Args, "launch")
	assert.Contains(t, run.calls[1].Args, "com.example.preview")
	assert.Contains(t, run.calls[1].Args, "-ServerPort")
	assert.Contains(t, run.calls[1].Args, "3333")
}
