// pkg/execute/execute.go

// Package execute runs external toolchain binaries with structured
// logging, telemetry spans and captured output. Shell execution is
// deliberately unsupported; callers pass argv directly.
package execute

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/fernwave/mobiprev/pkg/mp_err"
	"github.com/fernwave/mobiprev/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Options configures a single command invocation.
type Options struct {
	Command string
	Args    []string
	Dir     string
	Env     []string // appended to the inherited environment
	Timeout time.Duration
	Capture bool
	Retries int
	Delay   time.Duration
	DryRun  bool
	Logger  *zap.Logger
}

// Result is the captured outcome of one invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes a command and returns combined output when Capture is set.
// Non-zero exit is returned as an error carrying a summary of the output.
func Run(ctx context.Context, opts Options) (string, error) {
	res, err := RunResult(ctx, opts)
	if err != nil {
		return res.Stdout + res.Stderr, err
	}
	if opts.Capture {
		return res.Stdout, nil
	}
	return "", nil
}

// RunResult executes a command and returns the full result contract
// (stdout, stderr, exit code) regardless of Capture.
func RunResult(ctx context.Context, opts Options) (Result, error) {
	cmdStr := buildCommandString(opts.Command, opts.Args...)

	logger := opts.Logger
	if logger == nil {
		logger = zap.L()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	rc, cancel := context.WithTimeout(ctx, defaultTimeout(opts.Timeout))
	defer cancel()

	rc, span := telemetry.Start(rc, "execute.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("command", opts.Command),
		attribute.String("args", strings.Join(opts.Args, " ")),
	)

	if opts.DryRun {
		logger.Info("Dry run mode - command not executed", zap.String("command", cmdStr))
		return Result{}, nil
	}

	logger.Debug("Starting execution", zap.String("command", cmdStr))

	var res Result
	var err error

	for i := 1; i <= max(1, opts.Retries); i++ {
		cmd := exec.CommandContext(rc, opts.Command, opts.Args...)
		if opts.Dir != "" {
			cmd.Dir = opts.Dir
		}
		if len(opts.Env) > 0 {
			cmd.Env = append(cmd.Environ(), opts.Env...)
		}

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		err = cmd.Run()
		res = Result{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			ExitCode: exitCode(cmd, err),
		}

		if err == nil {
			logger.Debug("Execution succeeded", zap.String("command", cmdStr))
			break
		}

		summary := mp_err.ExtractSummary(res.Stdout+res.Stderr, 2)
		span.RecordError(err)
		logger.Warn("Execution failed",
			zap.Int("attempt", i),
			zap.String("command", cmdStr),
			zap.Int("exit_code", res.ExitCode),
			zap.String("summary", summary),
		)

		if i < opts.Retries {
			time.Sleep(opts.Delay)
		}
	}

	if err != nil {
		return res, cerr.Wrapf(err, "%s failed: %s",
			opts.Command, mp_err.ExtractSummary(res.Stdout+res.Stderr, 2))
	}
	return res, nil
}

// RunSimple executes a command, discarding output.
func RunSimple(ctx context.Context, cmd string, args ...string) error {
	_, err := Run(ctx, Options{
		Command: cmd,
		Args:    args,
	})
	return err
}

// Capture executes a command and returns its stdout.
func Capture(ctx context.Context, cmd string, args ...string) (string, error) {
	return Run(ctx, Options{
		Command: cmd,
		Args:    args,
		Capture: true,
	})
}

// RetryCaptureOutput runs a command up to retries times with a fixed
// delay between attempts, returning captured stdout.
func RetryCaptureOutput(ctx context.Context, retries int, delay time.Duration, cmd string, args ...string) (string, error) {
	return Run(ctx, Options{
		Command: cmd,
		Args:    args,
		Capture: true,
		Retries: retries,
		Delay:   delay,
	})
}

// StartDetached launches a long-lived process (e.g. an emulator) without
// waiting for it. The caller polls the device separately; the process is
// released so it outlives this CLI invocation.
func StartDetached(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.L()
	}
	cmdStr := buildCommandString(opts.Command, opts.Args...)

	cmd := exec.Command(opts.Command, opts.Args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(cmd.Environ(), opts.Env...)
	}

	if err := cmd.Start(); err != nil {
		return cerr.Wrapf(err, "failed to start %s", cmdStr)
	}
	logger.Info("Started detached process",
		zap.String("command", cmdStr),
		zap.Int("pid", cmd.Process.Pid),
	)
	return cmd.Process.Release()
}
