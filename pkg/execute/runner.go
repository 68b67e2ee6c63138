// pkg/execute/runner.go

package execute

import (
	"context"

	"go.uber.org/zap"
)

// Runner is the narrow process-execution contract the device managers
// and requirement checks consume. Tests substitute a fake that serves
// fixture output instead of spawning processes.
type Runner interface {
	Run(ctx context.Context, opts Options) (string, error)
	RunResult(ctx context.Context, opts Options) (Result, error)
	StartDetached(ctx context.Context, opts Options) error
}

type execRunner struct {
	logger *zap.Logger
}

// NewRunner returns a Runner backed by real process execution. The
// logger is injected at construction, never read from globals.
func NewRunner(logger *zap.Logger) Runner {
	return &execRunner{logger: logger}
}

func (r *execRunner) Run(ctx context.Context, opts Options) (string, error) {
	if opts.Logger == nil {
		opts.Logger = r.logger
	}
	return Run(ctx, opts)
}

func (r *execRunner) RunResult(ctx context.Context, opts Options) (Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.logger
	}
	return RunResult(ctx, opts)
}

func (r *execRunner) StartDetached(ctx context.Context, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = r.logger
	}
	return StartDetached(ctx, opts)
}
