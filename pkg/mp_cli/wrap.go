// pkg/mp_cli/wrap.go

// Package mp_cli glues cobra commands to the runtime context: panic
// recovery, span/telemetry lifecycle, structured logging, and flag
// plumbing.
package mp_cli

import (
	"context"

	"github.com/fernwave/mobiprev/pkg/logger"
	"github.com/fernwave/mobiprev/pkg/mp_io"
	"github.com/spf13/cobra"
)

// Wrap adapts a RuntimeContext-based command body to cobra's RunE,
// adding panic recovery and span finalization.
func Wrap(fn func(rc *mp_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		_ = logger.L()

		rc := mp_io.NewContext(context.Background(), cmd.Name())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		return fn(rc, cmd, args)
	}
}
