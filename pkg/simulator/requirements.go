// pkg/simulator/requirements.go

package simulator

import (
	"context"
	"fmt"
	"strings"

	"github.com/fernwave/mobiprev/pkg/execute"
	"github.com/fernwave/mobiprev/pkg/mp_err"
	"github.com/fernwave/mobiprev/pkg/reqs"
	"github.com/hashicorp/go-version"
)

// Requirements returns the iOS environment checks. Each check owns
// exactly one concern and turns raw tool output into a fulfilled
// message or a typed failure.
func (m *Manager) Requirements() []reqs.Requirement {
	return []reqs.Requirement{
		{
			Title:        "macOS version",
			Check:        m.checkMacOSVersion,
			Supplemental: fmt.Sprintf("Update macOS to %s or newer.", m.cfg.IOS.MinMacOSVersion),
		},
		{
			Title:        "Xcode command line tools",
			Check:        m.checkXcodeTools,
			Supplemental: "Run: xcode-select --install",
		},
		{
			Title:        "Supported simulator runtime",
			Check:        m.checkSupportedRuntime,
			Supplemental: "Install a current iOS runtime via Xcode > Settings > Platforms.",
		},
	}
}

func (m *Manager) checkMacOSVersion(ctx context.Context) (string, error) {
	out, err := m.run.Run(ctx, execute.Options{
		Command: "sw_vers",
		Args:    []string{"-productVersion"},
		Capture: true,
	})
	if err != nil {
		return "", &mp_err.ToolchainMissingError{
			Tool:   "sw_vers",
			Remedy: "iOS previews require a macOS host.",
		}
	}

	host, err := version.NewVersion(strings.TrimSpace(out))
	if err != nil {
		return "", &mp_err.UnsupportedEnvironmentError{
			Requirement: "macOS version",
			Detail:      fmt.Sprintf("could not parse product version %q", strings.TrimSpace(out)),
		}
	}
	minimum, err := version.NewVersion(m.cfg.IOS.MinMacOSVersion)
	if err != nil {
		return "", &mp_err.UnsupportedEnvironmentError{
			Requirement: "macOS version",
			Detail:      fmt.Sprintf("invalid configured minimum %q", m.cfg.IOS.MinMacOSVersion),
		}
	}
	if host.LessThan(minimum) {
		return "", &mp_err.UnsupportedEnvironmentError{
			Requirement: "macOS version",
			Detail:      fmt.Sprintf("found %s, need %s or newer", host, minimum),
		}
	}
	return fmt.Sprintf("macOS %s detected", host), nil
}

func (m *Manager) checkXcodeTools(ctx context.Context) (string, error) {
	out, err := m.run.Run(ctx, execute.Options{
		Command: "xcode-select",
		Args:    []string{"-p"},
		Capture: true,
	})
	if err != nil || strings.TrimSpace(out) == "" {
		return "", &mp_err.ToolchainMissingError{
			Tool:   "Xcode command line tools",
			Remedy: "Install Xcode and its command line tools.",
		}
	}
	return fmt.Sprintf("Xcode tools at %s", strings.TrimSpace(out)), nil
}

func (m *Manager) checkSupportedRuntime(ctx context.Context) (string, error) {
	runtimes, err := m.Runtimes(ctx)
	if err != nil {
		return "", err
	}
	if len(runtimes) == 0 {
		return "", &mp_err.UnsupportedEnvironmentError{
			Requirement: "simulator runtime",
			Detail:      "no installed iOS runtime matches the supported set",
		}
	}
	labels := make([]string, 0, len(runtimes))
	for _, rt := range runtimes {
		labels = append(labels, rt.Label)
	}
	return "Supported runtimes: " + strings.Join(labels, ", "), nil
}
