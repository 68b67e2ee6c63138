// pkg/devserver/devserver.go

// Package devserver manages the companion local web server plugin that
// serves component previews to devices. The plugin is an npm package
// installed into the preview project; mobiprev only checks for it and
// installs it on demand, it never runs the server itself.
package devserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/fernwave/mobiprev/pkg/config"
	"github.com/fernwave/mobiprev/pkg/execute"
	"github.com/fernwave/mobiprev/pkg/mp_err"
	"github.com/fernwave/mobiprev/pkg/reqs"
	"go.uber.org/zap"
)

// Manager checks for and installs the dev-server plugin in a project.
type Manager struct {
	run execute.Runner
	cfg *config.Settings
	log *zap.Logger
}

func NewManager(run execute.Runner, cfg *config.Settings, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{run: run, cfg: cfg, log: log}
}

// PluginInstalled reports whether the plugin package is resolvable in
// the project's dependency tree.
func (m *Manager) PluginInstalled(ctx context.Context, projectDir string) (bool, error) {
	res, err := m.run.RunResult(ctx, execute.Options{
		Command: "npm",
		Args:    []string{"list", m.cfg.Server.PluginPackage, "--depth", "0"},
		Dir:     projectDir,
		Capture: true,
	})
	if err != nil {
		// npm exits non-zero when the package is absent; only a missing
		// npm itself is a real failure.
		if strings.Contains(res.Stderr, "not found") || res.ExitCode < 0 {
			return false, &mp_err.ToolchainMissingError{
				Tool:   "npm",
				Remedy: "Install Node.js and npm, then retry.",
			}
		}
		return false, nil
	}
	return strings.Contains(res.Stdout, m.cfg.Server.PluginPackage), nil
}

// InstallPlugin installs the plugin package as a dev dependency of the
// project.
func (m *Manager) InstallPlugin(ctx context.Context, projectDir string) error {
	m.log.Info("Installing dev server plugin",
		zap.String("package", m.cfg.Server.PluginPackage),
		zap.String("project_dir", projectDir),
	)
	if _, err := m.run.Run(ctx, execute.Options{
		Command: "npm",
		Args:    []string{"install", "--save-dev", m.cfg.Server.PluginPackage},
		Dir:     projectDir,
		Timeout: 5 * time.Minute,
	}); err != nil {
		return cerr.Wrapf(err, "failed to install %s", m.cfg.Server.PluginPackage)
	}
	return nil
}

// EnsurePlugin installs the plugin when the project does not have it.
func (m *Manager) EnsurePlugin(ctx context.Context, projectDir string) error {
	installed, err := m.PluginInstalled(ctx, projectDir)
	if err != nil {
		return err
	}
	if installed {
		m.log.Debug("Dev server plugin already installed",
			zap.String("package", m.cfg.Server.PluginPackage))
		return nil
	}
	return m.InstallPlugin(ctx, projectDir)
}

// Requirement wraps the plugin check for the validation engine.
func (m *Manager) Requirement(projectDir string) reqs.Requirement {
	return reqs.Requirement{
		Title: "Dev server plugin installed",
		Check: func(ctx context.Context) (string, error) {
			installed, err := m.PluginInstalled(ctx, projectDir)
			if err != nil {
				return "", err
			}
			if !installed {
				return "", &mp_err.UnsupportedEnvironmentError{
					Requirement: "dev server plugin",
					Detail: fmt.Sprintf("%s is not installed in %s",
						m.cfg.Server.PluginPackage, projectDir),
				}
			}
			return fmt.Sprintf("%s is installed", m.cfg.Server.PluginPackage), nil
		},
		Supplemental: fmt.Sprintf("Run `npm install --save-dev %s` in the project, or rerun setup to install it automatically.",
			m.cfg.Server.PluginPackage),
	}
}
