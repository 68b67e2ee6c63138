// pkg/emulator/requirements.go

package emulator

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/fernwave/mobiprev/pkg/execute"
	"github.com/fernwave/mobiprev/pkg/mp_err"
	"github.com/fernwave/mobiprev/pkg/reqs"
	"github.com/hashicorp/go-version"
)

var sdkManagerVersionPattern = regexp.MustCompile(`\d+(\.\d+)+`)

// Requirements returns the Android environment checks. Each check owns
// exactly one concern.
func (m *Manager) Requirements() []reqs.Requirement {
	return []reqs.Requirement{
		{
			Title:        "Android SDK root",
			Check:        m.checkSDKRoot,
			Supplemental: "Install the Android SDK and set ANDROID_HOME.",
		},
		{
			Title:        "Android command line tools",
			Check:        m.checkCommandLineTools,
			Supplemental: "Install the latest command-line tools via the SDK manager.",
		},
		{
			Title:        "Emulator system image",
			Check:        m.checkSystemImage,
			Supplemental: "Install a matching system image, e.g.: sdkmanager \"system-images;android-30;google_apis;x86_64\"",
		},
	}
}

func (m *Manager) checkSDKRoot(ctx context.Context) (string, error) {
	if m.sdkRoot == "" {
		return "", &mp_err.ToolchainMissingError{
			Tool:   "Android SDK",
			Remedy: "Set ANDROID_HOME or ANDROID_SDK_ROOT to the SDK location.",
		}
	}
	if info, err := os.Stat(m.sdkRoot); err != nil || !info.IsDir() {
		return "", &mp_err.UnsupportedEnvironmentError{
			Requirement: "Android SDK root",
			Detail:      fmt.Sprintf("%s does not exist or is not a directory", m.sdkRoot),
		}
	}
	return fmt.Sprintf("SDK root at %s", m.sdkRoot), nil
}

func (m *Manager) checkCommandLineTools(ctx context.Context) (string, error) {
	out, err := m.run.Run(ctx, execute.Options{
		Command: m.sdkManagerBin(),
		Args:    []string{"--version"},
		Capture: true,
	})
	if err != nil {
		return "", &mp_err.ToolchainMissingError{
			Tool:   "sdkmanager",
			Remedy: "Install the Android SDK command-line tools.",
		}
	}

	raw := sdkManagerVersionPattern.FindString(strings.TrimSpace(out))
	if raw == "" {
		return "", &mp_err.UnsupportedEnvironmentError{
			Requirement: "Android command line tools",
			Detail:      fmt.Sprintf("could not parse sdkmanager version from %q", strings.TrimSpace(out)),
		}
	}
	tools, err := version.NewVersion(raw)
	if err != nil {
		return "", &mp_err.UnsupportedEnvironmentError{
			Requirement: "Android command line tools",
			Detail:      fmt.Sprintf("unparsable sdkmanager version %q", raw),
		}
	}
	minimum, err := version.NewVersion(m.cfg.Android.MinSDKToolsVersion)
	if err != nil {
		return "", &mp_err.UnsupportedEnvironmentError{
			Requirement: "Android command line tools",
			Detail:      fmt.Sprintf("invalid configured minimum %q", m.cfg.Android.MinSDKToolsVersion),
		}
	}
	if tools.LessThan(minimum) {
		return "", &mp_err.UnsupportedEnvironmentError{
			Requirement: "Android command line tools",
			Detail:      fmt.Sprintf("found %s, need %s or newer", tools, minimum),
		}
	}
	return fmt.Sprintf("sdkmanager %s detected", tools), nil
}

func (m *Manager) checkSystemImage(ctx context.Context) (string, error) {
	catalog, err := m.Packages(ctx)
	if err != nil {
		return "", err
	}
	image, ok := BestSystemImage(catalog,
		m.cfg.Android.MinAPILevel,
		m.cfg.Android.PreferredImageTag,
		m.cfg.Android.PreferredABI,
	)
	if !ok {
		return "", &mp_err.UnsupportedEnvironmentError{
			Requirement: "emulator system image",
			Detail: fmt.Sprintf("no %s/%s image at API level %d or newer is installed",
				m.cfg.Android.PreferredImageTag, m.cfg.Android.PreferredABI, m.cfg.Android.MinAPILevel),
		}
	}
	return fmt.Sprintf("Using %s", image.Entry.Path), nil
}
