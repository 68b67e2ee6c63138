// pkg/device/device.go

// Package device holds the platform-neutral vocabulary shared by the
// simulator and emulator orchestrators.
package device

// State is the lifecycle state of a virtual device as reported by the
// platform toolchain.
type State string

const (
	StateUnknown  State = "unknown"
	StateCreating State = "creating"
	StateShutdown State = "shutdown"
	StateBooting  State = "booting"
	StateBooted   State = "booted"
)

// Descriptor is a transient view of one virtual device, parsed from
// discovery output. It mirrors external OS state that outlives this
// process; nothing caches or mutates it across calls.
type Descriptor struct {
	Name      string
	UDID      string
	State     State
	Runtime   string // human-readable runtime or API label, e.g. "iOS 17.5"
	Available bool
}

// IsBooted reports whether the device is currently booted.
func (d Descriptor) IsBooted() bool {
	return d.State == StateBooted
}

// TargetKind selects what the preview opens on the device.
type TargetKind string

const (
	// TargetBrowser previews the component in the device's system browser.
	TargetBrowser TargetKind = "browser"
	// TargetApp previews the component inside a named native app.
	TargetApp TargetKind = "app"
)

// LaunchSpec describes one preview launch. It carries no loopback host:
// the two platforms address the host machine differently, so each
// manager picks its own.
type LaunchSpec struct {
	Kind       TargetKind
	Component  string
	ProjectDir string
	ServerPort int
	AppID      string // bundle id / package id, Kind == TargetApp only
	AppPath    string // local build artifact installed when missing
}
