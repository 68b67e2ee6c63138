// pkg/simulator/simctl.go

// Package simulator orchestrates iOS simulators through xcrun simctl:
// discovery, find-or-create, boot with bounded polling, and preview
// launch into the system browser or a named native app.
package simulator

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/fernwave/mobiprev/pkg/device"
	"github.com/fernwave/mobiprev/pkg/mp_err"
)

// RuntimePrefix is the key prefix simctl uses for runtime identifiers.
const RuntimePrefix = "com.apple.CoreSimulator.SimRuntime."

// simctlDevice matches one entry of `xcrun simctl list devices --json`.
type simctlDevice struct {
	Name                 string `json:"name"`
	UDID                 string `json:"udid"`
	State                string `json:"state"`
	IsAvailable          bool   `json:"isAvailable"`
	DeviceTypeIdentifier string `json:"deviceTypeIdentifier"`
}

// simctlDeviceList matches the top-level device list payload, keyed by
// runtime identifier.
type simctlDeviceList struct {
	Devices map[string][]simctlDevice `json:"devices"`
}

// simctlRuntime matches one entry of `xcrun simctl list runtimes --json`.
type simctlRuntime struct {
	Identifier  string `json:"identifier"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	IsAvailable bool   `json:"isAvailable"`
}

type simctlRuntimeList struct {
	Runtimes []simctlRuntime `json:"runtimes"`
}

// ParseDeviceList converts raw simctl JSON into descriptors. Runtime
// keys are filtered to those whose SimRuntime.<ID> suffix matches the
// supported pattern, then sorted in descending lexical order so the
// newest-looking runtime comes first (an approximation of a version
// sort, kept as-is), and devices are flattened in that key order.
//
// Malformed JSON fails with a ParseError; an absent devices key yields
// an empty list, not an error.
func ParseDeviceList(raw []byte, supported *regexp.Regexp) ([]device.Descriptor, error) {
	var list simctlDeviceList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &mp_err.ParseError{Source: "simctl device list", Cause: err}
	}
	if len(list.Devices) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(list.Devices))
	for key := range list.Devices {
		id, ok := runtimeID(key)
		if !ok {
			continue
		}
		if supported != nil && !supported.MatchString(id) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	var out []device.Descriptor
	for _, key := range keys {
		label := RuntimeLabel(key)
		for _, d := range list.Devices[key] {
			out = append(out, device.Descriptor{
				Name:      d.Name,
				UDID:      d.UDID,
				State:     mapState(d.State),
				Runtime:   label,
				Available: d.IsAvailable,
			})
		}
	}
	return out, nil
}

// ParseRuntimeList converts `simctl list runtimes --json` output into
// runtime records, filtered to available runtimes whose identifier
// suffix matches the supported pattern, newest-looking first.
func ParseRuntimeList(raw []byte, supported *regexp.Regexp) ([]Runtime, error) {
	var list simctlRuntimeList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &mp_err.ParseError{Source: "simctl runtime list", Cause: err}
	}

	var out []Runtime
	for _, rt := range list.Runtimes {
		if !rt.IsAvailable {
			continue
		}
		id, ok := runtimeID(rt.Identifier)
		if !ok {
			continue
		}
		if supported != nil && !supported.MatchString(id) {
			continue
		}
		out = append(out, Runtime{
			Identifier: rt.Identifier,
			Name:       rt.Name,
			Version:    rt.Version,
			Label:      RuntimeLabel(rt.Identifier),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identifier > out[j].Identifier
	})
	return out, nil
}

// Runtime is one installed simulator runtime.
type Runtime struct {
	Identifier string // com.apple.CoreSimulator.SimRuntime.iOS-17-5
	Name       string // iOS 17.5
	Version    string // 17.5
	Label      string // derived from the identifier, e.g. "iOS 17.5"
}

// RuntimeLabel derives the human-readable runtime label from a simctl
// runtime identifier: the prefix is stripped, the first dash becomes a
// space and the remaining dashes become dots, so "iOS-17-5" reads
// "iOS 17.5".
func RuntimeLabel(identifier string) string {
	id, ok := runtimeID(identifier)
	if !ok {
		id = identifier
	}
	parts := strings.SplitN(id, "-", 2)
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + " " + strings.ReplaceAll(parts[1], "-", ".")
}

// runtimeID extracts the <ID> suffix of a SimRuntime key.
func runtimeID(key string) (string, bool) {
	if !strings.HasPrefix(key, RuntimePrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, RuntimePrefix), true
}

func mapState(s string) device.State {
	switch strings.ToLower(s) {
	case "booted":
		return device.StateBooted
	case "booting":
		return device.StateBooting
	case "shutdown":
		return device.StateShutdown
	case "creating":
		return device.StateCreating
	default:
		return device.StateUnknown
	}
}
