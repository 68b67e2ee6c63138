// pkg/emulator/avd.go

package emulator

import (
	"strings"
)

// AVD is one named, persisted Android virtual device configuration as
// reported by `avdmanager list avd`.
type AVD struct {
	Name   string
	Device string
	Path   string
	Target string
	Skin   string
	Sdcard string
}

// ParseAVDList parses avdmanager's record-per-device text: one
// "Field: value" line per field, records separated by a line of dashes.
// Unknown fields are ignored, values are trimmed, and output with no
// field delimiter at all yields an empty result rather than an error.
func ParseAVDList(raw string) []AVD {
	var avds []AVD
	var cur AVD

	flush := func() {
		if cur.Name != "" {
			avds = append(avds, cur)
		}
		cur = AVD{}
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isDashLine(line) {
			flush()
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Name":
			// A Name line starts a new record even without a separator.
			if cur.Name != "" {
				flush()
			}
			cur.Name = value
		case "Device":
			cur.Device = value
		case "Path":
			cur.Path = value
		case "Target":
			cur.Target = value
		case "Skin":
			cur.Skin = value
		case "Sdcard":
			cur.Sdcard = value
		}
	}
	flush()
	return avds
}

func isDashLine(line string) bool {
	return line != "" && strings.Trim(line, "-") == ""
}
