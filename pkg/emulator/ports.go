// pkg/emulator/ports.go

package emulator

import (
	"strconv"
	"strings"

	cerr "github.com/cockroachdb/errors"
)

// emulatorSerialPrefix is how adb names emulator instances; the number
// after the dash is the instance's control port.
const emulatorSerialPrefix = "emulator-"

// ErrNoFreePort is returned when every candidate control port in the
// configured range is taken by a running emulator.
var ErrNoFreePort = cerr.New("no free emulator control port in range")

// ParseUsedPorts extracts the control ports of running emulators from
// `adb devices` output. Lines that are not emulator serials (headers,
// USB devices) are skipped.
func ParseUsedPorts(adbDevicesOut string) map[int]bool {
	used := make(map[int]bool)
	for _, line := range strings.Split(adbDevicesOut, "\n") {
		serial := strings.Fields(strings.TrimSpace(line))
		if len(serial) == 0 {
			continue
		}
		if port, ok := portFromSerial(serial[0]); ok {
			used[port] = true
		}
	}
	return used
}

// NextFreePort returns the lowest even candidate port in [start, end]
// not present in used. Emulator control ports are always even; the odd
// neighbor is the console's adb port.
//
// There is an inherent race between observing a port free and the
// emulator binding it; callers must treat the allocation as best-effort
// and trust the port the emulator actually reports once running.
func NextFreePort(used map[int]bool, start, end int) (int, error) {
	if start%2 != 0 {
		start++
	}
	for port := start; port <= end; port += 2 {
		if !used[port] {
			return port, nil
		}
	}
	return 0, ErrNoFreePort
}

// portFromSerial extracts the control port from an emulator serial such
// as "emulator-5554".
func portFromSerial(serial string) (int, bool) {
	if !strings.HasPrefix(serial, emulatorSerialPrefix) {
		return 0, false
	}
	port, err := strconv.Atoi(strings.TrimPrefix(serial, emulatorSerialPrefix))
	if err != nil {
		return 0, false
	}
	return port, true
}

// SerialForPort renders the adb serial for a control port.
func SerialForPort(port int) string {
	return emulatorSerialPrefix + strconv.Itoa(port)
}
