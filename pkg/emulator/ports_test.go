// pkg/emulator/ports_test.go

package emulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUsedPorts(t *testing.T) {
	t.Parallel()

	out := `List of devices attached
emulator-5554	device
emulator-5558	offline
R58M123ABC	device

`
	used := ParseUsedPorts(out)
	assert.Equal(t, map[int]bool{5554: true, 5558: true}, used)
}

func TestNextFreePort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		used    map[int]bool
		want    int
		wantErr bool
	}{
		{name: "empty range start", used: nil, want: 5554},
		{
			name: "lowest free outside busy set",
			used: map[int]bool{5554: true, 5556: true, 5560: true},
			want: 5558,
		},
		{
			name: "skips to end of range",
			used: func() map[int]bool {
				u := make(map[int]bool)
				for p := 5554; p < 5682; p += 2 {
					u[p] = true
				}
				return u
			}(),
			want: 5682,
		},
		{
			name: "exhausted range",
			used: func() map[int]bool {
				u := make(map[int]bool)
				for p := 5554; p <= 5682; p += 2 {
					u[p] = true
				}
				return u
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			port, err := NextFreePort(tt.used, 5554, 5682)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNoFreePort)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, port)
		})
	}
}

func TestNextFreePortRoundsOddStart(t *testing.T) {
	t.Parallel()

	port, err := NextFreePort(nil, 5555, 5682)
	require.NoError(t, err)
	assert.Equal(t, 5556, port)
}

func TestSerialRoundTrip(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "emulator-5554", SerialForPort(5554))

	port, ok := portFromSerial("emulator-5600")
	require.True(t, ok)
	assert.Equal(t, 5600, port)

	_, ok = portFromSerial("R58M123ABC")
	assert.False(t, ok)
	_, ok = portFromSerial("emulator-notaport")
	assert.False(t, ok)
}
