// pkg/vercmp/vercmp_test.go

package vercmp

import (
	"errors"
	"testing"

	"github.com/fernwave/mobiprev/pkg/mp_err"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  Version
		ok    bool
	}{
		{name: "bare major", input: "13", want: Version{Major: 13}, ok: true},
		{name: "bare zero", input: "0", want: Version{}, ok: true},
		{name: "dotted pair", input: "17.5", want: Version{Major: 17, Minor: 5}, ok: true},
		{name: "dashed pair", input: "17-5", want: Version{Major: 17, Minor: 5}, ok: true},
		{name: "dotted triple", input: "30.0.2", want: Version{Major: 30, Minor: 0, Patch: 2}, ok: true},
		{name: "dashed triple", input: "16-4-1", want: Version{Major: 16, Minor: 4, Patch: 1}, ok: true},
		{name: "mixed separators", input: "16.4-1", ok: false},
		{name: "mixed separators reversed", input: "16-4.1", ok: false},
		{name: "four components", input: "1.2.3.4", ok: false},
		{name: "leading zero", input: "01.2", ok: false},
		{name: "leading zero in minor", input: "1.02", ok: false},
		{name: "codename", input: "Tiramisu", ok: false},
		{name: "empty", input: "", ok: false},
		{name: "trailing separator", input: "1.2.", ok: false},
		{name: "negative", input: "-1", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := Parse(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	t.Parallel()

	// Three dotted components with no leading zeros round-trip exactly.
	for _, s := range []string{"0.0.0", "1.2.3", "30.0.2", "17.5.1", "10.20.30"} {
		v, ok := Parse(s)
		require.True(t, ok, s)
		assert.Equal(t, s, v.String())
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{name: "equal triples", a: "1.2.3", b: "1.2.3", want: 0},
		{name: "numeric not lexical", a: "28", b: "30", want: -1},
		{name: "nine vs ten", a: "9", b: "10", want: -1},
		{name: "minor decides", a: "17.5", b: "17.4", want: 1},
		{name: "patch decides", a: "1.2.3", b: "1.2.4", want: -1},
		{name: "missing components are zero", a: "17", b: "17.0.0", want: 0},
		{name: "separator style irrelevant", a: "16-4", b: "16.4", want: 0},
		{name: "codenames equal", a: "Tiramisu", b: "Tiramisu", want: 0},
		{name: "codenames case folded", a: "TIRAMISU", b: "tiramisu", want: 0},
		{name: "codename beats numeric", a: "Tiramisu", b: "30", want: 1},
		{name: "numeric loses to codename", a: "33", b: "UpsideDownCake", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Compare(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// Antisymmetry.
			rev, err := Compare(tt.b, tt.a)
			require.NoError(t, err)
			assert.Equal(t, -tt.want, rev)
		})
	}
}

func TestCompareReflexive(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"0", "28", "17.5", "1.2.3", "Tiramisu"} {
		got, err := Compare(s, s)
		require.NoError(t, err)
		assert.Zero(t, got, s)
	}
}

func TestCompareDistinctCodenames(t *testing.T) {
	t.Parallel()

	_, err := Compare("Tiramisu", "UpsideDownCake")
	require.Error(t, err)

	var unsupported *mp_err.UnsupportedComparisonError
	assert.True(t, errors.As(err, &unsupported))
}

func TestCompareAccentInsensitiveCodenames(t *testing.T) {
	t.Parallel()

	got, err := Compare("Tiramisú", "tiramisu")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestSameOrNewer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{name: "newer", a: "17.5", b: "16.4", want: true},
		{name: "equal", a: "17.5", b: "17.5", want: true},
		{name: "older", a: "16.4", b: "17.5", want: false},
		{name: "codename always newer", a: "Tiramisu", b: "34", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := SameOrNewer(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
