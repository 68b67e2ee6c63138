// pkg/vercmp/vercmp.go

// Package vercmp orders the version labels attached to simulator
// runtimes and emulator API levels. Labels are either dotted/dashed
// numeric triples ("17.5", "13-2-1") or opaque codenames ("Tiramisu")
// that platforms use before an API receives a number.
package vercmp

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/fernwave/mobiprev/pkg/mp_err"
	"golang.org/x/text/unicode/norm"
)

// Version is an immutable parsed numeric version. Missing minor/patch
// components are zero.
type Version struct {
	Major int
	Minor int
	Patch int
}

// numericPattern accepts one to three non-negative components with no
// leading zeros, joined by "." or "-". Separator consistency is checked
// separately.
var numericPattern = regexp.MustCompile(`^(0|[1-9]\d*)(?:([.-])(0|[1-9]\d*)(?:([.-])(0|[1-9]\d*))?)?$`)

// Parse returns the parsed version and true, or false for anything that
// is not a well-formed numeric version (codenames included). Mixing "."
// and "-" within one string is invalid.
func Parse(s string) (Version, bool) {
	m := numericPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Version{}, false
	}
	if m[2] != "" && m[4] != "" && m[2] != m[4] {
		return Version{}, false
	}

	v := Version{Major: mustAtoi(m[1])}
	if m[3] != "" {
		v.Minor = mustAtoi(m[3])
	}
	if m[5] != "" {
		v.Patch = mustAtoi(m[5])
	}
	return v, true
}

// String renders the canonical dotted form.
func (v Version) String() string {
	return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Patch)
}

// Compare orders two parsed versions by major, minor, then patch.
func (v Version) Compare(o Version) int {
	if c := cmpInt(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmpInt(v.Minor, o.Minor); c != 0 {
		return c
	}
	return cmpInt(v.Patch, o.Patch)
}

// Compare orders two version strings, either of which may be a codename.
//
// Policy: a codename is always considered newer than any numeric
// version. Two codenames are comparable only when textually equal
// (case- and accent-insensitive); comparing two distinct codenames has
// no defined order and fails.
func Compare(a, b string) (int, error) {
	va, okA := Parse(a)
	vb, okB := Parse(b)

	switch {
	case !okA && !okB:
		if codenamesEqual(a, b) {
			return 0, nil
		}
		return 0, &mp_err.UnsupportedComparisonError{Left: a, Right: b}
	case !okA:
		return 1, nil
	case !okB:
		return -1, nil
	default:
		return va.Compare(vb), nil
	}
}

// SameOrNewer reports whether a is at least as new as b.
func SameOrNewer(a, b string) (bool, error) {
	c, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return c >= 0, nil
}

// codenamesEqual folds case and strips combining marks so that
// "Tiramisu" matches "tiramisú".
func codenamesEqual(a, b string) bool {
	return strings.EqualFold(stripMarks(a), stripMarks(b))
}

func stripMarks(s string) string {
	decomposed := norm.NFD.String(strings.TrimSpace(s))
	var sb strings.Builder
	sb.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
