// pkg/emulator/sdk.go

// Package emulator orchestrates Android emulators through the SDK
// command line tools: package catalog and AVD discovery, find-or-create,
// control-port allocation, boot polling, and preview launch.
package emulator

import (
	"strconv"
	"strings"

	"github.com/fernwave/mobiprev/pkg/mp_err"
	"github.com/fernwave/mobiprev/pkg/vercmp"
)

// PackageCatalogEntry is one row of a `sdkmanager --list` table.
type PackageCatalogEntry struct {
	Path        string
	Version     string
	Description string
	Location    string
}

// PackageCatalog is the set of installable SDK components reported by
// sdkmanager, keyed by their path column.
type PackageCatalog struct {
	Entries []PackageCatalogEntry
}

// Find returns the entry with the given path.
func (c *PackageCatalog) Find(path string) (PackageCatalogEntry, bool) {
	for _, e := range c.Entries {
		if e.Path == path {
			return e, true
		}
	}
	return PackageCatalogEntry{}, false
}

// ParsePackageList parses every pipe-delimited row in a sdkmanager
// listing. A listing with no delimiter at all (truncated or garbage
// output) yields an empty catalog rather than an error.
func ParsePackageList(raw string) *PackageCatalog {
	return &PackageCatalog{Entries: dedupe(parseRows(strings.Split(raw, "\n")))}
}

// ParseInstalledPackages parses only the rows between the
// "Installed packages:" header and the "Available Packages:" footer.
// Unlike ParsePackageList, the header is mandatory: its absence fails
// with a FormatError.
func ParseInstalledPackages(raw string) (*PackageCatalog, error) {
	lines := strings.Split(raw, "\n")

	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "Installed packages:") {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil, &mp_err.FormatError{
			Source:  "sdkmanager package list",
			Missing: `"Installed packages:" section`,
		}
	}

	end := len(lines)
	for i := start; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "Available Packages:") {
			end = i
			break
		}
	}

	return &PackageCatalog{Entries: dedupe(parseRows(lines[start:end]))}, nil
}

// parseRows extracts data rows, skipping blanks, column headers and
// dash separator rows. Field values are trimmed.
func parseRows(lines []string) []PackageCatalogEntry {
	var entries []PackageCatalogEntry
	for _, line := range lines {
		if !strings.Contains(line, "|") {
			continue
		}
		fields := strings.Split(line, "|")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if fields[0] == "" || fields[0] == "Path" || isDashRow(fields) {
			continue
		}

		entry := PackageCatalogEntry{Path: fields[0]}
		if len(fields) > 1 {
			entry.Version = fields[1]
		}
		if len(fields) > 2 {
			entry.Description = fields[2]
		}
		if len(fields) > 3 {
			entry.Location = fields[3]
		}
		entries = append(entries, entry)
	}
	return entries
}

func isDashRow(fields []string) bool {
	for _, f := range fields {
		if f != "" && strings.Trim(f, "-") != "" {
			return false
		}
	}
	return true
}

func dedupe(entries []PackageCatalogEntry) []PackageCatalogEntry {
	seen := make(map[string]bool, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if seen[e.Path] {
			continue
		}
		seen[e.Path] = true
		out = append(out, e)
	}
	return out
}

// SystemImage is one installable emulator image, with the API level,
// tag and ABI components split out of its multi-segment path.
type SystemImage struct {
	Entry    PackageCatalogEntry
	APILabel string // numeric level ("30") or a codename ("Tiramisu")
	Tag      string // e.g. google_apis, default
	ABI      string // e.g. x86_64, arm64-v8a
}

const (
	systemImagePrefix = "system-images;"
	platformPrefix    = "platforms;"
	buildToolsPrefix  = "build-tools;"
	androidSegPrefix  = "android-"
)

// SystemImages extracts every system image from the catalog. Paths look
// like system-images;android-30;google_apis;x86_64; malformed paths are
// skipped.
func SystemImages(c *PackageCatalog) []SystemImage {
	var images []SystemImage
	for _, e := range c.Entries {
		if !strings.HasPrefix(e.Path, systemImagePrefix) {
			continue
		}
		segs := strings.Split(e.Path, ";")
		if len(segs) != 4 || !strings.HasPrefix(segs[1], androidSegPrefix) {
			continue
		}
		images = append(images, SystemImage{
			Entry:    e,
			APILabel: strings.TrimPrefix(segs[1], androidSegPrefix),
			Tag:      segs[2],
			ABI:      segs[3],
		})
	}
	return images
}

// BestSystemImage picks the newest installed image matching the
// preferred tag and ABI at or above the minimum API level. Codename
// API labels count as newer than any numeric level; between two
// distinct codenames the first seen is kept, since they have no
// defined order.
func BestSystemImage(c *PackageCatalog, minAPILevel int, tag, abi string) (SystemImage, bool) {
	minLabel := strconv.Itoa(minAPILevel)

	var best SystemImage
	var found bool
	for _, img := range SystemImages(c) {
		if tag != "" && img.Tag != tag {
			continue
		}
		if abi != "" && img.ABI != abi {
			continue
		}
		if ok, err := vercmp.SameOrNewer(img.APILabel, minLabel); err != nil || !ok {
			continue
		}
		if !found {
			best, found = img, true
			continue
		}
		if newer, err := vercmp.Compare(img.APILabel, best.APILabel); err == nil && newer > 0 {
			best = img
		}
	}
	return best, found
}

// LatestBuildTools returns the newest build-tools entry in the catalog.
func LatestBuildTools(c *PackageCatalog) (PackageCatalogEntry, bool) {
	var best PackageCatalogEntry
	var found bool
	for _, e := range c.Entries {
		if !strings.HasPrefix(e.Path, buildToolsPrefix) {
			continue
		}
		v := strings.TrimPrefix(e.Path, buildToolsPrefix)
		if !found {
			best, found = e, true
			continue
		}
		bestV := strings.TrimPrefix(best.Path, buildToolsPrefix)
		if newer, err := vercmp.Compare(v, bestV); err == nil && newer > 0 {
			best = e
		}
	}
	return best, found
}

// HasPlatform reports whether the platform for the given API label is
// installed.
func HasPlatform(c *PackageCatalog, apiLabel string) bool {
	_, ok := c.Find(platformPrefix + androidSegPrefix + apiLabel)
	return ok
}
