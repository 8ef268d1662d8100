// Package pep440 provides PEP 440 version and specifier handling for
// parsing, comparing, and constraining Python package versions.
package pep440

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// versionRegex matches PEP 440 version strings with optional epoch,
// pre-release, post-release, dev-release, and local segments.
// Examples: "1.2.3", "v1.2.3", "2!1.0", "1.2.3rc1", "1.2.3.post1", "1.2.3.dev2+local.1"
var versionRegex = regexp.MustCompile(`(?i)^v?(?:(\d+)!)?(\d+(?:\.\d+)*)(?:[._-]?(a|b|c|rc|alpha|beta|pre|preview)[._-]?(\d*))?(?:[._-]?(post|rev|r)[._-]?(\d*)|-(\d+))?(?:[._-]?(dev)[._-]?(\d*))?(?:\+([a-z0-9]+(?:[._-][a-z0-9]+)*))?$`)

// Sentinel values for the optional post and dev segments.
const noSegment = -1

// Version represents a PEP 440 release identifier.
//
// A version has the format: [EPOCH!]RELEASE[{a|b|rc}N][.postN][.devN][+LOCAL]
//
// Parsing is lenient: strings that do not conform to PEP 440 produce a
// Version with Unknown set. An unknown version never satisfies a non-empty
// specifier set and always compares lower than any parseable version.
type Version struct {
	// Original is the input string, preserved for display.
	Original string

	// Epoch is the version epoch (the N in "N!1.0"). Almost always 0.
	Epoch int

	// Release holds the numeric release segments ("1.2.3" -> [1, 2, 3]).
	Release []int

	// PrePhase is the normalized pre-release phase: "a", "b", or "rc".
	// Empty when the version is not a pre-release.
	PrePhase string

	// PreNum is the pre-release number ("1.0rc2" -> 2).
	PreNum int

	// Post is the post-release number, or noSegment if absent.
	Post int

	// Dev is the dev-release number, or noSegment if absent.
	Dev int

	// Local is the local version label after "+", normalized to lowercase.
	Local string

	// Unknown marks a version that could not be parsed.
	Unknown bool
}

// Parse parses a version string into a Version.
//
// Supported forms include:
//   - "1.2.3"           - standard release
//   - "v1.2.3"          - with 'v' prefix
//   - "2!1.0"           - with epoch
//   - "1.2.3rc1"        - pre-release (a, b, c, rc, alpha, beta, pre, preview)
//   - "1.2.3.post1"     - post-release
//   - "1.2.3.dev2"      - dev-release
//   - "1.2.3+ubuntu.1"  - local version label
//
// Parse never returns an error: a string that does not conform to PEP 440
// yields a Version with Unknown set so that callers can carry the raw text
// through reports without aborting a pass.
func Parse(s string) *Version {
	trimmed := strings.TrimSpace(s)
	v := &Version{
		Original: trimmed,
		Post:     noSegment,
		Dev:      noSegment,
	}

	matches := versionRegex.FindStringSubmatch(trimmed)
	if matches == nil || trimmed == "" {
		v.Unknown = true
		return v
	}

	// Epoch (optional, defaults to 0)
	if matches[1] != "" {
		epoch, err := strconv.Atoi(matches[1])
		if err != nil {
			v.Unknown = true
			return v
		}
		v.Epoch = epoch
	}

	// Release segments (always present if the regex matched)
	for _, part := range strings.Split(matches[2], ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			v.Unknown = true
			return v
		}
		v.Release = append(v.Release, n)
	}

	// Pre-release phase and number
	if matches[3] != "" {
		v.PrePhase = normalizePrePhase(matches[3])
		v.PreNum = atoiDefault(matches[4], 0)
	}

	// Post-release: either the spelled form (".post1") or the implicit
	// dash form ("1.0-1")
	if matches[5] != "" {
		v.Post = atoiDefault(matches[6], 0)
	} else if matches[7] != "" {
		v.Post = atoiDefault(matches[7], 0)
	}

	// Dev-release ("1.0.dev" is a valid zero dev-release)
	if matches[8] != "" {
		v.Dev = atoiDefault(matches[9], 0)
	}

	// Local version label
	if matches[10] != "" {
		v.Local = strings.ToLower(strings.NewReplacer("_", ".", "-", ".").Replace(matches[10]))
	}

	return v
}

// normalizePrePhase maps the spelling variants onto the canonical phases.
func normalizePrePhase(phase string) string {
	switch strings.ToLower(phase) {
	case "a", "alpha":
		return "a"
	case "b", "beta":
		return "b"
	default:
		// c, rc, pre, preview all normalize to rc
		return "rc"
	}
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// String returns the original version string.
func (v *Version) String() string {
	return v.Original
}

// IsPrerelease reports whether the version is a pre-release or dev-release.
// Pre-releases are excluded from specifier satisfaction by default.
func (v *Version) IsPrerelease() bool {
	return v.PrePhase != "" || v.Dev != noSegment
}

// releaseAt returns the release segment at index i, padding with zeros.
func (v *Version) releaseAt(i int) int {
	if i < len(v.Release) {
		return v.Release[i]
	}
	return 0
}

// Compare compares two versions according to PEP 440 ordering rules.
//
// Returns:
//   - -1 if v < other
//   - 0 if v == other
//   - 1 if v > other
//
// Unknown versions sort below every parseable version and compare by their
// original string against each other, so sorted output stays deterministic.
func (v *Version) Compare(other *Version) int {
	if v.Unknown || other.Unknown {
		switch {
		case v.Unknown && other.Unknown:
			return strings.Compare(v.Original, other.Original)
		case v.Unknown:
			return -1
		default:
			return 1
		}
	}

	if v.Epoch != other.Epoch {
		return cmpInt(v.Epoch, other.Epoch)
	}

	// Compare release segments, padding the shorter with zeros.
	n := len(v.Release)
	if len(other.Release) > n {
		n = len(other.Release)
	}
	for i := 0; i < n; i++ {
		if c := cmpInt(v.releaseAt(i), other.releaseAt(i)); c != 0 {
			return c
		}
	}

	// Within the same release: dev < pre < final < post.
	if c := cmpInt(v.preKeyRank(), other.preKeyRank()); c != 0 {
		return c
	}
	if v.PrePhase != "" && other.PrePhase != "" {
		if c := cmpInt(v.PreNum, other.PreNum); c != 0 {
			return c
		}
	}

	if c := cmpInt(v.postKey(), other.postKey()); c != 0 {
		return c
	}

	if c := cmpInt(v.devKey(), other.devKey()); c != 0 {
		return c
	}

	return compareLocal(v.Local, other.Local)
}

// preKeyRank orders the pre-release phase relative to final releases.
// A dev-only version sorts before any pre-release of the same release.
func (v *Version) preKeyRank() int {
	if v.PrePhase == "" {
		if v.Post == noSegment && v.Dev != noSegment {
			return 0 // dev release: lowest
		}
		return 4 // final or post release
	}
	switch v.PrePhase {
	case "a":
		return 1
	case "b":
		return 2
	default:
		return 3 // rc
	}
}

// postKey orders post-releases after their base version.
func (v *Version) postKey() int {
	if v.Post == noSegment {
		return noSegment
	}
	return v.Post
}

// devKey orders dev-releases before their base version.
func (v *Version) devKey() int {
	if v.Dev == noSegment {
		return int(^uint(0) >> 1) // no dev segment sorts highest
	}
	return v.Dev
}

// compareLocal compares local version labels segment by segment. Numeric
// segments compare numerically and sort after alphanumeric ones, per PEP 440.
func compareLocal(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return -1
	}
	if b == "" {
		return 1
	}

	partsA := strings.Split(a, ".")
	partsB := strings.Split(b, ".")
	n := len(partsA)
	if len(partsB) < n {
		n = len(partsB)
	}
	for i := 0; i < n; i++ {
		na, errA := strconv.Atoi(partsA[i])
		nb, errB := strconv.Atoi(partsB[i])
		switch {
		case errA == nil && errB == nil:
			if c := cmpInt(na, nb); c != 0 {
				return c
			}
		case errA == nil:
			return 1 // numeric sorts after alphanumeric
		case errB == nil:
			return -1
		default:
			if c := strings.Compare(partsA[i], partsB[i]); c != 0 {
				return c
			}
		}
	}
	return cmpInt(len(partsA), len(partsB))
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

// LessThan returns true if v < other.
func (v *Version) LessThan(other *Version) bool {
	return v.Compare(other) < 0
}

// GreaterThan returns true if v > other.
func (v *Version) GreaterThan(other *Version) bool {
	return v.Compare(other) > 0
}

// Equal returns true if v == other.
func (v *Version) Equal(other *Version) bool {
	return v.Compare(other) == 0
}

// Distance measures how disruptive moving from v to other would be. Patch
// changes beat minor changes beat major changes:
//
//	distance = |Δmajor|*1_000_000 + |Δminor|*1_000 + |Δpatch|
//
// Unknown versions are maximally distant from everything.
func (v *Version) Distance(other *Version) int {
	if v.Unknown || other.Unknown {
		return int(^uint(0) >> 1)
	}
	major := absInt(v.releaseAt(0) - other.releaseAt(0))
	minor := absInt(v.releaseAt(1) - other.releaseAt(1))
	patch := absInt(v.releaseAt(2) - other.releaseAt(2))
	return major*1_000_000 + minor*1_000 + patch
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// MustParse parses s and panics if the result is an unknown version.
//
// This is useful for initializing package-level version variables or in tests.
// Do not use this with untrusted input.
func MustParse(s string) *Version {
	v := Parse(s)
	if v.Unknown {
		panic(fmt.Sprintf("pep440.MustParse(%q): not a valid PEP 440 version", s))
	}
	return v
}
