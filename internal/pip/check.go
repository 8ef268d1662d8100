package pip

import (
	"context"
	"strings"

	"github.com/depfix-tools/depfix/pkg/pep440"
)

// CheckConflict is one broken requirement reported by `pip check`. It
// mirrors the detector's conflict record without importing it, so the
// adapter stays decoupled from the resolver.
type CheckConflict struct {
	// Package is the normalized name of the complaining distribution.
	Package string

	// PackageVersion is the complaining distribution's version.
	PackageVersion string

	// Dependency is the normalized name of the unsatisfied dependency.
	Dependency string

	// InstalledVersion is the dependency's installed version. Empty when
	// the dependency is missing entirely.
	InstalledVersion string

	// RequiredConstraint is the raw specifier text pip reported.
	RequiredConstraint string

	// NotInstalled marks the "which is not installed" form.
	NotInstalled bool
}

// Check runs `pip check` and parses its report. It is used as a fallback
// when the tree-based detector finds nothing: pip sees requirements from
// installed metadata that the enumerator occasionally omits.
//
// pip check exits non-zero when it finds problems, so the exit status is
// ignored; only unparseable output yields an empty result.
func (m *Manager) Check(ctx context.Context) []CheckConflict {
	output, _ := m.runner.Run(ctx, m.interpreter, "-m", "pip", "check")

	var conflicts []CheckConflict
	for _, line := range strings.Split(string(output), "\n") {
		if conflict, ok := parseCheckLine(line); ok {
			conflicts = append(conflicts, conflict)
		}
	}
	return conflicts
}

// parseCheckLine parses one `pip check` report line. Two forms exist:
//
//	requests 2.26.0 requires urllib3<1.27,>=1.21.1, but you have urllib3 2.2.0.
//	requests 2.26.0 requires certifi, which is not installed.
func parseCheckLine(line string) (CheckConflict, bool) {
	line = strings.TrimSpace(line)

	left, rest, mismatch := strings.Cut(line, ", but you have ")
	if !mismatch {
		left, _, missing := strings.Cut(line, ", which is not installed")
		if !missing {
			return CheckConflict{}, false
		}
		return parseCheckRequires(left, "", true)
	}

	have := strings.TrimSuffix(strings.TrimSpace(rest), ".")
	depName, installed, ok := strings.Cut(have, " ")
	if !ok {
		return CheckConflict{}, false
	}
	conflict, ok := parseCheckRequires(left, depName, false)
	if !ok {
		return conflict, false
	}
	conflict.InstalledVersion = strings.TrimSpace(installed)
	return conflict, true
}

// parseCheckRequires parses the "<pkg> <version> requires <requirement>"
// half of a report line. When depName is known (mismatch form), a
// name-glued specifier like "urllib3<1.27" is split on the name prefix.
func parseCheckRequires(left, depName string, notInstalled bool) (CheckConflict, bool) {
	pkgPart, reqPart, ok := strings.Cut(left, " requires ")
	if !ok {
		return CheckConflict{}, false
	}

	pkgName, pkgVersion, ok := strings.Cut(strings.TrimSpace(pkgPart), " ")
	if !ok {
		return CheckConflict{}, false
	}

	reqPart = strings.TrimSpace(reqPart)
	conflict := CheckConflict{
		Package:        pep440.Normalize(pkgName),
		PackageVersion: strings.TrimSpace(pkgVersion),
		NotInstalled:   notInstalled,
	}

	if notInstalled {
		req, err := pep440.ParseRequirement(reqPart)
		if err != nil {
			conflict.Dependency = pep440.Normalize(reqPart)
		} else {
			conflict.Dependency = req.Name
			conflict.RequiredConstraint = req.Specifiers.String()
		}
		return conflict, true
	}

	conflict.Dependency = pep440.Normalize(depName)
	constraint := reqPart
	if idx := strings.Index(strings.ToLower(constraint), strings.ToLower(depName)); idx == 0 {
		constraint = constraint[len(depName):]
	}
	conflict.RequiredConstraint = strings.TrimSpace(constraint)
	return conflict, true
}
