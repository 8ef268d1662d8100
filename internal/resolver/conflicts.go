// Package resolver detects dependency conflicts in an installed environment
// and computes a minimally disruptive set of version changes that resolves
// them.
package resolver

import (
	"fmt"
	"strings"

	"github.com/depfix-tools/depfix/pkg/pep440"
)

// ConflictKind classifies why an edge is in conflict.
type ConflictKind string

const (
	// KindVersionMismatch: the dependency is installed, but its version
	// fails the parent's specifier set.
	KindVersionMismatch ConflictKind = "version_mismatch"

	// KindNotInstalled: the parent declares a dependency with no node in
	// the environment.
	KindNotInstalled ConflictKind = "not_installed"

	// KindUnparseableVersion: the dependency's installed version does not
	// parse, so satisfaction cannot be decided.
	KindUnparseableVersion ConflictKind = "unparseable_version"
)

// Conflict records one unsatisfied dependency edge.
type Conflict struct {
	// Parent is the normalized name of the package declaring the edge.
	Parent string `json:"package"`

	// ParentVersion is the parent's installed version.
	ParentVersion string `json:"package_version"`

	// Dependency is the normalized name of the unsatisfied dependency.
	Dependency string `json:"conflicting_dependency"`

	// InstalledVersion is the dependency's installed version. Empty for
	// not_installed conflicts.
	InstalledVersion string `json:"installed_version,omitempty"`

	// RequiredConstraint is the parent's specifier set as text.
	RequiredConstraint string `json:"required_constraint"`

	// Kind classifies the conflict.
	Kind ConflictKind `json:"conflict_type"`

	// Required is the parsed specifier set behind RequiredConstraint.
	Required pep440.SpecifierSet `json:"-"`
}

// key identifies a conflict edge for set-membership tests.
func (c Conflict) key() string {
	return c.Parent + "\x00" + c.Dependency + "\x00" + string(c.Kind) + "\x00" + c.RequiredConstraint
}

// Error returns a human-readable description of the conflict.
func (c Conflict) Error() string {
	switch c.Kind {
	case KindNotInstalled:
		return fmt.Sprintf("%s %s requires %s%s, which is not installed",
			c.Parent, c.ParentVersion, c.Dependency, c.RequiredConstraint)
	case KindUnparseableVersion:
		return fmt.Sprintf("%s %s requires %s%s, but the installed version %q is unparseable",
			c.Parent, c.ParentVersion, c.Dependency, c.RequiredConstraint, c.InstalledVersion)
	default:
		return fmt.Sprintf("%s %s requires %s%s, but you have %s %s",
			c.Parent, c.ParentVersion, c.Dependency, c.RequiredConstraint, c.Dependency, c.InstalledVersion)
	}
}

// Unsolvable records a conflict bucket the resolver could not satisfy.
type Unsolvable struct {
	// Package is the dependency the bucket targets.
	Package string `json:"package"`

	// Reason explains why no resolution was possible.
	Reason string `json:"reason"`

	// Conflicts are the unresolved conflicts in the bucket.
	Conflicts []Conflict `json:"conflicts"`
}

// UnsolvableError wraps the unsolvable buckets of a resolution pass.
type UnsolvableError struct {
	Unsolvable []Unsolvable
}

// Error returns a formatted message listing each unsolvable bucket.
func (e *UnsolvableError) Error() string {
	if len(e.Unsolvable) == 0 {
		return "unknown resolution failure"
	}

	var sb strings.Builder
	sb.WriteString("Cannot resolve all conflicts\n")
	for _, u := range e.Unsolvable {
		sb.WriteString(fmt.Sprintf("\n%s: %s\n", u.Package, u.Reason))
		for _, c := range u.Conflicts {
			sb.WriteString(fmt.Sprintf("  - %s\n", c.Error()))
		}
	}
	return sb.String()
}
