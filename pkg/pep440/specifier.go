package pep440

import (
	"fmt"
	"regexp"
	"strings"
)

// specifierRegex matches a single version specifier: an operator followed by
// an operand. The three-character === must come first in the alternation.
var specifierRegex = regexp.MustCompile(`^(===|==|!=|~=|<=|>=|<|>)\s*(.+?)\s*$`)

// Specifier represents a single version constraint of the form <op><version>.
//
// Supported operators:
//   - "==1.2.3"   - version matching
//   - "==1.2.*"   - prefix matching
//   - "!=1.2.3"   - version exclusion (also supports the prefix form)
//   - "<", "<=", ">", ">=" - ordered comparison
//   - "~=1.2.3"   - compatible release (>=1.2.3, <1.3.0)
//   - "===1.2.3"  - arbitrary string equality
type Specifier struct {
	// Op is the comparison operator.
	Op string

	// Operand is the raw right-hand side, preserved for display.
	Operand string

	// version is the parsed operand. Nil for ===; for prefix specifiers it
	// holds the release prefix before ".*".
	version *Version

	// prefix marks the "==X.Y.*" / "!=X.Y.*" forms.
	prefix bool
}

// ParseSpecifier parses one specifier fragment.
//
// The wildcard sentinels ("Any" and the empty string) are not valid here:
// callers filter them out before constructing specifiers, so they arrive at
// this function only through malformed input.
func ParseSpecifier(s string) (*Specifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("specifier fragment cannot be empty")
	}

	matches := specifierRegex.FindStringSubmatch(s)
	if matches == nil {
		return nil, fmt.Errorf("invalid specifier format: %q", s)
	}

	op := matches[1]
	operand := matches[2]

	spec := &Specifier{
		Op:      op,
		Operand: operand,
	}

	// Prefix matching: ==1.2.* and !=1.2.*
	if strings.HasSuffix(operand, ".*") {
		if op != "==" && op != "!=" {
			return nil, fmt.Errorf("prefix operand %q requires == or != in %q", operand, s)
		}
		base := Parse(strings.TrimSuffix(operand, ".*"))
		if base.Unknown {
			return nil, fmt.Errorf("invalid version in specifier %q", s)
		}
		spec.version = base
		spec.prefix = true
		return spec, nil
	}

	// Arbitrary equality compares raw strings; no version parse needed.
	if op == "===" {
		return spec, nil
	}

	v := Parse(operand)
	if v.Unknown {
		return nil, fmt.Errorf("invalid version in specifier %q", s)
	}

	// Compatible release requires at least two release segments.
	if op == "~=" && len(v.Release) < 2 {
		return nil, fmt.Errorf("~= requires at least two release segments in %q", s)
	}

	spec.version = v
	return spec, nil
}

// Match returns true if the given version satisfies this specifier.
//
// Pre-release versions only match when the specifier's own operand is a
// pre-release: "foo>=2.0" never pulls in "2.1rc1", but "foo==2.1rc1" does.
func (s *Specifier) Match(v *Version) bool {
	if v == nil || v.Unknown {
		return false
	}

	if s.Op == "===" {
		return strings.EqualFold(strings.TrimSpace(v.Original), s.Operand)
	}

	// Pre-release gate
	if v.IsPrerelease() && !s.version.IsPrerelease() {
		return false
	}

	if s.prefix {
		matched := s.matchPrefix(v)
		if s.Op == "!=" {
			return !matched
		}
		return matched
	}

	switch s.Op {
	case "==":
		return v.Equal(s.version)
	case "!=":
		return !v.Equal(s.version)
	case "<":
		return v.LessThan(s.version)
	case "<=":
		return v.LessThan(s.version) || v.Equal(s.version)
	case ">":
		return v.GreaterThan(s.version)
	case ">=":
		return v.GreaterThan(s.version) || v.Equal(s.version)
	case "~=":
		return s.matchCompatible(v)
	default:
		return false
	}
}

// matchPrefix tests the "==X.Y.*" form: the candidate's epoch must equal the
// operand's, and its release must start with the operand's release segments.
func (s *Specifier) matchPrefix(v *Version) bool {
	if v.Epoch != s.version.Epoch {
		return false
	}
	for i, seg := range s.version.Release {
		if v.releaseAt(i) != seg {
			return false
		}
	}
	return true
}

// matchCompatible implements the PEP 440 compatible release clause:
// ~=X.Y is >=X.Y, <X+1; ~=X.Y.Z is >=X.Y.Z, <X.(Y+1).
func (s *Specifier) matchCompatible(v *Version) bool {
	if v.LessThan(s.version) {
		return false
	}

	// Upper bound: drop the last release segment, increment the new last.
	upper := make([]int, len(s.version.Release)-1)
	copy(upper, s.version.Release[:len(upper)])
	upper[len(upper)-1]++

	bound := &Version{
		Epoch:   s.version.Epoch,
		Release: upper,
		Post:    noSegment,
		Dev:     noSegment,
	}
	return v.LessThan(bound)
}

// String returns the specifier in canonical op+operand form.
func (s *Specifier) String() string {
	return s.Op + s.Operand
}

// SpecifierSet is an ordered conjunction of specifiers. The empty set
// matches every version, including unknown ones.
type SpecifierSet struct {
	Specifiers []*Specifier
}

// ParseSpecifierSet parses a comma-separated list of specifier fragments.
//
// Any invalid fragment makes the whole set unusable, so the function returns
// an empty set (treating the edge as unconstrained) together with the error
// for the caller to log. Parsing is never fatal.
func ParseSpecifierSet(s string) (SpecifierSet, error) {
	var set SpecifierSet

	s = strings.TrimSpace(s)
	if s == "" {
		return set, nil
	}

	for _, fragment := range strings.Split(s, ",") {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		spec, err := ParseSpecifier(fragment)
		if err != nil {
			return SpecifierSet{}, err
		}
		set.Specifiers = append(set.Specifiers, spec)
	}

	return set, nil
}

// MustParseSpecifierSet is like ParseSpecifierSet but panics on invalid
// input. Do not use this with untrusted input.
func MustParseSpecifierSet(s string) SpecifierSet {
	set, err := ParseSpecifierSet(s)
	if err != nil {
		panic(fmt.Sprintf("pep440.MustParseSpecifierSet(%q): %v", s, err))
	}
	return set
}

// Empty reports whether the set carries no constraints.
func (ss SpecifierSet) Empty() bool {
	return len(ss.Specifiers) == 0
}

// Satisfies returns true if the version satisfies every specifier in the
// set. The empty set satisfies everything; an unknown version satisfies
// only the empty set.
func (ss SpecifierSet) Satisfies(v *Version) bool {
	if ss.Empty() {
		return true
	}
	if v == nil || v.Unknown {
		return false
	}
	for _, spec := range ss.Specifiers {
		if !spec.Match(v) {
			return false
		}
	}
	return true
}

// Intersect combines two sets by concatenation. AND semantics make this
// correct without simplification; the combined set may be vacuous, which
// surfaces naturally as no candidate satisfying it.
func (ss SpecifierSet) Intersect(other SpecifierSet) SpecifierSet {
	combined := SpecifierSet{
		Specifiers: make([]*Specifier, 0, len(ss.Specifiers)+len(other.Specifiers)),
	}
	combined.Specifiers = append(combined.Specifiers, ss.Specifiers...)
	combined.Specifiers = append(combined.Specifiers, other.Specifiers...)
	return combined
}

// String returns the set as a comma-joined specifier list.
func (ss SpecifierSet) String() string {
	parts := make([]string, len(ss.Specifiers))
	for i, spec := range ss.Specifiers {
		parts[i] = spec.String()
	}
	return strings.Join(parts, ",")
}

// FindBest returns the highest version in the list that satisfies the set,
// or nil if none does.
func (ss SpecifierSet) FindBest(versions []*Version) *Version {
	var best *Version
	for _, v := range versions {
		if !ss.Satisfies(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}
	return best
}
