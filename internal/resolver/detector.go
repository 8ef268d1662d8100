package resolver

import (
	"github.com/depfix-tools/depfix/internal/envtree"
)

// Detect walks every dependency edge in the map and reports the
// unsatisfied ones. Iteration is sorted by parent name, then dependency
// name, so repeated runs over the same snapshot produce identical output.
//
// An unconstrained edge can never conflict: a dependency with an
// unparseable installed version is only reported when some parent actually
// constrains it.
func Detect(depmap *envtree.DependencyMap) []Conflict {
	var conflicts []Conflict

	for _, parentName := range depmap.Names() {
		parent := depmap.Get(parentName)

		for _, depName := range parent.DependencyNames() {
			required := parent.Dependencies[depName]

			conflict := Conflict{
				Parent:             parentName,
				ParentVersion:      parent.RawVersion,
				Dependency:         depName,
				RequiredConstraint: required.String(),
				Required:           required,
			}

			dep := depmap.Get(depName)
			switch {
			case dep == nil || dep.RawVersion == "":
				// A node created only by edge references carries no
				// installed version; the distribution is absent.
				conflict.Kind = KindNotInstalled
			case required.Empty():
				continue
			case dep.InstalledVersion.Unknown:
				conflict.Kind = KindUnparseableVersion
				conflict.InstalledVersion = dep.RawVersion
			case !required.Satisfies(dep.InstalledVersion):
				conflict.Kind = KindVersionMismatch
				conflict.InstalledVersion = dep.RawVersion
			default:
				continue
			}

			conflicts = append(conflicts, conflict)
		}
	}

	return conflicts
}
