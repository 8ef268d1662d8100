package envtree

import (
	"encoding/json"
	"fmt"

	"github.com/depfix-tools/depfix/internal/errors"
	"github.com/depfix-tools/depfix/pkg/pep440"
)

// anySpecifier is the sentinel some enumerator versions emit for an
// unconstrained edge. It is filtered before specifier construction, along
// with the empty string.
const anySpecifier = "Any"

// Normalize consumes the enumerator's JSON tree and builds the canonical
// DependencyMap. The enumerator's output shape changed across major
// versions, so the shape is detected per element:
//
//   - nested: {"package": {"key": ..., "installed_version": ...},
//     "dependencies": [{"package": {...}, "required_version": ...}, ...]}
//   - flat:   {"key": ..., "installed_version": ...,
//     "dependencies": [{"key": ..., "required_version": ...}, ...]}
//
// Mixed-shape documents are tolerated. Malformed elements and invalid
// specifiers are skipped and reported as warnings; the pass never aborts.
func Normalize(data []byte) (*DependencyMap, []error) {
	var elements []any
	if err := json.Unmarshal(data, &elements); err != nil {
		return NewDependencyMap(), []error{
			errors.NewTreeError("", "enumerator output is not a JSON array", err),
		}
	}

	depmap := NewDependencyMap()
	var warnings []error
	for _, element := range elements {
		warnings = append(warnings, mergeElement(depmap, element)...)
	}
	return depmap, warnings
}

// mergeElement merges one tree element (and, recursively, its declared
// dependencies) into the map.
func mergeElement(depmap *DependencyMap, element any) []error {
	obj, ok := element.(map[string]any)
	if !ok {
		return []error{errors.NewTreeError("", fmt.Sprintf("skipping non-object element %T", element), nil)}
	}

	name, rawVersion := extractIdentity(obj)
	if name == "" {
		return []error{errors.NewTreeError("", "skipping element without a package name", nil)}
	}

	depmap.Add(name, rawVersion)

	var warnings []error
	deps, _ := obj["dependencies"].([]any)
	for _, rawDep := range deps {
		depObj, ok := rawDep.(map[string]any)
		if !ok {
			warnings = append(warnings, errors.NewTreeError(name, "skipping non-object dependency entry", nil))
			continue
		}

		depName, depVersion := extractIdentity(depObj)
		if depName == "" {
			warnings = append(warnings, errors.NewTreeError(name, "skipping dependency without a name", nil))
			continue
		}

		depmap.Add(depName, depVersion)

		set, err := requiredSpecifiers(depObj)
		if err != nil {
			warnings = append(warnings, errors.NewTreeError(name,
				fmt.Sprintf("invalid specifier for dependency %s, treating as unconstrained", depName), err))
		}
		depmap.AddEdge(name, depName, set)

		// Nested trees carry the dependency's own dependencies.
		warnings = append(warnings, mergeElement(depmap, rawDep)...)
	}

	return warnings
}

// extractIdentity pulls the package name and installed version out of an
// element, handling both shapes. The nested shape wraps identity in a
// "package" object; the flat shape keeps it at top level. The name lives
// under "key" or "package_name".
func extractIdentity(obj map[string]any) (name, version string) {
	info := obj
	if wrapped, ok := obj["package"].(map[string]any); ok {
		info = wrapped
	}

	name, _ = info["key"].(string)
	if name == "" {
		name, _ = info["package_name"].(string)
	}
	version, _ = info["installed_version"].(string)
	return name, version
}

// requiredSpecifiers parses the edge's constraint. The "Any" sentinel and
// the empty string denote an unconstrained edge and are filtered here,
// before specifier construction. An unparseable constraint degrades to the
// empty set with the error returned for logging.
func requiredSpecifiers(depObj map[string]any) (pep440.SpecifierSet, error) {
	raw, _ := depObj["required_version"].(string)
	if raw == "" {
		raw, _ = depObj["version"].(string)
	}
	if raw == "" || raw == anySpecifier {
		return pep440.SpecifierSet{}, nil
	}
	return pep440.ParseSpecifierSet(raw)
}
