// Package envtree builds a canonical dependency map of an installed Python
// environment from the enumerator's JSON tree output.
package envtree

import (
	"sort"

	"github.com/depfix-tools/depfix/pkg/pep440"
)

// PackageNode is one installed distribution in the environment.
// Nodes are identified by normalized name; edges are name-keyed lookups
// rather than direct references, which keeps cloning and serialization
// trivial even with cycles.
type PackageNode struct {
	// Name is the normalized distribution name.
	Name string

	// RawVersion is the installed version string as reported by the
	// enumerator, preserved for display and lock output.
	RawVersion string

	// InstalledVersion is the parsed installed version. May be an
	// unknown-version sentinel when RawVersion does not conform to PEP 440.
	InstalledVersion *pep440.Version

	// Dependencies maps normalized dependency names to the specifier set
	// this node declares for them.
	Dependencies map[string]pep440.SpecifierSet

	// dependents records reverse edges by normalized name.
	dependents map[string]bool
}

// DependencyMap is the single owner of all PackageNodes in an environment
// snapshot.
type DependencyMap struct {
	nodes map[string]*PackageNode
}

// NewDependencyMap creates an empty dependency map.
func NewDependencyMap() *DependencyMap {
	return &DependencyMap{
		nodes: make(map[string]*PackageNode),
	}
}

// Add returns the node for the given name, creating it if needed. The name
// is normalized here so callers can pass enumerator output directly. The
// first non-empty installed version seen for a name wins; duplicates from
// the enumerator collapse onto the same node.
func (m *DependencyMap) Add(name, rawVersion string) *PackageNode {
	key := pep440.Normalize(name)
	node, ok := m.nodes[key]
	if !ok {
		node = &PackageNode{
			Name:         key,
			Dependencies: make(map[string]pep440.SpecifierSet),
			dependents:   make(map[string]bool),
		}
		m.nodes[key] = node
	}
	if node.RawVersion == "" && rawVersion != "" {
		node.RawVersion = rawVersion
		node.InstalledVersion = pep440.Parse(rawVersion)
	}
	return node
}

// AddEdge records that parent depends on dep under the given specifier set.
// Both endpoints are created if absent. A duplicate edge intersects the new
// set with the existing one, so repeated enumerator entries tighten rather
// than overwrite.
func (m *DependencyMap) AddEdge(parent, dep string, set pep440.SpecifierSet) {
	parentNode := m.Add(parent, "")
	depNode := m.Add(dep, "")

	if existing, ok := parentNode.Dependencies[depNode.Name]; ok {
		set = existing.Intersect(set)
	}
	parentNode.Dependencies[depNode.Name] = set
	depNode.dependents[parentNode.Name] = true
}

// Get returns the node for a (not necessarily normalized) name, or nil.
func (m *DependencyMap) Get(name string) *PackageNode {
	return m.nodes[pep440.Normalize(name)]
}

// Has reports whether a node exists for the given name.
func (m *DependencyMap) Has(name string) bool {
	_, ok := m.nodes[pep440.Normalize(name)]
	return ok
}

// Len returns the number of nodes.
func (m *DependencyMap) Len() int {
	return len(m.nodes)
}

// Names returns all node names in sorted order. Every phase iterates the
// map through this accessor so output stays stable across runs.
func (m *DependencyMap) Names() []string {
	names := make([]string, 0, len(m.nodes))
	for name := range m.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dependents returns the sorted names of packages that depend on the given
// package.
func (m *DependencyMap) Dependents(name string) []string {
	node := m.Get(name)
	if node == nil {
		return nil
	}
	result := make([]string, 0, len(node.dependents))
	for dep := range node.dependents {
		result = append(result, dep)
	}
	sort.Strings(result)
	return result
}

// DependencyNames returns the node's outbound edges in sorted order.
func (n *PackageNode) DependencyNames() []string {
	names := make([]string, 0, len(n.Dependencies))
	for name := range n.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the map. The resolver uses clones to test
// candidate versions without mutating the snapshot.
func (m *DependencyMap) Clone() *DependencyMap {
	clone := NewDependencyMap()
	for name, node := range m.nodes {
		copied := &PackageNode{
			Name:             name,
			RawVersion:       node.RawVersion,
			InstalledVersion: node.InstalledVersion,
			Dependencies:     make(map[string]pep440.SpecifierSet, len(node.Dependencies)),
			dependents:       make(map[string]bool, len(node.dependents)),
		}
		for dep, set := range node.Dependencies {
			copied.Dependencies[dep] = set
		}
		for dep := range node.dependents {
			copied.dependents[dep] = true
		}
		clone.nodes[name] = copied
	}
	return clone
}

// SetVersion replaces a node's installed version. Used by the resolver's
// validation sweep to virtually apply a plan.
func (m *DependencyMap) SetVersion(name, rawVersion string) {
	node := m.Get(name)
	if node == nil {
		return
	}
	node.RawVersion = rawVersion
	node.InstalledVersion = pep440.Parse(rawVersion)
}

// TopologicalOrder orders the given package names so that packages whose
// dependencies (within the subset) come first. Cycles are broken by name
// order rather than reported: plan application tolerates them.
func (m *DependencyMap) TopologicalOrder(names []string) []string {
	subset := make(map[string]bool, len(names))
	for _, name := range names {
		subset[pep440.Normalize(name)] = true
	}

	// Kahn's algorithm over the induced subgraph.
	inDegree := make(map[string]int, len(subset))
	for name := range subset {
		inDegree[name] = 0
	}
	for name := range subset {
		node := m.nodes[name]
		if node == nil {
			continue
		}
		for dep := range node.Dependencies {
			if subset[dep] && dep != name {
				inDegree[name]++
			}
		}
	}

	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	seen := make(map[string]bool, len(subset))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		result = append(result, name)
		seen[name] = true

		// Lowering the in-degree of dependents within the subset.
		for _, dependent := range m.Dependents(name) {
			if !subset[dependent] || seen[dependent] {
				continue
			}
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
				sort.Strings(queue)
			}
		}
	}

	// Any names still unplaced sit on a cycle; append them in name order.
	if len(result) != len(subset) {
		var remaining []string
		for name := range subset {
			if !seen[name] {
				remaining = append(remaining, name)
			}
		}
		sort.Strings(remaining)
		result = append(result, remaining...)
	}

	return result
}
