package envtree

import (
	"encoding/json"
	"fmt"
	"strings"
)

// graphNode is the serialized form of one package for graph output.
type graphNode struct {
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
	Dependents   []string          `json:"dependents"`
}

// GraphJSON renders the dependency map as a JSON document keyed by package
// name, with each node's installed version, outbound constraints, and
// dependents. Keys are emitted sorted, so output is deterministic.
func (m *DependencyMap) GraphJSON() ([]byte, error) {
	graph := make(map[string]graphNode, m.Len())
	for _, name := range m.Names() {
		node := m.Get(name)
		deps := make(map[string]string, len(node.Dependencies))
		for dep, set := range node.Dependencies {
			deps[dep] = set.String()
		}
		graph[name] = graphNode{
			Version:      node.RawVersion,
			Dependencies: deps,
			Dependents:   m.Dependents(name),
		}
	}
	return json.MarshalIndent(graph, "", "  ")
}

// GraphDOT renders the dependency map in Graphviz DOT form.
func (m *DependencyMap) GraphDOT() string {
	var sb strings.Builder
	sb.WriteString("digraph deps {\n")
	for _, name := range m.Names() {
		node := m.Get(name)
		for _, dep := range node.DependencyNames() {
			sb.WriteString(fmt.Sprintf("  %q -> %q;\n", name, dep))
		}
	}
	sb.WriteString("}")
	return sb.String()
}
