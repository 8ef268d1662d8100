package lockfile

import (
	"github.com/depfix-tools/depfix/internal/envtree"
	"github.com/depfix-tools/depfix/internal/resolver"
)

// Diff computes the plan that brings the current environment to the locked
// state: entries missing from the environment are installed, entries at a
// different version are changed, and, when prune is set, installed
// packages absent from the lock are uninstalled.
//
// Restore is idempotent: diffing a matching environment yields an empty
// plan. Items come out sorted by name (installs and changes first, prunes
// last) so restores are deterministic.
func Diff(lock *LockFile, depmap *envtree.DependencyMap, prune bool) *resolver.Plan {
	plan := &resolver.Plan{}

	locked := make(map[string]bool, len(lock.Entries))
	for _, entry := range lock.Entries {
		locked[entry.Name] = true

		node := depmap.Get(entry.Name)
		switch {
		case node == nil || node.RawVersion == "":
			plan.Items = append(plan.Items, resolver.ResolutionItem{
				Package:       entry.Name,
				TargetVersion: entry.Version,
			})
		case node.RawVersion != entry.Version:
			plan.Items = append(plan.Items, resolver.ResolutionItem{
				Package:        entry.Name,
				CurrentVersion: node.RawVersion,
				TargetVersion:  entry.Version,
			})
		}
	}

	if prune {
		for _, name := range depmap.Names() {
			node := depmap.Get(name)
			if node.RawVersion == "" || locked[name] {
				continue
			}
			plan.Items = append(plan.Items, resolver.ResolutionItem{
				Package:        name,
				CurrentVersion: node.RawVersion,
				Uninstall:      true,
			})
		}
	}

	return plan
}
