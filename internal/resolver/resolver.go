package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/depfix-tools/depfix/internal/envtree"
	"github.com/depfix-tools/depfix/pkg/pep440"
)

// Index is the slice of the package index the resolver needs. It is
// satisfied by index.Client; tests substitute a fake.
type Index interface {
	Versions(ctx context.Context, name string) ([]*pep440.Version, error)
	Requires(ctx context.Context, name, version string) ([]string, error)
}

// ResolutionItem is one version change in a plan.
type ResolutionItem struct {
	// Package is the normalized package to change.
	Package string `json:"package"`

	// CurrentVersion is the installed version being replaced. Empty when
	// the package is absent (restore-driven installs).
	CurrentVersion string `json:"current_version"`

	// TargetVersion is the version to install.
	TargetVersion string `json:"resolved_version"`

	// Satisfies lists the conflicts this change resolves.
	Satisfies []Conflict `json:"conflicts"`

	// Uninstall marks a removal-only item (restore with pruning).
	Uninstall bool `json:"uninstall,omitempty"`
}

// Plan is an ordered sequence of resolution items plus the buckets that
// could not be satisfied. Items are applied in order.
type Plan struct {
	Items      []ResolutionItem `json:"items"`
	Unsolvable []Unsolvable     `json:"unsolvable"`
}

// Empty reports whether the plan changes nothing.
func (p *Plan) Empty() bool {
	return p == nil || len(p.Items) == 0
}

// Resolver computes resolution plans from detected conflicts.
type Resolver struct {
	index Index
}

// NewResolver creates a resolver over the given index client.
func NewResolver(idx Index) *Resolver {
	return &Resolver{index: idx}
}

// Resolve groups conflicts by dependency, picks the least disruptive
// satisfying version per bucket, and assembles an ordered plan. Buckets
// with no satisfying candidate, missing packages, or index failures are
// reported as unsolvable; the pass continues past them.
func (r *Resolver) Resolve(ctx context.Context, depmap *envtree.DependencyMap, conflicts []Conflict) (*Plan, error) {
	plan := &Plan{}

	buckets := groupByDependency(conflicts)
	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, depName := range names {
		if err := ctx.Err(); err != nil {
			return plan, err
		}

		bucket := buckets[depName]
		item, unsolvable := r.resolveBucket(ctx, depmap, depName, bucket)
		if unsolvable != nil {
			plan.Unsolvable = append(plan.Unsolvable, *unsolvable)
			continue
		}
		plan.Items = append(plan.Items, *item)
	}

	r.orderItems(depmap, plan)
	r.validate(depmap, plan, conflicts)
	return plan, nil
}

// groupByDependency buckets conflicts by their target dependency.
func groupByDependency(conflicts []Conflict) map[string][]Conflict {
	buckets := make(map[string][]Conflict)
	for _, c := range conflicts {
		buckets[c.Dependency] = append(buckets[c.Dependency], c)
	}
	return buckets
}

// resolveBucket picks a target version for one dependency bucket.
func (r *Resolver) resolveBucket(ctx context.Context, depmap *envtree.DependencyMap, depName string, bucket []Conflict) (*ResolutionItem, *Unsolvable) {
	node := depmap.Get(depName)
	if node == nil || node.RawVersion == "" {
		return nil, &Unsolvable{
			Package:   depName,
			Reason:    "not installed; installing new packages is out of scope",
			Conflicts: bucket,
		}
	}

	combined := r.combinedSpecifiers(depmap, depName, bucket)

	candidates, err := r.index.Versions(ctx, depName)
	if err != nil {
		return nil, &Unsolvable{
			Package:   depName,
			Reason:    fmt.Sprintf("index lookup failed: %v", err),
			Conflicts: bucket,
		}
	}

	var satisfying []*pep440.Version
	for _, candidate := range candidates {
		if combined.Satisfies(candidate) {
			satisfying = append(satisfying, candidate)
		}
	}
	if len(satisfying) == 0 {
		return nil, &Unsolvable{
			Package:   depName,
			Reason:    fmt.Sprintf("no available version satisfies %s", combined.String()),
			Conflicts: bucket,
		}
	}

	best := r.rankCandidates(ctx, depmap, depName, node.InstalledVersion, satisfying)
	return &ResolutionItem{
		Package:        depName,
		CurrentVersion: node.RawVersion,
		TargetVersion:  best.String(),
		Satisfies:      bucket,
	}, nil
}

// combinedSpecifiers intersects every constraint on the dependency: the
// bucket's own required sets plus the edge sets of every other package in
// the graph that depends on it. Satisfied parents are folded in
// unconditionally so the fix cannot break a sibling.
func (r *Resolver) combinedSpecifiers(depmap *envtree.DependencyMap, depName string, bucket []Conflict) pep440.SpecifierSet {
	var combined pep440.SpecifierSet
	seen := make(map[string]bool)

	for _, parentName := range depmap.Dependents(depName) {
		parent := depmap.Get(parentName)
		if set, ok := parent.Dependencies[pep440.Normalize(depName)]; ok {
			combined = combined.Intersect(set)
			seen[parentName] = true
		}
	}

	// Conflicts may come from outside the graph (the pip check fallback);
	// fold in any whose parent edge was not walked above.
	for _, c := range bucket {
		if !seen[c.Parent] {
			combined = combined.Intersect(c.Required)
		}
	}

	return combined
}

// rankCandidates orders satisfying candidates and returns the best one:
// fewest newly induced conflicts first, then the smallest class of change
// from the installed version (a patch-level move beats a minor-level move
// beats a major-level move), then upgrades over downgrades, then the
// highest version.
func (r *Resolver) rankCandidates(ctx context.Context, depmap *envtree.DependencyMap, depName string, current *pep440.Version, satisfying []*pep440.Version) *pep440.Version {
	type scored struct {
		version *pep440.Version
		induced int
		change  int
		upgrade bool
	}

	ranked := make([]scored, len(satisfying))
	for i, candidate := range satisfying {
		ranked[i] = scored{
			version: candidate,
			induced: r.inducedConflicts(ctx, depmap, depName, candidate),
			change:  changeClass(candidate, current),
			upgrade: candidate.GreaterThan(current),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.induced != b.induced {
			return a.induced < b.induced
		}
		if a.change != b.change {
			return a.change < b.change
		}
		if a.upgrade != b.upgrade {
			return a.upgrade
		}
		return a.version.GreaterThan(b.version)
	})

	return ranked[0].version
}

// changeClass buckets the weighted release distance into change magnitude:
// 0 same release, 1 patch-level, 2 minor-level, 3 major-level.
func changeClass(candidate, current *pep440.Version) int {
	switch d := candidate.Distance(current); {
	case d >= 1_000_000:
		return 3
	case d >= 1_000:
		return 2
	case d > 0:
		return 1
	default:
		return 0
	}
}

// inducedConflicts estimates how many currently satisfied edges would
// break if the candidate were installed, by checking the candidate's own
// declared requirements against installed versions. Extra-gated
// requirements are skipped: optional extras are not installed
// requirements. An index failure scores zero; no information is not
// evidence of breakage.
func (r *Resolver) inducedConflicts(ctx context.Context, depmap *envtree.DependencyMap, depName string, candidate *pep440.Version) int {
	requires, err := r.index.Requires(ctx, depName, candidate.String())
	if err != nil {
		return 0
	}

	induced := 0
	for _, raw := range requires {
		req, err := pep440.ParseRequirement(raw)
		if err != nil || req.ExtraGated || req.Specifiers.Empty() {
			continue
		}
		installed := depmap.Get(req.Name)
		if installed == nil || installed.RawVersion == "" {
			continue
		}
		if !req.Specifiers.Satisfies(installed.InstalledVersion) {
			induced++
		}
	}
	return induced
}

// orderItems sorts the plan topologically so packages with no resolved
// dependencies are applied first; cycles break by name order.
func (r *Resolver) orderItems(depmap *envtree.DependencyMap, plan *Plan) {
	if len(plan.Items) < 2 {
		return
	}

	names := make([]string, len(plan.Items))
	byName := make(map[string]ResolutionItem, len(plan.Items))
	for i, item := range plan.Items {
		names[i] = item.Package
		byName[item.Package] = item
	}

	ordered := depmap.TopologicalOrder(names)
	plan.Items = plan.Items[:0]
	for _, name := range ordered {
		plan.Items = append(plan.Items, byName[name])
	}
}

// validate virtually applies the plan and re-runs the detector. Any
// conflict not present in the original scan demotes the responsible item
// to unsolvable and removes it from the plan.
func (r *Resolver) validate(depmap *envtree.DependencyMap, plan *Plan, original []Conflict) {
	if plan.Empty() {
		return
	}

	known := make(map[string]bool, len(original))
	for _, c := range original {
		known[c.key()] = true
	}

	patched := depmap.Clone()
	for _, item := range plan.Items {
		patched.SetVersion(item.Package, item.TargetVersion)
	}

	inPlan := make(map[string]bool, len(plan.Items))
	for _, item := range plan.Items {
		inPlan[item.Package] = true
	}

	evicted := make(map[string][]Conflict)
	for _, c := range Detect(patched) {
		if known[c.key()] {
			continue
		}
		// Attribute the new conflict to the plan item that causes it:
		// the changed dependency itself, or the changed parent.
		switch {
		case inPlan[c.Dependency]:
			evicted[c.Dependency] = append(evicted[c.Dependency], c)
		case inPlan[c.Parent]:
			evicted[c.Parent] = append(evicted[c.Parent], c)
		}
	}
	if len(evicted) == 0 {
		return
	}

	kept := plan.Items[:0]
	for _, item := range plan.Items {
		introduced, bad := evicted[item.Package]
		if !bad {
			kept = append(kept, item)
			continue
		}
		plan.Unsolvable = append(plan.Unsolvable, Unsolvable{
			Package: item.Package,
			Reason: fmt.Sprintf("choosing %s would introduce %d new conflict(s)",
				item.TargetVersion, len(introduced)),
			Conflicts: append(item.Satisfies, introduced...),
		})
	}
	plan.Items = kept

	sort.Slice(plan.Unsolvable, func(i, j int) bool {
		return plan.Unsolvable[i].Package < plan.Unsolvable[j].Package
	})
}
