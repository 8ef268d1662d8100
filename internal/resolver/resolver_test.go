package resolver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depfix-tools/depfix/internal/envtree"
	"github.com/depfix-tools/depfix/pkg/pep440"
)

// fakeIndex serves canned version lists and requires_dist entries.
type fakeIndex struct {
	versions map[string][]string
	requires map[string][]string
	errs     map[string]error
}

func (f *fakeIndex) Versions(_ context.Context, name string) ([]*pep440.Version, error) {
	name = pep440.Normalize(name)
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	return pep440.SortStrings(f.versions[name]), nil
}

func (f *fakeIndex) Requires(_ context.Context, name, version string) ([]string, error) {
	return f.requires[pep440.Normalize(name)+"=="+version], nil
}

// buildMap constructs a DependencyMap from (parent, version) nodes and
// (parent, dep, constraint) edges.
func buildMap(t *testing.T, nodes map[string]string, edges [][3]string) *envtree.DependencyMap {
	t.Helper()
	depmap := envtree.NewDependencyMap()
	for name, version := range nodes {
		depmap.Add(name, version)
	}
	for _, edge := range edges {
		set, err := pep440.ParseSpecifierSet(edge[2])
		require.NoError(t, err)
		depmap.AddEdge(edge[0], edge[1], set)
	}
	return depmap
}

func TestDetect_VersionMismatch(t *testing.T) {
	depmap := buildMap(t,
		map[string]string{"app-a": "1.0.0", "requests": "2.26.0"},
		[][3]string{{"app-a", "requests", ">=2.28.0"}},
	)

	conflicts := Detect(depmap)
	require.Len(t, conflicts, 1)

	c := conflicts[0]
	assert.Equal(t, "app-a", c.Parent)
	assert.Equal(t, "1.0.0", c.ParentVersion)
	assert.Equal(t, "requests", c.Dependency)
	assert.Equal(t, "2.26.0", c.InstalledVersion)
	assert.Equal(t, ">=2.28.0", c.RequiredConstraint)
	assert.Equal(t, KindVersionMismatch, c.Kind)
}

func TestDetect_SatisfiedEdgeProducesNothing(t *testing.T) {
	depmap := buildMap(t,
		map[string]string{"app-a": "1.0.0", "requests": "2.28.0"},
		[][3]string{{"app-a", "requests", ">=2.27"}},
	)
	assert.Empty(t, Detect(depmap))
}

func TestDetect_NotInstalled(t *testing.T) {
	depmap := buildMap(t,
		map[string]string{"app-a": "1.0.0"},
		[][3]string{{"app-a", "ghost", ">=1.0"}},
	)

	conflicts := Detect(depmap)
	require.Len(t, conflicts, 1)
	assert.Equal(t, KindNotInstalled, conflicts[0].Kind)
	assert.Equal(t, "ghost", conflicts[0].Dependency)
	assert.Empty(t, conflicts[0].InstalledVersion)
}

func TestDetect_UnparseableVersion(t *testing.T) {
	depmap := buildMap(t,
		map[string]string{"app-a": "1.0.0", "weird": "not.a.version.at.all"},
		[][3]string{{"app-a", "weird", ">=1.0"}},
	)

	conflicts := Detect(depmap)
	require.Len(t, conflicts, 1)
	assert.Equal(t, KindUnparseableVersion, conflicts[0].Kind)
}

func TestDetect_UnconstrainedEdgeNeverConflicts(t *testing.T) {
	// Scenario: the enumerator reported "Any", filtered to the empty set.
	// Even an unparseable installed version produces no conflict then.
	depmap := buildMap(t,
		map[string]string{"app-a": "1.0.0", "free": "total junk"},
		[][3]string{{"app-a", "free", ""}},
	)
	assert.Empty(t, Detect(depmap))
}

func TestDetect_Deterministic(t *testing.T) {
	depmap := buildMap(t,
		map[string]string{"zz": "1.0", "aa": "1.0", "dep": "1.0"},
		[][3]string{
			{"zz", "dep", ">=2.0"},
			{"aa", "dep", ">=3.0"},
		},
	)

	first := Detect(depmap)
	second := Detect(depmap)
	require.Equal(t, first, second)

	// Sorted by parent name.
	assert.Equal(t, "aa", first[0].Parent)
	assert.Equal(t, "zz", first[1].Parent)
}

func TestResolve_SingleUpgradeResolvesTwoParents(t *testing.T) {
	// Installed requests 2.26.0; parent A requires >=2.28.0, parent B
	// requires >=2.27. The newest satisfying candidate wins.
	depmap := buildMap(t,
		map[string]string{"a": "1.0", "b": "1.0", "requests": "2.26.0"},
		[][3]string{
			{"a", "requests", ">=2.28.0"},
			{"b", "requests", ">=2.27"},
		},
	)
	idx := &fakeIndex{
		versions: map[string][]string{
			"requests": {"2.26.0", "2.27.1", "2.28.0", "2.32.5"},
		},
	}

	conflicts := Detect(depmap)
	require.Len(t, conflicts, 2)

	plan, err := NewResolver(idx).Resolve(context.Background(), depmap, conflicts)
	require.NoError(t, err)
	require.Empty(t, plan.Unsolvable)
	require.Len(t, plan.Items, 1)

	item := plan.Items[0]
	assert.Equal(t, "requests", item.Package)
	assert.Equal(t, "2.26.0", item.CurrentVersion)
	assert.Equal(t, "2.32.5", item.TargetVersion)
	assert.Len(t, item.Satisfies, 2)

	// Post-plan scan yields zero conflicts.
	patched := depmap.Clone()
	patched.SetVersion("requests", item.TargetVersion)
	assert.Empty(t, Detect(patched))
}

func TestResolve_Unsolvable(t *testing.T) {
	// X requires pkg<2, Y requires pkg>=2; no version can satisfy both.
	depmap := buildMap(t,
		map[string]string{"x": "1.0", "y": "1.0", "pkg": "1.9"},
		[][3]string{
			{"x", "pkg", "<2"},
			{"y", "pkg", ">=2"},
		},
	)
	idx := &fakeIndex{
		versions: map[string][]string{"pkg": {"1.9", "2.0"}},
	}

	conflicts := Detect(depmap)
	require.Len(t, conflicts, 1, "only y's edge is unsatisfied")

	plan, err := NewResolver(idx).Resolve(context.Background(), depmap, conflicts)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	require.Len(t, plan.Unsolvable, 1)
	assert.Equal(t, "pkg", plan.Unsolvable[0].Package)
	assert.Contains(t, plan.Unsolvable[0].Reason, "no available version satisfies")
}

func TestResolve_NotInstalledIsUnsolvable(t *testing.T) {
	depmap := buildMap(t,
		map[string]string{"a": "1.0"},
		[][3]string{{"a", "ghost", ">=1.0"}},
	)
	idx := &fakeIndex{versions: map[string][]string{"ghost": {"1.0"}}}

	plan, err := NewResolver(idx).Resolve(context.Background(), depmap, Detect(depmap))
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	require.Len(t, plan.Unsolvable, 1)
	assert.Contains(t, plan.Unsolvable[0].Reason, "out of scope")
}

func TestResolve_IndexFailureIsUnsolvable(t *testing.T) {
	depmap := buildMap(t,
		map[string]string{"a": "1.0", "pkg": "1.0"},
		[][3]string{{"a", "pkg", ">=2.0"}},
	)
	idx := &fakeIndex{
		errs: map[string]error{"pkg": fmt.Errorf("connection refused")},
	}

	plan, err := NewResolver(idx).Resolve(context.Background(), depmap, Detect(depmap))
	require.NoError(t, err)
	require.Len(t, plan.Unsolvable, 1)
	assert.Contains(t, plan.Unsolvable[0].Reason, "index lookup failed")
}

func TestResolve_SiblingConstraintsFoldIn(t *testing.T) {
	// The conflicting parent wants >=2.0, but a satisfied sibling pins
	// <3. The 3.0 candidate must lose to 2.5 despite being newer.
	depmap := buildMap(t,
		map[string]string{"needy": "1.0", "pinner": "1.0", "pkg": "1.5"},
		[][3]string{
			{"needy", "pkg", ">=2.0"},
			{"pinner", "pkg", "<3"},
		},
	)
	idx := &fakeIndex{
		versions: map[string][]string{"pkg": {"1.5", "2.5", "3.0"}},
	}

	plan, err := NewResolver(idx).Resolve(context.Background(), depmap, Detect(depmap))
	require.NoError(t, err)
	require.Len(t, plan.Items, 1)
	assert.Equal(t, "2.5", plan.Items[0].TargetVersion)
}

func TestResolve_MinimizeChangeBeatsNewest(t *testing.T) {
	// Both 2.0.1 and 3.0.0 satisfy >2.0.0; 2.0.1 is closer to the
	// installed 2.0.0.
	depmap := buildMap(t,
		map[string]string{"a": "1.0", "pkg": "2.0.0"},
		[][3]string{{"a", "pkg", ">2.0.0"}},
	)
	idx := &fakeIndex{
		versions: map[string][]string{"pkg": {"2.0.1", "3.0.0"}},
	}

	plan, err := NewResolver(idx).Resolve(context.Background(), depmap, Detect(depmap))
	require.NoError(t, err)
	require.Len(t, plan.Items, 1)
	assert.Equal(t, "2.0.1", plan.Items[0].TargetVersion)
}

func TestResolve_PreferUpgradeAmongEquidistant(t *testing.T) {
	depmap := buildMap(t,
		map[string]string{"a": "1.0", "pkg": "2.1.0"},
		[][3]string{{"a", "pkg", "!=2.1.0"}},
	)
	idx := &fakeIndex{
		versions: map[string][]string{"pkg": {"2.0.0", "2.2.0"}},
	}

	plan, err := NewResolver(idx).Resolve(context.Background(), depmap, Detect(depmap))
	require.NoError(t, err)
	require.Len(t, plan.Items, 1)
	assert.Equal(t, "2.2.0", plan.Items[0].TargetVersion, "upgrade wins over equidistant downgrade")
}

func TestResolve_SideEffectsDemoteCandidate(t *testing.T) {
	// pkg 3.0 would require helper>=2, breaking the installed helper 1.0.
	// pkg 2.9 declares nothing and wins despite 3.0 ranking first by
	// recency.
	depmap := buildMap(t,
		map[string]string{"a": "1.0", "pkg": "1.0", "helper": "1.0"},
		[][3]string{{"a", "pkg", ">=2.9"}},
	)
	idx := &fakeIndex{
		versions: map[string][]string{"pkg": {"2.9", "3.0"}},
		requires: map[string][]string{
			"pkg==3.0": {"helper>=2"},
		},
	}

	plan, err := NewResolver(idx).Resolve(context.Background(), depmap, Detect(depmap))
	require.NoError(t, err)
	require.Len(t, plan.Items, 1)
	assert.Equal(t, "2.9", plan.Items[0].TargetVersion)
}

func TestResolve_ExtraGatedRequirementsIgnored(t *testing.T) {
	depmap := buildMap(t,
		map[string]string{"a": "1.0", "pkg": "1.0", "socks": "1.0"},
		[][3]string{{"a", "pkg", ">=2.0"}},
	)
	idx := &fakeIndex{
		versions: map[string][]string{"pkg": {"2.0"}},
		requires: map[string][]string{
			"pkg==2.0": {`socks>=9.0; extra == "proxy"`},
		},
	}

	plan, err := NewResolver(idx).Resolve(context.Background(), depmap, Detect(depmap))
	require.NoError(t, err)
	require.Len(t, plan.Items, 1, "extra-gated requirements do not count as induced conflicts")
	assert.Equal(t, 0, NewResolver(idx).inducedConflicts(context.Background(), depmap, "pkg", pep440.MustParse("2.0")),
		"extra-gated requirements do not count as induced conflicts")
}

func TestResolve_CombinedSetBlocksBreakingCandidate(t *testing.T) {
	// watcher's edge (<2) is satisfied by the installed 1.5 and would be
	// violated by the only candidate that helps a. Folding satisfied
	// parents in unconditionally leaves no candidate at all.
	depmap := buildMap(t,
		map[string]string{"a": "1.0", "watcher": "1.0", "pkg": "1.5"},
		[][3]string{
			{"a", "pkg", ">=2.0"},
			{"watcher", "pkg", "<2"},
		},
	)
	idx := &fakeIndex{versions: map[string][]string{"pkg": {"2.0"}}}

	plan, err := NewResolver(idx).Resolve(context.Background(), depmap, Detect(depmap))
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	require.Len(t, plan.Unsolvable, 1)
	assert.Equal(t, "pkg", plan.Unsolvable[0].Package)
}

func TestValidate_EvictsItemThatIntroducesConflicts(t *testing.T) {
	// The sweep is the backstop for constraints the bucket never saw.
	// Hand it a plan whose item violates a live edge and it must demote
	// the item to unsolvable.
	depmap := buildMap(t,
		map[string]string{"watcher": "1.0", "pkg": "1.5"},
		[][3]string{{"watcher", "pkg", "<2"}},
	)

	plan := &Plan{
		Items: []ResolutionItem{
			{Package: "pkg", CurrentVersion: "1.5", TargetVersion: "2.0"},
		},
	}

	NewResolver(nil).validate(depmap, plan, nil)

	assert.True(t, plan.Empty())
	require.Len(t, plan.Unsolvable, 1)
	assert.Equal(t, "pkg", plan.Unsolvable[0].Package)
	assert.Contains(t, plan.Unsolvable[0].Reason, "would introduce")
	require.Len(t, plan.Unsolvable[0].Conflicts, 1)
	assert.Equal(t, KindVersionMismatch, plan.Unsolvable[0].Conflicts[0].Kind)
}

func TestResolve_PlanOrderIsTopological(t *testing.T) {
	// lib depends on base; both need fixing. base applies first.
	depmap := buildMap(t,
		map[string]string{"app": "1.0", "lib": "1.0", "base": "1.0"},
		[][3]string{
			{"app", "lib", ">=2.0"},
			{"app", "base", ">=2.0"},
			{"lib", "base", ""},
		},
	)
	idx := &fakeIndex{
		versions: map[string][]string{
			"lib":  {"2.0"},
			"base": {"2.0"},
		},
	}

	plan, err := NewResolver(idx).Resolve(context.Background(), depmap, Detect(depmap))
	require.NoError(t, err)
	require.Len(t, plan.Items, 2)
	assert.Equal(t, "base", plan.Items[0].Package)
	assert.Equal(t, "lib", plan.Items[1].Package)
}

func TestResolve_Cancellation(t *testing.T) {
	depmap := buildMap(t,
		map[string]string{"a": "1.0", "pkg": "1.0"},
		[][3]string{{"a", "pkg", ">=2.0"}},
	)
	idx := &fakeIndex{versions: map[string][]string{"pkg": {"2.0"}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewResolver(idx).Resolve(ctx, depmap, Detect(depmap))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnsolvableError_Formatting(t *testing.T) {
	err := &UnsolvableError{
		Unsolvable: []Unsolvable{
			{
				Package: "pkg",
				Reason:  "no available version satisfies <2,>=2",
				Conflicts: []Conflict{
					{Parent: "x", ParentVersion: "1.0", Dependency: "pkg",
						InstalledVersion: "1.9", RequiredConstraint: "<2", Kind: KindVersionMismatch},
				},
			},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "pkg")
	assert.Contains(t, msg, "no available version satisfies")
	assert.Contains(t, msg, "but you have pkg 1.9")
}
