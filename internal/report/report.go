// Package report renders conflict scans and resolution plans in human and
// machine-readable form. The JSON document is the authoritative interface
// for automation; the text layout is for terminals.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/depfix-tools/depfix/internal/executor"
	"github.com/depfix-tools/depfix/internal/resolver"
)

// Summary aggregates the counts automation cares about.
type Summary struct {
	ConflictCount   int `json:"conflict_count"`
	ResolvableCount int `json:"resolvable_count"`
}

// Report is the machine-readable result document.
type Report struct {
	Conflicts  []resolver.Conflict       `json:"conflicts"`
	Plan       []resolver.ResolutionItem `json:"plan"`
	Unsolvable []resolver.Unsolvable     `json:"unsolvable"`
	Summary    Summary                   `json:"summary"`
}

// New assembles a report from a scan and an optional plan. All arrays are
// emitted in sorted order (plan items keep their application order), so
// two runs over the same snapshot produce byte-identical documents.
func New(conflicts []resolver.Conflict, plan *resolver.Plan) *Report {
	r := &Report{
		Conflicts:  append([]resolver.Conflict{}, conflicts...),
		Plan:       []resolver.ResolutionItem{},
		Unsolvable: []resolver.Unsolvable{},
	}

	sort.SliceStable(r.Conflicts, func(i, j int) bool {
		if r.Conflicts[i].Parent != r.Conflicts[j].Parent {
			return r.Conflicts[i].Parent < r.Conflicts[j].Parent
		}
		return r.Conflicts[i].Dependency < r.Conflicts[j].Dependency
	})

	if plan != nil {
		r.Plan = append(r.Plan, plan.Items...)
		r.Unsolvable = append(r.Unsolvable, plan.Unsolvable...)
		sort.SliceStable(r.Unsolvable, func(i, j int) bool {
			return r.Unsolvable[i].Package < r.Unsolvable[j].Package
		})
	}

	r.Summary = Summary{
		ConflictCount:   len(r.Conflicts),
		ResolvableCount: len(r.Plan),
	}
	return r
}

// JSON renders the canonical document with a trailing LF.
func (r *Report) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

// WriteConflicts renders the scan result for terminals.
func WriteConflicts(w io.Writer, conflicts []resolver.Conflict) {
	if len(conflicts) == 0 {
		fmt.Fprintf(w, "%s No dependency conflicts found!\n", green("✓"))
		return
	}

	fmt.Fprintf(w, "\n%s Found %d dependency %s:\n\n",
		red("✗"), len(conflicts), plural(len(conflicts), "conflict"))

	for i, c := range conflicts {
		fmt.Fprintf(w, "%d. Package: %s (v%s)\n", i+1, c.Parent, c.ParentVersion)
		fmt.Fprintf(w, "   Dependency: %s\n", c.Dependency)
		if c.InstalledVersion != "" {
			fmt.Fprintf(w, "   Installed: %s\n", c.InstalledVersion)
		}
		fmt.Fprintf(w, "   Required: %s\n", c.RequiredConstraint)
		fmt.Fprintf(w, "   Type: %s\n\n", c.Kind)
	}
}

// WritePlan renders the resolution plan for terminals.
func WritePlan(w io.Writer, plan *resolver.Plan) {
	if plan.Empty() && len(plan.Unsolvable) == 0 {
		fmt.Fprintln(w, "No resolutions available")
		return
	}

	if !plan.Empty() {
		fmt.Fprintf(w, "\n%s Resolution plan (%d %s to update):\n\n",
			cyan("→"), len(plan.Items), plural(len(plan.Items), "package"))

		for i, item := range plan.Items {
			fmt.Fprintf(w, "%d. %s\n", i+1, item.Package)
			if item.Uninstall {
				fmt.Fprintf(w, "   Current: %s\n", item.CurrentVersion)
				fmt.Fprintf(w, "   Target:  (uninstall)\n")
			} else {
				current := item.CurrentVersion
				if current == "" {
					current = "(not installed)"
				}
				fmt.Fprintf(w, "   Current: %s\n", current)
				fmt.Fprintf(w, "   Target:  %s\n", item.TargetVersion)
			}
			if len(item.Satisfies) > 0 {
				fmt.Fprintf(w, "   Conflicts: %d\n", len(item.Satisfies))
			}
			fmt.Fprintln(w)
		}
	}

	for _, u := range plan.Unsolvable {
		fmt.Fprintf(w, "%s %s: %s\n", yellow("!"), u.Package, u.Reason)
	}
}

// WriteExecution renders the outcome of applying a plan.
func WriteExecution(w io.Writer, result *executor.Result) {
	if result.DryRun {
		fmt.Fprintf(w, "%s Dry run: no changes made.\n", cyan("→"))
		return
	}

	failed := result.Failed()
	for _, applied := range result.Applied {
		if applied.Err != nil {
			fmt.Fprintf(w, "%s %s: %v\n", red("✗"), applied.Item.Package, applied.Err)
			continue
		}
		if applied.Item.Uninstall {
			fmt.Fprintf(w, "%s Uninstalled %s\n", green("✓"), applied.Item.Package)
		} else {
			fmt.Fprintf(w, "%s Updated %s to %s\n", green("✓"), applied.Item.Package, applied.Item.TargetVersion)
		}
	}

	if len(failed) > 0 {
		fmt.Fprintf(w, "\n%s %d of %d %s failed\n",
			red("✗"), len(failed), len(result.Applied), plural(len(result.Applied), "item"))
	} else if len(result.Applied) > 0 {
		fmt.Fprintf(w, "\n%s All fixes applied successfully!\n", green("✓"))
	}
}

// LockAge renders a lock document's generated_at stamp as a relative time
// ("3 days ago"). Unparseable stamps come back verbatim.
func LockAge(generatedAt string) string {
	ts, err := time.Parse(time.RFC3339, generatedAt)
	if err != nil {
		return generatedAt
	}
	return humanize.Time(ts)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
