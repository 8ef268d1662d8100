// Package executor applies resolution plans by driving the package
// manager, one item at a time.
package executor

import (
	"context"
	"fmt"
	"io"

	"github.com/depfix-tools/depfix/internal/pip"
	"github.com/depfix-tools/depfix/internal/resolver"
)

// ItemResult records the outcome of applying one plan item.
type ItemResult struct {
	// Item is the plan item that was applied.
	Item resolver.ResolutionItem

	// Err is the failure, if any. Application is best-effort: a failed
	// item does not stop the remaining items.
	Err error

	// Output is the package manager's combined output for diagnostics.
	Output string
}

// Result summarizes a plan application.
type Result struct {
	// Applied holds one entry per attempted item, in plan order.
	Applied []ItemResult

	// DryRun marks a run that printed intentions without side effects.
	DryRun bool
}

// Failed returns the results of items that failed.
func (r *Result) Failed() []ItemResult {
	var failed []ItemResult
	for _, item := range r.Applied {
		if item.Err != nil {
			failed = append(failed, item)
		}
	}
	return failed
}

// Executor applies plans through the pip adapter.
type Executor struct {
	manager *pip.Manager
	dryRun  bool
	out     io.Writer
}

// NewExecutor creates a plan executor. The writer receives dry-run
// intentions and may be nil to discard them.
func NewExecutor(manager *pip.Manager, dryRun bool, out io.Writer) *Executor {
	if out == nil {
		out = io.Discard
	}
	return &Executor{
		manager: manager,
		dryRun:  dryRun,
		out:     out,
	}
}

// Execute applies the plan in order. Each change is an uninstall of the
// current version followed by an install of the exact target. Failures are
// recorded per item and the remaining items still run. Cancellation is
// checked between items; a canceled run returns the partial result along
// with the context error.
func (e *Executor) Execute(ctx context.Context, plan *resolver.Plan) (*Result, error) {
	result := &Result{DryRun: e.dryRun}
	if plan.Empty() {
		return result, nil
	}

	for _, item := range plan.Items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if e.dryRun {
			e.printIntent(item)
			result.Applied = append(result.Applied, ItemResult{Item: item})
			continue
		}

		result.Applied = append(result.Applied, e.applyItem(ctx, item))
	}

	return result, nil
}

// applyItem performs the uninstall/install sequence for one item.
func (e *Executor) applyItem(ctx context.Context, item resolver.ResolutionItem) ItemResult {
	applied := ItemResult{Item: item}

	// Only uninstall when something is installed to remove.
	if item.CurrentVersion != "" || item.Uninstall {
		output, err := e.manager.Uninstall(ctx, item.Package)
		applied.Output += string(output)
		if err != nil {
			applied.Err = err
			return applied
		}
	}

	if item.Uninstall {
		return applied
	}

	output, err := e.manager.Install(ctx, item.Package, item.TargetVersion)
	applied.Output += string(output)
	if err != nil {
		applied.Err = err
	}
	return applied
}

// printIntent writes the would-be invocations for one item.
func (e *Executor) printIntent(item resolver.ResolutionItem) {
	interp := e.manager.Interpreter()
	if item.CurrentVersion != "" || item.Uninstall {
		fmt.Fprintf(e.out, "would run: %s -m pip uninstall -y %s\n", interp, item.Package)
	}
	if !item.Uninstall {
		fmt.Fprintf(e.out, "would run: %s -m pip install %s==%s\n", interp, item.Package, item.TargetVersion)
	}
}
