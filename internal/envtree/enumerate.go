package envtree

import (
	"context"
	"strings"

	"github.com/depfix-tools/depfix/internal/errors"
)

// Runner executes an external command and returns its combined output.
// It is satisfied by pip.ExecRunner; tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (output []byte, err error)
}

// Enumerate runs the external tree enumerator
// (`<interpreter> -m pipdeptree --json-tree`) and returns its raw JSON.
func Enumerate(ctx context.Context, runner Runner, interpreter string) ([]byte, error) {
	output, err := runner.Run(ctx, interpreter, "-m", "pipdeptree", "--json-tree")
	if err != nil {
		return nil, errors.NewTreeError("", "enumerating installed packages (is pipdeptree installed?)", err)
	}
	if strings.TrimSpace(string(output)) == "" {
		return []byte("[]"), nil
	}
	return output, nil
}

// Snapshot enumerates the environment and normalizes it in one step.
func Snapshot(ctx context.Context, runner Runner, interpreter string) (*DependencyMap, []error, error) {
	raw, err := Enumerate(ctx, runner, interpreter)
	if err != nil {
		return nil, nil, err
	}
	depmap, warnings := Normalize(raw)
	return depmap, warnings, nil
}
