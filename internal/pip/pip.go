// Package pip adapts the external package manager behind a small
// subprocess interface: install, uninstall, and environment listings.
package pip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/depfix-tools/depfix/internal/errors"
	"github.com/depfix-tools/depfix/pkg/pep440"
)

// DefaultInterpreter is the Python interpreter used to drive pip and the
// tree enumerator when none is configured.
const DefaultInterpreter = "python3"

// Runner executes an external command and returns its combined
// stdout/stderr. The error is non-nil for spawn failures and non-zero
// exits; the output is returned either way for diagnostics.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes the command and returns its combined output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

// Installed is one entry from the package manager's installed listing.
type Installed struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Outdated is one entry from the package manager's outdated listing.
type Outdated struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	LatestVersion string `json:"latest_version"`
}

// Manager drives pip through the configured interpreter.
type Manager struct {
	interpreter string
	runner      Runner
}

// NewManager creates a pip adapter. An empty interpreter selects the
// default; a nil runner selects ExecRunner.
func NewManager(interpreter string, runner Runner) *Manager {
	if interpreter == "" {
		interpreter = DefaultInterpreter
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Manager{
		interpreter: interpreter,
		runner:      runner,
	}
}

// Interpreter returns the configured Python interpreter.
func (m *Manager) Interpreter() string {
	return m.interpreter
}

// Runner returns the underlying subprocess runner, for collaborators that
// spawn their own tools through the same seam.
func (m *Manager) Runner() Runner {
	return m.runner
}

// Install installs an exact version of a package.
func (m *Manager) Install(ctx context.Context, name, version string) ([]byte, error) {
	spec := fmt.Sprintf("%s==%s", name, version)
	output, err := m.runner.Run(ctx, m.interpreter, "-m", "pip", "install", spec)
	if err != nil {
		return output, errors.NewExecError(name, "install", err)
	}
	return output, nil
}

// Uninstall removes a package without prompting.
func (m *Manager) Uninstall(ctx context.Context, name string) ([]byte, error) {
	output, err := m.runner.Run(ctx, m.interpreter, "-m", "pip", "uninstall", "-y", name)
	if err != nil {
		return output, errors.NewExecError(name, "uninstall", err)
	}
	return output, nil
}

// ListInstalled returns the installed packages with normalized names.
func (m *Manager) ListInstalled(ctx context.Context) ([]Installed, error) {
	output, err := m.runner.Run(ctx, m.interpreter, "-m", "pip", "list", "--format", "json")
	if err != nil {
		return nil, errors.NewExecError("", "list", err)
	}

	var installed []Installed
	if err := json.Unmarshal(bytes.TrimSpace(output), &installed); err != nil {
		return nil, errors.NewExecError("", "list", err)
	}
	for i := range installed {
		installed[i].Name = pep440.Normalize(installed[i].Name)
	}
	return installed, nil
}

// ListOutdated returns packages with a newer release available.
func (m *Manager) ListOutdated(ctx context.Context) ([]Outdated, error) {
	output, err := m.runner.Run(ctx, m.interpreter, "-m", "pip", "list", "--outdated", "--format", "json")
	if err != nil {
		return nil, errors.NewExecError("", "list", err)
	}

	trimmed := bytes.TrimSpace(output)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var outdated []Outdated
	if err := json.Unmarshal(trimmed, &outdated); err != nil {
		return nil, errors.NewExecError("", "list", err)
	}
	for i := range outdated {
		outdated[i].Name = pep440.Normalize(outdated[i].Name)
	}
	return outdated, nil
}

// Freeze returns the exact installed set as name->version, parsed from
// `pip freeze` output. Editable installs and direct references are skipped.
func (m *Manager) Freeze(ctx context.Context) (map[string]string, error) {
	output, err := m.runner.Run(ctx, m.interpreter, "-m", "pip", "freeze")
	if err != nil {
		return nil, errors.NewExecError("", "freeze", err)
	}

	frozen := make(map[string]string)
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		name, version, found := strings.Cut(line, "==")
		if !found || name == "" || version == "" {
			continue
		}
		frozen[pep440.Normalize(name)] = strings.TrimSpace(version)
	}
	return frozen, nil
}
