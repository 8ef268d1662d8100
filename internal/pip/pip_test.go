package pip

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depfix-tools/depfix/internal/errors"
)

// scriptedRunner records invocations and replays canned responses keyed by
// the joined argument list.
type scriptedRunner struct {
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{
		responses: make(map[string]string),
		errs:      make(map[string]error),
	}
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	key := name + " " + strings.Join(args, " ")
	r.calls = append(r.calls, key)
	return []byte(r.responses[key]), r.errs[key]
}

func TestManager_Install(t *testing.T) {
	runner := newScriptedRunner()
	m := NewManager("python3", runner)

	_, err := m.Install(context.Background(), "requests", "2.32.5")
	require.NoError(t, err)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "python3 -m pip install requests==2.32.5", runner.calls[0])
}

func TestManager_Install_Failure(t *testing.T) {
	runner := newScriptedRunner()
	runner.errs["python3 -m pip install requests==9.9.9"] = fmt.Errorf("exit status 1")
	runner.responses["python3 -m pip install requests==9.9.9"] = "No matching distribution"

	m := NewManager("", runner)
	output, err := m.Install(context.Background(), "requests", "9.9.9")

	assert.Contains(t, string(output), "No matching distribution")
	var execErr *errors.ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "install", execErr.Phase)
	assert.Equal(t, "requests", execErr.Package)
}

func TestManager_Uninstall(t *testing.T) {
	runner := newScriptedRunner()
	m := NewManager("python3", runner)

	_, err := m.Uninstall(context.Background(), "requests")
	require.NoError(t, err)
	assert.Equal(t, "python3 -m pip uninstall -y requests", runner.calls[0])
}

func TestManager_ListInstalled(t *testing.T) {
	runner := newScriptedRunner()
	runner.responses["python3 -m pip list --format json"] =
		`[{"name": "Typing_Extensions", "version": "4.8.0"}, {"name": "requests", "version": "2.26.0"}]`

	m := NewManager("python3", runner)
	installed, err := m.ListInstalled(context.Background())
	require.NoError(t, err)
	require.Len(t, installed, 2)
	assert.Equal(t, "typing-extensions", installed[0].Name)
	assert.Equal(t, "4.8.0", installed[0].Version)
}

func TestManager_ListOutdated(t *testing.T) {
	runner := newScriptedRunner()
	runner.responses["python3 -m pip list --outdated --format json"] =
		`[{"name": "requests", "version": "2.26.0", "latest_version": "2.32.5"}]`

	m := NewManager("python3", runner)
	outdated, err := m.ListOutdated(context.Background())
	require.NoError(t, err)
	require.Len(t, outdated, 1)
	assert.Equal(t, "2.32.5", outdated[0].LatestVersion)
}

func TestManager_ListOutdated_Empty(t *testing.T) {
	runner := newScriptedRunner()
	m := NewManager("python3", runner)

	outdated, err := m.ListOutdated(context.Background())
	require.NoError(t, err)
	assert.Empty(t, outdated)
}

func TestManager_Freeze(t *testing.T) {
	runner := newScriptedRunner()
	runner.responses["python3 -m pip freeze"] = strings.Join([]string{
		"requests==2.26.0",
		"Typing_Extensions==4.8.0",
		"-e git+https://example.test/repo.git#egg=devpkg",
		"",
	}, "\n")

	m := NewManager("python3", runner)
	frozen, err := m.Freeze(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"requests":          "2.26.0",
		"typing-extensions": "4.8.0",
	}, frozen)
}

func TestManager_Check(t *testing.T) {
	runner := newScriptedRunner()
	runner.responses["python3 -m pip check"] = strings.Join([]string{
		"requests 2.26.0 requires urllib3<1.27,>=1.21.1, but you have urllib3 2.2.0.",
		"flask 2.0.0 requires itsdangerous>=2.0, which is not installed.",
		"No broken requirements found.",
	}, "\n")

	m := NewManager("python3", runner)
	conflicts := m.Check(context.Background())
	require.Len(t, conflicts, 2)

	first := conflicts[0]
	assert.Equal(t, "requests", first.Package)
	assert.Equal(t, "2.26.0", first.PackageVersion)
	assert.Equal(t, "urllib3", first.Dependency)
	assert.Equal(t, "2.2.0", first.InstalledVersion)
	assert.Equal(t, "<1.27,>=1.21.1", first.RequiredConstraint)
	assert.False(t, first.NotInstalled)

	second := conflicts[1]
	assert.Equal(t, "flask", second.Package)
	assert.Equal(t, "itsdangerous", second.Dependency)
	assert.Equal(t, ">=2.0", second.RequiredConstraint)
	assert.True(t, second.NotInstalled)
}

func TestManager_Check_CleanEnvironment(t *testing.T) {
	runner := newScriptedRunner()
	runner.responses["python3 -m pip check"] = "No broken requirements found.\n"

	m := NewManager("python3", runner)
	assert.Empty(t, m.Check(context.Background()))
}

func TestManager_Defaults(t *testing.T) {
	m := NewManager("", nil)
	assert.Equal(t, DefaultInterpreter, m.Interpreter())
	assert.NotNil(t, m.Runner())
}
