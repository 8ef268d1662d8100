// Package lockfile captures the exact installed set as a canonical lock
// document and reconstructs environments from it.
//
// The lock file is stored at requirements.lock.json by default and pins
// exact versions of every installed distribution, so a restore produces
// identical environments across machines and times.
package lockfile

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/depfix-tools/depfix/internal/envtree"
	"github.com/depfix-tools/depfix/internal/errors"
)

const (
	// SchemaVersion is the current lock document format version.
	SchemaVersion = 1

	// DefaultLockFileName is the default lock file name.
	DefaultLockFileName = "requirements.lock.json"
)

// LockEntry pins one installed distribution. JSON fields are declared in
// alphabetical order; with sorted map keys this makes the marshaled
// document canonical.
type LockEntry struct {
	// Dependencies maps dependency names to the raw specifier string of
	// the outbound edge. Unconstrained edges carry the empty string.
	Dependencies map[string]string `json:"dependencies"`

	// Name is the normalized distribution name.
	Name string `json:"name"`

	// Version is the exact installed version.
	Version string `json:"version"`
}

// LockFile is the canonical snapshot document.
type LockFile struct {
	// Entries are the locked distributions, ascending by name.
	Entries []LockEntry `json:"entries"`

	// GeneratedAt is the snapshot time in ISO-8601 UTC.
	GeneratedAt string `json:"generated_at"`

	// SchemaVersion is the document format version.
	SchemaVersion int `json:"schema_version"`
}

// Snapshot captures the environment behind a dependency map. Entries come
// out sorted by name; only packages with a known installed version are
// locked (a name that appears solely as an unsatisfied edge target has
// nothing to pin).
func Snapshot(depmap *envtree.DependencyMap, now time.Time) *LockFile {
	lock := &LockFile{
		GeneratedAt:   now.UTC().Format(time.RFC3339),
		SchemaVersion: SchemaVersion,
	}

	for _, name := range depmap.Names() {
		node := depmap.Get(name)
		if node.RawVersion == "" {
			continue
		}

		deps := make(map[string]string, len(node.Dependencies))
		for dep, set := range node.Dependencies {
			deps[dep] = set.String()
		}

		lock.Entries = append(lock.Entries, LockEntry{
			Dependencies: deps,
			Name:         name,
			Version:      node.RawVersion,
		})
	}

	return lock
}

// Marshal renders the canonical document: two-space indent, sorted keys,
// trailing LF.
func (l *LockFile) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Write stores the document at the given path.
func (l *LockFile) Write(path string) error {
	data, err := l.Marshal()
	if err != nil {
		return errors.NewLockError(path, "write", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewLockError(path, "write", err)
	}
	return nil
}

// Read loads and validates a lock document from disk.
func Read(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewLockError(path, "read", err)
	}
	return Parse(path, data)
}

// Parse decodes a lock document. The path parameter only labels errors.
func Parse(path string, data []byte) (*LockFile, error) {
	var lock LockFile
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, errors.NewLockError(path, "parse", err)
	}
	if lock.SchemaVersion != SchemaVersion {
		return nil, errors.NewLockError(path, "parse",
			errors.New("unsupported schema_version"))
	}

	// Hand-edited documents may arrive unsorted; canonical order is
	// ascending by name.
	sort.Slice(lock.Entries, func(i, j int) bool {
		return lock.Entries[i].Name < lock.Entries[j].Name
	})
	return &lock, nil
}

// Entry returns the entry for a name, or nil.
func (l *LockFile) Entry(name string) *LockEntry {
	for i := range l.Entries {
		if l.Entries[i].Name == name {
			return &l.Entries[i]
		}
	}
	return nil
}
