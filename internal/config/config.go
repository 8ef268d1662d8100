package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ConfigFileName is the optional configuration file loaded from the
// working directory.
const ConfigFileName = "depfix.hcl"

// Config represents the depfix.hcl file structure. Every field has a
// sensible default; a missing file yields DefaultConfig().
type Config struct {
	// Index configures the package index client.
	Index *IndexBlock `hcl:"index,block"`

	// Python configures the interpreter used for pip and the enumerator.
	Python *PythonBlock `hcl:"python,block"`

	// Lockstores defines named remote lock snapshot stores.
	Lockstores []LockstoreBlock `hcl:"lockstore,block"`
}

// IndexBlock configures the package index client.
type IndexBlock struct {
	// URL is the index JSON API root.
	URL string `hcl:"url,optional"`

	// RequestIntervalMS is the minimum spacing between index requests in
	// milliseconds.
	RequestIntervalMS int `hcl:"request_interval_ms,optional"`

	// CacheDir enables the on-disk response cache at the given directory.
	// A leading "~/" expands to the user's home directory.
	CacheDir string `hcl:"cache_dir,optional"`
}

// PythonBlock configures the Python interpreter.
type PythonBlock struct {
	// Interpreter is the executable used to drive pip and the enumerator.
	Interpreter string `hcl:"interpreter,optional"`
}

// LockstoreBlock defines a named lock snapshot store.
type LockstoreBlock struct {
	// Name is the unique identifier for this store.
	Name string `hcl:"name,label"`

	// URL is the store location (file://, https://, s3://, az://).
	URL string `hcl:"url,attr"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Index:  &IndexBlock{},
		Python: &PythonBlock{},
	}
}

// Load reads depfix.hcl from the given directory. A missing file is not an
// error: the defaults apply.
func Load(dir string) (*Config, error) {
	filename := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := NewParser()
	file, diags := parser.ParseFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %s", filename, diags.Error())
	}

	ctx := NewEvalContext()
	var cfg Config
	diags = DecodeBody(file.Body, ctx, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %s", filename, diags.Error())
	}

	if cfg.Index == nil {
		cfg.Index = &IndexBlock{}
	}
	if cfg.Python == nil {
		cfg.Python = &PythonBlock{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", filename, err)
	}
	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Index != nil && c.Index.RequestIntervalMS < 0 {
		return fmt.Errorf("index.request_interval_ms cannot be negative")
	}

	storeNames := make(map[string]bool)
	for _, store := range c.Lockstores {
		if store.Name == "" {
			return fmt.Errorf("lockstore name is required")
		}
		if storeNames[store.Name] {
			return fmt.Errorf("duplicate lockstore name: %s", store.Name)
		}
		storeNames[store.Name] = true

		if store.URL == "" {
			return fmt.Errorf("lockstore %q must have a url", store.Name)
		}
	}

	return nil
}

// RequestInterval returns the configured index request spacing, or -1 when
// unset so the client default applies.
func (c *Config) RequestInterval() time.Duration {
	if c.Index == nil || c.Index.RequestIntervalMS == 0 {
		return -1
	}
	return time.Duration(c.Index.RequestIntervalMS) * time.Millisecond
}

// Interpreter returns the configured Python interpreter, or the empty
// string when unset.
func (c *Config) Interpreter() string {
	if c.Python == nil {
		return ""
	}
	return c.Python.Interpreter
}

// IndexURL returns the configured index root, or the empty string.
func (c *Config) IndexURL() string {
	if c.Index == nil {
		return ""
	}
	return c.Index.URL
}

// CacheDir returns the configured cache directory with "~/" expanded, or
// the empty string when the on-disk cache is disabled.
func (c *Config) CacheDir() string {
	if c.Index == nil || c.Index.CacheDir == "" {
		return ""
	}
	dir := c.Index.CacheDir
	if strings.HasPrefix(dir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, dir[2:])
		}
	}
	return dir
}

// Lockstore resolves a --store/--from argument: a configured store name or
// a literal URL. The empty string resolves to nothing.
func (c *Config) Lockstore(nameOrURL string) (string, bool) {
	if nameOrURL == "" {
		return "", false
	}
	for _, store := range c.Lockstores {
		if store.Name == nameOrURL {
			return store.URL, true
		}
	}
	if strings.Contains(nameOrURL, "://") || strings.ContainsAny(nameOrURL, "/\\") {
		return nameOrURL, true
	}
	return "", false
}
