package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// RuntimeDirs holds all runtime directory paths for fieldpath tools.
//
//	{base}/              - state root
//	{base}/db/           - report database directory
//	{base}/btf/          - per-release BTF override blobs
//	{base}/.lock         - global writer lock file
//
// RuntimeDirs is immutable after construction. Use NewRuntimeDirs to
// create. Fields are unexported to prevent construction of invalid
// instances.
type RuntimeDirs struct {
	base string // state root (e.g., /var/lib/fieldpath)
	db   string // database directory
	btf  string // BTF override directory
	lock string // global writer lock file
}

// DefaultRuntimeDirs returns RuntimeDirs with production defaults.
// Panics if the default path is somehow invalid (should never happen).
func DefaultRuntimeDirs() RuntimeDirs {
	dirs, err := NewRuntimeDirs("/var/lib/fieldpath")
	if err != nil {
		panic(fmt.Sprintf("DefaultRuntimeDirs: %v", err))
	}
	return dirs
}

// NewRuntimeDirs creates RuntimeDirs rooted at the given base path.
// All subdirectories are derived from the base.
//
// Returns an error if base is empty or not an absolute path.
func NewRuntimeDirs(base string) (RuntimeDirs, error) {
	if base == "" {
		return RuntimeDirs{}, fmt.Errorf("base path cannot be empty")
	}
	if !filepath.IsAbs(base) {
		return RuntimeDirs{}, fmt.Errorf("base path must be absolute, got %q", base)
	}
	return RuntimeDirs{
		base: base,
		db:   filepath.Join(base, "db"),
		btf:  filepath.Join(base, "btf"),
		lock: filepath.Join(base, ".lock"),
	}, nil
}

// Getter methods for RuntimeDirs fields.

// Base returns the state root path.
func (d RuntimeDirs) Base() string { return d.base }

// DB returns the database directory path.
func (d RuntimeDirs) DB() string { return d.db }

// BTF returns the BTF override directory path.
func (d RuntimeDirs) BTF() string { return d.btf }

// Lock returns the global writer lock file path.
func (d RuntimeDirs) Lock() string { return d.lock }

// DBPath returns the full path to the SQLite database file.
func (d RuntimeDirs) DBPath() string {
	return filepath.Join(d.db, "reports.db")
}

// BTFPath returns the path of the BTF override blob for a kernel
// release. Operators drop extracted vmlinux BTF here for targets
// whose kernels do not expose /sys/kernel/btf.
func (d RuntimeDirs) BTFPath(release string) string {
	return filepath.Join(d.btf, release+".btf")
}

// EnsureDirectories creates the runtime directories. Call this at
// startup to fail fast on permission or configuration issues.
// MkdirAll is idempotent.
func (d RuntimeDirs) EnsureDirectories() error {
	for _, dir := range []string{d.base, d.db, d.btf} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
