// Package manager orchestrates one load: resolve the full access-path
// catalog against a layout snapshot, patch and verify the program
// atomically, and hand back the accessor library plus a per-descriptor
// report.
//
// All layout variability is settled here, at load time. Accessors
// returned from a successful load never fail dynamically; descriptors
// that did not resolve degrade to always-absent and are reported so
// operators can trace them to a kernel version.
package manager

import (
	"context"
	"log/slog"

	"github.com/frobware/go-fieldpath"
	"github.com/frobware/go-fieldpath/patch"
	"github.com/frobware/go-fieldpath/probe"
	"github.com/frobware/go-fieldpath/store"
)

// Options configures a Manager.
type Options struct {
	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger
	// Store, when set, records the resolution report of every load.
	// A store failure degrades to a warning; it never fails the load.
	Store store.Store
	// KernelRelease annotates reports with the target kernel release,
	// when known.
	KernelRelease string
	// Paths overrides the access-path catalog. Nil means the full
	// built-in vocabulary.
	Paths []fieldpath.AccessPath
}

// Manager performs loads. Stateless between calls; safe for
// concurrent use.
type Manager struct {
	logger  *slog.Logger
	store   store.Store
	release string
	paths   []fieldpath.AccessPath
}

// New creates a Manager.
func New(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	paths := opts.Paths
	if paths == nil {
		paths = fieldpath.Catalog()
	}
	return &Manager{
		logger:  logger.With("component", "manager"),
		store:   opts.Store,
		release: opts.KernelRelease,
		paths:   paths,
	}
}

// Load resolves the catalog against the snapshot, verifies the whole
// program, and returns the accessor library and the per-descriptor
// report.
//
// FieldMissing and TypeMismatch outcomes are not errors: the affected
// accessors degrade to always-absent and the load proceeds. A
// verification rejection is an error for the entire load: the report
// is still returned for diagnostics, but no library is, and no
// accessor becomes callable.
func (m *Manager) Load(ctx context.Context, snap fieldpath.Snapshot) (*probe.Library, fieldpath.Report, error) {
	plans := fieldpath.ResolveAll(m.paths, snap)
	report := fieldpath.NewReport(snap.Fingerprint(), m.release, m.paths, plans)

	for _, plan := range plans {
		switch plan.Status {
		case fieldpath.StatusResolved:
			m.logger.Debug("resolved access path",
				"path", plan.Path, "ops", len(plan.Ops))
		case fieldpath.StatusFieldMissing:
			// Expected on targets that predate or dropped the field.
			m.logger.Debug("field missing on this target",
				"path", plan.Path, "step", plan.StepIndex, "field", plan.Field)
		case fieldpath.StatusTypeMismatch:
			m.logger.Warn("field kind contradicts descriptor",
				"path", plan.Path, "step", plan.StepIndex, "field", plan.Field)
		}
	}

	program := patch.NewProgram()
	for _, plan := range plans {
		program.Add(plan)
	}
	if _, err := program.Apply(snap); err != nil {
		m.logger.Error("program verification rejected", "error", err)
		return nil, report, err
	}

	if m.store != nil {
		if err := m.store.SaveReport(ctx, report); err != nil {
			m.logger.Warn("failed to record resolution report", "error", err)
		}
	}

	degraded := len(report.Degraded())
	m.logger.Info("program loaded",
		"fingerprint", snap.Fingerprint(),
		"accessors", len(plans),
		"degraded", degraded)

	return probe.Build(plans), report, nil
}
