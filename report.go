package fieldpath

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ReportEntry is the per-descriptor outcome of one load, surfaced so
// operators can map failures to specific kernel-version
// incompatibilities.
type ReportEntry struct {
	// Path is the accessor name.
	Path string `json:"path"`
	// Chain is the arrow-notation rendering of the access chain.
	Chain string `json:"chain"`
	// Status is the resolution outcome.
	Status Status `json:"status"`
	// StepIndex is the failing step index, -1 when resolved.
	StepIndex int `json:"step_index"`
	// Field names the failing step's field, empty when resolved.
	Field string `json:"field,omitempty"`
}

// Report collects the per-descriptor outcomes of one load against one
// layout snapshot.
type Report struct {
	// Fingerprint identifies the snapshot the load resolved against.
	Fingerprint string `json:"fingerprint"`
	// KernelRelease is the target kernel release, when known.
	KernelRelease string `json:"kernel_release,omitempty"`
	// Entries holds one entry per catalog descriptor, in catalog
	// order.
	Entries []ReportEntry `json:"entries"`
}

// NewReport builds a report from resolved plans. The chain text is
// taken from the originating paths, matched by name.
func NewReport(fingerprint, kernelRelease string, paths []AccessPath, plans []Plan) Report {
	chains := make(map[string]string, len(paths))
	for _, p := range paths {
		chains[p.Name()] = p.String()
	}
	r := Report{
		Fingerprint:   fingerprint,
		KernelRelease: kernelRelease,
		Entries:       make([]ReportEntry, 0, len(plans)),
	}
	for _, plan := range plans {
		r.Entries = append(r.Entries, ReportEntry{
			Path:      plan.Path,
			Chain:     chains[plan.Path],
			Status:    plan.Status,
			StepIndex: plan.StepIndex,
			Field:     plan.Field,
		})
	}
	return r
}

// Degraded returns the entries that did not resolve. These accessors
// yield the absent sentinel for every invocation.
func (r Report) Degraded() []ReportEntry {
	var out []ReportEntry
	for _, e := range r.Entries {
		if e.Status != StatusResolved {
			out = append(out, e)
		}
	}
	return out
}

// Mismatched reports whether any entry failed with a type mismatch,
// which suggests a genuine structural incompatibility worth
// investigating rather than ordinary version drift.
func (r Report) Mismatched() bool {
	for _, e := range r.Entries {
		if e.Status == StatusTypeMismatch {
			return true
		}
	}
	return false
}

// JSON renders the report as indented JSON.
func (r Report) JSON() (string, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// String renders a plain-text table of the report, one descriptor per
// line.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "snapshot %s", r.Fingerprint)
	if r.KernelRelease != "" {
		fmt.Fprintf(&b, " (kernel %s)", r.KernelRelease)
	}
	b.WriteByte('\n')
	for _, e := range r.Entries {
		switch e.Status {
		case StatusResolved:
			fmt.Fprintf(&b, "  %-28s %-14s %s\n", e.Path, e.Status, e.Chain)
		default:
			fmt.Fprintf(&b, "  %-28s %-14s %s (step %d: %s)\n", e.Path, e.Status, e.Chain, e.StepIndex, e.Field)
		}
	}
	return b.String()
}
