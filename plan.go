package fieldpath

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the outcome of resolving an AccessPath against a layout
// snapshot.
type Status int

const (
	// StatusResolved means every step was found with a matching kind
	// and the plan carries one concrete op per step.
	StatusResolved Status = iota
	// StatusFieldMissing means a step's field does not exist on this
	// target. Expected, non-fatal version drift: the accessor degrades
	// to always-absent.
	StatusFieldMissing
	// StatusTypeMismatch means a step's field exists but its kind
	// contradicts the descriptor. A structural change the descriptor
	// was not written to tolerate; the accessor degrades to
	// always-absent but the condition is logged distinctly.
	StatusTypeMismatch
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusFieldMissing:
		return "field-missing"
	case StatusTypeMismatch:
		return "type-mismatch"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus parses a string into a Status.
func ParseStatus(str string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "resolved":
		return StatusResolved, nil
	case "field-missing":
		return StatusFieldMissing, nil
	case "type-mismatch":
		return StatusTypeMismatch, nil
	default:
		return StatusResolved, fmt.Errorf("unknown plan status: %q", str)
	}
}

// MarshalJSON implements json.Marshaler.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Op is one concrete memory operation in a resolved plan.
type Op struct {
	// Offset is the byte offset of the field within its containing
	// region.
	Offset uint32 `json:"offset"`
	// Width is the read width in bytes. Always 8 for dereferences.
	Width uint32 `json:"width"`
	// Dereference marks a pointer follow: the loaded value becomes
	// the base of the next op. Non-dereference intermediate ops are
	// flat offset adds within the same allocation.
	Dereference bool `json:"dereference,omitempty"`
	// Bound is the statically known size of the containing region,
	// captured at resolve time. The verifier gate proves
	// Offset+Width <= Bound; zero means unknown and therefore
	// unprovable.
	Bound uint32 `json:"bound"`
}

// Plan is a Resolved Access Plan: the per-target compilation of one
// AccessPath into concrete offsets. Plans are computed once during
// load and are immutable thereafter.
//
// Invariant: if Status is StatusResolved, len(Ops) equals the step
// count of the originating path; otherwise len(Ops) == StepIndex and
// Field names the step that failed.
type Plan struct {
	// Path is the name of the AccessPath this plan was resolved from.
	Path string `json:"path"`
	// Status is the resolution outcome.
	Status Status `json:"status"`
	// StepIndex is the index of the failing step, or -1 when resolved.
	StepIndex int `json:"step_index"`
	// Field is the field name of the failing step, empty when resolved.
	Field string `json:"field,omitempty"`
	// Result is the declared result type, carried through for the
	// patcher and accessors.
	Result Result `json:"result"`
	// Ops is the concrete operation sequence.
	Ops []Op `json:"ops,omitempty"`
	// Fingerprint identifies the layout snapshot this plan was
	// resolved against. The patcher refuses to apply a plan against
	// any other snapshot.
	Fingerprint string `json:"fingerprint"`
}

// Resolved reports whether the plan resolved fully.
func (p Plan) Resolved() bool { return p.Status == StatusResolved }
