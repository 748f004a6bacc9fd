// Package fieldpath resolves symbolic chains of kernel struct-field
// dereferences into concrete, verifiable memory access plans.
//
// Instrumentation code declares what it wants to read ("task -> mm ->
// exe_file -> f_inode") as an AccessPath. The path is resolved once per
// target against a layout Snapshot, producing a Plan of byte offsets
// that is patched and verified before any accessor may run. Layout
// variability across kernel builds is handled entirely at load time;
// accessors never fail dynamically.
package fieldpath

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a struct field as seen by a descriptor step.
type Kind int

const (
	// KindScalar is a plain integer field. Scalar steps terminate a
	// chain; they cannot be traversed further.
	KindScalar Kind = iota
	// KindPointer is a pointer to another struct. Traversal follows
	// the pointer into the pointee.
	KindPointer
	// KindStruct is a struct embedded by value. Traversal is a flat
	// offset add within the same allocation.
	KindStruct
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindPointer:
		return "pointer"
	case KindStruct:
		return "struct"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses a string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scalar":
		return KindScalar, nil
	case "pointer":
		return KindPointer, nil
	case "struct":
		return KindStruct, nil
	default:
		return KindScalar, fmt.Errorf("unknown field kind: %q", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Step is one link in an access chain: a field name and the kind the
// descriptor expects that field to have on the target.
//
// Field may be a dotted member path (e.g. "f_path.dentry" or
// "uid.val") as long as every segment stays within one allocation;
// pointer hops never occur inside a single step. The layout snapshot
// resolves dotted paths by summing member offsets.
type Step struct {
	Field string `json:"field"`
	Kind  Kind   `json:"kind"`
}

// Result describes the value an access chain produces.
type Result struct {
	// Width is the value width in bytes: 1, 2, 4 or 8.
	Width uint32 `json:"width"`
	// Signed indicates a signed scalar. Ignored for pointers.
	Signed bool `json:"signed,omitempty"`
	// Pointer indicates the chain yields an opaque pointer handle
	// rather than a scalar.
	Pointer bool `json:"pointer,omitempty"`
}

// Scalar result constructors for the widths the catalog uses.
var (
	ResultU16 = Result{Width: 2}
	ResultU32 = Result{Width: 4}
	ResultU64 = Result{Width: 8}
	ResultS32 = Result{Width: 4, Signed: true}
	// ResultPointer is an opaque pointer handle result.
	ResultPointer = Result{Width: pointerWidth, Pointer: true}
)

// pointerWidth is the width of a kernel pointer on every target this
// layer supports.
const pointerWidth = 8

// AccessPath is a build-time declaration of a symbolic dereference
// chain: a root type, an ordered list of steps, and a result type.
//
// AccessPath is immutable after construction and can only be created
// via NewAccessPath, which enforces that the chain is well-formed.
// Violations are construction-time errors, never run-time ones.
type AccessPath struct {
	name     string
	rootType string
	steps    []Step
	result   Result
}

// NewAccessPath creates an AccessPath.
//
// Returns an error if:
//   - name or rootType is empty
//   - steps is empty or contains an empty field name
//   - a non-final step is a scalar (scalars cannot be traversed)
//   - the final step is an embedded struct (chains must terminate in
//     a scalar or pointer, never an unresolved aggregate)
//   - the result disagrees with the final step's kind, or a scalar
//     result has a width other than 1, 2, 4 or 8
func NewAccessPath(name, rootType string, steps []Step, result Result) (AccessPath, error) {
	if name == "" {
		return AccessPath{}, errors.New("name is required")
	}
	if rootType == "" {
		return AccessPath{}, errors.New("rootType is required")
	}
	if len(steps) == 0 {
		return AccessPath{}, errors.New("at least one step is required")
	}
	for i, step := range steps {
		if step.Field == "" {
			return AccessPath{}, fmt.Errorf("step %d: field name is required", i)
		}
		for _, seg := range strings.Split(step.Field, ".") {
			if seg == "" {
				return AccessPath{}, fmt.Errorf("step %d: malformed field path %q", i, step.Field)
			}
		}
		final := i == len(steps)-1
		if !final && step.Kind == KindScalar {
			return AccessPath{}, fmt.Errorf("step %d (%s): scalar cannot be traversed further", i, step.Field)
		}
		if final && step.Kind == KindStruct {
			return AccessPath{}, fmt.Errorf("step %d (%s): chain must end in a scalar or pointer, not an embedded struct", i, step.Field)
		}
	}
	finalKind := steps[len(steps)-1].Kind
	if result.Pointer != (finalKind == KindPointer) {
		return AccessPath{}, fmt.Errorf("result disagrees with final step kind %s", finalKind)
	}
	if result.Pointer && result.Width != pointerWidth {
		return AccessPath{}, fmt.Errorf("pointer result must have width %d, got %d", pointerWidth, result.Width)
	}
	switch result.Width {
	case 1, 2, 4, 8:
	default:
		return AccessPath{}, fmt.Errorf("invalid result width: %d", result.Width)
	}
	return AccessPath{
		name:     name,
		rootType: rootType,
		steps:    append([]Step(nil), steps...),
		result:   result,
	}, nil
}

// mustAccessPath is NewAccessPath for compile-time constant chains.
// Panics on a malformed chain, which is a programming error.
func mustAccessPath(name, rootType string, steps []Step, result Result) AccessPath {
	p, err := NewAccessPath(name, rootType, steps, result)
	if err != nil {
		panic(fmt.Sprintf("fieldpath: invalid access path %s: %v", name, err))
	}
	return p
}

// Getters for AccessPath fields.

// Name returns the accessor name this path backs.
func (p AccessPath) Name() string { return p.name }

// RootType returns the name of the starting structure.
func (p AccessPath) RootType() string { return p.rootType }

// Steps returns a copy of the ordered dereference steps.
func (p AccessPath) Steps() []Step { return append([]Step(nil), p.steps...) }

// Result returns the result type of the chain.
func (p AccessPath) Result() Result { return p.result }

// String renders the chain in arrow notation for diagnostics.
func (p AccessPath) String() string {
	var b strings.Builder
	b.WriteString(p.rootType)
	for _, s := range p.steps {
		b.WriteString(" -> ")
		b.WriteString(s.Field)
	}
	return b.String()
}

// accessPathJSON is the JSON representation of AccessPath.
// This allows AccessPath to have private fields while still being
// serializable.
type accessPathJSON struct {
	Name     string `json:"name"`
	RootType string `json:"root_type"`
	Steps    []Step `json:"steps"`
	Result   Result `json:"result"`
}

// MarshalJSON implements json.Marshaler.
func (p AccessPath) MarshalJSON() ([]byte, error) {
	return json.Marshal(accessPathJSON{
		Name:     p.name,
		RootType: p.rootType,
		Steps:    p.steps,
		Result:   p.result,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
// Deserialized paths are re-validated through the constructor; a
// stored descriptor that no longer validates is corrupt.
func (p *AccessPath) UnmarshalJSON(data []byte) error {
	var js accessPathJSON
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}
	parsed, err := NewAccessPath(js.Name, js.RootType, js.Steps, js.Result)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
