// Package patch turns resolved access plans into concrete memory
// operations and gates them behind whole-program static verification.
//
// A Program collects every plan destined for one load. Apply verifies
// the complete set atomically: either every patched access is proven
// in-bounds and the instruction streams are returned, or the whole
// program is rejected and no accessor becomes runnable. Plans that
// failed resolution are substituted with a fixed always-absent stub so
// the rest of the program stays usable.
package patch

import (
	"fmt"
	"math"

	"github.com/cilium/ebpf/asm"

	"github.com/frobware/go-fieldpath"
)

// maxDereferenceDepth is the longest pointer chain the verifier will
// track through a single accessor. The deepest catalog chain is three
// hops; anything past this limit is unprovable.
const maxDereferenceDepth = 8

// Program is the set of plans assembled for one load.
type Program struct {
	plans []fieldpath.Plan
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{}
}

// Add appends a plan to the program. Plans with any resolution status
// are accepted; non-resolved plans patch to the absent stub.
func (p *Program) Add(plan fieldpath.Plan) {
	p.plans = append(p.plans, plan)
}

// Plans returns the plans in insertion order.
func (p *Program) Plans() []fieldpath.Plan {
	return append([]fieldpath.Plan(nil), p.plans...)
}

// Verify proves every resolved plan's accesses safe, as one atomic
// check over the whole program. A nil return means the program is
// accepted; any error means the entire load is rejected and none of
// its accessors may run.
//
// Rejection reasons:
//   - a plan was resolved against a different snapshot than the one
//     being loaded (stale layout, must never be silently miscompiled)
//   - an op's containing region has no provable size
//   - an op's offset plus width exceeds the region bound
//   - an op's offset does not fit the instruction it patches into
//   - a dereference op is not pointer-width
//   - a pointer chain exceeds the tracked depth
func (p *Program) Verify(snap fieldpath.Snapshot) error {
	fingerprint := snap.Fingerprint()
	for _, plan := range p.plans {
		if plan.Fingerprint != fingerprint {
			return fieldpath.SnapshotSkewError{
				Path:                plan.Path,
				PlanFingerprint:     plan.Fingerprint,
				SnapshotFingerprint: fingerprint,
			}
		}
		if !plan.Resolved() {
			continue
		}
		depth := 0
		for i, op := range plan.Ops {
			if op.Width == 0 {
				return fieldpath.VerificationError{Path: plan.Path, OpIndex: i, Reason: "zero-width read"}
			}
			if op.Bound == 0 {
				return fieldpath.VerificationError{Path: plan.Path, OpIndex: i, Reason: "containing region has no provable size"}
			}
			if op.Offset+op.Width > op.Bound {
				return fieldpath.VerificationError{
					Path:    plan.Path,
					OpIndex: i,
					Reason:  fmt.Sprintf("read [%d,%d) exceeds region bound %d", op.Offset, op.Offset+op.Width, op.Bound),
				}
			}
			// Load displacements are 16-bit; offset adds are 32-bit
			// immediates. Truncating either would patch a wrong-offset
			// access.
			load := op.Dereference || i == len(plan.Ops)-1
			if load && op.Offset > math.MaxInt16 {
				return fieldpath.VerificationError{
					Path:    plan.Path,
					OpIndex: i,
					Reason:  fmt.Sprintf("offset %d does not fit the load displacement", op.Offset),
				}
			}
			if !load && op.Offset > math.MaxInt32 {
				return fieldpath.VerificationError{
					Path:    plan.Path,
					OpIndex: i,
					Reason:  fmt.Sprintf("offset %d does not fit the offset-add immediate", op.Offset),
				}
			}
			if op.Dereference {
				if op.Width != 8 {
					return fieldpath.VerificationError{Path: plan.Path, OpIndex: i, Reason: "dereference must be pointer-width"}
				}
				depth++
				if depth > maxDereferenceDepth {
					return fieldpath.VerificationError{
						Path:    plan.Path,
						OpIndex: i,
						Reason:  fmt.Sprintf("pointer chain depth %d exceeds tracked limit %d", depth, maxDereferenceDepth),
					}
				}
			}
		}
	}
	return nil
}

// Apply verifies the whole program against the snapshot and, on
// acceptance, returns the patched instruction stream for every
// accessor, keyed by name. On rejection nothing is returned: there is
// no partial activation.
func (p *Program) Apply(snap fieldpath.Snapshot) (map[string]asm.Instructions, error) {
	if err := p.Verify(snap); err != nil {
		return nil, err
	}
	patched := make(map[string]asm.Instructions, len(p.plans))
	for _, plan := range p.plans {
		patched[plan.Path] = Instructions(plan)
	}
	return patched, nil
}

// Instructions emits the concrete memory operations for one plan.
//
// The root-structure handle arrives in R1 and the result leaves in R0.
// Dereference ops are pointer-width follows guarded by a null check
// that bails out to the absent result; embedded-struct ops fold into a
// flat offset add; the final op loads the result at its declared
// width. Plans that did not resolve emit the absent stub.
func Instructions(plan fieldpath.Plan) asm.Instructions {
	if !plan.Resolved() {
		return absentStub()
	}

	const absent = "absent"
	insns := asm.Instructions{}
	base := asm.R1
	guarded := false
	for i, op := range plan.Ops {
		if i == len(plan.Ops)-1 {
			insns = append(insns, asm.LoadMem(asm.R0, base, int16(op.Offset), sizeFor(op.Width)))
			continue
		}
		if op.Dereference {
			insns = append(insns,
				asm.LoadMem(base, base, int16(op.Offset), asm.DWord),
				asm.JEq.Imm(base, 0, absent),
			)
			guarded = true
		} else if op.Offset != 0 {
			insns = append(insns, asm.Add.Imm(base, int32(op.Offset)))
		}
	}
	insns = append(insns, asm.Return())
	if guarded {
		insns = append(insns,
			asm.Mov.Imm(asm.R0, 0).WithSymbol(absent),
			asm.Return(),
		)
	}
	return insns
}

// absentStub is the fixed substitute for accessors whose plan did not
// resolve: always yields the absent result, never touches memory.
func absentStub() asm.Instructions {
	return asm.Instructions{
		asm.Mov.Imm(asm.R0, 0),
		asm.Return(),
	}
}

// sizeFor maps a byte width onto an instruction load size.
func sizeFor(width uint32) asm.Size {
	switch width {
	case 1:
		return asm.Byte
	case 2:
		return asm.Half
	case 4:
		return asm.Word
	default:
		return asm.DWord
	}
}
