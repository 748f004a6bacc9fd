// Package probe is the accessor library: the small set of named,
// typed reads that instrumentation code invokes per event.
//
// Accessors are built once from verified plans and are immutable and
// stateless thereafter. Each invocation is a pure read: no allocation,
// no retry, bounded by the plan's op count. An accessor whose plan did
// not resolve returns the absent sentinel for every input.
package probe

import (
	"encoding/binary"
	"io"
	"sort"

	"golang.org/x/sys/unix"

	"github.com/frobware/go-fieldpath"
)

// Value is a read result: either a concrete scalar or pointer handle,
// or the absent sentinel. The zero Value is absent.
//
// Values carry raw bits exactly as read from target memory. Fields
// stored in network byte order (socket addresses, ports) pass through
// verbatim; conversion is the caller's responsibility.
type Value struct {
	bits    uint64
	width   uint8
	signed  bool
	pointer bool
	present bool
}

// Absent returns the absent sentinel.
func Absent() Value { return Value{} }

// Present reports whether the value carries data.
func (v Value) Present() bool { return v.present }

// Uint64 returns the raw bits zero-extended to 64 bits.
func (v Value) Uint64() uint64 { return v.bits }

// Uint32 returns the low 32 bits.
func (v Value) Uint32() uint32 { return uint32(v.bits) }

// Uint16 returns the low 16 bits.
func (v Value) Uint16() uint16 { return uint16(v.bits) }

// Int32 returns the low 32 bits reinterpreted as signed.
func (v Value) Int32() int32 { return int32(uint32(v.bits)) }

// Int64 returns the value sign-extended from its read width when the
// descriptor declared a signed result, zero-extended otherwise.
func (v Value) Int64() int64 {
	if !v.signed {
		return int64(v.bits)
	}
	shift := 64 - uint(v.width)*8
	return int64(v.bits<<shift) >> shift
}

// Pointer returns the value as an opaque downstream handle address.
func (v Value) Pointer() uint64 { return v.bits }

// IsInet reports whether the value is a present address family equal
// to AF_INET.
func (v Value) IsInet() bool { return v.present && v.Uint16() == unix.AF_INET }

// IsInet6 reports whether the value is a present address family equal
// to AF_INET6.
func (v Value) IsInet6() bool { return v.present && v.Uint16() == unix.AF_INET6 }

// Accessor binds one access plan to a callable read. Created by Build
// after the verifier gate accepted the program; never mutated.
type Accessor struct {
	name string
	plan fieldpath.Plan
}

// Name returns the accessor name.
func (a *Accessor) Name() string { return a.name }

// Resolved reports whether the underlying plan resolved on this
// target. Unresolved accessors return Absent for every input.
func (a *Accessor) Resolved() bool { return a.plan.Resolved() }

// Read executes the plan against the opaque root-structure handle:
// an address space and a validated base address supplied by the
// calling layer. The caller guarantees the handle is alive for the
// duration of the call; this layer does not re-validate it.
//
// A null pointer hop or an unreadable address yields Absent, never an
// error: all variability was handled at load time.
func (a *Accessor) Read(mem io.ReaderAt, base uint64) Value {
	if !a.plan.Resolved() {
		return Absent()
	}

	var buf [8]byte
	ops := a.plan.Ops
	for i, op := range ops {
		addr := base + uint64(op.Offset)
		if i == len(ops)-1 {
			b := buf[:op.Width]
			if _, err := mem.ReadAt(b, int64(addr)); err != nil {
				return Absent()
			}
			bits := load(b)
			// A null final pointer is no value, same as a null hop.
			if a.plan.Result.Pointer && bits == 0 {
				return Absent()
			}
			return Value{
				bits:    bits,
				width:   uint8(op.Width),
				signed:  a.plan.Result.Signed,
				pointer: a.plan.Result.Pointer,
				present: true,
			}
		}
		if op.Dereference {
			if _, err := mem.ReadAt(buf[:8], int64(addr)); err != nil {
				return Absent()
			}
			ptr := binary.NativeEndian.Uint64(buf[:8])
			if ptr == 0 {
				return Absent()
			}
			base = ptr
		} else {
			base = addr
		}
	}
	return Absent()
}

// load reads a scalar at its native width with no byte-order
// conversion.
func load(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.NativeEndian.Uint16(b))
	case 4:
		return uint64(binary.NativeEndian.Uint32(b))
	default:
		return binary.NativeEndian.Uint64(b)
	}
}

// Library is the accessor set produced by one successful load. It
// exists for the program's entire running lifetime; concurrent reads
// are safe because accessors share no mutable state.
type Library struct {
	accessors map[string]*Accessor
}

// Build creates the library from the plans of a gate-accepted
// program. Callers must only pass plans that went through
// patch.Program.Apply; Build itself performs no verification.
func Build(plans []fieldpath.Plan) *Library {
	lib := &Library{accessors: make(map[string]*Accessor, len(plans))}
	for _, plan := range plans {
		lib.accessors[plan.Path] = &Accessor{name: plan.Path, plan: plan}
	}
	return lib
}

// Accessor returns the named accessor.
func (l *Library) Accessor(name string) (*Accessor, bool) {
	a, ok := l.accessors[name]
	return a, ok
}

// Names returns the accessor names in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.accessors))
	for name := range l.accessors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *Library) read(name string, mem io.ReaderAt, base uint64) Value {
	a, ok := l.accessors[name]
	if !ok {
		return Absent()
	}
	return a.Read(mem, base)
}
