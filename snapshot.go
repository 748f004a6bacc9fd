package fieldpath

import "errors"

// ErrNotFound is returned by Snapshot.LookupField when the target's
// type layout has no such field. Resolution treats it as the expected
// FieldMissing outcome, not an error.
var ErrNotFound = errors.New("field not found in target layout")

// Field is a layout snapshot's description of one struct member on the
// current target.
type Field struct {
	// Offset is the byte offset from the start of the containing type.
	// For dotted member paths this is the summed offset of every
	// segment.
	Offset uint32
	// Size is the member size in bytes.
	Size uint32
	// Kind classifies the member: scalar, pointer or embedded struct.
	Kind Kind
	// TypeName names the pointee type for pointers and the member
	// type for embedded structs, so resolution can advance its type
	// cursor. Empty for scalars and for pointers whose pointee is
	// anonymous or void.
	TypeName string
}

// Snapshot is a read-only view of one target build's type layout.
// Implementations live in the layout package; resolution queries a
// snapshot exactly once per descriptor step and never at run time.
type Snapshot interface {
	// LookupField reports the layout of fieldName within typeName.
	// fieldName may be a dotted member path confined to one
	// allocation. Returns ErrNotFound (possibly wrapped) when the
	// field does not exist on this target.
	LookupField(typeName, fieldName string) (Field, error)

	// TypeSize reports the total size of a named type, when known.
	// The verifier gate uses it as the provable bound for every read
	// within that type.
	TypeSize(typeName string) (uint32, bool)

	// Fingerprint identifies this snapshot's contents. Plans record
	// it so that patching against a stale or mismatched snapshot is
	// detected rather than silently miscompiled.
	Fingerprint() string
}
