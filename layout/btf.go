package layout

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/cilium/ebpf/btf"
	"golang.org/x/sys/unix"

	"github.com/frobware/go-fieldpath"
)

// BTF is a Snapshot backed by BTF type information, the production
// layout source. Lookups walk struct members, descending into
// anonymous struct and union members the way the compiler would, and
// resolve dotted member paths by summing offsets.
//
// Bitfield and non-byte-aligned members are reported as not found:
// degrading the accessor to absent is preferable to emitting a
// sub-byte read the verifier gate cannot bound.
type BTF struct {
	spec        *btf.Spec
	fingerprint string
}

// FromSpec wraps an already-loaded BTF spec. The fingerprint must
// uniquely identify the spec's contents; plans resolved against this
// snapshot can only be patched against the same fingerprint.
func FromSpec(spec *btf.Spec, fingerprint string) *BTF {
	return &BTF{spec: spec, fingerprint: fingerprint}
}

// LoadFile reads BTF from a raw blob on disk (e.g. an extracted
// vmlinux BTF section). The fingerprint is a hash of the file
// contents.
func LoadFile(path string) (*BTF, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read BTF %s: %w", path, err)
	}
	spec, err := btf.LoadSpecFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse BTF %s: %w", path, err)
	}
	sum := sha256.Sum256(raw)
	return FromSpec(spec, "btf:"+hex.EncodeToString(sum[:8])), nil
}

// LoadKernel reads the running kernel's BTF from
// /sys/kernel/btf/vmlinux. The fingerprint is the kernel release,
// which is stable for the lifetime of the boot.
func LoadKernel() (*BTF, error) {
	spec, err := btf.LoadKernelSpec()
	if err != nil {
		return nil, fmt.Errorf("load kernel BTF: %w", err)
	}
	release, err := KernelRelease()
	if err != nil {
		return nil, err
	}
	return FromSpec(spec, "kernel:"+release), nil
}

// KernelRelease returns the running kernel's release string.
func KernelRelease() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}
	return unix.ByteSliceToString(uts.Release[:]), nil
}

// LookupField implements fieldpath.Snapshot.
func (b *BTF) LookupField(typeName, fieldName string) (fieldpath.Field, error) {
	comp, err := b.composite(typeName)
	if err != nil {
		return fieldpath.Field{}, err
	}

	var total uint32
	current := comp
	segments := strings.Split(fieldName, ".")
	for i, seg := range segments {
		member, offset, ok := findMember(current, seg)
		if !ok {
			return fieldpath.Field{}, fmt.Errorf("%s.%s: %w", typeName, fieldName, fieldpath.ErrNotFound)
		}
		if member.BitfieldSize != 0 || member.Offset%8 != 0 {
			return fieldpath.Field{}, fmt.Errorf("%s.%s: bitfield member %s: %w", typeName, fieldName, seg, fieldpath.ErrNotFound)
		}
		total += offset

		memberType := btf.UnderlyingType(member.Type)
		if i < len(segments)-1 {
			// Interior segments must stay within the same
			// allocation: embedded structs and unions only.
			switch memberType.(type) {
			case *btf.Struct, *btf.Union:
				current = memberType
			default:
				return fieldpath.Field{}, fmt.Errorf("%s.%s: %s is not an embedded aggregate: %w", typeName, fieldName, seg, fieldpath.ErrNotFound)
			}
			continue
		}
		return classify(memberType, total)
	}

	// Unreachable: segments is never empty for a validated step.
	return fieldpath.Field{}, fmt.Errorf("%s.%s: %w", typeName, fieldName, fieldpath.ErrNotFound)
}

// TypeSize implements fieldpath.Snapshot.
func (b *BTF) TypeSize(typeName string) (uint32, bool) {
	comp, err := b.composite(typeName)
	if err != nil {
		return 0, false
	}
	size, err := btf.Sizeof(comp)
	if err != nil || size < 0 {
		return 0, false
	}
	return uint32(size), true
}

// Fingerprint implements fieldpath.Snapshot.
func (b *BTF) Fingerprint() string { return b.fingerprint }

// composite finds the struct or union with the given name.
func (b *BTF) composite(typeName string) (btf.Type, error) {
	if typeName == "" {
		return nil, fmt.Errorf("empty type name: %w", fieldpath.ErrNotFound)
	}
	types, err := b.spec.AnyTypesByName(typeName)
	if err != nil {
		return nil, fmt.Errorf("type %s: %w", typeName, fieldpath.ErrNotFound)
	}
	for _, t := range types {
		u := btf.UnderlyingType(t)
		switch u.(type) {
		case *btf.Struct, *btf.Union:
			return u, nil
		}
	}
	return nil, fmt.Errorf("no struct or union named %s: %w", typeName, fieldpath.ErrNotFound)
}

// findMember locates a named member of a composite type, searching
// anonymous struct and union members recursively. Returns the member
// and its byte offset from the start of comp.
func findMember(comp btf.Type, name string) (btf.Member, uint32, bool) {
	members := compositeMembers(comp)
	for _, m := range members {
		if m.Name == name {
			return m, m.Offset.Bytes(), true
		}
	}
	for _, m := range members {
		if m.Name != "" {
			continue
		}
		inner := btf.UnderlyingType(m.Type)
		switch inner.(type) {
		case *btf.Struct, *btf.Union:
			if found, offset, ok := findMember(inner, name); ok {
				return found, m.Offset.Bytes() + offset, true
			}
		}
	}
	return btf.Member{}, 0, false
}

// compositeMembers returns the members of a struct or union, nil
// otherwise.
func compositeMembers(t btf.Type) []btf.Member {
	switch c := t.(type) {
	case *btf.Struct:
		return c.Members
	case *btf.Union:
		return c.Members
	default:
		return nil
	}
}

// classify maps a member's BTF type onto the snapshot field model.
func classify(t btf.Type, offset uint32) (fieldpath.Field, error) {
	switch c := t.(type) {
	case *btf.Pointer:
		return fieldpath.Field{
			Offset:   offset,
			Size:     8,
			Kind:     fieldpath.KindPointer,
			TypeName: btf.UnderlyingType(c.Target).TypeName(),
		}, nil
	case *btf.Struct, *btf.Union:
		size, err := btf.Sizeof(t)
		if err != nil || size < 0 {
			return fieldpath.Field{}, fmt.Errorf("sizeof %s: %w", t.TypeName(), fieldpath.ErrNotFound)
		}
		return fieldpath.Field{
			Offset:   offset,
			Size:     uint32(size),
			Kind:     fieldpath.KindStruct,
			TypeName: t.TypeName(),
		}, nil
	default:
		size, err := btf.Sizeof(t)
		if err != nil || size < 0 {
			return fieldpath.Field{}, fmt.Errorf("sizeof scalar: %w", fieldpath.ErrNotFound)
		}
		return fieldpath.Field{
			Offset: offset,
			Size:   uint32(size),
			Kind:   fieldpath.KindScalar,
		}, nil
	}
}
