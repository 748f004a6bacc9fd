// Package layout provides target layout snapshots: read-only views of
// one kernel build's type layout, queried during access-path
// resolution and discarded after patching.
//
// Two implementations exist. Table is a fixed, hand-populated snapshot
// used in tests and for targets with known layouts. BTF reads the
// target's BTF type information, which is the production path.
package layout

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/frobware/go-fieldpath"
)

// Table is a map-backed Snapshot with explicitly registered types and
// fields. Dotted member paths must be registered under their dotted
// name. Table is populated via the builder methods and read-only
// thereafter.
type Table struct {
	fields map[string]fieldpath.Field
	sizes  map[string]uint32
}

// NewTable creates an empty layout table.
func NewTable() *Table {
	return &Table{
		fields: make(map[string]fieldpath.Field),
		sizes:  make(map[string]uint32),
	}
}

// AddType registers a type and its total size. The size becomes the
// provable bound for every field read within the type.
func (t *Table) AddType(name string, size uint32) *Table {
	t.sizes[name] = size
	return t
}

// AddField registers a field of a type. Returns the table for
// chaining.
func (t *Table) AddField(typeName, fieldName string, f fieldpath.Field) *Table {
	t.fields[typeName+"\x00"+fieldName] = f
	return t
}

// LookupField implements fieldpath.Snapshot.
func (t *Table) LookupField(typeName, fieldName string) (fieldpath.Field, error) {
	f, ok := t.fields[typeName+"\x00"+fieldName]
	if !ok {
		return fieldpath.Field{}, fmt.Errorf("%s.%s: %w", typeName, fieldName, fieldpath.ErrNotFound)
	}
	return f, nil
}

// TypeSize implements fieldpath.Snapshot.
func (t *Table) TypeSize(typeName string) (uint32, bool) {
	size, ok := t.sizes[typeName]
	return size, ok
}

// Fingerprint implements fieldpath.Snapshot. The fingerprint is a
// stable hash over the registered entries, so two tables with the same
// contents are interchangeable and any edit changes the identity.
func (t *Table) Fingerprint() string {
	keys := make([]string, 0, len(t.fields)+len(t.sizes))
	for k, f := range t.fields {
		keys = append(keys, fmt.Sprintf("f:%s:%d:%d:%d:%s", k, f.Offset, f.Size, f.Kind, f.TypeName))
	}
	for name, size := range t.sizes {
		keys = append(keys, fmt.Sprintf("t:%s:%d", name, size))
	}
	sort.Strings(keys)
	sum := sha256.Sum256([]byte(strings.Join(keys, "\n")))
	return "table:" + hex.EncodeToString(sum[:8])
}
