package probe_test

import (
	"bytes"
	"encoding/binary"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/frobware/go-fieldpath"
	"github.com/frobware/go-fieldpath/layout"
	"github.com/frobware/go-fieldpath/probe"
)

// fixtureSnapshot is a compact target layout covering the whole
// catalog. Offsets are deliberately small so a fixture memory image
// fits in a few hundred bytes.
func fixtureSnapshot() *layout.Table {
	return layout.NewTable().
		AddType("task_struct", 64).
		AddType("mm_struct", 32).
		AddType("file", 64).
		AddType("dentry", 64).
		AddType("inode", 32).
		AddType("cred", 24).
		AddType("sockaddr", 16).
		AddType("sockaddr_in", 16).
		AddType("linux_binprm", 32).
		AddField("task_struct", "mm", fieldpath.Field{Offset: 8, Size: 8, Kind: fieldpath.KindPointer, TypeName: "mm_struct"}).
		AddField("task_struct", "pid", fieldpath.Field{Offset: 16, Size: 4, Kind: fieldpath.KindScalar}).
		AddField("task_struct", "tgid", fieldpath.Field{Offset: 20, Size: 4, Kind: fieldpath.KindScalar}).
		AddField("mm_struct", "exe_file", fieldpath.Field{Offset: 8, Size: 8, Kind: fieldpath.KindPointer, TypeName: "file"}).
		AddField("file", "f_path.dentry", fieldpath.Field{Offset: 16, Size: 8, Kind: fieldpath.KindPointer, TypeName: "dentry"}).
		AddField("file", "f_inode", fieldpath.Field{Offset: 24, Size: 8, Kind: fieldpath.KindPointer, TypeName: "inode"}).
		AddField("dentry", "d_inode", fieldpath.Field{Offset: 8, Size: 8, Kind: fieldpath.KindPointer, TypeName: "inode"}).
		AddField("dentry", "d_parent", fieldpath.Field{Offset: 16, Size: 8, Kind: fieldpath.KindPointer, TypeName: "dentry"}).
		AddField("inode", "i_ino", fieldpath.Field{Offset: 8, Size: 8, Kind: fieldpath.KindScalar}).
		AddField("cred", "uid.val", fieldpath.Field{Offset: 4, Size: 4, Kind: fieldpath.KindScalar}).
		AddField("cred", "gid.val", fieldpath.Field{Offset: 8, Size: 4, Kind: fieldpath.KindScalar}).
		AddField("sockaddr", "sa_family", fieldpath.Field{Offset: 0, Size: 2, Kind: fieldpath.KindScalar}).
		AddField("sockaddr_in", "sin_port", fieldpath.Field{Offset: 2, Size: 2, Kind: fieldpath.KindScalar}).
		AddField("sockaddr_in", "sin_addr.s_addr", fieldpath.Field{Offset: 4, Size: 4, Kind: fieldpath.KindScalar}).
		AddField("linux_binprm", "argc", fieldpath.Field{Offset: 4, Size: 4, Kind: fieldpath.KindScalar})
}

// Fixture memory image. Object base addresses double as offsets into
// the image, so a bytes.Reader acts as the target address space.
const (
	taskBase     = 0
	mmBase       = 64
	fileBase     = 128
	dentryBase   = 192
	inodeBase    = 256
	sockaddrBase = 384
)

const fixtureIno = uint64(0xABCDEF)

func fixtureMemory(t *testing.T) *bytes.Reader {
	t.Helper()
	mem := make([]byte, 512)

	put64 := func(off int, v uint64) { binary.NativeEndian.PutUint64(mem[off:], v) }
	put32 := func(off int, v uint32) { binary.NativeEndian.PutUint32(mem[off:], v) }

	put64(taskBase+8, mmBase) // task.mm
	put32(taskBase+16, 1234)  // task.pid
	put32(taskBase+20, 1200)  // task.tgid
	put64(mmBase+8, fileBase) // mm.exe_file
	put64(fileBase+16, dentryBase)
	put64(fileBase+24, inodeBase)
	put64(dentryBase+8, inodeBase)
	put64(dentryBase+16, dentryBase) // root dentry parents itself
	put64(inodeBase+8, fixtureIno)

	binary.NativeEndian.PutUint16(mem[sockaddrBase:], unix.AF_INET)
	// Network-order payloads pass through as raw bits.
	copy(mem[sockaddrBase+2:], []byte{0x1F, 0x90})             // port 8080
	copy(mem[sockaddrBase+4:], []byte{0x7F, 0x00, 0x00, 0x01}) // 127.0.0.1

	return bytes.NewReader(mem)
}

func buildLibrary(t *testing.T, snap fieldpath.Snapshot) *probe.Library {
	t.Helper()
	plans := fieldpath.ResolveAll(fieldpath.Catalog(), snap)
	return probe.Build(plans)
}

func TestLibrary_PointerChainRead(t *testing.T) {
	lib := buildLibrary(t, fixtureSnapshot())
	mem := fixtureMemory(t)

	// Three pointer hops then a scalar load.
	v := lib.FileInodeNumber(mem, fileBase)
	require.True(t, v.Present())
	assert.Equal(t, fixtureIno, v.Uint64())

	v = lib.DentryInodeNumber(mem, dentryBase)
	require.True(t, v.Present())
	assert.Equal(t, fixtureIno, v.Uint64())
}

func TestLibrary_PointerResults(t *testing.T) {
	lib := buildLibrary(t, fixtureSnapshot())
	mem := fixtureMemory(t)

	v := lib.TaskMM(mem, taskBase)
	require.True(t, v.Present())
	assert.Equal(t, uint64(mmBase), v.Pointer())

	v = lib.MMExeFile(mem, v.Pointer())
	require.True(t, v.Present())
	assert.Equal(t, uint64(fileBase), v.Pointer())

	v = lib.FileInode(mem, v.Pointer())
	require.True(t, v.Present())
	assert.Equal(t, uint64(inodeBase), v.Pointer())

	v = lib.FileParentDentry(mem, fileBase)
	require.True(t, v.Present())
	assert.Equal(t, uint64(dentryBase), v.Pointer())
}

func TestLibrary_ScalarReads(t *testing.T) {
	lib := buildLibrary(t, fixtureSnapshot())
	mem := fixtureMemory(t)

	assert.Equal(t, int32(1234), lib.TaskPID(mem, taskBase).Int32())
	assert.Equal(t, int32(1200), lib.TaskTGID(mem, taskBase).Int32())
}

func TestLibrary_RawNetworkOrderPassthrough(t *testing.T) {
	lib := buildLibrary(t, fixtureSnapshot())
	mem := fixtureMemory(t)

	family := lib.SockaddrFamily(mem, sockaddrBase)
	require.True(t, family.Present())
	assert.True(t, family.IsInet())
	assert.False(t, family.IsInet6())

	// Raw bits, no byte-order conversion.
	port := lib.SockaddrInPort(mem, sockaddrBase)
	require.True(t, port.Present())
	assert.Equal(t, binary.NativeEndian.Uint16([]byte{0x1F, 0x90}), port.Uint16())

	addr := lib.SockaddrInAddr(mem, sockaddrBase)
	require.True(t, addr.Present())
	assert.Equal(t, binary.NativeEndian.Uint32([]byte{0x7F, 0x00, 0x00, 0x01}), addr.Uint32())
}

func TestLibrary_NullPointerHopIsAbsent(t *testing.T) {
	lib := buildLibrary(t, fixtureSnapshot())

	// A kernel thread: task.mm is NULL.
	mem := make([]byte, 512)
	binary.NativeEndian.PutUint32(mem[taskBase+16:], 99)

	v := lib.TaskMM(bytes.NewReader(mem), taskBase)
	assert.False(t, v.Present())
	assert.Equal(t, uint64(0), v.Uint64())

	// The scalar that shares the root is unaffected.
	assert.Equal(t, int32(99), lib.TaskPID(bytes.NewReader(mem), taskBase).Int32())
}

func TestLibrary_NullFinalPointerIsAbsent(t *testing.T) {
	lib := buildLibrary(t, fixtureSnapshot())

	// file -> f_path.dentry resolves, but the dentry's d_parent is
	// NULL. The final load is a pointer, so zero means no value, not
	// a present zero handle.
	mem := make([]byte, 512)
	binary.NativeEndian.PutUint64(mem[fileBase+16:], dentryBase)

	v := lib.FileParentDentry(bytes.NewReader(mem), fileBase)
	assert.False(t, v.Present())
	assert.Equal(t, uint64(0), v.Pointer())

	// Same for a single-op pointer chain.
	assert.False(t, lib.TaskMM(bytes.NewReader(mem), taskBase).Present())
}

func TestValue_SignExtension(t *testing.T) {
	lib := buildLibrary(t, fixtureSnapshot())

	// pid is a signed 32-bit field holding -1.
	mem := make([]byte, 512)
	binary.NativeEndian.PutUint32(mem[taskBase+16:], 0xFFFFFFFF)

	pid := lib.TaskPID(bytes.NewReader(mem), taskBase)
	require.True(t, pid.Present())
	assert.Equal(t, int64(-1), pid.Int64())
	assert.Equal(t, int32(-1), pid.Int32())
	assert.Equal(t, uint64(0xFFFFFFFF), pid.Uint64())

	// Unsigned fields are zero-extended regardless of the high bit.
	binary.NativeEndian.PutUint16(mem[sockaddrBase:], 0x8000)
	family := lib.SockaddrFamily(bytes.NewReader(mem), sockaddrBase)
	require.True(t, family.Present())
	assert.Equal(t, int64(0x8000), family.Int64())
}

func TestLibrary_UnreadableAddressIsAbsent(t *testing.T) {
	lib := buildLibrary(t, fixtureSnapshot())

	// Base address past the end of the mapped image.
	mem := make([]byte, 64)

	a, ok := lib.Accessor(fieldpath.MMExeFile)
	require.True(t, ok)
	v := a.Read(bytes.NewReader(mem), 4096)
	assert.False(t, v.Present())
}

func TestLibrary_DegradedAccessorIsAbsent(t *testing.T) {
	// Target without mm_struct.exe_file: every chain through it
	// degrades, everything else still works.
	degraded := layout.NewTable().
		AddType("task_struct", 64).
		AddType("mm_struct", 32).
		AddField("task_struct", "mm", fieldpath.Field{Offset: 8, Size: 8, Kind: fieldpath.KindPointer, TypeName: "mm_struct"}).
		AddField("task_struct", "pid", fieldpath.Field{Offset: 16, Size: 4, Kind: fieldpath.KindScalar})

	lib := buildLibrary(t, degraded)
	mem := fixtureMemory(t)

	a, ok := lib.Accessor(fieldpath.MMExeFile)
	require.True(t, ok)
	assert.False(t, a.Resolved())
	assert.False(t, lib.MMExeFile(mem, mmBase).Present())

	assert.True(t, lib.TaskMM(mem, taskBase).Present())
	assert.Equal(t, int32(1234), lib.TaskPID(mem, taskBase).Int32())
}

func TestLibrary_Names(t *testing.T) {
	lib := buildLibrary(t, fixtureSnapshot())

	names := lib.Names()
	assert.Len(t, names, 15)
	assert.True(t, sort.StringsAreSorted(names))
	assert.Contains(t, names, fieldpath.InodeNumber)
}

func TestAbsentValue(t *testing.T) {
	v := probe.Absent()
	assert.False(t, v.Present())
	assert.Equal(t, uint64(0), v.Uint64())
	assert.False(t, v.IsInet())
}
