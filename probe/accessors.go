package probe

import (
	"io"

	"github.com/frobware/go-fieldpath"
)

// Named reads mirroring the fixed access-path vocabulary. Each takes
// the opaque handle of the relevant root structure instance and
// returns the value or Absent.

// TaskMM reads task_struct -> mm: the memory-descriptor pointer.
func (l *Library) TaskMM(mem io.ReaderAt, task uint64) Value {
	return l.read(fieldpath.TaskMM, mem, task)
}

// TaskPID reads task_struct -> pid.
func (l *Library) TaskPID(mem io.ReaderAt, task uint64) Value {
	return l.read(fieldpath.TaskPID, mem, task)
}

// TaskTGID reads task_struct -> tgid.
func (l *Library) TaskTGID(mem io.ReaderAt, task uint64) Value {
	return l.read(fieldpath.TaskTGID, mem, task)
}

// MMExeFile reads mm_struct -> exe_file: the executable file pointer.
func (l *Library) MMExeFile(mem io.ReaderAt, mm uint64) Value {
	return l.read(fieldpath.MMExeFile, mem, mm)
}

// FileInode reads file -> f_inode: the inode pointer.
func (l *Library) FileInode(mem io.ReaderAt, file uint64) Value {
	return l.read(fieldpath.FileInode, mem, file)
}

// FileInodeNumber reads file -> f_path.dentry -> d_inode -> i_ino.
func (l *Library) FileInodeNumber(mem io.ReaderAt, file uint64) Value {
	return l.read(fieldpath.FileInodeNumber, mem, file)
}

// FileParentDentry reads file -> f_path.dentry -> d_parent.
func (l *Library) FileParentDentry(mem io.ReaderAt, file uint64) Value {
	return l.read(fieldpath.FileParentDentry, mem, file)
}

// DentryInodeNumber reads dentry -> d_inode -> i_ino.
func (l *Library) DentryInodeNumber(mem io.ReaderAt, dentry uint64) Value {
	return l.read(fieldpath.DentryInodeNumber, mem, dentry)
}

// InodeNumber reads inode -> i_ino.
func (l *Library) InodeNumber(mem io.ReaderAt, inode uint64) Value {
	return l.read(fieldpath.InodeNumber, mem, inode)
}

// BinprmArgc reads linux_binprm -> argc.
func (l *Library) BinprmArgc(mem io.ReaderAt, binprm uint64) Value {
	return l.read(fieldpath.BinprmArgc, mem, binprm)
}

// SockaddrFamily reads sockaddr -> sa_family.
func (l *Library) SockaddrFamily(mem io.ReaderAt, sa uint64) Value {
	return l.read(fieldpath.SockaddrFamily, mem, sa)
}

// SockaddrInAddr reads sockaddr_in -> sin_addr.s_addr. The value is
// the raw 32-bit field in network byte order.
func (l *Library) SockaddrInAddr(mem io.ReaderAt, sa uint64) Value {
	return l.read(fieldpath.SockaddrInAddr, mem, sa)
}

// SockaddrInPort reads sockaddr_in -> sin_port. The value is the raw
// 16-bit field in network byte order.
func (l *Library) SockaddrInPort(mem io.ReaderAt, sa uint64) Value {
	return l.read(fieldpath.SockaddrInPort, mem, sa)
}

// CredUID reads cred -> uid.val: the effective uid.
func (l *Library) CredUID(mem io.ReaderAt, cred uint64) Value {
	return l.read(fieldpath.CredUID, mem, cred)
}

// CredGID reads cred -> gid.val: the effective gid.
func (l *Library) CredGID(mem io.ReaderAt, cred uint64) Value {
	return l.read(fieldpath.CredGID, mem, cred)
}
