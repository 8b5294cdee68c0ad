// Package syscalls provides the real operating system implementations of the
// syscall provider interfaces consumed elsewhere in the application.
package syscalls

import (
	"golang.org/x/sys/unix"
)

// Unix is an implementation wrapping Unix operating system functions.
type Unix struct{}

// Open wraps around [unix.Open].
func (Unix) Open(path string, flag int, perm uint32) (int, error) {
	return unix.Open(path, flag, perm)
}

// Close wraps around [unix.Close].
func (Unix) Close(fd int) error {
	return unix.Close(fd)
}

// Read wraps around [unix.Read].
func (Unix) Read(fd int, p []byte) (int, error) {
	return unix.Read(fd, p)
}

// Write wraps around [unix.Write].
func (Unix) Write(fd int, p []byte) (int, error) {
	return unix.Write(fd, p)
}

// Seek wraps around [unix.Seek].
func (Unix) Seek(fd int, offset int64, whence int) (int64, error) {
	return unix.Seek(fd, offset, whence)
}

// Fstat wraps around [unix.Fstat].
func (Unix) Fstat(fd int, stat *unix.Stat_t) error {
	return unix.Fstat(fd, stat)
}

// Ftruncate wraps around [unix.Ftruncate].
func (Unix) Ftruncate(fd int, length int64) error {
	return unix.Ftruncate(fd, length)
}

// Fsync wraps around [unix.Fsync].
func (Unix) Fsync(fd int) error {
	return unix.Fsync(fd)
}

// Unlink wraps around [unix.Unlink].
func (Unix) Unlink(path string) error {
	return unix.Unlink(path)
}

// Poll wraps around [unix.Poll].
func (Unix) Poll(fds []unix.PollFd, timeout int) (int, error) {
	return unix.Poll(fds, timeout)
}

// SetNonblock wraps around [unix.SetNonblock].
func (Unix) SetNonblock(fd int, nonblocking bool) error {
	return unix.SetNonblock(fd, nonblocking)
}
