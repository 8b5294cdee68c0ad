package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// fakeUnix is a scripted syscall surface counting every call it receives.
type fakeUnix struct {
	openErrs      []error
	openCalls     int
	unlinkErr     error
	unlinkCalls   int
	closeCalls    int
	nonblockErr   error
	nonblockCalls int
	totalCalls    int
}

func (f *fakeUnix) Open(_ string, _ int, _ uint32) (int, error) {
	f.totalCalls++
	call := f.openCalls
	f.openCalls++

	if call < len(f.openErrs) && f.openErrs[call] != nil {
		return -1, f.openErrs[call]
	}

	return 3, nil
}

func (f *fakeUnix) Close(_ int) error {
	f.totalCalls++
	f.closeCalls++

	return nil
}

func (f *fakeUnix) Unlink(_ string) error {
	f.totalCalls++
	f.unlinkCalls++

	return f.unlinkErr
}

func (f *fakeUnix) SetNonblock(_ int, _ bool) error {
	f.totalCalls++
	f.nonblockCalls++

	return f.nonblockErr
}

func (f *fakeUnix) Read(_ int, _ []byte) (int, error) {
	f.totalCalls++

	return 0, nil
}

func (f *fakeUnix) Write(_ int, p []byte) (int, error) {
	f.totalCalls++

	return len(p), nil
}

func (f *fakeUnix) Seek(_ int, offset int64, _ int) (int64, error) {
	f.totalCalls++

	return offset, nil
}

func (f *fakeUnix) Fstat(_ int, _ *unix.Stat_t) error {
	f.totalCalls++

	return nil
}

func (f *fakeUnix) Ftruncate(_ int, _ int64) error {
	f.totalCalls++

	return nil
}

func (f *fakeUnix) Fsync(_ int) error {
	f.totalCalls++

	return nil
}

func (f *fakeUnix) Poll(_ []unix.PollFd, _ int) (int, error) {
	f.totalCalls++

	return 0, nil
}

func TestOpenWith_Success(t *testing.T) {
	t.Parallel()

	fake := &fakeUnix{}

	dev, err := OpenWith(fake, "/tmp/some-file", Policy{Direction: Output}, DefaultMode)

	require.NoError(t, err)
	assert.Equal(t, 1, fake.openCalls)
	assert.Equal(t, 0, fake.unlinkCalls)
	assert.Equal(t, 1, fake.nonblockCalls, "descriptor must be switched to non-blocking unconditionally")
	assert.Equal(t, "/tmp/some-file", dev.Path())
}

func TestOpenWith_DeleteRetry_ExistingPath(t *testing.T) {
	t.Parallel()

	fake := &fakeUnix{openErrs: []error{unix.EEXIST, nil}}

	dev, err := OpenWith(fake, "/tmp/some-file", Policy{Direction: Output, IfExists: ExistsDelete}, DefaultMode)

	require.NoError(t, err)
	assert.Equal(t, 2, fake.openCalls, "exactly one retried open")
	assert.Equal(t, 1, fake.unlinkCalls, "exactly one unlink")
	require.NoError(t, dev.Relinquish())
}

func TestOpenWith_DeleteRetry_NonExistingPath(t *testing.T) {
	t.Parallel()

	fake := &fakeUnix{}

	_, err := OpenWith(fake, "/tmp/some-file", Policy{Direction: Output, IfExists: ExistsDelete}, DefaultMode)

	require.NoError(t, err)
	assert.Equal(t, 1, fake.openCalls)
	assert.Equal(t, 0, fake.unlinkCalls, "no unlink when the path did not exist")
}

func TestOpenWith_DeleteRetry_RetryFailsOnce(t *testing.T) {
	t.Parallel()

	// A path recreated between unlink and the retried open surfaces the
	// retried attempt's error; the retry is not repeated.
	fake := &fakeUnix{openErrs: []error{unix.EEXIST, unix.EEXIST}}

	_, err := OpenWith(fake, "/tmp/some-file", Policy{Direction: Output, IfExists: ExistsDelete}, DefaultMode)

	require.Error(t, err)
	assert.ErrorIs(t, err, unix.EEXIST)
	assert.Equal(t, 2, fake.openCalls)
	assert.Equal(t, 1, fake.unlinkCalls)

	var fileErr *FileError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, "opening", fileErr.Op)
	assert.Equal(t, "/tmp/some-file", fileErr.Path)
}

func TestOpenWith_NoDeleteWithoutPolicy(t *testing.T) {
	t.Parallel()

	fake := &fakeUnix{openErrs: []error{unix.EEXIST}}

	_, err := OpenWith(fake, "/tmp/some-file", Policy{Direction: Output, IfExists: ExistsError}, DefaultMode)

	require.Error(t, err)
	assert.Equal(t, 1, fake.openCalls)
	assert.Equal(t, 0, fake.unlinkCalls)
}

func TestOpenWith_UnlinkFails(t *testing.T) {
	t.Parallel()

	fake := &fakeUnix{openErrs: []error{unix.EEXIST}, unlinkErr: unix.EACCES}

	_, err := OpenWith(fake, "/tmp/some-file", Policy{Direction: Output, IfExists: ExistsDelete}, DefaultMode)

	require.Error(t, err)
	assert.ErrorIs(t, err, unix.EACCES)
	assert.Equal(t, 1, fake.openCalls, "no retried open after a failed unlink")
}

func TestOpenWith_SetNonblockFails(t *testing.T) {
	t.Parallel()

	fake := &fakeUnix{nonblockErr: unix.EBADF}

	_, err := OpenWith(fake, "/tmp/some-file", Policy{Direction: Output}, DefaultMode)

	require.Error(t, err)
	assert.ErrorIs(t, err, unix.EBADF)
	assert.Equal(t, 1, fake.closeCalls, "descriptor must not leak when the open sequence fails late")
}

func TestOpenWith_InvalidConfig_NoSyscalls(t *testing.T) {
	t.Parallel()

	fake := &fakeUnix{}

	_, err := OpenWith(fake, "/tmp/some-file", Policy{Direction: Output, IfExists: ExistsError, IfNotExists: NotExistError}, DefaultMode)

	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Zero(t, fake.totalCalls, "configuration errors must be raised before any syscall")
}

func TestRelinquish_Twice(t *testing.T) {
	t.Parallel()

	fake := &fakeUnix{}

	dev, err := OpenWith(fake, "/tmp/some-file", Policy{Direction: Output}, DefaultMode)
	require.NoError(t, err)

	require.NoError(t, dev.Relinquish())
	assert.Equal(t, 1, fake.closeCalls)

	err = dev.Relinquish()
	assert.ErrorIs(t, err, ErrDeviceClosed, "a second relinquish is a usage error, not a no-op")
	assert.Equal(t, 1, fake.closeCalls)
}

func TestOperations_AfterRelinquish(t *testing.T) {
	t.Parallel()

	fake := &fakeUnix{}

	dev, err := OpenWith(fake, "/tmp/some-file", Policy{Direction: IO, IfExists: ExistsOverwrite}, DefaultMode)
	require.NoError(t, err)
	require.NoError(t, dev.Relinquish())

	buf := make([]byte, 8)

	_, err = dev.ReadNonblocking(buf)
	assert.ErrorIs(t, err, ErrDeviceClosed)

	_, err = dev.WriteNonblocking(buf)
	assert.ErrorIs(t, err, ErrDeviceClosed)

	_, err = dev.Position()
	assert.ErrorIs(t, err, ErrDeviceClosed)

	_, err = dev.Length()
	assert.ErrorIs(t, err, ErrDeviceClosed)

	err = dev.SetLength(0)
	assert.ErrorIs(t, err, ErrDeviceClosed)

	_, _, err = dev.Poll(Input, nil)
	assert.ErrorIs(t, err, ErrDeviceClosed)
}

func TestOpen_ExclusiveOnExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "existing")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	_, err := Open(path, Policy{Direction: Output, IfExists: ExistsError}, DefaultMode)

	require.Error(t, err)
	assert.ErrorIs(t, err, unix.EEXIST)

	var fileErr *FileError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, "opening", fileErr.Op)
}

func TestOpen_DeleteTruncatesExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "existing")
	require.NoError(t, os.WriteFile(path, []byte("previous content"), 0o644))

	dev, err := Open(path, Policy{Direction: Output, IfExists: ExistsDelete}, DefaultMode)
	require.NoError(t, err)
	defer dev.Relinquish() //nolint:errcheck

	length, err := dev.Length()
	require.NoError(t, err)
	assert.Zero(t, length, "the recreated file must be empty")
}

func TestOpen_ErrorIfSymlink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, "link")
	require.NoError(t, os.WriteFile(target, []byte("content"), 0o644))
	require.NoError(t, os.Symlink(target, link))

	_, err := Open(link, Policy{Direction: Input, IfExists: ExistsErrorIfSymlink}, DefaultMode)
	assert.ErrorIs(t, err, unix.ELOOP)

	dev, err := Open(target, Policy{Direction: Input, IfExists: ExistsErrorIfSymlink}, DefaultMode)
	require.NoError(t, err)
	require.NoError(t, dev.Relinquish())
}

func TestOpen_RealSyscalls(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "created")

	dev, err := Open(path, Policy{Direction: Output}, DefaultMode)
	require.NoError(t, err)

	n, err := dev.WriteNonblocking([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	require.NoError(t, dev.Sync())
	require.NoError(t, dev.Relinquish())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}
