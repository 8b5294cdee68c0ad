package device

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Origin is the reference point of a [FileDevice.SetPosition] seek.
type Origin int

const (
	// OriginStart seeks relative to the beginning of the file.
	OriginStart Origin = iota

	// OriginCurrent seeks relative to the current position.
	OriginCurrent

	// OriginEnd seeks relative to the end of the file.
	OriginEnd
)

func (o Origin) whence() (int, error) {
	switch o {
	case OriginStart:
		return unix.SEEK_SET, nil
	case OriginCurrent:
		return unix.SEEK_CUR, nil
	case OriginEnd:
		return unix.SEEK_END, nil
	default:
		return 0, fmt.Errorf("%w: unknown seek origin %d", ErrInvalidConfig, int(o))
	}
}

// Position returns the current file offset without moving it.
func (d *FileDevice) Position() (int64, error) {
	fd, err := d.acquire()
	if err != nil {
		return 0, err
	}
	defer d.release()

	pos, err := d.sys.Seek(fd, 0, unix.SEEK_CUR)
	if err != nil {
		return 0, newFileError("seeking", d.path, err)
	}

	return pos, nil
}

// SetPosition moves the file offset to offset relative to origin and returns
// the resulting absolute position.
func (d *FileDevice) SetPosition(offset int64, origin Origin) (int64, error) {
	whence, err := origin.whence()
	if err != nil {
		return 0, err
	}

	fd, err := d.acquire()
	if err != nil {
		return 0, err
	}
	defer d.release()

	pos, err := d.sys.Seek(fd, offset, whence)
	if err != nil {
		return 0, newFileError("seeking", d.path, err)
	}

	return pos, nil
}

// Length returns the current size of the file in bytes.
func (d *FileDevice) Length() (int64, error) {
	fd, err := d.acquire()
	if err != nil {
		return 0, err
	}
	defer d.release()

	var stat unix.Stat_t
	if err := d.sys.Fstat(fd, &stat); err != nil {
		return 0, newFileError("getting status of", d.path, err)
	}

	return stat.Size, nil
}

// SetLength truncates or extends the file to exactly n bytes.
func (d *FileDevice) SetLength(n int64) error {
	fd, err := d.acquire()
	if err != nil {
		return err
	}
	defer d.release()

	if err := d.sys.Ftruncate(fd, n); err != nil {
		return newFileError("truncating", d.path, err)
	}

	return nil
}

// Sync flushes the file contents to stable storage.
func (d *FileDevice) Sync() error {
	fd, err := d.acquire()
	if err != nil {
		return err
	}
	defer d.release()

	if err := d.sys.Fsync(fd); err != nil {
		return newFileError("syncing", d.path, err)
	}

	return nil
}
