package fdio

import (
	"fmt"

	"github.com/copperwire/fdio/device"
	"github.com/copperwire/fdio/stream"
	"golang.org/x/sys/unix"
)

// modeBits are the permission and setuid/setgid/sticky bits a creation mode
// may carry.
const modeBits = 0o7777

// Options is the full configuration surface of an open call. The zero value
// opens for input with defaulted existence rules, the default creation mode
// and, for [OpenStream], a fully buffered stream of the default size.
type Options struct {
	// Direction is the transfer direction the file is opened for.
	Direction device.Direction

	// IfExists selects the behavior when the path already exists.
	IfExists device.IfExists

	// IfNotExists selects the behavior when the path does not exist.
	IfNotExists device.IfNotExists

	// Truncate empties the file on open; ignored for input.
	Truncate bool

	// Append positions every write at the end of the file; output only.
	Append bool

	// ExtraFlags are OS open flags merged in after the computed set and may
	// override it. Access-mode bits are rejected; the direction decides those.
	ExtraFlags int

	// Mode is the creation permission bits; 0 means [device.DefaultMode].
	Mode uint32

	// Buffering, BufferSize and ExternalFormat configure the stream layer and
	// are ignored by [OpenDevice].
	Buffering      stream.Buffering
	BufferSize     int
	ExternalFormat string
}

func (o Options) policy() device.Policy {
	return device.Policy{
		Direction:   o.Direction,
		IfExists:    o.IfExists,
		IfNotExists: o.IfNotExists,
		Truncate:    o.Truncate,
		Append:      o.Append,
		ExtraFlags:  o.ExtraFlags,
	}
}

// validate checks the configuration surface and resolves the creation mode.
// It performs no syscalls.
func (o Options) validate() (uint32, error) {
	if o.ExtraFlags&unix.O_ACCMODE != 0 {
		return 0, fmt.Errorf("%w: extra flags %#o carry access-mode bits", device.ErrInvalidConfig, o.ExtraFlags)
	}

	mode := o.Mode
	if mode == 0 {
		mode = device.DefaultMode
	}
	if mode&^uint32(modeBits) != 0 {
		return 0, fmt.Errorf("%w: mode %#o carries non-permission bits", device.ErrInvalidConfig, o.Mode)
	}

	if o.BufferSize < 0 {
		return 0, fmt.Errorf("%w: negative buffer size %d", device.ErrInvalidConfig, o.BufferSize)
	}

	// Existence-policy contradictions are caught here as well, before any
	// filesystem call is made.
	if _, err := o.policy().Resolve(); err != nil {
		return 0, err
	}

	return mode, nil
}
