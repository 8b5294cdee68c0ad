package device

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Direction is the transfer direction a device is opened for.
type Direction int

const (
	// Input opens the device for reading only.
	Input Direction = iota

	// Output opens the device for writing only.
	Output

	// IO opens the device for both reading and writing.
	IO
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	case IO:
		return "io"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// IfExists selects the behavior when the path to be opened already exists.
type IfExists int

const (
	// ExistsDefault resolves to [ExistsOverwrite] for input and to
	// [ExistsError] for output and io.
	ExistsDefault IfExists = iota

	// ExistsOverwrite opens the existing file as-is.
	ExistsOverwrite

	// ExistsError refuses to open an existing file.
	ExistsError

	// ExistsErrorIfSymlink opens the existing file unless it is a symbolic
	// link, in which case the open fails.
	ExistsErrorIfSymlink

	// ExistsDelete unlinks an existing file once and retries the open exactly
	// once. Between the unlink and the retried open another actor may recreate
	// the path; that race is not guarded against, and a recreation surfaces
	// as the retried open failing with "already exists".
	ExistsDelete

	// ExistsNone requests no action for an existing file.
	ExistsNone
)

func (e IfExists) String() string {
	switch e {
	case ExistsDefault:
		return "default"
	case ExistsOverwrite:
		return "overwrite"
	case ExistsError:
		return "error"
	case ExistsErrorIfSymlink:
		return "error-if-symlink"
	case ExistsDelete:
		return "delete"
	case ExistsNone:
		return "none"
	default:
		return fmt.Sprintf("if-exists(%d)", int(e))
	}
}

// IfNotExists selects the behavior when the path to be opened does not exist.
type IfNotExists int

const (
	// NotExistDefault resolves to [NotExistError] for input and to
	// [NotExistCreate] for output and io.
	NotExistDefault IfNotExists = iota

	// NotExistCreate creates the file when it does not exist.
	NotExistCreate

	// NotExistError refuses to open a non-existing file.
	NotExistError

	// NotExistNone requests no action for a non-existing file.
	NotExistNone
)

func (e IfNotExists) String() string {
	switch e {
	case NotExistDefault:
		return "default"
	case NotExistCreate:
		return "create"
	case NotExistError:
		return "error"
	case NotExistNone:
		return "none"
	default:
		return fmt.Sprintf("if-does-not-exist(%d)", int(e))
	}
}

// Policy is the high-level open policy for a file device, combining the
// transfer direction with the existence rules and extra open flags.
type Policy struct {
	Direction   Direction
	IfExists    IfExists
	IfNotExists IfNotExists
	Truncate    bool
	Append      bool
	ExtraFlags  int
}

// ResolvedPolicy is the outcome of translating a [Policy]: the final OS open
// flags plus the existence rules with defaults substituted.
type ResolvedPolicy struct {
	Flags          int
	IfExists       IfExists
	IfNotExists    IfNotExists
	DeleteIfExists bool
}

// Resolve translates the policy into an OS open-flag bitmask and resolves the
// defaulted existence rules. It performs no syscalls; any contradiction in the
// policy is reported as [ErrInvalidConfig].
func (p Policy) Resolve() (ResolvedPolicy, error) {
	ifEx := p.IfExists
	ifNot := p.IfNotExists

	var flags int

	switch p.Direction {
	case Input:
		flags = unix.O_RDONLY

		if ifEx == ExistsDefault {
			ifEx = ExistsOverwrite
		}
		if ifEx != ExistsOverwrite && ifEx != ExistsErrorIfSymlink {
			return ResolvedPolicy{}, fmt.Errorf("%w: if-exists %q is not valid for direction input",
				ErrInvalidConfig, ifEx)
		}

		if ifNot == NotExistDefault {
			ifNot = NotExistError
		}
		if ifNot != NotExistError {
			return ResolvedPolicy{}, fmt.Errorf("%w: if-does-not-exist %q is not valid for direction input",
				ErrInvalidConfig, ifNot)
		}
	case Output, IO:
		if p.Direction == Output {
			flags = unix.O_WRONLY
		} else {
			flags = unix.O_RDWR
		}

		if ifEx == ExistsDefault {
			ifEx = ExistsError
		}
		if ifNot == NotExistDefault {
			ifNot = NotExistCreate
		}
	default:
		return ResolvedPolicy{}, fmt.Errorf("%w: unknown direction %q", ErrInvalidConfig, p.Direction)
	}

	if ifEx > ExistsNone || ifEx < ExistsDefault {
		return ResolvedPolicy{}, fmt.Errorf("%w: unknown if-exists %q", ErrInvalidConfig, ifEx)
	}
	if ifNot > NotExistNone || ifNot < NotExistDefault {
		return ResolvedPolicy{}, fmt.Errorf("%w: unknown if-does-not-exist %q", ErrInvalidConfig, ifNot)
	}

	// A policy refusing both the existing and the non-existing case can never
	// open anything; reject it before touching the filesystem.
	if (ifEx == ExistsError || ifEx == ExistsNone) && (ifNot == NotExistError || ifNot == NotExistNone) {
		return ResolvedPolicy{}, fmt.Errorf("%w: if-exists %q with if-does-not-exist %q can never succeed",
			ErrInvalidConfig, ifEx, ifNot)
	}

	deleteIfExists := false

	switch ifEx {
	case ExistsError:
		if p.Direction != Input {
			flags |= unix.O_EXCL
		}
	case ExistsDelete:
		flags |= unix.O_EXCL | unix.O_CREAT
		deleteIfExists = true
	case ExistsErrorIfSymlink:
		flags |= unix.O_NOFOLLOW
	case ExistsDefault, ExistsOverwrite, ExistsNone:
	}

	if ifNot == NotExistCreate {
		flags |= unix.O_CREAT
	}

	if p.Truncate && p.Direction != Input {
		flags |= unix.O_TRUNC
	}

	if p.Append && p.Direction == Output {
		flags |= unix.O_APPEND
	}

	// Extra flags are merged last and may override the computed set.
	flags |= p.ExtraFlags

	return ResolvedPolicy{
		Flags:          flags,
		IfExists:       ifEx,
		IfNotExists:    ifNot,
		DeleteIfExists: deleteIfExists,
	}, nil
}
