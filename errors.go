package mmaplog

import (
	"errors"
	"os"
	"syscall"
)

var (
	// ErrAccessDenied is returned when the backing file cannot be opened or
	// inspected because of insufficient permissions.
	ErrAccessDenied = errors.New("access denied")
	// ErrOpenFailed is returned when the backing file cannot be opened or created.
	ErrOpenFailed = errors.New("open failed")
	// ErrMetadata is returned when the size of the backing file cannot be read.
	ErrMetadata = errors.New("metadata unavailable")
	// ErrMapFailed is returned when the file cannot be mapped, or when a
	// portable remap lost the mapping. A store that lost its mapping returns
	// ErrMapFailed from every later call.
	ErrMapFailed = errors.New("map failed")
	// ErrAllocationFailed is returned when the backing file or the mapping
	// cannot be extended.
	ErrAllocationFailed = errors.New("allocation failed")
	// ErrSyncFailed is returned when the mapping cannot be flushed to disk.
	ErrSyncFailed = errors.New("sync failed")
	// ErrCloseFailed is returned by Close when the backing file cannot be
	// closed. The final commit may still have succeeded.
	ErrCloseFailed = errors.New("close failed")
	// ErrCorruptHeader is returned when a recovered write pointer lies outside
	// the file.
	ErrCorruptHeader = errors.New("corrupt header")
	// ErrClosed is returned by every call on a closed store.
	ErrClosed = errors.New("store closed")
	// ErrInvalidArchive is returned when an archive blob is malformed or fails
	// its integrity check.
	ErrInvalidArchive = errors.New("invalid archive")
	// ErrRestoreTarget is returned when Restore is pointed at a non-empty file.
	ErrRestoreTarget = errors.New("restore target is not empty")
)

// Error describes a failed store operation.
//
// Kind is one of the sentinel errors above and Err is the underlying cause,
// if any. Both are reachable through errors.Is and errors.As.
type Error struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := "mmaplog: " + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Errno returns the operating system error number behind the failure, or 0.
func (e *Error) Errno() syscall.Errno {
	var errno syscall.Errno
	if errors.As(e.Err, &errno) {
		return errno
	}
	return 0
}

func newError(op, path string, kind, err error) *Error {
	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}

// openKind classifies a failure to open or stat the backing file.
func openKind(err, fallback error) error {
	if errors.Is(err, os.ErrPermission) {
		return ErrAccessDenied
	}
	return fallback
}
