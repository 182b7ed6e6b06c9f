package fat32

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// DriverError is the error type returned by every fallible operation in this
// module. Each exported Err* value below is a distinct root cause; derived
// errors created with WithMessage or Wrap still satisfy errors.Is against
// their root.
type DriverError interface {
	error
	WithMessage(message string) DriverError
	Wrap(err error) DriverError
}

type baseDriverError string

const rootError = baseDriverError("")

// The error taxonomy. No operation ever downgrades one of these to a default
// value; every fallible step reports its specific kind to the caller.
var ErrIOFailed = rootError.WithMessage("Input/output error")
var ErrInvalidBootSector = rootError.WithMessage("Invalid boot sector")
var ErrNotFAT32 = rootError.WithMessage("Not a FAT32 file system")
var ErrNotFound = rootError.WithMessage("No such file or directory")
var ErrDirectoryFull = rootError.WithMessage("No free directory entry")
var ErrNoSpaceOnDevice = rootError.WithMessage("No space left on device")
var ErrInvalidName = rootError.WithMessage("Invalid 8.3 file name")
var ErrFileSystemCorrupted = rootError.WithMessage("Structure needs cleaning")

// Ambient errors not tied to the on-disk format.
var ErrInvalidArgument = rootError.WithMessage("Invalid argument")
var ErrAlreadyInProgress = rootError.WithMessage("Operation already in progress")
var ErrNotMounted = rootError.WithMessage("File system not mounted")

func (e baseDriverError) Error() string {
	return string(e)
}

func (e baseDriverError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       message,
		originalError: e,
	}
}

func (e baseDriverError) Wrap(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customDriverError struct {
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a
// string describing the error.
func (e customDriverError) Error() string {
	return e.message
}

func (e customDriverError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customDriverError) Wrap(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e customDriverError) Unwrap() error {
	return e.originalError
}
