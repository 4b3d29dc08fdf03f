package data

import (
	"errors"
	"fmt"
	"sync"
)

// Standard errors that FileSystem implementations should use.
var (
	// Path and mount resolution errors
	ErrInvalidURL   = errors.New("afs: invalid url")
	ErrUnknownMount = errors.New("afs: unknown mount")

	// File operation errors
	ErrNotExist          = errors.New("afs: file does not exist")
	ErrExist             = errors.New("afs: file already exists")
	ErrNotDirectory      = errors.New("afs: not a directory")
	ErrPermission        = errors.New("afs: permission denied")
	ErrDirectoryNotEmpty = errors.New("afs: directory not empty")

	// ErrIsDirectory matches ErrPermission as well
	ErrIsDirectory = fmt.Errorf("%w: is a directory", ErrPermission)

	// Codec errors
	ErrInvalidMode = errors.New("afs: invalid open mode")
	ErrInvalidType = errors.New("afs: invalid file type")

	// I/O errors
	ErrClosed      = errors.New("afs: file already closed")
	ErrInvalid     = errors.New("afs: invalid argument")
	ErrUnsupported = errors.New("afs: operation not supported")
	ErrTooLarge    = errors.New("afs: object exceeds backend size limit")
	ErrLinkLoop    = errors.New("afs: too many levels of symbolic links")
)

// UnderlyingError passes a native I/O failure of a backend through
// together with its native error code.
type UnderlyingError struct {
	Code int
	Err  error
}

// NewUnderlyingError wraps err with the given native code.
func NewUnderlyingError(code int, err error) *UnderlyingError {
	return &UnderlyingError{Code: code, Err: err}
}

func (e *UnderlyingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("afs: underlying error (code %d)", e.Code)
	}
	return fmt.Sprintf("afs: underlying error (code %d): %v", e.Code, e.Err)
}

func (e *UnderlyingError) Unwrap() error {
	return e.Err
}

// Errors collects multiple errors, e.g. while closing several resources.
type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.errors)
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
