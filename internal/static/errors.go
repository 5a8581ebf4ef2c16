package static

import (
	"errors"
	"fmt"
)

// Path resolution errors. The HTTP layer folds all of them into a bare 404;
// the distinction only reaches logs and tests.
var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrSymlinkEscape = errors.New("symlink escape detected")
	ErrInvalidPath   = errors.New("invalid path")
	ErrNotFound      = errors.New("file not found")
	ErrNotRegular    = errors.New("not a regular file")
)

// PathSecurityError wraps path resolution errors with context
type PathSecurityError struct {
	Op      string // step that failed
	Path    string // the request path as received
	Wrapped error
}

func (e *PathSecurityError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Path, e.Wrapped)
}

func (e *PathSecurityError) Unwrap() error {
	return e.Wrapped
}

// IsPathTraversal checks if the error is a path traversal error
func IsPathTraversal(err error) bool {
	return errors.Is(err, ErrPathTraversal)
}

// IsSymlinkEscape checks if the error is a symlink escape error
func IsSymlinkEscape(err error) bool {
	return errors.Is(err, ErrSymlinkEscape)
}

// IsContainmentViolation reports attempts to reach outside the root, as
// opposed to ordinary misses.
func IsContainmentViolation(err error) bool {
	return IsPathTraversal(err) || IsSymlinkEscape(err)
}
