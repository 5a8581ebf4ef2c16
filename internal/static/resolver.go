package static

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"plugin-server/internal/logger"
)

var log = logger.WithComponent("STATIC")

// Resolver maps untrusted request paths onto regular files inside a fixed
// root directory. It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	root string
}

// NewResolver canonicalizes root once. Containment is always checked against
// this canonical form, so a root reached through a symlink still works.
func NewResolver(root string) (*Resolver, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("static root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve static root: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve static root: %w", err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("stat static root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static root %s is not a directory", canonical)
	}
	return &Resolver{root: canonical}, nil
}

// Root returns the canonical root directory.
func (r *Resolver) Root() string {
	return r.root
}

// DecodePath percent-decodes an escaped URL path exactly once, so encoded
// dot segments and separators take part in the containment check.
func DecodePath(escaped string) (string, error) {
	decoded, err := url.PathUnescape(escaped)
	if err != nil {
		return "", &PathSecurityError{Op: "decode", Path: escaped, Wrapped: ErrInvalidPath}
	}
	return decoded, nil
}

// Resolve returns the canonical path of the regular file that requestPath
// (already decoded, slash separated) names under the root.
func (r *Resolver) Resolve(requestPath string) (string, error) {
	if strings.ContainsRune(requestPath, 0) {
		return "", &PathSecurityError{Op: "check_nul", Path: requestPath, Wrapped: ErrInvalidPath}
	}

	rel := strings.TrimLeft(requestPath, "/")
	if rel == "" {
		return "", &PathSecurityError{Op: "check_type", Path: requestPath, Wrapped: ErrNotRegular}
	}

	// Join without cleaning so that ".." after a symlink is applied to the
	// link's real target, the way the kernel walks the path.
	candidate := r.root + string(os.PathSeparator) + filepath.FromSlash(rel)

	realPath, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if r.climbsOut(rel) {
			return "", &PathSecurityError{Op: "check_traversal", Path: requestPath, Wrapped: ErrPathTraversal}
		}
		if errors.Is(err, fs.ErrNotExist) {
			return "", &PathSecurityError{Op: "resolve", Path: requestPath, Wrapped: ErrNotFound}
		}
		return "", &PathSecurityError{Op: "resolve", Path: requestPath, Wrapped: ErrInvalidPath}
	}

	if !isWithinBase(realPath, r.root) {
		if r.climbsOut(rel) {
			return "", &PathSecurityError{Op: "check_traversal", Path: requestPath, Wrapped: ErrPathTraversal}
		}
		log.Warn("Symlink escape attempt: %s -> %s (root: %s)", candidate, realPath, r.root)
		return "", &PathSecurityError{Op: "check_symlink", Path: requestPath, Wrapped: ErrSymlinkEscape}
	}

	info, err := os.Stat(realPath)
	if err != nil {
		return "", &PathSecurityError{Op: "stat", Path: requestPath, Wrapped: ErrNotFound}
	}
	if !info.Mode().IsRegular() {
		return "", &PathSecurityError{Op: "check_type", Path: requestPath, Wrapped: ErrNotRegular}
	}

	return realPath, nil
}

// climbsOut reports whether rel leaves the root on dot segments alone. It
// only labels a rejection; containment is decided on the resolved path.
func (r *Resolver) climbsOut(rel string) bool {
	return !isWithinBase(filepath.Join(r.root, filepath.FromSlash(rel)), r.root)
}

// isWithinBase checks if path is base or a descendant of it
func isWithinBase(path, base string) bool {
	if path == base {
		return true
	}
	if !strings.HasSuffix(base, string(os.PathSeparator)) {
		base += string(os.PathSeparator)
	}
	return strings.HasPrefix(path, base)
}
