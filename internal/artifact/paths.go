package artifact

import (
	"fmt"
	"path"
	"strings"
)

// MaxPathLength bounds artifact paths to keep the state file hand-editable.
const MaxPathLength = 512

// reservedPrefixes are system locations artifacts may never target.
var reservedPrefixes = []string{
	".git/",
	".loom/",
	"node_modules/",
}

// NormalizePath converts a path to canonical forward-slash form:
// backslashes become slashes, a leading "./" is dropped, and redundant
// separators are collapsed. The empty path stays empty.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	cleaned := path.Clean(p)
	if cleaned == "." {
		return ""
	}
	return cleaned
}

// ValidatePath checks that a normalized path is safe to use as an artifact
// target. Returns an error wrapping ErrInvalidPath if validation fails.
//
// Validation rules:
//   - Must not be empty
//   - Must not exceed MaxPathLength
//   - Must not contain null bytes
//   - Must be relative (no leading "/", no drive letter)
//   - Must not contain "." or ".." segments (path traversal)
//   - Must not be under a reserved system prefix
func ValidatePath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if len(p) > MaxPathLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidPath, MaxPathLength)
	}
	if strings.ContainsRune(p, '\x00') {
		return fmt.Errorf("%w: null byte", ErrInvalidPath)
	}
	if strings.HasPrefix(p, "/") || hasDrivePrefix(p) {
		return fmt.Errorf("%w: absolute path %q", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return fmt.Errorf("%w: path traversal in %q", ErrInvalidPath, p)
		}
	}
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(p, prefix) {
			return fmt.Errorf("%w: reserved prefix %q", ErrInvalidPath, prefix)
		}
	}
	return nil
}

// hasDrivePrefix reports whether p starts with a Windows drive letter ("C:").
func hasDrivePrefix(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
