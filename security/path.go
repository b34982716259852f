package security

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/example42/sai-suite-sub001/errors"
)

// ValidatePath resolves candidate against base and returns the absolute
// result. Relative candidates are joined to base; absolute candidates must
// already lie inside it. Any result outside base is a CodeSecurity error.
func (v *Validator) ValidatePath(base, candidate string) (string, error) {
	if base == "" {
		return "", errors.New(errors.CodeInvalidInput, "base directory is empty")
	}
	if candidate == "" {
		return "", errors.New(errors.CodeSecurity, "path is empty")
	}
	if strings.ContainsRune(candidate, 0) {
		return "", errors.Newf(errors.CodeSecurity, "path contains a NUL byte: %q", candidate)
	}

	baseAbs, err := filepath.Abs(filepath.Clean(base))
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInvalidInput, "failed to resolve base directory")
	}

	joined := candidate
	if !filepath.IsAbs(candidate) {
		joined = filepath.Join(baseAbs, candidate)
	}
	resolved, err := filepath.Abs(filepath.Clean(joined))
	if err != nil {
		return "", errors.Wrapf(err, errors.CodeSecurity, "failed to resolve path %q", candidate)
	}

	if !within(baseAbs, resolved) {
		return "", errors.Newf(errors.CodeSecurity, "path %q escapes %s", candidate, baseAbs)
	}
	return resolved, nil
}

// ValidateSymlink checks that a link at linkPath (relative to root)
// pointing to target stays inside root once resolved.
func (v *Validator) ValidateSymlink(root, linkPath, target string) error {
	if target == "" {
		return errors.Newf(errors.CodeSecurity, "symlink %q has an empty target", linkPath)
	}
	if isAbsoluteName(target) {
		return errors.Newf(errors.CodeSecurity, "symlink %q points to absolute path %q", linkPath, target)
	}
	resolved := filepath.Join(filepath.Dir(filepath.FromSlash(linkPath)), filepath.FromSlash(target))
	if _, err := v.ValidatePath(root, resolved); err != nil {
		return errors.Wrapf(err, errors.CodeSecurity, "symlink %q escapes the extraction root", linkPath)
	}
	return nil
}

func within(base, p string) bool {
	if p == base {
		return true
	}
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// isAbsoluteName detects absolute names on every platform, including
// Windows drive letters and UNC paths found in archives built elsewhere.
func isAbsoluteName(name string) bool {
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) || filepath.IsAbs(name) {
		return true
	}
	if len(name) >= 2 && name[1] == ':' && isLetter(name[0]) {
		return true
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func describe(name string) string {
	return fmt.Sprintf("%q", name)
}
