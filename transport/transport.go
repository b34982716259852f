// Package transport holds the types shared by the git and release archive
// transports and by the repository manager that dispatches between them.
package transport

import (
	"github.com/example42/sai-suite-sub001/errors"
)

// Kind identifies one of the closed set of fetch mechanisms.
type Kind int

const (
	// KindGit clones and fast-forwards with the git binary.
	KindGit Kind = iota + 1
	// KindTarball downloads and extracts release archives.
	KindTarball
)

func (k Kind) String() string {
	switch k {
	case KindGit:
		return "git"
	case KindTarball:
		return "tarball"
	default:
		return "unknown"
	}
}

// Result is returned by every transport operation. Expected failures are
// reported here rather than as Go errors; Err carries the classified cause
// so callers can branch on errors.GetCode or errors.IsSecurity.
type Result struct {
	Success bool
	Message string

	// Details holds guidance for failures or extra context for successes.
	Details string

	// Path is the published local directory. Only set on success.
	Path string

	// Warnings are advisory findings that did not fail the operation,
	// such as unsigned commits.
	Warnings []string

	Err error
}

// Succeeded builds a successful Result for path.
func Succeeded(path, message string, warnings ...string) Result {
	return Result{
		Success:  true,
		Message:  message,
		Path:     path,
		Warnings: warnings,
	}
}

// Failed builds a failed Result from a classified error. Details is filled
// with the guidance for err's code.
func Failed(err error, message string) Result {
	return Result{
		Success: false,
		Message: message,
		Details: errors.Guidance(err),
		Err:     err,
	}
}

// Error returns r.Err, or nil for a successful result.
func (r Result) Error() error {
	if r.Success {
		return nil
	}
	if r.Err == nil {
		return errors.New(errors.CodeUnknown, r.Message)
	}
	return r.Err
}
