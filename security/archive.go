package security

import (
	"strings"

	"github.com/example42/sai-suite-sub001/errors"
)

// MemberVerdict is the outcome of screening one archive member.
type MemberVerdict struct {
	// Safe is true when the member may be written.
	Safe bool

	// Reason explains why an unsafe member was blocked.
	Reason string

	// Fatal marks members whose name is an attack on the extraction root.
	// A fatal verdict aborts the whole extraction.
	Fatal bool
}

// ValidateArchiveMember screens a member before it is written.
//
// Absolute names, ".." components, encoded traversal and NUL or control
// characters are fatal. Oversized members and members whose expansion
// exceeds the compression ratio threshold are blocked but not fatal.
// compressedSize may be zero when the format does not record it.
func (v *Validator) ValidateArchiveMember(name string, size, compressedSize int64) MemberVerdict {
	if reason := unsafeName(name); reason != "" {
		return MemberVerdict{Reason: reason, Fatal: true}
	}
	if size > v.maxMemberSize {
		return MemberVerdict{Reason: "member " + describe(name) + " exceeds the size limit"}
	}
	if compressedSize > 0 && size > 0 {
		if float64(size)/float64(compressedSize) > v.maxCompressionRatio {
			return MemberVerdict{Reason: "member " + describe(name) + " has a suspicious compression ratio"}
		}
	}
	return MemberVerdict{Safe: true}
}

// ExtractionTally counts member verdicts over one archive.
type ExtractionTally struct {
	Safe    int
	Blocked int
	Reasons []string
}

// Record adds a verdict. It returns a CodeSecurity error for fatal verdicts.
func (t *ExtractionTally) Record(name string, verdict MemberVerdict) error {
	if verdict.Safe {
		t.Safe++
		return nil
	}
	t.Blocked++
	t.Reasons = append(t.Reasons, verdict.Reason)
	if verdict.Fatal {
		return errors.WithContext(
			errors.Newf(errors.CodeSecurity, "unsafe archive member %s: %s", describe(name), verdict.Reason),
			"member", name,
		)
	}
	return nil
}

// Err returns a CodeSecurity error when blocked members outnumber safe ones.
func (t *ExtractionTally) Err() error {
	if t.Blocked > t.Safe {
		return errors.Newf(errors.CodeSecurity,
			"archive rejected: %d blocked members outnumber %d safe members (%s)",
			t.Blocked, t.Safe, strings.Join(t.Reasons, "; "))
	}
	return nil
}

func unsafeName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "empty member name"
	}
	if strings.ContainsRune(name, 0) {
		return "member name contains a NUL byte"
	}
	if isAbsoluteName(name) {
		return "absolute member name " + describe(name)
	}
	if hasTraversal(name) {
		return "member name " + describe(name) + " contains a path traversal sequence"
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return "member name " + describe(name) + " contains a control character"
		}
	}
	return ""
}
