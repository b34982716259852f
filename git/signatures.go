package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example42/sai-suite-sub001/exec"
)

// VerifySignatures checks HEAD and up to five of the most recent tags.
// It never fails: every problem, including a missing gpg, is returned as a
// warning for the caller to surface.
func (t *Transport) VerifySignatures(ctx context.Context, dir string) []string {
	if !t.IsGPGAvailable() {
		return []string{"gpg is not available; commit signatures were not verified"}
	}

	var warnings []string
	if _, err := t.git(ctx, nil, "-C", dir, "verify-commit", "HEAD"); err != nil {
		warnings = append(warnings, fmt.Sprintf("HEAD commit signature not verified: %s", signatureProblem(err)))
	}

	res, err := t.git(ctx, nil, "-C", dir, "tag", "--sort=-creatordate")
	if err != nil {
		t.logger.Debug("failed to list tags", zap.Error(err))
		return warnings
	}

	for i, tag := range strings.Fields(res.Stdout) {
		if i >= maxVerifiedTags {
			break
		}
		if _, err := t.git(ctx, nil, "-C", dir, "verify-tag", "--", tag); err != nil {
			warnings = append(warnings, fmt.Sprintf("tag %s signature not verified: %s", tag, signatureProblem(err)))
		}
	}

	for _, w := range warnings {
		t.logger.Warn("signature verification", zap.String("path", dir), zap.String("warning", w))
	}
	return warnings
}

func signatureProblem(err error) string {
	msg := strings.ToLower(err.Error())
	var execErr *exec.ExecError
	if stderrors.As(err, &execErr) && execErr.Stderr != "" {
		msg = strings.ToLower(execErr.Stderr)
	}
	switch {
	case strings.Contains(msg, "no signature"), strings.Contains(msg, "cannot verify a non-tag"):
		return "unsigned"
	case strings.Contains(msg, "no public key"), strings.Contains(msg, "can't check signature"):
		return "signing key is not trusted"
	case strings.Contains(msg, "bad signature"):
		return "bad signature"
	default:
		return "verification failed"
	}
}
