package git

import (
	stderrors "errors"
	"strings"

	"github.com/example42/sai-suite-sub001/errors"
	"github.com/example42/sai-suite-sub001/exec"
)

// stderrRule maps a lower-cased git stderr fragment to an error code.
type stderrRule struct {
	fragment string
	code     errors.ErrorCode
	// permanent overrides the code's default retryable classification.
	permanent bool
}

// Order matters: the first matching rule wins, so specific fragments come
// before generic ones like "permission denied".
var stderrRules = []stderrRule{
	{fragment: "no space left on device", code: errors.CodeDiskSpace},
	{fragment: "disk quota exceeded", code: errors.CodeDiskSpace},

	{fragment: "authentication failed", code: errors.CodeUnauthorized},
	{fragment: "permission denied (publickey", code: errors.CodeUnauthorized},
	{fragment: "could not read username", code: errors.CodeUnauthorized},
	{fragment: "could not read password", code: errors.CodeUnauthorized},
	{fragment: "invalid username or password", code: errors.CodeUnauthorized},
	{fragment: "host key verification failed", code: errors.CodeUnauthorized},
	{fragment: "returned error: 401", code: errors.CodeUnauthorized},
	{fragment: "returned error: 403", code: errors.CodeUnauthorized},

	{fragment: "remote branch", code: errors.CodeBranchNotFound},
	{fragment: "couldn't find remote ref", code: errors.CodeBranchNotFound},
	{fragment: "unknown revision", code: errors.CodeBranchNotFound},

	{fragment: "repository not found", code: errors.CodeNotFound},
	{fragment: "does not appear to be a git repository", code: errors.CodeNotFound},
	{fragment: "not a git repository", code: errors.CodeNotFound},
	{fragment: "returned error: 404", code: errors.CodeNotFound},

	{fragment: "could not resolve host", code: errors.CodeNetwork, permanent: true},
	{fragment: "could not resolve hostname", code: errors.CodeNetwork, permanent: true},
	{fragment: "ssl certificate problem", code: errors.CodeNetwork, permanent: true},
	{fragment: "connection timed out", code: errors.CodeTimeout},
	{fragment: "operation timed out", code: errors.CodeTimeout},
	{fragment: "connection reset", code: errors.CodeNetwork},
	{fragment: "connection refused", code: errors.CodeNetwork},
	{fragment: "temporary failure in name resolution", code: errors.CodeNetwork},
	{fragment: "early eof", code: errors.CodeNetwork},
	{fragment: "rpc failed", code: errors.CodeNetwork},
	{fragment: "the remote end hung up unexpectedly", code: errors.CodeNetwork},
	{fragment: "unable to access", code: errors.CodeNetwork},
	{fragment: "returned error: 5", code: errors.CodeNetwork},

	{fragment: "already exists and is not an empty directory", code: errors.CodePermission},
	{fragment: "permission denied", code: errors.CodePermission},
	{fragment: "read-only file system", code: errors.CodePermission},
}

// classify converts a failed git run into a PlatformError whose code
// selects user guidance and whose classification drives retries. The
// message keeps git's own (redacted) stderr.
func classify(err error, action string) error {
	if err == nil {
		return nil
	}

	var execErr *exec.ExecError
	if !stderrors.As(err, &execErr) {
		return errors.Wrapf(err, errors.CodeExecutionFailed, "git %s failed", action)
	}

	if execErr.TimedOut {
		return errors.Wrapf(err, errors.CodeTimeout, "git %s timed out", action)
	}
	if execErr.ExitCode == -1 && execErr.Stderr == "" {
		return errors.WithClassification(
			errors.Wrapf(err, errors.CodeUnavailable, "git %s could not be started", action),
			errors.ClassificationPermanent)
	}

	detail := lastLine(execErr.Stderr)
	lower := strings.ToLower(execErr.Stderr)
	for _, rule := range stderrRules {
		if !strings.Contains(lower, rule.fragment) {
			continue
		}
		classified := errors.Wrapf(err, rule.code, "git %s failed: %s", action, detail)
		if rule.permanent {
			classified = errors.WithClassification(classified, errors.ClassificationPermanent)
		}
		return classified
	}

	return errors.Wrapf(err, errors.CodeExecutionFailed, "git %s failed: %s", action, detail)
}

// lastLine returns the last non-empty line of git output, which usually
// holds the fatal message.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return "no output"
}
