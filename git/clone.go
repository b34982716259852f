package git

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/example42/sai-suite-sub001/errors"
	"github.com/example42/sai-suite-sub001/security"
	"github.com/example42/sai-suite-sub001/transport"
)

// CloneOptions configures Clone.
type CloneOptions struct {
	// Branch is checked out and verified. Empty means the remote default.
	Branch string

	// Shallow clones with --depth 1.
	Shallow bool

	Auth *transport.Credentials
}

// branchPattern accepts ordinary ref names and nothing git would read as
// an option or a revision range.
var branchPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/-]*$`)

// Clone clones url into target. The URL, target and branch are validated
// before anything is written or spawned. Retryable failures are retried
// with exponential backoff; target is removed between attempts and after
// a final failure, so it is either a verified clone or absent.
func (t *Transport) Clone(ctx context.Context, url, target string, opts CloneOptions) transport.Result {
	log := t.logger.With(zap.String("url", security.RedactURL(url)), zap.String("target", target))

	if err := t.validateCloneInputs(url, target, opts.Branch); err != nil {
		log.Error("refusing to clone", zap.Error(err))
		return transport.Failed(err, "clone blocked by security validation")
	}
	if !t.IsAvailable() {
		err := errors.New(errors.CodeUnavailable, "git binary is not available")
		return transport.Failed(err, "git is not installed")
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		err = errors.Wrapf(err, errors.CodePermission, "failed to create %s", filepath.Dir(target))
		return transport.Failed(err, "cannot prepare clone target")
	}
	if err := os.RemoveAll(target); err != nil {
		err = errors.Wrapf(err, errors.CodePermission, "failed to remove existing %s", target)
		return transport.Failed(err, "cannot prepare clone target")
	}

	env, err := t.prepareAuth(opts.Auth)
	if err != nil {
		return transport.Failed(err, "invalid credentials")
	}
	defer env.close()

	args := []string{"clone"}
	if opts.Shallow {
		args = append(args, "--depth", "1")
	}
	if opts.Branch != "" {
		args = append(args, "--branch", opts.Branch, "--single-branch")
	}
	args = append(args, "--", url, target)

	removePartial := func() {
		if err := os.RemoveAll(target); err != nil {
			log.Warn("failed to remove partial clone", zap.Error(err))
		}
	}

	err = t.retry(ctx, "clone", func() error {
		_, runErr := t.git(ctx, env, args...)
		return classify(runErr, "clone")
	}, removePartial)
	if err != nil {
		removePartial()
		log.Error("clone failed", zap.Error(err))
		return transport.Failed(err, "git clone failed")
	}

	info, err := VerifyIntegrity(target, Expectation{RemoteURL: url, Branch: opts.Branch})
	if err != nil {
		removePartial()
		log.Error("cloned repository failed verification", zap.Error(err))
		return transport.Failed(err, "cloned repository failed integrity check")
	}

	var warnings []string
	if t.verifySignatures {
		warnings = t.VerifySignatures(ctx, target)
	}

	log.Info("repository cloned", zap.String("commit", info.Commit), zap.String("branch", info.Branch))
	res := transport.Succeeded(target, "repository cloned", warnings...)
	res.Details = "commit " + info.Commit
	return res
}

func (t *Transport) validateCloneInputs(url, target, branch string) error {
	if err := t.validator.Check(url); err != nil {
		return err
	}
	if target == "" {
		return errors.New(errors.CodeSecurity, "clone target is empty")
	}
	if _, err := t.validator.ValidatePath(filepath.Dir(target), filepath.Base(target)); err != nil {
		return err
	}
	if base := filepath.Base(filepath.Clean(target)); base == "." || base == ".." || base == string(filepath.Separator) {
		return errors.Newf(errors.CodeSecurity, "clone target %q is not a directory name", target)
	}
	if branch != "" && (!branchPattern.MatchString(branch) || strings.Contains(branch, "..")) {
		return errors.Newf(errors.CodeSecurity, "branch name %q is not allowed", branch)
	}
	return nil
}
