package git

import (
	"context"

	"go.uber.org/zap"

	"github.com/example42/sai-suite-sub001/errors"
	"github.com/example42/sai-suite-sub001/transport"
)

// Update fetches origin and hard-resets the current branch to
// origin/<branch>. Local modifications and untracked changes to tracked
// files are discarded; the cache directory is never edited by hand.
func (t *Transport) Update(ctx context.Context, dir string, auth *transport.Credentials) transport.Result {
	log := t.logger.With(zap.String("path", dir))

	if !t.IsAvailable() {
		err := errors.New(errors.CodeUnavailable, "git binary is not available")
		return transport.Failed(err, "git is not installed")
	}

	branch, err := currentBranch(dir)
	if err != nil {
		return transport.Failed(err, "cannot update repository")
	}

	before, err := VerifyIntegrity(dir, Expectation{})
	if err != nil {
		return transport.Failed(err, "local repository is damaged")
	}
	if before.RemoteURL != "" {
		if err := t.validator.Check(before.RemoteURL); err != nil {
			log.Error("refusing to fetch from origin", zap.Error(err))
			return transport.Failed(err, "update blocked by security validation")
		}
	}

	env, err := t.prepareAuth(auth)
	if err != nil {
		return transport.Failed(err, "invalid credentials")
	}
	defer env.close()

	err = t.retry(ctx, "fetch", func() error {
		_, runErr := t.git(ctx, env, "-C", dir, "fetch", "origin")
		return classify(runErr, "fetch")
	}, nil)
	if err != nil {
		log.Error("fetch failed", zap.Error(err))
		return transport.Failed(err, "git fetch failed")
	}

	if _, err := t.git(ctx, env, "-C", dir, "reset", "--hard", "origin/"+branch); err != nil {
		err = classify(err, "reset")
		log.Error("reset failed", zap.Error(err))
		return transport.Failed(err, "git reset failed")
	}

	after, err := VerifyIntegrity(dir, Expectation{Branch: branch})
	if err != nil {
		return transport.Failed(err, "updated repository failed integrity check")
	}

	var warnings []string
	if t.verifySignatures {
		warnings = t.VerifySignatures(ctx, dir)
	}

	msg := "repository already up to date"
	if after.Commit != before.Commit {
		msg = "repository updated"
	}
	log.Info(msg, zap.String("branch", branch), zap.String("from", before.Commit), zap.String("to", after.Commit))

	res := transport.Succeeded(dir, msg, warnings...)
	res.Details = "commit " + after.Commit
	return res
}
