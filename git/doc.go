// Package git fetches saidata repositories with the git binary.
//
// Every command is run as an argument vector through an exec.Executor, so
// no shell is involved and tests can substitute a fake. Credentials reach
// git only through environment variables: GIT_SSH_COMMAND for SSH keys and
// GIT_ASKPASS with GIT_USERNAME/GIT_PASSWORD for tokens and passwords.
// Secrets never appear in argv and are redacted from captured output.
//
// # Cloning
//
//	t := git.New(git.WithValidator(security.NewValidator()))
//	res := t.Clone(ctx, "https://github.com/example42/saidata.git", dir,
//	    git.CloneOptions{Branch: "main", Shallow: true})
//	if !res.Success {
//	    log.Println(res.Message, res.Details)
//	}
//
// Clone validates the URL and target before touching the filesystem,
// retries retryable failures with exponential backoff (1s, 2s, 4s, ...),
// removes partial clones between attempts, and verifies the result with
// go-git: the repository opens, HEAD resolves to a commit, and origin and
// branch match what was requested.
//
// # Updating
//
// Update fetches origin and runs "git reset --hard origin/<branch>". Local
// modifications are always discarded; the cache is never edited by hand.
//
// # Signatures
//
// With WithVerifySignatures, HEAD and up to five of the most recent tags
// are checked with verify-commit and verify-tag. Missing signatures,
// untrusted keys and a missing gpg binary are reported as warnings on the
// Result and never fail the operation.
package git
