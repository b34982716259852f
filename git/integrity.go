package git

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/example42/sai-suite-sub001/errors"
)

// Expectation describes what a freshly fetched repository must look like.
// Empty fields are not checked.
type Expectation struct {
	RemoteURL string
	Branch    string
}

// RepositoryInfo is what the integrity check observed.
type RepositoryInfo struct {
	Commit    string
	Branch    string
	RemoteURL string
}

// VerifyIntegrity opens dir with go-git and checks that it is a usable
// clone: .git exists, HEAD resolves to a commit object, and origin and the
// checked out branch match exp when set. Failures are CodeIntegrity.
func VerifyIntegrity(dir string, exp Expectation) (*RepositoryInfo, error) {
	if info, err := os.Stat(filepath.Join(dir, ".git")); err != nil || !info.IsDir() {
		return nil, errors.WithContext(
			errors.Newf(errors.CodeIntegrity, "%s has no .git directory", dir),
			"path", dir)
	}

	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIntegrity, "failed to open repository at %s", dir)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIntegrity, "HEAD does not resolve")
	}
	if _, err := repo.CommitObject(head.Hash()); err != nil {
		return nil, errors.Wrapf(err, errors.CodeIntegrity, "HEAD commit %s is missing", head.Hash())
	}

	info := &RepositoryInfo{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	remote, err := repo.Remote("origin")
	switch {
	case err == nil:
		if urls := remote.Config().URLs; len(urls) > 0 {
			info.RemoteURL = urls[0]
		}
	case stderrors.Is(err, gogit.ErrRemoteNotFound):
	default:
		return nil, errors.Wrap(err, errors.CodeIntegrity, "failed to read origin remote")
	}

	if exp.RemoteURL != "" && !sameRemote(info.RemoteURL, exp.RemoteURL) {
		return nil, errors.Newf(errors.CodeIntegrity,
			"origin is %q, expected %q", info.RemoteURL, exp.RemoteURL)
	}
	if exp.Branch != "" && info.Branch != exp.Branch {
		return nil, errors.Newf(errors.CodeIntegrity,
			"checked out branch is %q, expected %q", info.Branch, exp.Branch)
	}
	return info, nil
}

// currentBranch returns the short name of the branch HEAD points to.
func currentBranch(dir string) (string, error) {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		if stderrors.Is(err, gogit.ErrRepositoryNotExists) {
			return "", errors.Newf(errors.CodeNotFound, "%s is not a git repository", dir)
		}
		return "", errors.Wrapf(err, errors.CodeIntegrity, "failed to open repository at %s", dir)
	}

	ref, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeIntegrity, "failed to read HEAD")
	}
	if ref.Type() != plumbing.SymbolicReference || !ref.Target().IsBranch() {
		return "", errors.New(errors.CodeBranchNotFound, "HEAD is detached")
	}
	return ref.Target().Short(), nil
}

// sameRemote compares URLs ignoring a trailing slash or ".git" suffix.
func sameRemote(a, b string) bool {
	norm := func(s string) string {
		s = strings.TrimRight(s, "/")
		return strings.TrimSuffix(s, ".git")
	}
	return norm(a) == norm(b)
}
