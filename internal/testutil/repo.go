package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// NewCatalogRepo initializes a git repository at dir on branch, commits
// files, and points origin at remoteURL without contacting it. It returns
// the commit hash.
//
// Example:
//
//	hash := testutil.NewCatalogRepo(t, dir, testutil.TestRepoURL, "main", testutil.CatalogFiles())
func NewCatalogRepo(t testing.TB, dir, remoteURL, branch string, files map[string]string) string {
	t.Helper()

	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(branch),
		},
	})
	if err != nil {
		t.Fatalf("failed to init repository: %v", err)
	}

	if remoteURL != "" {
		_, err = repo.CreateRemote(&config.RemoteConfig{
			Name: "origin",
			URLs: []string{remoteURL},
		})
		if err != nil {
			t.Fatalf("failed to create origin: %v", err)
		}
	}

	return AddCommit(t, dir, files, "Initial commit")
}

// AddCommit writes files into the repository at dir and commits them.
func AddCommit(t testing.TB, dir string, files map[string]string, message string) string {
	t.Helper()

	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		t.Fatalf("failed to open repository: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}

	for name, content := range files {
		WriteFile(t, filepath.Join(dir, name), content)
		if _, err := wt.Add(name); err != nil {
			t.Fatalf("failed to stage %s: %v", name, err)
		}
	}

	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  TestAuthor,
			Email: TestEmail,
			When:  time.Now(),
		},
		AllowEmptyCommits: len(files) == 0,
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return hash.String()
}

// WriteFile creates path and its parents with content.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
