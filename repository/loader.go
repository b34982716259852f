package repository

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/example42/sai-suite-sub001/errors"
)

const (
	catalogDir  = "software"
	catalogFile = "default.yaml"
)

// FileLoader resolves software entries laid out as
// software/<first two letters>/<name>/default.yaml, falling back to the
// flat software/<name>/default.yaml layout.
type FileLoader struct {
	// FS opens a repository root. Defaults to the host filesystem.
	FS func(root string) billy.Filesystem
}

func (l FileLoader) open(root string) billy.Filesystem {
	if l.FS != nil {
		return l.FS(root)
	}
	return osfs.New(root, osfs.WithBoundOS())
}

// Candidates lists the repository-relative paths searched for software.
func Candidates(software string) []string {
	var out []string
	if len(software) >= 2 {
		out = append(out, path.Join(catalogDir, software[:2], software, catalogFile))
	}
	return append(out, path.Join(catalogDir, software, catalogFile))
}

// Load returns the absolute path of the entry for software, or a
// *NotFoundError listing the searched paths.
func (l FileLoader) Load(ctx context.Context, repoPath, software string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(err, errors.CodeTimeout, "catalog lookup canceled")
	}
	fsys := l.open(repoPath)

	searched := Candidates(software)
	for _, rel := range searched {
		info, err := fsys.Stat(rel)
		if err == nil && info.Mode().IsRegular() {
			return filepath.Join(repoPath, filepath.FromSlash(rel)), nil
		}
		if err != nil && !os.IsNotExist(err) {
			return "", errors.Wrapf(err, errors.CodePermission, "failed to read %s", rel)
		}
	}
	return "", &NotFoundError{Software: software, Searched: searched}
}

// List returns the sorted software names present in the repository.
func (l FileLoader) List(ctx context.Context, repoPath string) ([]string, error) {
	fsys := l.open(repoPath)

	top, err := fsys.ReadDir(catalogDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodePermission, "failed to list %s", catalogDir)
	}

	seen := make(map[string]bool)
	for _, dir := range top {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CodeTimeout, "catalog listing canceled")
		}
		if !dir.IsDir() {
			continue
		}
		dirPath := path.Join(catalogDir, dir.Name())
		if isRegular(fsys, path.Join(dirPath, catalogFile)) {
			seen[dir.Name()] = true
		}
		children, err := fsys.ReadDir(dirPath)
		if err != nil {
			continue
		}
		for _, child := range children {
			if child.IsDir() && isRegular(fsys, path.Join(dirPath, child.Name(), catalogFile)) {
				seen[child.Name()] = true
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func isRegular(fsys billy.Filesystem, p string) bool {
	info, err := fsys.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
