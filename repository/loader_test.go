package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example42/sai-suite-sub001/errors"
	"github.com/example42/sai-suite-sub001/internal/testutil"
)

func TestFileLoader_Load(t *testing.T) {
	root := t.TempDir()
	writeTree(root, testutil.CatalogFiles())
	writeTree(root, map[string]string{"software/jq/default.yaml": "version: \"0.3\"\n"})

	l := FileLoader{}

	got, err := l.Load(context.Background(), root, "nginx")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "software", "ng", "nginx", "default.yaml"), got)

	got, err = l.Load(context.Background(), root, "jq")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "software", "jq", "default.yaml"), got)

	_, err = l.Load(context.Background(), root, "apache")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, []string{"software/ap/apache/default.yaml", "software/apache/default.yaml"}, nf.Searched)
}

func TestFileLoader_LinkOutsideRepository(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(t.TempDir(), "secret.yaml")
	require.NoError(t, os.WriteFile(outside, []byte("secret\n"), 0o600))

	dir := filepath.Join(root, "software", "ev", "evil")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "default.yaml")))

	_, err := FileLoader{}.Load(context.Background(), root, "evil")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf), "expected not found, got %v", err)
}

func TestFileLoader_CustomFilesystem(t *testing.T) {
	mem := memfs.New()
	require.NoError(t, util.WriteFile(mem, "software/re/redis/default.yaml", []byte("x"), 0o644))
	require.NoError(t, mem.MkdirAll("software/ng/nginx", 0o755))

	l := FileLoader{FS: func(string) billy.Filesystem { return mem }}

	_, err := l.Load(context.Background(), "/repo", "redis")
	require.NoError(t, err)

	_, err = l.Load(context.Background(), "/repo", "nginx")
	assert.Error(t, err, "a directory without default.yaml is not an entry")

	names, err := l.List(context.Background(), "/repo")
	require.NoError(t, err)
	assert.Equal(t, []string{"redis"}, names)
}

func TestFileLoader_List(t *testing.T) {
	root := t.TempDir()
	writeTree(root, testutil.CatalogFiles())
	writeTree(root, map[string]string{"software/jq/default.yaml": "x"})

	names, err := FileLoader{}.List(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"jq", "nginx", "postgresql", "redis"}, names)

	names, err = FileLoader{}.List(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestNearMatches(t *testing.T) {
	names := []string{"nginx", "nginx-full", "redis", "redis-sentinel", "postgresql", "mysql", "mariadb"}

	tests := []struct {
		query string
		want  []string
	}{
		{"nginz", []string{"nginx"}},
		{"nginx", []string{"nginx-full"}},
		{"reds", []string{"redis"}},
		{"postgres", []string{"postgresql"}},
		{"sql", []string{"mysql", "postgresql"}},
		{"zzzzzz", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nearMatches(tt.query, names), tt.query)
	}
}

func TestNearMatches_Limit(t *testing.T) {
	names := []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7"}
	assert.Len(t, nearMatches("a", names), maxSuggestions)
}
