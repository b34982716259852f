package cache

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

const (
	testURL    = "https://github.com/example42/saidata.git"
	testBranch = "main"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCache(t *testing.T, ttl time.Duration) (*RepositoryCache, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c, err := NewRepositoryCache(filepath.Join(t.TempDir(), "repositories"),
		WithFilesystem(osfs.New("/")),
		WithTTL(ttl),
		WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewRepositoryCache() error = %v", err)
	}
	return c, clock
}

// populate creates the local directory for url/branch with the given files.
func populate(t *testing.T, c *RepositoryCache, url, branch string, files map[string]string) string {
	t.Helper()
	dir := c.LocalPath(url, branch)
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	if len(files) == 0 {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
	}
	return dir
}

func TestMarkUpdated_RoundTrip(t *testing.T) {
	c, clock := newTestCache(t, time.Hour)
	dir := populate(t, c, testURL, testBranch, map[string]string{
		"software/ng/nginx/default.yaml": "version: 0.3\n",
		"software/re/redis/default.yaml": "version: 0.3\n",
	})

	if c.IsValid(testURL, testBranch) {
		t.Fatal("IsValid() = true before MarkUpdated")
	}

	if err := c.MarkUpdated(testURL, testBranch, true, "ssh"); err != nil {
		t.Fatalf("MarkUpdated() error = %v", err)
	}

	if !c.IsValid(testURL, testBranch) {
		t.Fatal("IsValid() = false after MarkUpdated")
	}
	path, ok := c.GetPath(testURL, testBranch)
	if !ok || path != dir {
		t.Errorf("GetPath() = %q, %v; want %q, true", path, ok, dir)
	}

	st := c.GetStatus(testURL, testBranch)
	if st.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2", st.FileCount)
	}
	if st.SizeBytes != int64(2*len("version: 0.3\n")) {
		t.Errorf("SizeBytes = %d", st.SizeBytes)
	}
	if !st.IsGitRepo || st.AuthType != "ssh" {
		t.Errorf("IsGitRepo/AuthType = %v/%q", st.IsGitRepo, st.AuthType)
	}

	clock.Advance(2 * time.Hour)

	if c.IsValid(testURL, testBranch) {
		t.Error("IsValid() = true after TTL elapsed")
	}
	if _, ok := c.GetPath(testURL, testBranch); ok {
		t.Error("GetPath() returned a path for an expired entry")
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expired directory was removed: %v", err)
	}

	st = c.GetStatus(testURL, testBranch)
	if !st.Exists || !st.Expired || st.Valid {
		t.Errorf("GetStatus() = %+v, want existing expired entry", st)
	}
	if st.Age != 2*time.Hour {
		t.Errorf("Age = %v, want 2h", st.Age)
	}
}

func TestMarkUpdated_Idempotent(t *testing.T) {
	c, clock := newTestCache(t, time.Hour)
	populate(t, c, testURL, testBranch, map[string]string{"a.yaml": "a"})

	if err := c.MarkUpdated(testURL, testBranch, true, ""); err != nil {
		t.Fatalf("MarkUpdated() error = %v", err)
	}
	first := c.GetStatus(testURL, testBranch)

	clock.Advance(time.Minute)
	if err := c.MarkUpdated(testURL, testBranch, true, ""); err != nil {
		t.Fatalf("second MarkUpdated() error = %v", err)
	}
	second := c.GetStatus(testURL, testBranch)

	if first.SizeBytes != second.SizeBytes || first.FileCount != second.FileCount {
		t.Errorf("content stats changed: %+v vs %+v", first, second)
	}
	if !second.LastUpdated.After(first.LastUpdated) {
		t.Error("LastUpdated did not advance")
	}
}

func TestMarkUpdated_MissingDirectory(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	if err := c.MarkUpdated(testURL, testBranch, false, ""); err == nil {
		t.Fatal("MarkUpdated() succeeded without a local directory")
	}
}

func TestMarkUpdated_ReleaseTag(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	populate(t, c, testURL, testBranch, nil)

	if err := c.MarkUpdated(testURL, testBranch, false, "", WithReleaseTag("v1.4.0")); err != nil {
		t.Fatalf("MarkUpdated() error = %v", err)
	}
	if tag := c.GetStatus(testURL, testBranch).ReleaseTag; tag != "v1.4.0" {
		t.Errorf("ReleaseTag = %q, want v1.4.0", tag)
	}
}

func TestGetStatus_NoMetadata(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)

	st := c.GetStatus(testURL, testBranch)
	if st.HasMetadata || st.Exists || st.Valid {
		t.Errorf("unexpected status: %+v", st)
	}
	if !st.Expired {
		t.Error("Expired = false with no metadata")
	}
	if st.Age != InfiniteAge || !math.IsInf(st.AgeSeconds(), 1) {
		t.Errorf("Age = %v, want infinite", st.Age)
	}

	populate(t, c, testURL, testBranch, nil)
	if !c.GetStatus(testURL, testBranch).Exists {
		t.Error("Exists = false for a directory without metadata")
	}
}

func TestCorruptMetadataIsEmptyCache(t *testing.T) {
	fs := memfs.New()
	c, err := NewRepositoryCache("/cache", WithFilesystem(fs))
	if err != nil {
		t.Fatalf("NewRepositoryCache() error = %v", err)
	}
	if err := util.WriteFile(fs, "/cache/"+metadataFileName, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if c.IsValid(testURL, testBranch) {
		t.Error("IsValid() = true with corrupt metadata")
	}
	if st := c.Stats(); st.Repositories != 0 {
		t.Errorf("Stats().Repositories = %d, want 0", st.Repositories)
	}

	// A later write replaces the corrupt file.
	if err := fs.MkdirAll(c.LocalPath(testURL, testBranch), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := c.MarkUpdated(testURL, testBranch, true, ""); err != nil {
		t.Fatalf("MarkUpdated() error = %v", err)
	}
	if !c.IsValid(testURL, testBranch) {
		t.Error("IsValid() = false after rewriting corrupt metadata")
	}
}

func TestMetadataFileFormat(t *testing.T) {
	fs := memfs.New()
	c, err := NewRepositoryCache("/cache", WithFilesystem(fs))
	if err != nil {
		t.Fatalf("NewRepositoryCache() error = %v", err)
	}
	if err := fs.MkdirAll(c.LocalPath(testURL, testBranch), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := c.MarkUpdated(testURL, testBranch, true, "token"); err != nil {
		t.Fatalf("MarkUpdated() error = %v", err)
	}

	data, err := util.ReadFile(fs, "/cache/"+metadataFileName)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, field := range []string{`"cache_version"`, `"repositories"`, `"local_path"`, `"is_git_repo": true`, `"auth_type": "token"`, `"size_bytes"`, `"file_count"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("metadata file missing %s:\n%s", field, data)
		}
	}

	entries, err := fs.ReadDir("/cache")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temporary metadata file left behind: %s", e.Name())
		}
	}
}

func TestClear(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	dir := populate(t, c, testURL, testBranch, map[string]string{"a.yaml": "a"})
	if err := c.MarkUpdated(testURL, testBranch, true, ""); err != nil {
		t.Fatalf("MarkUpdated() error = %v", err)
	}

	if err := c.Clear(testURL, testBranch); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("directory still exists after Clear: %v", err)
	}
	if c.GetStatus(testURL, testBranch).HasMetadata {
		t.Error("metadata still present after Clear")
	}

	if err := c.Clear(testURL, testBranch); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestKey(t *testing.T) {
	k1 := Key(testURL, "main")
	k2 := Key(testURL, "develop")
	k3 := Key("git@github.com:example42/saidata.git", "main")

	if !strings.HasPrefix(k1, "saidata_") || !strings.HasPrefix(k3, "saidata_") {
		t.Errorf("keys lack readable prefix: %s, %s", k1, k3)
	}
	if k1 == k2 || k1 == k3 {
		t.Errorf("keys collide: %s %s %s", k1, k2, k3)
	}
	if Key(testURL, "main") != k1 {
		t.Error("Key() is not deterministic")
	}
	if len(k1) != len("saidata_")+keyHashLength {
		t.Errorf("unexpected key length: %s", k1)
	}
}

func TestRepoName(t *testing.T) {
	tests := map[string]string{
		"https://github.com/example42/saidata.git":  "saidata",
		"https://github.com/example42/saidata/":     "saidata",
		"git@github.com:example42/sai data.git":     "sai_data",
		"ssh://git@host:2222/team/catalog-v2.git":   "catalog-v2",
		"https://example.com/":                      "repository",
		"https://example.com/../..":                 "repository",
	}
	for in, want := range tests {
		if got := RepoName(in); got != want {
			t.Errorf("RepoName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClear_IgnoresRecordedLocalPath(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	populate(t, c, testURL, testBranch, map[string]string{"a.yaml": "a"})
	if err := c.MarkUpdated(testURL, testBranch, true, ""); err != nil {
		t.Fatalf("MarkUpdated() error = %v", err)
	}

	victim := filepath.Join(t.TempDir(), "victim")
	if err := os.MkdirAll(victim, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	md := loadMetadata(c.fs, c.metadataPath, c.logger)
	md.Repositories[Key(testURL, testBranch)].LocalPath = victim
	md.Repositories["../victim"] = &RepositoryMetadata{URL: "https://github.com/o/v.git", Branch: "main", LocalPath: victim}
	if err := saveMetadata(c.fs, c.metadataPath, md); err != nil {
		t.Fatalf("saveMetadata() error = %v", err)
	}

	if got := c.GetStatus(testURL, testBranch).LocalPath; got != c.LocalPath(testURL, testBranch) {
		t.Errorf("GetStatus().LocalPath = %s, want the path under the base directory", got)
	}
	if err := c.Clear(testURL, testBranch); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := c.ClearAll(); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	if _, err := os.Stat(victim); err != nil {
		t.Errorf("directory outside the cache was removed: %v", err)
	}
	if st := c.Stats(); st.Repositories != 0 {
		t.Errorf("Stats().Repositories = %d, want 0", st.Repositories)
	}
}
