package testutil

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Entry is one member of a generated archive.
type Entry struct {
	Name     string
	Body     string
	Mode     int64
	Type     byte // tar.TypeReg when zero
	Linkname string
}

// Dir returns a directory entry.
func Dir(name string) Entry {
	return Entry{Name: strings.TrimSuffix(name, "/") + "/", Type: tar.TypeDir, Mode: 0o755}
}

// File returns a regular file entry.
func File(name, body string) Entry {
	return Entry{Name: name, Body: body, Mode: 0o644}
}

// Symlink returns a symlink entry.
func Symlink(name, target string) Entry {
	return Entry{Name: name, Type: tar.TypeSymlink, Linkname: target, Mode: 0o777}
}

// CatalogEntries wraps files under a single top-level directory, the
// layout used by release tarballs ("saidata-1.2.0/software/...").
func CatalogEntries(prefix string, files map[string]string) []Entry {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := []Entry{Dir(prefix)}
	for _, name := range names {
		entries = append(entries, File(prefix+"/"+name, files[name]))
	}
	return entries
}

// TarBytes writes entries as an uncompressed tar stream.
func TarBytes(t testing.TB, entries []Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		typ := e.Type
		if typ == 0 {
			typ = tar.TypeReg
		}
		size := int64(0)
		if typ == tar.TypeReg {
			size = int64(len(e.Body))
		}
		hdr := &tar.Header{
			Name:     e.Name,
			Typeflag: typ,
			Mode:     e.Mode,
			Size:     size,
			Linkname: e.Linkname,
			ModTime:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Format:   tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to write tar header %q: %v", e.Name, err)
		}
		if size > 0 {
			if _, err := io.WriteString(tw, e.Body); err != nil {
				t.Fatalf("failed to write tar body %q: %v", e.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	return buf.Bytes()
}

// WriteTarGz writes a gzip-compressed tar to dir/name and returns its path.
func WriteTarGz(t testing.TB, dir, name string, entries []Entry) string {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	writeAll(t, gz, TarBytes(t, entries))
	return writeArchive(t, dir, name, buf.Bytes())
}

// WriteTarXz writes an xz-compressed tar to dir/name and returns its path.
func WriteTarXz(t testing.TB, dir, name string, entries []Entry) string {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("failed to create xz writer: %v", err)
	}
	writeAll(t, xw, TarBytes(t, entries))
	return writeArchive(t, dir, name, buf.Bytes())
}

// WriteTarZst writes a zstd-compressed tar to dir/name and returns its path.
func WriteTarZst(t testing.TB, dir, name string, entries []Entry) string {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("failed to create zstd writer: %v", err)
	}
	writeAll(t, zw, TarBytes(t, entries))
	return writeArchive(t, dir, name, buf.Bytes())
}

// WriteZip writes a zip archive to dir/name and returns its path.
func WriteZip(t testing.TB, dir, name string, entries []Entry) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		fh := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		switch e.Type {
		case tar.TypeDir:
			fh.SetMode(os.ModeDir | 0o755)
		case tar.TypeSymlink:
			fh.SetMode(os.ModeSymlink | 0o777)
		default:
			fh.SetMode(os.FileMode(e.Mode))
		}
		w, err := zw.CreateHeader(fh)
		if err != nil {
			t.Fatalf("failed to create zip member %q: %v", e.Name, err)
		}
		body := e.Body
		if e.Type == tar.TypeSymlink {
			body = e.Linkname
		}
		if _, err := io.WriteString(w, body); err != nil {
			t.Fatalf("failed to write zip member %q: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %v", err)
	}
	return writeArchive(t, dir, name, buf.Bytes())
}

func writeAll(t testing.TB, w io.WriteCloser, data []byte) {
	t.Helper()
	if _, err := w.Write(data); err != nil {
		t.Fatalf("failed to compress archive: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to finish archive: %v", err)
	}
}

func writeArchive(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write archive: %v", err)
	}
	return path
}

// Malicious archive layouts. Each is a list of entries that a safe
// extractor must refuse or neutralize.

// PathTraversalEntries escape the destination with ".." components.
func PathTraversalEntries() []Entry {
	return []Entry{
		File("saidata/README.md", "ok"),
		File("../../../etc/passwd", "root::0:0::/:/bin/sh"),
		File("saidata/../../escape.txt", "nested traversal"),
	}
}

// AbsolutePathEntries use absolute and drive-letter names.
func AbsolutePathEntries() []Entry {
	return []Entry{
		File("/etc/cron.d/evil", "* * * * * root sh"),
		File("C:\\Windows\\evil.dll", "MZ"),
	}
}

// SymlinkEscapeEntries point a link outside and write through it.
func SymlinkEscapeEntries() []Entry {
	return []Entry{
		Symlink("saidata/link", "../../outside"),
		File("saidata/link/payload", "written through the link"),
	}
}

// SymlinkChainEntries create an in-tree link to "." and then a link below
// it that climbs out once the first link is followed.
func SymlinkChainEntries() []Entry {
	return []Entry{
		Symlink("d", "."),
		Symlink("d/up", "../outside"),
	}
}

// SymlinkParentEscapeEntries link d/s to the root and then link l through
// d/s/.. so the second link only escapes once the first is followed.
func SymlinkParentEscapeEntries() []Entry {
	return []Entry{
		Dir("d"),
		File("ok.yaml", "version: \"0.2\""),
		Symlink("d/s", ".."),
		Symlink("l", "d/s/.."),
	}
}

// SymlinkForwardEscapeEntries create l through a/x before a/x exists; the
// later a/x link makes l climb out of the root.
func SymlinkForwardEscapeEntries() []Entry {
	return []Entry{
		Dir("a"),
		Symlink("l", "a/x/.."),
		Symlink("a/x", ".."),
	}
}

// BombEntries hold one highly compressible member of size bytes.
func BombEntries(size int) []Entry {
	return []Entry{File("bomb.txt", strings.Repeat("\x00", size))}
}

// SpecialFileEntries mix regular files with members that are never
// written: hard links and device nodes.
func SpecialFileEntries() []Entry {
	return []Entry{
		File("saidata/a.yaml", "a"),
		{Name: "saidata/hard", Type: tar.TypeLink, Linkname: "saidata/a.yaml"},
		{Name: "saidata/dev", Type: tar.TypeChar, Mode: 0o600},
		{Name: "saidata/blk", Type: tar.TypeBlock, Mode: 0o600},
	}
}

// ListFiles returns the slash-separated paths of every entry under root,
// without following symlinks.
func ListFiles(t testing.TB, root string) []string {
	t.Helper()
	var out []string
	err := filepath.Walk(root, func(path string, _ os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel != "." {
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk %s: %v", root, err)
	}
	sort.Strings(out)
	return out
}
