package archive

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/example42/sai-suite-sub001/errors"
)

func (e *extraction) zip(ctx context.Context, r io.ReaderAt, size int64) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return errors.Wrap(err, errors.CodeIntegrity, "invalid zip archive")
	}

	for _, zf := range zr.File {
		if err := isDone(ctx); err != nil {
			return err
		}
		if err := e.zipMember(zf); err != nil {
			return err
		}
	}
	return nil
}

func (e *extraction) zipMember(zf *zip.File) error {
	mode := zf.Mode()
	m := member{
		name:       zf.Name,
		size:       int64(zf.UncompressedSize64),
		compressed: int64(zf.CompressedSize64),
		mode:       mode,
	}
	switch {
	case mode.IsDir() || strings.HasSuffix(zf.Name, "/"):
		m.kind = kindDir
	case mode&os.ModeSymlink != 0:
		m.kind = kindSymlink
	case mode.IsRegular():
		m.kind = kindFile
	default:
		m.kind = kindUnsupported
		m.typeName = mode.Type().String()
	}

	if m.kind == kindSymlink {
		target, err := readZipLink(zf)
		if err != nil {
			return err
		}
		m.linkname = target
	}

	path, err := e.screen(m)
	if err != nil || path == "" {
		return err
	}

	switch m.kind {
	case kindDir:
		return e.writeDir(path)
	case kindSymlink:
		return e.writeSymlink(m, path)
	}

	rc, err := zf.Open()
	if err != nil {
		return errors.Wrapf(err, errors.CodeIntegrity, "failed to open zip member %s", zf.Name)
	}
	defer rc.Close()
	return e.writeFile(m, path, rc)
}

// readZipLink reads a symlink target, which zip stores as file content.
func readZipLink(zf *zip.File) (string, error) {
	rc, err := zf.Open()
	if err != nil {
		return "", errors.Wrapf(err, errors.CodeIntegrity, "failed to open zip member %s", zf.Name)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxSymlinkTarget+1))
	if err != nil {
		return "", errors.Wrapf(err, errors.CodeIntegrity, "failed to read symlink %s", zf.Name)
	}
	if len(data) > maxSymlinkTarget {
		return "", errors.Newf(errors.CodeSecurity, "symlink target for %q is too long", zf.Name)
	}
	return string(data), nil
}
