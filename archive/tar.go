package archive

import (
	"archive/tar"
	"compress/bzip2"
	"context"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/example42/sai-suite-sub001/errors"
)

// decompress wraps r in the reader for format. The returned closer
// releases decoder resources.
func decompress(r io.Reader, format Format) (io.Reader, func(), error) {
	switch format {
	case FormatTar:
		return r, func() {}, nil
	case FormatTarGz:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeIntegrity, "invalid gzip stream")
		}
		return gz, func() { _ = gz.Close() }, nil
	case FormatTarBz2:
		return bzip2.NewReader(r), func() {}, nil
	case FormatTarXz:
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeIntegrity, "invalid xz stream")
		}
		return xzr, func() {}, nil
	case FormatTarZst:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeIntegrity, "invalid zstd stream")
		}
		return dec, dec.Close, nil
	}
	return nil, nil, errors.Newf(errors.CodeInvalidInput, "%s is not a tar format", format)
}

func (e *extraction) tar(ctx context.Context, r io.Reader, format Format) error {
	stream, closeFn, err := decompress(r, format)
	if err != nil {
		return err
	}
	defer closeFn()

	tr := tar.NewReader(stream)
	for {
		if err := isDone(ctx); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		// ErrInsecurePath still yields the header; screen rejects the name.
		if err != nil && (hdr == nil || !errors.Is(err, tar.ErrInsecurePath)) {
			return errors.Wrap(err, errors.CodeIntegrity, "failed to read tar header")
		}
		if err := e.tarMember(tr, hdr); err != nil {
			return err
		}
	}
}

// tarMember validates and dispatches one header by type.
func (e *extraction) tarMember(tr *tar.Reader, hdr *tar.Header) error {
	switch hdr.Typeflag {
	case tar.TypeXGlobalHeader, tar.TypeXHeader:
		return nil
	}

	m := member{
		name:     hdr.Name,
		size:     hdr.Size,
		mode:     os.FileMode(hdr.Mode),
		linkname: hdr.Linkname,
	}
	switch hdr.Typeflag {
	case tar.TypeDir:
		m.kind = kindDir
	case tar.TypeReg:
		m.kind = kindFile
	case tar.TypeSymlink:
		m.kind = kindSymlink
	default:
		m.kind = kindUnsupported
		m.typeName = tarTypeName(hdr.Typeflag)
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
	default:
		return e.writeFile(m, path, tr)
	}
}

func tarTypeName(flag byte) string {
	switch flag {
	case tar.TypeLink:
		return "hardlink"
	case tar.TypeChar:
		return "char-device"
	case tar.TypeBlock:
		return "block-device"
	case tar.TypeFifo:
		return "fifo"
	default:
		return string([]byte{flag})
	}
}
