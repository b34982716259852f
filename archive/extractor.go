package archive

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/example42/sai-suite-sub001/errors"
	"github.com/example42/sai-suite-sub001/security"
)

const (
	// DefaultMaxTotalSize caps the bytes written by one extraction.
	DefaultMaxTotalSize int64 = 1024 * 1024 * 1024

	// ratioCheckFloor is the amount written before the archive-wide
	// expansion ratio is enforced. Small text catalogs compress well.
	ratioCheckFloor int64 = 1024 * 1024

	maxSymlinkTarget = 4096

	// maxLinkDepth matches the kernel's limit on nested symlinks.
	maxLinkDepth = 40
)

// Extractor unpacks archives under a destination directory.
type Extractor struct {
	validator    *security.Validator
	logger       *zap.Logger
	maxTotalSize int64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithValidator sets the validator used to screen members.
func WithValidator(v *security.Validator) Option {
	return func(x *Extractor) {
		x.validator = v
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(x *Extractor) {
		x.logger = logger
	}
}

// WithMaxTotalSize caps the total bytes written by one extraction.
func WithMaxTotalSize(n int64) Option {
	return func(x *Extractor) {
		if n > 0 {
			x.maxTotalSize = n
		}
	}
}

// NewExtractor creates an Extractor with a default validator.
func NewExtractor(opts ...Option) *Extractor {
	x := &Extractor{maxTotalSize: DefaultMaxTotalSize}
	for _, opt := range opts {
		opt(x)
	}
	if x.validator == nil {
		x.validator = security.NewValidator()
	}
	if x.logger == nil {
		x.logger = zap.NewNop()
	}
	return x
}

// Summary describes a finished extraction.
type Summary struct {
	Format   Format
	Files    int
	Dirs     int
	Symlinks int
	Bytes    int64

	// Skipped lists the reasons for members that were not written.
	Skipped []string
}

// Extract unpacks the archive at src into dest, creating dest if needed.
//
// On error dest may hold a partial tree; callers publish atomically by
// extracting into a staging directory.
func (x *Extractor) Extract(ctx context.Context, src, dest string) (*Summary, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeNotFound, "failed to open archive %s", src)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "failed to stat archive %s", src)
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, errors.Wrapf(err, errors.CodeInternal, "failed to read archive %s", src)
	}
	format := DetectFormat(src, head[:n])
	if format == FormatUnknown {
		return nil, errors.WithContext(
			errors.Newf(errors.CodeInvalidInput, "unrecognized archive format: %s", filepath.Base(src)),
			"archive", src)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "failed to rewind archive %s", src)
	}

	root, err := filepath.Abs(dest)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInvalidInput, "failed to resolve destination %s", dest)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.CodePermission, "failed to create destination %s", root)
	}

	st := &extraction{
		x:           x,
		root:        root,
		archiveSize: info.Size(),
		summary:     &Summary{Format: format},
		symlinks:    map[string]string{},
	}

	x.logger.Debug("extracting archive",
		zap.String("archive", filepath.Base(src)),
		zap.Stringer("format", format),
		zap.Int64("size", info.Size()))

	if format == FormatZip {
		err = st.zip(ctx, f, info.Size())
	} else {
		err = st.tar(ctx, f, format)
	}
	if err != nil {
		return nil, err
	}
	if err := st.tally.Err(); err != nil {
		return nil, err
	}

	st.summary.Skipped = st.tally.Reasons
	x.logger.Info("archive extracted",
		zap.Stringer("format", format),
		zap.Int("files", st.summary.Files),
		zap.Int("dirs", st.summary.Dirs),
		zap.Int("skipped", st.tally.Blocked),
		zap.Int64("bytes", st.summary.Bytes))
	return st.summary, nil
}

// extraction is the per-archive state shared by the tar and zip readers.
type extraction struct {
	x           *Extractor
	root        string
	archiveSize int64
	summary     *Summary
	tally       security.ExtractionTally
	// symlinks maps each link created so far to its target.
	symlinks map[string]string
}

// memberKind is the format-independent type of an archive member.
type memberKind int

const (
	kindFile memberKind = iota
	kindDir
	kindSymlink
	kindUnsupported
)

type member struct {
	name       string
	kind       memberKind
	size       int64
	compressed int64
	mode       os.FileMode
	linkname   string
	typeName   string
}

// screen validates m and records the verdict. It returns the absolute
// destination path, or "" when the member is skipped.
func (e *extraction) screen(m member) (string, error) {
	v := e.x.validator
	verdict := v.ValidateArchiveMember(m.name, m.size, m.compressed)
	if verdict.Safe && m.kind == kindUnsupported {
		verdict = security.MemberVerdict{Reason: "unsupported member type " + m.typeName + " for " + m.name}
	}
	if err := e.tally.Record(m.name, verdict); err != nil {
		return "", err
	}
	if !verdict.Safe {
		e.x.logger.Warn("skipping archive member", zap.String("member", m.name), zap.String("reason", verdict.Reason))
		return "", nil
	}

	path, err := v.ValidatePath(e.root, filepath.FromSlash(m.name))
	if err != nil {
		return "", err
	}
	if err := e.checkParents(m.name, path); err != nil {
		return "", err
	}
	return path, nil
}

// checkParents rejects members placed beneath a symlink from this archive.
func (e *extraction) checkParents(name, path string) error {
	for dir := filepath.Dir(path); dir != e.root && len(dir) > len(e.root); dir = filepath.Dir(dir) {
		if _, ok := e.symlinks[dir]; ok {
			return errors.WithContext(
				errors.Newf(errors.CodeSecurity, "archive member %q is written through a symlink", name),
				"member", name)
		}
	}
	return nil
}

func (e *extraction) writeDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.Wrapf(err, errors.CodePermission, "failed to create directory %s", path)
	}
	e.summary.Dirs++
	return nil
}

func (e *extraction) writeFile(m member, path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, errors.CodePermission, "failed to create directory for %s", m.name)
	}
	if err := removeExisting(path); err != nil {
		return err
	}

	perm := m.mode.Perm()&0o755 | 0o600
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		return errors.Wrapf(err, errors.CodePermission, "failed to create %s", m.name)
	}

	limit := e.x.validator.MaxMemberSize()
	written, err := io.Copy(&guardedWriter{w: f, e: e}, io.LimitReader(r, limit+1))
	if err == nil {
		err = f.Chmod(perm)
	}
	closeErr := f.Close()
	switch {
	case errors.GetCode(err) == errors.CodeSecurity:
		return err
	case err != nil:
		return errors.Wrapf(err, errors.CodeIntegrity, "failed to extract %s", m.name)
	case closeErr != nil:
		return errors.Wrapf(closeErr, errors.CodePermission, "failed to write %s", m.name)
	case written > limit:
		return errors.WithContext(
			errors.Newf(errors.CodeSecurity, "archive member %q expands beyond the size limit", m.name),
			"member", m.name)
	}

	e.summary.Files++
	return nil
}

// guardedWriter counts bytes as they are written so totals are enforced
// in the middle of a large member.
type guardedWriter struct {
	w io.Writer
	e *extraction
}

func (g *guardedWriter) Write(p []byte) (int, error) {
	n, err := g.w.Write(p)
	g.e.summary.Bytes += int64(n)
	if err != nil {
		return n, err
	}
	return n, g.e.checkTotals()
}

func (e *extraction) writeSymlink(m member, path string) error {
	if err := e.x.validator.ValidateSymlink(e.root, m.name, m.linkname); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, errors.CodePermission, "failed to create directory for %s", m.name)
	}
	if err := removeExisting(path); err != nil {
		return err
	}
	if err := os.Symlink(filepath.FromSlash(m.linkname), path); err != nil {
		return errors.Wrapf(err, errors.CodePermission, "failed to create symlink %s", m.name)
	}
	e.symlinks[path] = m.linkname

	// A new link can change where earlier links resolve, so every link is
	// followed again through the links recorded so far.
	for link, target := range e.symlinks {
		if _, err := e.resolveLink(filepath.Dir(link), target, 0); err != nil {
			delete(e.symlinks, path)
			_ = os.Remove(path)
			return errors.WithContext(
				errors.Wrapf(err, errors.CodeSecurity, "symlink %q escapes the extraction root", m.name),
				"member", m.name)
		}
	}
	e.summary.Symlinks++
	return nil
}

// resolveLink follows target from dir one component at a time, expanding
// links created by this extraction, and fails as soon as the walk leaves
// the root.
func (e *extraction) resolveLink(dir, target string, depth int) (string, error) {
	if depth > maxLinkDepth {
		return "", errors.Newf(errors.CodeSecurity, "symlink chain deeper than %d links", maxLinkDepth)
	}
	cur := dir
	for _, part := range strings.Split(filepath.ToSlash(target), "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			cur = filepath.Dir(cur)
		default:
			cur = filepath.Join(cur, part)
		}
		if _, err := e.x.validator.ValidatePath(e.root, cur); err != nil {
			return "", err
		}
		if next, ok := e.symlinks[cur]; ok {
			resolved, err := e.resolveLink(filepath.Dir(cur), next, depth+1)
			if err != nil {
				return "", err
			}
			cur = resolved
		}
	}
	return cur, nil
}

// checkTotals enforces the total size cap and the archive-wide expansion
// ratio.
func (e *extraction) checkTotals() error {
	written := e.summary.Bytes
	if written > e.x.maxTotalSize {
		return errors.Newf(errors.CodeSecurity, "archive expands beyond %d bytes", e.x.maxTotalSize)
	}
	if written > ratioCheckFloor && e.archiveSize > 0 {
		ratio := float64(written) / float64(e.archiveSize)
		if ratio > e.x.validator.MaxCompressionRatio() {
			return errors.WithContext(
				errors.Newf(errors.CodeSecurity, "archive expansion ratio %.0f exceeds %.0f; possible decompression bomb",
					ratio, e.x.validator.MaxCompressionRatio()),
				"ratio", ratio)
		}
	}
	return nil
}

// removeExisting clears a non-directory entry left by an earlier member
// with the same name so the new one is never written through a link.
func removeExisting(path string) error {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, errors.CodePermission, "failed to inspect %s", path)
	}
	if info.IsDir() {
		return errors.Newf(errors.CodeIntegrity, "archive member would replace directory %s", path)
	}
	if err := os.Remove(path); err != nil {
		return errors.Wrapf(err, errors.CodePermission, "failed to replace %s", path)
	}
	return nil
}

// isDone returns a wrapped context error if ctx is done.
func isDone(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.CodeTimeout, "extraction canceled")
	default:
		return nil
	}
}
