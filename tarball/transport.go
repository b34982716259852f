package tarball

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/example42/sai-suite-sub001/archive"
	"github.com/example42/sai-suite-sub001/errors"
	"github.com/example42/sai-suite-sub001/github"
	"github.com/example42/sai-suite-sub001/security"
	"github.com/example42/sai-suite-sub001/transport"
)

// Transport downloads and installs release archives.
type Transport struct {
	source         ReleaseSource
	validator      *security.Validator
	logger         *zap.Logger
	maxRetries     int
	initialBackoff time.Duration
	maxArchiveSize int64
}

// New creates a Transport. Without WithReleaseSource it talks to the
// public release API.
func New(opts ...Option) (*Transport, error) {
	t := &Transport{
		maxRetries:     DefaultMaxRetries,
		initialBackoff: DefaultInitialBackoff,
		maxArchiveSize: DefaultMaxArchiveSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}
	if t.validator == nil {
		t.validator = security.NewValidator(security.WithLogger(t.logger))
	}
	if t.source == nil {
		client, err := github.NewReleaseClient(github.WithLogger(t.logger))
		if err != nil {
			return nil, err
		}
		t.source = client
	}
	return t, nil
}

// Update installs the latest release of repoURL into target.
func (t *Transport) Update(ctx context.Context, repoURL, target string, auth *transport.Credentials) transport.Result {
	info, err := t.GetLatestRelease(ctx, repoURL, auth)
	if err != nil {
		t.logger.Error("failed to resolve latest release",
			zap.String("url", security.RedactURL(repoURL)), zap.Error(err))
		return transport.Failed(err, "failed to look up the latest release")
	}
	return t.DownloadAndExtract(ctx, info, target, auth)
}

// DownloadAndExtract installs release into target. The archive is staged
// next to target and target is replaced only by a complete, verified
// tree. A failed download or extraction leaves target untouched.
func (t *Transport) DownloadAndExtract(ctx context.Context, release *ReleaseInfo, target string, auth *transport.Credentials) transport.Result {
	if release == nil || release.DownloadURL == "" {
		err := errors.New(errors.CodeInvalidInput, "release has no download URL")
		return transport.Failed(err, "nothing to download")
	}
	log := t.logger.With(zap.String("tag", release.TagName), zap.String("asset", release.AssetName), zap.String("target", target))

	if err := t.validateInputs(release, target); err != nil {
		log.Error("refusing to install release", zap.Error(err))
		return transport.Failed(err, "release blocked by security validation")
	}

	parent := filepath.Dir(target)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		err = errors.Wrapf(err, errors.CodePermission, "failed to create %s", parent)
		return transport.Failed(err, "cannot prepare release target")
	}
	staging, err := os.MkdirTemp(parent, ".staging-"+filepath.Base(target)+"-")
	if err != nil {
		err = errors.Wrapf(err, errors.CodePermission, "failed to create staging directory in %s", parent)
		return transport.Failed(err, "cannot prepare release target")
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			log.Warn("failed to remove staging directory", zap.String("dir", staging), zap.Error(err))
		}
	}()

	archivePath := filepath.Join(staging, "download"+archiveSuffix(release))
	if err := t.download(ctx, release, archivePath, auth); err != nil {
		log.Error("download failed", zap.Error(err))
		return transport.Failed(err, "failed to download release archive")
	}

	var warnings []string
	if release.HasChecksum() {
		expected := security.Checksum{Algorithm: release.ChecksumAlgorithm, Hex: release.Checksum}
		if err := security.VerifyChecksum(archivePath, expected); err != nil {
			log.Error("checksum mismatch", zap.Error(err))
			return transport.Failed(err, "release archive failed checksum verification")
		}
		log.Debug("checksum verified", zap.String("algorithm", string(release.ChecksumAlgorithm)))
	} else {
		warnings = append(warnings, "release "+release.TagName+" publishes no checksum; archive integrity was not verified")
	}

	extracted := filepath.Join(staging, "tree")
	extractor := archive.NewExtractor(archive.WithValidator(t.validator), archive.WithLogger(t.logger))
	summary, err := extractor.Extract(ctx, archivePath, extracted)
	if err != nil {
		log.Error("extraction failed", zap.Error(err))
		return transport.Failed(err, "failed to extract release archive")
	}

	root, err := singleRoot(extracted)
	if err != nil {
		return transport.Failed(err, "failed to inspect extracted release")
	}
	if err := publish(root, target); err != nil {
		log.Error("failed to publish release", zap.Error(err))
		return transport.Failed(err, "failed to install release")
	}

	for _, reason := range summary.Skipped {
		warnings = append(warnings, "skipped archive member: "+reason)
	}

	log.Info("release installed",
		zap.Stringer("format", summary.Format),
		zap.Int("files", summary.Files),
		zap.Int64("bytes", summary.Bytes))
	res := transport.Succeeded(target, "release "+release.TagName+" installed", warnings...)
	res.Details = fmt.Sprintf("%s: %d files from %s", release.TagName, summary.Files, release.AssetName)
	return res
}

func (t *Transport) validateInputs(release *ReleaseInfo, target string) error {
	if err := t.validator.Check(release.DownloadURL); err != nil {
		return err
	}
	if target == "" {
		return errors.New(errors.CodeSecurity, "release target is empty")
	}
	if _, err := t.validator.ValidatePath(filepath.Dir(target), filepath.Base(target)); err != nil {
		return err
	}
	if base := filepath.Base(filepath.Clean(target)); base == "." || base == ".." || base == string(filepath.Separator) {
		return errors.Newf(errors.CodeSecurity, "release target %q is not a directory name", target)
	}
	return nil
}

// download streams the asset to path, retrying retryable failures with
// exponential backoff. The partial file is removed after each failure.
func (t *Transport) download(ctx context.Context, release *ReleaseInfo, path string, auth *transport.Credentials) error {
	attempt := 0
	op := func() error {
		attempt++
		err := t.downloadOnce(ctx, release, path, auth)
		if err == nil {
			return nil
		}
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			t.logger.Warn("failed to remove partial download", zap.Error(rmErr))
		}
		if !errors.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		t.logger.Warn("download failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", next),
			zap.Error(err))
	}
	return backoff.RetryNotify(op, newBackOff(ctx, t.initialBackoff, t.maxRetries), notify)
}

func (t *Transport) downloadOnce(ctx context.Context, release *ReleaseInfo, path string, auth *transport.Credentials) error {
	body, size, err := t.source.Open(ctx, release.DownloadURL, auth)
	if err != nil {
		return err
	}
	defer body.Close()

	if size > t.maxArchiveSize || release.Size > t.maxArchiveSize {
		return errors.WithContext(
			errors.Newf(errors.CodeSecurity, "release archive %s exceeds the %d byte limit", release.AssetName, t.maxArchiveSize),
			"size", size)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return errors.Wrapf(err, errors.CodePermission, "failed to create %s", path)
	}
	written, copyErr := io.Copy(f, io.LimitReader(body, t.maxArchiveSize+1))
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), errors.CodeTimeout, "download interrupted")
		}
		return errors.Wrapf(copyErr, errors.CodeNetwork, "download of %s interrupted", release.AssetName)
	case closeErr != nil:
		return errors.Wrapf(closeErr, errors.CodeDiskSpace, "failed to write %s", path)
	case written > t.maxArchiveSize:
		return errors.Newf(errors.CodeSecurity, "release archive %s exceeds the %d byte limit", release.AssetName, t.maxArchiveSize)
	case size > 0 && written != size:
		return errors.Newf(errors.CodeNetwork, "download of %s truncated: got %d of %d bytes", release.AssetName, written, size)
	}

	t.logger.Debug("archive downloaded", zap.String("asset", release.AssetName), zap.Int64("bytes", written))
	return nil
}

// newBackOff returns the 1s, 2s, 4s, ... schedule capped at maxRetries.
func newBackOff(ctx context.Context, initial time.Duration, maxRetries int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)
}

// archiveSuffix keeps the asset's suffix on the staged file so format
// detection can fall back to it.
func archiveSuffix(release *ReleaseInfo) string {
	if f := archive.FormatFromName(release.AssetName); f != archive.FormatUnknown {
		return "." + f.String()
	}
	if release.Format != archive.FormatUnknown {
		return "." + release.Format.String()
	}
	return ""
}

// singleRoot returns the only subdirectory of dir when dir holds nothing
// else, which is how release archives wrap their content.
func singleRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrapf(err, errors.CodeIntegrity, "failed to read %s", dir)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}

// publish replaces target with src. Both live under the same parent, so
// the rename does not cross filesystems.
func publish(src, target string) error {
	if err := os.RemoveAll(target); err != nil {
		return errors.Wrapf(err, errors.CodePermission, "failed to remove previous %s", target)
	}
	if err := os.Rename(src, target); err != nil {
		return errors.Wrapf(err, errors.CodePermission, "failed to move release into %s", target)
	}
	return nil
}
