package tarball

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"

	"github.com/example42/sai-suite-sub001/archive"
	"github.com/example42/sai-suite-sub001/errors"
	"github.com/example42/sai-suite-sub001/github"
	"github.com/example42/sai-suite-sub001/security"
	"github.com/example42/sai-suite-sub001/transport"
)

// ReleaseSource looks up releases and streams their assets.
// *github.ReleaseClient implements it.
type ReleaseSource interface {
	LatestRelease(ctx context.Context, owner, repo string, creds *transport.Credentials) (*github.Release, error)
	Open(ctx context.Context, url string, creds *transport.Credentials) (io.ReadCloser, int64, error)
}

// ReleaseInfo describes the asset chosen from a release.
type ReleaseInfo struct {
	TagName     string
	AssetName   string
	DownloadURL string
	Format      archive.Format

	// Checksum is the expected hex digest, empty when none was published.
	Checksum          string
	ChecksumAlgorithm security.Algorithm

	// Size is the announced asset size, zero when unknown.
	Size        int64
	PublishedAt time.Time
}

// HasChecksum reports whether the release published a digest for the asset.
func (r *ReleaseInfo) HasChecksum() bool {
	return r.Checksum != ""
}

// assetPreference ranks archive suffixes; lower is better.
var assetPreference = []struct {
	format   archive.Format
	suffixes []string
}{
	{archive.FormatTarXz, []string{".tar.xz", ".txz"}},
	{archive.FormatTarBz2, []string{".tar.bz2", ".tbz2", ".tbz"}},
	{archive.FormatTarGz, []string{".tar.gz", ".tgz"}},
	{archive.FormatZip, []string{".zip"}},
}

// sidecarNames are release-wide checksum listings, checked after the
// per-asset "<asset>.<algorithm>" files.
var sidecarNames = []string{"checksums.txt", "SHA256SUMS", "sha256sums.txt", "SHA512SUMS"}

// GetLatestRelease resolves repoURL to owner/name and returns the best
// asset of its latest release.
func (t *Transport) GetLatestRelease(ctx context.Context, repoURL string, auth *transport.Credentials) (*ReleaseInfo, error) {
	if err := t.validator.Check(repoURL); err != nil {
		return nil, err
	}
	owner, repo, err := github.ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	rel, err := t.source.LatestRelease(ctx, owner, repo, auth)
	if err != nil {
		return nil, err
	}

	info, ok := selectAsset(rel)
	if !ok {
		return nil, errors.WithContext(
			errors.Newf(errors.CodeNotFound, "release %s of %s/%s has no downloadable archive", rel.TagName, owner, repo),
			"tag", rel.TagName)
	}

	t.discoverChecksum(ctx, rel, info, auth)

	t.logger.Info("latest release resolved",
		zap.String("repo", owner+"/"+repo),
		zap.String("tag", info.TagName),
		zap.String("asset", info.AssetName),
		zap.Bool("checksum", info.HasChecksum()))
	return info, nil
}

// selectAsset picks the preferred archive asset, falling back to the
// API-generated tarball and zipball.
func selectAsset(rel *github.Release) (*ReleaseInfo, bool) {
	base := ReleaseInfo{TagName: rel.TagName, PublishedAt: rel.PublishedAt}

	for _, pref := range assetPreference {
		for _, a := range rel.Assets {
			if a.DownloadURL == "" || !hasAnySuffix(strings.ToLower(a.Name), pref.suffixes) {
				continue
			}
			info := base
			info.AssetName = a.Name
			info.DownloadURL = a.DownloadURL
			info.Size = a.Size
			info.Format = pref.format
			return &info, true
		}
	}

	switch {
	case rel.TarballURL != "":
		info := base
		info.AssetName = rel.TagName + ".tar.gz"
		info.DownloadURL = rel.TarballURL
		info.Format = archive.FormatTarGz
		return &info, true
	case rel.ZipballURL != "":
		info := base
		info.AssetName = rel.TagName + ".zip"
		info.DownloadURL = rel.ZipballURL
		info.Format = archive.FormatZip
		return &info, true
	}
	return nil, false
}

// discoverChecksum fills info.Checksum from a sidecar asset. Failures are
// logged and leave the checksum empty.
func (t *Transport) discoverChecksum(ctx context.Context, rel *github.Release, info *ReleaseInfo, auth *transport.Credentials) {
	for _, algo := range []security.Algorithm{security.SHA256, security.SHA512} {
		sidecar, ok := rel.FindAsset(info.AssetName + "." + string(algo))
		if !ok {
			continue
		}
		data, err := t.fetchSidecar(ctx, sidecar, auth)
		if err != nil {
			t.logger.Warn("failed to read checksum file", zap.String("asset", sidecar.Name), zap.Error(err))
			continue
		}
		digest, ok := digestFor(data, info.AssetName)
		if found, _ := security.AlgorithmForHex(digest); ok && found == algo {
			info.Checksum, info.ChecksumAlgorithm = digest, algo
			return
		}
	}

	for _, name := range sidecarNames {
		sidecar, ok := rel.FindAsset(name)
		if !ok {
			continue
		}
		data, err := t.fetchSidecar(ctx, sidecar, auth)
		if err != nil {
			t.logger.Warn("failed to read checksum file", zap.String("asset", sidecar.Name), zap.Error(err))
			continue
		}
		entries, err := security.ParseChecksumFile(bytes.NewReader(data))
		if err != nil {
			continue
		}
		if digest, ok := entries[info.AssetName]; ok {
			if algo, ok := security.AlgorithmForHex(digest); ok {
				info.Checksum, info.ChecksumAlgorithm = digest, algo
				return
			}
		}
	}
}

func (t *Transport) fetchSidecar(ctx context.Context, a github.Asset, auth *transport.Credentials) ([]byte, error) {
	body, _, err := t.source.Open(ctx, a.DownloadURL, auth)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxSidecarSize+1))
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeNetwork, "failed to read %s", a.Name)
	}
	if len(data) > maxSidecarSize {
		return nil, errors.Newf(errors.CodeIntegrity, "checksum file %s is too large", a.Name)
	}
	return data, nil
}

// digestFor reads a per-asset sidecar: either a bare digest or a
// "<digest>  <name>" line.
func digestFor(data []byte, assetName string) (string, bool) {
	if entries, err := security.ParseChecksumFile(bytes.NewReader(data)); err == nil {
		if digest, ok := entries[assetName]; ok {
			return digest, true
		}
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", false
	}
	digest := strings.ToLower(fields[0])
	if _, ok := security.AlgorithmForHex(digest); !ok {
		return "", false
	}
	return digest, true
}

// UpdateAvailable reports whether latest is newer than current. Semantic
// versions ("1.2.0" or "v1.2.0") are compared as such; anything else is
// newer when it differs.
func UpdateAvailable(current, latest string) bool {
	if latest == "" {
		return false
	}
	if current == "" {
		return true
	}
	c, l := canonical(current), canonical(latest)
	if semver.IsValid(c) && semver.IsValid(l) {
		return semver.Compare(l, c) > 0
	}
	return current != latest
}

func canonical(tag string) string {
	if !strings.HasPrefix(tag, "v") {
		tag = "v" + tag
	}
	return tag
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
