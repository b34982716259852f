// Package tarball fetches saidata from release archives. It is the
// fallback transport when git is not installed or a clone fails.
//
// GetLatestRelease asks the release API for the newest release and picks
// one asset, preferring tar.xz, then tar.bz2, then tar.gz, then zip, and
// finally the API-generated source tarball. A checksum is taken from a
// sidecar asset ("<asset>.sha256", "checksums.txt" or "SHA256SUMS") when
// the release publishes one.
//
// DownloadAndExtract streams the asset to a staging directory next to the
// target, verifies its checksum, extracts it with the archive package and
// renames the result into place. The target is either the complete new
// release or left untouched; a single top-level directory in the archive
// ("saidata-1.2.0/") becomes the target root.
//
//	t, err := tarball.New(tarball.WithValidator(v))
//	if err != nil {
//	    return err
//	}
//	res := t.Update(ctx, "https://github.com/example42/saidata", dir, nil)
package tarball
