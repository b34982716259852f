// Package archive extracts release archives into a directory without
// letting any member escape it.
//
// Supported formats are tar wrapped in gzip, bzip2, xz or zstd, plain tar,
// and zip. The format is sniffed from the leading bytes and falls back to
// the file name, so archives served without a suffix (such as the release
// API's generated tarballs) still extract.
//
// Every member is screened by a security.Validator before anything is
// written:
//
//   - absolute names, ".." components, encoded traversal and control
//     characters abort the extraction
//   - symlinks must resolve inside the destination, and nothing is written
//     beneath a symlink created by the same archive
//   - oversized members, hard links and device nodes are skipped
//   - when skipped members outnumber extracted ones the archive is rejected
//
// The ratio between bytes written and the archive size is checked while
// extracting, which catches decompression bombs in formats that do not
// record per-member compressed sizes.
//
// Example:
//
//	x := archive.NewExtractor(archive.WithValidator(security.NewValidator()))
//	summary, err := x.Extract(ctx, "/tmp/saidata-1.2.0.tar.xz", "/tmp/staging")
//	if err != nil {
//	    return err
//	}
//	log.Printf("extracted %d files", summary.Files)
package archive
