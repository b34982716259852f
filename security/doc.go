// Package security gates every fetch performed by the synchronizer.
//
// It validates repository URLs before any process is spawned, keeps
// filesystem writes inside their base directory, screens archive members
// for traversal and decompression bombs, and verifies downloaded files
// against published checksums.
//
// # Strictness
//
// URL findings are split into issues and warnings. Under LevelStrict and
// LevelModerate any issue makes the URL invalid. LevelPermissive demotes
// issues to warnings, except shell metacharacters, which are rejected at
// every level.
//
//	v := security.NewValidator(security.WithLevel(security.LevelModerate))
//	res := v.ValidateRepositoryURL("https://github.com/example42/saidata.git")
//	if !res.Valid {
//	    return fmt.Errorf("unsafe repository URL: %v", res.Issues)
//	}
//
// # Paths
//
// ValidatePath resolves a candidate against a base directory and fails
// with a CodeSecurity error when the result escapes it. Archive
// extraction and clone targets both go through it.
//
// # Checksums
//
// Checksums are written "algorithm:hex" (for example "sha256:9f86d0...").
// Supported algorithms are md5, sha1, sha256 and sha512. Digests are
// computed by streaming the file in fixed-size chunks.
package security
