package security

import (
	"bufio"
	"crypto/md5"  //nolint:gosec // md5 is accepted for published release checksums only
	"crypto/sha1" //nolint:gosec // sha1 is accepted for published release checksums only
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/example42/sai-suite-sub001/errors"
)

// Algorithm names a supported digest.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
)

// checksumChunkSize is the read size used when hashing files.
const checksumChunkSize = 64 * 1024

var hexLengths = map[Algorithm]int{
	MD5:    32,
	SHA1:   40,
	SHA256: 64,
	SHA512: 128,
}

// ParseAlgorithm validates an algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := hexLengths[a]; !ok {
		return "", errors.Newf(errors.CodeInvalidInput, "unsupported checksum algorithm %q", s)
	}
	return a, nil
}

func (a Algorithm) newHash() hash.Hash {
	switch a {
	case MD5:
		return md5.New() //nolint:gosec // see import
	case SHA1:
		return sha1.New() //nolint:gosec // see import
	case SHA512:
		return sha512.New()
	default:
		return sha256.New()
	}
}

// Checksum is a parsed "algorithm:hex" digest.
type Checksum struct {
	Algorithm Algorithm
	Hex       string
}

func (c Checksum) String() string {
	return string(c.Algorithm) + ":" + c.Hex
}

// ParseChecksum parses "algorithm:hex". A bare hex digest is accepted and
// assigned fallback. The hex length must match the algorithm.
func ParseChecksum(s string, fallback Algorithm) (Checksum, error) {
	s = strings.TrimSpace(s)
	algo, digest := fallback, s
	if i := strings.Index(s, ":"); i >= 0 {
		parsed, err := ParseAlgorithm(s[:i])
		if err != nil {
			return Checksum{}, err
		}
		algo, digest = parsed, s[i+1:]
	}
	if algo == "" {
		algo = SHA256
	}
	if _, err := ParseAlgorithm(string(algo)); err != nil {
		return Checksum{}, err
	}

	digest = strings.ToLower(digest)
	if len(digest) != hexLengths[algo] {
		return Checksum{}, errors.Newf(errors.CodeInvalidInput,
			"%s checksum must be %d hex characters, got %d", algo, hexLengths[algo], len(digest))
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return Checksum{}, errors.Newf(errors.CodeInvalidInput, "checksum %q is not valid hex", digest)
	}
	return Checksum{Algorithm: algo, Hex: digest}, nil
}

// ComputeChecksum streams the file at path through algo in fixed-size
// chunks and returns the lowercase hex digest.
func ComputeChecksum(path string, algo Algorithm) (_ string, err error) {
	if _, err := ParseAlgorithm(string(algo)); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.CodeIntegrity, "failed to open %s for hashing", path)
	}
	defer func() {
		_ = f.Close()
	}()

	h := algo.newHash()
	buf := make([]byte, checksumChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", errors.Wrapf(err, errors.CodeIntegrity, "failed to hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ChecksumError reports a digest mismatch.
type ChecksumError struct {
	Path     string
	Expected Checksum
	Got      string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s: expected %s, got %s:%s",
		e.Path, e.Expected, e.Expected.Algorithm, e.Got)
}

// VerifyChecksum compares the digest of the file at path with expected.
// It returns a CodeIntegrity error wrapping *ChecksumError on mismatch.
func VerifyChecksum(path string, expected Checksum) error {
	got, err := ComputeChecksum(path, expected.Algorithm)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(expected.Hex))) != 1 {
		return errors.Wrap(&ChecksumError{Path: path, Expected: expected, Got: got},
			errors.CodeIntegrity, "checksum mismatch")
	}
	return nil
}

// ParseChecksumFile reads sha256sum-style lines ("<hex>  <name>" or
// "<hex> *<name>") and returns digests keyed by file name. Malformed
// lines are skipped.
func ParseChecksumFile(r io.Reader) (map[string]string, error) {
	entries := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		digest := strings.ToLower(fields[0])
		name := strings.TrimPrefix(fields[1], "*")
		if _, err := hex.DecodeString(digest); err != nil || name == "" {
			continue
		}
		entries[name] = digest
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeIntegrity, "failed to read checksum file")
	}
	return entries, nil
}

// AlgorithmForHex guesses the algorithm from a bare hex digest length.
func AlgorithmForHex(digest string) (Algorithm, bool) {
	for algo, n := range hexLengths {
		if len(digest) == n {
			return algo, true
		}
	}
	return "", false
}
