package archive

import (
	"bytes"
	"strings"
)

// Format identifies an archive container and its compression.
type Format int

const (
	FormatUnknown Format = iota
	FormatTar
	FormatTarGz
	FormatTarBz2
	FormatTarXz
	FormatTarZst
	FormatZip
)

func (f Format) String() string {
	switch f {
	case FormatTar:
		return "tar"
	case FormatTarGz:
		return "tar.gz"
	case FormatTarBz2:
		return "tar.bz2"
	case FormatTarXz:
		return "tar.xz"
	case FormatTarZst:
		return "tar.zst"
	case FormatZip:
		return "zip"
	default:
		return "unknown"
	}
}

var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicBzip2 = []byte("BZh")
	magicXz    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicZip   = []byte("PK\x03\x04")
	magicZipE  = []byte("PK\x05\x06")
)

// sniffLength is how many leading bytes DetectFormat needs to recognize a
// plain tar (the "ustar" magic lives at offset 257).
const sniffLength = 512

var suffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tgz", FormatTarGz},
	{".tar.bz2", FormatTarBz2},
	{".tbz2", FormatTarBz2},
	{".tbz", FormatTarBz2},
	{".tar.xz", FormatTarXz},
	{".txz", FormatTarXz},
	{".tar.zst", FormatTarZst},
	{".tzst", FormatTarZst},
	{".zip", FormatZip},
	{".tar", FormatTar},
}

// FormatFromName maps a file name to a Format by suffix.
func FormatFromName(name string) Format {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format
		}
	}
	return FormatUnknown
}

// DetectFormat identifies an archive from its leading bytes, falling back
// to the name when the bytes are not conclusive.
func DetectFormat(name string, head []byte) Format {
	switch {
	case bytes.HasPrefix(head, magicGzip):
		return FormatTarGz
	case bytes.HasPrefix(head, magicXz):
		return FormatTarXz
	case bytes.HasPrefix(head, magicZstd):
		return FormatTarZst
	case bytes.HasPrefix(head, magicBzip2):
		return FormatTarBz2
	case bytes.HasPrefix(head, magicZip), bytes.HasPrefix(head, magicZipE):
		return FormatZip
	case len(head) >= 262 && string(head[257:262]) == "ustar":
		return FormatTar
	}
	return FormatFromName(name)
}
