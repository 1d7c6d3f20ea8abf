// Package compress provides whole-buffer codecs for archive files.
//
// The archive format is agnostic to which codec wraps it as long as
// compression is invertible; [ForName] selects a codec by name and
// [Detect] recognizes one from the magic bytes of compressed output.
package compress

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrUnknownCodec is returned for an unrecognized codec name or for
// compressed data whose format cannot be identified.
var ErrUnknownCodec = errors.New("compress: unknown codec")

// Codec compresses and decompresses whole byte buffers.
type Codec interface {
	Name() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// Codec names accepted by ForName.
const (
	NameNone = "none"
	NameGzip = "gzip"
	NameZstd = "zstd"
	NameLZ4  = "lz4"
)

// ForName returns the codec with the given name.
func ForName(name string) (Codec, error) {
	switch name {
	case NameNone, "":
		return None{}, nil
	case NameGzip:
		return Gzip{}, nil
	case NameZstd:
		return Zstd{}, nil
	case NameLZ4:
		return LZ4{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// Magic prefixes for the supported formats.
var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Detect identifies the codec that produced data by its magic bytes,
// falling back to None when no known magic matches.
func Detect(data []byte) Codec {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return Zstd{}
	case bytes.HasPrefix(data, lz4Magic):
		return LZ4{}
	case bytes.HasPrefix(data, gzipMagic):
		return Gzip{}
	default:
		return None{}
	}
}

// None is the identity codec.
type None struct{}

// Name implements Codec.
func (None) Name() string { return NameNone }

// Compress implements Codec. The input is returned unchanged, no copy.
func (None) Compress(data []byte) ([]byte, error) { return data, nil }

// Decompress implements Codec.
func (None) Decompress(data []byte) ([]byte, error) { return data, nil }
