package chunk

import (
	"fmt"
	"time"
)

// Address identifies a chunk by the hex digest of its content.
//
// Equality and hashing are by ID only; two addresses with the same ID
// refer to identical bytes. Metadata is purely descriptive.
type Address struct {
	// ID is the hex-encoded content digest.
	ID string

	// Meta carries optional descriptive metadata. Never part of identity.
	Meta *Metadata
}

// Metadata describes a chunk without participating in its identity.
type Metadata struct {
	// Size is the chunk's byte length. Zero means unknown.
	Size int64

	// ContentHash duplicates the digest for stores that persist metadata
	// separately from the address.
	ContentHash string

	// HashAlgorithm names the digest algorithm used for ContentHash.
	HashAlgorithm string

	// ContentType is a MIME-style type annotation from the detector.
	ContentType string

	// ChunkType is a coarse classification (e.g. "text", "binary").
	ChunkType string

	// OriginalFilename is the basename the content was first seen under.
	OriginalFilename string

	// OriginalPaths lists every archive path that referenced this chunk.
	OriginalPaths []string

	// Created and Modified are provenance timestamps. Zero means unset.
	Created  time.Time
	Modified time.Time

	// Compression describes on-disk compression, if any.
	Compression *CompressionInfo
}

// CompressionInfo records how a chunk was compressed at rest.
type CompressionInfo struct {
	Algorithm        string
	UncompressedSize int64
	CompressedSize   int64
}

// NewAddress computes the digest of data under algo and returns an
// address with size metadata filled in.
func NewAddress(data []byte, algo Algorithm) (Address, error) {
	id, err := algo.Sum(data)
	if err != nil {
		return Address{}, err
	}
	return Address{
		ID: id,
		Meta: &Metadata{
			Size:          int64(len(data)),
			ContentHash:   id,
			HashAlgorithm: algo.String(),
		},
	}, nil
}

// AddressOf wraps a bare digest in an Address with no metadata.
func AddressOf(id string) Address {
	return Address{ID: id}
}

// Equal reports whether two addresses refer to the same content.
// Metadata is ignored.
func (a Address) Equal(other Address) bool {
	return a.ID == other.ID
}

// String returns the digest.
func (a Address) String() string { return a.ID }

// MetaSize returns the size recorded in metadata, if any.
func (a Address) MetaSize() (int64, bool) {
	if a.Meta == nil || a.Meta.Size <= 0 {
		return 0, false
	}
	return a.Meta.Size, true
}

// Validate checks that the ID is a non-empty hex string.
func (a Address) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: empty digest", ErrInvalidAddress)
	}
	if !isHex(a.ID) {
		return fmt.Errorf("%w: %q is not hex", ErrInvalidAddress, a.ID)
	}
	return nil
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
