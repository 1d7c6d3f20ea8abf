package snug

import (
	"fmt"
	"os"

	"github.com/snugdev/snug/compress"
)

// Reader provides access to one opened archive.
type Reader struct {
	// Manifest is the parsed archive manifest.
	Manifest *Archive

	records map[int64]embeddedRecord
	codec   compress.Codec
}

// openConfig holds configuration for opening an archive.
type openConfig struct {
	codec compress.Codec
}

// OpenOption configures Open.
type OpenOption func(*openConfig)

// OpenWithCodec forces a codec instead of sniffing the compressed
// buffer's magic bytes.
func OpenWithCodec(codec compress.Codec) OpenOption {
	return func(cfg *openConfig) {
		cfg.codec = codec
	}
}

// Open reads and parses the archive file at path.
func Open(path string, opts ...OpenOption) (*Reader, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided archive path is intentional
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	r, err := OpenBytes(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", path, err)
	}
	return r, nil
}

// OpenBytes parses an archive from its compressed bytes.
func OpenBytes(data []byte, opts ...OpenOption) (*Reader, error) {
	cfg := openConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	codec := cfg.codec
	if codec == nil {
		codec = compress.Detect(data)
	}

	buf, err := codec.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}

	manifestBytes, err := splitManifest(buf)
	if err != nil {
		return nil, err
	}
	manifest, err := unmarshalManifest(manifestBytes)
	if err != nil {
		return nil, err
	}

	r := &Reader{Manifest: manifest, codec: codec}
	if manifest.EmbeddedFilesCount > 0 {
		records, err := decodeAppendix(buf, manifest.EmbeddedSectionOffset)
		if err != nil {
			return nil, err
		}
		if len(records) != manifest.EmbeddedFilesCount {
			return nil, fmt.Errorf("%w: manifest declares %d embedded files, section has %d",
				ErrBadAppendix, manifest.EmbeddedFilesCount, len(records))
		}
		r.records = make(map[int64]embeddedRecord, len(records))
		for _, rec := range records {
			r.records[rec.offset] = rec
		}
	}
	return r, nil
}

// EmbeddedData returns the appendix payload for an embedded entry,
// located by its recorded offset.
func (r *Reader) EmbeddedData(e Entry) ([]byte, error) {
	if !e.Embedded {
		return nil, fmt.Errorf("%w: entry %s is not embedded", ErrBadAppendix, e.Path)
	}
	rec, ok := r.records[e.EmbeddedOffset]
	if !ok {
		return nil, fmt.Errorf("%w: no record at offset %d for %s", ErrBadAppendix, e.EmbeddedOffset, e.Path)
	}
	return rec.data, nil
}

// Entries returns the manifest entries in archive order.
func (r *Reader) Entries() []Entry {
	return r.Manifest.Entries
}

// Codec returns the codec the archive was decompressed with.
func (r *Reader) Codec() compress.Codec {
	return r.codec
}
