package snug

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"gopkg.in/yaml.v3"
)

// manifestTerminator ends the YAML document so a reader can find the
// boundary between manifest text and binary appendix.
const manifestTerminator = "...\n"

// embeddedBlob pairs an embedded entry (by index into Archive.Entries)
// with its payload and digest for appendix serialization.
type embeddedBlob struct {
	entryIndex int
	hash       string
	data       []byte
}

// marshalManifest serializes the manifest without the terminator.
func marshalManifest(a *Archive) ([]byte, error) {
	out, err := yaml.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	return out, nil
}

// unmarshalManifest parses manifest bytes (terminator tolerated).
func unmarshalManifest(data []byte) (*Archive, error) {
	var a Archive
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// assemble produces the final uncompressed archive buffer:
// manifest bytes, then the embedded section when blobs exist.
//
// Embedded offsets are absolute positions in this buffer, so they can
// only be recorded once the manifest's own byte length is known --
// but writing them changes that length. assemble iterates: pick a
// section offset with slack, serialize, and grow the target until the
// manifest (padded with trailing newlines up to the target) fits.
// Padding keeps the recorded offsets exact without a fixpoint on digit
// widths.
func assemble(a *Archive, blobs []embeddedBlob) ([]byte, error) {
	if len(blobs) == 0 {
		a.EmbeddedFilesCount = 0
		a.EmbeddedSectionOffset = 0
		manifest, err := marshalManifest(a)
		if err != nil {
			return nil, err
		}
		return append(manifest, manifestTerminator...), nil
	}

	rel := relativeOffsets(blobs)
	a.EmbeddedFilesCount = len(blobs)

	base := int64(0)
	var manifest []byte
	for {
		a.EmbeddedSectionOffset = base
		for i, b := range blobs {
			a.Entries[b.entryIndex].Embedded = true
			a.Entries[b.entryIndex].EmbeddedOffset = base + rel[i]
		}
		body, err := marshalManifest(a)
		if err != nil {
			return nil, err
		}
		need := int64(len(body) + len(manifestTerminator))
		if base >= need {
			manifest = make([]byte, 0, base)
			manifest = append(manifest, body...)
			for int64(len(manifest)) < base-int64(len(manifestTerminator)) {
				manifest = append(manifest, '\n')
			}
			manifest = append(manifest, manifestTerminator...)
			break
		}
		// Slack absorbs offset fields growing more digits on the next pass.
		base = need + int64(16+4*len(blobs))
	}

	section, err := encodeAppendix(blobs)
	if err != nil {
		return nil, err
	}
	return append(manifest, section...), nil
}

// relativeOffsets returns each record's byte offset from the start of
// the embedded section.
func relativeOffsets(blobs []embeddedBlob) []int64 {
	rel := make([]int64, len(blobs))
	pos := int64(4) // u32 fileCount
	for i, b := range blobs {
		rel[i] = pos
		pos += 4 + int64(len(b.hash)) + 8 + int64(len(b.data))
	}
	return rel
}

// encodeAppendix writes the embedded section:
// u32 fileCount, then per file u32 hashLen, hash bytes, u64 dataLen, data.
// Integers are big-endian.
func encodeAppendix(blobs []embeddedBlob) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(blobs))); err != nil {
		return nil, err
	}
	for _, b := range blobs {
		if err := binary.Write(&buf, binary.BigEndian, uint32(len(b.hash))); err != nil {
			return nil, err
		}
		buf.WriteString(b.hash)
		if err := binary.Write(&buf, binary.BigEndian, uint64(len(b.data))); err != nil {
			return nil, err
		}
		buf.Write(b.data)
	}
	return buf.Bytes(), nil
}

// embeddedRecord is one decoded appendix record.
type embeddedRecord struct {
	// offset is the record's absolute position in the archive buffer.
	offset int64
	hash   string
	data   []byte
}

// decodeAppendix parses the embedded section starting at sectionOff in
// the uncompressed archive buffer.
func decodeAppendix(buf []byte, sectionOff int64) ([]embeddedRecord, error) {
	if sectionOff < 0 || sectionOff > int64(len(buf)) {
		return nil, fmt.Errorf("%w: section offset %d out of range", ErrBadAppendix, sectionOff)
	}
	section := buf[sectionOff:]
	if len(section) < 4 {
		return nil, fmt.Errorf("%w: truncated file count", ErrBadAppendix)
	}
	count := binary.BigEndian.Uint32(section)
	pos := int64(4)

	records := make([]embeddedRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		recStart := pos
		if int64(len(section)) < pos+4 {
			return nil, fmt.Errorf("%w: truncated record %d", ErrBadAppendix, i)
		}
		hashLen := int64(binary.BigEndian.Uint32(section[pos:]))
		pos += 4
		if int64(len(section)) < pos+hashLen+8 {
			return nil, fmt.Errorf("%w: truncated record %d", ErrBadAppendix, i)
		}
		hash := string(section[pos : pos+hashLen])
		pos += hashLen
		dataLen := int64(binary.BigEndian.Uint64(section[pos:])) //nolint:gosec // length checked below
		pos += 8
		if dataLen < 0 || int64(len(section))-pos < dataLen {
			return nil, fmt.Errorf("%w: record %d data overruns buffer", ErrBadAppendix, i)
		}
		records = append(records, embeddedRecord{
			offset: sectionOff + recStart,
			hash:   hash,
			data:   section[pos : pos+dataLen],
		})
		pos += dataLen
	}
	return records, nil
}

// splitManifest finds the manifest/appendix boundary in an uncompressed
// archive buffer. The manifest always ends with the document
// terminator; the parsed embeddedSectionOffset is authoritative for
// locating the appendix.
func splitManifest(buf []byte) (manifest []byte, err error) {
	idx := bytes.Index(buf, []byte("\n"+manifestTerminator))
	if idx < 0 {
		// No terminator: the whole buffer must be manifest text.
		return buf, nil
	}
	return buf[:idx+1+len(manifestTerminator)], nil
}
