package snug

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArchive(entries ...Entry) *Archive {
	return &Archive{
		Format:        FormatName,
		Version:       FormatVersion,
		HashAlgorithm: "sha256",
		Entries:       entries,
	}
}

func TestManifest_MarshalRoundTrip(t *testing.T) {
	a := testArchive(
		Entry{Type: TypeDirectory, Path: "src", Permissions: "0755"},
		Entry{Type: TypeFile, Path: "src/main.go", Hash: "abc123", Size: 42,
			Permissions: "0644", Modified: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)},
		Entry{Type: TypeSymlink, Path: "latest", Target: "src"},
	)
	a.Hashes = map[string]HashDefinition{
		"abc123": {Hash: "abc123", Size: 42, Algorithm: "sha256"},
	}

	raw, err := marshalManifest(a)
	require.NoError(t, err)

	parsed, err := unmarshalManifest(raw)
	require.NoError(t, err)
	assert.Equal(t, a.Entries, parsed.Entries)
	assert.Equal(t, a.Hashes, parsed.Hashes)
	assert.Equal(t, FormatName, parsed.Format)
}

func TestManifest_ValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Archive)
		wantErr error
	}{
		{"wrong format", func(a *Archive) { a.Format = "tarball" }, ErrBadManifest},
		{"wrong version", func(a *Archive) { a.Version = 99 }, ErrBadManifest},
		{"absolute path", func(a *Archive) { a.Entries[0].Path = "/etc/passwd" }, ErrBadManifest},
		{"dotdot path", func(a *Archive) { a.Entries[0].Path = "../escape" }, ErrBadManifest},
		{"dot path", func(a *Archive) { a.Entries[0].Path = "." }, ErrBadManifest},
		{"backslash path", func(a *Archive) { a.Entries[0].Path = `a\b` }, ErrBadManifest},
		{"duplicate path", func(a *Archive) {
			a.Entries = append(a.Entries, Entry{Type: TypeFile, Path: "f.txt", Hash: "ff"})
		}, ErrDuplicatePath},
		{"hash on directory", func(a *Archive) {
			a.Entries[1].Hash = "abc"
		}, ErrBadManifest},
		{"hash on embedded file", func(a *Archive) {
			a.Entries[0].Embedded = true
		}, ErrBadManifest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testArchive(
				Entry{Type: TypeFile, Path: "f.txt", Hash: "aa"},
				Entry{Type: TypeDirectory, Path: "d"},
			)
			tt.mutate(a)
			raw, err := marshalManifest(a)
			require.NoError(t, err)
			_, err = unmarshalManifest(raw)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAssemble_NoEmbeds(t *testing.T) {
	a := testArchive(Entry{Type: TypeFile, Path: "f.txt", Hash: "aa"})

	buf, err := assemble(a, nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(buf, []byte(manifestTerminator)))
	assert.Equal(t, 0, a.EmbeddedFilesCount)

	manifestBytes, err := splitManifest(buf)
	require.NoError(t, err)
	parsed, err := unmarshalManifest(manifestBytes)
	require.NoError(t, err)
	assert.Len(t, parsed.Entries, 1)
}

func TestAssemble_EmbeddedOffsetsAreExact(t *testing.T) {
	a := testArchive(
		Entry{Type: TypeFile, Path: ".env", Embedded: true},
		Entry{Type: TypeFile, Path: "real.txt", Hash: "cc"},
		Entry{Type: TypeFile, Path: ".config", Embedded: true},
	)
	blobs := []embeddedBlob{
		{entryIndex: 0, hash: "aabb", data: []byte("first payload")},
		{entryIndex: 2, hash: "ddee", data: []byte("second")},
	}

	buf, err := assemble(a, blobs)
	require.NoError(t, err)
	assert.Equal(t, 2, a.EmbeddedFilesCount)

	// The section offset points at the appendix file count.
	off := a.EmbeddedSectionOffset
	require.Greater(t, off, int64(0))
	assert.Equal(t, uint32(2), binary.BigEndian.Uint32(buf[off:]))

	// Each entry's recorded offset points at its record: u32 hashLen,
	// hash bytes, u64 dataLen, data.
	for i, blob := range blobs {
		rec := a.Entries[blob.entryIndex].EmbeddedOffset
		hashLen := int64(binary.BigEndian.Uint32(buf[rec:]))
		require.Equal(t, int64(len(blob.hash)), hashLen, "blob %d", i)
		assert.Equal(t, blob.hash, string(buf[rec+4:rec+4+hashLen]))
		dataLen := int64(binary.BigEndian.Uint64(buf[rec+4+hashLen:]))
		require.Equal(t, int64(len(blob.data)), dataLen)
		start := rec + 4 + hashLen + 8
		assert.Equal(t, blob.data, buf[start:start+dataLen])
	}

	// The whole buffer round-trips through the reader path.
	manifestBytes, err := splitManifest(buf)
	require.NoError(t, err)
	parsed, err := unmarshalManifest(manifestBytes)
	require.NoError(t, err)
	records, err := decodeAppendix(buf, parsed.EmbeddedSectionOffset)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "aabb", records[0].hash)
	assert.Equal(t, []byte("first payload"), records[0].data)
	assert.Equal(t, parsed.Entries[0].EmbeddedOffset, records[0].offset)
	assert.Equal(t, parsed.Entries[2].EmbeddedOffset, records[1].offset)
}

func TestDecodeAppendix_Truncated(t *testing.T) {
	blobs := []embeddedBlob{{entryIndex: 0, hash: "aa", data: []byte("payload")}}
	section, err := encodeAppendix(blobs)
	require.NoError(t, err)

	_, err = decodeAppendix(section[:2], 0)
	assert.ErrorIs(t, err, ErrBadAppendix)

	_, err = decodeAppendix(section[:6], 0)
	assert.ErrorIs(t, err, ErrBadAppendix)

	_, err = decodeAppendix(section[:len(section)-1], 0)
	assert.ErrorIs(t, err, ErrBadAppendix)

	_, err = decodeAppendix(section, int64(len(section)+1))
	assert.ErrorIs(t, err, ErrBadAppendix)

	records, err := decodeAppendix(section, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []byte("payload"), records[0].data)
}

func TestSplitManifest(t *testing.T) {
	manifest := []byte("format: snug\n...\n")
	appendix := []byte{0, 0, 0, 0}

	got, err := splitManifest(append(append([]byte{}, manifest...), appendix...))
	require.NoError(t, err)
	assert.Equal(t, manifest, got)

	// Terminator absent: the whole buffer is manifest text.
	plain := []byte("format: snug\n")
	got, err = splitManifest(plain)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}
