// Package detect classifies file content by magic numbers.
//
// Detection only annotates chunk metadata; it never affects dedup or
// archive structure.
package detect

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// TypeInfo is the result of a detection probe.
type TypeInfo struct {
	// Type is a coarse classification: "text", "binary", or a format
	// name like "png".
	Type string

	// ContentType is a MIME type when one is known.
	ContentType string
}

// signature is one magic-number table row.
type signature struct {
	magic       []byte
	offset      int
	typ         string
	contentType string
}

var signatures = []signature{
	{[]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, 0, "png", "image/png"},
	{[]byte{0xff, 0xd8, 0xff}, 0, "jpeg", "image/jpeg"},
	{[]byte("GIF8"), 0, "gif", "image/gif"},
	{[]byte("%PDF"), 0, "pdf", "application/pdf"},
	{[]byte{0x1f, 0x8b}, 0, "gzip", "application/gzip"},
	{[]byte{0x28, 0xb5, 0x2f, 0xfd}, 0, "zstd", "application/zstd"},
	{[]byte("PK\x03\x04"), 0, "zip", "application/zip"},
	{[]byte{0x7f, 'E', 'L', 'F'}, 0, "elf", "application/x-executable"},
	{[]byte("ustar"), 257, "tar", "application/x-tar"},
	{[]byte("SQLite format 3\x00"), 0, "sqlite", "application/vnd.sqlite3"},
	{[]byte("#!"), 0, "script", "text/x-shellscript"},
}

// extensionTypes maps lowercased extensions to MIME types, used when no
// magic number matches.
var extensionTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".html": "text/html",
	".css":  "text/css",
	".json": "application/json",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".xml":  "application/xml",
	".go":   "text/x-go",
	".c":    "text/x-c",
	".py":   "text/x-python",
	".js":   "text/javascript",
}

// Detect classifies data, optionally refined by a filename extension.
// It is a pure function over its inputs.
func Detect(data []byte, ext string) TypeInfo {
	for _, sig := range signatures {
		end := sig.offset + len(sig.magic)
		if len(data) >= end && bytes.Equal(data[sig.offset:end], sig.magic) {
			return TypeInfo{Type: sig.typ, ContentType: sig.contentType}
		}
	}

	if ct, ok := extensionTypes[strings.ToLower(ext)]; ok {
		return TypeInfo{Type: "text", ContentType: ct}
	}

	if looksTextual(data) {
		return TypeInfo{Type: "text", ContentType: "text/plain"}
	}
	return TypeInfo{Type: "binary", ContentType: "application/octet-stream"}
}

// looksTextual reports whether the probe window is valid UTF-8 with no
// NUL bytes.
func looksTextual(data []byte) bool {
	const probeLen = 512
	if len(data) == 0 {
		return true
	}
	probe := data
	if len(probe) > probeLen {
		probe = probe[:probeLen]
		// Trim a trailing partial rune introduced by the cut.
		for i := 0; i < utf8.UTFMax-1 && len(probe) > 0 && !utf8.Valid(probe); i++ {
			probe = probe[:len(probe)-1]
		}
	}
	if bytes.IndexByte(probe, 0) >= 0 {
		return false
	}
	return utf8.Valid(probe)
}
