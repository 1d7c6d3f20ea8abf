package snug

import (
	"fmt"
	"io/fs"
	"strings"
	"time"
)

// Archive format identity.
const (
	FormatName    = "snug"
	FormatVersion = 1
)

// EntryType is the filesystem type of an archive entry.
type EntryType string

// Entry types.
const (
	TypeFile        EntryType = "file"
	TypeDirectory   EntryType = "directory"
	TypeSymlink     EntryType = "symlink"
	TypeBlockDevice EntryType = "block-device"
	TypeCharDevice  EntryType = "character-device"
	TypeSocket      EntryType = "socket"
	TypeFIFO        EntryType = "fifo"
)

// HashDefinition is one hash-registry record: a unique digest observed
// during a build, with its payload size and algorithm.
type HashDefinition struct {
	Hash      string `yaml:"hash"`
	Size      int64  `yaml:"size"`
	Algorithm string `yaml:"algorithm"`
}

// Entry is one manifest record describing a filesystem object.
//
// Hash is set iff the entry is a non-embedded file. EmbeddedOffset is
// set iff Embedded is true and is the byte offset of the entry's
// record within the uncompressed archive buffer. Paths are
// slash-separated, relative, and unique within one archive.
type Entry struct {
	Type           EntryType `yaml:"type"`
	Path           string    `yaml:"path"`
	Hash           string    `yaml:"hash,omitempty"`
	Size           int64     `yaml:"size,omitempty"`
	Target         string    `yaml:"target,omitempty"`
	Permissions    string    `yaml:"permissions,omitempty"`
	Owner          string    `yaml:"owner,omitempty"`
	Group          string    `yaml:"group,omitempty"`
	Modified       time.Time `yaml:"modified,omitempty"`
	Created        time.Time `yaml:"created,omitempty"`
	Embedded       bool      `yaml:"embedded,omitempty"`
	EmbeddedOffset int64     `yaml:"embeddedOffset,omitempty"`
	ContentType    string    `yaml:"contentType,omitempty"`
}

// Archive is the top-level manifest. Once written to disk an archive is
// immutable; updating a tree means building a new archive.
type Archive struct {
	Format                string                    `yaml:"format"`
	Version               int                       `yaml:"version"`
	HashAlgorithm         string                    `yaml:"hashAlgorithm"`
	Hashes                map[string]HashDefinition `yaml:"hashes,omitempty"`
	Entries               []Entry                   `yaml:"entries"`
	EmbeddedFilesCount    int                       `yaml:"embeddedFilesCount,omitempty"`
	EmbeddedSectionOffset int64                     `yaml:"embeddedSectionOffset,omitempty"`
}

// validate performs structural checks on a parsed manifest.
func (a *Archive) validate() error {
	if a.Format != FormatName {
		return fmt.Errorf("%w: format %q", ErrBadManifest, a.Format)
	}
	if a.Version != FormatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrBadManifest, a.Version)
	}
	seen := make(map[string]struct{}, len(a.Entries))
	for _, e := range a.Entries {
		if !fs.ValidPath(e.Path) || e.Path == "." || strings.ContainsRune(e.Path, '\\') {
			return fmt.Errorf("%w: bad entry path %q", ErrBadManifest, e.Path)
		}
		if _, dup := seen[e.Path]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicatePath, e.Path)
		}
		seen[e.Path] = struct{}{}
		if e.Hash != "" && (e.Type != TypeFile || e.Embedded) {
			return fmt.Errorf("%w: entry %s: hash on %s entry", ErrBadManifest, e.Path, e.Type)
		}
	}
	return nil
}
