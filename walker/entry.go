package walker

import (
	"io/fs"
	"time"
)

// Kind is the filesystem type of a walked entry.
type Kind uint8

// Entry kinds.
const (
	KindFile Kind = iota
	KindDirectory
	KindSymlink
	KindBlockDevice
	KindCharDevice
	KindSocket
	KindFIFO
)

// String returns the kind name used in archive manifests.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	case KindBlockDevice:
		return "block-device"
	case KindCharDevice:
		return "character-device"
	case KindSocket:
		return "socket"
	case KindFIFO:
		return "fifo"
	default:
		return "unknown"
	}
}

// Entry is one walked filesystem object.
type Entry struct {
	// Kind is the entry's filesystem type.
	Kind Kind

	// Path is the slash-separated path relative to the walk root. For a
	// followed symlink this stays the link's path, not the target's.
	Path string

	// FSPath is the native filesystem path whose content to read. For a
	// followed symlink this is the resolved target.
	FSPath string

	// Target is the symlink target string; set only for KindSymlink.
	Target string

	// Size is the file size in bytes; meaningful for KindFile.
	Size int64

	// Mode holds the permission bits.
	Mode fs.FileMode

	// UID and GID are the owner and group on Unix; zero elsewhere.
	UID uint32
	GID uint32

	// ModTime is the entry's modification time.
	ModTime time.Time
}

// Func receives each emitted entry. Returning an error aborts the walk.
type Func func(e Entry) error

// kindOf maps a file mode to an entry kind.
func kindOf(mode fs.FileMode) Kind {
	switch {
	case mode.IsDir():
		return KindDirectory
	case mode&fs.ModeSymlink != 0:
		return KindSymlink
	case mode&fs.ModeDevice != 0 && mode&fs.ModeCharDevice != 0:
		return KindCharDevice
	case mode&fs.ModeDevice != 0:
		return KindBlockDevice
	case mode&fs.ModeSocket != 0:
		return KindSocket
	case mode&fs.ModeNamedPipe != 0:
		return KindFIFO
	default:
		return KindFile
	}
}

// isSpecial reports whether the kind has no regular content.
func isSpecial(k Kind) bool {
	switch k {
	case KindBlockDevice, KindCharDevice, KindSocket, KindFIFO:
		return true
	default:
		return false
	}
}
