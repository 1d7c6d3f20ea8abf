package snug

import "errors"

// Sentinel errors for archive building and reading.
var (
	// ErrNoStore is returned when a build needs a chunk store and none
	// was configured.
	ErrNoStore = errors.New("snug: no chunk store configured")

	// ErrBadManifest is returned when an archive's manifest cannot be
	// parsed or fails structural checks.
	ErrBadManifest = errors.New("snug: invalid manifest")

	// ErrBadAppendix is returned when the embedded-file section is
	// truncated or inconsistent with the manifest.
	ErrBadAppendix = errors.New("snug: invalid embedded section")

	// ErrChunkMissing is returned during extraction when a referenced
	// digest is absent from the chunk store.
	ErrChunkMissing = errors.New("snug: chunk missing from store")

	// ErrCompression is returned when the archive codec fails.
	ErrCompression = errors.New("snug: compression failure")

	// ErrDuplicatePath is returned when a build or manifest contains
	// the same entry path twice.
	ErrDuplicatePath = errors.New("snug: duplicate entry path")
)
