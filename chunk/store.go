package chunk

import "context"

// Store is content-addressed chunk storage.
//
// Read-style operations return a nil payload, not an error, when no
// chunk exists at the address. Writing the same digest twice is an
// idempotent success; implementations must not duplicate storage.
type Store interface {
	// Write persists data at addr and returns the canonical address to
	// use for later reads. Storing an already-present digest is a no-op
	// success.
	Write(ctx context.Context, data []byte, addr Address) (Address, error)

	// Read returns the full chunk payload, or nil if absent.
	Read(ctx context.Context, addr Address) ([]byte, error)

	// ReadRange returns length bytes starting at off, or nil if the
	// chunk is absent. A negative offset or an offset past the end of
	// the chunk is ErrRangeInvalid; a length overrunning the end is
	// clamped, not an error.
	ReadRange(ctx context.Context, addr Address, off, length int64) ([]byte, error)

	// Update replaces the payload at an existing address.
	// Returns ErrNotFound if no chunk exists there.
	Update(ctx context.Context, data []byte, addr Address) error

	// Delete removes the chunk. Returns ErrNotFound if absent.
	Delete(ctx context.Context, addr Address) error

	// Exists reports whether a chunk is stored at the address.
	Exists(ctx context.Context, addr Address) (bool, error)

	// Size returns the stored byte length without loading the payload.
	// Returns ErrNotFound if absent.
	Size(ctx context.Context, addr Address) (int64, error)

	// OpenHandle returns a seekable handle for large-object access, or
	// nil if the chunk is absent.
	OpenHandle(ctx context.Context, addr Address) (Handle, error)
}

// Handle is a randomly-seekable view of one stored chunk.
type Handle interface {
	// ReadRange returns length bytes starting at off, with the same
	// range semantics as Store.ReadRange.
	ReadRange(off, length int64) ([]byte, error)

	// Size returns the chunk's total byte length.
	Size() int64

	// Close releases the handle. Closing twice is a no-op.
	Close() error
}
