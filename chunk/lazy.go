package chunk

import (
	"context"
	"fmt"
)

// patternKind discriminates access patterns.
type patternKind uint8

const (
	patternOnDemand patternKind = iota
	patternMagicNumber
	patternHeader
	patternTail
	patternRange
	patternFull
)

// AccessPattern describes which byte range a Lazy chunk loads up front.
type AccessPattern struct {
	kind  patternKind
	start int64
	n     int64
}

// MagicNumber loads the first max bytes, enough for a magic-number probe.
func MagicNumber(max int64) AccessPattern {
	return AccessPattern{kind: patternMagicNumber, n: max}
}

// Header loads the first max bytes.
func Header(max int64) AccessPattern {
	return AccessPattern{kind: patternHeader, n: max}
}

// Tail loads the last max bytes. The chunk's total size must be known
// from address metadata; without it the tail is taken to be empty.
func Tail(max int64) AccessPattern {
	return AccessPattern{kind: patternTail, n: max}
}

// Range loads bytes [start, end).
func Range(start, end int64) AccessPattern {
	return AccessPattern{kind: patternRange, start: start, n: end - start}
}

// Full loads the entire chunk.
func Full() AccessPattern {
	return AccessPattern{kind: patternFull}
}

// OnDemand loads nothing until the first read.
func OnDemand() AccessPattern {
	return AccessPattern{kind: patternOnDemand}
}

// String returns the pattern name.
func (p AccessPattern) String() string {
	switch p.kind {
	case patternMagicNumber:
		return "magic-number"
	case patternHeader:
		return "header"
	case patternTail:
		return "tail"
	case patternRange:
		return "range"
	case patternFull:
		return "full"
	default:
		return "on-demand"
	}
}

// Lazy is a cached partial view over one stored chunk.
//
// The cache is a single contiguous window of the chunk. Reads covered
// by the window are served from memory; other reads go to the store and
// the result is merged into the window: data starting at offset 0 that
// covers more than the window replaces it, data overlapping or touching
// the window's trailing edge extends it, and disjoint data past the
// edge is returned but not cached (gaps are never filled).
//
// Lazy owns no storage, only a cached view; dropping it affects nothing
// in the store.
type Lazy struct {
	store Store
	addr  Address

	// window of cached bytes: cache holds [winStart, winStart+len(cache)).
	cache    []byte
	winStart int64

	// total is the chunk size from address metadata; 0 when unknown.
	total int64
}

// NewLazy builds a lazily-cached view of the chunk at addr, performing
// exactly one initial load sized by the access pattern.
func NewLazy(ctx context.Context, store Store, addr Address, pattern AccessPattern) (*Lazy, error) {
	size, _ := addr.MetaSize()
	l := &Lazy{store: store, addr: addr, total: size}

	switch pattern.kind {
	case patternOnDemand:
		return l, nil
	case patternFull:
		data, err := store.Read(ctx, addr)
		if err != nil {
			return nil, err
		}
		l.cache = data
		l.winStart = 0
		if l.total < int64(len(data)) {
			l.total = int64(len(data))
		}
		return l, nil
	case patternMagicNumber, patternHeader:
		return l, l.load(ctx, 0, pattern.n)
	case patternTail:
		start := l.total - pattern.n
		if start < 0 {
			start = 0
		}
		return l, l.load(ctx, start, pattern.n)
	case patternRange:
		return l, l.load(ctx, pattern.start, pattern.n)
	default:
		return nil, fmt.Errorf("chunk: unknown access pattern %d", pattern.kind)
	}
}

// Address returns the chunk's address.
func (l *Lazy) Address() Address { return l.addr }

// CachedBytes returns the number of bytes currently held in memory.
func (l *Lazy) CachedBytes() int64 { return int64(len(l.cache)) }

// IsFullyCached reports whether the whole chunk is in memory.
func (l *Lazy) IsFullyCached() bool {
	return l.winStart == 0 && l.total > 0 && int64(len(l.cache)) >= l.total
}

// Read returns bytes [off, off+length) of the chunk, reading from the
// store only when the cached window does not cover the range.
func (l *Lazy) Read(ctx context.Context, off, length int64) ([]byte, error) {
	if off < 0 || length < 0 {
		return nil, fmt.Errorf("%w: offset %d length %d", ErrRangeInvalid, off, length)
	}
	if l.covers(off, length) {
		rel := off - l.winStart
		return l.cache[rel : rel+length], nil
	}
	data, err := l.store.ReadRange(ctx, l.addr, off, length)
	if err != nil {
		return nil, err
	}
	l.merge(data, off)
	return data, nil
}

// ReadFull returns the entire chunk, short-circuiting when the window
// already holds every byte.
func (l *Lazy) ReadFull(ctx context.Context) ([]byte, error) {
	if l.IsFullyCached() {
		return l.cache[:l.total], nil
	}
	data, err := l.store.Read(ctx, l.addr)
	if err != nil {
		return nil, err
	}
	if data != nil {
		l.cache = data
		l.winStart = 0
		l.total = int64(len(data))
	}
	return data, nil
}

// ClearCache frees the in-memory window without touching storage.
func (l *Lazy) ClearCache() {
	l.cache = nil
	l.winStart = 0
}

func (l *Lazy) covers(off, length int64) bool {
	if l.cache == nil {
		return false
	}
	end := l.winStart + int64(len(l.cache))
	return off >= l.winStart && off+length <= end
}

// load performs the initial pattern-sized read and seeds the window.
func (l *Lazy) load(ctx context.Context, off, length int64) error {
	if length <= 0 {
		return nil
	}
	data, err := l.store.ReadRange(ctx, l.addr, off, length)
	if err != nil {
		return err
	}
	if data != nil {
		l.cache = data
		l.winStart = off
	}
	return nil
}

// merge folds freshly read data at offset off into the cached window.
// Gap-filling is not implemented: data disjoint from the window's
// trailing edge is dropped.
func (l *Lazy) merge(data []byte, off int64) {
	if len(data) == 0 {
		return
	}
	winLen := int64(len(l.cache))
	if off == 0 && int64(len(data)) > winLen {
		l.cache = data
		l.winStart = 0
		return
	}
	end := l.winStart + winLen
	if off >= l.winStart && off+int64(len(data)) <= end {
		// Already covered.
		return
	}
	if off > end || off < l.winStart {
		return
	}
	overlap := end - off
	l.cache = append(l.cache, data[overlap:]...)
}
