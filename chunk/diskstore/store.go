// Package diskstore implements chunk storage backed by a flat directory.
//
// Chunks live in files named by their hex digest, sharded by a short
// digest prefix to keep directory fan-out manageable. Writes go through
// a temp file and an atomic rename, so a chunk file is either absent or
// complete. Optional chunk metadata is kept in CBOR sidecar files.
package diskstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/snugdev/snug/chunk"
)

const (
	defaultShardPrefixLen = 2
	defaultDirPerm        = 0o700
	metaSuffix            = ".meta"
)

// Store is a chunk.Store keyed by digest over a local directory tree.
type Store struct {
	*chunk.Composed

	dir            string
	shardPrefixLen int
	dirPerm        os.FileMode
	saveMetadata   bool
}

// Option configures a Store.
type Option func(*Store)

// WithShardPrefixLen sets the number of hex characters used for
// sharding. Use 0 to disable sharding. Defaults to 2.
func WithShardPrefixLen(n int) Option {
	return func(s *Store) {
		s.shardPrefixLen = n
	}
}

// WithDirPerm sets the permissions for created directories.
func WithDirPerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.dirPerm = mode
	}
}

// WithMetadata enables CBOR metadata sidecar files next to chunk files.
func WithMetadata(on bool) Option {
	return func(s *Store) {
		s.saveMetadata = on
	}
}

// New creates a disk-backed chunk store rooted at dir.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("diskstore: dir is empty")
	}
	s := &Store{
		dir:            dir,
		shardPrefixLen: defaultShardPrefixLen,
		dirPerm:        defaultDirPerm,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.shardPrefixLen < 0 {
		return nil, errors.New("diskstore: shard prefix length must be >= 0")
	}
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return nil, err
	}
	s.Composed = chunk.NewComposed(s, (*retrieval)(s), chunk.WithExistence((*existence)(s)))
	return s, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// Key implements chunk.Organization: digest → sharded relative path.
func (s *Store) Key(addr chunk.Address) (string, error) {
	if err := addr.Validate(); err != nil {
		return "", err
	}
	id := strings.ToLower(addr.ID)
	if s.shardPrefixLen <= 0 {
		return id, nil
	}
	prefixLen := s.shardPrefixLen
	if prefixLen > len(id) {
		prefixLen = len(id)
	}
	return filepath.Join(id[:prefixLen], id), nil
}

// Write persists data and, when metadata sidecars are enabled, the
// address metadata alongside it.
func (s *Store) Write(ctx context.Context, data []byte, addr chunk.Address) (chunk.Address, error) {
	out, err := s.Composed.Write(ctx, data, addr)
	if err != nil {
		return out, err
	}
	if s.saveMetadata && addr.Meta != nil {
		if err := s.writeMeta(addr); err != nil {
			return out, fmt.Errorf("diskstore: write metadata for %s: %w", addr.ID, err)
		}
	}
	return out, nil
}

// Metadata loads the CBOR sidecar for addr, or nil when absent.
func (s *Store) Metadata(addr chunk.Address) (*chunk.Metadata, error) {
	key, err := s.Key(addr)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, key+metaSuffix))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta chunk.Metadata
	if err := cbor.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("diskstore: decode metadata for %s: %w", addr.ID, err)
	}
	return &meta, nil
}

func (s *Store) writeMeta(addr chunk.Address) error {
	key, err := s.Key(addr)
	if err != nil {
		return err
	}
	raw, err := cbor.Marshal(addr.Meta)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, key+metaSuffix), raw, 0o600)
}

// retrieval implements chunk.Retrieval over the store's directory.
type retrieval Store

func (r *retrieval) path(key string) string {
	return filepath.Join(r.dir, key)
}

// Get returns the chunk file's bytes, or nil when absent.
func (r *retrieval) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(r.path(key)) //nolint:gosec // path is derived from a digest, not user input
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// GetRange returns length bytes at off, clamping overruns. A negative
// offset or an offset past the end is a range error.
func (r *retrieval) GetRange(_ context.Context, key string, off, length int64) ([]byte, error) {
	f, err := os.Open(r.path(key)) //nolint:gosec // path is derived from a digest, not user input
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return readRange(f, info.Size(), off, length)
}

// Put writes data through a temp file and an atomic rename. Losing the
// rename race to another writer of the same key is a success: the
// winner wrote identical content.
func (r *retrieval) Put(_ context.Context, key string, data []byte) error {
	path := r.path(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, r.dirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "chunk-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			_ = os.Remove(tmpPath)
			return nil
		}
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Remove deletes the chunk file and any metadata sidecar.
func (r *retrieval) Remove(_ context.Context, key string) error {
	if err := os.Remove(r.path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return chunk.ErrNotFound
		}
		return err
	}
	_ = os.Remove(r.path(key) + metaSuffix)
	return nil
}

// Stat returns the chunk file's size without loading it.
func (r *retrieval) Stat(_ context.Context, key string) (int64, error) {
	info, err := os.Stat(r.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, chunk.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Open returns a seekable handle over the chunk file, or nil when absent.
func (r *retrieval) Open(_ context.Context, key string) (chunk.Handle, error) {
	f, err := os.Open(r.path(key)) //nolint:gosec // path is derived from a digest, not user input
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileHandle{file: f, size: info.Size()}, nil
}

// existence implements chunk.Existence with a stat probe.
type existence Store

// Has reports whether a chunk file exists at key.
func (e *existence) Has(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(filepath.Join(e.dir, key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// fileHandle adapts an open chunk file to chunk.Handle.
type fileHandle struct {
	file *os.File
	size int64
}

// ReadRange implements chunk.Handle.
func (h *fileHandle) ReadRange(off, length int64) ([]byte, error) {
	if h.file == nil {
		return nil, chunk.ErrHandleClosed
	}
	return readRange(h.file, h.size, off, length)
}

// Size implements chunk.Handle.
func (h *fileHandle) Size() int64 { return h.size }

// Close implements chunk.Handle. Closing twice is a no-op.
func (h *fileHandle) Close() error {
	if h.file == nil {
		return nil
	}
	err := h.file.Close()
	h.file = nil
	return err
}

// readRange reads [off, off+length) from ra, clamping length to size.
func readRange(ra io.ReaderAt, size, off, length int64) ([]byte, error) {
	if off < 0 || off > size {
		return nil, fmt.Errorf("%w: offset %d, size %d", chunk.ErrRangeInvalid, off, size)
	}
	if length < 0 {
		return nil, fmt.Errorf("%w: negative length %d", chunk.ErrRangeInvalid, length)
	}
	if off+length > size || off+length < 0 {
		length = size - off
	}
	buf := make([]byte, length)
	n, err := ra.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}
