package snug

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/snugdev/snug/chunk"
)

// extractConfig holds configuration for extraction.
type extractConfig struct {
	store  chunk.Store
	logger *slog.Logger
	verify bool
}

// ExtractOption configures extraction.
type ExtractOption func(*extractConfig)

// ExtractWithStore sets the chunk store that referenced file content is
// read from. Required when the archive has non-embedded file entries.
func ExtractWithStore(store chunk.Store) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.store = store
	}
}

// ExtractWithLogger sets the extraction logger.
func ExtractWithLogger(logger *slog.Logger) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.logger = logger
	}
}

// ExtractWithVerify toggles digest verification of restored content.
// Enabled by default; a failed check aborts the extraction.
func ExtractWithVerify(on bool) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.verify = on
	}
}

// Extract materializes the archived tree under dest.
//
// Referenced file content comes from the chunk store, embedded content
// from the archive's appendix. Entries are restored in manifest order,
// so directories precede their children. All writes go through an
// [os.Root] on dest: an archived symlink can never redirect a later
// entry outside the destination. Special-file entries are skipped with
// a warning; recreating device nodes needs privileges an archive tool
// should not assume.
func (r *Reader) Extract(ctx context.Context, dest string, opts ...ExtractOption) error {
	cfg := extractConfig{verify: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	algo, err := chunk.ParseAlgorithm(r.Manifest.HashAlgorithm)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	root, err := os.OpenRoot(dest)
	if err != nil {
		return err
	}
	defer root.Close()

	for _, e := range r.Manifest.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := filepath.FromSlash(e.Path)

		switch e.Type {
		case TypeDirectory:
			if err := root.MkdirAll(target, entryPerm(e, 0o755)); err != nil {
				return fmt.Errorf("extract %s: %w", e.Path, err)
			}

		case TypeFile:
			data, expected, err := r.fileContent(ctx, cfg.store, e)
			if err != nil {
				return err
			}
			if cfg.verify && expected != "" {
				if err := verifyContent(algo, e.Path, expected, data); err != nil {
					return err
				}
			}
			if dir := filepath.Dir(target); dir != "." {
				if err := root.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("extract %s: %w", e.Path, err)
				}
			}
			if err := root.WriteFile(target, data, entryPerm(e, 0o644)); err != nil {
				return fmt.Errorf("extract %s: %w", e.Path, err)
			}
			if !e.Modified.IsZero() {
				_ = root.Chtimes(target, time.Now(), e.Modified)
			}

		case TypeSymlink:
			_ = root.Remove(target)
			if err := root.Symlink(e.Target, target); err != nil {
				return fmt.Errorf("extract symlink %s: %w", e.Path, err)
			}

		default:
			log(cfg.logger).Warn("skipping special file entry", "path", e.Path, "type", string(e.Type))
		}
	}

	log(cfg.logger).Info("extraction complete", "dest", dest, "entries", len(r.Manifest.Entries))
	return nil
}

// fileContent resolves a file entry's bytes and its expected digest.
// Embedded entries carry their digest in the appendix record; other
// files carry it in the manifest.
func (r *Reader) fileContent(ctx context.Context, store chunk.Store, e Entry) (data []byte, expected string, err error) {
	if e.Embedded {
		rec, ok := r.records[e.EmbeddedOffset]
		if !ok {
			return nil, "", fmt.Errorf("%w: no record at offset %d for %s", ErrBadAppendix, e.EmbeddedOffset, e.Path)
		}
		return rec.data, rec.hash, nil
	}
	if store == nil {
		return nil, "", fmt.Errorf("extract %s: %w", e.Path, ErrNoStore)
	}
	data, err = store.Read(ctx, chunk.AddressOf(e.Hash))
	if err != nil {
		return nil, "", fmt.Errorf("extract %s: %w", e.Path, err)
	}
	if data == nil {
		return nil, "", fmt.Errorf("extract %s: digest %s: %w", e.Path, e.Hash, ErrChunkMissing)
	}
	return data, e.Hash, nil
}

// verifyContent checks restored bytes against their expected digest.
func verifyContent(algo chunk.Algorithm, path, expected string, data []byte) error {
	ok, err := algo.Verify(data, expected)
	if err != nil {
		return err
	}
	if !ok {
		actual, _ := algo.Sum(data)
		return fmt.Errorf("extract %s: expected %s, got %s: %w", path, expected, actual, chunk.ErrCorruptedData)
	}
	return nil
}

// entryPerm parses an entry's octal permission string.
func entryPerm(e Entry, fallback os.FileMode) os.FileMode {
	if e.Permissions == "" {
		return fallback
	}
	v, err := strconv.ParseUint(e.Permissions, 8, 32)
	if err != nil {
		return fallback
	}
	return os.FileMode(v) & os.ModePerm
}

func log(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
