package snug

import (
	"log/slog"

	"github.com/snugdev/snug/chunk"
	"github.com/snugdev/snug/compress"
	"github.com/snugdev/snug/hashcache"
	"github.com/snugdev/snug/walker"
)

// buildConfig holds configuration for one archive build.
type buildConfig struct {
	store            chunk.Store
	algo             chunk.Algorithm
	codec            compress.Codec
	hashCache        *hashcache.Cache
	detector         Detector
	progress         ProgressFunc
	logger           *slog.Logger
	workers          int
	embedSystemFiles bool

	followSymlinks        bool
	errorOnBrokenSymlinks bool
	includeSpecialFiles   bool
	skipHidden            bool
	skipPermissionErrors  bool
	ignore                *walker.IgnoreSet
}

// BuildOption configures an archive build.
type BuildOption func(*buildConfig)

// BuildWithStore sets the chunk store that receives non-embedded file
// content. Required.
func BuildWithStore(store chunk.Store) BuildOption {
	return func(cfg *buildConfig) {
		cfg.store = store
	}
}

// BuildWithHashAlgorithm sets the digest algorithm. Defaults to sha256.
func BuildWithHashAlgorithm(algo chunk.Algorithm) BuildOption {
	return func(cfg *buildConfig) {
		cfg.algo = algo
	}
}

// BuildWithCodec sets the whole-archive compressor. Defaults to gzip.
func BuildWithCodec(codec compress.Codec) BuildOption {
	return func(cfg *buildConfig) {
		cfg.codec = codec
	}
}

// BuildWithHashCache reuses digests for files whose size and mtime are
// unchanged since a previous build.
func BuildWithHashCache(cache *hashcache.Cache) BuildOption {
	return func(cfg *buildConfig) {
		cfg.hashCache = cache
	}
}

// BuildWithDetector sets the file-type detector used to annotate chunk
// metadata. Defaults to DefaultDetector.
func BuildWithDetector(d Detector) BuildOption {
	return func(cfg *buildConfig) {
		cfg.detector = d
	}
}

// BuildWithProgress registers a progress callback.
func BuildWithProgress(fn ProgressFunc) BuildOption {
	return func(cfg *buildConfig) {
		cfg.progress = fn
	}
}

// BuildWithLogger sets the build logger.
func BuildWithLogger(logger *slog.Logger) BuildOption {
	return func(cfg *buildConfig) {
		cfg.logger = logger
	}
}

// BuildWithWorkers sets how many files are hashed and stored
// concurrently. Zero or one disables parallelism.
func BuildWithWorkers(n int) BuildOption {
	return func(cfg *buildConfig) {
		cfg.workers = n
	}
}

// BuildWithEmbedSystemFiles embeds hidden and system-pattern files
// inline in the archive instead of referencing them through the store.
func BuildWithEmbedSystemFiles(on bool) BuildOption {
	return func(cfg *buildConfig) {
		cfg.embedSystemFiles = on
	}
}

// BuildWithFollowSymlinks recurses into symlink targets instead of
// recording symlink entries.
func BuildWithFollowSymlinks(on bool) BuildOption {
	return func(cfg *buildConfig) {
		cfg.followSymlinks = on
	}
}

// BuildWithErrorOnBrokenSymlinks fails the build on dangling symlinks
// instead of skipping them with a warning.
func BuildWithErrorOnBrokenSymlinks(on bool) BuildOption {
	return func(cfg *buildConfig) {
		cfg.errorOnBrokenSymlinks = on
	}
}

// BuildWithSpecialFiles records device, socket, and FIFO entries
// instead of skipping them.
func BuildWithSpecialFiles(on bool) BuildOption {
	return func(cfg *buildConfig) {
		cfg.includeSpecialFiles = on
	}
}

// BuildWithSkipHidden excludes dotfiles from the archive.
func BuildWithSkipHidden(on bool) BuildOption {
	return func(cfg *buildConfig) {
		cfg.skipHidden = on
	}
}

// BuildWithSkipPermissionErrors records and skips unreadable entries
// instead of failing the build.
func BuildWithSkipPermissionErrors(on bool) BuildOption {
	return func(cfg *buildConfig) {
		cfg.skipPermissionErrors = on
	}
}

// BuildWithIgnore applies ignore patterns to every walked path.
func BuildWithIgnore(set *walker.IgnoreSet) BuildOption {
	return func(cfg *buildConfig) {
		cfg.ignore = set
	}
}

// newWalker constructs the walker used by both the counting pass and
// the real walk, so the two apply identical filters.
func (cfg *buildConfig) newWalker() *walker.Walker {
	return walker.New(
		walker.WithFollowSymlinks(cfg.followSymlinks),
		walker.WithErrorOnBrokenSymlinks(cfg.errorOnBrokenSymlinks),
		walker.WithSpecialFiles(cfg.includeSpecialFiles),
		walker.WithSkipHidden(cfg.skipHidden),
		walker.WithSkipPermissionErrors(cfg.skipPermissionErrors),
		walker.WithIgnore(cfg.ignore),
		walker.WithLogger(cfg.logger),
	)
}
