package snug

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/snugdev/snug/chunk"
	"github.com/snugdev/snug/compress"
	"github.com/snugdev/snug/walker"
)

// BuildResult summarizes one archive build.
type BuildResult struct {
	Files         int
	Directories   int
	Symlinks      int
	SpecialFiles  int
	UniqueHashes  int
	EmbeddedFiles int
	TotalBytes    int64
}

// Build archives the directory tree at dir into a single compressed
// file at outPath.
//
// Every non-embedded file's content is written to the configured chunk
// store at most once per unique digest; files sharing content share one
// chunk. The walk order, and therefore the manifest entry order, is
// deterministic for a given tree and configuration.
func Build(ctx context.Context, dir, outPath string, opts ...BuildOption) (*BuildResult, error) {
	cfg := buildConfig{
		algo:     chunk.DefaultAlgorithm,
		detector: DefaultDetector,
		codec:    compress.Gzip{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.store == nil {
		return nil, ErrNoStore
	}

	b := &builder{cfg: cfg}
	buffer, err := b.run(ctx, dir)
	if err != nil {
		return nil, err
	}

	compressed, err := cfg.codec.Compress(buffer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	if err := writeFileAtomic(outPath, compressed); err != nil {
		return nil, fmt.Errorf("write archive %s: %w", outPath, err)
	}

	b.report(ProgressEvent{
		Stage:          StageComplete,
		FilesProcessed: b.result.Files,
		TotalFiles:     b.totalFiles,
		BytesProcessed: b.result.TotalBytes,
	})
	b.log().Info("archive written",
		"path", outPath,
		"files", b.result.Files,
		"unique_hashes", b.result.UniqueHashes,
		"embedded", b.result.EmbeddedFiles,
		"bytes", b.result.TotalBytes)
	return &b.result, nil
}

// fileJob is one file queued for hashing and storage during the walk.
type fileJob struct {
	entryIndex int
	fsPath     string
	relPath    string
	size       int64
}

// builder owns all state mutated during one build. The entry list,
// hash registry, and counters belong exclusively to this build for its
// duration.
type builder struct {
	cfg buildConfig

	archive    Archive
	jobs       []fileJob
	totalFiles int

	mu        sync.Mutex
	seen      map[string]struct{}
	blobs     []embeddedBlob
	skipped   map[int]struct{}
	filesDone int
	result    BuildResult
}

func (b *builder) run(ctx context.Context, dir string) ([]byte, error) {
	w := b.cfg.newWalker()
	b.seen = make(map[string]struct{})
	b.skipped = make(map[int]struct{})
	b.archive = Archive{
		Format:        FormatName,
		Version:       FormatVersion,
		HashAlgorithm: b.cfg.algo.String(),
	}

	// Counting pass applies the same filters as the real walk so the
	// progress total is accurate.
	b.report(ProgressEvent{Stage: StageScanning})
	total, err := w.CountFiles(ctx, dir)
	if err != nil {
		return nil, err
	}
	b.totalFiles = total
	b.log().Info("scan complete", "dir", dir, "files", total)

	if err := w.Walk(ctx, dir, b.collect); err != nil {
		return nil, err
	}

	if err := b.processFiles(ctx); err != nil {
		return nil, err
	}

	b.dropSkipped()
	b.result.UniqueHashes = len(b.archive.Hashes)
	b.result.EmbeddedFiles = len(b.blobs)

	return assemble(&b.archive, b.blobs)
}

// collect turns walker entries into manifest records, queuing file
// content work for the processing phase.
func (b *builder) collect(e walker.Entry) error {
	entry := Entry{
		Type:        entryTypeOf(e.Kind),
		Path:        e.Path,
		Permissions: fmt.Sprintf("%04o", e.Mode),
		Owner:       strconv.FormatUint(uint64(e.UID), 10),
		Group:       strconv.FormatUint(uint64(e.GID), 10),
		Modified:    e.ModTime,
	}

	switch e.Kind {
	case walker.KindDirectory:
		b.result.Directories++
	case walker.KindSymlink:
		entry.Target = e.Target
		b.result.Symlinks++
	case walker.KindFile:
		entry.Size = e.Size
		b.jobs = append(b.jobs, fileJob{
			entryIndex: len(b.archive.Entries),
			fsPath:     e.FSPath,
			relPath:    e.Path,
			size:       e.Size,
		})
	default:
		b.result.SpecialFiles++
	}

	b.archive.Entries = append(b.archive.Entries, entry)
	return nil
}

// processFiles hashes, classifies, and stores every queued file.
// Files are independent and may run concurrently; all shared state is
// guarded, and the dedup check-then-insert is atomic so concurrent
// first-writers of one digest cannot both take the write path.
func (b *builder) processFiles(ctx context.Context) error {
	workers := b.cfg.workers
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range b.jobs {
		job := b.jobs[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return b.processFile(ctx, job)
		})
	}
	return g.Wait()
}

func (b *builder) processFile(ctx context.Context, job fileJob) error {
	data, err := os.ReadFile(job.fsPath) //nolint:gosec // path comes from the walked tree
	if err != nil {
		if b.cfg.skipPermissionErrors && errors.Is(err, fs.ErrPermission) {
			b.log().Warn("skipping unreadable file", "path", job.relPath, "error", err)
			b.mu.Lock()
			b.skipped[job.entryIndex] = struct{}{}
			// Keep the progress denominator honest: this file will never
			// be processed.
			b.totalFiles--
			b.mu.Unlock()
			return nil
		}
		return fmt.Errorf("read %s: %w", job.relPath, err)
	}

	info, err := os.Lstat(job.fsPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", job.relPath, err)
	}

	digest, err := b.digest(job.relPath, info, data)
	if err != nil {
		return fmt.Errorf("hash %s: %w", job.relPath, err)
	}

	typeInfo := b.cfg.detector(data, path.Ext(job.relPath))
	entry := &b.archive.Entries[job.entryIndex]
	entry.Size = int64(len(data))
	entry.ContentType = typeInfo.ContentType

	if b.shouldEmbed(job.relPath) {
		b.mu.Lock()
		entry.Embedded = true
		b.blobs = append(b.blobs, embeddedBlob{entryIndex: job.entryIndex, hash: digest, data: data})
		b.finishFile(job.relPath, int64(len(data)))
		b.mu.Unlock()
		return nil
	}

	entry.Hash = digest

	// Dedup guard: the check and insert happen under one lock so a
	// digest is written to the store at most once per build.
	b.mu.Lock()
	_, dup := b.seen[digest]
	if !dup {
		b.seen[digest] = struct{}{}
	}
	b.mu.Unlock()

	if !dup {
		addr := chunk.Address{
			ID: digest,
			Meta: &chunk.Metadata{
				Size:             int64(len(data)),
				ContentHash:      digest,
				HashAlgorithm:    b.cfg.algo.String(),
				ContentType:      typeInfo.ContentType,
				ChunkType:        typeInfo.Type,
				OriginalFilename: path.Base(job.relPath),
				Modified:         info.ModTime(),
			},
		}
		if _, err := b.cfg.store.Write(ctx, data, addr); err != nil {
			return fmt.Errorf("store %s: %w", job.relPath, err)
		}
		b.mu.Lock()
		if b.archive.Hashes == nil {
			b.archive.Hashes = make(map[string]HashDefinition)
		}
		b.archive.Hashes[digest] = HashDefinition{
			Hash:      digest,
			Size:      int64(len(data)),
			Algorithm: b.cfg.algo.String(),
		}
		b.mu.Unlock()
	}

	b.mu.Lock()
	b.finishFile(job.relPath, int64(len(data)))
	b.mu.Unlock()
	return nil
}

// digest consults the hash cache when configured.
func (b *builder) digest(relPath string, info fs.FileInfo, data []byte) (string, error) {
	if b.cfg.hashCache != nil {
		return b.cfg.hashCache.Digest(relPath, info.Size(), info.ModTime(), data)
	}
	return b.cfg.algo.Sum(data)
}

// finishFile updates counters and emits a processing event.
// Call with b.mu held.
func (b *builder) finishFile(relPath string, size int64) {
	b.filesDone++
	b.result.Files++
	b.result.TotalBytes += size
	b.report(ProgressEvent{
		Stage:          StageProcessing,
		Path:           relPath,
		FilesProcessed: b.filesDone,
		TotalFiles:     b.totalFiles,
		BytesProcessed: b.result.TotalBytes,
	})
}

// shouldEmbed applies the embed-vs-reference policy: a file is embedded
// iff system-file embedding is on and the file is hidden or matches a
// known system-path pattern.
func (b *builder) shouldEmbed(relPath string) bool {
	if !b.cfg.embedSystemFiles {
		return false
	}
	base := path.Base(relPath)
	if strings.HasPrefix(base, ".") {
		return true
	}
	return isSystemPath(relPath)
}

// systemPatterns lists well-known OS metadata files and directories.
var systemPatterns = []string{
	"Thumbs.db",
	"desktop.ini",
	"$RECYCLE.BIN",
	"System Volume Information",
	"__MACOSX",
}

func isSystemPath(relPath string) bool {
	for _, seg := range strings.Split(relPath, "/") {
		for _, pat := range systemPatterns {
			if seg == pat {
				return true
			}
		}
	}
	return false
}

// dropSkipped removes entries for files skipped after the walk (e.g.
// permission errors) and remaps embedded blob indices.
func (b *builder) dropSkipped() {
	if len(b.skipped) == 0 {
		sort.Slice(b.blobs, func(i, j int) bool { return b.blobs[i].entryIndex < b.blobs[j].entryIndex })
		return
	}
	remap := make(map[int]int, len(b.archive.Entries))
	kept := b.archive.Entries[:0]
	for i, e := range b.archive.Entries {
		if _, skip := b.skipped[i]; skip {
			continue
		}
		remap[i] = len(kept)
		kept = append(kept, e)
	}
	b.archive.Entries = kept
	for i := range b.blobs {
		b.blobs[i].entryIndex = remap[b.blobs[i].entryIndex]
	}
	sort.Slice(b.blobs, func(i, j int) bool { return b.blobs[i].entryIndex < b.blobs[j].entryIndex })
}

func (b *builder) report(e ProgressEvent) {
	if b.cfg.progress != nil {
		b.cfg.progress(e)
	}
}

func (b *builder) log() *slog.Logger {
	if b.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.cfg.logger
}

func entryTypeOf(k walker.Kind) EntryType {
	switch k {
	case walker.KindDirectory:
		return TypeDirectory
	case walker.KindSymlink:
		return TypeSymlink
	case walker.KindBlockDevice:
		return TypeBlockDevice
	case walker.KindCharDevice:
		return TypeCharDevice
	case walker.KindSocket:
		return TypeSocket
	case walker.KindFIFO:
		return TypeFIFO
	default:
		return TypeFile
	}
}

// writeFileAtomic writes data through a temp file and rename so the
// archive appears on disk only when complete.
func writeFileAtomic(outPath string, data []byte) error {
	dir := filepath.Dir(outPath)
	tmp, err := os.CreateTemp(dir, ".snug-*")
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
	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
