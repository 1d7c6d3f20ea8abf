package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Sentinel errors.
var (
	// ErrBrokenSymlink is returned for a dangling symlink when the
	// walker is configured to fail on them.
	ErrBrokenSymlink = errors.New("walker: broken symlink")
)

// Walker traverses a directory tree, emitting one Entry per object.
type Walker struct {
	followSymlinks        bool
	followExternal        bool
	errorOnBrokenSymlinks bool
	includeSpecialFiles   bool
	skipHidden            bool
	skipPermissionErrors  bool
	ignore                *IgnoreSet
	logger                *slog.Logger
}

// Option configures a Walker.
type Option func(*Walker)

// WithFollowSymlinks makes the walker recurse into symlink targets
// instead of emitting symlink entries.
func WithFollowSymlinks(on bool) Option {
	return func(w *Walker) { w.followSymlinks = on }
}

// WithFollowExternal allows followed symlinks to leave the walk root.
// Off by default: external targets are skipped with a warning.
func WithFollowExternal(on bool) Option {
	return func(w *Walker) { w.followExternal = on }
}

// WithErrorOnBrokenSymlinks makes dangling symlinks fail the walk
// instead of being skipped with a warning.
func WithErrorOnBrokenSymlinks(on bool) Option {
	return func(w *Walker) { w.errorOnBrokenSymlinks = on }
}

// WithSpecialFiles emits entries for devices, sockets, and FIFOs.
// Off by default: special files are skipped with a warning.
func WithSpecialFiles(on bool) Option {
	return func(w *Walker) { w.includeSpecialFiles = on }
}

// WithSkipHidden skips dotfiles and dot-directories before any other
// filtering.
func WithSkipHidden(on bool) Option {
	return func(w *Walker) { w.skipHidden = on }
}

// WithSkipPermissionErrors turns permission-denied failures into
// warnings instead of aborting the walk.
func WithSkipPermissionErrors(on bool) Option {
	return func(w *Walker) { w.skipPermissionErrors = on }
}

// WithIgnore sets the ignore patterns applied to every relative path.
func WithIgnore(set *IgnoreSet) Option {
	return func(w *Walker) { w.ignore = set }
}

// WithLogger sets the logger used for skip warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Walker) { w.logger = logger }
}

// New returns a Walker with the given configuration.
func New(opts ...Option) *Walker {
	w := &Walker{}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// walkState carries per-walk bookkeeping.
type walkState struct {
	canonRoot string
	visited   map[string]struct{}
}

// Walk traverses root depth-first, calling fn for every emitted entry.
// Entries arrive in deterministic sorted order. The context is checked
// between entries; cancellation stops enumerating, it does not
// interrupt a file mid-read.
func (w *Walker) Walk(ctx context.Context, root string, fn Func) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	canonRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return fmt.Errorf("resolve root %s: %w", root, err)
	}
	st := &walkState{
		canonRoot: canonRoot,
		visited:   make(map[string]struct{}),
	}
	return w.walkDir(ctx, st, canonRoot, "", fn)
}

// CountFiles runs the walk with the same filters and returns the number
// of file entries it would emit. Used for accurate progress totals.
func (w *Walker) CountFiles(ctx context.Context, root string) (int, error) {
	count := 0
	err := w.Walk(ctx, root, func(e Entry) error {
		if e.Kind == KindFile {
			count++
		}
		return nil
	})
	return count, err
}

func (w *Walker) walkDir(ctx context.Context, st *walkState, dir, rel string, fn Func) error {
	// Every entered directory is canonical here: the root is resolved up
	// front and symlinked directories arrive already resolved. Recording
	// them all lets the symlink cycle check catch links back into any
	// part of the tree the walk has traversed, not just other links.
	st.visited[dir] = struct{}{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if w.skipPermissionErrors && errors.Is(err, fs.ErrPermission) {
			w.log().Warn("skipping unreadable directory", "path", displayPath(rel), "error", err)
			return nil
		}
		return err
	}

	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := de.Name()
		childRel := path.Join(rel, name)
		childAbs := filepath.Join(dir, name)

		// Hidden filter runs before everything else.
		if w.skipHidden && strings.HasPrefix(name, ".") {
			continue
		}

		info, err := os.Lstat(childAbs)
		if err != nil {
			if w.skipPermissionErrors && errors.Is(err, fs.ErrPermission) {
				w.log().Warn("skipping unreadable entry", "path", childRel, "error", err)
				continue
			}
			return err
		}

		// Ignore match short-circuits processing entirely.
		if w.ignore.Match(childRel, info.IsDir()) {
			continue
		}

		if err := w.processEntry(ctx, st, childAbs, childRel, info, fn); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) processEntry(ctx context.Context, st *walkState, abs, rel string, info fs.FileInfo, fn Func) error {
	kind := kindOf(info.Mode())

	switch {
	case kind == KindSymlink:
		return w.processSymlink(ctx, st, abs, rel, fn)

	case kind == KindDirectory:
		if err := fn(w.makeEntry(KindDirectory, abs, rel, info)); err != nil {
			return err
		}
		return w.walkDir(ctx, st, abs, rel, fn)

	case isSpecial(kind):
		if !w.includeSpecialFiles {
			w.log().Warn("skipping special file", "path", rel, "kind", kind.String())
			return nil
		}
		return fn(w.makeEntry(kind, abs, rel, info))

	default:
		return fn(w.makeEntry(KindFile, abs, rel, info))
	}
}

func (w *Walker) processSymlink(ctx context.Context, st *walkState, abs, rel string, fn Func) error {
	target, err := os.Readlink(abs)
	if err != nil {
		return fmt.Errorf("readlink %s: %w", rel, err)
	}

	targetInfo, statErr := os.Stat(abs)
	if statErr != nil {
		if w.errorOnBrokenSymlinks {
			return fmt.Errorf("%w: %s -> %s", ErrBrokenSymlink, rel, target)
		}
		w.log().Warn("skipping broken symlink", "path", rel, "target", target)
		return nil
	}

	if !w.followSymlinks {
		linkInfo, err := os.Lstat(abs)
		if err != nil {
			return err
		}
		e := w.makeEntry(KindSymlink, abs, rel, linkInfo)
		e.Target = target
		return fn(e)
	}

	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if w.errorOnBrokenSymlinks {
			return fmt.Errorf("%w: %s -> %s", ErrBrokenSymlink, rel, target)
		}
		w.log().Warn("skipping unresolvable symlink", "path", rel, "target", target)
		return nil
	}

	if _, seen := st.visited[canon]; seen {
		w.log().Warn("skipping symlink cycle", "path", rel, "target", canon)
		return nil
	}
	if !w.followExternal && !underRoot(canon, st.canonRoot) {
		w.log().Warn("skipping symlink outside root", "path", rel, "target", canon)
		return nil
	}

	kind := kindOf(targetInfo.Mode())
	switch {
	case kind == KindDirectory:
		if err := fn(w.makeEntry(KindDirectory, canon, rel, targetInfo)); err != nil {
			return err
		}
		return w.walkDir(ctx, st, canon, rel, fn)

	case isSpecial(kind):
		if !w.includeSpecialFiles {
			w.log().Warn("skipping special file", "path", rel, "kind", kind.String())
			return nil
		}
		return fn(w.makeEntry(kind, canon, rel, targetInfo))

	default:
		// The link's relative path stays the entry path; content comes
		// from the resolved target.
		return fn(w.makeEntry(KindFile, canon, rel, targetInfo))
	}
}

func (w *Walker) makeEntry(kind Kind, abs, rel string, info fs.FileInfo) Entry {
	uid, gid := fileOwner(info)
	return Entry{
		Kind:    kind,
		Path:    rel,
		FSPath:  abs,
		Size:    info.Size(),
		Mode:    info.Mode().Perm(),
		UID:     uid,
		GID:     gid,
		ModTime: info.ModTime(),
	}
}

func (w *Walker) log() *slog.Logger {
	if w.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.logger
}

// underRoot reports whether canon is root or inside it.
func underRoot(canon, root string) bool {
	if canon == root {
		return true
	}
	return strings.HasPrefix(canon, root+string(filepath.Separator))
}

func displayPath(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}
