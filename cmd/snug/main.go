// Command snug builds, inspects, and extracts content-addressable
// deduplicating archives.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/snugdev/snug"
	"github.com/snugdev/snug/chunk"
	"github.com/snugdev/snug/chunk/diskstore"
	"github.com/snugdev/snug/compress"
	"github.com/snugdev/snug/hashcache"
	"github.com/snugdev/snug/walker"
)

const usage = `usage: snug <command> [flags]

commands:
  create <dir> <archive>     build an archive from a directory tree
  extract <archive> <dir>    restore an archive into a directory
  inspect <archive>          print archive statistics

run "snug <command> --help" for command flags
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "create":
		err = runCreate(ctx, os.Args[2:])
	case "extract":
		err = runExtract(ctx, os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "snug: unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "snug: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runCreate(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("create", pflag.ExitOnError)
	storeDir := flags.String("store", "", "chunk store directory (default: <archive>.chunks)")
	hashAlgo := flags.String("hash-algo", "sha256", "digest algorithm: sha256, sha512, blake3")
	codecName := flags.String("compression", "gzip", "archive codec: none, gzip, zstd, lz4")
	ignoreFile := flags.String("ignore-file", "", "file of ignore patterns, one per line")
	cacheFile := flags.String("hash-cache", "", "digest cache side file for faster rebuilds")
	workers := flags.Int("workers", 4, "concurrent file processors")
	followSymlinks := flags.Bool("follow-symlinks", false, "archive symlink targets instead of links")
	errorOnBroken := flags.Bool("error-on-broken-symlinks", false, "fail on dangling symlinks")
	embedSystem := flags.Bool("embed-system-files", false, "embed hidden/system files inline")
	specialFiles := flags.Bool("include-special-files", false, "record devices, sockets, and FIFOs")
	skipHidden := flags.Bool("skip-hidden", false, "exclude dotfiles")
	skipPermErrors := flags.Bool("skip-permission-errors", false, "skip unreadable entries with a warning")
	verbose := flags.BoolP("verbose", "v", false, "debug logging and per-file progress")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 2 {
		return fmt.Errorf("create needs <dir> and <archive> arguments")
	}
	dir, archivePath := flags.Arg(0), flags.Arg(1)

	logger := newLogger(*verbose)

	algo, err := chunk.ParseAlgorithm(*hashAlgo)
	if err != nil {
		return err
	}
	codec, err := compress.ForName(*codecName)
	if err != nil {
		return err
	}

	if *storeDir == "" {
		*storeDir = archivePath + ".chunks"
	}
	store, err := diskstore.New(*storeDir, diskstore.WithMetadata(true))
	if err != nil {
		return err
	}

	opts := []snug.BuildOption{
		snug.BuildWithStore(store),
		snug.BuildWithHashAlgorithm(algo),
		snug.BuildWithCodec(codec),
		snug.BuildWithLogger(logger),
		snug.BuildWithWorkers(*workers),
		snug.BuildWithFollowSymlinks(*followSymlinks),
		snug.BuildWithErrorOnBrokenSymlinks(*errorOnBroken),
		snug.BuildWithEmbedSystemFiles(*embedSystem),
		snug.BuildWithSpecialFiles(*specialFiles),
		snug.BuildWithSkipHidden(*skipHidden),
		snug.BuildWithSkipPermissionErrors(*skipPermErrors),
	}

	if *ignoreFile != "" {
		set, err := walker.ParseIgnoreFile(*ignoreFile)
		if err != nil {
			return fmt.Errorf("ignore file: %w", err)
		}
		opts = append(opts, snug.BuildWithIgnore(set))
	}
	if *cacheFile != "" {
		cache := hashcache.Open(*cacheFile, algo, hashcache.WithLogger(logger))
		defer cache.Close()
		opts = append(opts, snug.BuildWithHashCache(cache))
	}
	if *verbose {
		opts = append(opts, snug.BuildWithProgress(func(e snug.ProgressEvent) {
			if e.Stage == snug.StageProcessing {
				fmt.Fprintf(os.Stderr, "\r%d/%d files, %d bytes", e.FilesProcessed, e.TotalFiles, e.BytesProcessed)
			}
		}))
	}

	result, err := snug.Build(ctx, dir, archivePath, opts...)
	if err != nil {
		return err
	}
	if *verbose {
		fmt.Fprintln(os.Stderr)
	}
	fmt.Printf("%s: %d files, %d directories, %d unique chunks, %d embedded, %d bytes\n",
		filepath.Base(archivePath), result.Files, result.Directories,
		result.UniqueHashes, result.EmbeddedFiles, result.TotalBytes)
	return nil
}

func runExtract(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("extract", pflag.ExitOnError)
	storeDir := flags.String("store", "", "chunk store directory (default: <archive>.chunks)")
	noVerify := flags.Bool("no-verify", false, "skip digest verification of restored files")
	verbose := flags.BoolP("verbose", "v", false, "debug logging")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 2 {
		return fmt.Errorf("extract needs <archive> and <dir> arguments")
	}
	archivePath, dest := flags.Arg(0), flags.Arg(1)

	logger := newLogger(*verbose)

	reader, err := snug.Open(archivePath)
	if err != nil {
		return err
	}

	if *storeDir == "" {
		*storeDir = archivePath + ".chunks"
	}
	store, err := diskstore.New(*storeDir)
	if err != nil {
		return err
	}

	return reader.Extract(ctx, dest,
		snug.ExtractWithStore(store),
		snug.ExtractWithLogger(logger),
		snug.ExtractWithVerify(!*noVerify),
	)
}

func runInspect(args []string) error {
	flags := pflag.NewFlagSet("inspect", pflag.ExitOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("inspect needs an <archive> argument")
	}

	reader, err := snug.Open(flags.Arg(0))
	if err != nil {
		return err
	}
	s := reader.Summary()
	fmt.Printf("format:          %s v%d\n", s.Format, s.Version)
	fmt.Printf("compression:     %s\n", reader.Codec().Name())
	fmt.Printf("hash algorithm:  %s\n", s.HashAlgorithm)
	fmt.Printf("entries:         %d\n", s.Entries)
	fmt.Printf("files:           %d (%d embedded)\n", s.Files, s.EmbeddedFiles)
	fmt.Printf("directories:     %d\n", s.Directories)
	fmt.Printf("symlinks:        %d\n", s.Symlinks)
	fmt.Printf("special files:   %d\n", s.SpecialFiles)
	fmt.Printf("unique chunks:   %d\n", s.UniqueHashes)
	fmt.Printf("total file size: %d bytes\n", s.TotalSize)
	return nil
}
