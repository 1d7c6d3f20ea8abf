// Package snug builds and reads content-addressable, deduplicating
// archives.
//
// An archive is a single compressed file holding a text manifest that
// records directory shape, file metadata, and hash references, plus an
// optional binary appendix of embedded file payloads. Every unique byte
// sequence encountered during a build is written to a [chunk.Store]
// exactly once; files with identical content share one stored chunk
// regardless of how many paths reference it.
//
// # Building
//
//	store, err := diskstore.New("/var/lib/snug/chunks")
//	if err != nil {
//	    return err
//	}
//	result, err := snug.Build(ctx, "./project", "project.snug",
//	    snug.BuildWithStore(store),
//	    snug.BuildWithCodec(compress.Zstd{}),
//	)
//
// # Reading
//
//	ar, err := snug.Open("project.snug")
//	if err != nil {
//	    return err
//	}
//	err = ar.Extract(ctx, "./restored", snug.ExtractWithStore(store))
package snug
