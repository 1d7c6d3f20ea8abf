package snug

// Summary describes an archive without extracting it.
type Summary struct {
	Format        string
	Version       int
	HashAlgorithm string

	Entries       int
	Files         int
	Directories   int
	Symlinks      int
	SpecialFiles  int
	EmbeddedFiles int
	UniqueHashes  int

	// TotalSize is the sum of all file entry sizes.
	TotalSize int64
}

// Summary computes archive statistics from the manifest.
func (r *Reader) Summary() Summary {
	s := Summary{
		Format:        r.Manifest.Format,
		Version:       r.Manifest.Version,
		HashAlgorithm: r.Manifest.HashAlgorithm,
		Entries:       len(r.Manifest.Entries),
		UniqueHashes:  len(r.Manifest.Hashes),
		EmbeddedFiles: r.Manifest.EmbeddedFilesCount,
	}
	for _, e := range r.Manifest.Entries {
		switch e.Type {
		case TypeFile:
			s.Files++
			s.TotalSize += e.Size
		case TypeDirectory:
			s.Directories++
		case TypeSymlink:
			s.Symlinks++
		default:
			s.SpecialFiles++
		}
	}
	return s
}
