package snug

// ProgressStage identifies the current phase of a build.
type ProgressStage uint8

// Build phases, reported in order.
const (
	// StageScanning counts eligible files before processing begins.
	StageScanning ProgressStage = iota

	// StageProcessing hashes, stores, and records files.
	StageProcessing

	// StageComplete is reported once, after the archive is written.
	StageComplete
)

// String returns the stage name.
func (s ProgressStage) String() string {
	switch s {
	case StageScanning:
		return "scanning"
	case StageProcessing:
		return "processing"
	case StageComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// ProgressEvent is one progress update during a build.
type ProgressEvent struct {
	Stage ProgressStage

	// Path is the file being processed, when applicable.
	Path string

	// FilesProcessed and TotalFiles track file-level progress during
	// StageProcessing. TotalFiles is zero while scanning.
	FilesProcessed int
	TotalFiles     int

	// BytesProcessed is the running total of file bytes handled.
	BytesProcessed int64
}

// ProgressFunc receives progress updates. Calls are serialized.
type ProgressFunc func(ProgressEvent)
