package snug

import "github.com/snugdev/snug/internal/detect"

// TypeInfo classifies file content for chunk metadata annotation.
// Detection output never affects dedup or archive structure.
type TypeInfo = detect.TypeInfo

// Detector is the file-type detection boundary: a pure function from
// content bytes and an optional extension to a classification.
type Detector func(data []byte, ext string) TypeInfo

// DefaultDetector probes magic numbers and falls back to a UTF-8
// heuristic.
func DefaultDetector(data []byte, ext string) TypeInfo {
	return detect.Detect(data, ext)
}
