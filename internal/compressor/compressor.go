package compressor

import (
	"path/filepath"
	"strings"
	"time"
)

// TargetFormat is the codec selected for an output path.
type TargetFormat int

const (
	FormatJPEG TargetFormat = iota
	FormatPNG
	FormatWebPLossless
)

func (f TargetFormat) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatWebPLossless:
		return "webp-lossless"
	default:
		return "unknown"
	}
}

const (
	MinQuality     = 1
	MaxQuality     = 100
	DefaultQuality = 80
)

// ClampQuality limits q to [MinQuality, MaxQuality].
func ClampQuality(q int) int {
	return min(max(q, MinQuality), MaxQuality)
}

// Request is one unit of work handed to the worker.
// All fields are copies taken when the user pressed Compress.
type Request struct {
	ID         string
	InputPath  string
	OutputPath string
	Quality    int
}

// Outcome is the terminal result of one Request.
type Outcome struct {
	RequestID  string
	Success    bool
	Message    string // user-visible status line
	InputPath  string
	OutputPath string // the requested destination, written only on success
	Format     string
	InputSize  int64
	OutputSize int64
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Duration returns how long the request took to process.
func (o Outcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}

// Compressor re-encodes a single image.
type Compressor interface {
	// Compress never fails with a Go error: every failure is reported
	// through the returned Outcome.
	Compress(req Request) Outcome
}

// TargetFormatFromPath maps the lowercased extension of path to a format.
// Directory components are ignored.
func TargetFormatFromPath(path string) (TargetFormat, bool) {
	switch Extension(path) {
	case "jpg", "jpeg":
		return FormatJPEG, true
	case "png":
		return FormatPNG, true
	case "webp":
		return FormatWebPLossless, true
	}
	return 0, false
}

// Extension returns the lowercased extension of the file name without the dot.
// A name whose only dot is the leading one (".jpg") has no extension.
func Extension(path string) string {
	name := filepath.Base(path)
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}
