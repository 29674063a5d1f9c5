package statistics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"image-compressor-go/internal/compressor"
)

// Statistics accumulates counters for one application session.
type Statistics struct {
	RequestsSubmitted int64
	RequestsCompleted int64
	Succeeded         int64
	LoadErrors        int64
	FormatErrors      int64
	SaveErrors        int64
	OtherErrors       int64

	BytesRead    int64
	BytesWritten int64

	StartTime      time.Time
	TotalEncodeDur time.Duration

	Errors []StatError

	FormatStats map[string]int64

	mutex sync.RWMutex
}

// StatError represents a failed compression request.
type StatError struct {
	RequestID string    `json:"request_id"`
	FilePath  string    `json:"file_path"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	RequestsSubmitted int64            `json:"requests_submitted"`
	RequestsCompleted int64            `json:"requests_completed"`
	Succeeded         int64            `json:"succeeded"`
	LoadErrors        int64            `json:"load_errors"`
	FormatErrors      int64            `json:"format_errors"`
	SaveErrors        int64            `json:"save_errors"`
	OtherErrors       int64            `json:"other_errors"`
	BytesRead         int64            `json:"bytes_read"`
	BytesWritten      int64            `json:"bytes_written"`
	Formats           map[string]int64 `json:"formats"`
	RecentErrors      []StatError      `json:"recent_errors"`
	Uptime            string           `json:"uptime"`
	Summary           string           `json:"summary"`
}

// maxErrors bounds the recent error list.
const maxErrors = 50

// NewStatistics returns a new Statistics instance.
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime:   time.Now(),
		FormatStats: make(map[string]int64),
		Errors:      make([]StatError, 0),
	}
}

// IncrementSubmitted increases the count of submitted requests by 1.
func (s *Statistics) IncrementSubmitted() {
	atomic.AddInt64(&s.RequestsSubmitted, 1)
}

// RecordOutcome classifies a finished request and updates the counters.
func (s *Statistics) RecordOutcome(o compressor.Outcome) {
	atomic.AddInt64(&s.RequestsCompleted, 1)

	if o.Success {
		atomic.AddInt64(&s.Succeeded, 1)
		atomic.AddInt64(&s.BytesRead, o.InputSize)
		atomic.AddInt64(&s.BytesWritten, o.OutputSize)

		s.mutex.Lock()
		s.FormatStats[o.Format]++
		s.TotalEncodeDur += o.Duration()
		s.mutex.Unlock()
		return
	}

	// a load error blames the input, everything else the destination
	path := o.OutputPath
	switch {
	case strings.HasPrefix(o.Message, compressor.MsgLoadErrorPrefix):
		atomic.AddInt64(&s.LoadErrors, 1)
		path = o.InputPath
	case o.Message == compressor.MsgUnsupportedFormat:
		atomic.AddInt64(&s.FormatErrors, 1)
	case strings.HasPrefix(o.Message, compressor.MsgSaveErrorPrefix):
		atomic.AddInt64(&s.SaveErrors, 1)
	default:
		atomic.AddInt64(&s.OtherErrors, 1)
	}
	s.AddError(o.RequestID, path, o.Message)
}

// AddError records a failed request, keeping only the most recent entries.
func (s *Statistics) AddError(requestID, filePath, message string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Errors = append(s.Errors, StatError{
		RequestID: requestID,
		FilePath:  filePath,
		Message:   message,
		Timestamp: time.Now(),
	})
	if len(s.Errors) > maxErrors {
		s.Errors = s.Errors[len(s.Errors)-maxErrors:]
	}
}

// Failed returns the total number of failed requests.
func (s *Statistics) Failed() int64 {
	return atomic.LoadInt64(&s.LoadErrors) +
		atomic.LoadInt64(&s.FormatErrors) +
		atomic.LoadInt64(&s.SaveErrors) +
		atomic.LoadInt64(&s.OtherErrors)
}

// Snapshot returns a copy of the counters safe to serialise.
func (s *Statistics) Snapshot() Snapshot {
	s.mutex.RLock()
	formats := make(map[string]int64, len(s.FormatStats))
	for k, v := range s.FormatStats {
		formats[k] = v
	}
	recent := make([]StatError, len(s.Errors))
	copy(recent, s.Errors)
	s.mutex.RUnlock()

	return Snapshot{
		RequestsSubmitted: atomic.LoadInt64(&s.RequestsSubmitted),
		RequestsCompleted: atomic.LoadInt64(&s.RequestsCompleted),
		Succeeded:         atomic.LoadInt64(&s.Succeeded),
		LoadErrors:        atomic.LoadInt64(&s.LoadErrors),
		FormatErrors:      atomic.LoadInt64(&s.FormatErrors),
		SaveErrors:        atomic.LoadInt64(&s.SaveErrors),
		OtherErrors:       atomic.LoadInt64(&s.OtherErrors),
		BytesRead:         atomic.LoadInt64(&s.BytesRead),
		BytesWritten:      atomic.LoadInt64(&s.BytesWritten),
		Formats:           formats,
		RecentErrors:      recent,
		Uptime:            time.Since(s.StartTime).Round(time.Second).String(),
		Summary:           s.GetSummary(),
	}
}

// GetSummary returns a formatted summary of all statistics.
func (s *Statistics) GetSummary() string {
	s.mutex.RLock()
	encodeDur := s.TotalEncodeDur
	s.mutex.RUnlock()

	read := atomic.LoadInt64(&s.BytesRead)
	written := atomic.LoadInt64(&s.BytesWritten)
	ratio := 0.0
	if read > 0 {
		ratio = float64(read-written) * 100 / float64(read)
	}

	return fmt.Sprintf(`Image Compressor Session Summary:

Requests:
		Submitted: %d
		Completed: %d
		Succeeded: %d
		Failed: %d (load %d, format %d, save %d, other %d)

Data:
		Read: %s
		Written: %s
		Saved: %.1f%%
		Encode Time: %v`,
		atomic.LoadInt64(&s.RequestsSubmitted),
		atomic.LoadInt64(&s.RequestsCompleted),
		atomic.LoadInt64(&s.Succeeded),
		s.Failed(),
		atomic.LoadInt64(&s.LoadErrors),
		atomic.LoadInt64(&s.FormatErrors),
		atomic.LoadInt64(&s.SaveErrors),
		atomic.LoadInt64(&s.OtherErrors),
		formatBytes(read),
		formatBytes(written),
		ratio,
		encodeDur.Round(time.Millisecond))
}

// GetErrorSummary returns a summary of failed requests.
func (s *Statistics) GetErrorSummary() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.Errors) == 0 {
		return "No errors occurred during processing"
	}

	result := fmt.Sprintf("Errors (%d total):\n", len(s.Errors))
	for i, err := range s.Errors {
		if i >= 10 {
			result += fmt.Sprintf("  ... and %d more errors\n", len(s.Errors)-10)
			break
		}
		result += fmt.Sprintf("  [%s] %s: %s\n",
			err.Timestamp.Format("15:04:05"),
			err.FilePath,
			err.Message)
	}
	return result
}

// formatBytes returns a human-readable string for a byte count.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
