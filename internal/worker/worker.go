package worker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"image-compressor-go/internal/compressor"
	"image-compressor-go/internal/extractor"
	"image-compressor-go/internal/logger"
	"image-compressor-go/internal/statistics"
)

var (
	// ErrQueueFull is returned by Submit when a request is already waiting.
	ErrQueueFull = errors.New("compression queue is full")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("compression worker is closed")
)

// Worker runs compressions one at a time on a single background goroutine.
// Requests are handled in arrival order and each produces exactly one
// outcome on the result channel.
type Worker struct {
	compressor compressor.Compressor
	metadata   extractor.MetadataExtractor
	log        *logrus.Logger
	stats      *statistics.Statistics

	requests chan compressor.Request
	results  chan compressor.Outcome
	done     chan struct{}

	startOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// New returns a Worker that is not yet running.
func New(c compressor.Compressor, log *logrus.Logger, stats *statistics.Statistics) *Worker {
	if stats == nil {
		stats = statistics.NewStatistics()
	}
	return &Worker{
		compressor: c,
		metadata:   extractor.NewEXIFExtractor(log),
		log:        log,
		stats:      stats,
		requests:   make(chan compressor.Request, 1),
		results:    make(chan compressor.Outcome, 1),
		done:       make(chan struct{}),
	}
}

// Start launches the background goroutine. Calling it again has no effect.
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		go w.run()
	})
}

func (w *Worker) run() {
	defer close(w.done)
	defer close(w.results)

	for req := range w.requests {
		w.results <- w.process(req)
	}
	w.log.Debug("compression worker stopped")
}

// Submit enqueues req without blocking.
func (w *Worker) Submit(req compressor.Request) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	select {
	case w.requests <- req:
		w.stats.IncrementSubmitted()
		return nil
	default:
		return ErrQueueFull
	}
}

// TryResult returns the next outcome if one is ready.
func (w *Worker) TryResult() (compressor.Outcome, bool) {
	select {
	case o, ok := <-w.results:
		return o, ok
	default:
		return compressor.Outcome{}, false
	}
}

// Close stops accepting requests. A compression already running completes.
func (w *Worker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.closed {
		w.closed = true
		close(w.requests)
	}
}

// Done is closed once the background goroutine has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Stats returns the session statistics the worker records into.
func (w *Worker) Stats() *statistics.Statistics {
	return w.stats
}

func (w *Worker) process(req compressor.Request) (res compressor.Outcome) {
	entry := logger.WithRequest(w.log, req.ID, req.InputPath, req.OutputPath)
	entry.WithField("quality", req.Quality).Info("compression started")

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", r).Error("compressor panicked")
			res = compressor.Outcome{
				RequestID:  req.ID,
				InputPath:  req.InputPath,
				OutputPath: req.OutputPath,
				Message:    fmt.Sprintf("Error: compression failed: %v", r),
				Err:        fmt.Errorf("compressor panic: %v", r),
				StartedAt:  start,
				FinishedAt: time.Now(),
			}
		}
		w.record(entry, res)
	}()

	// the EXIF parser reads untrusted input, so it runs under the recover too
	w.warnDroppedMetadata(entry, req.InputPath)
	return w.compressor.Compress(req)
}

func (w *Worker) record(entry *logrus.Entry, res compressor.Outcome) {
	w.stats.RecordOutcome(res)

	format := res.Format
	if format == "" {
		format = "none"
	}
	status := "success"
	if !res.Success {
		status = "error"
	}
	compressionDuration.WithLabelValues(format, status).Observe(res.Duration().Seconds())
	compressionsTotal.WithLabelValues(format, status).Inc()

	fields := logrus.Fields{
		"format":      format,
		"duration_ms": res.Duration().Milliseconds(),
	}
	if res.Success {
		outputBytesTotal.WithLabelValues(format).Add(float64(res.OutputSize))
		fields["input_size"] = res.InputSize
		fields["output_size"] = res.OutputSize
		entry.WithFields(fields).Info("compression finished")
		return
	}
	fields["error"] = res.Err
	entry.WithFields(fields).Warn(res.Message)
}

// warnDroppedMetadata logs what the re-encoded file will lose.
func (w *Worker) warnDroppedMetadata(entry *logrus.Entry, path string) {
	if !w.metadata.SupportsFile(path) {
		return
	}
	md, err := w.metadata.Extract(path)
	if err != nil || !md.HasEXIF {
		return
	}
	e := entry.WithFields(logrus.Fields{"camera": md.Camera, "software": md.Software})
	if md.Rotated() {
		e.WithField("orientation", md.Orientation).Warn("EXIF orientation is not applied; output pixels keep the stored orientation")
		return
	}
	e.Warn("EXIF metadata is not carried over to the output")
}
