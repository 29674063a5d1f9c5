package controller

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"image-compressor-go/internal/compressor"
)

// ErrNotReady is returned by Submit when the Compress button is disabled.
var ErrNotReady = errors.New("compression not possible: select both files and wait for the current one")

// Queue is the controller's side of the worker channels.
type Queue interface {
	Submit(req compressor.Request) error
	TryResult() (compressor.Outcome, bool)
}

// Controller holds the state of the single compressor window.
// It is not safe for concurrent use; exactly one UI goroutine owns it.
type Controller struct {
	queue Queue
	log   *logrus.Logger

	inputPath  string
	outputPath string
	quality    int
	busy       bool
	status     string
	pendingID  string
}

// New returns a controller in its launch state: no paths, quality 80, "Ready".
func New(queue Queue, log *logrus.Logger) *Controller {
	return &Controller{
		queue:   queue,
		log:     log,
		quality: compressor.DefaultQuality,
		status:  StatusReady,
	}
}

// PickInput runs the open dialog and stores the chosen path.
func (c *Controller) PickInput(d FileDialog) bool {
	path, ok := d.OpenFile(InputFilters)
	if !ok {
		return false
	}
	return c.SetInputPath(path)
}

// PickOutput runs the save dialog and stores the chosen path.
func (c *Controller) PickOutput(d FileDialog) bool {
	path, ok := d.SaveFile(OutputFilters)
	if !ok {
		return false
	}
	return c.SetOutputPath(path)
}

// SetInputPath records a confirmed input selection. Empty paths are ignored.
func (c *Controller) SetInputPath(path string) bool {
	if path == "" {
		return false
	}
	c.inputPath = path
	c.status = StatusInputSelected
	return true
}

// SetOutputPath records a confirmed output selection. Empty paths are ignored.
func (c *Controller) SetOutputPath(path string) bool {
	if path == "" {
		return false
	}
	c.outputPath = path
	c.status = StatusOutputSelected
	return true
}

// SetQuality stores q clamped to [1,100].
func (c *Controller) SetQuality(q int) {
	c.quality = compressor.ClampQuality(q)
}

// CanCompress is the enable rule of the Compress button.
func (c *Controller) CanCompress() bool {
	return c.inputPath != "" && c.outputPath != "" && !c.busy
}

// Submit snapshots the current selection into a request and hands it to
// the worker without blocking.
func (c *Controller) Submit() error {
	if !c.CanCompress() {
		return ErrNotReady
	}

	req := compressor.Request{
		ID:         uuid.NewString(),
		InputPath:  c.inputPath,
		OutputPath: c.outputPath,
		Quality:    c.quality,
	}
	if err := c.queue.Submit(req); err != nil {
		c.status = fmt.Sprintf("Error: %v", err)
		c.log.WithError(err).WithField("request_id", req.ID).Error("failed to enqueue compression")
		return err
	}

	c.busy = true
	c.pendingID = req.ID
	c.status = StatusCompressing
	c.log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"quality":    req.Quality,
	}).Debug("compression submitted")
	return nil
}

// Poll takes at most one outcome from the worker. It reports whether the
// state changed.
func (c *Controller) Poll() bool {
	o, ok := c.queue.TryResult()
	if !ok {
		return false
	}
	if o.RequestID != "" && o.RequestID != c.pendingID {
		c.log.WithFields(logrus.Fields{
			"request_id": o.RequestID,
			"pending_id": c.pendingID,
		}).Warn("outcome does not match the pending request")
	}
	c.busy = false
	c.pendingID = ""
	if o.Message != "" {
		c.status = o.Message
	}
	return true
}

// NeedsRepaint reports whether the front end must schedule another frame
// to keep polling.
func (c *Controller) NeedsRepaint() bool {
	return c.busy
}

func (c *Controller) Busy() bool         { return c.busy }
func (c *Controller) Quality() int       { return c.quality }
func (c *Controller) Status() string     { return c.status }
func (c *Controller) InputPath() string  { return c.inputPath }
func (c *Controller) OutputPath() string { return c.outputPath }

// StatusKind classifies the current status line.
func (c *Controller) StatusKind() StatusKind {
	return ClassifyStatus(c.status)
}

// InputLabel is the text shown under the input picker.
func (c *Controller) InputLabel() string {
	return labelFor(c.inputPath)
}

// OutputLabel is the text shown under the output picker.
func (c *Controller) OutputLabel() string {
	return labelFor(c.outputPath)
}

func labelFor(path string) string {
	if path == "" {
		return NoFileSelected
	}
	return path
}

// View is a copy of the presentation state.
type View struct {
	InputPath   string `json:"input_path"`
	OutputPath  string `json:"output_path"`
	InputLabel  string `json:"input_label"`
	OutputLabel string `json:"output_label"`
	Quality     int    `json:"quality"`
	Busy        bool   `json:"busy"`
	CanCompress bool   `json:"can_compress"`
	Status      string `json:"status"`
	StatusKind  string `json:"status_kind"`
}

// View returns the current presentation state.
func (c *Controller) View() View {
	return View{
		InputPath:   c.inputPath,
		OutputPath:  c.outputPath,
		InputLabel:  c.InputLabel(),
		OutputLabel: c.OutputLabel(),
		Quality:     c.quality,
		Busy:        c.busy,
		CanCompress: c.CanCompress(),
		Status:      c.status,
		StatusKind:  c.StatusKind().String(),
	}
}
