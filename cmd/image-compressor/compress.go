package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"image-compressor-go/internal/config"
	"image-compressor-go/internal/controller"
	"image-compressor-go/internal/tui"
)

// errCompressionFailed marks a run whose final status is an error.
var errCompressionFailed = errors.New("compression failed")

// runCompress drives the window's controller with fixed dialog answers,
// spinning on progress until the worker reports back.
func runCompress(cfg *config.Config, log *logrus.Logger, input, output string, quality int, out, progress io.Writer) error {
	ctrl, w, stats := startPipeline(log)
	defer stopPipeline(w, stats, log)

	dialog := controller.StaticDialog{OpenPath: input, SavePath: output}
	if !ctrl.PickInput(dialog) {
		return fmt.Errorf("input %q is not an image (%s)", input, controller.InputFilters[0])
	}
	ctrl.PickOutput(dialog)
	ctrl.SetQuality(quality)

	if err := ctrl.Submit(); err != nil {
		return err
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(ctrl.Status()),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionClearOnFinish(),
	)

	interval := cfg.UI.FrameInterval
	if interval <= 0 {
		interval = config.DefaultFrameInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for ctrl.NeedsRepaint() {
		<-ticker.C
		_ = bar.Add(1)
		ctrl.Poll()
	}
	_ = bar.Finish()

	fmt.Fprintf(out, "Status: %s\n", tui.RenderStatus(ctrl.Status()))
	if ctrl.StatusKind() == controller.StatusError {
		return fmt.Errorf("%w: %s", errCompressionFailed, ctrl.Status())
	}
	return nil
}
