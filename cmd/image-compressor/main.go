package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"image-compressor-go/internal/compressor"
	"image-compressor-go/internal/config"
	"image-compressor-go/internal/controller"
	"image-compressor-go/internal/logger"
	"image-compressor-go/internal/statistics"
	"image-compressor-go/internal/tui"
	"image-compressor-go/internal/web"
	"image-compressor-go/internal/worker"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	quiet   bool
	quality int
	port    int
)

// rootCmd opens the compressor window in the terminal.
var rootCmd = &cobra.Command{
	Use:   "image-compressor",
	Short: "Re-encode an image as JPEG, PNG or lossless WebP",
	Long: `Image Compressor re-encodes a single image into JPEG, PNG or lossless
WebP. The output format follows the extension of the chosen output file.

Quality (1-100) controls JPEG quality and the PNG zlib level.
WebP output is always lossless and ignores the quality setting.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

// compressCmd runs one compression without the window.
var compressCmd = &cobra.Command{
	Use:   "compress <input> <output>",
	Short: "Compress one image without opening the window",
	Long: `Reads <input> (png, jpg, jpeg or webp) and writes <output> in the format
implied by its extension (.jpg/.jpeg, .png or .webp).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		log := setupLogger(cfg, verbose)
		return runCompress(cfg, log, args[0], args[1], quality, os.Stdout, os.Stderr)
	},
}

// serveCmd exposes the window over HTTP.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface",
	Long: `Starts a web server exposing the compressor window as a JSON API with
live status over WebSocket and Prometheus metrics on /metrics.

Access the interface at http://localhost:<port> (default: 8080)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Flags().Changed("port"))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	compressCmd.Flags().IntVarP(&quality, "quality", "q", compressor.DefaultQuality, "compression quality (1-100)")
	serveCmd.Flags().IntVar(&port, "port", config.DefaultPort, "port to run web server on")

	rootCmd.AddCommand(compressCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads the config file, falling back to defaults when it is broken.
func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CONFIG LOAD ERROR: %v\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config, console bool) *logrus.Logger {
	loggerCfg := logger.LoggerConfig{
		Level:      cfg.Logging.Level,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
		Console:    console,
	}

	if verbose {
		loggerCfg.Level = "debug"
	}
	if quiet {
		loggerCfg.Level = "error"
	}

	log, err := logger.NewLogger(loggerCfg)
	if err != nil {
		log = logrus.New()
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

// startPipeline wires a running worker to a fresh controller.
func startPipeline(log *logrus.Logger) (*controller.Controller, *worker.Worker, *statistics.Statistics) {
	stats := statistics.NewStatistics()
	w := worker.New(compressor.NewDefaultCompressor(), log, stats)
	w.Start()
	return controller.New(w, log), w, stats
}

// stopPipeline closes the request queue and lets an in-flight encode finish.
func stopPipeline(w *worker.Worker, stats *statistics.Statistics, log *logrus.Logger) {
	w.Close()
	<-w.Done()
	snap := stats.Snapshot()
	logger.WithFields(log, logrus.Fields{
		"operation": "shutdown",
		"submitted": snap.RequestsSubmitted,
		"succeeded": snap.Succeeded,
		"failed":    stats.Failed(),
	}).Info(snap.Summary)
	if stats.Failed() > 0 {
		logger.WithOperation(log, "shutdown").Warn(stats.GetErrorSummary())
	}
}

// runTUI runs the terminal window until the user quits.
func runTUI() error {
	cfg := loadConfig()
	// the window owns the terminal, so logs only go to the file
	log := setupLogger(cfg, false)

	ctrl, w, stats := startPipeline(log)
	model := tui.NewModel(ctrl, tui.Options{
		FrameInterval:  cfg.UI.FrameInterval,
		StartDirectory: cfg.UI.StartDirectory,
		ShowHidden:     cfg.UI.ShowHidden,
	})

	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	stopPipeline(w, stats, log)
	if err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}

// runServe starts the web server and handles graceful shutdown.
func runServe(portFlagSet bool) error {
	cfg := loadConfig()
	if portFlagSet {
		cfg.Web.Port = port
	}

	log := setupLogger(cfg, !quiet)
	ctrl, w, stats := startPipeline(log)
	server := web.NewServer(ctrl, stats, log, cfg.UI.FrameInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.RunFrameLoop(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Web.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	if !quiet {
		fmt.Printf("Image Compressor web interface: http://localhost:%d\n", cfg.Web.Port)
		fmt.Printf("Press Ctrl+C to stop the server\n\n")
	}

	select {
	case <-sigChan:
	case err := <-errChan:
		cancel()
		stopPipeline(w, stats, log)
		return fmt.Errorf("server failed to start: %w", err)
	}

	if !quiet {
		fmt.Println("\nShutting down server...")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	stopPipeline(w, stats, log)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
