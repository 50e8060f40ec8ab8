package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ayusman/cardsight/internal/app"
	"github.com/ayusman/cardsight/internal/capture"
	"github.com/ayusman/cardsight/internal/config"
	"github.com/ayusman/cardsight/internal/detector"
	"github.com/ayusman/cardsight/internal/evaluator"
	"github.com/ayusman/cardsight/internal/server"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "path to a YAML config file")
	webDir := flag.String("web", "", "directory of static files to serve")
	flag.Parse()

	logger := newLogger()
	defer logger.Sync()

	if err := run(logger, *configPath, *webDir); err != nil {
		logger.Fatal("cardsight failed", zap.Error(err))
	}
}

func newLogger() *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if os.Getenv(config.EnvPrefix+"DEBUG") != "" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func run(logger *zap.Logger, configPath, webDir string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	opts := []app.Option{app.WithLogger(logger)}

	det, err := detector.NewSubprocessDetector(detector.Config{
		Script:      cfg.Detector.Script,
		Python:      cfg.Detector.Python,
		Weights:     cfg.Detector.Weights,
		IdleTimeout: cfg.DetectorIdleTimeout(),
	}, logger.Named("detector"))
	if err != nil {
		logger.Warn("detector unavailable, capture disabled", zap.Error(err))
	} else {
		opts = append(opts, app.WithDetector(det), app.WithCamera(newCamera(cfg.Capture)))
	}

	if cfg.Evaluator.Command != "" {
		fields := strings.Fields(cfg.Evaluator.Command)
		opts = append(opts, app.WithEvaluator(evaluator.NewExecutor(cfg.EvaluatorTimeout(), fields[0], fields[1:]...)))
	}

	a, err := app.New(cfg, opts...)
	if err != nil {
		return err
	}

	if det != nil {
		if err := a.Start(); err != nil {
			return fmt.Errorf("start capture: %w", err)
		}
		defer a.Stop()
	}

	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		logger.Info("serving static files", zap.String("dir", webDir))
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		App:       a,
		Logger:    logger.Named("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Server.Addr), zap.String("session", a.Session()))
		errCh <- srv.ListenAndServe(cfg.Server.Addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-a.Done():
		logger.Info("video source finished", zap.Any("ledger", a.Ledger()))
	case sig := <-sigCh:
		logger.Info("shutting down", zap.Stringer("signal", sig))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func newCamera(c config.Capture) capture.Camera {
	switch c.Source {
	case "video":
		return capture.NewCamera(capture.Source{Path: c.VideoPath})
	case "screen":
		return capture.NewScreenCamera(capture.Region{
			X:      c.ScreenX,
			Y:      c.ScreenY,
			Width:  c.ScreenWidth,
			Height: c.ScreenHeight,
		})
	default:
		return capture.NewCamera(capture.Source{DeviceID: c.WebcamIndex})
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.cardsight/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".cardsight", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
