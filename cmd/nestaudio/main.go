package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mrcyclo/nestopia/internal/api"
	"github.com/mrcyclo/nestopia/internal/capture"
	"github.com/mrcyclo/nestopia/internal/config"
	"github.com/mrcyclo/nestopia/internal/core"
	"github.com/mrcyclo/nestopia/internal/device"
	"github.com/mrcyclo/nestopia/internal/engine"
	"github.com/mrcyclo/nestopia/internal/session"
)

func main() {
	configPath := flag.String("config", "nestaudio.yaml", "path to YAML config")
	listen := flag.String("listen", "", "control API listen address (overrides config)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}
	quality, _ := cfg.QualityLevel()

	logger.Info("nestaudio starting",
		zap.String("listen", cfg.ListenAddr),
		zap.String("backend", cfg.Audio.Backend),
		zap.Stringer("quality", quality),
		zap.Int("bufferSamples", cfg.Audio.BufferSamples),
		zap.String("captureDevice", cfg.Capture.Device),
	)

	tone := core.NewToneCore(cfg.Core.Rate, cfg.Core.Channels, cfg.Core.FrameRate, cfg.Core.ToneHz, logger)
	tone.SetWantsAudioInput(cfg.Core.AudioInput)

	var dev device.Device = device.NewOto(logger)
	if cfg.Audio.Backend == config.BackendNull {
		dev = device.NewNull(logger)
	}

	var src capture.Source
	switch cfg.Capture.Device {
	case "":
	case "-":
		src = capture.NewReaderSource("stdin", os.Stdin, tone, core.MicInfo, logger)
	default:
		src = capture.NewFFmpegSource(cfg.Capture.Format, cfg.Capture.Device, tone, logger)
	}

	sess, err := session.New(tone, dev, engine.Options{
		Capacity: cfg.Audio.BufferSamples,
		Quality:  quality,
		Setpoint: cfg.Audio.Setpoint,
		Period:   cfg.Audio.PeriodFrames,
		Muted:    cfg.Audio.Mute,
	}, src, logger)
	if err != nil {
		logger.Fatal("failed to create session", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tone.Run(ctx)
	}()
	sess.Pause(false)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.NewRouter(api.NewHandlers(sess, logger), cfg.APIToken, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	go func() {
		logger.Info("control API listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("control API failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// The emulation loop may be parked on back-pressure; closing the
	// session releases it.
	cancel()
	sess.Stop()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
}
