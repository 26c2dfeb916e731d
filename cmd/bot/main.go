package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/coah80/appxzip/internal/alerts"
	"github.com/coah80/appxzip/internal/bot"
	"github.com/coah80/appxzip/internal/commands"
	"github.com/coah80/appxzip/internal/config"
	"github.com/coah80/appxzip/internal/credentials"
	"github.com/coah80/appxzip/internal/logging"
	"github.com/coah80/appxzip/internal/metrics"
	"github.com/coah80/appxzip/internal/pipeline"
	"github.com/coah80/appxzip/internal/ratelimit"
	"github.com/coah80/appxzip/internal/routes"
	"github.com/coah80/appxzip/internal/server"
	"github.com/coah80/appxzip/internal/telegram"
	"github.com/coah80/appxzip/internal/util"
)

type transport interface {
	Start() error
	Stop()
	Platform() string
}

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration", "err", err)
	}

	logger, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatal("Failed to set up logging", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fs := afero.NewOsFs()
	scratch := cfg.ScratchRoot()
	if err := util.EnsureScratchDir(fs, scratch); err != nil {
		logger.Fatal("Failed to create scratch directory", "dir", scratch, "err", err)
	}
	util.SweepStaleWorkspaces(fs, scratch, cfg.WorkspaceRetention(), time.Now(), logger)
	util.StartSweeper(ctx, fs, scratch, cfg.WorkspaceRetention(), cfg.DiskSpaceMinBytes(), logger)

	recorder := metrics.New()
	creds := credentials.NewStore()
	limiter := ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow())
	limiter.StartCleanup(ctx)
	notifier := alerts.New(cfg.DiscordWebhookURL, cfg.DiscordPingUserID, nil, logger)

	handler := commands.NewHandler(commands.Options{
		Credentials:      creds,
		Runner:           pipeline.FromConfig(cfg, fs, recorder, logger),
		Limiter:          limiter,
		Alerts:           notifier,
		Metrics:          recorder,
		FS:               fs,
		BlockPrivateURLs: cfg.BlockPrivateURLs,
		Logger:           logger,
	})

	t, err := newTransport(cfg, handler, fs, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", "platform", cfg.Platform, "err", err)
	}
	if err := t.Start(); err != nil {
		logger.Fatal("Failed to start bot", "platform", cfg.Platform, "err", err)
	}
	notifier.BotStarted(t.Platform())

	var srv *http.Server
	if cfg.HTTPAddr != "" {
		srv = server.New(server.Options{
			Addr:        cfg.HTTPAddr,
			CORSOrigins: cfg.CORSOriginList(),
			Status: routes.Status{
				Platform: t.Platform(),
				Started:  time.Now(),
				Users:    creds.Len,
			},
			Metrics: recorder.Handler(),
			Logger:  logger,
		})
		go func() {
			logger.Info("Ops server listening", "addr", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Ops server stopped", "err", err)
			}
		}()
	}

	logger.Info("Bot is running. Press Ctrl+C to stop.", "platform", t.Platform(), "version", config.Version)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down bot...")
	notifier.BotStopping(t.Platform())
	t.Stop()
	if srv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Ops server shutdown", "err", err)
		}
		stop()
	}
	cancel()
	notifier.Wait()
	logger.Info("Bot stopped.")
}

func newTransport(cfg *config.Config, h *commands.Handler, fs afero.Fs, logger *log.Logger) (transport, error) {
	switch cfg.Platform {
	case "telegram":
		return telegram.New(cfg.TelegramToken, h, fs, logger)
	default:
		return bot.New(bot.Config{Token: cfg.DiscordToken, AppID: cfg.DiscordAppID}, h, fs, logger)
	}
}
