package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"event-registration/internal/auth"
	"event-registration/internal/config"
	"event-registration/internal/moderation"
	"event-registration/internal/registration"
	"event-registration/internal/review"
	"event-registration/internal/server"
	"event-registration/internal/sheets"
	"event-registration/internal/store"
	"event-registration/internal/tgbot"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	if cfg.LogLevel > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.SessionSecret == "change-me" {
		logger.Warn("SESSION_SECRET is not set, sessions use a default key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("bye")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	var transcriber moderation.Transcriber = moderation.Unavailable{}
	if cfg.SpeechCredentialsFile != "" {
		g, err := moderation.NewGoogleTranscriberFromFile(ctx, cfg.SpeechCredentialsFile, cfg.SpeechLanguage)
		if err != nil {
			return err
		}
		transcriber = g
	} else {
		logger.Warn("SPEECH_CREDENTIALS_FILE is not set, every audio entry will need review")
	}
	moderator := moderation.NewAdapter(transcriber, cfg.BannedTerms, logger)

	st := store.New(logger)
	tables := store.Tables{Participants: cfg.ParticipantsFile, Results: cfg.ResultsFile}

	var (
		regObservers    []registration.Observer
		reviewObservers []review.Observer
	)
	if cfg.SheetsEnabled() {
		sh, err := sheets.New(ctx, cfg.GoogleServiceAccountJSON, cfg.SpreadsheetID, logger)
		if err != nil {
			return err
		}
		if err := sh.EnsureHeaders(ctx); err != nil {
			logger.Warn("sheets headers", "error", err)
		}
		regObservers = append(regObservers, sh)
		reviewObservers = append(reviewObservers, sh)
	}

	reviews := review.New(st, tables, logger, reviewObservers...)

	var bot *tgbot.App
	if cfg.TelegramToken != "" {
		b, err := tgbot.New(cfg.TelegramToken, cfg.AdminTGIDs, reviews, logger)
		if err != nil {
			return err
		}
		bot = b
		regObservers = append(regObservers, bot)
	}

	regs := registration.New(st, tables, moderator, registration.Options{
		AudioDir:      cfg.AudioDir,
		MaxAudioBytes: cfg.MaxAudioBytes,
		UniqueRegNo:   cfg.UniqueRegNo,
	}, logger, regObservers...)

	authn, err := auth.New(cfg.AdminUsername, cfg.AdminPassword, cfg.SessionSecret)
	if err != nil {
		return err
	}

	httpSrv := server.New(cfg, regs, reviews, authn, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if bot != nil {
		g.Go(func() error {
			if err := bot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
