package main

import (
	"encoding/base64"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"ptrj.com/venus/config"
	"ptrj.com/venus/core"
	"ptrj.com/venus/mill"
	"ptrj.com/venus/notify"
	"ptrj.com/venus/service"
	"ptrj.com/venus/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer logger.Sync()

	store, err := core.OpenStore(cfg.StagingDB, logger)
	if err != nil {
		logger.Fatal("failed to open staging store", zap.Error(err))
	}

	manager := mill.NewManager(cfg.Mill.Profiles, logger)
	defer manager.Close()

	mode := cfg.MillMode()
	validator := mill.NewValidator(store, manager.ForDatabase(mill.Database(mode)), mode, logger)

	processor := service.NewEntryProcessor(cfg.Browser, logger)
	defer processor.Close()

	var notifier service.Notifier
	if n := notify.New(cfg.Slack.Token, cfg.Slack.InfoChannel, cfg.Slack.ErrorChannel); n != nil {
		notifier = n
	}

	svc := service.New(store, validator, processor, notifier, logger)

	cleanupInterval := 1 * time.Hour
	if cfg.Server.CleanupInterval != "" {
		if d, err := time.ParseDuration(cfg.Server.CleanupInterval); err == nil && d > 0 {
			cleanupInterval = d
		} else {
			logger.Warn("invalid cleanup_interval, using default",
				zap.String("value", cfg.Server.CleanupInterval))
		}
	}
	go func() {
		for range time.Tick(cleanupInterval) {
			if removed := svc.CleanupOldJobs(0); removed > 0 {
				logger.Info("cleaned up old jobs", zap.Int("removed", removed))
			}
		}
	}()

	secret, err := base64.StdEncoding.DecodeString(cfg.Server.SigningSecret)
	if err != nil {
		logger.Fatal("signing secret is not valid base64", zap.Error(err))
	}

	r := web.NewRouter(store, svc, secret)

	logger.Info("server starting",
		zap.String("addr", cfg.Server.Addr),
		zap.String("mode", cfg.Mode))
	if err := r.Run(cfg.Server.Addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
