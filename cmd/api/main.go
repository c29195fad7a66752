package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/safar/repair-orders/internal/api"
	"github.com/safar/repair-orders/internal/config"
	"github.com/safar/repair-orders/internal/database"
	"github.com/safar/repair-orders/internal/logging"
	"github.com/safar/repair-orders/internal/notify"
	"github.com/safar/repair-orders/internal/template"
	"github.com/safar/repair-orders/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("Load config")
	}

	log := logging.New(cfg.Log)

	db, err := database.NewConnection(context.Background(), &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Connect to database")
	}
	defer db.Close()

	log.Info().Msg("Connected to database successfully")

	opts := []workflow.Option{
		workflow.WithTxRetries(cfg.Database.TxMaxRetries),
		workflow.WithNotificationLimit(cfg.Workflow.NotificationLimit),
	}
	if cfg.Workflow.TemplatesPath != "" {
		reg, err := template.LoadFile(cfg.Workflow.TemplatesPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Workflow.TemplatesPath).Msg("Load service templates")
		}
		log.Info().Int("templates", len(reg.All())).Msg("Service templates loaded")
		opts = append(opts, workflow.WithTemplates(reg))
	} else if cfg.IsProduction() {
		log.Warn().Msg("SERVICE_TEMPLATES_PATH is empty; orders must list their stages explicitly")
	}

	emitter := notify.NewEmitter(notify.StoreSink{DB: db}, log)
	svc := workflow.NewService(db, emitter, log, opts...)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewServer(svc, log).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("env", cfg.Env).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown")
	}
	log.Info().Msg("Server stopped")
}
