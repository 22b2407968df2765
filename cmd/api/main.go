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

	"github.com/joho/godotenv"

	"tower-insights-go/internal/api"
	"tower-insights-go/internal/assistant"
	"tower-insights-go/internal/config"
	"tower-insights-go/internal/logger"
	"tower-insights-go/internal/metrics"
	"tower-insights-go/internal/prediction"
	"tower-insights-go/internal/processor"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.Info("starting service")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	mock := &processor.MockSource{Seed: cfg.MockSeed, TowerCount: cfg.MockTowerCount}
	source, err := buildSource(cfg, mock)
	if err != nil {
		log.WithError(err).Fatal("failed to build prediction source")
	}
	log.WithField("source", source.Name()).Info("prediction source ready")

	var chat *assistant.Client
	chat, err = assistant.NewClient(assistant.Config{
		APIURL:          cfg.GeminiAPIURL,
		APIKey:          cfg.GeminiAPIKey,
		Temperature:     cfg.GeminiTemperature,
		MaxOutputTokens: cfg.GeminiMaxOutputTokens,
		Timeout:         cfg.GeminiTimeout,
		Mock:            cfg.UseMockLLM,
	})
	if err != nil {
		log.WithError(err).Warn("assistant disabled")
		chat = nil
	}

	m := metrics.New()
	handler := api.NewRouter(&api.Server{
		Processor:    processor.New(source, m),
		Assistant:    chat,
		Metrics:      m,
		Log:          log,
		Towers:       mock.Towers,
		ForecastDays: cfg.ForecastDays,
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("stopped")
}

func buildSource(cfg config.Config, mock *processor.MockSource) (processor.Source, error) {
	switch {
	case cfg.UseMockPredictions:
		return mock, nil
	case cfg.DatasetPath != "":
		return &processor.DatasetSource{Path: cfg.DatasetPath}, nil
	default:
		client, err := prediction.NewClient(prediction.Config{
			BaseURL:  cfg.PredictionAPIURL,
			Timeout:  cfg.PredictionTimeout,
			MaxRetry: cfg.PredictionMaxRetry,
		})
		if err != nil {
			return nil, err
		}
		ids := cfg.TowerIDs
		if len(ids) == 0 {
			towers, err := mock.Towers()
			if err != nil {
				return nil, err
			}
			for _, t := range towers {
				ids = append(ids, t.ID)
			}
		}
		return &processor.ServiceSource{Client: client, TowerIDs: ids, Batch: cfg.PredictionBatch}, nil
	}
}
