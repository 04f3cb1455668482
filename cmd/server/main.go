// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

// Package main is the entry point for the Eventine recommendation server.
//
// Eventine consumes user actions (views, registrations, likes) from NATS
// JetStream, incrementally maintains pairwise event similarities in memory,
// and serves "similar events" and "recommended for you" queries over HTTP.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, config file and environment (Koanf v2)
//  2. Similarity storage: BadgerDB for durable scores and warm starts
//  3. Recommendation model: in-memory weight and similarity stores
//  4. NATS: embedded JetStream server (optional) and stream provisioning
//  5. Pipeline: action consumer and similarity sink under Suture supervision
//  6. HTTP server: query API with Prometheus metrics
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (CONFIG_PATH or
// config.yaml), built-in defaults.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the supervisor
// tree stops the pipeline and HTTP server, then messaging and storage are
// closed in reverse initialization order.
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

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/eventine-io/eventine/internal/api"
	"github.com/eventine-io/eventine/internal/config"
	"github.com/eventine-io/eventine/internal/eventprocessor"
	"github.com/eventine-io/eventine/internal/logging"
	"github.com/eventine-io/eventine/internal/recommend"
	"github.com/eventine-io/eventine/internal/recommend/storage"
	"github.com/eventine-io/eventine/internal/supervisor"
	"github.com/eventine-io/eventine/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logging.Info().
		Str("nats_url", cfg.NATS.URL).
		Bool("embedded_nats", cfg.NATS.EmbeddedServer).
		Str("storage_path", cfg.Storage.Path).
		Int("partitions", cfg.NATS.Partitions).
		Msg("Configuration loaded")

	// Weight table and in-memory model stores.
	weightCfg := make(map[recommend.ActionKind]float64, len(cfg.WeightMap()))
	for kind, weight := range cfg.WeightMap() {
		weightCfg[recommend.ParseActionKind(kind)] = weight
	}
	weights, err := recommend.NewActionWeightTable(weightCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid action weights")
	}

	users := recommend.NewUserEventWeightStore()
	sums := recommend.NewEventWeightSumStore()
	pairMin := recommend.NewPairMinWeightStore()
	sims := recommend.NewEventSimilarityStore()

	updater := recommend.NewSimilarityUpdater(weights, users, sums, pairMin, sims, logger)

	engine, err := recommend.NewRecommendationEngine(users, sims, recommend.EngineConfig{
		MaxRecentEvents: cfg.Recommend.MaxRecentEvents,
		MaxNeighbours:   cfg.Recommend.MaxNeighbours,
	}, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create recommendation engine")
	}

	// Durable similarity storage. Warm start restores persisted scores so
	// queries answer immediately; the aggregates behind them are rebuilt as
	// the durable consumer catches up on the stream.
	simStore, err := storage.Open(storage.Config{Path: cfg.Storage.Path})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open similarity storage")
	}
	defer func() {
		if err := simStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing similarity storage")
		}
	}()

	if cfg.Storage.WarmStart {
		loaded := 0
		err := simStore.Load(func(update recommend.SimilarityUpdate) error {
			sims.Upsert(update.EventA, update.EventB, update.Score)
			loaded++
			return nil
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("Warm start failed")
		}
		logging.Info().Int("pairs", loaded).Msg("Warm start complete")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Embedded NATS server for single-instance deployments.
	natsURL := cfg.NATS.URL
	var embedded *eventprocessor.EmbeddedServer
	if cfg.NATS.EmbeddedServer {
		serverCfg := eventprocessor.DefaultServerConfig()
		if cfg.NATS.Host != "" {
			serverCfg.Host = cfg.NATS.Host
		}
		if cfg.NATS.Port != 0 {
			serverCfg.Port = cfg.NATS.Port
		}
		if cfg.NATS.StoreDir != "" {
			serverCfg.StoreDir = cfg.NATS.StoreDir
		}
		if cfg.NATS.MaxMemory != 0 {
			serverCfg.JetStreamMaxMem = cfg.NATS.MaxMemory
		}
		if cfg.NATS.MaxStore != 0 {
			serverCfg.JetStreamMaxStore = cfg.NATS.MaxStore
		}

		embedded, err = eventprocessor.NewEmbeddedServer(&serverCfg)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to start embedded NATS server")
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := embedded.Shutdown(shutdownCtx); err != nil {
				logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
			}
		}()
		natsURL = embedded.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server started")
	}

	// Provision both streams before any publisher or subscriber connects.
	if err := ensureStreams(ctx, natsURL); err != nil {
		logging.Fatal().Err(err).Msg("Failed to provision JetStream streams")
	}

	wmLogger := eventprocessor.NewWatermillLogger(logger)

	publisher, err := eventprocessor.NewPublisher(eventprocessor.DefaultPublisherConfig(natsURL), wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create publisher")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing publisher")
		}
	}()
	publisher.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(
		eventprocessor.DefaultCircuitBreakerConfig("similarity-publisher"), wmLogger))

	actionSubCfg := eventprocessor.DefaultActionSubscriberConfig(natsURL)
	actionSubCfg.DurableName = cfg.NATS.DurableName
	actionSubCfg.QueueGroup = cfg.NATS.QueueGroup
	actionSub, err := eventprocessor.NewSubscriber(&actionSubCfg, wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create action subscriber")
	}
	defer func() {
		if err := actionSub.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing action subscriber")
		}
	}()

	sinkSubCfg := eventprocessor.DefaultSinkSubscriberConfig(natsURL)
	sinkSub, err := eventprocessor.NewSubscriber(&sinkSubCfg, wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create sink subscriber")
	}
	defer func() {
		if err := sinkSub.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing sink subscriber")
		}
	}()

	consumer, err := eventprocessor.NewConsumer(actionSub, updater, publisher, eventprocessor.ConsumerConfig{
		Partitions:        cfg.NATS.Partitions,
		BufferSize:        cfg.NATS.BufferSize,
		ThrottlePerSecond: cfg.NATS.ThrottlePerSecond,
	}, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create action consumer")
	}

	sink, err := eventprocessor.NewSink(sinkSub, simStore, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create similarity sink")
	}

	// Health checks for the readiness endpoint.
	health := eventprocessor.NewHealthChecker(5 * time.Second)
	health.RegisterComponent("publisher", publisher)
	if embedded != nil {
		health.RegisterComponent("nats-server", embedded)
	}
	health.RegisterComponent("similarity-storage", eventprocessor.HealthCheckFunc(
		func(ctx context.Context) eventprocessor.ComponentHealth {
			check := eventprocessor.ComponentHealth{
				Name:      "similarity-storage",
				LastCheck: time.Now(),
			}
			count, err := simStore.Count()
			if err != nil {
				check.Error = err.Error()
				check.Message = "storage read failed"
				return check
			}
			check.Healthy = true
			check.Details = map[string]any{"pairs": count}
			return check
		}))

	handler := api.NewHandler(engine, health, cfg.API, cfg.Server.Timeout, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler, cfg.API),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSutureLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddPipelineService(services.NewPipelineService("action-consumer", consumer, logger))
	tree.AddPipelineService(services.NewPipelineService("similarity-sink", sink, logger))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", httpServer.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error during shutdown")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}

	logging.Info().Msg("Shutdown complete")
}

// ensureStreams provisions the action and similarity streams. It uses a
// short-lived connection; the pipeline components dial their own.
func ensureStreams(ctx context.Context, url string) error {
	nc, err := natsgo.Connect(url)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, streamCfg := range []eventprocessor.StreamConfig{
		eventprocessor.DefaultActionStreamConfig(),
		eventprocessor.DefaultSimilarityStreamConfig(),
	} {
		cfg := streamCfg
		init, err := eventprocessor.NewStreamInitializer(js, &cfg)
		if err != nil {
			return err
		}
		if _, err := init.EnsureStream(initCtx); err != nil {
			return err
		}
	}
	return nil
}
