// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/aileron/pkg/logging"
	"github.com/AleutianAI/aileron/services/renderer"
	"github.com/AleutianAI/aileron/services/renderer/apploader"
	"github.com/AleutianAI/aileron/services/renderer/manifestwatch"
	"github.com/AleutianAI/aileron/services/renderer/observability"
	"github.com/AleutianAI/aileron/services/renderer/rendercache"
	"github.com/AleutianAI/aileron/services/renderer/telemetry"
)

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:   parseLogLevel(cfg.Log.Level),
		LogDir:  cfg.Log.Dir,
		Service: "renderer",
		JSON:    cfg.Log.JSON,
	})
	defer func() { _ = logger.Close() }()
	slogger := logger.Slog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		log.Fatalf("Error initializing telemetry: %v", err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	observability.InitMetrics()

	// Load every app directory under apps_dir.
	registry := apploader.NewRegistry()
	entries, err := os.ReadDir(cfg.AppsDir)
	if err != nil {
		log.Fatalf("Error reading apps directory %s: %v", cfg.AppsDir, err)
	}
	appDirs := map[string]string{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(cfg.AppsDir, entry.Name())
		app, err := apploader.Load(dir)
		if err != nil {
			slogger.Warn("Skipping app directory",
				"dir", dir,
				"error", err)
			continue
		}
		registry.Put(app)
		appDirs[app.Name] = dir
		slogger.Info("App loaded",
			"app", app.Name,
			"version", app.Version)
	}
	if len(registry.Names()) == 0 {
		log.Fatalf("No loadable apps found under %s", cfg.AppsDir)
	}

	cacheCfg := rendercache.Config{
		Path:     cfg.Cache.Dir,
		InMemory: cfg.Cache.InMemory || cfg.Cache.Dir == "",
		TTL:      time.Duration(cfg.Cache.TTLSecs) * time.Second,
		Logger:   slogger,
	}
	cache, err := rendercache.Open(cacheCfg)
	if err != nil {
		log.Fatalf("Error opening render cache: %v", err)
	}
	defer func() { _ = cache.Close() }()

	if !cacheCfg.InMemory {
		gc := rendercache.NewGCRunner(cache, 5*time.Minute, slogger)
		go gc.Start(ctx)
	}

	if cfg.Watch {
		watcher, err := manifestwatch.New(registry, cache, func(app string) {
			if m := observability.DefaultMetrics; m != nil {
				m.RecordReload(app)
			}
		})
		if err != nil {
			log.Fatalf("Error creating artifact watcher: %v", err)
		}
		defer func() { _ = watcher.Stop() }()
		for name, dir := range appDirs {
			if err := watcher.Watch(name, dir); err != nil {
				slogger.Warn("Failed to watch app directory",
					"app", name,
					"dir", dir,
					"error", err)
			}
		}
		go watcher.Start(ctx)
	}

	svc, err := renderer.NewService(renderer.ServiceOptions{
		Registry:   registry,
		Cache:      cache,
		Metrics:    observability.DefaultMetrics,
		Logger:     slogger,
		PPREnabled: cfg.PPREnabled,
	})
	if err != nil {
		log.Fatalf("Error creating renderer service: %v", err)
	}

	serverCfg := renderer.DefaultServerConfig()
	serverCfg.Addr = cfg.Addr
	server := renderer.NewServer(serverCfg, svc, slogger)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func parseLogLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
