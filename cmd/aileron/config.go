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
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the renderer's YAML configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `mapstructure:"addr"`

	// AppsDir holds one subdirectory per app, each containing the
	// loader tree and manifests.
	AppsDir string `mapstructure:"apps_dir"`

	// Cache configures the render cache.
	Cache struct {
		Dir      string `mapstructure:"dir"`
		InMemory bool   `mapstructure:"in_memory"`
		TTLSecs  int    `mapstructure:"ttl_seconds"`
	} `mapstructure:"cache"`

	// Watch enables reloading apps when their artifacts change.
	Watch bool `mapstructure:"watch"`

	// PPREnabled turns on partial prerendering semantics.
	PPREnabled bool `mapstructure:"ppr_enabled"`

	// Log configures logging output.
	Log struct {
		Level string `mapstructure:"level"`
		Dir   string `mapstructure:"dir"`
		JSON  bool   `mapstructure:"json"`
	} `mapstructure:"log"`
}

// loadConfig reads the config file, falling back to defaults when the
// path is empty. Environment variables prefixed AILERON_ override file
// values (AILERON_ADDR, AILERON_APPS_DIR, ...).
func loadConfig(path string) (Config, error) {
	var cfg Config

	v := viper.New()
	v.SetDefault("addr", ":8080")
	v.SetDefault("apps_dir", "./apps")
	v.SetDefault("cache.in_memory", true)
	v.SetDefault("cache.ttl_seconds", 30)
	v.SetDefault("watch", true)
	v.SetDefault("log.level", "info")
	v.SetEnvPrefix("AILERON")
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return cfg, nil
}
