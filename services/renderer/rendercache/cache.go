// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rendercache caches marshaled flight responses in an embedded
// BadgerDB instance.
//
// Only prefetch and route-tree-only responses are cached: they carry no
// rendered payload, so serving a stale-but-recent copy is safe, and they
// arrive in bursts (link hover, viewport prefetching). Full renders are
// always recomputed.
package rendercache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/zeebo/xxh3"
)

// Config holds configuration for the render cache.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes. The cache holds only
	// recomputable data, so the default is false.
	SyncWrites bool

	// TTL is how long entries live. Default: 30s.
	TTL time.Duration

	// Logger is the logger for BadgerDB operations.
	// If nil, BadgerDB's internal logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path: path,
		TTL:  30 * time.Second,
	}
}

// InMemoryConfig returns configuration for testing.
func InMemoryConfig() Config {
	return Config{
		InMemory: true,
		TTL:      30 * time.Second,
	}
}

// Key identifies one cacheable response. Every field participates in
// the fingerprint; two requests with the same fingerprint would receive
// byte-identical responses.
type Key struct {
	// AppVersion changes whenever the app's manifests reload, which
	// implicitly invalidates everything cached for the old manifests.
	AppVersion string

	// Path and Query identify the request URL.
	Path  string
	Query string

	// StateDigest is a digest of the client's router state wire bytes.
	StateDigest uint64

	// Prefetch and RouteTreeOnly change the response shape.
	Prefetch      bool
	RouteTreeOnly bool
}

// Fingerprint collapses the key into the Badger key bytes.
func (k Key) Fingerprint() []byte {
	h := xxh3.New()
	_, _ = h.WriteString(k.AppVersion)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(k.Path)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(k.Query)
	_, _ = h.WriteString("\x00")
	var state [8]byte
	binary.LittleEndian.PutUint64(state[:], k.StateDigest)
	_, _ = h.Write(state[:])
	flags := byte(0)
	if k.Prefetch {
		flags |= 1
	}
	if k.RouteTreeOnly {
		flags |= 2
	}
	_, _ = h.Write([]byte{flags})

	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, h.Sum64())
	return out
}

// DigestState fingerprints router-state wire bytes for use in a Key.
func DigestState(raw []byte) uint64 {
	return xxh3.Hash(raw)
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Cache is a TTL'd response cache. Safe for concurrent use.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// Open creates and opens the cache with the given configuration.
func Open(cfg Config) (*Cache, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent cache")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open render cache: %w", err)
	}
	return &Cache{db: db, ttl: cfg.TTL}, nil
}

// Get returns the cached response bytes for the key, if present and not
// expired.
func (c *Cache) Get(key Key) ([]byte, bool, error) {
	var out []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key.Fingerprint())
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("render cache get: %w", err)
	}
	return out, true, nil
}

// Put stores the response bytes under the key with the configured TTL.
func (c *Cache) Put(key Key, payload []byte) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key.Fingerprint(), payload).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("render cache put: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached response. Called when manifests
// reload.
func (c *Cache) InvalidateAll() error {
	if err := c.db.DropAll(); err != nil {
		return fmt.Errorf("render cache invalidate: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
