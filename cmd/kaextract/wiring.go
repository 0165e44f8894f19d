package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/byteowlz/kaextract/internal/cache"
	"github.com/byteowlz/kaextract/internal/config"
	"github.com/byteowlz/kaextract/internal/extractor"
	"github.com/byteowlz/kaextract/internal/orchestrator"
	adextract "github.com/byteowlz/kaextract/pkg/extractor"
)

// openCache opens the configured durable cache. The returned close func
// is never nil.
func openCache(cfg *config.Config, ephemeral bool) (*cache.Cache, func() error, error) {
	store, closeFn, err := openStorage(cfg, ephemeral)
	if err != nil {
		return nil, nil, err
	}

	c := cache.Open(store, cache.Options{
		MaxSize: cfg.Cache.MaxSize,
		Expiry:  cfg.Cache.Expiry(),
		Logger:  slog.Default(),
	})
	return c, closeFn, nil
}

func openStorage(cfg *config.Config, ephemeral bool) (cache.Storage, func() error, error) {
	noop := func() error { return nil }
	quota := int64(cfg.Cache.QuotaBytes)

	if ephemeral || cfg.Cache.Backend == "memory" {
		return cache.NewMemoryStorage(quota), noop, nil
	}

	dir, err := cfg.CacheDir()
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Cache.Backend {
	case "sqlite":
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("error creating cache directory: %w", err)
		}
		s, err := cache.OpenSQLiteStorage(filepath.Join(dir, "kaextract.db"), quota)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "file", "":
		s, err := cache.NewFileStorage(dir, quota)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}

func newBackend(cfg *config.Config, name string) (extractor.Backend, error) {
	switch name {
	case "api":
		b := extractor.NewAPIBackend(cfg.Client.APIURL)
		if !b.IsAvailable() {
			return nil, fmt.Errorf("api backend: client.api_url is empty")
		}
		return b, nil
	case "local":
		return extractor.NewLocalBackend(adextract.New(cfg)), nil
	}
	return nil, fmt.Errorf("unknown backend %q (available: api, local)", name)
}

// probeFor checks reachability of whatever the backend talks to.
func probeFor(cfg *config.Config, backend string) orchestrator.Connectivity {
	if !cfg.Client.CheckOnline {
		return orchestrator.AlwaysOnline
	}

	addr := "www.kleinanzeigen.de:443"
	if backend == "api" {
		if u, err := url.Parse(cfg.Client.APIURL); err == nil && u.Host != "" {
			port := u.Port()
			if port == "" {
				port = "80"
				if u.Scheme == "https" {
					port = "443"
				}
			}
			addr = net.JoinHostPort(u.Hostname(), port)
		}
	}
	return orchestrator.DialProbe{Address: addr, Timeout: 2 * time.Second}
}

func orchestratorOptions(cfg *config.Config) orchestrator.Options {
	return orchestrator.Options{
		Debounce:       cfg.Client.Debounce(),
		FetchTimeout:   cfg.Client.FetchTimeout(),
		OverallTimeout: cfg.Client.OverallTimeout(),
		MaxRetries:     cfg.Client.MaxRetries,
		RetryDelay:     cfg.Client.RetryDelay(),
		MaxBackoff:     orchestrator.DefaultMaxBackoff,
		DemoDelay:      cfg.Client.DemoDelay(),
		Logger:         slog.Default(),
	}
}
