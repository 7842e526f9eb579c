package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/filestorage"
	"github.com/dmitrymomot/filestorage/pkg/httpstore"
	"github.com/dmitrymomot/filestorage/pkg/logger"
	"github.com/dmitrymomot/filestorage/pkg/metrics"
	"github.com/dmitrymomot/filestorage/settings"
)

// Storage is declared before it is configured. Packages can take
// sub-stores from it at init time; they become usable once main finalizes
// the tree.
var (
	Storage = filestorage.New()
	Avatars = Storage.MustStore("avatars")
)

func main() {
	ctx := context.Background()

	level, err := logger.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = slog.LevelInfo
	}
	log := logger.New(logger.Config{Level: level})

	observer := metrics.New(prometheus.DefaultRegisterer)
	registry := settings.DefaultRegistry(settings.WithHandlerOptions(
		filestorage.WithLogger(log),
		filestorage.WithObserver(observer),
	))

	if err := configure(ctx, registry); err != nil {
		log.Error("storage configuration failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := Storage.FinalizeConfig(ctx); err != nil {
		log.Error("storage validation failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("storage ready", slog.String("settings", strings.TrimSpace(describe())))

	srv := httpstore.New(Storage,
		httpstore.WithLogger(log),
		httpstore.WithMetrics(metrics.Handler(nil)),
	)
	if err := httpstore.Run(ctx, srv.Routes(), httpstore.RunConfig{
		Address:       getEnv("ADDRESS", ":8080"),
		Logger:        log,
		ShutdownHooks: []func(context.Context) error{httpstore.CloseBackends(Storage)},
	}); err != nil {
		log.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

// configure reads STORAGE_CONFIG (YAML or TOML) when set, and falls back to
// flat settings built from STORE_* environment variables otherwise.
func configure(ctx context.Context, registry *settings.Registry) error {
	if path := os.Getenv("STORAGE_CONFIG"); path != "" {
		node, err := settings.LoadFile(path)
		if err != nil {
			return err
		}
		return settings.Setup(ctx, Storage, node, registry)
	}

	flat := envSettings(os.Environ())
	if len(flat) == 0 {
		flat = map[string]string{
			"store.handler":                       "local",
			"store.handler.base_path":             getEnv("STORAGE_DIR", "./data"),
			"store.handler.auto_make_dir":         "true",
			"store.handler.base_url":              "/files/",
			"store['avatars'].handler":            "memory",
			"store['avatars'].handler.filters[0]": "image_only",
			"store['avatars'].handler.filters[1]": "randomize_filename",
		}
	}
	_, err := settings.SetupFromSettings(ctx, Storage, flat, settings.DefaultPrefix, registry)
	return err
}

// envSettings maps STORE__HANDLER=local to store.handler=local. Double
// underscores separate key segments.
func envSettings(environ []string) map[string]string {
	flat := map[string]string{}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, "STORE__") {
			continue
		}
		flat[strings.ToLower(strings.ReplaceAll(key, "__", "."))] = value
	}
	return flat
}

func describe() string {
	var b strings.Builder
	b.WriteString(Storage.String())
	for _, key := range Storage.Keys() {
		b.WriteString(" ")
		b.WriteString(Storage.MustStore(key).String())
	}
	return b.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
