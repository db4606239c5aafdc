package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/jlin-dev/carbonlens/internal/domain/analytics"
	"github.com/jlin-dev/carbonlens/internal/domain/recommend"
	"github.com/jlin-dev/carbonlens/internal/infra/activityrepo"
	"github.com/jlin-dev/carbonlens/internal/infra/carbonapi"
	"github.com/jlin-dev/carbonlens/internal/infra/config"
	"github.com/jlin-dev/carbonlens/internal/infra/exportstore"
	"github.com/jlin-dev/carbonlens/internal/infra/llm/chatgpt"
	"github.com/jlin-dev/carbonlens/internal/infra/recstore"
)

func provideAnalyticsConfig(cfg *config.Config) analytics.Config {
	return analytics.Config{
		TopCategories: cfg.Analytics.TopCategories,
		TopEmitters:   cfg.Analytics.TopEmitters,
	}
}

func provideCarbonAPIClient(cfg *config.Config) *carbonapi.Client {
	return carbonapi.NewClient(cfg.CarbonAPI.BaseURL, cfg.CarbonAPI.APIKey, cfg.CarbonAPI.Timeout)
}

// provideActivityReader prefers the Postgres replica when configured and
// falls back to the carbon API so the analytics fan-out always has an
// activity source.
func provideActivityReader(cfg *config.Config, client *carbonapi.Client, logger *slog.Logger) analytics.ActivityReader {
	dsn := strings.TrimSpace(cfg.Activities.Postgres.DSN)
	if dsn == "" {
		logger.Info("activities postgres dsn not set, reading activities via carbon api")
		return client
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, reading activities via carbon api", "error", err)
		return client
	}
	if cfg.Activities.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Activities.Postgres.MaxConns
	}
	if cfg.Activities.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Activities.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, reading activities via carbon api", "error", err)
		return client
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, reading activities via carbon api", "error", err)
		pool.Close()
		return client
	}
	logger.Info("postgres activity source enabled")
	return activityrepo.NewPostgresRepository(pool)
}

func provideRecommendConfig(cfg *config.Config) recommend.Config {
	return recommend.Config{
		Model:           cfg.LLM.Model,
		Temperature:     cfg.LLM.Temperature,
		Prompt:          cfg.Recommendations.Prompt,
		CacheTTL:        cfg.Recommendations.CacheTTL,
		MaxPromptTokens: cfg.Recommendations.MaxPromptTokens,
	}
}

func provideChatGPTClient(cfg *config.Config) (*chatgpt.Client, error) {
	return chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
}

func provideRecommendStore(cfg *config.Config, logger *slog.Logger) recommend.Store {
	if cfg.Recommendations.Redis.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return recstore.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return recstore.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
		} else {
			logger.Info("recommendation valkey store enabled", "addr", cfg.Recommendations.Redis.Addr)
			return recstore.NewValkeyStore(client, "rec")
		}
	}
	return recstore.NewMemoryStore()
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Recommendations.Redis.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Recommendations.Redis.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Recommendations.Redis.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

func provideArchiver(cfg *config.Config, logger *slog.Logger) exportstore.Archiver {
	if strings.TrimSpace(cfg.Export.S3Endpoint) == "" {
		return exportstore.NoopArchiver{}
	}
	archiver, err := exportstore.NewS3Archiver(
		cfg.Export.S3Endpoint,
		cfg.Export.S3AccessKey,
		cfg.Export.S3SecretKey,
		cfg.Export.S3Bucket,
		cfg.Export.S3Region,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize export archiver, archiving disabled", "error", err)
		return exportstore.NoopArchiver{}
	}
	return archiver
}

func provideProfileSource(svc analytics.Service) recommend.ProfileSource {
	return svc
}
