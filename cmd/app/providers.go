package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/helpline/faqmatch/internal/domain/matching"
	"github.com/helpline/faqmatch/internal/infra/archive"
	"github.com/helpline/faqmatch/internal/infra/config"
	"github.com/helpline/faqmatch/internal/infra/corpusrepo"
	"github.com/helpline/faqmatch/internal/infra/inboundrepo"
	"github.com/helpline/faqmatch/internal/infra/matchengine"
	"github.com/helpline/faqmatch/internal/infra/resultcache"
)

func provideMatchingConfig(cfg *config.Config) matching.Config {
	return matching.Config{
		ReductionMethod: cfg.Matching.ReductionMethod,
		MeanPlusWeightN: cfg.Matching.MeanPlusWeightN,
		PageSize:        cfg.Matching.PageSize,
		ToolsTopMatches: cfg.Matching.ToolsTopMatches,
		ContextActive:   cfg.Matching.ContextActive,
		ContextList:     cfg.Matching.ContextList,
		EngineTimeout:   cfg.Matching.EngineTimeout,
		CorpusTTL:       cfg.Matching.CorpusTTL,
		ContextTTL:      cfg.Matching.ContextTTL,
		ResultCacheTTL:  cfg.Matching.ResultCacheTTL,
	}
}

// providePgxPool returns a connected pool, or nil when postgres is not
// configured or unreachable so the repositories fall back to memory.
func providePgxPool(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory repositories")
		return nil
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repositories", "error", err)
		return nil
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repositories", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repositories", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("postgres repositories enabled")
	return pool
}

func provideCorpusRepository(pool *pgxpool.Pool) matching.CorpusRepository {
	if pool == nil {
		return corpusrepo.NewMemoryRepository()
	}
	return corpusrepo.NewPostgresRepository(pool)
}

func provideInboundRepository(pool *pgxpool.Pool) matching.InboundRepository {
	if pool == nil {
		return inboundrepo.NewMemoryRepository()
	}
	return inboundrepo.NewPostgresRepository(pool)
}

func provideEngine(cfg *config.Config, logger *slog.Logger) matching.Engine {
	if strings.TrimSpace(cfg.Engine.BaseURL) == "" {
		logger.Info("engine base url not set, using lexical engine")
		return matchengine.NewLexicalEngine()
	}
	client, err := matchengine.NewClient(cfg.Engine.BaseURL, cfg.Engine.Token, cfg.Engine.Timeout)
	if err != nil {
		logger.Error("invalid engine configuration, using lexical engine", "error", err)
		return matchengine.NewLexicalEngine()
	}
	return client
}

func provideResultCache(cfg *config.Config, logger *slog.Logger) matching.ResultCache {
	if cfg.Valkey.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
			return resultcache.NewMemoryCache()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
			return resultcache.NewMemoryCache()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		} else {
			logger.Info("valkey result cache enabled", "addr", cfg.Valkey.Addr)
			return resultcache.NewValkeyCache(client, "inbound")
		}
	}
	return resultcache.NewMemoryCache()
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Valkey.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Valkey.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Valkey.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

func provideArchive(cfg *config.Config, logger *slog.Logger) matching.Archive {
	if !cfg.Archive.Enabled {
		return archive.NewMemoryArchive()
	}
	store, err := archive.NewMinioArchive(cfg.Archive.Endpoint, cfg.Archive.AccessKey, cfg.Archive.SecretKey, cfg.Archive.Bucket, cfg.Archive.Region, logger)
	if err != nil {
		logger.Error("failed to initialize archive store, falling back to memory", "error", err)
		return archive.NewMemoryArchive()
	}
	return store
}
