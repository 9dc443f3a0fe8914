package main

import (
	"context"
	"database/sql"
	"fmt"

	"shortwave/internal/config"
	"shortwave/internal/migrations"
	"shortwave/internal/repository"
	"shortwave/internal/repository/memory"
	"shortwave/internal/repository/postgres"
	redisrepo "shortwave/internal/repository/redis"
	"shortwave/internal/repository/sqlite"
	"shortwave/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// stores owns every backend connection opened at startup.
type stores struct {
	links repository.LinkRepository

	pool   *pgxpool.Pool
	redis  *redis.Client
	sqlite *sql.DB
	logger *logger.Logger
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	s := &stores{logger: log}

	switch cfg.Store.Driver {
	case config.DriverMemory:
		log.Warn("Using in-memory link store, data is lost on restart")
		s.links = memory.NewLinkRepository()

	case config.DriverPostgres:
		if cfg.Database.AutoMigrate {
			if err := migrate(cfg.Database.DatabaseURL(), log); err != nil {
				return nil, err
			}
		}

		pool, err := postgres.InitDB(ctx,
			cfg.Database.DatabaseURL(),
			cfg.Database.MaxConns,
			cfg.Database.MinConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			return nil, err
		}
		s.pool = pool
		s.links = postgres.NewLinkRepository(pool)
		log.Info("Database connection established")

	case config.DriverRedis:
		client, err := s.redisClient(cfg)
		if err != nil {
			return nil, err
		}
		s.links = redisrepo.NewLinkRepository(client)
		log.Info("Redis connection established")

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		s.sqlite = db
		s.links = sqlite.NewLinkRepository(db)
		log.Info("SQLite database opened", "path", cfg.SQLite.Path)

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	return s, nil
}

// redisClient connects on first use so the redis store and the rate
// limiter share one pool.
func (s *stores) redisClient(cfg *config.Config) (*redis.Client, error) {
	if s.redis != nil {
		return s.redis, nil
	}

	client, err := redisrepo.InitRedis(cfg.Redis.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
	if err != nil {
		return nil, err
	}
	s.redis = client
	return client, nil
}

func (s *stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("Failed to close Redis client", "error", err)
		}
	}
	if s.sqlite != nil {
		if err := s.sqlite.Close(); err != nil {
			s.logger.Warn("Failed to close SQLite database", "error", err)
		}
	}
}

func migrate(databaseURL string, log *logger.Logger) error {
	m, err := migrations.New(databaseURL, log.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", "error", err)
		}
	}()

	return m.Up()
}
