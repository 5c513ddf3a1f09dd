// Package bootstrap wires optional infrastructure for the binaries. Every
// builder degrades to a local default so the API runs with nothing but a port.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/aquashine/carwash-ai-platform/internal/config"
	"github.com/aquashine/carwash-ai-platform/internal/conversation"
	"github.com/aquashine/carwash-ai-platform/internal/requests"
	"github.com/aquashine/carwash-ai-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildSessionStore prefers Redis and falls back to the in-memory store for
// single-replica development runs.
func BuildSessionStore(redisClient *redis.Client, cfg *appconfig.Config, logger *logging.Logger) conversation.SessionStore {
	if redisClient == nil {
		if logger != nil {
			logger.Warn("sessions stored in memory; conversations will not survive restarts")
		}
		return conversation.NewMemorySessionStore()
	}
	return conversation.NewRedisSessionStore(redisClient, cfg.SessionTTL)
}

// BuildRequestRepository prefers Postgres and falls back to memory.
func BuildRequestRepository(pool *pgxpool.Pool, logger *logging.Logger) requests.Repository {
	if pool == nil {
		if logger != nil {
			logger.Warn("service requests stored in memory; bookings will not survive restarts")
		}
		return requests.NewInMemoryRepository()
	}
	return requests.NewPostgresRepository(pool)
}

// BuildTranscriptStore returns the Postgres transcript store, or nil when
// transcripts are disabled.
func BuildTranscriptStore(sqlDB *sql.DB) *conversation.PostgresTranscriptStore {
	if sqlDB == nil {
		return nil
	}
	return conversation.NewPostgresTranscriptStore(sqlDB)
}
