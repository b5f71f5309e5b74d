package repository

import (
	"github.com/navikt/mrooms/internal/config"
	"github.com/navikt/mrooms/internal/repository/memory"
	"github.com/navikt/mrooms/internal/repository/redis"
)

// NewRepository selects the cache backend from configuration: Redis
// when enabled (shared across instances), in-memory otherwise.
func NewRepository(cfg config.RedisConfig) (Repository, error) {
	if cfg.Enabled {
		return redis.NewRepository(cfg)
	}
	return memory.NewRepository(), nil
}
