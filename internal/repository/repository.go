package repository

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/config"
)

// Repository 负责 PostgreSQL 中的排班运行归档
type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

// RunCache 负责 redis 中的排班结果缓存
type RunCache struct {
	cfg *config.Config
	rdb *redis.Client
}

func NewRunCache(cfg *config.Config, rdb *redis.Client) *RunCache {
	return &RunCache{
		cfg: cfg,
		rdb: rdb,
	}
}
