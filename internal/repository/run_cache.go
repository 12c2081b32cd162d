package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

func runCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("scheduling_run_%s", id)
}

func (c *RunCache) SaveRun(ctx context.Context, run *domain.SchedulingRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Redis.OperationExpiration)*time.Second)
	defer cancel()

	return c.rdb.Set(ctx, runCacheKey(run.ID), data, time.Duration(c.cfg.Redis.ResultExpiration)*time.Second).Err()
}

func (c *RunCache) GetRun(ctx context.Context, id uuid.UUID) (*domain.SchedulingRun, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Redis.OperationExpiration)*time.Second)
	defer cancel()

	data, err := c.rdb.Get(ctx, runCacheKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}

	run := &domain.SchedulingRun{}
	if err := json.Unmarshal(data, run); err != nil {
		return nil, err
	}

	return run, nil
}
