package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

const schedulingRunColumns = `
	id, owner, status, grid, fitness, hard_penalty, soft_penalty,
	generations, seed, history, violations, error, created_at, finished_at
`

type scanner interface {
	Scan(dest ...any) error
}

func (r *Repository) InsertSchedulingRun(ctx context.Context, run *domain.SchedulingRun) error {
	var grid []byte
	if run.Grid != nil {
		data, err := json.Marshal(run.Grid)
		if err != nil {
			return err
		}
		grid = data
	}

	history, err := json.Marshal(run.History)
	if err != nil {
		return err
	}
	violations, err := json.Marshal(run.Violations)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scheduling_runs (` + schedulingRunColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{
		run.ID,
		run.Owner,
		string(run.Status),
		grid,
		run.Fitness,
		run.HardPenalty,
		run.SoftPenalty,
		run.Generations,
		run.Seed,
		history,
		violations,
		run.Error,
		run.CreatedAt,
		run.FinishedAt,
	}
	if _, err := r.dbpool.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetSchedulingRun(ctx context.Context, id uuid.UUID, owner string) (*domain.SchedulingRun, error) {
	query := `SELECT ` + schedulingRunColumns + ` FROM scheduling_runs WHERE id = $1 AND owner = $2`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	run, err := scanSchedulingRun(r.dbpool.QueryRowContext(ctx, query, id, owner))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}

	return run, nil
}

func (r *Repository) GetSchedulingRunsByOwner(ctx context.Context, owner string) ([]*domain.SchedulingRun, error) {
	query := `SELECT ` + schedulingRunColumns + ` FROM scheduling_runs WHERE owner = $1 ORDER BY created_at DESC`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.SchedulingRun, 0)
	for rows.Next() {
		run, err := scanSchedulingRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

func scanSchedulingRun(row scanner) (*domain.SchedulingRun, error) {
	run := &domain.SchedulingRun{}

	var (
		status     string
		grid       []byte
		history    []byte
		violations []byte
		runErr     sql.NullString
	)

	dst := []any{
		&run.ID,
		&run.Owner,
		&status,
		&grid,
		&run.Fitness,
		&run.HardPenalty,
		&run.SoftPenalty,
		&run.Generations,
		&run.Seed,
		&history,
		&violations,
		&runErr,
		&run.CreatedAt,
		&run.FinishedAt,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	run.Status = domain.RunStatus(status)
	if runErr.Valid {
		run.Error = &runErr.String
	}

	// 失败的运行没有排班表
	if len(grid) > 0 {
		run.Grid = &domain.ShiftGrid{}
		if err := json.Unmarshal(grid, run.Grid); err != nil {
			return nil, err
		}
	}
	if err := json.Unmarshal(history, &run.History); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(violations, &run.Violations); err != nil {
		return nil, err
	}

	return run, nil
}
