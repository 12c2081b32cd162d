package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/runner"
)

type runProgressResponse struct {
	domain.ProgressSnapshot
	Percentage float64 `json:"percentage"`
}

type runResultResponse struct {
	*domain.SchedulingRun
	Acceptable bool `json:"acceptable"`
	Optimal    bool `json:"optimal"`
}

func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req domain.RunRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	owner := r.Context().Value(SubCtxKey).(string)
	id, err := h.runs.Start(r.Context(), owner, &req)
	if err != nil {
		var problemErr *domain.ValidationError
		switch {
		case errors.As(err, &problemErr):
			h.badRequest(w, r, err)
		case errors.Is(err, runner.ErrTooManyRuns), errors.Is(err, runner.ErrShuttingDown):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "排班运行已启动", map[string]uuid.UUID{"id": id})
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	owner := r.Context().Value(SubCtxKey).(string)

	runs, err := h.runs.List(r.Context(), owner)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取排班运行列表成功", runs)
}

func (h *Handler) GetRunProgress(w http.ResponseWriter, r *http.Request) {
	owner := r.Context().Value(SubCtxKey).(string)
	id := r.Context().Value(RunIDCtx).(uuid.UUID)

	snapshot, err := h.runs.Progress(owner, id)
	if err != nil {
		switch {
		case errors.Is(err, runner.ErrRunNotFound):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取排班进度成功", runProgressResponse{
		ProgressSnapshot: snapshot,
		Percentage:       snapshot.Percentage(),
	})
}

func (h *Handler) GetRunResult(w http.ResponseWriter, r *http.Request) {
	owner := r.Context().Value(SubCtxKey).(string)
	id := r.Context().Value(RunIDCtx).(uuid.UUID)

	run, err := h.runs.Result(r.Context(), owner, id)
	if err != nil {
		switch {
		case errors.Is(err, runner.ErrRunNotFound), errors.Is(err, runner.ErrRunNotFinished):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取排班结果成功", runResultResponse{
		SchedulingRun: run,
		Acceptable:    run.Acceptable(),
		Optimal:       run.Optimal(h.config.Scheduler.SoftAcceptanceThreshold),
	})
}

func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	owner := r.Context().Value(SubCtxKey).(string)
	id := r.Context().Value(RunIDCtx).(uuid.UUID)

	if err := h.runs.Cancel(owner, id); err != nil {
		switch {
		case errors.Is(err, runner.ErrRunNotFound):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "已请求取消排班运行", nil)
}
