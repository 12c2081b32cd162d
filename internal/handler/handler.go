package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

// RunManager 是 handler 需要的排班运行管理能力，由 runner.Manager 实现
type RunManager interface {
	Start(ctx context.Context, owner string, req *domain.RunRequest) (uuid.UUID, error)
	Progress(owner string, id uuid.UUID) (domain.ProgressSnapshot, error)
	Result(ctx context.Context, owner string, id uuid.UUID) (*domain.SchedulingRun, error)
	Cancel(owner string, id uuid.UUID) error
	List(ctx context.Context, owner string) ([]*domain.SchedulingRun, error)
}

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	runs       RunManager
	gatherer   prometheus.Gatherer
	translator ut.Translator

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, runs RunManager, gatherer prometheus.Gatherer) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		runs:       runs,
		gatherer:   gatherer,
		translator: trans,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Get("/healthz", h.Healthz)
	h.Mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	h.Mux.Post("/auth/logout", h.Logout)

	// 以下 API 必须要携带有效令牌才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/runs", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RolePlanner})).Post("/", h.StartRun)
			r.Get("/", h.ListRuns)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.runID)
				r.Get("/progress", h.GetRunProgress)
				r.Get("/result", h.GetRunResult)
				r.With(h.RequiredRole([]domain.Role{domain.RolePlanner})).Delete("/", h.CancelRun)
			})
		})
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "服务正常", nil)
}
