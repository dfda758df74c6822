package api

import (
	"errors"
	"net/http"
	"time"

	"FxCast/internal/domain/models"
	domrepo "FxCast/internal/domain/repository"
	"FxCast/internal/repository"
	"FxCast/internal/service/metrics"
	"FxCast/internal/service/ratelimit"
	"FxCast/internal/services/model"
	"FxCast/internal/services/scenario"
	"FxCast/internal/usecase"
	xhttp "FxCast/pkg/http"
	xlogger "FxCast/pkg/logger"
	"FxCast/pkg/queue"
	xutil "FxCast/pkg/util"

	"github.com/labstack/echo/v4"
)

// DashboardEchoHandler serves the dashboard endpoints.
type DashboardEchoHandler struct {
	logger  *xlogger.Logger
	uc      *usecase.DashboardUseCase
	audit   *repository.AuditWorkbook
	limiter *ratelimit.Limiter
	trainer *usecase.TrainingScheduler
}

type HandlerOption func(*DashboardEchoHandler)

// WithTrainingScheduler enables the on-demand training endpoints.
func WithTrainingScheduler(s *usecase.TrainingScheduler) HandlerOption {
	return func(h *DashboardEchoHandler) { h.trainer = s }
}

func NewDashboardEchoHandler(logger *xlogger.Logger, uc *usecase.DashboardUseCase, audit *repository.AuditWorkbook, limiter *ratelimit.Limiter, opts ...HandlerOption) *DashboardEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	metrics.Register()
	h := &DashboardEchoHandler{logger: logger, uc: uc, audit: audit, limiter: limiter}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/rate/latest", h.LatestRate)
	g.GET("/series", h.Series)
	g.GET("/forecast", h.Forecast)
	g.GET("/forecast/comparison.csv", h.ComparisonCSV)
	g.GET("/diagnostics", h.Diagnostics)
	g.GET("/audit", h.Audit)
	g.GET("/predictions", h.Predictions)

	// Scoring endpoints run the regressor and share a per-client budget.
	var scored []echo.MiddlewareFunc
	if h.limiter != nil {
		scored = append(scored, ratelimit.Middleware(h.limiter))
	}
	g.GET("/scenarios", h.Scenarios, scored...)
	g.POST("/scenarios/simulate", h.Simulate, scored...)
	g.GET("/snapshot", h.Snapshot, scored...)
	g.POST("/train", h.Train, scored...)
	g.GET("/train/:id", h.TrainStatus)
}

func (h *DashboardEchoHandler) LatestRate(c echo.Context) error {
	start := time.Now()
	v := h.uc.LatestRate(c.Request().Context())
	metrics.Observe("rate_latest", start, nil)
	return xhttp.SuccessResponse(c, v)
}

func (h *DashboardEchoHandler) Series(c echo.Context) error {
	start := time.Now()
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res := h.uc.Series(c.Request().Context(), *req)
	metrics.Observe("series", start, nil)
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardEchoHandler) Scenarios(c echo.Context) error {
	start := time.Now()
	req := &models.ScenariosRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	variation := h.uc.Settings().Variation
	if req.Variation != nil {
		variation = *req.Variation
	}

	preds, err := h.uc.Scenarios(c.Request().Context(), variation, req.N)
	metrics.Observe("scenarios", start, err)
	if err != nil {
		h.logger.Error("scenarios usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, preds)
}

func (h *DashboardEchoHandler) Simulate(c echo.Context) error {
	start := time.Now()
	req := &models.SimulateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	date := xutil.ParseDateDefault(req.Date, xutil.Day(time.Now()))
	variation := h.uc.Settings().Variation
	if req.Variation != nil {
		variation = *req.Variation
	}

	res, err := h.uc.Simulate(c.Request().Context(), date, req.Features, variation)
	metrics.Observe("simulate", start, err)
	if err != nil {
		h.logger.Warn("simulate rejected", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardEchoHandler) Forecast(c echo.Context) error {
	start := time.Now()
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	date, _ := xutil.ParseDate(req.Date)

	view, err := h.uc.Forecast(c.Request().Context(), date)
	metrics.Observe("forecast", start, err)
	if err != nil {
		h.logger.Error("forecast usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, view)
}

func (h *DashboardEchoHandler) ComparisonCSV(c echo.Context) error {
	start := time.Now()
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	date, _ := xutil.ParseDate(req.Date)

	body, err := h.uc.ComparisonCSV(c.Request().Context(), date)
	metrics.Observe("comparison_csv", start, err)
	if err != nil {
		h.logger.Error("comparison csv error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.CSVResponse(c, "scenario_comparison.csv", body)
}

func (h *DashboardEchoHandler) Diagnostics(c echo.Context) error {
	start := time.Now()
	req := &models.DiagnosticsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	d, err := h.uc.Diagnostics(c.Request().Context(), req.Days)
	metrics.Observe("diagnostics", start, err)
	if err != nil {
		h.logger.Error("diagnostics usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, d)
}

// Predictions lists archived prediction events.
func (h *DashboardEchoHandler) Predictions(c echo.Context) error {
	start := time.Now()
	req := &models.PredictionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	events, err := h.uc.RecentPredictions(c.Request().Context(), req.Model, req.Limit)
	metrics.Observe("predictions", start, err)
	if err != nil {
		if !errors.Is(err, domrepo.ErrNotAvailable) {
			h.logger.Error("predictions usecase error", xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, events)
}

// Audit streams the pre-computed workbook unchanged.
func (h *DashboardEchoHandler) Audit(c echo.Context) error {
	if h.audit == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("audit workbook not configured"))
	}
	f, _, err := h.audit.Open()
	if err != nil {
		if errors.Is(err, domrepo.ErrNotAvailable) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("audit workbook not found").WithError(err))
		}
		h.logger.Error("audit open error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("audit workbook unreadable").WithError(err))
	}
	defer f.Close()
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+h.audit.Name()+`"`)
	c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeContent(c.Response(), c.Request(), h.audit.Name(), time.Time{}, f)
	return nil
}

func (h *DashboardEchoHandler) Snapshot(c echo.Context) error {
	start := time.Now()
	snap, err := h.uc.Snapshot(c.Request().Context())
	metrics.Observe("snapshot", start, err)
	if err != nil {
		h.logger.Error("snapshot usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	for _, n := range snap.Notices {
		if n.Severity == models.SeverityWarning {
			metrics.DegradedSections.WithLabelValues(string(n.Section)).Inc()
		}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, snap)
}

// Train queues a training run and answers 202 with its status.
func (h *DashboardEchoHandler) Train(c echo.Context) error {
	if h.trainer == nil {
		return xhttp.AppErrorResponse(c, trainingUnavailable())
	}
	start := time.Now()
	req := &models.TrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	st, err := h.trainer.Submit(c.Request().Context(), *req)
	metrics.Observe("train", start, err)
	if err != nil {
		h.logger.Error("train enqueue error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	h.logger.Info("training run queued", xlogger.String("job_id", st.ID), xlogger.String("start", req.Start))
	return xhttp.DataResponse(c, http.StatusAccepted, st)
}

// TrainStatus reports on a queued training run.
func (h *DashboardEchoHandler) TrainStatus(c echo.Context) error {
	if h.trainer == nil {
		return xhttp.AppErrorResponse(c, trainingUnavailable())
	}
	req := &models.TrainStatusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	st, err := h.trainer.Status(c.Request().Context(), req.ID)
	if err != nil {
		if !errors.Is(err, queue.ErrNotFound) {
			h.logger.Error("train status error", xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, st)
}

func trainingUnavailable() *xhttp.AppError {
	return xhttp.ServiceUnavailableError("ERR_NOT_AVAILABLE", "on-demand training is not enabled")
}

// toAppError maps pipeline sentinels onto HTTP errors.
func toAppError(err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, scenario.ErrInvalidVariation):
		return xhttp.BadRequestError(err.Error()).WithField("variation").WithParam("range", "[0, 1)").WithError(err)
	case errors.Is(err, models.ErrColumnMismatch):
		return xhttp.UnprocessableError("ERR_COLUMN_MISMATCH", err.Error()).WithError(err)
	case errors.Is(err, model.ErrInsufficientData), errors.Is(err, scenario.ErrNoRows):
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_DATA", err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrEmptySeries):
		return xhttp.UnprocessableError("ERR_EMPTY_SERIES", err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrModelUnavailable):
		return xhttp.ServiceUnavailableError("ERR_MODEL_UNAVAILABLE", "scenario model is not loaded").WithError(err)
	case errors.Is(err, usecase.ErrInvalidStart):
		return xhttp.BadRequestError(err.Error()).WithField("start").WithError(err)
	case errors.Is(err, queue.ErrNotFound):
		return xhttp.NotFoundError("training run not found").WithError(err)
	case errors.Is(err, queue.ErrNotRunning):
		return xhttp.ServiceUnavailableError("ERR_NOT_AVAILABLE", "training queue is not running").WithError(err)
	case errors.Is(err, domrepo.ErrNotAvailable):
		return xhttp.ServiceUnavailableError("ERR_NOT_AVAILABLE", err.Error()).WithError(err)
	}
	return xhttp.InternalError("something went wrong").WithError(err)
}
