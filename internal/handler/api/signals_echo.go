package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/backtest"
	"FinSignal/internal/services/indicators"
	"FinSignal/internal/usecase"
	xhttp "FinSignal/pkg/http"
	xlogger "FinSignal/pkg/logger"
	"FinSignal/pkg/util"

	"github.com/labstack/echo/v4"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// SignalsEchoHandler exposes generation, backtest and per-series views.
type SignalsEchoHandler struct {
	logger    *xlogger.Logger
	generator *usecase.SignalGenerator
	backtests *usecase.BacktestRunner
	bars      *usecase.BarsUseCase
	symbols   []string
	checks    map[string]HealthCheck
}

func NewSignalsEchoHandler(
	logger *xlogger.Logger,
	generator *usecase.SignalGenerator,
	backtests *usecase.BacktestRunner,
	bars *usecase.BarsUseCase,
	symbols []string,
) *SignalsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &SignalsEchoHandler{
		logger:    logger,
		generator: generator,
		backtests: backtests,
		bars:      bars,
		symbols:   symbols,
		checks:    map[string]HealthCheck{},
	}
}

// AddHealthCheck registers a dependency probe for /healthz.
func (h *SignalsEchoHandler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.POST("/signals/generate", h.Generate)
	g.POST("/backtest", h.Backtest)
	g.GET("/regime", h.Regime)
	g.GET("/indicators", h.Indicators)
	g.GET("/bars", h.Bars)
}

func (h *SignalsEchoHandler) Generate(c echo.Context) error {
	req := &models.GenerateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = h.symbols
	}

	ctx := c.Request().Context()
	if !req.Emit {
		return xhttp.SuccessResponse(c, h.generator.Generate(ctx, symbols, req.At))
	}
	rep, err := h.generator.RunCycle(ctx, symbols, req.At)
	if err != nil {
		h.logger.Error("generate cycle error", xlogger.Error(err))
		if rep != nil && !errors.Is(err, context.Canceled) {
			// The ranked list is valid even when a sink failed.
			return xhttp.DataResponse(c, http.StatusMultiStatus, rep)
		}
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, rep)
}

func (h *SignalsEchoHandler) Backtest(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	step, err := time.ParseDuration(req.Step)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("step", "invalid step %q", req.Step))
	}

	rep, err := h.backtests.Run(c.Request().Context(), usecase.BacktestParams{
		Symbols: util.UpperAll(req.Symbols),
		From:    req.From,
		To:      req.To,
		Step:    step,
		Mode:    req.Mode,
	})
	if err != nil {
		h.logger.Error("backtest error", xlogger.Error(err))
		return h.fail(c, err)
	}

	if strings.EqualFold(c.QueryParam("format"), "csv") {
		c.Response().Header().Set(echo.HeaderContentType, "text/csv")
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="backtest.csv"`)
		c.Response().WriteHeader(http.StatusOK)
		return backtest.WriteCSV(c.Response(), rep.Outcomes)
	}
	return xhttp.SuccessResponse(c, rep)
}

func (h *SignalsEchoHandler) Regime(c echo.Context) error {
	req := &models.RegimeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.bars.Regime(c.Request().Context(), req.Symbol, models.Timeframe(req.TF), req.N, req.At)
	if err != nil {
		return h.fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) Indicators(c echo.Context) error {
	req := &models.IndicatorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.bars.Indicators(c.Request().Context(), req.Symbol, models.Timeframe(req.TF), req.N, req.At)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) Bars(c echo.Context) error {
	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, ok := util.ParseTime(req.From)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("from", "invalid time %q", req.From))
	}
	to := time.Now().UTC()
	if req.To != "" {
		if to, ok = util.ParseTime(req.To); !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("to", "invalid time %q", req.To))
		}
	}

	res, err := h.bars.GetBars(c.Request().Context(), usecase.GetBarsParams{
		Symbol:    req.Symbol,
		Timeframe: models.Timeframe(req.TF),
		From:      from,
		To:        to,
		Limit:     req.Limit,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}
	return xhttp.DataResponse(c, status, deps)
}

// fail maps use case errors onto HTTP statuses.
func (h *SignalsEchoHandler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, usecase.ErrInvalidParams), errors.Is(err, models.ErrEmptySymbol):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("", err.Error()))
	case errors.Is(err, indicators.ErrInsufficientData):
		return xhttp.AppErrorResponse(c, xhttp.UnprocessableError(err.Error()))
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("request timed out"))
	}
	h.logger.Error("request failed", xlogger.String("route", c.Path()), xlogger.Error(err))
	return xhttp.AppErrorResponse(c, xhttp.InternalError("internal error").WithError(err))
}
