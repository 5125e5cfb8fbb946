package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	models "ProScalper/internal/domain/models"
	domrepo "ProScalper/internal/domain/repository"
	svcmetrics "ProScalper/internal/service/metrics"
	"ProScalper/internal/services/indicator"
	"ProScalper/internal/usecase"
	xhttp "ProScalper/pkg/http"
	xlogger "ProScalper/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Computer runs one recompute.
type Computer interface {
	Compute(ctx context.Context, p usecase.ComputeParams) (*models.SignalReport, error)
}

// SnapshotProvider exposes the scanner's latest reports.
type SnapshotProvider interface {
	Snapshot(symbol string) (models.SignalReport, bool)
	Snapshots() []models.SignalReport
}

// SignalsEchoHandler serves the signal endpoints.
type SignalsEchoHandler struct {
	logger  *xlogger.Logger
	uc      Computer
	scanner SnapshotProvider
	metrics *svcmetrics.APIMetrics
	mws     []echo.MiddlewareFunc
}

var _ xhttp.Handler = (*SignalsEchoHandler)(nil)

// NewSignalsEchoHandler builds the handler. scanner and metrics may be nil;
// mws wrap the /api group only.
func NewSignalsEchoHandler(logger *xlogger.Logger, uc Computer, scanner SnapshotProvider, m *svcmetrics.APIMetrics, mws ...echo.MiddlewareFunc) *SignalsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &SignalsEchoHandler{logger: logger, uc: uc, scanner: scanner, metrics: m, mws: mws}
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", h.mws...)
	g.GET("/signals", h.Signals)
	g.GET("/summary", h.Summary)
	g.GET("/timeframes", h.Timeframes)
	g.GET("/scanner", h.Scanner)
}

// Signals returns the full annotated series with its summary.
func (h *SignalsEchoHandler) Signals(c echo.Context) error {
	const endpoint = "signals"
	start := time.Now()
	defer h.metrics.Observe(endpoint, start)

	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.metrics.Fail(endpoint, xhttp.CodeValidation)
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.uc.Compute(c.Request().Context(), usecase.ComputeParams{
		Symbol:    req.Symbol,
		Timeframe: domrepo.NormalizeTimeframe(req.TF),
		Limit:     req.Limit,
	})
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.SuccessResponse(c, report)
}

// Summary returns the latest summary without bars. A scanner snapshot for the
// same symbol and timeframe is served as is.
func (h *SignalsEchoHandler) Summary(c echo.Context) error {
	const endpoint = "summary"
	start := time.Now()
	defer h.metrics.Observe(endpoint, start)

	req := &models.SummaryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.metrics.Fail(endpoint, xhttp.CodeValidation)
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	if h.scanner != nil {
		if snap, ok := h.scanner.Snapshot(req.Symbol); ok && snap.Timeframe == tf.String() {
			return xhttp.SuccessResponse(c, snap)
		}
	}

	report, err := h.uc.Compute(c.Request().Context(), usecase.ComputeParams{
		Symbol:    req.Symbol,
		Timeframe: tf,
		Limit:     usecase.DefaultLimit,
	})
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	report.Bars = nil
	return xhttp.SuccessResponse(c, report)
}

// Timeframes lists the supported timeframes.
func (h *SignalsEchoHandler) Timeframes(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"timeframes": domrepo.SupportedTimeframes(),
		"default":    domrepo.DefaultTimeframe(),
	})
}

// Scanner lists the latest report of every scanned symbol.
func (h *SignalsEchoHandler) Scanner(c echo.Context) error {
	if h.scanner == nil {
		return xhttp.SuccessResponse(c, []models.SignalReport{})
	}
	return xhttp.SuccessResponse(c, h.scanner.Snapshots())
}

func (h *SignalsEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, usecase.ErrSymbolRequired):
		appErr = xhttp.BadRequestError(err.Error())
	case errors.Is(err, indicator.ErrInvalidInput):
		appErr = xhttp.UnprocessableError(err.Error()).WithError(err)
	default:
		h.logger.Error(fmt.Sprintf("api.%s usecase error", endpoint), xlogger.Error(err))
		h.metrics.Fail(endpoint, xhttp.CodeInternal)
		return xhttp.InternalServerErrorResponse(c)
	}
	h.logger.Warn(fmt.Sprintf("api.%s rejected", endpoint), xlogger.String("code", appErr.Code), xlogger.Error(err))
	h.metrics.Fail(endpoint, appErr.Code)
	return xhttp.AppErrorResponse(c, appErr)
}
