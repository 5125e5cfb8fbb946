package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	models "ProScalper/internal/domain/models"
	svcmetrics "ProScalper/internal/service/metrics"
	"ProScalper/internal/services/indicator"
	"ProScalper/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeComputer struct {
	params []usecase.ComputeParams
	report *models.SignalReport
	err    error
}

func (f *fakeComputer) Compute(_ context.Context, p usecase.ComputeParams) (*models.SignalReport, error) {
	f.params = append(f.params, p)
	if f.err != nil {
		return nil, f.err
	}
	r := *f.report
	return &r, nil
}

type fakeScanner struct {
	snaps map[string]models.SignalReport
}

func (s fakeScanner) Snapshot(symbol string) (models.SignalReport, bool) {
	r, ok := s.snaps[symbol]
	return r, ok
}

func (s fakeScanner) Snapshots() []models.SignalReport {
	out := make([]models.SignalReport, 0, len(s.snaps))
	for _, r := range s.snaps {
		out = append(out, r)
	}
	return out
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func sampleReport() *models.SignalReport {
	ts := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	bar := models.AnnotatedBar{Bar: models.Bar{Timestamp: ts, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 3}, State: models.RegimeBullish, BuySignal: true}
	return &models.SignalReport{
		Symbol:      "BTC_USDT",
		Timeframe:   "5m",
		GeneratedAt: ts,
		Available:   true,
		Summary:     &models.Summary{LastTime: ts, LastPrice: 1.5, Status: models.StatusBuy, State: models.RegimeBullish},
		Bars:        []models.AnnotatedBar{bar, bar},
	}
}

func do(t *testing.T, h *SignalsEchoHandler, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestSignalsOK(t *testing.T) {
	fc := &fakeComputer{report: sampleReport()}
	h := NewSignalsEchoHandler(nil, fc, nil, nil)

	rec, env := do(t, h, "/api/signals?symbol=BTC_USDT&tf=1h&limit=50")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 200, env.Status)

	var r models.SignalReport
	require.NoError(t, json.Unmarshal(env.Data, &r))
	assert.Len(t, r.Bars, 2)
	assert.Equal(t, models.StatusBuy, r.Summary.Status)

	require.Len(t, fc.params, 1)
	assert.Equal(t, "1h", fc.params[0].Timeframe.String())
	assert.Equal(t, 50, fc.params[0].Limit)
}

func TestSignalsValidation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := svcmetrics.NewAPIMetrics(reg)
	h := NewSignalsEchoHandler(nil, &fakeComputer{report: sampleReport()}, nil, m)

	rec, env := do(t, h, "/api/signals?tf=3m&limit=1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 400, env.Status)
	assert.Contains(t, string(env.Data), "ERR_REQUIRED")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Errors.WithLabelValues("signals", "ERR_VALIDATION")))
}

func TestSignalsInvalidInputIs422(t *testing.T) {
	err := fmt.Errorf("process BTC_USDT 5m: %w", fmt.Errorf("%w: bar 3: high below low", indicator.ErrInvalidInput))
	h := NewSignalsEchoHandler(nil, &fakeComputer{err: err}, nil, nil)

	rec, env := do(t, h, "/api/signals?symbol=BTC_USDT")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_INVALID_INPUT")
}

func TestSignalsInternalError(t *testing.T) {
	h := NewSignalsEchoHandler(nil, &fakeComputer{err: errors.New("boom")}, nil, nil)
	rec, _ := do(t, h, "/api/signals?symbol=BTC_USDT")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSummaryPrefersScannerSnapshot(t *testing.T) {
	snap := *sampleReport()
	snap.Bars = nil
	fc := &fakeComputer{report: sampleReport()}
	h := NewSignalsEchoHandler(nil, fc, fakeScanner{snaps: map[string]models.SignalReport{"BTC_USDT": snap}}, nil)

	rec, _ := do(t, h, "/api/summary?symbol=BTC_USDT")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, fc.params, "snapshot served without recompute")

	// other timeframe falls through to a fresh compute without bars
	rec, env := do(t, h, "/api/summary?symbol=BTC_USDT&tf=1h")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fc.params, 1)
	assert.Equal(t, usecase.DefaultLimit, fc.params[0].Limit)
	var r models.SignalReport
	require.NoError(t, json.Unmarshal(env.Data, &r))
	assert.Nil(t, r.Bars)
	assert.NotNil(t, r.Summary)
}

func TestTimeframes(t *testing.T) {
	h := NewSignalsEchoHandler(nil, &fakeComputer{}, nil, nil)
	rec, env := do(t, h, "/api/timeframes")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"timeframes":["1m","5m","15m","1h","4h","1d"],"default":"5m"}`, string(env.Data))
}

func TestScannerWithoutScanner(t *testing.T) {
	h := NewSignalsEchoHandler(nil, &fakeComputer{}, nil, nil)
	rec, env := do(t, h, "/api/scanner")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestGroupMiddlewareApplies(t *testing.T) {
	deny := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error { return c.JSON(http.StatusTooManyRequests, map[string]int{"status": 429}) }
	}
	h := NewSignalsEchoHandler(nil, &fakeComputer{}, nil, nil, deny)
	rec, _ := do(t, h, "/api/timeframes")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
