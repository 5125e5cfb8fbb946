package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ProScalper/internal/domain/models"
	domrepo "ProScalper/internal/domain/repository"
	xhttp "ProScalper/pkg/http"
	pkgkafka "ProScalper/pkg/kafka"
	applogger "ProScalper/pkg/logger"
)

// KafkaScanHandler serves on-demand recompute requests from Kafka and
// publishes the latest-bar event, if any.
type KafkaScanHandler struct {
	topic   string
	uc      Computer
	pub     domrepo.SignalPublisher
	metrics domrepo.Metrics
	l       *applogger.Logger
}

var _ pkgkafka.MessageHandler = (*KafkaScanHandler)(nil)

func NewKafkaScanHandler(topic string, uc Computer, pub domrepo.SignalPublisher, metrics domrepo.Metrics) *KafkaScanHandler {
	return &KafkaScanHandler{topic: topic, uc: uc, pub: pub, metrics: metrics}
}

// SetLogger injects a structured logger.
func (h *KafkaScanHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *KafkaScanHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, tf, limit}
func (h *KafkaScanHandler) Handle(ctx context.Context, b []byte) error {
	var req models.ScanRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.recordError("consumer_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode scan request: %w", err))
	}
	if err := xhttp.ValidateStruct(ctx, &req); err != nil {
		h.recordError("consumer_validate")
		return pkgkafka.Permanent(err)
	}

	report, err := h.uc.Compute(ctx, ComputeParams{
		Symbol:    req.Symbol,
		Timeframe: domrepo.Timeframe(req.TF),
		Limit:     req.Limit,
	})
	if err != nil {
		h.recordError("consumer_compute")
		return err
	}
	if h.l != nil {
		fields := []applogger.Field{
			applogger.String("symbol", report.Symbol),
			applogger.String("tf", report.Timeframe),
			applogger.Bool("available", report.Available),
		}
		if report.Summary != nil {
			fields = append(fields, applogger.String("status", string(report.Summary.Status)))
		}
		h.l.Info("scan_request.done", fields...)
	}

	last, ok := report.Latest()
	if !ok {
		return nil
	}
	ev, ok := models.EventFromBar(report.Symbol, report.Timeframe, last, time.Now().UTC())
	if !ok {
		return nil
	}
	return h.pub.Publish(ctx, ev)
}

func (h *KafkaScanHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}
