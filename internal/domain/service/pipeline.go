package service

import "ProScalper/internal/domain/models"

// SignalPipeline turns a bar series into an annotated series with signal flags.
type SignalPipeline interface {
	Process(bars []models.Bar) ([]models.AnnotatedBar, error)
}
