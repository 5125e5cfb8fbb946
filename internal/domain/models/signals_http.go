package models

// Requests for signal endpoints. Defined in domain for consistency and reuse.

type SignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,symbol"`
	TF     string `query:"tf" json:"tf" default:"5m" validate:"oneof=1m 5m 15m 1h 4h 1d"`
	Limit  int    `query:"limit" json:"limit" default:"300" validate:"gte=2,lte=2000"`
}

type SummaryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,symbol"`
	TF     string `query:"tf" json:"tf" default:"5m" validate:"oneof=1m 5m 15m 1h 4h 1d"`
}

// ScanRequest is the payload of an on-demand recompute request received over Kafka.
type ScanRequest struct {
	Symbol string `json:"symbol" validate:"required,symbol"`
	TF     string `json:"tf" default:"5m" validate:"oneof=1m 5m 15m 1h 4h 1d"`
	Limit  int    `json:"limit" default:"300" validate:"gte=2,lte=2000"`
}
