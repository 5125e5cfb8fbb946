package indicator

import "errors"

var (
	// ErrInvalidInput marks a bar series the pipeline refuses to process.
	ErrInvalidInput = errors.New("indicator: invalid input")
	// ErrInvalidParams marks a parameter set that cannot drive the pipeline.
	ErrInvalidParams = errors.New("indicator: invalid params")
)
