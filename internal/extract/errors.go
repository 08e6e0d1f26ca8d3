package extract

import "fmt"

// ExtractionError reports a malformed or unparseable model response. The
// pipeline recovers by falling back to the heuristic extractor; the same
// input is never retried against the same model.
type ExtractionError struct {
	Model string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("model %s extraction failed: %v", e.Model, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ValidationError names a field still missing after a model extraction. It
// is resolved locally by a heuristic repair pass or placeholder substitution
// and never propagates out of the extractors.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("required field %q missing or placeholder", e.Field)
}
