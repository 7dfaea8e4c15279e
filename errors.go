package fsmgen

import (
	stderrors "errors"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	ErrCodeMissingConstructor = "FSM_MISSING_CONSTRUCTOR"
	ErrCodeInvalidGraph       = "GRAPH_INVALID"
	ErrCodeParseFailed        = "GRAPH_PARSE_FAILED"
	ErrCodeNothingToGenerate  = "SYNTH_NOTHING_TO_GENERATE"
	ErrCodeEmitFailed         = "SYNTH_EMIT_FAILED"
	ErrCodeInvalidCatalog     = "CATALOG_INVALID"
	ErrCodeScheduleFailed     = "DRIVER_SCHEDULE_FAILED"
	ErrCodeTickFailed         = "DRIVER_TICK_FAILED"
)

var (
	// ErrMissingConstructor marks a state type the machine cannot build with
	// an (owner, machine) constructor. It is a configuration error.
	ErrMissingConstructor = errors.New("state type has no (owner, machine) constructor", errors.CategoryBadInput).
				WithTextCode(ErrCodeMissingConstructor)
	ErrInvalidGraph = errors.New("invalid state graph", errors.CategoryValidation).
			WithTextCode(ErrCodeInvalidGraph)
	ErrParseFailed = errors.New("failed to parse document", errors.CategoryBadInput).
			WithTextCode(ErrCodeParseFailed)
	// ErrNothingToGenerate is returned when a graph has no node with an executable backing.
	ErrNothingToGenerate = errors.New("nothing to generate", errors.CategoryValidation).
				WithTextCode(ErrCodeNothingToGenerate)
	ErrEmitFailed = errors.New("failed to emit source", errors.CategoryHandler).
			WithTextCode(ErrCodeEmitFailed)
	ErrInvalidCatalog = errors.New("invalid type catalog", errors.CategoryValidation).
				WithTextCode(ErrCodeInvalidCatalog)
	ErrScheduleFailed = errors.New("failed to schedule machine", errors.CategoryBadInput).
				WithTextCode(ErrCodeScheduleFailed)
	// ErrTickFailed wraps a panic raised while executing a scheduled machine.
	ErrTickFailed = errors.New("machine tick failed", errors.CategoryHandler).
			WithTextCode(ErrCodeTickFailed)
)

// NewError clones base and enriches it with message, source and metadata.
// Sentinels are never mutated.
func NewError(base *errors.Error, message string, source error, metadata map[string]any) *errors.Error {
	if base == nil {
		base = ErrInvalidGraph
	}
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if source != nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// ErrorCode returns the text code of the first go-errors error in the chain.
func ErrorCode(err error) string {
	var ge *errors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// HasCode reports whether err carries the given text code.
func HasCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}
