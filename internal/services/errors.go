package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed requests: bad URI scheme, missing input,
	// absent local animation file. No workspace exists when it is raised.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable process configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrStaging marks remote download/upload failures.
	ErrStaging = errors.New("staging error")
	// ErrStage marks a failure reported by one of the five pipeline stages.
	ErrStage = errors.New("stage failure")
	// ErrInvariant marks a contract breach in the engine collaborator: the
	// pipeline claimed success but the expected artifact is missing.
	ErrInvariant = errors.New("invariant violation")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrStage
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
