package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRunActive reports that another run holds the single-run guard.
	ErrRunActive = errors.New("a run is already active")

	// Stage markers used to classify item and run failures.
	ErrDiscovery   = errors.New("discovery error")
	ErrExtraction  = errors.New("extraction error")
	ErrScoring     = errors.New("scoring error")
	ErrPersistence = errors.New("persistence error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, entity, operation string, err error) error {
	detail := buildDetail(entity, operation)
	if marker == nil {
		marker = ErrScoring
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(entity, operation string) string {
	parts := make([]string, 0, 2)
	if entity = strings.TrimSpace(entity); entity != "" {
		parts = append(parts, entity)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
