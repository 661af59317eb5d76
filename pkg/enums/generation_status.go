package enums

import "fmt"

// GenerationStatus describes the lifecycle of one document inside a batch.
type GenerationStatus string

const (
	GenerationStatusPending    GenerationStatus = "pending"
	GenerationStatusGenerating GenerationStatus = "generating"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
)

var validGenerationStatuses = []GenerationStatus{
	GenerationStatusPending,
	GenerationStatusGenerating,
	GenerationStatusCompleted,
	GenerationStatusFailed,
}

// String returns the literal string for the status.
func (g GenerationStatus) String() string {
	return string(g)
}

// IsValid reports whether the status is known.
func (g GenerationStatus) IsValid() bool {
	for _, candidate := range validGenerationStatuses {
		if candidate == g {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status can no longer change within a batch.
func (g GenerationStatus) IsTerminal() bool {
	return g == GenerationStatusCompleted || g == GenerationStatusFailed
}

// CanTransitionTo enforces pending -> generating -> completed|failed.
// A batch may also fail a document that never left pending.
func (g GenerationStatus) CanTransitionTo(next GenerationStatus) bool {
	switch g {
	case GenerationStatusPending:
		return next == GenerationStatusGenerating || next == GenerationStatusFailed
	case GenerationStatusGenerating:
		return next == GenerationStatusCompleted || next == GenerationStatusFailed
	}
	return false
}

// ParseGenerationStatus converts raw input into a GenerationStatus.
func ParseGenerationStatus(value string) (GenerationStatus, error) {
	for _, candidate := range validGenerationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid generation status %q", value)
}
