package enums

import "fmt"

// LetterStatus is the generation state of a letter.
type LetterStatus string

const (
	LetterStatusDraft      LetterStatus = "draft"
	LetterStatusGenerating LetterStatus = "generating"
	LetterStatusCompleted  LetterStatus = "completed"
	LetterStatusFailed     LetterStatus = "failed"
)

var validLetterStatuses = []LetterStatus{
	LetterStatusDraft,
	LetterStatusGenerating,
	LetterStatusCompleted,
	LetterStatusFailed,
}

// letterTransitions lists the only legal forward moves.
var letterTransitions = map[LetterStatus][]LetterStatus{
	LetterStatusDraft:      {LetterStatusGenerating},
	LetterStatusGenerating: {LetterStatusCompleted, LetterStatusFailed},
}

// String implements fmt.Stringer.
func (s LetterStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s LetterStatus) IsValid() bool {
	for _, candidate := range validLetterStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s LetterStatus) CanTransitionTo(next LetterStatus) bool {
	for _, candidate := range letterTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseLetterStatus converts raw input into a LetterStatus.
func ParseLetterStatus(value string) (LetterStatus, error) {
	for _, candidate := range validLetterStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid letter status %q", value)
}

// UrgencyLevel influences the tone requested from the drafting model.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyStandard UrgencyLevel = "standard"
	UrgencyUrgent   UrgencyLevel = "urgent"
)

var validUrgencyLevels = []UrgencyLevel{
	UrgencyLow,
	UrgencyStandard,
	UrgencyUrgent,
}

func (u UrgencyLevel) String() string {
	return string(u)
}

// IsValid reports whether the value is known.
func (u UrgencyLevel) IsValid() bool {
	for _, candidate := range validUrgencyLevels {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUrgencyLevel converts raw input into an UrgencyLevel.
func ParseUrgencyLevel(value string) (UrgencyLevel, error) {
	for _, candidate := range validUrgencyLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid urgency level %q", value)
}
