package model

import "strings"

// Priority orders tasks inside a view. The zero value is treated as PriorityNone.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

// Rank returns the sort rank of the priority: high 0, medium 1, low 2, anything else 3.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Normalize maps empty or unknown values to PriorityNone.
func (p Priority) Normalize() Priority {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p
	default:
		return PriorityNone
	}
}

// ParsePriority accepts the canonical names plus the short forms h, m, l and !, !!, !!!.
func ParsePriority(raw string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "h", "!!!":
		return PriorityHigh, true
	case "medium", "med", "m", "!!":
		return PriorityMedium, true
	case "low", "l", "!":
		return PriorityLow, true
	case "none", "", "-":
		return PriorityNone, true
	default:
		return PriorityNone, false
	}
}
