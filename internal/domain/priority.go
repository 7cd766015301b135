package domain

import (
	"fmt"
	"strings"
)

// Priority is the canonical, stored priority of a todo.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

var priorityLabels = map[Priority]string{
	PriorityLow:    "BAS",
	PriorityMedium: "MOYEN",
	PriorityHigh:   "HAUT",
}

// Priorities returns the canonical values from lowest to highest rank.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

// Valid reports whether p is one of the canonical values.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities, LOW=1 < MEDIUM=2 < HIGH=3. Unknown values rank 0.
func (p Priority) Rank() int {
	for i, candidate := range Priorities() {
		if p == candidate {
			return i + 1
		}
	}
	return 0
}

// Label is the display label shown to users. It is never stored.
func (p Priority) Label() string {
	if label, ok := priorityLabels[p]; ok {
		return label
	}
	return string(p)
}

// ParsePriorityLabel accepts a canonical value or a display label, in any
// case, and returns the canonical value.
func ParsePriorityLabel(s string) (Priority, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	if p := Priority(normalized); p.Valid() {
		return p, nil
	}
	for p, label := range priorityLabels {
		if label == normalized {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q", s)
}
