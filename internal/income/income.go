// Package income maps free-form eligibility text to an income category.
//
// Every adapter (CLI, HTTP, dataset loader) goes through Classify so the
// keyword rules live in exactly one place.
package income

import (
	"fmt"
	"strings"
)

// Level is the income category derived from eligibility text.
type Level string

const (
	Low     Level = "Low"
	Middle  Level = "Middle"
	All     Level = "All"
	Unknown Level = "Unknown"
)

// Levels lists every category in priority order.
var Levels = []Level{Low, Middle, All, Unknown}

type tier struct {
	level    Level
	keywords []string
}

// Tiers are evaluated top to bottom, the first tier with a matching keyword wins.
var tiers = []tier{
	{level: Low, keywords: []string{"bpl", "low-income", "low income", "< ₹21,000", "below poverty line", "ews"}},
	{level: Middle, keywords: []string{"middle", "senior citizen", "pensioner"}},
	{level: All, keywords: []string{"all", "any"}},
}

// Classify returns the income level described by text.
func Classify(text string) Level {
	if strings.TrimSpace(text) == "" {
		return Unknown
	}

	lower := strings.ToLower(text)
	for _, t := range tiers {
		for _, kw := range t.keywords {
			if strings.Contains(lower, kw) {
				return t.level
			}
		}
	}

	return Unknown
}

// ParseLevel parses a user selected level, ignoring case and surrounding spaces.
func ParseLevel(s string) (Level, error) {
	trimmed := strings.TrimSpace(s)
	for _, l := range Levels {
		if strings.EqualFold(trimmed, string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown income level %q (expected one of %s)", s, strings.Join(Strings(), ", "))
}

// Strings returns the level names, useful for prompts and help texts.
func Strings() []string {
	out := make([]string, 0, len(Levels))
	for _, l := range Levels {
		out = append(out, string(l))
	}
	return out
}

func (l Level) String() string { return string(l) }
