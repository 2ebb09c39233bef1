package recommend

import (
	"fmt"
	"strings"

	"github.com/Abhay650/RakshaNeeti/internal/income"
	"github.com/Abhay650/RakshaNeeti/internal/schemes"
)

type Strategy string

const (
	// StrategyFilter matches scope and income level directly.
	StrategyFilter Strategy = "filter"
	// StrategyLookup asks the decision tree fitted on the dataset.
	StrategyLookup Strategy = "lookup"
	// StrategyText searches the raw eligibility text within the state.
	StrategyText Strategy = "text"
)

var Strategies = []Strategy{StrategyFilter, StrategyLookup, StrategyText}

// ParseStrategy parses a strategy name case-insensitively. Empty means
// StrategyFilter.
func ParseStrategy(s string) (Strategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StrategyFilter, nil
	}
	for _, strategy := range Strategies {
		if string(strategy) == s {
			return strategy, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q (expected one of filter, lookup, text)", s)
}

// Query is a single recommendation request.
type Query struct {
	State       string       `json:"state"`
	IncomeLevel income.Level `json:"income_level"`
	Text        string       `json:"text,omitempty"`
}

// NewQuery classifies text into an income level.
func NewQuery(state, text string) Query {
	return Query{
		State:       strings.TrimSpace(state),
		IncomeLevel: income.Classify(text),
		Text:        strings.TrimSpace(text),
	}
}

type Match struct {
	Scheme *schemes.Scheme `json:"scheme"`
	// Confidence is the share of training rows agreeing with a lookup
	// prediction. Filter matches are 1, approximate ones 0.
	Confidence float64 `json:"confidence"`
	// Approximate marks matches that do not satisfy every query criterion.
	Approximate bool `json:"approximate"`
}

type Result struct {
	Query    Query    `json:"query"`
	Strategy Strategy `json:"strategy"`
	Matches  []Match  `json:"matches"`
	// Fallback explains why Strategy differs from the requested one.
	Fallback string `json:"fallback,omitempty"`
}

// Best returns the first match or nil.
func (r *Result) Best() *Match {
	if r == nil || len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

func (r *Result) Empty() bool {
	return r == nil || len(r.Matches) == 0
}

// Approximate reports whether the result holds only approximate matches.
func (r *Result) Approximate() bool {
	if r.Empty() {
		return false
	}
	for _, m := range r.Matches {
		if !m.Approximate {
			return false
		}
	}
	return true
}

// Schemes returns the matched schemes as a collection.
func (r *Result) Schemes() *schemes.Schemes {
	out := &schemes.Schemes{Items: make([]*schemes.Scheme, 0)}
	if r == nil {
		return out
	}
	for _, m := range r.Matches {
		out.Items = append(out.Items, m.Scheme)
	}
	return out
}

func matches(s *schemes.Schemes, approximate bool) []Match {
	out := make([]Match, 0, s.Len())
	confidence := 1.0
	if approximate {
		confidence = 0
	}
	for _, sc := range s.Items {
		out = append(out, Match{Scheme: sc, Confidence: confidence, Approximate: approximate})
	}
	return out
}
