package filtering

import (
	"context"
	"strings"

	"github.com/Abhay650/RakshaNeeti/internal/income"
	"github.com/Abhay650/RakshaNeeti/internal/schemes"
)

type scopeFilter struct {
	state           string
	includeNational bool
}

// NewScope creates a filter that keeps schemes of the given state. National
// schemes are kept only when includeNational is set, whatever the state.
func NewScope(state string, includeNational bool) Filter {
	return &scopeFilter{state: strings.TrimSpace(state), includeNational: includeNational}
}

func (f *scopeFilter) Name() string { return "scope" }

func (f *scopeFilter) IsEnabled() bool { return true }

func (f *scopeFilter) Apply(_ context.Context, s *schemes.Schemes) (*schemes.Schemes, Step, error) {
	out := s.Filter(func(sc *schemes.Scheme) bool {
		if sc.IsNational() {
			return f.includeNational
		}
		return f.state != "" && sc.InState(f.state)
	})
	return out, newStep(s.Len(), out.Len()), nil
}

type incomeFilter struct {
	level income.Level
}

// NewIncome creates a filter that keeps schemes for the given income level
// and schemes open to all income levels.
func NewIncome(level income.Level) Filter {
	return &incomeFilter{level: level}
}

func (f *incomeFilter) Name() string { return "income" }

func (f *incomeFilter) IsEnabled() bool { return true }

func (f *incomeFilter) Apply(_ context.Context, s *schemes.Schemes) (*schemes.Schemes, Step, error) {
	out := s.Filter(func(sc *schemes.Scheme) bool {
		return sc.IncomeLevel == f.level || sc.IncomeLevel == income.All
	})
	return out, newStep(s.Len(), out.Len()), nil
}

type eligibilityTextFilter struct {
	text string
}

// NewEligibilityText creates a filter that keeps schemes whose eligibility
// contains text, ignoring case. It is disabled for blank text.
func NewEligibilityText(text string) Filter {
	return &eligibilityTextFilter{text: strings.ToLower(strings.TrimSpace(text))}
}

func (f *eligibilityTextFilter) Name() string { return "eligibility_text" }

func (f *eligibilityTextFilter) IsEnabled() bool { return f.text != "" }

func (f *eligibilityTextFilter) Apply(_ context.Context, s *schemes.Schemes) (*schemes.Schemes, Step, error) {
	out := s.Filter(func(sc *schemes.Scheme) bool {
		return strings.Contains(strings.ToLower(sc.Eligibility), f.text)
	})
	return out, newStep(s.Len(), out.Len()), nil
}
