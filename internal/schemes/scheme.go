package schemes

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Abhay650/RakshaNeeti/internal/income"
)

// National is the scope value of schemes available in every state.
const National = "National"

type Schemes struct {
	Items []*Scheme
}

type Scheme struct {
	Name        string       `json:"name"`
	Eligibility string       `json:"eligibility"`
	Scope       string       `json:"scope"`
	Description string       `json:"description,omitempty"`
	IncomeLevel income.Level `json:"income_level"`
	// Columns holds the dataset columns that are not part of the scheme
	// itself, keyed by lower-cased header (e.g. a "hindi" translation column).
	Columns map[string]string `json:"columns,omitempty"`
}

// IsNational reports whether the scheme applies regardless of state.
func (s *Scheme) IsNational() bool {
	return strings.EqualFold(s.Scope, National)
}

// InState reports whether the scheme is scoped to the given state.
func (s *Scheme) InState(state string) bool {
	return strings.EqualFold(strings.TrimSpace(s.Scope), strings.TrimSpace(state))
}

// Translation returns a pre-translated eligibility text shipped with the dataset.
func (s *Scheme) Translation(language string) (string, bool) {
	if len(s.Columns) == 0 {
		return "", false
	}
	text, ok := s.Columns[strings.ToLower(strings.TrimSpace(language))]
	if !ok || strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

func (s *Schemes) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Items)
}

func (s *Schemes) FindByName(name string) *Scheme {
	for _, scheme := range s.Items {
		if scheme.Name == name {
			return scheme
		}
	}
	return nil
}

// Filter returns a new collection with the schemes accepted by keep.
// The receiver is never modified.
func (s *Schemes) Filter(keep func(*Scheme) bool) *Schemes {
	out := &Schemes{Items: make([]*Scheme, 0, s.Len())}
	if s == nil {
		return out
	}
	for _, scheme := range s.Items {
		if keep(scheme) {
			out.Items = append(out.Items, scheme)
		}
	}
	return out
}

// States returns the sorted unique scope values, National included.
func (s *Schemes) States() []string {
	seen := make(map[string]struct{})
	states := make([]string, 0)
	for _, scheme := range s.Items {
		if _, ok := seen[scheme.Scope]; ok {
			continue
		}
		seen[scheme.Scope] = struct{}{}
		states = append(states, scheme.Scope)
	}
	sort.Strings(states)
	return states
}

func (s *Schemes) Names() []string {
	names := make([]string, 0, s.Len())
	for _, scheme := range s.Items {
		names = append(names, scheme.Name)
	}
	return names
}

// CountByLevel returns how many schemes fall into every income level.
func (s *Schemes) CountByLevel() map[income.Level]int {
	counts := make(map[income.Level]int, len(income.Levels))
	for _, scheme := range s.Items {
		counts[scheme.IncomeLevel]++
	}
	return counts
}

// ReportByScope groups a short summary of every scheme under its scope.
func (s *Schemes) ReportByScope() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, scheme := range s.Items {
		entry := map[string]string{
			"name":         scheme.Name,
			"income_level": scheme.IncomeLevel.String(),
			"eligibility":  scheme.Eligibility,
		}
		if scheme.Description != "" {
			entry["description"] = scheme.Description
		}
		report[scheme.Scope] = append(report[scheme.Scope], entry)
	}
	return report
}

func (s *Schemes) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "schemes_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("encode schemes: %w", err)
	}
	return file.Name(), nil
}
