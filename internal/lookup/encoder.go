package lookup

import (
	"fmt"
	"sort"
)

// UnknownCategoryError is returned when a value was not seen while fitting
// an encoder. Callers are expected to fall back to another strategy.
type UnknownCategoryError struct {
	Feature string
	Value   string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown %s %q: not present in the training data", e.Feature, e.Value)
}

// LabelEncoder assigns integer codes to the sorted unique values it was
// fitted on. Codes never change after Fit.
type LabelEncoder struct {
	feature string
	classes []string
	codes   map[string]int
}

// FitEncoder builds an encoder for the given feature values.
func FitEncoder(feature string, values []string) *LabelEncoder {
	codes := make(map[string]int)
	classes := make([]string, 0)
	for _, v := range values {
		if _, ok := codes[v]; ok {
			continue
		}
		codes[v] = 0
		classes = append(classes, v)
	}
	sort.Strings(classes)
	for i, c := range classes {
		codes[c] = i
	}
	return &LabelEncoder{feature: feature, classes: classes, codes: codes}
}

// Transform returns the code of value.
func (e *LabelEncoder) Transform(value string) (int, error) {
	code, ok := e.codes[value]
	if !ok {
		return 0, &UnknownCategoryError{Feature: e.feature, Value: value}
	}
	return code, nil
}

// Inverse returns the value encoded as code.
func (e *LabelEncoder) Inverse(code int) (string, error) {
	if code < 0 || code >= len(e.classes) {
		return "", fmt.Errorf("%s code %d out of range [0, %d)", e.feature, code, len(e.classes))
	}
	return e.classes[code], nil
}

// Classes returns a copy of the fitted values in code order.
func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

func (e *LabelEncoder) Len() int { return len(e.classes) }
