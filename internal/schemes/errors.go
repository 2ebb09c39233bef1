package schemes

import (
	"fmt"
	"strings"
)

// DataFormatError is returned when the dataset lacks a required column.
type DataFormatError struct {
	Column    string
	Available []string
}

func (e *DataFormatError) Error() string {
	return fmt.Sprintf("dataset has no %q column (available columns: %s)", e.Column, strings.Join(e.Available, ", "))
}

// EmptyDatasetError is returned when no usable scheme rows remain.
type EmptyDatasetError struct {
	Skipped int
}

func (e *EmptyDatasetError) Error() string {
	if e.Skipped > 0 {
		return fmt.Sprintf("dataset contains no usable schemes (%d rows skipped)", e.Skipped)
	}
	return "dataset contains no schemes"
}
