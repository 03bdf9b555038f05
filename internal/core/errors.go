package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for load failures. Wrapped errors keep these reachable
// through errors.Is.
var (
	// ErrReferenceParse is returned when the input yields no sheet ID.
	ErrReferenceParse = errors.New("could not extract a Google Sheet ID")

	// ErrEmptyDataset is returned when a strategy succeeded with zero columns.
	ErrEmptyDataset = errors.New("sheet was loaded but no columns were found; ensure the first row contains column headers")

	ErrPayloadNotRecognized = errors.New("GViz payload was not recognized")
	ErrPayloadParse         = errors.New("Could not parse GViz response")
	ErrNoTableData          = errors.New("GViz response had no table data")
)

// ReferenceParseError reports input that could not be resolved to a sheet.
type ReferenceParseError struct {
	Input string
}

func (e *ReferenceParseError) Error() string {
	return fmt.Sprintf("%s from %q", ErrReferenceParse.Error(), e.Input)
}

func (e *ReferenceParseError) Unwrap() error {
	return ErrReferenceParse
}

// RetrievalError is the failure of a single retrieval strategy.
type RetrievalError struct {
	Strategy string `json:"strategy"`
	Message  string `json:"message"`
}

func (e RetrievalError) Error() string {
	return e.Strategy + ": " + e.Message
}

// CompositeRetrievalError is returned when every strategy failed.
// Errors are in attempt order.
type CompositeRetrievalError struct {
	Errors []RetrievalError
}

func (e *CompositeRetrievalError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, re := range e.Errors {
		parts[i] = re.Error()
	}
	return strings.Join(parts, " | ")
}

// Strategies returns the labels of the attempted strategies in order.
func (e *CompositeRetrievalError) Strategies() []string {
	labels := make([]string, len(e.Errors))
	for i, re := range e.Errors {
		labels[i] = re.Strategy
	}
	return labels
}
