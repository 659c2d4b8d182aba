// Package errors holds the sentinel errors shared by the quotation packages.
// Callers wrap them with fmt.Errorf("%w: ...") and match with errors.Is.
package errors

import (
	"fmt"
)

var (
	// ErrValidation marks bad or missing input that the caller can fix.
	ErrValidation = fmt.Errorf("validation error")
	// ErrNotFound marks an unknown id reference.
	ErrNotFound = fmt.Errorf("not found")
	// ErrConfiguration marks operator-fixable configuration, such as a malformed ref_format.
	ErrConfiguration = fmt.Errorf("configuration error")
	// ErrConflict marks a reference number collision or a lost counter update.
	ErrConflict = fmt.Errorf("conflict")
	// ErrRender marks a document assembly failure.
	ErrRender = fmt.Errorf("render error")
)
