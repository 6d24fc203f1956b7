package operators

import (
	"errors"
	"fmt"
)

// Error represents a failure while lowering one exchange-format node.
//
// An Error aborts the enclosing model import, with one exception: the
// importer's lenient mode converts CodeNoTranslator failures into opaque
// placeholder values and keeps going.
type Error struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Node describes the offending source node for diagnostics.
	Node string

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes translation failures.
type ErrorCode string

const (
	// CodeUnsupportedType indicates an input element type outside the
	// operator's supported set.
	CodeUnsupportedType ErrorCode = "unsupported_type"

	// CodeAxesRankTooLarge indicates more reduction axes than the input
	// tensor's statically known rank.
	CodeAxesRankTooLarge ErrorCode = "axes_rank_too_large"

	// CodeNonStaticAxesShape indicates an axes tensor whose shape is not
	// statically known, so the subgraph shape cannot be fixed.
	CodeNonStaticAxesShape ErrorCode = "non_static_axes_shape"

	// CodeAttributeTypeMismatch indicates an attribute stored with a payload
	// type different from the one requested.
	CodeAttributeTypeMismatch ErrorCode = "attribute_type_mismatch"

	// CodeNoTranslator indicates no registered translator covers the
	// (operator, opset version) pair.
	CodeNoTranslator ErrorCode = "no_translator"

	// CodeMissingInput indicates a required input slot was absent or empty.
	CodeMissingInput ErrorCode = "missing_input"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Node, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the code of the first *Error in err's chain, or "" when the
// chain holds none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
