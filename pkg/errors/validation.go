package errors

import (
	"math"
	"strings"
	"unicode"
)

// maxNameLength bounds layer, chain and constraint names.
const maxNameLength = 256

// ValidateName validates a layer or chain name.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No leading or trailing whitespace
//   - Maximum length of 256 characters
func ValidateName(kind, name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "%s name cannot be empty", kind)
	}

	if len(name) > maxNameLength {
		return New(ErrCodeInvalidInput, "%s name too long (max %d characters)", kind, maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s name contains invalid control characters", kind)
		}
	}

	if strings.TrimSpace(name) != name {
		return New(ErrCodeInvalidInput, "%s name %q has surrounding whitespace", kind, name)
	}

	return nil
}

// ValidateShape checks that m is a rows×cols rectangle.
// A nil or empty matrix only matches a 0-row shape.
func ValidateShape(what string, m [][]float64, rows, cols int) error {
	if len(m) != rows {
		return Dimension(what+" rows", rows, len(m))
	}
	for _, row := range m {
		if len(row) != cols {
			return Dimension(what+" columns", cols, len(row))
		}
	}
	return nil
}

// ValidateMatrix checks that every cell of m is usable as a cost or distance.
// NaN and -Inf are rejected; +Inf is allowed when allowInf is set (it marks
// a forbidden arc in cost matrices).
func ValidateMatrix(what string, m [][]float64, allowInf bool) error {
	for i, row := range m {
		for j, v := range row {
			switch {
			case math.IsNaN(v):
				return New(ErrCodeInvalidInput, "%s[%d][%d] is NaN", what, i, j)
			case math.IsInf(v, -1):
				return New(ErrCodeInvalidInput, "%s[%d][%d] is -Inf", what, i, j)
			case math.IsInf(v, 1) && !allowInf:
				return New(ErrCodeInvalidInput, "%s[%d][%d] must be finite", what, i, j)
			}
		}
	}
	return nil
}
