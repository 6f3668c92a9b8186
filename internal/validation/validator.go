// =============================================================================
// INTERLIS Enum Extractor - Catalog Validation
// =============================================================================
//
// This module checks an extracted catalog before it is rendered. The
// extractor does not rewrite names, so anything the output formats cannot
// carry is reported here instead.
//
// RULES:
//   tag-name       warning  enum<N>_<Name> is not a valid XML element name
//   duplicate-key  warning  two types share a path (json/yaml keys collide)
//   id-sequence    error    value ids of a type are not 0..k-1
//   label          error    a value's label differs from its code
//
// Warnings become errors with TreatWarningsAsErrors.
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ginjaninja78/interlis-enums/internal/types"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rule names.
const (
	RuleTagName      = "tag-name"
	RuleDuplicateKey = "duplicate-key"
	RuleIDSequence   = "id-sequence"
	RuleLabel        = "label"
)

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Rule is the rule that was violated.
	Rule string

	// TypePath is the path of the enumeration type concerned.
	TypePath string

	// RootTID is the TID of the root node of that type.
	RootTID string

	// Value is the offending value (tag name, code, id).
	Value string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s, type '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.Rule,
		e.TypePath,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no errors.
	IsValid bool

	// Errors contains all findings, warnings included.
	Errors []*ValidationError

	// ErrorCount is the number of errors.
	ErrorCount int

	// WarningCount is the number of warnings.
	WarningCount int

	// TypesValidated is the number of enumeration types checked.
	TypesValidated int

	// ValuesValidated is the number of values checked.
	ValuesValidated int
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors reports every warning as an error.
	TreatWarningsAsErrors bool

	// SkipTagNameCheck disables the tag-name rule, e.g. when GML is not
	// produced.
	SkipTagNameCheck bool
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{}
}

// Validator checks catalogs.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a Validator with default options.
func NewValidator() *Validator {
	return &Validator{options: DefaultValidationOptions()}
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// Validate checks every type and value of the catalog.
func (v *Validator) Validate(catalog *types.Catalog) *ValidationResult {
	result := &ValidationResult{IsValid: true}
	if catalog == nil {
		return result
	}

	seenPaths := make(map[string]string, len(catalog.Types))

	for _, t := range catalog.Types {
		result.TypesValidated++

		if !v.options.SkipTagNameCheck && !IsXMLName(t.TagName()) {
			v.add(result, SeverityWarning, RuleTagName, t, t.TagName(),
				"type name is not a valid XML element name")
		}

		if first, exists := seenPaths[t.Path]; exists {
			v.add(result, SeverityWarning, RuleDuplicateKey, t, t.Path,
				fmt.Sprintf("path already declared by root %q", first))
		} else {
			seenPaths[t.Path] = t.RootTID
		}

		for i, value := range t.Values {
			result.ValuesValidated++

			if value.ID != i {
				v.add(result, SeverityError, RuleIDSequence, t, fmt.Sprintf("%d", value.ID),
					fmt.Sprintf("expected id %d", i))
			}
			if value.Label != value.Code {
				v.add(result, SeverityError, RuleLabel, t, value.Label,
					fmt.Sprintf("label differs from code %q", value.Code))
			}
		}
	}

	return result
}

// add records one finding, applying the warning promotion option.
func (v *Validator) add(result *ValidationResult, severity, rule string, t types.EnumType, value, message string) {
	if severity == SeverityWarning && v.options.TreatWarningsAsErrors {
		severity = SeverityError
	}

	result.Errors = append(result.Errors, &ValidationError{
		Severity: severity,
		Rule:     rule,
		TypePath: t.Path,
		RootTID:  t.RootTID,
		Value:    value,
		Message:  message,
	})

	if severity == SeverityError {
		result.ErrorCount++
		result.IsValid = false
	} else {
		result.WarningCount++
	}
}

// =============================================================================
// XML NAME CHECK
// =============================================================================

// IsXMLName reports whether s matches the XML 1.0 Name production closely
// enough for element tags. Colons are rejected because the name would be
// read as a namespace prefix.
func IsXMLName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !isNameStartChar(r) {
				return false
			}
			continue
		}
		if !isNameChar(r) {
			return false
		}
	}
	return true
}

func isNameStartChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	switch {
	case isNameStartChar(r), unicode.IsDigit(r):
		return true
	case r == '-', r == '.', r == '·':
		return true
	case unicode.Is(unicode.Mn, r), unicode.Is(unicode.Mc, r):
		return true
	}
	return false
}
