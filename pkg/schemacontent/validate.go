package schemacontent

import (
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"
)

// validateData checks a full data mapping against the blueprint's field
// definitions. Every violation is collected; the caller wraps a non-empty
// result into a single ValidationError so callers see all problems at once.
func validateData(blueprint *Blueprint, data map[string]interface{}) []FieldViolation {
	var violations []FieldViolation

	// Unknown keys: data keys must be a subset of the blueprint's field keys.
	for key := range data {
		if _, ok := blueprint.FieldByKey(key); !ok {
			violations = append(violations, FieldViolation{
				Key:     key,
				Message: "no such field in blueprint",
			})
		}
	}

	for _, field := range blueprint.Fields {
		value, present := data[field.Key]
		if !present || value == nil {
			if field.Required {
				violations = append(violations, FieldViolation{
					Key:     field.Key,
					Message: "required field is missing",
				})
			}
			continue
		}
		violations = append(violations, validateFieldValue(field, value)...)
	}

	return violations
}

func validateFieldValue(field FieldDefinition, value interface{}) []FieldViolation {
	var violations []FieldViolation

	fail := func(format string, args ...interface{}) {
		violations = append(violations, FieldViolation{
			Key:     field.Key,
			Message: fmt.Sprintf(format, args...),
		})
	}

	switch field.Type {
	case FieldTypeText, FieldTypeRichText:
		s, ok := value.(string)
		if !ok {
			fail("expected string, got %T", value)
			break
		}
		violations = append(violations, validateStringRules(field, s)...)

	case FieldTypeNumber:
		n, ok := asFloat(value)
		if !ok {
			fail("expected number, got %T", value)
			break
		}
		if v := field.Validation; v != nil {
			if v.Min != nil && n < *v.Min {
				fail("must be at least %v", *v.Min)
			}
			if v.Max != nil && n > *v.Max {
				fail("must be at most %v", *v.Max)
			}
		}

	case FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			fail("expected boolean, got %T", value)
		}

	case FieldTypeDate:
		switch d := value.(type) {
		case time.Time:
		case string:
			if _, err := time.Parse(time.RFC3339, d); err != nil {
				fail("expected RFC 3339 date string: %v", err)
			}
		default:
			fail("expected date, got %T", value)
		}

	case FieldTypeSelect:
		s, ok := value.(string)
		if !ok {
			fail("expected string option, got %T", value)
			break
		}
		if v := field.Validation; v != nil && len(v.Options) > 0 && !contains(v.Options, s) {
			fail("value %q is not among allowed options", s)
		}

	case FieldTypeJSON:
		// Any JSON-representable value is accepted.

	case FieldTypeRelation:
		// Relation values are content IDs; referential integrity is the
		// persistence layer's concern.
		if _, ok := value.(string); !ok {
			fail("expected content id string, got %T", value)
		}

	default:
		fail("unknown field type %q", field.Type)
	}

	return violations
}

func validateStringRules(field FieldDefinition, s string) []FieldViolation {
	v := field.Validation
	if v == nil {
		return nil
	}

	var violations []FieldViolation
	fail := func(format string, args ...interface{}) {
		violations = append(violations, FieldViolation{
			Key:     field.Key,
			Message: fmt.Sprintf(format, args...),
		})
	}

	length := utf8.RuneCountInString(s)
	if v.MinLength != nil && length < *v.MinLength {
		fail("must be at least %d characters", *v.MinLength)
	}
	if v.MaxLength != nil && length > *v.MaxLength {
		fail("must be at most %d characters", *v.MaxLength)
	}
	if v.Pattern != "" {
		re, err := regexp.Compile(v.Pattern)
		if err != nil {
			fail("invalid validation pattern: %v", err)
		} else if !re.MatchString(s) {
			fail("does not match pattern %q", v.Pattern)
		}
	}
	return violations
}

// asFloat widens the numeric types JSON decoding and direct callers
// produce.
func asFloat(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func contains(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}

// validateBlueprint checks structural rules on a blueprint definition:
// non-empty name, at least the key and type on every field, and field key
// uniqueness.
func validateBlueprint(blueprint *Blueprint) []FieldViolation {
	var violations []FieldViolation

	if blueprint.Name == "" {
		violations = append(violations, FieldViolation{Key: "name", Message: "blueprint name is required"})
	}

	seen := make(map[string]bool, len(blueprint.Fields))
	for i, field := range blueprint.Fields {
		if field.Key == "" {
			violations = append(violations, FieldViolation{
				Key:     fmt.Sprintf("fields[%d]", i),
				Message: "field key is required",
			})
			continue
		}
		if seen[field.Key] {
			violations = append(violations, FieldViolation{
				Key:     field.Key,
				Message: "duplicate field key",
			})
		}
		seen[field.Key] = true
		if field.Type == "" {
			violations = append(violations, FieldViolation{
				Key:     field.Key,
				Message: "field type is required",
			})
		}
	}

	return violations
}
