package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Source is any string-keyed configuration source. Absence and empty
// string are both treated as "missing".
type Source interface {
	Get(key string) (string, bool)
}

// MapSource adapts a plain map to a Source.
type MapSource map[string]string

// Get implements Source.
func (m MapSource) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Parse applies the schema to a raw source, producing the typed resolved
// configuration and a validation result. For each entry: a missing required
// value without a default is an error; a missing value with a default uses
// the default (warning if the default is a flagged placeholder); a present
// value is type-converted and then run through the entry's validator. A
// cross-field consistency pass concludes. Warnings never affect validity.
func Parse(schema Schema, source Source) (Resolved, Result) {
	resolved := make(Resolved, len(schema))
	var result Result

	for _, entry := range schema {
		raw, present := source.Get(entry.Name)
		raw = strings.TrimSpace(raw)
		if raw == "" {
			present = false
		}

		if !present {
			if entry.HasDefault {
				raw = entry.Default
			} else if entry.Required {
				result.addError(entry.Name, "required value is missing", CodeMissingRequired, nil)
				continue
			} else {
				continue
			}
		}

		value, err := convert(entry.Type, raw)
		if err != nil {
			result.addError(entry.Name, err.Error(), CodeParseError, raw)
			continue
		}
		resolved[entry.Name] = value

		if entry.Validator != nil {
			errs, warns := entry.Validator(entry.Name, value)
			result.merge(errs, warns)
		}
	}

	crossValidate(resolved, &result)
	return resolved, result
}

// Validate runs the schema validators over an already-resolved
// configuration, including the cross-field pass.
func Validate(schema Schema, resolved Resolved) Result {
	var result Result
	for _, entry := range schema {
		value, ok := resolved[entry.Name]
		if !ok {
			if entry.Required && !entry.HasDefault {
				result.addError(entry.Name, "required value is missing", CodeMissingRequired, nil)
			}
			continue
		}
		if entry.Validator != nil {
			errs, warns := entry.Validator(entry.Name, value)
			result.merge(errs, warns)
		}
	}
	crossValidate(resolved, &result)
	return result
}

// convert parses raw into the entry's declared type. Numbers are integers;
// strings are already trimmed by the caller.
func convert(t ValueType, raw string) (any, error) {
	switch t {
	case TypeNumber:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q", raw)
		}
		return n, nil
	case TypeBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("expected a boolean, got %q", raw)
		}
		return b, nil
	default:
		return raw, nil
	}
}
