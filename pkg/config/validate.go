package config

import (
	"fmt"
	"regexp"
)

// Validation codes.
const (
	CodeMissingRequired = "MISSING_REQUIRED"
	CodeParseError      = "PARSE_ERROR"
	CodeOutOfRange      = "OUT_OF_RANGE"
	CodeInvalidFormat   = "INVALID_FORMAT"
	CodeExceedsLength   = "EXCEEDS_LENGTH"
	CodePlaceholder     = "PLACEHOLDER_VALUE"
	CodePerformance     = "PERFORMANCE"
	CodeResourceUsage   = "RESOURCE_USAGE"
	CodePrivilegedPort  = "PRIVILEGED_PORT"
	CodePortConflict    = "PORT_CONFLICT"
	CodeInconsistent    = "INCONSISTENT"
)

// ValidationError is a hard validation failure. Errors block the update.
type ValidationError struct {
	Field   string
	Message string
	Code    string
	Value   any
}

// ValidationWarning is a soft, non-fatal finding. Warnings are logged but
// never affect validity.
type ValidationWarning struct {
	Field   string
	Message string
	Code    string
	Value   any
}

// Result is the outcome of a validation pass. Computed fresh on every call,
// never cached across configuration changes.
type Result struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// IsValid reports true iff there are zero errors.
func (r Result) IsValid() bool {
	return len(r.Errors) == 0
}

// ErrorMessages renders every error as "field: message" for user display.
func (r Result) ErrorMessages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return msgs
}

func (r *Result) addError(field, message, code string, value any) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Code: code, Value: value})
}

func (r *Result) addWarning(field, message, code string, value any) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: message, Code: code, Value: value})
}

// merge appends other's findings in order.
func (r *Result) merge(errs []ValidationError, warns []ValidationWarning) {
	r.Errors = append(r.Errors, errs...)
	r.Warnings = append(r.Warnings, warns...)
}

// tenantIDPattern is the allowed tenant identifier shape.
var tenantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// conflictPorts are well-known ports of sibling containers in the stack.
// Binding the proxy to one of these works until that sibling starts.
var conflictPorts = map[int]string{
	3000: "dashboard",
	5432: "postgres",
	8000: "api gateway",
	8443: "api gateway (tls)",
}

func validatePoolSize(name string, value any) ([]ValidationError, []ValidationWarning) {
	v, _ := value.(int)
	if v < 1 || v > 1000 {
		return []ValidationError{{
			Field:   name,
			Message: fmt.Sprintf("pool size must be between 1 and 1000, got %d", v),
			Code:    CodeOutOfRange,
			Value:   v,
		}}, nil
	}
	var warns []ValidationWarning
	if v < 5 {
		warns = append(warns, ValidationWarning{
			Field:   name,
			Message: fmt.Sprintf("pool size %d is very small and may hurt throughput", v),
			Code:    CodePerformance,
			Value:   v,
		})
	}
	if v > 200 {
		warns = append(warns, ValidationWarning{
			Field:   name,
			Message: fmt.Sprintf("pool size %d will hold many backend connections open", v),
			Code:    CodeResourceUsage,
			Value:   v,
		})
	}
	return nil, warns
}

func validateMaxClientConn(name string, value any) ([]ValidationError, []ValidationWarning) {
	v, _ := value.(int)
	if v < 1 || v > 10000 {
		return []ValidationError{{
			Field:   name,
			Message: fmt.Sprintf("max client connections must be between 1 and 10000, got %d", v),
			Code:    CodeOutOfRange,
			Value:   v,
		}}, nil
	}
	if v < 10 {
		return nil, []ValidationWarning{{
			Field:   name,
			Message: fmt.Sprintf("max client connections %d is very low", v),
			Code:    CodePerformance,
			Value:   v,
		}}
	}
	return nil, nil
}

func validatePort(name string, value any) ([]ValidationError, []ValidationWarning) {
	v, _ := value.(int)
	if v < 1 || v > 65535 {
		return []ValidationError{{
			Field:   name,
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", v),
			Code:    CodeOutOfRange,
			Value:   v,
		}}, nil
	}
	var warns []ValidationWarning
	if v < 1024 {
		warns = append(warns, ValidationWarning{
			Field:   name,
			Message: fmt.Sprintf("port %d is privileged and requires elevated container capabilities", v),
			Code:    CodePrivilegedPort,
			Value:   v,
		})
	}
	if svc, ok := conflictPorts[v]; ok {
		warns = append(warns, ValidationWarning{
			Field:   name,
			Message: fmt.Sprintf("port %d conflicts with the %s container", v, svc),
			Code:    CodePortConflict,
			Value:   v,
		})
	}
	return nil, warns
}

func validateTenantID(name string, value any) ([]ValidationError, []ValidationWarning) {
	v, _ := value.(string)
	if v == "" {
		return []ValidationError{{
			Field:   name,
			Message: "tenant id must not be empty",
			Code:    CodeInvalidFormat,
			Value:   v,
		}}, nil
	}
	if len(v) > 64 {
		return []ValidationError{{
			Field:   name,
			Message: fmt.Sprintf("tenant id exceeds 64 characters (%d)", len(v)),
			Code:    CodeExceedsLength,
			Value:   v,
		}}, nil
	}
	if !tenantIDPattern.MatchString(v) {
		return []ValidationError{{
			Field:   name,
			Message: "tenant id may only contain letters, digits, underscores, and hyphens",
			Code:    CodeInvalidFormat,
			Value:   v,
		}}, nil
	}
	if v == PlaceholderTenantID {
		return nil, []ValidationWarning{{
			Field:   name,
			Message: "tenant id is still the shipped placeholder value",
			Code:    CodePlaceholder,
			Value:   v,
		}}
	}
	return nil, nil
}

func validateDBPoolSize(name string, value any) ([]ValidationError, []ValidationWarning) {
	v, _ := value.(int)
	if v < 1 || v > 100 {
		return []ValidationError{{
			Field:   name,
			Message: fmt.Sprintf("database pool size must be between 1 and 100, got %d", v),
			Code:    CodeOutOfRange,
			Value:   v,
		}}, nil
	}
	if v < 2 {
		return nil, []ValidationWarning{{
			Field:   name,
			Message: fmt.Sprintf("database pool size %d leaves no headroom for concurrent metadata queries", v),
			Code:    CodePerformance,
			Value:   v,
		}}
	}
	return nil, nil
}

func validatePoolModeField(name string, value any) ([]ValidationError, []ValidationWarning) {
	v, _ := value.(string)
	if !ValidPoolMode(v) {
		return []ValidationError{{
			Field:   name,
			Message: fmt.Sprintf("pool mode must be one of session, transaction, statement; got %q", v),
			Code:    CodeInvalidFormat,
			Value:   v,
		}}, nil
	}
	return nil, nil
}

// crossValidate runs consistency checks spanning multiple fields. All
// findings are warnings: the configurations are legal, just suspicious.
func crossValidate(resolved Resolved, result *Result) {
	poolSize := resolved.Int(KeyPoolSize)
	maxClient := resolved.Int(KeyMaxClientConn)
	dbPool := resolved.Int(KeyDBPoolSize)

	if poolSize > 0 && maxClient > 0 {
		if maxClient < poolSize {
			result.addWarning(KeyMaxClientConn,
				fmt.Sprintf("max client connections (%d) is below pool size (%d); the configuration is backwards", maxClient, poolSize),
				CodeInconsistent, maxClient)
		}
		if maxClient > 50*poolSize {
			result.addWarning(KeyMaxClientConn,
				fmt.Sprintf("max client connections (%d) is more than 50x pool size (%d); clients will queue excessively", maxClient, poolSize),
				CodeInconsistent, maxClient)
		}
	}
	if dbPool > 0 && poolSize > 0 && dbPool > poolSize {
		result.addWarning(KeyDBPoolSize,
			fmt.Sprintf("database pool size (%d) exceeds the outer pool size (%d)", dbPool, poolSize),
			CodeInconsistent, dbPool)
	}
}
