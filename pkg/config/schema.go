package config

import "fmt"

// Environment variable names owned by Poolkeeper. The schema below is the
// authoritative contract for what configuration exists.
const (
	KeyPoolSize      = "POOLER_DEFAULT_POOL_SIZE"
	KeyMaxClientConn = "POOLER_MAX_CLIENT_CONN"
	KeyProxyPort     = "POOLER_PROXY_PORT_TRANSACTION"
	KeyTenantID      = "POOLER_TENANT_ID"
	KeyDBPoolSize    = "POOLER_DB_POOL_SIZE"
	KeyPoolMode      = "POOLER_POOL_MODE"
	KeyVersion       = "POOLER_VERSION"
	KeyClusterAlias  = "POOLER_CLUSTER_ALIAS"
)

// PlaceholderTenantID is the tenant id shipped in the default env file.
// Leaving it in place is legal but almost always a mistake.
const PlaceholderTenantID = "your-tenant-id"

// ValueType is the declared type of a schema entry.
type ValueType string

const (
	TypeString  ValueType = "string"
	TypeNumber  ValueType = "number"
	TypeBoolean ValueType = "boolean"
)

// PoolMode is the connection-pooling strategy.
type PoolMode string

const (
	PoolModeSession     PoolMode = "session"
	PoolModeTransaction PoolMode = "transaction"
	PoolModeStatement   PoolMode = "statement"
)

// ValidPoolMode reports whether s names a known pool mode.
func ValidPoolMode(s string) bool {
	switch PoolMode(s) {
	case PoolModeSession, PoolModeTransaction, PoolModeStatement:
		return true
	}
	return false
}

// FieldValidator checks a successfully-parsed value and returns hard errors
// (block the update) and soft warnings (logged, non-blocking).
type FieldValidator func(name string, value any) ([]ValidationError, []ValidationWarning)

// SchemaEntry declares one tunable: its type, requiredness, default, and
// validator. Entries are static and defined once.
type SchemaEntry struct {
	Name        string
	Type        ValueType
	Required    bool
	Default     string
	HasDefault  bool
	Validator   FieldValidator
	Description string
}

// Schema is the ordered collection of entries.
type Schema []SchemaEntry

// Entry looks up an entry by name.
func (s Schema) Entry(name string) (SchemaEntry, bool) {
	for _, e := range s {
		if e.Name == name {
			return e, true
		}
	}
	return SchemaEntry{}, false
}

// DefaultSchema returns the pooler tunables schema.
func DefaultSchema() Schema {
	return Schema{
		{
			Name:        KeyPoolSize,
			Type:        TypeNumber,
			Required:    true,
			Default:     "20",
			HasDefault:  true,
			Validator:   validatePoolSize,
			Description: "Default per-tenant pool size for backend connections",
		},
		{
			Name:        KeyMaxClientConn,
			Type:        TypeNumber,
			Required:    true,
			Default:     "100",
			HasDefault:  true,
			Validator:   validateMaxClientConn,
			Description: "Maximum simultaneous client connections the pooler accepts",
		},
		{
			Name:        KeyProxyPort,
			Type:        TypeNumber,
			Required:    true,
			Default:     "6543",
			HasDefault:  true,
			Validator:   validatePort,
			Description: "Port the transaction-mode proxy listens on",
		},
		{
			Name:        KeyTenantID,
			Type:        TypeString,
			Required:    true,
			Default:     PlaceholderTenantID,
			HasDefault:  true,
			Validator:   validateTenantID,
			Description: "Tenant identifier partitioning the pooler's configuration namespace",
		},
		{
			Name:        KeyDBPoolSize,
			Type:        TypeNumber,
			Required:    true,
			Default:     "5",
			HasDefault:  true,
			Validator:   validateDBPoolSize,
			Description: "Pool size for the pooler's own metadata database connections",
		},
		{
			Name:        KeyPoolMode,
			Type:        TypeString,
			Required:    false,
			Default:     string(PoolModeTransaction),
			HasDefault:  true,
			Validator:   validatePoolModeField,
			Description: "Pooling strategy: session, transaction, or statement",
		},
		{
			Name:        KeyVersion,
			Type:        TypeString,
			Required:    false,
			Description: "Pooler image version, informational only",
		},
		{
			Name:        KeyClusterAlias,
			Type:        TypeString,
			Required:    false,
			Description: "Optional cluster alias used in connection strings",
		},
	}
}

// Resolved maps schema names to typed values produced by Parse. Numeric
// entries are ints, booleans are bools, strings are trimmed strings.
type Resolved map[string]any

// Int returns the named value as an int, or 0 when absent.
func (r Resolved) Int(name string) int {
	if v, ok := r[name].(int); ok {
		return v
	}
	return 0
}

// String returns the named value as a string, or "" when absent.
func (r Resolved) String(name string) string {
	if v, ok := r[name].(string); ok {
		return v
	}
	return ""
}

// Bool returns the named value as a bool, or false when absent.
func (r Resolved) Bool(name string) bool {
	if v, ok := r[name].(bool); ok {
		return v
	}
	return false
}

// Clone returns a shallow copy. Values are ints, strings, and bools, so a
// shallow copy is a full snapshot.
func (r Resolved) Clone() Resolved {
	out := make(Resolved, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Raw renders every value back to its string form, suitable for writing to
// the env file.
func (r Resolved) Raw() map[string]string {
	out := make(map[string]string, len(r))
	for k, v := range r {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}
