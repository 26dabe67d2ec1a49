/*
Package config declares the pooler's configuration schema and validates
raw key-value sources against it.

Each tunable is one SchemaEntry carrying its type, requiredness, default,
and a validator producing hard errors (which block updates) and soft
warnings (logged, non-blocking). The ordered schema is the authoritative
contract for what configuration exists; nothing else reads the raw
environment directly.

# Validation Flow

	raw source ──► per-entry: missing? default? type-convert ──► field
	validator ──► cross-field pass ──► Result{Errors, Warnings}

Field rules:
  - POOLER_DEFAULT_POOL_SIZE: 1..1000, warn below 5 or above 200
  - POOLER_MAX_CLIENT_CONN: 1..10000, warn below 10
  - POOLER_PROXY_PORT_TRANSACTION: 1..65535, warn below 1024 or on a
    well-known sibling-container port
  - POOLER_TENANT_ID: ^[a-zA-Z0-9_-]+$, at most 64 characters, warn when
    still the shipped placeholder
  - POOLER_DB_POOL_SIZE: 1..100, warn below 2
  - POOLER_POOL_MODE: session | transaction | statement

Cross-field checks (all warnings): max client connections below pool size,
client-to-pool ratio above 50, database pool size above the outer pool
size.

Results are computed fresh on every call and never cached across
configuration changes. IsValid is false iff the error list is non-empty;
warnings never affect it.
*/
package config
