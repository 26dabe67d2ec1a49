/*
Package log provides structured logging for Poolkeeper using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level for production debugging.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                           │
	│  ┌────────────────────────────────────────────┐           │
	│  │            Global Logger                   │           │
	│  │  - Zerolog instance                        │           │
	│  │  - Initialized via log.Init()              │           │
	│  │  - Thread-safe for concurrent use          │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │         Component Loggers                  │           │
	│  │  - WithComponent("engine")                 │           │
	│  │  - WithService("pooler")                   │           │
	│  │  - WithRequestID("req-abc123")             │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │            Log Output                      │           │
	│  │  JSON:    {"level":"info","component":     │           │
	│  │            "engine","message":"..."}       │           │
	│  │  Console: 10:30AM INF ... component=engine │           │
	│  └────────────────────────────────────────────┘           │
	└───────────────────────────────────────────────────────────┘

# Usage

Initialize once at process startup:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Components derive child loggers carrying their identity:

	logger := log.WithComponent("lifecycle")
	logger.Info().Str("service", "pooler").Msg("container restarted")

The update engine attaches request IDs so a whole update/rollback cycle can
be correlated from logs:

	logger := log.WithRequestID(req.ID)

# Best Practices

 1. Use JSON output in production, console output for local debugging
 2. Derive one component logger per subsystem instead of using the global
 3. Attach errors with .Err(err) rather than formatting them into messages
 4. Reserve Fatal for unrecoverable startup failures only
*/
package log
