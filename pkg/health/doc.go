/*
Package health provides the bounded-time probes used to decide whether a
managed service instance is accepting traffic.

Two checker types cover the stack: HTTP probes against a conventional
/health path for HTTP-speaking services (3s timeout), and raw TCP
connect-and-close probes for protocol services that do not answer HTTP,
like the pooler itself (2s timeout).

	┌──────────────────────────────────────┐
	│          Checker Interface           │
	│  • Check(ctx) Result                 │
	│  • Type() CheckType                  │
	└────────┬────────────────┬────────────┘
	         ▼                ▼
	    ┌─────────┐      ┌─────────┐
	    │  HTTP   │      │   TCP   │
	    │ Checker │      │ Checker │
	    └─────────┘      └─────────┘
	    GET /health      connect :port

Results carry the verdict, a human-readable message, the probe start time,
and the response time. Probes are stateless; caching and per-service
strategy selection live in the lifecycle package.
*/
package health
