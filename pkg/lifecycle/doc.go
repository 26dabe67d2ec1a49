// Package lifecycle manages the containers that make up a self-hosted
// pooling stack: status discovery, health checking, and restart/stop/start
// control.
//
// Status is assembled fresh on every query. The container runtime is the
// primary source; when it cannot be reached, a successful health probe is
// enough to infer a running service (with unknown uptime), and a total
// failure degrades to an error status instead of an error return. Status
// queries never fail.
//
// Health checks are the one cached surface. Probe results are held for a
// fixed TTL so that dashboards and update loops polling the same service
// do not hammer a struggling container. Lifecycle commands do not
// invalidate the cache; callers that need a guaranteed-fresh verdict use
// AwaitHealthy, which polls uncached status until the service is both
// running and healthy.
//
// Lifecycle commands are verified, not trusted: after a restart or start
// the service waits a settle period and re-inspects the container,
// because runtimes routinely report success before the process is
// actually up.
package lifecycle
