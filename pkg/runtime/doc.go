/*
Package runtime provides the narrow container-runtime capability Poolkeeper
uses to discover, restart, and read logs from the managed stack's
containers.

The Runtime interface is deliberately small (Inspect, List, Restart, Stop,
Start, Logs) so the default shell-based implementation can be swapped for a
direct runtime API client without touching callers.

# DockerCLI

DockerCLI shells out to the docker binary (or podman via WithBinary) and
parses its newline-delimited JSON records:

	docker ps -a --filter name=^pooler$ --format '{{json .}}'

Every invocation is time-boxed (10s for queries, 30s for lifecycle
commands) so a hung daemon can never block the update engine indefinitely.
The command runner is injectable for tests.

# Parsing

Port summaries ("0.0.0.0:6543->6543/tcp, :::6543->6543/tcp") are parsed
pairwise into host/container mappings, collapsing IPv4/IPv6 duplicates.
Status strings are split into a health verdict ("(healthy)",
"(unhealthy)", "health: starting") and an uptime description, with the
"Up …" and "Exited (code) … ago" shapes recognized and anything else
passed through raw.
*/
package runtime
