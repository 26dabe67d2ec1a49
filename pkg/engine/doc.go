// Package engine applies configuration updates to the pooler's env file
// transactionally.
//
// Each update runs one strict sequence:
//
//	validate request -> read current -> backup -> apply in memory ->
//	validate full config -> persist -> restart container -> verify health
//
// Failures before the persist step leave the file untouched and return a
// typed error. Failures from persist onward restore the backup snapshot
// and attempt one restart with the previous configuration; the returned
// error records whether that rollback succeeded. A rollback whose own
// restart fails is escalated to a critical "manual intervention required"
// error rather than retried, since retrying a failed rollback risks
// compounding the inconsistency.
//
// Backups are timestamped copies beside the env file, listed newest first
// and trimmed best-effort by CleanupOldBackups. Every attempt can be
// journaled to the bbolt audit store, and a DriftWatcher can flag writes
// to the env file that did not come from the engine.
package engine
