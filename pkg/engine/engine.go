package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/poolkeeper/poolkeeper/pkg/config"
	"github.com/poolkeeper/poolkeeper/pkg/envfile"
	"github.com/poolkeeper/poolkeeper/pkg/lifecycle"
	"github.com/poolkeeper/poolkeeper/pkg/log"
	"github.com/poolkeeper/poolkeeper/pkg/metrics"
	"github.com/poolkeeper/poolkeeper/pkg/resilience"
	"github.com/poolkeeper/poolkeeper/pkg/store"
)

// Lifecycle is the slice of the container lifecycle service the engine
// needs: restart the dependent container and wait for it to come back
// healthy.
type Lifecycle interface {
	Restart(ctx context.Context, name string) error
	AwaitHealthy(ctx context.Context, name string, timeout time.Duration) error
}

var _ Lifecycle = (*lifecycle.Service)(nil)

// UpdateRequest carries the tunables to change. All fields are optional;
// a request with no fields set is rejected.
type UpdateRequest struct {
	PoolSize      *int
	MaxClientConn *int
	PoolMode      *string
	Port          *int
	DBPoolSize    *int
	TenantID      *string
}

// IsEmpty reports whether no field is set.
func (r UpdateRequest) IsEmpty() bool {
	return r.PoolSize == nil && r.MaxClientConn == nil && r.PoolMode == nil &&
		r.Port == nil && r.DBPoolSize == nil && r.TenantID == nil
}

// changes maps the set fields to their environment keys.
func (r UpdateRequest) changes() map[string]string {
	out := make(map[string]string)
	if r.PoolSize != nil {
		out[config.KeyPoolSize] = strconv.Itoa(*r.PoolSize)
	}
	if r.MaxClientConn != nil {
		out[config.KeyMaxClientConn] = strconv.Itoa(*r.MaxClientConn)
	}
	if r.PoolMode != nil {
		out[config.KeyPoolMode] = *r.PoolMode
	}
	if r.Port != nil {
		out[config.KeyProxyPort] = strconv.Itoa(*r.Port)
	}
	if r.DBPoolSize != nil {
		out[config.KeyDBPoolSize] = strconv.Itoa(*r.DBPoolSize)
	}
	if r.TenantID != nil {
		out[config.KeyTenantID] = *r.TenantID
	}
	return out
}

// UpdateResult reports the outcome of one update attempt.
type UpdateResult struct {
	RequestID         string
	Success           bool
	Config            config.Resolved
	Warnings          []config.ValidationWarning
	BackupRef         string
	Restarted         bool
	RollbackAvailable bool
}

const defaultTarget = "pooler"

// Engine applies configuration updates transactionally: snapshot, write,
// restart, verify, and roll back from the snapshot when anything after
// the write fails.
//
// One engine serializes its own updates with an internal mutex. That
// protects a single process only; concurrent engines in separate
// processes still need external locking around the env file.
type Engine struct {
	mu sync.Mutex

	envPath       string
	schema        config.Schema
	svc           Lifecycle
	journal       *store.Store
	watcher       *DriftWatcher
	logger        zerolog.Logger
	target        string
	healthTimeout time.Duration
	now           func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithJournal records every update attempt in the audit journal.
func WithJournal(journal *store.Store) Option {
	return func(e *Engine) { e.journal = journal }
}

// WithTarget sets the service restarted after a persisted change.
func WithTarget(name string) Option {
	return func(e *Engine) { e.target = name }
}

// WithHealthTimeout overrides the post-restart health deadline.
func WithHealthTimeout(d time.Duration) Option {
	return func(e *Engine) { e.healthTimeout = d }
}

// WithDriftWatcher lets the engine suppress drift alerts for its own
// writes.
func WithDriftWatcher(w *DriftWatcher) Option {
	return func(e *Engine) { e.watcher = w }
}

// New creates an engine over the env file at envPath, restarting through
// svc after each persisted change.
func New(envPath string, svc Lifecycle, opts ...Option) *Engine {
	e := &Engine{
		envPath:       envPath,
		schema:        config.DefaultSchema(),
		svc:           svc,
		logger:        log.WithComponent("engine"),
		target:        defaultTarget,
		healthTimeout: lifecycle.DefaultHealthTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Update runs the full update sequence: validate the request, back up the
// current file, apply and validate the resulting configuration, persist,
// restart the dependent container, and verify health. Any failure after
// the persist step restores the backup and restarts once with the
// previous configuration.
func (e *Engine) Update(ctx context.Context, req UpdateRequest) (*UpdateResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := e.now()
	result := &UpdateResult{RequestID: uuid.New().String()}
	logger := e.logger.With().Str("request_id", result.RequestID).Logger()

	finish := func(outcome string, rolledBack bool, cause error) {
		metrics.ConfigUpdatesTotal.WithLabelValues(outcome).Inc()
		metrics.UpdateDuration.Observe(e.now().Sub(started).Seconds())
		e.record(result, started, req, outcome, rolledBack, cause)
	}

	if req.IsEmpty() {
		err := resilience.NewValidation("request", "update request contains no changes")
		finish("rejected", false, err)
		return result, err
	}

	if verr := e.validateRequest(req); verr != nil {
		finish("rejected", false, verr)
		return result, verr
	}

	// Read current config. Nothing has been mutated yet, so failures here
	// are plain storage errors.
	file, err := envfile.Load(e.envPath)
	if err != nil {
		serr := resilience.NewStorage("failed to read current configuration", err)
		finish("failed", false, serr)
		return result, serr
	}

	backupRef, err := e.createBackup(file)
	if err != nil {
		serr := resilience.NewStorage("failed to create configuration backup", err)
		finish("failed", false, serr)
		return result, serr
	}
	result.BackupRef = backupRef
	result.RollbackAvailable = true
	logger.Info().Str("backup", backupRef).Msg("configuration backed up")

	// Apply in memory and validate the full resulting configuration
	// before anything touches disk.
	file.Apply(req.changes())
	resolved, vres := config.Parse(e.schema, file)
	result.Warnings = vres.Warnings
	if !vres.IsValid() {
		err := resilience.NewConfiguration(
			"resulting configuration is invalid: "+strings.Join(vres.ErrorMessages(), "; "), nil).
			WithContext("fields", vres.ErrorMessages())
		finish("rejected", false, err)
		return result, err
	}
	result.Config = resolved

	// Point of no return: from here on, failure means rollback.
	if e.watcher != nil {
		e.watcher.Suppress(2 * time.Second)
	}
	if err := file.Save(); err != nil {
		rerr := e.rollback(ctx, backupRef, resilience.NewStorage("failed to persist configuration", err))
		finish("rolled_back", true, rerr)
		return result, rerr
	}
	logger.Info().Msg("configuration persisted")

	if err := e.svc.Restart(ctx, e.target); err != nil {
		rerr := e.rollback(ctx, backupRef, err)
		finish("rolled_back", true, rerr)
		return result, rerr
	}
	result.Restarted = true

	if err := e.svc.AwaitHealthy(ctx, e.target, e.healthTimeout); err != nil {
		rerr := e.rollback(ctx, backupRef, err)
		finish("rolled_back", true, rerr)
		return result, rerr
	}

	result.Success = true
	finish("success", false, nil)
	logger.Info().
		Str("service", e.target).
		Dur("took", e.now().Sub(started)).
		Msg("configuration update complete")
	return result, nil
}

// validateRequest range-checks every set field against the schema before
// any side effect. All offending fields are reported together.
func (e *Engine) validateRequest(req UpdateRequest) error {
	var vres config.Result
	for key, raw := range req.changes() {
		entry, ok := e.schema.Entry(key)
		if !ok || entry.Validator == nil {
			continue
		}
		var value any = raw
		if entry.Type == config.TypeNumber {
			// changes() produced these from ints; re-parse is safe.
			n, _ := strconv.Atoi(raw)
			value = n
		}
		errs, warns := entry.Validator(key, value)
		vres.Errors = append(vres.Errors, errs...)
		vres.Warnings = append(vres.Warnings, warns...)
	}
	if !vres.IsValid() {
		return resilience.NewValidation("request",
			"invalid update request: "+strings.Join(vres.ErrorMessages(), "; ")).
			WithContext("fields", vres.ErrorMessages())
	}
	return nil
}

// rollback restores the env file from the backup and attempts one restart
// with the previous configuration. The returned error wraps cause and
// records whether rollback itself succeeded; a failed rollback restart is
// escalated to a critical error instead of being retried.
func (e *Engine) rollback(ctx context.Context, backupRef string, cause error) error {
	e.logger.Warn().Err(cause).Str("backup", backupRef).Msg("update failed, rolling back")

	if err := e.restoreBackup(backupRef); err != nil {
		metrics.RollbacksTotal.WithLabelValues("failure").Inc()
		rerr := resilience.Wrap(resilience.KindStorage,
			"update failed and rollback could not restore the backup: manual intervention required", cause).
			WithContext("rollback_succeeded", false).
			WithContext("rollback_error", err.Error()).
			WithContext("backup", backupRef)
		rerr.Severity = resilience.SeverityCritical
		return rerr
	}

	if err := e.svc.Restart(ctx, e.target); err != nil {
		metrics.RollbacksTotal.WithLabelValues("failure").Inc()
		rerr := resilience.Wrap(resilience.KindUnavailable,
			fmt.Sprintf("update failed and the restart with the restored configuration also failed: manual intervention required for %s", e.target),
			cause).
			WithContext("rollback_succeeded", false).
			WithContext("rollback_error", err.Error()).
			WithContext("backup", backupRef)
		rerr.Severity = resilience.SeverityCritical
		return rerr
	}

	metrics.RollbacksTotal.WithLabelValues("success").Inc()
	e.logger.Info().Str("backup", backupRef).Msg("rollback complete, previous configuration restored")

	kind := resilience.KindUnavailable
	if typed := resilience.AsTyped(cause); typed != nil {
		kind = typed.Kind
	}
	return resilience.Wrap(kind, "configuration update failed, previous configuration restored", cause).
		WithContext("rollback_succeeded", true).
		WithContext("backup", backupRef)
}

// record appends the attempt to the audit journal, best-effort.
func (e *Engine) record(result *UpdateResult, started time.Time, req UpdateRequest, outcome string, rolledBack bool, cause error) {
	if e.journal == nil {
		return
	}
	rec := &store.UpdateRecord{
		RequestID:  result.RequestID,
		StartedAt:  started,
		FinishedAt: e.now(),
		Changes:    req.changes(),
		BackupRef:  result.BackupRef,
		Outcome:    outcome,
		RolledBack: rolledBack,
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	if err := e.journal.RecordUpdate(rec); err != nil {
		e.logger.Error().Err(err).Msg("failed to record update in audit journal")
	}
}
