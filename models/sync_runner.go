package models

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Sync Runner
//
// The runner owns the background sync goroutine on a spoke. Passes are
// serialized through a single goroutine; manual triggers go through a
// buffered-by-one channel so a burst of trigger calls while a pass is
// running coalesces into exactly one follow-up pass.
// ============================================================================

// syncRunnerInstance is the package-level singleton, set by NewSyncRunner.
var syncRunnerInstance *SyncRunner

type SyncRunner struct {
	config     *SyncConfig
	syncer     *Syncer
	hub        *HubClient
	trigger    chan struct{} // buffered by 1; coalesces manual triggers
	passMu     sync.Mutex    // serializes passes between the loop and SyncNow
	cancelFunc context.CancelFunc
	enabled    atomic.Bool
	inProgress atomic.Bool

	mu        sync.Mutex // guards the fields below
	lastSync  time.Time
	lastError error

	// Consecutive failures widen the wait before the next timed pass.
	consecutiveFailures int
}

// maxBackoff caps the failure backoff so an extended hub outage never pushes
// the retry horizon out indefinitely.
const maxBackoff = 5 * time.Minute

// SyncRunnerStatus is the runner state exposed through the status endpoint.
type SyncRunnerStatus struct {
	Enabled    bool       `json:"enabled"`
	Connected  bool       `json:"connected"`
	DeviceID   string     `json:"device_id,omitempty"`
	LastSync   *time.Time `json:"last_sync"`
	InProgress bool       `json:"in_progress"`
	LastError  string     `json:"last_error,omitempty"`
}

// NewSyncRunner wires a runner from validated config. The hub client doubles
// as the identity provider: no credentials means every pass is a quiet no-op.
func NewSyncRunner(store *Store, config *SyncConfig) (*SyncRunner, error) {
	if err := config.Validate(); err != nil {
		return nil, serr.Wrap(err, "invalid sync config")
	}

	hub, err := NewHubClient(store, config.HubURL, config.Username, config.Password)
	if err != nil {
		return nil, err
	}

	r := &SyncRunner{
		config:  config,
		syncer:  NewSyncer(store, hub, hub),
		hub:     hub,
		trigger: make(chan struct{}, 1),
	}
	r.enabled.Store(config.Enabled)

	syncRunnerInstance = r
	return r, nil
}

// GetSyncRunner returns the package-level runner, or nil when sync was never
// configured. Callers must nil-check.
func GetSyncRunner() *SyncRunner {
	return syncRunnerInstance
}

// Start launches the background goroutine. The first pass runs immediately,
// then passes run on the configured interval or on demand via TriggerSync.
func (r *SyncRunner) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancelFunc = cancel

	go r.loop(ctx)
	logger.Info("Sync runner started",
		"hub_url", r.config.HubURL,
		"interval", r.config.Interval.String(),
	)
}

// Stop shuts down the background goroutine.
func (r *SyncRunner) Stop() {
	if r.cancelFunc != nil {
		r.cancelFunc()
	}
	logger.Info("Sync runner stopped")
}

// TriggerSync requests an immediate pass. If a pass is already running, the
// request parks in the single trigger slot and one follow-up pass runs after
// the current one; further triggers while the slot is full are dropped.
func (r *SyncRunner) TriggerSync() {
	if !r.enabled.Load() {
		return
	}
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// SyncNow runs a pass synchronously, for callers that need the result.
func (r *SyncRunner) SyncNow(ctx context.Context) error {
	if !r.enabled.Load() {
		return serr.New("sync is disabled")
	}
	return r.runPass(ctx)
}

// SetEnabled toggles sync at runtime.
func (r *SyncRunner) SetEnabled(enabled bool) {
	r.enabled.Store(enabled)
	logger.Info("Sync runner toggled", "enabled", enabled)
}

func (r *SyncRunner) IsEnabled() bool {
	return r.enabled.Load()
}

// GetStatus reports current runner state.
func (r *SyncRunner) GetStatus() *SyncRunnerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := &SyncRunnerStatus{
		Enabled:    r.enabled.Load(),
		Connected:  r.consecutiveFailures == 0 && !r.lastSync.IsZero(),
		InProgress: r.inProgress.Load(),
	}
	if state, err := r.syncer.local.GetOrCreateSyncState(r.config.HubURL); err == nil {
		status.DeviceID = state.DeviceID
	}
	if !r.lastSync.IsZero() {
		ls := r.lastSync
		status.LastSync = &ls
	}
	if r.lastError != nil {
		status.LastError = r.lastError.Error()
	}
	return status
}

// loop serializes all passes through one goroutine. Timed passes respect the
// failure backoff; triggered passes run right away.
func (r *SyncRunner) loop(ctx context.Context) {
	if r.enabled.Load() {
		if err := r.runPass(ctx); err != nil {
			logger.LogErr(err, "initial sync pass failed")
		}
	}

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.trigger:
			if !r.enabled.Load() {
				continue
			}
			if err := r.runPass(ctx); err != nil {
				logger.LogErr(err, "triggered sync pass failed")
			}
		case <-ticker.C:
			if !r.enabled.Load() {
				continue
			}
			if r.inBackoff() {
				continue
			}
			if err := r.runPass(ctx); err != nil {
				logger.LogErr(err, "sync pass failed",
					"consecutive_failures", i64s(int64(r.failures())),
				)
			}
		}
	}
}

// runPass executes one full pass: health check, then the four-phase
// reconciliation of all collections, then bookkeeping.
func (r *SyncRunner) runPass(ctx context.Context) error {
	if !r.passMu.TryLock() {
		return nil // another pass is running; skip
	}
	defer r.passMu.Unlock()

	r.inProgress.Store(true)
	defer r.inProgress.Store(false)

	if err := r.hub.HealthCheck(ctx); err != nil {
		r.recordFailure(err)
		return serr.Wrap(err, "hub health check failed")
	}

	ran, err := r.syncer.RunSync(ctx)
	if err != nil {
		r.recordFailure(err)
		return err
	}
	if !ran {
		return nil // signed out; nothing to do
	}

	r.mu.Lock()
	r.consecutiveFailures = 0
	r.lastError = nil
	r.lastSync = time.Now()
	r.mu.Unlock()

	if err := r.syncer.local.TouchLastSync(r.config.HubURL); err != nil {
		logger.LogErr(err, "failed to persist last sync time")
	}

	logger.Info("Sync pass completed", "hub_url", r.config.HubURL)
	return nil
}

func (r *SyncRunner) recordFailure(err error) {
	r.mu.Lock()
	r.consecutiveFailures++
	r.lastError = err
	r.mu.Unlock()
}

func (r *SyncRunner) failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.consecutiveFailures
}

// inBackoff reports whether a timed pass should be skipped because recent
// passes failed. Each failure doubles the wait, capped at maxBackoff.
func (r *SyncRunner) inBackoff() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.consecutiveFailures == 0 {
		return false
	}

	backoff := r.config.Interval
	for i := 1; i < r.consecutiveFailures && backoff < maxBackoff; i++ {
		backoff *= 2
	}
	if backoff > maxBackoff {
		backoff = maxBackoff
	}

	anchor := r.lastSync
	if anchor.IsZero() {
		return false
	}
	return time.Since(anchor) < backoff
}
