package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/certia/certia-core/internal/config"
	"github.com/certia/certia-core/internal/jobs"
	"github.com/certia/certia-core/internal/models"
	"github.com/certia/certia-core/internal/repository"
	"github.com/certia/certia-core/internal/services"
	"github.com/certia/certia-core/internal/statemachine"
	"github.com/certia/certia-core/pkg/logger"
	"github.com/getsentry/sentry-go"
)

// Report summarizes one completed sync run
type Report struct {
	Pushed    int       `json:"pushed"`
	Failed    int       `json:"failed"`
	Pulled    int       `json:"pulled"`
	Held      int       `json:"held"`
	Purged    int64     `json:"purged"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
}

// Status is a point-in-time view of the coordinator for the API surface
type Status struct {
	State               string     `json:"state"`
	Online              bool       `json:"online"`
	PendingItems        int64      `json:"pending_items"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	RetriesExhausted    bool       `json:"retries_exhausted"`
	LastSyncAt          *time.Time `json:"last_sync_at"`
	LastError           string     `json:"last_error,omitempty"`
}

// Runner carries the coordinator's fire-and-forget runs on a shared pool
type Runner interface {
	EnqueueAsync(job jobs.Job)
}

// Coordinator drives the push/pull/purge cycle against the remote backend.
// One run at a time; a run requested while another is in flight is rejected,
// not queued.
type Coordinator struct {
	cfg      *config.Config
	repos    *repository.Repositories
	remote   RemoteClient
	fsm      *statemachine.SyncFSM
	resolver *Resolver
	merger   *storeMerger
	runner   Runner

	mu           sync.Mutex
	online       bool
	failures     int
	exhausted    bool
	lastSyncAt   *time.Time
	lastPulledAt time.Time
	lastError    string

	debounce *time.Timer
	retry    *time.Timer
	ticker   *time.Ticker
	tickDone chan struct{}
}

// NewCoordinator creates a sync coordinator
func NewCoordinator(cfg *config.Config, repos *repository.Repositories, remote RemoteClient) *Coordinator {
	merger := newStoreMerger(repos)
	return &Coordinator{
		cfg:      cfg,
		repos:    repos,
		remote:   remote,
		fsm:      statemachine.NewSyncFSM(),
		resolver: NewResolver(cfg.ConflictStrategy, repos.Conflict, merger),
		merger:   merger,
	}
}

// SetRunner routes scheduled runs through the given pool. Without one the
// coordinator runs them on its own timer goroutines.
func (c *Coordinator) SetRunner(r Runner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runner = r
}

// Sync runs one full cycle. It returns ErrSyncInProgress when a run is
// already in flight.
func (c *Coordinator) Sync(ctx context.Context) (*Report, error) {
	if err := c.fsm.Start(ctx); err != nil {
		return nil, services.ErrSyncInProgress
	}

	report, err := c.run(ctx)
	if err != nil {
		_ = c.fsm.Fail(ctx)
		_ = c.fsm.Reset(ctx)
		c.recordFailure(err)
		return nil, err
	}

	_ = c.fsm.Succeed(ctx)
	_ = c.fsm.Reset(ctx)
	c.recordSuccess()
	return report, nil
}

func (c *Coordinator) run(ctx context.Context) (*Report, error) {
	started := time.Now()
	report := &Report{StartedAt: started}

	items, err := c.repos.SyncQueue.DrainPending(ctx, c.cfg.SyncBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to drain sync queue: %w", err)
	}

	for _, item := range items {
		ack, err := c.remote.Push(ctx, Mutation{
			Action:   item.Action,
			Table:    item.Table,
			RecordID: item.RecordID,
			Payload:  json.RawMessage(item.Payload),
		})
		if err != nil {
			if errors.Is(err, ErrPushRejected) {
				// Rejections are per item; the run keeps going so one bad
				// payload cannot wedge the whole queue.
				if markErr := c.repos.SyncQueue.IncrementAttempts(ctx, item.ID); markErr != nil {
					return nil, fmt.Errorf("failed to record push rejection: %w", markErr)
				}
				report.Failed++
				logger.Warn("sync push rejected", "table", item.Table, "record_id", item.RecordID, "attempts", item.Attempts+1)
				continue
			}
			// Transport failure means the backend as a whole is unreachable,
			// so the run aborts and the remaining items stay queued. The item
			// that hit the failure still records the attempt so its counter
			// tracks the consecutive failed runs.
			if markErr := c.repos.SyncQueue.IncrementAttempts(ctx, item.ID); markErr != nil {
				return nil, fmt.Errorf("failed to record push attempt: %w", markErr)
			}
			return nil, fmt.Errorf("sync push failed: %w", err)
		}

		if err := c.repos.SyncQueue.MarkProcessed(ctx, item.ID); err != nil {
			return nil, fmt.Errorf("failed to mark item processed: %w", err)
		}
		if ack.RecordID != "" && ack.RecordID != item.RecordID {
			// Backend re-keyed the record on first insert
			if err := c.repos.IDMapping.Record(ctx, item.Table, item.RecordID, ack.RecordID); err != nil {
				return nil, fmt.Errorf("failed to record id mapping: %w", err)
			}
		}
		report.Pushed++
	}

	if report.Pushed > 0 {
		pulled, held, err := c.pull(ctx)
		if err != nil {
			return nil, err
		}
		report.Pulled = pulled
		report.Held = held
	}

	purged, err := c.repos.SyncQueue.PurgeProcessedOlderThan(ctx, c.cfg.SyncRetention)
	if err != nil {
		return nil, fmt.Errorf("failed to purge processed items: %w", err)
	}
	report.Purged = purged

	report.Duration = time.Since(started).Round(time.Millisecond).String()
	logger.Info("sync run completed",
		"pushed", report.Pushed,
		"failed", report.Failed,
		"pulled", report.Pulled,
		"held", report.Held,
		"purged", report.Purged,
		"duration", report.Duration)
	return report, nil
}

// pull fetches remote changes table by table, parents before children, and
// merges each record under the configured conflict strategy.
func (c *Coordinator) pull(ctx context.Context) (pulled, held int, err error) {
	c.mu.Lock()
	since := c.lastPulledAt
	c.mu.Unlock()
	pullStarted := time.Now()

	for _, table := range pullTables {
		records, err := c.remote.Pull(ctx, table, since)
		if err != nil {
			return pulled, held, fmt.Errorf("sync pull failed for %s: %w", table, err)
		}

		for _, rec := range records {
			applied, wasHeld, err := c.mergeRecord(ctx, table, rec)
			if err != nil {
				return pulled, held, err
			}
			if applied {
				pulled++
			}
			if wasHeld {
				held++
			}
		}
	}

	c.mu.Lock()
	c.lastPulledAt = pullStarted
	c.mu.Unlock()
	return pulled, held, nil
}

func (c *Coordinator) mergeRecord(ctx context.Context, table string, rec RemoteRecord) (applied, held bool, err error) {
	// A record already held for manual resolution is not touched again;
	// re-pulling it must not pile up duplicate conflicts or overwrite the
	// snapshot the user is deciding on.
	pending, err := c.repos.Conflict.HasPendingFor(ctx, table, rec.ID)
	if err != nil {
		return false, false, fmt.Errorf("failed to check pending conflicts: %w", err)
	}
	if pending {
		return false, true, nil
	}

	localUpdatedAt, localSnapshot, found, err := c.merger.localVersion(ctx, table, rec.ID)
	if err != nil {
		return false, false, fmt.Errorf("failed to load local version: %w", err)
	}

	if !found {
		if err := c.merger.apply(ctx, table, rec); err != nil {
			return false, false, err
		}
		return true, false, nil
	}
	if !rec.UpdatedAt.After(localUpdatedAt) {
		return false, false, nil
	}

	switch c.resolver.decide(localUpdatedAt, rec.UpdatedAt) {
	case decisionApplyRemote:
		if err := c.merger.apply(ctx, table, rec); err != nil {
			return false, false, err
		}
		return true, false, nil
	case decisionHoldForManual:
		if err := c.resolver.hold(ctx, table, rec, localSnapshot); err != nil {
			return false, false, err
		}
		return false, true, nil
	default:
		return false, false, nil
	}
}

// SetOnline reports a connectivity change. Going online schedules a debounced
// sync and starts the periodic timer; going offline cancels both. A run that
// is already in flight finishes on its own.
func (c *Coordinator) SetOnline(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if online == c.online {
		return
	}
	c.online = online

	if !online {
		if c.debounce != nil {
			c.debounce.Stop()
			c.debounce = nil
		}
		if c.retry != nil {
			c.retry.Stop()
			c.retry = nil
		}
		c.stopTickerLocked()
		logger.Info("connectivity lost, sync paused")
		return
	}

	logger.Info("connectivity restored, sync scheduled", "debounce", c.cfg.SyncDebounce)
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = time.AfterFunc(c.cfg.SyncDebounce, c.dispatchSync)
	c.startTickerLocked()
}

// Online reports the last known connectivity state
func (c *Coordinator) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

func (c *Coordinator) startTickerLocked() {
	if c.ticker != nil {
		return
	}
	c.ticker = time.NewTicker(c.cfg.SyncInterval)
	c.tickDone = make(chan struct{})
	go func(ticker *time.Ticker, done chan struct{}) {
		for {
			select {
			case <-ticker.C:
				count, err := c.repos.SyncQueue.CountPending(context.Background())
				if err != nil {
					logger.Error("failed to count pending sync items", "error", err)
					continue
				}
				if count == 0 {
					continue
				}
				c.dispatchSync()
			case <-done:
				return
			}
		}
	}(c.ticker, c.tickDone)
}

func (c *Coordinator) stopTickerLocked() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.tickDone)
	c.ticker = nil
	c.tickDone = nil
}

// dispatchSync hands a scheduled run to the worker pool when one is wired,
// otherwise runs it on the calling goroutine.
func (c *Coordinator) dispatchSync() {
	c.mu.Lock()
	runner := c.runner
	c.mu.Unlock()

	if runner != nil {
		runner.EnqueueAsync(c.backgroundSync)
		return
	}
	_ = c.backgroundSync(context.Background())
}

// backgroundSync runs a sync outside any request, swallowing the in-progress
// rejection since an active run already covers the trigger.
func (c *Coordinator) backgroundSync(ctx context.Context) error {
	c.mu.Lock()
	if !c.online || c.exhausted {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if _, err := c.Sync(ctx); err != nil && !errors.Is(err, services.ErrSyncInProgress) {
		logger.Error("background sync failed", "error", err)
		return err
	}
	return nil
}

// recordFailure counts consecutive failed runs. Below the retry budget the
// next attempt is scheduled after the retry delay; at the budget the
// coordinator parks in a persistent error state until a run succeeds via an
// explicit trigger.
func (c *Coordinator) recordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures++
	c.lastError = err.Error()
	logger.Error("sync run failed", "error", err, "consecutive_failures", c.failures)

	if c.failures >= c.cfg.SyncMaxRetries {
		if !c.exhausted {
			c.exhausted = true
			logger.Error("sync retries exhausted, automatic sync suspended", "max_retries", c.cfg.SyncMaxRetries)
			sentry.CaptureException(fmt.Errorf("sync retries exhausted after %d consecutive failures: %w", c.failures, err))
		}
		return
	}

	if !c.online {
		return
	}
	if c.retry != nil {
		c.retry.Stop()
	}
	c.retry = time.AfterFunc(c.cfg.SyncRetryDelay, c.dispatchSync)
}

func (c *Coordinator) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.lastSyncAt = &now
	c.failures = 0
	c.exhausted = false
	c.lastError = ""
}

// Status returns the coordinator state for the API surface
func (c *Coordinator) Status(ctx context.Context) (*Status, error) {
	pending, err := c.repos.SyncQueue.CountPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending sync items: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return &Status{
		State:               c.fsm.Current(),
		Online:              c.online,
		PendingItems:        pending,
		ConsecutiveFailures: c.failures,
		RetriesExhausted:    c.exhausted,
		LastSyncAt:          c.lastSyncAt,
		LastError:           c.lastError,
	}, nil
}

// PendingConflicts lists conflicts awaiting manual resolution
func (c *Coordinator) PendingConflicts(ctx context.Context) ([]models.SyncConflict, error) {
	return c.repos.Conflict.FindPending(ctx)
}

// ResolveConflict settles a held conflict with the user's choice. A sync run
// triggered explicitly afterwards pushes the kept local version when the
// choice was local.
func (c *Coordinator) ResolveConflict(ctx context.Context, id uint, choice string) (*models.SyncConflict, error) {
	return c.resolver.Resolve(ctx, c.repos.SyncQueue, id, choice)
}

// Stop cancels all scheduled work. In-flight runs complete on their own.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.stopTickerLocked()
}
