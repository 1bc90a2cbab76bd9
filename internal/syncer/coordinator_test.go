package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/certia/certia-core/internal/config"
	"github.com/certia/certia-core/internal/jobs"
	"github.com/certia/certia-core/internal/models"
	"github.com/certia/certia-core/internal/services"
	"github.com/certia/certia-core/internal/statemachine"
	"github.com/stretchr/testify/assert"
)

func TestSyncPushesQueueInOrder(t *testing.T) {
	f := newTestFixture(config.StrategyLastWriteWins)
	f.queue.add(models.SyncActionInsert, services.TableCompanies, "co-1", `{"id":"co-1"}`)
	f.queue.add(models.SyncActionUpdate, services.TableCompanies, "co-1", `{"id":"co-1","name":"Acme"}`)
	f.queue.add(models.SyncActionInsert, services.TableContracts, "ct-1", `{"id":"ct-1"}`)

	report, err := f.coord.Sync(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 3, report.Pushed)
	assert.Equal(t, 0, report.Failed)

	// Enqueue order is push order
	assert.Equal(t, "co-1", f.remote.pushed[0].RecordID)
	assert.Equal(t, models.SyncActionInsert, f.remote.pushed[0].Action)
	assert.Equal(t, models.SyncActionUpdate, f.remote.pushed[1].Action)
	assert.Equal(t, "ct-1", f.remote.pushed[2].RecordID)

	pending, _ := f.queue.CountPending(context.Background())
	assert.Zero(t, pending)
}

func TestSyncPullFollowsPushOnly(t *testing.T) {
	f := newTestFixture(config.StrategyLastWriteWins)

	// Empty queue: nothing pushed, so nothing pulled either
	report, err := f.coord.Sync(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, report.Pushed)
	assert.Zero(t, f.remote.pullCalls)

	f.queue.add(models.SyncActionInsert, services.TableCompanies, "co-1", `{"id":"co-1"}`)
	report, err = f.coord.Sync(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Pushed)
	assert.Equal(t, len(pullTables), f.remote.pullCalls)
}

func TestSyncTransportFailureAbortsRun(t *testing.T) {
	f := newTestFixture(config.StrategyLastWriteWins)
	f.queue.add(models.SyncActionInsert, services.TableCompanies, "co-1", `{}`)
	f.queue.add(models.SyncActionInsert, services.TableCompanies, "co-2", `{}`)

	f.remote.pushFn = func(m Mutation) (*PushAck, error) {
		if m.RecordID == "co-2" {
			return nil, fmt.Errorf("%w: connection refused", services.ErrSyncTransport)
		}
		return &PushAck{RecordID: m.RecordID}, nil
	}

	_, err := f.coord.Sync(context.Background())
	assert.ErrorIs(t, err, services.ErrSyncTransport)

	// The first item stays processed, the failed one stays queued
	pending, _ := f.queue.CountPending(context.Background())
	assert.Equal(t, int64(1), pending)

	status, _ := f.coord.Status(context.Background())
	assert.Equal(t, 1, status.ConsecutiveFailures)
	assert.False(t, status.RetriesExhausted)
	assert.Equal(t, statemachine.SyncStateIdle, status.State)
}

func TestSyncRejectedItemDoesNotWedgeTheQueue(t *testing.T) {
	f := newTestFixture(config.StrategyLastWriteWins)
	f.queue.add(models.SyncActionInsert, services.TableCompanies, "bad", `{`)
	f.queue.add(models.SyncActionInsert, services.TableCompanies, "good", `{}`)

	f.remote.pushFn = func(m Mutation) (*PushAck, error) {
		if m.RecordID == "bad" {
			return nil, fmt.Errorf("%w: status 422", ErrPushRejected)
		}
		return &PushAck{RecordID: m.RecordID}, nil
	}

	report, err := f.coord.Sync(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Pushed)
	assert.Equal(t, 1, report.Failed)

	// The rejected item keeps its place with a bumped attempt counter
	assert.False(t, f.queue.items[0].Processed)
	assert.Equal(t, 1, f.queue.items[0].Attempts)
	assert.True(t, f.queue.items[1].Processed)
}

func TestSyncRetriesExhaustAfterConsecutiveFailures(t *testing.T) {
	f := newTestFixture(config.StrategyLastWriteWins)
	f.cfg.SyncMaxRetries = 2
	f.queue.add(models.SyncActionInsert, services.TableCompanies, "co-1", `{}`)

	f.remote.pushFn = func(m Mutation) (*PushAck, error) {
		return nil, fmt.Errorf("%w: unreachable", services.ErrSyncTransport)
	}

	for i := 0; i < 2; i++ {
		_, err := f.coord.Sync(context.Background())
		assert.Error(t, err)
	}

	status, _ := f.coord.Status(context.Background())
	assert.Equal(t, 2, status.ConsecutiveFailures)
	assert.True(t, status.RetriesExhausted)
	assert.NotEmpty(t, status.LastError)

	// A later successful explicit run clears the error state
	f.remote.pushFn = nil
	_, err := f.coord.Sync(context.Background())
	assert.NoError(t, err)

	status, _ = f.coord.Status(context.Background())
	assert.Zero(t, status.ConsecutiveFailures)
	assert.False(t, status.RetriesExhausted)
	assert.NotNil(t, status.LastSyncAt)
}

func TestSyncTransportFailureCountsPushAttempts(t *testing.T) {
	f := newTestFixture(config.StrategyLastWriteWins)
	f.cfg.SyncMaxRetries = 2
	f.queue.add(models.SyncActionInsert, services.TableCompanies, "co-1", `{}`)

	f.remote.pushFn = func(m Mutation) (*PushAck, error) {
		return nil, fmt.Errorf("%w: unreachable", services.ErrSyncTransport)
	}

	for i := 0; i < 2; i++ {
		_, err := f.coord.Sync(context.Background())
		assert.Error(t, err)
	}

	// The stuck item records every run that failed on it, so by the time
	// the coordinator parks in the persistent error state the item itself
	// has used up the retry budget.
	status, _ := f.coord.Status(context.Background())
	assert.True(t, status.RetriesExhausted)
	assert.Equal(t, 2, f.queue.items[0].Attempts)
	assert.False(t, f.queue.items[0].Processed)
}

func TestSyncIsNotReentrant(t *testing.T) {
	f := newTestFixture(config.StrategyLastWriteWins)
	f.queue.add(models.SyncActionInsert, services.TableCompanies, "co-1", `{}`)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.remote.pushFn = func(m Mutation) (*PushAck, error) {
		close(entered)
		<-release
		return &PushAck{RecordID: m.RecordID}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.coord.Sync(context.Background())
		done <- err
	}()

	<-entered
	_, err := f.coord.Sync(context.Background())
	assert.ErrorIs(t, err, services.ErrSyncInProgress)

	close(release)
	assert.NoError(t, <-done)
}

func TestSyncRecordsIDMappingWhenBackendRekeys(t *testing.T) {
	f := newTestFixture(config.StrategyLastWriteWins)
	f.queue.add(models.SyncActionInsert, services.TableCompanies, "local-1", `{}`)

	f.remote.pushFn = func(m Mutation) (*PushAck, error) {
		return &PushAck{RecordID: "srv-99"}, nil
	}

	_, err := f.coord.Sync(context.Background())
	assert.NoError(t, err)

	remoteID, err := f.mappings.RemoteID(context.Background(), services.TableCompanies, "local-1")
	assert.NoError(t, err)
	assert.Equal(t, "srv-99", remoteID)
}

func TestSyncPurgesProcessedItemsPastRetention(t *testing.T) {
	f := newTestFixture(config.StrategyLastWriteWins)
	f.cfg.SyncRetention = time.Millisecond

	id := f.queue.add(models.SyncActionInsert, services.TableCompanies, "old", `{}`)
	_ = f.queue.MarkProcessed(context.Background(), id)
	f.queue.items[0].CreatedAt = time.Now().Add(-time.Minute)

	report, err := f.coord.Sync(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), report.Purged)
	assert.Empty(t, f.queue.items)
}

func remoteCompany(id, name string, updatedAt time.Time) RemoteRecord {
	payload, _ := json.Marshal(models.Company{ID: id, Name: name, UpdatedAt: updatedAt})
	return RemoteRecord{ID: id, UpdatedAt: updatedAt, Payload: payload}
}

func TestPullAppliesUnknownRecords(t *testing.T) {
	f := newTestFixture(config.StrategyLastWriteWins)
	f.queue.add(models.SyncActionInsert, services.TableContracts, "ct-1", `{}`)
	f.remote.pulls[services.TableCompanies] = []RemoteRecord{
		remoteCompany("co-9", "Remote Co", time.Now()),
	}

	report, err := f.coord.Sync(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Pulled)
	assert.Equal(t, "Remote Co", f.companies.companies["co-9"].Name)
}

func TestPullLastWriteWins(t *testing.T) {
	f := newTestFixture(config.StrategyLastWriteWins)
	now := time.Now()

	f.companies.companies["co-1"] = &models.Company{ID: "co-1", Name: "Local", UpdatedAt: now}
	f.queue.add(models.SyncActionInsert, services.TableContracts, "ct-1", `{}`)
	f.remote.pulls[services.TableCompanies] = []RemoteRecord{
		remoteCompany("co-1", "Stale Remote", now.Add(-time.Hour)),
	}

	report, err := f.coord.Sync(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, report.Pulled)
	assert.Equal(t, "Local", f.companies.companies["co-1"].Name)

	// A newer remote version replaces the local one
	f.queue.add(models.SyncActionInsert, services.TableContracts, "ct-2", `{}`)
	f.remote.pulls[services.TableCompanies] = []RemoteRecord{
		remoteCompany("co-1", "Fresh Remote", now.Add(time.Hour)),
	}
	report, err = f.coord.Sync(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Pulled)
	assert.Equal(t, "Fresh Remote", f.companies.companies["co-1"].Name)
}

func TestPullServerWinsOverwritesNewerRemote(t *testing.T) {
	f := newTestFixture(config.StrategyServerWins)
	now := time.Now()

	f.companies.companies["co-1"] = &models.Company{ID: "co-1", Name: "Local", UpdatedAt: now.Add(-time.Hour)}
	f.queue.add(models.SyncActionInsert, services.TableContracts, "ct-1", `{}`)
	f.remote.pulls[services.TableCompanies] = []RemoteRecord{
		remoteCompany("co-1", "Server", now),
	}

	report, err := f.coord.Sync(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Pulled)
	assert.Equal(t, "Server", f.companies.companies["co-1"].Name)
}

func TestPullManualStrategyHoldsConflict(t *testing.T) {
	f := newTestFixture(config.StrategyManual)
	now := time.Now()

	f.companies.companies["co-1"] = &models.Company{ID: "co-1", Name: "Local", UpdatedAt: now.Add(-time.Hour)}
	f.queue.add(models.SyncActionInsert, services.TableContracts, "ct-1", `{}`)
	f.remote.pulls[services.TableCompanies] = []RemoteRecord{
		remoteCompany("co-1", "Remote", now),
	}

	report, err := f.coord.Sync(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Held)
	assert.Zero(t, report.Pulled)

	// Local state is untouched and the conflict carries both snapshots
	assert.Equal(t, "Local", f.companies.companies["co-1"].Name)
	pending, _ := f.coord.PendingConflicts(context.Background())
	assert.Len(t, pending, 1)
	assert.Equal(t, services.TableCompanies, pending[0].Table)
	assert.Contains(t, pending[0].LocalSnapshot, "Local")
	assert.Contains(t, pending[0].RemoteSnapshot, "Remote")

	// Re-pulling the same record must not duplicate the conflict or touch
	// local state while it is pending
	f.queue.add(models.SyncActionInsert, services.TableContracts, "ct-2", `{}`)
	report, err = f.coord.Sync(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Held)

	pending, _ = f.coord.PendingConflicts(context.Background())
	assert.Len(t, pending, 1)
	assert.Equal(t, "Local", f.companies.companies["co-1"].Name)
}

func TestResolveConflictRemoteAppliesSnapshot(t *testing.T) {
	f := newTestFixture(config.StrategyManual)
	now := time.Now()

	f.companies.companies["co-1"] = &models.Company{ID: "co-1", Name: "Local", UpdatedAt: now.Add(-time.Hour)}
	f.queue.add(models.SyncActionInsert, services.TableContracts, "ct-1", `{}`)
	f.remote.pulls[services.TableCompanies] = []RemoteRecord{
		remoteCompany("co-1", "Remote", now),
	}
	_, err := f.coord.Sync(context.Background())
	assert.NoError(t, err)

	pending, _ := f.coord.PendingConflicts(context.Background())
	resolved, err := f.coord.ResolveConflict(context.Background(), pending[0].ID, models.ConflictChoiceRemote)

	assert.NoError(t, err)
	assert.Equal(t, models.ConflictStatusResolved, resolved.Status)
	assert.Equal(t, models.ConflictChoiceRemote, *resolved.Resolution)
	assert.Equal(t, "Remote", f.companies.companies["co-1"].Name)
}

func TestResolveConflictLocalQueuesForPush(t *testing.T) {
	f := newTestFixture(config.StrategyManual)
	now := time.Now()

	f.companies.companies["co-1"] = &models.Company{ID: "co-1", Name: "Local", UpdatedAt: now.Add(-time.Hour)}
	f.queue.add(models.SyncActionInsert, services.TableContracts, "ct-1", `{}`)
	f.remote.pulls[services.TableCompanies] = []RemoteRecord{
		remoteCompany("co-1", "Remote", now),
	}
	_, err := f.coord.Sync(context.Background())
	assert.NoError(t, err)

	pending, _ := f.coord.PendingConflicts(context.Background())
	_, err = f.coord.ResolveConflict(context.Background(), pending[0].ID, models.ConflictChoiceLocal)
	assert.NoError(t, err)

	// Local state stands and its snapshot is queued so the backend converges
	assert.Equal(t, "Local", f.companies.companies["co-1"].Name)
	last := f.queue.items[len(f.queue.items)-1]
	assert.Equal(t, models.SyncActionUpdate, last.Action)
	assert.Equal(t, services.TableCompanies, last.Table)
	assert.Equal(t, "co-1", last.RecordID)

	// A settled conflict cannot be resolved twice
	_, err = f.coord.ResolveConflict(context.Background(), pending[0].ID, models.ConflictChoiceLocal)
	assert.ErrorIs(t, err, services.ErrInvalidState)
}

func TestResolveConflictRejectsUnknownChoice(t *testing.T) {
	f := newTestFixture(config.StrategyManual)
	_ = f.conflicts.Create(context.Background(), &models.SyncConflict{
		Table:    services.TableCompanies,
		RecordID: "co-1",
		Status:   models.ConflictStatusPending,
	})

	_, err := f.coord.ResolveConflict(context.Background(), 1, "merge")
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = f.coord.ResolveConflict(context.Background(), 404, models.ConflictChoiceLocal)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestSetOnlineSchedulesDebouncedSync(t *testing.T) {
	f := newTestFixture(config.StrategyLastWriteWins)
	f.queue.add(models.SyncActionInsert, services.TableCompanies, "co-1", `{}`)

	f.coord.SetOnline(true)
	defer f.coord.Stop()

	assert.Eventually(t, func() bool {
		pending, _ := f.queue.CountPending(context.Background())
		return pending == 0
	}, time.Second, 5*time.Millisecond)

	assert.True(t, f.coord.Online())
}

func TestSetOnlineRunsSyncOnWorkerPool(t *testing.T) {
	f := newTestFixture(config.StrategyLastWriteWins)
	f.queue.add(models.SyncActionInsert, services.TableCompanies, "co-1", `{}`)

	pool := jobs.NewWorker(1)
	f.coord.SetRunner(pool)

	f.coord.SetOnline(true)
	defer f.coord.Stop()

	assert.Eventually(t, func() bool {
		pending, _ := f.queue.CountPending(context.Background())
		return pending == 0
	}, time.Second, 5*time.Millisecond)

	// The debounced run went through the pool, not a bare goroutine
	assert.Eventually(t, func() bool {
		return pool.GetStats().FinishedJobs >= 1
	}, time.Second, 5*time.Millisecond)
	pool.Shutdown()
}

func TestSetOfflineCancelsScheduledSync(t *testing.T) {
	f := newTestFixture(config.StrategyLastWriteWins)
	f.cfg.SyncDebounce = 50 * time.Millisecond
	f.queue.add(models.SyncActionInsert, services.TableCompanies, "co-1", `{}`)

	f.coord.SetOnline(true)
	f.coord.SetOnline(false)

	time.Sleep(100 * time.Millisecond)
	pending, _ := f.queue.CountPending(context.Background())
	assert.Equal(t, int64(1), pending)
	assert.False(t, f.coord.Online())
}
