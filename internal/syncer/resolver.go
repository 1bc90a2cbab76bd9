package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/certia/certia-core/internal/config"
	"github.com/certia/certia-core/internal/models"
	"github.com/certia/certia-core/internal/repository"
	"github.com/certia/certia-core/internal/services"
	"github.com/certia/certia-core/pkg/logger"
	"gorm.io/gorm"
)

// mergeDecision is what the resolver decided for one pulled record
type mergeDecision int

const (
	decisionKeepLocal mergeDecision = iota
	decisionApplyRemote
	decisionHoldForManual
)

// Resolver decides how a pulled remote record merges with the local version
// under the configured strategy.
type Resolver struct {
	strategy  string
	conflicts repository.ConflictRepository
	merger    *storeMerger
}

// NewResolver creates a resolver for the given strategy
func NewResolver(strategy string, conflicts repository.ConflictRepository, merger *storeMerger) *Resolver {
	return &Resolver{strategy: strategy, conflicts: conflicts, merger: merger}
}

// decide compares both timestamps explicitly. The caller only invokes it
// when the remote version is newer than the local one, but last-write-wins
// still re-checks rather than assuming remote wins.
func (r *Resolver) decide(localUpdatedAt, remoteUpdatedAt time.Time) mergeDecision {
	switch r.strategy {
	case config.StrategyServerWins:
		return decisionApplyRemote
	case config.StrategyManual:
		return decisionHoldForManual
	default: // last-write-wins
		if remoteUpdatedAt.After(localUpdatedAt) {
			return decisionApplyRemote
		}
		return decisionKeepLocal
	}
}

// hold persists a pending conflict carrying both snapshots. Local state is
// left untouched until the conflict is explicitly resolved; a record with a
// conflict already pending is not duplicated.
func (r *Resolver) hold(ctx context.Context, table string, rec RemoteRecord, localSnapshot string) error {
	pending, err := r.conflicts.HasPendingFor(ctx, table, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to check pending conflicts: %w", err)
	}
	if pending {
		return nil
	}

	conflict := &models.SyncConflict{
		Table:          table,
		RecordID:       rec.ID,
		LocalSnapshot:  localSnapshot,
		RemoteSnapshot: string(rec.Payload),
		Status:         models.ConflictStatusPending,
	}
	if err := r.conflicts.Create(ctx, conflict); err != nil {
		return fmt.Errorf("failed to persist conflict: %w", err)
	}

	logger.Warn("sync conflict held for manual resolution", "table", table, "record_id", rec.ID)
	return nil
}

// Resolve settles a pending conflict. Choosing remote applies the remote
// snapshot to the local store; choosing local keeps local state and queues
// it for push so the backend converges on it.
func (r *Resolver) Resolve(ctx context.Context, queue repository.SyncQueueRepository, id uint, choice string) (*models.SyncConflict, error) {
	conflict, err := r.conflicts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load conflict: %w", err)
	}
	if !conflict.IsPending() {
		return nil, fmt.Errorf("%w: conflict already resolved", services.ErrInvalidState)
	}

	switch choice {
	case models.ConflictChoiceRemote:
		rec := RemoteRecord{ID: conflict.RecordID, Payload: json.RawMessage(conflict.RemoteSnapshot)}
		if err := r.merger.apply(ctx, conflict.Table, rec); err != nil {
			return nil, fmt.Errorf("failed to apply remote version: %w", err)
		}
	case models.ConflictChoiceLocal:
		if _, err := queue.Enqueue(ctx, models.SyncActionUpdate, conflict.Table, conflict.RecordID, conflict.LocalSnapshot); err != nil {
			return nil, fmt.Errorf("failed to queue local version for push: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: resolution must be %q or %q", services.ErrValidation, models.ConflictChoiceLocal, models.ConflictChoiceRemote)
	}

	now := time.Now()
	conflict.Status = models.ConflictStatusResolved
	conflict.Resolution = &choice
	conflict.ResolvedAt = &now
	if err := r.conflicts.Update(ctx, conflict); err != nil {
		return nil, fmt.Errorf("failed to mark conflict resolved: %w", err)
	}

	return conflict, nil
}
