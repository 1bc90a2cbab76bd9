package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// Sync coordinator states
const (
	SyncStateIdle    = "idle"
	SyncStateSyncing = "syncing"
	SyncStateSuccess = "success"
	SyncStateError   = "error"
)

// SyncFSM models the coordinator lifecycle: idle → syncing → success|error
// → idle. A start event is only legal from idle, which is what makes sync
// runs non-reentrant.
type SyncFSM struct {
	fsm *fsm.FSM
}

// NewSyncFSM creates a coordinator state machine starting at idle
func NewSyncFSM() *SyncFSM {
	s := &SyncFSM{}

	s.fsm = fsm.NewFSM(
		SyncStateIdle,
		fsm.Events{
			// idle → syncing
			{Name: "start", Src: []string{SyncStateIdle}, Dst: SyncStateSyncing},

			// syncing → success
			{Name: "succeed", Src: []string{SyncStateSyncing}, Dst: SyncStateSuccess},

			// syncing → error
			{Name: "fail", Src: []string{SyncStateSyncing}, Dst: SyncStateError},

			// success/error → idle
			{Name: "reset", Src: []string{SyncStateSuccess, SyncStateError}, Dst: SyncStateIdle},
		},
		fsm.Callbacks{},
	)

	return s
}

// Start transitions to syncing; it fails if a run is already in flight
func (s *SyncFSM) Start(ctx context.Context) error {
	if err := s.fsm.Event(ctx, "start"); err != nil {
		return fmt.Errorf("cannot start sync in state %s: %w", s.fsm.Current(), err)
	}
	return nil
}

// Succeed transitions the run to success
func (s *SyncFSM) Succeed(ctx context.Context) error {
	if err := s.fsm.Event(ctx, "succeed"); err != nil {
		return fmt.Errorf("cannot mark sync success: %w", err)
	}
	return nil
}

// Fail transitions the run to error
func (s *SyncFSM) Fail(ctx context.Context) error {
	if err := s.fsm.Event(ctx, "fail"); err != nil {
		return fmt.Errorf("cannot mark sync error: %w", err)
	}
	return nil
}

// Reset returns to idle after a terminal run state
func (s *SyncFSM) Reset(ctx context.Context) error {
	if err := s.fsm.Event(ctx, "reset"); err != nil {
		return fmt.Errorf("cannot reset sync state: %w", err)
	}
	return nil
}

// Current returns the current state
func (s *SyncFSM) Current() string {
	return s.fsm.Current()
}

// CanStart reports whether a new run may begin
func (s *SyncFSM) CanStart() bool {
	return s.fsm.Can("start")
}
