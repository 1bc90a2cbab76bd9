package statemachine

import (
	"context"
	"testing"

	"github.com/certia/certia-core/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestSyncFSMFullCycle(t *testing.T) {
	ctx := context.Background()
	s := NewSyncFSM()

	assert.Equal(t, SyncStateIdle, s.Current())
	assert.True(t, s.CanStart())

	assert.NoError(t, s.Start(ctx))
	assert.Equal(t, SyncStateSyncing, s.Current())

	assert.NoError(t, s.Succeed(ctx))
	assert.Equal(t, SyncStateSuccess, s.Current())

	assert.NoError(t, s.Reset(ctx))
	assert.Equal(t, SyncStateIdle, s.Current())
}

func TestSyncFSMFailurePath(t *testing.T) {
	ctx := context.Background()
	s := NewSyncFSM()

	assert.NoError(t, s.Start(ctx))
	assert.NoError(t, s.Fail(ctx))
	assert.Equal(t, SyncStateError, s.Current())

	assert.NoError(t, s.Reset(ctx))
	assert.Equal(t, SyncStateIdle, s.Current())
}

func TestSyncFSMStartIsNotReentrant(t *testing.T) {
	ctx := context.Background()
	s := NewSyncFSM()

	assert.NoError(t, s.Start(ctx))
	assert.False(t, s.CanStart())
	assert.Error(t, s.Start(ctx))
	assert.Equal(t, SyncStateSyncing, s.Current())
}

func TestSyncFSMResetRequiresTerminalState(t *testing.T) {
	ctx := context.Background()
	s := NewSyncFSM()

	assert.Error(t, s.Reset(ctx))
	assert.NoError(t, s.Start(ctx))
	assert.Error(t, s.Reset(ctx))
}

func TestPaymentFSMComplete(t *testing.T) {
	ctx := context.Background()
	payment := &models.Payment{Status: models.PaymentStatusPending}

	pfsm := NewPaymentFSM(payment)
	assert.NoError(t, pfsm.Complete(ctx))
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)

	// A completed payment cannot complete again
	assert.Error(t, NewPaymentFSM(payment).Complete(ctx))
}

func TestPaymentFSMCancelFromBothLiveStates(t *testing.T) {
	ctx := context.Background()

	pending := &models.Payment{Status: models.PaymentStatusPending}
	assert.NoError(t, NewPaymentFSM(pending).Cancel(ctx))
	assert.Equal(t, models.PaymentStatusCancelled, pending.Status)

	completed := &models.Payment{Status: models.PaymentStatusCompleted}
	assert.NoError(t, NewPaymentFSM(completed).Cancel(ctx))
	assert.Equal(t, models.PaymentStatusCancelled, completed.Status)

	assert.Error(t, NewPaymentFSM(completed).Cancel(ctx))
}
