package statemachine

import (
	"context"
	"fmt"

	"github.com/certia/certia-core/internal/models"
	"github.com/looplab/fsm"
)

// PaymentFSM wraps a payment with its state machine
type PaymentFSM struct {
	payment *models.Payment
	fsm     *fsm.FSM
}

// NewPaymentFSM creates a new payment state machine
func NewPaymentFSM(payment *models.Payment) *PaymentFSM {
	pfsm := &PaymentFSM{
		payment: payment,
	}

	pfsm.fsm = fsm.NewFSM(
		payment.Status,
		fsm.Events{
			// pending → completed (fully distributed)
			{Name: "complete", Src: []string{models.PaymentStatusPending}, Dst: models.PaymentStatusCompleted},

			// pending/completed → cancelled (reversal)
			{Name: "cancel", Src: []string{models.PaymentStatusPending, models.PaymentStatusCompleted}, Dst: models.PaymentStatusCancelled},
		},
		fsm.Callbacks{},
	)

	return pfsm
}

// Complete transitions the payment to completed state
func (p *PaymentFSM) Complete(ctx context.Context) error {
	if !p.payment.MayComplete() {
		return fmt.Errorf("payment cannot be completed in current state: %s", p.payment.Status)
	}

	if err := p.fsm.Event(ctx, "complete"); err != nil {
		return fmt.Errorf("failed to complete payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Cancel transitions the payment to cancelled state
func (p *PaymentFSM) Cancel(ctx context.Context) error {
	if !p.payment.MayCancel() {
		return fmt.Errorf("payment cannot be cancelled in current state: %s", p.payment.Status)
	}

	if err := p.fsm.Event(ctx, "cancel"); err != nil {
		return fmt.Errorf("failed to cancel payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Current returns the current state
func (p *PaymentFSM) Current() string {
	return p.fsm.Current()
}
