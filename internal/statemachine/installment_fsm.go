package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/prestadia/prestadia-api/internal/models"
)

// InstallmentFSM wraps an installment with its state machine
type InstallmentFSM struct {
	installment *models.Installment
	fsm         *fsm.FSM
}

// NewInstallmentFSM creates a new installment state machine
func NewInstallmentFSM(installment *models.Installment) *InstallmentFSM {
	ifsm := &InstallmentFSM{
		installment: installment,
	}

	ifsm.fsm = fsm.NewFSM(
		installment.Status,
		fsm.Events{
			// pending → partial (payment covers part of the quota)
			{Name: "apply_partial", Src: []string{models.InstallmentStatusPending}, Dst: models.InstallmentStatusPartial},

			// pending/partial → paid
			{Name: "settle", Src: []string{models.InstallmentStatusPending, models.InstallmentStatusPartial}, Dst: models.InstallmentStatusPaid},

			// paid → partial (undo when prior payments remain)
			{Name: "reopen", Src: []string{models.InstallmentStatusPaid}, Dst: models.InstallmentStatusPartial},

			// paid/partial → pending (undo back to untouched)
			{Name: "revert", Src: []string{models.InstallmentStatusPaid, models.InstallmentStatusPartial}, Dst: models.InstallmentStatusPending},
		},
		fsm.Callbacks{},
	)

	return ifsm
}

// ApplyPartial transitions the installment to partial state
func (i *InstallmentFSM) ApplyPartial(ctx context.Context) error {
	if !i.installment.MayApplyPayment() {
		return fmt.Errorf("installment cannot receive a payment in current state: %s", i.installment.Status)
	}

	// A payment on an already-partial installment keeps the state.
	if i.installment.Status == models.InstallmentStatusPartial {
		return nil
	}

	if err := i.fsm.Event(ctx, "apply_partial"); err != nil {
		return fmt.Errorf("failed to apply partial payment: %w", err)
	}

	i.installment.Status = i.fsm.Current()
	return nil
}

// Settle transitions the installment to paid state
func (i *InstallmentFSM) Settle(ctx context.Context) error {
	if !i.installment.MayApplyPayment() {
		return fmt.Errorf("installment cannot be settled in current state: %s", i.installment.Status)
	}

	if err := i.fsm.Event(ctx, "settle"); err != nil {
		return fmt.Errorf("failed to settle installment: %w", err)
	}

	i.installment.Status = i.fsm.Current()
	return nil
}

// Reopen transitions a paid installment back to partial
func (i *InstallmentFSM) Reopen(ctx context.Context) error {
	if !i.installment.MayUndo() {
		return fmt.Errorf("installment cannot be reopened in current state: %s", i.installment.Status)
	}

	if err := i.fsm.Event(ctx, "reopen"); err != nil {
		return fmt.Errorf("failed to reopen installment: %w", err)
	}

	i.installment.Status = i.fsm.Current()
	return nil
}

// Revert transitions the installment back to pending
func (i *InstallmentFSM) Revert(ctx context.Context) error {
	if !i.installment.MayUndo() {
		return fmt.Errorf("installment cannot be reverted in current state: %s", i.installment.Status)
	}

	if err := i.fsm.Event(ctx, "revert"); err != nil {
		return fmt.Errorf("failed to revert installment: %w", err)
	}

	i.installment.Status = i.fsm.Current()
	return nil
}

// Current returns the current state
func (i *InstallmentFSM) Current() string {
	return i.fsm.Current()
}

// Can checks if a transition is possible
func (i *InstallmentFSM) Can(event string) bool {
	return i.fsm.Can(event)
}
