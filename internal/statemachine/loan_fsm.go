package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/prestadia/prestadia-api/internal/models"
)

// LoanFSM wraps a loan with its state machine
type LoanFSM struct {
	loan *models.Loan
	fsm  *fsm.FSM
}

// NewLoanFSM creates a new loan state machine
func NewLoanFSM(loan *models.Loan) *LoanFSM {
	lfsm := &LoanFSM{
		loan: loan,
	}

	lfsm.fsm = fsm.NewFSM(
		loan.Status,
		fsm.Events{
			// active → closed
			{Name: "close", Src: []string{models.LoanStatusActive}, Dst: models.LoanStatusClosed},

			// active → cancelled
			{Name: "cancel", Src: []string{models.LoanStatusActive}, Dst: models.LoanStatusCancelled},

			// active → defaulted
			{Name: "default", Src: []string{models.LoanStatusActive}, Dst: models.LoanStatusDefaulted},

			// closed/defaulted → active (reopen)
			{Name: "reopen", Src: []string{models.LoanStatusClosed, models.LoanStatusDefaulted}, Dst: models.LoanStatusActive},
		},
		fsm.Callbacks{},
	)

	return lfsm
}

// Close transitions loan to closed state
func (l *LoanFSM) Close(ctx context.Context) error {
	if !l.loan.MayClose() {
		return fmt.Errorf("loan cannot be closed in current state: %s", l.loan.Status)
	}

	if err := l.fsm.Event(ctx, "close"); err != nil {
		return fmt.Errorf("failed to close loan: %w", err)
	}

	l.loan.Status = l.fsm.Current()
	return nil
}

// Cancel transitions loan to cancelled state
func (l *LoanFSM) Cancel(ctx context.Context) error {
	if !l.loan.MayCancel() {
		return fmt.Errorf("loan cannot be cancelled in current state: %s", l.loan.Status)
	}

	if err := l.fsm.Event(ctx, "cancel"); err != nil {
		return fmt.Errorf("failed to cancel loan: %w", err)
	}

	l.loan.Status = l.fsm.Current()
	return nil
}

// Default transitions loan to defaulted state
func (l *LoanFSM) Default(ctx context.Context) error {
	if !l.loan.MayDefault() {
		return fmt.Errorf("loan cannot be defaulted in current state: %s", l.loan.Status)
	}

	if err := l.fsm.Event(ctx, "default"); err != nil {
		return fmt.Errorf("failed to default loan: %w", err)
	}

	l.loan.Status = l.fsm.Current()
	return nil
}

// Reopen transitions loan back to active state
func (l *LoanFSM) Reopen(ctx context.Context) error {
	if !l.loan.MayReopen() {
		return fmt.Errorf("loan cannot be reopened in current state: %s", l.loan.Status)
	}

	if err := l.fsm.Event(ctx, "reopen"); err != nil {
		return fmt.Errorf("failed to reopen loan: %w", err)
	}

	l.loan.Status = l.fsm.Current()
	return nil
}

// Current returns the current state
func (l *LoanFSM) Current() string {
	return l.fsm.Current()
}

// Can checks if a transition is possible
func (l *LoanFSM) Can(event string) bool {
	return l.fsm.Can(event)
}
