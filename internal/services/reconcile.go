package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"financas/internal/core"
	"financas/internal/ledger"
)

// Reconciler settles obligations: it flips paid flags and, when the user
// confirms an obligation that was never materialized, generates and settles
// it in one step.
type Reconciler struct {
	store *ledger.Store
}

func NewReconciler(store *ledger.Store) *Reconciler {
	return &Reconciler{store: store}
}

// SetPaid flips the paid flag on a transaction. An unknown id is a silent
// no-op; flipping to the current value writes nothing.
func (r *Reconciler) SetPaid(ctx context.Context, transactionID string, value bool) error {
	err := r.store.Update(ctx, func(st *ledger.State) error {
		t := st.FindTransaction(transactionID)
		if t == nil || t.IsPaid == value {
			return errNoop
		}
		t.IsPaid = value
		return nil
	})
	return ignoreNoop(err)
}

// PayRecurring confirms payment of a recurring obligation. If an unpaid
// instance exists (by construction at most one at a time) it is flipped in
// place; otherwise a new instance for today's month is synthesized already
// settled, so a confirmed obligation never leaves a duplicate unpaid row
// behind. Returns nil for an unknown definition.
func (r *Reconciler) PayRecurring(ctx context.Context, definitionID string, today time.Time) (*core.Transaction, error) {
	var result *core.Transaction
	err := r.store.Update(ctx, func(st *ledger.State) error {
		rec := st.FindRecurring(definitionID)
		if rec == nil {
			return errNoop
		}

		for i := range st.Transactions {
			t := &st.Transactions[i]
			if t.RecurringID == definitionID && !t.IsPaid {
				t.IsPaid = true
				settled := *t
				result = &settled
				return nil
			}
		}

		// No unpaid instance. If this month's instance exists it is already
		// settled; confirming again must not add a duplicate row.
		if st.HasGenerated(definitionID, core.MonthKey(today.Year(), int(today.Month()))) {
			return errNoop
		}

		created := core.Transaction{
			ID:          uuid.NewString(),
			RecurringID: rec.ID,
			Type:        rec.Type,
			Description: rec.Description,
			IsPaid:      true, // born settled, skipping the unsettled state
			AmountCents: rec.AmountCents,
			Date:        core.DateString(today.Year(), int(today.Month()), rec.DayOfMonth),
			Category:    rec.Category,
			AccountID:   rec.AccountID,
			Note:        noteManuallyPaid,
		}
		st.Transactions = append(st.Transactions, created)
		result = &created
		return nil
	})
	if err := ignoreNoop(err); err != nil {
		return result, err
	}
	if result != nil {
		slog.InfoContext(ctx, "Recurring obligation settled",
			"recurring_id", definitionID,
			"transaction_id", result.ID,
			"amount_cents", result.AmountCents)
	}
	return result, nil
}
