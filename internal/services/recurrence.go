// Package services holds the engines that mutate the ledger: recurring
// obligation materialization, paid/unpaid reconciliation, and the command
// handlers behind the presentation boundary.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"financas/internal/core"
	"financas/internal/ledger"
)

// System notes tagging a transaction's origin. These are data, shown to the
// user, and kept in the product's language.
const (
	noteAutoGenerated   = "Gerado automaticamente"
	noteRecurringIncome = "Receita recorrente gerada"
	noteManuallyPaid    = "Marcado como pago manualmente"
	noteTransfer        = "Transferência entre contas"
)

// errNoop marks an update that changed nothing; the store skips the save and
// callers swallow it (operations on missing ids are silent no-ops).
var errNoop = errors.New("no-op")

func ignoreNoop(err error) error {
	if errors.Is(err, errNoop) {
		return nil
	}
	return err
}

// DueTransactions computes the obligations that materialize for a month. It
// is pure: existing transactions are only consulted for the idempotence
// check (at most one instance per definition per month).
func DueTransactions(defs []core.RecurringDefinition, existing []core.Transaction, year, month int) []core.Transaction {
	monthKey := core.MonthKey(year, month)
	var out []core.Transaction
	for _, rec := range defs {
		if hasInstance(existing, rec.ID, monthKey) {
			continue
		}
		due, description := dueThisMonth(rec, year, month)
		if !due {
			continue
		}
		note := noteAutoGenerated
		if rec.Type == core.Income {
			note = noteRecurringIncome
		}
		out = append(out, core.Transaction{
			ID:          uuid.NewString(),
			RecurringID: rec.ID,
			Type:        rec.Type,
			Description: description,
			IsPaid:      false, // generated obligations await explicit confirmation
			AmountCents: rec.AmountCents,
			Date:        core.DateString(year, month, rec.DayOfMonth),
			Category:    rec.Category,
			AccountID:   rec.AccountID,
			Note:        note,
		})
	}
	return out
}

// dueThisMonth applies the per-definition decision rule. The definition type
// picks exactly one branch.
func dueThisMonth(rec core.RecurringDefinition, year, month int) (bool, string) {
	switch {
	case rec.Type == core.Expense && rec.InstallmentType == core.Fixed:
		return true, rec.Description
	case rec.Type == core.Expense && rec.InstallmentType == core.Installment:
		startYear, startMonth, ok := core.SplitMonthKey(rec.StartDate)
		if !ok {
			return false, ""
		}
		monthDiff := (year-startYear)*12 + (month - startMonth)
		if monthDiff < 0 || monthDiff >= rec.TotalInstallments {
			return false, ""
		}
		return true, fmt.Sprintf("%s (%d/%d)", rec.Description, monthDiff+1, rec.TotalInstallments)
	case rec.Type == core.Income && rec.InstallmentType == core.Fixed:
		// An income pegged past the month's end is skipped, not clamped.
		return rec.DayOfMonth <= core.DaysInMonth(year, month), rec.Description
	}
	return false, ""
}

func hasInstance(transactions []core.Transaction, recurringID, monthKey string) bool {
	for i := range transactions {
		t := &transactions[i]
		if t.RecurringID == recurringID && len(t.Date) >= 7 && t.Date[:7] == monthKey {
			return true
		}
	}
	return false
}

// RecurrenceEngine materializes due obligations into the ledger.
type RecurrenceEngine struct {
	store *ledger.Store
}

func NewRecurrenceEngine(store *ledger.Store) *RecurrenceEngine {
	return &RecurrenceEngine{store: store}
}

// MaterializeMonth generates this month's due transactions. Calling it twice
// for the same month never duplicates; existing transactions are never
// mutated.
func (e *RecurrenceEngine) MaterializeMonth(ctx context.Context, year, month int) (int, error) {
	var created int
	err := e.store.Update(ctx, func(st *ledger.State) error {
		due := DueTransactions(st.RecurringTransactions, st.Transactions, year, month)
		if len(due) == 0 {
			return errNoop
		}
		st.Transactions = append(st.Transactions, due...)
		created = len(due)
		return nil
	})
	if err := ignoreNoop(err); err != nil {
		return created, fmt.Errorf("materialize %s: %w", core.MonthKey(year, month), err)
	}
	if created > 0 {
		slog.InfoContext(ctx, "Materialized recurring obligations",
			"month", core.MonthKey(year, month),
			"created", created)
	}
	return created, nil
}
