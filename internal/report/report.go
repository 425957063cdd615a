// Package report computes read-side aggregates over a ledger snapshot.
// Every function here is pure: it takes the data it needs and mutates
// nothing, so callers can run them over a Snapshot without locking.
package report

import (
	"sort"
	"time"

	"financas/internal/core"
)

// Summary is the income/expense picture of a single month. Only settled
// transactions count; an unsettled obligation has not moved money yet.
type Summary struct {
	IncomeCents  int64 `json:"incomeCents"`
	ExpenseCents int64 `json:"expenseCents"`
	BalanceCents int64 `json:"balanceCents"`
}

// MonthSummary totals the settled transactions of a month.
func MonthSummary(transactions []core.Transaction, year, month int) Summary {
	var s Summary
	for i := range transactions {
		t := &transactions[i]
		if !t.IsPaid || !core.InMonth(t.Date, year, month) {
			continue
		}
		if t.Type == core.Income {
			s.IncomeCents += t.AmountCents
		} else {
			s.ExpenseCents += t.AmountCents
		}
	}
	s.BalanceCents = s.IncomeCents - s.ExpenseCents
	return s
}

// AccountBalance is the account's initial balance plus every settled
// transaction it has ever seen, across all months.
func AccountBalance(account core.Account, transactions []core.Transaction) int64 {
	balance := account.InitialBalanceCents
	for i := range transactions {
		t := &transactions[i]
		if !t.IsPaid || t.AccountID != account.ID {
			continue
		}
		if t.Type == core.Income {
			balance += t.AmountCents
		} else {
			balance -= t.AmountCents
		}
	}
	return balance
}

// CategoryBreakdown sums the month's settled expenses per category.
// Categories with no spend are absent from the result.
func CategoryBreakdown(transactions []core.Transaction, year, month int) map[string]int64 {
	out := make(map[string]int64)
	for i := range transactions {
		t := &transactions[i]
		if !t.IsPaid || t.Type != core.Expense || !core.InMonth(t.Date, year, month) {
			continue
		}
		out[t.Category] += t.AmountCents
	}
	return out
}

// MonthTotals is one month's slot in the annual rollup.
type MonthTotals struct {
	IncomeCents  int64 `json:"incomeCents"`
	ExpenseCents int64 `json:"expenseCents"`
}

// AnnualRollup is the per-month series plus year totals. Each settled
// transaction contributes to exactly one month slot and once to the totals.
type AnnualRollup struct {
	Months            [12]MonthTotals `json:"months"`
	TotalIncomeCents  int64           `json:"totalIncomeCents"`
	TotalExpenseCents int64           `json:"totalExpenseCents"`
	BalanceCents      int64           `json:"balanceCents"`
}

// Annual rolls the year's settled transactions into twelve month slots.
func Annual(transactions []core.Transaction, year int) AnnualRollup {
	var r AnnualRollup
	for i := range transactions {
		t := &transactions[i]
		if !t.IsPaid {
			continue
		}
		y, m, _, ok := core.SplitDate(t.Date)
		if !ok || y != year {
			continue
		}
		slot := &r.Months[m-1]
		if t.Type == core.Income {
			slot.IncomeCents += t.AmountCents
			r.TotalIncomeCents += t.AmountCents
		} else {
			slot.ExpenseCents += t.AmountCents
			r.TotalExpenseCents += t.AmountCents
		}
	}
	r.BalanceCents = r.TotalIncomeCents - r.TotalExpenseCents
	return r
}

// ObligationKind selects which definitions the upcoming view lists.
type ObligationKind string

const (
	KindBills  ObligationKind = "bills"
	KindIncome ObligationKind = "income"
)

// ObligationStatus classifies an unsettled bill relative to today.
type ObligationStatus string

const (
	StatusOverdue  ObligationStatus = "overdue"
	StatusUpcoming ObligationStatus = "upcoming"
)

// Obligation is one row of the upcoming view: a recurring definition still
// unsettled in today's month, with its due date and display amount.
type Obligation struct {
	RecurringID string           `json:"recurringId"`
	Description string           `json:"description"`
	AmountCents int64            `json:"amountCents"`
	AmountBRL   string           `json:"amountBRL"`
	DueDate     string           `json:"dueDate"`
	Category    string           `json:"category"`
	AccountID   string           `json:"accountId"`
	Status      ObligationStatus `json:"status,omitempty"`
}

// Upcoming lists the recurring definitions of the requested kind that have
// no settled instance in today's month. The instance itself may be missing
// entirely; what matters is that nothing was paid yet. Bills are overdue
// when due before today and upcoming when due within the next seven days,
// further out they are dropped. Income is listed whenever it has not been
// received, with no window and no status. The due date comes from the
// definition's day in today's month; day overflow rolls into the next month
// here because this is a calendar view, not stored data. Rows come back
// ordered by due date.
func Upcoming(defs []core.RecurringDefinition, transactions []core.Transaction, kind ObligationKind, today time.Time) []Obligation {
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	horizon := today.AddDate(0, 0, 7)
	monthKey := core.MonthKey(today.Year(), int(today.Month()))

	wantType := core.Expense
	if kind == KindIncome {
		wantType = core.Income
	}

	var out []Obligation
	for _, rec := range defs {
		if rec.Type != wantType {
			continue
		}
		if settledThisMonth(transactions, rec.ID, monthKey) {
			continue
		}
		due := time.Date(today.Year(), today.Month(), rec.DayOfMonth, 0, 0, 0, 0, time.UTC)
		var status ObligationStatus
		if kind == KindBills {
			switch {
			case due.Before(today):
				status = StatusOverdue
			case !due.After(horizon):
				status = StatusUpcoming
			default:
				continue
			}
		}
		out = append(out, Obligation{
			RecurringID: rec.ID,
			Description: rec.Description,
			AmountCents: rec.AmountCents,
			AmountBRL:   core.FormatBRL(rec.AmountCents),
			DueDate:     due.Format("2006-01-02"),
			Category:    rec.Category,
			AccountID:   rec.AccountID,
			Status:      status,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate < out[j].DueDate
	})
	return out
}

func settledThisMonth(transactions []core.Transaction, recurringID, monthKey string) bool {
	for i := range transactions {
		t := &transactions[i]
		if t.RecurringID == recurringID && t.IsPaid && len(t.Date) >= 7 && t.Date[:7] == monthKey {
			return true
		}
	}
	return false
}
