package ledger

import (
	"testing"

	"financas/internal/core"
)

func TestHasGeneratedMatchesOnMonthPrefix(t *testing.T) {
	st := DefaultState()
	st.Transactions = append(st.Transactions,
		core.Transaction{ID: "t1", RecurringID: "r1", Type: core.Expense, Description: "x",
			AmountCents: 100, Date: "2025-02-10", Category: "Contas", AccountID: "a1"},
		core.Transaction{ID: "t2", RecurringID: "r2", Type: core.Expense, Description: "y",
			AmountCents: 100, Date: "2025-04-31", Category: "Contas", AccountID: "a1"},
	)

	cases := []struct {
		name        string
		recurringID string
		monthKey    string
		want        bool
	}{
		{"instance in month", "r1", "2025-02", true},
		{"same definition other month", "r1", "2025-03", false},
		{"other definition same month", "r2", "2025-02", false},
		{"out-of-range day still in its month", "r2", "2025-04", true},
		{"unknown definition", "r3", "2025-02", false},
	}
	for _, tc := range cases {
		if got := st.HasGenerated(tc.recurringID, tc.monthKey); got != tc.want {
			t.Fatalf("%s: HasGenerated(%q, %q) = %v, want %v",
				tc.name, tc.recurringID, tc.monthKey, got, tc.want)
		}
	}
}

func TestHasGeneratedIgnoresPaidFlag(t *testing.T) {
	// The lookup answers "does an instance exist", settled or not; the paid
	// flag never re-opens a month for generation.
	st := DefaultState()
	st.Transactions = append(st.Transactions, core.Transaction{
		ID: "t1", RecurringID: "r1", Type: core.Expense, Description: "x", IsPaid: true,
		AmountCents: 100, Date: "2025-02-10", Category: "Contas", AccountID: "a1",
	})
	if !st.HasGenerated("r1", "2025-02") {
		t.Fatalf("settled instance must still count as generated")
	}
}
