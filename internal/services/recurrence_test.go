package services

import (
	"context"
	"strings"
	"testing"

	"financas/internal/core"
	"financas/internal/ledger"
	"financas/internal/storage"
)

func newTestStore(t *testing.T, seed func(st *ledger.State)) *ledger.Store {
	t.Helper()
	s := ledger.Open(context.Background(), storage.NewMemoryKV(0), "financas_v2")
	if seed != nil {
		if err := s.Update(context.Background(), func(st *ledger.State) error {
			seed(st)
			return nil
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return s
}

func testAccount() core.Account {
	return core.Account{ID: "acc1", Name: "Carteira"}
}

func fixedExpenseDef(id string, day int) core.RecurringDefinition {
	return core.RecurringDefinition{
		ID: id, Description: "Internet", AmountCents: 9990, AccountID: "acc1",
		Category: "Contas", Type: core.Expense, InstallmentType: core.Fixed, DayOfMonth: day,
	}
}

func TestDueTransactionsFixedExpenseAlwaysDue(t *testing.T) {
	defs := []core.RecurringDefinition{fixedExpenseDef("r1", 10)}
	due := DueTransactions(defs, nil, 2025, 2)
	if len(due) != 1 {
		t.Fatalf("expected 1 due, got %d", len(due))
	}
	got := due[0]
	if got.RecurringID != "r1" || got.IsPaid || got.Date != "2025-02-10" {
		t.Fatalf("unexpected transaction: %+v", got)
	}
	if got.Note != "Gerado automaticamente" {
		t.Fatalf("note = %q", got.Note)
	}
}

func TestDueTransactionsInstallmentWindow(t *testing.T) {
	defs := []core.RecurringDefinition{{
		ID: "r1", Description: "Sofá", AmountCents: 30000, AccountID: "acc1",
		Category: "Lazer", Type: core.Expense, InstallmentType: core.Installment,
		DayOfMonth: 5, TotalInstallments: 3, StartDate: "2024-01",
	}}
	cases := []struct {
		year, month int
		due         bool
		description string
	}{
		{2023, 12, false, ""},
		{2024, 1, true, "Sofá (1/3)"},
		{2024, 2, true, "Sofá (2/3)"},
		{2024, 3, true, "Sofá (3/3)"},
		{2024, 4, false, ""},
		{2025, 1, false, ""},
	}
	for _, tc := range cases {
		got := DueTransactions(defs, nil, tc.year, tc.month)
		if tc.due != (len(got) == 1) {
			t.Fatalf("%04d-%02d: due = %v, want %v", tc.year, tc.month, len(got) == 1, tc.due)
		}
		if tc.due && got[0].Description != tc.description {
			t.Fatalf("%04d-%02d: description = %q, want %q", tc.year, tc.month, got[0].Description, tc.description)
		}
	}
}

func TestDueTransactionsIncomeSkippedWhenDayPastMonthEnd(t *testing.T) {
	defs := []core.RecurringDefinition{{
		ID: "r1", Description: "Salário", AmountCents: 500000, AccountID: "acc1",
		Category: "Salário", Type: core.Income, InstallmentType: core.Fixed, DayOfMonth: 31,
	}}
	if got := DueTransactions(defs, nil, 2025, 4); len(got) != 0 {
		t.Fatalf("income on day 31 must be skipped in April, got %+v", got)
	}
	got := DueTransactions(defs, nil, 2025, 5)
	if len(got) != 1 || got[0].Date != "2025-05-31" {
		t.Fatalf("expected income due in May, got %+v", got)
	}
	if got[0].Note != "Receita recorrente gerada" {
		t.Fatalf("note = %q", got[0].Note)
	}
}

func TestDueTransactionsExpenseKeepsOutOfRangeDate(t *testing.T) {
	// A fixed expense on day 31 still materializes in a 30-day month, with
	// the date kept exactly as written.
	defs := []core.RecurringDefinition{fixedExpenseDef("r1", 31)}
	got := DueTransactions(defs, nil, 2025, 4)
	if len(got) != 1 || got[0].Date != "2025-04-31" {
		t.Fatalf("expected literal 2025-04-31, got %+v", got)
	}
	if !core.InMonth(got[0].Date, 2025, 4) {
		t.Fatalf("generated date must still match its month")
	}
}

func TestMaterializeMonthIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, func(st *ledger.State) {
		st.Accounts = append(st.Accounts, testAccount())
		st.RecurringTransactions = append(st.RecurringTransactions, fixedExpenseDef("r1", 10))
	})
	engine := NewRecurrenceEngine(s)

	created, err := engine.MaterializeMonth(ctx, 2025, 3)
	if err != nil || created != 1 {
		t.Fatalf("first run: created=%d err=%v", created, err)
	}
	created, err = engine.MaterializeMonth(ctx, 2025, 3)
	if err != nil || created != 0 {
		t.Fatalf("second run must be a no-op: created=%d err=%v", created, err)
	}
	if got := len(s.Snapshot().Transactions); got != 1 {
		t.Fatalf("transactions = %d, want 1", got)
	}
}

func TestMaterializeMonthSkipsPaidInstance(t *testing.T) {
	// A settled instance for the month blocks regeneration the same way an
	// unsettled one does.
	ctx := context.Background()
	s := newTestStore(t, func(st *ledger.State) {
		st.Accounts = append(st.Accounts, testAccount())
		st.RecurringTransactions = append(st.RecurringTransactions, fixedExpenseDef("r1", 10))
		st.Transactions = append(st.Transactions, core.Transaction{
			ID: "t1", RecurringID: "r1", Type: core.Expense, Description: "Internet",
			IsPaid: true, AmountCents: 9990, Date: "2025-03-10", Category: "Contas", AccountID: "acc1",
		})
	})
	engine := NewRecurrenceEngine(s)
	if created, err := engine.MaterializeMonth(ctx, 2025, 3); err != nil || created != 0 {
		t.Fatalf("created=%d err=%v", created, err)
	}
}

func TestMaterializeMonthMixedDefinitions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, func(st *ledger.State) {
		st.Accounts = append(st.Accounts, testAccount())
		st.RecurringTransactions = append(st.RecurringTransactions,
			fixedExpenseDef("r1", 10),
			core.RecurringDefinition{
				ID: "r2", Description: "Notebook", AmountCents: 120000, AccountID: "acc1",
				Category: "Lazer", Type: core.Expense, InstallmentType: core.Installment,
				DayOfMonth: 15, TotalInstallments: 12, StartDate: "2024-06",
			},
			core.RecurringDefinition{
				ID: "r3", Description: "Salário", AmountCents: 500000, AccountID: "acc1",
				Category: "Salário", Type: core.Income, InstallmentType: core.Fixed, DayOfMonth: 5,
			},
		)
	})
	engine := NewRecurrenceEngine(s)
	created, err := engine.MaterializeMonth(ctx, 2024, 7)
	if err != nil || created != 3 {
		t.Fatalf("created=%d err=%v", created, err)
	}
	for _, txn := range s.Snapshot().Transactions {
		if txn.RecurringID == "r2" && !strings.HasSuffix(txn.Description, "(2/12)") {
			t.Fatalf("installment description = %q", txn.Description)
		}
		if txn.IsPaid {
			t.Fatalf("generated transactions must start unsettled: %+v", txn)
		}
	}
}
