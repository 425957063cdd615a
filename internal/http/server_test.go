package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"financas/internal/core"
	"financas/internal/ledger"
	"financas/internal/services"
	"financas/internal/storage"
)

var testNow = time.Date(2025, 2, 20, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, seed func(st *ledger.State)) *Server {
	t.Helper()
	store := ledger.Open(context.Background(), storage.NewMemoryKV(0), "financas_v2")
	if seed != nil {
		if err := store.Update(context.Background(), func(st *ledger.State) error {
			seed(st)
			return nil
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	engine := services.NewRecurrenceEngine(store)
	return NewServer(":0",
		store,
		services.NewLedgerService(store, engine),
		services.NewReconciler(store),
		engine,
		Options{Now: func() time.Time { return testNow }},
	)
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, "")
		if rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestCreateTransactionValidationAndSuccess(t *testing.T) {
	srv := newTestServer(t, func(st *ledger.State) {
		st.Accounts = append(st.Accounts, core.Account{ID: "a1", Name: "Carteira"})
	})

	// Wrong method
	rr := doJSON(t, srv, http.MethodPut, "/api/transactions", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	// Invalid amount
	rr = doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"expense","description":"x","amount":"abc","date":"2025-02-10","category":"Contas","accountId":"a1"}`)
	if rr.Code != 422 {
		t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
	}

	// Unknown account
	rr = doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"expense","description":"x","amount":"12,34","date":"2025-02-10","category":"Contas","accountId":"nope"}`)
	if rr.Code != 422 {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	// Success with decimal amount
	rr = doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"expense","description":"Mercado","amount":"12,34","date":"2025-02-10","category":"Mercado","accountId":"a1"}`)
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var txn core.Transaction
	if err := json.Unmarshal(rr.Body.Bytes(), &txn); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if txn.AmountCents != 1234 || !txn.IsPaid {
		t.Fatalf("unexpected transaction: %+v", txn)
	}
}

func TestListTransactionsFiltersByMonth(t *testing.T) {
	srv := newTestServer(t, func(st *ledger.State) {
		st.Accounts = append(st.Accounts, core.Account{ID: "a1", Name: "Carteira"})
		st.Transactions = append(st.Transactions,
			core.Transaction{ID: "t1", Type: core.Expense, Description: "a", IsPaid: true, AmountCents: 1, Date: "2025-02-10", Category: "Contas", AccountID: "a1"},
			core.Transaction{ID: "t2", Type: core.Expense, Description: "b", IsPaid: true, AmountCents: 1, Date: "2025-03-10", Category: "Contas", AccountID: "a1"},
		)
	})
	rr := doJSON(t, srv, http.MethodGet, "/api/transactions?year=2025&month=2", "")
	if rr.Code != 200 {
		t.Fatalf("status=%d", rr.Code)
	}
	var out []core.Transaction
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].ID != "t1" {
		t.Fatalf("month filter wrong: %+v", out)
	}
}

func TestAccountsWithBalances(t *testing.T) {
	srv := newTestServer(t, func(st *ledger.State) {
		st.Accounts = append(st.Accounts, core.Account{ID: "a1", Name: "Carteira", InitialBalanceCents: 1000})
		st.Transactions = append(st.Transactions,
			core.Transaction{ID: "t1", Type: core.Income, Description: "x", IsPaid: true, AmountCents: 500, Date: "2025-01-05", Category: "Salário", AccountID: "a1"},
		)
	})
	rr := doJSON(t, srv, http.MethodGet, "/api/accounts", "")
	var out []accountView
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].BalanceCents != 1500 {
		t.Fatalf("balances wrong: %+v", out)
	}
}

func TestTransferRejectsSameAccount(t *testing.T) {
	srv := newTestServer(t, func(st *ledger.State) {
		st.Accounts = append(st.Accounts, core.Account{ID: "a1", Name: "Carteira"})
	})
	rr := doJSON(t, srv, http.MethodPost, "/api/transfers",
		`{"fromAccountId":"a1","toAccountId":"a1","amountCents":100,"date":"2025-02-14"}`)
	if rr.Code != 422 {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}

func TestPayRecurringEndpoint(t *testing.T) {
	srv := newTestServer(t, func(st *ledger.State) {
		st.Accounts = append(st.Accounts, core.Account{ID: "a1", Name: "Carteira"})
		st.RecurringTransactions = append(st.RecurringTransactions, core.RecurringDefinition{
			ID: "r1", Description: "Internet", AmountCents: 9990, AccountID: "a1",
			Category: "Contas", Type: core.Expense, InstallmentType: core.Fixed, DayOfMonth: 10,
		})
	})

	rr := doJSON(t, srv, http.MethodPost, "/api/recurring/pay", `{"id":"r1"}`)
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var txn core.Transaction
	if err := json.Unmarshal(rr.Body.Bytes(), &txn); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !txn.IsPaid || txn.Date != "2025-02-10" {
		t.Fatalf("unexpected settle: %+v", txn)
	}

	// Second confirmation in the same month has nothing to do.
	rr = doJSON(t, srv, http.MethodPost, "/api/recurring/pay", `{"id":"r1"}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestMaterializeAndSummary(t *testing.T) {
	srv := newTestServer(t, func(st *ledger.State) {
		st.Accounts = append(st.Accounts, core.Account{ID: "a1", Name: "Carteira"})
		st.RecurringTransactions = append(st.RecurringTransactions, core.RecurringDefinition{
			ID: "r1", Description: "Internet", AmountCents: 9990, AccountID: "a1",
			Category: "Contas", Type: core.Expense, InstallmentType: core.Fixed, DayOfMonth: 10,
		})
		st.Transactions = append(st.Transactions, core.Transaction{
			ID: "t1", Type: core.Income, Description: "Salário", IsPaid: true,
			AmountCents: 500000, Date: "2025-03-05", Category: "Salário", AccountID: "a1",
		})
	})

	rr := doJSON(t, srv, http.MethodPost, "/api/months/materialize?year=2025&month=3", "")
	if rr.Code != 200 {
		t.Fatalf("materialize status=%d", rr.Code)
	}
	var result map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result["created"] != float64(1) {
		t.Fatalf("created = %v", result["created"])
	}

	// Generated obligation is unsettled, so the summary only sees income.
	rr = doJSON(t, srv, http.MethodGet, "/api/reports/summary?year=2025&month=3", "")
	var sum struct {
		IncomeCents  int64 `json:"incomeCents"`
		ExpenseCents int64 `json:"expenseCents"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.IncomeCents != 500000 || sum.ExpenseCents != 0 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestSummaryCacheInvalidatedByMutation(t *testing.T) {
	srv := newTestServer(t, func(st *ledger.State) {
		st.Accounts = append(st.Accounts, core.Account{ID: "a1", Name: "Carteira"})
	})

	rr := doJSON(t, srv, http.MethodGet, "/api/reports/summary?year=2025&month=2", "")
	var before struct {
		ExpenseCents int64 `json:"expenseCents"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &before)
	if before.ExpenseCents != 0 {
		t.Fatalf("expected empty summary")
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"expense","description":"Mercado","amountCents":500,"date":"2025-02-10","category":"Mercado","accountId":"a1"}`)
	if rr.Code != 200 {
		t.Fatalf("create status=%d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/reports/summary?year=2025&month=2", "")
	var after struct {
		ExpenseCents int64 `json:"expenseCents"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &after)
	if after.ExpenseCents != 500 {
		t.Fatalf("stale summary after mutation: %+v", after)
	}
}

func TestCategoriesDuplicateRejected(t *testing.T) {
	srv := newTestServer(t, nil)
	rr := doJSON(t, srv, http.MethodPost, "/api/categories", `{"type":"expense","name":"Saúde"}`)
	if rr.Code != 200 {
		t.Fatalf("add status=%d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodPost, "/api/categories", `{"type":"expense","name":"Saúde"}`)
	if rr.Code != 422 {
		t.Fatalf("expected 422 for duplicate, got %d", rr.Code)
	}
}

func TestUpcomingEndpoint(t *testing.T) {
	srv := newTestServer(t, func(st *ledger.State) {
		st.Accounts = append(st.Accounts, core.Account{ID: "a1", Name: "Carteira"})
		st.RecurringTransactions = append(st.RecurringTransactions,
			core.RecurringDefinition{ID: "late", Description: "Aluguel", AmountCents: 100, AccountID: "a1",
				Category: "Contas", Type: core.Expense, InstallmentType: core.Fixed, DayOfMonth: 1},
			core.RecurringDefinition{ID: "soon", Description: "Internet", AmountCents: 100, AccountID: "a1",
				Category: "Contas", Type: core.Expense, InstallmentType: core.Fixed, DayOfMonth: 25},
			core.RecurringDefinition{ID: "salary", Description: "Salário", AmountCents: 100, AccountID: "a1",
				Category: "Salário", Type: core.Income, InstallmentType: core.Fixed, DayOfMonth: 5},
		)
	})

	// Default kind is bills; income definitions stay out of it.
	rr := doJSON(t, srv, http.MethodGet, "/api/reports/upcoming", "")
	var out []struct {
		RecurringID string `json:"recurringId"`
		Status      string `json:"status"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[0].RecurringID != "late" || out[0].Status != "overdue" || out[1].Status != "upcoming" {
		t.Fatalf("bills = %+v", out)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/reports/upcoming?kind=income", "")
	out = nil
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].RecurringID != "salary" || out[0].Status != "" {
		t.Fatalf("income = %+v", out)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/reports/upcoming?kind=everything", "")
	if rr.Code != 422 {
		t.Fatalf("expected 422 for unknown kind, got %d", rr.Code)
	}
}

func TestCreateRecurringBadInstallmentTypeIs422(t *testing.T) {
	srv := newTestServer(t, func(st *ledger.State) {
		st.Accounts = append(st.Accounts, core.Account{ID: "a1", Name: "Carteira"})
	})
	rr := doJSON(t, srv, http.MethodPost, "/api/recurring",
		`{"description":"Internet","amountCents":9990,"accountId":"a1","category":"Contas","type":"expense","installmentType":"weekly","dayOfMonth":10}`)
	if rr.Code != 422 {
		t.Fatalf("expected 422 for bad installment type, got %d: %s", rr.Code, rr.Body.String())
	}
}
