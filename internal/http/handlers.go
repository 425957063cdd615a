package http

import (
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"financas/internal/core"
	"financas/internal/report"
	"financas/internal/services"
)

type transactionRequest struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	AmountCents int64  `json:"amountCents"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	AccountID   string `json:"accountId"`
	Note        string `json:"note"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		year, month := s.parseYearMonth(r)
		st := s.store.Snapshot()
		out := make([]core.Transaction, 0)
		for _, t := range st.Transactions {
			if core.InMonth(t.Date, year, month) {
				out = append(out, t)
			}
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var req transactionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		cents, err := parseAmountCents(req.AmountCents, req.Amount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		txn, err := s.commands.SubmitTransaction(r.Context(), services.TransactionInput{
			ID:          req.ID,
			Type:        core.TransactionType(req.Type),
			Description: req.Description,
			AmountCents: cents,
			Date:        defaultDate(req.Date, s.now()),
			Category:    req.Category,
			AccountID:   req.AccountID,
			Note:        req.Note,
		})
		s.writeMutation(w, r, txn, err)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type idRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req idRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := s.commands.DeleteTransaction(r.Context(), req.ID)
	s.writeMutation(w, r, map[string]string{"id": req.ID}, err)
}

func (s *Server) handleSetPaid(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		ID     string `json:"id"`
		IsPaid bool   `json:"isPaid"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	err := s.reconciler.SetPaid(r.Context(), req.ID, req.IsPaid)
	s.writeMutation(w, r, map[string]any{"id": req.ID, "isPaid": req.IsPaid}, err)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		FromAccountID string `json:"fromAccountId"`
		ToAccountID   string `json:"toAccountId"`
		AmountCents   int64  `json:"amountCents"`
		Amount        string `json:"amount"`
		Date          string `json:"date"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	cents, err := parseAmountCents(req.AmountCents, req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	pair, err := s.commands.Transfer(r.Context(), services.TransferInput{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		AmountCents:   cents,
		Date:          defaultDate(req.Date, s.now()),
	})
	s.writeMutation(w, r, pair[:], err)
}

type accountView struct {
	core.Account
	BalanceCents int64 `json:"balanceCents"`
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		st := s.store.Snapshot()
		out := make([]accountView, 0, len(st.Accounts))
		for _, acc := range st.Accounts {
			out = append(out, accountView{
				Account:      acc,
				BalanceCents: report.AccountBalance(acc, st.Transactions),
			})
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var req struct {
			Name                string `json:"name"`
			InitialBalanceCents int64  `json:"initialBalanceCents"`
			InitialBalance      string `json:"initialBalance"`
			LogoURL             string `json:"logoUrl"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		cents := req.InitialBalanceCents
		if strings.TrimSpace(req.InitialBalance) != "" {
			parsed, err := core.ParseDecimalToCents(req.InitialBalance)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			cents = parsed
		}
		acc, err := s.commands.CreateAccount(r.Context(), req.Name, cents, req.LogoURL)
		s.writeMutation(w, r, acc, err)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req idRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := s.commands.DeleteAccount(r.Context(), req.ID)
	s.writeMutation(w, r, map[string]string{"id": req.ID}, err)
}

type categoryRequest struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.store.Snapshot().Categories)
	case http.MethodPost:
		var req categoryRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		err := s.commands.AddCategory(r.Context(), core.TransactionType(req.Type), req.Name)
		s.writeMutation(w, r, req, err)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := s.commands.DeleteCategory(r.Context(), core.TransactionType(req.Type), req.Name)
	s.writeMutation(w, r, req, err)
}

func (s *Server) handleRecurring(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.store.Snapshot().RecurringTransactions)
	case http.MethodPost:
		var req struct {
			Description       string `json:"description"`
			AmountCents       int64  `json:"amountCents"`
			Amount            string `json:"amount"`
			AccountID         string `json:"accountId"`
			Category          string `json:"category"`
			Type              string `json:"type"`
			InstallmentType   string `json:"installmentType"`
			DayOfMonth        int    `json:"dayOfMonth"`
			TotalInstallments int    `json:"totalInstallments"`
			StartDate         string `json:"startDate"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		cents, err := parseAmountCents(req.AmountCents, req.Amount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		rec, err := s.commands.AddRecurring(r.Context(), services.RecurringInput{
			Description:       req.Description,
			AmountCents:       cents,
			AccountID:         req.AccountID,
			Category:          req.Category,
			Type:              core.TransactionType(req.Type),
			InstallmentType:   core.InstallmentType(req.InstallmentType),
			DayOfMonth:        req.DayOfMonth,
			TotalInstallments: req.TotalInstallments,
			StartDate:         req.StartDate,
		}, s.now())
		s.writeMutation(w, r, rec, err)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req idRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := s.commands.DeleteRecurring(r.Context(), req.ID)
	s.writeMutation(w, r, map[string]string{"id": req.ID}, err)
}

func (s *Server) handlePayRecurring(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req idRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txn, err := s.reconciler.PayRecurring(r.Context(), req.ID, s.now())
	if err == nil && txn == nil {
		// Unknown definition or already settled this month.
		s.invalidateReports()
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeMutation(w, r, txn, err)
}

func (s *Server) handleMaterialize(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	year, month := s.parseYearMonth(r)
	created, err := s.engine.MaterializeMonth(r.Context(), year, month)
	s.writeMutation(w, r, map[string]any{
		"month":   core.MonthKey(year, month),
		"created": created,
	}, err)
}

func (s *Server) handleClearMonth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	year, month := s.parseYearMonth(r)
	removed, err := s.commands.ClearMonth(r.Context(), year, month)
	s.writeMutation(w, r, map[string]any{
		"month":   core.MonthKey(year, month),
		"removed": removed,
	}, err)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	year, month := s.parseYearMonth(r)
	key := core.MonthKey(year, month)
	if sum, ok := s.summaryCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Summary cache hit", "month", key)
		writeJSON(w, http.StatusOK, sum)
		return
	}
	sum := report.MonthSummary(s.store.Snapshot().Transactions, year, month)
	s.summaryCache.Set(key, sum)
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	year, month := s.parseYearMonth(r)
	writeJSON(w, http.StatusOK, report.CategoryBreakdown(s.store.Snapshot().Transactions, year, month))
}

func (s *Server) handleAnnual(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	year := s.now().Year()
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	key := strconv.Itoa(year)
	if rollup, ok := s.annualCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Annual cache hit", "year", year)
		writeJSON(w, http.StatusOK, rollup)
		return
	}
	rollup := report.Annual(s.store.Snapshot().Transactions, year)
	s.annualCache.Set(key, rollup)
	writeJSON(w, http.StatusOK, rollup)
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	kind := report.KindBills
	if v := strings.TrimSpace(r.URL.Query().Get("kind")); v != "" {
		switch report.ObligationKind(v) {
		case report.KindBills, report.KindIncome:
			kind = report.ObligationKind(v)
		default:
			writeError(w, http.StatusUnprocessableEntity, "kind must be bills or income")
			return
		}
	}
	st := s.store.Snapshot()
	obligations := report.Upcoming(st.RecurringTransactions, st.Transactions, kind, s.now())
	if obligations == nil {
		obligations = []report.Obligation{}
	}
	writeJSON(w, http.StatusOK, obligations)
}
