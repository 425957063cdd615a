package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"financas/internal/core"
	"financas/internal/ledger"
)

// LedgerService carries the command handlers the presentation layer invokes:
// transaction entry and edit, transfers, account and category management,
// recurring definition management, and the month-clear bulk delete. Every
// mutation leaves the snapshot consistent and saved, or reports the save
// failure upward without rolling back.
type LedgerService struct {
	store      *ledger.Store
	recurrence *RecurrenceEngine
}

func NewLedgerService(store *ledger.Store, recurrence *RecurrenceEngine) *LedgerService {
	return &LedgerService{store: store, recurrence: recurrence}
}

// TransactionInput is the form payload for creating or editing a
// transaction. An empty ID creates; a known ID edits in place.
type TransactionInput struct {
	ID          string
	Type        core.TransactionType
	Description string
	AmountCents int64
	Date        string
	Category    string
	AccountID   string
	Note        string
}

// SubmitTransaction handles direct user entry. New entries are born settled.
// Edits preserve the paid flag, except that an income entry is forced
// settled. Editing an id that no longer exists is a silent no-op.
func (s *LedgerService) SubmitTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	var out core.Transaction
	err := s.store.Update(ctx, func(st *ledger.State) error {
		candidate := core.Transaction{
			ID:          in.ID,
			Type:        in.Type,
			Description: strings.TrimSpace(in.Description),
			AmountCents: in.AmountCents,
			Date:        in.Date,
			Category:    in.Category,
			AccountID:   in.AccountID,
			Note:        strings.TrimSpace(in.Note),
		}
		if in.ID == "" {
			candidate.ID = uuid.NewString()
		}
		if err := candidate.Validate(); err != nil {
			return err
		}
		if st.FindAccount(candidate.AccountID) == nil {
			return fmt.Errorf("account %q: %w", candidate.AccountID, core.ErrMissingAccount)
		}

		if in.ID == "" {
			candidate.IsPaid = true
			st.Transactions = append(st.Transactions, candidate)
			out = candidate
			return nil
		}

		existing := st.FindTransaction(in.ID)
		if existing == nil {
			return errNoop
		}
		candidate.RecurringID = existing.RecurringID
		candidate.IsPaid = existing.IsPaid
		if candidate.Type == core.Income {
			candidate.IsPaid = true
		}
		*existing = candidate
		out = candidate
		return nil
	})
	return out, ignoreNoop(err)
}

// DeleteTransaction removes a transaction. Unknown ids are silent no-ops.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	err := s.store.Update(ctx, func(st *ledger.State) error {
		kept := st.Transactions[:0]
		for _, t := range st.Transactions {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		if len(kept) == len(st.Transactions) {
			return errNoop
		}
		st.Transactions = kept
		return nil
	})
	return ignoreNoop(err)
}

// ClearMonth deletes every transaction in the month and returns how many
// were removed.
func (s *LedgerService) ClearMonth(ctx context.Context, year, month int) (int, error) {
	removed := 0
	err := s.store.Update(ctx, func(st *ledger.State) error {
		kept := st.Transactions[:0]
		for _, t := range st.Transactions {
			if core.InMonth(t.Date, year, month) {
				removed++
				continue
			}
			kept = append(kept, t)
		}
		if removed == 0 {
			return errNoop
		}
		st.Transactions = kept
		return nil
	})
	return removed, ignoreNoop(err)
}

// TransferInput moves money between two accounts on a date.
type TransferInput struct {
	FromAccountID string
	ToAccountID   string
	AmountCents   int64
	Date          string
}

// Transfer records a transfer as a pair of settled transactions: an expense
// on the source and an income on the destination, linked only by matching
// description, date, and amount.
func (s *LedgerService) Transfer(ctx context.Context, in TransferInput) ([2]core.Transaction, error) {
	var pair [2]core.Transaction
	err := s.store.Update(ctx, func(st *ledger.State) error {
		if in.FromAccountID == in.ToAccountID {
			return core.ErrSameAccount
		}
		if in.AmountCents <= 0 {
			return core.ErrInvalidAmount
		}
		if !core.ValidDateString(in.Date) {
			return core.ErrInvalidDate
		}
		from := st.FindAccount(in.FromAccountID)
		to := st.FindAccount(in.ToAccountID)
		if from == nil || to == nil {
			return fmt.Errorf("transfer accounts: %w", core.ErrMissingAccount)
		}

		pair[0] = core.Transaction{
			ID:          uuid.NewString(),
			Type:        core.Expense,
			Description: "Transferência para " + to.Name,
			IsPaid:      true,
			AmountCents: in.AmountCents,
			Date:        in.Date,
			Category:    "Transferência Enviada",
			AccountID:   from.ID,
			Note:        noteTransfer,
		}
		pair[1] = core.Transaction{
			ID:          uuid.NewString(),
			Type:        core.Income,
			Description: "Transferência de " + from.Name,
			IsPaid:      true,
			AmountCents: in.AmountCents,
			Date:        in.Date,
			Category:    "Transferência Recebida",
			AccountID:   to.ID,
			Note:        noteTransfer,
		}
		st.Transactions = append(st.Transactions, pair[0], pair[1])
		return nil
	})
	return pair, err
}

// CreateAccount registers a new account.
func (s *LedgerService) CreateAccount(ctx context.Context, name string, initialBalanceCents int64, logoURL string) (core.Account, error) {
	acc := core.Account{
		ID:                  uuid.NewString(),
		Name:                strings.TrimSpace(name),
		InitialBalanceCents: initialBalanceCents,
		LogoURL:             strings.TrimSpace(logoURL),
	}
	err := s.store.Update(ctx, func(st *ledger.State) error {
		if err := acc.Validate(); err != nil {
			return err
		}
		st.Accounts = append(st.Accounts, acc)
		return nil
	})
	return acc, err
}

// DeleteAccount removes an account and cascades to every transaction that
// references it. Recurring definitions pointing at the account are left
// orphaned on purpose: they never cascade.
func (s *LedgerService) DeleteAccount(ctx context.Context, id string) error {
	err := s.store.Update(ctx, func(st *ledger.State) error {
		accounts := st.Accounts[:0]
		found := false
		for _, a := range st.Accounts {
			if a.ID == id {
				found = true
				continue
			}
			accounts = append(accounts, a)
		}
		if !found {
			return errNoop
		}
		st.Accounts = accounts

		kept := st.Transactions[:0]
		for _, t := range st.Transactions {
			if t.AccountID != id {
				kept = append(kept, t)
			}
		}
		dropped := len(st.Transactions) - len(kept)
		st.Transactions = kept
		slog.InfoContext(ctx, "Account deleted with cascade",
			"account_id", id,
			"transactions_removed", dropped)
		return nil
	})
	return ignoreNoop(err)
}

// AddCategory appends a category name to the income or expense set.
// Duplicates within a set are rejected.
func (s *LedgerService) AddCategory(ctx context.Context, typ core.TransactionType, name string) error {
	name = strings.TrimSpace(name)
	return s.store.Update(ctx, func(st *ledger.State) error {
		if !typ.Valid() {
			return core.ErrInvalidType
		}
		if name == "" {
			return core.ErrEmptyName
		}
		set := &st.Categories.Expense
		if typ == core.Income {
			set = &st.Categories.Income
		}
		for _, c := range *set {
			if c == name {
				return fmt.Errorf("category %q: %w", name, core.ErrDuplicateCategory)
			}
		}
		*set = append(*set, name)
		return nil
	})
}

// DeleteCategory removes a category name. Existing transactions keep the
// name; there is no referential integrity to enforce. Unknown names are
// silent no-ops.
func (s *LedgerService) DeleteCategory(ctx context.Context, typ core.TransactionType, name string) error {
	err := s.store.Update(ctx, func(st *ledger.State) error {
		set := &st.Categories.Expense
		if typ == core.Income {
			set = &st.Categories.Income
		}
		kept := (*set)[:0]
		for _, c := range *set {
			if c != name {
				kept = append(kept, c)
			}
		}
		if len(kept) == len(*set) {
			return errNoop
		}
		*set = kept
		return nil
	})
	return ignoreNoop(err)
}

// RecurringInput is the form payload for a new recurring definition.
type RecurringInput struct {
	Description       string
	AmountCents       int64
	AccountID         string
	Category          string
	Type              core.TransactionType
	InstallmentType   core.InstallmentType
	DayOfMonth        int
	TotalInstallments int
	StartDate         string
}

// AddRecurring creates a definition and immediately materializes the current
// month so an obligation due now shows up without waiting for month
// navigation. Income definitions are always fixed.
func (s *LedgerService) AddRecurring(ctx context.Context, in RecurringInput, today time.Time) (core.RecurringDefinition, error) {
	rec := core.RecurringDefinition{
		ID:                uuid.NewString(),
		Description:       strings.TrimSpace(in.Description),
		AmountCents:       in.AmountCents,
		AccountID:         in.AccountID,
		Category:          in.Category,
		Type:              in.Type,
		InstallmentType:   in.InstallmentType,
		DayOfMonth:        in.DayOfMonth,
		TotalInstallments: in.TotalInstallments,
		StartDate:         in.StartDate,
	}
	if rec.Type == core.Income {
		rec.InstallmentType = core.Fixed
		rec.TotalInstallments = 0
		rec.StartDate = ""
	}
	err := s.store.Update(ctx, func(st *ledger.State) error {
		if err := rec.Validate(); err != nil {
			return err
		}
		if st.FindAccount(rec.AccountID) == nil {
			return fmt.Errorf("account %q: %w", rec.AccountID, core.ErrMissingAccount)
		}
		st.RecurringTransactions = append(st.RecurringTransactions, rec)
		return nil
	})
	if err != nil {
		return rec, err
	}
	if _, err := s.recurrence.MaterializeMonth(ctx, today.Year(), int(today.Month())); err != nil {
		return rec, err
	}
	return rec, nil
}

// DeleteRecurring removes a definition. Previously generated transactions
// are untouched: the back-reference is weak.
func (s *LedgerService) DeleteRecurring(ctx context.Context, id string) error {
	err := s.store.Update(ctx, func(st *ledger.State) error {
		kept := st.RecurringTransactions[:0]
		for _, r := range st.RecurringTransactions {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		if len(kept) == len(st.RecurringTransactions) {
			return errNoop
		}
		st.RecurringTransactions = kept
		return nil
	})
	return ignoreNoop(err)
}
