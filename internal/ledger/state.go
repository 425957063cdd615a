// Package ledger owns the in-memory state of the tracker: the four
// collections, their structural invariants, and the snapshot load/save cycle
// over a key-value store.
package ledger

import (
	"financas/internal/core"
)

// State is the owned state object handed to every engine. Engines receive it
// through the Store, never as a global.
type State struct {
	Transactions          []core.Transaction         `json:"transactions"`
	Categories            core.Categories            `json:"categories"`
	Accounts              []core.Account             `json:"accounts"`
	RecurringTransactions []core.RecurringDefinition `json:"recurringTransactions"`
}

// DefaultState returns the empty schema with the seed category lists.
func DefaultState() *State {
	return &State{
		Transactions: []core.Transaction{},
		Categories: core.Categories{
			Income:  []string{"Salário", "Outros"},
			Expense: []string{"Mercado", "Contas", "Lazer"},
		},
		Accounts:              []core.Account{},
		RecurringTransactions: []core.RecurringDefinition{},
	}
}

func (s *State) FindTransaction(id string) *core.Transaction {
	for i := range s.Transactions {
		if s.Transactions[i].ID == id {
			return &s.Transactions[i]
		}
	}
	return nil
}

func (s *State) FindAccount(id string) *core.Account {
	for i := range s.Accounts {
		if s.Accounts[i].ID == id {
			return &s.Accounts[i]
		}
	}
	return nil
}

func (s *State) FindRecurring(id string) *core.RecurringDefinition {
	for i := range s.RecurringTransactions {
		if s.RecurringTransactions[i].ID == id {
			return &s.RecurringTransactions[i]
		}
	}
	return nil
}

// HasGenerated reports whether a transaction for the (recurringId, month)
// pair already exists. This is the invariant lookup: at most one generated
// instance per definition per month.
func (s *State) HasGenerated(recurringID, monthKey string) bool {
	for i := range s.Transactions {
		t := &s.Transactions[i]
		if t.RecurringID == recurringID && len(t.Date) >= 7 && t.Date[:7] == monthKey {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so read-only projections never observe a state
// mutated mid-request.
func (s *State) Clone() *State {
	out := &State{
		Transactions:          append([]core.Transaction{}, s.Transactions...),
		Accounts:              append([]core.Account{}, s.Accounts...),
		RecurringTransactions: append([]core.RecurringDefinition{}, s.RecurringTransactions...),
		Categories: core.Categories{
			Income:  append([]string{}, s.Categories.Income...),
			Expense: append([]string{}, s.Categories.Expense...),
		},
	}
	return out
}

// normalize replaces nil collections left behind by a partial snapshot so the
// rest of the code never branches on nil.
func (s *State) normalize() {
	if s.Transactions == nil {
		s.Transactions = []core.Transaction{}
	}
	if s.Accounts == nil {
		s.Accounts = []core.Account{}
	}
	if s.RecurringTransactions == nil {
		s.RecurringTransactions = []core.RecurringDefinition{}
	}
	if s.Categories.Income == nil {
		s.Categories.Income = []string{}
	}
	if s.Categories.Expense == nil {
		s.Categories.Expense = []string{}
	}
}
