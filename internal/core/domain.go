package core

import (
	"errors"
	"strings"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Fixed       InstallmentType = "fixed"
	Installment InstallmentType = "installment"
)

type (
	TransactionType string

	InstallmentType string

	Account struct {
		ID                  string `json:"id"`
		Name                string `json:"name"`
		InitialBalanceCents int64  `json:"initialBalanceCents"`
		LogoURL             string `json:"logoUrl,omitempty"`
	}

	// Categories holds the two disjoint name sets. Insertion order is
	// preserved for display; uniqueness is enforced on insert.
	Categories struct {
		Income  []string `json:"income"`
		Expense []string `json:"expense"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		RecurringID string          `json:"recurringId,omitempty"`
		Type        TransactionType `json:"type"`
		Description string          `json:"description"`
		IsPaid      bool            `json:"isPaid"`
		AmountCents int64           `json:"amountCents"`
		Date        string          `json:"date"` // ISO "YYYY-MM-DD", kept literal
		Category    string          `json:"category"`
		AccountID   string          `json:"accountId"`
		Note        string          `json:"note,omitempty"`
	}

	// RecurringDefinition is a template for a periodic obligation. It owns no
	// transactions: generated instances carry a weak back-reference via
	// Transaction.RecurringID and survive deletion of the definition.
	RecurringDefinition struct {
		ID                string          `json:"id"`
		Description       string          `json:"description"`
		AmountCents       int64           `json:"amountCents"`
		AccountID         string          `json:"accountId"`
		Category          string          `json:"category"`
		Type              TransactionType `json:"type"`
		InstallmentType   InstallmentType `json:"installmentType"`
		DayOfMonth        int             `json:"dayOfMonth"`
		TotalInstallments int             `json:"totalInstallments,omitempty"`
		StartDate         string          `json:"startDate,omitempty"` // "YYYY-MM"
	}
)

var (
	ErrInvalidAmount            = errors.New("invalid amount")
	ErrEmptyDescription         = errors.New("empty description")
	ErrEmptyName                = errors.New("empty name")
	ErrInvalidDate              = errors.New("invalid date")
	ErrInvalidDayOfMonth        = errors.New("day of month out of range")
	ErrMissingAccount           = errors.New("missing account")
	ErrMissingCategory          = errors.New("missing category")
	ErrInvalidType              = errors.New("invalid transaction type")
	ErrSameAccount              = errors.New("source and destination account are the same")
	ErrDuplicateCategory        = errors.New("category already exists")
	ErrMissingInstallmentFields = errors.New("installment definitions require total installments and start month")
	ErrInvalidInstallmentType   = errors.New("invalid installment type")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if t.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	if !ValidDateString(t.Date) {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrMissingAccount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrMissingCategory
	}
	return nil
}

func (a Account) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	return nil
}

func (rd RecurringDefinition) Validate() error {
	if !rd.Type.Valid() {
		return ErrInvalidType
	}
	if len(strings.TrimSpace(rd.Description)) == 0 {
		return ErrEmptyDescription
	}
	if rd.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	if rd.DayOfMonth < 1 || rd.DayOfMonth > 31 {
		return ErrInvalidDayOfMonth
	}
	if strings.TrimSpace(rd.AccountID) == "" {
		return ErrMissingAccount
	}
	if strings.TrimSpace(rd.Category) == "" {
		return ErrMissingCategory
	}
	switch rd.InstallmentType {
	case Fixed:
	case Installment:
		if rd.TotalInstallments < 1 || !ValidMonthKey(rd.StartDate) {
			return ErrMissingInstallmentFields
		}
	default:
		return ErrInvalidInstallmentType
	}
	return nil
}
