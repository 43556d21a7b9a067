package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	// Transaction is a persisted ledger record. It is created exactly once
	// and never mutated; there is no update or delete path.
	Transaction struct {
		ID        string
		UserID    string
		Title     string
		Amount    Money
		Type      TransactionType
		Category  string
		Date      DateValue
		Note      string
		ImageURL  string
		CreatedAt time.Time
	}

	// Draft is a user-edited transaction pending validation and submission.
	// Amount stays raw until Validate parses it; Receipt carries the
	// optional image payload.
	Draft struct {
		Title       string
		Amount      string
		Type        TransactionType
		Category    string
		Date        DateValue
		Note        string
		Receipt     []byte
		ReceiptName string
	}
)

var (
	ErrEmptyTitle    = errors.New("empty title")
	ErrInvalidAmount = errors.New("missing or invalid amount")
	ErrInvalidType   = errors.New("invalid transaction type")
)

// OrDefault maps an unset type to Expense, matching the submission form's
// default selection.
func (t TransactionType) OrDefault() TransactionType {
	if t == "" {
		return Expense
	}
	return t
}

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

// Validate applies the local field checks, in order: title, amount, type.
// It performs no I/O; submission must not reach the uploader or the store
// for an invalid draft.
func (d Draft) Validate() error {
	if len(strings.TrimSpace(d.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(d.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if _, err := ParseAmount(d.Amount); err != nil {
		return ErrInvalidAmount
	}
	if !d.Type.OrDefault().Valid() {
		return ErrInvalidType
	}
	return nil
}

// HasReceipt reports whether the user attached an image to the draft.
func (d Draft) HasReceipt() bool {
	return len(d.Receipt) > 0
}
