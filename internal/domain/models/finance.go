package models

import (
	"time"

	"github.com/google/uuid"
)

type AccountType string

const (
	AccountDebit  AccountType = "debit"
	AccountCredit AccountType = "credit"
	AccountCash   AccountType = "cash"
)

// Account is a money source owned by a user (bank account, card, cash).
type Account struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Name        string
	Bank        string
	Type        AccountType
	Currency    string // ISO 4217 code
	CreditLimit *int64 // minor units, credit accounts only
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category labels transactions. A nil UserID marks a global category.
type Category struct {
	ID        uuid.UUID
	UserID    *uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

type TransactionSource string

const (
	SourceManual   TransactionSource = "manual"
	SourceImported TransactionSource = "imported"
)

// Transaction is a single income or expense movement on an account.
type Transaction struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	AccountID       uuid.UUID
	CategoryID      *uuid.UUID
	TransferGroupID *uuid.UUID
	Type            TransactionType
	Amount          int64 // minor units
	Date            time.Time
	Description     string
	Merchant        string
	Notes           string
	Source          TransactionSource
	ExternalID      string
	HashDedupe      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
