package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/solerv/finledger/internal/meta"
)

// AccountKind enumerates the instrument behind an account.
type AccountKind string

const (
	AccountKindCash          AccountKind = "cash"
	AccountKindChecking      AccountKind = "checking"
	AccountKindSavings       AccountKind = "savings"
	AccountKindCreditCard    AccountKind = "credit_card"
	AccountKindInvestment    AccountKind = "investment"
	AccountKindLoan          AccountKind = "loan"
	AccountKindDigitalWallet AccountKind = "digital_wallet"
	AccountKindCrypto        AccountKind = "crypto"
	AccountKindOther         AccountKind = "other"
)

// Valid reports whether k is one of the known account kinds.
func (k AccountKind) Valid() bool {
	switch k {
	case AccountKindCash, AccountKindChecking, AccountKindSavings, AccountKindCreditCard,
		AccountKindInvestment, AccountKindLoan, AccountKindDigitalWallet, AccountKindCrypto,
		AccountKindOther:
		return true
	}
	return false
}

// TransactionKind classifies a ledger transaction.
type TransactionKind string

const (
	TransactionIncome     TransactionKind = "income"
	TransactionExpense    TransactionKind = "expense"
	TransactionTransfer   TransactionKind = "transfer"
	TransactionAdjustment TransactionKind = "adjustment"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case TransactionIncome, TransactionExpense, TransactionTransfer, TransactionAdjustment:
		return true
	}
	return false
}

// SubMovementKind classifies a sub-account movement.
type SubMovementKind string

const (
	SubMovementFund     SubMovementKind = "fund"
	SubMovementSpend    SubMovementKind = "spend"
	SubMovementAdjust   SubMovementKind = "adjust"
	SubMovementTransfer SubMovementKind = "transfer"
)

func (k SubMovementKind) Valid() bool {
	switch k {
	case SubMovementFund, SubMovementSpend, SubMovementAdjust, SubMovementTransfer:
		return true
	}
	return false
}

// DebtKind enumerates the nature of a debt. Receivables are money owed to the
// user and carry negative balances; every other kind carries a non-negative
// balance bounded by the initial balance.
type DebtKind string

const (
	DebtKindCreditCard DebtKind = "credit_card"
	DebtKindLoan       DebtKind = "loan"
	DebtKindMortgage   DebtKind = "mortgage"
	DebtKindAutoLoan   DebtKind = "auto_loan"
	DebtKindPayable    DebtKind = "payable"
	DebtKindReceivable DebtKind = "receivable"
	DebtKindOther      DebtKind = "other"
)

func (k DebtKind) Valid() bool {
	switch k {
	case DebtKindCreditCard, DebtKindLoan, DebtKindMortgage, DebtKindAutoLoan,
		DebtKindPayable, DebtKindReceivable, DebtKindOther:
		return true
	}
	return false
}

// DebtMovementKind classifies a movement against a debt balance.
type DebtMovementKind string

const (
	DebtMovementCharge     DebtMovementKind = "charge"
	DebtMovementPayment    DebtMovementKind = "payment"
	DebtMovementAdjustment DebtMovementKind = "adjustment"
	DebtMovementInterest   DebtMovementKind = "interest"
	DebtMovementRefinance  DebtMovementKind = "refinance"
)

func (k DebtMovementKind) Valid() bool {
	switch k {
	case DebtMovementCharge, DebtMovementPayment, DebtMovementAdjustment,
		DebtMovementInterest, DebtMovementRefinance:
		return true
	}
	return false
}

// DebtStatus tracks the lifecycle of a debt.
type DebtStatus string

const (
	DebtStatusActive     DebtStatus = "active"
	DebtStatusPaid       DebtStatus = "paid"
	DebtStatusOverdue    DebtStatus = "overdue"
	DebtStatusRefinanced DebtStatus = "refinanced"
	DebtStatusCancelled  DebtStatus = "cancelled"
)

func (s DebtStatus) Valid() bool {
	switch s {
	case DebtStatusActive, DebtStatusPaid, DebtStatusOverdue, DebtStatusRefinanced, DebtStatusCancelled:
		return true
	}
	return false
}

// Direction indicates whether a commitment brings money in or out.
type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

func (d Direction) Valid() bool { return d == DirectionIncome || d == DirectionExpense }

// Frequency enumerates the recurrence period of a commitment.
type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyBiweekly   Frequency = "biweekly"
	FrequencyMonthly    Frequency = "monthly"
	FrequencyBimonthly  Frequency = "bimonthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemiannual Frequency = "semiannual"
	FrequencyAnnual     Frequency = "annual"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly,
		FrequencyBimonthly, FrequencyQuarterly, FrequencySemiannual, FrequencyAnnual:
		return true
	}
	return false
}

// PlanItemKind enumerates the money movement a plan item performs.
type PlanItemKind string

const (
	PlanAccountTransfer   PlanItemKind = "account_transfer"
	PlanSubAccountFunding PlanItemKind = "subaccount_funding"
	PlanDebtPayment       PlanItemKind = "debt_payment"
)

func (k PlanItemKind) Valid() bool {
	switch k {
	case PlanAccountTransfer, PlanSubAccountFunding, PlanDebtPayment:
		return true
	}
	return false
}

// Priority orders plan items and debts.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Rank maps priorities to a sortable weight, high first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// User captures the owner of ledger data.
type User struct {
	ID    uuid.UUID
	Email *string
}

// Account is a money holding whose balance is mutated exclusively by the
// transaction engine.
type Account struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Name     string
	Kind     AccountKind
	Currency string
	// Institution identifies the bank or provider behind the account.
	Institution string
	Balance     money.Amount
	// CreditLimit is required (and non-negative) for credit_card kind and
	// must be absent for every other kind.
	CreditLimit *money.Amount
	// CutDay and PayDay are the statement cut and payment days for cards.
	CutDay *int
	PayDay *int
	// InterestRate is an annual percentage, cards and loans only.
	InterestRate      *decimal.Decimal
	Active            bool
	IncludeInNetWorth bool
	Metadata          meta.Metadata `json:"metadata,omitempty"`
	Description       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	// LastMovement is stamped every time a transaction touches the account.
	LastMovement *time.Time
}

// AvailableCredit returns limit + balance for credit cards (card balances are
// negative when money is owed). Derived at query time, never stored.
func (a Account) AvailableCredit() (money.Amount, bool) {
	if a.Kind != AccountKindCreditCard || a.CreditLimit == nil {
		return money.Amount{}, false
	}
	avail, err := a.CreditLimit.Add(a.Balance)
	if err != nil {
		return money.Amount{}, false
	}
	return avail, true
}

// SubAccount is a named savings bucket under an account. Its balance moves
// only through the sub-account movement engine.
type SubAccount struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	UserID    uuid.UUID
	Name      string
	Balance   money.Amount
	// Goal is the optional savings target; must be positive when set.
	Goal        *money.Amount
	Active      bool
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Debt tracks an obligation (or, for receivables, a claim) with an amortizing
// balance and optional installment terms.
type Debt struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	AccountID    *uuid.UUID
	SubAccountID *uuid.UUID
	Kind         DebtKind
	// Counterparty is the creditor, or the debtor for receivables.
	Counterparty   string
	Currency       string
	InitialBalance money.Amount
	Balance        money.Amount
	// Installment terms; all optional.
	InstallmentAmount *money.Amount
	InstallmentCount  *int
	PaidInstallments  int
	PaymentFrequency  *Frequency
	// InterestRate is an annual percentage.
	InterestRate *decimal.Decimal
	StartDate    time.Time
	DueDate      *time.Time
	NextPayment  *time.Time
	LastPayment  *time.Time
	Status       DebtStatus
	Priority     Priority
	Description  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Settled reports whether the balance has reached (or crossed) zero.
func (d Debt) Settled() bool {
	if d.Kind == DebtKindReceivable {
		return !d.Balance.IsNeg()
	}
	return !d.Balance.IsPos()
}

// HasInstallments reports whether the debt carries installment terms.
func (d Debt) HasInstallments() bool { return d.InstallmentCount != nil && *d.InstallmentCount > 0 }

// Transaction is one row of the editable ledger log. Edits and deletes are
// first class; the engine reverses prior balance effects before applying new
// ones.
type Transaction struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	SourceAccountID *uuid.UUID
	DestAccountID   *uuid.UUID
	CategoryID      *uuid.UUID
	CommitmentID    *uuid.UUID
	Date            time.Time
	Kind            TransactionKind
	// Amount is always a positive magnitude; direction comes from the
	// source/destination pair.
	Amount      money.Amount
	Description string
	Reference   string
	Metadata    meta.Metadata `json:"metadata,omitempty"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SubMovement moves money between sub-account buckets or in/out of one.
type SubMovement struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	SubAccountID     uuid.UUID
	DestSubAccountID *uuid.UUID
	TransactionID    *uuid.UUID
	Date             time.Time
	Kind             SubMovementKind
	// Amount is positive for fund/spend/transfer; adjust carries the signed
	// delta as given by the caller.
	Amount      money.Amount
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DebtMovement records one change against a debt balance.
type DebtMovement struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	DebtID        uuid.UUID
	TransactionID *uuid.UUID
	Date          time.Time
	Kind          DebtMovementKind
	// Amount is positive for charge/payment/interest; adjustment and
	// refinance carry the signed delta as given.
	Amount money.Amount
	// PrincipalPaid and InterestPaid are required for payments and must sum
	// to Amount.
	PrincipalPaid *money.Amount
	InterestPaid  *money.Amount
	// InterestAccrued is informational, interest kind only.
	InterestAccrued *money.Amount
	Description     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Commitment is a recurring income or expense definition. The next occurrence
// is derived from LastEvent (or StartDate) plus one frequency period, never
// stored.
type Commitment struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	DestAccountID *uuid.UUID
	Description   string
	Direction     Direction
	Amount        money.Amount
	Currency      string
	Frequency     Frequency
	StartDate     time.Time
	EndDate       *time.Time
	LastEvent     *time.Time
	Active        bool
	AutoGenerate  bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PlanItem is one planned money movement in the biweekly plan.
type PlanItem struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Name             string
	Kind             PlanItemKind
	Amount           money.Amount
	SourceAccountID  uuid.UUID
	DestAccountID    *uuid.UUID
	DestSubAccountID *uuid.UUID
	DebtID           *uuid.UUID
	Priority         Priority
	Order            int
	Active           bool
	Executed         bool
	ExecutedAt       *time.Time
	// GeneratedTransactionID links to the transaction produced on execution.
	GeneratedTransactionID *uuid.UUID
	Description            string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Category is the read-only taxonomy entry the core consumes for existence
// lookups; the catalog package owns the curated set.
type Category struct {
	ID     uuid.UUID
	Code   string
	Label  string
	Kind   TransactionKind
	Active bool
}
