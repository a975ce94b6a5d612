package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
)

// Balance deltas are the currency of the reverse-then-reapply discipline: an
// engine computes the signed per-row adjustments one ledger write implies
// (create = apply, delete = inverse, edit = inverse of old followed by apply
// of new) and the store executes record change plus deltas as one atomic
// unit. A delta aimed at a missing row fails the whole write.

// AccountDelta adjusts one account balance by a signed amount and stamps the
// account's last-movement time.
type AccountDelta struct {
	AccountID uuid.UUID
	Amount    money.Amount
	At        time.Time
}

// SubAccountDelta adjusts one sub-account balance by a signed amount.
type SubAccountDelta struct {
	SubAccountID uuid.UUID
	Amount       money.Amount
}

// DebtDelta adjusts one debt balance. Installments shifts the paid-installment
// counter and LastPayment, when set, restamps the debt's last payment date.
type DebtDelta struct {
	DebtID       uuid.UUID
	Amount       money.Amount
	Installments int
	LastPayment  *time.Time
}

// Negated returns the inverse of d.
func (d AccountDelta) Negated() AccountDelta {
	d.Amount = d.Amount.Neg()
	return d
}

// Negated returns the inverse of d.
func (d SubAccountDelta) Negated() SubAccountDelta {
	d.Amount = d.Amount.Neg()
	return d
}

// Negated returns the inverse of d, including the installment counter shift.
// LastPayment is dropped; reversals never restamp payment dates.
func (d DebtDelta) Negated() DebtDelta {
	d.Amount = d.Amount.Neg()
	d.Installments = -d.Installments
	d.LastPayment = nil
	return d
}
