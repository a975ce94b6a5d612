// Package debt implements debts and their movement engine: balance changes
// with exact reversal under edit/delete, installment counting, the advisory
// principal/interest amortization split, and status recomputation from the
// balance on every mutation.
package debt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/solerv/finledger/internal/errs"
	"github.com/solerv/finledger/internal/finance"
)

// Repo defines read operations needed by the service.
type Repo interface {
	Account(ctx context.Context, userID, accountID uuid.UUID) (finance.Account, error)
	SubAccount(ctx context.Context, userID, subAccountID uuid.UUID) (finance.SubAccount, error)
	Debt(ctx context.Context, userID, debtID uuid.UUID) (finance.Debt, error)
	Debts(ctx context.Context, userID uuid.UUID) ([]finance.Debt, error)
	DebtMovement(ctx context.Context, userID, movementID uuid.UUID) (finance.DebtMovement, error)
	DebtMovements(ctx context.Context, userID uuid.UUID) ([]finance.DebtMovement, error)
	Transaction(ctx context.Context, userID, txID uuid.UUID) (finance.Transaction, error)
}

// Writer defines write operations needed by the service. Movement writes
// apply record change, balance delta, installment counter shift and status
// recomputation atomically.
type Writer interface {
	CreateDebt(ctx context.Context, d finance.Debt) (finance.Debt, error)
	UpdateDebt(ctx context.Context, d finance.Debt) (finance.Debt, error)
	CreateDebtMovement(ctx context.Context, m finance.DebtMovement, deltas []finance.DebtDelta) (finance.DebtMovement, error)
	UpdateDebtMovement(ctx context.Context, m finance.DebtMovement, deltas []finance.DebtDelta) (finance.DebtMovement, error)
	DeleteDebtMovement(ctx context.Context, userID, movementID uuid.UUID, deltas []finance.DebtDelta) error
}

// Split is the advisory amortization breakdown for a requested payment.
type Split struct {
	// Total is the effective payment; it shrinks below the requested amount
	// when the principal portion would overshoot the remaining balance.
	Total     money.Amount
	Principal money.Amount
	Interest  money.Amount
	// Resulting is the debt balance after applying the split.
	Resulting money.Amount
}

// Service exposes debt management and the movement engine contract.
type Service interface {
	CreateDebt(ctx context.Context, d finance.Debt) (finance.Debt, error)
	UpdateDebt(ctx context.Context, d finance.Debt) (finance.Debt, error)
	GetDebt(ctx context.Context, userID, debtID uuid.UUID) (finance.Debt, error)
	ListDebts(ctx context.Context, userID uuid.UUID) ([]finance.Debt, error)
	AmortizationSplit(ctx context.Context, userID, debtID uuid.UUID, requested money.Amount) (Split, error)

	ValidateMovement(ctx context.Context, m finance.DebtMovement) error
	CreateMovement(ctx context.Context, m finance.DebtMovement) (finance.DebtMovement, error)
	EditMovement(ctx context.Context, m finance.DebtMovement) (finance.DebtMovement, error)
	DeleteMovement(ctx context.Context, userID, movementID uuid.UUID) error
	GetMovement(ctx context.Context, userID, movementID uuid.UUID) (finance.DebtMovement, error)
	ListMovements(ctx context.Context, userID uuid.UUID) ([]finance.DebtMovement, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

// CreateDebt validates the sign convention for the debt kind and persists it.
// Receivables start negative; every other kind starts positive.
func (s *service) CreateDebt(ctx context.Context, d finance.Debt) (finance.Debt, error) {
	if d.UserID == uuid.Nil {
		return finance.Debt{}, fmt.Errorf("user_id is required: %w", errs.ErrInvalid)
	}
	if !d.Kind.Valid() {
		return finance.Debt{}, fmt.Errorf("unknown debt kind %q: %w", d.Kind, errs.ErrInvalid)
	}
	if strings.TrimSpace(d.Counterparty) == "" {
		return finance.Debt{}, fmt.Errorf("counterparty is required: %w", errs.ErrInvalid)
	}
	if d.Kind == finance.DebtKindReceivable {
		if !d.InitialBalance.IsNeg() {
			return finance.Debt{}, fmt.Errorf("receivable initial balance must be < 0: %w", errs.ErrInvalid)
		}
	} else if !d.InitialBalance.IsPos() {
		return finance.Debt{}, fmt.Errorf("initial balance must be > 0: %w", errs.ErrInvalid)
	}
	if d.InstallmentCount != nil && *d.InstallmentCount <= 0 {
		return finance.Debt{}, fmt.Errorf("installment count must be > 0: %w", errs.ErrInvalid)
	}
	if d.PaymentFrequency != nil && !d.PaymentFrequency.Valid() {
		return finance.Debt{}, fmt.Errorf("unknown payment frequency %q: %w", *d.PaymentFrequency, errs.ErrInvalid)
	}
	if d.AccountID != nil {
		if _, err := s.repo.Account(ctx, d.UserID, *d.AccountID); err != nil {
			return finance.Debt{}, fmt.Errorf("account %s: %w", d.AccountID, err)
		}
	}
	if d.SubAccountID != nil {
		if _, err := s.repo.SubAccount(ctx, d.UserID, *d.SubAccountID); err != nil {
			return finance.Debt{}, fmt.Errorf("sub-account %s: %w", d.SubAccountID, err)
		}
	}
	if d.Priority == "" {
		d.Priority = finance.PriorityMedium
	}
	if !d.Priority.Valid() {
		return finance.Debt{}, fmt.Errorf("unknown priority %q: %w", d.Priority, errs.ErrInvalid)
	}
	now := time.Now().UTC()
	d.ID = uuid.New()
	d.Currency = d.InitialBalance.Curr().Code()
	d.Balance = d.InitialBalance
	d.PaidInstallments = 0
	d.Status = finance.DebtStatusActive
	if d.StartDate.IsZero() {
		d.StartDate = now
	}
	d.CreatedAt = now
	d.UpdatedAt = now
	return s.writer.CreateDebt(ctx, d)
}

// UpdateDebt changes descriptive fields and terms. Balance, paid installments
// and kind stay under engine control.
func (s *service) UpdateDebt(ctx context.Context, d finance.Debt) (finance.Debt, error) {
	if d.UserID == uuid.Nil || d.ID == uuid.Nil {
		return finance.Debt{}, errs.ErrInvalid
	}
	current, err := s.repo.Debt(ctx, d.UserID, d.ID)
	if err != nil {
		return finance.Debt{}, err
	}
	if d.Kind != current.Kind {
		return finance.Debt{}, fmt.Errorf("debt kind: %w", errs.ErrImmutable)
	}
	if d.InstallmentCount != nil && *d.InstallmentCount <= 0 {
		return finance.Debt{}, fmt.Errorf("installment count must be > 0: %w", errs.ErrInvalid)
	}
	if d.PaymentFrequency != nil && !d.PaymentFrequency.Valid() {
		return finance.Debt{}, fmt.Errorf("unknown payment frequency %q: %w", *d.PaymentFrequency, errs.ErrInvalid)
	}
	if !d.Status.Valid() {
		return finance.Debt{}, fmt.Errorf("unknown status %q: %w", d.Status, errs.ErrInvalid)
	}
	d.Currency = current.Currency
	d.InitialBalance = current.InitialBalance
	d.Balance = current.Balance
	d.PaidInstallments = current.PaidInstallments
	d.LastPayment = current.LastPayment
	d.CreatedAt = current.CreatedAt
	d.UpdatedAt = time.Now().UTC()
	return s.writer.UpdateDebt(ctx, d)
}

func (s *service) GetDebt(ctx context.Context, userID, debtID uuid.UUID) (finance.Debt, error) {
	if userID == uuid.Nil || debtID == uuid.Nil {
		return finance.Debt{}, errs.ErrInvalid
	}
	return s.repo.Debt(ctx, userID, debtID)
}

func (s *service) ListDebts(ctx context.Context, userID uuid.UUID) ([]finance.Debt, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.Debts(ctx, userID)
}

// AmortizationSplit computes this period's interest (balance x annual rate /
// 12) and the principal remainder for a requested payment. The principal is
// capped at the remaining balance, shrinking the total; callers may override
// the split, the write path does not enforce it.
func (s *service) AmortizationSplit(ctx context.Context, userID, debtID uuid.UUID, requested money.Amount) (Split, error) {
	if !requested.IsPos() {
		return Split{}, fmt.Errorf("requested payment must be > 0: %w", errs.ErrInvalid)
	}
	d, err := s.repo.Debt(ctx, userID, debtID)
	if err != nil {
		return Split{}, err
	}
	if requested.Curr().Code() != d.Currency {
		return Split{}, fmt.Errorf("requested currency %s does not match debt currency %s: %w",
			requested.Curr().Code(), d.Currency, errs.ErrInvalid)
	}
	return amortize(d, requested)
}

func amortize(d finance.Debt, requested money.Amount) (Split, error) {
	owed := d.Balance.Abs()
	monthlyRate := decimal.Decimal{}
	if d.InterestRate != nil {
		// annual percent -> monthly fraction
		twelveHundred := decimal.MustNew(1200, 0)
		r, err := d.InterestRate.Quo(twelveHundred)
		if err != nil {
			return Split{}, err
		}
		monthlyRate = r
	}
	interestRaw, err := owed.Mul(monthlyRate)
	if err != nil {
		return Split{}, err
	}
	interest := interestRaw.RoundToCurr()
	principal, err := requested.Sub(interest)
	if err != nil {
		return Split{}, err
	}
	if principal.IsNeg() {
		// interest-only payment: the whole amount services interest
		zero, _ := money.NewAmountFromMinorUnits(d.Currency, 0)
		principal = zero
		interest = requested
	}
	cmp, err := principal.Cmp(owed)
	if err != nil {
		return Split{}, err
	}
	if cmp > 0 {
		principal = owed
	}
	total, err := principal.Add(interest)
	if err != nil {
		return Split{}, err
	}
	remaining, err := owed.Sub(principal)
	if err != nil {
		return Split{}, err
	}
	if d.Kind == finance.DebtKindReceivable {
		remaining = remaining.Neg()
	}
	return Split{Total: total, Principal: principal, Interest: interest, Resulting: remaining}, nil
}

// ValidateMovement checks kind-specific amount signs and the payment split.
func (s *service) ValidateMovement(ctx context.Context, m finance.DebtMovement) error {
	if m.UserID == uuid.Nil || m.DebtID == uuid.Nil {
		return fmt.Errorf("user_id and debt_id are required: %w", errs.ErrInvalid)
	}
	if !m.Kind.Valid() {
		return fmt.Errorf("unknown movement kind %q: %w", m.Kind, errs.ErrInvalid)
	}
	switch m.Kind {
	case finance.DebtMovementAdjustment, finance.DebtMovementRefinance:
		if m.Amount.IsZero() {
			return fmt.Errorf("amount must be non-zero: %w", errs.ErrInvalid)
		}
	default:
		if !m.Amount.IsPos() {
			return fmt.Errorf("amount must be > 0: %w", errs.ErrInvalid)
		}
	}
	if m.Kind == finance.DebtMovementPayment {
		if m.PrincipalPaid == nil || m.InterestPaid == nil {
			return fmt.Errorf("payment requires principal and interest portions: %w", errs.ErrInvalid)
		}
		if m.PrincipalPaid.IsNeg() || m.InterestPaid.IsNeg() {
			return fmt.Errorf("principal and interest portions must be >= 0: %w", errs.ErrInvalid)
		}
		sum, err := m.PrincipalPaid.Add(*m.InterestPaid)
		if err != nil {
			return fmt.Errorf("principal/interest split: %w", errs.ErrInvalid)
		}
		if cmp, err := sum.Cmp(m.Amount); err != nil || cmp != 0 {
			return fmt.Errorf("principal + interest must equal the payment amount: %w", errs.ErrInvalid)
		}
	} else if m.PrincipalPaid != nil || m.InterestPaid != nil {
		return fmt.Errorf("only payments carry a principal/interest split: %w", errs.ErrInvalid)
	}
	if m.Kind != finance.DebtMovementInterest && m.InterestAccrued != nil && !m.InterestAccrued.IsZero() {
		return fmt.Errorf("interest accrued applies to interest movements only: %w", errs.ErrInvalid)
	}
	if m.TransactionID != nil {
		if _, err := s.repo.Transaction(ctx, m.UserID, *m.TransactionID); err != nil {
			return fmt.Errorf("transaction %s: %w", m.TransactionID, err)
		}
	}
	d, err := s.repo.Debt(ctx, m.UserID, m.DebtID)
	if err != nil {
		return fmt.Errorf("debt %s: %w", m.DebtID, err)
	}
	if m.Amount.Curr().Code() != d.Currency {
		return fmt.Errorf("amount currency %s does not match debt currency %s: %w",
			m.Amount.Curr().Code(), d.Currency, errs.ErrInvalid)
	}
	return nil
}

// CreateMovement validates and applies a movement. A payment against a debt
// with installment terms bumps the paid counter and restamps the last
// payment date, all in the same atomic unit as the balance change.
func (s *service) CreateMovement(ctx context.Context, m finance.DebtMovement) (finance.DebtMovement, error) {
	if err := s.ValidateMovement(ctx, m); err != nil {
		return finance.DebtMovement{}, err
	}
	d, err := s.repo.Debt(ctx, m.UserID, m.DebtID)
	if err != nil {
		return finance.DebtMovement{}, err
	}
	now := time.Now().UTC()
	m.ID = uuid.New()
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.Date.IsZero() {
		m.Date = now
	}
	return s.writer.CreateDebtMovement(ctx, m, []finance.DebtDelta{applyDelta(m, d)})
}

// EditMovement reverses the stored old effect, including the installment
// counter shift, then applies the new one atomically.
func (s *service) EditMovement(ctx context.Context, m finance.DebtMovement) (finance.DebtMovement, error) {
	if m.ID == uuid.Nil {
		return finance.DebtMovement{}, fmt.Errorf("movement id is required: %w", errs.ErrInvalid)
	}
	old, err := s.repo.DebtMovement(ctx, m.UserID, m.ID)
	if err != nil {
		return finance.DebtMovement{}, err
	}
	if err := s.ValidateMovement(ctx, m); err != nil {
		return finance.DebtMovement{}, err
	}
	oldDebt, err := s.repo.Debt(ctx, m.UserID, old.DebtID)
	if err != nil {
		return finance.DebtMovement{}, err
	}
	newDebt, err := s.repo.Debt(ctx, m.UserID, m.DebtID)
	if err != nil {
		return finance.DebtMovement{}, err
	}
	m.CreatedAt = old.CreatedAt
	m.UpdatedAt = time.Now().UTC()
	deltas := []finance.DebtDelta{applyDelta(old, oldDebt).Negated(), applyDelta(m, newDebt)}
	return s.writer.UpdateDebtMovement(ctx, m, deltas)
}

// DeleteMovement reverses the movement's effect (balance and installment
// counter) and removes the record.
func (s *service) DeleteMovement(ctx context.Context, userID, movementID uuid.UUID) error {
	old, err := s.repo.DebtMovement(ctx, userID, movementID)
	if err != nil {
		return err
	}
	d, err := s.repo.Debt(ctx, userID, old.DebtID)
	if err != nil {
		return err
	}
	return s.writer.DeleteDebtMovement(ctx, userID, movementID, []finance.DebtDelta{applyDelta(old, d).Negated()})
}

func (s *service) GetMovement(ctx context.Context, userID, movementID uuid.UUID) (finance.DebtMovement, error) {
	if userID == uuid.Nil || movementID == uuid.Nil {
		return finance.DebtMovement{}, errs.ErrInvalid
	}
	return s.repo.DebtMovement(ctx, userID, movementID)
}

func (s *service) ListMovements(ctx context.Context, userID uuid.UUID) ([]finance.DebtMovement, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.DebtMovements(ctx, userID)
}

// applyDelta returns the forward balance effect of m on debt d. Charges and
// interest grow the owed magnitude; a payment shrinks it by its principal
// portion only, since the interest portion services the period's accrual
// without touching what is owed. For receivables the balance is negative so
// the signs flip. Adjustments and refinances carry the caller's signed amount
// unchanged.
func applyDelta(m finance.DebtMovement, d finance.Debt) finance.DebtDelta {
	delta := finance.DebtDelta{DebtID: m.DebtID}
	grow := m.Amount
	if d.Kind == finance.DebtKindReceivable {
		grow = grow.Neg()
	}
	switch m.Kind {
	case finance.DebtMovementCharge, finance.DebtMovementInterest:
		delta.Amount = grow
	case finance.DebtMovementPayment:
		principal := m.Amount
		if m.PrincipalPaid != nil {
			principal = *m.PrincipalPaid
		}
		delta.Amount = principal.Neg()
		if d.Kind == finance.DebtKindReceivable {
			delta.Amount = principal
		}
		if d.HasInstallments() {
			delta.Installments = 1
		}
		at := m.Date
		delta.LastPayment = &at
	case finance.DebtMovementAdjustment, finance.DebtMovementRefinance:
		delta.Amount = m.Amount
	}
	return delta
}
