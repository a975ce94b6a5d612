// Package account implements account rules: kind-specific required fields,
// per-user unique names, advisory credit limits, soft-deletes, and opening
// balances recorded as adjustment transactions rather than raw balance writes.
package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/solerv/finledger/internal/errs"
	"github.com/solerv/finledger/internal/finance"
)

// Repo defines read operations needed by the service.
type Repo interface {
	Account(ctx context.Context, userID, accountID uuid.UUID) (finance.Account, error)
	Accounts(ctx context.Context, userID uuid.UUID) ([]finance.Account, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateAccount(ctx context.Context, a finance.Account) (finance.Account, error)
	UpdateAccount(ctx context.Context, a finance.Account) (finance.Account, error)
}

// TxCreator posts the opening-balance adjustment through the transaction
// engine so the account's balance history starts with a real transaction.
type TxCreator interface {
	Create(ctx context.Context, tx finance.Transaction) (finance.Transaction, error)
}

type Service interface {
	Validate(a finance.Account) error
	Create(ctx context.Context, a finance.Account, opening *money.Amount) (finance.Account, error)
	Update(ctx context.Context, a finance.Account) (finance.Account, error)
	Deactivate(ctx context.Context, userID, accountID uuid.UUID) error
	Get(ctx context.Context, userID, accountID uuid.UUID) (finance.Account, error)
	List(ctx context.Context, userID uuid.UUID) ([]finance.Account, error)
}

type service struct {
	repo   Repo
	writer Writer
	txs    TxCreator
}

func New(repo Repo, writer Writer, txs TxCreator) Service {
	return &service{repo: repo, writer: writer, txs: txs}
}

func (s *service) Validate(a finance.Account) error {
	if a.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required: %w", errs.ErrInvalid)
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("name is required: %w", errs.ErrInvalid)
	}
	if !a.Kind.Valid() {
		return fmt.Errorf("unknown account kind %q: %w", a.Kind, errs.ErrInvalid)
	}
	if a.Currency == "" {
		return fmt.Errorf("currency is required: %w", errs.ErrInvalid)
	}
	if _, err := money.NewAmountFromMinorUnits(a.Currency, 0); err != nil {
		return fmt.Errorf("unknown currency %q: %w", a.Currency, errs.ErrInvalid)
	}
	switch a.Kind {
	case finance.AccountKindCreditCard:
		if a.CreditLimit == nil {
			return fmt.Errorf("credit cards require a credit limit: %w", errs.ErrInvalid)
		}
		if a.CreditLimit.IsNeg() {
			return fmt.Errorf("credit limit must be >= 0: %w", errs.ErrInvalid)
		}
		if a.CreditLimit.Curr().Code() != a.Currency {
			return fmt.Errorf("credit limit currency %s does not match account currency %s: %w",
				a.CreditLimit.Curr().Code(), a.Currency, errs.ErrInvalid)
		}
		if a.CutDay != nil && (*a.CutDay < 1 || *a.CutDay > 31) {
			return fmt.Errorf("cut day must be between 1 and 31: %w", errs.ErrInvalid)
		}
		if a.PayDay != nil && (*a.PayDay < 1 || *a.PayDay > 31) {
			return fmt.Errorf("pay day must be between 1 and 31: %w", errs.ErrInvalid)
		}
	default:
		if a.CreditLimit != nil {
			return fmt.Errorf("credit limit applies to credit cards only: %w", errs.ErrInvalid)
		}
		if a.CutDay != nil || a.PayDay != nil {
			return fmt.Errorf("cut and pay days apply to credit cards only: %w", errs.ErrInvalid)
		}
	}
	if a.InterestRate != nil && a.Kind != finance.AccountKindCreditCard && a.Kind != finance.AccountKindLoan {
		return fmt.Errorf("interest rate applies to credit cards and loans only: %w", errs.ErrInvalid)
	}
	return nil
}

// Create registers the account with a zero balance and, when an opening
// amount is given, posts an adjustment transaction so the balance is
// reconstructible from history.
func (s *service) Create(ctx context.Context, a finance.Account, opening *money.Amount) (finance.Account, error) {
	a.Currency = strings.ToUpper(strings.TrimSpace(a.Currency))
	if err := s.Validate(a); err != nil {
		return finance.Account{}, err
	}
	if opening != nil && opening.Curr().Code() != a.Currency {
		return finance.Account{}, fmt.Errorf("opening balance currency %s does not match account currency %s: %w",
			opening.Curr().Code(), a.Currency, errs.ErrInvalid)
	}
	if err := s.ensureUniqueName(ctx, a, uuid.Nil); err != nil {
		return finance.Account{}, err
	}
	zero, err := money.NewAmountFromMinorUnits(a.Currency, 0)
	if err != nil {
		return finance.Account{}, fmt.Errorf("unknown currency %q: %w", a.Currency, errs.ErrInvalid)
	}
	now := time.Now().UTC()
	a.ID = uuid.New()
	a.Balance = zero
	a.Active = true
	a.CreatedAt = now
	a.UpdatedAt = now
	a.LastMovement = nil
	created, err := s.writer.CreateAccount(ctx, a)
	if err != nil {
		return finance.Account{}, err
	}
	if opening != nil && !opening.IsZero() {
		amt := *opening
		accID := created.ID
		tx := finance.Transaction{
			UserID:      created.UserID,
			Date:        now,
			Kind:        finance.TransactionAdjustment,
			Amount:      amt,
			Description: "opening balance",
		}
		if amt.IsNeg() {
			tx.Amount = amt.Abs()
			tx.SourceAccountID = &accID
		} else {
			tx.DestAccountID = &accID
		}
		if _, err := s.txs.Create(ctx, tx); err != nil {
			return finance.Account{}, err
		}
		return s.repo.Account(ctx, created.UserID, created.ID)
	}
	return created, nil
}

// Update edits descriptive and card fields. Currency and balance are
// immutable here; balances move only through transactions.
func (s *service) Update(ctx context.Context, a finance.Account) (finance.Account, error) {
	if a.UserID == uuid.Nil || a.ID == uuid.Nil {
		return finance.Account{}, errs.ErrInvalid
	}
	current, err := s.repo.Account(ctx, a.UserID, a.ID)
	if err != nil {
		return finance.Account{}, err
	}
	if a.Currency != "" && strings.ToUpper(a.Currency) != current.Currency {
		return finance.Account{}, fmt.Errorf("currency cannot change: %w", errs.ErrImmutable)
	}
	if a.Kind != "" && a.Kind != current.Kind {
		return finance.Account{}, fmt.Errorf("account kind cannot change: %w", errs.ErrImmutable)
	}
	a.Kind = current.Kind
	a.Currency = current.Currency
	if err := s.Validate(a); err != nil {
		return finance.Account{}, err
	}
	if !strings.EqualFold(a.Name, current.Name) {
		if err := s.ensureUniqueName(ctx, a, a.ID); err != nil {
			return finance.Account{}, err
		}
	}
	a.Balance = current.Balance
	a.Active = current.Active
	a.CreatedAt = current.CreatedAt
	a.LastMovement = current.LastMovement
	a.UpdatedAt = time.Now().UTC()
	return s.writer.UpdateAccount(ctx, a)
}

// Deactivate soft-deletes the account. History referencing it stays intact.
func (s *service) Deactivate(ctx context.Context, userID, accountID uuid.UUID) error {
	if userID == uuid.Nil || accountID == uuid.Nil {
		return errs.ErrInvalid
	}
	acc, err := s.repo.Account(ctx, userID, accountID)
	if err != nil {
		return err
	}
	acc.Active = false
	acc.UpdatedAt = time.Now().UTC()
	_, err = s.writer.UpdateAccount(ctx, acc)
	return err
}

func (s *service) Get(ctx context.Context, userID, accountID uuid.UUID) (finance.Account, error) {
	if userID == uuid.Nil || accountID == uuid.Nil {
		return finance.Account{}, errs.ErrInvalid
	}
	return s.repo.Account(ctx, userID, accountID)
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]finance.Account, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.Accounts(ctx, userID)
}

func (s *service) ensureUniqueName(ctx context.Context, a finance.Account, selfID uuid.UUID) error {
	existing, err := s.repo.Accounts(ctx, a.UserID)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == selfID {
			continue
		}
		if strings.EqualFold(other.Name, a.Name) {
			return fmt.Errorf("account name %q already exists: %w", a.Name, errs.ErrConflict)
		}
	}
	return nil
}
