// Package subaccount implements savings buckets and their movement engine.
// Movements mirror the transaction engine's reverse-then-reapply discipline,
// scoped to sub-account balances; transfers between buckets reverse and
// reapply both legs together.
package subaccount

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
	SubAccount(ctx context.Context, userID, subAccountID uuid.UUID) (finance.SubAccount, error)
	SubAccounts(ctx context.Context, userID uuid.UUID) ([]finance.SubAccount, error)
	SubAccountsByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]finance.SubAccount, error)
	SubMovement(ctx context.Context, userID, movementID uuid.UUID) (finance.SubMovement, error)
	SubMovements(ctx context.Context, userID uuid.UUID) ([]finance.SubMovement, error)
	Transaction(ctx context.Context, userID, txID uuid.UUID) (finance.Transaction, error)
}

// Writer defines write operations needed by the service. Movement writes
// apply the record change and the balance deltas atomically.
type Writer interface {
	CreateSubAccount(ctx context.Context, sa finance.SubAccount) (finance.SubAccount, error)
	UpdateSubAccount(ctx context.Context, sa finance.SubAccount) (finance.SubAccount, error)
	CreateSubMovement(ctx context.Context, m finance.SubMovement, deltas []finance.SubAccountDelta) (finance.SubMovement, error)
	UpdateSubMovement(ctx context.Context, m finance.SubMovement, deltas []finance.SubAccountDelta) (finance.SubMovement, error)
	DeleteSubMovement(ctx context.Context, userID, movementID uuid.UUID, deltas []finance.SubAccountDelta) error
}

// Service exposes sub-account management and the movement engine contract.
type Service interface {
	CreateSubAccount(ctx context.Context, sa finance.SubAccount) (finance.SubAccount, error)
	UpdateSubAccount(ctx context.Context, sa finance.SubAccount) (finance.SubAccount, error)
	Deactivate(ctx context.Context, userID, subAccountID uuid.UUID) error
	GetSubAccount(ctx context.Context, userID, subAccountID uuid.UUID) (finance.SubAccount, error)
	ListSubAccounts(ctx context.Context, userID uuid.UUID) ([]finance.SubAccount, error)

	ValidateMovement(ctx context.Context, m finance.SubMovement) error
	CreateMovement(ctx context.Context, m finance.SubMovement) (finance.SubMovement, error)
	EditMovement(ctx context.Context, m finance.SubMovement) (finance.SubMovement, error)
	DeleteMovement(ctx context.Context, userID, movementID uuid.UUID) error
	GetMovement(ctx context.Context, userID, movementID uuid.UUID) (finance.SubMovement, error)
	ListMovements(ctx context.Context, userID uuid.UUID) ([]finance.SubMovement, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

// CreateSubAccount opens a bucket under an existing account with a zero
// balance in the account's currency.
func (s *service) CreateSubAccount(ctx context.Context, sa finance.SubAccount) (finance.SubAccount, error) {
	if sa.UserID == uuid.Nil || sa.AccountID == uuid.Nil {
		return finance.SubAccount{}, fmt.Errorf("user_id and account_id are required: %w", errs.ErrInvalid)
	}
	if strings.TrimSpace(sa.Name) == "" {
		return finance.SubAccount{}, fmt.Errorf("name is required: %w", errs.ErrInvalid)
	}
	if sa.Goal != nil && !sa.Goal.IsPos() {
		return finance.SubAccount{}, fmt.Errorf("goal must be > 0: %w", errs.ErrInvalid)
	}
	acc, err := s.repo.Account(ctx, sa.UserID, sa.AccountID)
	if err != nil {
		return finance.SubAccount{}, fmt.Errorf("account %s: %w", sa.AccountID, err)
	}
	zero, err := money.NewAmountFromMinorUnits(acc.Currency, 0)
	if err != nil {
		return finance.SubAccount{}, err
	}
	now := time.Now().UTC()
	sa.ID = uuid.New()
	sa.Balance = zero
	sa.Active = true
	sa.CreatedAt = now
	sa.UpdatedAt = now
	return s.writer.CreateSubAccount(ctx, sa)
}

// UpdateSubAccount changes descriptive fields. The balance is immutable here;
// only the movement engine moves it.
func (s *service) UpdateSubAccount(ctx context.Context, sa finance.SubAccount) (finance.SubAccount, error) {
	if sa.UserID == uuid.Nil || sa.ID == uuid.Nil {
		return finance.SubAccount{}, errs.ErrInvalid
	}
	current, err := s.repo.SubAccount(ctx, sa.UserID, sa.ID)
	if err != nil {
		return finance.SubAccount{}, err
	}
	if strings.TrimSpace(sa.Name) == "" {
		return finance.SubAccount{}, fmt.Errorf("name is required: %w", errs.ErrInvalid)
	}
	if sa.Goal != nil && !sa.Goal.IsPos() {
		return finance.SubAccount{}, fmt.Errorf("goal must be > 0: %w", errs.ErrInvalid)
	}
	if sa.AccountID != current.AccountID {
		return finance.SubAccount{}, fmt.Errorf("owning account: %w", errs.ErrImmutable)
	}
	sa.Balance = current.Balance
	sa.CreatedAt = current.CreatedAt
	sa.UpdatedAt = time.Now().UTC()
	return s.writer.UpdateSubAccount(ctx, sa)
}

// Deactivate soft-disables a sub-account.
func (s *service) Deactivate(ctx context.Context, userID, subAccountID uuid.UUID) error {
	sa, err := s.repo.SubAccount(ctx, userID, subAccountID)
	if err != nil {
		return err
	}
	sa.Active = false
	sa.UpdatedAt = time.Now().UTC()
	_, err = s.writer.UpdateSubAccount(ctx, sa)
	return err
}

func (s *service) GetSubAccount(ctx context.Context, userID, subAccountID uuid.UUID) (finance.SubAccount, error) {
	if userID == uuid.Nil || subAccountID == uuid.Nil {
		return finance.SubAccount{}, errs.ErrInvalid
	}
	return s.repo.SubAccount(ctx, userID, subAccountID)
}

func (s *service) ListSubAccounts(ctx context.Context, userID uuid.UUID) ([]finance.SubAccount, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.SubAccounts(ctx, userID)
}

// ValidateMovement checks movement invariants: kind-specific amount sign,
// destination rules for transfers, and referenced entities.
func (s *service) ValidateMovement(ctx context.Context, m finance.SubMovement) error {
	if m.UserID == uuid.Nil || m.SubAccountID == uuid.Nil {
		return fmt.Errorf("user_id and sub_account_id are required: %w", errs.ErrInvalid)
	}
	if !m.Kind.Valid() {
		return fmt.Errorf("unknown movement kind %q: %w", m.Kind, errs.ErrInvalid)
	}
	switch m.Kind {
	case finance.SubMovementAdjust:
		if m.Amount.IsZero() {
			return fmt.Errorf("adjustment amount must be non-zero: %w", errs.ErrInvalid)
		}
	default:
		if !m.Amount.IsPos() {
			return fmt.Errorf("amount must be > 0: %w", errs.ErrInvalid)
		}
	}
	if m.Kind == finance.SubMovementTransfer {
		if m.DestSubAccountID == nil {
			return fmt.Errorf("transfer requires a destination sub-account: %w", errs.ErrInvalid)
		}
		if *m.DestSubAccountID == m.SubAccountID {
			return fmt.Errorf("source and destination sub-accounts must differ: %w", errs.ErrInvalid)
		}
	} else if m.DestSubAccountID != nil {
		return fmt.Errorf("only transfers may carry a destination sub-account: %w", errs.ErrInvalid)
	}
	if m.TransactionID != nil {
		if _, err := s.repo.Transaction(ctx, m.UserID, *m.TransactionID); err != nil {
			return fmt.Errorf("transaction %s: %w", m.TransactionID, err)
		}
	}
	subs, err := s.fetchSubAccounts(ctx, m)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if sub.Balance.Curr() != m.Amount.Curr() {
			return fmt.Errorf("sub-account %s currency %s does not match amount currency %s: %w",
				sub.ID, sub.Balance.Curr().Code(), m.Amount.Curr().Code(), errs.ErrInvalid)
		}
	}
	return nil
}

// CreateMovement validates and applies a movement atomically.
func (s *service) CreateMovement(ctx context.Context, m finance.SubMovement) (finance.SubMovement, error) {
	if err := s.ValidateMovement(ctx, m); err != nil {
		return finance.SubMovement{}, err
	}
	now := time.Now().UTC()
	m.ID = uuid.New()
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.Date.IsZero() {
		m.Date = now
	}
	return s.writer.CreateSubMovement(ctx, m, applyDeltas(m))
}

// EditMovement reverses the stored old effect (both legs, for transfers) and
// applies the new one in a single atomic unit.
func (s *service) EditMovement(ctx context.Context, m finance.SubMovement) (finance.SubMovement, error) {
	if m.ID == uuid.Nil {
		return finance.SubMovement{}, fmt.Errorf("movement id is required: %w", errs.ErrInvalid)
	}
	old, err := s.repo.SubMovement(ctx, m.UserID, m.ID)
	if err != nil {
		return finance.SubMovement{}, err
	}
	if err := s.ValidateMovement(ctx, m); err != nil {
		return finance.SubMovement{}, err
	}
	m.CreatedAt = old.CreatedAt
	m.UpdatedAt = time.Now().UTC()
	deltas := negated(applyDeltas(old))
	deltas = append(deltas, applyDeltas(m)...)
	return s.writer.UpdateSubMovement(ctx, m, deltas)
}

// DeleteMovement reverses the movement's effect and removes the record.
func (s *service) DeleteMovement(ctx context.Context, userID, movementID uuid.UUID) error {
	old, err := s.repo.SubMovement(ctx, userID, movementID)
	if err != nil {
		return err
	}
	return s.writer.DeleteSubMovement(ctx, userID, movementID, negated(applyDeltas(old)))
}

func (s *service) GetMovement(ctx context.Context, userID, movementID uuid.UUID) (finance.SubMovement, error) {
	if userID == uuid.Nil || movementID == uuid.Nil {
		return finance.SubMovement{}, errs.ErrInvalid
	}
	return s.repo.SubMovement(ctx, userID, movementID)
}

func (s *service) ListMovements(ctx context.Context, userID uuid.UUID) ([]finance.SubMovement, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.SubMovements(ctx, userID)
}

func (s *service) fetchSubAccounts(ctx context.Context, m finance.SubMovement) (map[uuid.UUID]finance.SubAccount, error) {
	ids := []uuid.UUID{m.SubAccountID}
	if m.DestSubAccountID != nil {
		ids = append(ids, *m.DestSubAccountID)
	}
	subs, err := s.repo.SubAccountsByIDs(ctx, m.UserID, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := subs[id]; !ok {
			return nil, fmt.Errorf("sub-account %s: %w", id, errs.ErrNotFound)
		}
	}
	return subs, nil
}

// applyDeltas returns the forward balance effect of m: funding credits the
// bucket, spending debits it, an adjustment applies its signed amount as
// given, and a transfer debits the source and credits the destination.
func applyDeltas(m finance.SubMovement) []finance.SubAccountDelta {
	switch m.Kind {
	case finance.SubMovementFund, finance.SubMovementAdjust:
		return []finance.SubAccountDelta{{SubAccountID: m.SubAccountID, Amount: m.Amount}}
	case finance.SubMovementSpend:
		return []finance.SubAccountDelta{{SubAccountID: m.SubAccountID, Amount: m.Amount.Neg()}}
	case finance.SubMovementTransfer:
		return []finance.SubAccountDelta{
			{SubAccountID: m.SubAccountID, Amount: m.Amount.Neg()},
			{SubAccountID: *m.DestSubAccountID, Amount: m.Amount},
		}
	}
	return nil
}

func negated(deltas []finance.SubAccountDelta) []finance.SubAccountDelta {
	out := make([]finance.SubAccountDelta, len(deltas))
	for i, d := range deltas {
		out[i] = d.Negated()
	}
	return out
}
