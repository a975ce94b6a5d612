// Package transaction implements the ledger's transaction engine: creating,
// editing and deleting transactions while keeping account balances exactly
// reconciled. Every write is expressed as signed balance deltas and executed
// by the store as a single atomic unit; edits reverse the stored old effect
// before applying the new one so no intermediate balance is observable.
package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solerv/finledger/internal/catalog"
	"github.com/solerv/finledger/internal/errs"
	"github.com/solerv/finledger/internal/finance"
)

// Repo defines read operations needed by the service.
type Repo interface {
	AccountsByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]finance.Account, error)
	Transaction(ctx context.Context, userID, txID uuid.UUID) (finance.Transaction, error)
	Transactions(ctx context.Context, userID uuid.UUID) ([]finance.Transaction, error)
	Commitment(ctx context.Context, userID, commitmentID uuid.UUID) (finance.Commitment, error)
}

// Writer defines write operations needed by the service. Each method applies
// the record change and the supplied deltas atomically; a create also stamps
// the linked commitment's last event inside the same unit.
type Writer interface {
	CreateTransaction(ctx context.Context, tx finance.Transaction, deltas []finance.AccountDelta) (finance.Transaction, error)
	UpdateTransaction(ctx context.Context, tx finance.Transaction, deltas []finance.AccountDelta) (finance.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, txID uuid.UUID, deltas []finance.AccountDelta) error
}

// Service exposes the transaction engine contract.
type Service interface {
	Validate(ctx context.Context, tx finance.Transaction) error
	Create(ctx context.Context, tx finance.Transaction) (finance.Transaction, error)
	Edit(ctx context.Context, tx finance.Transaction) (finance.Transaction, error)
	Delete(ctx context.Context, userID, txID uuid.UUID) error
	Get(ctx context.Context, userID, txID uuid.UUID) (finance.Transaction, error)
	List(ctx context.Context, userID uuid.UUID) ([]finance.Transaction, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

// Validate checks the structural invariants and referenced entities without
// mutating anything.
func (s *service) Validate(ctx context.Context, tx finance.Transaction) error {
	if tx.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required: %w", errs.ErrInvalid)
	}
	if !tx.Kind.Valid() {
		return fmt.Errorf("unknown transaction kind %q: %w", tx.Kind, errs.ErrInvalid)
	}
	if !tx.Amount.IsPos() {
		return fmt.Errorf("amount must be > 0: %w", errs.ErrInvalid)
	}
	if tx.SourceAccountID == nil && tx.DestAccountID == nil {
		return fmt.Errorf("at least one of source or destination account is required: %w", errs.ErrInvalid)
	}
	if tx.Kind == finance.TransactionTransfer {
		if tx.SourceAccountID == nil || tx.DestAccountID == nil {
			return fmt.Errorf("transfer requires both source and destination accounts: %w", errs.ErrInvalid)
		}
	}
	if tx.SourceAccountID != nil && tx.DestAccountID != nil && *tx.SourceAccountID == *tx.DestAccountID {
		return fmt.Errorf("source and destination accounts must differ: %w", errs.ErrInvalid)
	}
	if tx.CategoryID != nil {
		if _, ok := catalog.Lookup(*tx.CategoryID); !ok {
			return fmt.Errorf("category %s: %w", tx.CategoryID, errs.ErrNotFound)
		}
	}
	if tx.CommitmentID != nil {
		if _, err := s.repo.Commitment(ctx, tx.UserID, *tx.CommitmentID); err != nil {
			return fmt.Errorf("commitment %s: %w", tx.CommitmentID, err)
		}
	}
	accounts, err := s.fetchAccounts(ctx, tx)
	if err != nil {
		return err
	}
	for _, acc := range accounts {
		if acc.Currency != tx.Amount.Curr().Code() {
			return fmt.Errorf("account %s currency %s does not match amount currency %s: %w",
				acc.ID, acc.Currency, tx.Amount.Curr().Code(), errs.ErrInvalid)
		}
	}
	return nil
}

// Create validates tx, applies exactly one balance delta per affected
// account, and persists the record atomically. When the transaction links a
// recurring commitment, the commitment's last event advances to the
// transaction date inside the same write.
func (s *service) Create(ctx context.Context, tx finance.Transaction) (finance.Transaction, error) {
	if err := s.Validate(ctx, tx); err != nil {
		return finance.Transaction{}, err
	}
	tx.ID = uuid.New()
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	if tx.Date.IsZero() {
		tx.Date = now
	}
	return s.writer.CreateTransaction(ctx, tx, applyDeltas(tx))
}

// Edit replaces a stored transaction with new values. The old effect is fully
// reversed using the OLD amounts and accounts, then the new effect applied
// with the NEW ones, in one atomic unit. This holds even when the accounts
// themselves changed between old and new.
func (s *service) Edit(ctx context.Context, tx finance.Transaction) (finance.Transaction, error) {
	if tx.ID == uuid.Nil {
		return finance.Transaction{}, fmt.Errorf("transaction id is required: %w", errs.ErrInvalid)
	}
	old, err := s.repo.Transaction(ctx, tx.UserID, tx.ID)
	if err != nil {
		return finance.Transaction{}, err
	}
	if err := s.Validate(ctx, tx); err != nil {
		return finance.Transaction{}, err
	}
	tx.CreatedAt = old.CreatedAt
	tx.UpdatedAt = time.Now().UTC()
	deltas := negated(applyDeltas(old))
	deltas = append(deltas, applyDeltas(tx)...)
	return s.writer.UpdateTransaction(ctx, tx, deltas)
}

// Delete reverses the transaction's effect and removes the record.
func (s *service) Delete(ctx context.Context, userID, txID uuid.UUID) error {
	old, err := s.repo.Transaction(ctx, userID, txID)
	if err != nil {
		return err
	}
	return s.writer.DeleteTransaction(ctx, userID, txID, negated(applyDeltas(old)))
}

func (s *service) Get(ctx context.Context, userID, txID uuid.UUID) (finance.Transaction, error) {
	if userID == uuid.Nil || txID == uuid.Nil {
		return finance.Transaction{}, errs.ErrInvalid
	}
	return s.repo.Transaction(ctx, userID, txID)
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]finance.Transaction, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.Transactions(ctx, userID)
}

func (s *service) fetchAccounts(ctx context.Context, tx finance.Transaction) (map[uuid.UUID]finance.Account, error) {
	ids := make([]uuid.UUID, 0, 2)
	if tx.SourceAccountID != nil {
		ids = append(ids, *tx.SourceAccountID)
	}
	if tx.DestAccountID != nil {
		ids = append(ids, *tx.DestAccountID)
	}
	accounts, err := s.repo.AccountsByIDs(ctx, tx.UserID, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := accounts[id]; !ok {
			return nil, fmt.Errorf("account %s: %w", id, errs.ErrNotFound)
		}
	}
	return accounts, nil
}

// applyDeltas returns the forward balance effect of tx: source loses the
// amount, destination gains it; either side is skipped when absent.
func applyDeltas(tx finance.Transaction) []finance.AccountDelta {
	deltas := make([]finance.AccountDelta, 0, 2)
	if tx.SourceAccountID != nil {
		deltas = append(deltas, finance.AccountDelta{AccountID: *tx.SourceAccountID, Amount: tx.Amount.Neg(), At: tx.Date})
	}
	if tx.DestAccountID != nil {
		deltas = append(deltas, finance.AccountDelta{AccountID: *tx.DestAccountID, Amount: tx.Amount, At: tx.Date})
	}
	return deltas
}

func negated(deltas []finance.AccountDelta) []finance.AccountDelta {
	out := make([]finance.AccountDelta, len(deltas))
	for i, d := range deltas {
		out[i] = d.Negated()
	}
	return out
}
