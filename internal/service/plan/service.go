// Package plan implements the biweekly allocation plan: an ordered list of
// planned money movements executed one by one against the ledger. Execution
// re-enters the transaction, sub-account and debt engines; each item is
// all-or-nothing, and one item's failure never blocks the rest of the batch.
package plan

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/solerv/finledger/internal/errs"
	"github.com/solerv/finledger/internal/finance"
	"github.com/solerv/finledger/internal/service/debt"
	"github.com/solerv/finledger/internal/service/subaccount"
	"github.com/solerv/finledger/internal/service/transaction"
)

// Repo defines read operations needed by the service.
type Repo interface {
	PlanItem(ctx context.Context, userID, itemID uuid.UUID) (finance.PlanItem, error)
	PlanItems(ctx context.Context, userID uuid.UUID) ([]finance.PlanItem, error)
	Account(ctx context.Context, userID, accountID uuid.UUID) (finance.Account, error)
	SubAccount(ctx context.Context, userID, subAccountID uuid.UUID) (finance.SubAccount, error)
	Debt(ctx context.Context, userID, debtID uuid.UUID) (finance.Debt, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreatePlanItem(ctx context.Context, item finance.PlanItem) (finance.PlanItem, error)
	UpdatePlanItem(ctx context.Context, item finance.PlanItem) (finance.PlanItem, error)
	DeletePlanItem(ctx context.Context, userID, itemID uuid.UUID) error
	MarkPlanItemExecuted(ctx context.Context, userID, itemID, txID uuid.UUID, at time.Time) error
	ResetPlanItems(ctx context.Context, userID uuid.UUID) (int, error)
}

// ItemResult is the per-item outcome of a batch execution.
type ItemResult struct {
	ItemID        uuid.UUID
	Name          string
	Executed      bool
	TransactionID *uuid.UUID
	Err           error
}

// Summary is the advisory pending-vs-available view of a user's plan. Actual
// execution re-checks per item since balances move as items execute.
type Summary struct {
	PendingCount  int
	ExecutedCount int
	PendingTotal  money.Amount
	Available     money.Amount
	CanExecuteAll bool
}

// Service exposes plan-item management and the executor contract.
type Service interface {
	CreateItem(ctx context.Context, item finance.PlanItem) (finance.PlanItem, error)
	UpdateItem(ctx context.Context, item finance.PlanItem) (finance.PlanItem, error)
	DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error
	GetItem(ctx context.Context, userID, itemID uuid.UUID) (finance.PlanItem, error)
	ListItems(ctx context.Context, userID uuid.UUID) ([]finance.PlanItem, error)

	ExecuteItem(ctx context.Context, userID, itemID uuid.UUID) (finance.PlanItem, error)
	ExecuteAll(ctx context.Context, userID uuid.UUID) ([]ItemResult, error)
	ResetPeriod(ctx context.Context, userID uuid.UUID) (int, error)
	PlanSummary(ctx context.Context, userID uuid.UUID) (Summary, error)
}

type service struct {
	repo   Repo
	writer Writer
	txs    transaction.Service
	subs   subaccount.Service
	debts  debt.Service
	log    *slog.Logger
}

func New(repo Repo, writer Writer, txs transaction.Service, subs subaccount.Service, debts debt.Service, logger *slog.Logger) Service {
	return &service{repo: repo, writer: writer, txs: txs, subs: subs, debts: debts, log: logger}
}

func (s *service) validate(ctx context.Context, item finance.PlanItem) error {
	if item.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required: %w", errs.ErrInvalid)
	}
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("name is required: %w", errs.ErrInvalid)
	}
	if !item.Kind.Valid() {
		return fmt.Errorf("unknown plan item kind %q: %w", item.Kind, errs.ErrInvalid)
	}
	if !item.Amount.IsPos() {
		return fmt.Errorf("amount must be > 0: %w", errs.ErrInvalid)
	}
	if item.SourceAccountID == uuid.Nil {
		return fmt.Errorf("source account is required: %w", errs.ErrInvalid)
	}
	acc, err := s.repo.Account(ctx, item.UserID, item.SourceAccountID)
	if err != nil {
		return fmt.Errorf("source account %s: %w", item.SourceAccountID, err)
	}
	if acc.Currency != item.Amount.Curr().Code() {
		return fmt.Errorf("source account currency %s does not match amount currency %s: %w",
			acc.Currency, item.Amount.Curr().Code(), errs.ErrInvalid)
	}
	switch item.Kind {
	case finance.PlanAccountTransfer:
		if item.DestAccountID == nil {
			return fmt.Errorf("account transfer requires a destination account: %w", errs.ErrInvalid)
		}
		if *item.DestAccountID == item.SourceAccountID {
			return fmt.Errorf("source and destination accounts must differ: %w", errs.ErrInvalid)
		}
		if _, err := s.repo.Account(ctx, item.UserID, *item.DestAccountID); err != nil {
			return fmt.Errorf("destination account %s: %w", item.DestAccountID, err)
		}
	case finance.PlanSubAccountFunding:
		if item.DestSubAccountID == nil {
			return fmt.Errorf("sub-account funding requires a destination sub-account: %w", errs.ErrInvalid)
		}
		if _, err := s.repo.SubAccount(ctx, item.UserID, *item.DestSubAccountID); err != nil {
			return fmt.Errorf("destination sub-account %s: %w", item.DestSubAccountID, err)
		}
	case finance.PlanDebtPayment:
		if item.DebtID == nil {
			return fmt.Errorf("debt payment requires a target debt: %w", errs.ErrInvalid)
		}
		if _, err := s.repo.Debt(ctx, item.UserID, *item.DebtID); err != nil {
			return fmt.Errorf("target debt %s: %w", item.DebtID, err)
		}
	}
	return nil
}

func (s *service) CreateItem(ctx context.Context, item finance.PlanItem) (finance.PlanItem, error) {
	if item.Priority == "" {
		item.Priority = finance.PriorityMedium
	}
	if !item.Priority.Valid() {
		return finance.PlanItem{}, fmt.Errorf("unknown priority %q: %w", item.Priority, errs.ErrInvalid)
	}
	if err := s.validate(ctx, item); err != nil {
		return finance.PlanItem{}, err
	}
	now := time.Now().UTC()
	item.ID = uuid.New()
	item.Active = true
	item.Executed = false
	item.ExecutedAt = nil
	item.GeneratedTransactionID = nil
	item.CreatedAt = now
	item.UpdatedAt = now
	return s.writer.CreatePlanItem(ctx, item)
}

func (s *service) UpdateItem(ctx context.Context, item finance.PlanItem) (finance.PlanItem, error) {
	if item.UserID == uuid.Nil || item.ID == uuid.Nil {
		return finance.PlanItem{}, errs.ErrInvalid
	}
	current, err := s.repo.PlanItem(ctx, item.UserID, item.ID)
	if err != nil {
		return finance.PlanItem{}, err
	}
	if !item.Priority.Valid() {
		return finance.PlanItem{}, fmt.Errorf("unknown priority %q: %w", item.Priority, errs.ErrInvalid)
	}
	if err := s.validate(ctx, item); err != nil {
		return finance.PlanItem{}, err
	}
	// Execution state moves only through ExecuteItem and ResetPeriod.
	item.Executed = current.Executed
	item.ExecutedAt = current.ExecutedAt
	item.GeneratedTransactionID = current.GeneratedTransactionID
	item.CreatedAt = current.CreatedAt
	item.UpdatedAt = time.Now().UTC()
	return s.writer.UpdatePlanItem(ctx, item)
}

func (s *service) DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if userID == uuid.Nil || itemID == uuid.Nil {
		return errs.ErrInvalid
	}
	return s.writer.DeletePlanItem(ctx, userID, itemID)
}

func (s *service) GetItem(ctx context.Context, userID, itemID uuid.UUID) (finance.PlanItem, error) {
	if userID == uuid.Nil || itemID == uuid.Nil {
		return finance.PlanItem{}, errs.ErrInvalid
	}
	return s.repo.PlanItem(ctx, userID, itemID)
}

func (s *service) ListItems(ctx context.Context, userID uuid.UUID) ([]finance.PlanItem, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	items, err := s.repo.PlanItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortItems(items)
	return items, nil
}

// ExecuteItem runs one planned movement: funds check, dispatch by kind, then
// mark executed. A funding or payment item creates both a transaction and the
// linked movement; if the second write fails the transaction is deleted again
// so no partial state is retained.
func (s *service) ExecuteItem(ctx context.Context, userID, itemID uuid.UUID) (finance.PlanItem, error) {
	item, err := s.repo.PlanItem(ctx, userID, itemID)
	if err != nil {
		return finance.PlanItem{}, err
	}
	if !item.Active || item.Executed {
		return finance.PlanItem{}, fmt.Errorf("plan item %s is not pending: %w", itemID, errs.ErrNotFound)
	}
	acc, err := s.repo.Account(ctx, userID, item.SourceAccountID)
	if err != nil {
		return finance.PlanItem{}, err
	}
	cmp, err := acc.Balance.Cmp(item.Amount)
	if err != nil {
		return finance.PlanItem{}, fmt.Errorf("account %s balance not comparable to planned amount: %w",
			item.SourceAccountID, errs.ErrConsistency)
	}
	if cmp < 0 {
		return finance.PlanItem{}, fmt.Errorf("account %s balance below planned amount: %w",
			item.SourceAccountID, errs.ErrInsufficientFunds)
	}

	now := time.Now().UTC()
	var generated finance.Transaction
	switch item.Kind {
	case finance.PlanAccountTransfer:
		src, dst := item.SourceAccountID, *item.DestAccountID
		generated, err = s.txs.Create(ctx, finance.Transaction{
			UserID:          userID,
			SourceAccountID: &src,
			DestAccountID:   &dst,
			Date:            now,
			Kind:            finance.TransactionTransfer,
			Amount:          item.Amount,
			Description:     item.Name,
		})
		if err != nil {
			return finance.PlanItem{}, err
		}
	case finance.PlanSubAccountFunding:
		src := item.SourceAccountID
		generated, err = s.txs.Create(ctx, finance.Transaction{
			UserID:          userID,
			SourceAccountID: &src,
			Date:            now,
			Kind:            finance.TransactionAdjustment,
			Amount:          item.Amount,
			Description:     item.Name,
		})
		if err != nil {
			return finance.PlanItem{}, err
		}
		txID := generated.ID
		_, err = s.subs.CreateMovement(ctx, finance.SubMovement{
			UserID:        userID,
			SubAccountID:  *item.DestSubAccountID,
			TransactionID: &txID,
			Date:          now,
			Kind:          finance.SubMovementFund,
			Amount:        item.Amount,
			Description:   item.Name,
		})
		if err != nil {
			s.compensate(ctx, userID, generated.ID)
			return finance.PlanItem{}, err
		}
	case finance.PlanDebtPayment:
		// The split caps the payment at what the debt still owes, so the
		// effective total can come in under the planned amount.
		split, err := s.debts.AmortizationSplit(ctx, userID, *item.DebtID, item.Amount)
		if err != nil {
			return finance.PlanItem{}, err
		}
		src := item.SourceAccountID
		generated, err = s.txs.Create(ctx, finance.Transaction{
			UserID:          userID,
			SourceAccountID: &src,
			Date:            now,
			Kind:            finance.TransactionExpense,
			Amount:          split.Total,
			Description:     item.Name,
		})
		if err != nil {
			return finance.PlanItem{}, err
		}
		txID := generated.ID
		principal, interest := split.Principal, split.Interest
		_, err = s.debts.CreateMovement(ctx, finance.DebtMovement{
			UserID:        userID,
			DebtID:        *item.DebtID,
			TransactionID: &txID,
			Date:          now,
			Kind:          finance.DebtMovementPayment,
			Amount:        split.Total,
			PrincipalPaid: &principal,
			InterestPaid:  &interest,
			Description:   item.Name,
		})
		if err != nil {
			s.compensate(ctx, userID, generated.ID)
			return finance.PlanItem{}, err
		}
	default:
		return finance.PlanItem{}, fmt.Errorf("unknown plan item kind %q: %w", item.Kind, errs.ErrInvalid)
	}

	if err := s.writer.MarkPlanItemExecuted(ctx, userID, item.ID, generated.ID, now); err != nil {
		s.compensate(ctx, userID, generated.ID)
		return finance.PlanItem{}, err
	}
	return s.repo.PlanItem(ctx, userID, item.ID)
}

// compensate deletes a generated transaction after a later step failed, so
// the item leaves no partial effect behind.
func (s *service) compensate(ctx context.Context, userID, txID uuid.UUID) {
	if err := s.txs.Delete(ctx, userID, txID); err != nil {
		s.log.Error("rollback of generated transaction failed", "tx_id", txID, "err", err)
	}
}

// ExecuteAll runs every pending active item in plan order (execution order
// ascending, then priority high to low), collecting per-item results.
// Failures, including insufficient funds, are recorded and do not stop the
// batch.
func (s *service) ExecuteAll(ctx context.Context, userID uuid.UUID) ([]ItemResult, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	items, err := s.repo.PlanItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortItems(items)
	results := make([]ItemResult, 0, len(items))
	for _, item := range items {
		if !item.Active || item.Executed {
			continue
		}
		res := ItemResult{ItemID: item.ID, Name: item.Name}
		executed, err := s.ExecuteItem(ctx, userID, item.ID)
		if err != nil {
			res.Err = err
			s.log.Info("plan item skipped", "item_id", item.ID, "name", item.Name, "reason", err.Error())
		} else {
			res.Executed = true
			res.TransactionID = executed.GeneratedTransactionID
		}
		results = append(results, res)
	}
	return results, nil
}

// ResetPeriod makes all executed active items pending again for the next
// planning period.
func (s *service) ResetPeriod(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, errs.ErrInvalid
	}
	return s.writer.ResetPlanItems(ctx, userID)
}

// PlanSummary totals pending items against the distinct source accounts'
// balances. Advisory only: execution re-checks funds per item.
func (s *service) PlanSummary(ctx context.Context, userID uuid.UUID) (Summary, error) {
	if userID == uuid.Nil {
		return Summary{}, errs.ErrInvalid
	}
	items, err := s.repo.PlanItems(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	var sum Summary
	var pending, available money.Amount
	havePending, haveAvail := false, false
	seen := make(map[uuid.UUID]bool)
	for _, item := range items {
		if !item.Active {
			continue
		}
		if item.Executed {
			sum.ExecutedCount++
			continue
		}
		sum.PendingCount++
		if !havePending {
			pending = item.Amount
			havePending = true
		} else {
			pending, err = pending.Add(item.Amount)
			if err != nil {
				return Summary{}, fmt.Errorf("mixed currencies in plan: %w", errs.ErrInvalid)
			}
		}
		if !seen[item.SourceAccountID] {
			seen[item.SourceAccountID] = true
			acc, err := s.repo.Account(ctx, userID, item.SourceAccountID)
			if err != nil {
				return Summary{}, err
			}
			if !haveAvail {
				available = acc.Balance
				haveAvail = true
			} else {
				available, err = available.Add(acc.Balance)
				if err != nil {
					return Summary{}, fmt.Errorf("mixed currencies in plan: %w", errs.ErrInvalid)
				}
			}
		}
	}
	if !havePending {
		return sum, nil
	}
	sum.PendingTotal = pending
	sum.Available = available
	cmp, err := available.Cmp(pending)
	if err != nil {
		return Summary{}, fmt.Errorf("mixed currencies in plan: %w", errs.ErrInvalid)
	}
	sum.CanExecuteAll = cmp >= 0
	return sum, nil
}

func sortItems(items []finance.PlanItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Order != items[j].Order {
			return items[i].Order < items[j].Order
		}
		return items[i].Priority.Rank() < items[j].Priority.Rank()
	})
}
