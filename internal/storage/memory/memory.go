// Package memory provides an in-memory implementation used for development
// and tests. It keeps code paths easy to follow while allowing us to plug in
// a real DB later.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/solerv/finledger/internal/errs"
	"github.com/solerv/finledger/internal/finance"
)

// Store is an in-memory implementation of every repository and writer the
// services consume. A single mutex makes each write method (record change
// plus balance deltas) one atomic unit, mirroring the database transaction
// the postgres store uses.
type Store struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]finance.User
	accounts      map[uuid.UUID]finance.Account
	subAccounts   map[uuid.UUID]finance.SubAccount
	debts         map[uuid.UUID]finance.Debt
	transactions  map[uuid.UUID]finance.Transaction
	subMovements  map[uuid.UUID]finance.SubMovement
	debtMovements map[uuid.UUID]finance.DebtMovement
	commitments   map[uuid.UUID]finance.Commitment
	planItems     map[uuid.UUID]finance.PlanItem
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		users:         make(map[uuid.UUID]finance.User),
		accounts:      make(map[uuid.UUID]finance.Account),
		subAccounts:   make(map[uuid.UUID]finance.SubAccount),
		debts:         make(map[uuid.UUID]finance.Debt),
		transactions:  make(map[uuid.UUID]finance.Transaction),
		subMovements:  make(map[uuid.UUID]finance.SubMovement),
		debtMovements: make(map[uuid.UUID]finance.DebtMovement),
		commitments:   make(map[uuid.UUID]finance.Commitment),
		planItems:     make(map[uuid.UUID]finance.PlanItem),
	}
}

// Seed helpers for local dev and tests.
func (s *Store) SeedUser(u finance.User) { s.mu.Lock(); s.users[u.ID] = u; s.mu.Unlock() }

func (s *Store) SeedAccount(a finance.Account) { s.mu.Lock(); s.accounts[a.ID] = a; s.mu.Unlock() }

func (s *Store) SeedSubAccount(sa finance.SubAccount) {
	s.mu.Lock()
	s.subAccounts[sa.ID] = sa
	s.mu.Unlock()
}

func (s *Store) SeedDebt(d finance.Debt) { s.mu.Lock(); s.debts[d.ID] = d; s.mu.Unlock() }

func (s *Store) SeedCommitment(c finance.Commitment) {
	s.mu.Lock()
	s.commitments[c.ID] = c
	s.mu.Unlock()
}

// -- accounts

func (s *Store) Account(_ context.Context, userID, accountID uuid.UUID) (finance.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok || a.UserID != userID {
		return finance.Account{}, errs.ErrNotFound
	}
	return a, nil
}

func (s *Store) Accounts(_ context.Context, userID uuid.UUID) ([]finance.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finance.Account, 0)
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out, nil
}

func (s *Store) AccountsByIDs(_ context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]finance.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]finance.Account, len(ids))
	for _, id := range ids {
		if a, ok := s.accounts[id]; ok && a.UserID == userID {
			out[id] = a
		}
	}
	return out, nil
}

func (s *Store) CreateAccount(_ context.Context, a finance.Account) (finance.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) UpdateAccount(_ context.Context, a finance.Account) (finance.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.accounts[a.ID]
	if !ok || current.UserID != a.UserID {
		return finance.Account{}, errs.ErrNotFound
	}
	s.accounts[a.ID] = a
	return a, nil
}

// -- transactions

func (s *Store) Transaction(_ context.Context, userID, txID uuid.UUID) (finance.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[txID]
	if !ok || tx.UserID != userID {
		return finance.Transaction{}, errs.ErrNotFound
	}
	return tx, nil
}

func (s *Store) Transactions(_ context.Context, userID uuid.UUID) ([]finance.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finance.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx finance.Transaction, deltas []finance.AccountDelta) (finance.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged, err := s.stageAccountDeltas(tx.UserID, deltas)
	if err != nil {
		return finance.Transaction{}, err
	}
	// A linked commitment's last event advances in the same unit as the
	// record and balance writes, never past the transaction date backwards.
	if tx.CommitmentID != nil {
		c, ok := s.commitments[*tx.CommitmentID]
		if !ok || c.UserID != tx.UserID {
			return finance.Transaction{}, errs.ErrConsistency
		}
		if c.LastEvent == nil || tx.Date.After(*c.LastEvent) {
			at := tx.Date
			c.LastEvent = &at
			c.UpdatedAt = time.Now().UTC()
			s.commitments[*tx.CommitmentID] = c
		}
	}
	s.transactions[tx.ID] = tx
	s.commitAccounts(staged)
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx finance.Transaction, deltas []finance.AccountDelta) (finance.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.transactions[tx.ID]
	if !ok || current.UserID != tx.UserID {
		return finance.Transaction{}, errs.ErrNotFound
	}
	staged, err := s.stageAccountDeltas(tx.UserID, deltas)
	if err != nil {
		return finance.Transaction{}, err
	}
	s.transactions[tx.ID] = tx
	s.commitAccounts(staged)
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, txID uuid.UUID, deltas []finance.AccountDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.transactions[txID]
	if !ok || current.UserID != userID {
		return errs.ErrNotFound
	}
	staged, err := s.stageAccountDeltas(userID, deltas)
	if err != nil {
		return err
	}
	delete(s.transactions, txID)
	s.commitAccounts(staged)
	return nil
}

// stageAccountDeltas computes the post-delta accounts without touching the
// store, so a missing or mismatched row aborts the whole write.
func (s *Store) stageAccountDeltas(userID uuid.UUID, deltas []finance.AccountDelta) (map[uuid.UUID]finance.Account, error) {
	staged := make(map[uuid.UUID]finance.Account, len(deltas))
	for _, d := range deltas {
		acc, ok := staged[d.AccountID]
		if !ok {
			acc, ok = s.accounts[d.AccountID]
			if !ok || acc.UserID != userID {
				return nil, errs.ErrConsistency
			}
		}
		next, err := acc.Balance.Add(d.Amount)
		if err != nil {
			return nil, errs.ErrConsistency
		}
		acc.Balance = next
		if !d.At.IsZero() {
			at := d.At
			if acc.LastMovement == nil || at.After(*acc.LastMovement) {
				acc.LastMovement = &at
			}
		}
		acc.UpdatedAt = time.Now().UTC()
		staged[d.AccountID] = acc
	}
	return staged, nil
}

func (s *Store) commitAccounts(staged map[uuid.UUID]finance.Account) {
	for id, acc := range staged {
		s.accounts[id] = acc
	}
}

// -- sub-accounts

func (s *Store) SubAccount(_ context.Context, userID, subAccountID uuid.UUID) (finance.SubAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sa, ok := s.subAccounts[subAccountID]
	if !ok || sa.UserID != userID {
		return finance.SubAccount{}, errs.ErrNotFound
	}
	return sa, nil
}

func (s *Store) SubAccounts(_ context.Context, userID uuid.UUID) ([]finance.SubAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finance.SubAccount, 0)
	for _, sa := range s.subAccounts {
		if sa.UserID == userID {
			out = append(out, sa)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out, nil
}

func (s *Store) SubAccountsByIDs(_ context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]finance.SubAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]finance.SubAccount, len(ids))
	for _, id := range ids {
		if sa, ok := s.subAccounts[id]; ok && sa.UserID == userID {
			out[id] = sa
		}
	}
	return out, nil
}

func (s *Store) CreateSubAccount(_ context.Context, sa finance.SubAccount) (finance.SubAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subAccounts[sa.ID] = sa
	return sa, nil
}

func (s *Store) UpdateSubAccount(_ context.Context, sa finance.SubAccount) (finance.SubAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.subAccounts[sa.ID]
	if !ok || current.UserID != sa.UserID {
		return finance.SubAccount{}, errs.ErrNotFound
	}
	s.subAccounts[sa.ID] = sa
	return sa, nil
}

func (s *Store) SubMovement(_ context.Context, userID, movementID uuid.UUID) (finance.SubMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.subMovements[movementID]
	if !ok || m.UserID != userID {
		return finance.SubMovement{}, errs.ErrNotFound
	}
	return m, nil
}

func (s *Store) SubMovements(_ context.Context, userID uuid.UUID) ([]finance.SubMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finance.SubMovement, 0)
	for _, m := range s.subMovements {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Store) CreateSubMovement(_ context.Context, m finance.SubMovement, deltas []finance.SubAccountDelta) (finance.SubMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged, err := s.stageSubAccountDeltas(m.UserID, deltas)
	if err != nil {
		return finance.SubMovement{}, err
	}
	s.subMovements[m.ID] = m
	s.commitSubAccounts(staged)
	return m, nil
}

func (s *Store) UpdateSubMovement(_ context.Context, m finance.SubMovement, deltas []finance.SubAccountDelta) (finance.SubMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.subMovements[m.ID]
	if !ok || current.UserID != m.UserID {
		return finance.SubMovement{}, errs.ErrNotFound
	}
	staged, err := s.stageSubAccountDeltas(m.UserID, deltas)
	if err != nil {
		return finance.SubMovement{}, err
	}
	s.subMovements[m.ID] = m
	s.commitSubAccounts(staged)
	return m, nil
}

func (s *Store) DeleteSubMovement(_ context.Context, userID, movementID uuid.UUID, deltas []finance.SubAccountDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.subMovements[movementID]
	if !ok || current.UserID != userID {
		return errs.ErrNotFound
	}
	staged, err := s.stageSubAccountDeltas(userID, deltas)
	if err != nil {
		return err
	}
	delete(s.subMovements, movementID)
	s.commitSubAccounts(staged)
	return nil
}

func (s *Store) stageSubAccountDeltas(userID uuid.UUID, deltas []finance.SubAccountDelta) (map[uuid.UUID]finance.SubAccount, error) {
	staged := make(map[uuid.UUID]finance.SubAccount, len(deltas))
	for _, d := range deltas {
		sa, ok := staged[d.SubAccountID]
		if !ok {
			sa, ok = s.subAccounts[d.SubAccountID]
			if !ok || sa.UserID != userID {
				return nil, errs.ErrConsistency
			}
		}
		next, err := sa.Balance.Add(d.Amount)
		if err != nil {
			return nil, errs.ErrConsistency
		}
		sa.Balance = next
		sa.UpdatedAt = time.Now().UTC()
		staged[d.SubAccountID] = sa
	}
	return staged, nil
}

func (s *Store) commitSubAccounts(staged map[uuid.UUID]finance.SubAccount) {
	for id, sa := range staged {
		s.subAccounts[id] = sa
	}
}

// -- debts

func (s *Store) Debt(_ context.Context, userID, debtID uuid.UUID) (finance.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.debts[debtID]
	if !ok || d.UserID != userID {
		return finance.Debt{}, errs.ErrNotFound
	}
	return d, nil
}

func (s *Store) Debts(_ context.Context, userID uuid.UUID) ([]finance.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finance.Debt, 0)
	for _, d := range s.debts {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out, nil
}

func (s *Store) CreateDebt(_ context.Context, d finance.Debt) (finance.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debts[d.ID] = d
	return d, nil
}

func (s *Store) UpdateDebt(_ context.Context, d finance.Debt) (finance.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.debts[d.ID]
	if !ok || current.UserID != d.UserID {
		return finance.Debt{}, errs.ErrNotFound
	}
	s.debts[d.ID] = d
	return d, nil
}

func (s *Store) DebtMovement(_ context.Context, userID, movementID uuid.UUID) (finance.DebtMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.debtMovements[movementID]
	if !ok || m.UserID != userID {
		return finance.DebtMovement{}, errs.ErrNotFound
	}
	return m, nil
}

func (s *Store) DebtMovements(_ context.Context, userID uuid.UUID) ([]finance.DebtMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finance.DebtMovement, 0)
	for _, m := range s.debtMovements {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Store) CreateDebtMovement(_ context.Context, m finance.DebtMovement, deltas []finance.DebtDelta) (finance.DebtMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged, err := s.stageDebtDeltas(m.UserID, deltas)
	if err != nil {
		return finance.DebtMovement{}, err
	}
	s.debtMovements[m.ID] = m
	s.commitDebts(staged)
	return m, nil
}

func (s *Store) UpdateDebtMovement(_ context.Context, m finance.DebtMovement, deltas []finance.DebtDelta) (finance.DebtMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.debtMovements[m.ID]
	if !ok || current.UserID != m.UserID {
		return finance.DebtMovement{}, errs.ErrNotFound
	}
	staged, err := s.stageDebtDeltas(m.UserID, deltas)
	if err != nil {
		return finance.DebtMovement{}, err
	}
	s.debtMovements[m.ID] = m
	s.commitDebts(staged)
	return m, nil
}

func (s *Store) DeleteDebtMovement(_ context.Context, userID, movementID uuid.UUID, deltas []finance.DebtDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.debtMovements[movementID]
	if !ok || current.UserID != userID {
		return errs.ErrNotFound
	}
	staged, err := s.stageDebtDeltas(userID, deltas)
	if err != nil {
		return err
	}
	delete(s.debtMovements, movementID)
	s.commitDebts(staged)
	return nil
}

// stageDebtDeltas applies balance, installment counter and last-payment
// changes on copies, recomputing the status from the resulting balance so a
// reversal can move a paid debt back to active.
func (s *Store) stageDebtDeltas(userID uuid.UUID, deltas []finance.DebtDelta) (map[uuid.UUID]finance.Debt, error) {
	staged := make(map[uuid.UUID]finance.Debt, len(deltas))
	for _, dl := range deltas {
		d, ok := staged[dl.DebtID]
		if !ok {
			d, ok = s.debts[dl.DebtID]
			if !ok || d.UserID != userID {
				return nil, errs.ErrConsistency
			}
		}
		next, err := d.Balance.Add(dl.Amount)
		if err != nil {
			return nil, errs.ErrConsistency
		}
		d.Balance = next
		d.PaidInstallments += dl.Installments
		if d.PaidInstallments < 0 {
			d.PaidInstallments = 0
		}
		if dl.LastPayment != nil {
			lp := *dl.LastPayment
			d.LastPayment = &lp
		}
		if d.Status != finance.DebtStatusCancelled {
			if d.Settled() {
				d.Status = finance.DebtStatusPaid
			} else {
				d.Status = finance.DebtStatusActive
			}
		}
		d.UpdatedAt = time.Now().UTC()
		staged[dl.DebtID] = d
	}
	return staged, nil
}

func (s *Store) commitDebts(staged map[uuid.UUID]finance.Debt) {
	for id, d := range staged {
		s.debts[id] = d
	}
}

// -- commitments

func (s *Store) Commitment(_ context.Context, userID, commitmentID uuid.UUID) (finance.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.commitments[commitmentID]
	if !ok || c.UserID != userID {
		return finance.Commitment{}, errs.ErrNotFound
	}
	return c, nil
}

func (s *Store) Commitments(_ context.Context, userID uuid.UUID) ([]finance.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finance.Commitment, 0)
	for _, c := range s.commitments {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out, nil
}

func (s *Store) CreateCommitment(_ context.Context, c finance.Commitment) (finance.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitments[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCommitment(_ context.Context, c finance.Commitment) (finance.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.commitments[c.ID]
	if !ok || current.UserID != c.UserID {
		return finance.Commitment{}, errs.ErrNotFound
	}
	s.commitments[c.ID] = c
	return c, nil
}

// -- plan items

func (s *Store) PlanItem(_ context.Context, userID, itemID uuid.UUID) (finance.PlanItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.planItems[itemID]
	if !ok || item.UserID != userID {
		return finance.PlanItem{}, errs.ErrNotFound
	}
	return item, nil
}

func (s *Store) PlanItems(_ context.Context, userID uuid.UUID) ([]finance.PlanItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finance.PlanItem, 0)
	for _, item := range s.planItems {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Store) CreatePlanItem(_ context.Context, item finance.PlanItem) (finance.PlanItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planItems[item.ID] = item
	return item, nil
}

func (s *Store) UpdatePlanItem(_ context.Context, item finance.PlanItem) (finance.PlanItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.planItems[item.ID]
	if !ok || current.UserID != item.UserID {
		return finance.PlanItem{}, errs.ErrNotFound
	}
	s.planItems[item.ID] = item
	return item, nil
}

func (s *Store) DeletePlanItem(_ context.Context, userID, itemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.planItems[itemID]
	if !ok || current.UserID != userID {
		return errs.ErrNotFound
	}
	delete(s.planItems, itemID)
	return nil
}

func (s *Store) MarkPlanItemExecuted(_ context.Context, userID, itemID, txID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.planItems[itemID]
	if !ok || item.UserID != userID {
		return errs.ErrNotFound
	}
	item.Executed = true
	item.ExecutedAt = &at
	item.GeneratedTransactionID = &txID
	item.UpdatedAt = time.Now().UTC()
	s.planItems[itemID] = item
	return nil
}

func (s *Store) ResetPlanItems(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, item := range s.planItems {
		if item.UserID != userID || !item.Active || !item.Executed {
			continue
		}
		item.Executed = false
		item.ExecutedAt = nil
		item.GeneratedTransactionID = nil
		item.UpdatedAt = time.Now().UTC()
		s.planItems[id] = item
		n++
	}
	return n, nil
}

// lessID gives listings a stable order when dates tie.
func lessID(a, b uuid.UUID) bool { return bytes.Compare(a[:], b[:]) < 0 }
