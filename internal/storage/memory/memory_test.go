package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/solerv/finledger/internal/errs"
	"github.com/solerv/finledger/internal/finance"
)

func mxn(t *testing.T, minor int64) money.Amount {
	t.Helper()
	a, err := money.NewAmountFromMinorUnits("MXN", minor)
	if err != nil {
		t.Fatalf("mxn(%d): %v", minor, err)
	}
	return a
}

func TestCreateTransaction_MissingDeltaTargetAbortsWrite(t *testing.T) {
	store := New()
	userID := uuid.New()
	store.SeedUser(finance.User{ID: userID})
	acc := finance.Account{
		ID: uuid.New(), UserID: userID, Name: "Checking",
		Kind: finance.AccountKindChecking, Currency: "MXN",
		Balance: mxn(t, 10000), Active: true,
	}
	store.SeedAccount(acc)
	ctx := context.Background()

	accID := acc.ID
	tx := finance.Transaction{
		ID: uuid.New(), UserID: userID, SourceAccountID: &accID,
		Kind: finance.TransactionExpense, Amount: mxn(t, 5000),
	}
	deltas := []finance.AccountDelta{
		{AccountID: acc.ID, Amount: mxn(t, -5000)},
		{AccountID: uuid.New(), Amount: mxn(t, 5000)}, // no such account
	}
	if _, err := store.CreateTransaction(ctx, tx, deltas); !errors.Is(err, errs.ErrConsistency) {
		t.Fatalf("create = %v, want ErrConsistency", err)
	}

	// nothing committed: record absent, balance untouched
	if _, err := store.Transaction(ctx, userID, tx.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("transaction should not exist: %v", err)
	}
	got, err := store.Account(ctx, userID, acc.ID)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if m, _ := got.Balance.MinorUnits(); m != 10000 {
		t.Fatalf("balance = %d, want 10000", m)
	}
}

func TestCreateTransaction_CurrencyMismatchAbortsWrite(t *testing.T) {
	store := New()
	userID := uuid.New()
	acc := finance.Account{
		ID: uuid.New(), UserID: userID, Name: "Checking",
		Kind: finance.AccountKindChecking, Currency: "MXN",
		Balance: mxn(t, 10000), Active: true,
	}
	store.SeedAccount(acc)
	ctx := context.Background()

	usd, err := money.NewAmountFromMinorUnits("USD", 100)
	if err != nil {
		t.Fatalf("usd: %v", err)
	}
	tx := finance.Transaction{ID: uuid.New(), UserID: userID, Kind: finance.TransactionExpense, Amount: usd}
	deltas := []finance.AccountDelta{{AccountID: acc.ID, Amount: usd}}
	if _, err := store.CreateTransaction(ctx, tx, deltas); !errors.Is(err, errs.ErrConsistency) {
		t.Fatalf("create = %v, want ErrConsistency", err)
	}
}

func TestCreateTransaction_CommitmentLastEventMonotonic(t *testing.T) {
	store := New()
	userID := uuid.New()
	acc := finance.Account{
		ID: uuid.New(), UserID: userID, Name: "Checking",
		Kind: finance.AccountKindChecking, Currency: "MXN",
		Balance: mxn(t, 10000), Active: true,
	}
	store.SeedAccount(acc)
	c := finance.Commitment{
		ID: uuid.New(), UserID: userID, Description: "Renta",
		Direction: finance.DirectionExpense, Amount: mxn(t, 100), Currency: "MXN",
		Frequency: finance.FrequencyMonthly,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Active: true,
	}
	store.SeedCommitment(c)
	ctx := context.Background()

	accID := acc.ID
	linked := func(date time.Time) finance.Transaction {
		return finance.Transaction{
			ID: uuid.New(), UserID: userID, SourceAccountID: &accID,
			CommitmentID: &c.ID, Date: date,
			Kind: finance.TransactionExpense, Amount: mxn(t, 100),
		}
	}
	later := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	tx := linked(later)
	if _, err := store.CreateTransaction(ctx, tx, []finance.AccountDelta{{AccountID: acc.ID, Amount: mxn(t, -100)}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	// a backdated transaction must not rewind the chain
	tx = linked(earlier)
	if _, err := store.CreateTransaction(ctx, tx, []finance.AccountDelta{{AccountID: acc.ID, Amount: mxn(t, -100)}}); err != nil {
		t.Fatalf("create earlier: %v", err)
	}
	got, err := store.Commitment(ctx, userID, c.ID)
	if err != nil {
		t.Fatalf("commitment: %v", err)
	}
	if got.LastEvent == nil || !got.LastEvent.Equal(later) {
		t.Fatalf("last event = %v, want %v", got.LastEvent, later)
	}

	// a dangling commitment link aborts the whole write
	missing := uuid.New()
	tx = linked(later)
	tx.CommitmentID = &missing
	if _, err := store.CreateTransaction(ctx, tx, []finance.AccountDelta{{AccountID: acc.ID, Amount: mxn(t, -100)}}); !errors.Is(err, errs.ErrConsistency) {
		t.Fatalf("dangling commitment = %v, want ErrConsistency", err)
	}
	if _, err := store.Transaction(ctx, userID, tx.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("transaction should not exist: %v", err)
	}
}

func TestDebtDeltas_StatusAndCounterRecompute(t *testing.T) {
	store := New()
	userID := uuid.New()
	count := 3
	d := finance.Debt{
		ID: uuid.New(), UserID: userID, Kind: finance.DebtKindLoan,
		Counterparty: "Banco", Currency: "MXN",
		InitialBalance:   mxn(t, 10000),
		Balance:          mxn(t, 10000),
		InstallmentCount: &count,
		Status:           finance.DebtStatusActive,
		Priority:         finance.PriorityMedium,
	}
	store.SeedDebt(d)
	ctx := context.Background()

	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mv := finance.DebtMovement{ID: uuid.New(), UserID: userID, DebtID: d.ID, Kind: finance.DebtMovementPayment, Amount: mxn(t, 10000)}
	if _, err := store.CreateDebtMovement(ctx, mv, []finance.DebtDelta{
		{DebtID: d.ID, Amount: mxn(t, -10000), Installments: 1, LastPayment: &at},
	}); err != nil {
		t.Fatalf("create movement: %v", err)
	}
	got, err := store.Debt(ctx, userID, d.ID)
	if err != nil {
		t.Fatalf("debt: %v", err)
	}
	if got.Status != finance.DebtStatusPaid || got.PaidInstallments != 1 {
		t.Fatalf("status/installments = %s/%d, want paid/1", got.Status, got.PaidInstallments)
	}
	if got.LastPayment == nil || !got.LastPayment.Equal(at) {
		t.Fatalf("last payment = %v, want %v", got.LastPayment, at)
	}

	// reversing flips the status back and the counter clamps at zero
	if err := store.DeleteDebtMovement(ctx, userID, mv.ID, []finance.DebtDelta{
		{DebtID: d.ID, Amount: mxn(t, 10000), Installments: -1},
	}); err != nil {
		t.Fatalf("delete movement: %v", err)
	}
	got, err = store.Debt(ctx, userID, d.ID)
	if err != nil {
		t.Fatalf("debt: %v", err)
	}
	if got.Status != finance.DebtStatusActive || got.PaidInstallments != 0 {
		t.Fatalf("status/installments = %s/%d, want active/0", got.Status, got.PaidInstallments)
	}
}

func TestCancelledStatusPreserved(t *testing.T) {
	store := New()
	userID := uuid.New()
	d := finance.Debt{
		ID: uuid.New(), UserID: userID, Kind: finance.DebtKindLoan,
		Counterparty: "Banco", Currency: "MXN",
		InitialBalance: mxn(t, 10000),
		Balance:        mxn(t, 10000),
		Status:         finance.DebtStatusCancelled,
		Priority:       finance.PriorityLow,
	}
	store.SeedDebt(d)
	ctx := context.Background()

	mv := finance.DebtMovement{ID: uuid.New(), UserID: userID, DebtID: d.ID, Kind: finance.DebtMovementAdjustment, Amount: mxn(t, -10000)}
	if _, err := store.CreateDebtMovement(ctx, mv, []finance.DebtDelta{{DebtID: d.ID, Amount: mxn(t, -10000)}}); err != nil {
		t.Fatalf("create movement: %v", err)
	}
	got, err := store.Debt(ctx, userID, d.ID)
	if err != nil {
		t.Fatalf("debt: %v", err)
	}
	if got.Status != finance.DebtStatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}
}

func TestUserScoping(t *testing.T) {
	store := New()
	owner, stranger := uuid.New(), uuid.New()
	acc := finance.Account{
		ID: uuid.New(), UserID: owner, Name: "Checking",
		Kind: finance.AccountKindChecking, Currency: "MXN",
		Balance: mxn(t, 0), Active: true,
	}
	store.SeedAccount(acc)
	ctx := context.Background()

	if _, err := store.Account(ctx, stranger, acc.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("cross-user read = %v, want ErrNotFound", err)
	}
	list, err := store.Accounts(ctx, stranger)
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("stranger sees %d accounts, want 0", len(list))
	}
}
