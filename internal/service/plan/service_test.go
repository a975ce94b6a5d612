package plan_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/solerv/finledger/internal/errs"
	"github.com/solerv/finledger/internal/finance"
	"github.com/solerv/finledger/internal/service/debt"
	"github.com/solerv/finledger/internal/service/plan"
	"github.com/solerv/finledger/internal/service/subaccount"
	"github.com/solerv/finledger/internal/service/transaction"
	"github.com/solerv/finledger/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func mxn(t *testing.T, minor int64) money.Amount {
	t.Helper()
	a, err := money.NewAmountFromMinorUnits("MXN", minor)
	if err != nil {
		t.Fatalf("mxn(%d): %v", minor, err)
	}
	return a
}

func minor(a money.Amount) int64 {
	m, _ := a.MinorUnits()
	return m
}

type fixture struct {
	store  *memory.Store
	svc    plan.Service
	userID uuid.UUID
	main   finance.Account
	save   finance.Account
	bucket finance.SubAccount
	loan   finance.Debt
}

func setup(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	userID := uuid.New()
	store.SeedUser(finance.User{ID: userID})

	main := finance.Account{
		ID: uuid.New(), UserID: userID, Name: "Checking",
		Kind: finance.AccountKindChecking, Currency: "MXN",
		Balance: mxn(t, 1000000), Active: true,
	}
	save := finance.Account{
		ID: uuid.New(), UserID: userID, Name: "Savings",
		Kind: finance.AccountKindSavings, Currency: "MXN",
		Balance: mxn(t, 0), Active: true,
	}
	store.SeedAccount(main)
	store.SeedAccount(save)

	bucket := finance.SubAccount{
		ID: uuid.New(), AccountID: save.ID, UserID: userID,
		Name: "Emergencia", Balance: mxn(t, 0), Active: true,
	}
	store.SeedSubAccount(bucket)

	rate := decimal.MustParse("12")
	loan := finance.Debt{
		ID: uuid.New(), UserID: userID, Kind: finance.DebtKindLoan,
		Counterparty: "Banco", Currency: "MXN",
		InitialBalance: mxn(t, 500000),
		Balance:        mxn(t, 500000),
		InterestRate:   &rate,
		StartDate:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:         finance.DebtStatusActive,
		Priority:       finance.PriorityHigh,
	}
	store.SeedDebt(loan)

	txs := transaction.New(store, store)
	subs := subaccount.New(store, store)
	debts := debt.New(store, store)
	svc := plan.New(store, store, txs, subs, debts, testLogger())
	return fixture{store: store, svc: svc, userID: userID, main: main, save: save, bucket: bucket, loan: loan}
}

func (f fixture) accountBalance(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	acc, err := f.store.Account(context.Background(), f.userID, id)
	if err != nil {
		t.Fatalf("account %s: %v", id, err)
	}
	return minor(acc.Balance)
}

func (f fixture) createItem(t *testing.T, item finance.PlanItem) finance.PlanItem {
	t.Helper()
	item.UserID = f.userID
	created, err := f.svc.CreateItem(context.Background(), item)
	if err != nil {
		t.Fatalf("create item %q: %v", item.Name, err)
	}
	return created
}

func TestExecuteItem_AccountTransfer(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	dstID := f.save.ID

	item := f.createItem(t, finance.PlanItem{
		Name:            "Ahorro",
		Kind:            finance.PlanAccountTransfer,
		Amount:          mxn(t, 200000),
		SourceAccountID: f.main.ID,
		DestAccountID:   &dstID,
	})
	executed, err := f.svc.ExecuteItem(ctx, f.userID, item.ID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !executed.Executed || executed.GeneratedTransactionID == nil || executed.ExecutedAt == nil {
		t.Fatalf("item not marked executed: %+v", executed)
	}
	if got := f.accountBalance(t, f.main.ID); got != 800000 {
		t.Fatalf("source balance = %d, want 800000", got)
	}
	if got := f.accountBalance(t, f.save.ID); got != 200000 {
		t.Fatalf("dest balance = %d, want 200000", got)
	}

	// re-executing an executed item is rejected
	if _, err := f.svc.ExecuteItem(ctx, f.userID, item.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("re-execute = %v, want ErrNotFound", err)
	}
}

func TestExecuteItem_SubAccountFunding(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	bucketID := f.bucket.ID

	item := f.createItem(t, finance.PlanItem{
		Name:             "Fondo emergencia",
		Kind:             finance.PlanSubAccountFunding,
		Amount:           mxn(t, 150000),
		SourceAccountID:  f.main.ID,
		DestSubAccountID: &bucketID,
	})
	executed, err := f.svc.ExecuteItem(ctx, f.userID, item.ID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := f.accountBalance(t, f.main.ID); got != 850000 {
		t.Fatalf("source balance = %d, want 850000", got)
	}
	sa, err := f.store.SubAccount(ctx, f.userID, f.bucket.ID)
	if err != nil {
		t.Fatalf("sub-account: %v", err)
	}
	if got := minor(sa.Balance); got != 150000 {
		t.Fatalf("bucket balance = %d, want 150000", got)
	}

	// the generated movement links back to the generated transaction
	moves, err := f.store.SubMovements(ctx, f.userID)
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if len(moves) != 1 || moves[0].TransactionID == nil || *moves[0].TransactionID != *executed.GeneratedTransactionID {
		t.Fatalf("movement not linked to transaction: %+v", moves)
	}
}

func TestExecuteItem_DebtPayment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	debtID := f.loan.ID

	item := f.createItem(t, finance.PlanItem{
		Name:            "Pago prestamo",
		Kind:            finance.PlanDebtPayment,
		Amount:          mxn(t, 100000),
		SourceAccountID: f.main.ID,
		DebtID:          &debtID,
	})
	if _, err := f.svc.ExecuteItem(ctx, f.userID, item.ID); err != nil {
		t.Fatalf("execute: %v", err)
	}
	// 5000.00 at 12% annual: 50.00 interest, 950.00 principal
	if got := f.accountBalance(t, f.main.ID); got != 900000 {
		t.Fatalf("source balance = %d, want 900000", got)
	}
	d, err := f.store.Debt(ctx, f.userID, f.loan.ID)
	if err != nil {
		t.Fatalf("debt: %v", err)
	}
	if got := minor(d.Balance); got != 405000 {
		t.Fatalf("debt balance = %d, want 405000", got)
	}
	moves, err := f.store.DebtMovements(ctx, f.userID)
	if err != nil {
		t.Fatalf("debt movements: %v", err)
	}
	if len(moves) != 1 || moves[0].Kind != finance.DebtMovementPayment {
		t.Fatalf("unexpected movements: %+v", moves)
	}
	if minor(*moves[0].PrincipalPaid) != 95000 || minor(*moves[0].InterestPaid) != 5000 {
		t.Fatalf("split = %d/%d, want 95000/5000", minor(*moves[0].PrincipalPaid), minor(*moves[0].InterestPaid))
	}
}

func TestExecuteItem_SourceCurrencyDriftIsConsistencyError(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	dstID := f.save.ID

	item := f.createItem(t, finance.PlanItem{
		Name:            "Ahorro",
		Kind:            finance.PlanAccountTransfer,
		Amount:          mxn(t, 200000),
		SourceAccountID: f.main.ID,
		DestAccountID:   &dstID,
	})

	// the stored account no longer matches the item's currency
	usd, err := money.NewAmountFromMinorUnits("USD", 1000000)
	if err != nil {
		t.Fatalf("usd: %v", err)
	}
	drifted := f.main
	drifted.Currency = "USD"
	drifted.Balance = usd
	f.store.SeedAccount(drifted)

	if _, err := f.svc.ExecuteItem(ctx, f.userID, item.ID); !errors.Is(err, errs.ErrConsistency) {
		t.Fatalf("execute = %v, want ErrConsistency", err)
	}
}

func TestExecuteAll_InsufficientFundsIsolated(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	dstID := f.save.ID

	f.createItem(t, finance.PlanItem{
		Name: "Primero", Kind: finance.PlanAccountTransfer,
		Amount: mxn(t, 900000), SourceAccountID: f.main.ID, DestAccountID: &dstID,
		Order: 1,
	})
	f.createItem(t, finance.PlanItem{
		Name: "Demasiado", Kind: finance.PlanAccountTransfer,
		Amount: mxn(t, 500000), SourceAccountID: f.main.ID, DestAccountID: &dstID,
		Order: 2,
	})
	f.createItem(t, finance.PlanItem{
		Name: "Tercero", Kind: finance.PlanAccountTransfer,
		Amount: mxn(t, 50000), SourceAccountID: f.main.ID, DestAccountID: &dstID,
		Order: 3,
	})

	results, err := f.svc.ExecuteAll(ctx, f.userID)
	if err != nil {
		t.Fatalf("execute all: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if !results[0].Executed || results[0].Err != nil {
		t.Fatalf("first item should execute: %+v", results[0])
	}
	if results[1].Executed || !errors.Is(results[1].Err, errs.ErrInsufficientFunds) {
		t.Fatalf("second item = %+v, want insufficient funds", results[1])
	}
	if !results[2].Executed {
		t.Fatalf("third item should execute despite the second failing: %+v", results[2])
	}
	if got := f.accountBalance(t, f.main.ID); got != 50000 {
		t.Fatalf("source balance = %d, want 50000", got)
	}
}

func TestExecuteAll_OrderAndPriority(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	dstID := f.save.ID

	mk := func(name string, order int, p finance.Priority) {
		f.createItem(t, finance.PlanItem{
			Name: name, Kind: finance.PlanAccountTransfer,
			Amount: mxn(t, 1000), SourceAccountID: f.main.ID, DestAccountID: &dstID,
			Order: order, Priority: p,
		})
	}
	mk("b-high", 2, finance.PriorityHigh)
	mk("a-low", 1, finance.PriorityLow)
	mk("b-low", 2, finance.PriorityLow)

	results, err := f.svc.ExecuteAll(ctx, f.userID)
	if err != nil {
		t.Fatalf("execute all: %v", err)
	}
	got := []string{results[0].Name, results[1].Name, results[2].Name}
	want := []string{"a-low", "b-high", "b-low"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("execution order = %v, want %v", got, want)
		}
	}
}

func TestResetPeriod(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	dstID := f.save.ID

	item := f.createItem(t, finance.PlanItem{
		Name: "Ahorro", Kind: finance.PlanAccountTransfer,
		Amount: mxn(t, 10000), SourceAccountID: f.main.ID, DestAccountID: &dstID,
	})
	if _, err := f.svc.ExecuteItem(ctx, f.userID, item.ID); err != nil {
		t.Fatalf("execute: %v", err)
	}
	n, err := f.svc.ResetPeriod(ctx, f.userID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n != 1 {
		t.Fatalf("reset = %d, want 1", n)
	}
	got, err := f.svc.GetItem(ctx, f.userID, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.Executed || got.ExecutedAt != nil || got.GeneratedTransactionID != nil {
		t.Fatalf("item not reset: %+v", got)
	}
	// balances stay where execution left them
	if bal := f.accountBalance(t, f.main.ID); bal != 990000 {
		t.Fatalf("balance after reset = %d, want 990000", bal)
	}
}

func TestPlanSummary(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	dstID := f.save.ID

	f.createItem(t, finance.PlanItem{
		Name: "Uno", Kind: finance.PlanAccountTransfer,
		Amount: mxn(t, 300000), SourceAccountID: f.main.ID, DestAccountID: &dstID,
	})
	f.createItem(t, finance.PlanItem{
		Name: "Dos", Kind: finance.PlanAccountTransfer,
		Amount: mxn(t, 400000), SourceAccountID: f.main.ID, DestAccountID: &dstID,
	})

	sum, err := f.svc.PlanSummary(ctx, f.userID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.PendingCount != 2 || sum.ExecutedCount != 0 {
		t.Fatalf("counts = %d/%d, want 2/0", sum.PendingCount, sum.ExecutedCount)
	}
	if minor(sum.PendingTotal) != 700000 {
		t.Fatalf("pending total = %d, want 700000", minor(sum.PendingTotal))
	}
	if minor(sum.Available) != 1000000 {
		t.Fatalf("available = %d, want 1000000", minor(sum.Available))
	}
	if !sum.CanExecuteAll {
		t.Fatalf("plan should be executable")
	}
}

func TestUpdateItem_ExecutionStateImmutable(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	dstID := f.save.ID

	item := f.createItem(t, finance.PlanItem{
		Name: "Ahorro", Kind: finance.PlanAccountTransfer,
		Amount: mxn(t, 10000), SourceAccountID: f.main.ID, DestAccountID: &dstID,
	})
	if _, err := f.svc.ExecuteItem(ctx, f.userID, item.ID); err != nil {
		t.Fatalf("execute: %v", err)
	}

	edit, err := f.svc.GetItem(ctx, f.userID, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	edit.Name = "Ahorro quincenal"
	edit.Executed = false
	edit.GeneratedTransactionID = nil
	updated, err := f.svc.UpdateItem(ctx, edit)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Ahorro quincenal" {
		t.Fatalf("name not updated: %+v", updated)
	}
	if !updated.Executed || updated.GeneratedTransactionID == nil {
		t.Fatalf("execution state must survive updates: %+v", updated)
	}
}
