package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/solerv/finledger/internal/errs"
	"github.com/solerv/finledger/internal/finance"
	"github.com/solerv/finledger/internal/service/account"
	"github.com/solerv/finledger/internal/service/transaction"
	"github.com/solerv/finledger/internal/storage/memory"
)

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

func setup(t *testing.T) (*memory.Store, account.Service, uuid.UUID) {
	t.Helper()
	store := memory.New()
	userID := uuid.New()
	store.SeedUser(finance.User{ID: userID})
	txs := transaction.New(store, store)
	return store, account.New(store, store, txs), userID
}

func TestCreate_OpeningBalancePostedAsAdjustment(t *testing.T) {
	store, svc, userID := setup(t)
	ctx := context.Background()

	opening := mxn(t, 250000)
	created, err := svc.Create(ctx, finance.Account{
		UserID:   userID,
		Name:     "Checking",
		Kind:     finance.AccountKindChecking,
		Currency: "MXN",
	}, &opening)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := minor(created.Balance); got != 250000 {
		t.Fatalf("balance = %d, want 250000", got)
	}

	txs, err := store.Transactions(ctx, userID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(txs))
	}
	tx := txs[0]
	if tx.Kind != finance.TransactionAdjustment || tx.DestAccountID == nil || *tx.DestAccountID != created.ID {
		t.Fatalf("unexpected opening transaction: %+v", tx)
	}

	// a negative opening debits the account instead
	negOpening := mxn(t, -50000)
	overdrawn, err := svc.Create(ctx, finance.Account{
		UserID:   userID,
		Name:     "Card",
		Kind:     finance.AccountKindOther,
		Currency: "MXN",
	}, &negOpening)
	if err != nil {
		t.Fatalf("create overdrawn: %v", err)
	}
	if got := minor(overdrawn.Balance); got != -50000 {
		t.Fatalf("balance = %d, want -50000", got)
	}
}

func TestCreate_UniqueNamePerUser(t *testing.T) {
	_, svc, userID := setup(t)
	ctx := context.Background()

	base := finance.Account{UserID: userID, Name: "Checking", Kind: finance.AccountKindChecking, Currency: "MXN"}
	if _, err := svc.Create(ctx, base, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := base
	dup.Name = "checking" // case-insensitive
	if _, err := svc.Create(ctx, dup, nil); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("duplicate name = %v, want ErrConflict", err)
	}
}

func TestValidate_CreditCardRules(t *testing.T) {
	_, svc, userID := setup(t)

	limit := mxn(t, 5000000)
	badDay := 32
	cutDay, payDay := 5, 25

	card := finance.Account{
		UserID: userID, Name: "Oro", Kind: finance.AccountKindCreditCard,
		Currency: "MXN", CreditLimit: &limit, CutDay: &cutDay, PayDay: &payDay,
	}
	if err := svc.Validate(card); err != nil {
		t.Fatalf("valid card rejected: %v", err)
	}

	noLimit := card
	noLimit.CreditLimit = nil
	if err := svc.Validate(noLimit); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("card without limit = %v, want ErrInvalid", err)
	}

	badCut := card
	badCut.CutDay = &badDay
	if err := svc.Validate(badCut); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("cut day 32 = %v, want ErrInvalid", err)
	}

	// limit on a non-card is rejected
	checking := finance.Account{
		UserID: userID, Name: "Nomina", Kind: finance.AccountKindChecking,
		Currency: "MXN", CreditLimit: &limit,
	}
	if err := svc.Validate(checking); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("limit on checking = %v, want ErrInvalid", err)
	}

	unknown := finance.Account{UserID: userID, Name: "X", Kind: finance.AccountKindChecking, Currency: "XQZ"}
	if err := svc.Validate(unknown); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("unknown currency = %v, want ErrInvalid", err)
	}
}

func TestUpdate_ImmutableFields(t *testing.T) {
	_, svc, userID := setup(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, finance.Account{
		UserID: userID, Name: "Checking", Kind: finance.AccountKindChecking, Currency: "MXN",
	}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	edit := created
	edit.Currency = "USD"
	if _, err := svc.Update(ctx, edit); !errors.Is(err, errs.ErrImmutable) {
		t.Fatalf("currency change = %v, want ErrImmutable", err)
	}

	edit = created
	edit.Kind = finance.AccountKindSavings
	if _, err := svc.Update(ctx, edit); !errors.Is(err, errs.ErrImmutable) {
		t.Fatalf("kind change = %v, want ErrImmutable", err)
	}

	edit = created
	edit.Name = "Nomina"
	edit.Description = "cuenta principal"
	updated, err := svc.Update(ctx, edit)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Nomina" || updated.Description != "cuenta principal" {
		t.Fatalf("descriptive fields not updated: %+v", updated)
	}
}

func TestDeactivate_SoftDelete(t *testing.T) {
	_, svc, userID := setup(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, finance.Account{
		UserID: userID, Name: "Checking", Kind: finance.AccountKindChecking, Currency: "MXN",
	}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Deactivate(ctx, userID, created.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, err := svc.Get(ctx, userID, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Active {
		t.Fatalf("account should be inactive")
	}
}
