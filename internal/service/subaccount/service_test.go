package subaccount_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/solerv/finledger/internal/errs"
	"github.com/solerv/finledger/internal/finance"
	"github.com/solerv/finledger/internal/service/subaccount"
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

func setup(t *testing.T) (*memory.Store, subaccount.Service, uuid.UUID, finance.Account) {
	t.Helper()
	store := memory.New()
	userID := uuid.New()
	store.SeedUser(finance.User{ID: userID})
	acc := finance.Account{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     "Checking",
		Kind:     finance.AccountKindChecking,
		Currency: "MXN",
		Balance:  mxn(t, 100000),
		Active:   true,
	}
	store.SeedAccount(acc)
	return store, subaccount.New(store, store), userID, acc
}

func seedBucket(t *testing.T, store *memory.Store, userID, accountID uuid.UUID, name string, balanceMinor int64) finance.SubAccount {
	t.Helper()
	sa := finance.SubAccount{
		ID:        uuid.New(),
		AccountID: accountID,
		UserID:    userID,
		Name:      name,
		Balance:   mxn(t, balanceMinor),
		Active:    true,
	}
	store.SeedSubAccount(sa)
	return sa
}

func bucketBalance(t *testing.T, store *memory.Store, userID, id uuid.UUID) int64 {
	t.Helper()
	sa, err := store.SubAccount(context.Background(), userID, id)
	if err != nil {
		t.Fatalf("sub-account %s: %v", id, err)
	}
	m, _ := sa.Balance.MinorUnits()
	return m
}

func TestCreateSubAccount_StartsAtZero(t *testing.T) {
	_, svc, userID, acc := setup(t)
	ctx := context.Background()

	sa, err := svc.CreateSubAccount(ctx, finance.SubAccount{
		UserID:    userID,
		AccountID: acc.ID,
		Name:      "Vacation",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !sa.Balance.IsZero() || sa.Balance.Curr().Code() != "MXN" {
		t.Fatalf("balance = %v, want zero MXN", sa.Balance)
	}
	if !sa.Active {
		t.Fatalf("new sub-account should be active")
	}

	if _, err := svc.CreateSubAccount(ctx, finance.SubAccount{UserID: userID, AccountID: uuid.New(), Name: "Orphan"}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown account = %v, want ErrNotFound", err)
	}
}

func TestMovements_FundSpendAndReversal(t *testing.T) {
	store, svc, userID, acc := setup(t)
	sa := seedBucket(t, store, userID, acc.ID, "Emergency", 0)
	ctx := context.Background()

	fund, err := svc.CreateMovement(ctx, finance.SubMovement{
		UserID:       userID,
		SubAccountID: sa.ID,
		Kind:         finance.SubMovementFund,
		Amount:       mxn(t, 30000),
	})
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if got := bucketBalance(t, store, userID, sa.ID); got != 30000 {
		t.Fatalf("balance after fund = %d, want 30000", got)
	}

	if _, err := svc.CreateMovement(ctx, finance.SubMovement{
		UserID:       userID,
		SubAccountID: sa.ID,
		Kind:         finance.SubMovementSpend,
		Amount:       mxn(t, 10000),
	}); err != nil {
		t.Fatalf("spend: %v", err)
	}
	if got := bucketBalance(t, store, userID, sa.ID); got != 20000 {
		t.Fatalf("balance after spend = %d, want 20000", got)
	}

	// edit the funding down; the old credit reverses before the new applies
	fund.Amount = mxn(t, 25000)
	if _, err := svc.EditMovement(ctx, fund); err != nil {
		t.Fatalf("edit fund: %v", err)
	}
	if got := bucketBalance(t, store, userID, sa.ID); got != 15000 {
		t.Fatalf("balance after edit = %d, want 15000", got)
	}

	if err := svc.DeleteMovement(ctx, userID, fund.ID); err != nil {
		t.Fatalf("delete fund: %v", err)
	}
	if got := bucketBalance(t, store, userID, sa.ID); got != -10000 {
		t.Fatalf("balance after delete = %d, want -10000", got)
	}
}

func TestMovements_TransferBothLegs(t *testing.T) {
	store, svc, userID, acc := setup(t)
	src := seedBucket(t, store, userID, acc.ID, "Vacation", 50000)
	dst := seedBucket(t, store, userID, acc.ID, "Car", 0)
	ctx := context.Background()

	dstID := dst.ID
	mv, err := svc.CreateMovement(ctx, finance.SubMovement{
		UserID:           userID,
		SubAccountID:     src.ID,
		DestSubAccountID: &dstID,
		Kind:             finance.SubMovementTransfer,
		Amount:           mxn(t, 20000),
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := bucketBalance(t, store, userID, src.ID); got != 30000 {
		t.Fatalf("source = %d, want 30000", got)
	}
	if got := bucketBalance(t, store, userID, dst.ID); got != 20000 {
		t.Fatalf("dest = %d, want 20000", got)
	}

	if err := svc.DeleteMovement(ctx, userID, mv.ID); err != nil {
		t.Fatalf("delete transfer: %v", err)
	}
	if got := bucketBalance(t, store, userID, src.ID); got != 50000 {
		t.Fatalf("source after delete = %d, want 50000", got)
	}
	if got := bucketBalance(t, store, userID, dst.ID); got != 0 {
		t.Fatalf("dest after delete = %d, want 0", got)
	}
}

func TestValidateMovement_Rejections(t *testing.T) {
	store, svc, userID, acc := setup(t)
	sa := seedBucket(t, store, userID, acc.ID, "Vacation", 0)
	ctx := context.Background()
	saID := sa.ID

	usd, err := money.NewAmountFromMinorUnits("USD", 100)
	if err != nil {
		t.Fatalf("usd: %v", err)
	}
	cases := []struct {
		name string
		m    finance.SubMovement
	}{
		{"zero fund", finance.SubMovement{UserID: userID, SubAccountID: saID, Kind: finance.SubMovementFund, Amount: mxn(t, 0)}},
		{"zero adjust", finance.SubMovement{UserID: userID, SubAccountID: saID, Kind: finance.SubMovementAdjust, Amount: mxn(t, 0)}},
		{"transfer to self", finance.SubMovement{UserID: userID, SubAccountID: saID, DestSubAccountID: &saID, Kind: finance.SubMovementTransfer, Amount: mxn(t, 100)}},
		{"transfer without dest", finance.SubMovement{UserID: userID, SubAccountID: saID, Kind: finance.SubMovementTransfer, Amount: mxn(t, 100)}},
		{"dest on non-transfer", finance.SubMovement{UserID: userID, SubAccountID: saID, DestSubAccountID: &saID, Kind: finance.SubMovementFund, Amount: mxn(t, 100)}},
		{"currency mismatch", finance.SubMovement{UserID: userID, SubAccountID: saID, Kind: finance.SubMovementFund, Amount: usd}},
	}
	for _, tc := range cases {
		if err := svc.ValidateMovement(ctx, tc.m); !errors.Is(err, errs.ErrInvalid) {
			t.Errorf("%s: ValidateMovement = %v, want ErrInvalid", tc.name, err)
		}
	}

	missingTx := uuid.New()
	m := finance.SubMovement{UserID: userID, SubAccountID: saID, TransactionID: &missingTx, Kind: finance.SubMovementFund, Amount: mxn(t, 100)}
	if err := svc.ValidateMovement(ctx, m); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("missing transaction = %v, want ErrNotFound", err)
	}
}

func TestAdjust_SignedAmount(t *testing.T) {
	store, svc, userID, acc := setup(t)
	sa := seedBucket(t, store, userID, acc.ID, "Vacation", 10000)
	ctx := context.Background()

	if _, err := svc.CreateMovement(ctx, finance.SubMovement{
		UserID:       userID,
		SubAccountID: sa.ID,
		Kind:         finance.SubMovementAdjust,
		Amount:       mxn(t, -2500),
	}); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if got := bucketBalance(t, store, userID, sa.ID); got != 7500 {
		t.Fatalf("balance after adjust = %d, want 7500", got)
	}
}
