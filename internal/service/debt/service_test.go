package debt_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/solerv/finledger/internal/errs"
	"github.com/solerv/finledger/internal/finance"
	"github.com/solerv/finledger/internal/service/debt"
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

func setup(t *testing.T) (*memory.Store, debt.Service, uuid.UUID) {
	t.Helper()
	store := memory.New()
	userID := uuid.New()
	store.SeedUser(finance.User{ID: userID})
	return store, debt.New(store, store), userID
}

func seedLoan(t *testing.T, store *memory.Store, userID uuid.UUID, balanceMinor int64, annualRate string, installments *int) finance.Debt {
	t.Helper()
	rate := decimal.MustParse(annualRate)
	d := finance.Debt{
		ID:               uuid.New(),
		UserID:           userID,
		Kind:             finance.DebtKindLoan,
		Counterparty:     "Banco",
		Currency:         "MXN",
		InitialBalance:   mxn(t, balanceMinor),
		Balance:          mxn(t, balanceMinor),
		InstallmentCount: installments,
		InterestRate:     &rate,
		StartDate:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:           finance.DebtStatusActive,
		Priority:         finance.PriorityMedium,
	}
	store.SeedDebt(d)
	return d
}

func debtOf(t *testing.T, store *memory.Store, userID, id uuid.UUID) finance.Debt {
	t.Helper()
	d, err := store.Debt(context.Background(), userID, id)
	if err != nil {
		t.Fatalf("debt %s: %v", id, err)
	}
	return d
}

func minor(a money.Amount) int64 {
	m, _ := a.MinorUnits()
	return m
}

func TestCreateDebt_SignConvention(t *testing.T) {
	_, svc, userID := setup(t)
	ctx := context.Background()

	d, err := svc.CreateDebt(ctx, finance.Debt{
		UserID:         userID,
		Kind:           finance.DebtKindLoan,
		Counterparty:   "Banco",
		InitialBalance: mxn(t, 500000),
	})
	if err != nil {
		t.Fatalf("create loan: %v", err)
	}
	if d.Status != finance.DebtStatusActive || d.Currency != "MXN" || minor(d.Balance) != 500000 {
		t.Fatalf("unexpected debt: %+v", d)
	}

	// receivables must start negative
	if _, err := svc.CreateDebt(ctx, finance.Debt{
		UserID:         userID,
		Kind:           finance.DebtKindReceivable,
		Counterparty:   "Primo",
		InitialBalance: mxn(t, 200000),
	}); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("positive receivable = %v, want ErrInvalid", err)
	}
	if _, err := svc.CreateDebt(ctx, finance.Debt{
		UserID:         userID,
		Kind:           finance.DebtKindReceivable,
		Counterparty:   "Primo",
		InitialBalance: mxn(t, -200000),
	}); err != nil {
		t.Fatalf("negative receivable: %v", err)
	}

	// everything else must start positive
	if _, err := svc.CreateDebt(ctx, finance.Debt{
		UserID:         userID,
		Kind:           finance.DebtKindLoan,
		Counterparty:   "Banco",
		InitialBalance: mxn(t, -100),
	}); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("negative loan = %v, want ErrInvalid", err)
	}
}

func TestAmortizationSplit(t *testing.T) {
	store, svc, userID := setup(t)
	// 5000.00 at 12% annual: one month of interest is 50.00
	d := seedLoan(t, store, userID, 500000, "12", nil)
	ctx := context.Background()

	split, err := svc.AmortizationSplit(ctx, userID, d.ID, mxn(t, 100000))
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if minor(split.Interest) != 5000 {
		t.Fatalf("interest = %d, want 5000", minor(split.Interest))
	}
	if minor(split.Principal) != 95000 {
		t.Fatalf("principal = %d, want 95000", minor(split.Principal))
	}
	if minor(split.Total) != 100000 {
		t.Fatalf("total = %d, want 100000", minor(split.Total))
	}
	if minor(split.Resulting) != 405000 {
		t.Fatalf("resulting = %d, want 405000", minor(split.Resulting))
	}
}

func TestAmortizationSplit_InterestOnly(t *testing.T) {
	store, svc, userID := setup(t)
	d := seedLoan(t, store, userID, 500000, "12", nil)
	ctx := context.Background()

	// 30.00 requested, 50.00 of interest due: the whole amount services interest
	split, err := svc.AmortizationSplit(ctx, userID, d.ID, mxn(t, 3000))
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if !split.Principal.IsZero() {
		t.Fatalf("principal = %v, want zero", split.Principal)
	}
	if minor(split.Interest) != 3000 || minor(split.Total) != 3000 {
		t.Fatalf("interest/total = %d/%d, want 3000/3000", minor(split.Interest), minor(split.Total))
	}
	if minor(split.Resulting) != 500000 {
		t.Fatalf("resulting = %d, want 500000", minor(split.Resulting))
	}
}

func TestAmortizationSplit_CapsAtRemainingBalance(t *testing.T) {
	store, svc, userID := setup(t)
	// 100.00 owed, no interest; paying 150.00 caps the principal at 100.00
	d := seedLoan(t, store, userID, 10000, "0", nil)
	ctx := context.Background()

	split, err := svc.AmortizationSplit(ctx, userID, d.ID, mxn(t, 15000))
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if minor(split.Principal) != 10000 || minor(split.Total) != 10000 {
		t.Fatalf("principal/total = %d/%d, want 10000/10000", minor(split.Principal), minor(split.Total))
	}
	if !split.Resulting.IsZero() {
		t.Fatalf("resulting = %v, want zero", split.Resulting)
	}
}

func TestPayment_BalanceStatusAndInstallments(t *testing.T) {
	store, svc, userID := setup(t)
	count := 5
	d := seedLoan(t, store, userID, 100000, "0", &count)
	ctx := context.Background()

	principal, interest := mxn(t, 100000), mxn(t, 0)
	mv, err := svc.CreateMovement(ctx, finance.DebtMovement{
		UserID:        userID,
		DebtID:        d.ID,
		Kind:          finance.DebtMovementPayment,
		Amount:        mxn(t, 100000),
		PrincipalPaid: &principal,
		InterestPaid:  &interest,
	})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	got := debtOf(t, store, userID, d.ID)
	if !got.Balance.IsZero() {
		t.Fatalf("balance = %v, want zero", got.Balance)
	}
	if got.Status != finance.DebtStatusPaid {
		t.Fatalf("status = %s, want paid", got.Status)
	}
	if got.PaidInstallments != 1 {
		t.Fatalf("paid installments = %d, want 1", got.PaidInstallments)
	}
	if got.LastPayment == nil {
		t.Fatalf("last payment not stamped")
	}

	// deleting the payment reverses balance, counter and status
	if err := svc.DeleteMovement(ctx, userID, mv.ID); err != nil {
		t.Fatalf("delete payment: %v", err)
	}
	got = debtOf(t, store, userID, d.ID)
	if minor(got.Balance) != 100000 {
		t.Fatalf("balance after delete = %d, want 100000", minor(got.Balance))
	}
	if got.Status != finance.DebtStatusActive {
		t.Fatalf("status after delete = %s, want active", got.Status)
	}
	if got.PaidInstallments != 0 {
		t.Fatalf("paid installments after delete = %d, want 0", got.PaidInstallments)
	}
}

func TestPayment_OnlyPrincipalMovesBalance(t *testing.T) {
	store, svc, userID := setup(t)
	// 5000.00 at 12% annual: a 1000.00 payment splits 950.00/50.00
	d := seedLoan(t, store, userID, 500000, "12", nil)
	ctx := context.Background()

	split, err := svc.AmortizationSplit(ctx, userID, d.ID, mxn(t, 100000))
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	principal, interest := split.Principal, split.Interest
	mv, err := svc.CreateMovement(ctx, finance.DebtMovement{
		UserID:        userID,
		DebtID:        d.ID,
		Kind:          finance.DebtMovementPayment,
		Amount:        split.Total,
		PrincipalPaid: &principal,
		InterestPaid:  &interest,
	})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	// the balance lands exactly where the split advertised
	if got := minor(debtOf(t, store, userID, d.ID).Balance); got != minor(split.Resulting) {
		t.Fatalf("balance = %d, want %d", got, minor(split.Resulting))
	}
	if got := minor(debtOf(t, store, userID, d.ID).Balance); got != 405000 {
		t.Fatalf("balance = %d, want 405000", got)
	}

	// deleting the payment restores the principal portion only
	if err := svc.DeleteMovement(ctx, userID, mv.ID); err != nil {
		t.Fatalf("delete payment: %v", err)
	}
	if got := minor(debtOf(t, store, userID, d.ID).Balance); got != 500000 {
		t.Fatalf("balance after delete = %d, want 500000", got)
	}
}

func TestChargeAndReceivableSigns(t *testing.T) {
	store, svc, userID := setup(t)
	ctx := context.Background()

	loan := seedLoan(t, store, userID, 50000, "0", nil)
	if _, err := svc.CreateMovement(ctx, finance.DebtMovement{
		UserID: userID,
		DebtID: loan.ID,
		Kind:   finance.DebtMovementCharge,
		Amount: mxn(t, 10000),
	}); err != nil {
		t.Fatalf("charge: %v", err)
	}
	if got := minor(debtOf(t, store, userID, loan.ID).Balance); got != 60000 {
		t.Fatalf("loan balance after charge = %d, want 60000", got)
	}

	recv := finance.Debt{
		ID:             uuid.New(),
		UserID:         userID,
		Kind:           finance.DebtKindReceivable,
		Counterparty:   "Primo",
		Currency:       "MXN",
		InitialBalance: mxn(t, -200000),
		Balance:        mxn(t, -200000),
		Status:         finance.DebtStatusActive,
		Priority:       finance.PriorityMedium,
	}
	store.SeedDebt(recv)

	// a payment on a receivable moves the balance toward zero from below
	principal, interest := mxn(t, 50000), mxn(t, 0)
	if _, err := svc.CreateMovement(ctx, finance.DebtMovement{
		UserID:        userID,
		DebtID:        recv.ID,
		Kind:          finance.DebtMovementPayment,
		Amount:        mxn(t, 50000),
		PrincipalPaid: &principal,
		InterestPaid:  &interest,
	}); err != nil {
		t.Fatalf("receivable payment: %v", err)
	}
	if got := minor(debtOf(t, store, userID, recv.ID).Balance); got != -150000 {
		t.Fatalf("receivable balance = %d, want -150000", got)
	}
}

func TestValidateMovement_PaymentSplitMustSum(t *testing.T) {
	store, svc, userID := setup(t)
	d := seedLoan(t, store, userID, 100000, "0", nil)
	ctx := context.Background()

	principal, interest := mxn(t, 90000), mxn(t, 5000)
	err := svc.ValidateMovement(ctx, finance.DebtMovement{
		UserID:        userID,
		DebtID:        d.ID,
		Kind:          finance.DebtMovementPayment,
		Amount:        mxn(t, 100000),
		PrincipalPaid: &principal,
		InterestPaid:  &interest,
	})
	if !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("mismatched split = %v, want ErrInvalid", err)
	}

	// split fields on a non-payment are rejected
	err = svc.ValidateMovement(ctx, finance.DebtMovement{
		UserID:        userID,
		DebtID:        d.ID,
		Kind:          finance.DebtMovementCharge,
		Amount:        mxn(t, 1000),
		PrincipalPaid: &principal,
	})
	if !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("split on charge = %v, want ErrInvalid", err)
	}

	// payment without split is rejected
	err = svc.ValidateMovement(ctx, finance.DebtMovement{
		UserID: userID,
		DebtID: d.ID,
		Kind:   finance.DebtMovementPayment,
		Amount: mxn(t, 1000),
	})
	if !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("payment without split = %v, want ErrInvalid", err)
	}
}

func TestUpdateDebt_EngineFieldsImmutable(t *testing.T) {
	store, svc, userID := setup(t)
	d := seedLoan(t, store, userID, 100000, "0", nil)
	ctx := context.Background()

	edit := d
	edit.Counterparty = "Otro Banco"
	edit.Balance = mxn(t, 1)
	edit.PaidInstallments = 42
	updated, err := svc.UpdateDebt(ctx, edit)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Counterparty != "Otro Banco" {
		t.Fatalf("counterparty not updated: %+v", updated)
	}
	if minor(updated.Balance) != 100000 || updated.PaidInstallments != 0 {
		t.Fatalf("engine fields should be preserved: %+v", updated)
	}

	edit.Kind = finance.DebtKindCreditCard
	if _, err := svc.UpdateDebt(ctx, edit); !errors.Is(err, errs.ErrImmutable) {
		t.Fatalf("kind change = %v, want ErrImmutable", err)
	}
}
