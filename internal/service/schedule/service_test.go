package schedule_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/solerv/finledger/internal/errs"
	"github.com/solerv/finledger/internal/finance"
	"github.com/solerv/finledger/internal/service/schedule"
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

func setup(t *testing.T) (*memory.Store, schedule.Service, uuid.UUID, finance.Account) {
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
		Balance:  mxn(t, 0),
		Active:   true,
	}
	store.SeedAccount(acc)
	txs := transaction.New(store, store)
	return store, schedule.New(store, store, txs, testLogger()), userID, acc
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextOccurrence(t *testing.T) {
	start := day(2026, 1, 15)
	cases := []struct {
		freq finance.Frequency
		last *time.Time
		want time.Time
	}{
		{finance.FrequencyMonthly, nil, day(2026, 2, 15)},
		{finance.FrequencyBiweekly, nil, day(2026, 1, 30)},
		{finance.FrequencyWeekly, nil, day(2026, 1, 22)},
		{finance.FrequencyDaily, nil, day(2026, 1, 16)},
		{finance.FrequencyQuarterly, nil, day(2026, 4, 15)},
		{finance.FrequencyAnnual, nil, day(2027, 1, 15)},
	}
	for _, tc := range cases {
		c := finance.Commitment{StartDate: start, Frequency: tc.freq, LastEvent: tc.last}
		if got := schedule.NextOccurrence(c); !got.Equal(tc.want) {
			t.Errorf("%s: next = %v, want %v", tc.freq, got, tc.want)
		}
	}

	// last event, not start date, anchors the chain
	last := day(2026, 3, 15)
	c := finance.Commitment{StartDate: start, Frequency: finance.FrequencyMonthly, LastEvent: &last}
	if got := schedule.NextOccurrence(c); !got.Equal(day(2026, 4, 15)) {
		t.Fatalf("next from last event = %v, want 2026-04-15", got)
	}
}

func TestCreateAndUpdate(t *testing.T) {
	_, svc, userID, acc := setup(t)
	ctx := context.Background()

	accID := acc.ID
	c, err := svc.Create(ctx, finance.Commitment{
		UserID:        userID,
		DestAccountID: &accID,
		Description:   "Renta",
		Direction:     finance.DirectionExpense,
		Amount:        mxn(t, 800000),
		Frequency:     finance.FrequencyMonthly,
		StartDate:     day(2026, 1, 1),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !c.Active || c.LastEvent != nil || c.Currency != "MXN" {
		t.Fatalf("unexpected commitment: %+v", c)
	}

	if _, err := svc.Create(ctx, finance.Commitment{
		UserID:      userID,
		Description: "Mal",
		Direction:   "sideways",
		Amount:      mxn(t, 100),
		Frequency:   finance.FrequencyMonthly,
	}); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("bad direction = %v, want ErrInvalid", err)
	}

	// an end date in the past deactivates on update
	end := day(2026, 2, 1)
	c.EndDate = &end
	updated, err := svc.Update(ctx, c)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Active {
		t.Fatalf("commitment past its end date should be inactive")
	}
}

func TestUpcoming_WindowAndOrder(t *testing.T) {
	store, svc, userID, _ := setup(t)
	ctx := context.Background()
	today := day(2026, 8, 1)

	seed := func(desc string, start time.Time, freq finance.Frequency) {
		store.SeedCommitment(finance.Commitment{
			ID:          uuid.New(),
			UserID:      userID,
			Description: desc,
			Direction:   finance.DirectionExpense,
			Amount:      mxn(t, 10000),
			Currency:    "MXN",
			Frequency:   freq,
			StartDate:   start,
			Active:      true,
		})
	}
	seed("soon", day(2026, 7, 5), finance.FrequencyMonthly)     // next 2026-08-05
	seed("later", day(2026, 7, 20), finance.FrequencyMonthly)   // next 2026-08-20
	seed("outside", day(2026, 8, 15), finance.FrequencyMonthly) // next 2026-09-15

	occ, err := svc.Upcoming(ctx, userID, today, 30)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if len(occ) != 2 {
		t.Fatalf("upcoming = %d occurrences, want 2", len(occ))
	}
	if occ[0].Commitment.Description != "soon" || occ[1].Commitment.Description != "later" {
		t.Fatalf("wrong order: %s, %s", occ[0].Commitment.Description, occ[1].Commitment.Description)
	}
	if occ[0].DaysUntil != 4 {
		t.Fatalf("days until = %d, want 4", occ[0].DaysUntil)
	}
}

func TestRunDue_GeneratesTransactionsAndAdvances(t *testing.T) {
	store, svc, userID, acc := setup(t)
	ctx := context.Background()
	today := day(2026, 2, 5)
	accID := acc.ID

	due := finance.Commitment{
		ID:            uuid.New(),
		UserID:        userID,
		DestAccountID: &accID,
		Description:   "Nomina",
		Direction:     finance.DirectionIncome,
		Amount:        mxn(t, 1500000),
		Currency:      "MXN",
		Frequency:     finance.FrequencyMonthly,
		StartDate:     day(2026, 1, 1),
		Active:        true,
		AutoGenerate:  true,
	}
	store.SeedCommitment(due)
	notDue := due
	notDue.ID = uuid.New()
	notDue.Description = "Aguinaldo"
	notDue.StartDate = day(2026, 2, 1) // next 2026-03-01
	store.SeedCommitment(notDue)

	n, err := svc.RunDue(ctx, userID, today)
	if err != nil {
		t.Fatalf("run due: %v", err)
	}
	if n != 1 {
		t.Fatalf("generated = %d, want 1", n)
	}

	txs, err := store.Transactions(ctx, userID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(txs))
	}
	tx := txs[0]
	if tx.Kind != finance.TransactionIncome || tx.CommitmentID == nil || *tx.CommitmentID != due.ID {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if !tx.Date.Equal(day(2026, 2, 1)) {
		t.Fatalf("transaction date = %v, want 2026-02-01", tx.Date)
	}

	got, err := store.Commitment(ctx, userID, due.ID)
	if err != nil {
		t.Fatalf("commitment: %v", err)
	}
	if got.LastEvent == nil || !got.LastEvent.Equal(day(2026, 2, 1)) {
		t.Fatalf("last event = %v, want 2026-02-01", got.LastEvent)
	}

	// second run on the same day generates nothing; next is now 2026-03-01
	n, err = svc.RunDue(ctx, userID, today)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if n != 0 {
		t.Fatalf("second run generated = %d, want 0", n)
	}
}

func TestRunDue_DeactivatesExpired(t *testing.T) {
	store, svc, userID, acc := setup(t)
	ctx := context.Background()
	accID := acc.ID
	end := day(2026, 1, 31)

	expired := finance.Commitment{
		ID:            uuid.New(),
		UserID:        userID,
		DestAccountID: &accID,
		Description:   "Suscripcion",
		Direction:     finance.DirectionExpense,
		Amount:        mxn(t, 9900),
		Currency:      "MXN",
		Frequency:     finance.FrequencyMonthly,
		StartDate:     day(2026, 1, 1),
		EndDate:       &end,
		Active:        true,
		AutoGenerate:  true,
	}
	store.SeedCommitment(expired)

	n, err := svc.RunDue(ctx, userID, day(2026, 3, 1))
	if err != nil {
		t.Fatalf("run due: %v", err)
	}
	if n != 0 {
		t.Fatalf("generated = %d, want 0", n)
	}
	got, err := store.Commitment(ctx, userID, expired.ID)
	if err != nil {
		t.Fatalf("commitment: %v", err)
	}
	if got.Active {
		t.Fatalf("expired commitment should be deactivated")
	}
}
