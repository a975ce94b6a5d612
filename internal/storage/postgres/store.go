// Package postgres provides a pgx-backed storage implementation that
// satisfies the repository and writer interfaces used by the services.
//
// It is intentionally small and explicit: it maps domain entities to SQL rows
// and runs the necessary statements. Every movement write (record plus its
// balance deltas) runs inside a single transaction; a delta that matches no
// row rolls the whole write back. The expected schema lives in schema.sql.
package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solerv/finledger/internal/errs"
	"github.com/solerv/finledger/internal/finance"
	"github.com/solerv/finledger/internal/meta"
)

// Store holds a pgx connection pool and implements the read/write interfaces
// used across the service layer. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// SeedDev inserts a user and two accounts for quick local testing.
func (s *Store) SeedDev(ctx context.Context) (finance.User, []finance.Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return finance.User{}, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	user := finance.User{ID: uuid.New()}
	if _, err := tx.Exec(ctx, `insert into users (id, email) values ($1, null)`, user.ID); err != nil {
		return finance.User{}, nil, err
	}
	now := time.Now().UTC()
	zero, _ := money.NewAmountFromMinorUnits("MXN", 0)
	checking := finance.Account{
		ID: uuid.New(), UserID: user.ID, Name: "Checking",
		Kind: finance.AccountKindChecking, Currency: "MXN", Institution: "Dev Bank",
		Balance: zero, Active: true, IncludeInNetWorth: true, CreatedAt: now, UpdatedAt: now,
	}
	cash := finance.Account{
		ID: uuid.New(), UserID: user.ID, Name: "Cash",
		Kind: finance.AccountKindCash, Currency: "MXN",
		Balance: zero, Active: true, IncludeInNetWorth: true, CreatedAt: now, UpdatedAt: now,
	}
	accs := []finance.Account{checking, cash}
	for _, a := range accs {
		if err := insertAccount(ctx, tx, a); err != nil {
			return finance.User{}, nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return finance.User{}, nil, err
	}
	return user, accs, nil
}

// --- amount/rate mapping helpers ---

func minorOf(a money.Amount) int64 {
	m, _ := a.MinorUnits()
	return m
}

func minorPtr(a *money.Amount) *int64 {
	if a == nil {
		return nil
	}
	m := minorOf(*a)
	return &m
}

func amountOf(curr string, minor int64) money.Amount {
	a, _ := money.NewAmountFromMinorUnits(curr, minor)
	return a
}

func amountPtr(curr string, minor *int64) *money.Amount {
	if minor == nil {
		return nil
	}
	a := amountOf(curr, *minor)
	return &a
}

func rateStr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func ratePtr(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d, err := decimal.Parse(*s)
	if err != nil {
		return nil
	}
	return &d
}

// --- accounts ---

const accountCols = `id, user_id, name, kind, currency, institution, balance_minor,
	credit_limit_minor, cut_day, pay_day, interest_rate, active, include_in_net_worth,
	metadata, description, created_at, updated_at, last_movement`

func scanAccount(row pgx.Row) (finance.Account, error) {
	var a finance.Account
	var balance int64
	var limit *int64
	var rate *string
	var mdBytes []byte
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Kind, &a.Currency, &a.Institution, &balance,
		&limit, &a.CutDay, &a.PayDay, &rate, &a.Active, &a.IncludeInNetWorth,
		&mdBytes, &a.Description, &a.CreatedAt, &a.UpdatedAt, &a.LastMovement)
	if err != nil {
		return finance.Account{}, err
	}
	a.Balance = amountOf(a.Currency, balance)
	a.CreditLimit = amountPtr(a.Currency, limit)
	a.InterestRate = ratePtr(rate)
	if len(mdBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(mdBytes); err == nil {
			a.Metadata = m
		}
	}
	return a, nil
}

func (s *Store) Account(ctx context.Context, userID, accountID uuid.UUID) (finance.Account, error) {
	row := s.pool.QueryRow(ctx, `select `+accountCols+` from accounts where id = $1 and user_id = $2`,
		accountID, userID)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.Account{}, errs.ErrNotFound
	}
	return a, err
}

func (s *Store) Accounts(ctx context.Context, userID uuid.UUID) ([]finance.Account, error) {
	rows, err := s.pool.Query(ctx, `select `+accountCols+` from accounts where user_id = $1 order by name, id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finance.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) AccountsByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]finance.Account, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]finance.Account{}, nil
	}
	rows, err := s.pool.Query(ctx, `select `+accountCols+` from accounts where user_id = $1 and id = any($2)`,
		userID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]finance.Account, len(ids))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

func insertAccount(ctx context.Context, ex pgx.Tx, a finance.Account) error {
	md, _ := a.Metadata.MarshalStableJSON()
	_, err := ex.Exec(ctx, `
		insert into accounts (`+accountCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`, a.ID, a.UserID, a.Name, a.Kind, strings.ToUpper(a.Currency), a.Institution, minorOf(a.Balance),
		minorPtr(a.CreditLimit), a.CutDay, a.PayDay, rateStr(a.InterestRate), a.Active, a.IncludeInNetWorth,
		md, a.Description, a.CreatedAt, a.UpdatedAt, a.LastMovement)
	return err
}

func (s *Store) CreateAccount(ctx context.Context, a finance.Account) (finance.Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return finance.Account{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := insertAccount(ctx, tx, a); err != nil {
		return finance.Account{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return finance.Account{}, err
	}
	return a, nil
}

// UpdateAccount updates descriptive and card fields. The balance column is
// touched only by delta statements.
func (s *Store) UpdateAccount(ctx context.Context, a finance.Account) (finance.Account, error) {
	md, _ := a.Metadata.MarshalStableJSON()
	ct, err := s.pool.Exec(ctx, `
		update accounts
		set name=$1, institution=$2, credit_limit_minor=$3, cut_day=$4, pay_day=$5,
		    interest_rate=$6, active=$7, include_in_net_worth=$8, metadata=$9,
		    description=$10, updated_at=$11
		where id=$12 and user_id=$13
	`, a.Name, a.Institution, minorPtr(a.CreditLimit), a.CutDay, a.PayDay,
		rateStr(a.InterestRate), a.Active, a.IncludeInNetWorth, md,
		a.Description, a.UpdatedAt, a.ID, a.UserID)
	if err != nil {
		return finance.Account{}, err
	}
	if ct.RowsAffected() == 0 {
		return finance.Account{}, errs.ErrNotFound
	}
	return a, nil
}

func applyAccountDeltas(ctx context.Context, tx pgx.Tx, userID uuid.UUID, deltas []finance.AccountDelta) error {
	for _, d := range deltas {
		var at *time.Time
		if !d.At.IsZero() {
			t := d.At
			at = &t
		}
		ct, err := tx.Exec(ctx, `
			update accounts
			set balance_minor = balance_minor + $1,
			    last_movement = greatest(coalesce(last_movement, $2), coalesce($2, last_movement)),
			    updated_at = now()
			where id = $3 and user_id = $4
		`, minorOf(d.Amount), at, d.AccountID, userID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return errs.ErrConsistency
		}
	}
	return nil
}

// --- transactions ---

const txCols = `id, user_id, source_account_id, dest_account_id, category_id, commitment_id,
	date, kind, currency, amount_minor, description, reference, metadata, created_at, updated_at`

func scanTransaction(row pgx.Row) (finance.Transaction, error) {
	var t finance.Transaction
	var curr string
	var minor int64
	var mdBytes []byte
	err := row.Scan(&t.ID, &t.UserID, &t.SourceAccountID, &t.DestAccountID, &t.CategoryID, &t.CommitmentID,
		&t.Date, &t.Kind, &curr, &minor, &t.Description, &t.Reference, &mdBytes, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return finance.Transaction{}, err
	}
	t.Amount = amountOf(curr, minor)
	if len(mdBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(mdBytes); err == nil {
			t.Metadata = m
		}
	}
	return t, nil
}

func (s *Store) Transaction(ctx context.Context, userID, txID uuid.UUID) (finance.Transaction, error) {
	row := s.pool.QueryRow(ctx, `select `+txCols+` from transactions where id = $1 and user_id = $2`,
		txID, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.Transaction{}, errs.ErrNotFound
	}
	return t, err
}

func (s *Store) Transactions(ctx context.Context, userID uuid.UUID) ([]finance.Transaction, error) {
	rows, err := s.pool.Query(ctx, `select `+txCols+` from transactions where user_id = $1 order by date asc, id asc`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finance.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func insertTransaction(ctx context.Context, ex pgx.Tx, t finance.Transaction) error {
	md, _ := t.Metadata.MarshalStableJSON()
	_, err := ex.Exec(ctx, `
		insert into transactions (`+txCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, t.ID, t.UserID, t.SourceAccountID, t.DestAccountID, t.CategoryID, t.CommitmentID,
		t.Date, t.Kind, t.Amount.Curr().Code(), minorOf(t.Amount), t.Description, t.Reference, md,
		t.CreatedAt, t.UpdatedAt)
	return err
}

func (s *Store) CreateTransaction(ctx context.Context, t finance.Transaction, deltas []finance.AccountDelta) (finance.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return finance.Transaction{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := insertTransaction(ctx, tx, t); err != nil {
		return finance.Transaction{}, err
	}
	if err := applyAccountDeltas(ctx, tx, t.UserID, deltas); err != nil {
		return finance.Transaction{}, err
	}
	// A linked commitment's last event advances inside the same transaction,
	// never backwards.
	if t.CommitmentID != nil {
		ct, err := tx.Exec(ctx, `
			update commitments
			set last_event = greatest(coalesce(last_event, $1), $1), updated_at = now()
			where id = $2 and user_id = $3
		`, t.Date, *t.CommitmentID, t.UserID)
		if err != nil {
			return finance.Transaction{}, err
		}
		if ct.RowsAffected() == 0 {
			return finance.Transaction{}, errs.ErrConsistency
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return finance.Transaction{}, err
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t finance.Transaction, deltas []finance.AccountDelta) (finance.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return finance.Transaction{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	md, _ := t.Metadata.MarshalStableJSON()
	ct, err := tx.Exec(ctx, `
		update transactions
		set source_account_id=$1, dest_account_id=$2, category_id=$3, commitment_id=$4,
		    date=$5, kind=$6, currency=$7, amount_minor=$8, description=$9, reference=$10,
		    metadata=$11, updated_at=$12
		where id=$13 and user_id=$14
	`, t.SourceAccountID, t.DestAccountID, t.CategoryID, t.CommitmentID,
		t.Date, t.Kind, t.Amount.Curr().Code(), minorOf(t.Amount), t.Description, t.Reference,
		md, t.UpdatedAt, t.ID, t.UserID)
	if err != nil {
		return finance.Transaction{}, err
	}
	if ct.RowsAffected() == 0 {
		return finance.Transaction{}, errs.ErrNotFound
	}
	if err := applyAccountDeltas(ctx, tx, t.UserID, deltas); err != nil {
		return finance.Transaction{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return finance.Transaction{}, err
	}
	return t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, txID uuid.UUID, deltas []finance.AccountDelta) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	ct, err := tx.Exec(ctx, `delete from transactions where id = $1 and user_id = $2`, txID, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	if err := applyAccountDeltas(ctx, tx, userID, deltas); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// --- sub-accounts ---

const subAccountCols = `id, account_id, user_id, name, currency, balance_minor, goal_minor,
	active, description, created_at, updated_at`

func scanSubAccount(row pgx.Row) (finance.SubAccount, error) {
	var sa finance.SubAccount
	var curr string
	var balance int64
	var goal *int64
	err := row.Scan(&sa.ID, &sa.AccountID, &sa.UserID, &sa.Name, &curr, &balance, &goal,
		&sa.Active, &sa.Description, &sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		return finance.SubAccount{}, err
	}
	sa.Balance = amountOf(curr, balance)
	sa.Goal = amountPtr(curr, goal)
	return sa, nil
}

func (s *Store) SubAccount(ctx context.Context, userID, subAccountID uuid.UUID) (finance.SubAccount, error) {
	row := s.pool.QueryRow(ctx, `select `+subAccountCols+` from sub_accounts where id = $1 and user_id = $2`,
		subAccountID, userID)
	sa, err := scanSubAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.SubAccount{}, errs.ErrNotFound
	}
	return sa, err
}

func (s *Store) SubAccounts(ctx context.Context, userID uuid.UUID) ([]finance.SubAccount, error) {
	rows, err := s.pool.Query(ctx, `select `+subAccountCols+` from sub_accounts where user_id = $1 order by name, id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finance.SubAccount, 0)
	for rows.Next() {
		sa, err := scanSubAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}

func (s *Store) SubAccountsByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]finance.SubAccount, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]finance.SubAccount{}, nil
	}
	rows, err := s.pool.Query(ctx, `select `+subAccountCols+` from sub_accounts where user_id = $1 and id = any($2)`,
		userID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]finance.SubAccount, len(ids))
	for rows.Next() {
		sa, err := scanSubAccount(rows)
		if err != nil {
			return nil, err
		}
		out[sa.ID] = sa
	}
	return out, rows.Err()
}

func (s *Store) CreateSubAccount(ctx context.Context, sa finance.SubAccount) (finance.SubAccount, error) {
	_, err := s.pool.Exec(ctx, `
		insert into sub_accounts (`+subAccountCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, sa.ID, sa.AccountID, sa.UserID, sa.Name, sa.Balance.Curr().Code(), minorOf(sa.Balance),
		minorPtr(sa.Goal), sa.Active, sa.Description, sa.CreatedAt, sa.UpdatedAt)
	if err != nil {
		return finance.SubAccount{}, err
	}
	return sa, nil
}

func (s *Store) UpdateSubAccount(ctx context.Context, sa finance.SubAccount) (finance.SubAccount, error) {
	ct, err := s.pool.Exec(ctx, `
		update sub_accounts
		set name=$1, goal_minor=$2, active=$3, description=$4, updated_at=$5
		where id=$6 and user_id=$7
	`, sa.Name, minorPtr(sa.Goal), sa.Active, sa.Description, sa.UpdatedAt, sa.ID, sa.UserID)
	if err != nil {
		return finance.SubAccount{}, err
	}
	if ct.RowsAffected() == 0 {
		return finance.SubAccount{}, errs.ErrNotFound
	}
	return sa, nil
}

func applySubAccountDeltas(ctx context.Context, tx pgx.Tx, userID uuid.UUID, deltas []finance.SubAccountDelta) error {
	for _, d := range deltas {
		ct, err := tx.Exec(ctx, `
			update sub_accounts
			set balance_minor = balance_minor + $1, updated_at = now()
			where id = $2 and user_id = $3
		`, minorOf(d.Amount), d.SubAccountID, userID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return errs.ErrConsistency
		}
	}
	return nil
}

const subMovementCols = `id, user_id, sub_account_id, dest_sub_account_id, transaction_id,
	date, kind, currency, amount_minor, description, created_at, updated_at`

func scanSubMovement(row pgx.Row) (finance.SubMovement, error) {
	var m finance.SubMovement
	var curr string
	var minor int64
	err := row.Scan(&m.ID, &m.UserID, &m.SubAccountID, &m.DestSubAccountID, &m.TransactionID,
		&m.Date, &m.Kind, &curr, &minor, &m.Description, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return finance.SubMovement{}, err
	}
	m.Amount = amountOf(curr, minor)
	return m, nil
}

func (s *Store) SubMovement(ctx context.Context, userID, movementID uuid.UUID) (finance.SubMovement, error) {
	row := s.pool.QueryRow(ctx, `select `+subMovementCols+` from sub_movements where id = $1 and user_id = $2`,
		movementID, userID)
	m, err := scanSubMovement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.SubMovement{}, errs.ErrNotFound
	}
	return m, err
}

func (s *Store) SubMovements(ctx context.Context, userID uuid.UUID) ([]finance.SubMovement, error) {
	rows, err := s.pool.Query(ctx, `select `+subMovementCols+` from sub_movements where user_id = $1 order by date asc, id asc`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finance.SubMovement, 0)
	for rows.Next() {
		m, err := scanSubMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) CreateSubMovement(ctx context.Context, m finance.SubMovement, deltas []finance.SubAccountDelta) (finance.SubMovement, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return finance.SubMovement{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `
		insert into sub_movements (`+subMovementCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, m.ID, m.UserID, m.SubAccountID, m.DestSubAccountID, m.TransactionID,
		m.Date, m.Kind, m.Amount.Curr().Code(), minorOf(m.Amount), m.Description, m.CreatedAt, m.UpdatedAt); err != nil {
		return finance.SubMovement{}, err
	}
	if err := applySubAccountDeltas(ctx, tx, m.UserID, deltas); err != nil {
		return finance.SubMovement{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return finance.SubMovement{}, err
	}
	return m, nil
}

func (s *Store) UpdateSubMovement(ctx context.Context, m finance.SubMovement, deltas []finance.SubAccountDelta) (finance.SubMovement, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return finance.SubMovement{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	ct, err := tx.Exec(ctx, `
		update sub_movements
		set sub_account_id=$1, dest_sub_account_id=$2, transaction_id=$3, date=$4, kind=$5,
		    currency=$6, amount_minor=$7, description=$8, updated_at=$9
		where id=$10 and user_id=$11
	`, m.SubAccountID, m.DestSubAccountID, m.TransactionID, m.Date, m.Kind,
		m.Amount.Curr().Code(), minorOf(m.Amount), m.Description, m.UpdatedAt, m.ID, m.UserID)
	if err != nil {
		return finance.SubMovement{}, err
	}
	if ct.RowsAffected() == 0 {
		return finance.SubMovement{}, errs.ErrNotFound
	}
	if err := applySubAccountDeltas(ctx, tx, m.UserID, deltas); err != nil {
		return finance.SubMovement{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return finance.SubMovement{}, err
	}
	return m, nil
}

func (s *Store) DeleteSubMovement(ctx context.Context, userID, movementID uuid.UUID, deltas []finance.SubAccountDelta) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	ct, err := tx.Exec(ctx, `delete from sub_movements where id = $1 and user_id = $2`, movementID, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	if err := applySubAccountDeltas(ctx, tx, userID, deltas); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// --- debts ---

const debtCols = `id, user_id, account_id, sub_account_id, kind, counterparty, currency,
	initial_balance_minor, balance_minor, installment_amount_minor, installment_count,
	paid_installments, payment_frequency, interest_rate, start_date, due_date,
	next_payment, last_payment, status, priority, description, created_at, updated_at`

func scanDebt(row pgx.Row) (finance.Debt, error) {
	var d finance.Debt
	var initial, balance int64
	var installment *int64
	var rate *string
	err := row.Scan(&d.ID, &d.UserID, &d.AccountID, &d.SubAccountID, &d.Kind, &d.Counterparty, &d.Currency,
		&initial, &balance, &installment, &d.InstallmentCount,
		&d.PaidInstallments, &d.PaymentFrequency, &rate, &d.StartDate, &d.DueDate,
		&d.NextPayment, &d.LastPayment, &d.Status, &d.Priority, &d.Description, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return finance.Debt{}, err
	}
	d.InitialBalance = amountOf(d.Currency, initial)
	d.Balance = amountOf(d.Currency, balance)
	d.InstallmentAmount = amountPtr(d.Currency, installment)
	d.InterestRate = ratePtr(rate)
	return d, nil
}

func (s *Store) Debt(ctx context.Context, userID, debtID uuid.UUID) (finance.Debt, error) {
	row := s.pool.QueryRow(ctx, `select `+debtCols+` from debts where id = $1 and user_id = $2`,
		debtID, userID)
	d, err := scanDebt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.Debt{}, errs.ErrNotFound
	}
	return d, err
}

func (s *Store) Debts(ctx context.Context, userID uuid.UUID) ([]finance.Debt, error) {
	rows, err := s.pool.Query(ctx, `select `+debtCols+` from debts where user_id = $1 order by created_at asc, id asc`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finance.Debt, 0)
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CreateDebt(ctx context.Context, d finance.Debt) (finance.Debt, error) {
	_, err := s.pool.Exec(ctx, `
		insert into debts (`+debtCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
	`, d.ID, d.UserID, d.AccountID, d.SubAccountID, d.Kind, d.Counterparty, d.Currency,
		minorOf(d.InitialBalance), minorOf(d.Balance), minorPtr(d.InstallmentAmount), d.InstallmentCount,
		d.PaidInstallments, d.PaymentFrequency, rateStr(d.InterestRate), d.StartDate, d.DueDate,
		d.NextPayment, d.LastPayment, d.Status, d.Priority, d.Description, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return finance.Debt{}, err
	}
	return d, nil
}

// UpdateDebt updates descriptive and term fields. Balance, installment
// counter and status columns move only through delta statements.
func (s *Store) UpdateDebt(ctx context.Context, d finance.Debt) (finance.Debt, error) {
	ct, err := s.pool.Exec(ctx, `
		update debts
		set account_id=$1, sub_account_id=$2, counterparty=$3,
		    installment_amount_minor=$4, installment_count=$5, payment_frequency=$6,
		    interest_rate=$7, start_date=$8, due_date=$9, next_payment=$10,
		    priority=$11, description=$12, updated_at=$13
		where id=$14 and user_id=$15
	`, d.AccountID, d.SubAccountID, d.Counterparty,
		minorPtr(d.InstallmentAmount), d.InstallmentCount, d.PaymentFrequency,
		rateStr(d.InterestRate), d.StartDate, d.DueDate, d.NextPayment,
		d.Priority, d.Description, d.UpdatedAt, d.ID, d.UserID)
	if err != nil {
		return finance.Debt{}, err
	}
	if ct.RowsAffected() == 0 {
		return finance.Debt{}, errs.ErrNotFound
	}
	return d, nil
}

// applyDebtDeltas shifts balance, installments and last payment, then
// recomputes the status from the resulting balance in the same transaction.
func applyDebtDeltas(ctx context.Context, tx pgx.Tx, userID uuid.UUID, deltas []finance.DebtDelta) error {
	for _, d := range deltas {
		ct, err := tx.Exec(ctx, `
			update debts
			set balance_minor = balance_minor + $1,
			    paid_installments = greatest(paid_installments + $2, 0),
			    last_payment = coalesce($3, last_payment),
			    updated_at = now()
			where id = $4 and user_id = $5
		`, minorOf(d.Amount), d.Installments, d.LastPayment, d.DebtID, userID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return errs.ErrConsistency
		}
		if _, err := tx.Exec(ctx, `
			update debts
			set status = case
				when status = 'cancelled' then status
				when kind = 'receivable' and balance_minor >= 0 then 'paid'
				when kind <> 'receivable' and balance_minor <= 0 then 'paid'
				else 'active'
			end
			where id = $1 and user_id = $2
		`, d.DebtID, userID); err != nil {
			return err
		}
	}
	return nil
}

const debtMovementCols = `id, user_id, debt_id, transaction_id, date, kind, currency,
	amount_minor, principal_minor, interest_minor, accrued_minor, description, created_at, updated_at`

func scanDebtMovement(row pgx.Row) (finance.DebtMovement, error) {
	var m finance.DebtMovement
	var curr string
	var minor int64
	var principal, interest, accrued *int64
	err := row.Scan(&m.ID, &m.UserID, &m.DebtID, &m.TransactionID, &m.Date, &m.Kind, &curr,
		&minor, &principal, &interest, &accrued, &m.Description, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return finance.DebtMovement{}, err
	}
	m.Amount = amountOf(curr, minor)
	m.PrincipalPaid = amountPtr(curr, principal)
	m.InterestPaid = amountPtr(curr, interest)
	m.InterestAccrued = amountPtr(curr, accrued)
	return m, nil
}

func (s *Store) DebtMovement(ctx context.Context, userID, movementID uuid.UUID) (finance.DebtMovement, error) {
	row := s.pool.QueryRow(ctx, `select `+debtMovementCols+` from debt_movements where id = $1 and user_id = $2`,
		movementID, userID)
	m, err := scanDebtMovement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.DebtMovement{}, errs.ErrNotFound
	}
	return m, err
}

func (s *Store) DebtMovements(ctx context.Context, userID uuid.UUID) ([]finance.DebtMovement, error) {
	rows, err := s.pool.Query(ctx, `select `+debtMovementCols+` from debt_movements where user_id = $1 order by date asc, id asc`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finance.DebtMovement, 0)
	for rows.Next() {
		m, err := scanDebtMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) CreateDebtMovement(ctx context.Context, m finance.DebtMovement, deltas []finance.DebtDelta) (finance.DebtMovement, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return finance.DebtMovement{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `
		insert into debt_movements (`+debtMovementCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, m.ID, m.UserID, m.DebtID, m.TransactionID, m.Date, m.Kind, m.Amount.Curr().Code(),
		minorOf(m.Amount), minorPtr(m.PrincipalPaid), minorPtr(m.InterestPaid), minorPtr(m.InterestAccrued),
		m.Description, m.CreatedAt, m.UpdatedAt); err != nil {
		return finance.DebtMovement{}, err
	}
	if err := applyDebtDeltas(ctx, tx, m.UserID, deltas); err != nil {
		return finance.DebtMovement{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return finance.DebtMovement{}, err
	}
	return m, nil
}

func (s *Store) UpdateDebtMovement(ctx context.Context, m finance.DebtMovement, deltas []finance.DebtDelta) (finance.DebtMovement, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return finance.DebtMovement{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	ct, err := tx.Exec(ctx, `
		update debt_movements
		set debt_id=$1, transaction_id=$2, date=$3, kind=$4, currency=$5, amount_minor=$6,
		    principal_minor=$7, interest_minor=$8, accrued_minor=$9, description=$10, updated_at=$11
		where id=$12 and user_id=$13
	`, m.DebtID, m.TransactionID, m.Date, m.Kind, m.Amount.Curr().Code(), minorOf(m.Amount),
		minorPtr(m.PrincipalPaid), minorPtr(m.InterestPaid), minorPtr(m.InterestAccrued),
		m.Description, m.UpdatedAt, m.ID, m.UserID)
	if err != nil {
		return finance.DebtMovement{}, err
	}
	if ct.RowsAffected() == 0 {
		return finance.DebtMovement{}, errs.ErrNotFound
	}
	if err := applyDebtDeltas(ctx, tx, m.UserID, deltas); err != nil {
		return finance.DebtMovement{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return finance.DebtMovement{}, err
	}
	return m, nil
}

func (s *Store) DeleteDebtMovement(ctx context.Context, userID, movementID uuid.UUID, deltas []finance.DebtDelta) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	ct, err := tx.Exec(ctx, `delete from debt_movements where id = $1 and user_id = $2`, movementID, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	if err := applyDebtDeltas(ctx, tx, userID, deltas); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// --- commitments ---

const commitmentCols = `id, user_id, dest_account_id, description, direction, amount_minor,
	currency, frequency, start_date, end_date, last_event, active, auto_generate, created_at, updated_at`

func scanCommitment(row pgx.Row) (finance.Commitment, error) {
	var c finance.Commitment
	var minor int64
	err := row.Scan(&c.ID, &c.UserID, &c.DestAccountID, &c.Description, &c.Direction, &minor,
		&c.Currency, &c.Frequency, &c.StartDate, &c.EndDate, &c.LastEvent, &c.Active, &c.AutoGenerate,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return finance.Commitment{}, err
	}
	c.Amount = amountOf(c.Currency, minor)
	return c, nil
}

func (s *Store) Commitment(ctx context.Context, userID, commitmentID uuid.UUID) (finance.Commitment, error) {
	row := s.pool.QueryRow(ctx, `select `+commitmentCols+` from commitments where id = $1 and user_id = $2`,
		commitmentID, userID)
	c, err := scanCommitment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.Commitment{}, errs.ErrNotFound
	}
	return c, err
}

func (s *Store) Commitments(ctx context.Context, userID uuid.UUID) ([]finance.Commitment, error) {
	rows, err := s.pool.Query(ctx, `select `+commitmentCols+` from commitments where user_id = $1 order by start_date asc, id asc`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finance.Commitment, 0)
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateCommitment(ctx context.Context, c finance.Commitment) (finance.Commitment, error) {
	_, err := s.pool.Exec(ctx, `
		insert into commitments (`+commitmentCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, c.ID, c.UserID, c.DestAccountID, c.Description, c.Direction, minorOf(c.Amount),
		c.Currency, c.Frequency, c.StartDate, c.EndDate, c.LastEvent, c.Active, c.AutoGenerate,
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return finance.Commitment{}, err
	}
	return c, nil
}

func (s *Store) UpdateCommitment(ctx context.Context, c finance.Commitment) (finance.Commitment, error) {
	ct, err := s.pool.Exec(ctx, `
		update commitments
		set dest_account_id=$1, description=$2, direction=$3, amount_minor=$4, currency=$5,
		    frequency=$6, start_date=$7, end_date=$8, last_event=$9, active=$10,
		    auto_generate=$11, updated_at=$12
		where id=$13 and user_id=$14
	`, c.DestAccountID, c.Description, c.Direction, minorOf(c.Amount), c.Currency,
		c.Frequency, c.StartDate, c.EndDate, c.LastEvent, c.Active,
		c.AutoGenerate, c.UpdatedAt, c.ID, c.UserID)
	if err != nil {
		return finance.Commitment{}, err
	}
	if ct.RowsAffected() == 0 {
		return finance.Commitment{}, errs.ErrNotFound
	}
	return c, nil
}

// --- plan items ---

const planItemCols = `id, user_id, name, kind, currency, amount_minor, source_account_id,
	dest_account_id, dest_sub_account_id, debt_id, priority, position, active, executed,
	executed_at, generated_transaction_id, description, created_at, updated_at`

func scanPlanItem(row pgx.Row) (finance.PlanItem, error) {
	var it finance.PlanItem
	var curr string
	var minor int64
	err := row.Scan(&it.ID, &it.UserID, &it.Name, &it.Kind, &curr, &minor, &it.SourceAccountID,
		&it.DestAccountID, &it.DestSubAccountID, &it.DebtID, &it.Priority, &it.Order, &it.Active, &it.Executed,
		&it.ExecutedAt, &it.GeneratedTransactionID, &it.Description, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return finance.PlanItem{}, err
	}
	it.Amount = amountOf(curr, minor)
	return it, nil
}

func (s *Store) PlanItem(ctx context.Context, userID, itemID uuid.UUID) (finance.PlanItem, error) {
	row := s.pool.QueryRow(ctx, `select `+planItemCols+` from plan_items where id = $1 and user_id = $2`,
		itemID, userID)
	it, err := scanPlanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.PlanItem{}, errs.ErrNotFound
	}
	return it, err
}

func (s *Store) PlanItems(ctx context.Context, userID uuid.UUID) ([]finance.PlanItem, error) {
	rows, err := s.pool.Query(ctx, `select `+planItemCols+` from plan_items where user_id = $1 order by position asc, id asc`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finance.PlanItem, 0)
	for rows.Next() {
		it, err := scanPlanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) CreatePlanItem(ctx context.Context, it finance.PlanItem) (finance.PlanItem, error) {
	_, err := s.pool.Exec(ctx, `
		insert into plan_items (`+planItemCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`, it.ID, it.UserID, it.Name, it.Kind, it.Amount.Curr().Code(), minorOf(it.Amount), it.SourceAccountID,
		it.DestAccountID, it.DestSubAccountID, it.DebtID, it.Priority, it.Order, it.Active, it.Executed,
		it.ExecutedAt, it.GeneratedTransactionID, it.Description, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return finance.PlanItem{}, err
	}
	return it, nil
}

func (s *Store) UpdatePlanItem(ctx context.Context, it finance.PlanItem) (finance.PlanItem, error) {
	ct, err := s.pool.Exec(ctx, `
		update plan_items
		set name=$1, kind=$2, currency=$3, amount_minor=$4, source_account_id=$5,
		    dest_account_id=$6, dest_sub_account_id=$7, debt_id=$8, priority=$9, position=$10,
		    active=$11, description=$12, updated_at=$13
		where id=$14 and user_id=$15
	`, it.Name, it.Kind, it.Amount.Curr().Code(), minorOf(it.Amount), it.SourceAccountID,
		it.DestAccountID, it.DestSubAccountID, it.DebtID, it.Priority, it.Order,
		it.Active, it.Description, it.UpdatedAt, it.ID, it.UserID)
	if err != nil {
		return finance.PlanItem{}, err
	}
	if ct.RowsAffected() == 0 {
		return finance.PlanItem{}, errs.ErrNotFound
	}
	return it, nil
}

func (s *Store) DeletePlanItem(ctx context.Context, userID, itemID uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from plan_items where id = $1 and user_id = $2`, itemID, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) MarkPlanItemExecuted(ctx context.Context, userID, itemID, txID uuid.UUID, at time.Time) error {
	ct, err := s.pool.Exec(ctx, `
		update plan_items
		set executed = true, executed_at = $1, generated_transaction_id = $2, updated_at = now()
		where id = $3 and user_id = $4
	`, at, txID, itemID, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) ResetPlanItems(ctx context.Context, userID uuid.UUID) (int, error) {
	ct, err := s.pool.Exec(ctx, `
		update plan_items
		set executed = false, executed_at = null, generated_transaction_id = null, updated_at = now()
		where user_id = $1 and active and executed
	`, userID)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}
