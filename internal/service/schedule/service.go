// Package schedule implements recurring commitments: next-occurrence
// derivation from the frequency enum, upcoming-event queries, end-date
// deactivation, and materialization of due auto-generate commitments into
// ledger transactions.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/solerv/finledger/internal/errs"
	"github.com/solerv/finledger/internal/finance"
)

// Repo defines read operations needed by the service.
type Repo interface {
	Account(ctx context.Context, userID, accountID uuid.UUID) (finance.Account, error)
	Commitment(ctx context.Context, userID, commitmentID uuid.UUID) (finance.Commitment, error)
	Commitments(ctx context.Context, userID uuid.UUID) ([]finance.Commitment, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateCommitment(ctx context.Context, c finance.Commitment) (finance.Commitment, error)
	UpdateCommitment(ctx context.Context, c finance.Commitment) (finance.Commitment, error)
}

// TxCreator is the slice of the transaction engine the scheduler re-enters
// when materializing auto-generate commitments.
type TxCreator interface {
	Create(ctx context.Context, tx finance.Transaction) (finance.Transaction, error)
}

// Occurrence is one upcoming event of a commitment.
type Occurrence struct {
	Commitment finance.Commitment
	Next       time.Time
	DaysUntil  int
	Due        bool
}

// Service exposes commitment management and occurrence queries.
type Service interface {
	Create(ctx context.Context, c finance.Commitment) (finance.Commitment, error)
	Update(ctx context.Context, c finance.Commitment) (finance.Commitment, error)
	Get(ctx context.Context, userID, commitmentID uuid.UUID) (finance.Commitment, error)
	List(ctx context.Context, userID uuid.UUID) ([]finance.Commitment, error)
	Upcoming(ctx context.Context, userID uuid.UUID, today time.Time, days int) ([]Occurrence, error)
	RunDue(ctx context.Context, userID uuid.UUID, today time.Time) (int, error)
}

type service struct {
	repo   Repo
	writer Writer
	txs    TxCreator
	log    *slog.Logger
}

func New(repo Repo, writer Writer, txs TxCreator, logger *slog.Logger) Service {
	return &service{repo: repo, writer: writer, txs: txs, log: logger}
}

// period returns the calendar offset for one frequency step.
func period(f finance.Frequency) (years, months, days int) {
	switch f {
	case finance.FrequencyDaily:
		return 0, 0, 1
	case finance.FrequencyWeekly:
		return 0, 0, 7
	case finance.FrequencyBiweekly:
		return 0, 0, 15
	case finance.FrequencyMonthly:
		return 0, 1, 0
	case finance.FrequencyBimonthly:
		return 0, 2, 0
	case finance.FrequencyQuarterly:
		return 0, 3, 0
	case finance.FrequencySemiannual:
		return 0, 6, 0
	case finance.FrequencyAnnual:
		return 1, 0, 0
	}
	return 0, 0, 0
}

// NextOccurrence derives the next event date: last event (or start date when
// none) plus one frequency period. Derived, never stored.
func NextOccurrence(c finance.Commitment) time.Time {
	base := c.StartDate
	if c.LastEvent != nil {
		base = *c.LastEvent
	}
	y, m, d := period(c.Frequency)
	return dateOnly(base).AddDate(y, m, d)
}

// DaysUntil counts whole days from today to the next occurrence; negative
// when overdue.
func DaysUntil(c finance.Commitment, today time.Time) int {
	return int(NextOccurrence(c).Sub(dateOnly(today)).Hours() / 24)
}

// IsDue reports whether the next occurrence is today or earlier.
func IsDue(c finance.Commitment, today time.Time) bool {
	return !NextOccurrence(c).After(dateOnly(today))
}

// Expired reports whether the commitment's end date has passed.
func Expired(c finance.Commitment, today time.Time) bool {
	return c.EndDate != nil && c.EndDate.Before(dateOnly(today))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *service) validate(ctx context.Context, c finance.Commitment) error {
	if c.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required: %w", errs.ErrInvalid)
	}
	if strings.TrimSpace(c.Description) == "" {
		return fmt.Errorf("description is required: %w", errs.ErrInvalid)
	}
	if !c.Direction.Valid() {
		return fmt.Errorf("unknown direction %q: %w", c.Direction, errs.ErrInvalid)
	}
	if !c.Frequency.Valid() {
		return fmt.Errorf("unknown frequency %q: %w", c.Frequency, errs.ErrInvalid)
	}
	if !c.Amount.IsPos() {
		return fmt.Errorf("amount must be > 0: %w", errs.ErrInvalid)
	}
	if c.EndDate != nil && !c.EndDate.After(c.StartDate) {
		return fmt.Errorf("end date must be after start date: %w", errs.ErrInvalid)
	}
	if c.DestAccountID != nil {
		acc, err := s.repo.Account(ctx, c.UserID, *c.DestAccountID)
		if err != nil {
			return fmt.Errorf("account %s: %w", c.DestAccountID, err)
		}
		if acc.Currency != c.Amount.Curr().Code() {
			return fmt.Errorf("account currency %s does not match amount currency %s: %w",
				acc.Currency, c.Amount.Curr().Code(), errs.ErrInvalid)
		}
	}
	return nil
}

func (s *service) Create(ctx context.Context, c finance.Commitment) (finance.Commitment, error) {
	if err := s.validate(ctx, c); err != nil {
		return finance.Commitment{}, err
	}
	now := time.Now().UTC()
	c.ID = uuid.New()
	c.Currency = c.Amount.Curr().Code()
	if c.StartDate.IsZero() {
		c.StartDate = dateOnly(now)
	}
	c.LastEvent = nil
	c.Active = !Expired(c, now)
	c.CreatedAt = now
	c.UpdatedAt = now
	return s.writer.CreateCommitment(ctx, c)
}

// Update applies changes and enforces the deactivation rule: a commitment
// whose end date has passed goes inactive on any write touching it.
func (s *service) Update(ctx context.Context, c finance.Commitment) (finance.Commitment, error) {
	if c.UserID == uuid.Nil || c.ID == uuid.Nil {
		return finance.Commitment{}, errs.ErrInvalid
	}
	current, err := s.repo.Commitment(ctx, c.UserID, c.ID)
	if err != nil {
		return finance.Commitment{}, err
	}
	if err := s.validate(ctx, c); err != nil {
		return finance.Commitment{}, err
	}
	c.Currency = c.Amount.Curr().Code()
	c.LastEvent = current.LastEvent
	c.CreatedAt = current.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	if Expired(c, time.Now().UTC()) {
		c.Active = false
	}
	return s.writer.UpdateCommitment(ctx, c)
}

func (s *service) Get(ctx context.Context, userID, commitmentID uuid.UUID) (finance.Commitment, error) {
	if userID == uuid.Nil || commitmentID == uuid.Nil {
		return finance.Commitment{}, errs.ErrInvalid
	}
	return s.repo.Commitment(ctx, userID, commitmentID)
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]finance.Commitment, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.Commitments(ctx, userID)
}

// Upcoming lists active commitments whose next occurrence falls within
// [today, today+days], ordered by occurrence date ascending.
func (s *service) Upcoming(ctx context.Context, userID uuid.UUID, today time.Time, days int) ([]Occurrence, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	if days < 0 {
		return nil, fmt.Errorf("days must be >= 0: %w", errs.ErrInvalid)
	}
	all, err := s.repo.Commitments(ctx, userID)
	if err != nil {
		return nil, err
	}
	today = dateOnly(today)
	horizon := today.AddDate(0, 0, days)
	out := make([]Occurrence, 0)
	for _, c := range all {
		if !c.Active || Expired(c, today) {
			continue
		}
		next := NextOccurrence(c)
		if next.Before(today) || next.After(horizon) {
			continue
		}
		out = append(out, Occurrence{
			Commitment: c,
			Next:       next,
			DaysUntil:  DaysUntil(c, today),
			Due:        IsDue(c, today),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Next.Before(out[j].Next) })
	return out, nil
}

// RunDue materializes due auto-generate commitments into ledger transactions
// through the transaction engine; the linked commitment's last event advances
// as a side effect of the creation. One commitment's failure does not block
// the rest. Returns the number generated.
func (s *service) RunDue(ctx context.Context, userID uuid.UUID, today time.Time) (int, error) {
	if userID == uuid.Nil {
		return 0, errs.ErrInvalid
	}
	all, err := s.repo.Commitments(ctx, userID)
	if err != nil {
		return 0, err
	}
	today = dateOnly(today)
	generated := 0
	for _, c := range all {
		if !c.Active || !c.AutoGenerate || c.DestAccountID == nil {
			continue
		}
		if Expired(c, today) {
			c.Active = false
			c.UpdatedAt = time.Now().UTC()
			if _, err := s.writer.UpdateCommitment(ctx, c); err != nil {
				s.log.Error("deactivate expired commitment", "commitment_id", c.ID, "err", err)
			}
			continue
		}
		if !IsDue(c, today) {
			continue
		}
		cid := c.ID
		tx := finance.Transaction{
			UserID:       c.UserID,
			CommitmentID: &cid,
			Date:         NextOccurrence(c),
			Amount:       c.Amount,
			Description:  c.Description,
		}
		if c.Direction == finance.DirectionIncome {
			tx.Kind = finance.TransactionIncome
			tx.DestAccountID = c.DestAccountID
		} else {
			tx.Kind = finance.TransactionExpense
			tx.SourceAccountID = c.DestAccountID
		}
		if _, err := s.txs.Create(ctx, tx); err != nil {
			s.log.Error("generate transaction from commitment", "commitment_id", c.ID, "err", err)
			continue
		}
		generated++
		s.log.Info("generated transaction from commitment",
			"commitment_id", c.ID, "description", c.Description, "date", tx.Date.Format("2006-01-02"))
	}
	return generated, nil
}
