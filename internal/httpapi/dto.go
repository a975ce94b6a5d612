package httpapi

import (
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/solerv/finledger/internal/finance"
	"github.com/solerv/finledger/internal/meta"
)

// Amounts cross the wire as integer minor units plus an ISO 4217 code, the
// same encoding the stores use.

func userIDFromQuery(r *http.Request) (uuid.UUID, error) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return uuid.Nil, fmt.Errorf("user_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user_id")
	}
	return id, nil
}

func parseUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", field)
	}
	return id, nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id")
	}
	return id, nil
}

func amountFromMinor(curr string, minor int64) (money.Amount, error) {
	a, err := money.NewAmountFromMinorUnits(curr, minor)
	if err != nil {
		return money.Amount{}, fmt.Errorf("invalid currency %q", curr)
	}
	return a, nil
}

func optAmount(curr string, minor *int64) (*money.Amount, error) {
	if minor == nil {
		return nil, nil
	}
	a, err := amountFromMinor(curr, *minor)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func minorOf(a money.Amount) int64 {
	m, _ := a.MinorUnits()
	return m
}

func optMinor(a *money.Amount) *int64 {
	if a == nil {
		return nil
	}
	m := minorOf(*a)
	return &m
}

func optRate(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := decimal.Parse(*raw)
	if err != nil {
		return nil, fmt.Errorf("invalid interest_rate %q", *raw)
	}
	return &d, nil
}

func rateString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

// --- accounts ---

type accountRequest struct {
	UserID              uuid.UUID         `json:"user_id"`
	Name                string            `json:"name"`
	Kind                string            `json:"kind"`
	Currency            string            `json:"currency"`
	Institution         string            `json:"institution,omitempty"`
	CreditLimitMinor    *int64            `json:"credit_limit_minor,omitempty"`
	CutDay              *int              `json:"cut_day,omitempty"`
	PayDay              *int              `json:"pay_day,omitempty"`
	InterestRate        *string           `json:"interest_rate,omitempty"`
	IncludeInNetWorth   *bool             `json:"include_in_net_worth,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	Description         string            `json:"description,omitempty"`
	OpeningBalanceMinor *int64            `json:"opening_balance_minor,omitempty"`
}

func (req accountRequest) toDomain() (finance.Account, *money.Amount, error) {
	limit, err := optAmount(req.Currency, req.CreditLimitMinor)
	if err != nil {
		return finance.Account{}, nil, err
	}
	rate, err := optRate(req.InterestRate)
	if err != nil {
		return finance.Account{}, nil, err
	}
	opening, err := optAmount(req.Currency, req.OpeningBalanceMinor)
	if err != nil {
		return finance.Account{}, nil, err
	}
	inNetWorth := true
	if req.IncludeInNetWorth != nil {
		inNetWorth = *req.IncludeInNetWorth
	}
	a := finance.Account{
		UserID:            req.UserID,
		Name:              req.Name,
		Kind:              finance.AccountKind(req.Kind),
		Currency:          req.Currency,
		Institution:       req.Institution,
		CreditLimit:       limit,
		CutDay:            req.CutDay,
		PayDay:            req.PayDay,
		InterestRate:      rate,
		IncludeInNetWorth: inNetWorth,
		Metadata:          meta.New(req.Metadata),
		Description:       req.Description,
	}
	return a, opening, nil
}

type accountResponse struct {
	ID                   uuid.UUID         `json:"id"`
	UserID               uuid.UUID         `json:"user_id"`
	Name                 string            `json:"name"`
	Kind                 string            `json:"kind"`
	Currency             string            `json:"currency"`
	Institution          string            `json:"institution,omitempty"`
	BalanceMinor         int64             `json:"balance_minor"`
	CreditLimitMinor     *int64            `json:"credit_limit_minor,omitempty"`
	AvailableCreditMinor *int64            `json:"available_credit_minor,omitempty"`
	CutDay               *int              `json:"cut_day,omitempty"`
	PayDay               *int              `json:"pay_day,omitempty"`
	InterestRate         *string           `json:"interest_rate,omitempty"`
	Active               bool              `json:"active"`
	IncludeInNetWorth    bool              `json:"include_in_net_worth"`
	Metadata             map[string]string `json:"metadata,omitempty"`
	Description          string            `json:"description,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	LastMovement         *time.Time        `json:"last_movement,omitempty"`
}

func toAccountResponse(a finance.Account) accountResponse {
	resp := accountResponse{
		ID:                a.ID,
		UserID:            a.UserID,
		Name:              a.Name,
		Kind:              string(a.Kind),
		Currency:          a.Currency,
		Institution:       a.Institution,
		BalanceMinor:      minorOf(a.Balance),
		CreditLimitMinor:  optMinor(a.CreditLimit),
		CutDay:            a.CutDay,
		PayDay:            a.PayDay,
		InterestRate:      rateString(a.InterestRate),
		Active:            a.Active,
		IncludeInNetWorth: a.IncludeInNetWorth,
		Metadata:          a.Metadata,
		Description:       a.Description,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
		LastMovement:      a.LastMovement,
	}
	if avail, ok := a.AvailableCredit(); ok {
		m := minorOf(avail)
		resp.AvailableCreditMinor = &m
	}
	return resp
}

// --- sub-accounts ---

type subAccountRequest struct {
	UserID      uuid.UUID `json:"user_id"`
	AccountID   uuid.UUID `json:"account_id"`
	Name        string    `json:"name"`
	GoalMinor   *int64    `json:"goal_minor,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	Description string    `json:"description,omitempty"`
}

func (req subAccountRequest) toDomain() (finance.SubAccount, error) {
	sa := finance.SubAccount{
		UserID:      req.UserID,
		AccountID:   req.AccountID,
		Name:        req.Name,
		Description: req.Description,
	}
	if req.GoalMinor != nil {
		if req.Currency == "" {
			return finance.SubAccount{}, fmt.Errorf("currency is required with goal_minor")
		}
		goal, err := optAmount(req.Currency, req.GoalMinor)
		if err != nil {
			return finance.SubAccount{}, err
		}
		sa.Goal = goal
	}
	return sa, nil
}

type subAccountResponse struct {
	ID           uuid.UUID `json:"id"`
	AccountID    uuid.UUID `json:"account_id"`
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name"`
	Currency     string    `json:"currency"`
	BalanceMinor int64     `json:"balance_minor"`
	GoalMinor    *int64    `json:"goal_minor,omitempty"`
	Active       bool      `json:"active"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toSubAccountResponse(sa finance.SubAccount) subAccountResponse {
	return subAccountResponse{
		ID:           sa.ID,
		AccountID:    sa.AccountID,
		UserID:       sa.UserID,
		Name:         sa.Name,
		Currency:     sa.Balance.Curr().Code(),
		BalanceMinor: minorOf(sa.Balance),
		GoalMinor:    optMinor(sa.Goal),
		Active:       sa.Active,
		Description:  sa.Description,
		CreatedAt:    sa.CreatedAt,
		UpdatedAt:    sa.UpdatedAt,
	}
}

// --- transactions ---

type transactionRequest struct {
	UserID          uuid.UUID         `json:"user_id"`
	SourceAccountID *uuid.UUID        `json:"source_account_id,omitempty"`
	DestAccountID   *uuid.UUID        `json:"dest_account_id,omitempty"`
	CategoryID      *uuid.UUID        `json:"category_id,omitempty"`
	CommitmentID    *uuid.UUID        `json:"commitment_id,omitempty"`
	Date            *time.Time        `json:"date,omitempty"`
	Kind            string            `json:"kind"`
	Currency        string            `json:"currency"`
	AmountMinor     int64             `json:"amount_minor"`
	Description     string            `json:"description,omitempty"`
	Reference       string            `json:"reference,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

func (req transactionRequest) toDomain() (finance.Transaction, error) {
	amt, err := amountFromMinor(req.Currency, req.AmountMinor)
	if err != nil {
		return finance.Transaction{}, err
	}
	tx := finance.Transaction{
		UserID:          req.UserID,
		SourceAccountID: req.SourceAccountID,
		DestAccountID:   req.DestAccountID,
		CategoryID:      req.CategoryID,
		CommitmentID:    req.CommitmentID,
		Kind:            finance.TransactionKind(req.Kind),
		Amount:          amt,
		Description:     req.Description,
		Reference:       req.Reference,
		Metadata:        meta.New(req.Metadata),
	}
	if req.Date != nil {
		tx.Date = req.Date.UTC()
	}
	return tx, nil
}

type transactionResponse struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	SourceAccountID *uuid.UUID        `json:"source_account_id,omitempty"`
	DestAccountID   *uuid.UUID        `json:"dest_account_id,omitempty"`
	CategoryID      *uuid.UUID        `json:"category_id,omitempty"`
	CommitmentID    *uuid.UUID        `json:"commitment_id,omitempty"`
	Date            time.Time         `json:"date"`
	Kind            string            `json:"kind"`
	Currency        string            `json:"currency"`
	AmountMinor     int64             `json:"amount_minor"`
	Description     string            `json:"description,omitempty"`
	Reference       string            `json:"reference,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func toTransactionResponse(tx finance.Transaction) transactionResponse {
	return transactionResponse{
		ID:              tx.ID,
		UserID:          tx.UserID,
		SourceAccountID: tx.SourceAccountID,
		DestAccountID:   tx.DestAccountID,
		CategoryID:      tx.CategoryID,
		CommitmentID:    tx.CommitmentID,
		Date:            tx.Date,
		Kind:            string(tx.Kind),
		Currency:        tx.Amount.Curr().Code(),
		AmountMinor:     minorOf(tx.Amount),
		Description:     tx.Description,
		Reference:       tx.Reference,
		Metadata:        tx.Metadata,
		CreatedAt:       tx.CreatedAt,
		UpdatedAt:       tx.UpdatedAt,
	}
}

// --- sub-account movements ---

type subMovementRequest struct {
	UserID           uuid.UUID  `json:"user_id"`
	SubAccountID     uuid.UUID  `json:"subaccount_id"`
	DestSubAccountID *uuid.UUID `json:"dest_subaccount_id,omitempty"`
	TransactionID    *uuid.UUID `json:"transaction_id,omitempty"`
	Date             *time.Time `json:"date,omitempty"`
	Kind             string     `json:"kind"`
	Currency         string     `json:"currency"`
	AmountMinor      int64      `json:"amount_minor"`
	Description      string     `json:"description,omitempty"`
}

func (req subMovementRequest) toDomain() (finance.SubMovement, error) {
	amt, err := amountFromMinor(req.Currency, req.AmountMinor)
	if err != nil {
		return finance.SubMovement{}, err
	}
	m := finance.SubMovement{
		UserID:           req.UserID,
		SubAccountID:     req.SubAccountID,
		DestSubAccountID: req.DestSubAccountID,
		TransactionID:    req.TransactionID,
		Kind:             finance.SubMovementKind(req.Kind),
		Amount:           amt,
		Description:      req.Description,
	}
	if req.Date != nil {
		m.Date = req.Date.UTC()
	}
	return m, nil
}

type subMovementResponse struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	SubAccountID     uuid.UUID  `json:"subaccount_id"`
	DestSubAccountID *uuid.UUID `json:"dest_subaccount_id,omitempty"`
	TransactionID    *uuid.UUID `json:"transaction_id,omitempty"`
	Date             time.Time  `json:"date"`
	Kind             string     `json:"kind"`
	Currency         string     `json:"currency"`
	AmountMinor      int64      `json:"amount_minor"`
	Description      string     `json:"description,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func toSubMovementResponse(m finance.SubMovement) subMovementResponse {
	return subMovementResponse{
		ID:               m.ID,
		UserID:           m.UserID,
		SubAccountID:     m.SubAccountID,
		DestSubAccountID: m.DestSubAccountID,
		TransactionID:    m.TransactionID,
		Date:             m.Date,
		Kind:             string(m.Kind),
		Currency:         m.Amount.Curr().Code(),
		AmountMinor:      minorOf(m.Amount),
		Description:      m.Description,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// --- debts ---

type debtRequest struct {
	UserID                 uuid.UUID  `json:"user_id"`
	AccountID              *uuid.UUID `json:"account_id,omitempty"`
	SubAccountID           *uuid.UUID `json:"subaccount_id,omitempty"`
	Kind                   string     `json:"kind"`
	Counterparty           string     `json:"counterparty"`
	Currency               string     `json:"currency"`
	InitialBalanceMinor    int64      `json:"initial_balance_minor"`
	InstallmentAmountMinor *int64     `json:"installment_amount_minor,omitempty"`
	InstallmentCount       *int       `json:"installment_count,omitempty"`
	PaymentFrequency       *string    `json:"payment_frequency,omitempty"`
	InterestRate           *string    `json:"interest_rate,omitempty"`
	StartDate              *time.Time `json:"start_date,omitempty"`
	DueDate                *time.Time `json:"due_date,omitempty"`
	NextPayment            *time.Time `json:"next_payment,omitempty"`
	Priority               string     `json:"priority,omitempty"`
	Description            string     `json:"description,omitempty"`
}

func (req debtRequest) toDomain() (finance.Debt, error) {
	initial, err := amountFromMinor(req.Currency, req.InitialBalanceMinor)
	if err != nil {
		return finance.Debt{}, err
	}
	installment, err := optAmount(req.Currency, req.InstallmentAmountMinor)
	if err != nil {
		return finance.Debt{}, err
	}
	rate, err := optRate(req.InterestRate)
	if err != nil {
		return finance.Debt{}, err
	}
	d := finance.Debt{
		UserID:            req.UserID,
		AccountID:         req.AccountID,
		SubAccountID:      req.SubAccountID,
		Kind:              finance.DebtKind(req.Kind),
		Counterparty:      req.Counterparty,
		InitialBalance:    initial,
		InstallmentAmount: installment,
		InstallmentCount:  req.InstallmentCount,
		InterestRate:      rate,
		DueDate:           req.DueDate,
		NextPayment:       req.NextPayment,
		Priority:          finance.Priority(req.Priority),
		Description:       req.Description,
	}
	if req.PaymentFrequency != nil {
		f := finance.Frequency(*req.PaymentFrequency)
		d.PaymentFrequency = &f
	}
	if req.StartDate != nil {
		d.StartDate = req.StartDate.UTC()
	}
	return d, nil
}

type debtResponse struct {
	ID                     uuid.UUID  `json:"id"`
	UserID                 uuid.UUID  `json:"user_id"`
	AccountID              *uuid.UUID `json:"account_id,omitempty"`
	SubAccountID           *uuid.UUID `json:"subaccount_id,omitempty"`
	Kind                   string     `json:"kind"`
	Counterparty           string     `json:"counterparty"`
	Currency               string     `json:"currency"`
	InitialBalanceMinor    int64      `json:"initial_balance_minor"`
	BalanceMinor           int64      `json:"balance_minor"`
	InstallmentAmountMinor *int64     `json:"installment_amount_minor,omitempty"`
	InstallmentCount       *int       `json:"installment_count,omitempty"`
	PaidInstallments       int        `json:"paid_installments"`
	PaymentFrequency       *string    `json:"payment_frequency,omitempty"`
	InterestRate           *string    `json:"interest_rate,omitempty"`
	StartDate              time.Time  `json:"start_date"`
	DueDate                *time.Time `json:"due_date,omitempty"`
	NextPayment            *time.Time `json:"next_payment,omitempty"`
	LastPayment            *time.Time `json:"last_payment,omitempty"`
	Status                 string     `json:"status"`
	Priority               string     `json:"priority"`
	Description            string     `json:"description,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

func toDebtResponse(d finance.Debt) debtResponse {
	resp := debtResponse{
		ID:                     d.ID,
		UserID:                 d.UserID,
		AccountID:              d.AccountID,
		SubAccountID:           d.SubAccountID,
		Kind:                   string(d.Kind),
		Counterparty:           d.Counterparty,
		Currency:               d.Currency,
		InitialBalanceMinor:    minorOf(d.InitialBalance),
		BalanceMinor:           minorOf(d.Balance),
		InstallmentAmountMinor: optMinor(d.InstallmentAmount),
		InstallmentCount:       d.InstallmentCount,
		PaidInstallments:       d.PaidInstallments,
		InterestRate:           rateString(d.InterestRate),
		StartDate:              d.StartDate,
		DueDate:                d.DueDate,
		NextPayment:            d.NextPayment,
		LastPayment:            d.LastPayment,
		Status:                 string(d.Status),
		Priority:               string(d.Priority),
		Description:            d.Description,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}
	if d.PaymentFrequency != nil {
		f := string(*d.PaymentFrequency)
		resp.PaymentFrequency = &f
	}
	return resp
}

// --- debt movements ---

type debtMovementRequest struct {
	UserID               uuid.UUID  `json:"user_id"`
	DebtID               uuid.UUID  `json:"debt_id"`
	TransactionID        *uuid.UUID `json:"transaction_id,omitempty"`
	Date                 *time.Time `json:"date,omitempty"`
	Kind                 string     `json:"kind"`
	Currency             string     `json:"currency"`
	AmountMinor          int64      `json:"amount_minor"`
	PrincipalMinor       *int64     `json:"principal_minor,omitempty"`
	InterestMinor        *int64     `json:"interest_minor,omitempty"`
	InterestAccruedMinor *int64     `json:"interest_accrued_minor,omitempty"`
	Description          string     `json:"description,omitempty"`
}

func (req debtMovementRequest) toDomain() (finance.DebtMovement, error) {
	amt, err := amountFromMinor(req.Currency, req.AmountMinor)
	if err != nil {
		return finance.DebtMovement{}, err
	}
	principal, err := optAmount(req.Currency, req.PrincipalMinor)
	if err != nil {
		return finance.DebtMovement{}, err
	}
	interest, err := optAmount(req.Currency, req.InterestMinor)
	if err != nil {
		return finance.DebtMovement{}, err
	}
	accrued, err := optAmount(req.Currency, req.InterestAccruedMinor)
	if err != nil {
		return finance.DebtMovement{}, err
	}
	m := finance.DebtMovement{
		UserID:          req.UserID,
		DebtID:          req.DebtID,
		TransactionID:   req.TransactionID,
		Kind:            finance.DebtMovementKind(req.Kind),
		Amount:          amt,
		PrincipalPaid:   principal,
		InterestPaid:    interest,
		InterestAccrued: accrued,
		Description:     req.Description,
	}
	if req.Date != nil {
		m.Date = req.Date.UTC()
	}
	return m, nil
}

type debtMovementResponse struct {
	ID                   uuid.UUID  `json:"id"`
	UserID               uuid.UUID  `json:"user_id"`
	DebtID               uuid.UUID  `json:"debt_id"`
	TransactionID        *uuid.UUID `json:"transaction_id,omitempty"`
	Date                 time.Time  `json:"date"`
	Kind                 string     `json:"kind"`
	Currency             string     `json:"currency"`
	AmountMinor          int64      `json:"amount_minor"`
	PrincipalMinor       *int64     `json:"principal_minor,omitempty"`
	InterestMinor        *int64     `json:"interest_minor,omitempty"`
	InterestAccruedMinor *int64     `json:"interest_accrued_minor,omitempty"`
	Description          string     `json:"description,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func toDebtMovementResponse(m finance.DebtMovement) debtMovementResponse {
	return debtMovementResponse{
		ID:                   m.ID,
		UserID:               m.UserID,
		DebtID:               m.DebtID,
		TransactionID:        m.TransactionID,
		Date:                 m.Date,
		Kind:                 string(m.Kind),
		Currency:             m.Amount.Curr().Code(),
		AmountMinor:          minorOf(m.Amount),
		PrincipalMinor:       optMinor(m.PrincipalPaid),
		InterestMinor:        optMinor(m.InterestPaid),
		InterestAccruedMinor: optMinor(m.InterestAccrued),
		Description:          m.Description,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// --- commitments ---

type commitmentRequest struct {
	UserID        uuid.UUID  `json:"user_id"`
	DestAccountID *uuid.UUID `json:"dest_account_id,omitempty"`
	Description   string     `json:"description"`
	Direction     string     `json:"direction"`
	Currency      string     `json:"currency"`
	AmountMinor   int64      `json:"amount_minor"`
	Frequency     string     `json:"frequency"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	AutoGenerate  bool       `json:"auto_generate,omitempty"`
	Active        *bool      `json:"active,omitempty"`
}

func (req commitmentRequest) toDomain() (finance.Commitment, error) {
	amt, err := amountFromMinor(req.Currency, req.AmountMinor)
	if err != nil {
		return finance.Commitment{}, err
	}
	c := finance.Commitment{
		UserID:        req.UserID,
		DestAccountID: req.DestAccountID,
		Description:   req.Description,
		Direction:     finance.Direction(req.Direction),
		Amount:        amt,
		Currency:      req.Currency,
		Frequency:     finance.Frequency(req.Frequency),
		StartDate:     req.StartDate.UTC(),
		EndDate:       req.EndDate,
		AutoGenerate:  req.AutoGenerate,
		Active:        true,
	}
	if req.Active != nil {
		c.Active = *req.Active
	}
	return c, nil
}

type commitmentResponse struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	DestAccountID  *uuid.UUID `json:"dest_account_id,omitempty"`
	Description    string     `json:"description"`
	Direction      string     `json:"direction"`
	Currency       string     `json:"currency"`
	AmountMinor    int64      `json:"amount_minor"`
	Frequency      string     `json:"frequency"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	LastEvent      *time.Time `json:"last_event,omitempty"`
	NextOccurrence time.Time  `json:"next_occurrence"`
	Active         bool       `json:"active"`
	AutoGenerate   bool       `json:"auto_generate"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// --- plan items ---

type planItemRequest struct {
	UserID           uuid.UUID  `json:"user_id"`
	Name             string     `json:"name"`
	Kind             string     `json:"kind"`
	Currency         string     `json:"currency"`
	AmountMinor      int64      `json:"amount_minor"`
	SourceAccountID  uuid.UUID  `json:"source_account_id"`
	DestAccountID    *uuid.UUID `json:"dest_account_id,omitempty"`
	DestSubAccountID *uuid.UUID `json:"dest_subaccount_id,omitempty"`
	DebtID           *uuid.UUID `json:"debt_id,omitempty"`
	Priority         string     `json:"priority,omitempty"`
	Order            int        `json:"order,omitempty"`
	Active           *bool      `json:"active,omitempty"`
	Description      string     `json:"description,omitempty"`
}

func (req planItemRequest) toDomain() (finance.PlanItem, error) {
	amt, err := amountFromMinor(req.Currency, req.AmountMinor)
	if err != nil {
		return finance.PlanItem{}, err
	}
	item := finance.PlanItem{
		UserID:           req.UserID,
		Name:             req.Name,
		Kind:             finance.PlanItemKind(req.Kind),
		Amount:           amt,
		SourceAccountID:  req.SourceAccountID,
		DestAccountID:    req.DestAccountID,
		DestSubAccountID: req.DestSubAccountID,
		DebtID:           req.DebtID,
		Priority:         finance.Priority(req.Priority),
		Order:            req.Order,
		Active:           true,
		Description:      req.Description,
	}
	if req.Active != nil {
		item.Active = *req.Active
	}
	return item, nil
}

type planItemResponse struct {
	ID                     uuid.UUID  `json:"id"`
	UserID                 uuid.UUID  `json:"user_id"`
	Name                   string     `json:"name"`
	Kind                   string     `json:"kind"`
	Currency               string     `json:"currency"`
	AmountMinor            int64      `json:"amount_minor"`
	SourceAccountID        uuid.UUID  `json:"source_account_id"`
	DestAccountID          *uuid.UUID `json:"dest_account_id,omitempty"`
	DestSubAccountID       *uuid.UUID `json:"dest_subaccount_id,omitempty"`
	DebtID                 *uuid.UUID `json:"debt_id,omitempty"`
	Priority               string     `json:"priority"`
	Order                  int        `json:"order"`
	Active                 bool       `json:"active"`
	Executed               bool       `json:"executed"`
	ExecutedAt             *time.Time `json:"executed_at,omitempty"`
	GeneratedTransactionID *uuid.UUID `json:"generated_transaction_id,omitempty"`
	Description            string     `json:"description,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

func toPlanItemResponse(it finance.PlanItem) planItemResponse {
	return planItemResponse{
		ID:                     it.ID,
		UserID:                 it.UserID,
		Name:                   it.Name,
		Kind:                   string(it.Kind),
		Currency:               it.Amount.Curr().Code(),
		AmountMinor:            minorOf(it.Amount),
		SourceAccountID:        it.SourceAccountID,
		DestAccountID:          it.DestAccountID,
		DestSubAccountID:       it.DestSubAccountID,
		DebtID:                 it.DebtID,
		Priority:               string(it.Priority),
		Order:                  it.Order,
		Active:                 it.Active,
		Executed:               it.Executed,
		ExecutedAt:             it.ExecutedAt,
		GeneratedTransactionID: it.GeneratedTransactionID,
		Description:            it.Description,
		CreatedAt:              it.CreatedAt,
		UpdatedAt:              it.UpdatedAt,
	}
}
