// Package catalog holds the curated category taxonomy. The engines treat it
// as a read-only existence lookup.
package catalog

import (
	"github.com/google/uuid"

	"github.com/solerv/finledger/internal/finance"
	"github.com/solerv/finledger/internal/slug"
)

type def struct {
	Code  string
	Label string
	Kind  finance.TransactionKind
}

var curated = []def{
	{Code: "salary", Label: "Salary", Kind: finance.TransactionIncome},
	{Code: "interest_income", Label: "Interest", Kind: finance.TransactionIncome},
	{Code: "refund", Label: "Refund", Kind: finance.TransactionIncome},
	{Code: "other_income", Label: "Other Income", Kind: finance.TransactionIncome},
	{Code: "groceries", Label: "Groceries", Kind: finance.TransactionExpense},
	{Code: "eating_out", Label: "Eating Out", Kind: finance.TransactionExpense},
	{Code: "rent", Label: "Rent", Kind: finance.TransactionExpense},
	{Code: "utilities", Label: "Utilities", Kind: finance.TransactionExpense},
	{Code: "transport", Label: "Transport", Kind: finance.TransactionExpense},
	{Code: "shopping", Label: "Shopping", Kind: finance.TransactionExpense},
	{Code: "entertainment", Label: "Entertainment", Kind: finance.TransactionExpense},
	{Code: "debt_payment", Label: "Debt Payment", Kind: finance.TransactionExpense},
	{Code: "general", Label: "General", Kind: finance.TransactionExpense},
	{Code: "account_transfer", Label: "Account Transfer", Kind: finance.TransactionTransfer},
	{Code: "savings_allocation", Label: "Savings Allocation", Kind: finance.TransactionTransfer},
	{Code: "opening_balance", Label: "Opening Balance", Kind: finance.TransactionAdjustment},
	{Code: "balance_adjustment", Label: "Balance Adjustment", Kind: finance.TransactionAdjustment},
}

var (
	byID   map[uuid.UUID]finance.Category
	byCode map[string]finance.Category
)

func init() {
	byID = make(map[uuid.UUID]finance.Category, len(curated))
	byCode = make(map[string]finance.Category, len(curated))
	for _, d := range curated {
		c := finance.Category{
			// Deterministic IDs so category references survive restarts.
			ID:     uuid.NewSHA1(uuid.NameSpaceOID, []byte("finledger/category/"+d.Code)),
			Code:   slug.Slugify(d.Code),
			Label:  d.Label,
			Kind:   d.Kind,
			Active: true,
		}
		byID[c.ID] = c
		byCode[c.Code] = c
	}
}

// Lookup returns the category for id, if curated.
func Lookup(id uuid.UUID) (finance.Category, bool) {
	c, ok := byID[id]
	return c, ok
}

// ByCode returns the category for a slug code.
func ByCode(code string) (finance.Category, bool) {
	c, ok := byCode[slug.Slugify(code)]
	return c, ok
}

// All returns every curated category, stable order.
func All() []finance.Category {
	out := make([]finance.Category, 0, len(curated))
	for _, d := range curated {
		out = append(out, byCode[d.Code])
	}
	return out
}
