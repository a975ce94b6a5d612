package httpapi

import (
	"context"

	"github.com/solerv/finledger/internal/service/account"
	"github.com/solerv/finledger/internal/service/debt"
	"github.com/solerv/finledger/internal/service/plan"
	"github.com/solerv/finledger/internal/service/schedule"
	"github.com/solerv/finledger/internal/service/subaccount"
	"github.com/solerv/finledger/internal/service/transaction"
)

// Store is the full storage surface the API wires into the services. Both the
// memory and postgres stores satisfy it.
type Store interface {
	account.Repo
	account.Writer
	transaction.Repo
	transaction.Writer
	subaccount.Repo
	subaccount.Writer
	debt.Repo
	debt.Writer
	schedule.Repo
	schedule.Writer
	plan.Repo
	plan.Writer
}

// ReadyChecker is implemented by backends that can verify connectivity.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}
