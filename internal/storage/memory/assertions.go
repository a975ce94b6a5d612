package memory

import (
	"github.com/solerv/finledger/internal/service/account"
	"github.com/solerv/finledger/internal/service/debt"
	"github.com/solerv/finledger/internal/service/plan"
	"github.com/solerv/finledger/internal/service/schedule"
	"github.com/solerv/finledger/internal/service/subaccount"
	"github.com/solerv/finledger/internal/service/transaction"
)

// Compile-time assertions documenting which service interfaces Store satisfies.
var (
	_ account.Repo       = (*Store)(nil)
	_ account.Writer     = (*Store)(nil)
	_ transaction.Repo   = (*Store)(nil)
	_ transaction.Writer = (*Store)(nil)
	_ subaccount.Repo    = (*Store)(nil)
	_ subaccount.Writer  = (*Store)(nil)
	_ debt.Repo          = (*Store)(nil)
	_ debt.Writer        = (*Store)(nil)
	_ schedule.Repo      = (*Store)(nil)
	_ schedule.Writer    = (*Store)(nil)
	_ plan.Repo          = (*Store)(nil)
	_ plan.Writer        = (*Store)(nil)
)
