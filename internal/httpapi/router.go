// Package httpapi wires the HTTP surface of the finledger service.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/solerv/finledger/internal/service/account"
	"github.com/solerv/finledger/internal/service/debt"
	"github.com/solerv/finledger/internal/service/plan"
	"github.com/solerv/finledger/internal/service/schedule"
	"github.com/solerv/finledger/internal/service/subaccount"
	"github.com/solerv/finledger/internal/service/transaction"
)

// Server wires handlers and middleware using Chi.
type Server struct {
	accounts account.Service
	txs      transaction.Service
	subs     subaccount.Service
	debts    debt.Service
	sched    schedule.Service
	plans    plan.Service
	ready    ReadyChecker
	log      *slog.Logger
	rt       *chi.Mux
}

// New constructs the HTTP server with routes and middleware. Services are
// built over the one store; the plan executor and scheduler re-enter the
// other services through it.
func New(store Store, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	txs := transaction.New(store, store)
	subs := subaccount.New(store, store)
	debts := debt.New(store, store)

	s := &Server{
		accounts: account.New(store, store, txs),
		txs:      txs,
		subs:     subs,
		debts:    debts,
		sched:    schedule.New(store, store, txs, logger),
		plans:    plan.New(store, store, txs, subs, debts, logger),
		rt:       r,
		log:      logger,
	}
	if rc, ok := store.(ReadyChecker); ok {
		s.ready = rc
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints.
func (s *Server) routes() {
	// Accounts
	s.rt.Post("/v1/accounts", s.postAccount)
	s.rt.Get("/v1/accounts", s.listAccounts)
	s.rt.Get("/v1/accounts/{id}", s.getAccount)
	s.rt.Patch("/v1/accounts/{id}", s.updateAccount)
	s.rt.Delete("/v1/accounts/{id}", s.deactivateAccount)
	// Sub-accounts
	s.rt.Post("/v1/subaccounts", s.postSubAccount)
	s.rt.Get("/v1/subaccounts", s.listSubAccounts)
	s.rt.Get("/v1/subaccounts/{id}", s.getSubAccount)
	s.rt.Patch("/v1/subaccounts/{id}", s.updateSubAccount)
	s.rt.Delete("/v1/subaccounts/{id}", s.deactivateSubAccount)
	// Debts
	s.rt.Post("/v1/debts", s.postDebt)
	s.rt.Get("/v1/debts", s.listDebts)
	s.rt.Get("/v1/debts/{id}", s.getDebt)
	s.rt.Patch("/v1/debts/{id}", s.updateDebt)
	s.rt.Get("/v1/debts/{id}/amortization", s.getAmortization)
	// Transactions
	s.rt.Post("/v1/transactions", s.postTransaction)
	s.rt.Get("/v1/transactions", s.listTransactions)
	s.rt.Get("/v1/transactions/{id}", s.getTransaction)
	s.rt.Patch("/v1/transactions/{id}", s.updateTransaction)
	s.rt.Delete("/v1/transactions/{id}", s.deleteTransaction)
	// Sub-account movements
	s.rt.Post("/v1/subaccount-movements", s.postSubMovement)
	s.rt.Get("/v1/subaccount-movements", s.listSubMovements)
	s.rt.Get("/v1/subaccount-movements/{id}", s.getSubMovement)
	s.rt.Patch("/v1/subaccount-movements/{id}", s.updateSubMovement)
	s.rt.Delete("/v1/subaccount-movements/{id}", s.deleteSubMovement)
	// Debt movements
	s.rt.Post("/v1/debt-movements", s.postDebtMovement)
	s.rt.Get("/v1/debt-movements", s.listDebtMovements)
	s.rt.Get("/v1/debt-movements/{id}", s.getDebtMovement)
	s.rt.Patch("/v1/debt-movements/{id}", s.updateDebtMovement)
	s.rt.Delete("/v1/debt-movements/{id}", s.deleteDebtMovement)
	// Commitments
	s.rt.Post("/v1/commitments", s.postCommitment)
	s.rt.Get("/v1/commitments", s.listCommitments)
	s.rt.Get("/v1/commitments/upcoming", s.upcomingCommitments)
	s.rt.Post("/v1/commitments/run-due", s.runDueCommitments)
	s.rt.Get("/v1/commitments/{id}", s.getCommitment)
	s.rt.Patch("/v1/commitments/{id}", s.updateCommitment)
	// Plan
	s.rt.Post("/v1/plan/items", s.postPlanItem)
	s.rt.Get("/v1/plan/items", s.listPlanItems)
	s.rt.Get("/v1/plan/items/{id}", s.getPlanItem)
	s.rt.Patch("/v1/plan/items/{id}", s.updatePlanItem)
	s.rt.Delete("/v1/plan/items/{id}", s.deletePlanItem)
	s.rt.Post("/v1/plan/items/{id}/execute", s.executePlanItem)
	s.rt.Post("/v1/plan/execute", s.executePlan)
	s.rt.Post("/v1/plan/reset", s.resetPlan)
	s.rt.Get("/v1/plan/summary", s.planSummary)
	// Categories
	s.rt.Get("/v1/categories", s.listCategories)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}
