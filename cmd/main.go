package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/solerv/finledger/internal/finance"
	"github.com/solerv/finledger/internal/httpapi"
	"github.com/solerv/finledger/internal/storage/memory"
	pgstore "github.com/solerv/finledger/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLoggerFromEnv()
	slog.SetDefault(logger)

	var handler http.Handler
	var closeFn func()

	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		pg, err := pgstore.Open(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFn = func() { pg.Close() }
		if devSeedEnabled() {
			user, accs, err := pg.SeedDev(ctx)
			if err != nil {
				logger.Error("dev seed failed", "err", err)
			} else {
				logDevSeed(logger, "postgres", user, accs)
				printDevSeedBanner(user, accs)
			}
		}
		handler = httpapi.New(pg, logger).Handler()
		logger.Info("storage backend: postgres")
	} else {
		store := memory.New()
		user, accs := seedMemory(store)
		logDevSeed(logger, "memory", user, accs)
		printDevSeedBanner(user, accs)
		handler = httpapi.New(store, logger).Handler()
		logger.Info("storage backend: memory")
	}

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("finledger service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

func devSeedEnabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEV_SEED"))) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// seedMemory loads a user and two accounts into the in-memory store so the
// API is usable out of the box.
func seedMemory(store *memory.Store) (finance.User, []finance.Account) {
	user := finance.User{ID: uuid.New()}
	store.SeedUser(user)
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
	store.SeedAccount(checking)
	store.SeedAccount(cash)
	return user, []finance.Account{checking, cash}
}

// logDevSeed emits structured logs with useful IDs
func logDevSeed(l *slog.Logger, backend string, user finance.User, accs []finance.Account) {
	ids := map[string]string{}
	for _, a := range accs {
		ids[strings.ToLower(a.Name)+"_account_id"] = a.ID.String()
	}
	l.Info("DEV seed ("+backend+")", "user_id", user.ID.String(), "ids", ids)
}

// printDevSeedBanner prints a simple banner to stdout for easy copy/paste of IDs
func printDevSeedBanner(user finance.User, accs []finance.Account) {
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("user_id: %s\n", user.ID.String())
	for _, a := range accs {
		fmt.Printf("%s_account_id: %s\n", strings.ToLower(a.Name), a.ID.String())
	}
	fmt.Println("==================================================")
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLoggerFromEnv() *slog.Logger {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
