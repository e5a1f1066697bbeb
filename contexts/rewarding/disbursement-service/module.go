package disbursementservice

import (
	"log/slog"
	"time"

	httpadapter "captminter/contexts/rewarding/disbursement-service/adapters/http"
	"captminter/contexts/rewarding/disbursement-service/adapters/memory"
	"captminter/contexts/rewarding/disbursement-service/application/commands"
	"captminter/contexts/rewarding/disbursement-service/application/queries"
	"captminter/contexts/rewarding/disbursement-service/domain/entities"
	"captminter/contexts/rewarding/disbursement-service/domain/rewards"
	"captminter/contexts/rewarding/disbursement-service/ports"
)

type Module struct {
	Commands commands.UseCase
	Queries  queries.UseCase
	Handler  httpadapter.Handler
	Store    *memory.Store
}

type Dependencies struct {
	Sessions ports.SessionRepository
	Receipts ports.ReceiptRepository
	Totals   ports.WalletTotalsRepository
	Ledger   ports.Ledger
	Events   ports.EventPublisher
	Clock    ports.Clock
	IDGen    ports.IDGenerator

	Policy        rewards.Policy
	ClaimLease    time.Duration
	RetryCooldown time.Duration
	MaxAttempts   int
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	policy := deps.Policy
	if policy == nil {
		policy = rewards.DurationPolicy{TokensPerSecond: 1}
	}
	commandUseCase := commands.UseCase{
		Sessions:      deps.Sessions,
		Receipts:      deps.Receipts,
		Ledger:        deps.Ledger,
		Policy:        policy,
		Events:        deps.Events,
		Clock:         deps.Clock,
		IDGen:         deps.IDGen,
		ClaimLease:    deps.ClaimLease,
		RetryCooldown: deps.RetryCooldown,
		MaxAttempts:   deps.MaxAttempts,
		Logger:        deps.Logger,
	}
	queryUseCase := queries.UseCase{
		Sessions: deps.Sessions,
		Receipts: deps.Receipts,
		Totals:   deps.Totals,
	}
	return Module{
		Commands: commandUseCase,
		Queries:  queryUseCase,
		Handler: httpadapter.Handler{
			Queries: queryUseCase,
			Logger:  deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module against the in-memory store, used by
// tests and local runs without Postgres.
func NewInMemoryModule(seed []entities.DetectionSession, ledger ports.Ledger, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Sessions: store,
		Receipts: store,
		Totals:   store,
		Ledger:   ledger,
		Clock:    store,
		IDGen:    store,
		Logger:   logger,
	})
	module.Store = store
	return module
}
