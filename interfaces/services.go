package interfaces

import (
	"context"

	"github.com/mezonai/ppy/keys"
	"github.com/mezonai/ppy/service"
	"github.com/mezonai/ppy/transaction"
)

type TransferService interface {
	BuildTransfer(ctx context.Context, req service.TransferRequest) (*transaction.Transaction, error)
}

type AccountService interface {
	GetAccountKeys(ctx context.Context, nameOrID string) (map[string][]keys.KeyAuth, error)
	AuthUser(ctx context.Context, name, password string) (bool, error)
	Balances(ctx context.Context, nameOrID string) ([]service.AssetBalance, error)
	BalanceOf(ctx context.Context, nameOrID, symbolOrID string) (service.AssetBalance, error)
}

type HealthService interface {
	Check(ctx context.Context, node service.Pinger) bool
}

// TransactionTracker remembers broadcast ids so callers can avoid
// re-broadcasting a transaction that already landed.
type TransactionTracker interface {
	Track(id, sender string)
	WasBroadcast(id string) bool
	Recent(sender string) []transaction.Broadcasted
}

var (
	_ TransferService    = (*service.TransferServiceImpl)(nil)
	_ AccountService     = (*service.AccountServiceImpl)(nil)
	_ HealthService      = (*service.HealthServiceImpl)(nil)
	_ TransactionTracker = (*transaction.Tracker)(nil)
)
