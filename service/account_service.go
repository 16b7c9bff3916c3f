package service

import (
	"context"
	"fmt"

	"github.com/mezonai/ppy/client"
	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/keys"
	"github.com/mezonai/ppy/logx"
	"github.com/mezonai/ppy/ops"
)

// AssetBalance is a balance annotated with its asset's symbol and precision.
type AssetBalance struct {
	AssetID   string `json:"asset_id"`
	Symbol    string `json:"symbol"`
	Precision uint8  `json:"precision"`
	Amount    int64  `json:"amount"`
}

type AccountServiceImpl struct {
	chain  client.ChainAPI
	prefix string
}

func NewAccountService(chain client.ChainAPI, prefix string) *AccountServiceImpl {
	if prefix == "" {
		prefix = keys.DefaultPrefix
	}
	return &AccountServiceImpl{chain: chain, prefix: prefix}
}

// GetAccountKeys returns the key authorities of each role; memo carries the
// single memo key.
func (s *AccountServiceImpl) GetAccountKeys(ctx context.Context, nameOrID string) (map[string][]keys.KeyAuth, error) {
	account, err := s.chain.GetAccount(ctx, nameOrID)
	if err != nil {
		return nil, err
	}
	return map[string][]keys.KeyAuth{
		keys.RoleOwner:  account.Owner.Keys(),
		keys.RoleActive: account.Active.Keys(),
		keys.RoleMemo:   {{Key: account.Options.MemoKey, Weight: 1}},
	}, nil
}

// AuthUser checks whether keys derived from name and password control the
// account in any role.
func (s *AccountServiceImpl) AuthUser(ctx context.Context, name, password string) (bool, error) {
	if name == "" || password == "" {
		return false, errors.MissingInput("auth user")
	}
	auths, err := s.GetAccountKeys(ctx, name)
	if err != nil {
		return false, err
	}
	ok := keys.CheckKeys(name, password, auths, s.prefix)
	if !ok {
		logx.Warn("ACCOUNT", fmt.Sprintf("login keys do not match account %s", name))
	}
	return ok, nil
}

// Balances lists every non-empty balance the account holds.
func (s *AccountServiceImpl) Balances(ctx context.Context, nameOrID string) ([]AssetBalance, error) {
	full, err := s.chain.GetFullAccount(ctx, nameOrID)
	if err != nil {
		return nil, err
	}

	out := make([]AssetBalance, 0, len(full.Balances))
	assets := make(map[ops.ObjectID]*client.Asset)
	for _, b := range full.Balances {
		asset, ok := assets[b.AssetType]
		if !ok {
			if asset, err = s.chain.LookupAsset(ctx, b.AssetType.String()); err != nil {
				return nil, err
			}
			assets[b.AssetType] = asset
		}
		out = append(out, AssetBalance{
			AssetID:   asset.ID.String(),
			Symbol:    asset.Symbol,
			Precision: asset.Precision,
			Amount:    int64(b.Balance),
		})
	}
	return out, nil
}

// BalanceOf returns the balance in one asset, zero when the account holds none.
func (s *AccountServiceImpl) BalanceOf(ctx context.Context, nameOrID, symbolOrID string) (AssetBalance, error) {
	if symbolOrID == "" {
		return AssetBalance{}, errors.MissingInput("balance")
	}
	asset, err := s.chain.LookupAsset(ctx, symbolOrID)
	if err != nil {
		return AssetBalance{}, err
	}
	full, err := s.chain.GetFullAccount(ctx, nameOrID)
	if err != nil {
		return AssetBalance{}, err
	}

	out := AssetBalance{AssetID: asset.ID.String(), Symbol: asset.Symbol, Precision: asset.Precision}
	for _, b := range full.Balances {
		if b.AssetType == asset.ID {
			out.Amount = int64(b.Balance)
			break
		}
	}
	return out, nil
}
