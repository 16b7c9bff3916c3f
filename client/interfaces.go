package client

import (
	"context"

	"github.com/mezonai/ppy/jsonx"
	"github.com/mezonai/ppy/ops"
)

// ChainAPI is the node surface the plugin depends on.
type ChainAPI interface {
	GetRequiredFees(ctx context.Context, operations []ops.Operation, assetID ops.ObjectID) ([]jsonx.RawMessage, error)
	GetObjects(ctx context.Context, ids []string) ([]jsonx.RawMessage, error)
	GetObject(ctx context.Context, id string, out any) error
	GetFullAccount(ctx context.Context, nameOrID string) (*FullAccount, error)
	GetAccount(ctx context.Context, nameOrID string) (*Account, error)
	LookupAsset(ctx context.Context, symbolOrID string) (*Asset, error)
	GetChainID(ctx context.Context) (string, error)
	GetDynamicGlobalProperties(ctx context.Context) (*DynamicGlobalProperties, error)
	GetGlobalProperties(ctx context.Context) (*GlobalProperties, error)
	GetAssetDynamicData(ctx context.Context, assetID ops.ObjectID) (*AssetDynamicData, error)
	Broadcast(ctx context.Context, callbackID uint64, tx *ops.SignedTransaction) error
	Ping(ctx context.Context) error
}

var _ ChainAPI = (*ChainClient)(nil)
