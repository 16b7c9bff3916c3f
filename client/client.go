package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/jsonx"
	"github.com/mezonai/ppy/logx"
	"github.com/mezonai/ppy/monitoring"
	"github.com/mezonai/ppy/ops"
)

const defaultTimeout = 30 * time.Second

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// ChainClient talks JSON-RPC over HTTP to a single Peerplays node.
type ChainClient struct {
	cfg Config
	rpc *jrpc2.Client
}

func NewClient(cfg Config) (*ChainClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.MissingInput("chain client endpoint")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	ch := jhttp.NewChannel(cfg.Endpoint, &jhttp.ChannelOptions{
		Client: &http.Client{Timeout: cfg.Timeout},
	})

	return &ChainClient{
		cfg: cfg,
		rpc: jrpc2.NewClient(ch, nil),
	}, nil
}

func (c *ChainClient) Endpoint() string {
	return c.cfg.Endpoint
}

func (c *ChainClient) Close() error {
	return c.rpc.Close()
}

// Call invokes api.method through the node's generic "call" entry point.
func (c *ChainClient) Call(ctx context.Context, api, method string, params []any, out any) error {
	if params == nil {
		params = []any{}
	}

	start := time.Now()
	err := c.rpc.CallResult(ctx, "call", []any{api, method, params}, out)
	monitoring.RecordRPC(method, time.Since(start), err)
	if err != nil {
		logx.Error("CHAIN", fmt.Sprintf("%s.%s failed: %v", api, method, err))
		var rpcErr *jrpc2.Error
		if stderrors.As(err, &rpcErr) {
			return errors.Wrap(errors.ErrCodeRPCFailure, err, fmt.Sprintf("%s: %s", method, rpcErr.Message))
		}
		return errors.Wrap(errors.ErrCodeRPCFailure, err, fmt.Sprintf("%s: %v", method, err))
	}
	logx.Debug("CHAIN", fmt.Sprintf("%s.%s ok in %s", api, method, time.Since(start)))
	return nil
}

// GetRequiredFees returns the node's fee array for operations paid in
// assetID. Entries for proposals nest the fees of their proposed operations.
func (c *ChainClient) GetRequiredFees(ctx context.Context, operations []ops.Operation, assetID ops.ObjectID) ([]jsonx.RawMessage, error) {
	if len(operations) == 0 {
		return nil, errors.MissingInput("get_required_fees")
	}
	var out []jsonx.RawMessage
	if err := c.Call(ctx, DatabaseAPI, "get_required_fees", []any{ops.Operations(operations), assetID.String()}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetObjects fetches objects by id; entries are null for unknown ids.
func (c *ChainClient) GetObjects(ctx context.Context, ids []string) ([]jsonx.RawMessage, error) {
	if len(ids) == 0 {
		return nil, errors.MissingInput("get_objects")
	}
	var out []jsonx.RawMessage
	if err := c.Call(ctx, DatabaseAPI, "get_objects", []any{ids}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetObject fetches a single object into out.
func (c *ChainClient) GetObject(ctx context.Context, id string, out any) error {
	objs, err := c.GetObjects(ctx, []string{id})
	if err != nil {
		return err
	}
	if len(objs) == 0 || jsonx.IsNull(objs[0]) {
		return errors.NotFound("object", id)
	}
	if err := jsonx.Unmarshal(objs[0], out); err != nil {
		return errors.Wrap(errors.ErrCodeRPCFailure, err, fmt.Sprintf("decode object %s", id))
	}
	return nil
}

// GetFullAccount resolves an account by name or id with its balances.
func (c *ChainClient) GetFullAccount(ctx context.Context, nameOrID string) (*FullAccount, error) {
	if nameOrID == "" {
		return nil, errors.MissingInput("get_full_accounts")
	}
	var out [][]jsonx.RawMessage
	if err := c.Call(ctx, DatabaseAPI, "get_full_accounts", []any{[]string{nameOrID}, false}, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 || len(out[0]) != 2 || jsonx.IsNull(out[0][1]) {
		return nil, errors.NotFound("account", nameOrID)
	}
	full := &FullAccount{}
	if err := jsonx.Unmarshal(out[0][1], full); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRPCFailure, err, "decode full account")
	}
	return full, nil
}

func (c *ChainClient) GetAccount(ctx context.Context, nameOrID string) (*Account, error) {
	full, err := c.GetFullAccount(ctx, nameOrID)
	if err != nil {
		return nil, err
	}
	return &full.Account, nil
}

// LookupAsset resolves an asset by symbol or id.
func (c *ChainClient) LookupAsset(ctx context.Context, symbolOrID string) (*Asset, error) {
	if symbolOrID == "" {
		return nil, errors.MissingInput("lookup_asset_symbols")
	}
	var out []jsonx.RawMessage
	if err := c.Call(ctx, DatabaseAPI, "lookup_asset_symbols", []any{[]string{symbolOrID}}, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 || jsonx.IsNull(out[0]) {
		return nil, errors.NotFound("asset", symbolOrID)
	}
	asset := &Asset{}
	if err := jsonx.Unmarshal(out[0], asset); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRPCFailure, err, "decode asset")
	}
	return asset, nil
}

func (c *ChainClient) GetChainID(ctx context.Context) (string, error) {
	var id string
	if err := c.Call(ctx, DatabaseAPI, "get_chain_id", nil, &id); err != nil {
		return "", err
	}
	return id, nil
}

func (c *ChainClient) GetDynamicGlobalProperties(ctx context.Context) (*DynamicGlobalProperties, error) {
	props := &DynamicGlobalProperties{}
	if err := c.GetObject(ctx, ops.DynamicGlobalPropsID.String(), props); err != nil {
		return nil, err
	}
	return props, nil
}

func (c *ChainClient) GetGlobalProperties(ctx context.Context) (*GlobalProperties, error) {
	props := &GlobalProperties{}
	if err := c.GetObject(ctx, ops.GlobalPropertiesID.String(), props); err != nil {
		return nil, err
	}
	return props, nil
}

// GetAssetDynamicData returns the fee pool object of assetID. A missing
// object yields a not_found error.
func (c *ChainClient) GetAssetDynamicData(ctx context.Context, assetID ops.ObjectID) (*AssetDynamicData, error) {
	data := &AssetDynamicData{}
	if err := c.GetObject(ctx, assetID.AssetDynamicDataID().String(), data); err != nil {
		return nil, err
	}
	return data, nil
}

// Broadcast submits a signed transaction with the given callback id.
func (c *ChainClient) Broadcast(ctx context.Context, callbackID uint64, tx *ops.SignedTransaction) error {
	if tx == nil {
		return errors.MissingInput("broadcast_transaction_with_callback")
	}
	var ignored jsonx.RawMessage
	return c.Call(ctx, NetworkBroadcastAPI, "broadcast_transaction_with_callback", []any{callbackID, tx}, &ignored)
}

// Ping succeeds when the node answers get_chain_id.
func (c *ChainClient) Ping(ctx context.Context) error {
	_, err := c.GetChainID(ctx)
	return err
}
