// Package chaintest runs an in-process Peerplays node double that speaks the
// database and network_broadcast APIs over JSON-RPC.
package chaintest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/mezonai/ppy/client"
	"github.com/mezonai/ppy/jsonx"
	"github.com/mezonai/ppy/keys"
	"github.com/mezonai/ppy/ops"
)

const (
	ChainID = "6b6b5f0ce7a36d323768e534f3edb41c6d6332a541a95725b98e28d140850134"

	DefaultTransferFee = 2000000
	DefaultProposalFee = 1000000

	errCodeChain = jrpc2.Code(-32000)
)

// Node is a fake chain node. All fields are guarded by mu; use the methods.
type Node struct {
	mu sync.Mutex

	chainID  string
	prefix   string
	head     client.DynamicGlobalProperties
	accounts map[string]*client.FullAccount
	assets   map[string]*client.Asset
	dynamic  map[string]*client.AssetDynamicData
	fees     map[ops.OpType]int64

	broadcasts []*ops.SignedTransaction
	failures   map[string]string
	calls      map[string]int
	nextID     uint64
}

// NewNode seeds the core asset, chain head and default fee schedule.
func NewNode() *Node {
	n := &Node{
		chainID:  ChainID,
		prefix:   keys.DefaultPrefix,
		accounts: make(map[string]*client.FullAccount),
		assets:   make(map[string]*client.Asset),
		dynamic:  make(map[string]*client.AssetDynamicData),
		fees: map[ops.OpType]int64{
			ops.TransferOpType:       DefaultTransferFee,
			ops.ProposalCreateOpType: DefaultProposalFee,
		},
		failures: make(map[string]string),
		calls:    make(map[string]int),
		nextID:   16,
		head: client.DynamicGlobalProperties{
			ID:              ops.DynamicGlobalPropsID,
			HeadBlockNumber: 0x00123456,
			HeadBlockID:     "00123456efbeadde0102030405060708090a0b0c",
			Time:            ops.NewTime(time.Now()),
		},
	}
	n.AddAsset(client.Asset{
		ID:        ops.CoreAssetID,
		Symbol:    "TEST",
		Precision: 5,
		Options: client.AssetOptions{CoreExchangeRate: client.Price{
			Base:  ops.AssetAmount{Amount: 1, AssetID: ops.CoreAssetID},
			Quote: ops.AssetAmount{Amount: 1, AssetID: ops.CoreAssetID},
		}},
	}, nil)
	return n
}

// Start serves the node over HTTP until the test ends.
func (n *Node) Start(t testing.TB) *httptest.Server {
	t.Helper()
	bridge := jhttp.NewBridge(n.methods(), nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bridge.ServeHTTP(w, r)
	}))
	t.Cleanup(func() {
		srv.Close()
		bridge.Close()
	})
	return srv
}

// NewClient starts the node and returns a client bound to it.
func (n *Node) NewClient(t testing.TB) *client.ChainClient {
	t.Helper()
	srv := n.Start(t)
	cli, err := client.NewClient(client.Config{Endpoint: srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("chaintest: new client: %v", err)
	}
	t.Cleanup(func() { _ = cli.Close() })
	return cli
}

// AddAccount registers name with login keys derived from password and
// returns the account id.
func (n *Node) AddAccount(name, password string) ops.ObjectID {
	generated := keys.GenerateKeys(name, password, nil, n.prefix)
	return n.AddAccountWithKeys(name, generated.PubKeys[keys.RoleOwner], generated.PubKeys[keys.RoleActive], generated.PubKeys[keys.RoleMemo])
}

// AddAccountWithKeys registers an account with explicit public keys.
func (n *Node) AddAccountWithKeys(name, owner, active, memo string) ops.ObjectID {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := ops.ObjectID{Space: 1, Type: 2, Instance: n.nextID}
	n.nextID++
	full := &client.FullAccount{
		Account: client.Account{
			ID:      id,
			Name:    name,
			Owner:   client.Authority{WeightThreshold: 1, KeyAuths: []client.KeyAuth{{Key: owner, Weight: 1}}},
			Active:  client.Authority{WeightThreshold: 1, KeyAuths: []client.KeyAuth{{Key: active, Weight: 1}}},
			Options: client.AccountOptions{MemoKey: memo},
		},
	}
	n.accounts[name] = full
	n.accounts[id.String()] = full
	return id
}

// SetBalance sets the balance of account (name or id) in assetID.
func (n *Node) SetBalance(account string, assetID ops.ObjectID, amount int64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	full, ok := n.accounts[account]
	if !ok {
		return
	}
	for i := range full.Balances {
		if full.Balances[i].AssetType == assetID {
			full.Balances[i].Balance = ops.Int64(amount)
			return
		}
	}
	full.Balances = append(full.Balances, client.Balance{
		ID:        ops.ObjectID{Space: 2, Type: 5, Instance: uint64(len(full.Balances))},
		Owner:     full.Account.ID,
		AssetType: assetID,
		Balance:   ops.Int64(amount),
	})
}

// AddAsset registers an asset. A nil feePool leaves its dynamic data object
// absent.
func (n *Node) AddAsset(asset client.Asset, feePool *int64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	dynID := asset.ID.AssetDynamicDataID()
	asset.DynamicAssetDataID = dynID
	n.assets[asset.ID.String()] = &asset
	n.assets[asset.Symbol] = &asset
	if feePool != nil {
		n.dynamic[dynID.String()] = &client.AssetDynamicData{ID: dynID, FeePool: ops.Int64(*feePool)}
	}
}

// SetFee sets the core-asset fee of an operation type.
func (n *Node) SetFee(opType ops.OpType, amount int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fees[opType] = amount
}

// SetHead replaces the chain head reference data.
func (n *Node) SetHead(number uint32, blockID string, at time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.head.HeadBlockNumber = number
	n.head.HeadBlockID = blockID
	n.head.Time = ops.NewTime(at)
}

// FailMethod makes every call to method return a chain error with msg.
// An empty msg clears the failure.
func (n *Node) FailMethod(method, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if msg == "" {
		delete(n.failures, method)
		return
	}
	n.failures[method] = msg
}

// Calls returns how many times method was invoked.
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

// Broadcasts returns the transactions accepted so far.
func (n *Node) Broadcasts() []*ops.SignedTransaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*ops.SignedTransaction(nil), n.broadcasts...)
}

func (n *Node) methods() handler.Map {
	return handler.Map{
		"call": handler.New(func(ctx context.Context, params []json.RawMessage) (any, error) {
			if len(params) != 3 {
				return nil, jrpc2.Errorf(jrpc2.InvalidParams, "expected [api, method, params]")
			}
			var api, method string
			if err := jsonx.Unmarshal(params[0], &api); err != nil {
				return nil, jrpc2.Errorf(jrpc2.InvalidParams, "api: %v", err)
			}
			if err := jsonx.Unmarshal(params[1], &method); err != nil {
				return nil, jrpc2.Errorf(jrpc2.InvalidParams, "method: %v", err)
			}
			var args []json.RawMessage
			if err := jsonx.Unmarshal(params[2], &args); err != nil {
				return nil, jrpc2.Errorf(jrpc2.InvalidParams, "params: %v", err)
			}
			return n.dispatch(api, method, args)
		}),
	}
}

func (n *Node) dispatch(api, method string, args []json.RawMessage) (any, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls[method]++
	if msg, ok := n.failures[method]; ok {
		return nil, jrpc2.Errorf(errCodeChain, "%s", msg)
	}

	switch api + "." + method {
	case "database.get_chain_id":
		return n.chainID, nil
	case "database.get_objects":
		return n.getObjects(args)
	case "database.get_full_accounts":
		return n.getFullAccounts(args)
	case "database.lookup_asset_symbols":
		return n.lookupAssets(args)
	case "database.get_required_fees":
		return n.requiredFees(args)
	case "network_broadcast.broadcast_transaction_with_callback":
		return n.broadcast(args)
	default:
		return nil, jrpc2.Errorf(jrpc2.MethodNotFound, "unknown method %s.%s", api, method)
	}
}

func (n *Node) getObjects(args []json.RawMessage) (any, error) {
	var ids []string
	if len(args) < 1 || jsonx.Unmarshal(args[0], &ids) != nil {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "get_objects expects [ids]")
	}
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		switch {
		case id == ops.DynamicGlobalPropsID.String():
			out = append(out, n.head)
		case id == ops.GlobalPropertiesID.String():
			out = append(out, n.globalProperties())
		case ops.IsAssetDynamicDataID(id):
			if d, ok := n.dynamic[id]; ok {
				out = append(out, d)
			} else {
				out = append(out, nil)
			}
		case ops.IsAssetID(id):
			if a, ok := n.assets[id]; ok {
				out = append(out, a)
			} else {
				out = append(out, nil)
			}
		case ops.IsAccountID(id):
			if a, ok := n.accounts[id]; ok {
				out = append(out, a.Account)
			} else {
				out = append(out, nil)
			}
		default:
			out = append(out, nil)
		}
	}
	return out, nil
}

func (n *Node) globalProperties() client.GlobalProperties {
	params := make([]jsonx.RawMessage, 0, len(n.fees))
	for _, opType := range []ops.OpType{ops.TransferOpType, ops.ProposalCreateOpType} {
		raw, _ := jsonx.Marshal([]any{uint64(opType), map[string]int64{"fee": n.fees[opType], "price_per_kbyte": 0}})
		params = append(params, raw)
	}
	return client.GlobalProperties{
		ID: ops.GlobalPropertiesID,
		Parameters: client.ChainParameters{
			CurrentFees: client.FeeSchedule{Parameters: params, Scale: 10000},
		},
	}
}

func (n *Node) getFullAccounts(args []json.RawMessage) (any, error) {
	var names []string
	if len(args) < 1 || jsonx.Unmarshal(args[0], &names) != nil {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "get_full_accounts expects [names, subscribe]")
	}
	out := make([]any, 0, len(names))
	for _, name := range names {
		if full, ok := n.accounts[name]; ok {
			balances := full.Balances
			if balances == nil {
				balances = []client.Balance{}
			}
			out = append(out, []any{name, client.FullAccount{Account: full.Account, Balances: balances}})
		}
	}
	return out, nil
}

func (n *Node) lookupAssets(args []json.RawMessage) (any, error) {
	var symbols []string
	if len(args) < 1 || jsonx.Unmarshal(args[0], &symbols) != nil {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "lookup_asset_symbols expects [symbols]")
	}
	out := make([]any, 0, len(symbols))
	for _, s := range symbols {
		if a, ok := n.assets[s]; ok {
			out = append(out, a)
		} else {
			out = append(out, nil)
		}
	}
	return out, nil
}

func (n *Node) requiredFees(args []json.RawMessage) (any, error) {
	if len(args) != 2 {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "get_required_fees expects [ops, asset_id]")
	}
	var operations ops.Operations
	if err := jsonx.Unmarshal(args[0], &operations); err != nil {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "ops: %v", err)
	}
	var assetID string
	if err := jsonx.Unmarshal(args[1], &assetID); err != nil {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "asset_id: %v", err)
	}
	asset, ok := n.assets[assetID]
	if !ok {
		return nil, jrpc2.Errorf(errCodeChain, "Assert Exception: asset %s not found", assetID)
	}

	out := make([]any, 0, len(operations))
	for _, op := range operations {
		out = append(out, n.feeFor(op, asset))
	}
	return out, nil
}

// feeFor mirrors the node: a proposal reports [own fee, [proposed fees]].
func (n *Node) feeFor(op ops.Operation, asset *client.Asset) any {
	own := ops.AssetAmount{Amount: ops.Int64(n.convert(n.fees[op.Type()], asset)), AssetID: asset.ID}
	parent, ok := op.(ops.Parent)
	if !ok {
		return own
	}
	inner := make([]any, 0, len(parent.Children()))
	for _, child := range parent.Children() {
		inner = append(inner, n.feeFor(child, asset))
	}
	return []any{own, inner}
}

// convert prices a core fee in asset using its core exchange rate, rounding up.
func (n *Node) convert(coreFee int64, asset *client.Asset) int64 {
	if asset.ID == ops.CoreAssetID {
		return coreFee
	}
	rate := asset.Options.CoreExchangeRate
	assetSide, coreSide := rate.Base, rate.Quote
	if assetSide.AssetID == ops.CoreAssetID {
		assetSide, coreSide = rate.Quote, rate.Base
	}
	if coreSide.Amount == 0 {
		return coreFee
	}
	num := new(big.Int).Mul(big.NewInt(coreFee), big.NewInt(int64(assetSide.Amount)))
	den := big.NewInt(int64(coreSide.Amount))
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q.Int64()
}

func (n *Node) broadcast(args []json.RawMessage) (any, error) {
	if len(args) != 2 {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "broadcast_transaction_with_callback expects [cb, trx]")
	}
	tx := &ops.SignedTransaction{}
	if err := jsonx.Unmarshal(args[1], tx); err != nil {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "trx: %v", err)
	}
	if err := n.verifyAuthority(tx); err != nil {
		return nil, jrpc2.Errorf(errCodeChain, "%s", err.Error())
	}
	n.broadcasts = append(n.broadcasts, tx)
	return nil, nil
}

// verifyAuthority checks that a signature recovers to an active key of the
// account paying the first operation's fee.
func (n *Node) verifyAuthority(tx *ops.SignedTransaction) error {
	if len(tx.Operations) == 0 {
		return fmt.Errorf("trx.operations.size() > 0: A transaction must have at least one operation")
	}
	if tx.Expiration.Before(n.head.Time.Time) {
		return fmt.Errorf("trx.expiration > now: transaction expired")
	}

	var payer ops.ObjectID
	switch op := tx.Operations[0].(type) {
	case *ops.TransferOperation:
		payer = op.From
	case *ops.ProposalCreateOperation:
		payer = op.FeePayingAccount
	}
	full, ok := n.accounts[payer.String()]
	if !ok {
		return fmt.Errorf("unknown fee paying account %s", payer)
	}

	buf, err := tx.Serialize(n.prefix)
	if err != nil {
		return err
	}
	digest, err := ops.SigningDigest(n.chainID, buf)
	if err != nil {
		return err
	}
	for _, sig := range tx.Signatures {
		if !keys.IsCanonical(sig) {
			return fmt.Errorf("signature is not canonical")
		}
		pub, err := keys.RecoverPublicKey(sig, digest)
		if err != nil {
			continue
		}
		signer := pub.String(n.prefix)
		for _, ka := range full.Account.Active.KeyAuths {
			if ka.Key == signer {
				return nil
			}
		}
	}
	return fmt.Errorf("Missing Active Authority %s", payer)
}
