package client

import (
	"fmt"

	"github.com/mezonai/ppy/jsonx"
	"github.com/mezonai/ppy/keys"
	"github.com/mezonai/ppy/ops"
)

// Chain API names accepted by the "call" method.
const (
	DatabaseAPI         = "database"
	NetworkBroadcastAPI = "network_broadcast"
)

// KeyAuth is encoded by the node as a ["PPY...", weight] pair.
type KeyAuth struct {
	Key    string
	Weight uint16
}

func (k KeyAuth) MarshalJSON() ([]byte, error) {
	return jsonx.Marshal([]any{k.Key, k.Weight})
}

func (k *KeyAuth) UnmarshalJSON(b []byte) error {
	var pair []jsonx.RawMessage
	if err := jsonx.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("key auth: expected [key, weight], got %s", b)
	}
	if err := jsonx.Unmarshal(pair[0], &k.Key); err != nil {
		return err
	}
	return jsonx.Unmarshal(pair[1], &k.Weight)
}

type Authority struct {
	WeightThreshold uint32             `json:"weight_threshold"`
	AccountAuths    []jsonx.RawMessage `json:"account_auths"`
	KeyAuths        []KeyAuth          `json:"key_auths"`
	AddressAuths    []jsonx.RawMessage `json:"address_auths"`
}

// Keys converts the key authorities for login checks.
func (a Authority) Keys() []keys.KeyAuth {
	out := make([]keys.KeyAuth, 0, len(a.KeyAuths))
	for _, ka := range a.KeyAuths {
		out = append(out, keys.KeyAuth{Key: ka.Key, Weight: ka.Weight})
	}
	return out
}

type AccountOptions struct {
	MemoKey string `json:"memo_key"`
}

type Account struct {
	ID      ops.ObjectID   `json:"id"`
	Name    string         `json:"name"`
	Owner   Authority      `json:"owner"`
	Active  Authority      `json:"active"`
	Options AccountOptions `json:"options"`
}

// Balance is an account_balance_object.
type Balance struct {
	ID        ops.ObjectID `json:"id"`
	Owner     ops.ObjectID `json:"owner"`
	AssetType ops.ObjectID `json:"asset_type"`
	Balance   ops.Int64    `json:"balance"`
}

// FullAccount is one entry of get_full_accounts.
type FullAccount struct {
	Account  Account   `json:"account"`
	Balances []Balance `json:"balances"`
}

type Price struct {
	Base  ops.AssetAmount `json:"base"`
	Quote ops.AssetAmount `json:"quote"`
}

type AssetOptions struct {
	MaxSupply        ops.Int64 `json:"max_supply"`
	CoreExchangeRate Price     `json:"core_exchange_rate"`
}

type Asset struct {
	ID                 ops.ObjectID `json:"id"`
	Symbol             string       `json:"symbol"`
	Precision          uint8        `json:"precision"`
	Issuer             ops.ObjectID `json:"issuer"`
	DynamicAssetDataID ops.ObjectID `json:"dynamic_asset_data_id"`
	Options            AssetOptions `json:"options"`
}

// HasFaultyExchangeRate reports a core exchange rate quoted core against
// core, which the chain cannot use to convert fees.
func (a *Asset) HasFaultyExchangeRate() bool {
	rate := a.Options.CoreExchangeRate
	return rate.Base.AssetID == ops.CoreAssetID && rate.Quote.AssetID == ops.CoreAssetID
}

// AssetDynamicData is the 2.3.N object holding supply and fee pool.
type AssetDynamicData struct {
	ID                 ops.ObjectID `json:"id"`
	CurrentSupply      ops.Int64    `json:"current_supply"`
	AccumulatedFees    ops.Int64    `json:"accumulated_fees"`
	FeePool            ops.Int64    `json:"fee_pool"`
	ConfidentialSupply ops.Int64    `json:"confidential_supply"`
}

// DynamicGlobalProperties is object 2.1.0, the chain head.
type DynamicGlobalProperties struct {
	ID              ops.ObjectID `json:"id"`
	HeadBlockNumber uint32       `json:"head_block_number"`
	HeadBlockID     string       `json:"head_block_id"`
	Time            ops.Time     `json:"time"`
}

// FeeParameters are the named fee fields of one operation type.
type FeeParameters map[string]ops.Int64

type FeeSchedule struct {
	Parameters []jsonx.RawMessage `json:"parameters"`
	Scale      uint32             `json:"scale"`
}

// For returns the fee parameters the schedule lists for opType.
func (s FeeSchedule) For(opType ops.OpType) (FeeParameters, bool) {
	for _, raw := range s.Parameters {
		var pair []jsonx.RawMessage
		if err := jsonx.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
			continue
		}
		var typ ops.OpType
		if err := jsonx.Unmarshal(pair[0], &typ); err != nil || typ != opType {
			continue
		}
		params := FeeParameters{}
		if err := jsonx.Unmarshal(pair[1], &params); err != nil {
			return nil, false
		}
		return params, true
	}
	return nil, false
}

type ChainParameters struct {
	CurrentFees FeeSchedule `json:"current_fees"`
}

// GlobalProperties is object 2.0.0.
type GlobalProperties struct {
	ID         ops.ObjectID    `json:"id"`
	Parameters ChainParameters `json:"parameters"`
}
