package fee

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mezonai/ppy/client"
	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/jsonx"
	"github.com/mezonai/ppy/logx"
	"github.com/mezonai/ppy/monitoring"
	"github.com/mezonai/ppy/ops"
)

// Resolver fills operation fees from the node's fee schedule.
type Resolver struct {
	chain client.ChainAPI
}

func NewResolver(chain client.ChainAPI) *Resolver {
	return &Resolver{chain: chain}
}

// SetRequiredFees prices operations in assetID and assigns one fee per
// operation depth-first, leaving non-zero fees untouched. A zero assetID
// means the first operation's fee asset. Non-core fees fall back to core
// when the asset's fee pool cannot cover them. It returns the asset the
// fees ended up in.
func (r *Resolver) SetRequiredFees(ctx context.Context, operations []ops.Operation, assetID ops.ObjectID) (ops.ObjectID, error) {
	if len(operations) == 0 {
		return ops.ObjectID{}, errors.InvalidState(errors.ErrMsgNoOperations)
	}
	if assetID.IsZero() {
		assetID = operations[0].GetFee().AssetID
	}
	if assetID.IsZero() {
		assetID = ops.CoreAssetID
	}

	fees, err := r.chain.GetRequiredFees(ctx, operations, assetID)
	if err != nil {
		return ops.ObjectID{}, err
	}

	if assetID != ops.CoreAssetID {
		fees, assetID, err = r.fallbackToCore(ctx, operations, assetID, fees)
		if err != nil {
			return ops.ObjectID{}, err
		}
	}

	flat, err := Flatten(fees)
	if err != nil {
		return ops.ObjectID{}, err
	}
	if err := Assign(operations, flat); err != nil {
		return ops.ObjectID{}, err
	}
	return assetID, nil
}

func (r *Resolver) fallbackToCore(ctx context.Context, operations []ops.Operation, assetID ops.ObjectID, fees []jsonx.RawMessage) ([]jsonx.RawMessage, ops.ObjectID, error) {
	coreFees, err := r.chain.GetRequiredFees(ctx, operations, ops.CoreAssetID)
	if err != nil {
		return nil, assetID, err
	}

	var pool int64
	dynamic, err := r.chain.GetAssetDynamicData(ctx, assetID)
	switch {
	case err == nil:
		pool = int64(dynamic.FeePool)
	case errors.CodeOf(err) == errors.ErrCodeNotFound:
		pool = 0
	default:
		return nil, assetID, err
	}

	flatCore, err := Flatten(coreFees)
	if err != nil {
		return nil, assetID, err
	}
	var total int64
	for _, f := range flatCore {
		total += int64(f.Amount)
	}

	if total > pool {
		logx.Warn("FEE", fmt.Sprintf("fee pool of %s (%d) cannot cover %d core, paying fees in %s", assetID, pool, total, ops.CoreAssetID))
		monitoring.IncreaseFeeFallback()
		return coreFees, ops.CoreAssetID, nil
	}
	return fees, assetID, nil
}

// FeeFor returns the fee parameters of opType from the global fee schedule.
func (r *Resolver) FeeFor(ctx context.Context, opType ops.OpType) (client.FeeParameters, error) {
	props, err := r.chain.GetGlobalProperties(ctx)
	if err != nil {
		return nil, err
	}
	params, ok := props.Parameters.CurrentFees.For(opType)
	if !ok {
		return nil, errors.NotFound("fee parameters", opType.String())
	}
	return params, nil
}

// Flatten turns the node's nested fee arrays into a depth-first list.
func Flatten(fees []jsonx.RawMessage) ([]ops.AssetAmount, error) {
	var out []ops.AssetAmount
	for _, raw := range fees {
		if err := flattenInto(raw, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func flattenInto(raw jsonx.RawMessage, out *[]ops.AssetAmount) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var nested []jsonx.RawMessage
		if err := jsonx.Unmarshal(trimmed, &nested); err != nil {
			return errors.Wrap(errors.ErrCodeRPCFailure, err, "decode nested fees")
		}
		for _, n := range nested {
			if err := flattenInto(n, out); err != nil {
				return err
			}
		}
		return nil
	}

	var amount ops.AssetAmount
	if err := jsonx.Unmarshal(trimmed, &amount); err != nil {
		return errors.Wrap(errors.ErrCodeRPCFailure, err, "decode fee")
	}
	*out = append(*out, amount)
	return nil
}

// Assign gives the i-th operation of a depth-first walk the i-th fee unless
// its fee is already non-zero.
func Assign(operations []ops.Operation, fees []ops.AssetAmount) error {
	i := 0
	var err error
	ops.Walk(operations, func(op ops.Operation) {
		if err != nil {
			return
		}
		if i >= len(fees) {
			err = errors.NewError(errors.ErrCodeRPCFailure, fmt.Sprintf("node returned %d fees for more operations", len(fees)))
			return
		}
		if op.GetFee().Amount == 0 {
			op.SetFee(fees[i])
		}
		i++
	})
	return err
}
