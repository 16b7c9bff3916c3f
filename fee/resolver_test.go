package fee_test

import (
	"context"
	"testing"

	"github.com/mezonai/ppy/client"
	"github.com/mezonai/ppy/client/chaintest"
	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/fee"
	"github.com/mezonai/ppy/jsonx"
	"github.com/mezonai/ppy/ops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var btfID = ops.MustObjectID("1.3.1")

func addBTF(node *chaintest.Node, pool *int64) {
	// 2 BTF buys 1 core
	node.AddAsset(client.Asset{
		ID:        btfID,
		Symbol:    "BTF",
		Precision: 5,
		Options: client.AssetOptions{CoreExchangeRate: client.Price{
			Base:  ops.AssetAmount{Amount: 2, AssetID: btfID},
			Quote: ops.AssetAmount{Amount: 1, AssetID: ops.CoreAssetID},
		}},
	}, pool)
}

func transfer(feeAsset ops.ObjectID) *ops.TransferOperation {
	return &ops.TransferOperation{
		Fee:    ops.AssetAmount{AssetID: feeAsset},
		From:   ops.MustObjectID("1.2.16"),
		To:     ops.MustObjectID("1.2.17"),
		Amount: ops.AssetAmount{Amount: 10000, AssetID: ops.CoreAssetID},
	}
}

func TestSetRequiredFees_Core(t *testing.T) {
	node := chaintest.NewNode()
	resolver := fee.NewResolver(node.NewClient(t))

	op := transfer(ops.ObjectID{})
	asset, err := resolver.SetRequiredFees(context.Background(), []ops.Operation{op}, ops.ObjectID{})
	require.NoError(t, err)
	assert.Equal(t, ops.CoreAssetID, asset)
	assert.Equal(t, ops.AssetAmount{Amount: chaintest.DefaultTransferFee, AssetID: ops.CoreAssetID}, op.Fee)
	assert.Greater(t, int64(op.Fee.Amount), int64(0))
}

func TestSetRequiredFees_DefaultsToFirstOperationAsset(t *testing.T) {
	node := chaintest.NewNode()
	pool := int64(1_000_000_000)
	addBTF(node, &pool)
	resolver := fee.NewResolver(node.NewClient(t))

	op := transfer(btfID)
	asset, err := resolver.SetRequiredFees(context.Background(), []ops.Operation{op}, ops.ObjectID{})
	require.NoError(t, err)
	assert.Equal(t, btfID, asset)
	assert.Equal(t, ops.AssetAmount{Amount: 2 * chaintest.DefaultTransferFee, AssetID: btfID}, op.Fee)
}

func TestSetRequiredFees_FeePoolFallback(t *testing.T) {
	tests := []struct {
		name      string
		pool      *int64
		wantAsset ops.ObjectID
	}{
		{name: "missing pool object", pool: nil, wantAsset: ops.CoreAssetID},
		{name: "pool too small", pool: ptr(chaintest.DefaultTransferFee - 1), wantAsset: ops.CoreAssetID},
		{name: "pool exactly covers", pool: ptr(chaintest.DefaultTransferFee), wantAsset: btfID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := chaintest.NewNode()
			addBTF(node, tt.pool)
			resolver := fee.NewResolver(node.NewClient(t))

			op := transfer(ops.ObjectID{})
			asset, err := resolver.SetRequiredFees(context.Background(), []ops.Operation{op}, btfID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAsset, asset)
			assert.Equal(t, tt.wantAsset, op.Fee.AssetID)
			assert.Equal(t, 2, node.Calls("get_required_fees"))
		})
	}
}

func TestSetRequiredFees_NestedProposal(t *testing.T) {
	node := chaintest.NewNode()
	resolver := fee.NewResolver(node.NewClient(t))

	inner := transfer(ops.ObjectID{})
	proposal := &ops.ProposalCreateOperation{
		FeePayingAccount: ops.MustObjectID("1.2.16"),
		ProposedOps:      []ops.Operation{inner},
	}

	_, err := resolver.SetRequiredFees(context.Background(), []ops.Operation{proposal}, ops.CoreAssetID)
	require.NoError(t, err)
	assert.Equal(t, ops.Int64(chaintest.DefaultProposalFee), proposal.Fee.Amount)
	assert.Equal(t, ops.Int64(chaintest.DefaultTransferFee), inner.Fee.Amount)
}

func TestSetRequiredFees_NoOperations(t *testing.T) {
	resolver := fee.NewResolver(chaintest.NewNode().NewClient(t))
	_, err := resolver.SetRequiredFees(context.Background(), nil, ops.CoreAssetID)
	assert.ErrorIs(t, err, errors.ErrInvalidState)
}

func TestSetRequiredFees_RPCFailure(t *testing.T) {
	node := chaintest.NewNode()
	node.FailMethod("get_required_fees", "database unavailable")
	resolver := fee.NewResolver(node.NewClient(t))

	_, err := resolver.SetRequiredFees(context.Background(), []ops.Operation{transfer(ops.ObjectID{})}, ops.CoreAssetID)
	assert.ErrorIs(t, err, errors.ErrRPCFailure)
}

func TestFlatten_DepthFirst(t *testing.T) {
	raws := []jsonx.RawMessage{
		jsonx.RawMessage(`[{"amount":1,"asset_id":"1.3.0"},[{"amount":2,"asset_id":"1.3.0"},[{"amount":3,"asset_id":"1.3.0"}]]]`),
		jsonx.RawMessage(`{"amount":4,"asset_id":"1.3.0"}`),
	}
	flat, err := fee.Flatten(raws)
	require.NoError(t, err)
	require.Len(t, flat, 4)
	for i, f := range flat {
		assert.Equal(t, ops.Int64(i+1), f.Amount)
	}

	_, err = fee.Flatten([]jsonx.RawMessage{jsonx.RawMessage(`"bogus"`)})
	assert.Error(t, err)
}

func TestAssign_SkipsNonZeroFees(t *testing.T) {
	preset := transfer(ops.CoreAssetID)
	preset.Fee.Amount = 77
	inner := transfer(ops.ObjectID{})
	proposal := &ops.ProposalCreateOperation{ProposedOps: []ops.Operation{preset, inner}}

	fees := []ops.AssetAmount{
		{Amount: 10, AssetID: ops.CoreAssetID},
		{Amount: 20, AssetID: ops.CoreAssetID},
		{Amount: 30, AssetID: ops.CoreAssetID},
	}
	require.NoError(t, fee.Assign([]ops.Operation{proposal}, fees))
	assert.Equal(t, ops.Int64(10), proposal.Fee.Amount)
	assert.Equal(t, ops.Int64(77), preset.Fee.Amount)
	assert.Equal(t, ops.Int64(30), inner.Fee.Amount)

	assert.Error(t, fee.Assign([]ops.Operation{transfer(ops.ObjectID{}), transfer(ops.ObjectID{})}, fees[:1]))
}

func TestFeeFor(t *testing.T) {
	node := chaintest.NewNode()
	node.SetFee(ops.TransferOpType, 42)
	resolver := fee.NewResolver(node.NewClient(t))

	params, err := resolver.FeeFor(context.Background(), ops.TransferOpType)
	require.NoError(t, err)
	assert.Equal(t, ops.Int64(42), params["fee"])

	_, err = resolver.FeeFor(context.Background(), ops.OpType(5))
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func ptr(v int64) *int64 { return &v }
