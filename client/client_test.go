package client_test

import (
	"context"
	"testing"

	"github.com/mezonai/ppy/client"
	"github.com/mezonai/ppy/client/chaintest"
	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/jsonx"
	"github.com/mezonai/ppy/ops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := client.NewClient(client.Config{})
	assert.ErrorIs(t, err, errors.ErrMissingInput)
}

func TestChainClient_Lookups(t *testing.T) {
	node := chaintest.NewNode()
	id := node.AddAccount("init0", "password")
	node.SetBalance("init0", ops.CoreAssetID, 123456)
	cli := node.NewClient(t)
	ctx := context.Background()

	chainID, err := cli.GetChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, chaintest.ChainID, chainID)
	require.NoError(t, cli.Ping(ctx))

	full, err := cli.GetFullAccount(ctx, "init0")
	require.NoError(t, err)
	assert.Equal(t, id, full.Account.ID)
	assert.Equal(t, "init0", full.Account.Name)
	require.Len(t, full.Balances, 1)
	assert.Equal(t, ops.Int64(123456), full.Balances[0].Balance)
	require.Len(t, full.Account.Active.KeyAuths, 1)
	assert.Equal(t, "PPY5aGWP47o2w1aS8NHTnagVxzcGhgXPWiYBzEkdkSYRYv76vMwmj", full.Account.Active.KeyAuths[0].Key)

	byID, err := cli.GetAccount(ctx, id.String())
	require.NoError(t, err)
	assert.Equal(t, "init0", byID.Name)

	asset, err := cli.LookupAsset(ctx, "1.3.0")
	require.NoError(t, err)
	assert.Equal(t, uint8(5), asset.Precision)
	assert.True(t, asset.HasFaultyExchangeRate())

	head, err := cli.GetDynamicGlobalProperties(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00123456), head.HeadBlockNumber)

	props, err := cli.GetGlobalProperties(ctx)
	require.NoError(t, err)
	params, ok := props.Parameters.CurrentFees.For(ops.TransferOpType)
	require.True(t, ok)
	assert.Equal(t, ops.Int64(chaintest.DefaultTransferFee), params["fee"])
}

func TestChainClient_NotFound(t *testing.T) {
	node := chaintest.NewNode()
	cli := node.NewClient(t)
	ctx := context.Background()

	_, err := cli.GetFullAccount(ctx, "nobody")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = cli.LookupAsset(ctx, "NOPE")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = cli.GetAssetDynamicData(ctx, ops.MustObjectID("1.3.9"))
	assert.ErrorIs(t, err, errors.ErrNotFound)

	objs, err := cli.GetObjects(ctx, []string{"1.2.999"})
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.True(t, jsonx.IsNull(objs[0]))
}

func TestChainClient_MissingInputBeforeIO(t *testing.T) {
	node := chaintest.NewNode()
	cli := node.NewClient(t)
	ctx := context.Background()

	_, err := cli.GetFullAccount(ctx, "")
	assert.ErrorIs(t, err, errors.ErrMissingInput)
	_, err = cli.LookupAsset(ctx, "")
	assert.ErrorIs(t, err, errors.ErrMissingInput)
	_, err = cli.GetRequiredFees(ctx, nil, ops.CoreAssetID)
	assert.ErrorIs(t, err, errors.ErrMissingInput)
	assert.ErrorIs(t, cli.Broadcast(ctx, 1, nil), errors.ErrMissingInput)

	assert.Zero(t, node.Calls("get_full_accounts"))
	assert.Zero(t, node.Calls("get_required_fees"))
}

func TestChainClient_RPCFailure(t *testing.T) {
	node := chaintest.NewNode()
	node.FailMethod("get_chain_id", "node is syncing")
	cli := node.NewClient(t)

	_, err := cli.GetChainID(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrRPCFailure)
	assert.Contains(t, err.Error(), "node is syncing")
}

func TestChainClient_RequiredFees(t *testing.T) {
	node := chaintest.NewNode()
	cli := node.NewClient(t)

	transfer := &ops.TransferOperation{
		From:   ops.MustObjectID("1.2.16"),
		To:     ops.MustObjectID("1.2.17"),
		Amount: ops.AssetAmount{Amount: 1, AssetID: ops.CoreAssetID},
	}
	proposal := &ops.ProposalCreateOperation{
		FeePayingAccount: ops.MustObjectID("1.2.16"),
		ProposedOps:      []ops.Operation{transfer},
	}

	fees, err := cli.GetRequiredFees(context.Background(), []ops.Operation{proposal}, ops.CoreAssetID)
	require.NoError(t, err)
	require.Len(t, fees, 1)
	assert.JSONEq(t,
		`[{"amount":1000000,"asset_id":"1.3.0"},[{"amount":2000000,"asset_id":"1.3.0"}]]`,
		string(fees[0]))
}

func TestKeyAuthJSON(t *testing.T) {
	var auth client.Authority
	require.NoError(t, jsonx.Unmarshal([]byte(`{"weight_threshold":1,"account_auths":[],"key_auths":[["PPYabc",1]],"address_auths":[]}`), &auth))
	require.Len(t, auth.KeyAuths, 1)
	assert.Equal(t, "PPYabc", auth.KeyAuths[0].Key)
	assert.Equal(t, uint16(1), auth.Keys()[0].Weight)

	raw, err := jsonx.Marshal(auth.KeyAuths[0])
	require.NoError(t, err)
	assert.Equal(t, `["PPYabc",1]`, string(raw))
}
