package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/mezonai/ppy/client"
	"github.com/mezonai/ppy/client/chaintest"
	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/keys"
	"github.com/mezonai/ppy/memo"
	"github.com/mezonai/ppy/ops"
	"github.com/mezonai/ppy/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*chaintest.Node, *client.ChainClient) {
	t.Helper()
	node := chaintest.NewNode()
	node.AddAccount("init0", "password")
	node.AddAccount("init1", "secret")
	return node, node.NewClient(t)
}

func transferOf(t *testing.T, op ops.Operation) *ops.TransferOperation {
	t.Helper()
	transfer, ok := op.(*ops.TransferOperation)
	require.True(t, ok, "expected transfer, got %T", op)
	return transfer
}

func TestBuildTransfer_ResolvesFee(t *testing.T) {
	_, cli := setup(t)
	svc := service.NewTransferService(cli, service.TransferConfig{})

	tx, err := svc.BuildTransfer(context.Background(), service.TransferRequest{
		From:    "init0",
		To:      "init1",
		Amount:  10000,
		AssetID: "1.3.0",
	})
	require.NoError(t, err)
	require.Len(t, tx.Operations, 1)

	op := transferOf(t, tx.Operations[0])
	assert.Greater(t, int64(op.Fee.Amount), int64(0))
	assert.Equal(t, ops.CoreAssetID, op.Fee.AssetID)
	assert.Equal(t, "1.2.16", op.From.String())
	assert.Equal(t, "1.2.17", op.To.String())
	assert.Equal(t, int64(10000), int64(op.Amount.Amount))
	assert.Nil(t, op.Memo)
}

func TestBuildTransfer_Memo(t *testing.T) {
	_, cli := setup(t)
	svc := service.NewTransferService(cli, service.TransferConfig{})
	senderMemo := keys.GenerateKeys("init0", "password", nil, keys.DefaultPrefix).PrivKeys[keys.RoleMemo]
	recipientMemo := keys.GenerateKeys("init1", "secret", nil, keys.DefaultPrefix).PrivKeys[keys.RoleMemo]

	req := service.TransferRequest{
		From:    "init0",
		To:      "init1",
		Amount:  10000,
		AssetID: "TEST",
		Memo:    "hello world",
		MemoKey: senderMemo,
	}

	t.Run("plain", func(t *testing.T) {
		tx, err := svc.BuildTransfer(context.Background(), req)
		require.NoError(t, err)
		op := transferOf(t, tx.Operations[0])
		require.NotNil(t, op.Memo)
		assert.Equal(t, []byte("hello world"), []byte(op.Memo.Message))
	})

	t.Run("encrypted", func(t *testing.T) {
		encrypted := req
		encrypted.EncryptMemo = true
		tx, err := svc.BuildTransfer(context.Background(), encrypted)
		require.NoError(t, err)
		op := transferOf(t, tx.Operations[0])
		require.NotNil(t, op.Memo)
		assert.NotEqual(t, []byte("hello world"), []byte(op.Memo.Message))
		assert.Equal(t, recipientMemo.PublicKey().String(keys.DefaultPrefix), op.Memo.To)

		plain, err := memo.Decrypt(recipientMemo, senderMemo.PublicKey(), uint64(op.Memo.Nonce), op.Memo.Message)
		require.NoError(t, err)
		assert.Equal(t, "hello world", string(plain))
	})

	t.Run("encrypted without sender key", func(t *testing.T) {
		encrypted := req
		encrypted.EncryptMemo = true
		encrypted.MemoKey = nil
		_, err := svc.BuildTransfer(context.Background(), encrypted)
		assert.ErrorIs(t, err, errors.ErrMissingInput)
	})
}

func TestBuildTransfer_NullMemoKeyFallsBackToActive(t *testing.T) {
	node, cli := setup(t)
	generated := keys.GenerateKeys("nomemo", "pw", nil, keys.DefaultPrefix)
	node.AddAccountWithKeys("nomemo", generated.PubKeys[keys.RoleOwner], generated.PubKeys[keys.RoleActive], keys.NullKey(keys.DefaultPrefix))

	svc := service.NewTransferService(cli, service.TransferConfig{})
	tx, err := svc.BuildTransfer(context.Background(), service.TransferRequest{
		From:        "init0",
		To:          "nomemo",
		Amount:      1,
		AssetID:     "1.3.0",
		Memo:        "hi",
		EncryptMemo: true,
		MemoKey:     keys.GenerateKeys("init0", "password", nil, keys.DefaultPrefix).PrivKeys[keys.RoleMemo],
	})
	require.NoError(t, err)
	op := transferOf(t, tx.Operations[0])
	assert.Equal(t, generated.PubKeys[keys.RoleActive], op.Memo.To)
}

func TestBuildTransfer_MissingInput(t *testing.T) {
	tests := []struct {
		name string
		req  service.TransferRequest
	}{
		{name: "no sender", req: service.TransferRequest{To: "init1", Amount: 1, AssetID: "1.3.0"}},
		{name: "no recipient", req: service.TransferRequest{From: "init0", Amount: 1, AssetID: "1.3.0"}},
		{name: "zero amount", req: service.TransferRequest{From: "init0", To: "init1", AssetID: "1.3.0"}},
		{name: "no asset", req: service.TransferRequest{From: "init0", To: "init1", Amount: 1}},
	}

	node, cli := setup(t)
	svc := service.NewTransferService(cli, service.TransferConfig{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.BuildTransfer(context.Background(), tt.req)
			assert.ErrorIs(t, err, errors.ErrMissingInput)
		})
	}
	assert.Zero(t, node.Calls("get_full_accounts"))
}

func TestBuildTransfer_UnknownAccount(t *testing.T) {
	_, cli := setup(t)
	svc := service.NewTransferService(cli, service.TransferConfig{})
	_, err := svc.BuildTransfer(context.Background(), service.TransferRequest{From: "init0", To: "ghost", Amount: 1, AssetID: "1.3.0"})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestBuildTransfer_FaultyRatePaysInCore(t *testing.T) {
	node, cli := setup(t)
	btf := ops.MustObjectID("1.3.1")
	node.AddAsset(client.Asset{
		ID:        btf,
		Symbol:    "BTF",
		Precision: 4,
		Options: client.AssetOptions{CoreExchangeRate: client.Price{
			Base:  ops.AssetAmount{Amount: 1, AssetID: ops.CoreAssetID},
			Quote: ops.AssetAmount{Amount: 1, AssetID: ops.CoreAssetID},
		}},
	}, nil)

	svc := service.NewTransferService(cli, service.TransferConfig{})
	tx, err := svc.BuildTransfer(context.Background(), service.TransferRequest{From: "init0", To: "init1", Amount: 5, AssetID: "BTF"})
	require.NoError(t, err)
	op := transferOf(t, tx.Operations[0])
	assert.Equal(t, ops.CoreAssetID, op.Fee.AssetID)
	assert.Equal(t, btf, op.Amount.AssetID)
	assert.Equal(t, int64(chaintest.DefaultTransferFee), int64(op.Fee.Amount))
}

func TestBuildTransfer_Proposal(t *testing.T) {
	_, cli := setup(t)
	svc := service.NewTransferService(cli, service.TransferConfig{
		ProposalLifetime: time.Hour,
		ProposalReview:   10 * time.Minute,
	})

	tx, err := svc.BuildTransfer(context.Background(), service.TransferRequest{
		From:             "init1",
		To:               "init0",
		Amount:           42,
		AssetID:          "1.3.0",
		ProposingAccount: "init0",
	})
	require.NoError(t, err)
	require.Len(t, tx.Operations, 1)

	proposal, ok := tx.Operations[0].(*ops.ProposalCreateOperation)
	require.True(t, ok)
	assert.Equal(t, "1.2.16", proposal.FeePayingAccount.String())
	assert.Equal(t, int64(chaintest.DefaultProposalFee), int64(proposal.Fee.Amount))
	assert.Equal(t, time.Hour, proposal.Lifetime)
	require.NotNil(t, proposal.ReviewPeriodSeconds)
	assert.Equal(t, uint32(600), *proposal.ReviewPeriodSeconds)

	require.Len(t, proposal.ProposedOps, 1)
	inner := transferOf(t, proposal.ProposedOps[0])
	assert.Equal(t, int64(chaintest.DefaultTransferFee), int64(inner.Fee.Amount))
}

func TestAccountService_Keys(t *testing.T) {
	_, cli := setup(t)
	svc := service.NewAccountService(cli, "")
	generated := keys.GenerateKeys("init0", "password", nil, keys.DefaultPrefix)

	auths, err := svc.GetAccountKeys(context.Background(), "init0")
	require.NoError(t, err)
	for _, role := range keys.Roles {
		require.Len(t, auths[role], 1, role)
		assert.Equal(t, generated.PubKeys[role], auths[role][0].Key, role)
	}

	ok, err := svc.AuthUser(context.Background(), "init0", "password")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.AuthUser(context.Background(), "init0", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.AuthUser(context.Background(), "init0", "")
	assert.ErrorIs(t, err, errors.ErrMissingInput)
}

func TestAccountService_Balances(t *testing.T) {
	node, cli := setup(t)
	node.SetBalance("init0", ops.CoreAssetID, 123456)
	svc := service.NewAccountService(cli, keys.DefaultPrefix)

	balances, err := svc.Balances(context.Background(), "init0")
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, service.AssetBalance{AssetID: "1.3.0", Symbol: "TEST", Precision: 5, Amount: 123456}, balances[0])

	one, err := svc.BalanceOf(context.Background(), "init1", "TEST")
	require.NoError(t, err)
	assert.Zero(t, one.Amount)
	assert.Equal(t, "1.3.0", one.AssetID)
}

type slowPinger struct{}

func (slowPinger) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestHealthService_Check(t *testing.T) {
	_, cli := setup(t)
	hs := service.NewHealthService(time.Second)
	assert.True(t, hs.Check(context.Background(), cli))

	fast := service.NewHealthService(20 * time.Millisecond)
	start := time.Now()
	assert.False(t, fast.Check(context.Background(), slowPinger{}))
	assert.Less(t, time.Since(start), time.Second)
}
