package plugin

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/jsonx"
	"github.com/mezonai/ppy/keys"
	"github.com/mezonai/ppy/logx"
	"github.com/mezonai/ppy/monitoring"
	"github.com/mezonai/ppy/ops"
	"github.com/mezonai/ppy/service"
	"github.com/mezonai/ppy/transaction"
	"github.com/mezonai/ppy/types"
	"github.com/mezonai/ppy/utils"
)

// Transfer builds, signs and broadcasts a transfer from params.Account.
func (p *PPY) Transfer(ctx context.Context, params types.TransferParams) (*types.TransferResult, error) {
	start := time.Now()
	if !p.IsValidRecipient(params.To) {
		return nil, errors.NewError(errors.ErrCodeInvalidRecipient, errors.ErrMsgInvalidRecipient)
	}
	if params.Account.Name == "" {
		return nil, errors.MissingInput("transfer")
	}

	token := params.Token
	if token.Symbol == "" && token.Contract == "" {
		token = p.DefaultToken()
	}
	if token.Decimals == 0 {
		asset, err := p.chain.LookupAsset(ctx, assetRef(token))
		if err != nil {
			return nil, err
		}
		token.Decimals = int(asset.Precision)
	}
	amount, err := utils.ToChainAmount(params.Amount, token.Decimals)
	if err != nil {
		return nil, err
	}

	req := service.TransferRequest{
		From:             params.Account.Name,
		To:               params.To,
		Amount:           amount,
		Memo:             params.Memo,
		AssetID:          assetRef(token),
		ProposingAccount: params.ProposingAccount,
		EncryptMemo:      params.EncryptMemo,
	}
	if params.Memo != "" {
		if req.MemoKey, err = p.memoKey(ctx, params); err != nil {
			return nil, err
		}
	}

	tx, err := p.transfers.BuildTransfer(ctx, req)
	if err != nil {
		monitoring.RecordTransfer(monitoring.TransferBuildFailed)
		return nil, err
	}

	signer, err := p.transferSigner(ctx, tx, params)
	if err != nil {
		monitoring.RecordTransfer(monitoring.TransferSignFailed)
		return nil, err
	}
	if err := tx.QueueSigner(signer); err != nil {
		monitoring.RecordTransfer(monitoring.TransferSignFailed)
		return nil, err
	}
	if err := tx.Finalize(ctx); err != nil {
		monitoring.RecordTransfer(monitoring.TransferFinalizeError)
		return nil, err
	}
	if p.tracker.WasBroadcast(tx.ID()) {
		return nil, errors.InvalidState(errors.ErrMsgAlreadyBroadcast)
	}

	chainID, err := p.chainID(ctx)
	if err != nil {
		monitoring.RecordTransfer(monitoring.TransferSignFailed)
		return nil, err
	}
	if err := tx.NetworkSign(ctx, chainID); err != nil {
		monitoring.RecordTransfer(monitoring.TransferSignFailed)
		return nil, err
	}

	err = tx.Broadcast(ctx, func() {
		p.tracker.Track(tx.ID(), params.Account.Name)
	})
	if err != nil {
		monitoring.RecordTransfer(monitoring.TransferRejected)
		monitoring.IncreaseBroadcastRejected()
		return nil, err
	}
	monitoring.RecordTransfer(monitoring.TransferBroadcast)

	logx.Info("TRANSFER", fmt.Sprintf("%s -> %s %s %s | tx=%s | took %.3fs",
		params.Account.Name, params.To, params.Amount, token.Symbol, utils.ShortenLog(tx.ID()), utils.SecondsBetween(start, time.Now())))

	return &types.TransferResult{
		ID:     tx.ID(),
		Buffer: hex.EncodeToString(tx.Buffer()),
	}, nil
}

// assetRef prefers an explicit asset id in Contract and falls back to the
// symbol.
func assetRef(token types.Token) string {
	if ops.IsAssetID(token.Contract) {
		return token.Contract
	}
	if token.Symbol != "" {
		return token.Symbol
	}
	return token.Contract
}

func (p *PPY) chainID(ctx context.Context) (string, error) {
	if p.cfg.Network.ChainID != "" {
		return p.cfg.Network.ChainID, nil
	}
	return p.chain.GetChainID(ctx)
}

// memoKey resolves the sender's memo private key. Plain memos work without
// one; encrypted memos fail when neither injected keys nor the keychain
// hold it.
func (p *PPY) memoKey(ctx context.Context, params types.TransferParams) (*keys.PrivateKey, error) {
	if params.Keys != nil && params.Keys.Memo != "" {
		return keys.PrivateKeyFromWif(params.Keys.Memo)
	}
	if p.keypairs == nil {
		return nil, nil
	}

	auths, err := p.accounts.GetAccountKeys(ctx, params.Account.Name)
	if err != nil {
		return nil, err
	}
	memoAuths := auths[keys.RoleMemo]
	if len(memoAuths) == 0 || keys.IsNullKey(memoAuths[0].Key, p.cfg.Prefix) {
		return nil, nil
	}
	priv, err := p.keypairs.PublicToPrivate(ctx, memoAuths[0].Key)
	if err != nil {
		if params.EncryptMemo {
			return nil, err
		}
		logx.Debug("TRANSFER", fmt.Sprintf("no memo key for %s, sending plain memo", params.Account.Name))
		return nil, nil
	}
	return priv, nil
}

// transferSigner picks injected keys first, then popup approval. The local
// keychain signs silently only when the caller opted out of the prompt.
func (p *PPY) transferSigner(ctx context.Context, tx *transaction.Transaction, params types.TransferParams) (transaction.Signer, error) {
	if params.HasInjectedKeys() {
		priv, err := keys.PrivateKeyFromWif(params.Keys.Active)
		if err != nil {
			return nil, err
		}
		return transaction.NewKeySigner(priv.PublicKey().String(p.cfg.Prefix), priv), nil
	}

	account := params.Account
	if account.PublicKey == "" {
		return nil, errors.MissingInput("signer")
	}
	if account.Network.ChainID == "" {
		account.Network = p.cfg.Network
	}

	if params.Prompts() {
		return transaction.SignerFunc{
			Key: account.PublicKey,
			Fn: func(ctx context.Context, digest, buf []byte) ([]byte, error) {
				payload := types.SignPayload{Buf: buf, Digest: digest}
				if raw, err := jsonx.Marshal(tx.SignedTransaction()); err == nil {
					payload.Transaction = raw
				}
				return p.SignerWithPopup(ctx, payload, account)
			},
		}, nil
	}

	return transaction.SignerFunc{
		Key: account.PublicKey,
		Fn: func(ctx context.Context, digest, buf []byte) ([]byte, error) {
			payload := types.SignPayload{Buf: buf, Digest: digest, Network: account.Network}
			return p.signing.Sign(ctx, account.Network, payload, account.PublicKey, false, false)
		},
	}, nil
}
