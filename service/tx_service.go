package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mezonai/ppy/client"
	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/fee"
	"github.com/mezonai/ppy/keys"
	"github.com/mezonai/ppy/logx"
	"github.com/mezonai/ppy/memo"
	"github.com/mezonai/ppy/ops"
	"github.com/mezonai/ppy/transaction"
)

const DefaultProposalLifetime = 15 * time.Minute

// TransferRequest describes one transfer. Amount is in chain units.
type TransferRequest struct {
	From   string
	To     string
	Amount int64
	Memo   string
	// AssetID is an asset id or symbol.
	AssetID string
	// ProposingAccount, when set, wraps the transfer in a proposal paid by
	// that account.
	ProposingAccount string
	EncryptMemo      bool
	// MemoKey is the sender's memo private key; required to encrypt.
	MemoKey *keys.PrivateKey
	// Nonce overrides the memo nonce; zero draws a fresh one.
	Nonce uint64
}

type TransferConfig struct {
	Prefix           string
	ExpireIn         time.Duration
	ProposalLifetime time.Duration
	ProposalReview   time.Duration
	Now              func() time.Time
}

type TransferServiceImpl struct {
	chain client.ChainAPI
	fees  *fee.Resolver
	cfg   TransferConfig
}

func NewTransferService(chain client.ChainAPI, cfg TransferConfig) *TransferServiceImpl {
	if cfg.Prefix == "" {
		cfg.Prefix = keys.DefaultPrefix
	}
	if cfg.ProposalLifetime <= 0 {
		cfg.ProposalLifetime = DefaultProposalLifetime
	}
	return &TransferServiceImpl{chain: chain, fees: fee.NewResolver(chain), cfg: cfg}
}

// BuildTransfer assembles an unsigned transfer transaction with fees set.
func (s *TransferServiceImpl) BuildTransfer(ctx context.Context, req TransferRequest) (*transaction.Transaction, error) {
	if req.From == "" || req.To == "" || req.Amount <= 0 || req.AssetID == "" {
		return nil, errors.MissingInput("transfer")
	}

	from, err := s.chain.GetFullAccount(ctx, req.From)
	if err != nil {
		return nil, err
	}
	to, err := s.chain.GetFullAccount(ctx, req.To)
	if err != nil {
		return nil, err
	}
	asset, err := s.chain.LookupAsset(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}

	var proposer *client.Account
	if req.ProposingAccount != "" {
		if proposer, err = s.chain.GetAccount(ctx, req.ProposingAccount); err != nil {
			return nil, err
		}
	}

	feeAssetID := asset.ID
	if asset.HasFaultyExchangeRate() {
		feeAssetID = ops.CoreAssetID
	}

	op := &ops.TransferOperation{
		Fee:    ops.AssetAmount{Amount: 0, AssetID: feeAssetID},
		From:   from.Account.ID,
		To:     to.Account.ID,
		Amount: ops.AssetAmount{Amount: ops.Int64(req.Amount), AssetID: asset.ID},
	}
	if req.Memo != "" {
		if op.Memo, err = s.buildMemo(req, &from.Account, &to.Account); err != nil {
			return nil, err
		}
	}

	tx := transaction.New(s.chain, transaction.Config{
		ExpireIn: s.cfg.ExpireIn,
		Prefix:   s.cfg.Prefix,
		Now:      s.cfg.Now,
	})
	if proposer != nil {
		proposal := &ops.ProposalCreateOperation{
			Fee:              ops.AssetAmount{Amount: 0, AssetID: feeAssetID},
			FeePayingAccount: proposer.ID,
			ProposedOps:      []ops.Operation{op},
			Lifetime:         s.cfg.ProposalLifetime,
		}
		if s.cfg.ProposalReview > 0 {
			review := uint32(s.cfg.ProposalReview / time.Second)
			proposal.ReviewPeriodSeconds = &review
		}
		tx.AddOperation(proposal)
	} else {
		tx.AddOperation(op)
	}

	paidIn, err := s.fees.SetRequiredFees(ctx, tx.Operations, feeAssetID)
	if err != nil {
		return nil, err
	}
	logx.Info("TRANSFER", fmt.Sprintf("built transfer %s -> %s amount=%d %s fee=%d %s proposal=%t",
		from.Account.Name, to.Account.Name, req.Amount, asset.Symbol, op.Fee.Amount, paidIn, proposer != nil))
	return tx, nil
}

// buildMemo encrypts to the recipient's memo key, or its active key when
// the memo key is unset, or carries the plaintext when encryption is off.
func (s *TransferServiceImpl) buildMemo(req TransferRequest, from, to *client.Account) (*ops.Memo, error) {
	toKey := to.Options.MemoKey
	if toKey == "" || keys.IsNullKey(toKey, s.cfg.Prefix) {
		if len(to.Active.KeyAuths) == 0 {
			return nil, errors.NotFound("memo key of", to.Name)
		}
		toKey = to.Active.KeyAuths[0].Key
	}

	nonce := req.Nonce
	if nonce == 0 {
		nonce = memo.UniqueNonce()
	}

	if !req.EncryptMemo {
		fromKey := from.Options.MemoKey
		if req.MemoKey != nil {
			fromKey = req.MemoKey.PublicKey().String(s.cfg.Prefix)
		}
		return &ops.Memo{From: fromKey, To: toKey, Nonce: ops.Uint64String(nonce), Message: []byte(req.Memo)}, nil
	}

	if req.MemoKey == nil {
		return nil, errors.MissingInput("memo")
	}
	toPub, err := keys.PublicKeyFromString(toKey, s.cfg.Prefix)
	if err != nil {
		return nil, err
	}
	ciphertext, err := memo.Encrypt(req.MemoKey, toPub, nonce, []byte(req.Memo))
	if err != nil {
		return nil, err
	}
	return &ops.Memo{
		From:    req.MemoKey.PublicKey().String(s.cfg.Prefix),
		To:      toKey,
		Nonce:   ops.Uint64String(nonce),
		Message: ciphertext,
	}, nil
}
