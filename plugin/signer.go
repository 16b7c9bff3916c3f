package plugin

import (
	"context"
	"encoding/hex"
	stderrors "errors"
	"fmt"

	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/keys"
	"github.com/mezonai/ppy/logx"
	"github.com/mezonai/ppy/monitoring"
	"github.com/mezonai/ppy/types"
)

// Signer signs payload with the keychain key behind publicKey. Arbitrary
// payloads sign Data; with isHash, Data is a hex sha256 digest signed as is.
// Transaction payloads sign Digest when present and sha256(Buf) otherwise.
func (p *PPY) Signer(ctx context.Context, payload types.SignPayload, publicKey string, arbitrary, isHash bool) ([]byte, error) {
	if p.keypairs == nil {
		return nil, errors.NewError(errors.ErrCodeInvalidKey, fmt.Sprintf(errors.ErrMsgPrivateKeyNotFound, publicKey))
	}
	priv, err := p.keypairs.PublicToPrivate(ctx, publicKey)
	if err != nil {
		return nil, err
	}
	if priv == nil {
		return nil, errors.NewError(errors.ErrCodeInvalidKey, fmt.Sprintf(errors.ErrMsgPrivateKeyNotFound, publicKey))
	}

	switch {
	case arbitrary && isHash:
		digest, err := hex.DecodeString(payload.Data)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMissingInput, err, "hash must be hex")
		}
		return keys.SignDigest(digest, priv)
	case arbitrary:
		if payload.Data == "" {
			return nil, errors.MissingInput("signer")
		}
		return keys.SignBuffer([]byte(payload.Data), priv)
	case len(payload.Digest) > 0:
		return keys.SignDigest(payload.Digest, priv)
	case len(payload.Buf) > 0:
		return keys.SignBuffer(payload.Buf, priv)
	default:
		return nil, errors.MissingInput("signer")
	}
}

// SignerWithPopup asks the user to approve payload for account and signs it
// once accepted. The wait is bounded by the popup timeout and ctx.
func (p *PPY) SignerWithPopup(ctx context.Context, payload types.SignPayload, account types.Account) ([]byte, error) {
	if p.events == nil {
		return nil, errors.NewError(errors.ErrCodeSignatureRejected, errors.ErrMsgCouldNotGetSig)
	}

	payload.Participants = []string{account.Name}
	payload.Network = account.Network
	payload.Origin = p.cfg.Origin
	if p.store != nil {
		payload.IdentityKey = p.store.IdentityKey()
	}

	popupCtx, cancel := context.WithTimeout(ctx, p.cfg.PopupTimeout)
	defer cancel()

	results, err := p.events.Emit(popupCtx, types.PopupRequest{
		Type:       types.PopupSignature,
		Origin:     payload.Origin,
		Blockchain: types.Blockchain,
		PublicKey:  account.PublicKey,
		Payload:    payload,
	})
	if err != nil {
		return nil, err
	}

	var result types.PopupResult
	select {
	case res, ok := <-results:
		if !ok {
			monitoring.RecordPopup(monitoring.PopupRejected)
			return nil, errors.NewError(errors.ErrCodeSignatureRejected, errors.ErrMsgCouldNotGetSig)
		}
		result = res
	case <-popupCtx.Done():
		monitoring.RecordPopup(monitoring.PopupTimedOut)
		if stderrors.Is(popupCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			logx.Warn("POPUP", fmt.Sprintf("signature request for %s timed out", account.Name))
			return nil, errors.NewError(errors.ErrCodeTimeout, fmt.Sprintf(errors.ErrMsgPopupTimedOut, p.cfg.PopupTimeout))
		}
		return nil, errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "")
	}

	if !result.Accepted {
		monitoring.RecordPopup(monitoring.PopupRejected)
		logx.Info("POPUP", fmt.Sprintf("signature request for %s rejected: %s", account.Name, result.Reason))
		return nil, errors.NewError(errors.ErrCodeSignatureRejected, errors.ErrMsgCouldNotGetSig)
	}
	monitoring.RecordPopup(monitoring.PopupAccepted)

	hardware := false
	if p.keypairs != nil {
		if hardware, err = p.keypairs.IsHardware(ctx, account.PublicKey); err != nil {
			return nil, err
		}
	}

	var sig []byte
	if hardware {
		if p.hardware == nil {
			return nil, errors.NewError(errors.ErrCodeSignatureRejected, errors.ErrMsgCouldNotGetSig)
		}
		sig, err = p.hardware.Sign(ctx, account, payload)
	} else {
		sig, err = p.signing.Sign(ctx, payload.Network, payload, account.PublicKey, false, false)
	}
	if err != nil {
		return nil, err
	}
	if len(sig) == 0 {
		return nil, errors.NewError(errors.ErrCodeSignatureRejected, errors.ErrMsgCouldNotGetSig)
	}
	return sig, nil
}
