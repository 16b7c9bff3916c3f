package transaction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mezonai/ppy/client"
	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/jsonx"
	"github.com/mezonai/ppy/keys"
	"github.com/mezonai/ppy/logx"
	"github.com/mezonai/ppy/ops"
)

const (
	DefaultExpireIn = 15 * time.Second

	// A head block older than this is considered stale and its time is
	// used as the expiration base instead of the local clock.
	staleHeadThreshold = 30 * time.Second

	// Callback id sent with broadcast_transaction_with_callback.
	BroadcastCallbackID uint64 = 1
)

type State int

const (
	StateBuilt State = iota
	StateFinalized
	StateSigned
	StateBroadcast
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateFinalized:
		return "finalized"
	case StateSigned:
		return "signed"
	case StateBroadcast:
		return "broadcast"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Config struct {
	ExpireIn time.Duration
	Prefix   string
	// Now is the local clock; defaults to time.Now.
	Now func() time.Time
}

// Transaction is a draft moving through built -> signer queued ->
// finalized -> network signed -> broadcast.
type Transaction struct {
	chain client.ChainAPI
	cfg   Config

	RefBlockNum    uint16
	RefBlockPrefix uint32
	Expiration     time.Time
	Operations     []ops.Operation

	signers    []Signer
	buffer     []byte
	signatures [][]byte
	state      State
}

func New(chain client.ChainAPI, cfg Config) *Transaction {
	if cfg.ExpireIn <= 0 {
		cfg.ExpireIn = DefaultExpireIn
	}
	if cfg.Prefix == "" {
		cfg.Prefix = keys.DefaultPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Transaction{chain: chain, cfg: cfg}
}

func (tx *Transaction) AddOperation(op ops.Operation) {
	tx.Operations = append(tx.Operations, op)
}

// Sign queues a key pair for network signing; the wire bytes are untouched.
func (tx *Transaction) Sign(publicKey string, privateKey *keys.PrivateKey) error {
	if privateKey == nil {
		return errors.MissingInput("sign")
	}
	if publicKey == "" {
		publicKey = privateKey.PublicKey().String(tx.cfg.Prefix)
	}
	return tx.QueueSigner(NewKeySigner(publicKey, privateKey))
}

// QueueSigner queues any signer, local or host mediated.
func (tx *Transaction) QueueSigner(s Signer) error {
	if s == nil {
		return errors.MissingInput("sign")
	}
	if tx.state >= StateSigned {
		return errors.InvalidState(errors.ErrMsgAlreadySigned)
	}
	tx.signers = append(tx.signers, s)
	return nil
}

// Finalize fixes reference block data and expiration from the chain head,
// runs operation finalize hooks and serializes the transaction.
func (tx *Transaction) Finalize(ctx context.Context) error {
	if len(tx.signers) == 0 {
		return errors.InvalidState(errors.ErrMsgNotSigned)
	}
	if tx.buffer != nil {
		return errors.InvalidState(errors.ErrMsgAlreadyFinalized)
	}

	head, err := tx.chain.GetDynamicGlobalProperties(ctx)
	if err != nil {
		return err
	}

	refPrefix, err := ops.RefBlockPrefix(head.HeadBlockID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRPCFailure, err, "")
	}
	expiration := tx.Expiration
	if expiration.IsZero() {
		expiration = baseExpiration(head.Time.Time, tx.cfg.Now()).Add(tx.cfg.ExpireIn)
	}

	for _, op := range tx.Operations {
		if f, ok := op.(ops.Finalizer); ok {
			f.Finalize(head.Time.Time)
		}
	}

	// The transaction keeps its fields untouched until serialization succeeds.
	wire := tx.wire()
	wire.RefBlockNum = uint16(head.HeadBlockNumber & 0xffff)
	wire.RefBlockPrefix = refPrefix
	wire.Expiration = ops.NewTime(expiration)
	buf, err := wire.Serialize(tx.cfg.Prefix)
	if err != nil {
		return err
	}
	tx.RefBlockNum = wire.RefBlockNum
	tx.RefBlockPrefix = wire.RefBlockPrefix
	tx.Expiration = expiration
	tx.buffer = buf
	tx.state = StateFinalized
	logx.Debug("TX", fmt.Sprintf("finalized %d ops ref_block_num=%d expiration=%s", len(tx.Operations), tx.RefBlockNum, tx.Expiration.Format(ops.TimeFormat)))
	return nil
}

// baseExpiration prefers the local clock unless the head block is stale.
func baseExpiration(head, now time.Time) time.Time {
	headSec := ceilSecond(head)
	nowSec := ceilSecond(now)
	if nowSec.Sub(headSec) > staleHeadThreshold {
		return headSec
	}
	if nowSec.After(headSec) {
		return nowSec
	}
	return headSec
}

func ceilSecond(t time.Time) time.Time {
	truncated := t.Truncate(time.Second)
	if truncated.Before(t) {
		return truncated.Add(time.Second)
	}
	return truncated
}

// NetworkSign signs sha256(chainID || buffer) with every queued signer and
// clears the queue.
func (tx *Transaction) NetworkSign(ctx context.Context, chainID string) error {
	if chainID == "" {
		return errors.MissingInput("sign")
	}
	if tx.buffer == nil {
		return errors.InvalidState(errors.ErrMsgNotFinalized)
	}
	if len(tx.signatures) > 0 {
		return errors.InvalidState(errors.ErrMsgAlreadySigned)
	}
	if len(tx.signers) == 0 {
		return errors.InvalidState(errors.ErrMsgNoSigners)
	}

	digest, err := ops.SigningDigest(chainID, tx.buffer)
	if err != nil {
		return errors.Wrap(errors.ErrCodeMissingInput, err, "")
	}

	sigs := make([][]byte, 0, len(tx.signers))
	for _, s := range tx.signers {
		sig, err := s.SignDigest(ctx, digest, tx.buffer)
		if err != nil {
			return err
		}
		if len(sig) != keys.SignatureSize {
			return errors.NewError(errors.ErrCodeSignatureRejected, errors.ErrMsgCouldNotGetSig)
		}
		sigs = append(sigs, sig)
	}

	tx.signatures = sigs
	tx.signers = nil
	tx.state = StateSigned
	return nil
}

// Broadcast submits the signed transaction and runs callback on success.
// A chain rejection is returned as *errors.BroadcastError.
func (tx *Transaction) Broadcast(ctx context.Context, callback func()) error {
	if tx.buffer == nil {
		return errors.InvalidState(errors.ErrMsgNotFinalized)
	}
	if len(tx.signatures) == 0 {
		return errors.InvalidState(errors.ErrMsgNotSigned)
	}
	if len(tx.Operations) == 0 {
		return errors.InvalidState(errors.ErrMsgNoOperations)
	}
	if tx.state == StateBroadcast {
		return errors.InvalidState(errors.ErrMsgAlreadyBroadcast)
	}

	signed := tx.SignedTransaction()
	if err := tx.chain.Broadcast(ctx, BroadcastCallbackID, signed); err != nil {
		digest := sha256.Sum256(tx.buffer)
		payload, _ := jsonx.MarshalToString(signed)
		logx.Error("TX", fmt.Sprintf("broadcast of %s rejected: %v", tx.ID(), err))
		return &errors.BroadcastError{
			Digest:      hex.EncodeToString(digest[:]),
			Payload:     hex.EncodeToString(tx.buffer),
			Transaction: payload,
			Err:         err,
		}
	}

	tx.state = StateBroadcast
	logx.Info("TX", fmt.Sprintf("broadcast %s", tx.ID()))
	if callback != nil {
		callback()
	}
	return nil
}

// SignedTransaction is the wire object including signatures.
func (tx *Transaction) SignedTransaction() *ops.SignedTransaction {
	signed := tx.wire()
	for _, sig := range tx.signatures {
		signed.Signatures = append(signed.Signatures, ops.HexBytes(sig))
	}
	return signed
}

func (tx *Transaction) wire() *ops.SignedTransaction {
	return &ops.SignedTransaction{
		RefBlockNum:    tx.RefBlockNum,
		RefBlockPrefix: tx.RefBlockPrefix,
		Expiration:     ops.NewTime(tx.Expiration),
		Operations:     tx.Operations,
		Extensions:     []any{},
		Signatures:     []ops.HexBytes{},
	}
}

// ID is the chain transaction id; empty before finalize.
func (tx *Transaction) ID() string {
	if tx.buffer == nil {
		return ""
	}
	return ops.TransactionID(tx.buffer)
}

// Buffer returns the serialized transaction, nil before finalize.
func (tx *Transaction) Buffer() []byte {
	return tx.buffer
}

func (tx *Transaction) Signatures() [][]byte {
	return tx.signatures
}

func (tx *Transaction) State() State {
	return tx.state
}

// PendingSigners is the number of queued signers.
func (tx *Transaction) PendingSigners() int {
	return len(tx.signers)
}

// Prefix is the address prefix keys are rendered with.
func (tx *Transaction) Prefix() string {
	return tx.cfg.Prefix
}
