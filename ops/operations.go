package ops

import (
	"fmt"
	"time"

	"github.com/mezonai/ppy/jsonx"
)

type OpType uint64

const (
	TransferOpType       OpType = 0
	ProposalCreateOpType OpType = 22
)

func (t OpType) String() string {
	switch t {
	case TransferOpType:
		return "transfer"
	case ProposalCreateOpType:
		return "proposal_create"
	default:
		return fmt.Sprintf("op_%d", uint64(t))
	}
}

// Operation is one chain operation inside a transaction.
type Operation interface {
	Type() OpType
	GetFee() AssetAmount
	SetFee(AssetAmount)
	Encode(e *Encoder)
}

// Finalizer is implemented by operations that fill fields from chain head
// data when the transaction is finalized.
type Finalizer interface {
	Finalize(headTime time.Time)
}

// Parent is implemented by operations that wrap other operations.
type Parent interface {
	Children() []Operation
}

// Walk visits ops depth-first, each parent before its children.
func Walk(ops []Operation, fn func(Operation)) {
	for _, op := range ops {
		fn(op)
		if p, ok := op.(Parent); ok {
			Walk(p.Children(), fn)
		}
	}
}

// EncodeOperation writes the static variant tag then the operation body.
func EncodeOperation(e *Encoder, op Operation) {
	e.Varint(uint64(op.Type()))
	op.Encode(e)
}

// TransferOperation moves Amount from one account to another.
type TransferOperation struct {
	Fee        AssetAmount `json:"fee"`
	From       ObjectID    `json:"from"`
	To         ObjectID    `json:"to"`
	Amount     AssetAmount `json:"amount"`
	Memo       *Memo       `json:"memo,omitempty"`
	Extensions []any       `json:"extensions"`
}

func (op *TransferOperation) Type() OpType           { return TransferOpType }
func (op *TransferOperation) GetFee() AssetAmount    { return op.Fee }
func (op *TransferOperation) SetFee(fee AssetAmount) { op.Fee = fee }

func (op *TransferOperation) Encode(e *Encoder) {
	e.Asset(op.Fee)
	e.ObjectID(op.From)
	e.ObjectID(op.To)
	e.Asset(op.Amount)
	if op.Memo == nil {
		e.Bool(false)
	} else {
		e.Bool(true)
		e.PublicKey(op.Memo.From)
		e.PublicKey(op.Memo.To)
		e.Uint64(uint64(op.Memo.Nonce))
		e.Bytes(op.Memo.Message)
	}
	e.EmptyExtensions()
}

func (op *TransferOperation) MarshalJSON() ([]byte, error) {
	type plain TransferOperation
	out := plain(*op)
	if out.Extensions == nil {
		out.Extensions = []any{}
	}
	return jsonx.Marshal(out)
}

// ProposalCreateOperation wraps operations for later approval.
type ProposalCreateOperation struct {
	Fee                 AssetAmount
	FeePayingAccount    ObjectID
	ExpirationTime      Time
	ProposedOps         []Operation
	ReviewPeriodSeconds *uint32

	// Lifetime sets ExpirationTime relative to the head block at finalize
	// when no explicit expiration was given.
	Lifetime time.Duration
}

func (op *ProposalCreateOperation) Type() OpType           { return ProposalCreateOpType }
func (op *ProposalCreateOperation) GetFee() AssetAmount    { return op.Fee }
func (op *ProposalCreateOperation) SetFee(fee AssetAmount) { op.Fee = fee }
func (op *ProposalCreateOperation) Children() []Operation  { return op.ProposedOps }

func (op *ProposalCreateOperation) Finalize(headTime time.Time) {
	if op.ExpirationTime.IsZero() {
		op.ExpirationTime = NewTime(headTime.Add(op.Lifetime))
	}
}

func (op *ProposalCreateOperation) Encode(e *Encoder) {
	e.Asset(op.Fee)
	e.ObjectID(op.FeePayingAccount)
	e.Time(op.ExpirationTime.Time)
	e.Varint(uint64(len(op.ProposedOps)))
	for _, inner := range op.ProposedOps {
		EncodeOperation(e, inner)
	}
	if op.ReviewPeriodSeconds == nil {
		e.Bool(false)
	} else {
		e.Bool(true)
		e.Uint32(*op.ReviewPeriodSeconds)
	}
	e.EmptyExtensions()
}

type proposalJSON struct {
	Fee                 AssetAmount      `json:"fee"`
	FeePayingAccount    ObjectID         `json:"fee_paying_account"`
	ExpirationTime      Time             `json:"expiration_time"`
	ProposedOps         []proposedOpJSON `json:"proposed_ops"`
	ReviewPeriodSeconds *uint32          `json:"review_period_seconds,omitempty"`
	Extensions          []any            `json:"extensions"`
}

type proposedOpJSON struct {
	Op jsonx.RawMessage `json:"op"`
}

func (op *ProposalCreateOperation) MarshalJSON() ([]byte, error) {
	out := proposalJSON{
		Fee:                 op.Fee,
		FeePayingAccount:    op.FeePayingAccount,
		ExpirationTime:      op.ExpirationTime,
		ProposedOps:         make([]proposedOpJSON, 0, len(op.ProposedOps)),
		ReviewPeriodSeconds: op.ReviewPeriodSeconds,
		Extensions:          []any{},
	}
	for _, inner := range op.ProposedOps {
		raw, err := MarshalOperation(inner)
		if err != nil {
			return nil, err
		}
		out.ProposedOps = append(out.ProposedOps, proposedOpJSON{Op: raw})
	}
	return jsonx.Marshal(out)
}

// MarshalOperation renders the [type, body] pair the node expects.
func MarshalOperation(op Operation) ([]byte, error) {
	return jsonx.Marshal([]any{uint64(op.Type()), op})
}

// Operations marshals as a list of [type, body] pairs.
type Operations []Operation

func (o Operations) MarshalJSON() ([]byte, error) {
	out := make([]jsonx.RawMessage, 0, len(o))
	for _, op := range o {
		raw, err := MarshalOperation(op)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return jsonx.Marshal(out)
}

func (o *Operations) UnmarshalJSON(b []byte) error {
	var raws []jsonx.RawMessage
	if err := jsonx.Unmarshal(b, &raws); err != nil {
		return err
	}
	out := make(Operations, 0, len(raws))
	for _, raw := range raws {
		op, err := UnmarshalOperation(raw)
		if err != nil {
			return err
		}
		out = append(out, op)
	}
	*o = out
	return nil
}

// UnmarshalOperation parses a [type, body] pair for the supported types.
func UnmarshalOperation(raw []byte) (Operation, error) {
	var pair []jsonx.RawMessage
	if err := jsonx.Unmarshal(raw, &pair); err != nil {
		return nil, fmt.Errorf("operation: %w", err)
	}
	if len(pair) != 2 {
		return nil, fmt.Errorf("operation: expected [type, body], got %d elements", len(pair))
	}
	var typ OpType
	if err := jsonx.Unmarshal(pair[0], &typ); err != nil {
		return nil, fmt.Errorf("operation type: %w", err)
	}

	switch typ {
	case TransferOpType:
		op := &TransferOperation{}
		if err := jsonx.Unmarshal(pair[1], op); err != nil {
			return nil, fmt.Errorf("transfer: %w", err)
		}
		return op, nil
	case ProposalCreateOpType:
		var body proposalJSON
		if err := jsonx.Unmarshal(pair[1], &body); err != nil {
			return nil, fmt.Errorf("proposal_create: %w", err)
		}
		op := &ProposalCreateOperation{
			Fee:                 body.Fee,
			FeePayingAccount:    body.FeePayingAccount,
			ExpirationTime:      body.ExpirationTime,
			ReviewPeriodSeconds: body.ReviewPeriodSeconds,
		}
		for _, p := range body.ProposedOps {
			inner, err := UnmarshalOperation(p.Op)
			if err != nil {
				return nil, err
			}
			op.ProposedOps = append(op.ProposedOps, inner)
		}
		return op, nil
	default:
		return nil, fmt.Errorf("operation: unsupported type %d", uint64(typ))
	}
}

// DecodeOperation reads one tagged operation from d.
func DecodeOperation(d *Decoder) (Operation, error) {
	typ := OpType(d.Varint())
	if err := d.Err(); err != nil {
		return nil, err
	}

	switch typ {
	case TransferOpType:
		op := &TransferOperation{
			Fee:    d.Asset(),
			From:   d.ObjectID(1, 2),
			To:     d.ObjectID(1, 2),
			Amount: d.Asset(),
		}
		if d.Uint8() == 1 {
			op.Memo = &Memo{
				From:  d.PublicKey(),
				To:    d.PublicKey(),
				Nonce: Uint64String(d.Uint64()),
			}
			op.Memo.Message = d.Bytes()
		}
		d.SkipExtensions()
		return op, d.Err()
	case ProposalCreateOpType:
		op := &ProposalCreateOperation{
			Fee:              d.Asset(),
			FeePayingAccount: d.ObjectID(1, 2),
			ExpirationTime:   Time{d.Time()},
		}
		n := d.Varint()
		if n > uint64(d.Remaining()) {
			return nil, fmt.Errorf("decode: %d proposed operations exceed payload", n)
		}
		for i := uint64(0); i < n; i++ {
			inner, err := DecodeOperation(d)
			if err != nil {
				return nil, err
			}
			op.ProposedOps = append(op.ProposedOps, inner)
		}
		if d.Uint8() == 1 {
			review := d.Uint32()
			op.ReviewPeriodSeconds = &review
		}
		d.SkipExtensions()
		return op, d.Err()
	default:
		return nil, fmt.Errorf("decode: unsupported operation type %d", uint64(typ))
	}
}
