package ops

import (
	"encoding/hex"
	"strings"
	"testing"
	"time"

	fuzz "github.com/google/gofuzz"
	"github.com/mezonai/ppy/jsonx"
	"github.com/mezonai/ppy/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTransfer() *TransferOperation {
	return &TransferOperation{
		Fee:    AssetAmount{Amount: 100, AssetID: CoreAssetID},
		From:   MustObjectID("1.2.17"),
		To:     MustObjectID("1.2.18"),
		Amount: AssetAmount{Amount: 10000, AssetID: CoreAssetID},
	}
}

func sampleTransaction(ops ...Operation) *SignedTransaction {
	return &SignedTransaction{
		RefBlockNum:    0x1234,
		RefBlockPrefix: 0xdeadbeef,
		Expiration:     NewTime(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)),
		Operations:     ops,
	}
}

func TestSerializeTransfer(t *testing.T) {
	buf, err := sampleTransaction(sampleTransfer()).Serialize(keys.DefaultPrefix)
	require.NoError(t, err)

	want := "3412" + "efbeadde" + "00e10b5e" + "01" +
		"00" + "6400000000000000" + "00" + "11" + "12" + "1027000000000000" + "00" +
		"00" + "00" + "00"
	assert.Equal(t, want, hex.EncodeToString(buf))
	assert.Len(t, TransactionID(buf), 40)
}

func TestDecodeTransaction_RoundTrip(t *testing.T) {
	withMemo := sampleTransfer()
	sender := keys.PrivateKeyFromSeed("init0memopassword").PublicKey().String(keys.DefaultPrefix)
	withMemo.Memo = &Memo{
		From:    sender,
		To:      keys.NullKey(keys.DefaultPrefix),
		Nonce:   Uint64String(1234567890123),
		Message: []byte("invoice 7"),
	}
	review := uint32(3600)
	proposal := &ProposalCreateOperation{
		Fee:                 AssetAmount{Amount: 2000, AssetID: CoreAssetID},
		FeePayingAccount:    MustObjectID("1.2.99"),
		ExpirationTime:      NewTime(time.Date(2020, 1, 1, 0, 15, 0, 0, time.UTC)),
		ProposedOps:         []Operation{withMemo},
		ReviewPeriodSeconds: &review,
	}

	tx := sampleTransaction(proposal)
	buf, err := tx.Serialize(keys.DefaultPrefix)
	require.NoError(t, err)

	decoded, err := DecodeTransaction(buf, keys.DefaultPrefix)
	require.NoError(t, err)
	again, err := decoded.Serialize(keys.DefaultPrefix)
	require.NoError(t, err)
	assert.Equal(t, buf, again)

	require.Len(t, decoded.Operations, 1)
	gotProposal, ok := decoded.Operations[0].(*ProposalCreateOperation)
	require.True(t, ok)
	require.Len(t, gotProposal.ProposedOps, 1)
	gotTransfer := gotProposal.ProposedOps[0].(*TransferOperation)
	assert.Equal(t, withMemo.Memo, gotTransfer.Memo)
	assert.Equal(t, uint32(3600), *gotProposal.ReviewPeriodSeconds)

	_, err = DecodeTransaction(buf[:len(buf)-3], keys.DefaultPrefix)
	assert.Error(t, err)
	_, err = DecodeTransaction(append(buf, 0x01), keys.DefaultPrefix)
	assert.Error(t, err)
}

func TestSerialize_InvalidMemoKey(t *testing.T) {
	op := sampleTransfer()
	op.Memo = &Memo{From: "PPYbogus", To: "PPYbogus"}
	_, err := sampleTransaction(op).Serialize(keys.DefaultPrefix)
	assert.Error(t, err)
}

func TestOperationJSON(t *testing.T) {
	raw, err := MarshalOperation(sampleTransfer())
	require.NoError(t, err)
	assert.Equal(t,
		`[0,{"fee":{"amount":100,"asset_id":"1.3.0"},"from":"1.2.17","to":"1.2.18","amount":{"amount":10000,"asset_id":"1.3.0"},"extensions":[]}]`,
		string(raw))

	proposal := &ProposalCreateOperation{
		FeePayingAccount: MustObjectID("1.2.5"),
		ExpirationTime:   NewTime(time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)),
		ProposedOps:      []Operation{sampleTransfer()},
	}
	raw, err = MarshalOperation(proposal)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), `[22,{"fee":{"amount":0,"asset_id":"0.0.0"}`), string(raw))
	assert.Contains(t, string(raw), `"expiration_time":"2021-03-04T05:06:07"`)
	assert.Contains(t, string(raw), `"proposed_ops":[{"op":[0,{`)

	parsed, err := UnmarshalOperation(raw)
	require.NoError(t, err)
	assert.Equal(t, ProposalCreateOpType, parsed.Type())
	children := parsed.(Parent).Children()
	require.Len(t, children, 1)
	assert.Equal(t, sampleTransfer().Amount, children[0].(*TransferOperation).Amount)
}

func TestSignedTransactionJSON(t *testing.T) {
	tx := sampleTransaction(sampleTransfer())
	tx.Signatures = []HexBytes{{0x1f, 0xab}}
	tx.Extensions = []any{}

	raw, err := jsonx.Marshal(tx)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"expiration":"2020-01-01T00:00:00"`)
	assert.Contains(t, string(raw), `"signatures":["1fab"]`)
	assert.Contains(t, string(raw), `"ref_block_prefix":3735928559`)

	var back SignedTransaction
	require.NoError(t, jsonx.Unmarshal(raw, &back))
	assert.Equal(t, tx.Expiration.Unix(), back.Expiration.Unix())
	require.Len(t, back.Operations, 1)
	assert.Equal(t, TransferOpType, back.Operations[0].Type())
}

func TestWalk_DepthFirst(t *testing.T) {
	inner1, inner2 := sampleTransfer(), sampleTransfer()
	proposal := &ProposalCreateOperation{ProposedOps: []Operation{inner1, inner2}}
	tail := sampleTransfer()

	var visited []Operation
	Walk([]Operation{proposal, tail}, func(op Operation) { visited = append(visited, op) })
	assert.Equal(t, []Operation{proposal, inner1, inner2, tail}, visited)
}

func TestProposalFinalize(t *testing.T) {
	head := time.Date(2022, 6, 1, 12, 0, 0, 0, time.UTC)
	op := &ProposalCreateOperation{Lifetime: 15 * time.Minute}
	op.Finalize(head)
	assert.Equal(t, head.Add(15*time.Minute), op.ExpirationTime.Time)

	fixed := NewTime(head.Add(time.Hour))
	op = &ProposalCreateOperation{ExpirationTime: fixed, Lifetime: time.Minute}
	op.Finalize(head)
	assert.Equal(t, fixed, op.ExpirationTime)
}

func TestObjectID(t *testing.T) {
	id, err := ParseObjectID("1.3.121")
	require.NoError(t, err)
	assert.Equal(t, "1.3.121", id.String())
	assert.Equal(t, "2.3.121", id.AssetDynamicDataID().String())
	assert.True(t, IsAssetID("1.3.0"))
	assert.True(t, IsAccountID("1.2.7"))
	assert.False(t, IsAccountID("1.3.7"))
	assert.True(t, IsAssetDynamicDataID("2.3.1"))

	for _, bad := range []string{"", "1.2", "a.b.c", "1.2.3.4", "300.1.1"} {
		_, err := ParseObjectID(bad)
		assert.Error(t, err, bad)
	}
}

func TestInt64_FlexibleJSON(t *testing.T) {
	var a AssetAmount
	require.NoError(t, jsonx.Unmarshal([]byte(`{"amount":"9007199254740993","asset_id":"1.3.1"}`), &a))
	assert.Equal(t, Int64(9007199254740993), a.Amount)
	require.NoError(t, jsonx.Unmarshal([]byte(`{"amount":42,"asset_id":"1.3.1"}`), &a))
	assert.Equal(t, Int64(42), a.Amount)
}

func TestRefBlockPrefix(t *testing.T) {
	prefix, err := RefBlockPrefix("0000abcdefbeadde0000000000000000000000ff")
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), prefix)

	_, err = RefBlockPrefix("00")
	assert.Error(t, err)
}

func TestSigningDigest(t *testing.T) {
	digest, err := SigningDigest("00ff", []byte{0x01})
	require.NoError(t, err)
	assert.Len(t, digest, 32)

	_, err = SigningDigest("zz", nil)
	assert.Error(t, err)
}

func TestCodec_Fuzz(t *testing.T) {
	f := fuzz.New().NilChance(0)
	for i := 0; i < 500; i++ {
		var (
			v   uint64
			u16 uint16
			u32 uint32
			i64 int64
			b   []byte
		)
		f.Fuzz(&v)
		f.Fuzz(&u16)
		f.Fuzz(&u32)
		f.Fuzz(&i64)
		f.Fuzz(&b)

		e := NewEncoder(keys.DefaultPrefix)
		e.Varint(v)
		e.Uint16(u16)
		e.Uint32(u32)
		e.Int64(i64)
		e.Bytes(b)
		buf, err := e.Result()
		require.NoError(t, err)

		d := NewDecoder(buf, keys.DefaultPrefix)
		assert.Equal(t, v, d.Varint())
		assert.Equal(t, u16, d.Uint16())
		assert.Equal(t, u32, d.Uint32())
		assert.Equal(t, i64, d.Int64())
		assert.Equal(t, b, d.Bytes())
		require.NoError(t, d.Err())
		assert.Zero(t, d.Remaining())
	}
}
