package ops

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/mezonai/ppy/keys"
)

// Encoder writes the chain's binary wire format. The first error sticks and
// later writes become no-ops.
type Encoder struct {
	buf    bytes.Buffer
	prefix string
	err    error
}

func NewEncoder(prefix string) *Encoder {
	return &Encoder{prefix: prefix}
}

func (e *Encoder) Varint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	e.buf.Write(tmp[:n])
}

func (e *Encoder) Uint8(v uint8) {
	e.buf.WriteByte(v)
}

func (e *Encoder) Uint16(v uint16) {
	e.buf.Write(binary.LittleEndian.AppendUint16(nil, v))
}

func (e *Encoder) Uint32(v uint32) {
	e.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}

func (e *Encoder) Uint64(v uint64) {
	e.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
}

func (e *Encoder) Int64(v int64) {
	e.Uint64(uint64(v))
}

func (e *Encoder) Bool(v bool) {
	if v {
		e.Uint8(1)
		return
	}
	e.Uint8(0)
}

// Bytes writes a varint length followed by b.
func (e *Encoder) Bytes(b []byte) {
	e.Varint(uint64(len(b)))
	e.buf.Write(b)
}

// Raw writes b without a length prefix.
func (e *Encoder) Raw(b []byte) {
	e.buf.Write(b)
}

// Time writes seconds since epoch as uint32.
func (e *Encoder) Time(t time.Time) {
	e.Uint32(uint32(t.Unix()))
}

// ObjectID writes the instance only; space and type are implied by the field.
func (e *Encoder) ObjectID(id ObjectID) {
	e.Varint(id.Instance)
}

func (e *Encoder) Asset(a AssetAmount) {
	e.Int64(int64(a.Amount))
	e.ObjectID(a.AssetID)
}

// PublicKey writes the 33 compressed key bytes of a prefixed key string.
func (e *Encoder) PublicKey(s string) {
	if e.err != nil {
		return
	}
	body, err := keys.PublicKeyBytesFromString(s, e.prefix)
	if err != nil {
		e.err = err
		return
	}
	e.buf.Write(body)
}

// EmptyExtensions writes a zero-length extension set.
func (e *Encoder) EmptyExtensions() {
	e.Varint(0)
}

func (e *Encoder) Fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *Encoder) Err() error {
	return e.err
}

func (e *Encoder) Result() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.buf.Bytes(), nil
}

// Decoder reads what Encoder writes.
type Decoder struct {
	r      *bytes.Reader
	prefix string
	err    error
}

func NewDecoder(b []byte, prefix string) *Decoder {
	return &Decoder{r: bytes.NewReader(b), prefix: prefix}
}

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) read(n int) []byte {
	if d.err != nil {
		return make([]byte, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.fail(fmt.Errorf("decode: %w", err))
	}
	return b
}

func (d *Decoder) Varint() uint64 {
	if d.err != nil {
		return 0
	}
	v, err := binary.ReadUvarint(d.r)
	if err != nil {
		d.fail(fmt.Errorf("decode varint: %w", err))
	}
	return v
}

func (d *Decoder) Uint8() uint8 {
	return d.read(1)[0]
}

func (d *Decoder) Uint16() uint16 {
	return binary.LittleEndian.Uint16(d.read(2))
}

func (d *Decoder) Uint32() uint32 {
	return binary.LittleEndian.Uint32(d.read(4))
}

func (d *Decoder) Uint64() uint64 {
	return binary.LittleEndian.Uint64(d.read(8))
}

func (d *Decoder) Int64() int64 {
	return int64(d.Uint64())
}

func (d *Decoder) Bytes() []byte {
	n := d.Varint()
	if d.err != nil {
		return nil
	}
	if n > uint64(d.r.Len()) {
		d.fail(fmt.Errorf("decode: length %d exceeds remaining %d bytes", n, d.r.Len()))
		return nil
	}
	return d.read(int(n))
}

func (d *Decoder) Time() time.Time {
	return time.Unix(int64(d.Uint32()), 0).UTC()
}

func (d *Decoder) ObjectID(space, typ uint8) ObjectID {
	return ObjectID{Space: space, Type: typ, Instance: d.Varint()}
}

func (d *Decoder) Asset() AssetAmount {
	amount := d.Int64()
	return AssetAmount{Amount: Int64(amount), AssetID: d.ObjectID(1, 3)}
}

func (d *Decoder) PublicKey() string {
	return keys.PublicKeyStringFromBytes(d.read(33), d.prefix)
}

// SkipExtensions reads an extension set and fails if it is not empty.
func (d *Decoder) SkipExtensions() {
	if n := d.Varint(); n != 0 {
		d.fail(fmt.Errorf("decode: unsupported extensions (%d)", n))
	}
}

// Remaining is the count of unread bytes.
func (d *Decoder) Remaining() int {
	return d.r.Len()
}

func (d *Decoder) Err() error {
	return d.err
}
