package ops

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/jsonx"
)

// Well-known chain objects.
var (
	CoreAssetID            = ObjectID{Space: 1, Type: 3, Instance: 0}
	GlobalPropertiesID     = ObjectID{Space: 2, Type: 0, Instance: 0}
	DynamicGlobalPropsID   = ObjectID{Space: 2, Type: 1, Instance: 0}
	accountTypePrefix      = "1.2."
	assetTypePrefix        = "1.3."
	assetDynamicTypePrefix = "2.3."
)

const TimeFormat = "2006-01-02T15:04:05"

// ObjectID is a Graphene object id written space.type.instance.
type ObjectID struct {
	Space    uint8
	Type     uint8
	Instance uint64
}

func ParseObjectID(s string) (ObjectID, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return ObjectID{}, errors.NewError(errors.ErrCodeMissingInput, fmt.Sprintf("invalid object id %q", s))
	}
	space, err1 := strconv.ParseUint(parts[0], 10, 8)
	typ, err2 := strconv.ParseUint(parts[1], 10, 8)
	inst, err3 := strconv.ParseUint(parts[2], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return ObjectID{}, errors.NewError(errors.ErrCodeMissingInput, fmt.Sprintf("invalid object id %q", s))
	}
	return ObjectID{Space: uint8(space), Type: uint8(typ), Instance: inst}, nil
}

// MustObjectID panics on malformed ids; for constants and tests.
func MustObjectID(s string) ObjectID {
	id, err := ParseObjectID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsObjectID reports whether s looks like space.type.instance.
func IsObjectID(s string) bool {
	_, err := ParseObjectID(s)
	return err == nil
}

func (o ObjectID) String() string {
	return fmt.Sprintf("%d.%d.%d", o.Space, o.Type, o.Instance)
}

func (o ObjectID) IsZero() bool {
	return o == ObjectID{}
}

// AssetDynamicDataID maps 1.3.N to its 2.3.N dynamic data object.
func (o ObjectID) AssetDynamicDataID() ObjectID {
	return ObjectID{Space: 2, Type: 3, Instance: o.Instance}
}

func (o ObjectID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(o.String())), nil
}

func (o *ObjectID) UnmarshalJSON(b []byte) error {
	var s string
	if err := jsonx.Unmarshal(b, &s); err != nil {
		return err
	}
	id, err := ParseObjectID(s)
	if err != nil {
		return err
	}
	*o = id
	return nil
}

// Int64 accepts both JSON numbers and numeric strings, since nodes return
// large amounts as strings.
type Int64 int64

func (i Int64) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(i), 10)), nil
}

func (i *Int64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*i = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s: %w", b, err)
	}
	*i = Int64(v)
	return nil
}

// Uint64String is a uint64 carried as a JSON string, like memo nonces.
type Uint64String uint64

func (u Uint64String) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatUint(uint64(u), 10))), nil
}

func (u *Uint64String) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseUint(strings.Trim(string(b), `"`), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid nonce %s: %w", b, err)
	}
	*u = Uint64String(v)
	return nil
}

// HexBytes marshals as a lowercase hex string.
type HexBytes []byte

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(hex.EncodeToString(h))), nil
}

func (h *HexBytes) UnmarshalJSON(b []byte) error {
	var s string
	if err := jsonx.Unmarshal(b, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*h = raw
	return nil
}

// Time is a second-resolution UTC timestamp without zone suffix.
type Time struct {
	time.Time
}

func NewTime(t time.Time) Time {
	return Time{t.UTC().Truncate(time.Second)}
}

func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.UTC().Format(TimeFormat))), nil
}

func (t *Time) UnmarshalJSON(b []byte) error {
	var s string
	if err := jsonx.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseInLocation(TimeFormat, strings.TrimSuffix(s, "Z"), time.UTC)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// AssetAmount is an integer amount of an asset in chain-native units.
type AssetAmount struct {
	Amount  Int64    `json:"amount"`
	AssetID ObjectID `json:"asset_id"`
}

// Memo travels with a transfer; Message is ciphertext when encrypted.
type Memo struct {
	From    string       `json:"from"`
	To      string       `json:"to"`
	Nonce   Uint64String `json:"nonce"`
	Message HexBytes     `json:"message"`
}

// IsAccountID reports whether s names an account object (1.2.N).
func IsAccountID(s string) bool {
	return strings.HasPrefix(s, accountTypePrefix) && IsObjectID(s)
}

// IsAssetID reports whether s names an asset object (1.3.N).
func IsAssetID(s string) bool {
	return strings.HasPrefix(s, assetTypePrefix) && IsObjectID(s)
}

// IsAssetDynamicDataID reports whether s names an asset dynamic data object.
func IsAssetDynamicDataID(s string) bool {
	return strings.HasPrefix(s, assetDynamicTypePrefix) && IsObjectID(s)
}
