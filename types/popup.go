package types

import (
	"time"

	"github.com/mezonai/ppy/jsonx"
)

type PopupType string

const (
	PopupSignature PopupType = "requestSignature"
)

// SignPayload is what a signer sees. Buf is the serialized transaction and
// Digest the chain-bound hash over it; Data carries arbitrary text.
type SignPayload struct {
	Transaction  jsonx.RawMessage `json:"transaction,omitempty"`
	Buf          []byte           `json:"buf,omitempty"`
	Digest       []byte           `json:"digest,omitempty"`
	Data         string           `json:"data,omitempty"`
	Network      Network          `json:"network"`
	Participants []string         `json:"participants,omitempty"`
	Origin       string           `json:"origin,omitempty"`
	IdentityKey  string           `json:"identityKey,omitempty"`
}

// PopupRequest asks the user to approve a signature.
type PopupRequest struct {
	ID         string      `json:"id"`
	Type       PopupType   `json:"type"`
	Origin     string      `json:"origin"`
	Blockchain string      `json:"blockchain"`
	PublicKey  string      `json:"publicKey"`
	Payload    SignPayload `json:"payload"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// PopupResult is the user's answer to a PopupRequest.
type PopupResult struct {
	ID       string `json:"id"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}
