package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/mezonai/ppy/jsonx"
)

// PluginErrorCode classifies every failure the plugin reports to its host.
type PluginErrorCode string

const (
	// General errors
	ErrCodeInternal PluginErrorCode = "internal_error"

	// Caller errors, raised before any I/O
	ErrCodeMissingInput     PluginErrorCode = "missing_input"
	ErrCodeInvalidKey       PluginErrorCode = "invalid_key"
	ErrCodeInvalidBundle    PluginErrorCode = "invalid_bundle"
	ErrCodeInvalidRecipient PluginErrorCode = "invalid_recipient"
	ErrCodeInvalidAmount    PluginErrorCode = "invalid_amount"
	ErrCodeInvalidInput     PluginErrorCode = "invalid_input"

	// Transaction lifecycle guards
	ErrCodeInvalidState PluginErrorCode = "invalid_state"

	// Chain and network errors
	ErrCodeRPCFailure        PluginErrorCode = "rpc_failure"
	ErrCodeNotFound          PluginErrorCode = "not_found"
	ErrCodeBroadcastRejected PluginErrorCode = "broadcast_rejected"
	ErrCodeFaucetExhausted   PluginErrorCode = "faucet_exhausted"
	ErrCodeTimeout           PluginErrorCode = "timeout"

	// Host signing errors
	ErrCodeSignatureRejected PluginErrorCode = "signature_rejected"
)

// Sentinels usable with errors.Is; matching is by code only.
var (
	ErrMissingInput      = &PluginError{Code: ErrCodeMissingInput}
	ErrInvalidKey        = &PluginError{Code: ErrCodeInvalidKey}
	ErrInvalidBundle     = &PluginError{Code: ErrCodeInvalidBundle}
	ErrInvalidRecipient  = &PluginError{Code: ErrCodeInvalidRecipient}
	ErrInvalidAmount     = &PluginError{Code: ErrCodeInvalidAmount}
	ErrInvalidInput      = &PluginError{Code: ErrCodeInvalidInput}
	ErrInvalidState      = &PluginError{Code: ErrCodeInvalidState}
	ErrRPCFailure        = &PluginError{Code: ErrCodeRPCFailure}
	ErrNotFound          = &PluginError{Code: ErrCodeNotFound}
	ErrBroadcastRejected = &PluginError{Code: ErrCodeBroadcastRejected}
	ErrFaucetExhausted   = &PluginError{Code: ErrCodeFaucetExhausted}
	ErrTimeout           = &PluginError{Code: ErrCodeTimeout}
	ErrSignatureRejected = &PluginError{Code: ErrCodeSignatureRejected}
)

// PluginError is the structured error handed back to the host wallet.
type PluginError struct {
	Code    PluginErrorCode `json:"code"`
	Message string          `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *PluginError) Error() string {
	out, _ := jsonx.Marshal(struct {
		Code    PluginErrorCode `json:"code"`
		Message string          `json:"message"`
	}{e.Code, e.Message})
	return string(out)
}

func (e *PluginError) Unwrap() error {
	return e.cause
}

func (e *PluginError) Is(target error) bool {
	t, ok := target.(*PluginError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// Error message constants
const (
	ErrMsgNotSigned          = "not signed"
	ErrMsgAlreadyFinalized   = "already finalized"
	ErrMsgNotFinalized       = "not finalized"
	ErrMsgAlreadySigned      = "already signed"
	ErrMsgNoSigners          = "transaction was not signed, do you have a private key? [no_signers]"
	ErrMsgNoOperations       = "no operations"
	ErrMsgAlreadyBroadcast   = "already broadcast"
	ErrMsgMissingInputs      = "%s: missing inputs"
	ErrMsgCouldNotGetSig     = "could not get signature"
	ErrMsgInvalidRecipient   = "invalid recipient account name"
	ErrMsgMissingBundleRole  = "key bundle is missing the %s key"
	ErrMsgFaucetExhausted    = "faucet registration failed after %d attempts"
	ErrMsgPopupTimedOut      = "signature request timed out after %s"
	ErrMsgObjectNotFound     = "%s %q not found on chain"
	ErrMsgPrivateKeyNotFound = "no private key for %s"
	ErrMsgTextTooLong        = "%s exceeds %d characters"
	ErrMsgInvalidCharacters  = "%s contains invalid characters"
	ErrMsgSilentSigning      = "promptForSignature=false needs injected keys"
)

// NewError creates a new PluginError and returns it as error interface
func NewError(code PluginErrorCode, message string) error {
	return &PluginError{
		Code:    code,
		Message: message,
	}
}

// Wrap attaches cause to a new PluginError so errors.Is/As still see it.
func Wrap(code PluginErrorCode, cause error, message string) error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &PluginError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

func MissingInput(op string) error {
	return NewError(ErrCodeMissingInput, fmt.Sprintf(ErrMsgMissingInputs, op))
}

func InvalidState(message string) error {
	return NewError(ErrCodeInvalidState, message)
}

func NotFound(kind, id string) error {
	return NewError(ErrCodeNotFound, fmt.Sprintf(ErrMsgObjectNotFound, kind, id))
}

// CodeOf returns the code of the first PluginError in err's chain.
func CodeOf(err error) PluginErrorCode {
	var pe *PluginError
	if stderrors.As(err, &pe) {
		return pe.Code
	}
	var be *BroadcastError
	if stderrors.As(err, &be) {
		return ErrCodeBroadcastRejected
	}
	return ErrCodeInternal
}

// BroadcastError carries the digest and serialized payload of a transaction
// the chain refused, so the failure can be diagnosed offline.
type BroadcastError struct {
	Digest      string
	Payload     string
	Transaction string
	Err         error
}

func (e *BroadcastError) Error() string {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s\npeerplays-crypto digest %s transaction %s %s", msg, e.Digest, e.Payload, e.Transaction)
}

func (e *BroadcastError) Unwrap() error {
	return e.Err
}

func (e *BroadcastError) Is(target error) bool {
	t, ok := target.(*PluginError)
	return ok && t.Code == ErrCodeBroadcastRejected && t.Message == ""
}
