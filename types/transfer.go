package types

// TransferKeys are WIFs injected by a caller that signs without the host
// keychain, such as tests and the CLI.
type TransferKeys struct {
	Active string `json:"active"`
	Memo   string `json:"memo,omitempty"`
}

type TransferParams struct {
	Account Account `json:"account"`
	To      string  `json:"to"`
	// Amount is a display decimal, converted with Token.Decimals or, when that
	// is zero, the asset precision.
	Amount           string `json:"amount"`
	Token            Token  `json:"token"`
	Memo             string `json:"memo,omitempty"`
	EncryptMemo      bool   `json:"encryptMemo"`
	ProposingAccount string `json:"proposingAccount,omitempty"`
	// PromptForSignature unset means the popup is shown.
	PromptForSignature *bool         `json:"promptForSignature,omitempty"`
	Keys               *TransferKeys `json:"keys,omitempty"`
}

// Prompts reports whether the signature needs popup approval.
func (p TransferParams) Prompts() bool {
	return p.PromptForSignature == nil || *p.PromptForSignature
}

// HasInjectedKeys reports whether the caller supplied its own active key.
func (p TransferParams) HasInjectedKeys() bool {
	return p.Keys != nil && p.Keys.Active != ""
}

// TransferResult identifies a broadcast transaction.
type TransferResult struct {
	ID     string `json:"id"`
	Buffer string `json:"buffer"`
}
