package types

// Account is a host account bound to one key and network.
type Account struct {
	Name      string  `json:"name"`
	PublicKey string  `json:"publicKey"`
	Authority string  `json:"authority"`
	Network   Network `json:"network"`
}

// Sendable is the identifier the chain expects from this account.
func (a Account) Sendable() string {
	return a.PublicKey
}

// ReturnableAccount is the account view handed to dapps.
type ReturnableAccount struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Blockchain string `json:"blockchain"`
}

// Token is a balance-bearing asset. Amount is a display decimal string.
type Token struct {
	Blockchain string `json:"blockchain"`
	Contract   string `json:"contract"`
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	Decimals   int    `json:"decimals"`
	Amount     string `json:"amount,omitempty"`
	ChainID    string `json:"chainId"`
}

func (t Token) Clone() Token {
	return t
}

// Explorer holds link templates; {x} is replaced by the id.
type Explorer struct {
	Name        string `json:"name"`
	Account     string `json:"account"`
	Transaction string `json:"transaction"`
	Block       string `json:"block"`
}
