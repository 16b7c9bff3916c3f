package plugin

import (
	"context"

	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/faucet"
	"github.com/mezonai/ppy/service"
	"github.com/mezonai/ppy/types"
	"github.com/mezonai/ppy/utils"
)

// BalanceFor returns token with Amount set to the account's balance.
func (p *PPY) BalanceFor(ctx context.Context, account types.Account, token types.Token) (types.Token, error) {
	if account.Name == "" {
		return types.Token{}, errors.MissingInput("balance")
	}
	bal, err := p.accounts.BalanceOf(ctx, account.Name, assetRef(token))
	if err != nil {
		return types.Token{}, err
	}
	return withBalance(token, bal), nil
}

// BalancesFor prices every token in one account lookup. Tokens the account
// does not hold come back with a zero amount.
func (p *PPY) BalancesFor(ctx context.Context, account types.Account, tokens []types.Token) ([]types.Token, error) {
	if account.Name == "" {
		return nil, errors.MissingInput("balance")
	}
	held, err := p.accounts.Balances(ctx, account.Name)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		tokens = []types.Token{p.DefaultToken()}
	}

	out := make([]types.Token, 0, len(tokens))
	for _, token := range tokens {
		bal := service.AssetBalance{Symbol: token.Symbol}
		for _, h := range held {
			if h.AssetID == token.Contract || h.Symbol == token.Symbol {
				bal = h
				break
			}
		}
		out = append(out, withBalance(token, bal))
	}
	return out, nil
}

func withBalance(token types.Token, bal service.AssetBalance) types.Token {
	out := token.Clone()
	decimals := token.Decimals
	if decimals == 0 {
		decimals = int(bal.Precision)
		out.Decimals = decimals
	}
	if out.Blockchain == "" {
		out.Blockchain = types.Blockchain
	}
	out.Amount = utils.FromChainAmount(bal.Amount, decimals)
	return out
}

// Register creates name through the faucet with keys derived from password.
func (p *PPY) Register(ctx context.Context, name, password, referrer string) (*faucet.Result, error) {
	if p.faucet == nil {
		return nil, errors.InvalidState("faucet is not configured")
	}
	if !p.IsValidRecipient(name) {
		return nil, errors.NewError(errors.ErrCodeInvalidRecipient, errors.ErrMsgInvalidRecipient)
	}
	return p.faucet.Register(ctx, name, password, referrer)
}

// Authenticate checks that password derives a key the account holds.
func (p *PPY) Authenticate(ctx context.Context, name, password string) (bool, error) {
	return p.accounts.AuthUser(ctx, name, password)
}
