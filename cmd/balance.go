package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mezonai/ppy/logx"
	"github.com/mezonai/ppy/ops"
	"github.com/mezonai/ppy/types"
	"github.com/spf13/cobra"
)

var (
	balanceAccount string
	balanceTokens  []string
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the balances of an account",
	Run: func(cmd *cobra.Command, args []string) {
		if err := showBalances(cmd.Context(), balanceAccount, balanceTokens); err != nil {
			logx.Error("BALANCE CLI", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVar(&balanceAccount, "account", "", "account name")
	balanceCmd.Flags().StringSliceVar(&balanceTokens, "token", nil, "asset symbols or ids (default core asset)")
}

func showBalances(ctx context.Context, account string, symbols []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if account == "" {
		return fmt.Errorf("--account is required")
	}
	s, err := openSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to open plugin: %w", err)
	}
	defer s.Close()

	tokens := make([]types.Token, 0, len(symbols))
	for _, symbol := range symbols {
		token := types.Token{Blockchain: types.Blockchain, Symbol: strings.ToUpper(symbol), Name: symbol}
		if ops.IsAssetID(symbol) {
			token.Symbol = ""
			token.Contract = symbol
		}
		tokens = append(tokens, token)
	}

	balances, err := s.plugin.BalancesFor(ctx, types.Account{Name: account, Network: s.plugin.GetEndorsedNetwork()}, tokens)
	if err != nil {
		return err
	}
	for _, token := range balances {
		name := token.Symbol
		if name == "" {
			name = token.Contract
		}
		fmt.Printf("%s %s\n", token.Amount, name)
	}
	return nil
}
