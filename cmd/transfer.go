package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mezonai/ppy/keys"
	"github.com/mezonai/ppy/logx"
	"github.com/mezonai/ppy/ops"
	"github.com/mezonai/ppy/types"
	"github.com/spf13/cobra"
)

type TransferConfig struct {
	From           string
	PublicKey      string
	PrivateKey     string
	PrivateKeyFile string
	MemoKey        string
	To             string
	Amount         string
	Token          string
	Memo           string
	EncryptMemo    bool
	Proposer       string
	Prompt         bool
	Verbose        bool
}

var transferConfig TransferConfig

// transferCmd represents the transfer command
var transferCmd = &cobra.Command{
	Use:   "transfer [flags]",
	Short: "Transfer an asset to another account",
	Long: `This command sends an asset from the account to the specified recipient.
The active key is resolved from the keystore by --public-key, or injected
either directly via --private-key or via a file using --private-key-file.

Examples:
  # Transfer 1.5 PPY signing with a keystore key
  transfer --from alice -t bob -a 1.5 --public-key PPY6...

  # Transfer 10 BTF with an injected WIF and an encrypted memo
  transfer --from alice -t bob -a 10 --token BTF -f /path/to/active.wif -m "invoice 42" --encrypt-memo`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := transferToken(cmd.Context(), transferConfig); err != nil {
			logx.Error("TRANSFER CLI", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(transferCmd)

	transferCmd.PersistentFlags().StringVar(&transferConfig.From, "from", "", "sender account name")
	transferCmd.PersistentFlags().StringVar(&transferConfig.PublicKey, "public-key", "", "sender active public key held in the keystore")
	transferCmd.PersistentFlags().StringVarP(&transferConfig.PrivateKeyFile, "private-key-file", "f", "", "sender active key file (WIF)")
	transferCmd.PersistentFlags().StringVarP(&transferConfig.PrivateKey, "private-key", "p", "", "sender active key (WIF)")
	transferCmd.PersistentFlags().StringVar(&transferConfig.MemoKey, "memo-key", "", "sender memo key (WIF)")
	transferCmd.PersistentFlags().StringVarP(&transferConfig.To, "to", "t", "", "recipient account name")
	transferCmd.PersistentFlags().StringVarP(&transferConfig.Amount, "amount", "a", "", "amount as a decimal, e.g. 1.5")
	transferCmd.PersistentFlags().StringVar(&transferConfig.Token, "token", "", "asset symbol or id (default core asset)")
	transferCmd.PersistentFlags().StringVarP(&transferConfig.Memo, "memo", "m", "", "memo text")
	transferCmd.PersistentFlags().BoolVar(&transferConfig.EncryptMemo, "encrypt-memo", false, "encrypt the memo to the recipient")
	transferCmd.PersistentFlags().StringVar(&transferConfig.Proposer, "proposer", "", "wrap the transfer in a proposal paid by this account")
	transferCmd.PersistentFlags().BoolVar(&transferConfig.Prompt, "prompt", false, "ask for approval on the terminal before signing")
	transferCmd.PersistentFlags().BoolVarP(&transferConfig.Verbose, "verbose", "v", false, "verbose output")
}

func transferToken(ctx context.Context, transferConfig TransferConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if transferConfig.From == "" || transferConfig.To == "" || transferConfig.Amount == "" {
		return fmt.Errorf("--from, --to and --amount are required")
	}

	s, err := openSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to open plugin: %w", err)
	}
	defer s.Close()

	params, err := buildTransferParams(s, transferConfig)
	if err != nil {
		return err
	}
	if transferConfig.Prompt {
		promptCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		defer attachPrompt(promptCtx, s.bus, os.Stdin, os.Stdout)()
	}
	if transferConfig.Verbose {
		logx.Debug("TRANSFER CLI", fmt.Sprintf("Sending %s %s from %s to %s via %s",
			params.Amount, params.Token.Symbol, params.Account.Name, params.To, s.cfg.Endpoint()))
	}

	res, err := s.plugin.Transfer(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to transfer: %w", err)
	}
	logx.Info("TRANSFER CLI", fmt.Sprintf("Transaction broadcast: %s", res.ID))
	fmt.Println(res.ID)
	return nil
}

func buildTransferParams(s *session, transferConfig TransferConfig) (types.TransferParams, error) {
	token := s.plugin.DefaultToken()
	if transferConfig.Token != "" {
		token.Contract = ""
		token.Decimals = 0
		token.Symbol = transferConfig.Token
		token.Name = transferConfig.Token
		if ops.IsAssetID(transferConfig.Token) {
			token.Contract = transferConfig.Token
		}
	}

	// The operator running the CLI is the approval unless --prompt asks for one.
	prompt := transferConfig.Prompt
	params := types.TransferParams{
		Account: types.Account{
			Name:      transferConfig.From,
			PublicKey: transferConfig.PublicKey,
			Authority: keys.RoleActive,
			Network:   s.plugin.GetEndorsedNetwork(),
		},
		To:                 transferConfig.To,
		Amount:             transferConfig.Amount,
		Token:              token,
		Memo:               transferConfig.Memo,
		EncryptMemo:        transferConfig.EncryptMemo,
		ProposingAccount:   transferConfig.Proposer,
		PromptForSignature: &prompt,
	}

	wif, err := loadSenderPrivateKey(transferConfig)
	if err != nil {
		return params, fmt.Errorf("failed to load sender private key: %w", err)
	}
	if wif != "" {
		pub, err := s.plugin.PrivateToPublic(wif, "")
		if err != nil {
			return params, fmt.Errorf("failed to parse private key: %w", err)
		}
		params.Account.PublicKey = pub
		params.Keys = &types.TransferKeys{Active: wif, Memo: transferConfig.MemoKey}
	} else if params.Account.PublicKey == "" {
		return params, fmt.Errorf("--public-key or a private key is required")
	}
	return params, nil
}

// loadSenderPrivateKey loads the key from config, which is set by command flags
// the private key is a WIF string
func loadSenderPrivateKey(transferConfig TransferConfig) (string, error) {
	if transferConfig.PrivateKey != "" {
		return strings.TrimSpace(transferConfig.PrivateKey), nil
	}
	if transferConfig.PrivateKeyFile == "" {
		return "", nil
	}
	bytes, err := os.ReadFile(transferConfig.PrivateKeyFile)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(bytes)), nil
}
