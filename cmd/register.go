package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mezonai/ppy/keypair"
	"github.com/mezonai/ppy/logx"
	"github.com/spf13/cobra"
)

type RegisterConfig struct {
	Name     string
	Password string
	Referrer string
	Import   bool
}

var registerConfig RegisterConfig

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account through the faucet",
	Long: `Registers a new account with owner, active and memo keys derived from
the password. With --import the derived keys are also saved to the keystore.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := registerAccount(cmd.Context(), registerConfig); err != nil {
			logx.Error("REGISTER CLI", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().StringVar(&registerConfig.Name, "name", "", "new account name")
	registerCmd.Flags().StringVar(&registerConfig.Password, "password", "", "password the keys are derived from")
	registerCmd.Flags().StringVar(&registerConfig.Referrer, "referrer", "", "referring account")
	registerCmd.Flags().BoolVar(&registerConfig.Import, "import", false, "import the derived keys into the keystore")
}

func registerAccount(ctx context.Context, cfg RegisterConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Name == "" || cfg.Password == "" {
		return fmt.Errorf("--name and --password are required")
	}
	s, err := openSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to open plugin: %w", err)
	}
	defer s.Close()

	res, err := s.plugin.Register(ctx, cfg.Name, cfg.Password, cfg.Referrer)
	if err != nil {
		return err
	}
	fmt.Printf("registered %s (%s after %d attempts)\n", cfg.Name, res.Status, res.Attempts)

	if cfg.Import {
		kp, err := s.keychain.Import(ctx, cfg.Name, keypair.BundleFromLogin(cfg.Name, cfg.Password))
		if err != nil {
			return fmt.Errorf("account registered but import failed: %w", err)
		}
		logx.Info("REGISTER CLI", fmt.Sprintf("Imported keys for %s as %s", cfg.Name, kp.ID))
	}
	return nil
}
