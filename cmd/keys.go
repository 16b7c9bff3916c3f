package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/mezonai/ppy/keypair"
	"github.com/mezonai/ppy/keys"
	"github.com/mezonai/ppy/logx"
	"github.com/spf13/cobra"
)

type KeysConfig struct {
	Name      string
	Password  string
	Bundle    keypair.Bundle
	PublicKey string
	Device    string
}

var keysConfig KeysConfig

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the local keystore",
}

var keysImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an account's keys, derived from a password or given as WIFs",
	Run: func(cmd *cobra.Command, args []string) {
		if err := withKeychain(cmd.Context(), func(ctx context.Context, svc *keypair.Service) error {
			return importKeys(ctx, svc, keysConfig, os.Stdout)
		}); err != nil {
			logx.Error("KEYS CLI", err)
			os.Exit(1)
		}
	},
}

var keysHardwareCmd = &cobra.Command{
	Use:   "hardware",
	Short: "Register a hardware wallet public key",
	Run: func(cmd *cobra.Command, args []string) {
		if err := withKeychain(cmd.Context(), func(ctx context.Context, svc *keypair.Service) error {
			if keysConfig.Name == "" || keysConfig.PublicKey == "" {
				return fmt.Errorf("--name and --public-key are required")
			}
			kp, err := svc.ImportHardware(ctx, keysConfig.Name, keysConfig.PublicKey, keysConfig.Device)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s\n", kp.ID, kp.Name)
			return nil
		}); err != nil {
			logx.Error("KEYS CLI", err)
			os.Exit(1)
		}
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored keypairs",
	Run: func(cmd *cobra.Command, args []string) {
		if err := withKeychain(cmd.Context(), func(ctx context.Context, svc *keypair.Service) error {
			kps, err := svc.List(ctx)
			if err != nil {
				return err
			}
			return printKeypairs(os.Stdout, kps)
		}); err != nil {
			logx.Error("KEYS CLI", err)
			os.Exit(1)
		}
	},
}

var keysDeriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Print the public keys a name and password derive, without storing them",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _, err := loadConfiguration(configFile, settingsFile)
		if err != nil {
			logx.Error("KEYS CLI", err)
			os.Exit(1)
		}
		if keysConfig.Name == "" || keysConfig.Password == "" {
			logx.Error("KEYS CLI", "--name and --password are required")
			os.Exit(1)
		}
		login := keys.GenerateKeys(keysConfig.Name, keysConfig.Password, nil, cfg.Prefix)
		for _, role := range keys.Roles {
			fmt.Printf("%-6s %s\n", role, login.PubKeys[role])
		}
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysImportCmd, keysHardwareCmd, keysListCmd, keysDeriveCmd)

	keysCmd.PersistentFlags().StringVar(&keysConfig.Name, "name", "", "account name")
	keysImportCmd.Flags().StringVar(&keysConfig.Password, "password", "", "derive the keys from this password")
	keysImportCmd.Flags().StringVar(&keysConfig.Bundle.Owner, "owner", "", "owner key (WIF)")
	keysImportCmd.Flags().StringVar(&keysConfig.Bundle.Active, "active", "", "active key (WIF)")
	keysImportCmd.Flags().StringVar(&keysConfig.Bundle.Memo, "memo", "", "memo key (WIF)")
	keysHardwareCmd.Flags().StringVar(&keysConfig.PublicKey, "public-key", "", "public key held by the device")
	keysHardwareCmd.Flags().StringVar(&keysConfig.Device, "device", "ledger", "device type")
	keysDeriveCmd.Flags().StringVar(&keysConfig.Password, "password", "", "password")
}

// withKeychain opens only the keystore; no node connection is needed.
func withKeychain(ctx context.Context, fn func(context.Context, *keypair.Service) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, _, err := loadConfiguration(configFile, settingsFile)
	if err != nil {
		return err
	}
	store, svc, err := openKeychain(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, svc)
}

func importKeys(ctx context.Context, svc *keypair.Service, cfg KeysConfig, out io.Writer) error {
	if cfg.Name == "" {
		return fmt.Errorf("--name is required")
	}
	bundle := cfg.Bundle
	if cfg.Password != "" {
		bundle = keypair.BundleFromLogin(cfg.Name, cfg.Password)
	}
	kp, err := svc.Import(ctx, cfg.Name, bundle)
	if err != nil {
		return err
	}
	return printKeypairs(out, []*keypair.Keypair{kp})
}

func printKeypairs(out io.Writer, kps []*keypair.Keypair) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tROLE\tPUBLIC KEY\tHARDWARE")
	for _, kp := range kps {
		for _, ref := range kp.PublicKeys {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", kp.Name, ref.Role, ref.Key, kp.Hardware)
		}
	}
	return w.Flush()
}
