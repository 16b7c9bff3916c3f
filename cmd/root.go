package cmd

import (
	"os"

	"github.com/mezonai/ppy/logx"
	"github.com/spf13/cobra"
)

var (
	configFile   string
	settingsFile string
)

var rootCmd = &cobra.Command{
	Use:   "ppy",
	Short: "Peerplays wallet plugin CLI",
	Long:  "Command line interface for transferring, querying balances and running the Peerplays wallet plugin bridge.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config/ppy.yml", "plugin config file (yaml)")
	rootCmd.PersistentFlags().StringVarP(&settingsFile, "settings", "s", "config/settings.ini", "transaction and bridge settings (ini)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
