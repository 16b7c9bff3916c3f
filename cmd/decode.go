package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mezonai/ppy/jsonx"
	"github.com/mezonai/ppy/logx"
	"github.com/mezonai/ppy/ops"
	"github.com/spf13/cobra"
)

var decodePrefix string

var decodeCmd = &cobra.Command{
	Use:   "decode <hex-buffer>",
	Short: "Decode a serialized transaction buffer into JSON",
	Long: `Decodes the hex buffer returned by a transfer, or carried by a rejected
broadcast, and prints the transaction id and its JSON form.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := decodeBuffer(os.Stdout, args[0], decodePrefix); err != nil {
			logx.Error("DECODE CLI", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVar(&decodePrefix, "prefix", "PPY", "public key prefix")
}

func decodeBuffer(out io.Writer, buffer, prefix string) error {
	buf, err := hex.DecodeString(strings.TrimSpace(buffer))
	if err != nil {
		return fmt.Errorf("buffer is not hex: %w", err)
	}
	tx, err := ops.DecodeTransaction(buf, prefix)
	if err != nil {
		return err
	}
	body, err := jsonx.MarshalIndent(tx, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "id: %s\n%s\n", ops.TransactionID(buf), body)
	return nil
}
