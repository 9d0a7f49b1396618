package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rekeyCmd = &cobra.Command{
	Use:   "rekey <new-key>",
	Short: "Re-encrypt all values with a new key",
	Long:  "Decrypt every value with --key and re-encrypt it with new-key, then persist. Requires --encrypt.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRekey,
}

func init() {
	rootCmd.AddCommand(rekeyCmd)
}

func runRekey(cmd *cobra.Command, args []string) (err error) {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.Rekey(ctx, args[0]); err != nil {
		return fmt.Errorf("rekey failed: %w", err)
	}
	if err := s.Persist(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Re-encrypted %d entries.\n", s.Count())
	return nil
}
