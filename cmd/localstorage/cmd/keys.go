package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List stored keys",
	Args:  cobra.NoArgs,
	RunE:  runKeys,
}

func init() {
	rootCmd.AddCommand(keysCmd)
}

func runKeys(cmd *cobra.Command, args []string) (err error) {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	keys := s.Keys()
	for _, k := range keys {
		fmt.Fprintln(cmd.OutOrStdout(), k)
	}

	if len(keys) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "(no entries)")
	}
	return nil
}
