package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aweris/localstorage"
)

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a stored value",
	Long:  "Print the value stored under key. Lists and maps are printed as indented JSON.",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) (err error) {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	v, err := s.Get(args[0])
	if err != nil {
		return err
	}

	switch v.Kind() {
	case localstorage.KindList, localstorage.KindMap:
		out, err := json.MarshalIndent(v.Interface(), "", "  ")
		if err != nil {
			return fmt.Errorf("format value: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	default:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	}
	return nil
}
