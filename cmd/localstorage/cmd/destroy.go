package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Delete the storage file",
	Args:  cobra.NoArgs,
	RunE:  runDestroy,
}

func init() {
	rootCmd.AddCommand(destroyCmd)
}

func runDestroy(cmd *cobra.Command, args []string) (err error) {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := s.Destroy(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Removed %s\n", s.Path())
	return nil
}
