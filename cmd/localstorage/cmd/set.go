package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a value",
	Long:  "Store value under key and persist. The value is parsed as JSON; anything that is not valid JSON is stored as a string.",
	Args:  cobra.ExactArgs(2),
	RunE:  runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) (err error) {
	key, raw := args[0], args[1]

	value := parseValue(raw)

	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := s.Store(key, value); err != nil {
		return err
	}
	return s.Persist()
}

// parseValue decodes raw as JSON, falling back to the raw string. JSON null is
// kept as the literal string since nil values cannot be stored.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	return v
}
