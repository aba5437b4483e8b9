package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe <connection-string>",
	Short: "Introspect a live database and print its schema as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, dialect, err := describeConnection(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "dialect: %s\n", dialect)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
