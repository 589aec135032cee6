package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mandalnilabja/chatrelay/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the chatrelay version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatrelay %s\n", version.Version)
		},
	}
}
