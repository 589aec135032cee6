package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chatrelay",
		Short: "Relay browser chat-completion calls to DeepSeek",
		Long: "chatrelay accepts chat-completion requests from a browser frontend, " +
			"attaches the server-side DEEPSEEK_API_KEY and relays the upstream reply unchanged.",
		SilenceUsage: true,
		RunE:         runServe,
	}

	root.PersistentFlags().String("config", "", "Path to config.toml (default ~/.chatrelay/config.toml)")
	root.PersistentFlags().String("port", "", "Listen address, overrides SERVER_PORT (e.g. :8080)")
	root.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "text", "Log format: text or json")

	root.AddCommand(newServeCmd())
	root.AddCommand(newLogsCmd())
	root.AddCommand(newVersionCmd())
	return root
}
