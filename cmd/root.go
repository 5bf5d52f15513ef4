package cmd

import (
	"fmt"
	"os"

	"PlayFM/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "playfm_server",
	Short: "PlayFM is a music streaming service backed by object storage.",
	Run: func(cmd *cobra.Command, args []string) {
		// 不带子命令时直接起服务器
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
