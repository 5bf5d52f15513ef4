package cmd

import (
	"PlayFM/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动PlayFM服务器",
	Long:  `启动PlayFM音乐系统的HTTP服务器，提供歌单API和签名URL服务`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
