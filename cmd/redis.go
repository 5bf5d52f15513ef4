package cmd

import (
	"fmt"
	"log"

	"PlayFM/cache"
	"PlayFM/config"
	"PlayFM/logger"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis缓存连通性检查",
	Long:  `连接Redis并做一次读写删测试，验证歌单缓存可用。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.Init(logger.Config{Level: logger.LogLevel(cfg.LogLevel)})

		fmt.Printf("连接Redis: %s:%s (db=%d)\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := cache.ConnectRedis(cfg); err != nil {
			log.Fatalf("Redis连接失败: %v", err)
		}
		defer cache.CloseRedis()

		if err := cache.TestRedis(); err != nil {
			log.Fatalf("Redis读写测试失败: %v", err)
		}

		fmt.Println("✅ Redis连接和读写测试通过！")
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
