package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"PlayFM/config"
	"PlayFM/logger"
	"PlayFM/notify"
	"PlayFM/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看MinIO存储桶中的文件，支持按前缀列出文件和子文件夹、查看统计信息。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.Init(logger.Config{Level: logger.LogLevel(cfg.LogLevel)})

		fmt.Println("开始连接MinIO服务器...")
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}
		fmt.Println("MinIO连接成功！")

		store := storage.NewMinioStore(storage.GetMinioClient(), cfg.MinioBucket)
		gateway := storage.NewGateway(store, notify.Discard{}, storage.DefaultOptions())

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		result, err := gateway.ListContents(ctx, minioPrefix)
		if err != nil {
			log.Fatalf("列出文件失败: %v", err)
		}

		fmt.Printf("\n📋 前缀 %s 下的内容:\n", storage.NormalizePrefix(minioPrefix))
		for _, folder := range result.Subfolders {
			fmt.Printf("  📁 %s\n", folder)
		}

		var totalSize int64
		var audioCount int
		for _, item := range result.Items {
			marker := "  "
			if storage.IsAudioFile(item.Name) {
				marker = "🎵"
				audioCount++
			}
			fmt.Printf("  %s %s (%s)\n", marker, item.Name, formatSize(item.Size))
			totalSize += item.Size
		}

		if minioStats {
			fmt.Printf("\n=== 统计信息 ===\n")
			fmt.Printf("子文件夹: %d\n", len(result.Subfolders))
			fmt.Printf("文件总数: %d（其中音频 %d）\n", len(result.Items), audioCount)
			fmt.Printf("总大小: %s\n", formatSize(totalSize))
		}

		fmt.Println("\nMinIO操作完成！")
	},
}

// formatSize 格式化文件大小
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "要查看的目录前缀")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "显示统计信息")

	minioCmd.Example = `  # 列出根目录下的内容
  playfm_server minio

  # 按前缀查看并显示统计
  playfm_server minio -p "users/a/music/" -s`
}
