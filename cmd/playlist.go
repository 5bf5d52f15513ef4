package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"PlayFM/apiclient"
	"PlayFM/config"
	"PlayFM/core/playlist"
	"PlayFM/logger"
	"PlayFM/notify"
	"PlayFM/storage"

	"github.com/spf13/cobra"
)

var (
	playlistPaths  []string
	playlistViaAPI bool
)

var playlistCmd = &cobra.Command{
	Use:   "playlist",
	Short: "歌单加载演练",
	Long:  `从指定的文件夹加载歌单并打印播放队列，用于验证存储配置和重试参数，不启动服务器。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.Init(logger.Config{Level: logger.LogLevel(cfg.LogLevel)})

		paths := playlistPaths
		if len(paths) == 0 {
			paths = cfg.DefaultPaths
		}

		var source playlist.TrackSource
		if playlistViaAPI || cfg.MusicSource == "api" {
			fmt.Printf("通过REST代理加载: %s\n", cfg.MusicAPIURL)
			source = apiclient.NewClient(cfg.MusicAPIURL, cfg.URLExpiresIn)
		} else {
			fmt.Println("开始连接MinIO服务器...")
			if err := storage.InitMinio(cfg); err != nil {
				log.Fatalf("无法连接到MinIO: %v", err)
			}
			fmt.Println("MinIO连接成功！")

			store := storage.NewMinioStore(storage.GetMinioClient(), cfg.MinioBucket)
			source = storage.NewGateway(store, notify.LogNotifier{}, storage.Options{
				ListMaxAttempts: cfg.ListMaxAttempts,
				ListRetryDelay:  cfg.ListRetryDelay,
				FileMaxAttempts: cfg.FileMaxAttempts,
				FileRetryDelay:  cfg.FileRetryDelay,
				BatchSize:       cfg.BatchSize,
				BatchPause:      cfg.BatchPause,
				URLExpiry:       time.Duration(cfg.URLExpiresIn) * time.Second,
			})
		}

		agg := playlist.NewAggregator(source, notify.LogNotifier{})

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		start := time.Now()
		if err := agg.LoadPlaylist(ctx, paths...); err != nil {
			log.Fatalf("歌单加载失败: %v", err)
		}

		tracks := agg.Tracks()
		fmt.Printf("\n✅ 歌单加载完成: %d 首，耗时 %s\n\n", len(tracks), time.Since(start).Round(time.Millisecond))

		byFolder := make(map[string]int)
		for i, t := range tracks {
			fmt.Printf("%3d. %s (%s, %.2f MB)\n", i+1, t.Name, t.SourceUser, float64(t.Size)/1024/1024)
			byFolder[t.SourceFolder]++
		}

		fmt.Println("\n📊 按文件夹统计:")
		for folder, count := range byFolder {
			fmt.Printf("  %s: %d 首\n", folder, count)
		}
	},
}

func init() {
	rootCmd.AddCommand(playlistCmd)

	playlistCmd.Flags().StringSliceVarP(&playlistPaths, "paths", "p", nil, "要加载的文件夹路径，可多次指定")
	playlistCmd.Flags().BoolVar(&playlistViaAPI, "api", false, "通过REST代理而不是MinIO SDK加载")

	playlistCmd.Example = `  # 用默认路径加载
  playfm_server playlist

  # 指定多个文件夹
  playfm_server playlist -p users/a/music/ -p users/b/music/

  # 通过REST代理加载
  playfm_server playlist --api -p music/`
}
