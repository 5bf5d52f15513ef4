// Package playlist 把一个或多个文件夹的音频文件聚合成一份有序歌单。
package playlist

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"PlayFM/logger"
	"PlayFM/model"
	"PlayFM/notify"
	"PlayFM/storage"
)

// TrackSource 歌单的数据来源：SDK直连网关或REST代理客户端，
// 由配置决定用哪个实现。
type TrackSource interface {
	LoadAudioFiles(ctx context.Context, prefix string) ([]model.Track, error)
}

// ErrInvalidPaths 路径列表为空或含空项时返回，此时不发起任何IO
var ErrInvalidPaths = fmt.Errorf("playlist: 文件夹路径不能为空")

// Aggregator 聚合器独占持有歌单快照。快照整体替换而非增量修改，
// 读取方（播放器）看到的永远是一致的版本。
type Aggregator struct {
	source   TrackSource
	notifier notify.Notifier

	// generation 让后发起的加载作废先发起的加载的写入
	generation atomic.Uint64

	mu     sync.RWMutex
	tracks []model.Track
}

// NewAggregator 创建聚合器
func NewAggregator(source TrackSource, notifier notify.Notifier) *Aggregator {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Aggregator{source: source, notifier: notifier}
}

// Tracks 返回当前歌单的快照
func (a *Aggregator) Tracks() []model.Track {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]model.Track, len(a.tracks))
	copy(out, a.tracks)
	return out
}

// Len 当前歌单长度
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.tracks)
}

// Track 按下标取歌曲，越界时返回false
func (a *Aggregator) Track(index int) (model.Track, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if index < 0 || index >= len(a.tracks) {
		return model.Track{}, false
	}
	return a.tracks[index], true
}

// LoadPlaylist 依次从每个文件夹加载音频文件并聚合成歌单。
// 路径之间严格串行，限制同时向对象存储发出的请求总量；
// 单个文件夹失败只记录并继续，不会中断整次加载。
// 所有文件夹都失败时歌单为空，这不是错误。
func (a *Aggregator) LoadPlaylist(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return ErrInvalidPaths
	}
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			return ErrInvalidPaths
		}
	}

	gen := a.generation.Add(1)

	logger.Info("🎵 开始加载歌单",
		logger.Int("folders", len(paths)),
		logger.Any("paths", paths),
	)

	var allTracks []model.Track
	succeeded := 0
	for i, path := range paths {
		logger.Info("📂 加载文件夹",
			logger.Int("index", i+1),
			logger.Int("total", len(paths)),
			logger.String("path", path),
		)

		tracks, err := a.source.LoadAudioFiles(ctx, path)
		if err != nil {
			// 单个文件夹失败不中断整次加载
			logger.Error("文件夹加载失败，继续下一个",
				logger.String("path", path),
				logger.ErrorField(err),
			)
			a.notifier.Notify(notify.LevelWarn, fmt.Sprintf("无法加载文件夹 %s", path))
			continue
		}
		succeeded++

		// 给每首歌打上来源标记
		sourceUser := SourceUser(path)
		for _, t := range tracks {
			t.SourceFolder = path
			t.SourceUser = sourceUser
			allTracks = append(allTracks, t)
		}
		logger.Info("✅ 文件夹加载完成", logger.String("path", path), logger.Int("files", len(tracks)))
	}

	logger.Info("📊 歌单加载汇总",
		logger.Int("attempted", len(paths)),
		logger.Int("succeeded", succeeded),
		logger.Int("tracks", len(allTracks)),
	)

	// 各文件夹内部已排序，但拼接会打乱全局顺序，需要重排
	storage.SortTracks(allTracks)

	// 写入前检查是否已有更新的加载发起；有则放弃本次结果
	if a.generation.Load() != gen {
		logger.Warn("歌单加载已被更新的请求取代，丢弃结果")
		return nil
	}

	a.mu.Lock()
	a.tracks = allTracks
	a.mu.Unlock()

	if len(allTracks) == 0 {
		a.notifier.Notify(notify.LevelWarn, "⚠️ 所有文件夹均无可用音频文件，歌单为空")
	}
	return nil
}

// AddTrackByURL 把一个外部下载URL追加到歌单。
// URL形如 .../o/<编码后的对象路径>?token=...；不符合时只记录日志。
func (a *Aggregator) AddTrackByURL(rawURL string) {
	name, ok := nameFromDownloadURL(rawURL)
	if !ok {
		logger.Error("❌ 无法从URL中解析出文件名", logger.String("url", rawURL))
		return
	}

	track := model.Track{
		ID:          rawURL,
		Name:        name,
		URL:         rawURL,
		ContentType: model.DefaultContentType,
		SourceUser:  "external",
	}

	a.mu.Lock()
	a.tracks = append(a.tracks, track)
	a.mu.Unlock()

	logger.Info("✅ 已通过URL添加歌曲", logger.String("name", name))
}

// SourceUser 从路径的第二段推导归属用户，如 users/<uid>/music/ → <uid>
func SourceUser(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) > 1 && parts[1] != "" {
		return parts[1]
	}
	return "unknown"
}

// nameFromDownloadURL 从下载URL里取出对象路径的叶子文件名
func nameFromDownloadURL(rawURL string) (string, bool) {
	_, after, found := strings.Cut(rawURL, "/o/")
	if !found {
		return "", false
	}
	encoded, _, _ := strings.Cut(after, "?")
	decoded, err := url.PathUnescape(encoded)
	if err != nil || decoded == "" {
		return "", false
	}
	if idx := strings.LastIndex(decoded, "/"); idx >= 0 {
		decoded = decoded[idx+1:]
	}
	if decoded == "" {
		return "", false
	}
	return decoded, true
}
