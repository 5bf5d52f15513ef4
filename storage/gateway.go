package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"PlayFM/core/batch"
	"PlayFM/core/retry"
	"PlayFM/logger"
	"PlayFM/model"
	"PlayFM/notify"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// audioExtensions 识别为音频文件的扩展名
var audioExtensions = []string{".mp3", ".m4a", ".wav", ".ogg", ".flac", ".aac"}

// Options 网关的重试和批处理参数，全部可调
type Options struct {
	ListMaxAttempts int           // 列表调用的最大尝试次数
	ListRetryDelay  time.Duration // 列表调用的退避基础延迟
	FileMaxAttempts int           // 单文件解析的最大尝试次数
	FileRetryDelay  time.Duration // 单文件解析的退避基础延迟
	BatchSize       int           // 并发解析的批大小
	BatchPause      time.Duration // 批次间的停顿
	URLExpiry       time.Duration // 签名URL的默认有效期
}

// DefaultOptions 重试参数的默认值。
// 列表调用最容易被限流所以重试更多、等待更久；
// 单文件失败只丢弃该文件，预算可以小一些。
func DefaultOptions() Options {
	return Options{
		ListMaxAttempts: 3,
		ListRetryDelay:  2000 * time.Millisecond,
		FileMaxAttempts: 2,
		FileRetryDelay:  500 * time.Millisecond,
		BatchSize:       5,
		BatchPause:      200 * time.Millisecond,
		URLExpiry:       time.Hour,
	}
}

// LoadOptions 单次加载的行为开关
type LoadOptions struct {
	IncludeURL bool          // 为false时只返回元数据，不解析URL
	URLExpiry  time.Duration // 为0时使用网关默认值
}

// Gateway 对象存储网关：列出前缀下的音频文件并解析播放URL。
// 文件级失败被完全吸收，只有前缀本身不可达才返回错误。
type Gateway struct {
	store    ObjectStore
	notifier notify.Notifier
	opts     Options
}

// NewGateway 创建网关
func NewGateway(store ObjectStore, notifier notify.Notifier, opts Options) *Gateway {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	if opts.ListMaxAttempts == 0 {
		opts = DefaultOptions()
	}
	return &Gateway{store: store, notifier: notifier, opts: opts}
}

// NormalizePrefix 去掉单个前导/，保证恰好一个尾部/
func NormalizePrefix(prefix string) string {
	prefix = strings.TrimPrefix(prefix, "/")
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

// IsAudioFile 按扩展名判断是否为音频文件（大小写不敏感）
func IsAudioFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range audioExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// LoadAudioFiles 加载前缀下的全部音频文件，含播放URL，按文件名排序
func (g *Gateway) LoadAudioFiles(ctx context.Context, prefix string) ([]model.Track, error) {
	return g.Load(ctx, prefix, LoadOptions{IncludeURL: true})
}

// Load 加载前缀下的音频文件。
// 列表失败返回带分类的 *Error；单个文件解析失败只会减少结果数量。
func (g *Gateway) Load(ctx context.Context, prefix string, lo LoadOptions) ([]model.Track, error) {
	finalPath := NormalizePrefix(prefix)
	expiry := lo.URLExpiry
	if expiry <= 0 {
		expiry = g.opts.URLExpiry
	}

	logger.Info("📂 开始加载音频文件", logger.String("path", finalPath))

	// 列表调用带重试：3次尝试，2秒起步的指数退避。
	// 权限和不存在类错误重试也没用，直接放弃。
	result, err := retry.Do(ctx, g.opts.ListMaxAttempts, g.opts.ListRetryDelay,
		func(ctx context.Context) (*ListResult, error) {
			r, err := g.store.List(ctx, finalPath)
			if err != nil {
				if stErr := classifyErr(finalPath, err, false); !stErr.Transient() {
					return nil, retry.Permanent(stErr)
				}
			}
			return r, err
		})
	if err != nil {
		stErr := classifyErr(finalPath, err, true)
		g.notifier.Notify(notify.LevelError,
			fmt.Sprintf("无法加载文件夹 %s（%s）：%s", finalPath, stErr.Kind, stErr.Hint()))
		logger.Error("列表调用失败", logger.String("path", finalPath), logger.ErrorField(err))
		return nil, stErr
	}

	// 过滤出音频文件
	var audioItems []ObjectItem
	for _, item := range result.Items {
		if IsAudioFile(item.Name) {
			audioItems = append(audioItems, item)
		}
	}

	if len(audioItems) == 0 {
		// 没有音频文件不是错误，但要给出明确信号
		g.notifier.Notify(notify.LevelWarn,
			fmt.Sprintf("⚠️ 文件夹 %s 中没有音频文件（共 %d 个对象）", finalPath, len(result.Items)))
		logger.Warn("文件夹中没有音频文件",
			logger.String("path", finalPath),
			logger.Int("totalObjects", len(result.Items)),
		)
		return []model.Track{}, nil
	}

	logger.Info("✅ 列表调用成功",
		logger.String("path", finalPath),
		logger.Int("audioFiles", len(audioItems)),
	)

	var tracks []model.Track
	if lo.IncludeURL {
		tracks = g.resolveTracks(ctx, audioItems, expiry)
	} else {
		// 不需要URL时直接用列表结果组装，跳过逐文件解析
		for _, item := range audioItems {
			tracks = append(tracks, model.Track{
				ID:          item.FullPath,
				Name:        item.Name,
				FullPath:    item.FullPath,
				ContentType: model.DefaultContentType,
				Size:        item.Size,
				Updated:     item.Updated,
				Created:     item.Updated,
			})
		}
	}

	SortTracks(tracks)

	logger.Info("✅ 音频文件加载完成",
		logger.String("path", finalPath),
		logger.Int("loaded", len(tracks)),
		logger.Int("skipped", len(audioItems)-len(tracks)),
	)
	return tracks, nil
}

// resolveTracks 分批并发解析每个文件的URL和元数据。
// 单个文件重试耗尽后跳过该文件，不影响同批其他文件。
func (g *Gateway) resolveTracks(ctx context.Context, items []ObjectItem, expiry time.Duration) []model.Track {
	results := batch.Map(ctx, items, g.opts.BatchSize, g.opts.BatchPause,
		func(ctx context.Context, item ObjectItem) (model.Track, error) {
			return retry.Do(ctx, g.opts.FileMaxAttempts, g.opts.FileRetryDelay,
				func(ctx context.Context) (model.Track, error) {
					return g.resolveOne(ctx, item, expiry)
				})
		})

	tracks := make([]model.Track, 0, len(items))
	for i, r := range results {
		if r.Skip {
			logger.Warn("文件解析失败，已跳过", logger.String("file", items[i].Name))
			continue
		}
		tracks = append(tracks, r.Value)
	}
	return tracks
}

// resolveOne 解析单个文件的播放URL和元数据
func (g *Gateway) resolveOne(ctx context.Context, item ObjectItem, expiry time.Duration) (model.Track, error) {
	url, err := g.store.ResolveURL(ctx, item.FullPath, expiry)
	if err != nil {
		return model.Track{}, fmt.Errorf("解析URL失败 %s: %w", item.Name, err)
	}

	meta, err := g.store.ResolveMetadata(ctx, item.FullPath)
	if err != nil {
		return model.Track{}, fmt.Errorf("解析元数据失败 %s: %w", item.Name, err)
	}

	contentType := meta.ContentType
	if contentType == "" {
		contentType = model.DefaultContentType
	}

	return model.Track{
		ID:          item.FullPath,
		Name:        item.Name,
		FullPath:    item.FullPath,
		URL:         url,
		ContentType: contentType,
		Size:        meta.Size,
		Updated:     meta.Updated,
		Created:     meta.Created,
	}, nil
}

// ListContents 列出前缀下的文件和子文件夹，供浏览使用
func (g *Gateway) ListContents(ctx context.Context, prefix string) (*ListResult, error) {
	finalPath := NormalizePrefix(prefix)

	result, err := retry.Do(ctx, g.opts.ListMaxAttempts, g.opts.ListRetryDelay,
		func(ctx context.Context) (*ListResult, error) {
			r, err := g.store.List(ctx, finalPath)
			if err != nil {
				if stErr := classifyErr(finalPath, err, false); !stErr.Transient() {
					return nil, retry.Permanent(stErr)
				}
			}
			return r, err
		})
	if err != nil {
		return nil, classifyErr(finalPath, err, true)
	}
	return result, nil
}

// Exists 判断对象是否存在
func (g *Gateway) Exists(ctx context.Context, fullPath string) (bool, error) {
	return g.store.Exists(ctx, fullPath)
}

// ResolveURL 为单个对象签发播放URL
func (g *Gateway) ResolveURL(ctx context.Context, fullPath string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = g.opts.URLExpiry
	}
	return g.store.ResolveURL(ctx, fullPath, expiry)
}

// SortTracks 按文件名升序排序，使用本地化的字符串比较
func SortTracks(tracks []model.Track) {
	c := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(tracks, func(i, j int) bool {
		return c.CompareString(tracks[i].Name, tracks[j].Name) < 0
	})
}
