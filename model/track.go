package model

import "time"

// DefaultContentType 当对象存储未提供内容类型时使用的默认值
const DefaultContentType = "audio/mpeg"

// Track represents one playable audio object discovered in the bucket.
type Track struct {
	ID           string    `json:"id"`            // 对象的完整路径，同一来源内唯一
	Name         string    `json:"name"`          // 文件名（叶子名）
	FullPath     string    `json:"fullPath"`      // 存储桶内完整对象键
	URL          string    `json:"url,omitempty"` // 可播放的下载URL（可能是短期签名URL）
	ContentType  string    `json:"contentType"`   // 默认 audio/mpeg
	Size         int64     `json:"size"`          // 字节数，未知时为0
	SourceFolder string    `json:"sourceFolder"`  // 发现该文件的路径前缀
	SourceUser   string    `json:"sourceUser"`    // 从路径第二段推导出的归属标记
	Updated      time.Time `json:"updated,omitempty"`
	Created      time.Time `json:"created,omitempty"`
}
