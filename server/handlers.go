package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"PlayFM/cache"
	"PlayFM/config"
	"PlayFM/core/playlist"
	"PlayFM/logger"
	"PlayFM/model"
	"PlayFM/storage"

	"github.com/gorilla/mux"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	gateway *storage.Gateway
	cfg     *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(gateway *storage.Gateway, cfg *config.Config) *APIHandler {
	return &APIHandler{gateway: gateway, cfg: cfg}
}

// musicResponse GET /api/music 的响应体
type musicResponse struct {
	Success bool          `json:"success"`
	Count   int           `json:"count"`
	Files   []model.Track `json:"files"`
	Paths   []string      `json:"paths"`
}

// GetMusicHandler 处理 GET /api/music
//
// Query 参数:
//   - paths: 逗号分隔的文件夹路径（缺省时用配置里的默认路径）
//   - includeUrl: 是否为每个文件签发播放URL（默认false）
//   - expiresIn: 签名URL的有效期秒数（默认3600）
func (h *APIHandler) GetMusicHandler(w http.ResponseWriter, r *http.Request) {
	paths := parsePaths(r.URL.Query().Get("paths"), h.cfg.DefaultPaths)
	includeURL := r.URL.Query().Get("includeUrl") == "true"
	expiresIn := parseExpiresIn(r.URL.Query().Get("expiresIn"))

	logger.Info("📂 Loading music from paths", logger.Any("paths", paths))

	allFiles := []model.Track{}
	for _, folderPath := range paths {
		files, err := h.loadPath(r.Context(), folderPath, includeURL, expiresIn)
		if err != nil {
			// 单个文件夹失败不影响其余文件夹
			logger.Error("❌ Error loading folder",
				logger.String("path", folderPath),
				logger.ErrorField(err),
			)
			continue
		}
		allFiles = append(allFiles, files...)
	}

	storage.SortTracks(allFiles)

	writeJSON(w, http.StatusOK, musicResponse{
		Success: true,
		Count:   len(allFiles),
		Files:   allFiles,
		Paths:   paths,
	})
}

// GetMusicByPathHandler 处理 GET /api/music/{path}，单个路径的变体
func (h *APIHandler) GetMusicByPathHandler(w http.ResponseWriter, r *http.Request) {
	folderPath := mux.Vars(r)["path"]
	if folderPath == "" {
		writeError(w, http.StatusBadRequest, "Path is required")
		return
	}

	includeURL := r.URL.Query().Get("includeUrl") == "true"
	expiresIn := parseExpiresIn(r.URL.Query().Get("expiresIn"))

	files, err := h.loadPath(r.Context(), folderPath, includeURL, expiresIn)
	if err != nil {
		status, msg := statusForStorageErr(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(files),
		"files":   files,
		"path":    storage.NormalizePrefix(folderPath),
	})
}

// GetMusicURLHandler 处理 GET /api/music/url/{path}，为单个文件签发URL
func (h *APIHandler) GetMusicURLHandler(w http.ResponseWriter, r *http.Request) {
	filePath := mux.Vars(r)["path"]
	if filePath == "" {
		writeError(w, http.StatusBadRequest, "File path is required")
		return
	}
	expiresIn := parseExpiresIn(r.URL.Query().Get("expiresIn"))

	exists, err := h.gateway.Exists(r.Context(), filePath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	signedURL, err := h.gateway.ResolveURL(r.Context(), filePath, time.Duration(expiresIn)*time.Second)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate signed URL")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"url":       signedURL,
		"path":      filePath,
		"expiresIn": expiresIn,
	})
}

// HealthHandler 处理 GET /api/health
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// loadPath 加载一个文件夹并打上来源标记，带URL的结果走Redis缓存。
// 只缓存 includeUrl=true 的结果：逐文件签URL才是贵的那条路。
func (h *APIHandler) loadPath(ctx context.Context, folderPath string, includeURL bool, expiresIn int) ([]model.Track, error) {
	cleanPath := storage.NormalizePrefix(folderPath)

	if includeURL && h.cfg.CacheEnabled {
		if tracks, hit, err := cache.GetTrackList(ctx, cleanPath); err == nil && hit {
			logger.Debug("cache hit", logger.String("path", cleanPath))
			return tracks, nil
		}
	}

	tracks, err := h.gateway.Load(ctx, folderPath, storage.LoadOptions{
		IncludeURL: includeURL,
		URLExpiry:  time.Duration(expiresIn) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	sourceUser := playlist.SourceUser(cleanPath)
	for i := range tracks {
		tracks[i].SourceFolder = cleanPath
		tracks[i].SourceUser = sourceUser
	}

	if includeURL && h.cfg.CacheEnabled {
		// 缓存有效期不能超过签名URL的有效期
		ttl := h.cfg.CacheTTL
		if urlTTL := time.Duration(expiresIn) * time.Second / 2; urlTTL < ttl {
			ttl = urlTTL
		}
		if err := cache.SetTrackList(ctx, cleanPath, tracks, ttl); err != nil {
			logger.Warn("failed to cache track list", logger.ErrorField(err))
		}
	}

	return tracks, nil
}

// parsePaths 解析逗号分隔的路径参数，为空时退回默认路径
func parsePaths(raw string, defaults []string) []string {
	if raw == "" {
		return defaults
	}
	var paths []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return defaults
	}
	return paths
}

// parseExpiresIn 解析URL有效期参数，非法值退回3600秒
func parseExpiresIn(raw string) int {
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return 3600
}

// statusForStorageErr 把存储错误分类映射成HTTP状态码
func statusForStorageErr(err error) (int, string) {
	var stErr *storage.Error
	if errors.As(err, &stErr) {
		switch stErr.Kind {
		case storage.KindNotFound:
			return http.StatusNotFound, "Folder not found"
		case storage.KindUnauthorized, storage.KindAccessBlocked:
			return http.StatusForbidden, "Access denied"
		case storage.KindQuotaExceeded:
			return http.StatusInsufficientStorage, "Storage quota exceeded"
		case storage.KindRetryLimit:
			return http.StatusServiceUnavailable, "Storage temporarily unavailable"
		}
	}
	return http.StatusInternalServerError, err.Error()
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}
