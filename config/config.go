package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Retry/batch parameters are tunable here on purpose: the listing call and
// the per-object calls tolerate different failure profiles.
type Config struct {
	// HTTP服务
	ServerPort string

	// MinIO对象存储配置
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// 歌单来源：minio（直连SDK）或 api（走REST代理）
	MusicSource string
	MusicAPIURL string

	// 未指定 paths 参数时使用的默认文件夹
	DefaultPaths []string

	// 列表调用的重试配置
	ListMaxAttempts int
	ListRetryDelay  time.Duration

	// 单个文件URL/元数据解析的重试配置
	FileMaxAttempts int
	FileRetryDelay  time.Duration

	// 批处理配置
	BatchSize  int
	BatchPause time.Duration

	// 签名URL的有效期（秒）
	URLExpiresIn int

	// Redis缓存配置
	CacheEnabled  bool
	CacheTTL      time.Duration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// 日志配置
	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvPaths 解析逗号分隔的路径列表，忽略空项
func getEnvPaths(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var paths []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return fallback
	}
	return paths
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() 不会覆盖已有环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"), // 密钥不设默认值
		MinioBucket:    getEnv("MINIO_BUCKET", "playfm"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		MusicSource: getEnv("MUSIC_SOURCE", "minio"),
		MusicAPIURL: getEnv("MUSIC_API_URL", "http://127.0.0.1:8080"),

		DefaultPaths: getEnvPaths("DEFAULT_MUSIC_PATHS", []string{"music/"}),

		ListMaxAttempts: getEnvInt("LIST_MAX_ATTEMPTS", 3),
		ListRetryDelay:  time.Duration(getEnvInt("LIST_RETRY_DELAY_MS", 2000)) * time.Millisecond,
		FileMaxAttempts: getEnvInt("FILE_MAX_ATTEMPTS", 2),
		FileRetryDelay:  time.Duration(getEnvInt("FILE_RETRY_DELAY_MS", 500)) * time.Millisecond,

		BatchSize:  getEnvInt("BATCH_SIZE", 5),
		BatchPause: time.Duration(getEnvInt("BATCH_PAUSE_MS", 200)) * time.Millisecond,

		URLExpiresIn: getEnvInt("URL_EXPIRES_IN", 3600),

		CacheEnabled:  getEnvBool("CACHE_ENABLED", false),
		CacheTTL:      time.Duration(getEnvInt("CACHE_TTL_SECONDS", 600)) * time.Second,
		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""), // 默认无密码
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}
}
