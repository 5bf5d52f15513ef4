package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PlayFM/cache"
	"PlayFM/config"
	"PlayFM/logger"
	"PlayFM/notify"
	"PlayFM/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
	})

	// 设置服务器超时
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 初始化 MinIO 客户端
	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
	}

	// Redis缓存是可选的：连不上只降级，不拦着服务启动
	if cfg.CacheEnabled {
		if err := cache.ConnectRedis(cfg); err != nil {
			logger.Warn("Redis连接失败，本次运行不使用缓存", logger.ErrorField(err))
			cfg.CacheEnabled = false
		} else {
			defer cache.CloseRedis()
			logger.Info("Successfully connected to Redis")
		}
	}

	store := storage.NewMinioStore(storage.GetMinioClient(), cfg.MinioBucket)
	gateway := storage.NewGateway(store, notify.LogNotifier{}, storage.Options{
		ListMaxAttempts: cfg.ListMaxAttempts,
		ListRetryDelay:  cfg.ListRetryDelay,
		FileMaxAttempts: cfg.FileMaxAttempts,
		FileRetryDelay:  cfg.FileRetryDelay,
		BatchSize:       cfg.BatchSize,
		BatchPause:      cfg.BatchPause,
		URLExpiry:       time.Duration(cfg.URLExpiresIn) * time.Second,
	})

	apiHandler := NewAPIHandler(gateway, cfg)
	server.Handler = NewRouter(apiHandler)

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 在goroutine中启动服务器
	go func() {
		logger.Info("🚀 Music API Server starting", logger.String("port", cfg.ServerPort))
		logger.Info("List music via GET /api/music?paths=<p1,p2>&includeUrl=true")
		logger.Info("Resolve a single URL via GET /api/music/url/<path>")
		logger.Info("Health check via GET /api/health")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	// 等待中断信号
	<-stop
	logger.Info("Shutting down server...")

	// 优雅关闭，最多等5秒
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}

// NewRouter 创建路由器并挂上中间件
func NewRouter(apiHandler *APIHandler) *mux.Router {
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(corsMiddleware)
	// 每个请求分配一个请求ID，方便串联日志
	router.Use(requestIDMiddleware)

	// API Endpoints（url路由必须注册在通配路径之前）
	router.HandleFunc("/api/music", apiHandler.GetMusicHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/music/url/{path:.*}", apiHandler.GetMusicURLHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/music/{path:.*}", apiHandler.GetMusicByPathHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/health", apiHandler.HealthHandler).Methods(http.MethodGet)

	return router
}

// corsMiddleware 允许前端跨域访问
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware 为每个请求生成请求ID并记录访问日志
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request handled",
			logger.String("requestId", requestID),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Duration("elapsed", time.Since(start)),
		)
	})
}
