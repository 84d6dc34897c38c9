// Package main API Server 入口
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blossom-shop/internal/apiserver/auth"
	"blossom-shop/internal/apiserver/server"
	"blossom-shop/internal/apiserver/upload"
	"blossom-shop/internal/config"
	"blossom-shop/internal/mailer"
	"blossom-shop/internal/shared/cache"
	cacheredis "blossom-shop/internal/shared/cache/redis"
	objstore "blossom-shop/internal/shared/minio"
	"blossom-shop/internal/shared/storage/mongostore"
)

func main() {
	// 加载配置（自动加载 .env，根据 APP_ENV 切换 YAML）
	cfg := config.Load()

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	// 整个服务围绕认证展开，密钥缺失直接拒绝启动
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	authCfg := buildAuthConfig(cfg)

	// 初始化 MongoDB（持久化业务数据）
	store, err := mongostore.NewStore(cfg.DatabaseURL, cfg.DatabaseDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer store.Close()
	log.Println("Connected to MongoDB")

	// 初始化 Redis 商品缓存（可选）
	var productCache cache.ProductCache
	if cfg.RedisEnabled {
		redisCache, err := cacheredis.NewStoreFromURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		productCache = redisCache
	} else {
		log.Println("Redis disabled, product cache is a no-op")
		productCache = cache.NewNoOpCache()
	}

	// 初始化 MinIO 对象存储（可选，未配置时上传接口不可用）
	var objects upload.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		client, err := objstore.NewClient(cfg.MinIO)
		if err != nil {
			log.Fatalf("Failed to create MinIO client: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := client.EnsureBucket(ctx); err != nil {
			cancel()
			log.Fatalf("Failed to ensure MinIO bucket: %v", err)
		}
		cancel()
		objects = client
		log.Println("Connected to MinIO")
	} else {
		log.Println("MinIO not configured, image uploads disabled")
	}

	// 邮件投递：未配置 SMTP 时重置链接只写日志
	var mail mailer.Mailer
	if cfg.SMTP.Host != "" {
		mail = mailer.NewSMTPMailer(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		log.Printf("SMTP mailer enabled via %s", cfg.SMTP.Host)
	} else {
		mail = mailer.NewLogMailer()
		log.Println("SMTP not configured, reset links are logged")
	}

	// 确保初始管理员账号存在
	if err := auth.EnsureAdminUser(store, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.Fatalf("Failed to ensure admin user: %v", err)
	}

	h := server.NewHandler(store, productCache, objects, mail, authCfg, cfg.PublicURL)

	// 业务统计指标采集
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.StartStatsCollector(ctx, time.Minute)

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API Server listening on :%s", cfg.APIPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server stopped")
}

// buildAuthConfig 由配置构造认证参数，TTL 解析失败回退默认值
func buildAuthConfig(cfg *config.Config) auth.Config {
	authCfg := auth.DefaultConfig()
	authCfg.JWTSecret = cfg.Auth.JWTSecret
	if d, err := time.ParseDuration(cfg.Auth.SessionTTL); err == nil && d > 0 {
		authCfg.SessionTTL = d
	} else if cfg.Auth.SessionTTL != "" {
		log.Printf("Invalid session_ttl %q, using default", cfg.Auth.SessionTTL)
	}
	if d, err := time.ParseDuration(cfg.Auth.ResetTokenTTL); err == nil && d > 0 {
		authCfg.ResetTokenTTL = d
	} else if cfg.Auth.ResetTokenTTL != "" {
		log.Printf("Invalid reset_token_ttl %q, using default", cfg.Auth.ResetTokenTTL)
	}
	return authCfg
}
