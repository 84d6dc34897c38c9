package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var configPaths = []string{
	"configs",
	"../configs",
	"../../configs",
	"../../../configs",
}

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
	"../../../.env",
}

// Load 加载配置
// 1. 加载 .env（敏感信息 + APP_ENV）
// 2. 根据 APP_ENV 加载 configs/{env}.yaml
// 3. 构建最终配置
func Load() *Config {
	// 加载 .env（godotenv.Load 不覆盖已有环境变量）
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	env := parseEnv(getEnv("APP_ENV", "dev"))

	yamlCfg := loadYAMLConfig(env)

	// 从环境变量获取敏感信息
	yamlCfg.Database.Password = os.Getenv("MONGO_ROOT_PASSWORD")
	yamlCfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	yamlCfg.MinIO.AccessKey = os.Getenv("MINIO_ROOT_USER")
	yamlCfg.MinIO.SecretKey = os.Getenv("MINIO_ROOT_PASSWORD")
	yamlCfg.SMTP.Username = os.Getenv("SMTP_USERNAME")
	yamlCfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")

	auth := yamlCfg.Auth
	auth.JWTSecret = os.Getenv("JWT_SECRET")
	auth.AdminEmail = os.Getenv("ADMIN_EMAIL")
	auth.AdminPassword = os.Getenv("ADMIN_PASSWORD")

	return &Config{
		Env:            env,
		DatabaseURL:    buildMongoURI(yamlCfg.Database),
		DatabaseDBName: yamlCfg.Database.Name,
		RedisEnabled:   yamlCfg.Redis.Enabled,
		RedisURL:       buildRedisURL(yamlCfg.Redis),
		APIPort:        yamlCfg.Server.Port,
		PublicURL:      strings.TrimRight(yamlCfg.Server.PublicURL, "/"),
		Auth:           auth,
		MinIO:          yamlCfg.MinIO,
		SMTP:           yamlCfg.SMTP,
	}
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) *YAMLConfig {
	cfg := &YAMLConfig{
		Server:   ServerConfig{Port: "8080", PublicURL: "http://localhost:3000"},
		Database: DatabaseConfig{Host: "localhost", Port: 27017, Name: "blossom_shop"},
		Redis:    RedisConfig{Host: "localhost", Port: 6379, DB: 0},
		MinIO:    MinIOConfig{Bucket: "blossom-shop"},
		SMTP:     SMTPConfig{Port: 587},
		Auth:     AuthConfig{SessionTTL: "720h", ResetTokenTTL: "1h"},
	}

	for _, base := range effectiveConfigPaths(env) {
		path := filepath.Join(base, "common.yaml")
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range effectiveConfigPaths(env) {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	return cfg
}

// effectiveConfigPaths 返回配置文件搜索路径
//
// 优先级：
//  1. CONFIG_DIR 环境变量
//  2. 按 APP_ENV 选择默认路径（生产 /etc/blossom-shop，其余 configs/）
func effectiveConfigPaths(env Environment) []string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return []string{dir}
	}
	if env == EnvProduction {
		return []string{"/etc/blossom-shop"}
	}
	return configPaths
}

// buildMongoURI 构建 MongoDB 连接字符串
func buildMongoURI(db DatabaseConfig) string {
	if db.URI != "" {
		return db.URI
	}
	if db.User != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d",
			db.User, url.QueryEscape(db.Password), db.Host, db.Port)
	}
	return fmt.Sprintf("mongodb://%s:%d", db.Host, db.Port)
}

// buildRedisURL 构建 Redis 连接字符串
func buildRedisURL(r RedisConfig) string {
	if r.URL != "" {
		return r.URL
	}
	if r.Password != "" {
		return fmt.Sprintf("redis://:%s@%s:%d/%d", r.Password, r.Host, r.Port, r.DB)
	}
	return fmt.Sprintf("redis://%s:%d/%d", r.Host, r.Port, r.DB)
}

func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

// String 返回配置摘要（隐藏密码）
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, DB: %s/%s, Redis: %s}",
		c.Env, maskPassword(c.DatabaseURL), c.DatabaseDBName, maskPassword(c.RedisURL))
}

// maskPassword 隐藏密码
func maskPassword(url string) string {
	re := regexp.MustCompile(`(://[^:/]*:)([^@]+)(@)`)
	return re.ReplaceAllString(url, "${1}***${3}")
}
