// Package config 统一配置管理
//
// 配置加载优先级（高→低）：
//  1. 环境变量（通过 .env 文件或 shell/systemd 注入）
//  2. YAML 配置文件（{env}.yaml，如 dev.yaml、test.yaml、prod.yaml）
//  3. 代码硬编码默认值
//
// 凭据单一数据源：
//
//	密码/密钥只存在 .env 文件中（YAML 中不存储任何密码）。
//	.env 文件同时被 Docker Compose（--env-file）和 Go 应用（godotenv）共用。
//
// 环境：
//   - 开发: APP_ENV=dev (默认) → configs/dev.yaml
//   - 测试: APP_ENV=test → configs/test.yaml
//   - 生产: APP_ENV=prod → /etc/blossom-shop/prod.yaml
package config

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	MinIO    MinIOConfig    `yaml:"minio"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port string `yaml:"port"` // 监听端口
	// PublicURL 前端对外地址，用于拼接密码重置链接
	PublicURL string `yaml:"public_url"`
}

// AuthConfig 认证配置
// 注意：JWTSecret/AdminEmail/AdminPassword 只从环境变量读取，不存储在 YAML 中
type AuthConfig struct {
	JWTSecret     string `yaml:"-"`               // 只从 JWT_SECRET 环境变量读取
	SessionTTL    string `yaml:"session_ttl"`     // 例如 "720h"（30 天）
	ResetTokenTTL string `yaml:"reset_token_ttl"` // 例如 "1h"
	AdminEmail    string `yaml:"-"`               // 只从 ADMIN_EMAIL 环境变量读取
	AdminPassword string `yaml:"-"`               // 只从 ADMIN_PASSWORD 环境变量读取
}

// DatabaseConfig MongoDB 配置
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // 只从 MONGO_ROOT_PASSWORD 环境变量读取
	Name     string `yaml:"name"`
	URI      string `yaml:"uri"` // 连接 URI（优先于 host/port，如 mongodb://localhost:27017）
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"` // 关闭时商品缓存退化为空实现
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"-"`   // 只从 REDIS_PASSWORD 环境变量读取
	URL      string `yaml:"url"` // 直接指定 URL（优先于 host/port/db）
}

// MinIOConfig MinIO 对象存储配置
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"` // 例如 localhost:9000
	AccessKey string `yaml:"-"`        // 只从 MINIO_ROOT_USER 环境变量读取
	SecretKey string `yaml:"-"`        // 只从 MINIO_ROOT_PASSWORD 环境变量读取
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"` // 默认 bucket 名称
}

// SMTPConfig 邮件投递配置
// Host 为空时不发真实邮件，重置链接只写日志（开发环境）
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"-"` // 只从 SMTP_USERNAME 环境变量读取
	Password string `yaml:"-"` // 只从 SMTP_PASSWORD 环境变量读取
	From     string `yaml:"from"`
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env            Environment
	DatabaseURL    string
	DatabaseDBName string
	RedisEnabled   bool
	RedisURL       string
	APIPort        string
	PublicURL      string
	Auth           AuthConfig
	MinIO          MinIOConfig
	SMTP           SMTPConfig
}
