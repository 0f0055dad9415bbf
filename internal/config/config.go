package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Env          string             `mapstructure:"env"` // 环境: development, production
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Keycloak     KeycloakConfig     `mapstructure:"keycloak"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Log          LogConfig          `mapstructure:"log"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Upload       UploadConfig       `mapstructure:"upload"`
	Workflow     WorkflowConfig     `mapstructure:"workflow"`
	Notification NotificationConfig `mapstructure:"notification"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
	Claims       ClaimsConfig       `mapstructure:"claims"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // sqlite, postgres
	Path            string `mapstructure:"path"`   // sqlite 文件路径,":memory:" 为内存库
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 秒
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 秒
}

// KeycloakConfig Keycloak 配置
// Issuer 为空时不解析审核人身份
type KeycloakConfig struct {
	Issuer  string `mapstructure:"issuer"`
	JWKSURL string `mapstructure:"jwks_url"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error
	Format string `mapstructure:"format"` // 日志格式: json, text
	Output string `mapstructure:"output"` // 输出位置: stdout, file, both
	File   string `mapstructure:"file"`   // output 包含 file 时的文件路径
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Rate    float64 `mapstructure:"rate"`  // 每秒请求数
	Burst   int     `mapstructure:"burst"` // 突发容量
}

// UploadConfig 附件上传配置
type UploadConfig struct {
	Dir     string `mapstructure:"dir"`
	MaxSize int64  `mapstructure:"max_size"` // 字节
}

// WorkflowConfig 审批流程阈值
type WorkflowConfig struct {
	AutoApproveMaxAmount  float64 `mapstructure:"auto_approve_max_amount"`
	AutoApproveMaxHours   float64 `mapstructure:"auto_approve_max_hours"`
	HighAmountThreshold   float64 `mapstructure:"high_amount_threshold"`
	OvertimeHours         float64 `mapstructure:"overtime_hours"`
	MinHourlyRate         float64 `mapstructure:"min_hourly_rate"`
	MaxHourlyRate         float64 `mapstructure:"max_hourly_rate"`
	EnforceTerminalStatus bool    `mapstructure:"enforce_terminal_status"`
}

// NotificationConfig 通知配置
type NotificationConfig struct {
	Workers   int    `mapstructure:"workers"`
	QueueSize int    `mapstructure:"queue_size"`
	NATSURL   string `mapstructure:"nats_url"` // 为空时不启用 NATS
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// ClaimsConfig 报销单配置
type ClaimsConfig struct {
	SeedDemo bool `mapstructure:"seed_demo"`
}

// Load 加载配置,支持配置文件和环境变量
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 如果提供了配置文件路径,从文件加载
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		// 尝试从默认位置加载
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.claims-gin")
		// 忽略配置文件不存在的错误,使用默认值
		_ = v.ReadInConfig()
	}

	// 支持环境变量
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return unmarshal(v)
}

// IsProduction 判断是否为生产环境
func IsProduction(cfg *Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.Env == "production"
}

// Default 返回默认配置
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	cfg, _ := unmarshal(v)
	return cfg
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Workflow.MinHourlyRate > c.Workflow.MaxHourlyRate {
		return fmt.Errorf("workflow.min_hourly_rate (%v) exceeds workflow.max_hourly_rate (%v)",
			c.Workflow.MinHourlyRate, c.Workflow.MaxHourlyRate)
	}
	return nil
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 环境变量
	env := v.GetString("env")
	if env == "" {
		env = os.Getenv("APP_ENV")
		if env == "" {
			env = "development"
		}
	}
	v.SetDefault("env", env)

	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// 数据库默认配置,默认使用 sqlite 保存审计数据
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "claims.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "claims")
	v.SetDefault("database.sslmode", "disable")

	// 数据库连接池配置（根据环境设置默认值）
	if env == "production" {
		v.SetDefault("database.max_idle_conns", 20)
		v.SetDefault("database.max_open_conns", 200)
		v.SetDefault("database.conn_max_lifetime", 3600) // 1 小时
		v.SetDefault("database.conn_max_idle_time", 300) // 5 分钟
	} else {
		v.SetDefault("database.max_idle_conns", 10)
		v.SetDefault("database.max_open_conns", 100)
		v.SetDefault("database.conn_max_lifetime", 3600) // 1 小时
		v.SetDefault("database.conn_max_idle_time", 600) // 10 分钟
	}

	// Keycloak 默认配置
	v.SetDefault("keycloak.issuer", "")
	v.SetDefault("keycloak.jwks_url", "")

	// CORS 默认配置
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization", "X-Request-ID", "X-Reviewer"})
	v.SetDefault("cors.max_age", 86400)

	// 日志配置（根据环境设置默认值）
	if env == "production" {
		v.SetDefault("log.level", "warn")
		v.SetDefault("log.format", "json")
	} else {
		v.SetDefault("log.level", "debug")
		v.SetDefault("log.format", "text")
	}
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/claims-gin.log")

	// 限流
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rate", 20)
	v.SetDefault("rate_limit.burst", 40)

	// 附件上传
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_size", 10*1024*1024)

	// 审批流程阈值
	v.SetDefault("workflow.auto_approve_max_amount", 1000)
	v.SetDefault("workflow.auto_approve_max_hours", 10)
	v.SetDefault("workflow.high_amount_threshold", 5000)
	v.SetDefault("workflow.overtime_hours", 40)
	v.SetDefault("workflow.min_hourly_rate", 30)
	v.SetDefault("workflow.max_hourly_rate", 200)
	v.SetDefault("workflow.enforce_terminal_status", true)

	// 通知
	v.SetDefault("notification.workers", 2)
	v.SetDefault("notification.queue_size", 1000)
	v.SetDefault("notification.nats_url", "")

	// 链路追踪
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "claims-gin")
	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")

	v.SetDefault("claims.seed_demo", false)
}
