package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Provider ProviderConfig `mapstructure:"provider"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Log      LogConfig      `mapstructure:"log"`
}

// ProviderConfig 行情/基本面数据源配置
type ProviderConfig struct {
	Token     string `mapstructure:"token"`
	BaseURL   string `mapstructure:"base_url"`
	Timeout   int    `mapstructure:"timeout"`
	Retry     int    `mapstructure:"retry"`
	RateLimit int    `mapstructure:"rate_limit"` // 每秒请求数
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type            string `mapstructure:"type"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	Path            string `mapstructure:"path"` // sqlite 文件路径
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	Mode         string   `mapstructure:"mode"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// CacheConfig 基本面缓存配置
type CacheConfig struct {
	Backend          string `mapstructure:"backend"` // database 或 redis
	RedisAddr        string `mapstructure:"redis_addr"`
	RedisPassword    string `mapstructure:"redis_password"`
	RedisDB          int    `mapstructure:"redis_db"`
	LiveTTLHours     int    `mapstructure:"live_ttl_hours"`
	FallbackTTLHours int    `mapstructure:"fallback_ttl_hours"`
	ErrorLogRetain   int    `mapstructure:"error_log_retain_hours"`
	SweepCron        string `mapstructure:"sweep_cron"`
}

// AnalysisConfig 策略分析配置
type AnalysisConfig struct {
	HistoryDays int    `mapstructure:"history_days"`
	Adjust      string `mapstructure:"adjust"`
}

// DefaultsConfig 基本面字段缺失时的默认值
type DefaultsConfig struct {
	PERatio       float64 `mapstructure:"pe_ratio"`
	PBRatio       float64 `mapstructure:"pb_ratio"`
	ROE           float64 `mapstructure:"roe"`
	RevenueGrowth float64 `mapstructure:"revenue_growth"`
	DebtRatio     float64 `mapstructure:"debt_ratio"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// LiveTTL 真实数据缓存有效期
func (c CacheConfig) LiveTTL() time.Duration {
	return time.Duration(c.LiveTTLHours) * time.Hour
}

// FallbackTTL 模拟数据缓存有效期
func (c CacheConfig) FallbackTTL() time.Duration {
	return time.Duration(c.FallbackTTLHours) * time.Hour
}

// ErrorLogRetention 错误日志保留时长
func (c CacheConfig) ErrorLogRetention() time.Duration {
	return time.Duration(c.ErrorLogRetain) * time.Hour
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("STOCK_SIGNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	GlobalConfig = &config
	return &config, nil
}

// Default 返回填充了默认值的配置，测试和无配置文件时使用
func Default() *Config {
	var config Config
	config.Database.Type = "sqlite"
	_ = validateConfig(&config)
	return &config
}

// validateConfig 验证配置
func validateConfig(config *Config) error {
	switch config.Database.Type {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("数据库类型必须是 postgres、mysql 或 sqlite")
	}
	if config.Database.Type == "sqlite" && config.Database.Path == "" {
		config.Database.Path = "stocks.db"
	}

	if config.Server.Port <= 0 {
		config.Server.Port = 8000
	}
	if len(config.Server.AllowOrigins) == 0 {
		config.Server.AllowOrigins = []string{"*"}
	}

	if config.Provider.Timeout <= 0 {
		config.Provider.Timeout = 30
	}
	if config.Provider.Retry < 0 {
		config.Provider.Retry = 0
	}
	if config.Provider.RateLimit <= 0 {
		config.Provider.RateLimit = 5
	}

	switch config.Cache.Backend {
	case "":
		config.Cache.Backend = "database"
	case "database", "redis":
	default:
		return fmt.Errorf("缓存类型必须是 database 或 redis")
	}
	if config.Cache.Backend == "redis" && config.Cache.RedisAddr == "" {
		config.Cache.RedisAddr = "localhost:6379"
	}
	if config.Cache.LiveTTLHours <= 0 {
		config.Cache.LiveTTLHours = 6
	}
	if config.Cache.FallbackTTLHours <= 0 {
		config.Cache.FallbackTTLHours = 1
	}
	if config.Cache.ErrorLogRetain <= 0 {
		config.Cache.ErrorLogRetain = 7 * 24
	}
	if config.Cache.SweepCron == "" {
		config.Cache.SweepCron = "@every 1h"
	}

	if config.Analysis.HistoryDays <= 0 {
		config.Analysis.HistoryDays = 365
	}
	if config.Analysis.Adjust == "" {
		config.Analysis.Adjust = "qfq"
	}

	if config.Defaults.PERatio == 0 {
		config.Defaults.PERatio = 20.0
	}
	if config.Defaults.PBRatio == 0 {
		config.Defaults.PBRatio = 2.0
	}
	if config.Defaults.ROE == 0 {
		config.Defaults.ROE = 15.0
	}
	if config.Defaults.RevenueGrowth == 0 {
		config.Defaults.RevenueGrowth = 10.0
	}
	if config.Defaults.DebtRatio == 0 {
		config.Defaults.DebtRatio = 40.0
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}

	return nil
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=Asia/Shanghai",
			c.Host, c.Port, c.User, c.Password, c.DBName)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	case "sqlite":
		return c.Path
	default:
		return ""
	}
}
