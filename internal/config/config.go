package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"retractor-go/internal/logger"
)

// ParserConfig 解析器配置
type ParserConfig struct {
	SkillsFile string `yaml:"skills_file"` // 技能词表 (.csv 或 .xlsx)
	Workers    int    `yaml:"workers"`     // 批量解析并发数，<=0 时取CPU核数
}

// NERConfig 实体识别服务配置
type NERConfig struct {
	ServerURL        string `yaml:"server_url"` // 为空时不做实体识别
	APIKey           string `yaml:"api_key,omitempty"`
	Timeout          string `yaml:"timeout"` // 单次请求超时，例如 "30s"
	QPM              int    `yaml:"qpm"`     // 每分钟请求数限制，<=0 不限流
	Burst            int    `yaml:"burst"`
	MaxRetries       int    `yaml:"max_retries"`
	RetryWaitSeconds int    `yaml:"retry_wait_seconds"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Address  string `yaml:"address"` // 为空时不启用结果缓存
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`
	MinIdleConns int `yaml:"min_idle_conns"`
	// 超时设置(秒)
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
	MaxRetries          int `yaml:"max_retries"`
	// 解析结果缓存过期时间，例如 "24h"
	ResultTTL string `yaml:"result_ttl"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint"` // 为空时不启用对象存储
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL"`
	BucketName      string `yaml:"bucketName"` // 简历原件所在存储桶
	Location        string `yaml:"location"`
}

// RabbitMQConfig RabbitMQ配置
type RabbitMQConfig struct {
	URL              string `yaml:"url"` // 为空时不启动队列消费
	RequestQueue     string `yaml:"request_queue"`
	ResultExchange   string `yaml:"result_exchange"`
	ResultRoutingKey string `yaml:"result_routing_key"`
	ResultQueue      string `yaml:"result_queue"`
	PrefetchCount    int    `yaml:"prefetch_count"`
	ConsumerWorkers  int    `yaml:"consumer_workers"`
	RetryInterval    string `yaml:"retry_interval"`
	MaxRetries       int    `yaml:"max_retries"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Address      string   `yaml:"address"`       // 例如 ":8080"
	APIKeys      []string `yaml:"api_keys"`      // 为空时不校验 X-API-Key
	MaxUploadMB  int      `yaml:"max_upload_mb"` // 上传文件大小上限
	ShutdownWait string   `yaml:"shutdown_wait"` // 优雅退出等待时间
	ReadTimeout  string   `yaml:"read_timeout"`  // 例如 "30s"
	RequestLimit int      `yaml:"request_limit"` // 同时处理的解析请求数，<=0 不限制
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"` // OTLP gRPC 地址
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Config 应用配置
type Config struct {
	Parser   ParserConfig   `yaml:"parser"`
	NER      NERConfig      `yaml:"ner"`
	Redis    RedisConfig    `yaml:"redis"`
	MinIO    MinIOConfig    `yaml:"minio"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Server   ServerConfig   `yaml:"server"`
	Logger   logger.Config  `yaml:"logger"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// searchPaths 未指定配置文件时依次查找的位置
func searchPaths() []string {
	paths := []string{
		"config.yaml",
		filepath.Join("configs", "config.yaml"),
		filepath.Join("..", "configs", "config.yaml"),
		filepath.Join("..", "..", "configs", "config.yaml"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".retractor", "config.yaml"))
	}
	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		paths = append(paths,
			filepath.Join(execDir, "config.yaml"),
			filepath.Join(execDir, "configs", "config.yaml"),
		)
	}
	return paths
}

// LoadConfig 从文件加载配置
// configPath 为空时按 searchPaths 查找，均不存在时返回默认配置
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		for _, path := range searchPaths() {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}
		if configPath == "" {
			cfg := createDefaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 以默认配置为底，文件中出现的字段覆盖默认值
	cfg := createDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 相对路径的词表按配置文件所在目录解析
	if cfg.Parser.SkillsFile != "" && !filepath.IsAbs(cfg.Parser.SkillsFile) {
		if _, err := os.Stat(cfg.Parser.SkillsFile); err != nil {
			candidate := filepath.Join(filepath.Dir(configPath), cfg.Parser.SkillsFile)
			if _, err := os.Stat(candidate); err == nil {
				cfg.Parser.SkillsFile = candidate
			}
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides 环境变量覆盖配置（如果存在）
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RETRACTOR_SKILLS_FILE"); v != "" {
		cfg.Parser.SkillsFile = v
	}
	if v := os.Getenv("RETRACTOR_NER_URL"); v != "" {
		cfg.NER.ServerURL = v
	}
	if v := os.Getenv("RETRACTOR_NER_API_KEY"); v != "" {
		cfg.NER.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDRESS"); v != "" {
		cfg.Redis.Address = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKeyID = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretAccessKey = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		cfg.RabbitMQ.URL = v
	}
	if v := os.Getenv("RETRACTOR_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
	if v := os.Getenv("RETRACTOR_TRACING_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tracing.Enabled = enabled
		}
	}
}

// createDefaultConfig 默认配置，外部服务均不启用
func createDefaultConfig() *Config {
	cfg := &Config{}

	cfg.Parser.SkillsFile = filepath.Join("configs", "skills.csv")
	cfg.Parser.Workers = 0

	cfg.NER.Timeout = "30s"
	cfg.NER.QPM = 600
	cfg.NER.Burst = 20
	cfg.NER.MaxRetries = 2
	cfg.NER.RetryWaitSeconds = 1

	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10
	cfg.Redis.MinIdleConns = 2
	cfg.Redis.DialTimeoutSeconds = 5
	cfg.Redis.ReadTimeoutSeconds = 3
	cfg.Redis.WriteTimeoutSeconds = 3
	cfg.Redis.MaxRetries = 3
	cfg.Redis.ResultTTL = "24h"

	cfg.MinIO.UseSSL = false
	cfg.MinIO.BucketName = "resumes"

	cfg.RabbitMQ.RequestQueue = "q.resume_parse_requests"
	cfg.RabbitMQ.ResultExchange = "resume.parse.exchange"
	cfg.RabbitMQ.ResultRoutingKey = "resume.parsed"
	cfg.RabbitMQ.ResultQueue = "q.resume_parse_results"
	cfg.RabbitMQ.PrefetchCount = 10
	cfg.RabbitMQ.ConsumerWorkers = 4
	cfg.RabbitMQ.RetryInterval = "5s"
	cfg.RabbitMQ.MaxRetries = 3

	cfg.Server.Address = ":8080"
	cfg.Server.MaxUploadMB = 10
	cfg.Server.ShutdownWait = "5s"
	cfg.Server.ReadTimeout = "30s"

	cfg.Logger.Level = "info"
	cfg.Logger.Format = "json"
	cfg.Logger.TimeFormat = time.RFC3339

	cfg.Tracing.ServiceName = "retractor"
	cfg.Tracing.SampleRatio = 1.0
	cfg.Tracing.Insecure = true

	return cfg
}

// Default 返回默认配置的副本
func Default() *Config {
	return createDefaultConfig()
}

// CreateSampleConfig 创建一个示例配置文件，不覆盖已有文件
func CreateSampleConfig(filePath string) error {
	if _, err := os.Stat(filePath); err == nil {
		return fmt.Errorf("文件 '%s' 已存在，不会覆盖", filePath)
	}

	data, err := yaml.Marshal(createDefaultConfig())
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("写入示例配置文件 '%s' 失败: %w", filePath, err)
	}
	return nil
}

// GetDuration 解析配置中的时长字符串，为空或非法时返回默认值
func GetDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	if durationStr == "" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return defaultDuration
	}
	return d
}
