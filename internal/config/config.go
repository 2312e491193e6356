package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"nf-tickets-sol/internal/consts"
	"nf-tickets-sol/internal/pkg/logger"
	"nf-tickets-sol/internal/pkg/mq"
)

type LogConfig struct {
	Format   string `yaml:"format"`   // 日志格式，支持 "console" 或 "json"
	LogDir   string `yaml:"log_dir"`  // 日志目录（可为相对路径或绝对路径）
	Level    string `yaml:"level"`    // 日志级别：debug / info / warn / error
	Compress bool   `yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// SolanaConfig 链上 RPC 与程序相关配置
type SolanaConfig struct {
	RpcEndpoint      string `yaml:"rpc_endpoint"`       // RPC 地址，例如 https://api.devnet.solana.com
	ProgramID        string `yaml:"program_id"`         // NF-Tickets 程序地址，为空时使用 devnet 部署地址
	ConfirmTimeoutMs int    `yaml:"confirm_timeout_ms"` // 等待确认的最长时间（毫秒），超时视为结果未知
	PollIntervalMs   int    `yaml:"poll_interval_ms"`   // 查询签名状态的间隔（毫秒）
	ManagerCacheSize int    `yaml:"manager_cache_size"` // manager 存在性缓存容量
}

func (c *SolanaConfig) ConfirmTimeout() time.Duration {
	return time.Duration(c.ConfirmTimeoutMs) * time.Millisecond
}

func (c *SolanaConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置（brokers 为空时不启用）
type KafkaProducerConfig struct {
	Brokers       string `yaml:"brokers"`         // Kafka broker 地址，多个用英文逗号分隔
	BatchSize     int    `yaml:"batch_size"`      // 批处理大小（单位字节）
	LingerMs      int    `yaml:"linger_ms"`       // 批处理最大延迟（毫秒）
	SendTimeoutMs int    `yaml:"send_timeout_ms"` // 单条消息等待 ack 的超时时间

	Topics struct {
		Reconcile string `yaml:"reconcile"` // 待对账信号 topic
	} `yaml:"topics"`

	Partitions struct {
		Reconcile int `yaml:"reconcile"`
	} `yaml:"partitions"`
}

func (c *KafkaProducerConfig) Enabled() bool {
	return c.Brokers != ""
}

func (c *KafkaProducerConfig) ToKafkaOption() mq.KafkaProducerOption {
	return mq.KafkaProducerOption{
		Brokers:   c.Brokers,
		BatchSize: c.BatchSize,
		LingerMs:  c.LingerMs,
		Topics: []mq.TopicSpec{
			{Topic: c.Topics.Reconcile, Partitions: c.Partitions.Reconcile},
		},
	}
}

// ReconcileConfig 后台对账任务配置
type ReconcileConfig struct {
	IntervalSec     int `yaml:"interval_sec"`      // 扫描待对账队列的间隔（秒）
	BatchSize       int `yaml:"batch_size"`        // 每轮最多处理的信号数
	WriteRetries    int `yaml:"write_retries"`     // 单条信号写库重试次数
	AlertAttempts   int `yaml:"alert_attempts"`    // 超过该轮数仍未成功时升级告警
	PendingTTLHours int `yaml:"pending_ttl_hours"` // 提交记录在 Redis 中的保留时间
}

// Config 是主配置结构体
type Config struct {
	LogConf           LogConfig           `yaml:"logger"`
	SolanaConf        SolanaConfig        `yaml:"solana"`
	KafkaProducerConf KafkaProducerConfig `yaml:"kafka_producer"`
	ReconcileConf     ReconcileConfig     `yaml:"reconcile"`

	RedisAddr   string `yaml:"redis_addr"`   // Redis 地址（提交记录 + 对账队列），为空时使用进程内实现
	PostgresDSN string `yaml:"postgres_dsn"` // PostgreSQL 数据源
	MetricsAddr string `yaml:"metrics_addr"` // prometheus 指标监听地址，为空不启用
}

// Load 读取 yaml 配置文件，补齐默认值并校验必填项
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func MustLoad(path string) *Config {
	c, err := Load(path)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Config) applyDefaults() {
	if c.SolanaConf.ProgramID == "" {
		c.SolanaConf.ProgramID = consts.NFTicketsDevnetProgramStr
	}
	if c.SolanaConf.ConfirmTimeoutMs <= 0 {
		c.SolanaConf.ConfirmTimeoutMs = 60_000
	}
	if c.SolanaConf.PollIntervalMs <= 0 {
		c.SolanaConf.PollIntervalMs = 500
	}
	if c.SolanaConf.ManagerCacheSize <= 0 {
		c.SolanaConf.ManagerCacheSize = 100_000
	}
	if c.KafkaProducerConf.Topics.Reconcile == "" {
		c.KafkaProducerConf.Topics.Reconcile = "nftickets-reconcile"
	}
	if c.KafkaProducerConf.Partitions.Reconcile <= 0 {
		c.KafkaProducerConf.Partitions.Reconcile = 1
	}
	if c.KafkaProducerConf.SendTimeoutMs <= 0 {
		c.KafkaProducerConf.SendTimeoutMs = 5_000
	}
	if c.ReconcileConf.IntervalSec <= 0 {
		c.ReconcileConf.IntervalSec = 30
	}
	if c.ReconcileConf.BatchSize <= 0 {
		c.ReconcileConf.BatchSize = 100
	}
	if c.ReconcileConf.WriteRetries <= 0 {
		c.ReconcileConf.WriteRetries = 3
	}
	if c.ReconcileConf.AlertAttempts <= 0 {
		c.ReconcileConf.AlertAttempts = 10
	}
	if c.ReconcileConf.PendingTTLHours <= 0 {
		c.ReconcileConf.PendingTTLHours = 72
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.SolanaConf.RpcEndpoint == "" {
		errs = append(errs, errors.New("solana.rpc_endpoint is required"))
	}
	if c.PostgresDSN == "" {
		errs = append(errs, errors.New("postgres_dsn is required"))
	}
	if c.SolanaConf.PollIntervalMs >= c.SolanaConf.ConfirmTimeoutMs {
		errs = append(errs, errors.New("solana.poll_interval_ms must be smaller than confirm_timeout_ms"))
	}
	return errors.Join(errs...)
}
