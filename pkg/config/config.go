// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"proddesc/pkg/utils"
)

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Model      ModelConfig      `mapstructure:"model"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Generation GenerationConfig `mapstructure:"generation"`
	Events     EventsConfig     `mapstructure:"events"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port    int    `mapstructure:"port"`
	Host    string `mapstructure:"host"`
	Timeout string `mapstructure:"timeout"`
	// MaxUploadMB 上传文件大小上限（MB）
	MaxUploadMB int `mapstructure:"max_upload_mb"`
}

// ModelConfig 文本生成模型配置
type ModelConfig struct {
	Provider    string                    `mapstructure:"provider"` // openai | claude | gemini
	Model       string                    `mapstructure:"model"`
	Temperature float64                   `mapstructure:"temperature"`
	MaxTokens   int                       `mapstructure:"max_tokens"`
	Providers   map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig 模型提供商配置
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	DocStore    DocStoreConfig    `mapstructure:"docstore"`
	Cache       CacheConfig       `mapstructure:"cache"`
	IngestQueue IngestQueueConfig `mapstructure:"ingest_queue"`
}

// DocStoreConfig 文档库配置（JSON 文件目录 + 切片参数）
type DocStoreConfig struct {
	Root         string `mapstructure:"root"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
	// ReadOnly 本进程只读文档库，写入由独立 worker 负责
	ReadOnly bool `mapstructure:"read_only"`
}

// CacheConfig 检索结果缓存配置
type CacheConfig struct {
	Type     string `mapstructure:"type"` // none | memory | redis
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	TTL      string `mapstructure:"ttl"` // 如 "5m"
}

// IngestQueueConfig 异步入库队列配置
type IngestQueueConfig struct {
	Type         string `mapstructure:"type"` // memory | postgres
	DSN          string `mapstructure:"dsn"`
	PollInterval string `mapstructure:"poll_interval"`
}

// GenerationConfig 生成管线配置
type GenerationConfig struct {
	BatchWorkers  int    `mapstructure:"batch_workers"`
	SearchTopK    int    `mapstructure:"search_top_k"`
	SectionTopK   int    `mapstructure:"section_top_k"`
	TemplatesFile string `mapstructure:"templates_file"`
}

// EventsConfig 批处理结果事件配置
type EventsConfig struct {
	Type     string `mapstructure:"type"` // log | amqp
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// SecretsConfig 密钥解析配置；api_key 形如 "secret:openai/api_key" 时经此解析
type SecretsConfig struct {
	Provider string `mapstructure:"provider"` // env | vault | memory
	Address  string `mapstructure:"address"`
	Token    string `mapstructure:"token"`
	Prefix   string `mapstructure:"prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// RateLimitsConfig 限流配置
type RateLimitsConfig struct {
	LLM map[string]LLMRateLimitConfig `mapstructure:"llm"`
}

// LLMRateLimitConfig 单个 LLM Provider 的限流配置
type LLMRateLimitConfig struct {
	TokensPerMinute   int     `mapstructure:"tokens_per_minute"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

// 默认值
const (
	DefaultPort         = 8080
	DefaultDocStoreRoot = "data/document_store"
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultBatchWorkers = 3
	DefaultSearchTopK   = 5
	DefaultSectionTopK  = 3
	DefaultProvider     = "openai"
	DefaultTemperature  = 0.7
	DefaultMaxTokens    = 2048
)

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)
	config.ApplyDefaults()
	return &config, nil
}

// Default 返回全部取默认值的配置（无配置文件时使用）
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults 为未设置的字段填充默认值；chunk_overlap 只在 chunk_size 也未设置时取默认
func (c *Config) ApplyDefaults() {
	if c.API.Port <= 0 {
		c.API.Port = DefaultPort
	}
	if c.API.MaxUploadMB <= 0 {
		c.API.MaxUploadMB = 20
	}
	if c.Storage.DocStore.Root == "" {
		c.Storage.DocStore.Root = DefaultDocStoreRoot
	}
	if c.Storage.DocStore.ChunkSize == 0 {
		c.Storage.DocStore.ChunkSize = DefaultChunkSize
		if c.Storage.DocStore.ChunkOverlap == 0 {
			c.Storage.DocStore.ChunkOverlap = DefaultChunkOverlap
		}
	}
	if c.Storage.Cache.Type == "" {
		c.Storage.Cache.Type = "none"
	}
	if c.Storage.IngestQueue.Type == "" {
		c.Storage.IngestQueue.Type = "memory"
	}
	if c.Generation.BatchWorkers <= 0 {
		c.Generation.BatchWorkers = DefaultBatchWorkers
	}
	if c.Generation.SearchTopK <= 0 {
		c.Generation.SearchTopK = DefaultSearchTopK
	}
	if c.Generation.SectionTopK <= 0 {
		c.Generation.SectionTopK = DefaultSectionTopK
	}
	if c.Model.Provider == "" {
		c.Model.Provider = DefaultProvider
	}
	c.Model.Temperature = utils.DefaultFloat(c.Model.Temperature, DefaultTemperature)
	c.Model.MaxTokens = utils.DefaultInt(c.Model.MaxTokens, DefaultMaxTokens)
	if c.Events.Type == "" {
		c.Events.Type = "log"
	}
	if c.Secrets.Provider == "" {
		c.Secrets.Provider = "env"
	}
}

// ProviderSettings 返回当前 provider 的配置
func (c *Config) ProviderSettings() ProviderConfig {
	if c.Model.Providers == nil {
		return ProviderConfig{}
	}
	return c.Model.Providers[c.Model.Provider]
}

// replaceEnvVars 替换配置中形如 ${VAR} 的 API Key
func replaceEnvVars(config *Config) {
	for provider, providerConfig := range config.Model.Providers {
		if strings.HasPrefix(providerConfig.APIKey, "${") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(providerConfig.APIKey, "}"), "${")
			providerConfig.APIKey = os.Getenv(envVar)
			config.Model.Providers[provider] = providerConfig
		}
	}
}
