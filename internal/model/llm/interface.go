package llm

import (
	"context"
	"time"

	perrors "proddesc/pkg/errors"
)

// 支持的提供商
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// Client 文本生成能力：根据提示词生成文本，并报告模型身份与价格
type Client interface {
	// Generate 生成文本
	Generate(ctx context.Context, prompt string, options GenerateOptions) (string, error)
	// Model 返回模型名称
	Model() string
	// Provider 返回提供商名称
	Provider() string
	// Pricing 返回当前模型单价
	Pricing() Pricing
}

// GenerateOptions 生成选项
type GenerateOptions struct {
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	TopP        float64  `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// Config 创建客户端所需配置；APIKey 须已在边界层解析完毕
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// NewClient 按提供商创建客户端；缺少 API Key 或提供商未知时返回配置错误
func NewClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, perrors.Configf("api key for provider %q is not configured", cfg.Provider)
	}
	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg), nil
	case ProviderClaude:
		return NewClaudeClient(cfg), nil
	case ProviderGemini:
		return NewGeminiClient(cfg), nil
	default:
		return nil, perrors.Configf("unsupported llm provider: %s", cfg.Provider)
	}
}
