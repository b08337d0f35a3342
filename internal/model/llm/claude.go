package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	defaultClaudeModel     = "claude-3-5-sonnet-20241022"
	defaultClaudeBaseURL   = "https://api.anthropic.com/v1"
	defaultClaudeMaxTokens = 4096
	anthropicVersion       = "2023-06-01"
)

// ClaudeClient Anthropic Messages API 客户端
type ClaudeClient struct {
	model   string
	apiKey  string
	baseURL string
	client  *resty.Client
}

// NewClaudeClient 创建 Claude 客户端
func NewClaudeClient(cfg Config) *ClaudeClient {
	model := cfg.Model
	if model == "" {
		model = defaultClaudeModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultClaudeBaseURL
	}
	return &ClaudeClient{
		model:   model,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newRestyClient(cfg.Timeout),
	}
}

// Generate 调用 messages；max_tokens 为必填，未设置时使用默认值
func (c *ClaudeClient) Generate(ctx context.Context, prompt string, options GenerateOptions) (string, error) {
	maxTokens := options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}
	request := map[string]interface{}{
		"model":       c.model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": options.Temperature,
		"max_tokens":  maxTokens,
	}
	if len(options.Stop) > 0 {
		request["stop_sequences"] = options.Stop
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", c.apiKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetBody(request).
		Post(c.baseURL + "/messages")
	if err != nil {
		return "", fmt.Errorf("call claude api: %w", err)
	}
	if err := checkResponse(ProviderClaude, response); err != nil {
		return "", err
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return "", fmt.Errorf("decode claude response: %w", err)
	}
	var b strings.Builder
	for _, part := range result.Content {
		if part.Type == "" || part.Type == "text" {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("claude api returned no text")
	}
	return b.String(), nil
}

// Model 返回模型名称
func (c *ClaudeClient) Model() string { return c.model }

// Provider 返回提供商名称
func (c *ClaudeClient) Provider() string { return ProviderClaude }

// Pricing 返回模型单价
func (c *ClaudeClient) Pricing() Pricing { return PricingFor(ProviderClaude, c.model) }
