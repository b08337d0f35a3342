package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	defaultGeminiModel   = "gemini-1.5-pro"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// GeminiClient Google Gemini generateContent 客户端
type GeminiClient struct {
	model   string
	apiKey  string
	baseURL string
	client  *resty.Client
}

// NewGeminiClient 创建 Gemini 客户端
func NewGeminiClient(cfg Config) *GeminiClient {
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiClient{
		model:   model,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newRestyClient(cfg.Timeout),
	}
}

// Generate 调用 generateContent；生成参数放在 generationConfig 中
func (c *GeminiClient) Generate(ctx context.Context, prompt string, options GenerateOptions) (string, error) {
	genConfig := map[string]interface{}{
		"temperature": options.Temperature,
	}
	if options.MaxTokens > 0 {
		genConfig["maxOutputTokens"] = options.MaxTokens
	}
	if options.TopP > 0 {
		genConfig["topP"] = options.TopP
	}
	if len(options.Stop) > 0 {
		genConfig["stopSequences"] = options.Stop
	}
	request := map[string]interface{}{
		"contents": []map[string]interface{}{{
			"role":  "user",
			"parts": []map[string]string{{"text": prompt}},
		}},
		"generationConfig": genConfig,
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", c.apiKey).
		SetBody(request).
		Post(c.baseURL + "/models/" + url.PathEscape(c.model) + ":generateContent")
	if err != nil {
		return "", fmt.Errorf("call gemini api: %w", err)
	}
	if err := checkResponse(ProviderGemini, response); err != nil {
		return "", err
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini api returned no text")
	}
	var b strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

// Model 返回模型名称
func (c *GeminiClient) Model() string { return c.model }

// Provider 返回提供商名称
func (c *GeminiClient) Provider() string { return ProviderGemini }

// Pricing 返回模型单价
func (c *GeminiClient) Pricing() Pricing { return PricingFor(ProviderGemini, c.model) }
