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

package llm

import (
	"sort"
	"sync"

	perrors "proddesc/pkg/errors"
)

// ModelInfo 可选模型说明
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var catalog = map[string][]ModelInfo{
	ProviderOpenAI: {
		{ID: "gpt-4o", Name: "GPT-4o", Description: "OpenAI's most recent and capable model"},
		{ID: "gpt-4", Name: "GPT-4", Description: "Advanced model with strong reasoning"},
		{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Description: "Fast and inexpensive model"},
	},
	ProviderGemini: {
		{ID: "gemini-2.5-pro-exp-03-25", Name: "Gemini 2.5 Pro", Description: "Google's most recent and capable model"},
		{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro", Description: "Advanced multimodal model"},
		{ID: "gemini-1.0-pro", Name: "Gemini 1.0 Pro", Description: "Fast and inexpensive model"},
	},
	ProviderClaude: {
		{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", Description: "Balanced quality and speed"},
		{ID: "claude-3-opus-20240229", Name: "Claude 3 Opus", Description: "Anthropic's most capable Claude 3 model"},
		{ID: "claude-3-haiku-20240307", Name: "Claude 3 Haiku", Description: "Fast and inexpensive model"},
	},
}

// Registry 持有各提供商配置，按需创建（并缓存）带限流的客户端
type Registry struct {
	defaultProvider string
	configs         map[string]Config
	limiter         *RateLimiter

	mu      sync.Mutex
	clients map[string]Client
}

// NewRegistry 未配置 API Key 的提供商不可用；默认提供商必须可用
func NewRegistry(defaultProvider string, configs map[string]Config, limiter *RateLimiter) (*Registry, error) {
	r := &Registry{
		defaultProvider: defaultProvider,
		configs:         map[string]Config{},
		limiter:         limiter,
		clients:         map[string]Client{},
	}
	for name, cfg := range configs {
		if cfg.APIKey == "" {
			continue
		}
		cfg.Provider = name
		r.configs[name] = cfg
	}
	if _, err := r.Get(defaultProvider, ""); err != nil {
		return nil, err
	}
	return r, nil
}

// Default 返回默认提供商、默认模型的客户端
func (r *Registry) Default() Client {
	c, _ := r.Get(r.defaultProvider, "")
	return c
}

// Get provider 为空时使用默认提供商；model 为空时使用该提供商配置的模型
func (r *Registry) Get(provider, model string) (Client, error) {
	if provider == "" {
		provider = r.defaultProvider
	}
	cfg, ok := r.configs[provider]
	if !ok {
		return nil, perrors.Configf("llm provider %q is not configured", provider)
	}
	if model != "" {
		cfg.Model = model
	}
	key := provider + "/" + cfg.Model

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[key]; ok {
		return c, nil
	}
	inner, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	c := NewRateLimitedClient(inner, r.limiter)
	r.clients[key] = c
	return c, nil
}

// Providers 已配置的提供商（排序）
func (r *Registry) Providers() []string {
	out := make([]string, 0, len(r.configs))
	for name := range r.configs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AvailableModels 已配置提供商的可选模型
func (r *Registry) AvailableModels() map[string][]ModelInfo {
	out := map[string][]ModelInfo{}
	for name := range r.configs {
		out[name] = catalog[name]
	}
	return out
}

// RateLimits 各已配置提供商的限额与当前并发
func (r *Registry) RateLimits() map[string]map[string]interface{} {
	out := map[string]map[string]interface{}{}
	if r.limiter == nil {
		return out
	}
	for _, name := range r.Providers() {
		out[name] = r.limiter.Stats(name)
	}
	return out
}
