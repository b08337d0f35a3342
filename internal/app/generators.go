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

package app

import (
	"proddesc/internal/events"
	"proddesc/internal/generation"
	"proddesc/internal/model/llm"
)

// Generators 按提供商与模型组装生成管线；客户端由 Registry 缓存并统一限流
type Generators struct {
	boot      *Bootstrap
	registry  *llm.Registry
	publisher events.Publisher
}

// NewGenerators 创建 LLM Registry；默认提供商未配置 API Key 时返回配置错误
func (b *Bootstrap) NewGenerators(publisher events.Publisher) (*Generators, error) {
	cfg := b.Config
	limits := make(map[string]llm.LimitConfig, len(cfg.RateLimits.LLM))
	for provider, l := range cfg.RateLimits.LLM {
		limits[provider] = llm.LimitConfig{
			TokensPerMinute:   l.TokensPerMinute,
			RequestsPerMinute: l.RequestsPerMinute,
			MaxConcurrent:     l.MaxConcurrent,
		}
	}
	clients := make(map[string]llm.Config, len(cfg.Model.Providers))
	for name, pc := range cfg.Model.Providers {
		c := llm.Config{Provider: name, APIKey: pc.APIKey, BaseURL: pc.BaseURL}
		if name == cfg.Model.Provider {
			c.Model = cfg.Model.Model
		}
		clients[name] = c
	}
	registry, err := llm.NewRegistry(cfg.Model.Provider, clients, llm.NewRateLimiter(limits, nil))
	if err != nil {
		return nil, err
	}
	return &Generators{boot: b, registry: registry, publisher: publisher}, nil
}

func (g *Generators) options() llm.GenerateOptions {
	return llm.GenerateOptions{
		Temperature: g.boot.Config.Model.Temperature,
		MaxTokens:   g.boot.Config.Model.MaxTokens,
	}
}

// Client 选定提供商与模型的客户端（已限流）
func (g *Generators) Client(provider, model string) (llm.Client, error) {
	return g.registry.Get(provider, model)
}

// Pipeline 自改进管线
func (g *Generators) Pipeline(provider, model string) (*generation.Pipeline, error) {
	client, err := g.registry.Get(provider, model)
	if err != nil {
		return nil, err
	}
	return generation.NewPipeline(client,
		generation.WithSearcher(g.boot.Engine, g.boot.Config.Generation.SearchTopK),
		generation.WithGenerateOptions(g.options()),
		generation.WithPipelineLogger(g.boot.Logger),
	)
}

// SectionPipeline 分段生成管线
func (g *Generators) SectionPipeline(provider, model string) (*generation.SectionPipeline, error) {
	client, err := g.registry.Get(provider, model)
	if err != nil {
		return nil, err
	}
	return generation.NewSectionPipeline(client,
		generation.WithSectionSearcher(g.boot.Engine, g.boot.Config.Generation.SectionTopK),
		generation.WithTemplates(g.boot.Templates),
		generation.WithSectionGenerateOptions(g.options()),
		generation.WithSectionLogger(g.boot.Logger),
	)
}

// BatchProcessor 批处理器；每个条目完成后发布事件
func (g *Generators) BatchProcessor(provider, model string) (*generation.BatchProcessor, error) {
	pipeline, err := g.Pipeline(provider, model)
	if err != nil {
		return nil, err
	}
	return generation.NewBatchProcessor(pipeline,
		generation.WithBatchWorkers(g.boot.Config.Generation.BatchWorkers),
		generation.WithPublisher(g.publisher),
		generation.WithBatchLogger(g.boot.Logger),
	)
}

// Templates 分段模板
func (g *Generators) Templates() *generation.TemplateSet { return g.boot.Templates }

// AvailableModels 已配置提供商的可选模型
func (g *Generators) AvailableModels() map[string][]llm.ModelInfo {
	return g.registry.AvailableModels()
}

// RateLimits 各提供商的限流状态
func (g *Generators) RateLimits() map[string]map[string]interface{} {
	return g.registry.RateLimits()
}
