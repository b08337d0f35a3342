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
	"context"
	"time"

	"proddesc/pkg/metrics"
)

// RateLimitedClient 包装任意 Client：调用前限流，成功后记录估算费用
type RateLimitedClient struct {
	inner   Client
	limiter *RateLimiter
}

// NewRateLimitedClient limiter 为 nil 时只记录费用
func NewRateLimitedClient(inner Client, limiter *RateLimiter) *RateLimitedClient {
	return &RateLimitedClient{inner: inner, limiter: limiter}
}

// Generate 实现 Client.Generate
func (c *RateLimitedClient) Generate(ctx context.Context, prompt string, options GenerateOptions) (string, error) {
	provider := c.inner.Provider()
	if c.limiter != nil {
		tokens := EstimateTokens(prompt) + options.MaxTokens
		err := waitObserved(ctx, c.limiter, provider, tokens, func(d time.Duration) {
			metrics.RateLimitWaitSeconds.WithLabelValues("llm", provider).Observe(d.Seconds())
		})
		if err != nil {
			return "", err
		}
		defer c.limiter.Release(provider)
	}

	out, err := c.inner.Generate(ctx, prompt, options)
	if err != nil {
		return "", err
	}
	if cost := EstimateCost(c.inner.Pricing(), prompt, out); cost > 0 {
		metrics.LLMCostUSDTotal.WithLabelValues(provider, c.inner.Model()).Add(cost)
	}
	return out, nil
}

// Model 返回底层模型名称
func (c *RateLimitedClient) Model() string { return c.inner.Model() }

// Provider 返回底层提供商名称
func (c *RateLimitedClient) Provider() string { return c.inner.Provider() }

// Pricing 返回底层模型单价
func (c *RateLimitedClient) Pricing() Pricing { return c.inner.Pricing() }
