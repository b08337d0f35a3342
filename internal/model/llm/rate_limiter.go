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
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimitConfig 单个提供商的限流配置
type LimitConfig struct {
	TokensPerMinute   int
	RequestsPerMinute float64
	MaxConcurrent     int
}

// DefaultLimitConfig 未单独配置的提供商使用的限额
var DefaultLimitConfig = LimitConfig{
	TokensPerMinute:   90000,
	RequestsPerMinute: 3500,
	MaxConcurrent:     50,
}

// RateLimiter 按提供商维度的限流：请求速率、token 预算与并发数
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*providerLimiter
	defaults LimitConfig
}

type providerLimiter struct {
	requests  *rate.Limiter
	tokens    *rate.Limiter
	semaphore chan struct{}
	config    LimitConfig
}

// NewRateLimiter 创建限流器；defaults 为 nil 时使用 DefaultLimitConfig
func NewRateLimiter(configs map[string]LimitConfig, defaults *LimitConfig) *RateLimiter {
	l := &RateLimiter{
		limiters: make(map[string]*providerLimiter),
		defaults: DefaultLimitConfig,
	}
	if defaults != nil {
		l.defaults = *defaults
	}
	for provider, cfg := range configs {
		l.limiters[provider] = newProviderLimiter(cfg)
	}
	return l
}

func newProviderLimiter(cfg LimitConfig) *providerLimiter {
	pl := &providerLimiter{config: cfg}
	if cfg.RequestsPerMinute > 0 {
		burst := int(cfg.RequestsPerMinute / 60.0 * 2)
		if burst < 1 {
			burst = 1
		}
		pl.requests = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), burst)
	}
	if cfg.TokensPerMinute > 0 {
		burst := cfg.TokensPerMinute / 60 * 2
		if burst < 1 {
			burst = 1
		}
		pl.tokens = rate.NewLimiter(rate.Limit(float64(cfg.TokensPerMinute)/60.0), burst)
	}
	if cfg.MaxConcurrent > 0 {
		pl.semaphore = make(chan struct{}, cfg.MaxConcurrent)
	}
	return pl
}

func (l *RateLimiter) limiter(provider string) *providerLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	pl, ok := l.limiters[provider]
	if !ok {
		pl = newProviderLimiter(l.defaults)
		l.limiters[provider] = pl
	}
	return pl
}

// Wait 阻塞直到允许发起请求；成功返回后必须调用 Release
func (l *RateLimiter) Wait(ctx context.Context, provider string, estimatedTokens int) error {
	pl := l.limiter(provider)
	if pl.requests != nil {
		if err := pl.requests.Wait(ctx); err != nil {
			return fmt.Errorf("request rate limit wait: %w", err)
		}
	}
	if pl.tokens != nil && estimatedTokens > 0 {
		n := estimatedTokens
		// 超过 burst 的单次请求按 burst 计，否则 WaitN 会直接失败
		if b := pl.tokens.Burst(); n > b {
			n = b
		}
		if err := pl.tokens.WaitN(ctx, n); err != nil {
			return fmt.Errorf("token budget wait: %w", err)
		}
	}
	if pl.semaphore != nil {
		select {
		case pl.semaphore <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Release 释放并发名额
func (l *RateLimiter) Release(provider string) {
	pl := l.limiter(provider)
	if pl.semaphore == nil {
		return
	}
	select {
	case <-pl.semaphore:
	default:
	}
}

// Stats 返回某提供商的限额与当前并发
func (l *RateLimiter) Stats(provider string) map[string]interface{} {
	pl := l.limiter(provider)
	stats := map[string]interface{}{
		"requests_per_minute": pl.config.RequestsPerMinute,
		"tokens_per_minute":   pl.config.TokensPerMinute,
		"max_concurrent":      pl.config.MaxConcurrent,
	}
	if pl.semaphore != nil {
		stats["current_concurrent"] = len(pl.semaphore)
	}
	return stats
}

// waitObserved 记录等待耗时，超过阈值时回调
func waitObserved(ctx context.Context, l *RateLimiter, provider string, tokens int, observe func(time.Duration)) error {
	start := time.Now()
	if err := l.Wait(ctx, provider, tokens); err != nil {
		return err
	}
	if waited := time.Since(start); waited > 100*time.Millisecond {
		observe(waited)
	}
	return nil
}
