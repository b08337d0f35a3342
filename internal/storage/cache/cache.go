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

package cache

import (
	"context"
	"time"

	"proddesc/pkg/config"
	perrors "proddesc/pkg/errors"
)

// DefaultTTL 未配置 ttl 时的缓存时长
const DefaultTTL = 5 * time.Minute

// NewCache 按配置创建缓存；type 为 none 时返回 (nil, nil)，调用方按不缓存处理
func NewCache(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		if cfg.Addr == "" {
			return nil, perrors.Configf("cache.addr is required for redis cache")
		}
		return NewRedisStore(ctx, RedisConfig{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	default:
		return nil, perrors.Configf("unsupported cache type: %s", cfg.Type)
	}
}

// ParseTTL 解析 cache.ttl，空值使用 DefaultTTL
func ParseTTL(s string) (time.Duration, error) {
	if s == "" {
		return DefaultTTL, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, perrors.Configf("invalid cache.ttl %q: %v", s, err)
	}
	return d, nil
}
