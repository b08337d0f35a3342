// Package cache 检索结果缓存：内存与 Redis 两种实现
package cache

import (
	"context"
	"fmt"
	"time"

	perrors "proddesc/pkg/errors"
)

// ErrMiss 键不存在或已过期；errors.Is(err, perrors.ErrNotFound) 同样成立
var ErrMiss = fmt.Errorf("cache miss: %w", perrors.ErrNotFound)

// Store 缓存存储接口；值以 JSON 编码保存
type Store interface {
	// Set 写入，ttl <= 0 表示不过期
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Get 读取并解码到 dest；未命中返回 ErrMiss
	Get(ctx context.Context, key string, dest interface{}) error
	// Delete 删除，键不存在不报错
	Delete(ctx context.Context, key string) error
	// Exists 键是否存在且未过期
	Exists(ctx context.Context, key string) (bool, error)
	// Clear 清空本实例写入的全部键
	Clear(ctx context.Context) error
	// Close 释放连接
	Close() error
}
