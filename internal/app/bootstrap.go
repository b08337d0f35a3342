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
	"context"
	"errors"
	"fmt"

	"proddesc/internal/docstore"
	"proddesc/internal/events"
	"proddesc/internal/generation"
	"proddesc/internal/ingestqueue"
	"proddesc/internal/retrieval"
	"proddesc/internal/storage/cache"
	"proddesc/pkg/config"
	perrors "proddesc/pkg/errors"
	"proddesc/pkg/log"
	"proddesc/pkg/secrets"
)

// Bootstrap 统一初始化：供 api、worker 与 cli 复用，避免在 cmd 内写装配逻辑
type Bootstrap struct {
	Config    *config.Config
	Logger    *log.Logger
	Store     *docstore.Store
	Cache     cache.Store
	Engine    *retrieval.Engine
	Templates *generation.TemplateSet
}

// NewBootstrap 根据配置创建 Bootstrap（日志、密钥、文档库、缓存、检索、模板）；cfg 为 nil 时取默认配置
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	if err := ResolveSecrets(ctx, cfg); err != nil {
		return nil, fmt.Errorf("解析密钥失败: %w", err)
	}

	store, err := docstore.Open(docstore.Config{
		Root:         cfg.Storage.DocStore.Root,
		ChunkSize:    cfg.Storage.DocStore.ChunkSize,
		ChunkOverlap: cfg.Storage.DocStore.ChunkOverlap,
		ReadOnly:     cfg.Storage.DocStore.ReadOnly,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化文档库失败: %w", err)
	}

	engineOpts := []retrieval.Option{retrieval.WithLogger(logger)}
	resultCache, err := cache.NewCache(ctx, cfg.Storage.Cache)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("初始化缓存失败: %w", err)
	}
	if resultCache != nil {
		ttl, err := cache.ParseTTL(cfg.Storage.Cache.TTL)
		if err != nil {
			_ = resultCache.Close()
			_ = store.Close()
			return nil, err
		}
		engineOpts = append(engineOpts, retrieval.WithCache(resultCache, ttl))
	}

	templates := generation.DefaultTemplates()
	if cfg.Generation.TemplatesFile != "" {
		templates, err = generation.LoadTemplates(cfg.Generation.TemplatesFile)
		if err != nil {
			if resultCache != nil {
				_ = resultCache.Close()
			}
			_ = store.Close()
			return nil, fmt.Errorf("加载分段模板失败: %w", err)
		}
	}

	logger.Info("bootstrap completed",
		"docstore", cfg.Storage.DocStore.Root,
		"read_only", store.ReadOnly(),
		"cache", cfg.Storage.Cache.Type,
		"templates", len(templates.List()))
	return &Bootstrap{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Cache:     resultCache,
		Engine:    retrieval.NewEngine(store, engineOpts...),
		Templates: templates,
	}, nil
}

// NewPublisher 按 events 配置创建批处理结果发布器
func (b *Bootstrap) NewPublisher(ctx context.Context) (events.Publisher, error) {
	return events.New(ctx, b.Config.Events, b.Logger)
}

// NewIngestQueue 按 storage.ingest_queue 配置创建入库队列
func (b *Bootstrap) NewIngestQueue(ctx context.Context) (ingestqueue.Queue, error) {
	return ingestqueue.New(ctx, b.Config.Storage.IngestQueue)
}

// NewIngestWorker 创建消费 queue 的入库 worker；写入本进程的文档库，只读打开时报错
func (b *Bootstrap) NewIngestWorker(queue ingestqueue.Queue) (*ingestqueue.Worker, error) {
	if b.Store.ReadOnly() {
		return nil, perrors.Configf("ingest worker needs a writable document store, %s is opened read-only", b.Config.Storage.DocStore.Root)
	}
	poll, err := ingestqueue.ParsePollInterval(b.Config.Storage.IngestQueue.PollInterval)
	if err != nil {
		return nil, err
	}
	return ingestqueue.NewWorker(queue, b.Store, poll, b.Logger), nil
}

// Close 释放缓存连接与文档库写锁
func (b *Bootstrap) Close() error {
	var cacheErr error
	if b.Cache != nil {
		cacheErr = b.Cache.Close()
	}
	return errors.Join(cacheErr, b.Store.Close())
}

// ResolveSecrets 将配置中的 secret:<path> 引用替换为实际值
func ResolveSecrets(ctx context.Context, cfg *config.Config) error {
	refs := []*string{
		&cfg.Storage.Cache.Password,
		&cfg.Storage.IngestQueue.DSN,
		&cfg.Events.URL,
	}
	needStore := false
	for _, p := range refs {
		needStore = needStore || secrets.IsRef(*p)
	}
	for _, pc := range cfg.Model.Providers {
		needStore = needStore || secrets.IsRef(pc.APIKey)
	}
	if !needStore {
		return nil
	}

	store, err := secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Provider,
		Address:  cfg.Secrets.Address,
		Token:    cfg.Secrets.Token,
		Prefix:   cfg.Secrets.Prefix,
	})
	if err != nil {
		return err
	}
	for _, p := range refs {
		v, err := secrets.Resolve(ctx, store, *p)
		if err != nil {
			return err
		}
		*p = v
	}
	for name, pc := range cfg.Model.Providers {
		v, err := secrets.Resolve(ctx, store, pc.APIKey)
		if err != nil {
			return fmt.Errorf("provider %s: %w", name, err)
		}
		pc.APIKey = v
		cfg.Model.Providers[name] = pc
	}
	return nil
}
