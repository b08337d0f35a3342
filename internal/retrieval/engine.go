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

// Package retrieval 基于关键词包含计数的客户切片检索
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"proddesc/internal/docstore"
	"proddesc/internal/storage/cache"
	perrors "proddesc/pkg/errors"
	"proddesc/pkg/log"
	"proddesc/pkg/metrics"
	"proddesc/pkg/tracing"
)

// DefaultTopK 默认返回条数
const DefaultTopK = 5

// ChunkSource 检索所需的只读视图，由 docstore.Store 实现
type ChunkSource interface {
	ChunkEntries(keep func(docstore.ChunkEntry) bool) []docstore.ChunkEntry
	LoadChunk(chunkID string) (*docstore.Chunk, error)
	// Version 任何变更后都会改变，且不同进程、不同次打开之间不重复
	Version() string
}

// Query 一次检索请求
type Query struct {
	Text            string
	ClientID        string
	ProductName     string
	ProductCategory string
	// Filters 额外过滤条件，与切片元数据逐键精确匹配
	Filters map[string]string
	TopK    int
}

// QueryInfo 结果中回显的查询
type QueryInfo struct {
	QueryText     string            `json:"query_text"`
	EnrichedQuery string            `json:"enriched_query"`
	Filters       map[string]string `json:"filters"`
	TopK          int               `json:"top_k"`
}

// Result 检索结果；TotalChunks 为截断前的命中数
type Result struct {
	Query       QueryInfo         `json:"query"`
	Chunks      []*docstore.Chunk `json:"chunks"`
	TotalChunks int               `json:"total_chunks"`
	Sources     []string          `json:"sources"`
}

// Option 配置 Engine
type Option func(*Engine)

// WithCache 启用结果缓存
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(e *Engine) {
		e.cache = store
		e.ttl = ttl
	}
}

// WithLogger 设置日志
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = log.OrDiscard(l).Component("retrieval") }
}

// Engine 检索引擎；只读访问文档库，可并发调用
type Engine struct {
	source ChunkSource
	cache  cache.Store
	ttl    time.Duration
	logger *log.Logger
}

// NewEngine 创建检索引擎
func NewEngine(source ChunkSource, opts ...Option) *Engine {
	e := &Engine{source: source, logger: log.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnrichQuery 在查询后追加商品名与类目
func EnrichQuery(text, productName, productCategory string) string {
	enriched := text
	if productName != "" {
		enriched += " for product " + productName
	}
	if productCategory != "" {
		enriched += " in category " + productCategory
	}
	return enriched
}

// Score 统计被内容包含的查询词个数（查询词可重复，内容中多次出现只计一次）
func Score(terms []string, content string) int {
	lower := strings.ToLower(content)
	score := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			score++
		}
	}
	return score
}

type scored struct {
	score int
	chunk *docstore.Chunk
}

// Search 过滤、打分、排序并取前 TopK 条。
// 过滤先于打分，不同客户的切片不会出现在结果中；TopK <= 0 时结果列表为空。
func (e *Engine) Search(ctx context.Context, q Query) (res *Result, err error) {
	start := time.Now()
	outcome := "matched"
	defer func() {
		if err != nil {
			outcome = "error"
		}
		metrics.SearchDuration.Observe(time.Since(start).Seconds())
		metrics.SearchTotal.WithLabelValues(outcome).Inc()
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, span := tracing.StartSearchSpan(ctx, q.ClientID, q.TopK)
	defer func() { tracing.EndSpan(span, err) }()

	info := QueryInfo{
		QueryText:     q.Text,
		EnrichedQuery: EnrichQuery(q.Text, q.ProductName, q.ProductCategory),
		Filters:       buildFilters(q),
		TopK:          q.TopK,
	}

	key := e.cacheKey(info)
	if cached, ok := e.fromCache(ctx, key); ok {
		outcome = "cached"
		return cached, nil
	}

	res, err = e.search(info)
	if err != nil {
		return nil, err
	}
	if res.TotalChunks == 0 {
		outcome = "empty"
	}
	e.toCache(ctx, key, res)

	e.logger.Info("search completed",
		"client_id", q.ClientID,
		"matched", res.TotalChunks,
		"returned", len(res.Chunks))
	return res, nil
}

func buildFilters(q Query) map[string]string {
	filters := make(map[string]string, len(q.Filters)+1)
	for k, v := range q.Filters {
		filters[k] = v
	}
	if q.ClientID != "" {
		filters[docstore.MetaClientID] = q.ClientID
	}
	return filters
}

func (e *Engine) search(info QueryInfo) (*Result, error) {
	clientID, scoped := info.Filters[docstore.MetaClientID]
	entries := e.source.ChunkEntries(func(c docstore.ChunkEntry) bool {
		return !scoped || c.ClientID == clientID
	})

	terms := strings.Fields(strings.ToLower(info.EnrichedQuery))
	var hits []scored
	for _, entry := range entries {
		chunk, err := e.source.LoadChunk(entry.ChunkID)
		if errors.Is(err, perrors.ErrNotFound) {
			e.logger.Debug("chunk record missing, skipped", "chunk_id", entry.ChunkID)
			continue
		}
		if err != nil {
			return nil, perrors.Wrapf(err, "load chunk %s", entry.ChunkID)
		}
		if !matchFilters(chunk, info.Filters) {
			continue
		}
		if s := Score(terms, chunk.Content); s > 0 {
			hits = append(hits, scored{score: s, chunk: chunk})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].chunk.ChunkID > hits[j].chunk.ChunkID
	})

	res := &Result{
		Query:       info,
		Chunks:      []*docstore.Chunk{},
		TotalChunks: len(hits),
		Sources:     []string{},
	}
	seen := map[string]bool{}
	for i := 0; i < len(hits) && i < info.TopK; i++ {
		c := hits[i].chunk
		res.Chunks = append(res.Chunks, c)
		if title := c.Title(); title != "" && !seen[title] {
			seen[title] = true
			res.Sources = append(res.Sources, title)
		}
	}
	return res, nil
}

// matchFilters 每个过滤键都必须与切片元数据中的字符串值相等
func matchFilters(c *docstore.Chunk, filters map[string]string) bool {
	for k, want := range filters {
		got, ok := c.Metadata[k].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// cacheKey 键中包含文档库版本，任何入库、删除或重新打开后旧键自然失效
func (e *Engine) cacheKey(info QueryInfo) string {
	if e.cache == nil {
		return ""
	}
	raw, _ := json.Marshal(info)
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("search:%s:%s", e.source.Version(), hex.EncodeToString(sum[:16]))
}

func (e *Engine) fromCache(ctx context.Context, key string) (*Result, bool) {
	if e.cache == nil {
		return nil, false
	}
	var res Result
	err := e.cache.Get(ctx, key, &res)
	if err == nil {
		return &res, true
	}
	if !errors.Is(err, cache.ErrMiss) {
		e.logger.Warn("search cache read failed", "error", err)
	}
	return nil, false
}

func (e *Engine) toCache(ctx context.Context, key string, res *Result) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, key, res, e.ttl); err != nil {
		e.logger.Warn("search cache write failed", "error", err)
	}
}
