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


package generation

import (
	"context"
	"strconv"
	"sync"

	"proddesc/internal/events"
	perrors "proddesc/pkg/errors"
	"proddesc/pkg/log"
	"proddesc/pkg/metrics"
)

// DefaultBatchWorkers 默认并发数
const DefaultBatchWorkers = 3

// 条目状态
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// BatchOptions 批处理内所有商品共用的选项
type BatchOptions struct {
	ToneStyle       ToneStyle `json:"tone_style"`
	SEOOptimization *bool     `json:"seo_optimization,omitempty"`
	// UseImprovement 为 true 时每个商品执行完整自改进管线，否则只做单次生成
	UseImprovement bool   `json:"use_auto_improvement,omitempty"`
	UseRAG         bool   `json:"use_rag,omitempty"`
	ClientID       string `json:"client_id,omitempty"`
}

// BatchItemResult 单个商品的结果
type BatchItemResult struct {
	ProductName string `json:"product_name"`
	Status      string `json:"status"`
	// 单次生成
	Description string `json:"description,omitempty"`
	// 自改进管线
	OriginalDescription string      `json:"original_description,omitempty"`
	Evaluation          *Evaluation `json:"evaluation,omitempty"`
	ImprovedDescription string      `json:"improved_description,omitempty"`
	Verification        string      `json:"verification,omitempty"`
	Error               string      `json:"error,omitempty"`
}

// BatchSummary 整批完成事件内容
type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// BatchOption 配置 BatchProcessor
type BatchOption func(*BatchProcessor)

// WithBatchWorkers 设置并发数
func WithBatchWorkers(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithPublisher 每个条目完成后发布事件
func WithPublisher(p events.Publisher) BatchOption {
	return func(b *BatchProcessor) { b.publisher = p }
}

// WithBatchLogger 设置日志
func WithBatchLogger(l *log.Logger) BatchOption {
	return func(b *BatchProcessor) { b.logger = log.OrDiscard(l).Component("batch") }
}

// BatchProcessor 以固定大小的工作池并发处理多个商品；条目之间互不影响
type BatchProcessor struct {
	pipeline  *Pipeline
	workers   int
	publisher events.Publisher
	logger    *log.Logger
}

// NewBatchProcessor 创建批处理器
func NewBatchProcessor(pipeline *Pipeline, opts ...BatchOption) (*BatchProcessor, error) {
	if pipeline == nil {
		return nil, perrors.Configf("batch processor requires a generation pipeline")
	}
	b := &BatchProcessor{pipeline: pipeline, workers: DefaultBatchWorkers, logger: log.Discard()}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Process 处理一批商品，结果顺序与输入一致
func (b *BatchProcessor) Process(ctx context.Context, products []Product, opts BatchOptions) []BatchItemResult {
	results := make([]BatchItemResult, len(products))
	if len(products) == 0 {
		return results
	}
	workers := b.workers
	if len(products) < workers {
		workers = len(products)
	}

	var wg sync.WaitGroup
	indexes := make(chan int, len(products))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				metrics.BatchWorkersBusy.Inc()
				results[idx] = b.processOne(ctx, products[idx], opts)
				metrics.BatchWorkersBusy.Dec()
				metrics.BatchItemsTotal.WithLabelValues(results[idx].Status).Inc()
				b.publish(ctx, events.TypeBatchItemCompleted, strconv.Itoa(idx), results[idx])
			}
		}()
	}
	for i := range products {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	summary := Summarize(results)
	b.publish(ctx, events.TypeBatchCompleted, "", summary)
	b.logger.Info("batch completed", "total", summary.Total, "succeeded", summary.Succeeded, "failed", summary.Failed)
	return results
}

// Summarize 统计成功与失败条目
func Summarize(results []BatchItemResult) BatchSummary {
	summary := BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.Status == StatusSuccess {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return summary
}

func (b *BatchProcessor) processOne(ctx context.Context, product Product, opts BatchOptions) BatchItemResult {
	req := Request{
		Product:         product,
		ToneStyle:       opts.ToneStyle,
		SEOOptimization: opts.SEOOptimization,
		UseRAG:          opts.UseRAG,
		ClientID:        opts.ClientID,
	}
	item := BatchItemResult{ProductName: product.Name}
	if err := ctx.Err(); err != nil {
		return b.failed(item, err)
	}

	if opts.UseImprovement {
		res, err := b.pipeline.Run(ctx, req)
		if err != nil {
			return b.failed(item, err)
		}
		item.Status = StatusSuccess
		item.OriginalDescription = res.OriginalDescription
		item.Evaluation = &res.Evaluation
		item.ImprovedDescription = res.ImprovedDescription
		item.Verification = res.Verification
		return item
	}

	desc, err := b.pipeline.Describe(ctx, req)
	if err != nil {
		return b.failed(item, err)
	}
	item.Status = StatusSuccess
	item.Description = desc
	return item
}

func (b *BatchProcessor) failed(item BatchItemResult, err error) BatchItemResult {
	b.logger.Warn("batch item failed", "product", item.ProductName, "error", err)
	item.Status = StatusError
	item.Error = err.Error()
	return item
}

// publish 发布失败只记录日志
func (b *BatchProcessor) publish(ctx context.Context, eventType, key string, payload interface{}) {
	if b.publisher == nil {
		return
	}
	ev, err := events.NewEvent(eventType, key, payload)
	if err == nil {
		err = b.publisher.Publish(ctx, ev)
	}
	if err != nil {
		b.logger.Warn("publish batch event failed", "type", eventType, "key", key, "error", err)
	}
}
