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


package ingestqueue

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	"proddesc/internal/docstore"
	"proddesc/internal/extract"
	"proddesc/pkg/config"
	perrors "proddesc/pkg/errors"
	"proddesc/pkg/log"
)

// DefaultPollInterval 无任务时的轮询间隔
const DefaultPollInterval = time.Second

// Ingester 写入文档库，由 docstore.Store 实现
type Ingester interface {
	Ingest(ctx context.Context, doc *docstore.Document) (string, error)
	ChunkCount(documentID string) int
}

// Worker 逐条认领任务并写入文档库；一个文档库只运行一个 Worker，即为唯一写入者
type Worker struct {
	id           string
	queue        Queue
	store        Ingester
	pollInterval time.Duration
	logger       *log.Logger
}

// NewWorker 创建 Worker；pollInterval <= 0 时使用默认值
func NewWorker(queue Queue, store Ingester, pollInterval time.Duration, logger *log.Logger) *Worker {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Worker{
		id:           "ingest-worker-" + uuid.NewString()[:8],
		queue:        queue,
		store:        store,
		pollInterval: pollInterval,
		logger:       log.OrDiscard(logger).Component("ingest_worker"),
	}
}

// ID Worker 标识
func (w *Worker) ID() string { return w.id }

// Run 循环处理任务直到 ctx 取消
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("ingest worker started", "worker_id", w.id, "poll_interval", w.pollInterval.String())
	for {
		processed, err := w.ProcessOne(ctx)
		if err != nil {
			w.logger.Warn("claim ingest task failed", "worker_id", w.id, "error", err)
		}
		if processed && err == nil {
			continue
		}
		select {
		case <-ctx.Done():
			w.logger.Info("ingest worker stopped", "worker_id", w.id)
			return ctx.Err()
		case <-time.After(w.pollInterval):
		}
	}
}

// ProcessOne 认领并执行一条任务；队列为空时返回 false
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	task, err := w.queue.ClaimOne(ctx, w.id)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	docID, err := w.apply(ctx, task.Payload)
	if err != nil {
		w.logger.Warn("ingest task failed", "task_id", task.ID, "client_id", task.Payload.ClientID, "error", err)
		return true, w.queue.MarkFailed(ctx, task.ID, err.Error())
	}
	result := Result{DocumentID: docID, ChunkCount: w.store.ChunkCount(docID)}
	w.logger.Info("ingest task completed", "task_id", task.ID, "document_id", docID, "chunks", result.ChunkCount)
	return true, w.queue.MarkCompleted(ctx, task.ID, result)
}

// apply 将任务内容转为文档并写入
func (w *Worker) apply(ctx context.Context, p Payload) (string, error) {
	var doc *docstore.Document
	if p.ContentBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(p.ContentBase64)
		if err != nil {
			return "", perrors.InvalidArgf("decode content_base64: %v", err)
		}
		doc, err = extract.Document(extract.FileInput{
			ClientID: p.ClientID,
			Filename: p.Filename,
			Data:     data,
			Title:    p.Title,
			Metadata: p.Metadata,
		})
		if err != nil {
			return "", err
		}
	} else {
		doc = docstore.NewDocumentFromText(docstore.TextInput{
			Text:       p.Text,
			ClientID:   p.ClientID,
			Title:      p.Title,
			SourceType: p.SourceType,
			Metadata:   p.Metadata,
		})
	}
	return w.store.Ingest(ctx, doc)
}

// New 按配置创建队列：""/memory 为内存，postgres 为 PostgreSQL
func New(ctx context.Context, cfg config.IngestQueueConfig) (Queue, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryQueue(), nil
	case "postgres":
		return OpenPgQueue(ctx, cfg.DSN)
	default:
		return nil, perrors.Configf("unsupported ingest queue type: %s", cfg.Type)
	}
}

// ParsePollInterval 解析轮询间隔，空串返回默认值
func ParsePollInterval(s string) (time.Duration, error) {
	if s == "" {
		return DefaultPollInterval, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, perrors.Configf("invalid ingest queue poll_interval %q", s)
	}
	return d, nil
}
