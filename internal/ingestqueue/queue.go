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


// Package ingestqueue 异步入库：API 入队，单个 Worker 认领任务并写入文档库
package ingestqueue

import (
	"context"
	"time"

	"proddesc/internal/docstore"
	perrors "proddesc/pkg/errors"
)

// Status 任务状态
type Status string

const (
	StatusPending   Status = "pending"
	StatusClaimed   Status = "claimed"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Payload 入库任务内容：Text 与 ContentBase64 二选一，后者须带 Filename
type Payload struct {
	ClientID      string            `json:"client_id"`
	Title         string            `json:"title,omitempty"`
	SourceType    string            `json:"source_type,omitempty"`
	Text          string            `json:"text,omitempty"`
	Filename      string            `json:"filename,omitempty"`
	ContentBase64 string            `json:"content_base64,omitempty"`
	Metadata      docstore.Metadata `json:"metadata,omitempty"`
}

// Validate 入队前校验
func (p Payload) Validate() error {
	if p.ClientID == "" {
		return perrors.InvalidArgf("client_id is required")
	}
	switch {
	case p.Text != "" && p.ContentBase64 != "":
		return perrors.InvalidArgf("text and content_base64 are mutually exclusive")
	case p.ContentBase64 != "" && p.Filename == "":
		return perrors.InvalidArgf("filename is required with content_base64")
	case p.Text == "" && p.ContentBase64 == "":
		return perrors.InvalidArgf("text or content_base64 is required")
	}
	return nil
}

// Result 完成任务的结果
type Result struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
}

// Task 一条入库任务
type Task struct {
	ID          string     `json:"task_id"`
	Status      Status     `json:"status"`
	Payload     Payload    `json:"-"`
	Result      *Result    `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	WorkerID    string     `json:"worker_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Queue 入库任务队列
type Queue interface {
	// Enqueue 校验并入队，返回任务 ID
	Enqueue(ctx context.Context, payload Payload) (string, error)
	// ClaimOne 按入队顺序原子认领一条 pending 任务；无任务时返回 nil, nil
	ClaimOne(ctx context.Context, workerID string) (*Task, error)
	// MarkCompleted 标记任务完成
	MarkCompleted(ctx context.Context, taskID string, result Result) error
	// MarkFailed 标记任务失败
	MarkFailed(ctx context.Context, taskID string, errMsg string) error
	// Get 查询任务；不存在时返回 ErrNotFound
	Get(ctx context.Context, taskID string) (*Task, error)
	// Close 释放资源
	Close()
}
