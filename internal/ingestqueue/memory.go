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
	"sync"
	"time"

	"github.com/google/uuid"

	perrors "proddesc/pkg/errors"
)

// MemoryQueue 进程内队列，单进程部署与测试使用
type MemoryQueue struct {
	mu    sync.Mutex
	order []string
	tasks map[string]*Task
	now   func() time.Time
}

// NewMemoryQueue 创建内存队列
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{tasks: make(map[string]*Task), now: time.Now}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, payload Payload) (string, error) {
	if err := payload.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks[id] = &Task{ID: id, Status: StatusPending, Payload: payload, CreatedAt: q.now()}
	q.order = append(q.order, id)
	return id, nil
}

func (q *MemoryQueue) ClaimOne(ctx context.Context, workerID string) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, id := range q.order {
		t := q.tasks[id]
		if t.Status != StatusPending {
			continue
		}
		now := q.now()
		t.Status = StatusClaimed
		t.WorkerID = workerID
		t.ClaimedAt = &now
		q.order = append(q.order[:i:i], q.order[i+1:]...)
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (q *MemoryQueue) MarkCompleted(ctx context.Context, taskID string, result Result) error {
	return q.finish(taskID, func(t *Task) {
		t.Status = StatusCompleted
		t.Result = &result
		t.Error = ""
	})
}

func (q *MemoryQueue) MarkFailed(ctx context.Context, taskID string, errMsg string) error {
	return q.finish(taskID, func(t *Task) {
		t.Status = StatusFailed
		t.Error = errMsg
	})
}

func (q *MemoryQueue) finish(taskID string, apply func(*Task)) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[taskID]
	if !ok {
		return perrors.Wrapf(perrors.ErrNotFound, "ingest task %s", taskID)
	}
	apply(t)
	now := q.now()
	t.CompletedAt = &now
	return nil
}

func (q *MemoryQueue) Get(ctx context.Context, taskID string) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[taskID]
	if !ok {
		return nil, perrors.Wrapf(perrors.ErrNotFound, "ingest task %s", taskID)
	}
	cp := *t
	return &cp, nil
}

func (q *MemoryQueue) Close() {}
