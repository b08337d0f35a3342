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
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	perrors "proddesc/pkg/errors"
)

// Schema ingest_tasks 表结构，与 configs/ingest_tasks.sql 一致
const Schema = `CREATE TABLE IF NOT EXISTS ingest_tasks (
    id           TEXT PRIMARY KEY,
    payload      JSONB NOT NULL,
    status       TEXT NOT NULL DEFAULT 'pending',
    worker_id    TEXT,
    result       JSONB,
    error        TEXT,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    claimed_at   TIMESTAMPTZ,
    completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_ingest_tasks_pending ON ingest_tasks (status, created_at);`

// PgQueue PostgreSQL 实现，多个进程可共用同一张表
type PgQueue struct {
	pool *pgxpool.Pool
}

// NewPgQueue 基于已有连接池创建队列
func NewPgQueue(pool *pgxpool.Pool) *PgQueue {
	return &PgQueue{pool: pool}
}

// OpenPgQueue 连接数据库并确保表存在
func OpenPgQueue(ctx context.Context, dsn string) (*PgQueue, error) {
	if dsn == "" {
		return nil, perrors.Configf("storage.ingest_queue.dsn is required for postgres queue")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, perrors.Wrap(err, "connect ingest queue database")
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, perrors.Wrap(err, "create ingest_tasks table")
	}
	return NewPgQueue(pool), nil
}

func (q *PgQueue) Enqueue(ctx context.Context, payload Payload) (string, error) {
	if err := payload.Validate(); err != nil {
		return "", err
	}
	taskID := uuid.NewString()
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	_, err = q.pool.Exec(ctx,
		`INSERT INTO ingest_tasks (id, payload, status) VALUES ($1, $2, 'pending')`,
		taskID, payloadJSON,
	)
	if err != nil {
		return "", perrors.Wrap(err, "enqueue ingest task")
	}
	return taskID, nil
}

// ClaimOne 原子认领最早的一条 pending；SKIP LOCKED 保证并发认领互不阻塞
func (q *PgQueue) ClaimOne(ctx context.Context, workerID string) (*Task, error) {
	var (
		t            Task
		status       string
		payloadBytes []byte
	)
	err := q.pool.QueryRow(ctx,
		`WITH sel AS (
  SELECT id FROM ingest_tasks WHERE status = 'pending' ORDER BY created_at LIMIT 1 FOR UPDATE SKIP LOCKED
)
UPDATE ingest_tasks SET status = 'claimed', worker_id = $1, claimed_at = now()
FROM sel WHERE ingest_tasks.id = sel.id
RETURNING ingest_tasks.id, ingest_tasks.status, ingest_tasks.payload, ingest_tasks.created_at, ingest_tasks.claimed_at`,
		workerID,
	).Scan(&t.ID, &status, &payloadBytes, &t.CreatedAt, &t.ClaimedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, perrors.Wrap(err, "claim ingest task")
	}
	if err := json.Unmarshal(payloadBytes, &t.Payload); err != nil {
		return nil, perrors.Wrapf(err, "decode payload of ingest task %s", t.ID)
	}
	t.Status = Status(status)
	t.WorkerID = workerID
	return &t, nil
}

func (q *PgQueue) MarkCompleted(ctx context.Context, taskID string, result Result) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return q.update(ctx, taskID,
		`UPDATE ingest_tasks SET status = 'completed', result = $1, error = NULL, completed_at = now() WHERE id = $2`,
		resultJSON, taskID,
	)
}

func (q *PgQueue) MarkFailed(ctx context.Context, taskID string, errMsg string) error {
	return q.update(ctx, taskID,
		`UPDATE ingest_tasks SET status = 'failed', error = $1, completed_at = now() WHERE id = $2`,
		errMsg, taskID,
	)
}

func (q *PgQueue) update(ctx context.Context, taskID, sql string, args ...interface{}) error {
	tag, err := q.pool.Exec(ctx, sql, args...)
	if err != nil {
		return perrors.Wrapf(err, "update ingest task %s", taskID)
	}
	if tag.RowsAffected() == 0 {
		return perrors.Wrapf(perrors.ErrNotFound, "ingest task %s", taskID)
	}
	return nil
}

func (q *PgQueue) Get(ctx context.Context, taskID string) (*Task, error) {
	var (
		t           Task
		status      string
		payload     []byte
		resultBytes []byte
		errText     *string
		workerID    *string
		completedAt *time.Time
	)
	err := q.pool.QueryRow(ctx,
		`SELECT id, status, payload, result, error, worker_id, created_at, claimed_at, completed_at FROM ingest_tasks WHERE id = $1`,
		taskID,
	).Scan(&t.ID, &status, &payload, &resultBytes, &errText, &workerID, &t.CreatedAt, &t.ClaimedAt, &completedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.Wrapf(perrors.ErrNotFound, "ingest task %s", taskID)
		}
		return nil, perrors.Wrapf(err, "get ingest task %s", taskID)
	}
	t.Status = Status(status)
	_ = json.Unmarshal(payload, &t.Payload)
	if len(resultBytes) > 0 {
		var r Result
		if err := json.Unmarshal(resultBytes, &r); err == nil {
			t.Result = &r
		}
	}
	if errText != nil {
		t.Error = *errText
	}
	if workerID != nil {
		t.WorkerID = *workerID
	}
	t.CompletedAt = completedAt
	return &t, nil
}

func (q *PgQueue) Close() { q.pool.Close() }
