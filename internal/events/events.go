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


// Package events 批处理结果事件发布
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"proddesc/pkg/config"
	perrors "proddesc/pkg/errors"
	"proddesc/pkg/log"
)

// 事件类型
const (
	TypeBatchItemCompleted = "batch.item.completed"
	TypeBatchCompleted     = "batch.completed"
)

// Event 一条事件
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Key       string          `json:"key,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent 序列化 payload 并生成事件
func NewEvent(eventType, key string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, perrors.Wrapf(err, "marshal %s payload", eventType)
	}
	return Event{
		ID:        "evt-" + uuid.NewString(),
		Type:      eventType,
		Key:       key,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Publisher 事件发布
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// LogPublisher 仅写日志
type LogPublisher struct {
	logger *log.Logger
}

// NewLogPublisher 创建日志发布器
func NewLogPublisher(l *log.Logger) *LogPublisher {
	return &LogPublisher{logger: log.OrDiscard(l).Component("events")}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.logger.Info("event published", "id", ev.ID, "type", ev.Type, "key", ev.Key, "bytes", len(ev.Payload))
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// MemoryPublisher 内存记录，供测试与本地调试
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryPublisher 创建内存发布器
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

// Events 已发布事件的副本
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

func (p *MemoryPublisher) Close() error { return nil }

// New 按配置创建发布器：""/log 为日志，memory 为内存，amqp 为 RabbitMQ
func New(ctx context.Context, cfg config.EventsConfig, l *log.Logger) (Publisher, error) {
	switch cfg.Type {
	case "", "log":
		return NewLogPublisher(l), nil
	case "memory":
		return NewMemoryPublisher(), nil
	case "amqp":
		if cfg.URL == "" {
			return nil, perrors.Configf("events.url is required for amqp publisher")
		}
		return NewAMQPPublisher(ctx, AMQPConfig{URL: cfg.URL, Exchange: cfg.Exchange})
	default:
		return nil, perrors.Configf("unsupported events type: %s", cfg.Type)
	}
}
