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


package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue 未配置交换机时投递的持久队列
const DefaultQueue = "proddesc.batch_results"

// AMQPConfig RabbitMQ 发布配置
type AMQPConfig struct {
	URL string
	// Exchange 非空时声明 topic 交换机并以事件类型为 routing key；为空时直接投递到 DefaultQueue
	Exchange string
}

// AMQPPublisher 将事件以 JSON 持久消息发布到 RabbitMQ
type AMQPPublisher struct {
	conn     *amqp.Connection
	exchange string

	mu sync.Mutex
	ch *amqp.Channel
}

// NewAMQPPublisher 连接 RabbitMQ 并声明拓扑
func NewAMQPPublisher(ctx context.Context, cfg AMQPConfig) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq failed: %w", err)
	}
	p := &AMQPPublisher{conn: conn, exchange: cfg.Exchange}

	setupCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.declare() }()
	select {
	case <-setupCtx.Done():
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq setup timeout: %w", setupCtx.Err())
	case err := <-done:
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return p, nil
}

func (p *AMQPPublisher) declare() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	if p.exchange != "" {
		err = ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil)
	} else {
		_, err = ch.QueueDeclare(DefaultQueue, true, false, false, false, nil)
	}
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare rabbitmq topology failed: %w", err)
	}
	p.ch = ch
	return nil
}

// Publish 发布事件；amqp.Channel 非并发安全，发布串行进行
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event failed: %w", err)
	}
	exchange, key := p.exchange, ev.Type
	if exchange == "" {
		key = DefaultQueue
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    ev.CreatedAt,
		Body:         body,
		DeliveryMode: amqp.Persistent,
	}); err != nil {
		return fmt.Errorf("publish event failed: %w", err)
	}
	return nil
}

// Close 关闭通道与连接
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	return p.conn.Close()
}
