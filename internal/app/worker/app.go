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

package worker

import (
	"context"
	"fmt"

	"proddesc/internal/app"
	"proddesc/internal/ingestqueue"
	"proddesc/pkg/log"
	"proddesc/pkg/tracing"
	"proddesc/pkg/utils"
)

// App 独立入库 Worker 应用：消费共享队列（通常为 postgres），是所配置文档库的唯一写入方
type App struct {
	boot   *app.Bootstrap
	logger *log.Logger
	queue  ingestqueue.Queue
	worker *ingestqueue.Worker
	cancel context.CancelFunc
	done   chan struct{}

	tracerShutdown func(context.Context) error
}

// NewApp 创建新的 Worker 应用
func NewApp(ctx context.Context, boot *app.Bootstrap) (*App, error) {
	queue, err := boot.NewIngestQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("初始化入库队列失败: %w", err)
	}
	if _, ok := queue.(*ingestqueue.MemoryQueue); ok {
		boot.Logger.Warn("memory ingest queue is process-local; the worker only sees tasks enqueued in this process")
	}
	w, err := boot.NewIngestWorker(queue)
	if err != nil {
		queue.Close()
		return nil, err
	}
	a := &App{
		boot:   boot,
		logger: boot.Logger.Component("worker"),
		queue:  queue,
		worker: w,
	}

	// 入库 span 经 OTLP/HTTP 导出
	tc := boot.Config.Monitoring.Tracing
	if tc.Enable && tc.ExportEndpoint != "" {
		tp, err := tracing.InitTracer(tracing.OTelConfig{
			ServiceName:    utils.CoalesceString(tc.ServiceName, "proddesc-worker"),
			ExportEndpoint: tc.ExportEndpoint,
			Insecure:       tc.Insecure,
		})
		if err != nil {
			a.logger.Warn("链路追踪初始化失败", "error", err)
		} else {
			a.tracerShutdown = tp.Shutdown
		}
	}
	return a, nil
}

// Start 在后台启动消费循环
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go func() {
		defer close(a.done)
		if err := a.worker.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("入库 worker 异常退出", "error", err)
		}
	}()
	a.logger.Info("worker 应用已启动", "worker_id", a.worker.ID())
	return nil
}

// Shutdown 停止消费并释放资源；正在执行的任务完成后返回
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("关闭 worker 应用")
	if a.cancel != nil {
		a.cancel()
		select {
		case <-a.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if a.tracerShutdown != nil {
		_ = a.tracerShutdown(ctx)
	}
	a.queue.Close()
	if err := a.boot.Close(); err != nil {
		a.logger.Error("释放缓存与文档库锁失败", "error", err)
	}
	a.logger.Info("worker 应用关闭成功")
	return nil
}
