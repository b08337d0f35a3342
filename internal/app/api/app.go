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

package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"proddesc/internal/api/http"
	"proddesc/internal/api/http/middleware"
	"proddesc/internal/app"
	"proddesc/internal/events"
	"proddesc/internal/ingestqueue"
	perrors "proddesc/pkg/errors"
	"proddesc/pkg/log"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用（装配 HTTP Router、Handler、Middleware）。
// 文档库可写时本进程是唯一写入方，并在进程内运行入库 worker；
// 只读时只提供查询，入库任务交给独立 worker 消费。
type App struct {
	config       *app.Bootstrap
	router       *http.Router
	hertz        *server.Hertz
	publisher    events.Publisher
	queue        ingestqueue.Queue
	worker       *ingestqueue.Worker
	workerCancel context.CancelFunc
	workerDone   chan struct{}
	otelProvider otelProviderShutdown
}

// NewApp 创建 API 应用；LLM 未配置时生成接口不可用，其余接口照常提供
func NewApp(ctx context.Context, bootstrap *app.Bootstrap) (*App, error) {
	logger := bootstrap.Logger
	readOnly := bootstrap.Store.ReadOnly()
	if readOnly && bootstrap.Config.Storage.IngestQueue.Type == "memory" {
		return nil, perrors.Configf("read-only document store needs an external ingest worker; set storage.ingest_queue.type to postgres")
	}
	handler := http.NewHandler(bootstrap.Store, bootstrap.Engine, logger)

	publisher, err := bootstrap.NewPublisher(ctx)
	if err != nil {
		return nil, fmt.Errorf("初始化事件发布失败: %w", err)
	}
	generators, err := bootstrap.NewGenerators(publisher)
	if err != nil {
		logger.Warn("生成接口不可用", "error", err)
	} else {
		handler.SetGenerators(generators)
	}

	queue, err := bootstrap.NewIngestQueue(ctx)
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("初始化入库队列失败: %w", err)
	}
	handler.SetIngestQueue(queue)
	var worker *ingestqueue.Worker
	if readOnly {
		logger.Info("文档库只读打开，入库任务由独立 worker 处理", "root", bootstrap.Config.Storage.DocStore.Root)
	} else {
		worker, err = bootstrap.NewIngestWorker(queue)
		if err != nil {
			queue.Close()
			_ = publisher.Close()
			return nil, err
		}
	}

	router := http.NewRouter(handler, middleware.NewMiddleware(logger))
	router.SetMaxBodyMB(bootstrap.Config.API.MaxUploadMB)

	return &App{
		config:    bootstrap,
		router:    router,
		publisher: publisher,
		queue:     queue,
		worker:    worker,
	}, nil
}

// Run 启动 HTTP 服务与入库 worker，addr 如 ":8080"
func (a *App) Run(addr string) error {
	a.config.Logger.Info("API 服务启动", "addr", addr)
	cfg := a.config.Config

	// 使用 Hertz slog 扩展，与 bootstrap 配置对齐
	output := os.Stdout
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("打开日志文件失败: %w", err)
		}
		output = f
	}
	levelVar := &slog.LevelVar{}
	levelVar.Set(log.ParseLevel(cfg.Log.Level))
	hertzLogger := hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	)
	hlog.SetLogger(hertzLogger)

	// 可选：启用链路追踪（OpenTelemetry）
	exportEndpoint := cfg.Monitoring.Tracing.ExportEndpoint
	if exportEndpoint == "" {
		exportEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if cfg.Monitoring.Tracing.Enable && exportEndpoint != "" {
		serviceName := cfg.Monitoring.Tracing.ServiceName
		if serviceName == "" {
			serviceName = "proddesc-api"
		}
		opts := []provider.Option{
			provider.WithServiceName(serviceName),
			provider.WithExportEndpoint(exportEndpoint),
		}
		if cfg.Monitoring.Tracing.Insecure {
			opts = append(opts, provider.WithInsecure())
		}
		a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
		tracerOpt, tracerCfg := hertztracing.NewServerTracer()
		a.hertz = a.router.Build(addr, tracerOpt)
		a.hertz.Use(hertztracing.ServerMiddleware(tracerCfg))
		a.config.Logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", exportEndpoint)
	} else {
		a.hertz = a.router.Build(addr)
	}

	if a.worker == nil {
		return a.hertz.Run()
	}
	// 入库 worker 与 HTTP 写接口共享同一文档库，写操作由文档库串行化
	ctx, cancel := context.WithCancel(context.Background())
	a.workerCancel = cancel
	a.workerDone = make(chan struct{})
	go func() {
		defer close(a.workerDone)
		if err := a.worker.Run(ctx); err != nil && ctx.Err() == nil {
			a.config.Logger.Error("入库 worker 异常退出", "error", err)
		}
	}()
	return a.hertz.Run()
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error
	if a.hertz != nil {
		firstErr = a.hertz.Shutdown(ctx)
	}
	if a.workerCancel != nil {
		a.workerCancel()
		select {
		case <-a.workerDone:
		case <-ctx.Done():
		}
	}
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	a.queue.Close()
	if err := a.publisher.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.config.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// ShutdownTimeout 解析 api.timeout 作为优雅关闭超时，无效或空时返回 30s
func ShutdownTimeout(s string) time.Duration {
	return parseDuration(s, 30*time.Second)
}

// parseDuration 解析时长字符串，无效或空时返回 defaultVal
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
