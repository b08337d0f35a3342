// Copyright 2026 fanjia1024
// OpenTelemetry integration for distributed tracing

package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "proddesc"

// OTelConfig OpenTelemetry 配置
type OTelConfig struct {
	ServiceName    string
	ExportEndpoint string
	Insecure       bool
}

// InitTracer 初始化 OpenTelemetry tracer（OTLP/HTTP 导出）
func InitTracer(config OTelConfig) (*sdktrace.TracerProvider, error) {
	ctx := context.Background()

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.ExportEndpoint),
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}

// StartStageSpan 开始生成管线阶段 span
func StartStageSpan(ctx context.Context, pipeline string, stage string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "generation.stage",
		trace.WithAttributes(
			attribute.String("pipeline", pipeline),
			attribute.String("stage", stage),
		),
	)
}

// StartSearchSpan 开始检索 span
func StartSearchSpan(ctx context.Context, clientID string, topK int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "retrieval.search",
		trace.WithAttributes(
			attribute.String("client.id", clientID),
			attribute.Int("top_k", topK),
		),
	)
}

// StartIngestSpan 开始文档入库 span
func StartIngestSpan(ctx context.Context, clientID string, documentID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "docstore.ingest",
		trace.WithAttributes(
			attribute.String("client.id", clientID),
			attribute.String("document.id", documentID),
		),
	)
}

// EndSpan 结束 span；err 非 nil 时记录错误状态
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
