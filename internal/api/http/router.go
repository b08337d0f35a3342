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

package http

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"

	"proddesc/internal/api/http/middleware"
)

// defaultMaxBodyMB 未设置上限时的请求体大小（MB）
const defaultMaxBodyMB = 20

// Router HTTP 路由器
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
	maxBodyMB  int
	rateLimit  int
}

// NewRouter 创建新的 HTTP 路由器
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	return &Router{handler: handler, middleware: mw, maxBodyMB: defaultMaxBodyMB}
}

// SetMaxBodyMB 设置请求体大小上限（MB）
func (r *Router) SetMaxBodyMB(mb int) {
	if mb > 0 {
		r.maxBodyMB = mb
	}
}

// SetRateLimit 设置全局每秒请求数上限；0 表示不限
func (r *Router) SetRateLimit(rps int) {
	r.rateLimit = rps
}

// Build 创建 Hertz 服务并注册全部路由；opts 追加在默认选项之后（如链路追踪）
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	base := []config.Option{
		server.WithHostPorts(addr),
		server.WithMaxRequestBodySize(r.maxBodyMB * 1024 * 1024),
	}
	h := server.Default(append(base, opts...)...)
	h.Use(r.middleware.AccessLog(), r.middleware.CORS(), r.middleware.RateLimit(r.rateLimit))
	r.register(h)
	return h
}

func (r *Router) register(h *server.Hertz) {
	h.GET("/metrics", r.handler.Metrics)

	api := h.Group("/api")
	api.GET("/health", r.handler.HealthCheck)

	// 文档管理
	documents := api.Group("/documents")
	{
		documents.POST("", r.handler.CreateDocument)
		documents.POST("/upload", r.handler.UploadDocument)
		documents.DELETE("/:id", r.handler.DeleteDocument)
	}

	// 客户资料
	clients := api.Group("/clients/:client_id")
	{
		clients.GET("/documents", r.handler.ListClientDocuments)
		clients.DELETE("/documents", r.handler.DeleteClientDocuments)
		clients.GET("/summary", r.handler.ClientSummary)
	}

	api.POST("/search", r.handler.Search)

	// 描述生成
	generate := api.Group("/generate")
	{
		generate.POST("/improved", r.handler.GenerateImproved)
		generate.POST("/sections", r.handler.GenerateSections)
		generate.POST("/batch", r.handler.GenerateBatch)
	}
	api.GET("/templates", r.handler.ListTemplates)
	api.GET("/ai-providers", r.handler.ListProviders)
	api.GET("/tones", r.handler.ListTones)
	api.POST("/tone/analyze", r.handler.AnalyzeTone)
	api.POST("/specs/extract", r.handler.ExtractSpecs)

	// 异步入库
	ingest := api.Group("/ingest/tasks")
	{
		ingest.POST("", r.handler.EnqueueIngest)
		ingest.GET("/:id", r.handler.GetIngestTask)
	}
}
