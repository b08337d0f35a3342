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

// Package http 基于 Hertz 的薄 HTTP 适配层：文档入库、检索、描述生成与异步入库任务
package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"proddesc/internal/docstore"
	"proddesc/internal/extract"
	"proddesc/internal/generation"
	"proddesc/internal/ingestqueue"
	"proddesc/internal/model/llm"
	"proddesc/internal/retrieval"
	perrors "proddesc/pkg/errors"
	"proddesc/pkg/log"
	"proddesc/pkg/metrics"
)

// Generators 按请求选择的提供商与模型创建生成管线；provider、model 为空时取默认
type Generators interface {
	Pipeline(provider, model string) (*generation.Pipeline, error)
	SectionPipeline(provider, model string) (*generation.SectionPipeline, error)
	BatchProcessor(provider, model string) (*generation.BatchProcessor, error)
	Client(provider, model string) (llm.Client, error)
	Templates() *generation.TemplateSet
	AvailableModels() map[string][]llm.ModelInfo
	RateLimits() map[string]map[string]interface{}
}

// Handler HTTP 处理器
type Handler struct {
	store      *docstore.Store
	engine     *retrieval.Engine
	generators Generators
	queue      ingestqueue.Queue
	logger     *log.Logger
}

// NewHandler 创建新的 HTTP 处理器
func NewHandler(store *docstore.Store, engine *retrieval.Engine, logger *log.Logger) *Handler {
	return &Handler{
		store:  store,
		engine: engine,
		logger: log.OrDiscard(logger).Component("http"),
	}
}

// SetGenerators 设置生成管线工厂；未设置时生成接口返回 503
func (h *Handler) SetGenerators(g Generators) {
	h.generators = g
}

// SetIngestQueue 设置异步入库队列；未设置时任务接口返回 503
func (h *Handler) SetIngestQueue(q ingestqueue.Queue) {
	h.queue = q
}

// ProviderChoice 请求中指定的模型
type ProviderChoice struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

func (p *ProviderChoice) values() (string, string) {
	if p == nil {
		return "", ""
	}
	return p.Provider, p.Model
}

// DocumentRequest 文本入库请求
type DocumentRequest struct {
	ClientID   string            `json:"client_id"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	SourceType string            `json:"source_type"`
	Metadata   docstore.Metadata `json:"metadata,omitempty"`
}

// DocumentResponse 入库结果
type DocumentResponse struct {
	DocumentID string `json:"document_id"`
	ClientID   string `json:"client_id"`
	Title      string `json:"title"`
	SourceType string `json:"source_type"`
	ChunkCount int    `json:"chunk_count"`
	Status     string `json:"status"`
}

// SearchRequest 检索请求
type SearchRequest struct {
	Query           string            `json:"query"`
	ClientID        string            `json:"client_id"`
	ProductName     string            `json:"product_name,omitempty"`
	ProductCategory string            `json:"product_category,omitempty"`
	Filters         map[string]string `json:"filters,omitempty"`
	// TopK 缺省时取 retrieval.DefaultTopK；显式 <= 0 时返回空列表
	TopK *int `json:"top_k,omitempty"`
}

// ImprovedRequest 自改进生成请求
type ImprovedRequest struct {
	generation.Request
	AIProvider *ProviderChoice `json:"ai_provider,omitempty"`
}

// SectionsRequest 分段生成请求
type SectionsRequest struct {
	generation.SectionRequest
	AIProvider *ProviderChoice `json:"ai_provider,omitempty"`
}

// ToneRequest 风格分析请求
type ToneRequest struct {
	Text       string          `json:"text"`
	AIProvider *ProviderChoice `json:"ai_provider,omitempty"`
}

// SpecsRequest 参数表解析请求
type SpecsRequest struct {
	Text string `json:"text"`
}

// BatchRequest 批量生成请求
type BatchRequest struct {
	Products []generation.Product `json:"products"`
	generation.BatchOptions
	AIProvider *ProviderChoice `json:"ai_provider,omitempty"`
}

// BatchResponse 批量生成结果
type BatchResponse struct {
	Results []generation.BatchItemResult `json:"results"`
	Summary generation.BatchSummary      `json:"summary"`
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	resp := map[string]interface{}{"status": "ok"}
	if h.store != nil {
		resp["documents"] = h.store.DocumentCount()
	}
	c.JSON(consts.StatusOK, resp)
}

// Metrics Prometheus 文本格式指标
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		h.fail(c, err)
		return
	}
	c.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}

// CreateDocument 文本入库
// POST /api/documents
func (h *Handler) CreateDocument(ctx context.Context, c *app.RequestContext) {
	var req DocumentRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		badRequest(c, perrors.InvalidArgf("content is required"))
		return
	}
	doc := docstore.NewDocumentFromText(docstore.TextInput{
		Text:       req.Content,
		ClientID:   req.ClientID,
		Title:      req.Title,
		SourceType: req.SourceType,
		Metadata:   req.Metadata,
	})
	h.ingest(ctx, c, doc)
}

// UploadDocument 文件入库（multipart：file、client_id、title）
// POST /api/documents/upload
func (h *Handler) UploadDocument(ctx context.Context, c *app.RequestContext) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, perrors.InvalidArgf("file is required"))
		return
	}
	if fh.Size > extract.MaxFileSize {
		c.JSON(consts.StatusRequestEntityTooLarge, map[string]string{
			"error": "file exceeds the upload size limit",
		})
		return
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !extract.Supported(ext) {
		badRequest(c, perrors.Wrapf(perrors.ErrUnsupported, "file type %q", ext))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.fail(c, err)
		return
	}

	doc, err := extract.Document(extract.FileInput{
		ClientID: string(c.FormValue("client_id")),
		Filename: fh.Filename,
		Data:     data,
		Title:    string(c.FormValue("title")),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ingest(ctx, c, doc)
}

func (h *Handler) ingest(ctx context.Context, c *app.RequestContext, doc *docstore.Document) {
	id, err := h.store.Ingest(ctx, doc)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, DocumentResponse{
		DocumentID: id,
		ClientID:   doc.ClientID,
		Title:      doc.Title,
		SourceType: doc.SourceType,
		ChunkCount: h.store.ChunkCount(id),
		Status:     "indexed",
	})
}

// DeleteDocument 删除文档及其切片
// DELETE /api/documents/:id
func (h *Handler) DeleteDocument(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	deleted, err := h.store.Delete(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !deleted {
		c.JSON(consts.StatusNotFound, map[string]string{"error": "document not found: " + id})
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"document_id": id, "deleted": true})
}

// ListClientDocuments 列出客户文档
// GET /api/clients/:client_id/documents
func (h *Handler) ListClientDocuments(ctx context.Context, c *app.RequestContext) {
	clientID := c.Param("client_id")
	docs, err := h.store.ListByClient(ctx, clientID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"client_id": clientID, "documents": docs})
}

// ClientSummary 客户资料概览
// GET /api/clients/:client_id/summary
func (h *Handler) ClientSummary(ctx context.Context, c *app.RequestContext) {
	summary, err := h.store.SummarizeClient(ctx, c.Param("client_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, summary)
}

// DeleteClientDocuments 删除客户全部文档
// DELETE /api/clients/:client_id/documents
func (h *Handler) DeleteClientDocuments(ctx context.Context, c *app.RequestContext) {
	clientID := c.Param("client_id")
	n, err := h.store.DeleteClient(ctx, clientID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"client_id": clientID, "deleted": n})
}

// Search 客户资料检索
// POST /api/search
func (h *Handler) Search(ctx context.Context, c *app.RequestContext) {
	var req SearchRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	topK := retrieval.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	res, err := h.engine.Search(ctx, retrieval.Query{
		Text:            req.Query,
		ClientID:        req.ClientID,
		ProductName:     req.ProductName,
		ProductCategory: req.ProductCategory,
		Filters:         req.Filters,
		TopK:            topK,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, res)
}

// GenerateImproved 自改进生成
// POST /api/generate/improved
func (h *Handler) GenerateImproved(ctx context.Context, c *app.RequestContext) {
	if !h.requireGenerators(c) {
		return
	}
	var req ImprovedRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Product.Name == "" {
		badRequest(c, perrors.InvalidArgf("product_info.name is required"))
		return
	}
	pipeline, err := h.generators.Pipeline(req.AIProvider.values())
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := pipeline.Run(ctx, req.Request)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, res)
}

// AnalyzeTone 分析示例文本的写作风格
// POST /api/tone/analyze
func (h *Handler) AnalyzeTone(ctx context.Context, c *app.RequestContext) {
	if !h.requireGenerators(c) {
		return
	}
	var req ToneRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	client, err := h.generators.Client(req.AIProvider.values())
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := generation.AnalyzeTone(ctx, client, req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	if res.Failed {
		h.logger.Warn("tone analysis output unparseable", "description", res.ToneDescription)
	}
	c.JSON(consts.StatusOK, res)
}

// ListTones 内置参考语气
// GET /api/tones
func (h *Handler) ListTones(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]interface{}{"tones": generation.PredefinedTones()})
}

// ExtractSpecs 将粘贴的参数表解析为技术参数
// POST /api/specs/extract
func (h *Handler) ExtractSpecs(ctx context.Context, c *app.RequestContext) {
	var req SpecsRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	specs := generation.SpecsFromText(req.Text)
	c.JSON(consts.StatusOK, map[string]interface{}{
		"specs":           specs,
		"technical_specs": generation.SpecsMap(specs),
	})
}

// GenerateSections 按模板分段生成
// POST /api/generate/sections
func (h *Handler) GenerateSections(ctx context.Context, c *app.RequestContext) {
	if !h.requireGenerators(c) {
		return
	}
	var req SectionsRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Product.Name == "" {
		badRequest(c, perrors.InvalidArgf("product_info.name is required"))
		return
	}
	pipeline, err := h.generators.SectionPipeline(req.AIProvider.values())
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := pipeline.Generate(ctx, req.SectionRequest)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, res)
}

// GenerateBatch 批量生成；单个商品失败不影响其他商品
// POST /api/generate/batch
func (h *Handler) GenerateBatch(ctx context.Context, c *app.RequestContext) {
	if !h.requireGenerators(c) {
		return
	}
	var req BatchRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if len(req.Products) == 0 {
		badRequest(c, perrors.InvalidArgf("products is required"))
		return
	}
	processor, err := h.generators.BatchProcessor(req.AIProvider.values())
	if err != nil {
		h.fail(c, err)
		return
	}
	results := processor.Process(ctx, req.Products, req.BatchOptions)
	c.JSON(consts.StatusOK, BatchResponse{Results: results, Summary: generation.Summarize(results)})
}

// ListTemplates 可用的分段模板与章节
// GET /api/templates
func (h *Handler) ListTemplates(ctx context.Context, c *app.RequestContext) {
	if !h.requireGenerators(c) {
		return
	}
	set := h.generators.Templates()
	c.JSON(consts.StatusOK, map[string]interface{}{
		"templates": set.List(),
		"sections":  set.Sections(),
	})
}

// ListProviders 已配置的模型提供商及可选模型
// GET /api/ai-providers
func (h *Handler) ListProviders(ctx context.Context, c *app.RequestContext) {
	if !h.requireGenerators(c) {
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{
		"providers":   h.generators.AvailableModels(),
		"rate_limits": h.generators.RateLimits(),
	})
}

// EnqueueIngest 提交异步入库任务
// POST /api/ingest/tasks
func (h *Handler) EnqueueIngest(ctx context.Context, c *app.RequestContext) {
	if !h.requireQueue(c) {
		return
	}
	var payload ingestqueue.Payload
	if err := c.BindJSON(&payload); err != nil {
		badRequest(c, err)
		return
	}
	id, err := h.queue.Enqueue(ctx, payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(consts.StatusAccepted, map[string]string{"task_id": id, "status": string(ingestqueue.StatusPending)})
}

// GetIngestTask 查询异步入库任务
// GET /api/ingest/tasks/:id
func (h *Handler) GetIngestTask(ctx context.Context, c *app.RequestContext) {
	if !h.requireQueue(c) {
		return
	}
	task, err := h.queue.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, task)
}

func (h *Handler) requireGenerators(c *app.RequestContext) bool {
	if h.generators == nil {
		c.JSON(consts.StatusServiceUnavailable, map[string]string{"error": "generation is not configured"})
		return false
	}
	return true
}

func (h *Handler) requireQueue(c *app.RequestContext) bool {
	if h.queue == nil {
		c.JSON(consts.StatusServiceUnavailable, map[string]string{"error": "ingest queue is not configured"})
		return false
	}
	return true
}

func badRequest(c *app.RequestContext, err error) {
	c.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
}

// fail 按错误类别映射状态码；生成阶段失败附带阶段名
func (h *Handler) fail(c *app.RequestContext, err error) {
	var stageErr *generation.StageError
	switch {
	case errors.Is(err, perrors.ErrInvalidArg), errors.Is(err, perrors.ErrUnsupported), errors.Is(err, perrors.ErrConfig):
		badRequest(c, err)
	case errors.Is(err, perrors.ErrNotFound):
		c.JSON(consts.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, docstore.ErrReadOnly):
		c.JSON(consts.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &stageErr):
		h.logger.Error("generation failed", "stage", stageErr.Stage.String(), "error", stageErr.Err)
		c.JSON(consts.StatusBadGateway, map[string]string{
			"error": err.Error(),
			"stage": stageErr.Stage.String(),
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(consts.StatusGatewayTimeout, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("request failed", "path", string(c.Path()), "error", err)
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
