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

package generation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"proddesc/internal/model/llm"
	"proddesc/internal/retrieval"
	perrors "proddesc/pkg/errors"
	"proddesc/pkg/log"
	"proddesc/pkg/metrics"
	"proddesc/pkg/tracing"
)

// DefaultSectionTopK 每个章节检索的切片数
const DefaultSectionTopK = 3

// SectionRequest 分段生成请求
type SectionRequest struct {
	Product            Product   `json:"product_info"`
	ToneStyle          ToneStyle `json:"tone_style"`
	CompetitorInsights Insights  `json:"competitor_insights,omitempty"`
	SEOGuide           Insights  `json:"seo_guide_insights,omitempty"`
	UseRAG             bool      `json:"use_rag,omitempty"`
	ClientID           string    `json:"client_id,omitempty"`
	// TemplateID 为空时使用 standard
	TemplateID string `json:"template_id,omitempty"`
	// Sections 非空时在模板基础上自定义章节
	Sections []string `json:"sections,omitempty"`
}

// GeneratedSection 生成的一个章节
type GeneratedSection struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// TemplateRef 结果中回显的模板
type TemplateRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductSheet 分段生成的商品页
type ProductSheet struct {
	Template TemplateRef        `json:"template"`
	Sections []GeneratedSection `json:"sections"`
}

// ProviderRef 生成所用的模型
type ProviderRef struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// SheetMetadata 分段生成元数据
type SheetMetadata struct {
	ProductName     string      `json:"product_name"`
	ProductCategory string      `json:"product_category"`
	RAGUsed         bool        `json:"rag_used"`
	ClientID        string      `json:"client_id,omitempty"`
	AIProvider      ProviderRef `json:"ai_provider"`
}

// SectionsResult 分段生成输出
type SectionsResult struct {
	ProductDescription ProductSheet  `json:"product_description"`
	Metadata           SheetMetadata `json:"metadata"`
}

// SectionPlaceholder 章节生成失败时的占位内容
func SectionPlaceholder(sectionName string) string {
	return fmt.Sprintf("[Error while generating section %s]", sectionName)
}

// SectionOption 配置 SectionPipeline
type SectionOption func(*SectionPipeline)

// WithSectionSearcher 启用章节检索
func WithSectionSearcher(s Searcher, topK int) SectionOption {
	return func(p *SectionPipeline) {
		p.searcher = s
		if topK > 0 {
			p.topK = topK
		}
	}
}

// WithTemplates 替换模板集合
func WithTemplates(t *TemplateSet) SectionOption {
	return func(p *SectionPipeline) {
		if t != nil {
			p.templates = t
		}
	}
}

// WithSectionGenerateOptions 设置模型调用参数
func WithSectionGenerateOptions(o llm.GenerateOptions) SectionOption {
	return func(p *SectionPipeline) { p.options = o }
}

// WithSectionLogger 设置日志
func WithSectionLogger(l *log.Logger) SectionOption {
	return func(p *SectionPipeline) { p.logger = log.OrDiscard(l).Component("sections") }
}

// SectionPipeline 按模板逐章节检索并生成；单个章节失败不影响其他章节
type SectionPipeline struct {
	client    llm.Client
	options   llm.GenerateOptions
	searcher  Searcher
	topK      int
	templates *TemplateSet
	logger    *log.Logger
}

// NewSectionPipeline 创建分段生成管线
func NewSectionPipeline(client llm.Client, opts ...SectionOption) (*SectionPipeline, error) {
	if client == nil {
		return nil, perrors.Configf("section pipeline requires an llm client")
	}
	p := &SectionPipeline{
		client:    client,
		options:   llm.GenerateOptions{Temperature: 0.7},
		topK:      DefaultSectionTopK,
		templates: DefaultTemplates(),
		logger:    log.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Templates 当前模板集合
func (p *SectionPipeline) Templates() *TemplateSet { return p.templates }

// Template 解析请求对应的模板
func (p *SectionPipeline) Template(req SectionRequest) Template {
	if len(req.Sections) > 0 {
		return p.templates.Customize(req.TemplateID, req.Sections)
	}
	return p.templates.Resolve(req.TemplateID)
}

// Generate 依次生成模板中的每个章节
func (p *SectionPipeline) Generate(ctx context.Context, req SectionRequest) (*SectionsResult, error) {
	tmpl := p.Template(req)
	ragUsed := req.UseRAG && req.ClientID != "" && p.searcher != nil
	p.logger.Info("section generation started", "product", req.Product.Name, "template", tmpl.ID, "sections", len(tmpl.Sections), "rag", ragUsed)

	out := &SectionsResult{
		ProductDescription: ProductSheet{
			Template: TemplateRef{ID: tmpl.ID, Name: tmpl.Name},
			Sections: make([]GeneratedSection, 0, len(tmpl.Sections)),
		},
		Metadata: SheetMetadata{
			ProductName:     req.Product.Name,
			ProductCategory: req.Product.Category,
			RAGUsed:         ragUsed,
			ClientID:        req.ClientID,
			AIProvider:      ProviderRef{Provider: p.client.Provider(), Model: p.client.Model()},
		},
	}
	for _, sec := range tmpl.Sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := p.generateSection(ctx, sec, req, ragUsed)
		if err != nil {
			metrics.SectionFailuresTotal.WithLabelValues(sec.ID).Inc()
			p.logger.Warn("section generation failed", "section", sec.ID, "product", req.Product.Name, "error", err)
			content = SectionPlaceholder(sec.Name)
		}
		out.ProductDescription.Sections = append(out.ProductDescription.Sections,
			GeneratedSection{ID: sec.ID, Name: sec.Name, Content: content})
	}
	return out, nil
}

func (p *SectionPipeline) generateSection(ctx context.Context, sec SectionTemplate, req SectionRequest, ragUsed bool) (content string, err error) {
	ctx, span := tracing.StartStageSpan(ctx, "sections", sec.ID)
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("SECTION").Observe(time.Since(start).Seconds())
		tracing.EndSpan(span, err)
	}()

	sectionContext := ""
	if ragUsed {
		sectionContext = p.sectionContext(ctx, sec, req)
	}
	content, err = p.client.Generate(ctx, BuildSectionPrompt(sec, req, sectionContext), p.options)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// sectionContext 检索失败时返回错误占位上下文，章节照常生成
func (p *SectionPipeline) sectionContext(ctx context.Context, sec SectionTemplate, req SectionRequest) string {
	query := SectionQuery(sec, req.Product)
	res, err := p.searcher.Search(ctx, retrieval.Query{
		Text:            query,
		ClientID:        req.ClientID,
		ProductName:     req.Product.Name,
		ProductCategory: req.Product.Category,
		TopK:            p.topK,
	})
	if err != nil {
		p.logger.Warn("section context retrieval failed", "section", sec.ID, "client_id", req.ClientID, "error", err)
		return retrieval.FormatSectionContext(sec.Name, nil, err)
	}
	p.logger.Debug("section context retrieved", "section", sec.ID, "query", query, "chunks", len(res.Chunks))
	return retrieval.FormatSectionContext(sec.Name, res.Chunks, nil)
}

// SectionQuery 用商品字段填充章节检索模板；关键词只取前三个
func SectionQuery(sec SectionTemplate, product Product) string {
	return fillTemplate(sec.RAGQueryTemplate, map[string]string{
		"product_name":        product.Name,
		"product_category":    product.Category,
		"product_description": product.Description,
		"keywords":            joinKeywords(product.Keywords, 3),
		"section_name":        sec.Name,
	})
}

// BuildSectionPrompt 章节生成提示词
func BuildSectionPrompt(sec SectionTemplate, req SectionRequest, sectionContext string) string {
	specs := ""
	if all := req.Product.Specs(); len(all) > 0 {
		specs = specLines(all)
	}
	competitor := stringEntries(req.CompetitorInsights)
	seoGuide := stringEntries(req.SEOGuide)
	instructions := fillTemplate(sec.PromptTemplate, map[string]string{
		"product_name":         req.Product.Name,
		"product_description":  req.Product.Description,
		"product_category":     req.Product.Category,
		"keywords":             joinKeywords(req.Product.Keywords, 0),
		"technical_specs":      specs,
		"tone_instructions":    sectionTone(req.ToneStyle),
		"persona_instructions": sectionPersona(req.ToneStyle),
		"competitor_insights":  competitor,
		"seo_guide_info":       seoGuide,
		"section_context":      sectionContext,
		"section_name":         sec.Name,
	})

	info := []string{
		"PRODUCT INFORMATION:",
		"- Name: " + req.Product.Name,
		"- Category: " + req.Product.Category,
		"- Description: " + req.Product.Description,
		"- Keywords: " + joinKeywords(req.Product.Keywords, 0),
	}
	if specs != "" {
		info = append(info, specs)
	}
	style := []string{"STYLE AND TONE:"}
	for _, s := range []string{sectionTone(req.ToneStyle), sectionPersona(req.ToneStyle)} {
		if s != "" {
			style = append(style, s)
		}
	}

	blocks := []string{
		"You are an expert in writing e-commerce product pages.",
		"SECTION TO GENERATE: " + sec.Name,
		"INSTRUCTIONS:\n" + strings.TrimSpace(instructions),
		strings.Join(info, "\n"),
		strings.Join(style, "\n"),
	}
	if sectionContext != "" {
		blocks = append(blocks, sectionContext)
	}
	if competitor != "" {
		blocks = append(blocks, "COMPETITOR INSIGHTS:\n"+competitor)
	}
	if seoGuide != "" {
		blocks = append(blocks, "SEO GUIDE:\n"+seoGuide)
	}
	blocks = append(blocks, strings.Join([]string{
		"IMPORTANT:",
		"- Generate ONLY the content of the requested section, not the whole product page.",
		"- Do not include the section title in the response.",
		"- Write factual, precise and persuasive content.",
		"- Use a web-friendly format (short paragraphs, bullet lists where relevant).",
	}, "\n"))
	return strings.Join(blocks, "\n\n") + "\n"
}

func sectionTone(ts ToneStyle) string {
	var parts []string
	if ts.Tone != "" {
		parts = append(parts, "Tone: "+ts.Tone)
	}
	if ts.Style != "" {
		parts = append(parts, "Style: "+ts.Style)
	}
	if ts.Formality != "" {
		parts = append(parts, "Formality: "+ts.Formality)
	}
	return strings.Join(parts, ". ")
}

func sectionPersona(ts ToneStyle) string {
	if ts.PersonaTarget == "" {
		return ""
	}
	return fmt.Sprintf("The target audience is: %s. Adapt language and arguments for this audience.", ts.PersonaTarget)
}

// stringEntries 只输出字符串值，按键排序为 "key: value" 行
func stringEntries(values Insights) string {
	keys := make([]string, 0, len(values))
	for k, v := range values {
		if s, ok := v.(string); ok && s != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, values[k]))
	}
	return strings.Join(lines, "\n")
}
