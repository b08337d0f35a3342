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
	"time"

	"proddesc/internal/model/llm"
	"proddesc/internal/retrieval"
	perrors "proddesc/pkg/errors"
	"proddesc/pkg/log"
	"proddesc/pkg/metrics"
	"proddesc/pkg/tracing"
)

// Stage 自改进管线阶段
type Stage int

// 阶段严格线性推进，StageDone 为终态
const (
	StageGenerate Stage = iota
	StageEvaluate
	StageExtract
	StageImprove
	StageVerify
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageGenerate:
		return "GENERATE"
	case StageEvaluate:
		return "EVALUATE"
	case StageExtract:
		return "EXTRACT"
	case StageImprove:
		return "IMPROVE"
	case StageVerify:
		return "VERIFY"
	case StageDone:
		return "DONE"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// StageError 某阶段远程调用失败，整条管线终止
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Searcher 检索能力，由 retrieval.Engine 实现
type Searcher interface {
	Search(ctx context.Context, q retrieval.Query) (*retrieval.Result, error)
}

// chainState 管线累积状态；每个阶段只读取前序阶段已写入的字段
type chainState struct {
	stage         Stage
	req           Request
	clientContext string

	generated     string // GENERATE
	evaluationRaw string // EVALUATE
	summary       string // EXTRACT
	points        string // EXTRACT
	degraded      bool   // EXTRACT
	improved      string // IMPROVE
	verification  string // VERIFY
}

func (s *chainState) result() *ImprovedResult {
	return &ImprovedResult{
		OriginalDescription: s.generated,
		Evaluation: Evaluation{
			Detailed:          s.evaluationRaw,
			Summary:           s.summary,
			ImprovementPoints: s.points,
		},
		ImprovedDescription: s.improved,
		Verification:        s.verification,
		Degraded:            s.degraded,
	}
}

// PipelineOption 配置 Pipeline
type PipelineOption func(*Pipeline)

// WithSearcher 启用客户资料检索
func WithSearcher(s Searcher, topK int) PipelineOption {
	return func(p *Pipeline) {
		p.searcher = s
		if topK > 0 {
			p.searchTopK = topK
		}
	}
}

// WithGenerateOptions 设置模型调用参数
func WithGenerateOptions(o llm.GenerateOptions) PipelineOption {
	return func(p *Pipeline) { p.options = o }
}

// WithPipelineLogger 设置日志
func WithPipelineLogger(l *log.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = log.OrDiscard(l).Component("generation") }
}

// Pipeline 自改进管线：GENERATE → EVALUATE → EXTRACT → IMPROVE → VERIFY
type Pipeline struct {
	client     llm.Client
	options    llm.GenerateOptions
	searcher   Searcher
	searchTopK int
	logger     *log.Logger
}

// NewPipeline 创建管线；client 不可为空
func NewPipeline(client llm.Client, opts ...PipelineOption) (*Pipeline, error) {
	if client == nil {
		return nil, perrors.Configf("generation pipeline requires an llm client")
	}
	p := &Pipeline{
		client:     client,
		options:    llm.GenerateOptions{Temperature: 0.7},
		searchTopK: retrieval.DefaultTopK,
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Client 返回所用模型客户端
func (p *Pipeline) Client() llm.Client { return p.client }

// Run 执行完整五阶段管线。任一阶段的远程调用失败返回 *StageError；
// 仅评估输出解析失败走降级路径，管线继续。
func (p *Pipeline) Run(ctx context.Context, req Request) (*ImprovedResult, error) {
	st := &chainState{stage: StageGenerate, req: req}
	st.clientContext = p.clientContext(ctx, req)
	p.logger.Info("self-improving chain started", "product", req.Product.Name, "provider", p.client.Provider(), "model", p.client.Model())

	for st.stage != StageDone {
		if err := p.step(ctx, st); err != nil {
			p.logger.Warn("self-improving chain failed", "product", req.Product.Name, "stage", st.stage.String(), "error", err)
			return nil, &StageError{Stage: st.stage, Err: err}
		}
		st.stage++
	}
	p.logger.Info("self-improving chain completed", "product", req.Product.Name, "degraded", st.degraded)
	return st.result(), nil
}

// Describe 只执行 GENERATE 阶段，用于不需要自改进的单次生成
func (p *Pipeline) Describe(ctx context.Context, req Request) (string, error) {
	st := &chainState{stage: StageGenerate, req: req}
	st.clientContext = p.clientContext(ctx, req)
	if err := p.step(ctx, st); err != nil {
		return "", &StageError{Stage: StageGenerate, Err: err}
	}
	return st.generated, nil
}

func (p *Pipeline) step(ctx context.Context, st *chainState) (err error) {
	stage := st.stage.String()
	ctx, span := tracing.StartStageSpan(ctx, "self_improving", stage)
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
		tracing.EndSpan(span, err)
	}()
	p.logger.Debug("stage started", "stage", stage, "product", st.req.Product.Name)

	switch st.stage {
	case StageGenerate:
		st.generated, err = p.call(ctx, BuildGenerationPrompt(st.req, st.clientContext))
	case StageEvaluate:
		st.evaluationRaw, err = p.call(ctx, BuildEvaluationPrompt(st.req, st.generated))
	case StageExtract:
		var parseErr error
		st.summary, st.points, st.degraded, parseErr = Extract(st.evaluationRaw)
		if st.degraded {
			metrics.DegradedEvaluationsTotal.Inc()
			p.logger.Warn("evaluation output could not be parsed, using degraded evaluation",
				"product", st.req.Product.Name, "error", parseErr)
		}
	case StageImprove:
		st.improved, err = p.call(ctx, BuildImprovementPrompt(st.req, st.generated, st.summary, st.points))
	case StageVerify:
		st.verification, err = p.call(ctx, BuildVerificationPrompt(st.generated, st.improved, st.points))
	default:
		err = fmt.Errorf("unexpected stage %s", stage)
	}
	return err
}

func (p *Pipeline) call(ctx context.Context, prompt string) (string, error) {
	return p.client.Generate(ctx, prompt, p.options)
}

// clientContext 检索客户资料并渲染为上下文块；检索失败只记录日志，生成照常进行
func (p *Pipeline) clientContext(ctx context.Context, req Request) string {
	if !req.UseRAG || req.ClientID == "" || p.searcher == nil {
		return ""
	}
	res, err := p.searcher.Search(ctx, retrieval.Query{
		Text:            ProductQuery(req.Product),
		ClientID:        req.ClientID,
		ProductName:     req.Product.Name,
		ProductCategory: req.Product.Category,
		TopK:            p.searchTopK,
	})
	if err != nil {
		p.logger.Warn("client context retrieval failed", "client_id", req.ClientID, "error", err)
		return ""
	}
	return retrieval.FormatContext(res)
}
