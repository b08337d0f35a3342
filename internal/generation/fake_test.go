package generation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"proddesc/internal/model/llm"
	"proddesc/internal/retrieval"
)

const validEvaluation = "```json\n" + `{
  "technical_accuracy": 8,
  "tone_style": 7,
  "seo_optimization": 6,
  "structure": 9,
  "persuasion": 5,
  "differentiation": 4,
  "technical_accuracy_justification": "Specs are right",
  "tone_style_justification": "Mostly on tone",
  "seo_optimization_justification": "Keywords sparse",
  "structure_justification": "Clear headings",
  "persuasion_justification": "Weak call to action",
  "differentiation_justification": "Generic claims",
  "improvement_points": ["Add a call to action", "Use more keywords", "Compare with rivals"]
}` + "\n```"

// stageOf 根据提示词特征判断所属阶段
func stageOf(prompt string) Stage {
	switch {
	case strings.Contains(prompt, "EVALUATION CRITERIA:"):
		return StageEvaluate
	case strings.Contains(prompt, "IMPROVED DESCRIPTION:"):
		return StageImprove
	case strings.Contains(prompt, "SUMMARY OF IMPROVEMENTS:"):
		return StageVerify
	default:
		return StageGenerate
	}
}

// fakeClient 可编排的 llm.Client
type fakeClient struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (string, error)
}

func newStageClient(evaluation string, failAt Stage) *fakeClient {
	return &fakeClient{respond: func(prompt string) (string, error) {
		st := stageOf(prompt)
		if st == failAt {
			return "", errors.New("provider unavailable")
		}
		switch st {
		case StageEvaluate:
			return evaluation, nil
		case StageImprove:
			return "improved text", nil
		case StageVerify:
			return "all points addressed", nil
		default:
			return "generated text", nil
		}
	}}
}

func (f *fakeClient) Generate(_ context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.respond(prompt)
}

func (f *fakeClient) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *fakeClient) Model() string    { return "fake-model" }
func (f *fakeClient) Provider() string { return "fake" }
func (f *fakeClient) Pricing() llm.Pricing {
	return llm.Pricing{Currency: "USD", Unit: "1K tokens"}
}

// fakeSearcher 记录查询并返回固定结果
type fakeSearcher struct {
	mu      sync.Mutex
	queries []retrieval.Query
	result  *retrieval.Result
	err     error
}

func (s *fakeSearcher) Search(_ context.Context, q retrieval.Query) (*retrieval.Result, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}
