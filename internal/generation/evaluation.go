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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"proddesc/pkg/utils"
)

// 降级评估：评估输出无法解析时交给后续阶段的固定内容
const DegradedSummary = "Error while analysing the evaluation."

// DegradedPoints 降级时的通用改进点
var DegradedPoints = []string{
	"Improve the structure",
	"Integrate more keywords",
	"Strengthen the argumentation",
}

// ErrMalformedEvaluation 评估输出不符合约定结构
var ErrMalformedEvaluation = errors.New("malformed evaluation")

// criterion 一个评分维度
type criterion struct {
	field string
	label string
}

var criteria = []criterion{
	{"technical_accuracy", "Technical accuracy"},
	{"tone_style", "Tone and style"},
	{"seo_optimization", "SEO optimization"},
	{"structure", "Structure"},
	{"persuasion", "Persuasion"},
	{"differentiation", "Differentiation"},
}

// Score 单个维度的分数与理由
type Score struct {
	Value         int    `json:"value"`
	Justification string `json:"justification"`
}

// EvaluationRecord 解析后的评估
type EvaluationRecord struct {
	TechnicalAccuracy Score    `json:"technical_accuracy"`
	ToneStyle         Score    `json:"tone_style"`
	SEOOptimization   Score    `json:"seo_optimization"`
	Structure         Score    `json:"structure"`
	Persuasion        Score    `json:"persuasion"`
	Differentiation   Score    `json:"differentiation"`
	ImprovementPoints []string `json:"improvement_points"`
}

func (r *EvaluationRecord) scores() []*Score {
	return []*Score{
		&r.TechnicalAccuracy, &r.ToneStyle, &r.SEOOptimization,
		&r.Structure, &r.Persuasion, &r.Differentiation,
	}
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedEvaluation, fmt.Sprintf(format, args...))
}

// ParseEvaluation 从模型输出中取最外层 {...} 对象并按字段契约解析。
// 六个分数须为 1 到 10 的整数，六个理由须为字符串，improvement_points 必须存在。
func ParseEvaluation(raw string) (*EvaluationRecord, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return nil, malformed("%v", err)
	}

	rec := &EvaluationRecord{}
	for i, s := range rec.scores() {
		name := criteria[i].field
		v, err := scoreValue(fields[name])
		if err != nil {
			return nil, malformed("%s: %v", name, err)
		}
		just, ok := fields[name+"_justification"].(string)
		if !ok {
			return nil, malformed("%s_justification is missing or not a string", name)
		}
		s.Value = v
		s.Justification = just
	}

	points, ok := fields["improvement_points"]
	if !ok {
		return nil, malformed("improvement_points is missing")
	}
	rec.ImprovementPoints = utils.EnsureList(points)
	return rec, nil
}

// decodeObject 取模型输出中最外层的 {...} 并解码，数字保留为 json.Number
func decodeObject(raw string) (map[string]interface{}, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object in output")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw[start : end+1])))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return fields, nil
}

func scoreValue(v interface{}) (int, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
	i, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("expected an integer, got %s", n)
	}
	if i < 1 || i > 10 {
		return 0, fmt.Errorf("score %d out of range 1-10", i)
	}
	return int(i), nil
}

// RenderSummary EXTRACT：渲染分数与理由两段摘要
func RenderSummary(rec *EvaluationRecord) string {
	lines := []string{"EVALUATION SCORES:"}
	scores := rec.scores()
	for i, c := range criteria {
		lines = append(lines, fmt.Sprintf("- %s: %d/10", c.label, scores[i].Value))
	}
	lines = append(lines, "", "JUSTIFICATIONS:")
	for i, c := range criteria {
		lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, c.label, scores[i].Justification))
	}
	return strings.Join(lines, "\n")
}

// RenderPoints EXTRACT：渲染编号改进点
func RenderPoints(points []string) string {
	lines := make([]string, 0, len(points))
	for i, p := range points {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, p))
	}
	return strings.Join(lines, "\n")
}

// Extract 由评估原始输出得到摘要与改进点；解析失败时返回降级内容且 degraded 为 true
func Extract(raw string) (summary, points string, degraded bool, err error) {
	rec, err := ParseEvaluation(raw)
	if err != nil {
		return DegradedSummary, RenderPoints(DegradedPoints), true, err
	}
	return RenderSummary(rec), RenderPoints(rec.ImprovementPoints), false, nil
}
