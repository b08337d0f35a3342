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


// Package generation 商品描述生成：自改进五阶段管线、分段生成与批处理
package generation

// Product 商品信息
type Product struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Keywords    []string `json:"keywords"`
	// TechnicalSpecs 技术参数，值可为任意 JSON 标量
	TechnicalSpecs map[string]interface{} `json:"technical_specs,omitempty"`
	// RawSpecs 未整理的参数表文本，经 SpecsFromText 解析后并入 TechnicalSpecs
	RawSpecs string `json:"raw_specs,omitempty"`
}

// ToneStyle 语气、风格与目标人群
type ToneStyle struct {
	ToneDescription string `json:"tone_description,omitempty"`
	BrandName       string `json:"brand_name,omitempty"`
	PersonaTarget   string `json:"persona_target,omitempty"`
	Tone            string `json:"tone,omitempty"`
	Style           string `json:"style,omitempty"`
	Formality       string `json:"formality,omitempty"`
}

// Insights 竞品洞察或 SEO 指南，值为字符串或字符串列表
type Insights map[string]interface{}

// Request 自改进管线与单次生成的输入
type Request struct {
	Product            Product   `json:"product_info"`
	ToneStyle          ToneStyle `json:"tone_style"`
	SEOOptimization    *bool     `json:"seo_optimization,omitempty"`
	CompetitorInsights Insights  `json:"competitor_insights,omitempty"`
	SEOGuide           Insights  `json:"seo_guide_insights,omitempty"`
	// UseRAG 为 true 且 ClientID 非空时，在生成提示词中注入客户资料
	UseRAG   bool   `json:"use_rag,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}

// SEOEnabled 未显式关闭时视为开启
func (r Request) SEOEnabled() bool {
	return r.SEOOptimization == nil || *r.SEOOptimization
}

// Evaluation 评估块
type Evaluation struct {
	// Detailed 评估阶段模型原始输出
	Detailed          string `json:"detailed"`
	Summary           string `json:"summary"`
	ImprovementPoints string `json:"improvement_points"`
}

// ImprovedResult 自改进管线输出
type ImprovedResult struct {
	OriginalDescription string     `json:"original_description"`
	Evaluation          Evaluation `json:"evaluation"`
	ImprovedDescription string     `json:"improved_description"`
	Verification        string     `json:"verification"`
	// Degraded 评估输出无法解析、使用了降级评估
	Degraded bool `json:"degraded,omitempty"`
}
