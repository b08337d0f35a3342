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
	"fmt"
	"sort"
	"strings"

	"proddesc/pkg/utils"
)

// 空输入时的固定文案
const (
	NoTechnicalSpecs     = "No technical specifications provided."
	NoCompetitorInsights = "No competitor information available."
	NoSEOGuide           = "No SEO guide available."
	DefaultToneSummary   = "Professional and informative"
	genericToneMessage   = "Adapt the tone to the target audience and the nature of the product."
)

type keywordInstruction struct {
	keyword     string
	instruction string
}

// 按顺序匹配，先命中者生效
var toneInstructions = []keywordInstruction{
	{"professional", "Use a professional and formal tone. Avoid excessive jargon but stay technical and precise."},
	{"casual", "Use a relaxed, conversational tone. Be friendly and approachable, as if talking to a friend."},
	{"enthusiastic", "Use an enthusiastic and energetic tone. Show excitement for the product with dynamic language."},
	{"luxury", "Use a luxurious and exclusive tone. Emphasize quality, craftsmanship and prestige."},
	{"technical", "Use a technical and detailed tone. Focus on specifications and advanced features."},
	{"educational", "Use an educational and informative tone. Explain concepts and benefits clearly."},
}

var personaInstructions = []keywordInstruction{
	{"professional", "Tailor the content to industry professionals looking for precise technical information and concrete benefits."},
	{"beginner", "Tailor the content to beginners who need clear, simple and didactic explanations without excessive technical jargon."},
	{"expert", "Tailor the content to experts who appreciate advanced technical details and precise specifications."},
	{"business", "Tailor the content to business decision makers interested in ROI, productivity and strategic benefits."},
	{"individual", "Tailor the content to individuals looking for practical, easy to understand solutions for personal use."},
}

type headedList struct {
	key     string
	heading string
	// scalar 为 true 时值按整段文本输出
	scalar bool
}

var competitorBlocks = []headedList{
	{key: "key_features", heading: "KEY FEATURES MENTIONED BY COMPETITORS:"},
	{key: "unique_selling_points", heading: "COMPETITORS' UNIQUE SELLING POINTS:"},
	{key: "common_technical_specs", heading: "COMMON TECHNICAL SPECIFICATIONS:"},
	{key: "content_structure", heading: "EFFECTIVE CONTENT STRUCTURE:", scalar: true},
	{key: "seo_keywords", heading: "IDENTIFIED SEO KEYWORDS:"},
}

var seoGuideBlocks = []headedList{
	{key: "required_keywords", heading: "REQUIRED KEYWORDS TO INCLUDE:"},
	{key: "recommended_phrases", heading: "RECOMMENDED PHRASES:"},
	{key: "questions_to_answer", heading: "QUESTIONS TO ADDRESS:"},
	{key: "content_recommendations", heading: "CONTENT RECOMMENDATIONS:"},
}

// FormatTechnicalSpecs 渲染为按键排序的 "- key: value" 行；为空时返回固定句子
func FormatTechnicalSpecs(specs map[string]interface{}) string {
	if len(specs) == 0 {
		return NoTechnicalSpecs
	}
	return specLines(specs)
}

func specLines(specs map[string]interface{}) string {
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %v", k, specs[k]))
	}
	return strings.Join(lines, "\n")
}

// FormatCompetitorInsights 渲染竞品洞察
func FormatCompetitorInsights(insights Insights) string {
	if len(insights) == 0 {
		return NoCompetitorInsights
	}
	return formatHeadedLists(insights, competitorBlocks)
}

// FormatSEOGuide 渲染 SEO 指南
func FormatSEOGuide(guide Insights) string {
	if len(guide) == 0 {
		return NoSEOGuide
	}
	return formatHeadedLists(guide, seoGuideBlocks)
}

func formatHeadedLists(values Insights, blocks []headedList) string {
	var groups []string
	for _, b := range blocks {
		v, ok := values[b.key]
		if !ok {
			continue
		}
		lines := []string{b.heading}
		if b.scalar {
			lines = append(lines, fmt.Sprint(v))
		} else {
			for _, item := range utils.EnsureList(v) {
				lines = append(lines, "- "+item)
			}
		}
		groups = append(groups, strings.Join(lines, "\n"))
	}
	return strings.Join(groups, "\n\n")
}

// ToneInstructions 将语气描述映射为写作指令
func ToneInstructions(ts ToneStyle) string {
	tone := ts.ToneDescription
	if tone == "" && ts.BrandName != "" {
		return fmt.Sprintf("Adapt the tone to the brand %s and to the nature of the product.", ts.BrandName)
	}
	if ki, ok := matchKeyword(tone, toneInstructions); ok {
		return ki
	}
	if tone != "" {
		return "Use the following tone: " + tone
	}
	return genericToneMessage
}

// PersonaInstructions 将目标人群映射为写作指令；未指定时为空
func PersonaInstructions(ts ToneStyle) string {
	persona := ts.PersonaTarget
	if persona == "" {
		return ""
	}
	if ki, ok := matchKeyword(persona, personaInstructions); ok {
		return ki
	}
	return fmt.Sprintf("The target audience is: %s. Adapt language, tone and arguments for this specific audience.", persona)
}

func matchKeyword(text string, table []keywordInstruction) (string, bool) {
	lower := strings.ToLower(text)
	for _, ki := range table {
		if strings.Contains(lower, ki.keyword) {
			return ki.instruction, true
		}
	}
	return "", false
}

// ToneSummary 评估与改进提示词中的期望语气
func ToneSummary(ts ToneStyle) string {
	return utils.CoalesceString(ts.ToneDescription, DefaultToneSummary)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func joinKeywords(keywords []string, limit int) string {
	if limit > 0 && len(keywords) > limit {
		keywords = keywords[:limit]
	}
	return strings.Join(keywords, ", ")
}
