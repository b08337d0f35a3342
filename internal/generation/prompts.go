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
	"sort"
	"strings"
)

const generationPrompt = `You are an expert in writing product pages optimized for marketing and SEO.

TASK:
Write a professional product description for {product_name} based on the following information.

PRODUCT INFORMATION:
- Description: {product_description}
- Category: {product_category}
- Keywords: {product_keywords}

TECHNICAL SPECS:
{technical_specs}

EDITORIAL TONE:
{tone_instructions}

TARGET PERSONA:
{persona_instructions}

SEO OPTIMIZATION:
- Optimization requested: {seo_optimization}
- Keywords to include: {seo_keywords}

COMPETITOR INFORMATION:
{competitor_insights}

SEO GUIDE:
{seo_guide_info}
{client_context}
ADDITIONAL INSTRUCTIONS:
- Write a complete and persuasive description
- Highlight the key benefits and features
- Use subheadings to structure the content
- Integrate the SEO keywords naturally
- Adapt the tone to the brand and the target audience

PRODUCT DESCRIPTION:
`

const evaluationPrompt = `You are an expert in marketing, copywriting and SEO. Evaluate the following product description against precise criteria.

PRODUCT DESCRIPTION TO EVALUATE:
{generated_description}

CONTEXT:
- Product name: {product_name}
- Category: {product_category}
- Desired tone: {tone_summary}
- SEO keywords to include: {seo_keywords}

EVALUATION CRITERIA:
Rate the description on a scale from 1 to 10 for each of the following criteria:

1. Technical accuracy: are the features presented correctly?
2. Tone and style: does the text follow the requested tone?
3. SEO optimization: are the keywords integrated naturally?
4. Structure: is the structure clear and effective?
5. Persuasion: is the text convincing for a potential buyer?
6. Differentiation: does the product stand out from the competition?

For each criterion, give a score and a detailed justification.
Also identify the 3 main improvement points, ranked by priority.

{format_instructions}
`

const improvementPrompt = `You are an expert marketing and SEO copywriter. Improve the following product description based on the evaluation provided.

ORIGINAL DESCRIPTION:
{generated_description}

DETAILED EVALUATION:
{evaluation_summary}

IMPROVEMENT POINTS (by priority):
{improvement_points}

PRODUCT CONTEXT:
- Product name: {product_name}
- Category: {product_category}
- Desired tone: {tone_summary}
- SEO keywords to include: {seo_keywords}

INSTRUCTIONS:
1. Write a new improved version that fixes the weaknesses identified
2. Keep the strengths of the original version
3. Focus on the criteria with the lowest scores
4. Make sure every SEO keyword is integrated naturally
5. Respect the requested tone and style

IMPROVED DESCRIPTION:
`

const verificationPrompt = `Compare the two versions of the product description and check that the improvements were made.

ORIGINAL VERSION:
{generated_description}

IMPROVED VERSION:
{improved_description}

IDENTIFIED IMPROVEMENT POINTS:
{improvement_points}

VERIFICATION:
1. Were all improvement points addressed? Explain how.
2. Was any important information lost? If so, which?
3. Are tone and style consistent with the initial request?
4. Are the SEO keywords still present and well integrated?
5. Is the improved version better overall than the original? Why?

If problems remain, identify them precisely.

SUMMARY OF IMPROVEMENTS:
`

// formatInstructions 评估输出的 JSON 格式约束，字段名即 EVALUATE 与 EXTRACT 之间的契约
const formatInstructions = `Respond with a single JSON object and nothing else. Use exactly these fields:
{
  "technical_accuracy": <integer from 1 to 10>,
  "tone_style": <integer from 1 to 10>,
  "seo_optimization": <integer from 1 to 10>,
  "structure": <integer from 1 to 10>,
  "persuasion": <integer from 1 to 10>,
  "differentiation": <integer from 1 to 10>,
  "technical_accuracy_justification": "<string>",
  "tone_style_justification": "<string>",
  "seo_optimization_justification": "<string>",
  "structure_justification": "<string>",
  "persuasion_justification": "<string>",
  "differentiation_justification": "<string>",
  "improvement_points": ["<most important point>", "<second point>", "<third point>"]
}`

// fillTemplate 将 {name} 占位符替换为对应值；未知占位符原样保留
func fillTemplate(tmpl string, vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// productVars 管线各阶段共用的商品上下文
func productVars(req Request) map[string]string {
	keywords := joinKeywords(req.Product.Keywords, 0)
	return map[string]string{
		"product_name":         req.Product.Name,
		"product_description":  req.Product.Description,
		"product_category":     req.Product.Category,
		"product_keywords":     keywords,
		"technical_specs":      FormatTechnicalSpecs(req.Product.Specs()),
		"tone_instructions":    ToneInstructions(req.ToneStyle),
		"persona_instructions": PersonaInstructions(req.ToneStyle),
		"tone_summary":         ToneSummary(req.ToneStyle),
		"seo_optimization":     yesNo(req.SEOEnabled()),
		"seo_keywords":         keywords,
		"competitor_insights":  FormatCompetitorInsights(req.CompetitorInsights),
		"seo_guide_info":       FormatSEOGuide(req.SEOGuide),
	}
}

func withVars(base map[string]string, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// BuildGenerationPrompt GENERATE 阶段提示词；clientContext 为空时不输出客户资料块
func BuildGenerationPrompt(req Request, clientContext string) string {
	block := ""
	if clientContext != "" {
		block = "\n" + clientContext + "\n"
	}
	return fillTemplate(generationPrompt, withVars(productVars(req), map[string]string{"client_context": block}))
}

// BuildEvaluationPrompt EVALUATE 阶段提示词
func BuildEvaluationPrompt(req Request, generated string) string {
	return fillTemplate(evaluationPrompt, withVars(productVars(req), map[string]string{
		"generated_description": generated,
		"format_instructions":   formatInstructions,
	}))
}

// BuildImprovementPrompt IMPROVE 阶段提示词
func BuildImprovementPrompt(req Request, generated, summary, points string) string {
	return fillTemplate(improvementPrompt, withVars(productVars(req), map[string]string{
		"generated_description": generated,
		"evaluation_summary":    summary,
		"improvement_points":    points,
	}))
}

// BuildVerificationPrompt VERIFY 阶段提示词
func BuildVerificationPrompt(generated, improved, points string) string {
	return fillTemplate(verificationPrompt, map[string]string{
		"generated_description": generated,
		"improved_description":  improved,
		"improvement_points":    points,
	})
}
