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
	"strings"

	"proddesc/internal/model/llm"
	perrors "proddesc/pkg/errors"
	"proddesc/pkg/utils"
)

// ToneAnalysis 从示例文本中提炼的写作风格，可直接作为 ToneStyle.ToneDescription 的素材
type ToneAnalysis struct {
	ToneDescription     string   `json:"tone_description"`
	ToneCharacteristics []string `json:"tone_characteristics"`
	WritingStyle        string   `json:"writing_style"`
	VocabularyLevel     string   `json:"vocabulary_level"`
	SentenceStructure   string   `json:"sentence_structure"`
	// Failed 模型输出无法解析，ToneDescription 中为错误说明
	Failed bool `json:"failed,omitempty"`
}

const toneAnalysisPrompt = `You are an expert in stylistic and linguistic analysis. Analyse the following text and extract its editorial tone and writing style.

TEXT TO ANALYSE:
` + "```" + `
{text_example}
` + "```" + `

INSTRUCTIONS:
1. Analyse the tone, style and register of language used in this text.
2. Identify the distinctive characteristics of the writing style.
3. Decide whether the style is formal, informal, technical, conversational, etc.
4. Analyse the vocabulary level and sentence complexity.
5. Provide a detailed description that could be used to reproduce this style.

Respond with a single JSON object and nothing else. Use exactly these fields:
{
  "tone_description": "<detailed description of the tone and writing style>",
  "tone_characteristics": ["<main characteristic>", "<another characteristic>"],
  "writing_style": "<formal, informal, technical, ...>",
  "vocabulary_level": "<simple, technical, specialised, ...>",
  "sentence_structure": "<short, long, complex, ...>"
}`

const toneTemperature = 0.3

// BuildToneAnalysisPrompt 风格分析提示词
func BuildToneAnalysisPrompt(text string) string {
	return fillTemplate(toneAnalysisPrompt, map[string]string{"text_example": text})
}

// AnalyzeTone 调用模型分析示例文本的风格。
// 模型调用失败时返回错误；输出无法解析时返回 Failed 的结果而不是错误。
func AnalyzeTone(ctx context.Context, client llm.Client, text string) (*ToneAnalysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, perrors.InvalidArgf("text is required")
	}
	raw, err := client.Generate(ctx, BuildToneAnalysisPrompt(text), llm.GenerateOptions{Temperature: toneTemperature})
	if err != nil {
		return nil, perrors.Wrap(err, "tone analysis")
	}
	fields, err := decodeObject(raw)
	if err != nil {
		return toneFailure(err), nil
	}
	str := func(key string) string {
		if v, ok := fields[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}
	return &ToneAnalysis{
		ToneDescription:     str("tone_description"),
		ToneCharacteristics: utils.EnsureList(fields["tone_characteristics"]),
		WritingStyle:        str("writing_style"),
		VocabularyLevel:     str("vocabulary_level"),
		SentenceStructure:   str("sentence_structure"),
	}, nil
}

func toneFailure(err error) *ToneAnalysis {
	return &ToneAnalysis{
		ToneDescription:     "Error during analysis: " + err.Error(),
		ToneCharacteristics: []string{},
		Failed:              true,
	}
}

// PredefinedTone 内置的参考语气
type PredefinedTone struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Characteristics []string `json:"characteristics"`
	Example         string   `json:"example"`
}

// PredefinedTones 内置参考语气，按固定顺序返回
func PredefinedTones() []PredefinedTone {
	return []PredefinedTone{
		{
			ID:          "professional",
			Name:        "Professional",
			Description: "Formal and technical tone, suited to B2B communication and official documents.",
			Characteristics: []string{
				"Precise and technical vocabulary",
				"Well-structured sentences",
				"Factual approach",
				"Few colloquial expressions",
			},
			Example: "Our enterprise solution offers complete integration of business processes, enabling a significant improvement in productivity. Advanced features include real-time analysis of operational data and custom reports tailored to your specific needs.",
		},
		{
			ID:          "conversational",
			Name:        "Conversational",
			Description: "Relaxed and accessible tone, like talking to a friend.",
			Characteristics: []string{
				"Simple and direct language",
				"First and second person",
				"Rhetorical questions",
				"Colloquial expressions",
			},
			Example: "Tired of complicated products? We get it! That is why we built this super simple solution. Give it a try and you will see, it is child's play. And if you have questions, just reach out, we are here to help!",
		},
		{
			ID:          "persuasive",
			Name:        "Persuasive",
			Description: "Convincing, action-oriented tone, ideal for marketing.",
			Characteristics: []string{
				"Strong arguments",
				"Calls to action",
				"Benefits up front",
				"Sense of urgency",
			},
			Example: "Discover our revolutionary product that will transform your daily life. Thanks to its unique features you will save time and money. Do not miss this exceptional opportunity, stock is limited! Order today and get 20% off.",
		},
		{
			ID:          "technical",
			Name:        "Technical",
			Description: "Detailed and precise tone, suited to technical and scientific descriptions.",
			Characteristics: []string{
				"Specialised vocabulary",
				"Precise, measurable data",
				"Logical structure",
				"Technical references",
			},
			Example: "The system uses a quad-core processor clocked at 2.4 GHz with 8 GB of DDR4 memory. Data is transmitted over TLS 1.3 with AES-256 encryption. Measured performance shows an average response time of 12 ms under normal load and a throughput of 1000 transactions per second.",
		},
		{
			ID:          "luxury",
			Name:        "Luxury and Prestige",
			Description: "Elegant and refined tone that highlights exclusivity and quality.",
			Characteristics: []string{
				"Rich, refined vocabulary",
				"Evocation of sensations and emotions",
				"References to craftsmanship and excellence",
				"Emphasis on exclusivity",
			},
			Example: "The fruit of exceptional know-how, this creation of timeless elegance embodies the perfect union of tradition and innovation. Every detail, carefully conceived and executed by our master artisans, reflects a relentless pursuit of perfection. A unique sensory experience reserved for the most discerning connoisseurs.",
		},
	}
}
