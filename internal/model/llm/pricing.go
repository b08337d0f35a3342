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

package llm

import "strings"

// Pricing 每千 token 的美元单价
type Pricing struct {
	Input    float64 `json:"input"`
	Output   float64 `json:"output"`
	Currency string  `json:"currency"`
	Unit     string  `json:"unit"`
}

type modelPrice struct {
	match  string
	input  float64
	output float64
}

// OpenAI 按模型名精确匹配，其余提供商按前缀匹配（较长前缀在前）
var (
	openAIPrices = map[string]modelPrice{
		"gpt-4o":        {input: 0.01, output: 0.03},
		"gpt-4":         {input: 0.03, output: 0.06},
		"gpt-3.5-turbo": {input: 0.0015, output: 0.002},
	}
	geminiPrices = []modelPrice{
		{match: "gemini-2.5-pro", input: 0.0035, output: 0.0035},
		{match: "gemini-1.5-pro", input: 0.0025, output: 0.0025},
		{match: "gemini-1.0-pro", input: 0.001, output: 0.001},
	}
	claudePrices = []modelPrice{
		{match: "claude-3-opus", input: 0.015, output: 0.075},
		{match: "claude-3-5-sonnet", input: 0.003, output: 0.015},
		{match: "claude-3-sonnet", input: 0.003, output: 0.015},
		{match: "claude-3-5-haiku", input: 0.0008, output: 0.004},
		{match: "claude-3-haiku", input: 0.00025, output: 0.00125},
	}
)

// PricingFor 查询单价，未知模型为 0
func PricingFor(provider, model string) Pricing {
	p := Pricing{Currency: "USD", Unit: "1K tokens"}
	var price modelPrice
	switch provider {
	case ProviderOpenAI:
		price = openAIPrices[model]
	case ProviderGemini:
		price = matchPrefix(geminiPrices, model)
	case ProviderClaude:
		price = matchPrefix(claudePrices, model)
	}
	p.Input, p.Output = price.input, price.output
	return p
}

func matchPrefix(table []modelPrice, model string) modelPrice {
	for _, p := range table {
		if strings.Contains(model, p.match) {
			return p
		}
	}
	return modelPrice{}
}

// EstimateTokens 粗略估算 token 数（4 字符 ≈ 1 token）
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 && text != "" {
		n = 1
	}
	return n
}

// EstimateCost 按估算的输入、输出 token 计算费用
func EstimateCost(p Pricing, prompt, completion string) float64 {
	return float64(EstimateTokens(prompt))/1000*p.Input +
		float64(EstimateTokens(completion))/1000*p.Output
}
