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
	"regexp"
	"strings"
)

// Spec 一条技术参数
type Spec struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var colonPair = regexp.MustCompile(`([^:]+):\s*([^,\n]+)`)

// SpecsFromText 从粘贴的参数表中解析技术参数，保持原文顺序。
// 含制表符时每行按 "名称\t值\t名称\t值..." 成对读取；否则按 "名称: 值" 读取，逗号或换行分隔。
func SpecsFromText(text string) []Spec {
	text = strings.TrimSpace(text)
	specs := []Spec{}
	if strings.Contains(text, "\t") {
		for _, line := range strings.Split(text, "\n") {
			parts := strings.Split(line, "\t")
			for i := 0; i+1 < len(parts); i += 2 {
				specs = appendSpec(specs, strings.TrimSuffix(strings.TrimSpace(parts[i]), ":"), parts[i+1])
			}
		}
		return specs
	}
	for _, m := range colonPair.FindAllStringSubmatch(text, -1) {
		specs = appendSpec(specs, m[1], m[2])
	}
	return specs
}

func appendSpec(specs []Spec, name, value string) []Spec {
	name = strings.Trim(name, " \t\r\n,;")
	value = strings.TrimSpace(value)
	if name == "" || value == "" {
		return specs
	}
	return append(specs, Spec{Name: name, Value: value})
}

// SpecsMap 转为 Product.TechnicalSpecs 形式；同名参数后者覆盖前者
func SpecsMap(specs []Spec) map[string]interface{} {
	out := make(map[string]interface{}, len(specs))
	for _, s := range specs {
		out[s.Name] = s.Value
	}
	return out
}

// Specs 合并结构化参数与 RawSpecs 中解析出的参数，结构化参数优先
func (p Product) Specs() map[string]interface{} {
	if strings.TrimSpace(p.RawSpecs) == "" {
		return p.TechnicalSpecs
	}
	merged := SpecsMap(SpecsFromText(p.RawSpecs))
	for k, v := range p.TechnicalSpecs {
		merged[k] = v
	}
	return merged
}
