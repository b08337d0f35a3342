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
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	perrors "proddesc/pkg/errors"
)

// 模板 ID
const (
	TemplateStandard   = "standard"
	TemplateTechnical  = "technical"
	TemplateCommercial = "commercial"
	TemplateCustom     = "custom"
)

// SectionTemplate 商品页的一个章节
type SectionTemplate struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Description    string `json:"description" yaml:"description"`
	Required       bool   `json:"required" yaml:"required"`
	DefaultEnabled bool   `json:"default_enabled" yaml:"default_enabled"`
	Order          int    `json:"order" yaml:"order"`
	// RAGQueryTemplate 章节检索查询模板
	RAGQueryTemplate string `json:"rag_query_template" yaml:"rag_query_template"`
	// PromptTemplate 章节生成指令模板
	PromptTemplate string `json:"prompt_template" yaml:"prompt_template"`
}

// Template 一组有序章节
type Template struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Sections    []SectionTemplate `json:"sections"`
	IsDefault   bool              `json:"is_default"`
}

// DefaultSections 内置章节，按 Order 排列
func DefaultSections() []SectionTemplate {
	return []SectionTemplate{
		{
			ID: "introduction", Name: "Introduction", Description: "General presentation of the product",
			Required: true, DefaultEnabled: true, Order: 1,
			RAGQueryTemplate: "general presentation and usage context of {product_name} in the {product_category} category",
			PromptTemplate: "Write a captivating introduction for {product_name} that presents the product\n" +
				"and its main purpose. Mention the brand and the positioning of the product.\nLength: 2-3 sentences.",
		},
		{
			ID: "benefits", Name: "Benefits", Description: "Main advantages and benefits of the product",
			Required: true, DefaultEnabled: true, Order: 2,
			RAGQueryTemplate: "advantages, benefits and strengths of {product_name} compared to the competition",
			PromptTemplate: "Present the 3-5 main advantages and benefits of {product_name}.\n" +
				"Highlight what sets it apart from the competition and its strengths.\nFormat: bullet list with a title for each benefit.",
		},
		{
			ID: "technical_specs", Name: "Technical specifications", Description: "Detailed technical specifications",
			Required: true, DefaultEnabled: true, Order: 3,
			RAGQueryTemplate: "detailed technical specifications of {product_name} including dimensions, materials, capacities",
			PromptTemplate: "Detail the technical characteristics of {product_name} precisely and in a structured way.\n" +
				"Use the following technical information: {technical_specs}\nFormat: bullet list organized by category.",
		},
		{
			ID: "use_cases", Name: "Use cases", Description: "Concrete usage examples",
			DefaultEnabled: true, Order: 4,
			RAGQueryTemplate: "concrete examples and use cases of {product_name} in different contexts",
			PromptTemplate: "Present 2-3 concrete use cases for {product_name}.\n" +
				"Show how the product solves specific problems for its users.",
		},
		{
			ID: "installation", Name: "Installation and setup", Description: "Installation and setup instructions",
			Order: 5,
			RAGQueryTemplate: "installation and setup instructions for {product_name}, prerequisites and steps",
			PromptTemplate: "Summarize the main installation and setup steps for {product_name}.\n" +
				"Mention the prerequisites and the important points of attention.",
		},
		{
			ID: "maintenance", Name: "Care and maintenance", Description: "Care and maintenance advice",
			Order: 6,
			RAGQueryTemplate: "care and maintenance advice for {product_name}, frequency and methods",
			PromptTemplate: "Give practical advice for the care and maintenance of {product_name}.\n" +
				"Specify the recommended frequency and the methods to use.",
		},
		{
			ID: "warranty", Name: "Warranty and support", Description: "Warranty and after-sales service information",
			DefaultEnabled: true, Order: 7,
			RAGQueryTemplate: "warranty, after-sales service and support information for {product_name}",
			PromptTemplate: "Present the warranty and after-sales service information for {product_name}.\n" +
				"Include the warranty duration, what it covers and how to contact support.",
		},
		{
			ID: "customer_reviews", Name: "Customer reviews", Description: "Summary of customer reviews",
			DefaultEnabled: true, Order: 8,
			RAGQueryTemplate: "customer reviews and testimonials about {product_name}, strengths and weaknesses mentioned",
			PromptTemplate: "Summarize customer reviews of {product_name}.\n" +
				"Mention the recurring strengths and possibly a few points for improvement.\n" +
				"Do not invent specific reviews, stay factual about the trends.",
		},
		{
			ID: "comparison", Name: "Comparison with the competition", Description: "Comparison with competing products",
			Order: 9,
			RAGQueryTemplate: "comparison of {product_name} with competing products, advantages and drawbacks",
			PromptTemplate: "Compare {product_name} objectively with the main competing products.\n" +
				"Highlight its strengths without disparaging the competition.\n" +
				"Use these competitor insights if available: {competitor_insights}",
		},
		{
			ID: "conclusion", Name: "Conclusion", Description: "Conclusion and call to action",
			Required: true, DefaultEnabled: true, Order: 10,
			RAGQueryTemplate: "conclusion and summary of the strengths of {product_name}, ideal target audience",
			PromptTemplate: "Write a persuasive conclusion that sums up the main assets of {product_name}.\n" +
				"End with a call to action suited to the product.\nLength: 2-3 sentences.",
		},
	}
}

func pickSections(all []SectionTemplate, keep func(SectionTemplate) bool) []SectionTemplate {
	out := []SectionTemplate{}
	for _, s := range all {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func idSet(ids ...string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func defaultTemplates(sections []SectionTemplate) []Template {
	technical := idSet("introduction", "technical_specs", "installation", "maintenance", "use_cases", "warranty", "conclusion")
	commercial := idSet("introduction", "benefits", "customer_reviews", "comparison", "warranty", "conclusion")
	return []Template{
		{
			ID: TemplateStandard, Name: "Standard product page", Description: "Standard template for every kind of product",
			Sections:  pickSections(sections, func(s SectionTemplate) bool { return s.DefaultEnabled || s.Required }),
			IsDefault: true,
		},
		{
			ID: TemplateTechnical, Name: "Technical product page", Description: "Template focused on technical specifications",
			Sections: pickSections(sections, func(s SectionTemplate) bool { return technical[s.ID] }),
		},
		{
			ID: TemplateCommercial, Name: "Commercial product page", Description: "Template focused on sales and benefits",
			Sections: pickSections(sections, func(s SectionTemplate) bool { return commercial[s.ID] }),
		},
	}
}

// TemplateSet 可用模板集合，只读
type TemplateSet struct {
	sections  []SectionTemplate
	templates []Template
}

// DefaultTemplates 内置的 standard / technical / commercial 模板
func DefaultTemplates() *TemplateSet {
	sections := DefaultSections()
	set, _ := NewTemplateSet(sections, defaultTemplates(sections))
	return set
}

// NewTemplateSet 校验并创建模板集合；模板内章节按 Order 排序
func NewTemplateSet(sections []SectionTemplate, templates []Template) (*TemplateSet, error) {
	if len(templates) == 0 {
		return nil, perrors.Configf("at least one template is required")
	}
	seen := make(map[string]bool, len(templates))
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		if t.ID == "" {
			return nil, perrors.Configf("template without id")
		}
		if seen[t.ID] {
			return nil, perrors.Configf("duplicate template id %q", t.ID)
		}
		seen[t.ID] = true
		t.Sections = sortedSections(t.Sections)
		out = append(out, t)
	}
	return &TemplateSet{sections: sortedSections(sections), templates: out}, nil
}

func sortedSections(in []SectionTemplate) []SectionTemplate {
	out := append([]SectionTemplate(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// List 全部模板
func (s *TemplateSet) List() []Template {
	return append([]Template(nil), s.templates...)
}

// Sections 全部可选章节
func (s *TemplateSet) Sections() []SectionTemplate {
	return append([]SectionTemplate(nil), s.sections...)
}

// Get 按 ID 查找模板
func (s *TemplateSet) Get(id string) (Template, bool) {
	for _, t := range s.templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Default 标记为默认的模板；没有标记时取第一个
func (s *TemplateSet) Default() Template {
	for _, t := range s.templates {
		if t.IsDefault {
			return t
		}
	}
	return s.templates[0]
}

// Resolve 按 ID 查找模板，未知 ID 回退到默认模板
func (s *TemplateSet) Resolve(id string) Template {
	if t, ok := s.Get(id); ok {
		return t
	}
	return s.Default()
}

// Customize 以 baseID 对应模板（未知时取默认模板）为基础，保留 sectionIDs 中列出的章节和全部必选章节
func (s *TemplateSet) Customize(baseID string, sectionIDs []string) Template {
	base := s.Resolve(baseID)
	wanted := idSet(sectionIDs...)
	return Template{
		ID:          TemplateCustom,
		Name:        "Custom template",
		Description: "Custom template based on " + base.Name,
		Sections: sortedSections(pickSections(base.Sections, func(sec SectionTemplate) bool {
			return wanted[sec.ID] || sec.Required
		})),
	}
}

// templateFile 模板 YAML 文件结构；templates 为空时只生成 standard 模板
type templateFile struct {
	Sections  []SectionTemplate `yaml:"sections"`
	Templates []struct {
		ID          string   `yaml:"id"`
		Name        string   `yaml:"name"`
		Description string   `yaml:"description"`
		IsDefault   bool     `yaml:"is_default"`
		Sections    []string `yaml:"sections"`
	} `yaml:"templates"`
}

// LoadTemplates 从 YAML 文件加载章节与模板定义
func LoadTemplates(path string) (*TemplateSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, perrors.Wrapf(err, "read templates file %s", path)
	}
	return ParseTemplates(data)
}

// ParseTemplates 解析模板 YAML
func ParseTemplates(data []byte) (*TemplateSet, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, perrors.Configf("parse templates: %v", err)
	}
	if len(f.Sections) == 0 {
		return nil, perrors.Configf("templates file defines no sections")
	}
	byID := make(map[string]SectionTemplate, len(f.Sections))
	for _, s := range f.Sections {
		if s.ID == "" {
			return nil, perrors.Configf("section without id")
		}
		if _, dup := byID[s.ID]; dup {
			return nil, perrors.Configf("duplicate section id %q", s.ID)
		}
		byID[s.ID] = s
	}

	if len(f.Templates) == 0 {
		return NewTemplateSet(f.Sections, defaultTemplates(sortedSections(f.Sections))[:1])
	}
	templates := make([]Template, 0, len(f.Templates))
	for _, spec := range f.Templates {
		t := Template{ID: spec.ID, Name: spec.Name, Description: spec.Description, IsDefault: spec.IsDefault}
		for _, id := range spec.Sections {
			sec, ok := byID[id]
			if !ok {
				return nil, perrors.Configf("template %q references unknown section %q", spec.ID, id)
			}
			t.Sections = append(t.Sections, sec)
		}
		templates = append(templates, t)
	}
	return NewTemplateSet(f.Sections, templates)
}
