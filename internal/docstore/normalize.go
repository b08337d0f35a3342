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

package docstore

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	controlChars  = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	productRef    = regexp.MustCompile(`[A-Z0-9]{5,10}`)
)

// knownCategories 从正文中识别的常见商品类目
var knownCategories = []string{
	"appliances", "computing", "furniture", "decoration",
	"garden", "diy", "kitchen", "bathroom",
}

// titleWords 自动标题取正文前几个词
const titleWords = 5

// Normalize 折叠空白、去掉控制字符并去除首尾空白
func Normalize(text string) string {
	cleaned := whitespaceRun.ReplaceAllString(text, " ")
	cleaned = controlChars.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// ExtractMetadata 从正文提取商品编号与类目
func ExtractMetadata(text string) Metadata {
	md := Metadata{}
	if refs := productRef.FindAllString(text, -1); len(refs) > 0 {
		md["product_references"] = refs
	}
	lower := strings.ToLower(text)
	var categories []string
	for _, c := range knownCategories {
		if strings.Contains(lower, c) {
			categories = append(categories, c)
		}
	}
	if len(categories) > 0 {
		md["categories"] = categories
	}
	return md
}

// TextInput NewDocumentFromText 的参数
type TextInput struct {
	Text       string
	ClientID   string
	Title      string
	SourceType string
	Metadata   Metadata
}

// NewDocumentFromText 规范化正文并构造新文档；调用方元数据覆盖提取结果
func NewDocumentFromText(in TextInput) *Document {
	content := Normalize(in.Text)

	title := in.Title
	if title == "" {
		words := strings.Fields(content)
		if len(words) > titleWords {
			words = words[:titleWords]
		}
		title = strings.Join(words, " ") + "..."
	}
	sourceType := in.SourceType
	if sourceType == "" {
		sourceType = SourceText
	}

	md := ExtractMetadata(content)
	for k, v := range in.Metadata {
		md[k] = v
	}

	return &Document{
		DocumentID: uuid.NewString(),
		ClientID:   in.ClientID,
		Title:      title,
		Content:    content,
		SourceType: sourceType,
		Metadata:   md,
	}
}
