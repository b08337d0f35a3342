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

package retrieval

import (
	"fmt"
	"strings"

	"proddesc/internal/docstore"
)

const (
	maxContextChars     = 500
	truncatedContextLen = 497

	// NoClientData 无命中时的通用上下文
	NoClientData = "No relevant client data found."
	// NoSectionData 无命中时的章节上下文正文
	NoSectionData = "No relevant client information found for this section."
	// SectionContextError 章节检索失败时的上下文正文
	SectionContextError = "Error while retrieving context."
)

// truncate 超过 500 字符时截到 497 并追加省略号
func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxContextChars {
		return s
	}
	return string(r[:truncatedContextLen]) + "..."
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// FormatContext 将检索结果格式化为生成提示词中的客户上下文块
func FormatContext(res *Result) string {
	if res == nil || len(res.Chunks) == 0 {
		return NoClientData
	}
	parts := []string{"RELEVANT CLIENT CONTEXT:"}
	for i, c := range res.Chunks {
		parts = append(parts,
			fmt.Sprintf("Document %d: %s (Type: %s)", i+1,
				orDefault(c.Title(), "Untitled document"),
				orDefault(c.SourceType(), "unknown source")),
			truncate(c.Content),
			"---")
	}
	return strings.Join(parts, "\n")
}

// SectionHeader 章节上下文标题行
func SectionHeader(sectionName string) string {
	return fmt.Sprintf("RELEVANT CLIENT CONTEXT FOR SECTION '%s':", strings.ToUpper(sectionName))
}

// FormatSectionContext 格式化某个章节的检索上下文；err 非 nil 时输出错误占位
func FormatSectionContext(sectionName string, chunks []*docstore.Chunk, err error) string {
	header := SectionHeader(sectionName)
	if err != nil {
		return header + "\n" + SectionContextError
	}
	if len(chunks) == 0 {
		return header + "\n" + NoSectionData
	}
	parts := []string{header}
	for i, c := range chunks {
		parts = append(parts,
			fmt.Sprintf("Document %d: %s (Source: %s)", i+1,
				orDefault(c.Title(), "Untitled"),
				orDefault(c.SourceType(), "Unknown source")),
			truncate(c.Content),
			"---")
	}
	return strings.Join(parts, "\n")
}
