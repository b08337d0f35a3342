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
	"encoding/json"
	"fmt"
	"time"
)

// 切片元数据中的反范式化字段
const (
	MetaDocumentID = "document_id"
	MetaClientID   = "client_id"
	MetaTitle      = "title"
	MetaSourceType = "source_type"
)

// SourceText 由纯文本创建的文档来源类型
const SourceText = "text"

// Metadata 开放的键值元数据
type Metadata map[string]interface{}

// Clone 浅拷贝
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m)+4)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Document 客户文档完整记录（documents/{id}.json）
type Document struct {
	DocumentID string    `json:"document_id"`
	ClientID   string    `json:"client_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	SourceType string    `json:"source_type"`
	Metadata   Metadata  `json:"metadata"`
	CreatedAt  Timestamp `json:"created_at"`
}

// Chunk 切片完整记录（chunks/{id}.json）
type Chunk struct {
	ChunkID    string   `json:"chunk_id"`
	DocumentID string   `json:"document_id"`
	Content    string   `json:"content"`
	Metadata   Metadata `json:"metadata"`
}

// Title 返回反范式化的文档标题
func (c *Chunk) Title() string { return c.metaString(MetaTitle) }

// SourceType 返回反范式化的来源类型
func (c *Chunk) SourceType() string { return c.metaString(MetaSourceType) }

// ClientID 返回反范式化的客户 ID
func (c *Chunk) ClientID() string { return c.metaString(MetaClientID) }

func (c *Chunk) metaString(key string) string {
	if c.Metadata == nil {
		return ""
	}
	s, _ := c.Metadata[key].(string)
	return s
}

// DocumentEntry documents_index 中的投影
type DocumentEntry struct {
	DocumentID string    `json:"document_id"`
	ClientID   string    `json:"client_id"`
	Title      string    `json:"title"`
	SourceType string    `json:"source_type"`
	CreatedAt  Timestamp `json:"created_at"`
}

// ChunkEntry chunks_index 中的投影
type ChunkEntry struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	ClientID   string `json:"client_id"`
	Title      string `json:"title"`
}

// DocumentSummary ListByClient 返回的文档摘要
type DocumentSummary struct {
	DocumentID string    `json:"document_id"`
	ClientID   string    `json:"client_id"`
	Title      string    `json:"title"`
	SourceType string    `json:"source_type"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  Timestamp `json:"created_at"`
}

// ClientSummary SummarizeClient 的结果
type ClientSummary struct {
	ClientID      string          `json:"client_id"`
	DocumentCount int             `json:"document_count"`
	DocumentTypes map[string]int  `json:"document_types"`
	Documents     []DocumentEntry `json:"documents"`
}

// Timestamp ISO-8601 时间；兼容不带时区的写法
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Now 当前 UTC 时间
func Now() Timestamp {
	return Timestamp{Time: time.Now().UTC()}
}

// MarshalJSON 以 RFC3339Nano 输出
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// UnmarshalJSON 依次尝试已知格式，空串为零值
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", s)
}
