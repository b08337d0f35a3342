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


// Package extract 将上传文件转换为纯文本
package extract

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"proddesc/internal/docstore"
	perrors "proddesc/pkg/errors"
)

// MaxFileSize 单个上传文件大小上限
const MaxFileSize = 10 * 1024 * 1024

// SourceUploadedFile 上传文件生成的文档来源类型
const SourceUploadedFile = "uploaded_file"

var contentTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".html": "text/html",
	".htm":  "text/html",
	".pdf":  "application/pdf",
}

// Supported 扩展名（含点，大小写不敏感）是否可提取
func Supported(ext string) bool {
	_, ok := contentTypes[strings.ToLower(ext)]
	return ok
}

// ContentType 扩展名对应的 MIME 类型
func ContentType(ext string) string {
	return contentTypes[strings.ToLower(ext)]
}

// Text 按扩展名提取纯文本；不支持的扩展名返回 ErrUnsupported
func Text(data []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".txt", ".md":
		return decodeUTF8(data), nil
	case ".html", ".htm":
		return HTMLText(data)
	case ".pdf":
		return PDFText(data)
	default:
		return "", perrors.Wrapf(perrors.ErrUnsupported, "file extension %q", ext)
	}
}

// decodeUTF8 非法字节替换为 U+FFFD
func decodeUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}

// FileInput 上传文件入库参数
type FileInput struct {
	ClientID string
	Filename string
	Data     []byte
	// Title 为空时取不带扩展名的文件名
	Title    string
	Metadata docstore.Metadata
}

// Document 提取文件正文并构造待入库文档
func Document(in FileInput) (*docstore.Document, error) {
	if in.ClientID == "" {
		return nil, perrors.InvalidArgf("client_id is required")
	}
	if len(in.Data) > MaxFileSize {
		return nil, perrors.InvalidArgf("file %s exceeds %d bytes", in.Filename, MaxFileSize)
	}
	base := filepath.Base(in.Filename)
	ext := strings.ToLower(filepath.Ext(base))
	text, err := Text(in.Data, ext)
	if err != nil {
		return nil, err
	}

	md := docstore.Metadata{
		"filename":       base,
		"file_extension": ext,
		"content_type":   ContentType(ext),
	}
	for k, v := range in.Metadata {
		md[k] = v
	}
	title := in.Title
	if title == "" {
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return docstore.NewDocumentFromText(docstore.TextInput{
		Text:       text,
		ClientID:   in.ClientID,
		Title:      title,
		SourceType: SourceUploadedFile,
		Metadata:   md,
	}), nil
}
