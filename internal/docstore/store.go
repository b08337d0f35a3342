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

// Package docstore 以 JSON 文件持久化客户文档与切片，并维护文档索引与切片索引
package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"proddesc/internal/splitter"
	perrors "proddesc/pkg/errors"
	"proddesc/pkg/log"
	"proddesc/pkg/metrics"
	"proddesc/pkg/tracing"
)

var (
	// ErrLocked 另一个写入方持有该目录
	ErrLocked = errors.New("document store is locked by another writer")
	// ErrReadOnly 只读打开的文档库不接受变更
	ErrReadOnly = errors.New("document store is read-only")
)

// Config 文档库配置
type Config struct {
	Root         string
	ChunkSize    int
	ChunkOverlap int
	// ReadOnly 不加写锁，读操作前按索引文件变化重新加载；用于另一进程负责写入的部署
	ReadOnly bool
}

// Store 文档库：索引常驻内存，每次变更后整文件重写；写操作串行。
// 同一目录同一时刻只允许一个写入方，由目录下的锁文件保证。
type Store struct {
	root      string
	docsDir   string
	chunksDir string
	splitter  *splitter.Splitter
	logger    *log.Logger
	readOnly  bool
	lock      *flock.Flock

	mu        sync.RWMutex
	documents map[string]DocumentEntry
	chunks    map[string]ChunkEntry
	stamps    map[string]indexStamp

	// epoch 每次 Open 生成；与 revision 一起构成缓存版本，进程重启后不会与旧版本重复
	epoch    string
	revision atomic.Uint64
}

type indexStamp struct {
	modTime time.Time
	size    int64
}

// Open 打开（必要时创建）文档库目录并加载两个索引
func Open(cfg Config, logger *log.Logger) (*Store, error) {
	if cfg.Root == "" {
		return nil, perrors.Configf("document store root is required")
	}
	sp, err := splitter.New(
		splitter.WithChunkSize(cfg.ChunkSize),
		splitter.WithOverlap(cfg.ChunkOverlap),
	)
	if err != nil {
		return nil, err
	}

	s := &Store{
		root:      cfg.Root,
		docsDir:   filepath.Join(cfg.Root, documentsDir),
		chunksDir: filepath.Join(cfg.Root, chunksDir),
		splitter:  sp,
		logger:    log.OrDiscard(logger).Component("docstore"),
		readOnly:  cfg.ReadOnly,
		documents: map[string]DocumentEntry{},
		chunks:    map[string]ChunkEntry{},
		stamps:    map[string]indexStamp{},
		epoch:     uuid.NewString(),
	}
	if !s.readOnly {
		for _, dir := range []string{s.root, s.docsDir, s.chunksDir} {
			if err := os.MkdirAll(dir, recordDirFileMode); err != nil {
				return nil, perrors.Wrapf(err, "create %s", dir)
			}
		}
		s.lock = flock.New(filepath.Join(s.root, lockFile))
		locked, err := s.lock.TryLock()
		if err != nil {
			return nil, perrors.Wrapf(err, "lock %s", s.root)
		}
		if !locked {
			return nil, fmt.Errorf("%s: %w", s.root, ErrLocked)
		}
	}
	if err := s.loadIndexes(); err != nil {
		s.Close()
		return nil, err
	}
	s.logger.Info("document store opened",
		"root", s.root,
		"read_only", s.readOnly,
		"documents", len(s.documents),
		"chunks", len(s.chunks))
	return s, nil
}

// Close 释放写锁；只读实例无需关闭
func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

// ReadOnly 是否以只读方式打开
func (s *Store) ReadOnly() bool { return s.readOnly }

func (s *Store) loadIndexes() error {
	documents := map[string]DocumentEntry{}
	chunks := map[string]ChunkEntry{}
	if err := s.loadIndex(documentsIndex, &documents); err != nil {
		return err
	}
	if err := s.loadIndex(chunksIndex, &chunks); err != nil {
		return err
	}
	s.documents = documents
	s.chunks = chunks
	return nil
}

// loadIndex 读取索引文件并记录其修改时间；写入方在文件不存在时写入空索引
func (s *Store) loadIndex(name string, dst interface{}) error {
	path := filepath.Join(s.root, name)
	err := readJSON(path, dst)
	if errors.Is(err, perrors.ErrNotFound) {
		if s.readOnly {
			s.stamps[name] = indexStamp{}
			return nil
		}
		err = writeJSON(path, map[string]struct{}{})
	}
	if err != nil {
		return err
	}
	s.stamps[name] = statIndex(path)
	return nil
}

func statIndex(path string) indexStamp {
	info, err := os.Stat(path)
	if err != nil {
		return indexStamp{}
	}
	return indexStamp{modTime: info.ModTime(), size: info.Size()}
}

// refresh 只读实例在任一索引文件变化后重新加载两个索引并推进版本
func (s *Store) refresh() {
	if !s.readOnly {
		return
	}
	s.mu.RLock()
	changed := false
	for _, name := range []string{documentsIndex, chunksIndex} {
		if statIndex(filepath.Join(s.root, name)) != s.stamps[name] {
			changed = true
			break
		}
	}
	s.mu.RUnlock()
	if !changed {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadIndexes(); err != nil {
		s.logger.Warn("index reload failed, serving previous snapshot", "error", err)
		return
	}
	s.revision.Add(1)
	s.logger.Debug("indexes reloaded",
		"documents", len(s.documents),
		"chunks", len(s.chunks))
}

// Root 返回存储根目录
func (s *Store) Root() string { return s.root }

// Revision 每次入库、删除或只读重载后递增
func (s *Store) Revision() uint64 { return s.revision.Load() }

// Version 检索缓存使用的版本号：本次打开的 epoch 加 revision
func (s *Store) Version() string {
	s.refresh()
	return s.epoch + "." + strconv.FormatUint(s.revision.Load(), 10)
}

func (s *Store) documentPath(id string) string {
	return filepath.Join(s.docsDir, id+".json")
}

func (s *Store) chunkPath(id string) string {
	return filepath.Join(s.chunksDir, id+".json")
}

func (s *Store) saveDocumentsIndex() error {
	return writeJSON(filepath.Join(s.root, documentsIndex), s.documents)
}

func (s *Store) saveChunksIndex() error {
	return writeJSON(filepath.Join(s.root, chunksIndex), s.chunks)
}

// Ingest 写入文档记录与索引项，切片后写入每个切片记录与切片索引，返回文档 ID。
// 同一 ID 重复入库时先移除旧切片。
func (s *Store) Ingest(ctx context.Context, doc *Document) (id string, err error) {
	if doc == nil {
		return "", perrors.InvalidArgf("document is nil")
	}
	if doc.ClientID == "" {
		return "", perrors.InvalidArgf("client_id is required")
	}
	if s.readOnly {
		return "", ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if doc.DocumentID == "" {
		doc.DocumentID = uuid.NewString()
	}
	if err := validID(doc.DocumentID); err != nil {
		return "", err
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = Now()
	}
	if doc.Metadata == nil {
		doc.Metadata = Metadata{}
	}

	_, span := tracing.StartIngestSpan(ctx, doc.ClientID, doc.DocumentID)
	defer func() { tracing.EndSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.documents[doc.DocumentID]; ok && prev.ClientID != doc.ClientID {
		return "", perrors.InvalidArgf("document %s belongs to client %s", doc.DocumentID, prev.ClientID)
	}
	if err := writeJSON(s.documentPath(doc.DocumentID), doc); err != nil {
		return "", err
	}
	s.documents[doc.DocumentID] = DocumentEntry{
		DocumentID: doc.DocumentID,
		ClientID:   doc.ClientID,
		Title:      doc.Title,
		SourceType: doc.SourceType,
		CreatedAt:  doc.CreatedAt,
	}
	if err := s.saveDocumentsIndex(); err != nil {
		return "", err
	}

	stale, err := s.removeChunksLocked(doc.DocumentID)
	if err != nil {
		return "", err
	}

	chunks := s.buildChunks(doc)
	for _, c := range chunks {
		if err := writeJSON(s.chunkPath(c.ChunkID), c); err != nil {
			return "", err
		}
		s.chunks[c.ChunkID] = ChunkEntry{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			ClientID:   doc.ClientID,
			Title:      doc.Title,
		}
	}
	if err := s.saveChunksIndex(); err != nil {
		return "", err
	}
	s.revision.Add(1)

	metrics.DocumentsIngestedTotal.WithLabelValues(doc.SourceType).Inc()
	metrics.ChunksWrittenTotal.Add(float64(len(chunks)))
	s.logger.Info("document ingested",
		"document_id", doc.DocumentID,
		"client_id", doc.ClientID,
		"chunks", len(chunks),
		"replaced_chunks", stale)
	return doc.DocumentID, nil
}

// buildChunks 切分正文；切片元数据为文档元数据加反范式化字段，后者优先
func (s *Store) buildChunks(doc *Document) []*Chunk {
	texts := s.splitter.Split(doc.Content)
	chunks := make([]*Chunk, 0, len(texts))
	for i, text := range texts {
		md := doc.Metadata.Clone()
		md[MetaDocumentID] = doc.DocumentID
		md[MetaClientID] = doc.ClientID
		md[MetaTitle] = doc.Title
		md[MetaSourceType] = doc.SourceType
		chunks = append(chunks, &Chunk{
			ChunkID:    doc.DocumentID + "_" + strconv.Itoa(i),
			DocumentID: doc.DocumentID,
			Content:    text,
			Metadata:   md,
		})
	}
	return chunks
}

// IngestMany 依次入库，遇错即停；返回已入库的 ID
func (s *Store) IngestMany(ctx context.Context, docs []*Document) ([]string, error) {
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id, err := s.Ingest(ctx, doc)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Delete 删除文档及其全部切片；文档未入索引时返回 false
func (s *Store) Delete(ctx context.Context, documentID string) (bool, error) {
	if s.readOnly {
		return false, ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.documents[documentID]
	if !ok {
		s.logger.Warn("document not found, nothing deleted", "document_id", documentID)
		return false, nil
	}
	if err := removeFile(s.documentPath(documentID)); err != nil {
		return false, err
	}
	removed, err := s.removeChunksLocked(documentID)
	if err != nil {
		return false, err
	}
	delete(s.documents, documentID)
	if err := s.saveDocumentsIndex(); err != nil {
		return false, err
	}
	if err := s.saveChunksIndex(); err != nil {
		return false, err
	}
	s.revision.Add(1)

	metrics.DocumentsDeletedTotal.Inc()
	s.logger.Info("document deleted",
		"document_id", documentID,
		"client_id", entry.ClientID,
		"chunks", removed)
	return true, nil
}

// removeChunksLocked 删除某文档的切片文件与内存索引项（不落盘索引）；缺失的文件视为已删除
func (s *Store) removeChunksLocked(documentID string) (int, error) {
	var ids []string
	for id, c := range s.chunks {
		if c.DocumentID == documentID {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		if err := removeFile(s.chunkPath(id)); err != nil {
			return 0, err
		}
		delete(s.chunks, id)
	}
	return len(ids), nil
}

// DeleteClient 删除 ListByClient 列出的全部文档，返回删除数量
func (s *Store) DeleteClient(ctx context.Context, clientID string) (int, error) {
	if s.readOnly {
		return 0, ErrReadOnly
	}
	docs, err := s.ListByClient(ctx, clientID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, d := range docs {
		ok, err := s.Delete(ctx, d.DocumentID)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}
	s.logger.Info("client documents deleted", "client_id", clientID, "deleted", deleted)
	return deleted, nil
}

// ListByClient 扫描文档索引，附带每个文档的实时切片数；按创建时间、ID 排序
func (s *Store) ListByClient(ctx context.Context, clientID string) ([]DocumentSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.refresh()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []DocumentSummary{}
	for id, d := range s.documents {
		if d.ClientID != clientID {
			continue
		}
		count := 0
		for _, c := range s.chunks {
			if c.DocumentID == id {
				count++
			}
		}
		out = append(out, DocumentSummary{
			DocumentID: id,
			ClientID:   clientID,
			Title:      d.Title,
			SourceType: d.SourceType,
			ChunkCount: count,
			CreatedAt:  d.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt.Time) {
			return out[i].CreatedAt.Before(out[j].CreatedAt.Time)
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	return out, nil
}

// SummarizeClient 以切片索引为准汇总客户文档：没有切片的文档不会出现
func (s *Store) SummarizeClient(ctx context.Context, clientID string) (*ClientSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.refresh()
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := map[string]DocumentEntry{}
	for _, c := range s.chunks {
		if c.ClientID != clientID || c.DocumentID == "" {
			continue
		}
		if _, seen := docs[c.DocumentID]; seen {
			continue
		}
		if d, ok := s.documents[c.DocumentID]; ok {
			docs[c.DocumentID] = d
			continue
		}
		title := c.Title
		if title == "" {
			title = "Untitled document"
		}
		docs[c.DocumentID] = DocumentEntry{
			DocumentID: c.DocumentID,
			ClientID:   clientID,
			Title:      title,
			SourceType: "unknown",
		}
	}

	summary := &ClientSummary{
		ClientID:      clientID,
		DocumentCount: len(docs),
		DocumentTypes: map[string]int{},
		Documents:     make([]DocumentEntry, 0, len(docs)),
	}
	for _, d := range docs {
		st := d.SourceType
		if st == "" {
			st = "unknown"
		}
		summary.DocumentTypes[st]++
		summary.Documents = append(summary.Documents, d)
	}
	sort.Slice(summary.Documents, func(i, j int) bool {
		return summary.Documents[i].DocumentID < summary.Documents[j].DocumentID
	})
	return summary, nil
}

// GetDocument 读取完整文档记录；不存在时返回 ErrNotFound
func (s *Store) GetDocument(ctx context.Context, documentID string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.refresh()
	s.mu.RLock()
	_, ok := s.documents[documentID]
	s.mu.RUnlock()
	if !ok {
		return nil, perrors.Wrapf(perrors.ErrNotFound, "document %s", documentID)
	}
	var doc Document
	if err := readJSON(s.documentPath(documentID), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadChunk 读取切片完整记录；文件缺失时返回 ErrNotFound
func (s *Store) LoadChunk(chunkID string) (*Chunk, error) {
	if err := validID(chunkID); err != nil {
		return nil, err
	}
	var c Chunk
	if err := readJSON(s.chunkPath(chunkID), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ChunkEntries 返回切片索引快照（按 chunk_id 排序）；keep 为 nil 时返回全部
func (s *Store) ChunkEntries(keep func(ChunkEntry) bool) []ChunkEntry {
	s.refresh()
	s.mu.RLock()
	out := make([]ChunkEntry, 0, len(s.chunks))
	for _, c := range s.chunks {
		if keep == nil || keep(c) {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkID < out[j].ChunkID })
	return out
}

// DocumentCount 文档索引条目数
func (s *Store) DocumentCount() int {
	s.refresh()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// ChunkCount 某文档当前的切片数
func (s *Store) ChunkCount(documentID string) int {
	s.refresh()
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.chunks {
		if c.DocumentID == documentID {
			n++
		}
	}
	return n
}
