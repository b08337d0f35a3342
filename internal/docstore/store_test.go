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
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "proddesc/pkg/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Root: t.TempDir(), ChunkSize: 1000, ChunkOverlap: 200}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := Open(Config{Root: t.TempDir(), ChunkSize: 100, ChunkOverlap: 100}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, perrors.ErrConfig))

	_, err = Open(Config{ChunkSize: 100, ChunkOverlap: 10}, nil)
	assert.True(t, errors.Is(err, perrors.ErrConfig))
}

func TestOpen_CreatesLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")
	_, err := Open(Config{Root: root, ChunkSize: 1000, ChunkOverlap: 200}, nil)
	require.NoError(t, err)

	for _, p := range []string{documentsDir, chunksDir, documentsIndex, chunksIndex} {
		_, err := os.Stat(filepath.Join(root, p))
		assert.NoError(t, err, p)
	}
}

func TestIngest_SpecSheetScenario(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Ingest(ctx, &Document{
		ClientID: "c1",
		Title:    "Spec Sheet",
		Content:  strings.Repeat("A", 2500),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	entries := s.ChunkEntries(nil)
	require.Len(t, entries, 3)

	c0, err := s.LoadChunk(id + "_0")
	require.NoError(t, err)
	c1, err := s.LoadChunk(id + "_1")
	require.NoError(t, err)
	c2, err := s.LoadChunk(id + "_2")
	require.NoError(t, err)

	assert.Len(t, c0.Content, 1000)
	assert.True(t, strings.HasPrefix(c1.Content, c0.Content[800:]))
	assert.Len(t, c2.Content, 900)

	assert.Equal(t, "c1", c1.ClientID())
	assert.Equal(t, "Spec Sheet", c1.Title())
	assert.Equal(t, id, c1.Metadata[MetaDocumentID])
}

func TestIngest_ChunkMetadataDenormalized(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Ingest(context.Background(), &Document{
		ClientID:   "c1",
		Title:      "Catalogue",
		SourceType: "catalogue",
		Content:    "Stainless kettle",
		Metadata:   Metadata{"brand": "Acme", "client_id": "spoofed"},
	})
	require.NoError(t, err)

	c, err := s.LoadChunk(id + "_0")
	require.NoError(t, err)
	assert.Equal(t, "Acme", c.Metadata["brand"])
	assert.Equal(t, "c1", c.ClientID())
	assert.Equal(t, "catalogue", c.SourceType())
}

func TestIngest_KeepsPreassignedID(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Ingest(context.Background(), &Document{DocumentID: "doc-1", ClientID: "c1", Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", id)
}

func TestIngest_RejectsInvalidInput(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Ingest(ctx, nil)
	assert.True(t, errors.Is(err, perrors.ErrInvalidArg))

	_, err = s.Ingest(ctx, &Document{Content: "x"})
	assert.True(t, errors.Is(err, perrors.ErrInvalidArg))

	_, err = s.Ingest(ctx, &Document{DocumentID: "../escape", ClientID: "c1", Content: "x"})
	assert.True(t, errors.Is(err, perrors.ErrInvalidArg))
}

func TestIngest_EmptyContentHasNoChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.Ingest(ctx, &Document{ClientID: "c1", Title: "Empty", Content: ""})
	require.NoError(t, err)

	assert.Equal(t, 0, s.ChunkCount(id))

	listed, err := s.ListByClient(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 0, listed[0].ChunkCount)

	summary, err := s.SummarizeClient(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.DocumentCount)
	assert.Empty(t, summary.Documents)
}

func TestIngest_ReingestReplacesChunks(t *testing.T) {
	s := openSmallStore(t)
	ctx := context.Background()

	_, err := s.Ingest(ctx, &Document{DocumentID: "d", ClientID: "c1", Content: strings.Repeat("word ", 40)})
	require.NoError(t, err)
	before := s.ChunkCount("d")
	require.Greater(t, before, 1)

	_, err = s.Ingest(ctx, &Document{DocumentID: "d", ClientID: "c1", Content: "short"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.ChunkCount("d"))

	_, err = s.LoadChunk("d_1")
	assert.True(t, errors.Is(err, perrors.ErrNotFound))
}

// openSmallStore 使用小切片便于构造多切片文档
func openSmallStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Root: t.TempDir(), ChunkSize: 50, ChunkOverlap: 10}, nil)
	require.NoError(t, err)
	return s
}

func TestIndexesPersistAcrossReopen(t *testing.T) {
	root := t.TempDir()
	cfg := Config{Root: root, ChunkSize: 1000, ChunkOverlap: 200}
	s, err := Open(cfg, nil)
	require.NoError(t, err)
	id, err := s.Ingest(context.Background(), &Document{ClientID: "c1", Title: "T", Content: "hello"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.DocumentCount())
	assert.Equal(t, 1, reopened.ChunkCount(id))

	doc, err := reopened.GetDocument(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "hello", doc.Content)
	assert.False(t, doc.CreatedAt.IsZero())
}

func TestIndexFileLayout(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Ingest(context.Background(), &Document{ClientID: "c1", Title: "T", SourceType: "text", Content: "hello"})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(s.Root(), documentsIndex))
	require.NoError(t, err)
	var docs map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &docs))
	require.Contains(t, docs, id)
	assert.Equal(t, "c1", docs[id]["client_id"])
	assert.NotContains(t, docs[id], "content")

	raw, err = os.ReadFile(filepath.Join(s.Root(), chunksIndex))
	require.NoError(t, err)
	var chunks map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &chunks))
	require.Contains(t, chunks, id+"_0")
	assert.Equal(t, id, chunks[id+"_0"]["document_id"])
	assert.Equal(t, "T", chunks[id+"_0"]["title"])
}

func TestOpen_ReadsNaiveTimestamps(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, documentsIndex), []byte(`{
  "d1": {"document_id": "d1", "client_id": "c1", "title": "Old", "source_type": "text", "created_at": "2024-03-01T10:20:30.123456"}
}`), 0o644))

	s, err := Open(Config{Root: root, ChunkSize: 1000, ChunkOverlap: 200}, nil)
	require.NoError(t, err)
	listed, err := s.ListByClient(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 2024, listed[0].CreatedAt.Year())
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.Ingest(ctx, &Document{ClientID: "c1", Content: strings.Repeat("B", 2500)})
	require.NoError(t, err)
	keep, err := s.Ingest(ctx, &Document{ClientID: "c1", Content: "other"})
	require.NoError(t, err)
	rev := s.Revision()

	ok, err := s.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Greater(t, s.Revision(), rev)

	for _, e := range s.ChunkEntries(nil) {
		assert.NotEqual(t, id, e.DocumentID)
	}
	_, err = os.Stat(filepath.Join(s.Root(), documentsDir, id+".json"))
	assert.True(t, os.IsNotExist(err))

	listed, err := s.ListByClient(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, keep, listed[0].DocumentID)

	ok, err = s.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete_ToleratesMissingChunkFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.Ingest(ctx, &Document{ClientID: "c1", Content: strings.Repeat("C", 2500)})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(s.Root(), chunksDir, id+"_1.json")))
	require.NoError(t, os.Remove(filepath.Join(s.Root(), documentsDir, id+".json")))

	ok, err := s.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, s.ChunkCount(id))
}

func TestDeleteClient(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, c := range []string{"c1", "c1", "c2"} {
		_, err := s.Ingest(ctx, &Document{ClientID: c, Content: "text for " + c})
		require.NoError(t, err)
	}

	n, err := s.DeleteClient(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := s.ListByClient(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, left)
	other, err := s.ListByClient(ctx, "c2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestSummarizeClient(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docs := []*Document{
		{ClientID: "c1", SourceType: "catalogue", Content: "one"},
		{ClientID: "c1", SourceType: "catalogue", Content: "two"},
		{ClientID: "c1", SourceType: "uploaded_file", Content: "three"},
		{ClientID: "c2", SourceType: "text", Content: "four"},
	}
	_, err := s.IngestMany(ctx, docs)
	require.NoError(t, err)

	summary, err := s.SummarizeClient(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", summary.ClientID)
	assert.Equal(t, 3, summary.DocumentCount)
	assert.Equal(t, map[string]int{"catalogue": 2, "uploaded_file": 1}, summary.DocumentTypes)
	assert.Len(t, summary.Documents, 3)
}

func TestGetDocument_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetDocument(context.Background(), "missing")
	assert.True(t, errors.Is(err, perrors.ErrNotFound))
}

func TestIngest_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Ingest(ctx, &Document{ClientID: "c1", Content: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_SingleWriter(t *testing.T) {
	root := t.TempDir()
	cfg := Config{Root: root, ChunkSize: 1000, ChunkOverlap: 200}
	writer, err := Open(cfg, nil)
	require.NoError(t, err)

	_, err = Open(cfg, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))

	require.NoError(t, writer.Close())
	again, err := Open(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestReadOnly_SeesWriterChanges(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	writer, err := Open(Config{Root: root, ChunkSize: 1000, ChunkOverlap: 200}, nil)
	require.NoError(t, err)
	defer writer.Close()

	reader, err := Open(Config{Root: root, ChunkSize: 1000, ChunkOverlap: 200, ReadOnly: true}, nil)
	require.NoError(t, err)
	assert.True(t, reader.ReadOnly())
	assert.Equal(t, 0, reader.DocumentCount())
	before := reader.Version()

	id, err := writer.Ingest(ctx, &Document{ClientID: "c1", Title: "W", Content: "written by the worker"})
	require.NoError(t, err)

	assert.Equal(t, 1, reader.DocumentCount())
	assert.Equal(t, 1, reader.ChunkCount(id))
	assert.NotEqual(t, before, reader.Version())
	listed, err := reader.ListByClient(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, listed, 1)

	_, err = reader.Ingest(ctx, &Document{ClientID: "c1", Content: "x"})
	assert.True(t, errors.Is(err, ErrReadOnly))
	_, err = reader.Delete(ctx, id)
	assert.True(t, errors.Is(err, ErrReadOnly))
	_, err = reader.DeleteClient(ctx, "c1")
	assert.True(t, errors.Is(err, ErrReadOnly))

	// 只读实例不加锁，写入方仍然唯一
	_, err = os.Stat(filepath.Join(root, documentsDir, id+".json"))
	require.NoError(t, err)
	_, err = Open(Config{Root: root, ChunkSize: 1000, ChunkOverlap: 200}, nil)
	assert.True(t, errors.Is(err, ErrLocked))
}

func TestVersion_ChangesAcrossReopen(t *testing.T) {
	root := t.TempDir()
	cfg := Config{Root: root, ChunkSize: 1000, ChunkOverlap: 200}
	s, err := Open(cfg, nil)
	require.NoError(t, err)
	first := s.Version()
	require.NoError(t, s.Close())

	reopened, err := Open(cfg, nil)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, s.Revision(), reopened.Revision())
	assert.NotEqual(t, first, reopened.Version())
}

func TestIngest_ClientIDIsImmutable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Ingest(ctx, &Document{DocumentID: "d1", ClientID: "acme", Title: "A", Content: "owned by acme"})
	require.NoError(t, err)

	_, err = s.Ingest(ctx, &Document{DocumentID: "d1", ClientID: "globex", Title: "B", Content: "hijack"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, perrors.ErrInvalidArg))

	doc, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "acme", doc.ClientID)
	assert.Equal(t, "owned by acme", doc.Content)
	listed, err := s.ListByClient(ctx, "globex")
	require.NoError(t, err)
	assert.Empty(t, listed)

	_, err = s.Ingest(ctx, &Document{DocumentID: "d1", ClientID: "acme", Title: "A2", Content: "updated"})
	require.NoError(t, err)
}
