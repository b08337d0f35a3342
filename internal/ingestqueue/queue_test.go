package ingestqueue

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proddesc/internal/docstore"
	"proddesc/pkg/config"
	perrors "proddesc/pkg/errors"
)

func TestPayloadValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		ok      bool
	}{
		{"text", Payload{ClientID: "c1", Text: "hello"}, true},
		{"file", Payload{ClientID: "c1", Filename: "a.txt", ContentBase64: "aGk="}, true},
		{"no client", Payload{Text: "hello"}, false},
		{"empty", Payload{ClientID: "c1"}, false},
		{"both", Payload{ClientID: "c1", Text: "x", Filename: "a.txt", ContentBase64: "aGk="}, false},
		{"file without name", Payload{ClientID: "c1", ContentBase64: "aGk="}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, perrors.ErrInvalidArg)
			}
		})
	}
}

func TestMemoryQueue_Lifecycle(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	first, err := q.Enqueue(ctx, Payload{ClientID: "c1", Text: "one"})
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, Payload{ClientID: "c1", Text: "two"})
	require.NoError(t, err)

	task, err := q.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, task.Status)

	claimed, err := q.ClaimOne(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, first, claimed.ID, "claims in FIFO order")
	assert.Equal(t, StatusClaimed, claimed.Status)
	assert.Equal(t, "one", claimed.Payload.Text)

	require.NoError(t, q.MarkCompleted(ctx, first, Result{DocumentID: "d1", ChunkCount: 2}))
	task, err = q.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, &Result{DocumentID: "d1", ChunkCount: 2}, task.Result)
	assert.NotNil(t, task.CompletedAt)

	claimed, err = q.ClaimOne(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, second, claimed.ID)
	require.NoError(t, q.MarkFailed(ctx, second, "bad input"))
	task, err = q.Get(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, task.Status)
	assert.Equal(t, "bad input", task.Error)

	claimed, err = q.ClaimOne(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, claimed)

	_, err = q.Get(ctx, "missing")
	assert.ErrorIs(t, err, perrors.ErrNotFound)
	assert.ErrorIs(t, q.MarkFailed(ctx, "missing", "x"), perrors.ErrNotFound)

	_, err = q.Enqueue(ctx, Payload{})
	assert.ErrorIs(t, err, perrors.ErrInvalidArg)
}

func openStore(t *testing.T) *docstore.Store {
	t.Helper()
	s, err := docstore.Open(docstore.Config{Root: t.TempDir(), ChunkSize: 100, ChunkOverlap: 10}, nil)
	require.NoError(t, err)
	return s
}

func TestWorker_ProcessOne(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	store := openStore(t)
	w := NewWorker(q, store, 0, nil)

	processed, err := w.ProcessOne(ctx)
	require.NoError(t, err)
	assert.False(t, processed)

	textID, err := q.Enqueue(ctx, Payload{ClientID: "c1", Text: "Kitchen blender spec sheet", Title: "Spec"})
	require.NoError(t, err)
	fileID, err := q.Enqueue(ctx, Payload{
		ClientID:      "c1",
		Filename:      "notes.md",
		ContentBase64: base64.StdEncoding.EncodeToString([]byte("# Notes\nquiet motor")),
	})
	require.NoError(t, err)
	badID, err := q.Enqueue(ctx, Payload{ClientID: "c1", Filename: "a.docx", ContentBase64: "aGk="})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		processed, err := w.ProcessOne(ctx)
		require.NoError(t, err)
		assert.True(t, processed)
	}

	task, err := q.Get(ctx, textID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, task.Status)
	doc, err := store.GetDocument(ctx, task.Result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "Spec", doc.Title)
	assert.Equal(t, 1, task.Result.ChunkCount)

	task, err = q.Get(ctx, fileID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, task.Status)
	doc, err = store.GetDocument(ctx, task.Result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "notes", doc.Title)
	assert.Equal(t, "uploaded_file", doc.SourceType)

	task, err = q.Get(ctx, badID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, task.Status)
	assert.Contains(t, task.Error, "unsupported")

	assert.Equal(t, 2, store.DocumentCount())
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	q := NewMemoryQueue()
	store := openStore(t)
	w := NewWorker(q, store, 5*time.Millisecond, nil)

	id, err := q.Enqueue(context.Background(), Payload{ClientID: "c1", Text: "hello world"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		task, err := q.Get(context.Background(), id)
		return err == nil && task.Status == StatusCompleted
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestNew(t *testing.T) {
	q, err := New(context.Background(), config.IngestQueueConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryQueue{}, q)

	_, err = New(context.Background(), config.IngestQueueConfig{Type: "postgres"})
	assert.ErrorIs(t, err, perrors.ErrConfig)

	_, err = New(context.Background(), config.IngestQueueConfig{Type: "sqs"})
	assert.ErrorIs(t, err, perrors.ErrConfig)
}

func TestParsePollInterval(t *testing.T) {
	d, err := ParsePollInterval("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPollInterval, d)

	d, err = ParsePollInterval("250ms")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	_, err = ParsePollInterval("soon")
	assert.ErrorIs(t, err, perrors.ErrConfig)
}
