package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proddesc/internal/app"
	"proddesc/internal/ingestqueue"
	"proddesc/pkg/config"
)

func TestApp_ConsumesQueue(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.DocStore.Root = t.TempDir()
	cfg.Storage.IngestQueue.PollInterval = "10ms"
	boot, err := app.NewBootstrap(context.Background(), cfg)
	require.NoError(t, err)

	a, err := NewApp(context.Background(), boot)
	require.NoError(t, err)
	id, err := a.queue.Enqueue(context.Background(), ingestqueue.Payload{ClientID: "acme", Text: "queued catalogue text"})
	require.NoError(t, err)

	require.NoError(t, a.Start())
	require.Eventually(t, func() bool {
		task, err := a.queue.Get(context.Background(), id)
		return err == nil && task.Status == ingestqueue.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))

	assert.Equal(t, 1, boot.Store.DocumentCount())
}
