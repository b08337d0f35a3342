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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
api:
  port: 9000
  host: "127.0.0.1"
storage:
  docstore:
    root: "/tmp/store"
    chunk_size: 500
    chunk_overlap: 50
generation:
  batch_workers: 5
log:
  level: "debug"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, "127.0.0.1", cfg.API.Host)
	assert.Equal(t, "/tmp/store", cfg.Storage.DocStore.Root)
	assert.Equal(t, 500, cfg.Storage.DocStore.ChunkSize)
	assert.Equal(t, 50, cfg.Storage.DocStore.ChunkOverlap)
	assert.Equal(t, 5, cfg.Generation.BatchWorkers)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "api:\n  host: \"0.0.0.0\"\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.API.Port)
	assert.Equal(t, DefaultChunkSize, cfg.Storage.DocStore.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, cfg.Storage.DocStore.ChunkOverlap)
	assert.Equal(t, DefaultBatchWorkers, cfg.Generation.BatchWorkers)
	assert.Equal(t, DefaultSectionTopK, cfg.Generation.SectionTopK)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "none", cfg.Storage.Cache.Type)
	assert.Equal(t, "memory", cfg.Storage.IngestQueue.Type)
	assert.Equal(t, DefaultTemperature, cfg.Model.Temperature)
	assert.Equal(t, DefaultMaxTokens, cfg.Model.MaxTokens)
}

func TestLoadConfig_EnvPlaceholder(t *testing.T) {
	t.Setenv("PRODDESC_TEST_KEY", "sk-test")
	path := writeConfig(t, `
model:
  provider: openai
  providers:
    openai:
      api_key: "${PRODDESC_TEST_KEY}"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.ProviderSettings().APIKey)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultDocStoreRoot, cfg.Storage.DocStore.Root)
	assert.Equal(t, ProviderConfig{}, cfg.ProviderSettings())
}

func TestShippedConfigs_OneWriterPerRoot(t *testing.T) {
	load := func(name string) *Config {
		t.Helper()
		cfg, err := LoadConfig(filepath.Join("..", "..", "configs", name))
		require.NoError(t, err, name)
		return cfg
	}
	standalone := load("api.yaml")
	assert.False(t, standalone.Storage.DocStore.ReadOnly)
	assert.Equal(t, "memory", standalone.Storage.IngestQueue.Type)

	reader := load("api-readonly.yaml")
	worker := load("worker.yaml")
	assert.Equal(t, worker.Storage.DocStore.Root, reader.Storage.DocStore.Root)
	assert.True(t, reader.Storage.DocStore.ReadOnly)
	assert.False(t, worker.Storage.DocStore.ReadOnly)
	assert.Equal(t, "postgres", reader.Storage.IngestQueue.Type)
	assert.Equal(t, "postgres", worker.Storage.IngestQueue.Type)
}
