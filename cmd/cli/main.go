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

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"proddesc/internal/app"
	"proddesc/pkg/config"
)

var version = "dev"

var (
	configPath string
	storeRoot  string
)

var rootCmd = &cobra.Command{
	Use:   "proddesc",
	Short: "Product description generation toolkit",
	Long: `Manages client documents in the local document store and generates
product descriptions (self-improving chain or template sections) from them.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/api.yaml", "config file")
	rootCmd.PersistentFlags().StringVar(&storeRoot, "root", "", "document store root (overrides storage.docstore.root)")
}

// loadConfig 配置文件不存在时使用默认配置
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
	} else {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
	}
	if storeRoot != "" {
		cfg.Storage.DocStore.Root = storeRoot
	}
	return cfg, nil
}

// loadBootstrap readOnly 为 true 时只读打开文档库，不与运行中的 API 争用写锁
func loadBootstrap(ctx context.Context, readOnly bool) (*app.Bootstrap, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.Storage.DocStore.ReadOnly = readOnly
	// CLI 输出保持干净，组件日志只保留告警
	if cfg.Log.Level == "" || cfg.Log.Level == "info" || cfg.Log.Level == "debug" {
		cfg.Log.Level = "warn"
	}
	return app.NewBootstrap(ctx, cfg)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "proddesc version %s\n", version)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "api.port=%d\n", cfg.API.Port)
		fmt.Fprintf(out, "storage.docstore.root=%s\n", cfg.Storage.DocStore.Root)
		fmt.Fprintf(out, "storage.docstore.chunk_size=%d\n", cfg.Storage.DocStore.ChunkSize)
		fmt.Fprintf(out, "storage.docstore.chunk_overlap=%d\n", cfg.Storage.DocStore.ChunkOverlap)
		fmt.Fprintf(out, "storage.cache.type=%s\n", cfg.Storage.Cache.Type)
		fmt.Fprintf(out, "storage.ingest_queue.type=%s\n", cfg.Storage.IngestQueue.Type)
		fmt.Fprintf(out, "model.provider=%s\n", cfg.Model.Provider)
		fmt.Fprintf(out, "model.model=%s\n", cfg.Model.Model)
		fmt.Fprintf(out, "generation.batch_workers=%d\n", cfg.Generation.BatchWorkers)
		fmt.Fprintf(out, "events.type=%s\n", cfg.Events.Type)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd, configCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
