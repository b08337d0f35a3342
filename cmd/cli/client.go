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
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"proddesc/internal/ingestqueue"
)

var (
	apiURL       string
	submitClient string
	submitTitle  string
)

func apiBaseURL() string {
	if apiURL != "" {
		return apiURL
	}
	if u := os.Getenv("PRODDESC_API_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func newClient() *resty.Client {
	return resty.New().
		SetBaseURL(apiBaseURL()).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")
}

func submitTask(payload ingestqueue.Payload) (string, error) {
	var out struct {
		TaskID string `json:"task_id"`
	}
	resp, err := newClient().R().
		SetBody(payload).
		SetResult(&out).
		Post("/api/ingest/tasks")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusAccepted {
		return "", fmt.Errorf("POST /api/ingest/tasks: %s", resp.String())
	}
	return out.TaskID, nil
}

func getTask(taskID string) (*ingestqueue.Task, error) {
	var out ingestqueue.Task
	resp, err := newClient().R().
		SetResult(&out).
		Get("/api/ingest/tasks/" + taskID)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/ingest/tasks/%s: %s", taskID, resp.String())
	}
	return &out, nil
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Asynchronous ingestion through a running API server",
}

var taskSubmitCmd = &cobra.Command{
	Use:   "submit <file>",
	Short: "Enqueue a file for ingestion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		id, err := submitTask(ingestqueue.Payload{
			ClientID:      submitClient,
			Title:         submitTitle,
			Filename:      filepath.Base(args[0]),
			ContentBase64: base64.StdEncoding.EncodeToString(data),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var taskGetCmd = &cobra.Command{
	Use:   "get <task_id>",
	Short: "Show an ingestion task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := getTask(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, task)
	},
}

func init() {
	taskCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (defaults to $PRODDESC_API_URL or http://localhost:8080)")
	taskSubmitCmd.Flags().StringVar(&submitClient, "client", "", "client id (required)")
	taskSubmitCmd.Flags().StringVar(&submitTitle, "title", "", "document title")
	_ = taskSubmitCmd.MarkFlagRequired("client")

	taskCmd.AddCommand(taskSubmitCmd, taskGetCmd)
	rootCmd.AddCommand(taskCmd)
}
