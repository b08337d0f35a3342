// Copyright 2026 fanjia1024
// Environment variable based secret store

package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

type envStore struct{}

// NewEnvStore 创建环境变量 secret store；key "openai/api_key" 对应变量 OPENAI_API_KEY
func NewEnvStore() Store {
	return &envStore{}
}

// EnvName 将 secret key 映射为环境变量名
func EnvName(key string) string {
	return strings.ToUpper(strings.NewReplacer("/", "_", ".", "_", "-", "_").Replace(key))
}

func (e *envStore) Get(_ context.Context, key string) (string, error) {
	value := os.Getenv(EnvName(key))
	if value == "" {
		return "", fmt.Errorf("environment variable not set: %s", EnvName(key))
	}
	return value, nil
}

func (e *envStore) Set(_ context.Context, key string, value string) error {
	return os.Setenv(EnvName(key), value)
}

func (e *envStore) Delete(_ context.Context, key string) error {
	return os.Unsetenv(EnvName(key))
}

func (e *envStore) List(_ context.Context, prefix string) ([]string, error) {
	want := EnvName(prefix)
	var keys []string
	for _, env := range os.Environ() {
		name, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(name, want) {
			keys = append(keys, name)
		}
	}
	return keys, nil
}
