// Copyright 2026 fanjia1024

package secrets

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreProviders(t *testing.T) {
	tests := []struct {
		name        string
		provider    string
		wantErr     bool
		errContains string
	}{
		{name: "default env", provider: ""},
		{name: "env", provider: "env"},
		{name: "memory", provider: "memory"},
		{name: "unknown provider", provider: "k8s", wantErr: true, errContains: "unsupported secret provider"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := NewStore(Config{Provider: tc.provider})
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, strings.Contains(err.Error(), tc.errContains), err.Error())
				assert.Nil(t, store)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, store)
		})
	}
}

func TestMemoryAndEnvStoreBasicContract(t *testing.T) {
	ctx := context.Background()
	stores := []Store{NewMemoryStore(), NewEnvStore()}

	for _, s := range stores {
		require.NoError(t, s.Set(ctx, "proddesc/test_key", "value"))
		got, err := s.Get(ctx, "proddesc/test_key")
		require.NoError(t, err)
		assert.Equal(t, "value", got)
		keys, err := s.List(ctx, "proddesc/")
		require.NoError(t, err)
		assert.NotEmpty(t, keys)
		require.NoError(t, s.Delete(ctx, "proddesc/test_key"))
		_, err = s.Get(ctx, "proddesc/test_key")
		assert.Error(t, err)
	}
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", EnvName("openai/api_key"))
	assert.Equal(t, "GOOGLE_API_KEY", EnvName("google.api-key"))
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "openai/api_key", "sk-vault"))

	v, err := Resolve(ctx, store, "plain-key")
	require.NoError(t, err)
	assert.Equal(t, "plain-key", v)

	v, err = Resolve(ctx, store, "secret:openai/api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-vault", v)

	_, err = Resolve(ctx, store, "secret:missing")
	assert.Error(t, err)

	_, err = Resolve(ctx, nil, "secret:openai/api_key")
	assert.Error(t, err)
}
