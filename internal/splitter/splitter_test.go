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

package splitter

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "proddesc/pkg/errors"
)

// rejoin 去掉后续切片的重叠前缀后拼接
func rejoin(chunks []string, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c)
			continue
		}
		b.WriteString(string([]rune(c)[overlap:]))
	}
	return b.String()
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{"defaults", nil, false},
		{"zero overlap", []Option{WithChunkSize(10), WithOverlap(0)}, false},
		{"overlap equals size", []Option{WithChunkSize(100), WithOverlap(100)}, true},
		{"overlap larger", []Option{WithChunkSize(100), WithOverlap(150)}, true},
		{"zero size", []Option{WithChunkSize(0)}, true},
		{"negative overlap", []Option{WithOverlap(-1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, perrors.ErrConfig))
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestSplit_Empty(t *testing.T) {
	s := MustNew()
	chunks := s.Split("")
	assert.NotNil(t, chunks)
	assert.Empty(t, chunks)
}

func TestSplit_ShortText(t *testing.T) {
	s := MustNew()
	chunks := s.Split("Compact espresso machine.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Compact espresso machine.", chunks[0])
}

func TestSplit_ExactlyChunkSize(t *testing.T) {
	s := MustNew(WithChunkSize(10), WithOverlap(2))
	chunks := s.Split(strings.Repeat("x", 10))
	assert.Len(t, chunks, 1)
}

func TestSplit_HardCutScenario(t *testing.T) {
	s := MustNew(WithChunkSize(1000), WithOverlap(200))
	text := strings.Repeat("A", 2500)
	chunks := s.Split(text)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 1000)
	assert.True(t, strings.HasPrefix(chunks[1], chunks[0][800:]))
	assert.Len(t, chunks[2], 900)
	assert.Equal(t, text, rejoin(chunks, 200))
}

func TestSplit_PrefersNaturalBoundary(t *testing.T) {
	s := MustNew(WithChunkSize(40), WithOverlap(5))
	text := "The grinder has forty settings. It is quiet and fast. Burrs are steel."
	chunks := s.Split(text)

	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(chunks[0], ". "), "first chunk should end at a sentence: %q", chunks[0])
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 40)
	}
	assert.Equal(t, text, rejoin(chunks, 5))
}

func TestSplit_RoundTrip(t *testing.T) {
	texts := []string{
		strings.Repeat("word ", 700),
		strings.Repeat("Paragraph one is here.\n\nAnother paragraph follows it!\n", 60),
		strings.Repeat("déjà vu café ", 300),
		strings.Repeat("z", 3333),
	}
	configs := []struct{ size, overlap int }{
		{1000, 200},
		{100, 0},
		{64, 63},
		{50, 30},
	}
	for _, text := range texts {
		for _, c := range configs {
			s := MustNew(WithChunkSize(c.size), WithOverlap(c.overlap))
			chunks := s.Split(text)
			for i, ch := range chunks {
				n := utf8.RuneCountInString(ch)
				assert.LessOrEqual(t, n, c.size, "chunk %d too long", i)
				if i < len(chunks)-1 {
					assert.Greater(t, n, c.overlap, "chunk %d must advance", i)
				}
			}
			assert.Equal(t, text, rejoin(chunks, c.overlap), "size=%d overlap=%d", c.size, c.overlap)
		}
	}
}

func TestMustNew_Panics(t *testing.T) {
	assert.Panics(t, func() { MustNew(WithChunkSize(10), WithOverlap(10)) })
}
