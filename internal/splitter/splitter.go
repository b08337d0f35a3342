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

// Package splitter 将文档正文切成定长、相邻重叠的字符切片
package splitter

import (
	"fmt"

	perrors "proddesc/pkg/errors"
)

const (
	// DefaultChunkSize 默认切片长度（字符）
	DefaultChunkSize = 1000
	// DefaultChunkOverlap 默认相邻切片重叠长度（字符）
	DefaultChunkOverlap = 200
)

// separators 自然边界，按优先级从高到低
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("! "),
	[]rune("? "),
	[]rune(" "),
}

// Splitter 字符切片器；长度按 rune 计
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option 配置 Splitter
type Option func(*Splitter)

// WithChunkSize 设置切片长度
func WithChunkSize(size int) Option {
	return func(s *Splitter) { s.chunkSize = size }
}

// WithOverlap 设置相邻切片重叠长度
func WithOverlap(overlap int) Option {
	return func(s *Splitter) { s.overlap = overlap }
}

// New 创建切片器；overlap >= chunkSize 或参数为负时返回配置错误
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{chunkSize: DefaultChunkSize, overlap: DefaultChunkOverlap}
	for _, opt := range opts {
		opt(s)
	}
	if s.chunkSize <= 0 {
		return nil, perrors.Configf("chunk_size must be positive, got %d", s.chunkSize)
	}
	if s.overlap < 0 {
		return nil, perrors.Configf("chunk_overlap must not be negative, got %d", s.overlap)
	}
	if s.overlap >= s.chunkSize {
		return nil, perrors.Configf("chunk_overlap %d must be smaller than chunk_size %d", s.overlap, s.chunkSize)
	}
	return s, nil
}

// MustNew 同 New，参数非法时 panic（仅用于常量参数）
func MustNew(opts ...Option) *Splitter {
	s, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("splitter: %v", err))
	}
	return s
}

// ChunkSize 返回切片长度
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap 返回重叠长度
func (s *Splitter) Overlap() int { return s.overlap }

// Split 切分文本。空文本返回空切片；不超过 chunkSize 的文本返回单个切片。
// 每个切片不超过 chunkSize；下一个切片从上一个切点前 overlap 个字符开始，
// 因此去掉后续切片的前 overlap 个字符后按序拼接即可还原原文。
func (s *Splitter) Split(text string) []string {
	r := []rune(text)
	n := len(r)
	if n == 0 {
		return []string{}
	}

	chunks := make([]string, 0, n/(s.chunkSize-s.overlap)+1)
	start := 0
	for {
		if n-start <= s.chunkSize {
			chunks = append(chunks, string(r[start:]))
			return chunks
		}
		cut := s.cutPoint(r, start, start+s.chunkSize)
		chunks = append(chunks, string(r[start:cut]))
		start = cut - s.overlap
	}
}

// cutPoint 在 (start, end] 内寻找最靠后的自然边界作为切点；
// 切点不早于 start+max(chunkSize/2, overlap+1)，找不到时硬切在 end
func (s *Splitter) cutPoint(r []rune, start, end int) int {
	minCut := start + s.chunkSize/2
	if m := start + s.overlap + 1; m > minCut {
		minCut = m
	}
	if minCut > end {
		minCut = end
	}
	for _, sep := range separators {
		lo := minCut - len(sep)
		if lo < start {
			lo = start
		}
		if i := lastIndex(r, lo, end, sep); i >= 0 && i+len(sep) >= minCut {
			return i + len(sep)
		}
	}
	return end
}

// lastIndex 返回 r[lo:hi] 中 sep 最后一次完整出现的位置，未找到返回 -1
func lastIndex(r []rune, lo, hi int, sep []rune) int {
	for i := hi - len(sep); i >= lo; i-- {
		match := true
		for j, c := range sep {
			if r[i+j] != c {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
