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

package retrieval

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"proddesc/internal/docstore"
)

func chunk(title, source, content string) *docstore.Chunk {
	return &docstore.Chunk{
		Content:  content,
		Metadata: docstore.Metadata{docstore.MetaTitle: title, docstore.MetaSourceType: source},
	}
}

func TestFormatSectionContext(t *testing.T) {
	got := FormatSectionContext("benefits", []*docstore.Chunk{
		chunk("Manual", "catalogue", "Quiet motor."),
		chunk("", "", strings.Repeat("x", 600)),
	}, nil)

	lines := strings.Split(got, "\n")
	assert.Equal(t, "RELEVANT CLIENT CONTEXT FOR SECTION 'BENEFITS':", lines[0])
	assert.Equal(t, "Document 1: Manual (Source: catalogue)", lines[1])
	assert.Equal(t, "Quiet motor.", lines[2])
	assert.Equal(t, "---", lines[3])
	assert.Equal(t, "Document 2: Untitled (Source: Unknown source)", lines[4])
	assert.Equal(t, strings.Repeat("x", 497)+"...", lines[5])
}

func TestFormatSectionContext_EmptyAndError(t *testing.T) {
	assert.Equal(t,
		"RELEVANT CLIENT CONTEXT FOR SECTION 'FAQ':\nNo relevant client information found for this section.",
		FormatSectionContext("faq", nil, nil))
	assert.Equal(t,
		"RELEVANT CLIENT CONTEXT FOR SECTION 'FAQ':\nError while retrieving context.",
		FormatSectionContext("faq", nil, errors.New("disk")))
}

func TestFormatContext(t *testing.T) {
	assert.Equal(t, NoClientData, FormatContext(nil))
	assert.Equal(t, NoClientData, FormatContext(&Result{}))

	got := FormatContext(&Result{Chunks: []*docstore.Chunk{chunk("Sheet", "text", strings.Repeat("y", 500))}})
	assert.Equal(t, "RELEVANT CLIENT CONTEXT:\nDocument 1: Sheet (Type: text)\n"+strings.Repeat("y", 500)+"\n---", got)
}
