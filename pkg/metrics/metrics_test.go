package metrics

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePrometheus(t *testing.T) {
	DocumentsIngestedTotal.WithLabelValues("catalogue").Inc()
	SectionFailuresTotal.WithLabelValues("faq").Inc()

	var buf bytes.Buffer
	require.NoError(t, WritePrometheus(&buf))
	out := buf.String()
	assert.Contains(t, out, "proddesc_documents_ingested_total")
	assert.Contains(t, out, `source_type="catalogue"`)
	assert.Contains(t, out, `section="faq"`)
}
