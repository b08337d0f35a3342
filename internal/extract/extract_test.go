package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proddesc/internal/docstore"
	perrors "proddesc/pkg/errors"
)

func TestText_PlainAndMarkdown(t *testing.T) {
	got, err := Text([]byte("hello\nworld"), ".TXT")
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld", got)

	got, err = Text([]byte("# Title\n\nbody \xff end"), ".md")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nbody � end", got)
}

func TestText_HTML(t *testing.T) {
	page := `<html><head><title>Blender</title><style>p { color: red }</style></head>
<body>
  <h1>Blendo 3000</h1>
  <script>var x = "hidden";</script>
  <p>Power: 1200W</p>

  <p>Capacity: &amp; 2L</p>
</body></html>`
	got, err := Text([]byte(page), ".html")
	require.NoError(t, err)
	assert.Equal(t, "Blender\nBlendo 3000\nPower: 1200W\nCapacity: & 2L", got)
	assert.NotContains(t, got, "hidden")
	assert.NotContains(t, got, "color")
}

func TestText_Unsupported(t *testing.T) {
	for _, ext := range []string{".docx", ".exe", ""} {
		_, err := Text([]byte("x"), ext)
		assert.ErrorIs(t, err, perrors.ErrUnsupported, ext)
	}
	assert.False(t, Supported(".docx"))
	assert.True(t, Supported(".HTM"))
}

func TestPDFText_EmptyAndInvalid(t *testing.T) {
	got, err := PDFText(nil)
	require.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = PDFText([]byte("not a pdf"))
	assert.Error(t, err)
}

func TestDocument(t *testing.T) {
	doc, err := Document(FileInput{
		ClientID: "c1",
		Filename: "uploads/Spec_Sheet.txt",
		Data:     []byte("  Kitchen   blender\tREF12345 "),
		Metadata: docstore.Metadata{"batch": "b1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "c1", doc.ClientID)
	assert.Equal(t, "Spec_Sheet", doc.Title)
	assert.Equal(t, SourceUploadedFile, doc.SourceType)
	assert.Equal(t, "Kitchen blender REF12345", doc.Content)
	assert.Equal(t, "Spec_Sheet.txt", doc.Metadata["filename"])
	assert.Equal(t, ".txt", doc.Metadata["file_extension"])
	assert.Equal(t, "text/plain", doc.Metadata["content_type"])
	assert.Equal(t, "b1", doc.Metadata["batch"])
	assert.NotEmpty(t, doc.DocumentID)
}

func TestDocument_Errors(t *testing.T) {
	_, err := Document(FileInput{Filename: "a.txt", Data: []byte("x")})
	assert.ErrorIs(t, err, perrors.ErrInvalidArg)

	_, err = Document(FileInput{ClientID: "c1", Filename: "a.docx", Data: []byte("x")})
	assert.ErrorIs(t, err, perrors.ErrUnsupported)

	_, err = Document(FileInput{ClientID: "c1", Filename: "big.txt", Data: []byte(strings.Repeat("x", MaxFileSize+1))})
	assert.ErrorIs(t, err, perrors.ErrInvalidArg)
}
