package docproc

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/formpilot/internal/models"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestWordExtractorDocx(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>NAME:</w:t></w:r></w:p>
    <w:p><w:r><w:t>Full Name_John</w:t></w:r></w:p>
    <w:p><w:r><w:t>[x] Agree to terms</w:t></w:r></w:p>
  </w:body>
</w:document>`

	ext, err := NewWordExtractor().Extract(context.Background(), "form.docx", buildDocx(t, doc))
	require.NoError(t, err)
	require.Len(t, ext.Fields, 2)

	assert.Equal(t, "Full Name", ext.Fields[0].Label)
	assert.Equal(t, models.FieldText, ext.Fields[0].Type)
	assert.Equal(t, "NAME", ext.Fields[0].Category)
	assert.Equal(t, "John", ext.Fields[0].DefaultValue)

	assert.Equal(t, "Agree to terms", ext.Fields[1].Label)
	assert.Equal(t, models.FieldCheckbox, ext.Fields[1].Type)
	assert.Equal(t, "true", ext.Fields[1].DefaultValue)

	assert.Equal(t, "NAME:\nFull Name_John\n[x] Agree to terms\n", ext.RawText)
}

func TestWordExtractorSplitRuns(t *testing.T) {
	// A paragraph whose text is split across runs still yields one line.
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Full </w:t></w:r><w:r><w:t>Name: John</w:t></w:r></w:p>
  </w:body>
</w:document>`

	ext, err := NewWordExtractor().Extract(context.Background(), "runs.docx", buildDocx(t, doc))
	require.NoError(t, err)
	require.Len(t, ext.Fields, 1)
	assert.Equal(t, "Full Name", ext.Fields[0].Label)
	assert.Equal(t, "John", ext.Fields[0].DefaultValue)
}

func TestWordExtractorNoFields(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body><w:p><w:r><w:t>Just a plain sentence with no markers</w:t></w:r></w:p></w:body>
</w:document>`

	ext, err := NewWordExtractor().Extract(context.Background(), "plain.docx", buildDocx(t, doc))
	require.NoError(t, err)
	assert.Empty(t, ext.Fields)
}

func TestWordExtractorTruncatedDocumentXML(t *testing.T) {
	// document.xml cut off mid-element must fail, not yield partial fields.
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Full Name: John</w:t></w:r></w:p>
    <w:p><w:r><w:t>Email: a@b`

	_, err := NewWordExtractor().Extract(context.Background(), "cut.docx", buildDocx(t, doc))
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, KindWord, parseErr.Kind)
}

func TestWordExtractorCorruptArchive(t *testing.T) {
	_, err := NewWordExtractor().Extract(context.Background(), "broken.docx", []byte("not a zip"))
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, KindWord, parseErr.Kind)
}

func TestWordExtractorMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/other.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte("<x/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = NewWordExtractor().Extract(context.Background(), "odd.docx", buf.Bytes())
	require.Error(t, err)
}
