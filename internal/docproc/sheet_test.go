package docproc

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/formpilot/internal/models"
)

const workbookXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"
          xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <sheets><sheet name="Sheet1" sheetId="1" r:id="rId1"/></sheets>
</workbook>`

const workbookRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>
</Relationships>`

func buildWorkbook(t *testing.T, sheetXML string, shared []string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name, content string) {
		f, err := zw.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}

	write("xl/workbook.xml", workbookXML)
	write("xl/_rels/workbook.xml.rels", workbookRelsXML)

	var sst strings.Builder
	sst.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?><sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">`)
	for _, s := range shared {
		fmt.Fprintf(&sst, "<si><t>%s</t></si>", s)
	}
	sst.WriteString(`</sst>`)
	write("xl/sharedStrings.xml", sst.String())

	write("xl/worksheets/sheet1.xml", sheetXML)

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestSheetExtractorTypesFromSampleRow(t *testing.T) {
	sheet := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1">
      <c r="A1" t="s"><v>0</v></c>
      <c r="B1" t="s"><v>1</v></c>
      <c r="C1" t="s"><v>2</v></c>
    </row>
    <row r="2">
      <c r="A2" t="s"><v>3</v></c>
      <c r="B2"><v>42</v></c>
      <c r="C2" t="s"><v>4</v></c>
    </row>
  </sheetData>
</worksheet>`
	data := buildWorkbook(t, sheet, []string{"Name", "Amount", "Date", "Alice", "2024-01-01"})

	ext, err := NewSheetExtractor().Extract(context.Background(), "budget.xlsx", data)
	require.NoError(t, err)
	require.Len(t, ext.Fields, 3)

	assert.Equal(t, "Name", ext.Fields[0].Label)
	assert.Equal(t, models.FieldText, ext.Fields[0].Type)
	assert.Equal(t, "Alice", ext.Fields[0].DefaultValue)
	assert.Equal(t, "Sheet1", ext.Fields[0].Category)

	assert.Equal(t, "Amount", ext.Fields[1].Label)
	assert.Equal(t, models.FieldNumber, ext.Fields[1].Type)
	assert.Equal(t, "42", ext.Fields[1].DefaultValue)

	assert.Equal(t, "Date", ext.Fields[2].Label)
	assert.Equal(t, models.FieldDate, ext.Fields[2].Type)
	assert.Equal(t, "2024-01-01", ext.Fields[2].DefaultValue)
}

func TestSheetExtractorBooleanCell(t *testing.T) {
	sheet := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1"><c r="A1" t="inlineStr"><is><t>Active</t></is></c></row>
    <row r="2"><c r="A2" t="b"><v>1</v></c></row>
  </sheetData>
</worksheet>`
	data := buildWorkbook(t, sheet, nil)

	ext, err := NewSheetExtractor().Extract(context.Background(), "flags.xlsx", data)
	require.NoError(t, err)
	require.Len(t, ext.Fields, 1)

	assert.Equal(t, "Active", ext.Fields[0].Label)
	assert.Equal(t, models.FieldCheckbox, ext.Fields[0].Type)
	assert.Equal(t, "true", ext.Fields[0].DefaultValue)
}

func TestSheetExtractorHeaderOnly(t *testing.T) {
	sheet := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1"><c r="A1" t="s"><v>0</v></c></row>
  </sheetData>
</worksheet>`
	data := buildWorkbook(t, sheet, []string{"Name"})

	ext, err := NewSheetExtractor().Extract(context.Background(), "list.xlsx", data)
	require.NoError(t, err)
	require.Len(t, ext.Fields, 1)
	assert.Equal(t, models.FieldText, ext.Fields[0].Type)
	assert.Empty(t, ext.Fields[0].DefaultValue)
}

func TestSheetExtractorEmptyWorksheet(t *testing.T) {
	sheet := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData/>
</worksheet>`
	data := buildWorkbook(t, sheet, nil)

	ext, err := NewSheetExtractor().Extract(context.Background(), "empty.xlsx", data)
	require.NoError(t, err)
	assert.Empty(t, ext.Fields)
}

func TestSheetExtractorSkipsBlankHeaders(t *testing.T) {
	sheet := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1">
      <c r="A1" t="s"><v>0</v></c>
      <c r="C1" t="s"><v>1</v></c>
    </row>
  </sheetData>
</worksheet>`
	data := buildWorkbook(t, sheet, []string{"First", "Third"})

	ext, err := NewSheetExtractor().Extract(context.Background(), "gaps.xlsx", data)
	require.NoError(t, err)
	require.Len(t, ext.Fields, 2)
	assert.Equal(t, "First", ext.Fields[0].Label)
	assert.Equal(t, "Third", ext.Fields[1].Label)
}

func TestSheetExtractorRejectsNonZipBytes(t *testing.T) {
	// Legacy .xls payloads are not zip archives and fail at the container.
	_, err := NewSheetExtractor().Extract(context.Background(), "legacy.xls", []byte("\xd0\xcf\x11\xe0 not a zip"))
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, KindSpreadsheet, parseErr.Kind)
}
