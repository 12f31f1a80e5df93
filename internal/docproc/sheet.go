package docproc

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/formpilot/formpilot/internal/models"
)

// SheetExtractor derives fields from the first worksheet of an XLSX workbook:
// row 1 supplies field names, row 2 (when present) is sampled for type
// inference. Other sheets are ignored. Legacy binary .xls files are not
// decoded and fail as a parse error at the zip layer.
type SheetExtractor struct{}

func NewSheetExtractor() *SheetExtractor { return &SheetExtractor{} }

// sheetSection is the grouping label for all spreadsheet-derived fields;
// only one sheet is ever read.
const sheetSection = "Sheet1"

type xlsxWorkbook struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"id,attr"`
	} `xml:"sheets>sheet"`
}

type xlsxRels struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type xlsxSharedStrings struct {
	Items []struct {
		T    *string `xml:"t"`
		Runs []struct {
			T string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

type xlsxWorksheet struct {
	Rows []xlsxRow `xml:"sheetData>row"`
}

type xlsxRow struct {
	R     int        `xml:"r,attr"`
	Cells []xlsxCell `xml:"c"`
}

type xlsxCell struct {
	Ref     string `xml:"r,attr"`
	Type    string `xml:"t,attr"`
	V       string `xml:"v"`
	InlineT string `xml:"is>t"`
}

func (e *SheetExtractor) Extract(ctx context.Context, name string, data []byte) (*Extraction, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ParseError{Kind: KindSpreadsheet, Err: fmt.Errorf("open zip: %w", err)}
	}

	sheetPath, err := firstSheetPath(zr)
	if err != nil {
		return nil, &ParseError{Kind: KindSpreadsheet, Err: err}
	}

	shared := readSharedStrings(zr)

	var ws xlsxWorksheet
	if err := decodeZipXML(zr, sheetPath, &ws); err != nil {
		return nil, &ParseError{Kind: KindSpreadsheet, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(ws.Rows) == 0 {
		return &Extraction{}, nil
	}

	headers := rowByColumn(ws.Rows[0])
	var samples map[int]xlsxCell
	if len(ws.Rows) > 1 {
		samples = rowByColumn(ws.Rows[1])
	}

	maxCol := -1
	for col := range headers {
		if col > maxCol {
			maxCol = col
		}
	}

	var fields []models.FormField
	for col := 0; col <= maxCol; col++ {
		hc, ok := headers[col]
		if !ok {
			continue
		}
		header := strings.TrimSpace(cellString(hc, shared))
		if header == "" {
			continue
		}

		f := models.FormField{
			Label:    header,
			Type:     models.FieldText,
			Required: false,
			Category: sheetSection,
		}
		if sc, ok := samples[col]; ok {
			f.Type, f.DefaultValue = inferCellType(sc, shared)
		}
		fields = append(fields, f)
	}

	return &Extraction{Fields: fields}, nil
}

// firstSheetPath resolves the archive path of the first sheet in workbook
// declaration order, falling back to the conventional sheet1 location.
func firstSheetPath(zr *zip.Reader) (string, error) {
	var wb xlsxWorkbook
	if err := decodeZipXML(zr, "xl/workbook.xml", &wb); err != nil {
		return "", err
	}
	if len(wb.Sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}

	var rels xlsxRels
	if err := decodeZipXML(zr, "xl/_rels/workbook.xml.rels", &rels); err == nil {
		for _, rel := range rels.Rels {
			if rel.ID == wb.Sheets[0].RID {
				target := strings.TrimPrefix(rel.Target, "/")
				if !strings.HasPrefix(target, "xl/") {
					target = "xl/" + target
				}
				return target, nil
			}
		}
	}
	return "xl/worksheets/sheet1.xml", nil
}

func readSharedStrings(zr *zip.Reader) []string {
	var sst xlsxSharedStrings
	if err := decodeZipXML(zr, "xl/sharedStrings.xml", &sst); err != nil {
		return nil
	}
	out := make([]string, 0, len(sst.Items))
	for _, si := range sst.Items {
		if si.T != nil {
			out = append(out, *si.T)
			continue
		}
		var sb strings.Builder
		for _, r := range si.Runs {
			sb.WriteString(r.T)
		}
		out = append(out, sb.String())
	}
	return out
}

func decodeZipXML(zr *zip.Reader, path string, v interface{}) error {
	f, err := zr.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := xml.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// rowByColumn indexes a row's cells by zero-based column, derived from the
// cell reference (e.g. "B2" → 1). Cells without a reference are placed
// sequentially after the previous one.
func rowByColumn(row xlsxRow) map[int]xlsxCell {
	out := make(map[int]xlsxCell, len(row.Cells))
	next := 0
	for _, c := range row.Cells {
		col := columnIndex(c.Ref)
		if col < 0 {
			col = next
		}
		out[col] = c
		next = col + 1
	}
	return out
}

func columnIndex(ref string) int {
	col := 0
	seen := false
	for _, r := range ref {
		if r >= 'A' && r <= 'Z' {
			col = col*26 + int(r-'A') + 1
			seen = true
		} else if r >= 'a' && r <= 'z' {
			col = col*26 + int(r-'a') + 1
			seen = true
		} else {
			break
		}
	}
	if !seen {
		return -1
	}
	return col - 1
}

func cellString(c xlsxCell, shared []string) string {
	switch c.Type {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(c.V))
		if err != nil || idx < 0 || idx >= len(shared) {
			return ""
		}
		return shared[idx]
	case "inlineStr":
		return c.InlineT
	default:
		return c.V
	}
}

// inferCellType maps a sample cell to a field type: boolean cells become
// checkboxes, numeric cells numbers, date-parseable strings dates, anything
// else text.
func inferCellType(c xlsxCell, shared []string) (models.FieldType, string) {
	switch c.Type {
	case "b":
		if c.V == "1" {
			return models.FieldCheckbox, "true"
		}
		return models.FieldCheckbox, "false"
	case "s", "str", "inlineStr":
		s := strings.TrimSpace(cellString(c, shared))
		if s == "" {
			return models.FieldText, ""
		}
		if isDateString(s) {
			return models.FieldDate, s
		}
		return models.FieldText, s
	case "e":
		return models.FieldText, ""
	default:
		// Untyped cells hold numbers.
		if strings.TrimSpace(c.V) == "" {
			return models.FieldText, ""
		}
		return models.FieldNumber, strings.TrimSpace(c.V)
	}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"Jan 2, 2006",
	"2 Jan 2006",
}

func isDateString(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
