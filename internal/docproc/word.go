package docproc

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
)

// WordExtractor infers fields from the plain text of a Word document.
// DOCX archives are read directly (word/document.xml); legacy .doc files go
// through docconv. The heuristics themselves live in ParseTextFields.
type WordExtractor struct{}

func NewWordExtractor() *WordExtractor { return &WordExtractor{} }

func (e *WordExtractor) Extract(ctx context.Context, name string, data []byte) (*Extraction, error) {
	var (
		text string
		err  error
	)
	if strings.EqualFold(filepath.Ext(name), ".doc") {
		text, err = legacyDocText(data)
	} else {
		text, err = docxText(data)
	}
	if err != nil {
		return nil, &ParseError{Kind: KindWord, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Extraction{
		Fields:  ParseTextFields(text),
		RawText: text,
	}, nil
}

// docxText reads word/document.xml from the DOCX archive and flattens each
// paragraph to one text line.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var (
		sb          strings.Builder
		para        strings.Builder
		inParagraph bool
		inRunText   bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				para.Reset()
			case "t":
				inRunText = inParagraph
			case "tab":
				if inParagraph {
					para.WriteByte('\t')
				}
			}
		case xml.CharData:
			if inRunText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inRunText = false
			case "p":
				if inParagraph {
					inParagraph = false
					if line := strings.TrimSpace(para.String()); line != "" {
						sb.WriteString(line)
						sb.WriteByte('\n')
					}
				}
			}
		}
	}

	return sb.String(), nil
}

// legacyDocText converts a binary .doc file to plain text via docconv.
func legacyDocText(data []byte) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), "application/msword", false)
	if err != nil {
		return "", fmt.Errorf("docconv: %w", err)
	}
	return res.Body, nil
}
