package docproc

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Extractor turns raw file bytes into un-normalized fields plus metadata.
// Implementations are pure functions of their input and safe for concurrent
// use.
type Extractor interface {
	Extract(ctx context.Context, name string, data []byte) (*Extraction, error)
}

// PreviewStore allocates renderable preview handles for raw document bytes.
// A handle acquired by Process is owned by the caller, which must Release it
// once the preview is no longer displayed; Process itself releases the handle
// when extraction fails so nothing leaks on the error path.
type PreviewStore interface {
	Allocate(ctx context.Context, name string, data []byte, contentType string) (url, key string, err error)
	Release(ctx context.Context, key string) error
}

// Processor is the single entry point of the extraction pipeline:
// classify → extract → normalize → assemble.
type Processor struct {
	previews PreviewStore
	pdf      Extractor
	word     Extractor
	sheet    Extractor
}

func NewProcessor(previews PreviewStore) *Processor {
	return &Processor{
		previews: previews,
		pdf:      NewPDFExtractor(),
		word:     NewWordExtractor(),
		sheet:    NewSheetExtractor(),
	}
}

// Process runs the full pipeline for one uploaded file. Each call is an
// independent unit of work; multiple files may be processed concurrently.
func (p *Processor) Process(ctx context.Context, name string, data []byte) (*ProcessedDocument, error) {
	kind := Classify(name)
	if kind == KindUnknown {
		return nil, ErrUnsupportedType
	}

	previewURL, previewKey, err := p.previews.Allocate(ctx, name, data, MimeType(kind, name))
	if err != nil {
		return nil, err
	}

	var extractor Extractor
	switch kind {
	case KindPDF:
		extractor = p.pdf
	case KindWord:
		extractor = p.word
	case KindSpreadsheet:
		extractor = p.sheet
	}

	ext, err := extractor.Extract(ctx, name, data)
	if err != nil {
		// No resource leak on failure: the handle is released before the
		// parse error propagates.
		if relErr := p.previews.Release(ctx, previewKey); relErr != nil {
			log.Warn().Err(relErr).Str("file", name).Msg("release preview after failed extraction")
		}
		return nil, err
	}

	fields := Normalize(ext.Fields)

	meta := ext.Meta
	if meta.Title == "" {
		meta.Title = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	meta.FieldsCount = len(fields)
	if ext.Pages > 0 {
		meta.PageCount = ext.Pages
	}

	if len(fields) == 0 {
		log.Debug().Str("file", name).Str("kind", string(kind)).Msg("no fields detected")
	}

	return &ProcessedDocument{
		Kind:       kind,
		Fields:     fields,
		PreviewURL: previewURL,
		PreviewKey: previewKey,
		Pages:      ext.Pages,
		Metadata:   meta,
		RawText:    ext.RawText,
	}, nil
}

// FormType maps a document kind to the persisted form type.
func FormType(kind Kind) string {
	switch kind {
	case KindPDF:
		return "pdf"
	case KindWord:
		return "docx"
	case KindSpreadsheet:
		return "xlsx"
	default:
		return "other"
	}
}
