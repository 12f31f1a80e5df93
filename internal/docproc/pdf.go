package docproc

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/formpilot/formpilot/internal/models"
)

// PDFExtractor reads interactive form widgets from a PDF's AcroForm
// dictionary. Field names keep their fully-qualified dotted form; the section
// is derived from the name hierarchy (applicant.address.city → applicant >
// address). A PDF without a form dictionary is a parse failure, not an empty
// result.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

func (e *PDFExtractor) Extract(ctx context.Context, name string, data []byte) (*Extraction, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, &ParseError{Kind: KindPDF, Err: fmt.Errorf("read pdf: %w", err)}
	}
	if err := pctx.EnsurePageCount(); err != nil {
		return nil, &ParseError{Kind: KindPDF, Err: fmt.Errorf("page count: %w", err)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fields, err := extractAcroFields(pctx)
	if err != nil {
		return nil, &ParseError{Kind: KindPDF, Err: err}
	}

	return &Extraction{
		Fields: fields,
		Pages:  pctx.PageCount,
		Meta:   pdfMetadata(pctx),
	}, nil
}

// extractAcroFields walks Catalog → AcroForm → Fields, descending into Kids
// so nested fields report their fully-qualified names.
func extractAcroFields(ctx *model.Context) ([]models.FormField, error) {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	acroObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, fmt.Errorf("document has no form dictionary")
	}
	acroDict, err := ctx.DereferenceDict(acroObj)
	if err != nil || acroDict == nil {
		return nil, fmt.Errorf("dereference AcroForm: %w", err)
	}

	fieldsObj, found := acroDict.Find("Fields")
	if !found {
		return nil, fmt.Errorf("form dictionary has no Fields array")
	}
	fieldsArr, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("dereference Fields: %w", err)
	}

	var out []models.FormField
	for _, ref := range fieldsArr {
		if err := walkField(ctx, ref, "", &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func walkField(ctx *model.Context, obj types.Object, prefix string, out *[]models.FormField) error {
	dict, err := ctx.DereferenceDict(obj)
	if err != nil {
		return fmt.Errorf("dereference field: %w", err)
	}
	if dict == nil {
		return nil
	}

	name := fieldName(ctx, dict)
	qualified := name
	if prefix != "" && name != "" {
		qualified = prefix + "." + name
	} else if prefix != "" {
		qualified = prefix
	}

	// Non-terminal fields carry named Kids; widgets-only Kids stay terminal.
	if kidsObj, found := dict.Find("Kids"); found {
		if kids, err := ctx.DereferenceArray(kidsObj); err == nil && hasNamedKid(ctx, kids) {
			for _, kid := range kids {
				if err := walkField(ctx, kid, qualified, out); err != nil {
					return err
				}
			}
			return nil
		}
	}

	if qualified == "" {
		qualified = fmt.Sprintf("field_%d", len(*out))
	}
	*out = append(*out, buildField(ctx, dict, qualified))
	return nil
}

func hasNamedKid(ctx *model.Context, kids types.Array) bool {
	for _, kid := range kids {
		if d, err := ctx.DereferenceDict(kid); err == nil && d != nil {
			if _, found := d.Find("T"); found {
				return true
			}
		}
	}
	return false
}

func fieldName(ctx *model.Context, dict types.Dict) string {
	nameObj, found := dict.Find("T")
	if !found {
		return ""
	}
	name, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil)
	if err != nil {
		return ""
	}
	return name
}

func buildField(ctx *model.Context, dict types.Dict, qualified string) models.FormField {
	ft := widgetKind(ctx, dict)
	flags := fieldFlags(ctx, dict)

	f := models.FormField{
		ID:       qualified,
		Label:    qualified,
		Type:     mapWidgetKind(ft, flags),
		Required: flags&1 == 0, // read-only fields are informational, not fillable
		Category: sectionFromName(qualified),
	}

	if valObj, found := dict.Find("V"); found {
		f.DefaultValue = fieldValue(ctx, valObj, f.Type)
	} else if dvObj, found := dict.Find("DV"); found {
		f.DefaultValue = fieldValue(ctx, dvObj, f.Type)
	}

	if f.Type == models.FieldSelect {
		f.Options = fieldOptions(ctx, dict)
	}

	if maxObj, found := dict.Find("MaxLen"); found {
		if maxLen, err := ctx.DereferenceInteger(maxObj); err == nil && maxLen != nil {
			f.Validation = &models.FieldValidation{MaxLength: int(*maxLen)}
		}
	}

	f.Position = fieldPosition(ctx, dict)
	return f
}

// widgetKind resolves the FT entry, consulting Parent for inherited types.
func widgetKind(ctx *model.Context, dict types.Dict) string {
	ftObj, found := dict.Find("FT")
	if !found {
		if parentObj, found := dict.Find("Parent"); found {
			if parent, err := ctx.DereferenceDict(parentObj); err == nil && parent != nil {
				return widgetKind(ctx, parent)
			}
		}
		return ""
	}
	name, err := ctx.DereferenceName(ftObj, model.V10, nil)
	if err != nil {
		return ""
	}
	return string(name)
}

func fieldFlags(ctx *model.Context, dict types.Dict) int {
	flagsObj, found := dict.Find("Ff")
	if !found {
		return 0
	}
	flags, err := ctx.DereferenceInteger(flagsObj)
	if err != nil || flags == nil {
		return 0
	}
	return int(*flags)
}

// mapWidgetKind maps a PDF field type onto the shared enum. Anything without
// a corresponding entry degrades to text rather than failing.
func mapWidgetKind(ft string, flags int) models.FieldType {
	switch ft {
	case "Tx":
		return models.FieldText
	case "Ch":
		return models.FieldSelect
	case "Btn":
		if flags&(1<<15) != 0 { // radio button group
			return models.FieldRadio
		}
		if flags&(1<<16) != 0 { // pushbutton, not fillable
			return models.FieldText
		}
		return models.FieldCheckbox
	default:
		return models.FieldText
	}
}

func fieldValue(ctx *model.Context, obj types.Object, ft models.FieldType) string {
	switch ft {
	case models.FieldCheckbox:
		if name, err := ctx.DereferenceName(obj, model.V10, nil); err == nil {
			if name == "Yes" || name == "On" {
				return "true"
			}
			return "false"
		}
	case models.FieldRadio:
		if name, err := ctx.DereferenceName(obj, model.V10, nil); err == nil {
			return string(name)
		}
	}
	if s, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil); err == nil {
		return s
	}
	if arr, err := ctx.DereferenceArray(obj); err == nil && len(arr) > 0 {
		if s, err := ctx.DereferenceStringOrHexLiteral(arr[0], model.V10, nil); err == nil {
			return s
		}
	}
	return ""
}

// fieldOptions reads the Opt array of a choice field. Entries are either
// plain strings or [export, display] pairs.
func fieldOptions(ctx *model.Context, dict types.Dict) []models.FieldOption {
	optObj, found := dict.Find("Opt")
	if !found {
		return nil
	}
	arr, err := ctx.DereferenceArray(optObj)
	if err != nil {
		return nil
	}

	var opts []models.FieldOption
	for _, o := range arr {
		if s, err := ctx.DereferenceStringOrHexLiteral(o, model.V10, nil); err == nil {
			opts = append(opts, models.FieldOption{Label: s, Value: s})
			continue
		}
		if pair, err := ctx.DereferenceArray(o); err == nil && len(pair) >= 2 {
			export, _ := ctx.DereferenceStringOrHexLiteral(pair[0], model.V10, nil)
			display, err := ctx.DereferenceStringOrHexLiteral(pair[1], model.V10, nil)
			if err != nil {
				continue
			}
			if export == "" {
				export = display
			}
			opts = append(opts, models.FieldOption{Label: display, Value: export})
		}
	}
	return opts
}

func fieldPosition(ctx *model.Context, dict types.Dict) *models.FieldPosition {
	rectObj, found := dict.Find("Rect")
	if !found {
		if kidsObj, found := dict.Find("Kids"); found {
			if kids, err := ctx.DereferenceArray(kidsObj); err == nil && len(kids) > 0 {
				if widget, err := ctx.DereferenceDict(kids[0]); err == nil && widget != nil {
					return fieldPosition(ctx, widget)
				}
			}
		}
		return nil
	}

	arr, err := ctx.DereferenceArray(rectObj)
	if err != nil || len(arr) != 4 {
		return nil
	}
	coords := make([]float64, 4)
	for i, c := range arr {
		if f, err := ctx.DereferenceNumber(c); err == nil {
			coords[i] = f
		}
	}
	return &models.FieldPosition{
		Page:   1,
		X:      coords[0],
		Y:      coords[1],
		Width:  coords[2] - coords[0],
		Height: coords[3] - coords[1],
	}
}

// sectionFromName strips the last dot component of a fully-qualified field
// name: applicant.address.city → "applicant > address".
func sectionFromName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return "Main"
	}
	return strings.Join(parts[:len(parts)-1], " > ")
}

func pdfMetadata(ctx *model.Context) models.DocumentMetadata {
	meta := models.DocumentMetadata{PageCount: ctx.PageCount}
	if ctx.Info == nil {
		return meta
	}
	infoDict, err := ctx.DereferenceDict(*ctx.Info)
	if err != nil || infoDict == nil {
		return meta
	}

	infoString := func(key string) string {
		obj, found := infoDict.Find(key)
		if !found {
			return ""
		}
		s, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil)
		if err != nil {
			return ""
		}
		return s
	}

	meta.Title = infoString("Title")
	meta.Author = infoString("Author")
	meta.Created = strings.TrimPrefix(infoString("CreationDate"), "D:")
	meta.Modified = strings.TrimPrefix(infoString("ModDate"), "D:")
	return meta
}
