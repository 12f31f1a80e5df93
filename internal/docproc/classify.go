package docproc

import (
	"path/filepath"
	"strings"
)

// Classify returns the document kind for a file name based on its extension.
// The extension is trusted; no magic-byte sniffing is performed.
func Classify(fileName string) Kind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	switch ext {
	case "pdf":
		return KindPDF
	case "doc", "docx":
		return KindWord
	case "xls", "xlsx":
		return KindSpreadsheet
	default:
		return KindUnknown
	}
}

// MimeType returns the canonical content type for a document kind, used when
// storing raw bytes and preview objects.
func MimeType(kind Kind, fileName string) string {
	switch kind {
	case KindPDF:
		return "application/pdf"
	case KindWord:
		if strings.EqualFold(filepath.Ext(fileName), ".doc") {
			return "application/msword"
		}
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case KindSpreadsheet:
		if strings.EqualFold(filepath.Ext(fileName), ".xls") {
			return "application/vnd.ms-excel"
		}
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
