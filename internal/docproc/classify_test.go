package docproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		file string
		want Kind
	}{
		{"pdf", "report.pdf", KindPDF},
		{"pdf uppercase", "REPORT.PDF", KindPDF},
		{"docx", "application.docx", KindWord},
		{"legacy doc", "application.doc", KindWord},
		{"xlsx", "budget.xlsx", KindSpreadsheet},
		{"legacy xls", "budget.xls", KindSpreadsheet},
		{"text file", "notes.txt", KindUnknown},
		{"no extension", "README", KindUnknown},
		{"trailing dot", "weird.", KindUnknown},
		{"pdf in middle of name", "form.pdf.bak", KindUnknown},
		{"dotted name", "archive.tar.pdf", KindPDF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.file))
		})
	}
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "application/pdf", MimeType(KindPDF, "a.pdf"))
	assert.Equal(t, "application/msword", MimeType(KindWord, "a.doc"))
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		MimeType(KindWord, "a.docx"))
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		MimeType(KindSpreadsheet, "a.xlsx"))
	assert.Equal(t, "application/octet-stream", MimeType(KindUnknown, "a.bin"))
}
