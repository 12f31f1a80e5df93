package docproc

import (
	"regexp"
	"strings"

	"github.com/formpilot/formpilot/internal/models"
)

var (
	// fieldLineRe matches "<label>: <default>" and "<label>_<default>" lines.
	fieldLineRe = regexp.MustCompile(`^([^_:]+)[_:]\s*(.*)$`)
	// checkboxRe matches "[ ]" and "[x]" bracket tokens, any case.
	checkboxRe = regexp.MustCompile(`(?i)\[\s*\]|\[x\]`)
	checkedRe  = regexp.MustCompile(`(?i)\[x\]`)
)

// ParseTextFields infers form fields from plain document text. Word documents
// carry no structured form model, so this is heuristic and best-effort: lines
// that are entirely upper-case or end with a colon open a new section, label
// lines become text fields, and bracket tokens become checkboxes. A single
// line may contribute both a text field and a checkbox.
func ParseTextFields(text string) []models.FormField {
	var fields []models.FormField
	section := "Main"

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Section headers are recorded but not emitted as fields.
		if line == strings.ToUpper(line) || strings.HasSuffix(line, ":") {
			section = strings.TrimSpace(strings.TrimSuffix(line, ":"))
			continue
		}

		if m := fieldLineRe.FindStringSubmatch(line); m != nil {
			fields = append(fields, models.FormField{
				Label:        strings.TrimSpace(m[1]),
				Type:         models.FieldText,
				Required:     false,
				Category:     section,
				DefaultValue: strings.Trim(m[2], " _"),
			})
		}

		if checkboxRe.MatchString(line) {
			def := "false"
			if checkedRe.MatchString(line) {
				def = "true"
			}
			fields = append(fields, models.FormField{
				Label:        strings.TrimSpace(checkboxRe.ReplaceAllString(line, "")),
				Type:         models.FieldCheckbox,
				Required:     false,
				Category:     section,
				DefaultValue: def,
			})
		}
	}

	return fields
}
