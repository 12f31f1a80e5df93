package docproc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/formpilot/formpilot/internal/models"
)

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize maps raw extractor output onto the shared field contract:
// category is always set, options exist exactly when the type is select, and
// every field gets a stable unique id derived from its label. Field order is
// preserved, and applying Normalize twice yields the same result as once.
func Normalize(fields []models.FormField) []models.FormField {
	out := make([]models.FormField, 0, len(fields))
	seen := make(map[string]bool, len(fields))

	for _, f := range fields {
		f.Label = strings.TrimSpace(f.Label)
		if f.Type == "" {
			f.Type = models.FieldText
		}
		if f.Category == "" {
			f.Category = "Other"
		}

		// A select without options is unusable as a select.
		if f.Type == models.FieldSelect && len(f.Options) == 0 {
			f.Type = models.FieldText
		}
		if f.Type != models.FieldSelect {
			f.Options = nil
		}

		if f.ID == "" {
			f.ID = slugify(f.Label)
		}
		f.ID = uniqueID(f.ID, seen)
		seen[f.ID] = true

		out = append(out, f)
	}
	return out
}

func slugify(label string) string {
	slug := slugRe.ReplaceAllString(strings.ToLower(label), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		return "field"
	}
	return slug
}

// uniqueID disambiguates colliding ids with a deterministic numeric suffix.
func uniqueID(id string, seen map[string]bool) string {
	if !seen[id] {
		return id
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", id, i)
		if !seen[candidate] {
			return candidate
		}
	}
}
