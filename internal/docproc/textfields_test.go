package docproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/formpilot/internal/models"
)

func TestParseTextFields(t *testing.T) {
	text := "NAME:\nFull Name_John\n[x] Agree to terms\n"

	fields := ParseTextFields(text)
	require.Len(t, fields, 2)

	assert.Equal(t, "Full Name", fields[0].Label)
	assert.Equal(t, models.FieldText, fields[0].Type)
	assert.Equal(t, "NAME", fields[0].Category)
	assert.Equal(t, "John", fields[0].DefaultValue)
	assert.False(t, fields[0].Required)

	assert.Equal(t, "Agree to terms", fields[1].Label)
	assert.Equal(t, models.FieldCheckbox, fields[1].Type)
	assert.Equal(t, "NAME", fields[1].Category)
	assert.Equal(t, "true", fields[1].DefaultValue)
}

func TestParseTextFieldsSections(t *testing.T) {
	text := "Contact Details:\nEmail_user@example.com\nPhone: 555-0100\nPREFERENCES\n[ ] Subscribe to newsletter\n"

	fields := ParseTextFields(text)
	require.Len(t, fields, 3)

	assert.Equal(t, "Email", fields[0].Label)
	assert.Equal(t, "Contact Details", fields[0].Category)
	assert.Equal(t, "user@example.com", fields[0].DefaultValue)

	assert.Equal(t, "Phone", fields[1].Label)
	assert.Equal(t, "555-0100", fields[1].DefaultValue)

	assert.Equal(t, "Subscribe to newsletter", fields[2].Label)
	assert.Equal(t, models.FieldCheckbox, fields[2].Type)
	assert.Equal(t, "PREFERENCES", fields[2].Category)
	assert.Equal(t, "false", fields[2].DefaultValue)
}

func TestParseTextFieldsUnderscoreBlanks(t *testing.T) {
	fields := ParseTextFields("Signature_______\n")
	require.Len(t, fields, 1)
	assert.Equal(t, "Signature", fields[0].Label)
	assert.Equal(t, "", fields[0].DefaultValue)
}

func TestParseTextFieldsEmptyInput(t *testing.T) {
	assert.Empty(t, ParseTextFields(""))
	assert.Empty(t, ParseTextFields("\n\n\n"))
}

func TestParseTextFieldsLineEmitsBoth(t *testing.T) {
	fields := ParseTextFields("hello\nAccept: [ ] yes please\n")
	require.Len(t, fields, 2)
	assert.Equal(t, models.FieldText, fields[0].Type)
	assert.Equal(t, "Accept", fields[0].Label)
	assert.Equal(t, models.FieldCheckbox, fields[1].Type)
}
