package models

import (
	"time"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FieldType enumerates the input kinds a form field can render as.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldEmail    FieldType = "email"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldRadio    FieldType = "radio"
	FieldFile     FieldType = "file"
)

// FieldOption is one selectable value of a select field.
type FieldOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FieldValidation carries structural input constraints.
type FieldValidation struct {
	Pattern   string  `json:"pattern,omitempty"`
	MinLength int     `json:"min_length,omitempty"`
	MaxLength int     `json:"max_length,omitempty"`
	Min       float64 `json:"min,omitempty"`
	Max       float64 `json:"max,omitempty"`
	Step      float64 `json:"step,omitempty"`
}

// FieldPosition locates a field on a rendered page. PDF widgets only.
type FieldPosition struct {
	Page   int     `json:"page,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// FormField is the normalized, format-agnostic description of one fillable
// input detected in a document. After normalization ID is unique within a
// form, Required and Category are always set, and Options is present exactly
// when Type is select.
type FormField struct {
	ID           string           `json:"id"`
	Label        string           `json:"label"`
	Type         FieldType        `json:"type"`
	Required     bool             `json:"required"`
	Category     string           `json:"category"`
	DefaultValue string           `json:"default_value,omitempty"`
	Options      []FieldOption    `json:"options,omitempty"`
	Validation   *FieldValidation `json:"validation,omitempty"`
	Position     *FieldPosition   `json:"position,omitempty"`
}

// DocumentMetadata describes the source document a form was created from.
type DocumentMetadata struct {
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	Created     string `json:"created,omitempty"`
	Modified    string `json:"modified,omitempty"`
	PageCount   int    `json:"page_count,omitempty"`
	FieldsCount int    `json:"fields_count,omitempty"`
}

// Form is a persisted uploaded document plus its extracted fields and user
// metadata.
type Form struct {
	ID           string           `db:"id" json:"id"`
	UserID       string           `db:"user_id" json:"user_id"`
	Name         string           `db:"name" json:"name"`
	Type         string           `db:"type" json:"type"` // pdf | docx | xlsx | other
	Size         int64            `db:"size" json:"size"`
	OriginalName string           `db:"original_name" json:"original_name"`
	MimeType     string           `db:"mime_type" json:"mime_type"`
	StorageKey   string           `db:"storage_key" json:"-"`
	PreviewURL   string           `db:"preview_url" json:"preview_url"`
	PreviewKey   string           `db:"preview_key" json:"-"`
	Fields       []FormField      `db:"fields" json:"fields"`
	Metadata     DocumentMetadata `db:"metadata" json:"metadata"`
	IsFavorite   bool             `db:"is_favorite" json:"is_favorite"`
	Tags         []string         `db:"tags" json:"tags"`
	Status       string           `db:"status" json:"status"` // draft | processing | ready | error
	Error        string           `db:"error" json:"error,omitempty"`
	Version      int              `db:"version" json:"version"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// ProfileField is one reusable name/value pair of an autofill profile.
type ProfileField struct {
	ID        string `db:"id" json:"id"`
	ProfileID string `db:"profile_id" json:"profile_id"`
	Name      string `db:"name" json:"name"`
	Value     string `db:"value" json:"value"`
}

// AutofillProfile is a named set of field values usable to pre-populate
// matching fields across forms.
type AutofillProfile struct {
	ID          string         `db:"id" json:"id"`
	UserID      string         `db:"user_id" json:"user_id"`
	Name        string         `db:"name" json:"name"`
	Type        string         `db:"type" json:"type"` // personal | company
	Description string         `db:"description" json:"description,omitempty"`
	Fields      []ProfileField `json:"fields"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// Message is one entry in the team message channel.
type Message struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Sender    string    `db:"sender" json:"sender"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
