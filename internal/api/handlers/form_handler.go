package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/formpilot/formpilot/internal/config"
	"github.com/formpilot/formpilot/internal/docproc"
	"github.com/formpilot/formpilot/internal/models"
	"github.com/formpilot/formpilot/internal/objectstore"
	"github.com/formpilot/formpilot/internal/realtime"
	"github.com/formpilot/formpilot/internal/store"
)

// uploadConcurrency caps how many files of one batch are processed at once.
const uploadConcurrency = 3

type FormHandler struct {
	store     store.Store
	objects   objectstore.ObjectStore
	processor *docproc.Processor
	hub       *realtime.Hub
	cfg       *config.Config
}

func NewFormHandler(st store.Store, objects objectstore.ObjectStore, processor *docproc.Processor, hub *realtime.Hub, cfg *config.Config) *FormHandler {
	return &FormHandler{store: st, objects: objects, processor: processor, hub: hub, cfg: cfg}
}

type uploadResult struct {
	Name  string       `json:"name"`
	Form  *models.Form `json:"form,omitempty"`
	Error string       `json:"error,omitempty"`
}

// Upload accepts a multipart batch under the "files" key. Files are processed
// concurrently with a bounded limit; one bad file never fails the batch.
func (h *FormHandler) Upload(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user_id not found in context")
		return
	}

	maxBytes := h.cfg.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", h.cfg.MaxUploadMB))
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no files provided")
		return
	}

	results := make([]uploadResult, len(files))

	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(uploadConcurrency)
	for i, fh := range files {
		i, fh := i, fh
		g.Go(func() error {
			form, err := h.processUpload(ctx, uid, fh)
			if err != nil {
				log.Warn().Err(err).Str("file", fh.Filename).Msg("upload failed")
				results[i] = uploadResult{Name: fh.Filename, Error: err.Error()}
				return nil
			}
			// Extraction failures keep the row but must also surface in the
			// batch entry itself.
			results[i] = uploadResult{Name: fh.Filename, Form: form, Error: form.Error}
			return nil
		})
	}
	_ = g.Wait()

	respondJSON(w, http.StatusCreated, map[string]any{"results": results})
}

// processUpload stores the original, records the form as processing, runs the
// extraction pipeline, then publishes the final state.
func (h *FormHandler) processUpload(ctx context.Context, uid string, fh *multipart.FileHeader) (*models.Form, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	cleanName := filepath.Base(fh.Filename)
	formID := uuid.NewString()
	storageKey := fmt.Sprintf("%s/%s/%s", uid, formID, cleanName)

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := h.objects.UploadFile(ctx, storageKey, data, contentType); err != nil {
		return nil, fmt.Errorf("store original: %w", err)
	}

	form := &models.Form{
		ID:           formID,
		UserID:       uid,
		Name:         strings.TrimSuffix(cleanName, filepath.Ext(cleanName)),
		Type:         "other",
		Size:         fh.Size,
		OriginalName: cleanName,
		MimeType:     contentType,
		StorageKey:   storageKey,
		Status:       "processing",
		Version:      1,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := h.store.CreateForm(ctx, form); err != nil {
		return nil, fmt.Errorf("create form: %w", err)
	}

	doc, err := h.processor.Process(ctx, cleanName, data)
	if err != nil {
		form.Status = "error"
		form.Error = extractionMessage(err)
		if dbErr := h.store.UpdateFormStatus(ctx, form.ID, form.Status, form.Error); dbErr != nil {
			log.Error().Err(dbErr).Str("form", form.ID).Msg("record extraction failure")
		}
		h.hub.Broadcast(realtime.Event{Type: "form.updated", Payload: form})
		return form, nil
	}

	form.Type = docproc.FormType(doc.Kind)
	form.Fields = doc.Fields
	form.Metadata = doc.Metadata
	form.PreviewURL = doc.PreviewURL
	form.PreviewKey = doc.PreviewKey
	form.Status = "ready"
	if err := h.store.UpdateForm(ctx, form); err != nil {
		return nil, fmt.Errorf("save extraction: %w", err)
	}
	form.Version++

	h.hub.Broadcast(realtime.Event{Type: "form.updated", Payload: form})
	return form, nil
}

func extractionMessage(err error) string {
	var parseErr *docproc.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Error()
	}
	return err.Error()
}

func (h *FormHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user_id not found in context")
		return
	}

	forms, err := h.store.ListFormsByUser(r.Context(), uid)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if forms == nil {
		forms = []models.Form{}
	}
	respondJSON(w, http.StatusOK, forms)
}

func (h *FormHandler) Get(w http.ResponseWriter, r *http.Request) {
	form, ok := h.ownedForm(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, form)
}

type formUpdateRequest struct {
	Name   *string             `json:"name"`
	Tags   *[]string           `json:"tags"`
	Fields *[]models.FormField `json:"fields"`
}

// Update applies a partial edit to a form. Edited fields are re-normalized so
// the field contract holds no matter what the client sent.
func (h *FormHandler) Update(w http.ResponseWriter, r *http.Request) {
	form, ok := h.ownedForm(w, r)
	if !ok {
		return
	}

	var req formUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			respondError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		form.Name = name
	}
	if req.Tags != nil {
		form.Tags = *req.Tags
	}
	if req.Fields != nil {
		form.Fields = docproc.Normalize(*req.Fields)
		form.Metadata.FieldsCount = len(form.Fields)
	}

	if err := h.store.UpdateForm(r.Context(), form); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	form.Version++

	h.hub.Broadcast(realtime.Event{Type: "form.updated", Payload: form})
	respondJSON(w, http.StatusOK, form)
}

func (h *FormHandler) Delete(w http.ResponseWriter, r *http.Request) {
	form, ok := h.ownedForm(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteForm(r.Context(), form.ID); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Stored objects are cleaned up best-effort; the row is already gone.
	if form.StorageKey != "" {
		if err := h.objects.DeleteFile(r.Context(), form.StorageKey); err != nil {
			log.Warn().Err(err).Str("key", form.StorageKey).Msg("delete original")
		}
	}
	if form.PreviewKey != "" {
		if err := h.objects.DeleteFile(r.Context(), form.PreviewKey); err != nil {
			log.Warn().Err(err).Str("key", form.PreviewKey).Msg("delete preview")
		}
	}

	h.hub.Broadcast(realtime.Event{Type: "form.deleted", Payload: map[string]string{"id": form.ID}})
	w.WriteHeader(http.StatusNoContent)
}

type favoriteRequest struct {
	Favorite bool `json:"favorite"`
}

func (h *FormHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	form, ok := h.ownedForm(w, r)
	if !ok {
		return
	}

	var req favoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if err := h.store.SetFavorite(r.Context(), form.ID, req.Favorite); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	form.IsFavorite = req.Favorite
	respondJSON(w, http.StatusOK, form)
}

type autofillRequest struct {
	ProfileID string `json:"profileId"`
}

// Autofill matches a stored profile against the form's fields. A profile
// entry applies when its name equals the field id, or equals the field label
// ignoring case.
func (h *FormHandler) Autofill(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user_id not found in context")
		return
	}

	form, ok := h.ownedForm(w, r)
	if !ok {
		return
	}

	var req autofillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProfileID == "" {
		respondError(w, http.StatusBadRequest, "profileId is required")
		return
	}

	profile, err := h.store.GetProfileByID(r.Context(), req.ProfileID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if profile == nil || profile.UserID != uid {
		respondError(w, http.StatusNotFound, "profile not found")
		return
	}

	values := make(map[string]string)
	for _, field := range form.Fields {
		for _, pf := range profile.Fields {
			if pf.Name == field.ID || strings.EqualFold(pf.Name, field.Label) {
				values[field.ID] = pf.Value
				break
			}
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"formId":    form.ID,
		"profileId": profile.ID,
		"values":    values,
	})
}

// Download streams the original uploaded document back to its owner.
func (h *FormHandler) Download(w http.ResponseWriter, r *http.Request) {
	form, ok := h.ownedForm(w, r)
	if !ok {
		return
	}
	if form.StorageKey == "" {
		respondError(w, http.StatusNotFound, "original document unavailable")
		return
	}

	rc, err := h.objects.GetObjectReader(r.Context(), form.StorageKey)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rc.Close()

	contentType := form.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", form.OriginalName))
	if _, err := io.Copy(w, rc); err != nil {
		log.Warn().Err(err).Str("form", form.ID).Msg("stream original document")
	}
}

// ownedForm loads the form from the URL and enforces ownership. Forms that
// belong to someone else are reported as not found.
func (h *FormHandler) ownedForm(w http.ResponseWriter, r *http.Request) (*models.Form, bool) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user_id not found in context")
		return nil, false
	}

	id := chi.URLParam(r, "id")
	form, err := h.store.GetFormByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if form == nil || form.UserID != uid {
		respondError(w, http.StatusNotFound, "form not found")
		return nil, false
	}
	return form, true
}
