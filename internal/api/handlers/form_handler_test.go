package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/formpilot/internal/config"
	"github.com/formpilot/formpilot/internal/docproc"
	"github.com/formpilot/formpilot/internal/models"
	"github.com/formpilot/formpilot/internal/objectstore"
	"github.com/formpilot/formpilot/internal/realtime"
)

type fakeStore struct {
	users    map[string]*models.User
	forms    map[string]*models.Form
	profiles map[string]*models.AutofillProfile
	messages map[string]*models.Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]*models.User{},
		forms:    map[string]*models.Form{},
		profiles: map[string]*models.AutofillProfile{},
		messages: map[string]*models.Message{},
	}
}

func (f *fakeStore) CreateUser(ctx context.Context, u *models.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateForm(ctx context.Context, form *models.Form) error {
	cp := *form
	f.forms[form.ID] = &cp
	return nil
}

func (f *fakeStore) GetFormByID(ctx context.Context, id string) (*models.Form, error) {
	form, ok := f.forms[id]
	if !ok {
		return nil, nil
	}
	cp := *form
	return &cp, nil
}

func (f *fakeStore) ListFormsByUser(ctx context.Context, userID string) ([]models.Form, error) {
	var out []models.Form
	for _, form := range f.forms {
		if form.UserID == userID {
			out = append(out, *form)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateForm(ctx context.Context, form *models.Form) error {
	cp := *form
	cp.Version++
	f.forms[form.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateFormStatus(ctx context.Context, id, status, errMsg string) error {
	if form, ok := f.forms[id]; ok {
		form.Status = status
		form.Error = errMsg
	}
	return nil
}

func (f *fakeStore) DeleteForm(ctx context.Context, id string) error {
	delete(f.forms, id)
	return nil
}

func (f *fakeStore) SetFavorite(ctx context.Context, id string, favorite bool) error {
	if form, ok := f.forms[id]; ok {
		form.IsFavorite = favorite
	}
	return nil
}

func (f *fakeStore) CreateProfile(ctx context.Context, p *models.AutofillProfile) error {
	f.profiles[p.ID] = p
	return nil
}

func (f *fakeStore) GetProfileByID(ctx context.Context, id string) (*models.AutofillProfile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (f *fakeStore) ListProfilesByUser(ctx context.Context, userID string) ([]models.AutofillProfile, error) {
	var out []models.AutofillProfile
	for _, p := range f.profiles {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateProfile(ctx context.Context, p *models.AutofillProfile) error {
	f.profiles[p.ID] = p
	return nil
}

func (f *fakeStore) DeleteProfile(ctx context.Context, id string) error {
	delete(f.profiles, id)
	return nil
}

func (f *fakeStore) CreateMessage(ctx context.Context, m *models.Message) error {
	f.messages[m.ID] = m
	return nil
}

func (f *fakeStore) ListMessages(ctx context.Context) ([]models.Message, error) {
	var out []models.Message
	for _, m := range f.messages {
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeStore) DeleteMessage(ctx context.Context, id, userID string) error {
	if m, ok := f.messages[id]; ok && m.UserID == userID {
		delete(f.messages, id)
		return nil
	}
	return errors.New("not found")
}

func (f *fakeStore) Close() error { return nil }

type fakeObjects struct {
	objects map[string][]byte
	deleted []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) UploadFile(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	f.objects[key] = data
	return "https://objects.test/" + key, nil
}

func (f *fakeObjects) DeleteFile(ctx context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjects) GetObjectReader(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjects) PresignGet(ctx context.Context, key string) (string, error) {
	return "https://objects.test/presigned/" + key, nil
}

func testFormHandler(st *fakeStore) *FormHandler {
	cfg := &config.Config{JWTSecret: "test", MaxUploadMB: 50}
	return NewFormHandler(st, nil, nil, realtime.NewHub(), cfg)
}

func authedRequest(method, target string, body []byte, uid string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(context.WithValue(req.Context(), "user_id", uid))
}

func formRouter(h *FormHandler) chi.Router {
	r := chi.NewRouter()
	r.Get("/forms/{id}", h.Get)
	r.Patch("/forms/{id}", h.Update)
	r.Post("/forms/{id}/favorite", h.Favorite)
	r.Post("/forms/{id}/autofill", h.Autofill)
	return r
}

func TestAutofillMatchesByIDAndLabel(t *testing.T) {
	st := newFakeStore()
	st.forms["f1"] = &models.Form{
		ID:     "f1",
		UserID: "u1",
		Fields: []models.FormField{
			{ID: "full_name", Label: "Full Name"},
			{ID: "email", Label: "Email Address"},
			{ID: "unmatched", Label: "Passport Number"},
		},
	}
	st.profiles["p1"] = &models.AutofillProfile{
		ID:     "p1",
		UserID: "u1",
		Fields: []models.ProfileField{
			{Name: "full_name", Value: "Ada Lovelace"},
			{Name: "email address", Value: "ada@example.com"},
		},
	}

	body, _ := json.Marshal(map[string]string{"profileId": "p1"})
	req := authedRequest(http.MethodPost, "/forms/f1/autofill", body, "u1")
	rec := httptest.NewRecorder()
	formRouter(testFormHandler(st)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Values map[string]string `json:"values"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Ada Lovelace", resp.Values["full_name"])
	assert.Equal(t, "ada@example.com", resp.Values["email"])
	_, ok := resp.Values["unmatched"]
	assert.False(t, ok)
}

func TestAutofillForeignProfileNotFound(t *testing.T) {
	st := newFakeStore()
	st.forms["f1"] = &models.Form{ID: "f1", UserID: "u1"}
	st.profiles["p1"] = &models.AutofillProfile{ID: "p1", UserID: "someone-else"}

	body, _ := json.Marshal(map[string]string{"profileId": "p1"})
	req := authedRequest(http.MethodPost, "/forms/f1/autofill", body, "u1")
	rec := httptest.NewRecorder()
	formRouter(testFormHandler(st)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetForeignFormNotFound(t *testing.T) {
	st := newFakeStore()
	st.forms["f1"] = &models.Form{ID: "f1", UserID: "owner"}

	req := authedRequest(http.MethodGet, "/forms/f1", nil, "intruder")
	rec := httptest.NewRecorder()
	formRouter(testFormHandler(st)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateRenormalizesFields(t *testing.T) {
	st := newFakeStore()
	st.forms["f1"] = &models.Form{ID: "f1", UserID: "u1", Name: "Visa"}

	body, _ := json.Marshal(map[string]any{
		"fields": []map[string]any{
			{"label": "Full Name", "type": "select"},
		},
	})
	req := authedRequest(http.MethodPatch, "/forms/f1", body, "u1")
	rec := httptest.NewRecorder()
	formRouter(testFormHandler(st)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	saved := st.forms["f1"]
	require.Len(t, saved.Fields, 1)
	assert.Equal(t, "full_name", saved.Fields[0].ID)
	// A select without options cannot render, so it falls back to text.
	assert.Equal(t, models.FieldText, saved.Fields[0].Type)
	assert.Equal(t, "Other", saved.Fields[0].Category)
}

func TestUpdateRejectsEmptyName(t *testing.T) {
	st := newFakeStore()
	st.forms["f1"] = &models.Form{ID: "f1", UserID: "u1", Name: "Visa"}

	body, _ := json.Marshal(map[string]string{"name": "   "})
	req := authedRequest(http.MethodPatch, "/forms/f1", body, "u1")
	rec := httptest.NewRecorder()
	formRouter(testFormHandler(st)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Visa", st.forms["f1"].Name)
}

func TestDownloadStreamsOriginal(t *testing.T) {
	st := newFakeStore()
	objects := newFakeObjects()
	objects.objects["u1/f1/visa.pdf"] = []byte("%PDF-1.4 original bytes")
	st.forms["f1"] = &models.Form{
		ID:           "f1",
		UserID:       "u1",
		StorageKey:   "u1/f1/visa.pdf",
		OriginalName: "visa.pdf",
		MimeType:     "application/pdf",
	}

	cfg := &config.Config{JWTSecret: "test", MaxUploadMB: 50}
	h := NewFormHandler(st, objects, nil, realtime.NewHub(), cfg)

	r := chi.NewRouter()
	r.Get("/forms/{id}/download", h.Download)

	req := authedRequest(http.MethodGet, "/forms/f1/download", nil, "u1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="visa.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4 original bytes", rec.Body.String())
}

func TestDownloadForeignFormNotFound(t *testing.T) {
	st := newFakeStore()
	st.forms["f1"] = &models.Form{ID: "f1", UserID: "owner", StorageKey: "owner/f1/a.pdf"}

	cfg := &config.Config{JWTSecret: "test", MaxUploadMB: 50}
	h := NewFormHandler(st, newFakeObjects(), nil, realtime.NewHub(), cfg)

	r := chi.NewRouter()
	r.Get("/forms/{id}/download", h.Download)

	req := authedRequest(http.MethodGet, "/forms/f1/download", nil, "intruder")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadBatchSurfacesExtractionError(t *testing.T) {
	st := newFakeStore()
	objects := newFakeObjects()
	cfg := &config.Config{JWTSecret: "test", MaxUploadMB: 50}
	processor := docproc.NewProcessor(objectstore.NewPreviewStore(objects))
	h := NewFormHandler(st, objects, processor, realtime.NewHub(), cfg)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("files", "broken.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 garbage"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := authedRequest(http.MethodPost, "/forms/upload", body.Bytes(), "u1")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	r := chi.NewRouter()
	r.Post("/forms/upload", h.Upload)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Results []struct {
			Name  string       `json:"name"`
			Form  *models.Form `json:"form"`
			Error string       `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)

	// The failure is visible at the batch entry, not only inside the form.
	assert.NotEmpty(t, resp.Results[0].Error)
	require.NotNil(t, resp.Results[0].Form)
	assert.Equal(t, "error", resp.Results[0].Form.Status)
	assert.Equal(t, resp.Results[0].Form.Error, resp.Results[0].Error)
}

func TestFavoriteTogglesFlag(t *testing.T) {
	st := newFakeStore()
	st.forms["f1"] = &models.Form{ID: "f1", UserID: "u1"}

	body, _ := json.Marshal(map[string]bool{"favorite": true})
	req := authedRequest(http.MethodPost, "/forms/f1/favorite", body, "u1")
	rec := httptest.NewRecorder()
	formRouter(testFormHandler(st)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, st.forms["f1"].IsFavorite)
}
