package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/formpilot/formpilot/internal/models"
	"github.com/formpilot/formpilot/internal/store"
)

type ProfileHandler struct {
	store store.Store
}

func NewProfileHandler(st store.Store) *ProfileHandler {
	return &ProfileHandler{store: st}
}

type profileFieldRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type profileRequest struct {
	Name        string                `json:"name"`
	Type        string                `json:"type"`
	Description string                `json:"description"`
	Fields      []profileFieldRequest `json:"fields"`
}

func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user_id not found in context")
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Type == "" {
		req.Type = "personal"
	}

	profile := &models.AutofillProfile{
		ID:          uuid.NewString(),
		UserID:      uid,
		Name:        strings.TrimSpace(req.Name),
		Type:        req.Type,
		Description: req.Description,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	for _, f := range req.Fields {
		profile.Fields = append(profile.Fields, models.ProfileField{
			ID:        uuid.NewString(),
			ProfileID: profile.ID,
			Name:      f.Name,
			Value:     f.Value,
		})
	}

	if err := h.store.CreateProfile(r.Context(), profile); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, profile)
}

func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user_id not found in context")
		return
	}

	profiles, err := h.store.ListProfilesByUser(r.Context(), uid)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if profiles == nil {
		profiles = []models.AutofillProfile{}
	}
	respondJSON(w, http.StatusOK, profiles)
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.ownedProfile(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.ownedProfile(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		profile.Name = name
	}
	if req.Type != "" {
		profile.Type = req.Type
	}
	profile.Description = req.Description

	if req.Fields != nil {
		profile.Fields = profile.Fields[:0]
		for _, f := range req.Fields {
			id := f.ID
			if id == "" {
				id = uuid.NewString()
			}
			profile.Fields = append(profile.Fields, models.ProfileField{
				ID:        id,
				ProfileID: profile.ID,
				Name:      f.Name,
				Value:     f.Value,
			})
		}
	}

	if err := h.store.UpdateProfile(r.Context(), profile); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.ownedProfile(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteProfile(r.Context(), profile.ID); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProfileHandler) ownedProfile(w http.ResponseWriter, r *http.Request) (*models.AutofillProfile, bool) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user_id not found in context")
		return nil, false
	}

	id := chi.URLParam(r, "id")
	profile, err := h.store.GetProfileByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if profile == nil || profile.UserID != uid {
		respondError(w, http.StatusNotFound, "profile not found")
		return nil, false
	}
	return profile, true
}
