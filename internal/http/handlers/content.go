package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"server/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type generateRequest struct {
	Prompt         string                    `json:"prompt"`
	NumberOfScenes int                       `json:"numberOfScenes"`
	OwnerID        string                    `json:"ownerId"`
	Settings       domain.GenerationSettings `json:"settings"`
}

type generateResponse struct {
	ContentID string `json:"contentId"`
	Status    string `json:"status"`
}

// GenerateContent validates the request, admits it against the per-owner
// processing cap, creates the record and launches the pipeline. The response
// carries only the id; all progress is observed by polling.
func (a *App) GenerateContent(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request")
		return
	}
	if req.OwnerID == "" {
		req.OwnerID = "anonymous"
	}
	// The top-level scene count wins over the one embedded in settings.
	if req.NumberOfScenes != 0 {
		req.Settings.NumberOfScenes = req.NumberOfScenes
	}

	if err := domain.ValidatePrompt(req.Prompt); err != nil {
		a.error(w, r, http.StatusBadRequest, "invalid_prompt")
		return
	}
	if err := req.Settings.Validate(); err != nil {
		a.error(w, r, http.StatusBadRequest, "invalid_settings")
		return
	}
	if err := a.Registry.Knows(req.Settings); err != nil {
		a.error(w, r, http.StatusBadRequest, "unsupported_model")
		return
	}

	// Best-effort admission check; two racing requests may both pass, which
	// is acceptable for a soft cap.
	count, err := a.Repo.CountProcessingByOwner(r.Context(), req.OwnerID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: admission count failed")
		a.error(w, r, http.StatusInternalServerError, "internal")
		return
	}
	if count >= a.MaxProcessingPerOwner {
		a.error(w, r, http.StatusTooManyRequests, "too_many_processing")
		return
	}

	content := domain.NewContent(req.OwnerID, req.Prompt, req.Settings)
	if err := a.Repo.Create(r.Context(), content); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: create content failed")
		a.error(w, r, http.StatusInternalServerError, "internal")
		return
	}

	a.Pipeline.Start(content)
	a.json(w, http.StatusCreated, generateResponse{ContentID: content.ID, Status: string(domain.StatusProcessing)})
}

// GetContent returns the full record, the document polled by clients.
func (a *App) GetContent(w http.ResponseWriter, r *http.Request) {
	content, ok := a.loadContent(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, content)
}

// ListContent returns an owner's most recent records, newest first.
func (a *App) ListContent(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("ownerId")
	if ownerID == "" {
		ownerID = "anonymous"
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			a.error(w, r, http.StatusBadRequest, "bad_request")
			return
		}
		limit = n
	}
	items, err := a.Repo.ListByOwner(r.Context(), ownerID, limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: list content failed")
		a.error(w, r, http.StatusInternalServerError, "internal")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) GetScene(w http.ResponseWriter, r *http.Request) {
	content, ok := a.loadContent(w, r)
	if !ok {
		return
	}
	sceneNumber, ok := a.sceneNumber(w, r)
	if !ok {
		return
	}
	scene, ok := content.Scene(sceneNumber)
	if !ok {
		a.error(w, r, http.StatusNotFound, "scene_not_found")
		return
	}
	a.json(w, http.StatusOK, scene)
}

// UpdateScene merges a whitelisted patch into one scene and persists the
// whole record. Unknown fields in the payload are silently dropped.
func (a *App) UpdateScene(w http.ResponseWriter, r *http.Request) {
	content, ok := a.loadContent(w, r)
	if !ok {
		return
	}
	sceneNumber, ok := a.sceneNumber(w, r)
	if !ok {
		return
	}

	var patch domain.ScenePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request")
		return
	}

	scene, err := content.UpdateScene(sceneNumber, patch)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, r, http.StatusNotFound, "scene_not_found")
		return
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, r, http.StatusBadRequest, "invalid_patch")
		return
	case err != nil:
		a.Logger.Error().Err(err).Msg("handlers: scene update failed")
		a.error(w, r, http.StatusInternalServerError, "internal")
		return
	}

	if err := a.Repo.Save(r.Context(), content); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: persist scene update failed")
		a.error(w, r, http.StatusInternalServerError, "internal")
		return
	}
	a.json(w, http.StatusOK, scene)
}

// Models exposes the provider catalog so clients never hardcode model ids.
func (a *App) Models(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Registry.Catalog())
}

func (a *App) loadContent(w http.ResponseWriter, r *http.Request) (*domain.Content, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		a.error(w, r, http.StatusBadRequest, "invalid_id")
		return nil, false
	}
	content, err := a.Repo.GetByID(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		a.error(w, r, http.StatusNotFound, "not_found")
		return nil, false
	}
	if err != nil {
		a.Logger.Error().Err(err).Str("content_id", id).Msg("handlers: load content failed")
		a.error(w, r, http.StatusInternalServerError, "internal")
		return nil, false
	}
	return content, true
}

func (a *App) sceneNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "sceneNumber"))
	if err != nil || n < domain.MinScenes || n > domain.MaxScenes {
		a.error(w, r, http.StatusBadRequest, "invalid_scene")
		return 0, false
	}
	return n, true
}
