package handlers

import (
	"encoding/json"
	"net/http"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/middleware"
	"server/internal/providers"
)

// Starter launches the generation pipeline for a freshly created record.
type Starter interface {
	Start(content *domain.Content)
}

type App struct {
	Repo     domain.ContentRepository
	Registry *providers.Registry
	Pipeline Starter
	Logger   infra.Logger

	// MaxProcessingPerOwner caps concurrently processing jobs per owner.
	MaxProcessingPerOwner int
}

func NewApp(repo domain.ContentRepository, registry *providers.Registry, pipeline Starter, logger infra.Logger, maxProcessing int) *App {
	return &App{
		Repo:                  repo,
		Registry:              registry,
		Pipeline:              pipeline,
		Logger:                logger,
		MaxProcessingPerOwner: maxProcessing,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// messages holds the client-facing error strings per locale. Detail beyond
// these keys stays in the logs, never in the response.
var messages = map[string]map[string]string{
	"en": {
		"bad_request":         "invalid request payload",
		"invalid_prompt":      "prompt must be between 10 and 5000 characters",
		"invalid_settings":    "generation settings are invalid",
		"unsupported_model":   "one of the requested models is not supported",
		"invalid_id":          "content id must be a valid UUID",
		"not_found":           "content not found",
		"scene_not_found":     "scene not found",
		"invalid_scene":       "scene number must be between 1 and 10",
		"invalid_patch":       "scene update payload is invalid",
		"too_many_processing": "too many generations in progress, please wait for one to finish",
		"internal":            "internal server error",
	},
	"ro": {
		"bad_request":         "corpul cererii este invalid",
		"invalid_prompt":      "promptul trebuie să aibă între 10 și 5000 de caractere",
		"invalid_settings":    "setările de generare sunt invalide",
		"unsupported_model":   "unul dintre modelele cerute nu este suportat",
		"invalid_id":          "id-ul trebuie să fie un UUID valid",
		"not_found":           "conținutul nu a fost găsit",
		"scene_not_found":     "scena nu a fost găsită",
		"invalid_scene":       "numărul scenei trebuie să fie între 1 și 10",
		"invalid_patch":       "corpul actualizării scenei este invalid",
		"too_many_processing": "prea multe generări în curs, așteptați finalizarea uneia",
		"internal":            "eroare internă de server",
	},
}

func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code string) {
	locale := middleware.LocaleFromContext(r.Context())
	msg := messages[locale][code]
	if msg == "" {
		msg = messages["en"][code]
	}
	a.json(w, status, errorBody{Error: code, Message: msg})
}
