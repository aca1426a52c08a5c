package text

import (
	"context"

	"server/internal/domain"
)

// Request describes one text-stage invocation. The provider must return a
// structured template per requested scene or fail; it never returns a
// partially formed list.
type Request struct {
	Prompt     string
	SceneCount int
	Model      string
	Locale     string
}

// Generator is the contract implemented by all text providers.
type Generator interface {
	GenerateScenes(ctx context.Context, req Request) ([]domain.SceneTemplate, error)
}
