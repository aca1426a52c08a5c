package providers

import (
	"fmt"

	"server/internal/domain"
	"server/internal/providers/animation"
	"server/internal/providers/image"
	"server/internal/providers/text"
)

// ModelInfo describes one catalog entry exposed on the models endpoint.
type ModelInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Catalog is the single source of truth for known model identifiers and the
// style/aspect-ratio enumerations clients may select from.
type Catalog struct {
	Text         []ModelInfo `json:"text"`
	Image        []ModelInfo `json:"image"`
	Animation    []ModelInfo `json:"animation"`
	ImageStyles  []string    `json:"imageStyles"`
	AspectRatios []string    `json:"aspectRatios"`
}

// Registry maps exact model identifiers to concrete generators. It is built
// once at startup and fails closed: an identifier that was never registered
// resolves to domain.ErrUnsupportedModel.
type Registry struct {
	text      map[string]text.Generator
	image     map[string]image.Generator
	animation map[string]animation.Generator
	catalog   Catalog
}

func NewRegistry() *Registry {
	return &Registry{
		text:      make(map[string]text.Generator),
		image:     make(map[string]image.Generator),
		animation: make(map[string]animation.Generator),
		catalog: Catalog{
			ImageStyles:  domain.ImageStyles,
			AspectRatios: domain.AspectRatios,
		},
	}
}

func (r *Registry) RegisterText(info ModelInfo, gen text.Generator) {
	r.text[info.ID] = gen
	r.catalog.Text = append(r.catalog.Text, info)
}

func (r *Registry) RegisterImage(info ModelInfo, gen image.Generator) {
	r.image[info.ID] = gen
	r.catalog.Image = append(r.catalog.Image, info)
}

func (r *Registry) RegisterAnimation(info ModelInfo, gen animation.Generator) {
	r.animation[info.ID] = gen
	r.catalog.Animation = append(r.catalog.Animation, info)
}

func (r *Registry) Text(model string) (text.Generator, error) {
	gen, ok := r.text[model]
	if !ok || gen == nil {
		return nil, fmt.Errorf("%w: text model %q", domain.ErrUnsupportedModel, model)
	}
	return gen, nil
}

func (r *Registry) Image(model string) (image.Generator, error) {
	gen, ok := r.image[model]
	if !ok || gen == nil {
		return nil, fmt.Errorf("%w: image model %q", domain.ErrUnsupportedModel, model)
	}
	return gen, nil
}

func (r *Registry) Animation(model string) (animation.Generator, error) {
	gen, ok := r.animation[model]
	if !ok || gen == nil {
		return nil, fmt.Errorf("%w: animation model %q", domain.ErrUnsupportedModel, model)
	}
	return gen, nil
}

// Knows reports whether all three model ids of a settings snapshot are
// registered. Used to reject a request before a record is created.
func (r *Registry) Knows(settings domain.GenerationSettings) error {
	if _, err := r.Text(settings.TextModel); err != nil {
		return err
	}
	if _, err := r.Image(settings.ImageModel); err != nil {
		return err
	}
	if _, err := r.Animation(settings.AnimationModel); err != nil {
		return err
	}
	return nil
}

func (r *Registry) Catalog() Catalog {
	return r.catalog
}
