package animation

import "context"

// Request is the normalized animation-stage request. ImageRef must point at
// a completed, dereferenceable still from the image stage.
type Request struct {
	ImageRef        string
	Description     string
	Model           string
	DurationSeconds int
	FPS             int
	RequestID       string
	SceneNumber     int
}

// Asset is a generated animation hosted by the provider.
type Asset struct {
	URL    string
	Format string
	Length int
}

// Generator is the contract implemented by all animation providers.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Asset, error)
}
