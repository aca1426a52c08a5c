package image

import "context"

// Request is the normalized image-stage request passed to any provider.
type Request struct {
	Description string
	Model       string
	Style       string
	AspectRatio string
	RequestID   string
	SceneNumber int

	// Optional reference-image conditioning.
	ReferenceCharacterImage  string
	ReferenceBackgroundImage string
	CharacterInfluence       float64
	BackgroundInfluence      float64
}

// Asset is a generated image. Providers either return a hosted URL or the
// raw bytes for the caller to persist; never both empty on success.
type Asset struct {
	URL    string
	Data   []byte
	Format string
}

// Generator is the contract implemented by all image providers.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Asset, error)
}
