package image

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"server/internal/domain"
)

// CGDreamOptions configures the CGDream provider.
type CGDreamOptions struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// CGDreamGenerator renders stills through the CGDream HTTP API, which hosts
// the result itself and returns a URL. Reference-image conditioning is
// forwarded when present.
type CGDreamGenerator struct {
	client *resty.Client
}

func NewCGDreamGenerator(opts CGDreamOptions) *CGDreamGenerator {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 90 * time.Second
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.cgdream.ai/v1"
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", "Bearer "+opts.APIKey).
		SetHeader("Content-Type", "application/json")
	return &CGDreamGenerator{client: client}
}

type cgdreamRequest struct {
	Prompt              string   `json:"prompt"`
	Style               string   `json:"style"`
	AspectRatio         string   `json:"aspect_ratio"`
	ReferenceCharacter  string   `json:"reference_character,omitempty"`
	ReferenceBackground string   `json:"reference_background,omitempty"`
	CharacterInfluence  *float64 `json:"character_influence,omitempty"`
	BackgroundInfluence *float64 `json:"background_influence,omitempty"`
}

type cgdreamResponse struct {
	URL    string `json:"url"`
	Format string `json:"format"`
	Error  string `json:"error"`
}

func (g *CGDreamGenerator) Generate(ctx context.Context, req Request) (*Asset, error) {
	body := cgdreamRequest{
		Prompt:              req.Description,
		Style:               req.Style,
		AspectRatio:         req.AspectRatio,
		ReferenceCharacter:  req.ReferenceCharacterImage,
		ReferenceBackground: req.ReferenceBackgroundImage,
	}
	if req.ReferenceCharacterImage != "" && req.CharacterInfluence > 0 {
		v := req.CharacterInfluence
		body.CharacterInfluence = &v
	}
	if req.ReferenceBackgroundImage != "" && req.BackgroundInfluence > 0 {
		v := req.BackgroundInfluence
		body.BackgroundInfluence = &v
	}

	var out cgdreamResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/images/generations")
	if err != nil {
		return nil, fmt.Errorf("%w: cgdream: %v", domain.ErrProviderFailure, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: cgdream returned status %d", domain.ErrProviderFailure, resp.StatusCode())
	}
	if out.URL == "" {
		return nil, fmt.Errorf("%w: cgdream response missing url", domain.ErrMalformedProviderResponse)
	}
	format := out.Format
	if format == "" {
		format = "image/png"
	}
	return &Asset{URL: out.URL, Format: format}, nil
}

var _ Generator = (*CGDreamGenerator)(nil)
