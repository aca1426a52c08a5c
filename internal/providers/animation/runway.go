package animation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"server/internal/domain"
)

// RunwayOptions configures the Runway provider.
type RunwayOptions struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// RunwayGenerator animates a still through the Runway image-to-video API.
type RunwayGenerator struct {
	client *resty.Client
}

func NewRunwayGenerator(opts RunwayOptions) *RunwayGenerator {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 3 * time.Minute
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.runwayml.com/v1"
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", "Bearer "+opts.APIKey).
		SetHeader("Content-Type", "application/json")
	return &RunwayGenerator{client: client}
}

type runwayRequest struct {
	PromptImage string `json:"promptImage"`
	PromptText  string `json:"promptText"`
	Duration    int    `json:"duration,omitempty"`
}

type runwayResponse struct {
	Output   []string `json:"output"`
	Duration int      `json:"duration"`
}

func (g *RunwayGenerator) Generate(ctx context.Context, req Request) (*Asset, error) {
	var out runwayResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(runwayRequest{
			PromptImage: req.ImageRef,
			PromptText:  req.Description,
			Duration:    req.DurationSeconds,
		}).
		SetResult(&out).
		Post("/image_to_video")
	if err != nil {
		return nil, fmt.Errorf("%w: runway: %v", domain.ErrProviderFailure, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: runway returned status %d", domain.ErrProviderFailure, resp.StatusCode())
	}
	if len(out.Output) == 0 || out.Output[0] == "" {
		return nil, fmt.Errorf("%w: runway response missing output", domain.ErrMalformedProviderResponse)
	}
	return &Asset{URL: out.Output[0], Format: "video/mp4", Length: out.Duration}, nil
}

var _ Generator = (*RunwayGenerator)(nil)
