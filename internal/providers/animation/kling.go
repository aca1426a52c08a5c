package animation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"server/internal/domain"
)

// KlingOptions configures the Kling provider.
type KlingOptions struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// KlingGenerator animates a still through the Kling image-to-video API.
type KlingGenerator struct {
	client *resty.Client
}

func NewKlingGenerator(opts KlingOptions) *KlingGenerator {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 3 * time.Minute
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.klingai.com/v1"
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", "Bearer "+opts.APIKey).
		SetHeader("Content-Type", "application/json")
	return &KlingGenerator{client: client}
}

type klingRequest struct {
	ImageURL string `json:"image_url"`
	Prompt   string `json:"prompt"`
	Duration int    `json:"duration,omitempty"`
	FPS      int    `json:"fps,omitempty"`
}

type klingResponse struct {
	VideoURL string `json:"video_url"`
	Duration int    `json:"duration"`
}

func (g *KlingGenerator) Generate(ctx context.Context, req Request) (*Asset, error) {
	var out klingResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(klingRequest{
			ImageURL: req.ImageRef,
			Prompt:   req.Description,
			Duration: req.DurationSeconds,
			FPS:      req.FPS,
		}).
		SetResult(&out).
		Post("/videos/image2video")
	if err != nil {
		return nil, fmt.Errorf("%w: kling: %v", domain.ErrProviderFailure, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: kling returned status %d", domain.ErrProviderFailure, resp.StatusCode())
	}
	if out.VideoURL == "" {
		return nil, fmt.Errorf("%w: kling response missing video url", domain.ErrMalformedProviderResponse)
	}
	return &Asset{URL: out.VideoURL, Format: "video/mp4", Length: out.Duration}, nil
}

var _ Generator = (*KlingGenerator)(nil)
