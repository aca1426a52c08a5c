package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"server/internal/domain"
)

const geminiDefaultTimeout = 60 * time.Second

// GeminiOptions configures the Gemini image provider.
type GeminiOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiGenerator renders stills through Gemini image-capable models and
// returns the inline bytes for the caller to persist.
type GeminiGenerator struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGeminiGenerator(opts GeminiOptions) (*GeminiGenerator, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	return &GeminiGenerator{apiKey: opts.APIKey, baseURL: baseURL, client: client}, nil
}

type geminiImageRequest struct {
	Contents         []geminiImageContent `json:"contents"`
	GenerationConfig map[string]any       `json:"generationConfig,omitempty"`
}

type geminiImageContent struct {
	Role  string            `json:"role"`
	Parts []geminiImagePart `json:"parts"`
}

type geminiImagePart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiImageResponse struct {
	Candidates []struct {
		Content geminiImageContent `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (*Asset, error) {
	prompt := fmt.Sprintf("Generate a single %s style image, aspect ratio %s. %s", req.Style, req.AspectRatio, req.Description)
	payload := geminiImageRequest{
		Contents: []geminiImageContent{{
			Role:  "user",
			Parts: []geminiImagePart{{Text: prompt}},
		}},
		GenerationConfig: map[string]any{"responseModalities": []string{"IMAGE"}},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrProviderFailure, err)
	}

	// Model ids may contain a "models/" prefix already.
	model := strings.TrimPrefix(req.Model, "models/")
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrProviderFailure, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: gemini returned status %d", domain.ErrProviderFailure, resp.StatusCode)
	}

	var out geminiImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrMalformedProviderResponse, err)
	}
	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: inline data: %v", domain.ErrMalformedProviderResponse, err)
			}
			format := part.InlineData.MimeType
			if format == "" {
				format = "image/png"
			}
			return &Asset{Data: data, Format: format}, nil
		}
	}
	return nil, fmt.Errorf("%w: response carried no image data", domain.ErrMalformedProviderResponse)
}

var _ Generator = (*GeminiGenerator)(nil)
