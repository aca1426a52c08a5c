package text

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"server/internal/domain"
)

const geminiDefaultTimeout = 30 * time.Second

// GeminiOptions configures the Gemini text provider.
type GeminiOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiGenerator produces scene templates through the Gemini
// generateContent API, requesting a strict JSON array response.
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

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// GenerateScenes asks the model for exactly req.SceneCount templates and
// parses the structured list. Output that cannot be parsed into the expected
// structure fails with domain.ErrMalformedProviderResponse rather than being
// guessed at.
func (g *GeminiGenerator) GenerateScenes(ctx context.Context, req Request) ([]domain.SceneTemplate, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildScenePrompt(req)}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      0.7,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrProviderFailure, err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(req.Model))
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

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrMalformedProviderResponse, err)
	}
	text := extractText(out)
	if text == "" {
		return nil, fmt.Errorf("%w: empty candidate text", domain.ErrMalformedProviderResponse)
	}
	templates, err := parseSceneTemplates(text)
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func buildScenePrompt(req Request) string {
	locale := req.Locale
	if locale == "" {
		locale = "en"
	}
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "You are a storyboard writer. Split the following request into exactly %d scenes. ", req.SceneCount)
	sb.WriteString("Respond strictly with a JSON array matching this schema: ")
	sb.WriteString(`[{"sceneNumber":number,"text":string,"imageDescription":string,"animationDescription":string}]`)
	fmt.Fprintf(sb, ". Write text in locale '%s'. Each imageDescription must describe a single still frame and each animationDescription a short camera or subject motion. Request: %s", locale, req.Prompt)
	return sb.String()
}

func extractText(resp geminiResponse) string {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

func parseSceneTemplates(raw string) ([]domain.SceneTemplate, error) {
	fragment := extractJSONFragment(raw)
	if fragment == "" {
		return nil, fmt.Errorf("%w: no JSON payload in response", domain.ErrMalformedProviderResponse)
	}
	var templates []domain.SceneTemplate
	if err := json.Unmarshal([]byte(fragment), &templates); err != nil {
		// Some models wrap the list in an object.
		var wrapped struct {
			Scenes []domain.SceneTemplate `json:"scenes"`
		}
		if err2 := json.Unmarshal([]byte(fragment), &wrapped); err2 != nil || len(wrapped.Scenes) == 0 {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedProviderResponse, err)
		}
		templates = wrapped.Scenes
	}
	return templates, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

var _ Generator = (*GeminiGenerator)(nil)
