package text

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"server/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func geminiBody(text string) string {
	quoted := strings.ReplaceAll(text, `"`, `\"`)
	quoted = strings.ReplaceAll(quoted, "\n", `\n`)
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":"%s"}]}}]}`, quoted)
}

func newTestGenerator(t *testing.T, rt roundTripFunc) *GeminiGenerator {
	t.Helper()
	gen, err := NewGeminiGenerator(GeminiOptions{
		APIKey:     "dummy",
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("NewGeminiGenerator: %v", err)
	}
	return gen
}

func TestGenerateScenesParsesFencedArray(t *testing.T) {
	payload := "```json\n[{\"sceneNumber\":1,\"text\":\"opening\",\"imageDescription\":\"a harbor\",\"animationDescription\":\"slow pan\"},{\"sceneNumber\":2,\"text\":\"closing\",\"imageDescription\":\"sunset\",\"animationDescription\":\"fade\"}]\n```"
	gen := newTestGenerator(t, func(r *http.Request) (*http.Response, error) {
		if got := r.Header.Get("x-goog-api-key"); got != "dummy" {
			t.Errorf("api key header = %q", got)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(geminiBody(payload))),
		}, nil
	})

	templates, err := gen.GenerateScenes(context.Background(), Request{
		Prompt:     "a story about the sea",
		SceneCount: 2,
		Model:      "gemini-pro",
	})
	if err != nil {
		t.Fatalf("GenerateScenes: %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("len(templates) = %d, want 2", len(templates))
	}
	if templates[0].Text != "opening" || templates[1].ImageDescription != "sunset" {
		t.Fatalf("unexpected templates: %+v", templates)
	}
}

func TestGenerateScenesParsesWrappedObject(t *testing.T) {
	payload := `{"scenes":[{"sceneNumber":1,"text":"only scene","imageDescription":"d","animationDescription":"a"}]}`
	gen := newTestGenerator(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(geminiBody(payload))),
		}, nil
	})

	templates, err := gen.GenerateScenes(context.Background(), Request{Prompt: "p", SceneCount: 1, Model: "gemini-pro"})
	if err != nil {
		t.Fatalf("GenerateScenes: %v", err)
	}
	if len(templates) != 1 || templates[0].Text != "only scene" {
		t.Fatalf("unexpected templates: %+v", templates)
	}
}

func TestGenerateScenesMalformedPayload(t *testing.T) {
	gen := newTestGenerator(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(geminiBody("here are your scenes, enjoy"))),
		}, nil
	})

	_, err := gen.GenerateScenes(context.Background(), Request{Prompt: "p", SceneCount: 3, Model: "gemini-pro"})
	if !errors.Is(err, domain.ErrMalformedProviderResponse) {
		t.Fatalf("err = %v, want ErrMalformedProviderResponse", err)
	}
}

func TestGenerateScenesHTTPFailure(t *testing.T) {
	tests := []struct {
		name string
		rt   roundTripFunc
	}{
		{
			name: "transport error",
			rt: func(r *http.Request) (*http.Response, error) {
				return nil, errors.New("boom")
			},
		},
		{
			name: "server error status",
			rt: func(r *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusInternalServerError, Body: io.NopCloser(strings.NewReader("{}"))}, nil
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := newTestGenerator(t, tc.rt)
			_, err := gen.GenerateScenes(context.Background(), Request{Prompt: "p", SceneCount: 1, Model: "gemini-pro"})
			if !errors.Is(err, domain.ErrProviderFailure) {
				t.Fatalf("err = %v, want ErrProviderFailure", err)
			}
		})
	}
}
