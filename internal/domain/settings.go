package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	PromptMinLen = 10
	PromptMaxLen = 5000
	MinScenes    = 1
	MaxScenes    = 10
)

// ImageStyles lists the accepted image style tags.
var ImageStyles = []string{
	"realistic", "photographic", "cinematic", "artistic", "oil-painting",
	"watercolor", "cartoon", "anime", "pixel-art", "abstract",
}

// AspectRatios lists the accepted aspect ratio tags.
var AspectRatios = []string{"16:9", "1:1", "9:16"}

// GenerationSettings is the immutable snapshot taken when a record is
// created. Later catalog changes never affect an in-flight job.
type GenerationSettings struct {
	NumberOfScenes           int      `json:"numberOfScenes"`
	TextModel                string   `json:"textModel"`
	ImageModel               string   `json:"imageModel"`
	AnimationModel           string   `json:"animationModel"`
	ImageStyle               string   `json:"imageStyle"`
	AspectRatio              string   `json:"aspectRatio"`
	AnimationsEnabled        bool     `json:"animationsEnabled"`
	SoundEnabled             bool     `json:"soundEnabled"`
	ReferenceCharacterImage  *string  `json:"referenceCharacterImage,omitempty"`
	ReferenceBackgroundImage *string  `json:"referenceBackgroundImage,omitempty"`
	CharacterInfluence       *float64 `json:"characterInfluence,omitempty"`
	BackgroundInfluence      *float64 `json:"backgroundInfluence,omitempty"`
}

// ValidatePrompt enforces the prompt length bounds on the trimmed input.
func ValidatePrompt(prompt string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(prompt))
	if n < PromptMinLen {
		return fmt.Errorf("%w: prompt must be at least %d characters", ErrInvalidInput, PromptMinLen)
	}
	if n > PromptMaxLen {
		return fmt.Errorf("%w: prompt must not exceed %d characters", ErrInvalidInput, PromptMaxLen)
	}
	return nil
}

// Validate checks the settings snapshot against the known catalogs. Model
// identifiers are validated separately against the provider registry.
func (s GenerationSettings) Validate() error {
	if s.NumberOfScenes < MinScenes || s.NumberOfScenes > MaxScenes {
		return fmt.Errorf("%w: numberOfScenes must be between %d and %d", ErrInvalidInput, MinScenes, MaxScenes)
	}
	if s.TextModel == "" {
		return fmt.Errorf("%w: textModel is required", ErrInvalidInput)
	}
	if s.ImageModel == "" {
		return fmt.Errorf("%w: imageModel is required", ErrInvalidInput)
	}
	if s.AnimationModel == "" {
		return fmt.Errorf("%w: animationModel is required", ErrInvalidInput)
	}
	if !contains(ImageStyles, s.ImageStyle) {
		return fmt.Errorf("%w: unknown image style %q", ErrInvalidInput, s.ImageStyle)
	}
	if !contains(AspectRatios, s.AspectRatio) {
		return fmt.Errorf("%w: unknown aspect ratio %q", ErrInvalidInput, s.AspectRatio)
	}
	for _, inf := range []*float64{s.CharacterInfluence, s.BackgroundInfluence} {
		if inf != nil && (*inf < 0 || *inf > 1) {
			return fmt.Errorf("%w: influence must be within [0,1]", ErrInvalidInput)
		}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
