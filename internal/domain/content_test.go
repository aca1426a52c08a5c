package domain

import (
	"errors"
	"strings"
	"testing"
)

func testSettings(scenes int, animations bool) GenerationSettings {
	return GenerationSettings{
		NumberOfScenes:    scenes,
		TextModel:         "gemini-pro",
		ImageModel:        "gemini",
		AnimationModel:    "kling",
		ImageStyle:        "cinematic",
		AspectRatio:       "16:9",
		AnimationsEnabled: animations,
	}
}

func TestAppendScenesAssignsDenseNumbers(t *testing.T) {
	content := NewContent("owner-1", "a story about a lighthouse keeper", testSettings(3, false))
	templates := []SceneTemplate{
		{SceneNumber: 7, Text: "first", ImageDescription: "a lighthouse"},
		{SceneNumber: 7, Text: ""}, // malformed, must not occupy a slot
		{SceneNumber: 1, Text: "second", AnimationDescription: "slow pan"},
		{SceneNumber: 99, Text: "third"},
		{SceneNumber: 2, Text: "fourth"}, // beyond numberOfScenes
	}

	added, skipped := content.AppendScenes(templates)
	if added != 3 || skipped != 1 {
		t.Fatalf("AppendScenes() = (%d, %d), want (3, 1)", added, skipped)
	}
	if len(content.Scenes) != 3 {
		t.Fatalf("len(scenes) = %d, want 3", len(content.Scenes))
	}
	for i, scene := range content.Scenes {
		if scene.SceneNumber != i+1 {
			t.Errorf("scene[%d].SceneNumber = %d, want %d", i, scene.SceneNumber, i+1)
		}
		if scene.Status.Text != StageCompleted {
			t.Errorf("scene[%d] text status = %q, want completed", i, scene.Status.Text)
		}
		if scene.Status.Image != StagePending || scene.Status.Animation != StagePending {
			t.Errorf("scene[%d] image/animation must start pending", i)
		}
	}
	if content.Scenes[1].Text != "second" {
		t.Fatalf("scene 2 text = %q, malformed template consumed a slot", content.Scenes[1].Text)
	}
}

func TestDeriveOverallStatus(t *testing.T) {
	completed := SceneStatus{Text: StageCompleted, Image: StageCompleted, Animation: StageCompleted}
	disabledDone := SceneStatus{Text: StageCompleted, Image: StageCompleted, Animation: StageError}

	tests := []struct {
		name       string
		animations bool
		statuses   []SceneStatus
		want       OverallStatus
	}{
		{
			name:       "all stages completed with animations",
			animations: true,
			statuses:   []SceneStatus{completed, completed},
			want:       StatusCompleted,
		},
		{
			name:       "animations disabled does not demote success",
			animations: false,
			statuses:   []SceneStatus{disabledDone, disabledDone},
			want:       StatusCompleted,
		},
		{
			name:       "single image failure yields partial",
			animations: false,
			statuses: []SceneStatus{
				disabledDone,
				{Text: StageCompleted, Image: StageError, Animation: StageError},
			},
			want: StatusPartial,
		},
		{
			name:       "animation failure with animations enabled yields partial",
			animations: true,
			statuses: []SceneStatus{
				completed,
				{Text: StageCompleted, Image: StageCompleted, Animation: StageError},
			},
			want: StatusPartial,
		},
		{
			name:       "pending work stays processing",
			animations: true,
			statuses: []SceneStatus{
				{Text: StageCompleted, Image: StagePending, Animation: StagePending},
			},
			want: StatusProcessing,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			content := NewContent("o", "prompt long enough here", testSettings(len(tc.statuses), tc.animations))
			for i, status := range tc.statuses {
				content.Scenes = append(content.Scenes, Scene{SceneNumber: i + 1, Text: "t", Status: status})
			}
			if got := content.DeriveOverallStatus(); got != tc.want {
				t.Fatalf("DeriveOverallStatus() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestUpdateSceneMutatesSubStatusesIndependently(t *testing.T) {
	content := NewContent("o", "prompt long enough here", testSettings(1, true))
	content.AppendScenes([]SceneTemplate{{Text: "scene text", ImageDescription: "desc"}})

	ref := "https://cdn.example.com/img.png"
	completed := StageCompleted
	if _, err := content.UpdateScene(1, ScenePatch{
		ImageRef: &ref,
		Status:   &SceneStatusPatch{Image: &completed},
	}); err != nil {
		t.Fatalf("UpdateScene image: %v", err)
	}

	failed := StageError
	if _, err := content.UpdateScene(1, ScenePatch{Status: &SceneStatusPatch{Animation: &failed}}); err != nil {
		t.Fatalf("UpdateScene animation: %v", err)
	}

	scene := content.Scenes[0]
	if scene.Status.Image != StageCompleted || scene.Status.Text != StageCompleted {
		t.Fatalf("animation error must not change image/text: %+v", scene.Status)
	}
	if scene.ImageRef == nil || *scene.ImageRef != ref {
		t.Fatalf("imageRef not applied")
	}
}

func TestUpdateSceneRejectsUnknownSceneAndStatus(t *testing.T) {
	content := NewContent("o", "prompt long enough here", testSettings(1, true))
	content.AppendScenes([]SceneTemplate{{Text: "scene text"}})

	if _, err := content.UpdateScene(5, ScenePatch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown scene error = %v, want ErrNotFound", err)
	}

	bogus := StageStatus("done")
	_, err := content.UpdateScene(1, ScenePatch{Status: &SceneStatusPatch{Text: &bogus}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bogus status error = %v, want ErrInvalidInput", err)
	}
}

func TestValidatePromptBounds(t *testing.T) {
	if err := ValidatePrompt("too short"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("9-char prompt error = %v, want ErrInvalidInput", err)
	}
	if err := ValidatePrompt("   padded    "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("whitespace padding must not count toward the minimum")
	}
	if err := ValidatePrompt(strings.Repeat("a", 5001)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("over-long prompt must be rejected")
	}
	if err := ValidatePrompt("a story about a lighthouse"); err != nil {
		t.Fatalf("valid prompt rejected: %v", err)
	}
}

func TestSettingsValidate(t *testing.T) {
	valid := testSettings(3, true)
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid settings rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*GenerationSettings)
	}{
		{"zero scenes", func(s *GenerationSettings) { s.NumberOfScenes = 0 }},
		{"eleven scenes", func(s *GenerationSettings) { s.NumberOfScenes = 11 }},
		{"missing text model", func(s *GenerationSettings) { s.TextModel = "" }},
		{"unknown style", func(s *GenerationSettings) { s.ImageStyle = "vaporwave" }},
		{"unknown aspect ratio", func(s *GenerationSettings) { s.AspectRatio = "4:3" }},
		{"influence out of range", func(s *GenerationSettings) {
			v := 1.5
			s.CharacterInfluence = &v
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := valid
			tc.mutate(&s)
			if err := s.Validate(); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("Validate() = %v, want ErrInvalidInput", err)
			}
		})
	}
}
