package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StageStatus tracks one pipeline stage for a single scene.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageCompleted StageStatus = "completed"
	StageError     StageStatus = "error"
)

// OverallStatus enumerates the aggregate lifecycle states of a content record.
type OverallStatus string

const (
	StatusProcessing OverallStatus = "processing"
	StatusCompleted  OverallStatus = "completed"
	StatusPartial    OverallStatus = "partial"
	StatusError      OverallStatus = "error"
)

// Terminal reports whether no further pipeline mutation can occur.
func (s OverallStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusError
}

// SceneStatus holds the three independent sub-statuses of a scene. They are
// never derived from one another; a scene can carry text=completed,
// image=error and animation=pending at the same time.
type SceneStatus struct {
	Text      StageStatus `json:"text"`
	Image     StageStatus `json:"image"`
	Animation StageStatus `json:"animation"`
}

// Scene is one narrative+visual unit within a content record. Scenes have no
// identity outside their parent record.
type Scene struct {
	SceneNumber          int         `json:"sceneNumber"`
	Text                 string      `json:"text"`
	ImageDescription     string      `json:"imageDescription"`
	AnimationDescription string      `json:"animationDescription"`
	ImageRef             *string     `json:"imageRef"`
	AnimationRef         *string     `json:"animationRef"`
	Status               SceneStatus `json:"status"`
}

// SceneTemplate is the structured unit the text stage must produce, one per
// requested scene. The scene number reported by the provider is never
// trusted; final numbering is always derived from position.
type SceneTemplate struct {
	SceneNumber          int    `json:"sceneNumber"`
	Text                 string `json:"text"`
	ImageDescription     string `json:"imageDescription"`
	AnimationDescription string `json:"animationDescription"`
}

// Content is the aggregate, pollable record of one generation request.
type Content struct {
	ID            string             `json:"id"`
	OwnerID       string             `json:"ownerId"`
	Prompt        string             `json:"prompt"`
	Settings      GenerationSettings `json:"settings"`
	Scenes        []Scene            `json:"scenes"`
	OverallStatus OverallStatus      `json:"overallStatus"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// NewContent creates a record in processing state with an empty scene list.
func NewContent(ownerID, prompt string, settings GenerationSettings) *Content {
	now := time.Now().UTC()
	return &Content{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		Prompt:        prompt,
		Settings:      settings,
		Scenes:        []Scene{},
		OverallStatus: StatusProcessing,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AppendScenes materializes scenes from templates, at most
// Settings.NumberOfScenes of them. Scene numbers are assigned by position so
// the persisted list is always dense 1..k. Templates without text do not
// occupy a slot; the caller is expected to log them. Returns the number of
// scenes added and the number of templates skipped.
func (c *Content) AppendScenes(templates []SceneTemplate) (added, skipped int) {
	for _, tpl := range templates {
		if len(c.Scenes) >= c.Settings.NumberOfScenes {
			break
		}
		if tpl.Text == "" {
			skipped++
			continue
		}
		c.Scenes = append(c.Scenes, Scene{
			SceneNumber:          len(c.Scenes) + 1,
			Text:                 tpl.Text,
			ImageDescription:     tpl.ImageDescription,
			AnimationDescription: tpl.AnimationDescription,
			Status: SceneStatus{
				Text:      StageCompleted,
				Image:     StagePending,
				Animation: StagePending,
			},
		})
		added++
	}
	c.touch()
	return added, skipped
}

// Scene returns a pointer into the scene list for the given 1-based number.
func (c *Content) Scene(sceneNumber int) (*Scene, bool) {
	for i := range c.Scenes {
		if c.Scenes[i].SceneNumber == sceneNumber {
			return &c.Scenes[i], true
		}
	}
	return nil, false
}

// SceneStatusPatch selectively overrides sub-statuses.
type SceneStatusPatch struct {
	Text      *StageStatus `json:"text"`
	Image     *StageStatus `json:"image"`
	Animation *StageStatus `json:"animation"`
}

// ScenePatch is the whitelist of fields a scene update may touch. Anything
// else sent by a caller is dropped during decoding.
type ScenePatch struct {
	Text                 *string           `json:"text"`
	ImageDescription     *string           `json:"imageDescription"`
	AnimationDescription *string           `json:"animationDescription"`
	ImageRef             *string           `json:"imageRef"`
	AnimationRef         *string           `json:"animationRef"`
	Status               *SceneStatusPatch `json:"status"`
}

// Validate rejects sub-status values outside the known set.
func (p ScenePatch) Validate() error {
	if p.Status == nil {
		return nil
	}
	for _, s := range []*StageStatus{p.Status.Text, p.Status.Image, p.Status.Animation} {
		if s == nil {
			continue
		}
		switch *s {
		case StagePending, StageCompleted, StageError:
		default:
			return fmt.Errorf("%w: unknown stage status %q", ErrInvalidInput, *s)
		}
	}
	return nil
}

// UpdateScene merges the patch into the identified scene. Only whitelisted
// fields are mutable and each sub-status is applied independently.
func (c *Content) UpdateScene(sceneNumber int, patch ScenePatch) (*Scene, error) {
	scene, ok := c.Scene(sceneNumber)
	if !ok {
		return nil, fmt.Errorf("scene %d: %w", sceneNumber, ErrNotFound)
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.Text != nil {
		scene.Text = *patch.Text
	}
	if patch.ImageDescription != nil {
		scene.ImageDescription = *patch.ImageDescription
	}
	if patch.AnimationDescription != nil {
		scene.AnimationDescription = *patch.AnimationDescription
	}
	if patch.ImageRef != nil {
		scene.ImageRef = patch.ImageRef
	}
	if patch.AnimationRef != nil {
		scene.AnimationRef = patch.AnimationRef
	}
	if patch.Status != nil {
		if patch.Status.Text != nil {
			scene.Status.Text = *patch.Status.Text
		}
		if patch.Status.Image != nil {
			scene.Status.Image = *patch.Status.Image
		}
		if patch.Status.Animation != nil {
			scene.Status.Animation = *patch.Status.Animation
		}
	}
	c.touch()
	return scene, nil
}

// DeriveOverallStatus computes the aggregate status as a pure function of the
// scene list. When animations are disabled their sub-status is recorded as
// error by policy, so it is ignored in the completed check; it would otherwise
// make a fully successful run look partial.
func (c *Content) DeriveOverallStatus() OverallStatus {
	allCompleted := true
	hasError := false
	for _, scene := range c.Scenes {
		if scene.Status.Text != StageCompleted || scene.Status.Image != StageCompleted {
			allCompleted = false
		}
		if c.Settings.AnimationsEnabled && scene.Status.Animation != StageCompleted {
			allCompleted = false
		}
		if scene.Status.Text == StageError || scene.Status.Image == StageError || scene.Status.Animation == StageError {
			hasError = true
		}
	}
	switch {
	case allCompleted:
		return StatusCompleted
	case hasError:
		return StatusPartial
	default:
		return StatusProcessing
	}
}

// SetOverallStatus records the aggregate status and refreshes updatedAt.
func (c *Content) SetOverallStatus(status OverallStatus) {
	c.OverallStatus = status
	c.touch()
}

// Touch refreshes updatedAt; callers mutating scene fields in place must
// call it before persisting.
func (c *Content) Touch() {
	c.touch()
}

func (c *Content) touch() {
	c.UpdatedAt = time.Now().UTC()
}
