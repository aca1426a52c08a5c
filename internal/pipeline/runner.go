package pipeline

import (
	"context"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers"
	"server/internal/providers/animation"
	"server/internal/providers/image"
	"server/internal/providers/text"
	"server/internal/storage"
)

const (
	defaultAnimationSeconds = 5
	defaultAnimationFPS     = 24

	failSaveTimeout = 10 * time.Second
)

// Runner drives one content record through the text, image and animation
// stages. A record is owned by exactly one running pipeline; stages and
// scenes are processed sequentially, and the record is persisted after every
// unit of work so polling readers see incremental progress.
type Runner struct {
	repo     domain.ContentRepository
	registry *providers.Registry
	store    *storage.FileStore
	logger   infra.Logger
}

func NewRunner(repo domain.ContentRepository, registry *providers.Registry, store *storage.FileStore, logger infra.Logger) *Runner {
	return &Runner{repo: repo, registry: registry, store: store, logger: logger}
}

// Start launches the pipeline detached from the caller. The creating request
// returns immediately; the record id is sufficient for all future
// interaction.
func (r *Runner) Start(content *domain.Content) {
	go r.process(context.Background(), content)
}

// process is the task's error boundary: any error or panic escaping the
// stages forces overallStatus=error and is logged, never re-raised. Partial
// progress persisted by earlier stages is retained.
func (r *Runner) process(ctx context.Context, content *domain.Content) {
	log := r.logger.With().Str("content_id", content.ID).Logger()
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("pipeline: panic recovered")
			r.fail(content)
		}
	}()

	if err := r.run(ctx, content, log); err != nil {
		log.Error().Err(err).Msg("pipeline: aborted")
		r.fail(content)
	}
}

func (r *Runner) run(ctx context.Context, content *domain.Content, log infra.Logger) error {
	log.Info().Int("scenes_requested", content.Settings.NumberOfScenes).Msg("pipeline: started")

	if err := r.textStage(ctx, content, log); err != nil {
		return err
	}
	if err := r.imageStage(ctx, content, log); err != nil {
		return err
	}
	if err := r.animationStage(ctx, content, log); err != nil {
		return err
	}

	content.SetOverallStatus(content.DeriveOverallStatus())
	if err := r.repo.Save(ctx, content); err != nil {
		return fmt.Errorf("persist final status: %w", err)
	}
	log.Info().Str("status", string(content.OverallStatus)).Int("scenes", len(content.Scenes)).Msg("pipeline: finished")
	return nil
}

// textStage is the only stage whose provider failure is fatal for the whole
// job: with no templates there is nothing to build scenes from.
func (r *Runner) textStage(ctx context.Context, content *domain.Content, log infra.Logger) error {
	gen, err := r.registry.Text(content.Settings.TextModel)
	if err != nil {
		return fmt.Errorf("text stage: %w", err)
	}
	templates, err := gen.GenerateScenes(ctx, text.Request{
		Prompt:     content.Prompt,
		SceneCount: content.Settings.NumberOfScenes,
		Model:      content.Settings.TextModel,
	})
	if err != nil {
		return fmt.Errorf("text stage: %w", err)
	}
	if len(templates) == 0 {
		return fmt.Errorf("text stage: %w: provider returned no scene templates", domain.ErrMalformedProviderResponse)
	}

	added, skipped := content.AppendScenes(templates)
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("pipeline: templates missing text were dropped")
	}
	log.Info().Int("scenes", added).Msg("pipeline: scene templates materialized")
	if err := r.repo.Save(ctx, content); err != nil {
		return fmt.Errorf("persist scenes: %w", err)
	}
	return nil
}

// imageStage walks scenes in ascending order. A single scene's failure marks
// that scene only; the stage never aborts the job. Only persistence errors
// propagate.
func (r *Runner) imageStage(ctx context.Context, content *domain.Content, log infra.Logger) error {
	gen, genErr := r.registry.Image(content.Settings.ImageModel)
	if genErr != nil {
		log.Error().Err(genErr).Msg("pipeline: image provider unavailable")
	}

	for i := range content.Scenes {
		scene := &content.Scenes[i]
		sceneLog := log.With().Int("scene", scene.SceneNumber).Logger()

		switch {
		case scene.ImageDescription == "":
			sceneLog.Warn().Msg("pipeline: scene has no image description")
			scene.Status.Image = domain.StageError
		case genErr != nil:
			scene.Status.Image = domain.StageError
		default:
			ref, err := r.generateImage(ctx, content, scene, gen)
			if err != nil {
				sceneLog.Warn().Err(err).Msg("pipeline: image generation failed")
				scene.Status.Image = domain.StageError
			} else {
				scene.ImageRef = &ref
				scene.Status.Image = domain.StageCompleted
			}
		}

		if err := r.persist(ctx, content); err != nil {
			return fmt.Errorf("persist scene %d image result: %w", scene.SceneNumber, err)
		}
	}
	return nil
}

func (r *Runner) generateImage(ctx context.Context, content *domain.Content, scene *domain.Scene, gen image.Generator) (string, error) {
	req := image.Request{
		Description: scene.ImageDescription,
		Model:       content.Settings.ImageModel,
		Style:       content.Settings.ImageStyle,
		AspectRatio: content.Settings.AspectRatio,
		RequestID:   content.ID,
		SceneNumber: scene.SceneNumber,
	}
	if content.Settings.ReferenceCharacterImage != nil {
		req.ReferenceCharacterImage = *content.Settings.ReferenceCharacterImage
	}
	if content.Settings.ReferenceBackgroundImage != nil {
		req.ReferenceBackgroundImage = *content.Settings.ReferenceBackgroundImage
	}
	if content.Settings.CharacterInfluence != nil {
		req.CharacterInfluence = *content.Settings.CharacterInfluence
	}
	if content.Settings.BackgroundInfluence != nil {
		req.BackgroundInfluence = *content.Settings.BackgroundInfluence
	}

	asset, err := gen.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return r.resolveImageRef(ctx, content.ID, scene.SceneNumber, asset)
}

// resolveImageRef turns a provider asset into a dereferenceable reference.
// Hosted assets pass through; raw bytes are persisted to storage first so the
// reference is only recorded once the content is fully written.
func (r *Runner) resolveImageRef(ctx context.Context, contentID string, sceneNumber int, asset *image.Asset) (string, error) {
	if asset == nil {
		return "", fmt.Errorf("%w: provider returned no asset", domain.ErrMalformedProviderResponse)
	}
	if asset.URL != "" {
		return asset.URL, nil
	}
	if len(asset.Data) == 0 {
		return "", fmt.Errorf("%w: provider returned empty asset", domain.ErrMalformedProviderResponse)
	}
	key := fmt.Sprintf("generated/images/%s/scene-%02d%s", contentID, sceneNumber, storage.ExtensionForMIME(asset.Format))
	url, err := r.store.Write(ctx, key, asset.Data)
	if err != nil {
		return "", fmt.Errorf("persist image asset: %w", err)
	}
	return url, nil
}

// animationStage only runs provider calls when the job enables animations
// and the scene's image completed. Everything else is forced to error:
// "disabled" is deliberately recorded the same way as a failure, which
// existing clients rely on.
func (r *Runner) animationStage(ctx context.Context, content *domain.Content, log infra.Logger) error {
	if !content.Settings.AnimationsEnabled {
		for i := range content.Scenes {
			content.Scenes[i].Status.Animation = domain.StageError
		}
		log.Info().Msg("pipeline: animations disabled by settings")
		return r.persist(ctx, content)
	}

	gen, genErr := r.registry.Animation(content.Settings.AnimationModel)
	if genErr != nil {
		log.Error().Err(genErr).Msg("pipeline: animation provider unavailable")
	}

	for i := range content.Scenes {
		scene := &content.Scenes[i]
		sceneLog := log.With().Int("scene", scene.SceneNumber).Logger()

		eligible := scene.Status.Image == domain.StageCompleted &&
			scene.ImageRef != nil &&
			scene.AnimationDescription != ""
		if !eligible || genErr != nil {
			scene.Status.Animation = domain.StageError
			if err := r.persist(ctx, content); err != nil {
				return fmt.Errorf("persist scene %d animation result: %w", scene.SceneNumber, err)
			}
			continue
		}

		asset, err := gen.Generate(ctx, animation.Request{
			ImageRef:        *scene.ImageRef,
			Description:     scene.AnimationDescription,
			Model:           content.Settings.AnimationModel,
			DurationSeconds: defaultAnimationSeconds,
			FPS:             defaultAnimationFPS,
			RequestID:       content.ID,
			SceneNumber:     scene.SceneNumber,
		})
		if err != nil {
			sceneLog.Warn().Err(err).Msg("pipeline: animation generation failed")
			scene.Status.Animation = domain.StageError
		} else {
			url := asset.URL
			scene.AnimationRef = &url
			scene.Status.Animation = domain.StageCompleted
		}

		if err := r.persist(ctx, content); err != nil {
			return fmt.Errorf("persist scene %d animation result: %w", scene.SceneNumber, err)
		}
	}
	return nil
}

func (r *Runner) persist(ctx context.Context, content *domain.Content) error {
	content.Touch()
	return r.repo.Save(ctx, content)
}

// fail forces the record into the error terminal state. It uses a fresh
// context so a canceled pipeline context cannot block the final write.
func (r *Runner) fail(content *domain.Content) {
	content.SetOverallStatus(domain.StatusError)
	ctx, cancel := context.WithTimeout(context.Background(), failSaveTimeout)
	defer cancel()
	if err := r.repo.Save(ctx, content); err != nil {
		r.logger.Error().Err(err).Str("content_id", content.ID).Msg("pipeline: failed to persist error status")
	}
}
