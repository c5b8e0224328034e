package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/bianoble/course-sync/internal/api"
	"github.com/bianoble/course-sync/internal/fileset"
	"github.com/bianoble/course-sync/internal/lessonconfig"
)

// handleLesson publishes one lesson end to end: record upsert, config and
// video upload, desired-file-set construction, and the container sync. It
// returns only after the sync session resolved.
func (w *Walker) handleLesson(ctx context.Context, state *RunState, node map[string]any, dir string) (string, error) {
	friendly, err := requiredString(node, "id")
	if err != nil {
		return "", err
	}
	name, err := requiredString(node, "name")
	if err != nil {
		return "", err
	}
	unitName, err := nullableString(node, "unit")
	if err != nil {
		return "", err
	}
	spec, err := nullableString(node, "spec")
	if err != nil {
		return "", err
	}
	extends, err := nullableString(node, "extends")
	if err != nil {
		return "", err
	}
	class, err := lessonClass(node)
	if err != nil {
		return "", err
	}

	templateDir := ""
	if extends != "" {
		if state.TemplateDir == "" {
			return "", &TemplateNotConfiguredError{Lesson: friendly}
		}
		templateDir = filepath.Join(state.TemplateDir, extends)
	}

	lessonID, err := state.IDs.Resolve(ctx, friendly)
	if err != nil {
		return "", err
	}
	unitID, err := state.IDs.Resolve(ctx, unitName)
	if err != nil {
		return "", err
	}

	project, err := w.resolveProject(ctx, state, lessonID)
	if err != nil {
		return "", err
	}
	if project == "" {
		return "", &ProjectResolutionError{Lesson: friendly}
	}

	newID, err := state.Platform.UpsertLesson(ctx, api.LessonUpsert{
		ID:           lessonID,
		FriendlyName: friendly,
		Name:         name,
		Unit:         unitID,
		Project:      project,
		Spec:         spec,
		LessonClass:  class,
	})
	if err != nil {
		return "", err
	}
	if newID == "" {
		return "", &LessonResolutionError{Lesson: friendly}
	}

	if err := w.uploadConfig(ctx, state, newID, dir, templateDir); err != nil {
		return "", err
	}
	if err := w.uploadVideo(ctx, state, newID, dir, templateDir); err != nil {
		return "", err
	}

	files, err := fileset.Build(templateDir, dir)
	if err != nil {
		return "", err
	}
	if err := fileset.ExpandReadmes(files, state.Assets, w.CDNBaseURL); err != nil {
		return "", err
	}

	token, err := state.Platform.ProjectToken(ctx, project)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", &TokenError{Project: project}
	}

	if err := state.Sync.Run(ctx, token, files); err != nil {
		return "", err
	}

	w.Stats.Lessons++
	w.log.Info().Str("lesson", friendly).Str("id", newID).Int("files", len(files)).Msg("published lesson")
	return newID, nil
}

// resolveProject reuses the existing lesson record's project when there is
// one, otherwise provisions a fresh project.
func (w *Walker) resolveProject(ctx context.Context, state *RunState, lessonID string) (string, error) {
	if lessonID != "" {
		project, err := state.Platform.LessonProject(ctx, lessonID)
		if err != nil {
			return "", err
		}
		if project != "" {
			return project, nil
		}
	}
	return state.Platform.CreateProject(ctx)
}

// uploadConfig merges the three config tiers (lesson over template over the
// branch's inherited configTemplate) and uploads the result when non-empty.
func (w *Walker) uploadConfig(ctx context.Context, state *RunState, lessonID, dir, templateDir string) error {
	lessonCfg, err := lessonconfig.LoadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		return err
	}

	var templateCfg map[string]any
	if templateDir != "" {
		templateCfg, err = lessonconfig.LoadFile(filepath.Join(templateDir, "config.json"))
		if err != nil {
			return err
		}
	}

	merged := lessonconfig.Merge(state.ConfigTemplate, templateCfg, lessonCfg)
	if len(merged) == 0 {
		return nil
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encoding merged config: %w", err)
	}
	return state.Platform.UploadConfig(ctx, lessonID, data)
}

// uploadVideo prefers the lesson's own video.cv, falling back to the
// template's. No video anywhere is not an error.
func (w *Walker) uploadVideo(ctx context.Context, state *RunState, lessonID, dir, templateDir string) error {
	video, err := os.ReadFile(filepath.Join(dir, "video.cv"))
	if os.IsNotExist(err) && templateDir != "" {
		video, err = os.ReadFile(filepath.Join(templateDir, "video.cv"))
	}
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading video: %w", err)
	}
	return state.Platform.UploadVideo(ctx, lessonID, video)
}
