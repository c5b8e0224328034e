// Package manifest walks a tree of content manifests and publishes the
// units and lessons they describe, handing each lesson's computed file set
// to the container sync protocol.
package manifest

import (
	"context"

	"github.com/bianoble/course-sync/internal/api"
	"github.com/bianoble/course-sync/internal/assets"
	"github.com/bianoble/course-sync/internal/resolve"
)

// Platform is the slice of the REST API the walker publishes through.
// *api.Client satisfies it.
type Platform interface {
	LessonProject(ctx context.Context, lessonID string) (string, error)
	CreateProject(ctx context.Context) (string, error)
	UpsertLesson(ctx context.Context, lesson api.LessonUpsert) (string, error)
	UpsertUnit(ctx context.Context, unit api.UnitUpsert) (string, error)
	UploadConfig(ctx context.Context, lessonID string, config []byte) error
	UploadVideo(ctx context.Context, lessonID string, video []byte) error
	ProjectToken(ctx context.Context, projectID string) (string, error)
}

// Syncer converges a container against a desired file set.
// protocol.Session satisfies it.
type Syncer interface {
	Run(ctx context.Context, token string, desired map[string]string) error
}

// RunState is the per-branch walker state. It is forked at every manifest
// recursion boundary: the resolver memo is copied so sibling branches do
// not observe each other's lookups, while the platform client (and its
// request counter), the asset table, and the sync runner are shared by
// every branch on purpose.
type RunState struct {
	Platform Platform
	IDs      *resolve.Resolver
	Assets   *assets.Table
	Sync     Syncer

	// TemplateDir is the active template root for this branch, set by a
	// `templates` declaration and inherited by descendants.
	TemplateDir string

	// ConfigTemplate is the branch's inherited global config tier. It is
	// replaced wholesale by a `configTemplate` declaration, never mutated,
	// so forked copies can safely share the map.
	ConfigTemplate map[string]any
}

// Fork returns this branch's state for a child branch.
func (s *RunState) Fork() *RunState {
	child := *s
	child.IDs = s.IDs.Fork()
	return &child
}
