package manifest

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/bianoble/course-sync/internal/logging"
)

// Stats counts what a walk published.
type Stats struct {
	Manifests int
	Units     int
	Lessons   int
}

// Walker drives a depth-first traversal over a manifest tree. Traversal is
// strictly sequential: the shared request counter and inherited config
// must observe platform calls in program order.
type Walker struct {
	// CDNBaseURL is the origin README image references resolve against.
	CDNBaseURL string

	// Stats accumulates across one walk.
	Stats Stats

	log zerolog.Logger
}

// NewWalker creates a Walker rendering image references against the given
// CDN origin.
func NewWalker(cdnBaseURL string) *Walker {
	return &Walker{CDNBaseURL: cdnBaseURL, log: logging.With("manifest")}
}

// Process publishes the manifest at path and, depth-first, everything it
// references. parent is the referring manifest ("" at the root). Any error
// is annotated with the failing manifest's path before propagating.
func (w *Walker) Process(ctx context.Context, state *RunState, parent, path string) error {
	if err := w.process(ctx, state, path); err != nil {
		var annotated *Error
		if errors.As(err, &annotated) {
			return err
		}
		return &Error{Path: path, Parent: parent, Err: err}
	}
	return nil
}

func (w *Walker) process(ctx context.Context, state *RunState, path string) error {
	node, err := parseNode(path)
	if err != nil {
		return err
	}
	w.Stats.Manifests++
	dir := filepath.Dir(path)

	// A `templates` declaration re-roots this branch's template directory
	// for every descendant reached from here.
	if _, ok := node["templates"]; ok {
		tpl, err := requiredString(node, "templates")
		if err != nil {
			return err
		}
		state.TemplateDir = filepath.Join(dir, tpl)
	}

	// A `configTemplate` declaration becomes the branch's global config tier.
	if cfgTpl, ok, err := optionalObject(node, "configTemplate"); err != nil {
		return err
	} else if ok {
		state.ConfigTemplate = cfgTpl
	}

	// Fan out into referenced manifests before this node's own handling,
	// each on a forked state so siblings do not cross-pollute.
	if rawUpload, ok := node["upload"]; ok {
		uploads, err := stringList(rawUpload, "upload")
		if err != nil {
			return err
		}
		for _, entry := range uploads {
			child := filepath.Join(dir, entry, "manifest.json")
			if err := w.Process(ctx, state.Fork(), path, child); err != nil {
				return err
			}
		}
	}

	nodeType, ok, err := optionalString(node, "type")
	if err != nil {
		return err
	}
	if !ok {
		return nil // fan-out-only node
	}

	switch nodeType {
	case "unit":
		_, err := w.handleUnit(ctx, state.Fork(), node)
		return err
	case "lesson":
		_, err := w.handleLesson(ctx, state, node, dir)
		return err
	default:
		return &FieldError{Field: "type", Reason: "must be \"unit\" or \"lesson\""}
	}
}
