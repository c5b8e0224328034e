package manifest

import (
	"context"
	"fmt"
	"sort"

	"github.com/bianoble/course-sync/internal/api"
)

// handleUnit validates a unit node, resolves its lesson graph, and upserts
// the unit record. Every lesson the graph references must already have a
// platform identity; a unit cannot forward-declare lessons.
func (w *Walker) handleUnit(ctx context.Context, state *RunState, node map[string]any) (string, error) {
	friendly, err := requiredString(node, "id")
	if err != nil {
		return "", err
	}
	name, err := requiredString(node, "name")
	if err != nil {
		return "", err
	}
	lessons, ok, err := optionalObject(node, "lessons")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &FieldError{Field: "lessons", Reason: "is required"}
	}

	unitID, err := state.IDs.Resolve(ctx, friendly)
	if err != nil {
		return "", err
	}

	// Stable iteration so lookups hit the platform in a reproducible order.
	keys := make([]string, 0, len(lessons))
	for k := range lessons {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := make(map[string]api.UnitEdge, len(lessons))
	for _, key := range keys {
		lessonID, err := state.IDs.ResolveRequired(ctx, key)
		if err != nil {
			return "", fmt.Errorf("lesson %q: %w", key, err)
		}

		entry, ok := lessons[key].(map[string]any)
		if !ok {
			return "", &FieldError{Field: "lessons." + key, Reason: "must be an object"}
		}

		edge := api.UnitEdge{Next: []string{}, Previous: []string{}}

		nextNames, err := stringList(entry["next"], "lessons."+key+".next")
		if err != nil {
			return "", err
		}
		for _, n := range nextNames {
			id, err := state.IDs.ResolveRequired(ctx, n)
			if err != nil {
				return "", fmt.Errorf("lesson %q next %q: %w", key, n, err)
			}
			edge.Next = append(edge.Next, id)
		}

		prevNames, err := stringList(entry["previous"], "lessons."+key+".previous")
		if err != nil {
			return "", err
		}
		for _, p := range prevNames {
			id, err := state.IDs.ResolveRequired(ctx, p)
			if err != nil {
				return "", fmt.Errorf("lesson %q previous %q: %w", key, p, err)
			}
			edge.Previous = append(edge.Previous, id)
		}

		if ra, ok := entry["requireAll"]; ok {
			b, ok := ra.(bool)
			if !ok {
				return "", &FieldError{Field: "lessons." + key + ".requireAll", Reason: "must be a boolean"}
			}
			edge.RequireAll = b
		}

		data[lessonID] = edge
	}

	id, err := state.Platform.UpsertUnit(ctx, api.UnitUpsert{
		ID:           unitID,
		FriendlyName: friendly,
		Name:         name,
		Data:         data,
	})
	if err != nil {
		return "", err
	}

	w.Stats.Units++
	w.log.Info().Str("unit", friendly).Str("id", id).Int("lessons", len(data)).Msg("published unit")
	return id, nil
}
