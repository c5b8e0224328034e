// Package lessonconfig computes a lesson's effective configuration from
// the three config tiers: global (inherited configTemplate), template
// (templateDir/config.json) and lesson (dir/config.json).
package lessonconfig

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// Merge combines config tiers in ascending priority: later arguments win.
// Objects merge key-by-key, recursively. Any non-object value (scalars
// and arrays alike) is replaced wholesale by the highest-priority tier
// that defines the key.
func Merge(tiers ...map[string]any) map[string]any {
	result := map[string]any{}
	for _, tier := range tiers {
		result = mergeObjects(result, tier)
	}
	return result
}

func mergeObjects(base, overlay map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range overlay {
		baseObj, baseIsObj := result[k].(map[string]any)
		overlayObj, overlayIsObj := v.(map[string]any)
		if baseIsObj && overlayIsObj {
			result[k] = mergeObjects(baseObj, overlayObj)
			continue
		}
		result[k] = v
	}
	return result
}

// LoadFile reads a config.json tier. A missing file is not an error; it
// yields a nil tier.
func LoadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg map[string]any
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
