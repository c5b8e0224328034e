// Package fileset computes the desired file set for a lesson's container:
// the lesson directory overlaid on its optional template directory, keyed
// by container-relative path.
package fileset

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Reserved filenames never enter a desired file set; they are consumed by
// the publisher itself (manifest, video, config).
var reserved = map[string]bool{
	"manifest.json": true,
	"video.cv":      true,
	"config.json":   true,
}

// Build enumerates templateDir (when non-empty) then lessonDir, reading
// every non-reserved file as UTF-8 text. Lesson entries overwrite template
// entries at the same relative path.
func Build(templateDir, lessonDir string) (map[string]string, error) {
	files := map[string]string{}
	if templateDir != "" {
		if err := collect(templateDir, files); err != nil {
			return nil, err
		}
	}
	if err := collect(lessonDir, files); err != nil {
		return nil, err
	}
	return files, nil
}

func collect(root string, into map[string]string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", root, err)
		}
		if d.IsDir() {
			return nil
		}
		if reserved[d.Name()] {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", path, err)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		into[filepath.ToSlash(rel)] = string(content)
		return nil
	})
}
