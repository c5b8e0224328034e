package fileset

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/bianoble/course-sync/internal/assets"
)

// imageRef matches the inline placeholder syntax `$$IMAGE name$$` and
// `$$IMAGE name alt text$$`.
var imageRef = regexp.MustCompile(`\$\$IMAGE\s+(\S+?)(?:\s+([^$]*?))?\s*\$\$`)

// ImageNotConfiguredError is returned when a README references an image
// but no asset table was loaded for the run.
type ImageNotConfiguredError struct {
	Name string
}

func (e *ImageNotConfiguredError) Error() string {
	return fmt.Sprintf("README references image %q but no image directory is configured", e.Name)
}

// ImageNotFoundError is returned when a referenced image name is absent
// from the asset table.
type ImageNotFoundError struct {
	Name string
}

func (e *ImageNotFoundError) Error() string {
	return fmt.Sprintf("image %q not found in the asset table", e.Name)
}

// ExpandReadmes rewrites image placeholders in every file named README.md,
// resolving names through the asset table and rendering markdown image
// tags against the CDN. Other files pass through untouched.
func ExpandReadmes(files map[string]string, table *assets.Table, cdnBaseURL string) error {
	for rel, content := range files {
		if path.Base(rel) != "README.md" {
			continue
		}
		expanded, err := expandImages(content, table, cdnBaseURL)
		if err != nil {
			return fmt.Errorf("%s: %w", rel, err)
		}
		files[rel] = expanded
	}
	return nil
}

func expandImages(content string, table *assets.Table, cdnBaseURL string) (string, error) {
	var firstErr error

	expanded := imageRef.ReplaceAllStringFunc(content, func(match string) string {
		if firstErr != nil {
			return match
		}
		groups := imageRef.FindStringSubmatch(match)
		name, alt := groups[1], strings.TrimSpace(groups[2])

		if table == nil {
			firstErr = &ImageNotConfiguredError{Name: name}
			return match
		}
		asset, ok := table.Resolve(name)
		if !ok {
			firstErr = &ImageNotFoundError{Name: name}
			return match
		}

		if asset.Width > 0 && asset.Height > 0 {
			size := fmt.Sprintf("%dx%d", asset.Width, asset.Height)
			if alt == "" {
				alt = size
			} else {
				alt += " " + size
			}
		}

		url := fmt.Sprintf("%s/userfiles/img/%s.%s", strings.TrimSuffix(cdnBaseURL, "/"), asset.ID, asset.Format)
		return fmt.Sprintf("![%s](%s)", alt, url)
	})

	if firstErr != nil {
		return "", firstErr
	}
	return expanded, nil
}
