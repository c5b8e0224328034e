// Package assets maintains the run's image-asset table: the mapping from
// image names to platform IDs, populated once per run by reconciling a
// local image directory against the remote listing.
package assets

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bianoble/course-sync/internal/api"
	"github.com/bianoble/course-sync/internal/logging"

	// Header decoders for image dimensions.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Asset is one resolved image: its platform ID, format, and dimensions
// when they could be decoded (0 when unknown).
type Asset struct {
	ID     string
	Format string
	Width  int
	Height int
}

// Table maps image names (file basename without extension) to assets. It
// is populated once and shared read-only across all manifest branches.
type Table struct {
	byName map[string]Asset
}

// NewTable builds a table from a name→asset map. Used by tests and by the
// uploader.
func NewTable(entries map[string]Asset) *Table {
	byName := make(map[string]Asset, len(entries))
	for k, v := range entries {
		byName[k] = v
	}
	return &Table{byName: byName}
}

// Resolve returns the asset for a name.
func (t *Table) Resolve(name string) (Asset, bool) {
	a, ok := t.byName[name]
	return a, ok
}

// Len reports how many assets are loaded.
func (t *Table) Len() int {
	return len(t.byName)
}

// Platform is the slice of the API the uploader needs.
type Platform interface {
	ListFiles(ctx context.Context) ([]api.RemoteFile, error)
	UploadImage(ctx context.Context, format, filename string, content []byte) (string, error)
}

// Result summarizes one uploader run.
type Result struct {
	Uploaded []string
	Reused   []string
}

// Uploader reconciles a local image directory against the remote listing.
// Images are content-addressed: a local file whose (sha256, format) pair
// already exists remotely reuses the remote ID instead of re-uploading.
type Uploader struct {
	Platform Platform
	Dir      string

	log zerolog.Logger
}

// NewUploader creates an Uploader over the given directory.
func NewUploader(platform Platform, dir string) *Uploader {
	return &Uploader{Platform: platform, Dir: dir, log: logging.With("assets")}
}

var imageFormats = map[string]string{
	".png":  "png",
	".jpg":  "jpg",
	".jpeg": "jpg",
	".gif":  "gif",
}

// Load uploads any local images missing remotely and returns the populated
// table plus a summary of what was uploaded versus reused.
func (u *Uploader) Load(ctx context.Context) (*Table, *Result, error) {
	remote, err := u.Platform.ListFiles(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing remote files: %w", err)
	}

	// Index remote entries by content identity.
	byContent := make(map[string]string, len(remote))
	for _, rf := range remote {
		byContent[rf.Hash+"/"+rf.Format] = rf.ID
	}

	entries, err := os.ReadDir(u.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading image directory %s: %w", u.Dir, err)
	}

	table := map[string]Asset{}
	result := &Result{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		format, ok := imageFormats[ext]
		if !ok {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))

		path := filepath.Join(u.Dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("reading image %s: %w", path, err)
		}

		hash := sha256.Sum256(content)
		key := hex.EncodeToString(hash[:]) + "/" + format

		id, exists := byContent[key]
		if exists {
			result.Reused = append(result.Reused, entry.Name())
		} else {
			id, err = u.Platform.UploadImage(ctx, format, entry.Name(), content)
			if err != nil {
				return nil, nil, fmt.Errorf("uploading image %s: %w", entry.Name(), err)
			}
			byContent[key] = id
			result.Uploaded = append(result.Uploaded, entry.Name())
			u.log.Info().Str("image", entry.Name()).Str("id", id).Msg("uploaded image")
		}

		width, height := decodeDimensions(content)
		table[name] = Asset{ID: id, Format: format, Width: width, Height: height}
	}

	return NewTable(table), result, nil
}

// decodeDimensions reads the image header for width/height. Failure is not
// an error; the size annotation is simply omitted.
func decodeDimensions(content []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
