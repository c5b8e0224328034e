// Package coursesync provides the public Go library API for course-sync.
//
// course-sync publishes authored course content (lessons, units, images,
// video, and in-container source files) to a remote platform, converging
// each lesson's container file system against the locally computed file
// set.
//
// # Basic Usage
//
//	client, err := coursesync.New(coursesync.Options{
//	    ConfigPath: "course-sync.yaml",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close(30 * time.Second)
//
//	result, err := client.Publish(ctx, "course/manifest.json")
package coursesync

import (
	"context"
	"fmt"
	"time"

	"github.com/bianoble/course-sync/internal/api"
	"github.com/bianoble/course-sync/internal/assets"
	"github.com/bianoble/course-sync/internal/config"
	"github.com/bianoble/course-sync/internal/manifest"
	"github.com/bianoble/course-sync/internal/protocol"
	"github.com/bianoble/course-sync/internal/resolve"
)

// Options configures a course-sync client.
type Options struct {
	// ConfigPath is the path to the config file. Default: "course-sync.yaml".
	ConfigPath string
}

// Client is the main entry point for the course-sync library.
type Client struct {
	cfg      *config.Config
	api      *api.Client
	registry *protocol.Registry
}

// New creates a course-sync Client from a config file.
func New(opts Options) (*Client, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = "course-sync.yaml"
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	platform := api.New(cfg.BaseURL, cfg.AuthToken)
	platform.ThrottleWindow = cfg.Pacing.Window
	platform.ThrottlePause = time.Duration(cfg.Pacing.PauseSeconds) * time.Second
	platform.RetryWait = time.Duration(cfg.Pacing.RetrySeconds) * time.Second

	return &Client{
		cfg:      cfg,
		api:      platform,
		registry: protocol.NewRegistry(),
	}, nil
}

// Publish walks the manifest tree rooted at manifestPath and publishes
// everything it describes. When an image directory is configured, the
// asset table is loaded (uploading missing images) before the walk so
// README references can resolve.
func (c *Client) Publish(ctx context.Context, manifestPath string) (*PublishResult, error) {
	result := &PublishResult{}

	var table *assets.Table
	if c.cfg.ImageDir != "" {
		uploaded, assetResult, err := assets.NewUploader(c.api, c.cfg.ImageDir).Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading asset table: %w", err)
		}
		table = uploaded
		result.Assets = assetResult
	}

	state := &manifest.RunState{
		Platform: c.api,
		IDs:      resolve.New(c.api),
		Assets:   table,
		Sync:     protocol.NewSession(c.cfg.ControlURL, c.registry),
	}

	walker := manifest.NewWalker(c.cfg.CDNBaseURL)
	if err := walker.Process(ctx, state, "", manifestPath); err != nil {
		return nil, err
	}

	result.Manifests = walker.Stats.Manifests
	result.Units = walker.Stats.Units
	result.Lessons = walker.Stats.Lessons
	result.Requests = c.api.Requests()
	return result, nil
}

// UploadAssets reconciles the configured image directory against the
// remote listing without publishing any content.
func (c *Client) UploadAssets(ctx context.Context) (*assets.Result, error) {
	if c.cfg.ImageDir == "" {
		return nil, fmt.Errorf("no 'image_dir' configured")
	}
	_, result, err := assets.NewUploader(c.api, c.cfg.ImageDir).Load(ctx)
	return result, err
}

// OpenSockets reports how many sync sockets have not yet closed.
func (c *Client) OpenSockets() int {
	return c.registry.Open()
}

// Close waits up to grace for draining sync sockets to close on their own,
// then force-closes the rest.
func (c *Client) Close(grace time.Duration) {
	c.registry.CloseAll(grace)
}
