package coursesync

import "github.com/bianoble/course-sync/internal/assets"

// PublishResult holds the outcome of a publish operation.
type PublishResult struct {
	// Manifests, Units and Lessons count what the walk processed.
	Manifests int
	Units     int
	Lessons   int

	// Requests is the total number of counted platform calls.
	Requests uint64

	// Assets summarizes the asset-table load, nil when no image directory
	// is configured.
	Assets *assets.Result
}
