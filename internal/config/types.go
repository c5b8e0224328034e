package config

// Config represents the course-sync.yaml configuration file.
type Config struct {
	// BaseURL is the platform REST origin, e.g. https://platform.example.com/api.
	BaseURL string `yaml:"base_url"`

	// AuthToken is the bearer credential. The COURSE_SYNC_TOKEN environment
	// variable overrides it so the token can stay out of the file.
	AuthToken string `yaml:"auth_token,omitempty"`

	// ControlURL is the container control-socket origin,
	// e.g. wss://platform.example.com/control.
	ControlURL string `yaml:"control_url"`

	// CDNBaseURL is the origin README image references render against.
	CDNBaseURL string `yaml:"cdn_url"`

	// ImageDir holds the images uploaded and resolved for README
	// references. Empty disables the asset table.
	ImageDir string `yaml:"image_dir,omitempty"`

	// Pacing overrides the request throttle and retry timing. Zero values
	// keep the defaults (window 50, pauses 60s).
	Pacing Pacing `yaml:"pacing,omitempty"`
}

// Pacing tunes the rate-limited client.
type Pacing struct {
	Window       int `yaml:"window,omitempty"`
	PauseSeconds int `yaml:"pause_seconds,omitempty"`
	RetrySeconds int `yaml:"retry_seconds,omitempty"`
}
