package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "config.json"

// Config holds the archiver configuration. It is loaded once at startup and
// treated as read-only afterwards.
type Config struct {
	StreamerName              string  `yaml:"streamer_name"`
	OutputDirectory           string  `yaml:"output_directory"`
	Quality                   string  `yaml:"quality"`
	WebhookURL                string  `yaml:"webhook_url"`
	MaxRecordingDurationHours float64 `yaml:"max_recording_duration_hours"`
	DiskSpaceThresholdGB      float64 `yaml:"disk_space_threshold_gb"`

	RetentionDays         int      `yaml:"retention_days"`          // Recordings older than this are deleted
	PollIntervalSeconds   int      `yaml:"poll_interval_seconds"`   // Loop cadence
	StatusIntervalMinutes int      `yaml:"status_interval_minutes"` // Periodic status message cadence
	StreamBaseURL         string   `yaml:"stream_base_url"`
	StreamlinkPath        string   `yaml:"streamlink_path"`
	StreamlinkArgs        []string `yaml:"streamlink_args"`
	ProbeTimeoutSeconds   int      `yaml:"probe_timeout_seconds"`
	StopGraceSeconds      int      `yaml:"stop_grace_seconds"` // SIGTERM→SIGKILL delay for capture
	LogFile               string   `yaml:"log_file"`
	LogLevel              string   `yaml:"log_level"`
	StateDir              string   `yaml:"state_dir"`          // PID file, status.json, cmd.txt
	StatusListenAddr      string   `yaml:"status_listen_addr"` // Empty disables the live feed
}

// Upper bounds keep the duration helpers below well inside time.Duration.
const (
	MaxRetentionDays          = 36500   // 100 years, effectively "keep forever"
	MaxRecordingDurationHours = 24 * 365
	MaxStatusIntervalMinutes  = 7 * 24 * 60
	MaxTimeoutSeconds         = 3600 // probe_timeout_seconds, stop_grace_seconds
)

// Default returns a Config with every optional field populated.
func Default() *Config {
	return &Config{
		RetentionDays:         300,
		PollIntervalSeconds:   1,
		StatusIntervalMinutes: 60,
		StreamBaseURL:         "https://www.twitch.tv/",
		StreamlinkPath:        "streamlink",
		StreamlinkArgs:        []string{"--twitch-disable-ads", "--twitch-low-latency"},
		ProbeTimeoutSeconds:   30,
		StopGraceSeconds:      10,
		LogFile:               "stream_recorder.log",
		LogLevel:              "info",
		StateDir:              filepath.Join(os.Getenv("HOME"), ".cache", "vodkeeper"),
	}
}

// Load reads the config file at path, applies .env and environment overrides,
// and validates the result. JSON files are accepted since JSON is valid YAML.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if err := loadEnvFile(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes raw config bytes on top of the defaults without validating.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.OutputDirectory = expandTilde(cfg.OutputDirectory)
	cfg.StateDir = expandTilde(cfg.StateDir)
	return cfg, nil
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VODKEEPER_WEBHOOK_URL"); v != "" {
		c.WebhookURL = v
	}
	if v := os.Getenv("VODKEEPER_OUTPUT_DIRECTORY"); v != "" {
		c.OutputDirectory = expandTilde(v)
	}
	if v := os.Getenv("VODKEEPER_STREAMER_NAME"); v != "" {
		c.StreamerName = v
	}
}

// Validate checks Config for validity
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.StreamerName) == "" {
		errs = append(errs, errors.New("streamer_name is required"))
	}
	if strings.TrimSpace(c.OutputDirectory) == "" {
		errs = append(errs, errors.New("output_directory is required"))
	}
	if strings.TrimSpace(c.Quality) == "" {
		errs = append(errs, errors.New("quality is required"))
	}
	if strings.TrimSpace(c.WebhookURL) == "" {
		errs = append(errs, errors.New("webhook_url is required"))
	}
	if !(c.MaxRecordingDurationHours > 0 && c.MaxRecordingDurationHours <= MaxRecordingDurationHours) {
		errs = append(errs, fmt.Errorf("max_recording_duration_hours must be in (0, %d], got %v", MaxRecordingDurationHours, c.MaxRecordingDurationHours))
	}
	if c.DiskSpaceThresholdGB < 0 {
		errs = append(errs, fmt.Errorf("disk_space_threshold_gb must not be negative, got %v", c.DiskSpaceThresholdGB))
	}
	if c.RetentionDays < 1 || c.RetentionDays > MaxRetentionDays {
		errs = append(errs, fmt.Errorf("retention_days must be between 1 and %d, got %d", MaxRetentionDays, c.RetentionDays))
	}
	if c.PollIntervalSeconds < 1 || c.PollIntervalSeconds > 60 {
		errs = append(errs, fmt.Errorf("poll_interval_seconds must be between 1 and 60, got %d", c.PollIntervalSeconds))
	}
	if c.StatusIntervalMinutes < 1 || c.StatusIntervalMinutes > MaxStatusIntervalMinutes {
		errs = append(errs, fmt.Errorf("status_interval_minutes must be between 1 and %d, got %d", MaxStatusIntervalMinutes, c.StatusIntervalMinutes))
	}
	if c.ProbeTimeoutSeconds < 0 || c.ProbeTimeoutSeconds > MaxTimeoutSeconds {
		errs = append(errs, fmt.Errorf("probe_timeout_seconds must be between 0 and %d, got %d", MaxTimeoutSeconds, c.ProbeTimeoutSeconds))
	}
	if c.StopGraceSeconds < 0 || c.StopGraceSeconds > MaxTimeoutSeconds {
		errs = append(errs, fmt.Errorf("stop_grace_seconds must be between 0 and %d, got %d", MaxTimeoutSeconds, c.StopGraceSeconds))
	}
	if c.StreamlinkPath == "" {
		errs = append(errs, errors.New("streamlink_path must not be empty"))
	}

	return errors.Join(errs...)
}

// StreamURL is the channel URL handed to streamlink.
func (c *Config) StreamURL() string {
	return strings.TrimRight(c.StreamBaseURL, "/") + "/" + c.StreamerName
}

// MaxRecordingDuration caps a single capture session.
func (c *Config) MaxRecordingDuration() time.Duration {
	return time.Duration(c.MaxRecordingDurationHours * float64(time.Hour))
}

// Retention is the age after which recordings are swept.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.StatusIntervalMinutes) * time.Minute
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

func (c *Config) StopGrace() time.Duration {
	return time.Duration(c.StopGraceSeconds) * time.Second
}

func expandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		return filepath.Join(os.Getenv("HOME"), strings.TrimPrefix(path, "~"))
	}
	return path
}
