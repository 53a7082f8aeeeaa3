package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Source describes one prioritized catalog endpoint. Sources are tried in
// the order they appear in the configuration file.
type Source struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// Matching contains the reconciliation scoring knobs. The defaults are the
// tuning constants the pipeline shipped with; they carry no derivation beyond
// having worked, which is why they live in configuration.
type Matching struct {
	Threshold        float64 `toml:"threshold"`
	SimilarityWeight float64 `toml:"similarity_weight"`
	TokenWeight      float64 `toml:"token_weight"`
}

// Acquisition contains timing and retry settings for the per-item pipeline.
// All durations are seconds.
type Acquisition struct {
	MaxAttempts       int `toml:"max_attempts"`
	AttemptRetryDelay int `toml:"attempt_retry_delay"`
	InterItemDelay    int `toml:"inter_item_delay"`
	ElementWait       int `toml:"element_wait"`
	NewContextWait    int `toml:"new_context_wait"`
	ChallengeWait     int `toml:"challenge_wait"`
	DownloadTimeout   int `toml:"download_timeout"`
}

// Automation selects the registered browser automation driver used for the
// acquisition flow. An empty driver leaves acquisition disabled;
// reconciliation works without one.
type Automation struct {
	Driver   string `toml:"driver"`
	Endpoint string `toml:"endpoint"`
}

// PixelDrain contains credentials for the single-bucket PixelDrain backend.
type PixelDrain struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// Archive contains credentials for the Internet Archive S3-compatible backend.
type Archive struct {
	AccessKey         string `toml:"access_key"`
	SecretKey         string `toml:"secret_key"`
	Uploader          string `toml:"uploader"`
	Endpoint          string `toml:"endpoint"`
	MoviesCollection  string `toml:"movies_collection"`
	TVShowsCollection string `toml:"tvshows_collection"`
}

// Storage selects and configures the active upload backend.
type Storage struct {
	Provider      string     `toml:"provider"`
	UploadRetries int        `toml:"upload_retries"`
	PixelDrain    PixelDrain `toml:"pixeldrain"`
	Archive       Archive    `toml:"archive"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelsync.
type Config struct {
	Paths       Paths       `toml:"paths"`
	Sources     []Source    `toml:"sources"`
	Matching    Matching    `toml:"matching"`
	Acquisition Acquisition `toml:"acquisition"`
	Automation  Automation  `toml:"automation"`
	Storage     Storage     `toml:"storage"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file was actually found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// normalize expands paths and applies environment credential overrides. The
// original deployment fed secrets through the environment, so a value set
// there wins over an empty config field.
func (c *Config) normalize() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return err
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Storage.Provider = strings.ToLower(strings.TrimSpace(c.Storage.Provider))

	applyEnvOverride(&c.Storage.PixelDrain.APIKey, "PIXELDRAIN_API_KEY")
	applyEnvOverride(&c.Storage.Archive.AccessKey, "ARCHIVE_ACCESS_KEY")
	applyEnvOverride(&c.Storage.Archive.SecretKey, "ARCHIVE_SECRET_KEY")
	applyEnvOverride(&c.Storage.Archive.Uploader, "ARCHIVE_USERNAME")
	applyEnvOverride(&c.Paths.APIToken, "REELSYNC_API_TOKEN")
	return nil
}

func applyEnvOverride(target *string, key string) {
	if strings.TrimSpace(*target) != "" {
		return
	}
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
