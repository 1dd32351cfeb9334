package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/blocknote/internal/attachments"
	"github.com/starford/blocknote/internal/syncer"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Attachment backends.
const (
	BackendFS = "fs"
	BackendS3 = "s3"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	SQLite      SQLiteConfig      `yaml:"sqlite"`
	Auth        AuthConfig        `yaml:"auth"`
	Attachments AttachmentsConfig `yaml:"attachments"`
	Editor      EditorConfig      `yaml:"editor"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Attachments.Validate(); err != nil {
		return fmt.Errorf("attachments: %w", err)
	}
	if err := c.Editor.Validate(); err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// AttachmentsConfig selects where uploaded images are stored.
type AttachmentsConfig struct {
	Backend string        `yaml:"backend"`
	Path    string        `yaml:"path"`
	S3      S3Config      `yaml:"s3"`
	Janitor JanitorConfig `yaml:"janitor"`
}

// Validate validates the attachments configuration.
func (c *AttachmentsConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendFS
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.In(BackendFS, BackendS3)),
		validation.Field(&c.Path, validation.When(c.Backend == BackendFS, validation.Required)),
	); err != nil {
		return err
	}
	if c.Backend == BackendS3 {
		if err := c.S3.Validate(); err != nil {
			return fmt.Errorf("s3: %w", err)
		}
	}
	return c.Janitor.Validate()
}

// S3Config locates the attachments bucket. Empty keys fall back to the
// default AWS credential chain.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Validate validates the S3 configuration.
func (c *S3Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Bucket, validation.Required),
		validation.Field(&c.SecretAccessKey, validation.When(c.AccessKeyID != "", validation.Required)),
	)
}

// Attachments converts the section into the provider settings.
func (c S3Config) Attachments() attachments.S3Config {
	return attachments.S3Config{
		Bucket:          c.Bucket,
		Endpoint:        c.Endpoint,
		Region:          c.Region,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
	}
}

// JanitorConfig schedules orphaned attachment cleanup. An empty schedule
// disables it.
type JanitorConfig struct {
	Schedule string        `yaml:"schedule"`
	Grace    time.Duration `yaml:"grace"`
}

// Validate validates the janitor configuration.
func (c *JanitorConfig) Validate() error {
	if c.Schedule == "" {
		return nil
	}
	if err := attachments.ValidateSchedule(c.Schedule); err != nil {
		return err
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Grace, validation.Min(time.Duration(0))),
	)
}

// EditorConfig tunes the autosave behavior of editor sessions.
type EditorConfig struct {
	SaveDelay        time.Duration `yaml:"save_delay"`
	ErrorRevertDelay time.Duration `yaml:"error_revert_delay"`
	SaveTimeout      time.Duration `yaml:"save_timeout"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SaveDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.ErrorRevertDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.SaveTimeout, validation.Min(time.Duration(0))),
	)
}

// Sync returns the save controller settings for the section.
func (c EditorConfig) Sync() syncer.Config {
	return syncer.Config{
		Debounce:    c.SaveDelay,
		ErrorRevert: c.ErrorRevertDelay,
		SaveTimeout: c.SaveTimeout,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./blocknote.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Attachments: AttachmentsConfig{
			Backend: BackendFS,
			Path:    "./attachments",
			Janitor: JanitorConfig{
				Grace: 24 * time.Hour,
			},
		},
		Editor: EditorConfig{
			SaveDelay:        2 * time.Second,
			ErrorRevertDelay: 3 * time.Second,
			SaveTimeout:      30 * time.Second,
		},
	}
}
