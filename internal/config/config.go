package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

var Version = "dev"

const (
	DefaultKeyServiceURL  = "https://boosteracademyapi.classx.co.in/api/get_hls_key"
	DefaultKeyServiceHost = "boosteracademyapi.classx.co.in"

	ChunkSize          = 8 * 1024
	ArchiveFileName    = "downloaded.zip"
	ExtractedDirName   = "extracted"
	OutputFileName     = "simulated_output.mkv"
	MarkerExtension    = ".tsa"
	PlayableExtension  = ".mp4"
	WorkspacePrefix    = "appxzip-"
	MaxURLLength       = 2048
	MaxDiscordFileSize = 25 * 1024 * 1024
	KeyRequestTimeout  = 30 * time.Second
	ResponsePreviewLen = 500
	KeyPreviewLen      = 10
	SweepInterval      = 5 * time.Minute
)

// SegmentExtensions is the allow-list of segment file suffixes.
var SegmentExtensions = []string{MarkerExtension}

// PlaceholderOutput is the literal content written by the placeholder producer.
var PlaceholderOutput = []byte("# Simulated MKV Header\nDummy video content\n")

type Config struct {
	Platform      string `env:"BOT_PLATFORM,default=discord" validate:"oneof=discord telegram"`
	DiscordToken  string `env:"DISCORD_TOKEN" validate:"required_if=Platform discord"`
	DiscordAppID  string `env:"DISCORD_APP_ID" validate:"required_if=Platform discord"`
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN" validate:"required_if=Platform telegram"`

	KeyServiceURL  string `env:"KEY_SERVICE_URL,default=https://boosteracademyapi.classx.co.in/api/get_hls_key" validate:"required,url"`
	KeyServiceHost string `env:"KEY_SERVICE_HOST,default=boosteracademyapi.classx.co.in" validate:"required"`

	ScratchDir            string `env:"SCRATCH_DIR"`
	WorkspaceRetentionMin int    `env:"WORKSPACE_RETENTION_MIN,default=30" validate:"min=1"`
	DiskSpaceMinMB        int    `env:"DISK_SPACE_MIN_MB,default=512" validate:"min=0"`
	BlockPrivateURLs      bool   `env:"BLOCK_PRIVATE_URLS,default=false"`

	RateLimitMax       int `env:"RATE_LIMIT_MAX,default=5" validate:"min=0"`
	RateLimitWindowSec int `env:"RATE_LIMIT_WINDOW_SEC,default=60" validate:"min=1"`

	HTTPAddr    string `env:"HTTP_ADDR"`
	CORSOrigins string `env:"CORS_ORIGINS"`

	LogLevel string `env:"LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`
	LogFile  string `env:"LOG_FILE"`

	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL" validate:"omitempty,url"`
	DiscordPingUserID string `env:"DISCORD_PING_USER_ID"`
}

// Load reads the process environment into a Config and validates it. Callers
// that want .env support load it first (see cmd/bot).
func Load() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStandalone is Load without the chat platform settings, for one-shot
// runs that never connect to a chat service.
func LoadStandalone() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	err = validator.New().StructExcept(cfg, "Platform", "DiscordToken", "DiscordAppID", "TelegramToken")
	if err := describe(err); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.Platform = strings.ToLower(strings.TrimSpace(cfg.Platform))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	return &cfg, nil
}

// Validate reports every invalid field by its environment variable name.
func (c *Config) Validate() error {
	return describe(validator.New().Struct(c))
}

func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := envName(fe.StructField())
		switch fe.Tag() {
		case "required", "required_if":
			msgs = append(msgs, name+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", name, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", name, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// BotToken returns the connection credential of the selected platform.
func (c *Config) BotToken() string {
	if c.Platform == "telegram" {
		return c.TelegramToken
	}
	return c.DiscordToken
}

func (c *Config) ScratchRoot() string {
	if c.ScratchDir != "" {
		return c.ScratchDir
	}
	return filepath.Join(os.TempDir(), "appxzip")
}

func (c *Config) WorkspaceRetention() time.Duration {
	return time.Duration(c.WorkspaceRetentionMin) * time.Minute
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSec) * time.Second
}

func (c *Config) DiskSpaceMinBytes() uint64 {
	return uint64(c.DiskSpaceMinMB) * 1024 * 1024
}

func (c *Config) CORSOriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func envName(field string) string {
	f, ok := reflect.TypeOf(Config{}).FieldByName(field)
	if !ok {
		return field
	}
	tag := f.Tag.Get("env")
	if i := strings.Index(tag, ","); i >= 0 {
		tag = tag[:i]
	}
	if tag == "" {
		return field
	}
	return tag
}
