package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// EnvConfigPath names the environment variable holding an optional TOML file path.
const EnvConfigPath = "SUBFLICK_CONFIG"

// Duration is a time.Duration read from strings such as "90s" or "10m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Transcription configures the speech recognizer.
type Transcription struct {
	Provider        string   `toml:"provider" validate:"oneof=groq openai gcp"`
	APIKey          string   `toml:"api_key" validate:"required_unless=Provider gcp"`
	BaseURL         string   `toml:"base_url" validate:"omitempty,url"`
	Model           string   `toml:"model"`
	ResponseFormat  string   `toml:"response_format" validate:"oneof=verbose_json json text"`
	Language        string   `toml:"language"`
	Workers         int      `toml:"workers" validate:"min=1,max=64"`
	QueueSize       int      `toml:"queue_size" validate:"gte=0"`
	Timeout         Duration `toml:"timeout"`
	CredentialsFile string   `toml:"gcp_credentials_file"`
}

// Translation configures the language model.
type Translation struct {
	Provider      string   `toml:"provider" validate:"oneof=gemini openai"`
	APIKey        string   `toml:"api_key" validate:"required_if=Provider gemini"`
	BaseURL       string   `toml:"base_url" validate:"omitempty,url"`
	Model         string   `toml:"model"`
	MaxInputChars int      `toml:"max_input_chars" validate:"gte=0"`
	Timeout       Duration `toml:"timeout"`
}

// Retry bounds retries of collaborator calls.
type Retry struct {
	Attempts  int      `toml:"attempts" validate:"min=1,max=10"`
	BaseDelay Duration `toml:"base_delay"`
	MaxDelay  Duration `toml:"max_delay"`
}

// Tracing configures OpenTelemetry export.
type Tracing struct {
	Enabled     bool    `toml:"enabled"`
	Exporter    string  `toml:"exporter" validate:"oneof=stdout otlp"`
	Endpoint    string  `toml:"endpoint"`
	Insecure    bool    `toml:"insecure"`
	SampleRatio float64 `toml:"sample_ratio" validate:"gte=0,lte=1"`
}

// Logging configures the logrus logger.
type Logging struct {
	Level  string `toml:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `toml:"format" validate:"oneof=auto json text"`
}

// Config is the full service configuration.
type Config struct {
	ListenAddr               string   `toml:"listen_addr" validate:"required"`
	CORSAllowedOrigins       string   `toml:"cors_allowed_origins"`
	DefaultTargetLanguage    string   `toml:"default_target_language" validate:"required"`
	WorkspaceDir             string   `toml:"workspace_dir" validate:"required"`
	MaxUploadBytes           int64    `toml:"max_upload_bytes" validate:"gte=0"`
	WorkspaceMaxAge          Duration `toml:"workspace_max_age"`
	SweepInterval            Duration `toml:"sweep_interval"`
	FFmpegPath               string   `toml:"ffmpeg_path"`
	FFprobePath              string   `toml:"ffprobe_path"`
	AudioFormat              string   `toml:"audio_format" validate:"oneof=mp3 flac wav"`
	MaxConcurrentExtractions int      `toml:"max_concurrent_extractions" validate:"min=1,max=64"`

	Transcription Transcription `toml:"transcription"`
	Translation   Translation   `toml:"translation"`
	Retry         Retry         `toml:"retry"`
	Tracing       Tracing       `toml:"tracing"`
	Logging       Logging       `toml:"logging"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ListenAddr:               ":8080",
		CORSAllowedOrigins:       "*",
		DefaultTargetLanguage:    "Sinhala",
		WorkspaceDir:             filepath.Join(os.TempDir(), "temp_uploads"),
		MaxUploadBytes:           500 << 20,
		WorkspaceMaxAge:          Duration{time.Hour},
		SweepInterval:            Duration{10 * time.Minute},
		FFmpegPath:               "ffmpeg",
		FFprobePath:              "ffprobe",
		AudioFormat:              "mp3",
		MaxConcurrentExtractions: 2,
		Transcription: Transcription{
			Provider:       "groq",
			ResponseFormat: "verbose_json",
			Workers:        2,
			QueueSize:      8,
			Timeout:        Duration{5 * time.Minute},
		},
		Translation: Translation{
			Provider: "gemini",
			Timeout:  Duration{2 * time.Minute},
		},
		Retry: Retry{
			Attempts:  3,
			BaseDelay: Duration{500 * time.Millisecond},
			MaxDelay:  Duration{8 * time.Second},
		},
		Tracing: Tracing{
			Exporter:    "stdout",
			SampleRatio: 1,
		},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load builds the configuration from defaults, then the TOML file at path (or
// named by SUBFLICK_CONFIG when path is empty), then environment variables.
// The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) decodeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config %s: %s", path, strict.String())
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() {
	c.AudioFormat = strings.ToLower(strings.TrimSpace(c.AudioFormat))
	c.Transcription.Provider = strings.ToLower(strings.TrimSpace(c.Transcription.Provider))
	c.Transcription.ResponseFormat = strings.ToLower(strings.TrimSpace(c.Transcription.ResponseFormat))
	c.Translation.Provider = strings.ToLower(strings.TrimSpace(c.Translation.Provider))
	c.Tracing.Exporter = strings.ToLower(strings.TrimSpace(c.Tracing.Exporter))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "auto"
	}
	if c.ListenAddr != "" && !strings.Contains(c.ListenAddr, ":") {
		c.ListenAddr = ":" + c.ListenAddr
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	var msgs []string
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		for _, fe := range verrs {
			msg := fmt.Sprintf("%s failed on the '%s' tag", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag())
			if fe.Param() != "" {
				msg = fmt.Sprintf("%s (%s)", msg, fe.Param())
			}
			msgs = append(msgs, msg)
		}
	}
	for name, d := range map[string]Duration{
		"WorkspaceMaxAge": c.WorkspaceMaxAge,
		"SweepInterval":   c.SweepInterval,
	} {
		if d.Duration <= 0 {
			msgs = append(msgs, fmt.Sprintf("%s must be positive, got %s", name, d.Duration))
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	sort.Strings(msgs)
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok {
				*dst = v
			}
		}
	}
	integer := func(dst *int, key string) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(dst *Duration, key string) {
		if v, ok := lookup(key); ok {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}
	boolean := func(dst *bool, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok {
				b, err := strconv.ParseBool(v)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", k, err))
					continue
				}
				*dst = b
			}
		}
	}

	str(&c.ListenAddr, "PORT", "LISTEN_ADDR")
	str(&c.CORSAllowedOrigins, "CORS_ALLOWED_ORIGINS")
	str(&c.DefaultTargetLanguage, "DEFAULT_TARGET_LANGUAGE")
	str(&c.WorkspaceDir, "WORKSPACE_DIR")
	if v, ok := lookup("MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES: %w", err))
		} else {
			c.MaxUploadBytes = n
		}
	}
	duration(&c.WorkspaceMaxAge, "WORKSPACE_MAX_AGE")
	duration(&c.SweepInterval, "SWEEP_INTERVAL")
	str(&c.FFmpegPath, "FFMPEG_PATH")
	str(&c.FFprobePath, "FFPROBE_PATH")
	str(&c.AudioFormat, "AUDIO_FORMAT")
	integer(&c.MaxConcurrentExtractions, "MAX_CONCURRENT_EXTRACTIONS")

	t := &c.Transcription
	str(&t.Provider, "TRANSCRIPTION_PROVIDER")
	str(&t.APIKey, "GROQ_API_KEY", "TRANSCRIPTION_API_KEY")
	str(&t.BaseURL, "TRANSCRIPTION_BASE_URL")
	str(&t.Model, "TRANSCRIPTION_MODEL")
	str(&t.ResponseFormat, "TRANSCRIPTION_RESPONSE_FORMAT")
	str(&t.Language, "TRANSCRIPTION_LANGUAGE")
	integer(&t.Workers, "TRANSCRIPTION_WORKERS")
	integer(&t.QueueSize, "TRANSCRIPTION_QUEUE_SIZE")
	duration(&t.Timeout, "TRANSCRIPTION_TIMEOUT")
	str(&t.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS", "GCP_CREDENTIALS_FILE")

	tr := &c.Translation
	str(&tr.Provider, "TRANSLATION_PROVIDER")
	str(&tr.APIKey, "GEMINI_API_KEY", "TRANSLATION_API_KEY")
	str(&tr.BaseURL, "TRANSLATION_BASE_URL")
	str(&tr.Model, "TRANSLATION_MODEL")
	integer(&tr.MaxInputChars, "TRANSLATION_MAX_INPUT_CHARS")
	duration(&tr.Timeout, "TRANSLATION_TIMEOUT")

	integer(&c.Retry.Attempts, "RETRY_ATTEMPTS")
	duration(&c.Retry.BaseDelay, "RETRY_BASE_DELAY")
	duration(&c.Retry.MaxDelay, "RETRY_MAX_DELAY")

	boolean(&c.Tracing.Enabled, "OTEL_ENABLED", "TRACING_ENABLED")
	str(&c.Tracing.Exporter, "TRACING_EXPORTER")
	str(&c.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	boolean(&c.Tracing.Insecure, "OTEL_EXPORTER_OTLP_INSECURE")
	if v, ok := lookup("TRACING_SAMPLE_RATIO"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("TRACING_SAMPLE_RATIO: %w", err))
		} else {
			c.Tracing.SampleRatio = f
		}
	}

	str(&c.Logging.Level, "LOG_LEVEL")
	str(&c.Logging.Format, "LOG_FORMAT")

	if len(errs) > 0 {
		return fmt.Errorf("environment: %w", errors.Join(errs...))
	}
	return nil
}

// lookup returns a trimmed, non-empty environment value.
func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
