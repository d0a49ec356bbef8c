package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Ollama   OllamaConfig   `mapstructure:"ollama"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	LinkedIn LinkedInConfig `mapstructure:"linkedin"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Render   RenderConfig   `mapstructure:"render"`
	Web      WebConfig      `mapstructure:"web"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type OllamaConfig struct {
	Host        string  `mapstructure:"host"`
	Model       string  `mapstructure:"model"`
	TimeoutSecs int     `mapstructure:"timeout_seconds"`
	Temperature float64 `mapstructure:"temperature"`
	NumPredict  int     `mapstructure:"num_predict"`
}

type ScraperConfig struct {
	Headless           bool   `mapstructure:"headless"`
	UseExistingBrowser bool   `mapstructure:"use_existing_browser"`
	DevtoolsURL        string `mapstructure:"devtools_url"`
	FastMode           bool   `mapstructure:"fast_mode"`
	MinDelayMs         int    `mapstructure:"min_delay_ms"`
	MaxDelayMs         int    `mapstructure:"max_delay_ms"`
	DescriptionWorkers int    `mapstructure:"description_workers"`
	SearchLimit        int    `mapstructure:"search_limit"`
	MaxPages           int    `mapstructure:"max_pages"`
}

// LinkedInConfig comes from linkedin.yaml: credentials plus the default
// search filters applied when a search request leaves them blank.
type LinkedInConfig struct {
	Email    string        `mapstructure:"email"`
	Password string        `mapstructure:"password"`
	Filters  FiltersConfig `mapstructure:"filters"`
}

type FiltersConfig struct {
	ExperienceLevels []string `mapstructure:"experience_levels"`
	JobTypes         []string `mapstructure:"job_types"`
	Workplace        string   `mapstructure:"workplace"`
	DatePosted       string   `mapstructure:"date_posted"`
}

type PathsConfig struct {
	Profile   string `mapstructure:"profile"`
	JobsDir   string `mapstructure:"jobs_dir"`
	OutputDir string `mapstructure:"output_dir"`
	Templates string `mapstructure:"templates_dir"`
}

type RenderConfig struct {
	Format         string `mapstructure:"format"`
	WkhtmltopdfBin string `mapstructure:"wkhtmltopdf_bin"`
}

type WebConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	AuthSecret   string `mapstructure:"auth_secret"`
	PasswordHash string `mapstructure:"password_hash"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads settings.yaml plus linkedin.yaml from dir (defaults to
// ./config), layered with AUTOCV_* environment overrides. A missing file is
// not an error; defaults cover every knob.
func Load(dir string) (Config, error) {
	loadEnvFile()

	if strings.TrimSpace(dir) == "" {
		dir = "config"
	}

	v := viper.New()
	v.SetConfigName("settings")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AddConfigPath(".")

	v.SetEnvPrefix("AUTOCV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read settings: %w", err)
		}
	}

	v.SetConfigName("linkedin")
	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read linkedin config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideFromEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadEnvFile() {
	paths := []string{".env", "../.env", "../../.env"}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if godotenv.Load(p) == nil {
				return
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Ollama.Host == "" {
		cfg.Ollama.Host = "http://localhost:11434"
	}
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = "llama3.1:8b"
	}
	if cfg.Ollama.TimeoutSecs <= 0 {
		cfg.Ollama.TimeoutSecs = 120
	}
	if cfg.Ollama.NumPredict <= 0 {
		cfg.Ollama.NumPredict = 2048
	}

	if cfg.Scraper.MinDelayMs <= 0 {
		cfg.Scraper.MinDelayMs = 1500
	}
	if cfg.Scraper.MaxDelayMs <= cfg.Scraper.MinDelayMs {
		cfg.Scraper.MaxDelayMs = cfg.Scraper.MinDelayMs + 2000
	}
	if cfg.Scraper.DescriptionWorkers <= 0 {
		cfg.Scraper.DescriptionWorkers = 5
	}
	if cfg.Scraper.SearchLimit <= 0 {
		cfg.Scraper.SearchLimit = 25
	}
	if cfg.Scraper.MaxPages <= 0 {
		cfg.Scraper.MaxPages = 3
	}
	if cfg.Scraper.DevtoolsURL == "" {
		cfg.Scraper.DevtoolsURL = "http://127.0.0.1:9222"
	}

	if cfg.Paths.Profile == "" {
		cfg.Paths.Profile = filepath.Join("data", "profile.yaml")
	}
	if cfg.Paths.JobsDir == "" {
		cfg.Paths.JobsDir = filepath.Join("data", "jobs")
	}
	if cfg.Paths.OutputDir == "" {
		cfg.Paths.OutputDir = filepath.Join("data", "generated")
	}

	if cfg.Render.Format == "" {
		cfg.Render.Format = "pdf"
	}
	if cfg.Render.WkhtmltopdfBin == "" {
		cfg.Render.WkhtmltopdfBin = "wkhtmltopdf"
	}

	if cfg.Web.Host == "" {
		cfg.Web.Host = "127.0.0.1"
	}
	if cfg.Web.Port == "" {
		cfg.Web.Port = "8080"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// Credentials never live in yaml on shared machines; env wins when set.
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("LINKEDIN_EMAIL"); v != "" {
		cfg.LinkedIn.Email = v
	}
	if v := os.Getenv("LINKEDIN_PASSWORD"); v != "" {
		cfg.LinkedIn.Password = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.Ollama.Host = v
	}
	if v := os.Getenv("AUTOCV_AUTH_SECRET"); v != "" {
		cfg.Web.AuthSecret = v
	}
}

func validate(cfg *Config) error {
	if !strings.HasPrefix(cfg.Ollama.Host, "http://") && !strings.HasPrefix(cfg.Ollama.Host, "https://") {
		return fmt.Errorf("ollama.host must be an http(s) URL, got %q", cfg.Ollama.Host)
	}
	switch cfg.Render.Format {
	case "pdf", "html":
	default:
		return fmt.Errorf("render.format must be pdf or html, got %q", cfg.Render.Format)
	}
	if cfg.Web.PasswordHash != "" && cfg.Web.AuthSecret == "" {
		return fmt.Errorf("web.auth_secret is required when web.password_hash is set")
	}
	return nil
}

// OllamaTimeout returns the request timeout as a duration.
func (c OllamaConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}
