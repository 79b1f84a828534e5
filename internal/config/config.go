package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/streed/study-notes/internal/constants"
	interrors "github.com/streed/study-notes/internal/errors"
)

const appName = "study-notes"

type Config struct {
	Debug   bool          `yaml:"debug"`
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
	Client  ClientConfig  `yaml:"client"`
	Storage StorageConfig `yaml:"storage"`
	LLM     LLMConfig     `yaml:"llm"`
	Archive ArchiveConfig `yaml:"archive"`
	Cache   CacheConfig   `yaml:"cache"`
}

type LogConfig struct {
	Format string `yaml:"format"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	MaxUploadMB  int           `yaml:"max_upload_mb"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

// ClientConfig is used by CLI commands that talk to a running server.
type ClientConfig struct {
	BaseURL string `yaml:"base_url"`
}

type StorageConfig struct {
	DataDirectory string `yaml:"data_directory"`
	DatabasePath  string `yaml:"database_path"`
}

// LLMConfig selects and configures the language model providers.
type LLMConfig struct {
	Provider           string        `yaml:"provider"`
	OpenAIAPIKey       string        `yaml:"openai_api_key"`
	OpenAIBaseURL      string        `yaml:"openai_base_url"`
	TranscriptionModel string        `yaml:"transcription_model"`
	Language           string        `yaml:"language"`
	FormatModel        string        `yaml:"format_model"`
	QuizModel          string        `yaml:"quiz_model"`
	OllamaEndpoint     string        `yaml:"ollama_endpoint"`
	OllamaModel        string        `yaml:"ollama_model"`
	QuizQuestions      int           `yaml:"quiz_questions"`
	AutoTag            bool          `yaml:"auto_tag"`
	MaxAutoTags        int           `yaml:"max_auto_tags"`
	Timeout            time.Duration `yaml:"timeout"`
}

// ArchiveConfig configures the optional MinIO bucket raw uploads are copied to.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Secure    bool   `yaml:"secure"`
}

// CacheConfig configures the optional Redis tag cache. Empty address disables it.
type CacheConfig struct {
	RedisAddress  string        `yaml:"redis_address"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

// Default returns a fresh copy of the default configuration
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-valued field with its default.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 25
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 5 * time.Minute
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	if cfg.Client.BaseURL == "" {
		cfg.Client.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	if cfg.Storage.DataDirectory == "" {
		cfg.Storage.DataDirectory = GetDefaultDataDirectory()
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = filepath.Join(cfg.Storage.DataDirectory, "notes.db")
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderOpenAI
	}
	if cfg.LLM.TranscriptionModel == "" {
		cfg.LLM.TranscriptionModel = "whisper-1"
	}
	if cfg.LLM.Language == "" {
		cfg.LLM.Language = "en"
	}
	if cfg.LLM.FormatModel == "" {
		cfg.LLM.FormatModel = "gpt-4o-mini"
	}
	if cfg.LLM.QuizModel == "" {
		cfg.LLM.QuizModel = "gpt-4o-mini"
	}
	if cfg.LLM.OllamaEndpoint == "" {
		cfg.LLM.OllamaEndpoint = "http://localhost:11434"
	}
	if cfg.LLM.OllamaModel == "" {
		cfg.LLM.OllamaModel = "llama3.2:latest"
	}
	if cfg.LLM.QuizQuestions == 0 {
		cfg.LLM.QuizQuestions = constants.DefaultQuizQuestions
	}
	if cfg.LLM.MaxAutoTags == 0 {
		cfg.LLM.MaxAutoTags = constants.DefaultMaxAutoTags
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 2 * time.Minute
	}

	if cfg.Archive.Bucket == "" {
		cfg.Archive.Bucket = appName
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = "us-east-1"
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 10 * time.Minute
	}
}

// Supported LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// ApplyEnv overrides fields from the environment. getenv is os.Getenv outside tests.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	for _, key := range []string{"STUDY_NOTES_PORT", "PORT"} {
		if v := getenv(key); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			cfg.Server.Port = port
			break
		}
	}
	if v := getenv("STUDY_NOTES_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := getenv("STUDY_NOTES_API_URL"); v != "" {
		cfg.Client.BaseURL = strings.TrimRight(v, "/")
	}
	if v := getenv("STUDY_NOTES_DB"); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.OpenAIAPIKey = v
	}
	if v := getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.OpenAIBaseURL = v
	}
	if v := getenv("STUDY_NOTES_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := getenv("OLLAMA_HOST"); v != "" {
		cfg.LLM.OllamaEndpoint = v
	}
	if v := getenv("STUDY_NOTES_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddress = v
	}
	return nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("%w: %s", interrors.ErrUnknownProvider, c.LLM.Provider)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.LLM.QuizQuestions < 1 {
		return fmt.Errorf("quiz_questions must be at least 1, got %d", c.LLM.QuizQuestions)
	}
	if c.Archive.Enabled && c.Archive.Endpoint == "" {
		return fmt.Errorf("archive is enabled but archive.endpoint is empty")
	}
	return nil
}

func GetConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.yaml"), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, appName, "config.yaml"), nil
}

func GetDefaultDataDirectory() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", "."+appName)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, appName)
}

// Load reads the YAML file at path, applies defaults and then environment overrides.
// A missing file is not an error: the defaults are used.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile is Load without environment overrides or validation, for
// rewriting the file without leaking the environment into it.
func LoadFile(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	ApplyDefaults(&cfg)
	cfg.Storage.DataDirectory = expandPath(cfg.Storage.DataDirectory, filepath.Dir(path))
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, filepath.Dir(path))
	return &cfg, nil
}

// LoadDefault loads from the standard config path.
func LoadDefault() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write config file with secure permissions
	if err := os.WriteFile(path, data, constants.ConfigFileMode); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Masked returns a copy with secrets replaced, suitable for printing.
func (c *Config) Masked() *Config {
	out := *c
	out.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	out.LLM.OpenAIAPIKey = maskSecret(c.LLM.OpenAIAPIKey)
	out.Archive.SecretKey = maskSecret(c.Archive.SecretKey)
	out.Cache.RedisPassword = maskSecret(c.Cache.RedisPassword)
	return &out
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:3] + "****" + s[len(s)-4:]
}

// ListenAddr is the host:port the API server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MaxUploadBytes is the multipart body limit for audio uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir,
// "~/" is the home directory.
func expandPath(path, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	return path
}

// SettableKeys lists the keys accepted by Set, in display order.
var SettableKeys = []string{
	"debug", "log-format", "host", "port", "api-url", "data-dir", "database-path",
	"provider", "openai-api-key", "openai-base-url", "language", "format-model", "quiz-model",
	"ollama-endpoint", "ollama-model", "quiz-questions", "auto-tag", "max-auto-tags",
	"redis-address", "archive-enabled", "archive-endpoint", "archive-bucket",
}

// Set updates one value by its command line key and revalidates.
func (c *Config) Set(key, value string) error {
	parseBool := func() (bool, error) {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid boolean for %s: %q", key, value)
		}
		return b, nil
	}
	parseInt := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %q", key, value)
		}
		return n, nil
	}

	var err error
	switch key {
	case "debug":
		c.Debug, err = parseBool()
	case "log-format":
		c.Log.Format = value
	case "host":
		c.Server.Host = value
	case "port":
		c.Server.Port, err = parseInt()
	case "api-url":
		c.Client.BaseURL = strings.TrimRight(value, "/")
	case "data-dir":
		c.Storage.DataDirectory = value
		c.Storage.DatabasePath = filepath.Join(value, "notes.db")
	case "database-path":
		c.Storage.DatabasePath = value
	case "provider":
		c.LLM.Provider = value
	case "openai-api-key":
		c.LLM.OpenAIAPIKey = value
	case "openai-base-url":
		c.LLM.OpenAIBaseURL = value
	case "language":
		c.LLM.Language = value
	case "format-model":
		c.LLM.FormatModel = value
	case "quiz-model":
		c.LLM.QuizModel = value
	case "ollama-endpoint":
		c.LLM.OllamaEndpoint = value
	case "ollama-model":
		c.LLM.OllamaModel = value
	case "quiz-questions":
		c.LLM.QuizQuestions, err = parseInt()
	case "auto-tag":
		c.LLM.AutoTag, err = parseBool()
	case "max-auto-tags":
		c.LLM.MaxAutoTags, err = parseInt()
	case "redis-address":
		c.Cache.RedisAddress = value
	case "archive-enabled":
		c.Archive.Enabled, err = parseBool()
	case "archive-endpoint":
		c.Archive.Endpoint = value
	case "archive-bucket":
		c.Archive.Bucket = value
	default:
		return fmt.Errorf("%w: %s", interrors.ErrUnknownConfigKey, key)
	}
	if err != nil {
		return err
	}
	return c.Validate()
}
