// Package config loads go-sensory configuration from defaults, an optional
// YAML file and environment variables (including a local .env file).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the env var pointing at an optional YAML config file.
const EnvConfigFile = "SENSORY_CONFIG"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Analyzer   AnalyzerConfig   `yaml:"analyzer"`
	Camera     CameraConfig     `yaml:"camera"`
	Prefs      PrefsConfig      `yaml:"prefs"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
}

type ServerConfig struct {
	Port      string `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type GeminiConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	UseSDK  bool          `yaml:"use_sdk"`
	Timeout time.Duration `yaml:"timeout"`

	// RemoteURL is another server's /api/analyze-crowd, tried after Gemini.
	RemoteURL string `yaml:"remote_url"`

	// DetectorModel is a YOLOv8 ONNX file used as the offline fallback.
	DetectorModel string `yaml:"detector_model"`
}

type ElevenLabsConfig struct {
	APIKey  string `yaml:"api_key"`
	VoiceID string `yaml:"voice_id"`
	ModelID string `yaml:"model_id"`
}

// AnalyzerConfig controls the crowd analysis loop.
type AnalyzerConfig struct {
	Interval          time.Duration `yaml:"interval"`
	Warmup            time.Duration `yaml:"warmup"`
	EnrichTimeout     time.Duration `yaml:"enrich_timeout"`
	JPEGQuality       int           `yaml:"jpeg_quality"`
	EnrichmentEnabled bool          `yaml:"enrichment_enabled"`
}

// CameraConfig selects the frame source for capture sessions.
// Source is "webcam", "snapshot" or "file".
type CameraConfig struct {
	Source      string `yaml:"source"`
	DeviceID    int    `yaml:"device_id"`
	SnapshotURL string `yaml:"snapshot_url"`
	File        string `yaml:"file"`
}

// PrefsConfig selects the preferences backend: "json" or "postgres".
type PrefsConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	DSN     string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Enabled reports whether a broker list was configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:     ServerConfig{Port: "8080", StaticDir: "./web"},
		Log:        LogConfig{Level: "info"},
		Gemini:     GeminiConfig{Model: "gemini-2.0-flash", Timeout: 15 * time.Second},
		ElevenLabs: ElevenLabsConfig{VoiceID: "JBFqnCBsd6RMkjVDRZzb", ModelID: "eleven_multilingual_v2"},
		Analyzer: AnalyzerConfig{
			Interval:          3 * time.Second,
			Warmup:            1 * time.Second,
			EnrichTimeout:     10 * time.Second,
			JPEGQuality:       70,
			EnrichmentEnabled: true,
		},
		Camera: CameraConfig{Source: "webcam"},
		Prefs:  PrefsConfig{Backend: "json", Path: "data/preferences.json"},
		Redis:  RedisConfig{TTL: 24 * time.Hour},
		Kafka:  KafkaConfig{Topic: "sensory.crowd.analysis"},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// SENSORY_CONFIG (if any), then environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges a YAML file into c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.StaticDir = getEnv("STATIC_DIR", c.Server.StaticDir)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	c.Gemini.APIKey = getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", c.Gemini.APIKey))
	c.Gemini.Model = getEnv("GEMINI_MODEL", c.Gemini.Model)
	c.Gemini.UseSDK = getEnvAsBool("GEMINI_USE_SDK", c.Gemini.UseSDK)
	c.Gemini.Timeout = getEnvAsDuration("GEMINI_TIMEOUT", c.Gemini.Timeout)
	c.Gemini.RemoteURL = getEnv("VISION_REMOTE_URL", c.Gemini.RemoteURL)
	c.Gemini.DetectorModel = getEnv("VISION_DETECTOR_MODEL", c.Gemini.DetectorModel)

	c.ElevenLabs.APIKey = getEnv("ELEVENLABS_API_KEY", c.ElevenLabs.APIKey)
	c.ElevenLabs.VoiceID = getEnv("ELEVENLABS_VOICE_ID", c.ElevenLabs.VoiceID)
	c.ElevenLabs.ModelID = getEnv("ELEVENLABS_MODEL_ID", c.ElevenLabs.ModelID)

	c.Analyzer.Interval = getEnvAsDuration("ANALYZER_INTERVAL", c.Analyzer.Interval)
	c.Analyzer.Warmup = getEnvAsDuration("ANALYZER_WARMUP", c.Analyzer.Warmup)
	c.Analyzer.EnrichTimeout = getEnvAsDuration("ANALYZER_ENRICH_TIMEOUT", c.Analyzer.EnrichTimeout)
	c.Analyzer.JPEGQuality = getEnvAsInt("ANALYZER_JPEG_QUALITY", c.Analyzer.JPEGQuality)
	c.Analyzer.EnrichmentEnabled = getEnvAsBool("ANALYZER_ENRICHMENT", c.Analyzer.EnrichmentEnabled)

	c.Camera.Source = getEnv("CAMERA_SOURCE", c.Camera.Source)
	c.Camera.DeviceID = getEnvAsInt("CAMERA_DEVICE_ID", c.Camera.DeviceID)
	c.Camera.SnapshotURL = getEnv("CAMERA_SNAPSHOT_URL", c.Camera.SnapshotURL)
	c.Camera.File = getEnv("CAMERA_FILE", c.Camera.File)

	c.Prefs.Backend = getEnv("PREFS_BACKEND", c.Prefs.Backend)
	c.Prefs.Path = getEnv("PREFS_PATH", c.Prefs.Path)
	c.Prefs.DSN = getEnv("DATABASE_URL", c.Prefs.DSN)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.TTL = getEnvAsDuration("REDIS_TTL", c.Redis.TTL)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)
}

// Validate checks value ranges that would otherwise fail at runtime.
func (c *Config) Validate() error {
	if c.Analyzer.Interval <= 0 {
		return fmt.Errorf("analyzer interval must be positive, got %s", c.Analyzer.Interval)
	}
	if c.Analyzer.Warmup < 0 {
		return fmt.Errorf("analyzer warmup must not be negative, got %s", c.Analyzer.Warmup)
	}
	if c.Analyzer.JPEGQuality < 1 || c.Analyzer.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be 1-100, got %d", c.Analyzer.JPEGQuality)
	}
	switch c.Prefs.Backend {
	case "json", "postgres":
	default:
		return fmt.Errorf("unknown prefs backend %q", c.Prefs.Backend)
	}
	if c.Prefs.Backend == "postgres" && c.Prefs.DSN == "" {
		return fmt.Errorf("prefs backend postgres requires DATABASE_URL")
	}
	switch c.Camera.Source {
	case "webcam", "snapshot", "file":
	default:
		return fmt.Errorf("unknown camera source %q", c.Camera.Source)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
