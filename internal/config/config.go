package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultModel          = "base"
	DefaultDevice         = "auto"
	DefaultEngine         = EngineCLI
	DefaultAddr           = ":8000"
	DefaultOpenAIBaseURL  = "https://api.openai.com/v1"
	DefaultMaxUploadBytes = 100 << 20
	DefaultSilenceDBFS    = -65.0
)

const (
	EngineCLI    = "cli"
	EngineOpenAI = "openai"
)

// Keys used with viper. Flags bound by the CLI use the same names.
const (
	KeyAddr             = "addr"
	KeyPort             = "port"
	KeyEngine           = "engine"
	KeyModel            = "model"
	KeyDevice           = "device"
	KeyModelDir         = "model_dir"
	KeyAutoDownload     = "auto_download"
	KeyCLIPath          = "cli_path"
	KeyThreads          = "threads"
	KeyOpenAIBaseURL    = "openai_base_url"
	KeyOpenAIAPIKey     = "openai_api_key"
	KeyTempDir          = "tmp_dir"
	KeyMaxUploadBytes   = "max_upload_bytes"
	KeySilenceGate      = "silence_gate"
	KeySilenceThreshold = "silence_threshold_dbfs"
	KeyLogLevel         = "log_level"
	KeyVerbose          = "verbose"
	KeyLogJSON          = "log_json"
	KeyCORSOrigins      = "cors_origins"
)

// Environment variables reported by the health endpoint.
const (
	EnvModel  = "WHISPER_MODEL"
	EnvDevice = "WHISPER_DEVICE"
	EnvHIP    = "HIP_VISIBLE_DEVICES"
	EnvROCR   = "ROCR_VISIBLE_DEVICES"
)

type Config struct {
	Addr                 string
	Engine               string
	Model                string
	Device               string
	ModelDir             string
	AutoDownload         bool
	CLIPath              string
	Threads              int
	OpenAIBaseURL        string
	OpenAIAPIKey         string
	TempDir              string
	MaxUploadBytes       int64
	SilenceGate          bool
	SilenceThresholdDBFS float64
	LogLevel             string
	LogJSON              bool
	CORSOrigins          []string
}

var envBindings = map[string][]string{
	KeyAddr:             {"WHISPER_ADDR"},
	KeyPort:             {"PORT"},
	KeyEngine:           {"WHISPER_ENGINE"},
	KeyModel:            {EnvModel},
	KeyDevice:           {EnvDevice},
	KeyModelDir:         {"WHISPER_MODEL_DIR"},
	KeyAutoDownload:     {"WHISPER_AUTO_DOWNLOAD"},
	KeyCLIPath:          {"WHISPER_CLI_PATH"},
	KeyThreads:          {"WHISPER_THREADS"},
	KeyOpenAIBaseURL:    {"WHISPER_OPENAI_BASE_URL"},
	KeyOpenAIAPIKey:     {"WHISPER_OPENAI_API_KEY", "OPENAI_API_KEY"},
	KeyTempDir:          {"WHISPER_TMP_DIR"},
	KeyMaxUploadBytes:   {"WHISPER_MAX_UPLOAD_BYTES"},
	KeySilenceGate:      {"WHISPER_SILENCE_GATE"},
	KeySilenceThreshold: {"WHISPER_SILENCE_THRESHOLD_DBFS"},
	KeyLogLevel:         {"WHISPER_LOG_LEVEL"},
	KeyVerbose:          {"WHISPER_VERBOSE"},
	KeyLogJSON:          {"WHISPER_LOG_JSON"},
	KeyCORSOrigins:      {"WHISPER_CORS_ORIGINS"},
}

// NewViper returns a viper instance with defaults and environment bindings
// registered. Callers may bind flags on top of it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyEngine, DefaultEngine)
	v.SetDefault(KeyModel, DefaultModel)
	v.SetDefault(KeyDevice, DefaultDevice)
	v.SetDefault(KeyAutoDownload, true)
	v.SetDefault(KeyThreads, 0)
	v.SetDefault(KeyOpenAIBaseURL, DefaultOpenAIBaseURL)
	v.SetDefault(KeyMaxUploadBytes, DefaultMaxUploadBytes)
	v.SetDefault(KeySilenceGate, true)
	v.SetDefault(KeySilenceThreshold, DefaultSilenceDBFS)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogJSON, true)
	v.SetDefault(KeyCORSOrigins, "*")

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		_ = v.BindEnv(args...)
	}

	return v
}

func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		return Config{}, errors.New("config source is nil")
	}

	cfg := Config{
		Addr:                 strings.TrimSpace(v.GetString(KeyAddr)),
		Engine:               strings.ToLower(strings.TrimSpace(v.GetString(KeyEngine))),
		Model:                strings.TrimSpace(v.GetString(KeyModel)),
		Device:               strings.ToLower(strings.TrimSpace(v.GetString(KeyDevice))),
		ModelDir:             strings.TrimSpace(v.GetString(KeyModelDir)),
		AutoDownload:         v.GetBool(KeyAutoDownload),
		CLIPath:              strings.TrimSpace(v.GetString(KeyCLIPath)),
		Threads:              v.GetInt(KeyThreads),
		OpenAIBaseURL:        strings.TrimSpace(v.GetString(KeyOpenAIBaseURL)),
		OpenAIAPIKey:         strings.TrimSpace(v.GetString(KeyOpenAIAPIKey)),
		TempDir:              strings.TrimSpace(v.GetString(KeyTempDir)),
		MaxUploadBytes:       v.GetInt64(KeyMaxUploadBytes),
		SilenceGate:          v.GetBool(KeySilenceGate),
		SilenceThresholdDBFS: v.GetFloat64(KeySilenceThreshold),
		LogLevel:             strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		LogJSON:              v.GetBool(KeyLogJSON),
		CORSOrigins:          splitList(v.GetString(KeyCORSOrigins)),
	}

	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
		if port := strings.TrimSpace(v.GetString(KeyPort)); port != "" {
			cfg.Addr = ":" + port
		}
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Device == "" {
		cfg.Device = DefaultDevice
	}
	if v.GetBool(KeyVerbose) {
		cfg.LogLevel = "debug"
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Engine {
	case EngineCLI, EngineOpenAI:
	default:
		return fmt.Errorf("unknown engine %q (known engines: %s, %s)", c.Engine, EngineCLI, EngineOpenAI)
	}

	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if c.Threads < 0 {
		return fmt.Errorf("threads must not be negative, got %d", c.Threads)
	}
	if c.Engine == EngineOpenAI && c.OpenAIBaseURL == "" {
		return errors.New("openai engine requires a base URL")
	}
	return nil
}

// EnvDump reports the environment relevant to model loading. Unset ROCm
// variables are nil so they serialize as JSON null.
func EnvDump(cfg Config, lookup func(string) (string, bool)) map[string]*string {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	model := cfg.Model
	device := cfg.Device
	dump := map[string]*string{
		EnvModel:  &model,
		EnvDevice: &device,
		EnvHIP:    nil,
		EnvROCR:   nil,
	}
	for _, key := range []string{EnvHIP, EnvROCR} {
		if value, ok := lookup(key); ok {
			dump[key] = &value
		}
	}
	return dump
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
