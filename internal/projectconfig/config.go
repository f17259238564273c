// Package projectconfig provides the ProjectConfig struct and loader for
// .evaluator.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default values for project configuration. These are the single source of
// truth — New() references them and no other code should duplicate them.
const (
	DefaultVisionModel      = "gemini-2.5-pro"
	DefaultIdealAnswerModel = "openai/gpt-oss-120b"
	DefaultAdvocateModel    = "x-ai/grok-4-fast"
	DefaultCriticModel      = "x-ai/grok-4-fast"
	DefaultSynthesizerModel = "openai/gpt-oss-20b"

	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultGeminiBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	DefaultUSDToNPR          = 142.0

	DefaultVisionDailyMax      = 1500
	DefaultVisionWindowSeconds = 86400

	DefaultMaxSessions           = 1000
	DefaultSessionTimeoutMinutes = 30

	DefaultTrailDir = ".evaluator-trails"

	// Environment variable names for the provider credentials. Keys never
	// live in the config file.
	EnvOpenRouterAPIKey = "OPENROUTER_API_KEY"
	EnvGoogleAIAPIKey   = "GOOGLE_AI_STUDIO_API_KEY"
)

// ModelConfig holds one role's model selection and sampling settings.
type ModelConfig struct {
	Model       string  `yaml:"model,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
}

// ModelsConfig selects a model per evaluation role.
type ModelsConfig struct {
	Vision      ModelConfig `yaml:"vision,omitempty"`
	IdealAnswer ModelConfig `yaml:"ideal_answer,omitempty"`
	Advocate    ModelConfig `yaml:"advocate,omitempty"`
	Critic      ModelConfig `yaml:"critic,omitempty"`
	Synthesizer ModelConfig `yaml:"synthesizer,omitempty"`
}

// ProvidersConfig holds provider endpoints and the billing conversion rate.
type ProvidersConfig struct {
	OpenRouterBaseURL string  `yaml:"openrouter_base_url,omitempty"`
	GeminiBaseURL     string  `yaml:"gemini_base_url,omitempty"`
	USDToNPR          float64 `yaml:"usd_to_npr,omitempty"`
}

// QuotaConfig holds the vision provider's free-tier request budget.
type QuotaConfig struct {
	VisionDailyMax      int `yaml:"vision_daily_max,omitempty"`
	VisionWindowSeconds int `yaml:"vision_window_seconds,omitempty"`
}

// SessionsConfig holds the session registry limits.
type SessionsConfig struct {
	Max            int `yaml:"max,omitempty"`
	TimeoutMinutes int `yaml:"timeout_minutes,omitempty"`
}

// TrailConfig holds evaluation trail settings.
type TrailConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .evaluator.yaml.
type ProjectConfig struct {
	Models    ModelsConfig    `yaml:"models,omitempty"`
	Providers ProvidersConfig `yaml:"providers,omitempty"`
	Quota     QuotaConfig     `yaml:"quota,omitempty"`
	Sessions  SessionsConfig  `yaml:"sessions,omitempty"`
	Trail     TrailConfig     `yaml:"trail,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Models: ModelsConfig{
			// Extraction needs a low temperature for fidelity; synthesis
			// gets the largest budget because it carries the full report.
			Vision:      ModelConfig{Model: DefaultVisionModel, Temperature: 0.1, MaxTokens: 2000},
			IdealAnswer: ModelConfig{Model: DefaultIdealAnswerModel, Temperature: 0.4, MaxTokens: 3000},
			Advocate:    ModelConfig{Model: DefaultAdvocateModel, Temperature: 0.3, MaxTokens: 2500},
			Critic:      ModelConfig{Model: DefaultCriticModel, Temperature: 0.2, MaxTokens: 2500},
			Synthesizer: ModelConfig{Model: DefaultSynthesizerModel, Temperature: 0.3, MaxTokens: 4000},
		},
		Providers: ProvidersConfig{
			OpenRouterBaseURL: DefaultOpenRouterBaseURL,
			GeminiBaseURL:     DefaultGeminiBaseURL,
			USDToNPR:          DefaultUSDToNPR,
		},
		Quota: QuotaConfig{
			VisionDailyMax:      DefaultVisionDailyMax,
			VisionWindowSeconds: DefaultVisionWindowSeconds,
		},
		Sessions: SessionsConfig{
			Max:            DefaultMaxSessions,
			TimeoutMinutes: DefaultSessionTimeoutMinutes,
		},
		Trail: TrailConfig{
			Enabled: boolPtr(false),
			Dir:     DefaultTrailDir,
		},
	}
}

// Load finds .evaluator.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading .evaluator.yaml: %w", err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing .evaluator.yaml: %w", err)
	}

	// Merge file values onto defaults.
	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// OpenRouterAPIKey reads the OpenRouter credential from the environment.
func OpenRouterAPIKey() string {
	return os.Getenv(EnvOpenRouterAPIKey)
}

// GoogleAIAPIKey reads the Google AI Studio credential from the environment.
func GoogleAIAPIKey() string {
	return os.Getenv(EnvGoogleAIAPIKey)
}

// findConfigFile walks up from dir looking for .evaluator.yaml (max 10
// levels). Returns os.ErrNotExist if no config file is found. Propagates
// real I/O errors (e.g. permission denied) instead of silently swallowing
// them.
func findConfigFile(dir string) ([]byte, error) {
	// Convert to absolute path so filepath.Dir(".") walks correctly.
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ".evaluator.yaml")
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	mergeModel(&dst.Models.Vision, &src.Models.Vision)
	mergeModel(&dst.Models.IdealAnswer, &src.Models.IdealAnswer)
	mergeModel(&dst.Models.Advocate, &src.Models.Advocate)
	mergeModel(&dst.Models.Critic, &src.Models.Critic)
	mergeModel(&dst.Models.Synthesizer, &src.Models.Synthesizer)

	if src.Providers.OpenRouterBaseURL != "" {
		dst.Providers.OpenRouterBaseURL = src.Providers.OpenRouterBaseURL
	}
	if src.Providers.GeminiBaseURL != "" {
		dst.Providers.GeminiBaseURL = src.Providers.GeminiBaseURL
	}
	if src.Providers.USDToNPR != 0 {
		dst.Providers.USDToNPR = src.Providers.USDToNPR
	}

	if src.Quota.VisionDailyMax != 0 {
		dst.Quota.VisionDailyMax = src.Quota.VisionDailyMax
	}
	if src.Quota.VisionWindowSeconds != 0 {
		dst.Quota.VisionWindowSeconds = src.Quota.VisionWindowSeconds
	}

	if src.Sessions.Max != 0 {
		dst.Sessions.Max = src.Sessions.Max
	}
	if src.Sessions.TimeoutMinutes != 0 {
		dst.Sessions.TimeoutMinutes = src.Sessions.TimeoutMinutes
	}

	if src.Trail.Enabled != nil {
		dst.Trail.Enabled = src.Trail.Enabled
	}
	if src.Trail.Dir != "" {
		dst.Trail.Dir = src.Trail.Dir
	}
}

func mergeModel(dst, src *ModelConfig) {
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Temperature != 0 {
		dst.Temperature = src.Temperature
	}
	if src.MaxTokens != 0 {
		dst.MaxTokens = src.MaxTokens
	}
}

func boolPtr(b bool) *bool {
	return &b
}
