package projectconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_ReturnsAllDefaults(t *testing.T) {
	cfg := New()

	// Models
	assertEqual(t, "Models.Vision.Model", DefaultVisionModel, cfg.Models.Vision.Model)
	assertEqualFloat(t, "Models.Vision.Temperature", 0.1, cfg.Models.Vision.Temperature)
	assertEqualInt(t, "Models.Vision.MaxTokens", 2000, cfg.Models.Vision.MaxTokens)
	assertEqual(t, "Models.IdealAnswer.Model", DefaultIdealAnswerModel, cfg.Models.IdealAnswer.Model)
	assertEqual(t, "Models.Advocate.Model", DefaultAdvocateModel, cfg.Models.Advocate.Model)
	assertEqual(t, "Models.Critic.Model", DefaultCriticModel, cfg.Models.Critic.Model)
	assertEqualFloat(t, "Models.Critic.Temperature", 0.2, cfg.Models.Critic.Temperature)
	assertEqual(t, "Models.Synthesizer.Model", DefaultSynthesizerModel, cfg.Models.Synthesizer.Model)
	assertEqualInt(t, "Models.Synthesizer.MaxTokens", 4000, cfg.Models.Synthesizer.MaxTokens)

	// Providers
	assertEqual(t, "Providers.OpenRouterBaseURL", DefaultOpenRouterBaseURL, cfg.Providers.OpenRouterBaseURL)
	assertEqual(t, "Providers.GeminiBaseURL", DefaultGeminiBaseURL, cfg.Providers.GeminiBaseURL)
	assertEqualFloat(t, "Providers.USDToNPR", DefaultUSDToNPR, cfg.Providers.USDToNPR)

	// Quota
	assertEqualInt(t, "Quota.VisionDailyMax", DefaultVisionDailyMax, cfg.Quota.VisionDailyMax)
	assertEqualInt(t, "Quota.VisionWindowSeconds", DefaultVisionWindowSeconds, cfg.Quota.VisionWindowSeconds)

	// Sessions
	assertEqualInt(t, "Sessions.Max", DefaultMaxSessions, cfg.Sessions.Max)
	assertEqualInt(t, "Sessions.TimeoutMinutes", DefaultSessionTimeoutMinutes, cfg.Sessions.TimeoutMinutes)

	// Trail
	assertBoolPtr(t, "Trail.Enabled", false, cfg.Trail.Enabled)
	assertEqual(t, "Trail.Dir", DefaultTrailDir, cfg.Trail.Dir)
}

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".evaluator.yaml", `
models:
  vision:
    model: gemini-2.0-flash
    temperature: 0.2
  synthesizer:
    model: qwen/qwen3-235b-a22b
    max_tokens: 6000
providers:
  openrouter_base_url: "http://localhost:8080/v1"
  usd_to_npr: 140.5
quota:
  vision_daily_max: 100
sessions:
  max: 50
  timeout_minutes: 10
trail:
  enabled: true
  dir: "trails/"
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	assertEqual(t, "Models.Vision.Model", "gemini-2.0-flash", cfg.Models.Vision.Model)
	assertEqualFloat(t, "Models.Vision.Temperature", 0.2, cfg.Models.Vision.Temperature)
	// Unset fields keep their defaults.
	assertEqualInt(t, "Models.Vision.MaxTokens", 2000, cfg.Models.Vision.MaxTokens)
	assertEqual(t, "Models.Synthesizer.Model", "qwen/qwen3-235b-a22b", cfg.Models.Synthesizer.Model)
	assertEqualInt(t, "Models.Synthesizer.MaxTokens", 6000, cfg.Models.Synthesizer.MaxTokens)
	assertEqual(t, "Models.Advocate.Model", DefaultAdvocateModel, cfg.Models.Advocate.Model)

	assertEqual(t, "Providers.OpenRouterBaseURL", "http://localhost:8080/v1", cfg.Providers.OpenRouterBaseURL)
	assertEqual(t, "Providers.GeminiBaseURL", DefaultGeminiBaseURL, cfg.Providers.GeminiBaseURL)
	assertEqualFloat(t, "Providers.USDToNPR", 140.5, cfg.Providers.USDToNPR)

	assertEqualInt(t, "Quota.VisionDailyMax", 100, cfg.Quota.VisionDailyMax)
	assertEqualInt(t, "Sessions.Max", 50, cfg.Sessions.Max)
	assertEqualInt(t, "Sessions.TimeoutMinutes", 10, cfg.Sessions.TimeoutMinutes)
	assertBoolPtr(t, "Trail.Enabled", true, cfg.Trail.Enabled)
	assertEqual(t, "Trail.Dir", "trails/", cfg.Trail.Dir)
}

func TestLoad_NoConfigFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertEqual(t, "Models.Vision.Model", DefaultVisionModel, cfg.Models.Vision.Model)
}

func TestLoad_WalksUpToParent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".evaluator.yaml", `
sessions:
  max: 7
`)
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(nested)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertEqualInt(t, "Sessions.Max", 7, cfg.Sessions.Max)
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".evaluator.yaml", "models: [not a mapping")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestAPIKeysComeFromEnvironment(t *testing.T) {
	t.Setenv(EnvOpenRouterAPIKey, "sk-or-test")
	t.Setenv(EnvGoogleAIAPIKey, "ai-studio-test")

	if got := OpenRouterAPIKey(); got != "sk-or-test" {
		t.Errorf("OpenRouterAPIKey = %q", got)
	}
	if got := GoogleAIAPIKey(); got != "ai-studio-test" {
		t.Errorf("GoogleAIAPIKey = %q", got)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func assertEqual(t *testing.T, field, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %q, want %q", field, got, want)
	}
}

func assertEqualInt(t *testing.T, field string, want, got int) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %d, want %d", field, got, want)
	}
}

func assertEqualFloat(t *testing.T, field string, want, got float64) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %v, want %v", field, got, want)
	}
}

func assertBoolPtr(t *testing.T, field string, want bool, got *bool) {
	t.Helper()
	if got == nil {
		t.Errorf("%s = nil, want %v", field, want)
		return
	}
	if *got != want {
		t.Errorf("%s = %v, want %v", field, *got, want)
	}
}
