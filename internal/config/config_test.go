package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadIncludesIngestionDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PDF_MONTHLY_LIMIT", "")
	t.Setenv("OCR_API_URL", "")
	t.Setenv("AI_BASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PDFMonthlyLimit != 25000 {
		t.Fatalf("expected default pdf limit 25000, got %d", cfg.PDFMonthlyLimit)
	}
	if cfg.OCRAPIURL != "https://api.ocr.space/parse/image" {
		t.Fatalf("unexpected default ocr url %q", cfg.OCRAPIURL)
	}
	if cfg.AIBaseURL != "https://openrouter.ai/api/v1" {
		t.Fatalf("unexpected default ai url %q", cfg.AIBaseURL)
	}
	if cfg.APIPort != "8080" {
		t.Fatalf("expected default api port 8080, got %q", cfg.APIPort)
	}
}

func TestLoadParsesEnvironmentOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PDF_MONTHLY_LIMIT", "500")
	t.Setenv("OCR_REQUESTS_PER_SECOND", "0.5")
	t.Setenv("AI_MODEL", "other/model")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PDFMonthlyLimit != 500 {
		t.Fatalf("expected pdf limit override 500, got %d", cfg.PDFMonthlyLimit)
	}
	if cfg.OCRRequestsPerSecond != 0.5 {
		t.Fatalf("expected ocr rps 0.5, got %v", cfg.OCRRequestsPerSecond)
	}
	if cfg.AIModel != "other/model" {
		t.Fatalf("expected ai model override, got %q", cfg.AIModel)
	}
}

func TestLoadAppliesYAMLOverlayBelowEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("api_port: \"9000\"\npdf_monthly_limit: 100\nai_model: file-model\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "")
	t.Setenv("PDF_MONTHLY_LIMIT", "")
	t.Setenv("AI_MODEL", "env-model")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "9000" {
		t.Fatalf("expected file port 9000, got %q", cfg.APIPort)
	}
	if cfg.PDFMonthlyLimit != 100 {
		t.Fatalf("expected file pdf limit 100, got %d", cfg.PDFMonthlyLimit)
	}
	if cfg.AIModel != "env-model" {
		t.Fatalf("expected env to win over file, got %q", cfg.AIModel)
	}
}

func TestLoadRejectsUnreadableConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
