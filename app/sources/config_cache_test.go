package sources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigCacheLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "example", `
url: "https://example.com/feed.xml"

settings:
  enabled: true
  refresh_interval: 1800
  timeout: 15
  extract_content: true

filters:
  - field: "title"
    includes:
      - "technology"
    excludes:
      - "spam"
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 source config, got %d", configCache.GetConfigCount())
	}

	sourceConfig, err := configCache.GetConfig("example")
	if err != nil {
		t.Fatal(err)
	}

	if sourceConfig.Name != "example" {
		t.Errorf("Expected name 'example', got '%s'", sourceConfig.Name)
	}
	if sourceConfig.URL != "https://example.com/feed.xml" {
		t.Errorf("Expected URL 'https://example.com/feed.xml', got '%s'", sourceConfig.URL)
	}
	if sourceConfig.Settings.RefreshInterval != 1800 {
		t.Errorf("Expected refresh interval 1800, got %d", sourceConfig.Settings.RefreshInterval)
	}
	if sourceConfig.Settings.Timeout != 15 {
		t.Errorf("Expected timeout 15, got %d", sourceConfig.Settings.Timeout)
	}
	if !sourceConfig.Settings.ExtractContent {
		t.Error("Expected content extraction to be enabled")
	}
	if len(sourceConfig.Filters) != 1 || sourceConfig.Filters[0].Excludes[0] != "spam" {
		t.Errorf("Expected 1 filter excluding 'spam', got %+v", sourceConfig.Filters)
	}
}

func TestConfigCacheLoadConfigWithDefaults(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "minimal", `url: "https://example.com/feed.xml"`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	sourceConfig, err := configCache.GetConfig("minimal")
	if err != nil {
		t.Fatal(err)
	}

	if !sourceConfig.Settings.Enabled {
		t.Error("Expected source to be enabled by default")
	}
	if sourceConfig.Settings.RefreshInterval != defaultRefreshInterval {
		t.Errorf("Expected default refresh interval %d, got %d", defaultRefreshInterval, sourceConfig.Settings.RefreshInterval)
	}
	if sourceConfig.Settings.Timeout != defaultTimeout {
		t.Errorf("Expected default timeout %d, got %d", defaultTimeout, sourceConfig.Settings.Timeout)
	}
}

func TestConfigCacheEnabledConfigs(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "on", `url: "https://example.com/on.xml"`)
	writeSource(t, tempDir, "off", `
url: "https://example.com/off.xml"
settings:
  enabled: false
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if len(configCache.GetConfigs()) != 2 {
		t.Errorf("Expected 2 configs, got %d", len(configCache.GetConfigs()))
	}

	enabled := configCache.GetEnabledConfigs()
	if len(enabled) != 1 {
		t.Fatalf("Expected 1 enabled config, got %d", len(enabled))
	}
	if _, ok := enabled["on"]; !ok {
		t.Error("Expected 'on' to be enabled")
	}
}

func TestConfigCacheInvalidConfigs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"missing url", `settings: {enabled: true}`, "source URL is required"},
		{"negative timeout", "url: \"https://example.com\"\nsettings:\n  timeout: -1", "timeout must be non-negative"},
		{"malformed yaml", "url: [", "failed to parse YAML"},
		{"unknown filter field", "url: \"https://example.com\"\nfilters:\n  - field: category\n    includes: [go]", "invalid filter field"},
		{"empty filter", "url: \"https://example.com\"\nfilters:\n  - field: title", "at least one include or exclude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeSource(t, tempDir, "broken", tt.content)

			err := NewConfigCache(tempDir).Run()
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("Expected error containing '%s', got: %s", tt.errText, err.Error())
			}
		})
	}
}

func TestConfigCacheMissingDirectory(t *testing.T) {
	configCache := NewConfigCache(filepath.Join(t.TempDir(), "absent"))
	if err := configCache.Run(); err != nil {
		t.Errorf("Expected no error for missing directory, got: %v", err)
	}
	if configCache.GetConfigCount() != 0 {
		t.Errorf("Expected 0 configs, got %d", configCache.GetConfigCount())
	}
}

func TestConfigCacheGetConfigNotFound(t *testing.T) {
	configCache := NewConfigCache(t.TempDir())
	if _, err := configCache.GetConfig("unknown"); err == nil {
		t.Error("Expected error for unknown source")
	}
}
