// file: internal/config/persistence_test.go
// version: 2.0.0
// guid: c3d4e5f6-a7b8-9c0d-1e2f-3a4b5c6d7e8f

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestSettingsFilePath(t *testing.T) {
	AppConfig = Config{DatabasePath: "/data/db/state"}
	if got := SettingsFilePath(); got != "/data/db/config.yaml" {
		t.Errorf("SettingsFilePath() = %q", got)
	}

	AppConfig = Config{LibraryRoot: "/library"}
	if got := SettingsFilePath(); got != "/library/config.yaml" {
		t.Errorf("SettingsFilePath() = %q", got)
	}

	AppConfig = Config{}
	if got := SettingsFilePath(); got != "" {
		t.Errorf("SettingsFilePath() = %q, want empty", got)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	AppConfig = Config{
		LibraryRoot:    dir,
		DatabaseType:   "pebble",
		MatchThreshold: 70,
		AudibleRegion:  "co.uk",
		OpenAIModel:    "gpt-4o-mini",
	}
	if err := SaveToFile(); err != nil {
		t.Fatal(err)
	}

	// Loading into an empty config fills the gaps.
	AppConfig = Config{LibraryRoot: dir}
	if err := LoadFromFile(); err != nil {
		t.Fatal(err)
	}

	if AppConfig.AudibleRegion != "co.uk" {
		t.Errorf("audible_region = %q", AppConfig.AudibleRegion)
	}
	if AppConfig.MatchThreshold != 70 {
		t.Errorf("match_threshold = %v", AppConfig.MatchThreshold)
	}
	if AppConfig.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("openai_model = %q", AppConfig.OpenAIModel)
	}
}

func TestLoadFromFileDoesNotOverride(t *testing.T) {
	dir := t.TempDir()

	AppConfig = Config{LibraryRoot: dir, AudibleRegion: "de"}
	if err := SaveToFile(); err != nil {
		t.Fatal(err)
	}

	AppConfig = Config{LibraryRoot: dir, AudibleRegion: "com"}
	if err := LoadFromFile(); err != nil {
		t.Fatal(err)
	}

	// Flag/env value wins over the file.
	if AppConfig.AudibleRegion != "com" {
		t.Errorf("audible_region = %q, want com", AppConfig.AudibleRegion)
	}
}

func TestLoadFromFileMissingIsNoError(t *testing.T) {
	AppConfig = Config{LibraryRoot: t.TempDir()}
	if err := LoadFromFile(); err != nil {
		t.Errorf("missing settings file should not error: %v", err)
	}
}

func TestLoadFromFileCorruptIsNoError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{not yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	AppConfig = Config{LibraryRoot: dir}
	if err := LoadFromFile(); err != nil {
		t.Errorf("corrupt settings file should log and continue: %v", err)
	}
}

func TestSaveToFileOmitsAPIKey(t *testing.T) {
	dir := t.TempDir()

	AppConfig = Config{LibraryRoot: dir, OpenAIAPIKey: "sk-secret"}
	if err := SaveToFile(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "" && containsSecret(string(data)) {
		t.Error("API key must not be persisted to the settings file")
	}

	viper.Reset()
}

func containsSecret(s string) bool {
	for i := 0; i+9 <= len(s); i++ {
		if s[i:i+9] == "sk-secret" {
			return true
		}
	}
	return false
}
