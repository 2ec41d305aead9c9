// file: internal/config/persistence.go
// version: 2.0.0
// guid: 9c8d7e6f-5a4b-3c2d-1e0f-9a8b7c6d5e4f

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileSettings is the subset of settings persisted to the YAML file.
// Secrets stay in the environment unless the user puts them here.
type fileSettings struct {
	LibraryRoot      string  `yaml:"library_root,omitempty"`
	InboxDir         string  `yaml:"inbox_dir,omitempty"`
	DatabasePath     string  `yaml:"database_path,omitempty"`
	DatabaseType     string  `yaml:"database_type,omitempty"`
	MatchThreshold   float64 `yaml:"match_threshold,omitempty"`
	AudibleRegion    string  `yaml:"audible_region,omitempty"`
	OpenAIAPIKey     string  `yaml:"openai_api_key,omitempty"`
	OpenAIBaseURL    string  `yaml:"openai_base_url,omitempty"`
	OpenAIModel      string  `yaml:"openai_model,omitempty"`
	MediaServerURL   string  `yaml:"media_server_url,omitempty"`
	MediaServerToken string  `yaml:"media_server_token,omitempty"`
}

// SettingsFilePath returns the path to the YAML settings file next to
// the database, falling back to the library root.
func SettingsFilePath() string {
	if AppConfig.DatabasePath != "" {
		return filepath.Join(filepath.Dir(AppConfig.DatabasePath), "config.yaml")
	}
	if AppConfig.LibraryRoot != "" {
		return filepath.Join(AppConfig.LibraryRoot, "config.yaml")
	}
	return ""
}

// LoadFromFile fills empty AppConfig fields from the YAML settings file.
// Called after InitConfig so flags and environment always win.
func LoadFromFile() error {
	path := SettingsFilePath()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read settings file: %w", err)
	}

	var fs fileSettings
	if err := yaml.Unmarshal(data, &fs); err != nil {
		log.Printf("[WARN] failed to parse settings file %s: %v", path, err)
		return nil
	}

	applied := 0
	stringFallbacks := []struct {
		val  string
		dest *string
	}{
		{fs.LibraryRoot, &AppConfig.LibraryRoot},
		{fs.InboxDir, &AppConfig.InboxDir},
		{fs.DatabaseType, &AppConfig.DatabaseType},
		{fs.AudibleRegion, &AppConfig.AudibleRegion},
		{fs.OpenAIAPIKey, &AppConfig.OpenAIAPIKey},
		{fs.OpenAIBaseURL, &AppConfig.OpenAIBaseURL},
		{fs.OpenAIModel, &AppConfig.OpenAIModel},
		{fs.MediaServerURL, &AppConfig.MediaServerURL},
		{fs.MediaServerToken, &AppConfig.MediaServerToken},
	}
	for _, f := range stringFallbacks {
		if *f.dest == "" && f.val != "" {
			*f.dest = f.val
			applied++
		}
	}
	if AppConfig.MatchThreshold == 0 && fs.MatchThreshold > 0 {
		AppConfig.MatchThreshold = fs.MatchThreshold
		applied++
	}

	if applied > 0 {
		log.Printf("[INFO] loaded %d settings from %s", applied, path)
	}
	return nil
}

// SaveToFile writes the persistable settings to the YAML file. Written
// atomically: temp file then rename.
func SaveToFile() error {
	path := SettingsFilePath()
	if path == "" {
		return fmt.Errorf("no settings file path (set database_path or library_root)")
	}

	fs := fileSettings{
		LibraryRoot:      AppConfig.LibraryRoot,
		InboxDir:         AppConfig.InboxDir,
		DatabasePath:     AppConfig.DatabasePath,
		DatabaseType:     AppConfig.DatabaseType,
		MatchThreshold:   AppConfig.MatchThreshold,
		AudibleRegion:    AppConfig.AudibleRegion,
		OpenAIBaseURL:    AppConfig.OpenAIBaseURL,
		OpenAIModel:      AppConfig.OpenAIModel,
		MediaServerURL:   AppConfig.MediaServerURL,
		MediaServerToken: AppConfig.MediaServerToken,
	}

	data, err := yaml.Marshal(&fs)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace settings file: %w", err)
	}

	log.Printf("[DEBUG] saved settings to %s", path)
	return nil
}
