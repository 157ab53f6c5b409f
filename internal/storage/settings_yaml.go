package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"tasktray/internal/ui/preferences"
)

const settingsFileName = "settings.yaml"

type yamlSettings struct {
	Notifications        *bool `yaml:"notifications"`
	NotificationSound    bool  `yaml:"notification_sound"`
	ShowUncompletedCount *bool `yaml:"show_uncompleted_count"`
	IdlePause            bool  `yaml:"idle_pause"`
	IdlePauseMinutes     int   `yaml:"idle_pause_minutes"`
	DriftWarnSeconds     int   `yaml:"drift_warn_seconds"`
}

// LoadSettings reads user preferences from YAML in dir.
// If the file does not exist, default settings are returned.
func LoadSettings(dir string) (preferences.Settings, error) {
	settings := preferences.DefaultSettings()

	rawData, err := os.ReadFile(filepath.Join(dir, settingsFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// SaveSettings writes user preferences to YAML in dir.
func SaveSettings(dir string, settings preferences.Settings) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	notifications := settings.NotificationsEnabled
	showCount := settings.ShowUncompletedCount
	fileData := yamlSettings{
		Notifications:        &notifications,
		NotificationSound:    settings.NotificationSound,
		ShowUncompletedCount: &showCount,
		IdlePause:            settings.IdlePauseEnabled,
		IdlePauseMinutes:     int(settings.IdlePauseAfter / time.Minute),
		DriftWarnSeconds:     int(settings.DriftWarnThreshold / time.Second),
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, settingsFileName), serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

func applyYamlSettings(settings *preferences.Settings, fileData yamlSettings) {
	if fileData.Notifications != nil {
		settings.NotificationsEnabled = *fileData.Notifications
	}
	if fileData.ShowUncompletedCount != nil {
		settings.ShowUncompletedCount = *fileData.ShowUncompletedCount
	}
	if fileData.IdlePauseMinutes > 0 {
		settings.IdlePauseAfter = time.Duration(fileData.IdlePauseMinutes) * time.Minute
	}
	if fileData.DriftWarnSeconds >= preferences.MinDriftWarnSeconds {
		settings.DriftWarnThreshold = time.Duration(fileData.DriftWarnSeconds) * time.Second
	}

	settings.NotificationSound = fileData.NotificationSound
	settings.IdlePauseEnabled = fileData.IdlePause
}
