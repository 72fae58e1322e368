package llm

import (
	"context"
	"os"
)

// FallbackModel is used when neither the environment nor the settings store
// names a model.
const FallbackModel = "openai/gpt-oss-20b"

// SettingKey is the global-settings row that stores the active model id.
const SettingKey = "openrouter_model"

// SettingsSource reads a persisted global setting. A missing key reads as "".
type SettingsSource interface {
	GetSetting(ctx context.Context, key string) (string, error)
}

// ModelConfig resolves which model to use: env override, then the persisted
// setting, then the hardcoded fallback.
type ModelConfig struct {
	settings SettingsSource
}

// NewModelConfig builds a resolver over the given settings source, which may
// be nil when no store is available.
func NewModelConfig(settings SettingsSource) *ModelConfig {
	return &ModelConfig{settings: settings}
}

// Resolve picks the model id for a call. The settings store being unreachable
// degrades to the fallback rather than failing the call.
func (m *ModelConfig) Resolve(ctx context.Context) string {
	if env := os.Getenv("OPENROUTER_MODEL"); env != "" {
		return env
	}
	if m.settings != nil {
		value, err := m.settings.GetSetting(ctx, SettingKey)
		if err == nil && value != "" {
			return value
		}
	}
	return FallbackModel
}
