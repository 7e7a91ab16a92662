package config

// Source fills a Config. On the initial load values are set silently, on
// later loads every changed value is propagated to the section's listeners.
type Source interface {
	Load(c *Config, initial bool) error
}

type ConfigManager struct {
	*Config
	s Source
}

func NewConfigManager(s Source) *ConfigManager {
	return &ConfigManager{
		s:      s,
		Config: DefaultConfig(),
	}
}

func (cm *ConfigManager) Load() error {
	return cm.s.Load(cm.Config, true)
}

func (cm *ConfigManager) Reload() error {
	return cm.s.Load(cm.Config, false)
}
