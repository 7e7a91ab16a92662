package structs

// OldNew describes a single configuration value that changed on reload.
type OldNew struct {
	ParamPath []string
	Name      string
	Old       any
	New       any
}

// ConfigChangeListener is notified about reloaded configuration values.
type ConfigChangeListener interface {
	OnConfigChange(OldNew) error
}
