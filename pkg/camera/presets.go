package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetLegacy  = "legacy"
	Preset720p    = "720p"
	PresetFast    = "fast"
	PresetFlipped = "flipped"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetLegacy:  LegacyConfig(),
		Preset720p:    HD720Config(),
		PresetFast:    FastConfig(),
		PresetFlipped: FlippedConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLegacy,
		Preset720p,
		PresetFast,
		PresetFlipped,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// HD720Config returns 720p configuration for long range shots.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// FastConfig trades resolution for frame rate while the robot is moving.
func FastConfig() Config {
	cfg := LegacyConfig()
	cfg.Framerate = 60
	return cfg
}

// FlippedConfig is the default for a camera mounted upside down.
func FlippedConfig() Config {
	cfg := DefaultConfig()
	cfg.Flip = "both"
	return cfg
}
