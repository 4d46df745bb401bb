package config

func preset(edit func(c *Config)) *Config {
	c := DefaultConfig()
	edit(c)
	return c
}

var Presets = map[string]map[string]*Config{
	"indmach012": {
		"nameplate": preset(func(c *Config) {}),
		"sag": preset(func(c *Config) {
			c.Duration = 1.0
			c.Disturbance = DisturbanceConfig{At: 0.2, Duration: 0.1, VoltagePU: 0.7}
		}),
		"unbalanced": preset(func(c *Config) {
			c.Bus.NegSeqPU = 0.03
		}),
		"fixed-slip": preset(func(c *Config) {
			c.Machine.SlipOption = "fixed"
		}),
		"generator": preset(func(c *Config) {
			c.Rating.KW = -900
			c.Machine.Slip = -0.007
		}),
		"heavy": preset(func(c *Config) {
			c.Machine.H = 0.5
			c.Duration = 3.0
			c.Disturbance = DisturbanceConfig{At: 0.5, Duration: 0.2, VoltagePU: 0.5}
		}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, name string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	return names
}
