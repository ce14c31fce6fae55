package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the daemon configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	Store    StoreConfig    `yaml:"store"`
	NTC      NTCConfig      `yaml:"ntc"`
	Sampling SamplingConfig `yaml:"sampling"`
	Logging  LoggingConfig  `yaml:"logging"`
	Mock     MockConfig     `yaml:"mock"`
}

// SerialConfig contains the sensor bridge serial port configuration.
type SerialConfig struct {
	Port     string        `yaml:"port"`
	BaudRate int           `yaml:"baud_rate"`
	Timeout  time.Duration `yaml:"timeout"` // Per-request response timeout
}

// StoreConfig contains the persisted store location.
type StoreConfig struct {
	Root string `yaml:"root"` // Directory standing in for the flash file system
}

// NTCConfig contains the thermistor divider parameters of the analog channels.
type NTCConfig struct {
	SeriesResistance   float32 `yaml:"series_resistance"`   // Fixed divider resistor (Ohm), high side
	NominalResistance  float32 `yaml:"nominal_resistance"`  // Thermistor resistance at NominalTemperature (Ohm)
	NominalTemperature float32 `yaml:"nominal_temperature"` // (°C)
	Beta               float32 `yaml:"beta"`                // Beta coefficient (K)
}

// SamplingConfig contains sampling and history parameters.
type SamplingConfig struct {
	Interval      time.Duration `yaml:"interval"`
	HistoryLength int           `yaml:"history_length"` // Samples kept per sensor
}

// LoggingConfig contains diagnostic output configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// MockConfig contains simulated device configuration.
type MockConfig struct {
	OneWireDevices int           `yaml:"onewire_devices"` // Number of simulated bus devices
	Temperature    float32       `yaml:"temperature"`     // Mean simulated temperature (°C)
	Swing          float32       `yaml:"swing"`           // Amplitude of the slow drift (°C)
	Period         time.Duration `yaml:"period"`          // Period of the slow drift
	Noise          float32       `yaml:"noise"`           // Uniform noise amplitude (°C)
	NTCCode        uint16        `yaml:"ntc_code"`        // ADC code reported on every analog channel
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
			Timeout:  500 * time.Millisecond,
		},
		Store: StoreConfig{
			Root: "flash",
		},
		NTC: NTCConfig{
			SeriesResistance:   10000,
			NominalResistance:  10000,
			NominalTemperature: 25,
			Beta:               3950,
		},
		Sampling: SamplingConfig{
			Interval:      10 * time.Second,
			HistoryLength: 360, // One hour at the default interval
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Mock: MockConfig{
			OneWireDevices: 2,
			Temperature:    21.5,
			Swing:          1.5,
			Period:         10 * time.Minute,
			Noise:          0.05,
			NTCCode:        2048, // Divider midpoint, about the nominal temperature
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.Timeout <= 0 {
		c.Serial.Timeout = def.Serial.Timeout
	}

	if c.Store.Root == "" {
		c.Store.Root = def.Store.Root
	}

	if c.NTC.SeriesResistance == 0 {
		c.NTC.SeriesResistance = def.NTC.SeriesResistance
	}
	if c.NTC.NominalResistance == 0 {
		c.NTC.NominalResistance = def.NTC.NominalResistance
	}
	if c.NTC.Beta == 0 {
		c.NTC.Beta = def.NTC.Beta
	}
	// NominalTemperature of 0 °C is legitimate, so it is not defaulted

	if c.Sampling.Interval <= 0 {
		c.Sampling.Interval = def.Sampling.Interval
	}
	if c.Sampling.HistoryLength <= 0 {
		c.Sampling.HistoryLength = def.Sampling.HistoryLength
	}

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}

	if c.Mock.Period == 0 {
		c.Mock.Period = def.Mock.Period
	}
	if c.Mock.NTCCode == 0 {
		c.Mock.NTCCode = def.Mock.NTCCode
	}
}
