package main

import (
	"fmt"
	"os"

	"github.com/naoina/toml"

	"github.com/cgxeiji/hbcurve"
)

type tomlConfigPlot struct {
	Min   float64 `toml:"min"`
	Max   float64 `toml:"max"`
	Steps int     `toml:"steps"`
}

type tomlConfigOutput struct {
	Format string `toml:"format"` // csv or json
	File   string `toml:"file"`   // stdout when empty
}

type tomlConfigSensor struct {
	Enabled  bool   `toml:"enabled"`
	Bus      string `toml:"bus"`
	Addr     uint16 `toml:"addr"`
	PollRate int    `toml:"poll_rate"` // seconds
	Count    int    `toml:"count"`     // readings before exiting, 0 runs until interrupted
}

// MQTT settings for overall configuration
type tomlConfigMQTT struct {
	BrokerHost     string `toml:"broker_host"`
	BrokerPort     int    `toml:"broker_port"`
	BrokerUsername string `toml:"broker_username"`
	BrokerPassword string `toml:"broker_password"`
	ClientId       string `toml:"client_id"`
	TopicPrefix    string `toml:"topic_prefix"`
}

type tomlConfigInflux struct {
	Hostname    string `toml:"hostname"`
	Port        int    `toml:"port"`
	Database    string `toml:"database"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	Measurement string `toml:"measurement"`
}

type tomlConfig struct {
	Patient hbcurve.Inputs   `toml:"patient"`
	Plot    tomlConfigPlot   `toml:"plot"`
	Output  tomlConfigOutput `toml:"output"`
	Sensor  tomlConfigSensor `toml:"sensor"`
	Mqtt    tomlConfigMQTT   `toml:"mqtt"`
	Influx  tomlConfigInflux `toml:"influx"`
}

const (
	formatCSV  = "csv"
	formatJSON = "json"
)

// defaultConfig matches the chart of the standard curve: x from 0 to 110
// mmHg, one sample per mmHg, standard patient.
func defaultConfig() tomlConfig {
	return tomlConfig{
		Patient: hbcurve.Standard,
		Plot: tomlConfigPlot{
			Min:   0,
			Max:   110,
			Steps: 110,
		},
		Output: tomlConfigOutput{
			Format: formatCSV,
		},
		Sensor: tomlConfigSensor{
			PollRate: 1,
		},
	}
}

// loadConfig decodes the file over the defaults. An empty name returns the
// defaults.
func loadConfig(name string) (tomlConfig, error) {
	cfg := defaultConfig()
	if name == "" {
		return cfg, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return cfg, fmt.Errorf("could not open config: %w", err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("could not decode config %s: %w", name, err)
	}

	return cfg, nil
}

func (c *tomlConfig) validate() error {
	switch c.Output.Format {
	case formatCSV, formatJSON:
	default:
		return fmt.Errorf("unknown output format %q, want %q or %q", c.Output.Format, formatCSV, formatJSON)
	}
	if c.Sensor.Enabled && c.Sensor.PollRate < 1 {
		return fmt.Errorf("sensor poll rate must be at least 1 second, got %d", c.Sensor.PollRate)
	}
	if c.Mqtt != (tomlConfigMQTT{}) && c.Mqtt.TopicPrefix == "" {
		c.Mqtt.TopicPrefix = "hbcurve"
	}
	if c.Influx != (tomlConfigInflux{}) && c.Influx.Measurement == "" {
		c.Influx.Measurement = "hbcurve"
	}
	return nil
}
