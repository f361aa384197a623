package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/host"
	"github.com/spf13/viper"
)

// ServiceName is the MQTT topic root and the prefix of the Home Assistant
// device identity.
const ServiceName = "pijuicemqtt"

// Version reported in the autodiscovery device block.
const Version = "1.0.0"

type Config struct {
	MQTT                MQTTConfig          `mapstructure:"mqtt"`
	HomeAssistant       HomeAssistantConfig `mapstructure:"homeassistant"`
	Metrics             MetricsConfig       `mapstructure:"metrics"`
	PublishPeriod       int                 `mapstructure:"publish_period"`
	Hostname            string              `mapstructure:"hostname"`
	PublishOnlineStatus bool                `mapstructure:"publish_online_status"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type HomeAssistantConfig struct {
	Topic       string `mapstructure:"topic"`
	Sensor      bool   `mapstructure:"sensor"`
	ExpireAfter int    `mapstructure:"expire_after"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// Load reads the configuration file at path. The file must exist; defaults
// only fill in the keys it leaves out. The result is never mutated after
// startup.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("mqtt.broker", "127.0.0.1")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("homeassistant.topic", "homeassistant")
	v.SetDefault("homeassistant.sensor", true)
	v.SetDefault("homeassistant.expire_after", 0)
	v.SetDefault("publish_period", 30)
	v.SetDefault("hostname", defaultHostname())
	v.SetDefault("publish_online_status", false)
	v.SetDefault("metrics.listen", "")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.PublishPeriod <= 0 {
		return fmt.Errorf("publish_period must be positive, got %d", c.PublishPeriod)
	}
	if c.Hostname == "" {
		return fmt.Errorf("hostname must not be empty")
	}
	return nil
}

// PublishInterval is the gap between the end of one publish cycle and the
// start of the next.
func (c *Config) PublishInterval() time.Duration {
	return time.Duration(c.PublishPeriod) * time.Second
}

// AvailabilityTopic carries the retained online/offline state.
func (c *Config) AvailabilityTopic() string {
	return fmt.Sprintf("%s/%s/service", ServiceName, c.Hostname)
}

// StatusTopic carries the periodic telemetry JSON.
func (c *Config) StatusTopic() string {
	return fmt.Sprintf("%s/%s/status", ServiceName, c.Hostname)
}

// DeviceID is the stable identity used for the MQTT client id, the Home
// Assistant device identifier and the unique_id prefix of every sensor.
func (c *Config) DeviceID() string {
	return fmt.Sprintf("%s-%s", ServiceName, c.Hostname)
}

func defaultHostname() string {
	if info, err := host.Info(); err == nil && info.Hostname != "" {
		return info.Hostname
	}
	name, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return name
}
