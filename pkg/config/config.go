package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the tag and host configuration.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Transport TransportConfig `yaml:"transport"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Battery   BatteryConfig   `yaml:"battery"`
	Clock     ClockConfig     `yaml:"clock"`
	Command   CommandConfig   `yaml:"command"`
	Mock      MockConfig      `yaml:"mock"`
	Host      HostConfig      `yaml:"host"`
}

// DeviceConfig identifies the tag.
type DeviceConfig struct {
	Name string `yaml:"name"` // Advertised name; the last letter marks the wrist (L/R)
}

// TransportConfig contains the tag's byte-stream configuration.
type TransportConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	Capacity    int           `yaml:"capacity"`     // Largest single write (bytes)
	ReadTimeout time.Duration `yaml:"read_timeout"` // How long a read waits for data
}

// ScheduleConfig contains task periods.
type ScheduleConfig struct {
	Sensor           time.Duration `yaml:"sensor"`
	Transmit         time.Duration `yaml:"transmit"`
	BatterySample    time.Duration `yaml:"battery_sample"`
	BatteryAggregate time.Duration `yaml:"battery_aggregate"`
	Clock            time.Duration `yaml:"clock"`
	Ingest           time.Duration `yaml:"ingest"`
	Process          time.Duration `yaml:"process"`
	TokenTimeout     time.Duration `yaml:"token_timeout"` // Bounded wait for the sample buffer
}

// BatteryConfig contains the ADC to voltage conversion.
type BatteryConfig struct {
	MilliVoltsPerLSB float64 `yaml:"mv_per_lsb"`
	Divider          float64 `yaml:"divider"` // VBAT divider compensation factor
}

// ClockConfig contains the software RTC settings.
type ClockConfig struct {
	BootTime string `yaml:"boot_time"` // "YYYY/MM/DD HH:MM:SS"
}

// CommandConfig contains time-sync command handling.
type CommandConfig struct {
	Strict      bool          `yaml:"strict"`       // Reject out-of-range calendar fields
	MaxLine     int           `yaml:"max_line"`     // Longest accepted inbound line
	IdleTimeout time.Duration `yaml:"idle_timeout"` // Quiet time that ends an unterminated line
}

// MockConfig contains simulated sensor configuration.
type MockConfig struct {
	AccelAmplitude float64       `yaml:"accel_amplitude"` // Peak wrist acceleration (g)
	GyroAmplitude  float64       `yaml:"gyro_amplitude"`  // Peak angular rate (dps)
	MotionPeriod   time.Duration `yaml:"motion_period"`   // Arm swing period
	NoiseLevel     float64       `yaml:"noise_level"`     // Sensor noise (g, dps)
	TempC          float64       `yaml:"temp_c"`          // Die temperature (°C)
	BatteryFull    float64       `yaml:"battery_full"`    // Cell voltage at start (V)
	BatteryEmpty   float64       `yaml:"battery_empty"`   // Cell voltage when flat (V)
	DischargeTime  time.Duration `yaml:"discharge_time"`  // Time from full to empty
}

// HostConfig contains receiver configuration.
type HostConfig struct {
	Port       string `yaml:"port"`
	BaudRate   int    `yaml:"baud_rate"`
	BufferSize int    `yaml:"buffer_size"` // Frame channel capacity
	CSVDir     string `yaml:"csv_dir"`     // Empty disables the CSV sink
	SQLitePath string `yaml:"sqlite_path"` // Empty disables the SQLite sink
	MQTTBroker string `yaml:"mqtt_broker"` // Empty disables the MQTT sink
	MQTTTopic  string `yaml:"mqtt_topic"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Name: "IMU1",
		},
		Transport: TransportConfig{
			Port:        "/dev/ttyGS0", // USB gadget serial on the tag
			BaudRate:    115200,
			Capacity:    1000,
			ReadTimeout: time.Millisecond,
		},
		Schedule: ScheduleConfig{
			Sensor:           125 * time.Millisecond, // 8 frames/s, 32 samples/s
			Transmit:         125 * time.Millisecond,
			BatterySample:    125 * time.Millisecond,
			BatteryAggregate: time.Second,
			Clock:            time.Second,
			Ingest:           10 * time.Millisecond,
			Process:          10 * time.Millisecond,
			TokenTimeout:     10 * time.Millisecond,
		},
		Battery: BatteryConfig{
			MilliVoltsPerLSB: 3600.0 / 1024.0, // 10-bit ADC, 3.6 V range
			Divider:          3.004008,
		},
		Clock: ClockConfig{
			BootTime: "2023/09/30 15:00:00",
		},
		Command: CommandConfig{
			Strict:      false,
			MaxLine:     64,
			IdleTimeout: time.Second,
		},
		Mock: MockConfig{
			AccelAmplitude: 0.5,
			GyroAmplitude:  120,
			MotionPeriod:   time.Second,
			NoiseLevel:     0.01,
			TempC:          31.5,
			BatteryFull:    4.16,
			BatteryEmpty:   3.3,
			DischargeTime:  8 * time.Hour,
		},
		Host: HostConfig{
			Port:       "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			BaudRate:   115200,
			BufferSize: 100,
			MQTTTopic:  "imutag",
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

// ensureDefaults replaces zero values that would stall a task or break a
// conversion with their defaults.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Device.Name == "" {
		c.Device.Name = def.Device.Name
	}

	if c.Transport.BaudRate == 0 {
		c.Transport.BaudRate = def.Transport.BaudRate
	}
	if c.Transport.Capacity == 0 {
		c.Transport.Capacity = def.Transport.Capacity
	}
	if c.Transport.ReadTimeout == 0 {
		c.Transport.ReadTimeout = def.Transport.ReadTimeout
	}

	durations := []struct {
		v   *time.Duration
		def time.Duration
	}{
		{&c.Schedule.Sensor, def.Schedule.Sensor},
		{&c.Schedule.Transmit, def.Schedule.Transmit},
		{&c.Schedule.BatterySample, def.Schedule.BatterySample},
		{&c.Schedule.BatteryAggregate, def.Schedule.BatteryAggregate},
		{&c.Schedule.Clock, def.Schedule.Clock},
		{&c.Schedule.Ingest, def.Schedule.Ingest},
		{&c.Schedule.Process, def.Schedule.Process},
		{&c.Schedule.TokenTimeout, def.Schedule.TokenTimeout},
		{&c.Command.IdleTimeout, def.Command.IdleTimeout},
		{&c.Mock.MotionPeriod, def.Mock.MotionPeriod},
		{&c.Mock.DischargeTime, def.Mock.DischargeTime},
	}
	for _, d := range durations {
		if *d.v <= 0 {
			*d.v = d.def
		}
	}

	if c.Battery.MilliVoltsPerLSB == 0 {
		c.Battery.MilliVoltsPerLSB = def.Battery.MilliVoltsPerLSB
	}
	if c.Battery.Divider == 0 {
		c.Battery.Divider = def.Battery.Divider
	}

	if c.Clock.BootTime == "" {
		c.Clock.BootTime = def.Clock.BootTime
	}

	if c.Command.MaxLine == 0 {
		c.Command.MaxLine = def.Command.MaxLine
	}

	if c.Mock.BatteryFull == 0 {
		c.Mock.BatteryFull = def.Mock.BatteryFull
	}
	if c.Mock.BatteryEmpty == 0 {
		c.Mock.BatteryEmpty = def.Mock.BatteryEmpty
	}

	if c.Host.Port == "" {
		c.Host.Port = def.Host.Port
	}
	if c.Host.BaudRate == 0 {
		c.Host.BaudRate = def.Host.BaudRate
	}
	if c.Host.BufferSize == 0 {
		c.Host.BufferSize = def.Host.BufferSize
	}
	if c.Host.MQTTTopic == "" {
		c.Host.MQTTTopic = def.Host.MQTTTopic
	}
}
