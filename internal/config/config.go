package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "Asia/Taipei"
	configPathEnv   = "WEATHER_ALERT_CONFIG"
	envPrefix       = "WAW"
)

// Config holds high-level settings required across the application.
type Config struct {
	Watch     WatchConfig    `yaml:"watch" envconfig:"WATCH"`
	Pipeline  PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Alert     AlertConfig    `yaml:"alert" envconfig:"ALERT"`
	Artifacts ArtifactConfig `yaml:"artifacts" envconfig:"ARTIFACTS"`
	History   HistoryConfig  `yaml:"history" envconfig:"HISTORY"`
	EventLog  EventLogConfig `yaml:"eventLog" envconfig:"EVENTLOG"`
	Notify    NotifyConfig   `yaml:"notify" envconfig:"NOTIFY"`
	SMTP      SMTPConfig     `yaml:"smtp" envconfig:"SMTP"`
	Push      PushConfig     `yaml:"push" envconfig:"PUSH"`
	HTTP      HTTPConfig     `yaml:"http" envconfig:"HTTP"`
	Logging   LoggingConfig  `yaml:"logging" envconfig:"LOG"`
	Timezone  string         `yaml:"timezone" envconfig:"TIMEZONE" validate:"required"`

	location *time.Location
}

// WatchConfig describes the inbound CAP directory.
type WatchConfig struct {
	Dir         string        `yaml:"dir" envconfig:"DIR" validate:"required"`
	Extension   string        `yaml:"extension" envconfig:"EXTENSION" validate:"required,startswith=."`
	SettleDelay time.Duration `yaml:"settleDelay" envconfig:"SETTLE_DELAY" validate:"gte=0"`
}

// PipelineConfig tunes batching.
type PipelineConfig struct {
	DebounceDelay time.Duration `yaml:"debounceDelay" envconfig:"DEBOUNCE_DELAY" validate:"gt=0"`
}

// AlertConfig holds the status/msgType pair marking a formal alert.
type AlertConfig struct {
	FormalStatus  string `yaml:"formalStatus" envconfig:"FORMAL_STATUS" validate:"required"`
	FormalMsgType string `yaml:"formalMsgType" envconfig:"FORMAL_MSG_TYPE" validate:"required"`
}

// ArtifactConfig names the broadcast text files and their encoding.
type ArtifactConfig struct {
	Dir           string `yaml:"dir" envconfig:"DIR" validate:"required"`
	Charset       string `yaml:"charset" envconfig:"CHARSET" validate:"omitempty,oneof=utf-8 utf8 big5"`
	Counties      string `yaml:"counties" envconfig:"COUNTIES" validate:"required"`
	Townships     string `yaml:"townships" envconfig:"TOWNSHIPS" validate:"required"`
	TestCounties  string `yaml:"testCounties" envconfig:"TEST_COUNTIES" validate:"required"`
	TestTownships string `yaml:"testTownships" envconfig:"TEST_TOWNSHIPS" validate:"required"`
}

// HistoryConfig selects the processed-identifier store.
type HistoryConfig struct {
	Backend  string `yaml:"backend" envconfig:"BACKEND" validate:"oneof=json postgres"`
	Dir      string `yaml:"dir" envconfig:"DIR" validate:"required_if=Backend json"`
	DSN      string `yaml:"dsn" envconfig:"DSN" validate:"required_if=Backend postgres"`
	Capacity int    `yaml:"capacity" envconfig:"CAPACITY" validate:"min=1"`
}

// EventLogConfig points at the dated operator log root.
type EventLogConfig struct {
	Dir string `yaml:"dir" envconfig:"DIR" validate:"required"`
}

// NotifyConfig shapes outcome reporting.
type NotifyConfig struct {
	EmailOnSuccess  bool   `yaml:"emailOnSuccess" envconfig:"EMAIL_ON_SUCCESS"`
	Subject         string `yaml:"subject" envconfig:"SUBJECT"`
	SuccessSuffix   string `yaml:"successSuffix" envconfig:"SUCCESS_SUFFIX" validate:"required,excludes=/"`
	FailureSuffix   string `yaml:"failureSuffix" envconfig:"FAILURE_SUFFIX" validate:"required,excludes=/"`
	DuplicateSuffix string `yaml:"duplicateSuffix" envconfig:"DUPLICATE_SUFFIX" validate:"omitempty,excludes=/"`
	RecentSize      int    `yaml:"recentSize" envconfig:"RECENT_SIZE" validate:"gte=0"`
}

// SMTPConfig wires the notification mailer; an empty host disables email.
type SMTPConfig struct {
	Host      string        `yaml:"host" envconfig:"HOST"`
	Port      int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	Username  string        `yaml:"username" envconfig:"USERNAME"`
	Password  string        `yaml:"password" envconfig:"PASSWORD"`
	SSL       bool          `yaml:"ssl" envconfig:"SSL"`
	Sender    string        `yaml:"sender" envconfig:"SENDER" validate:"required_with=Host"`
	Receivers []string      `yaml:"receivers" envconfig:"RECEIVERS" validate:"required_with=Host"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gte=0"`
}

// PushConfig points at the push-notification endpoint; an empty URL disables pushing.
type PushConfig struct {
	URL     string        `yaml:"url" envconfig:"URL" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gte=0"`
}

// HTTPConfig enables the status API when Addr is set.
type HTTPConfig struct {
	Addr string `yaml:"addr" envconfig:"ADDR"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"omitempty,oneof=text json"`
}

// Location resolves the configured timezone to a time.Location.
func (c Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads .env, the YAML file named by WEATHER_ALERT_CONFIG (if any) over the defaults,
// then WAW_-prefixed environment overrides, and validates the result.
func Load() (Config, error) {
	_ = godotenv.Load()
	return load(os.Getenv(configPathEnv))
}

func load(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: environment overrides: %w", err)
	}

	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return Config{}, fmt.Errorf("config: invalid: %w", verrs)
		}
		return Config{}, fmt.Errorf("config: validate: %w", err)
	}

	return cfg, nil
}

// mergeFile decodes YAML onto the current values, so absent keys keep their defaults.
func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: cannot read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: cannot parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) bindTimezone() error {
	tz := c.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("config: unknown timezone %s: %w", tz, err)
	}
	c.Timezone = tz
	c.location = loc
	return nil
}

func defaultConfig() Config {
	return Config{
		Watch: WatchConfig{
			Dir:         "thunderstorm_cap",
			Extension:   ".cap",
			SettleDelay: 200 * time.Millisecond,
		},
		Pipeline: PipelineConfig{DebounceDelay: 10 * time.Second},
		Alert:    AlertConfig{FormalStatus: "Actual", FormalMsgType: "Alert"},
		Artifacts: ArtifactConfig{
			Dir:           "thunderstorm_txt",
			Charset:       "utf-8",
			Counties:      "alarm_rain.txt",
			Townships:     "alarm_rain_smal.txt",
			TestCounties:  "test_alarm_rain.txt",
			TestTownships: "test_alarm_rain_smal.txt",
		},
		History:  HistoryConfig{Backend: "json", Dir: "weather_history", Capacity: 10},
		EventLog: EventLogConfig{Dir: "logs"},
		Notify: NotifyConfig{
			EmailOnSuccess:  true,
			Subject:         "天氣速報通知",
			SuccessSuffix:   "success",
			FailureSuffix:   "failure",
			DuplicateSuffix: "failure",
			RecentSize:      50,
		},
		SMTP:     SMTPConfig{Port: 25, Timeout: 30 * time.Second},
		Push:     PushConfig{Timeout: 10 * time.Second},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Timezone: defaultTimezone,
	}
}
