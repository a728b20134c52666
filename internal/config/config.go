// Package config loads sprintloom settings from an optional YAML file and
// SPRINTLOOM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/joshharrison/sprintloom/internal/calendar"
	"github.com/joshharrison/sprintloom/internal/cpm"
	"github.com/joshharrison/sprintloom/internal/diag"
	"github.com/joshharrison/sprintloom/internal/tracker"
)

// EnvPrefix prefixes every environment override, e.g. SPRINTLOOM_LOGGER_LEVEL.
const EnvPrefix = "SPRINTLOOM"

// Config is the full application configuration.
type (
	Config struct {
		Calendar Calendar `mapstructure:"calendar"`
		Schedule Schedule `mapstructure:"schedule"`
		Tracker  Tracker  `mapstructure:"tracker"`
		Store    Store    `mapstructure:"store"`
		Logger   Logger   `mapstructure:"logger"`
		Viewer   Viewer   `mapstructure:"viewer"`
		State    State    `mapstructure:"state"`

		// File is the config file that was read, if any.
		File string `mapstructure:"-"`
	}

	// Calendar holds the working week and holidays.
	Calendar struct {
		WorkingDays []string `mapstructure:"working_days"`
		Holidays    []string `mapstructure:"holidays"`
	}

	// Schedule holds defaults for scheduling runs.
	Schedule struct {
		Start  string `mapstructure:"start"`
		Anchor string `mapstructure:"anchor"` // "sink" or "project"
	}

	// Tracker controls how tracker exports are normalized.
	Tracker struct {
		StoryPointsField string             `mapstructure:"story_points_field"`
		HoursPerDay      float64            `mapstructure:"hours_per_day"`
		CapacityHours    map[string]float64 `mapstructure:"capacity_hours"`
	}

	// Store locates the project database.
	Store struct {
		Path string `mapstructure:"path"`
	}

	// Logger configures zap.
	Logger struct {
		Level         string                `mapstructure:"level"`
		Encoding      string                `mapstructure:"encoding"`
		EncoderConfig zapcore.EncoderConfig `mapstructure:"encoderConfig"`
	}

	// Viewer configures the graph HTTP viewer.
	Viewer struct {
		Port int `mapstructure:"port"`
	}

	// State locates the last-used selection memory.
	State struct {
		Dir string `mapstructure:"dir"`
	}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("calendar.working_days", []string{"mon", "tue", "wed", "thu", "fri"})
	v.SetDefault("calendar.holidays", []string{})
	v.SetDefault("schedule.start", "")
	v.SetDefault("schedule.anchor", "sink")
	v.SetDefault("tracker.story_points_field", tracker.DefaultStoryPointsField)
	v.SetDefault("tracker.hours_per_day", tracker.DefaultHoursPerDay)
	v.SetDefault("tracker.capacity_hours", map[string]float64{})
	v.SetDefault("store.path", ".sprintloom/sprintloom.db")
	v.SetDefault("logger.level", "warn")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.encoderConfig.messageKey", "msg")
	v.SetDefault("logger.encoderConfig.levelKey", "level")
	v.SetDefault("logger.encoderConfig.timeKey", "ts")
	v.SetDefault("logger.encoderConfig.nameKey", "logger")
	v.SetDefault("viewer.port", 7777)
	v.SetDefault("state.dir", ".sprintloom")
}

// addZapEncoderConfig fills encoder config with zapcore types
func addZapEncoderConfig(cfg *zapcore.EncoderConfig) {
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.SecondsDurationEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	cfg.EncodeName = func(s string, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString("[" + s + "]")
	}
}

// Load reads the configuration. An explicit path must exist; otherwise
// sprintloom.yaml is looked up in the working directory and
// $HOME/.config/sprintloom and silently skipped when absent.
func Load(path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sprintloom")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/sprintloom")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	addZapEncoderConfig(&cfg.Logger.EncoderConfig)
	return &cfg, v, nil
}

// BuildCalendar builds the engine calendar from the calendar section.
func (c *Config) BuildCalendar() (*calendar.Calendar, error) {
	days := make([]time.Weekday, 0, len(c.Calendar.WorkingDays))
	for _, s := range c.Calendar.WorkingDays {
		wd, err := calendar.ParseWeekday(s)
		if err != nil {
			return nil, err
		}
		days = append(days, wd)
	}
	holidays := make([]time.Time, 0, len(c.Calendar.Holidays))
	for _, s := range c.Calendar.Holidays {
		d, err := calendar.ParseDate(s)
		if err != nil {
			return nil, diag.Configf("holidays", "%v", err)
		}
		holidays = append(holidays, d)
	}
	return calendar.New(days, holidays)
}

// Anchor returns the configured CPM backward-pass anchor.
func (c *Config) Anchor() (cpm.Anchor, error) {
	switch strings.ToLower(c.Schedule.Anchor) {
	case "", "sink":
		return cpm.AnchorSinkFinish, nil
	case "project":
		return cpm.AnchorProjectFinish, nil
	default:
		return 0, diag.Configf("schedule.anchor", "unknown anchor %q (want sink or project)", c.Schedule.Anchor)
	}
}

// StartDate returns the configured schedule start, or the zero time.
func (c *Config) StartDate() (time.Time, error) {
	if c.Schedule.Start == "" {
		return time.Time{}, nil
	}
	d, err := calendar.ParseDate(c.Schedule.Start)
	if err != nil {
		return time.Time{}, diag.Configf("schedule.start", "%v", err)
	}
	return d, nil
}

// TrackerOptions returns the normalization options for tracker exports.
func (c *Config) TrackerOptions() tracker.Options {
	return tracker.Options{
		StoryPointsField: c.Tracker.StoryPointsField,
		HoursPerDay:      c.Tracker.HoursPerDay,
	}
}

// CapacityFor returns the configured daily hours of an assignee. Config keys
// are case-insensitive, so the lookup is too.
func (c *Config) CapacityFor(assignee string) (float64, bool) {
	for name, hours := range c.Tracker.CapacityHours {
		if strings.EqualFold(name, assignee) {
			return hours, true
		}
	}
	return 0, false
}
