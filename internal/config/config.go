package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/openrange-trading/openrange/internal/types"
	"github.com/openrange-trading/openrange/pkg/errors"
)

// TimeOfDay is a wall-clock time within a trading session, in UTC.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return TimeOfDay{}, errors.Newf(errors.ErrCodeInvalidSessionTimes, "invalid time of day %q, want HH:MM", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, errors.Newf(errors.ErrCodeInvalidSessionTimes, "invalid hour in %q", s)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, errors.Newf(errors.ErrCodeInvalidSessionTimes, "invalid minute in %q", s)
	}

	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// On anchors the time of day onto the given date in UTC.
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour, t.Minute, 0, 0, time.UTC)
}

// MinuteOfDay returns the time as minutes since midnight, for ordering checks.
func (t TimeOfDay) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

// Add returns the time of day shifted forward by the given number of minutes,
// wrapping at midnight.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	total := (t.MinuteOfDay() + minutes) % (24 * 60)
	if total < 0 {
		total += 24 * 60
	}

	return TimeOfDay{Hour: total / 60, Minute: total % 60}
}

// String implements fmt.Stringer.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// DatabaseConfig holds the PostgreSQL connection settings for the bar cache.
type DatabaseConfig struct {
	Host     string `yaml:"host" json:"host" jsonschema:"title=Host" validate:"required"`
	Port     int    `yaml:"port" json:"port" jsonschema:"title=Port" validate:"required,min=1,max=65535"`
	Name     string `yaml:"name" json:"name" jsonschema:"title=Database Name" validate:"required"`
	User     string `yaml:"user" json:"user" jsonschema:"title=User" validate:"required"`
	Password string `yaml:"password" json:"password" jsonschema:"title=Password"`
	SSLMode  string `yaml:"ssl_mode" json:"ssl_mode" jsonschema:"title=SSL Mode"`
}

// DSN builds a keyword/value PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, sslMode)
}

// ProviderConfig selects and configures the remote market-data API.
type ProviderConfig struct {
	Type            string `yaml:"type" json:"type" jsonschema:"title=Provider Type" validate:"required,oneof=polygon alpaca"`
	PolygonAPIKey   string `yaml:"polygon_api_key" json:"polygon_api_key" jsonschema:"title=Polygon API Key" validate:"required_if=Type polygon"`
	AlpacaAPIKey    string `yaml:"alpaca_api_key" json:"alpaca_api_key" jsonschema:"title=Alpaca API Key" validate:"required_if=Type alpaca"`
	AlpacaAPISecret string `yaml:"alpaca_api_secret" json:"alpaca_api_secret" jsonschema:"title=Alpaca API Secret" validate:"required_if=Type alpaca"`
	UseCache        bool   `yaml:"use_cache" json:"use_cache" jsonschema:"title=Use Cache,description=Serve requests from the PostgreSQL cache before hitting the API"`
}

// StrategyConfig holds the ORB rule parameters. All session times are UTC.
type StrategyConfig struct {
	RangeStart   string         `yaml:"range_start" json:"range_start" jsonschema:"title=Range Start,description=Opening range window start (HH:MM UTC)" validate:"required"`
	RangeEnd     string         `yaml:"range_end" json:"range_end" jsonschema:"title=Range End" validate:"required"`
	EntryStart   string         `yaml:"entry_start" json:"entry_start" jsonschema:"title=Entry Start" validate:"required"`
	EntryEnd     string         `yaml:"entry_end" json:"entry_end" jsonschema:"title=Entry End" validate:"required"`
	ForceExit    string         `yaml:"force_exit" json:"force_exit" jsonschema:"title=Force Exit" validate:"required"`
	ProfitTarget float64        `yaml:"profit_target" json:"profit_target" jsonschema:"title=Profit Target,description=Take-profit as a fraction of entry price,minimum=0" validate:"gt=0"`
	StopLoss     float64        `yaml:"stop_loss" json:"stop_loss" jsonschema:"title=Stop Loss,minimum=0" validate:"gt=0"`
	Interval     types.Interval `yaml:"interval" json:"interval" jsonschema:"title=Bar Interval" validate:"required"`
}

// Session is the parsed, validated form of the StrategyConfig session times.
type Session struct {
	RangeStart TimeOfDay
	RangeEnd   TimeOfDay
	EntryStart TimeOfDay
	EntryEnd   TimeOfDay
	ForceExit  TimeOfDay
}

// Session parses the session time strings and checks their ordering.
func (s StrategyConfig) Session() (Session, error) {
	var (
		session Session
		err     error
	)

	if session.RangeStart, err = ParseTimeOfDay(s.RangeStart); err != nil {
		return Session{}, err
	}

	if session.RangeEnd, err = ParseTimeOfDay(s.RangeEnd); err != nil {
		return Session{}, err
	}

	if session.EntryStart, err = ParseTimeOfDay(s.EntryStart); err != nil {
		return Session{}, err
	}

	if session.EntryEnd, err = ParseTimeOfDay(s.EntryEnd); err != nil {
		return Session{}, err
	}

	if session.ForceExit, err = ParseTimeOfDay(s.ForceExit); err != nil {
		return Session{}, err
	}

	if session.RangeEnd.MinuteOfDay() <= session.RangeStart.MinuteOfDay() {
		return Session{}, errors.New(errors.ErrCodeInvalidSessionTimes, "range_end must be after range_start")
	}

	if session.EntryEnd.MinuteOfDay() <= session.EntryStart.MinuteOfDay() {
		return Session{}, errors.New(errors.ErrCodeInvalidSessionTimes, "entry_end must be after entry_start")
	}

	if session.EntryStart.MinuteOfDay() < session.RangeEnd.MinuteOfDay() {
		return Session{}, errors.New(errors.ErrCodeInvalidSessionTimes, "entry window must not overlap the opening range")
	}

	return session, nil
}

// BacktestConfig holds the run-level backtest settings.
type BacktestConfig struct {
	InitialCapital float64                    `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,minimum=0" validate:"gt=0"`
	CommissionRate float64                    `yaml:"commission_rate" json:"commission_rate" jsonschema:"title=Commission Rate,description=One-way commission as a fraction of notional,minimum=0" validate:"gte=0"`
	Symbols        []string                   `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols" validate:"required,min=1"`
	StartDate      optional.Option[time.Time] `yaml:"start_date" json:"start_date" jsonschema:"title=Start Date"`
	EndDate        optional.Option[time.Time] `yaml:"end_date" json:"end_date" jsonschema:"title=End Date"`
	ResultsFolder  string                     `yaml:"results_folder" json:"results_folder" jsonschema:"title=Results Folder" validate:"required"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestConfig so the
// optional dates round-trip through plain YAML timestamps.
func (c *BacktestConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain struct {
		InitialCapital float64    `yaml:"initial_capital"`
		CommissionRate float64    `yaml:"commission_rate"`
		Symbols        []string   `yaml:"symbols"`
		StartDate      *time.Time `yaml:"start_date"`
		EndDate        *time.Time `yaml:"end_date"`
		ResultsFolder  string     `yaml:"results_folder"`
	}

	var p plain
	if err := unmarshal(&p); err != nil {
		return err
	}

	c.InitialCapital = p.InitialCapital
	c.CommissionRate = p.CommissionRate
	c.Symbols = p.Symbols
	c.ResultsFolder = p.ResultsFolder

	if p.StartDate != nil {
		c.StartDate = optional.Some(*p.StartDate)
	}

	if p.EndDate != nil {
		c.EndDate = optional.Some(*p.EndDate)
	}

	return nil
}

// Config is the root configuration document.
type Config struct {
	Database DatabaseConfig `yaml:"database" json:"database" validate:"required"`
	Provider ProviderConfig `yaml:"provider" json:"provider" validate:"required"`
	Strategy StrategyConfig `yaml:"strategy" json:"strategy" validate:"required"`
	Backtest BacktestConfig `yaml:"backtest" json:"backtest" validate:"required"`
}

// Load reads, env-expands, and validates a YAML configuration file.
func Load(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return Parse(string(content))
}

// Parse parses and validates a YAML configuration document.
func Parse(content string) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	cfg.applyEnvDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// applyEnvDefaults fills empty credential fields from the environment,
// mirroring the DB_* and provider key variables used by the CLI commands.
func (c *Config) applyEnvDefaults() {
	if c.Database.Host == "" {
		c.Database.Host = envOr("DB_HOST", "localhost")
	}

	if c.Database.Port == 0 {
		if port, err := strconv.Atoi(envOr("DB_PORT", "5432")); err == nil {
			c.Database.Port = port
		}
	}

	if c.Database.Name == "" {
		c.Database.Name = envOr("DB_NAME", "market_data")
	}

	if c.Database.User == "" {
		c.Database.User = envOr("DB_USER", "postgres")
	}

	if c.Database.Password == "" {
		c.Database.Password = envOr("DB_PASSWORD", "postgres")
	}

	if c.Provider.PolygonAPIKey == "" {
		c.Provider.PolygonAPIKey = os.Getenv("POLYGON_API_KEY")
	}

	if c.Provider.AlpacaAPIKey == "" {
		c.Provider.AlpacaAPIKey = os.Getenv("ALPACA_API_KEY")
	}

	if c.Provider.AlpacaAPISecret == "" {
		c.Provider.AlpacaAPISecret = os.Getenv("ALPACA_API_SECRET")
	}
}

// Validate checks the structural constraints plus the cross-field rules the
// validator tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if !c.Strategy.Interval.Valid() {
		return errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval %q", c.Strategy.Interval)
	}

	if _, err := c.Strategy.Session(); err != nil {
		return err
	}

	if c.Backtest.StartDate.IsSome() && c.Backtest.EndDate.IsSome() {
		if c.Backtest.EndDate.Unwrap().Before(c.Backtest.StartDate.Unwrap()) {
			return errors.New(errors.ErrCodeInvalidDateRange, "end_date must not be before start_date")
		}
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
