package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/features"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/ingest"
)

// EnvPrefix is prepended to every environment override, e.g.
// BURNOUT_SERVER_PORT.
const EnvPrefix = "BURNOUT"

// DateLayout is the format of reference_date.
const DateLayout = "2006-01-02"

type Config struct {
	ModelPath     string `mapstructure:"model_path" validate:"required"`
	Convention    string `mapstructure:"convention" validate:"oneof=raw normalized"`
	ReferenceDate string `mapstructure:"reference_date" validate:"datetime=2006-01-02"`
	Workers       int    `mapstructure:"workers" validate:"min=1,max=256"`
	LogLevel      string `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	Output        string `mapstructure:"output" validate:"oneof=text json"`

	History HistoryConfig `mapstructure:"history"`
	Server  ServerConfig  `mapstructure:"server"`
	Sheet   SheetConfig   `mapstructure:"sheet"`
	Dataset DatasetConfig `mapstructure:"dataset"`
}

// HistoryConfig controls the SQLite run history.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	DataDir       string `mapstructure:"data_dir" validate:"required_if=Enabled true"`
	Pseudonymize  bool   `mapstructure:"pseudonymize"`
	Salt          string `mapstructure:"salt"`
	RetentionDays int    `mapstructure:"retention_days" validate:"min=0"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port" validate:"required,numeric"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	RatePerMin     int           `mapstructure:"rate_per_min" validate:"min=1"`
	MaxUploadMB    int64         `mapstructure:"max_upload_mb" validate:"min=1"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type SheetConfig struct {
	Name      string `mapstructure:"name"`
	HeaderRow int    `mapstructure:"header_row" validate:"min=0"`
}

type DatasetConfig struct {
	Dir          string `mapstructure:"dir" validate:"required"`
	BinaryTarget bool   `mapstructure:"binary_target"`
}

// SetDefaults registers every key so environment overrides and Unmarshal
// see them even without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("model_path", "models/model.json")
	v.SetDefault("convention", features.ConventionRaw)
	v.SetDefault("reference_date", features.DefaultReferenceDate.Format(DateLayout))
	v.SetDefault("workers", 1)
	v.SetDefault("log_level", "info")
	v.SetDefault("output", "text")

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.data_dir", "./data")
	v.SetDefault("history.pseudonymize", true)
	v.SetDefault("history.salt", "")
	v.SetDefault("history.retention_days", 365)

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("server.rate_per_min", 60)
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("server.cache_ttl", "15m")
	v.SetDefault("server.request_timeout", "30s")

	defaults := ingest.DefaultSheetOptions()
	v.SetDefault("sheet.name", defaults.Name)
	v.SetDefault("sheet.header_row", defaults.HeaderRow)

	v.SetDefault("dataset.dir", "data/processed")
	v.SetDefault("dataset.binary_target", false)
}

// New returns a viper instance with defaults and environment overrides
// wired. Flags are bound by the caller.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file into v, then decodes and validates.
// The file type follows its extension (yaml, json, toml, env).
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("reading config file %s", file), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.NewConfigurationError("decoding configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and reports every failing key.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewConfigurationError("validating configuration", err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fieldKey(fe.Namespace()), fe.Tag()))
	}
	sort.Strings(fields)
	return apperrors.NewConfigurationError("invalid configuration: "+strings.Join(fields, ", "), err)
}

// FeatureConvention resolves the configured convention.
func (c *Config) FeatureConvention() (features.Convention, error) {
	conv, err := features.ConventionByName(c.Convention)
	if err != nil {
		return features.Convention{}, apperrors.NewConfigurationError("unknown convention", err)
	}
	return conv, nil
}

// Reference returns the parsed reference date. Validate guarantees it parses.
func (c *Config) Reference() time.Time {
	t, err := time.Parse(DateLayout, c.ReferenceDate)
	if err != nil {
		return features.DefaultReferenceDate
	}
	return t
}

// SheetOptions converts the sheet section for the ingest package.
func (c *Config) SheetOptions() ingest.SheetOptions {
	return ingest.SheetOptions{Name: c.Sheet.Name, HeaderRow: c.Sheet.HeaderRow}
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

// fieldKey turns "Config.Server.RatePerMin" into "Server.RatePerMin".
func fieldKey(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
