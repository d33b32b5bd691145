package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. UNIFY_DATABASE_PASSWORD
const EnvPrefix = "UNIFY"

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Telemetry  TelemetryConfig
	Storage    StorageConfig
	Pipeline   PipelineConfig
	Advisor    AdvisorConfig
	Vocabulary map[string]map[string]string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	Path            string // sqlite file, ":memory:" for an in-process database
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	BatchSize       int // rows per insert statement
}

// RedisConfig holds the optional run lock backend
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// TelemetryConfig holds OpenTelemetry and profiling configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	ProfilingEnabled  bool
	PyroscopeAddress  string
}

// StorageConfig holds the S3-compatible raw file store
type StorageConfig struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// PipelineConfig holds the run settings
type PipelineConfig struct {
	DataDir          string
	CustomerFile     string
	ProductFile      string
	ReconFile        string
	UnstructuredFile string
	CustomerPrefix   string
	PadWidth         int
	LockTTL          time.Duration
	FreshLoad        bool
	LoadConcurrency  int
}

// AdvisorConfig holds the schema advisor client settings
type AdvisorConfig struct {
	APIKey          string
	Model           string
	Endpoint        string
	Timeout         time.Duration
	RatePerSecond   float64
	Burst           int
	MaxFailures     uint32
	BreakerInterval time.Duration
	BreakerTimeout  time.Duration
}

// Load loads configuration from config.toml and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with UNIFY_ prefix
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// the working directory, ./config and /etc/unify.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/unify")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Path:            v.GetString("database.path"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			BatchSize:       v.GetInt("database.batch_size"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeAddress:  v.GetString("telemetry.pyroscope_address"),
		},
		Storage: StorageConfig{
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
		Pipeline: PipelineConfig{
			DataDir:          v.GetString("pipeline.data_dir"),
			CustomerFile:     v.GetString("pipeline.customer_file"),
			ProductFile:      v.GetString("pipeline.product_file"),
			ReconFile:        v.GetString("pipeline.recon_file"),
			UnstructuredFile: v.GetString("pipeline.unstructured_file"),
			CustomerPrefix:   v.GetString("pipeline.customer_prefix"),
			PadWidth:         v.GetInt("pipeline.pad_width"),
			LockTTL:          v.GetDuration("pipeline.lock_ttl"),
			FreshLoad:        v.GetBool("pipeline.fresh_load"),
			LoadConcurrency:  v.GetInt("pipeline.load_concurrency"),
		},
		Advisor: AdvisorConfig{
			APIKey:          v.GetString("advisor.api_key"),
			Model:           v.GetString("advisor.model"),
			Endpoint:        v.GetString("advisor.endpoint"),
			Timeout:         v.GetDuration("advisor.timeout"),
			RatePerSecond:   v.GetFloat64("advisor.rate_per_second"),
			Burst:           v.GetInt("advisor.burst"),
			MaxFailures:     v.GetUint32("advisor.max_failures"),
			BreakerInterval: v.GetDuration("advisor.breaker_interval"),
			BreakerTimeout:  v.GetDuration("advisor.breaker_timeout"),
		},
		Vocabulary: readVocabulary(v),
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readVocabulary reads [vocabulary.<table>] sections as KEY = "LABEL" pairs
func readVocabulary(v *viper.Viper) map[string]map[string]string {
	out := make(map[string]map[string]string)
	for table := range v.GetStringMap("vocabulary") {
		entries := v.GetStringMapString("vocabulary." + table)
		if len(entries) > 0 {
			out[table] = entries
		}
	}
	return out
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "unify"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "unify.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "unify"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.BatchSize == 0 {
		cfg.Database.BatchSize = 500
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// a full run is served synchronously
		cfg.HTTP.WriteTimeout = 10 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "unify"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.PyroscopeAddress == "" {
		cfg.Telemetry.PyroscopeAddress = "http://localhost:4040"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Pipeline.DataDir == "" {
		cfg.Pipeline.DataDir = "data"
	}
	if cfg.Pipeline.CustomerFile == "" {
		cfg.Pipeline.CustomerFile = "customers_messy_data.json"
	}
	if cfg.Pipeline.ProductFile == "" {
		cfg.Pipeline.ProductFile = "products_inconsistent_data.json"
	}
	if cfg.Pipeline.ReconFile == "" {
		cfg.Pipeline.ReconFile = "reconciliation_challenge_data.csv"
	}
	if cfg.Pipeline.UnstructuredFile == "" {
		cfg.Pipeline.UnstructuredFile = "orders_unstructured_data.csv"
	}
	if cfg.Pipeline.CustomerPrefix == "" {
		cfg.Pipeline.CustomerPrefix = "CUST_"
	}
	if cfg.Pipeline.PadWidth == 0 {
		cfg.Pipeline.PadWidth = 4
	}
	if cfg.Pipeline.LockTTL == 0 {
		cfg.Pipeline.LockTTL = 30 * time.Minute
	}
	if cfg.Pipeline.LoadConcurrency == 0 {
		cfg.Pipeline.LoadConcurrency = 4
	}
	if cfg.Advisor.Model == "" {
		cfg.Advisor.Model = "gemini-1.5-flash"
	}
	if cfg.Advisor.Endpoint == "" {
		cfg.Advisor.Endpoint = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Advisor.Timeout == 0 {
		cfg.Advisor.Timeout = 30 * time.Second
	}
	if cfg.Advisor.RatePerSecond == 0 {
		cfg.Advisor.RatePerSecond = 1
	}
	if cfg.Advisor.Burst == 0 {
		cfg.Advisor.Burst = 1
	}
	if cfg.Advisor.MaxFailures == 0 {
		cfg.Advisor.MaxFailures = 3
	}
	if cfg.Advisor.BreakerInterval == 0 {
		cfg.Advisor.BreakerInterval = time.Minute
	}
	if cfg.Advisor.BreakerTimeout == 0 {
		cfg.Advisor.BreakerTimeout = 30 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Database.BatchSize <= 0 {
		return fmt.Errorf("database.batch_size must be positive")
	}
	if c.Pipeline.PadWidth < 1 || c.Pipeline.PadWidth > 12 {
		return fmt.Errorf("pipeline.pad_width must be between 1 and 12, got %d", c.Pipeline.PadWidth)
	}
	if c.Pipeline.LoadConcurrency < 1 {
		return fmt.Errorf("pipeline.load_concurrency must be positive")
	}

	if c.App.Env == "production" {
		if c.Database.Driver == "postgres" && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Advisor.RatePerSecond < 0 {
		return fmt.Errorf("advisor.rate_per_second cannot be negative")
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
