package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// FileName is the config file looked up in the config directory.
const FileName = "vanetsim.cfg.json"

// ErrConfigNotFound is returned by Load when no config file exists. Defaults still apply.
var ErrConfigNotFound = errors.New("config file not found")

// SimulationConfig holds run-level settings.
type SimulationConfig struct {
	Policy         string  `json:"policy" mapstructure:"policy"` // random, smart or both
	Trajectories   string  `json:"trajectories" mapstructure:"trajectories"`
	Seed           int64   `json:"seed" mapstructure:"seed"`
	NoiseAmplitude float64 `json:"noiseAmplitude" mapstructure:"noiseAmplitude"`
	MaxTicks       int     `json:"maxTicks" mapstructure:"maxTicks"`
	Snapshots      bool    `json:"snapshots" mapstructure:"snapshots"`
}

// AnalyticsConfig holds recorder settings.
type AnalyticsConfig struct {
	FlushEvery int `json:"flushEvery" mapstructure:"flushEvery"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
	StreamJSONL    bool   `json:"streamJsonl" mapstructure:"streamJsonl"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslMode" mapstructure:"sslMode"`
}

// StorageConfig selects and configures the storage backends.
type StorageConfig struct {
	Types         []string
	WriteInterval time.Duration
	Memory        MemoryConfig
	SQLite        SQLiteConfig
	Postgres      PostgresConfig
}

// InfluxConfig holds InfluxDB metrics sink settings
type InfluxConfig struct {
	Enabled    bool
	Protocol   string
	Host       string
	Port       string
	Token      string
	Org        string
	Bucket     string
	BackupPath string
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled        bool
	ServiceName    string
	BatchTimeout   time.Duration
	MetricInterval time.Duration
	Endpoint       string
	Insecure       bool
}

// MonitorConfig holds progress monitor settings
type MonitorConfig struct {
	Enabled    bool
	Interval   time.Duration
	StatusPath string
}

// GraylogConfig holds GELF logging settings
type GraylogConfig struct {
	Enabled bool
	Address string
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("simulation.policy", "both")
	viper.SetDefault("simulation.trajectories", "./simulation_data/simulation_data.json")
	viper.SetDefault("simulation.seed", 1)
	viper.SetDefault("simulation.noiseAmplitude", 0.1)
	viper.SetDefault("simulation.maxTicks", 100000)
	viper.SetDefault("simulation.snapshots", false)

	def := core.DefaultParams()
	viper.SetDefault("params.connectionDistance", def.ConnectionDistance)
	viper.SetDefault("params.numMinConnections", def.NumMinConnections)
	viper.SetDefault("params.similarityWeight", def.SimilarityWeight)
	viper.SetDefault("params.distanceWeight", def.DistanceWeight)
	viper.SetDefault("params.timeInterval", def.TimeInterval)

	viper.SetDefault("analytics.flushEvery", 10)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.writeInterval", "2s")
	viper.SetDefault("storage.memory.outputDir", "./results")
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.memory.streamJsonl", true)
	viper.SetDefault("storage.sqlite.dumpPath", "./results/vanetsim.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "1m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "vanetsim")
	viper.SetDefault("db.sslMode", "disable")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "vanetsim")
	viper.SetDefault("influx.bucket", "vanet_analytics")
	viper.SetDefault("influx.backupPath", "./results/influx_backup.lp.gz")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "1s")
	viper.SetDefault("monitor.statusPath", "") // defaults to <logsDir>/status.json

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "vanetsim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.metricInterval", "10s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load sets defaults, enables VANETSIM_ environment overrides and reads the
// JSON config file from configDir. A missing file yields ErrConfigNotFound
// with defaults in place.
func Load(configDir string) error {
	SetDefaults()

	viper.SetEnvPrefix("VANETSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return fmt.Errorf("%w in %s", ErrConfigNotFound, configDir)
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSimulationParams returns the connectivity parameters.
func GetSimulationParams() core.Params {
	return core.Params{
		ConnectionDistance: viper.GetFloat64("params.connectionDistance"),
		NumMinConnections:  viper.GetInt("params.numMinConnections"),
		SimilarityWeight:   viper.GetFloat64("params.similarityWeight"),
		DistanceWeight:     viper.GetFloat64("params.distanceWeight"),
		TimeInterval:       viper.GetFloat64("params.timeInterval"),
	}
}

// GetSimulationConfig returns the run-level settings.
func GetSimulationConfig() SimulationConfig {
	return SimulationConfig{
		Policy:         viper.GetString("simulation.policy"),
		Trajectories:   viper.GetString("simulation.trajectories"),
		Seed:           viper.GetInt64("simulation.seed"),
		NoiseAmplitude: viper.GetFloat64("simulation.noiseAmplitude"),
		MaxTicks:       viper.GetInt("simulation.maxTicks"),
		Snapshots:      viper.GetBool("simulation.snapshots"),
	}
}

// GetAnalyticsConfig returns the recorder settings.
func GetAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		FlushEvery: viper.GetInt("analytics.flushEvery"),
	}
}

// GetStorageConfig returns the storage configuration.
// storage.type may list several backends separated by commas.
func GetStorageConfig() StorageConfig {
	var types []string
	for _, t := range strings.Split(viper.GetString("storage.type"), ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			types = append(types, t)
		}
	}

	return StorageConfig{
		Types:         types,
		WriteInterval: viper.GetDuration("storage.writeInterval"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
			StreamJSONL:    viper.GetBool("storage.memory.streamJsonl"),
		},
		SQLite: SQLiteConfig{
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
			SSLMode:  viper.GetString("db.sslMode"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		Protocol:   viper.GetString("influx.protocol"),
		Host:       viper.GetString("influx.host"),
		Port:       viper.GetString("influx.port"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
	}
}

// GetMonitorConfig returns the progress monitor configuration.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:    viper.GetBool("monitor.enabled"),
		Interval:   viper.GetDuration("monitor.interval"),
		StatusPath: viper.GetString("monitor.statusPath"),
	}
}

// GetGraylogConfig returns the GELF logging configuration.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}
