// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Workflow WorkflowConfig          `mapstructure:"workflow"`
	Crypto   CryptoConfig            `mapstructure:"crypto"`
	Audit    AuditConfig             `mapstructure:"audit"`
	HTTP     HTTPConfig              `mapstructure:"http"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Logging  LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// CamundaConfig configures the Zeebe client. An empty broker address
// disables the job worker; the HTTP endpoint is still served.
type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkflowConfig carries the registration workflow settings.
type WorkflowConfig struct {
	Instance struct {
		BeginningStage string `mapstructure:"beginning_stage"`
	} `mapstructure:"instance"`
	LostRID struct {
		// Carried for parity with the platform configuration; intake always
		// starts at iteration 1.
		IterationMaxCount int `mapstructure:"iteration_max_count"`
	} `mapstructure:"lostrid"`
	Intake struct {
		Atomic bool `mapstructure:"atomic"`
	} `mapstructure:"intake"`
}

const (
	CryptoModeLocal      = "local"
	CryptoModeKeyManager = "keymanager"
)

// CryptoConfig selects how optional values are encrypted.
type CryptoConfig struct {
	Mode       string `mapstructure:"mode"`
	MasterKey  string `mapstructure:"master_key"` // base64, 32 bytes
	KeyManager struct {
		BaseURL       string `mapstructure:"base_url"`
		ApplicationID string `mapstructure:"application_id"`
		Timeout       int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"keymanager"`
}

const (
	SinkLog           = "log"
	SinkPostgres      = "postgres"
	SinkElasticsearch = "elasticsearch"
	SinkRedis         = "redis"
	SinkKafka         = "kafka"
	SinkSNS           = "sns"
)

// AuditConfig lists the audit sinks and their targets.
type AuditConfig struct {
	Sinks              []string `mapstructure:"sinks"`
	ElasticsearchIndex string   `mapstructure:"elasticsearch_index"`
	RedisStream        string   `mapstructure:"redis_stream"`
	Kafka              struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`
	SNS struct {
		TopicARN string `mapstructure:"topic_arn"`
		Region   string `mapstructure:"region"`
	} `mapstructure:"sns"`
}

// HasSink reports whether the named sink is enabled.
func (a AuditConfig) HasSink(name string) bool {
	for _, s := range a.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

type HTTPConfig struct {
	Address      string `mapstructure:"address"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
