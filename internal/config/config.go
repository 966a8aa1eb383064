package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database   *dbConfig
	Service    *svcConfig
	Extraction *extractionConfig
	Reconcile  *reconcileConfig
	Events     *eventsConfig
}

type dbConfig struct {
	Type      string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname  string `envconfig:"DB_HOST" default:"localhost"`
	Port      string `envconfig:"DB_PORT" default:"5432"`
	Name      string `envconfig:"DB_NAME" default:"tracker"`
	User      string `envconfig:"DB_USER" default:"admin"`
	Password  string `envconfig:"DB_PASS" default:"adminpass"`
	ProjectID string `envconfig:"FIRESTORE_PROJECT_ID" default:""`
}

type svcConfig struct {
	Address         string   `envconfig:"TRACKER_ADDRESS" default:":3443"`
	MetricsAddress  string   `envconfig:"TRACKER_METRICS_ADDRESS" default:":8080"`
	FrontendURL     string   `envconfig:"TRACKER_FRONTEND_URL" default:"http://localhost:3000"`
	LogLevel        string   `envconfig:"TRACKER_LOG_LEVEL" default:"info"`
	LogFormat       string   `envconfig:"TRACKER_LOG_FORMAT" default:"console"`
	MigrationFolder string   `envconfig:"TRACKER_MIGRATIONS_FOLDER" default:""`
	PoliciesFolder  string   `envconfig:"TRACKER_POLICIES_FOLDER" default:""`
	CorsOrigins     []string `envconfig:"TRACKER_CORS_ORIGINS" default:"http://localhost:3000"`
	Auth            Auth
}

type Auth struct {
	AuthenticationType string `envconfig:"TRACKER_AUTH" default:""`
	JwtSecret          string `envconfig:"TRACKER_JWT_SECRET" default:""`
	JwkCertURL         string `envconfig:"TRACKER_JWK_URL" default:""`
}

type extractionConfig struct {
	BaseURL      string        `envconfig:"EXTRACTION_BASE_URL" default:""`
	TokenURL     string        `envconfig:"EXTRACTION_TOKEN_URL" default:""`
	ClientID     string        `envconfig:"EXTRACTION_CLIENT_ID" default:""`
	ClientSecret string        `envconfig:"EXTRACTION_CLIENT_SECRET" default:""`
	Timeout      time.Duration `envconfig:"EXTRACTION_TIMEOUT" default:"10s"`
}

type reconcileConfig struct {
	Workers                int           `envconfig:"RECONCILE_WORKERS" default:"4"`
	MaxConsecutiveFailures int           `envconfig:"RECONCILE_MAX_CONSECUTIVE_FAILURES" default:"3"`
	SweepInterval          time.Duration `envconfig:"RECONCILE_SWEEP_INTERVAL" default:"0s"`
	SweepPrincipal         string        `envconfig:"RECONCILE_SWEEP_PRINCIPAL" default:""`
}

type eventsConfig struct {
	SinkURL        string `envconfig:"EVENTS_SINK_URL" default:""`
	Topic          string `envconfig:"EVENTS_TOPIC" default:"io.docuflow.tracker.events"`
	BufferCapacity int    `envconfig:"EVENTS_BUFFER_CAPACITY" default:"1000"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a config backed by an in-memory sqlite database.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{
			Type: "sqlite",
			Name: "file::memory:?cache=shared",
		},
		Service: &svcConfig{
			Address:        ":3443",
			MetricsAddress: ":8080",
			FrontendURL:    "http://localhost:3000",
			LogLevel:       "debug",
			LogFormat:      "console",
			CorsOrigins:    []string{"http://localhost:3000"},
			Auth: Auth{
				AuthenticationType: "none",
			},
		},
		Extraction: &extractionConfig{
			Timeout: 10 * time.Second,
		},
		Reconcile: &reconcileConfig{
			Workers:                4,
			MaxConsecutiveFailures: 3,
		},
		Events: &eventsConfig{
			Topic:          "io.docuflow.tracker.events",
			BufferCapacity: 1000,
		},
	}
}
