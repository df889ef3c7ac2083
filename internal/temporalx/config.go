package temporalx

import (
	"strings"
	"time"

	"github.com/yungbote/deskbase-backend/internal/platform/config"
)

type Config struct {
	Address   string `env:"TEMPORAL_ADDRESS"`
	Namespace string `env:"TEMPORAL_NAMESPACE" envDefault:"deskbase"`
	TaskQueue string `env:"TEMPORAL_TASK_QUEUE" envDefault:"deskbase-reconcile"`

	ClientCertPath string `env:"TEMPORAL_CLIENT_CERT_PATH"`
	ClientKeyPath  string `env:"TEMPORAL_CLIENT_KEY_PATH"`
	ClientCAPath   string `env:"TEMPORAL_CLIENT_CA_PATH"`

	AutoRegisterNamespace bool `env:"TEMPORAL_AUTO_REGISTER_NAMESPACE" envDefault:"false"`
	RetentionDays         int  `env:"TEMPORAL_NAMESPACE_RETENTION_DAYS" envDefault:"7"`
	WorkerConcurrency     int  `env:"WORKER_CONCURRENCY" envDefault:"4"`

	// DialTimeout bounds one connection attempt; ConnectMaxWait bounds the
	// whole retry loop of dialing and of starting the worker.
	DialTimeout    time.Duration `env:"TEMPORAL_DIAL_TIMEOUT" envDefault:"5s"`
	ConnectMaxWait time.Duration `env:"TEMPORAL_CONNECT_MAX_WAIT" envDefault:"60s"`
	Backoff        Backoff       `envPrefix:"TEMPORAL_BACKOFF_"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Address = strings.TrimSpace(c.Address)
	c.Namespace = stringsOr(c.Namespace, "deskbase")
	c.TaskQueue = stringsOr(c.TaskQueue, "deskbase-reconcile")
	c.WorkerConcurrency = max(c.WorkerConcurrency, 1)
	c.RetentionDays = min(max(c.RetentionDays, 1), 365)
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
}

// Enabled reports whether a Temporal frontend is configured.
func (c Config) Enabled() bool { return strings.TrimSpace(c.Address) != "" }

func (c Config) mtls() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}

func stringsOr(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
