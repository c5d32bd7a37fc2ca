package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/edvin/commerce-messaging/internal/crypto"
	"github.com/edvin/commerce-messaging/internal/engine"
	"github.com/edvin/commerce-messaging/internal/model"
)

type Config struct {
	ServiceName string
	LogLevel    string

	DatabaseURL    string
	HTTPListenAddr string
	MetricsAddr    string

	TemporalAddress       string
	TemporalNamespace     string
	TemporalTLSCert       string
	TemporalTLSKey        string
	TemporalTLSCACert     string
	TemporalTLSServerName string

	// TaskQueue is the single queue a worker process is bound to.
	TaskQueue string

	ChannelAPIURL     string
	ChannelAPITimeout time.Duration

	SyncWaitTimeout   time.Duration
	SettleDelay       time.Duration
	FanOutConcurrency int
	// DefaultOrgID is the organization assumed for events without an
	// orgContext. Empty leaves such events invalid.
	DefaultOrgID string

	WorkerMaxConcurrentActivities int
	WorkerMaxConcurrentWorkflows  int

	AMQPURL      string
	AMQPExchange string

	// ActivityPolicyFile points to an optional YAML file of per-activity
	// retry policy overrides.
	ActivityPolicyFile string
	ActivityPolicies   map[string]engine.RetryPolicy

	// APIKeyHashes are hex SHA-256 digests of the keys accepted by the
	// gateway's workflow endpoints. Empty disables key checks.
	APIKeyHashes []string

	// CredentialsKey decrypts channel tokens stored at rest. Empty means
	// tokens are stored in plaintext.
	CredentialsKey []byte
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:           getEnv("SERVICE_NAME", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		HTTPListenAddr:        getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:           getEnv("METRICS_ADDR", ""),
		TemporalAddress:       getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalNamespace:     getEnv("TEMPORAL_NAMESPACE", "default"),
		TemporalTLSCert:       getEnv("TEMPORAL_TLS_CERT", ""),
		TemporalTLSKey:        getEnv("TEMPORAL_TLS_KEY", ""),
		TemporalTLSCACert:     getEnv("TEMPORAL_TLS_CA_CERT", ""),
		TemporalTLSServerName: getEnv("TEMPORAL_TLS_SERVER_NAME", ""),
		TaskQueue:             getEnv("TASK_QUEUE", ""),
		ChannelAPIURL:         getEnv("CHANNEL_API_URL", ""),
		AMQPURL:               getEnv("AMQP_URL", ""),
		AMQPExchange:          getEnv("AMQP_EXCHANGE", "messaging.events"),
		ActivityPolicyFile:    getEnv("ACTIVITY_POLICY_FILE", ""),
		DefaultOrgID:          getEnv("DEFAULT_ORG_ID", ""),
		APIKeyHashes:          getList("API_KEY_HASHES"),
	}

	var err error
	if v := os.Getenv("CREDENTIALS_KEY"); v != "" {
		if cfg.CredentialsKey, err = crypto.ParseKey(v); err != nil {
			return nil, fmt.Errorf("parse CREDENTIALS_KEY: %w", err)
		}
	}
	if cfg.ChannelAPITimeout, err = getDuration("CHANNEL_API_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SyncWaitTimeout, err = getDuration("SYNC_WAIT_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SettleDelay, err = getDuration("SETTLE_DELAY", 0); err != nil {
		return nil, err
	}
	if cfg.FanOutConcurrency, err = getInt("FAN_OUT_CONCURRENCY", model.DefaultFanOutConcurrency); err != nil {
		return nil, err
	}
	if cfg.WorkerMaxConcurrentActivities, err = getInt("WORKER_MAX_CONCURRENT_ACTIVITIES", 0); err != nil {
		return nil, err
	}
	if cfg.WorkerMaxConcurrentWorkflows, err = getInt("WORKER_MAX_CONCURRENT_WORKFLOWS", 0); err != nil {
		return nil, err
	}

	if cfg.ActivityPolicyFile != "" {
		policies, err := LoadActivityPolicies(cfg.ActivityPolicyFile)
		if err != nil {
			return nil, err
		}
		cfg.ActivityPolicies = policies
	}

	return cfg, nil
}

// Validate checks that the fields required by the given binary are set.
func (c *Config) Validate(role string) error {
	var missing []string

	switch role {
	case "gateway":
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
		if c.TemporalAddress == "" {
			missing = append(missing, "TEMPORAL_ADDRESS")
		}
		if c.HTTPListenAddr == "" {
			missing = append(missing, "HTTP_LISTEN_ADDR")
		}
	case "worker":
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
		if c.TemporalAddress == "" {
			missing = append(missing, "TEMPORAL_ADDRESS")
		}
		if c.TaskQueue == "" {
			missing = append(missing, "TASK_QUEUE")
		}
		if c.ChannelAPIURL == "" {
			missing = append(missing, "CHANNEL_API_URL")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if role == "worker" && !knownQueue(c.TaskQueue) {
		return fmt.Errorf("TASK_QUEUE %q is not a known task queue", c.TaskQueue)
	}

	if (c.TemporalTLSCert == "") != (c.TemporalTLSKey == "") {
		return fmt.Errorf("TEMPORAL_TLS_CERT and TEMPORAL_TLS_KEY must both be set")
	}

	if c.FanOutConcurrency < 1 {
		return fmt.Errorf("FAN_OUT_CONCURRENCY must be at least 1")
	}

	return nil
}

func knownQueue(q string) bool {
	for _, t := range model.StartableWorkflowTypes {
		if t.TaskQueue() == q {
			return true
		}
	}
	return false
}

func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, strings.ToLower(v))
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
