package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configFileEnvName = "ESHOP_CONFIG_FILE"

// EnvProduction gates the webhook simulation endpoint off.
const EnvProduction = "production"

type objectStore struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	Bucket          string        `mapstructure:"bucket"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UsePathStyle    bool          `mapstructure:"use_path_style"`
	SignedURLTTL    time.Duration `mapstructure:"signed_url_ttl"`
}

type jobQueue struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	Stream       string        `mapstructure:"stream"`
	Group        string        `mapstructure:"group"`
	MaxLen       int64         `mapstructure:"max_len"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	BackoffBase  time.Duration `mapstructure:"backoff_base"`
	BlockTimeout time.Duration `mapstructure:"block_timeout"`
}

type broker struct {
	SeedBrokers        []string `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string `mapstructure:"schema_registry_urls"`
	ImageEventsTopic   string   `mapstructure:"image_events_topic"`
}

type Config struct {
	Env            string      `mapstructure:"env"`
	LogLevel       slog.Level  `mapstructure:"log_level"`
	HTTPServerAddr string      `mapstructure:"http_server_addr"`
	SQLDB          string      `mapstructure:"sql_db"`
	ObjectStore    objectStore `mapstructure:"object_store"`
	JobQueue       jobQueue    `mapstructure:"job_queue"`
	Broker         broker      `mapstructure:"broker"`
}

func (c Config) Production() bool {
	return c.Env == EnvProduction
}

func Load() Config {
	viper.SetConfigFile(getConfigFilepath())

	err := viper.ReadInConfig()
	if err != nil {
		die(err)
	}

	var cfg Config
	err = viper.UnmarshalExact(&cfg)
	if err != nil {
		die(err)
	}

	cfg.setDefaults()
	return cfg
}

// setDefaults fills the pipeline policy values a config file may
// omit. Connection settings stay required: missing ones surface as
// startup failures, never as a degraded mode.
func (c *Config) setDefaults() {
	if c.ObjectStore.SignedURLTTL == 0 {
		c.ObjectStore.SignedURLTTL = 10 * time.Minute
	}
	if c.JobQueue.Stream == "" {
		c.JobQueue.Stream = "image-processing"
	}
	if c.JobQueue.Group == "" {
		c.JobQueue.Group = "image-workers"
	}
	if c.JobQueue.MaxAttempts == 0 {
		c.JobQueue.MaxAttempts = 3
	}
	if c.JobQueue.BackoffBase == 0 {
		c.JobQueue.BackoffBase = time.Second
	}
	if c.JobQueue.BlockTimeout == 0 {
		c.JobQueue.BlockTimeout = 5 * time.Second
	}
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "/config.yaml", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config file: %v\n", err)
	os.Exit(2)
}

func (c Config) Print() {
	tamplate := `
	General:
	Env=%q
	LogLevel=%q
	HTTPServerAddr=%q
	SQLDB=%q

	ObjectStore:
	Endpoint=%q
	Region=%q
	Bucket=%q
	SignedURLTTL=%q

	JobQueue:
	Addr=%q
	Stream=%q
	Group=%q
	MaxAttempts=%d
	BackoffBase=%q
	BlockTimeout=%q

	Broker:
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	ImageEventsTopic=%q

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(tamplate, "\n"),
		c.Env,
		c.LogLevel,
		c.HTTPServerAddr,
		c.SQLDB,
		c.ObjectStore.Endpoint,
		c.ObjectStore.Region,
		c.ObjectStore.Bucket,
		c.ObjectStore.SignedURLTTL,
		c.JobQueue.Addr,
		c.JobQueue.Stream,
		c.JobQueue.Group,
		c.JobQueue.MaxAttempts,
		c.JobQueue.BackoffBase,
		c.JobQueue.BlockTimeout,
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.ImageEventsTopic,
	)
}
