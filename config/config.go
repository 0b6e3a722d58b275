package config

import (
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env                string            `mapstructure:"env"`
	LogLevel           string            `mapstructure:"log_level"`
	LogType            string            `mapstructure:"log_type"`
	ServiceName        string            `mapstructure:"service_name"`
	Port               string            `mapstructure:"port"`
	Version            string            `mapstructure:"version"`
	DaemonSettings     *DaemonConfig     `mapstructure:"daemon"`
	WorkerSettings     *WorkerConfig     `mapstructure:"worker"`
	HttpClientSettings *HttpClientConfig `mapstructure:"http_client"`
	CacheSettings      *CacheConfig      `mapstructure:"cache"`
	DbSettings         *DatabaseConfig   `mapstructure:"database"`
	BrokerSettings     *BrokerConfig     `mapstructure:"broker"`
	AMQPSettings       *AMQPConfig       `mapstructure:"amqp"`
	SQSSettings        *SQSConfig        `mapstructure:"sqs"`
	KafkaSettings      *KafkaConfig      `mapstructure:"kafka"`
	TelemetrySettings  *TelemetryConfig  `mapstructure:"telemetry"`
}

type DaemonConfig struct {
	UserAgent            string `mapstructure:"useragent"`
	ProbeUserAgent       string `mapstructure:"probe_useragent"`
	CacheTtlDays         int    `mapstructure:"cache_ttl"`
	Queue                string `mapstructure:"queue"`
	Exchange             string `mapstructure:"exchange"`
	MaxContentLength     int64  `mapstructure:"max_content_length"`
	RobotsFailOpen       bool   `mapstructure:"robots_fail_open"`
	ProbeFollowRedirects bool   `mapstructure:"probe_follow_redirects"`
}

// CacheTtl converts the configured number of days into a duration.
func (d *DaemonConfig) CacheTtl() time.Duration {
	return time.Duration(d.CacheTtlDays) * 24 * time.Hour
}

type WorkerConfig struct {
	RequestsLimit int           `mapstructure:"requests_limit"`
	TimeInterval  time.Duration `mapstructure:"time_interval"`
}

type HttpClientConfig struct {
	RequestTimeout            time.Duration `mapstructure:"request_timeout"`
	MaxIdleConnections        int           `mapstructure:"max_idle_connections"`
	MaxIdleConnectionsPerHost int           `mapstructure:"max_idle_connections_per_host"`
	MaxConnectionsPerHost     int           `mapstructure:"max_connections_per_host"`
	IdleConnectionTimeout     time.Duration `mapstructure:"idle_connection_timeout"`
	TlsHandshakeTimeout       time.Duration `mapstructure:"tls_handshake_timeout"`
	DialTimeout               time.Duration `mapstructure:"dial_timeout"`
	DialKeepAlive             time.Duration `mapstructure:"dial_keep_alive"`
	TlsInsecureSkipVerify     bool          `mapstructure:"tls_insecure_skip_verify"`
}

type CacheConfig struct {
	Type      string   `mapstructure:"type"`
	Servers   []string `mapstructure:"servers"`
	RedisAddr string   `mapstructure:"redis_addr"`
	RedisDb   int      `mapstructure:"redis_db"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
}

type BrokerConfig struct {
	Type string `mapstructure:"type"`
}

type AMQPConfig struct {
	URL         string        `mapstructure:"url"`
	ConsumerTag string        `mapstructure:"consumer_tag"`
	Prefetch    int           `mapstructure:"prefetch"`
	MaxRetry    int           `mapstructure:"max_retry"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

type SQSConfig struct {
	AwsBaseEndpoint   string `mapstructure:"aws_base_endpoint"`
	Region            string `mapstructure:"region"`
	WaitTimeSeconds   int32  `mapstructure:"wait_time_seconds"`
	VisibilityTimeout int32  `mapstructure:"visibility_timeout"`
}

type KafkaConfig struct {
	DLQ *DLQConfig `mapstructure:"dlq"`
}

type DLQConfig struct {
	Addr         []string      `mapstructure:"addr"`
	TopicName    string        `mapstructure:"topic_name"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	CollectorUrl string `mapstructure:"collector_url"`
}

func MustLoad() *Config {
	viper.AddConfigPath(path.Join("."))
	viper.SetConfigName("config")
	viper.AutomaticEnv()
	setDefaults()

	err := viper.ReadInConfig()
	if err != nil {
		slog.Error("can't initialize config file.", slog.String("err", err.Error()))
		os.Exit(1)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("error unmarshalling viper config.", slog.String("err", err.Error()))
		os.Exit(1)
	}

	return &cfg
}

func setDefaults() {
	viper.SetDefault("service_name", "robots-gate")
	viper.SetDefault("port", "8080")
	viper.SetDefault("daemon.cache_ttl", 1)
	viper.SetDefault("daemon.max_content_length", 262144)
	viper.SetDefault("daemon.robots_fail_open", true)
	viper.SetDefault("daemon.probe_follow_redirects", false)
	viper.SetDefault("http_client.request_timeout", 0) // no timeout unless configured
	viper.SetDefault("cache.type", "memcached")
	viper.SetDefault("broker.type", "amqp")
	viper.SetDefault("amqp.prefetch", 1)
	viper.SetDefault("amqp.max_retry", 6)
	viper.SetDefault("amqp.retry_delay", 5*time.Second)
	viper.SetDefault("sqs.wait_time_seconds", 20)
	viper.SetDefault("sqs.visibility_timeout", 30)
	viper.SetDefault("kafka.dlq.write_timeout", 10*time.Second)
	viper.SetDefault("worker.requests_limit", 0)
	viper.SetDefault("telemetry.enabled", false)
}
