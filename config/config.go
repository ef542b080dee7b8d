package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"challengeup"`
	Version     string `env:"SERVICE_VERSION" envDefault:"v1"`

	// PostgreSQL 配置
	PostgreSQLHost     string   `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string   `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string   `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string   `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string   `env:"POSTGRESQL_DATABASE" envDefault:"challengeup"`
	PostgreSQLSchema   string   `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string   `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int      `env:"POSTGRESQL_MAX_IDLE" envDefault:"30"`
	PostgreSQLMaxOpen  int      `env:"POSTGRESQL_MAX_OPEN" envDefault:"200"`
	PostgreSQLReplicas []string `env:"POSTGRESQL_REPLICAS" envSeparator:","` // host:port，只读副本

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"cup"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// JWT 配置，token 由身份服务签发，这里只做校验和刷新
	JWTSecret        string `env:"JWT_SECRET"`
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"30"`
	JWTRefreshDays   int    `env:"JWT_REFRESH_DAYS" envDefault:"7"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 链路追踪配置
	OTelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"0.1"`

	// 速率限制配置, 配置在中间件内
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"100"` // 每秒请求数
	RateLimitBurst   int  `env:"RATE_LIMIT_BURST" envDefault:"30"`

	// 打卡配置
	CheckInTimezone     string        `env:"CHECK_IN_TIMEZONE" envDefault:"UTC"`           // 判定“同一天”使用的时区
	TrackerBackend      string        `env:"TRACKER_BACKEND" envDefault:"auto"`            // auto, atomic, locking
	TrackerLeavePolicy  string        `env:"TRACKER_LEAVE_POLICY" envDefault:"delete"`     // delete, abandon
	TrackerStore        string        `env:"TRACKER_STORE" envDefault:"postgres"`          // postgres, memory；memory 只支持单个 API 进程，连续天数重置也在该进程内执行
	TrackerStoreTimeout time.Duration `env:"TRACKER_STORE_TIMEOUT" envDefault:"3s"`
	TrackerLockTTL      time.Duration `env:"TRACKER_LOCK_TTL" envDefault:"5s"`
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}
}

// Validate 检查必填项和枚举值，由各个进程入口调用
func Validate() error {
	return Cfg.validate()
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if _, err := c.DayLocation(); err != nil {
		return err
	}

	switch c.TrackerBackend {
	case "auto", "atomic", "locking":
	default:
		return fmt.Errorf("TRACKER_BACKEND must be one of auto, atomic, locking, got %q", c.TrackerBackend)
	}

	switch c.TrackerLeavePolicy {
	case "delete", "abandon":
	default:
		return fmt.Errorf("TRACKER_LEAVE_POLICY must be delete or abandon, got %q", c.TrackerLeavePolicy)
	}

	switch c.TrackerStore {
	case "postgres", "memory":
	default:
		return fmt.Errorf("TRACKER_STORE must be postgres or memory, got %q", c.TrackerStore)
	}

	if c.TrackerStore == "memory" && c.IsProduction() {
		log.Printf("WARN: TRACKER_STORE=memory in production, participations will not survive a restart")
	}

	return nil
}

// DayLocation 返回判定打卡日期的时区
func (c *Config) DayLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.CheckInTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid CHECK_IN_TIMEZONE %q: %w", c.CheckInTimezone, err)
	}
	return loc, nil
}

func (c *Config) GetDSN() string {
	return c.dsnFor(c.PostgreSQLHost, c.PostgreSQLPort)
}

// GetReplicaDSNs 为每个只读副本生成 DSN，未写端口时沿用主库端口
func (c *Config) GetReplicaDSNs() []string {
	dsns := make([]string, 0, len(c.PostgreSQLReplicas))
	for _, replica := range c.PostgreSQLReplicas {
		replica = strings.TrimSpace(replica)
		if replica == "" {
			continue
		}
		host, port := replica, c.PostgreSQLPort
		if idx := strings.LastIndex(replica, ":"); idx > 0 {
			host, port = replica[:idx], replica[idx+1:]
		}
		dsns = append(dsns, c.dsnFor(host, port))
	}
	return dsns
}

func (c *Config) dsnFor(host, port string) string {
	return "host=" + host +
		" port=" + port +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
