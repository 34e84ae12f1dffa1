package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"bqrelay/tools/logger"

	"github.com/gin-gonic/gin"
)

const (
	// WorkerIDEnv 由 supervisor 写入子进程环境变量，标识 worker 编号
	WorkerIDEnv = "BQRELAY_WORKER_ID"

	OriginWildcard = "*"
	OriginEcho     = "echo"

	SinkBigQuery = "bigquery"
	SinkMySQL    = "mysql"
	SinkPostgres = "postgres"
	SinkDynamoDB = "dynamodb"
	SinkRedis    = "redis"
	SinkHTTP     = "http"
	SinkLog      = "log"
)

// Config 应用配置结构，启动时构造一次，之后只读
type Config struct {
	// 服务器配置
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// CORS 策略: "*" 或 "echo"
	AllowOrigin string

	// 日志配置
	LogLevel  string
	LogFormat string

	// 进程配置
	Workers            int
	WorkerRestartDelay time.Duration
	WorkerID           string
	IsWorker           bool

	// 数据落地配置
	Sink SinkConfig

	Application *application
}

// SinkConfig 下游存储配置，按值传入 sink 构造函数
type SinkConfig struct {
	Type    string
	Timeout time.Duration

	BigQuery BigQueryConfig
	MySQL    MySQLConfig
	Postgres PostgresConfig
	DynamoDB DynamoDBConfig
	Redis    RedisConfig
	HTTP     HTTPConfig
}

type BigQueryConfig struct {
	ProjectID       string
	DatasetID       string
	TableID         string
	CredentialsFile string
}

type MySQLConfig struct {
	DSN   string
	Table string
	Debug bool
}

type PostgresConfig struct {
	DSN   string
	Table string
}

type DynamoDBConfig struct {
	Table    string
	Region   string
	Endpoint string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type HTTPConfig struct {
	URL                 string
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// 应用服务

type application struct {
	server *gin.Engine
	lock   sync.Mutex
	root   gin.IRouter
}

var (
	cfg    *Config
	cfgErr error
	once   sync.Once
)

// LoadConfig 加载进程级配置，只在第一次调用时读取环境变量和配置文件
func LoadConfig() (*Config, error) {
	once.Do(func() {
		cfg, cfgErr = Load()
	})
	return cfg, cfgErr
}

// Load 读取 CONFIG_FILE（可选）与环境变量，环境变量优先
func Load() (*Config, error) {
	var fc fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		fc = *loaded
	}
	return build(fc)
}

func build(fc fileConfig) (*Config, error) {
	c := &Config{
		Port:            getEnv("PORT", orDefault(fc.Server.portString(), "8080")),
		ReadTimeout:     getDurationEnv("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 0),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 5*time.Second),
		MaxBodyBytes:    getInt64Env("MAX_BODY_BYTES", orDefaultInt64(fc.Server.MaxBodyBytes, 1<<20)),
		AllowOrigin:     getEnv("ALLOW_ORIGIN", orDefault(fc.Server.AllowOrigin, OriginWildcard)),

		LogLevel:  getEnv("LOG_LEVEL", orDefault(fc.Log.Level, "info")),
		LogFormat: getEnv("LOG_FORMAT", orDefault(fc.Log.Format, "console")),

		Workers:            getIntEnv("WORKERS", fc.Server.Workers),
		WorkerRestartDelay: getDurationEnv("WORKER_RESTART_DELAY", 0),
		WorkerID:           getEnv(WorkerIDEnv, "0"),
		IsWorker:           os.Getenv(WorkerIDEnv) != "",

		Sink: SinkConfig{
			Type:    strings.ToLower(getEnv("SINK_TYPE", orDefault(fc.Sink.Type, SinkBigQuery))),
			Timeout: getDurationEnv("SINK_TIMEOUT", 0),
			BigQuery: BigQueryConfig{
				ProjectID:       getEnv("BIGQUERY_PROJECT_ID", fc.BigQuery.ProjectID),
				DatasetID:       getEnv("BIGQUERY_DATASET_ID", fc.BigQuery.DatasetID),
				TableID:         getEnv("BIGQUERY_TABLE_ID", fc.BigQuery.TableID),
				CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", fc.BigQuery.KeyFilename),
			},
			MySQL: MySQLConfig{
				DSN:   getEnv("MYSQL_DSN", fc.Sink.MySQL.DSN),
				Table: getEnv("MYSQL_TABLE", orDefault(fc.Sink.MySQL.Table, "events")),
				Debug: getEnv("DEBUG", "false") == "true",
			},
			Postgres: PostgresConfig{
				DSN:   getEnv("POSTGRES_DSN", fc.Sink.Postgres.DSN),
				Table: getEnv("POSTGRES_TABLE", orDefault(fc.Sink.Postgres.Table, "events")),
			},
			DynamoDB: DynamoDBConfig{
				Table:    getEnv("DYNAMODB_TABLE_NAME", fc.Sink.DynamoDB.Table),
				Region:   getEnv("AWS_REGION", fc.Sink.DynamoDB.Region),
				Endpoint: getEnv("DYNAMODB_ENDPOINT", fc.Sink.DynamoDB.Endpoint),
			},
			Redis: RedisConfig{
				Addr:     getEnv("REDIS_ADDR", orDefault(fc.Sink.Redis.Addr, "localhost:6379")),
				Password: getEnv("REDIS_PASSWORD", fc.Sink.Redis.Password),
				DB:       getIntEnv("REDIS_DB", fc.Sink.Redis.DB),
				Stream:   getEnv("REDIS_STREAM", orDefault(fc.Sink.Redis.Stream, "bqrelay:events")),
			},
			HTTP: HTTPConfig{
				URL:                 getEnv("HTTP_SINK_URL", fc.Sink.HTTP.URL),
				MaxIdleConns:        getIntEnv("MAX_IDLE_CONNS", 100),
				MaxIdleConnsPerHost: getIntEnv("MAX_IDLE_CONNS_PER_HOST", 10),
				IdleConnTimeout:     getDurationEnv("IDLE_CONN_TIMEOUT", 90*time.Second),
			},
		},

		Application: &application{},
	}

	// 未指定 worker 数量时按 CPU 数量启动
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
		if c.Workers < 1 {
			c.Workers = 1
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	if c.AllowOrigin != OriginWildcard && c.AllowOrigin != OriginEcho {
		return fmt.Errorf("ALLOW_ORIGIN must be %q or %q, got %q", OriginWildcard, OriginEcho, c.AllowOrigin)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	return c.Sink.Validate()
}

// Validate 按 sink 类型检查必需的配置
func (s SinkConfig) Validate() error {
	switch s.Type {
	case SinkBigQuery:
		if s.BigQuery.ProjectID == "" {
			return fmt.Errorf("BIGQUERY_PROJECT_ID is required")
		}
		if s.BigQuery.DatasetID == "" {
			return fmt.Errorf("BIGQUERY_DATASET_ID is required")
		}
		if s.BigQuery.TableID == "" {
			return fmt.Errorf("BIGQUERY_TABLE_ID is required")
		}
	case SinkMySQL:
		if s.MySQL.DSN == "" {
			return fmt.Errorf("MYSQL_DSN is required when sink type is mysql")
		}
	case SinkPostgres:
		if s.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when sink type is postgres")
		}
	case SinkDynamoDB:
		if s.DynamoDB.Table == "" {
			return fmt.Errorf("DYNAMODB_TABLE_NAME is required when sink type is dynamodb")
		}
	case SinkRedis:
		if s.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when sink type is redis")
		}
	case SinkHTTP:
		if s.HTTP.URL == "" {
			return fmt.Errorf("HTTP_SINK_URL is required when sink type is http")
		}
	case SinkLog:
	default:
		return fmt.Errorf("unsupported sink type: %s", s.Type)
	}
	return nil
}

// Supervised 是否以 supervisor 模式启动多个 worker 进程
func (c *Config) Supervised() bool {
	return c.Workers > 1 && !c.IsWorker
}

// NewLogger 按配置创建日志记录器，并带上 worker 编号
func (c *Config) NewLogger() *logger.Logger {
	return logger.New(c.LogLevel, c.LogFormat, os.Stdout).With("worker", c.WorkerID)
}

// Addr 监听地址
func (c *Config) Addr() string {
	return ":" + c.Port
}

func (a *application) GinServer() *gin.Engine {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.server == nil {
		gin.SetMode(getEnv("GIN_MODE", gin.ReleaseMode))
		a.server = gin.New()
		// 未注册的方法也要走统一的响应头处理
		a.server.HandleMethodNotAllowed = true
	}

	return a.server
}

func (a *application) GinRootRouter() gin.IRouter {
	r := a.GinServer()

	a.lock.Lock()
	defer a.lock.Unlock()
	if a.root == nil {
		a.root = r.Group("/")
	}

	return a.root
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv 获取整数类型的环境变量
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv 获取时间间隔类型的环境变量，纯数字按秒处理，也支持 "250ms" 这类写法
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return time.Duration(intValue) * time.Second
		}
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func orDefaultInt64(v, def int64) int64 {
	if v > 0 {
		return v
	}
	return def
}
