package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/wb-go/wbf/retry"
)

type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Kafka      KafkaConfig
	Storage    StorageConfig
	Validation ValidationConfig
	Analysis   AnalysisConfig
	Fetch      FetchConfig
	Worker     WorkerConfig
}

type ServerConfig struct {
	Addr            string        `env:"SERVER_ADDR" env-default:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type DBConfig struct {
	Host            string        `env:"DB_HOST" env-default:"localhost"`
	Port            int           `env:"DB_PORT" env-default:"5432"`
	User            string        `env:"DB_USER" env-default:"postgres"`
	Password        string        `env:"DB_PASSWORD" env-default:"postgres"`
	Name            string        `env:"DB_NAME" env-default:"image_analyzer"`
	SSLMode         string        `env:"DB_SSLMODE" env-default:"disable"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
}

type KafkaConfig struct {
	Brokers       []string `env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	AnalysisTopic string   `env:"KAFKA_ANALYSIS_TOPIC" env-default:"image-analysis"`
	GroupID       string   `env:"KAFKA_GROUP_ID" env-default:"image-analyzer-group"`
}

type StorageConfig struct {
	// Mode selects the gateway backend: "local", "minio" or "s3".
	Mode  string `env:"STORAGE_MODE" env-default:"local"`
	Local LocalStorageConfig
	Minio MinioConfig
	S3    S3Config
}

type LocalStorageConfig struct {
	Dir string `env:"STORAGE_LOCAL_DIR" env-default:"/tmp/uploads"`
}

type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKey string `env:"MINIO_ACCESS_KEY" env-default:"minioadmin"`
	SecretKey string `env:"MINIO_SECRET_KEY" env-default:"minioadmin"`
	Bucket    string `env:"MINIO_BUCKET" env-default:"images"`
	UseSSL    bool   `env:"MINIO_USE_SSL" env-default:"false"`
}

type S3Config struct {
	Region          string `env:"AWS_REGION" env-default:"us-east-1"`
	Bucket          string `env:"S3_BUCKET"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

type ValidationConfig struct {
	MaxFileSizeMB  int      `env:"MAX_FILE_SIZE_MB" env-default:"10"`
	MinWidth       int      `env:"MIN_WIDTH" env-default:"100"`
	MinHeight      int      `env:"MIN_HEIGHT" env-default:"100"`
	MaxWidth       int      `env:"MAX_WIDTH" env-default:"8000"`
	MaxHeight      int      `env:"MAX_HEIGHT" env-default:"8000"`
	AllowedFormats []string `env:"ALLOWED_FORMATS" env-separator:"," env-default:"jpg,jpeg,png,webp,gif"`
	MinAspectRatio float64  `env:"MIN_ASPECT_RATIO" env-default:"0.2"`
	MaxAspectRatio float64  `env:"MAX_ASPECT_RATIO" env-default:"5.0"`
}

// MaxBytes returns the upload size limit in bytes.
func (v ValidationConfig) MaxBytes() int64 {
	return int64(v.MaxFileSizeMB) << 20
}

type AnalysisConfig struct {
	DuplicateThreshold   float64 `env:"DUPLICATE_THRESHOLD" env-default:"0.95"`
	MinResolution        int     `env:"MIN_RESOLUTION_THRESHOLD" env-default:"500"`
	MinQualityScore      float64 `env:"MIN_QUALITY_SCORE" env-default:"0.6"`
	EmbeddingSampleLimit int     `env:"EMBEDDING_SAMPLE_LIMIT" env-default:"100"`
}

type FetchConfig struct {
	Timeout time.Duration `env:"FETCH_TIMEOUT" env-default:"30s"`
}

type WorkerConfig struct {
	Concurrency int           `env:"WORKER_CONCURRENCY" env-default:"4"`
	JobTimeout  time.Duration `env:"WORKER_JOB_TIMEOUT" env-default:"2m"`
}

// MustLoad reads configuration from the environment. The result is treated
// as immutable and injected into components at construction.
func MustLoad() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &cfg, nil
}

func (c *Config) DBDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

func (c *Config) DefaultRetryStrategy() retry.Strategy {
	return retry.Strategy{
		Attempts: 3,
		Delay:    500 * time.Millisecond,
		Backoff:  2,
	}
}
