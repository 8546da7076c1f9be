package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int
	Database   DatabaseConfig
	Storage    StorageConfig
	Gemini     GeminiConfig
	Events     EventsConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

// StorageConfig selects and configures the physical object storage backend.
// Backend is read once at process start; it is a deployment property, not a
// per-request one.
type StorageConfig struct {
	// Backend is one of "local", "gcs", "minio".
	Backend string

	// LocalRoot is the directory all local objects live under.
	LocalRoot string

	// CacheTTLSeconds is the max-age used when streaming objects.
	CacheTTLSeconds int

	GCS   GCSConfig
	Minio MinioConfig
}

// GCSConfig configures the Google Cloud Storage backend. Root is a
// slash-delimited "bucket/prefix" value; everything after the first slash
// becomes the object key prefix.
type GCSConfig struct {
	Root            string
	CredentialsFile string
	SidecarURL      string
	Private         bool
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type EventsConfig struct {
	// Driver is one of "none", "rabbitmq", "pubsub".
	Driver   string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL          string
	QueueDurable bool
}

type PubSubConfig struct {
	ProjectID       string
	CredentialsFile string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "shelfsnap"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "shelfsnap_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	storageConfig := StorageConfig{
		Backend:         getEnv("STORAGE_BACKEND", "local"),
		LocalRoot:       getEnv("STORAGE_LOCAL_ROOT", "data/objects"),
		CacheTTLSeconds: getEnvInt("STORAGE_CACHE_TTL", 3600),
		GCS: GCSConfig{
			Root:            getEnv("GCS_ROOT", ""),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
			SidecarURL:      getEnv("GCS_SIDECAR_URL", "http://127.0.0.1:1106"),
			Private:         getEnvBool("GCS_PRIVATE", true),
		},
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "shelfsnap-objects"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}

	return Config{
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		Database:   dbConfig,
		Storage:    storageConfig,
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Events: EventsConfig{
			Driver: getEnv("EVENTS_DRIVER", "none"),
			RabbitMQ: RabbitMQConfig{
				URL:          getEnv("RABBITMQ_URL", ""),
				QueueDurable: getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			},
			PubSub: PubSubConfig{
				ProjectID:       getEnv("PUBSUB_PROJECT_ID", ""),
				CredentialsFile: getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			},
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		return value == "true" || value == "1"
	}
	return defaultValue
}
