package config

import (
	"os"
	"strconv"
)

type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	DB       DBConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	JWT      JWTConfig
	Vision   VisionConfig
	Storage  StorageConfig
	OCR      OCRConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host          string
	Port          string
	RedisPassword string
	RedisDB       string
}

type RabbitMQConfig struct {
	URL string
}

type JWTConfig struct {
	Secret string
}

// VisionConfig carries OCR provider credentials. Either the inline JSON blob
// or a path to a credentials file must be present; the provider client
// refuses to construct otherwise.
type VisionConfig struct {
	CredentialsJSON string
	CredentialsFile string
	Endpoint        string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// OCRConfig holds the orchestration knobs layered on top of the provider
// call: result caching, bounded retries and image normalization.
type OCRConfig struct {
	UseCache        bool
	PreprocessImage bool
	MaxRetries      int
	Template        string
}

func Load() *Config {
	return &Config{
		AppName: os.Getenv("APP_NAME"),
		AppEnv:  os.Getenv("APP_ENV"),
		AppPort: getEnv("APP_PORT", "8087"),

		DB: DBConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     os.Getenv("DB_PORT"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  os.Getenv("DB_SSLMODE"),
		},

		Redis: RedisConfig{
			Host:          os.Getenv("REDIS_HOST"),
			Port:          os.Getenv("REDIS_PORT"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getEnv("REDIS_DB", "0"),
		},

		RabbitMQ: RabbitMQConfig{
			URL: os.Getenv("RABBITMQ_URL"),
		},

		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
		},

		Vision: VisionConfig{
			CredentialsJSON: os.Getenv("VISION_CREDENTIALS_JSON"),
			CredentialsFile: os.Getenv("VISION_CREDENTIALS_FILE"),
			Endpoint:        getEnv("VISION_ENDPOINT", "https://vision.googleapis.com/v1/images:annotate"),
		},

		Storage: StorageConfig{
			Endpoint:  os.Getenv("STORAGE_ENDPOINT"),
			AccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey: os.Getenv("STORAGE_SECRET_KEY"),
			Bucket:    getEnv("STORAGE_BUCKET", "receipts"),
			UseSSL:    getEnvAsBool("STORAGE_USE_SSL", false),
		},

		OCR: OCRConfig{
			UseCache:        getEnvAsBool("OCR_USE_CACHE", true),
			PreprocessImage: getEnvAsBool("OCR_PREPROCESS_IMAGE", false),
			MaxRetries:      getEnvAsInt("OCR_MAX_RETRIES", 2),
			Template:        os.Getenv("OCR_TEMPLATE"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
