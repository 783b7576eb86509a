package config

import (
	"os"
	"strconv"
)

type Config struct {
	ServerPort string
	LogLevel   string

	WorkerCount  int
	SenderCount  int
	JobQueueSize int
	BatchSize    int

	DatabaseDriver string
	DatabaseURL    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SignatureSkewSeconds int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseTLS    bool

	KafkaBrokers      string
	KafkaReceiptTopic string

	APNSKeyID   string
	APNSTeamID  string
	APNSTopicID string
	APNSKeyPath string
	APNSSandbox bool

	FCMProjectID string
	FCMKeyPath   string

	ServerKeyPath string
}

func Load() *Config {
	return &Config{
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		WorkerCount:          getIntEnv("WORKER_COUNT", 5),
		SenderCount:          getIntEnv("SENDER_COUNT", 10),
		JobQueueSize:         getIntEnv("JOB_QUEUE_SIZE", 100),
		BatchSize:            getIntEnv("BATCH_SIZE", 500),
		DatabaseDriver:       getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:          getEnv("DATABASE_URL", "./pushgate.db"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getIntEnv("REDIS_DB", 0),
		SignatureSkewSeconds: getIntEnv("SIGNATURE_SKEW_SECONDS", 300),
		MinioEndpoint:        getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:       getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:       getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:          getEnv("MINIO_BUCKET", "pushgate-archive"),
		MinioUseTLS:          getBoolEnv("MINIO_USE_TLS", false),
		KafkaBrokers:         getEnv("KAFKA_BROKERS", ""),
		KafkaReceiptTopic:    getEnv("KAFKA_RECEIPT_TOPIC", "pushgate.delivery-receipts"),
		APNSKeyID:            getEnv("APNS_KEY_ID", ""),
		APNSTeamID:           getEnv("APNS_TEAM_ID", ""),
		APNSTopicID:          getEnv("APNS_TOPIC_ID", ""),
		APNSKeyPath:          getEnv("APNS_KEY_PATH", ""),
		APNSSandbox:          getBoolEnv("APNS_SANDBOX", false),
		FCMProjectID:         getEnv("FCM_PROJECT_ID", ""),
		FCMKeyPath:           getEnv("FCM_KEY_PATH", "keys/fcm-service-account.json"),
		ServerKeyPath:        getEnv("SERVER_KEY_PATH", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultVal
}
