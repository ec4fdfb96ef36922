package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	RateLimitRPS   int
	RateLimitBurst int

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	AuditEnabled     bool
	AuditRetention   time.Duration

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	CacheEnabled  bool
	CacheTTL      time.Duration

	// Kafka
	KafkaEnabled          bool
	KafkaBrokers          []string
	KafkaGroupID          string
	KafkaConceptsTopic    string
	KafkaSuggestionsTopic string
	KafkaDLQTopic         string
	PublishAttempts       int

	// Reference data
	ICD10CodesPath string
	ICD10CSVPath   string
	MappingsPath   string

	// Matching policy
	FuzzyThreshold int
	FuzzyWorkers   int
	SpecificCap    int
	SuggestionCap  int
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8090"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),
		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 100),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "synaptica"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "synaptica123"),
		PostgresDB:       getEnv("POSTGRES_DB", "synaptica"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		AuditEnabled:     getBoolEnv("MAPPING_AUDIT_ENABLED", false),
		AuditRetention:   getDuration("MAPPING_AUDIT_RETENTION", 30*24*time.Hour),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		CacheEnabled:  getBoolEnv("MAPPING_CACHE_ENABLED", false),
		CacheTTL:      getDuration("MAPPING_CACHE_TTL", 10*time.Minute),

		KafkaEnabled:          getBoolEnv("KAFKA_ENABLED", false),
		KafkaBrokers:          getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:          getEnv("KAFKA_GROUP_ID", "icd-mapper-service"),
		KafkaConceptsTopic:    getEnv("KAFKA_CONCEPTS_TOPIC", "extracted-concepts"),
		KafkaSuggestionsTopic: getEnv("KAFKA_SUGGESTIONS_TOPIC", "icd10-suggestions"),
		KafkaDLQTopic:         getEnv("KAFKA_DLQ_TOPIC", "icd10-suggestions-dlq"),
		PublishAttempts:       getIntEnv("KAFKA_PUBLISH_ATTEMPTS", 3),

		ICD10CodesPath: getEnv("ICD10_CODES_PATH", "data/Code-desciptions-April-2025/icd10cm-codes-April-2025.txt"),
		ICD10CSVPath:   getEnv("ICD10_CSV_PATH", "data/icd10_codes.csv"),
		MappingsPath:   getEnv("ICD10_MAPPINGS_PATH", "data/icd_condition_mappings.json"),

		FuzzyThreshold: getIntEnv("FUZZY_THRESHOLD", 70),
		FuzzyWorkers:   getIntEnv("FUZZY_WORKERS", 4),
		SpecificCap:    getIntEnv("SUGGESTION_SPECIFIC_CAP", 5),
		SuggestionCap:  getIntEnv("SUGGESTION_CAP", 6),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
