package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort   string
	ServerHost   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	PostgresEnabled  bool

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisEnabled  bool

	// Kafka
	KafkaBrokers []string
	KafkaGroupID string
	KafkaEnabled bool

	// Pattern discovery
	DiscoverySeed    int64
	ReducedDims      int
	ClusterEps       float64
	ClusterMinPoints int
	MinPatternSize   int
	DispersionScale  float64

	// Matching pipeline
	StageTimeout        time.Duration
	MaxCandidates       int
	MaxSites            int
	TopPatterns         int
	RankJitter          float64
	PatientsPerSiteWeek float64

	// Data loading
	SyntheticPatients int
	TerminologyPath   string
	SiteDatabasePath  string
}

func Load() *Config {
	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		ServerHost:   getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getDuration("WRITE_TIMEOUT", 120*time.Second),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "trialmatch"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "trialmatch123"),
		PostgresDB:       getEnv("POSTGRES_DB", "trialmatch"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresEnabled:  getBoolEnv("POSTGRES_ENABLED", false),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		RedisEnabled:  getBoolEnv("REDIS_ENABLED", false),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "trialmatch-platform"),
		KafkaEnabled: getBoolEnv("KAFKA_ENABLED", false),

		DiscoverySeed:    int64(getIntEnv("DISCOVERY_SEED", 42)),
		ReducedDims:      getIntEnv("REDUCED_DIMS", 50),
		ClusterEps:       getFloatEnv("CLUSTER_EPS", 2.0),
		ClusterMinPoints: getIntEnv("CLUSTER_MIN_POINTS", 5),
		MinPatternSize:   getIntEnv("MIN_PATTERN_SIZE", 50),
		DispersionScale:  getFloatEnv("DISPERSION_SCALE", 10.0),

		StageTimeout:        getDuration("STAGE_TIMEOUT", 30*time.Second),
		MaxCandidates:       getIntEnv("MAX_CANDIDATES", 1000),
		MaxSites:            getIntEnv("MAX_SITES", 10),
		TopPatterns:         getIntEnv("TOP_PATTERNS", 20),
		RankJitter:          getFloatEnv("RANK_JITTER", 0),
		PatientsPerSiteWeek: getFloatEnv("PATIENTS_PER_SITE_WEEK", 2.5),

		SyntheticPatients: getIntEnv("SYNTHETIC_PATIENTS", 5000),
		TerminologyPath:   getEnv("TERMINOLOGY_PATH", ""),
		SiteDatabasePath:  getEnv("SITE_DATABASE_PATH", ""),
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

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
