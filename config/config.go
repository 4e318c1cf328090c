package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	HTTP     HTTPConfig    `yaml:"http"`
	DB       DBConfig      `yaml:"db"`
	Kafka    KafkaConfig   `yaml:"kafka"`
	Redis    RedisConfig   `yaml:"redis"`
	Services Services      `yaml:"services"`
	Grading  GradingConfig `yaml:"grading"`
}

type HTTPConfig struct {
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"` //nolint:gosec // config struct, not hardcoded cred
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

type RedisConfig struct {
	Address  string        `yaml:"address"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type Services struct {
	MLStats ServiceConfig `yaml:"ml_stats"`
	Auth    ServiceConfig `yaml:"auth"`
}

type ServiceConfig struct {
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
}

type GradingConfig struct {
	// MinToUseML is the number of instructor-graded (or in-grading)
	// submissions a location needs before the ML grader takes over.
	MinToUseML     int           `yaml:"min_to_use_ml"`
	StaleClaimAge  time.Duration `yaml:"stale_claim_age"`
	WorkerInterval time.Duration `yaml:"worker_interval"`
}

func Load() (*Config, error) {
	configPath := getConfigPath()
	data, err := os.ReadFile(configPath) //nolint:gosec // config path from env/flag
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setDefaults(&cfg)
	overrideFromEnv(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func getConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	possiblePaths := []string{
		"config/config.yaml",
		"/etc/grading-service/config.yaml",
		"./config.yaml",
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "config.yaml"
}

func setDefaults(cfg *Config) {
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = 30 * time.Second
	}

	if cfg.Services.MLStats.Timeout == 0 {
		cfg.Services.MLStats.Timeout = 10 * time.Second
	}
	if cfg.Services.Auth.Timeout == 0 {
		cfg.Services.Auth.Timeout = 10 * time.Second
	}

	if cfg.Redis.CacheTTL == 0 {
		cfg.Redis.CacheTTL = time.Minute
	}

	if cfg.Grading.MinToUseML == 0 {
		cfg.Grading.MinToUseML = 20
	}
	if cfg.Grading.StaleClaimAge == 0 {
		cfg.Grading.StaleClaimAge = 30 * time.Minute
	}
	if cfg.Grading.WorkerInterval == 0 {
		cfg.Grading.WorkerInterval = time.Minute
	}
}

func overrideFromEnv(cfg *Config) {
	if val := os.Getenv("HTTP_ADDRESS"); val != "" {
		cfg.HTTP.Address = val
	}
	if val := os.Getenv("HTTP_TIMEOUT"); val != "" {
		if timeout, err := strconv.Atoi(val); err == nil {
			cfg.HTTP.Timeout = time.Duration(timeout) * time.Second
		}
	}

	if val := os.Getenv("DB_HOST"); val != "" {
		cfg.DB.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.DB.Port = port
		}
	}
	if val := os.Getenv("DB_USER"); val != "" {
		cfg.DB.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		cfg.DB.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		cfg.DB.DBName = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		cfg.DB.SSLMode = val
	}

	if val := os.Getenv("KAFKA_BROKERS"); val != "" {
		cfg.Kafka.Brokers = strings.Split(val, ",")
	}

	if val := os.Getenv("REDIS_ADDRESS"); val != "" {
		cfg.Redis.Address = val
	}

	if val := os.Getenv("ML_STATS_ADDRESS"); val != "" {
		cfg.Services.MLStats.Address = val
	}
	if val := os.Getenv("AUTH_SERVICE_ADDRESS"); val != "" {
		cfg.Services.Auth.Address = val
	}

	if val := os.Getenv("MIN_TO_USE_ML"); val != "" {
		if min, err := strconv.Atoi(val); err == nil {
			cfg.Grading.MinToUseML = min
		}
	}
	if val := os.Getenv("STALE_CLAIM_AGE"); val != "" {
		if age, err := time.ParseDuration(val); err == nil {
			cfg.Grading.StaleClaimAge = age
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.HTTP.Address == "" {
		return fmt.Errorf("HTTP address must be set")
	}

	if len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("at least one Kafka broker must be specified")
	}

	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.DBName == "" {
		return fmt.Errorf("database configuration is incomplete")
	}

	if cfg.Services.MLStats.Address == "" {
		return fmt.Errorf("ml stats service address must be specified")
	}

	if cfg.Services.Auth.Address == "" {
		return fmt.Errorf("auth service address must be specified")
	}

	if cfg.Grading.MinToUseML < 0 {
		return fmt.Errorf("min_to_use_ml must not be negative")
	}

	return nil
}
