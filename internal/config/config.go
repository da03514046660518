package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Defaults mirror the deployment's cost-control settings.
const (
	DefaultPort         = 8080
	DefaultMaxLocations = 10000
	DefaultMaxBatchSize = 25
	DefaultCacheTTLDays = 30
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		// Driver is "mysql" or "postgres".
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Geocoder struct {
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"apiKey"`
	} `yaml:"geocoder"`

	Limits struct {
		// MaxLocations bounds analysis dataset size.
		MaxLocations int `yaml:"maxLocations"`
		// MaxBatchSize bounds one geocoding request.
		MaxBatchSize int `yaml:"maxBatchSize"`
	} `yaml:"limits"`

	Cache struct {
		Enabled bool `yaml:"enabled"`
		TTLDays int  `yaml:"ttlDays"`
	} `yaml:"cache"`

	Kafka struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`

	Auth struct {
		// APIKeys maps a user id to its key; empty disables auth.
		APIKeys map[string]string `yaml:"apiKeys"`
	} `yaml:"auth"`
}

// Load reads config.yaml, applies defaults, then environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Limits.MaxLocations == 0 {
		c.Limits.MaxLocations = DefaultMaxLocations
	}
	if c.Limits.MaxBatchSize == 0 {
		c.Limits.MaxBatchSize = DefaultMaxBatchSize
	}
	if c.Cache.TTLDays == 0 {
		c.Cache.TTLDays = DefaultCacheTTLDays
	}
}

// applyEnv honors the knob names the deployment already uses.
func (c *Config) applyEnv() {
	if v, ok := envInt("MAX_LOCATIONS"); ok {
		c.Limits.MaxLocations = v
	}
	if v, ok := envInt("MAX_BATCH_SIZE"); ok {
		c.Limits.MaxBatchSize = v
	}
	if v, ok := os.LookupEnv("CACHE_RESULTS"); ok {
		c.Cache.Enabled = v == "true"
	}
	if v, ok := envInt("CACHE_TTL_DAYS"); ok {
		c.Cache.TTLDays = v
	}
	if v, ok := os.LookupEnv("OPENCAGE_API_KEY"); ok {
		c.Geocoder.APIKey = v
	}
}

func envInt(name string) (int, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MySQLDSN builds a DSN for database/sql with the mysql driver.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a DSN for database/sql with the pq driver.
func (c *Config) PostgresDSN() string {
	sslmode := c.Database.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		sslmode,
	)
}
