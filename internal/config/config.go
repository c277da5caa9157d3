package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	PostgresConfig PostgresConfig `yaml:"postgres"`
	MongoConfig    MongoConfig    `yaml:"mongo"`
	MinioConfig    MinioConfig    `yaml:"minio"`
	ServerConfig   ServerConfig   `yaml:"server"`
	QueueConfig    QueueConfig    `yaml:"queue"`
}

type PostgresConfig struct {
	Host     string        `yaml:"host" env:"POSTGRES_HOST"`
	Port     string        `yaml:"port" env:"POSTGRES_PORT"`
	DBName   string        `yaml:"dbname" env:"POSTGRES_DB"`
	User     string        `yaml:"user" env:"POSTGRES_USER"`
	Password string        `yaml:"password" env:"POSTGRES_PASSWORD"`
	Timeout  time.Duration `yaml:"timeout" env-default:"30s"`
}

type MongoConfig struct {
	URI      string        `yaml:"uri" env:"MONGO_URI"`
	Database string        `yaml:"database" env-default:"taskboard"`
	Timeout  time.Duration `yaml:"timeout" env-default:"30s"`
}

type MinioConfig struct {
	Endpoint       string        `yaml:"endpoint" env:"MINIO_ENDPOINT"`
	PublicEndpoint string        `yaml:"public_endpoint" env:"MINIO_PUBLIC_ENDPOINT"`
	AccessKey      string        `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey      string        `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	Bucket         string        `yaml:"bucket" env-default:"chat-uploads"`
	UseSSL         bool          `yaml:"use_ssl"`
	PresignTTL     time.Duration `yaml:"presign_ttl" env-default:"24h"`
}

type ServerConfig struct {
	Port      string        `yaml:"port" env-default:"8080"`
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" env-default:"24h"`
}

type QueueConfig struct {
	Workers   int           `yaml:"workers" env-default:"2"`
	Buffer    int           `yaml:"buffer" env-default:"256"`
	Attempts  int           `yaml:"attempts" env-default:"3"`
	BaseDelay time.Duration `yaml:"base_delay" env-default:"2s"`
}

func MustLoad() Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	var config Config
	err := cleanenv.ReadConfig(configPath, &config)
	if err != nil {
		log.Fatalf("config not read: %v", err)
	}
	return config
}
