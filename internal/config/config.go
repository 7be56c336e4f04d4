package config

import (
	"fmt"
	"os"
	"time"
)

// Store selects the registry backend.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	ServiceName    string
	LogLevel       string
	HTTPListenAddr string

	// Store is "postgres" (default) or "memory" for local development.
	Store       string
	DatabaseURL string

	// Docker-backed execution platform.
	DockerHost      string
	PackagingImage  string
	RestoreImage    string
	VolumePrefix    string
	ContainerPrefix string

	// Artifact object storage.
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	// NATSURL enables the NATS event sink when set; otherwise events go
	// to the log.
	NATSURL string

	SchedulerTick time.Duration
	PollInterval  time.Duration
	JobMaxWait    time.Duration
	StopTimeout   time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:    getEnv("SERVICE_NAME", "backup-api"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		HTTPListenAddr: getEnv("HTTP_LISTEN_ADDR", ":8090"),

		Store:       getEnv("STORE", StorePostgres),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		DockerHost:      getEnv("DOCKER_HOST", ""),
		PackagingImage:  getEnv("PACKAGING_IMAGE", "gamehost/backup-packager:latest"),
		RestoreImage:    getEnv("RESTORE_IMAGE", "gamehost/backup-restorer:latest"),
		VolumePrefix:    getEnv("VOLUME_PREFIX", "gs-data-"),
		ContainerPrefix: getEnv("CONTAINER_PREFIX", "gs-"),

		S3Endpoint:  getEnv("S3_ENDPOINT", "http://localhost:7480"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", "gamehost-backups"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),

		NATSURL: getEnv("NATS_URL", ""),
	}

	var err error
	if cfg.SchedulerTick, err = getDuration("SCHEDULER_TICK", time.Minute); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getDuration("POLL_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.JobMaxWait, err = getDuration("JOB_MAX_WAIT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.StopTimeout, err = getDuration("STOP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Store != StorePostgres && c.Store != StoreMemory {
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	if c.Store == StorePostgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when STORE=%s", StorePostgres)
	}
	if c.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET must not be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
