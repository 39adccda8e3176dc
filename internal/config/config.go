package config

import (
	"os"
	"strconv"
)

type Config struct {
	Addr        string
	DatabaseURL string
	DataDir     string
	SnapshotDir string
	CORSOrigin  string
	// Redis Configuration (reconciliation locks)
	RedisURL string
	// Meilisearch Configuration
	MeiliURL       string
	MeiliMasterKey string
	// Object store Configuration (uploaded transcript files)
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

func Load() Config {
	return Config{
		Addr: getenv("API_ADDR", ":8791"),
		// Empty DATABASE_URL selects the flat-file document store.
		DatabaseURL: getenv("DATABASE_URL", ""),
		DataDir:     getenv("JAICE_DATA_DIR", "./data"),
		SnapshotDir: getenv("JAICE_SNAPSHOTS_DIR", "./data/snapshots"),
		CORSOrigin:  getenv("JAICE_CORS_ORIGIN", "*"),
		// Redis - empty means reconciliation locking stays in-process
		RedisURL:       getenv("REDIS_URL", ""),
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
		// MinIO - empty endpoint disables raw-file storage
		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "jaice-transcripts"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
